package kire

import (
	"github.com/denismitr/kire/options"
	"github.com/tidwall/btree"
	"math"
)

const castPanic = "how could reminder index item not be of type *indexItem"

type indexItem struct {
	minute int
	seq    uint64
	r      *Reminder
}

func byMinuteOfDay(a, b interface{}) bool {
	i1, ok1 := a.(*indexItem)
	i2, ok2 := b.(*indexItem)
	if !ok1 || !ok2 {
		panic(castPanic)
	}

	if i1.minute != i2.minute {
		return i1.minute < i2.minute
	}

	return i1.seq < i2.seq
}

// reminderIndex keeps reminders ordered by minute of day. Reminders sharing
// a minute keep the order in which they were added, which is also the order
// in which they are persisted.
type reminderIndex struct {
	byTime *btree.BTree
	byID   map[string]*indexItem
	seq    uint64
}

func newReminderIndex() *reminderIndex {
	return &reminderIndex{
		byTime: btree.New(byMinuteOfDay),
		byID:   make(map[string]*indexItem),
	}
}

func (idx *reminderIndex) len() int {
	return len(idx.byID)
}

func (idx *reminderIndex) get(id string) (*Reminder, bool) {
	item, ok := idx.byID[id]
	if !ok {
		return nil, false
	}
	return item.r, true
}

// put adds r or replaces the reminder with the same id in place.
func (idx *reminderIndex) put(r Reminder) {
	seq := idx.seq
	if existing, ok := idx.byID[r.ID]; ok {
		seq = existing.seq
		idx.byTime.Delete(existing)
	} else {
		idx.seq++
	}

	item := &indexItem{minute: r.MinuteOfDay(), seq: seq, r: &r}
	idx.byTime.Set(item)
	idx.byID[r.ID] = item
}

func (idx *reminderIndex) remove(id string) bool {
	item, ok := idx.byID[id]
	if !ok {
		return false
	}

	idx.byTime.Delete(item)
	delete(idx.byID, id)
	return true
}

// inInsertionOrder returns the stored reminders themselves, not copies.
func (idx *reminderIndex) inInsertionOrder() []Reminder {
	items := make([]*indexItem, idx.seq)
	for _, item := range idx.byID {
		items[item.seq] = item
	}

	out := make([]Reminder, 0, len(idx.byID))
	for _, item := range items {
		if item != nil {
			out = append(out, *item.r)
		}
	}

	return out
}

func (idx *reminderIndex) scan(lo *options.ListOptions, fn func(r *Reminder) bool) {
	if lo == nil {
		lo = options.List()
	}

	from, to := 0, math.MaxInt32
	if lo.MR != nil {
		from, to = lo.MR.From, lo.MR.To
	}

	iter := func(i interface{}) bool {
		item, ok := i.(*indexItem)
		if !ok {
			panic(castPanic)
		}

		// the pivot already skipped the near side of the range
		if item.minute < from || item.minute > to {
			return false
		}

		if lo.Enabled != nil && item.r.Enabled != *lo.Enabled {
			return true
		}

		if lo.Recurring != nil && item.r.RecurrenceEnabled != *lo.Recurring {
			return true
		}

		return fn(item.r)
	}

	if lo.O == options.Descend {
		idx.byTime.Descend(&indexItem{minute: to, seq: math.MaxUint64}, iter)
		return
	}

	idx.byTime.Ascend(&indexItem{minute: from, seq: 0}, iter)
}
