package kire

import (
	"encoding/json"
	"github.com/pkg/errors"
	"github.com/tidwall/gjson"
	"strconv"
)

var ErrCorruptBlob = errors.New("stored reminders are corrupt")
var ErrUnusableReminder = errors.New("stored reminder cannot be used")

// decodeReminders reads the persisted array. A blob that is not a JSON
// array is corrupt as a whole. Inside the array every element is read field
// by field; mistyped optional fields fall back to their defaults and
// elements without a usable time of day are skipped and reported.
func decodeReminders(b []byte) ([]Reminder, []error, error) {
	if !gjson.ValidBytes(b) {
		return nil, nil, errors.Wrap(ErrCorruptBlob, "not valid JSON")
	}

	root := gjson.ParseBytes(b)
	if root.Type == gjson.Null {
		return []Reminder{}, nil, nil
	}

	if !root.IsArray() {
		return nil, nil, errors.Wrapf(ErrCorruptBlob, "expected an array, got %s", root.Type)
	}

	elements := root.Array()
	out := make([]Reminder, 0, len(elements))
	var skipped []error
	for i, el := range elements {
		r, err := decodeReminder(el)
		if err != nil {
			skipped = append(skipped, errors.Wrapf(err, "element %d", i))
			continue
		}

		out = append(out, Normalize(r))
	}

	return out, skipped, nil
}

func decodeReminder(el gjson.Result) (Reminder, error) {
	if !el.IsObject() {
		return Reminder{}, errors.Wrapf(ErrUnusableReminder, "%s is not an object", el.Type)
	}

	hour, ok := intField(el.Get("hour"))
	if !ok || hour < 0 || hour > 23 {
		return Reminder{}, errors.Wrapf(ErrUnusableReminder, "hour %s", el.Get("hour").Raw)
	}

	minute, ok := intField(el.Get("minute"))
	if !ok || minute < 0 || minute > 59 {
		return Reminder{}, errors.Wrapf(ErrUnusableReminder, "minute %s", el.Get("minute").Raw)
	}

	r := Reminder{
		ID:                stringField(el.Get("id")),
		Hour:              hour,
		Minute:            minute,
		PatternID:         stringField(el.Get("patternId")),
		Description:       stringField(el.Get("description")),
		Enabled:           el.Get("enabled").Bool(),
		RecurrenceEnabled: el.Get("recurrenceEnabled").Bool(),
		Weekdays:          intsField(el.Get("weekdays")),
		CustomPattern:     intsField(el.Get("customPattern")),
	}

	if ids := el.Get("notificationIds"); ids.IsArray() {
		r.NotificationIDs = []string{}
		for _, id := range ids.Array() {
			if id.Type == gjson.String && id.Str != "" {
				r.NotificationIDs = append(r.NotificationIDs, id.Str)
			}
		}
	}

	r.LegacyNotificationID = stringField(el.Get("notificationId"))

	return r, nil
}

// intField accepts JSON numbers and numeric strings holding whole numbers.
func intField(v gjson.Result) (int, bool) {
	switch v.Type {
	case gjson.Number:
		if v.Num != float64(int(v.Num)) {
			return 0, false
		}
		return int(v.Num), true
	case gjson.String:
		n, err := strconv.Atoi(v.Str)
		return n, err == nil
	}
	return 0, false
}

func stringField(v gjson.Result) string {
	if v.Type != gjson.String {
		return ""
	}
	return v.Str
}

// intsField keeps the whole numbers of an array; anything else gives nil.
func intsField(v gjson.Result) []int {
	if !v.IsArray() {
		return nil
	}

	var out []int
	for _, el := range v.Array() {
		if n, ok := intField(el); ok && el.Type == gjson.Number {
			out = append(out, n)
		}
	}
	return out
}

func encodeReminders(items []Reminder) ([]byte, error) {
	if items == nil {
		items = []Reminder{}
	}

	b, err := json.Marshal(items)
	if err != nil {
		return nil, errors.Wrap(err, "could not marshal reminders")
	}

	return b, nil
}
