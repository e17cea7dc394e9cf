package options

type Order string

const (
	Ascend  Order = "ASC"
	Descend Order = "DESC"
)

// MinuteRange bounds reminders by minute of day, both ends inclusive.
type MinuteRange struct {
	From, To int
}

type ListOptions struct {
	O         Order
	MR        *MinuteRange
	Enabled   *bool
	Recurring *bool
}

func (lo *ListOptions) SetOrder(o Order) *ListOptions {
	lo.O = o
	return lo
}

func (lo *ListOptions) Between(fromHour, fromMinute, toHour, toMinute int) *ListOptions {
	lo.MR = &MinuteRange{From: fromHour*60 + fromMinute, To: toHour*60 + toMinute}
	return lo
}

func (lo *ListOptions) OnlyEnabled(v bool) *ListOptions {
	lo.Enabled = &v
	return lo
}

func (lo *ListOptions) OnlyRecurring(v bool) *ListOptions {
	lo.Recurring = &v
	return lo
}

func List() *ListOptions {
	return &ListOptions{O: Ascend}
}
