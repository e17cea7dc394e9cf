package commands

import (
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"testing"
)

func TestParseClock(t *testing.T) {
	tt := []struct {
		in           string
		hour, minute int
		wantErr      bool
	}{
		{in: "07:30", hour: 7, minute: 30},
		{in: "7:05", hour: 7, minute: 5},
		{in: "2359", hour: 23, minute: 59},
		{in: " 00:00 ", hour: 0, minute: 0},
		{in: "24:00", wantErr: true},
		{in: "12:60", wantErr: true},
		{in: "12:5", wantErr: true},
		{in: "noon", wantErr: true},
		{in: "", wantErr: true},
	}

	for _, tc := range tt {
		t.Run(tc.in, func(t *testing.T) {
			hour, minute, err := ParseClock(tc.in)
			if tc.wantErr {
				assert.ErrorIs(t, err, ErrBadInput)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tc.hour, hour)
			assert.Equal(t, tc.minute, minute)
		})
	}
}

func TestParseDays(t *testing.T) {
	tt := []struct {
		in      string
		want    []int
		wantErr bool
	}{
		{in: "mon", want: []int{1}},
		{in: "Monday, wed,FRI", want: []int{1, 3, 5}},
		{in: "mon-fri", want: []int{1, 2, 3, 4, 5}},
		{in: "fri-mon", want: []int{0, 1, 5, 6}},
		{in: "weekdays,sun", want: []int{0, 1, 2, 3, 4, 5}},
		{in: "weekends", want: []int{0, 6}},
		{in: "daily", want: []int{0, 1, 2, 3, 4, 5, 6}},
		{in: "0,6,6", want: []int{0, 6}},
		{in: "1-3", want: []int{1, 2, 3}},
		{in: "7", wantErr: true},
		{in: "mo", wantErr: true},
		{in: "someday", wantErr: true},
		{in: "sunburn", wantErr: true},
		{in: "monkey", wantErr: true},
		{in: "tues", wantErr: true},
		{in: "sat-sunburn", wantErr: true},
		{in: "Saturday-Sunday", want: []int{0, 6}},
		{in: " , ", wantErr: true},
	}

	for _, tc := range tt {
		t.Run(tc.in, func(t *testing.T) {
			days, err := ParseDays(tc.in)
			if tc.wantErr {
				assert.ErrorIs(t, err, ErrBadInput)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tc.want, days)
		})
	}
}
