package notifier

import (
	"context"
	"github.com/denismitr/kire/notification"
	"github.com/fatih/color"
	"github.com/pkg/errors"
	"io"
	"os"
	"strings"
	"sync"
)

const bell = "\a"

// Console prints deliveries to a terminal and rings its bell.
type Console struct {
	mu   sync.Mutex
	w    io.Writer
	bell bool
}

// NewConsole writes to w, or to stdout when w is nil.
func NewConsole(w io.Writer, ringBell bool) *Console {
	if w == nil {
		w = os.Stdout
	}
	return &Console{w: w, bell: ringBell}
}

func (n *Console) Present(ctx context.Context, d notification.Delivery) error {
	title := color.New(color.FgCyan, color.Bold)
	gray := color.New(color.FgHiBlack)
	magenta := color.New(color.FgMagenta)

	n.mu.Lock()
	defer n.mu.Unlock()

	var b strings.Builder
	if n.bell {
		b.WriteString(bell)
	}

	b.WriteString(title.Sprintf("%s ", d.Request.Content.Title))
	b.WriteString(gray.Sprintf("%s\n", d.FiredAt.Format("Mon 15:04")))
	b.WriteString("  " + d.Request.Content.Body + "\n")

	if d.Channel != nil && len(d.Channel.VibrationPattern) > 0 {
		b.WriteString(magenta.Sprintf("  %s %s\n", Bars(d.Channel.VibrationPattern), d.Channel.Name))
	}

	if _, err := io.WriteString(n.w, b.String()); err != nil {
		return errors.Wrap(err, "could not write notification to console")
	}

	return nil
}

// Bars draws a vibration pattern, one cell per 100ms started. Even positions
// are pauses, odd positions vibrate.
func Bars(pattern []int) string {
	var b strings.Builder
	for i, ms := range pattern {
		if ms <= 0 {
			continue
		}

		cell := "▁"
		if i%2 == 1 {
			cell = "█"
		}
		b.WriteString(strings.Repeat(cell, (ms+99)/100))
	}
	return b.String()
}
