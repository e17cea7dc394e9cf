// Package notifier presents fired notifications to the user.
package notifier

import (
	"context"
	"github.com/denismitr/kire/notification"
	"github.com/denismitr/kire/internal/scheduler"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"strings"
)

// Log writes every delivery to a zap logger.
type Log struct {
	log *zap.Logger
}

func NewLog(l *zap.Logger) *Log {
	return &Log{log: l.Named("notifier")}
}

func (n *Log) Present(ctx context.Context, d notification.Delivery) error {
	fields := []zap.Field{
		zap.String("identifier", d.Request.Identifier),
		zap.String("title", d.Request.Content.Title),
		zap.String("body", d.Request.Content.Body),
		zap.Time("fired_at", d.FiredAt),
	}

	for k, v := range d.Request.Content.Data {
		fields = append(fields, zap.String(k, v))
	}

	if d.Channel != nil {
		fields = append(fields, zap.String("channel", d.Channel.ID), zap.Ints("vibration", d.Channel.VibrationPattern))
	}

	n.log.Info("notification", fields...)
	return nil
}

// Multi hands a delivery to every presenter, even after one of them failed.
type Multi []scheduler.Presenter

func (m Multi) Present(ctx context.Context, d notification.Delivery) error {
	var failed []string
	for _, p := range m {
		if err := p.Present(ctx, d); err != nil {
			failed = append(failed, err.Error())
		}
	}

	if len(failed) > 0 {
		return errors.Errorf("%d of %d presenters failed: %s", len(failed), len(m), strings.Join(failed, "; "))
	}

	return nil
}
