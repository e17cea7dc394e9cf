// Package logging builds the zap logger shared by the kire commands.
package logging

import (
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"io"
	"os"
	"syscall"
)

const (
	FormatConsole = "console"
	FormatJSON    = "json"
)

var ErrInvalidConfig = errors.New("invalid logging config")

type Config struct {
	Level  string `koanf:"log_level"`
	Format string `koanf:"log_format"`
}

func NewDefaultConfig() Config {
	return Config{Level: "info", Format: FormatConsole}
}

func (c Config) Validate() error {
	if c.Format != FormatConsole && c.Format != FormatJSON {
		return errors.Wrapf(ErrInvalidConfig, "format must be %q or %q, got %q", FormatConsole, FormatJSON, c.Format)
	}

	if _, err := zapcore.ParseLevel(c.Level); err != nil {
		return errors.Wrapf(ErrInvalidConfig, "level: %v", err)
	}

	return nil
}

// New builds a logger writing to w, or to stderr when w is nil.
func New(c Config, w io.Writer) (*zap.Logger, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}

	level, _ := zapcore.ParseLevel(c.Level)

	if w == nil {
		w = os.Stderr
	}

	core := zapcore.NewCore(newEncoder(c.Format), zapcore.AddSync(w), level)
	return zap.New(core, zap.AddStacktrace(zapcore.ErrorLevel)), nil
}

func newEncoder(format string) zapcore.Encoder {
	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.TimeKey = "ts"
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	if format == FormatConsole {
		encoderCfg.EncodeLevel = zapcore.CapitalLevelEncoder
		return zapcore.NewConsoleEncoder(encoderCfg)
	}
	return zapcore.NewJSONEncoder(encoderCfg)
}

// Sync flushes the logger, ignoring the errors syncing a terminal produces.
func Sync(l *zap.Logger) error {
	err := l.Sync()
	if err != nil && isStdoutSyncError(err) {
		return nil
	}
	return err
}

func isStdoutSyncError(err error) bool {
	return errors.Is(err, syscall.EINVAL) || errors.Is(err, syscall.ENOTTY) || errors.Is(err, syscall.EBADF)
}
