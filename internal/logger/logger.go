package logger

import (
	"os"
	"time"

	"github.com/rs/zerolog"
)

const (
	CategoryGeneral       = "general"
	CategoryGaze          = "gaze"
	CategoryTrackingState = "trackingState"
)

func Setup(dev bool) zerolog.Logger {
	var logger zerolog.Logger
	level := zerolog.InfoLevel
	if dev {
		level = zerolog.DebugLevel
	}

	logger = zerolog.New(os.Stderr).Level(level).With().Timestamp().Caller().Logger()

	if dev {
		logger = logger.Output(zerolog.ConsoleWriter{Out: os.Stderr, FormatTimestamp: func(i any) string {
			return time.Now().Format(time.RFC3339)
		}}).Level(level).With().Stack().Logger()
	}

	return logger
}

// Categories hands out loggers tagged with the owning application as the
// subsystem and a category, one per concern or per tracked signal.
type Categories struct {
	base zerolog.Logger
}

func NewCategories(base zerolog.Logger, appID string) *Categories {
	return &Categories{base: base.With().Str("subsystem", appID).Logger()}
}

// Nop returns categories that discard everything.
func Nop() *Categories {
	return &Categories{base: zerolog.Nop()}
}

func (c *Categories) General() zerolog.Logger {
	return c.Category(CategoryGeneral)
}

func (c *Categories) Gaze() zerolog.Logger {
	return c.Category(CategoryGaze)
}

func (c *Categories) TrackingState() zerolog.Logger {
	return c.Category(CategoryTrackingState)
}

// Signal returns the logger for a named facial signal.
func (c *Categories) Signal(name string) zerolog.Logger {
	return c.Category(name)
}

func (c *Categories) Category(name string) zerolog.Logger {
	return c.base.With().Str("category", name).Logger()
}
