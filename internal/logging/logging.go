// Package logging builds the zerolog loggers used by the command.
package logging

import (
	"io"

	"github.com/rs/zerolog"
)

const TimeFormat = "15:04:05"

// New returns a console logger writing to w at the named level.
func New(w io.Writer, level string) (zerolog.Logger, error) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		return zerolog.Nop(), err
	}
	out := zerolog.ConsoleWriter{Out: w, TimeFormat: TimeFormat}
	return zerolog.New(out).Level(lvl).With().Timestamp().Logger(), nil
}
