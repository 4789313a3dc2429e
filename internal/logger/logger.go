// Package logger hands out the process-wide zerolog logger used by the
// CLI, the simulator, and the tools. Library packages (core, algo)
// return errors instead of logging.
package logger

import (
	"os"
	"sync"

	"github.com/rs/zerolog"
)

var once sync.Once
var Log zerolog.Logger

func configure() {
	timeFormat := "2006-01-02T15:04:05.000Z07:00"
	zerolog.TimeFieldFormat = timeFormat

	output := zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: timeFormat,
	}

	Log = zerolog.New(output).With().Timestamp().Logger()
}

// Get returns the shared logger, configuring it on first use.
func Get() *zerolog.Logger {
	once.Do(configure)
	return &Log
}

// GetWithLevel returns the shared logger and pins the global level; the
// level takes effect only on the first call of the process.
func GetWithLevel(level zerolog.Level) *zerolog.Logger {
	once.Do(func() {
		configure()
		zerolog.SetGlobalLevel(level)
	})
	return &Log
}
