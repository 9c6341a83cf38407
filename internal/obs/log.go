package obs

import (
	"io"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

var (
	loggerMu   sync.Mutex
	logger     zerolog.Logger
	loggerInit bool
)

// Logger returns the shared structured logger used across the service.
func Logger() zerolog.Logger {
	loggerMu.Lock()
	defer loggerMu.Unlock()
	if !loggerInit {
		logger = newLogger(os.Stdout)
		loggerInit = true
	}
	return logger
}

// SetOutput redirects the shared logger. Returns the previous logger so tests
// can restore it.
func SetOutput(w io.Writer) zerolog.Logger {
	loggerMu.Lock()
	defer loggerMu.Unlock()
	prev := logger
	logger = newLogger(w)
	loggerInit = true
	return prev
}

// Restore puts back a logger previously returned by SetOutput.
func Restore(l zerolog.Logger) {
	loggerMu.Lock()
	defer loggerMu.Unlock()
	logger = l
	loggerInit = true
}

func newLogger(w io.Writer) zerolog.Logger {
	zerolog.TimeFieldFormat = time.RFC3339

	level := zerolog.InfoLevel
	switch os.Getenv("LOG_LEVEL") {
	case "debug":
		level = zerolog.DebugLevel
	case "warn":
		level = zerolog.WarnLevel
	case "error":
		level = zerolog.ErrorLevel
	}

	if os.Getenv("ENV") == "development" {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}

	return zerolog.New(w).
		Level(level).
		With().
		Timestamp().
		Str("service", "teamdir-api").
		Logger()
}
