package log

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/diode"
	"github.com/rs/zerolog/log"
)

const (
	diodeSize     = 1000
	diodeInterval = 5 * time.Millisecond
)

// NewContextWithLogger installs a console logger writing to out behind a
// non-blocking diode buffer. Colors are used only when out is a terminal.
// The returned func flushes and closes the buffer.
func NewContextWithLogger(ctx context.Context, debug bool, out io.Writer) (context.Context, func()) {
	zerolog.SetGlobalLevel(levelFor(debug))

	wr := diode.NewWriter(out, diodeSize, diodeInterval, func(missed int) {
		fmt.Fprintf(out, "logger dropped %d messages\n", missed)
	})

	logger := zerolog.New(consoleWriter(wr, !isTerminal(out))).
		With().
		Timestamp().
		Logger()

	log.Logger = logger

	return logger.WithContext(ctx), func() {
		wr.Close()
	}
}

// SetDebug changes the global level once the runtime config is known.
func SetDebug(debug bool) {
	zerolog.SetGlobalLevel(levelFor(debug))
}

func FromCtx(ctx context.Context) *zerolog.Logger {
	return log.Ctx(ctx)
}

// WithComponent returns ctx carrying a child logger tagged with name.
func WithComponent(ctx context.Context, name string) context.Context {
	return FromCtx(ctx).With().Str("component", name).Logger().WithContext(ctx)
}

func levelFor(debug bool) zerolog.Level {
	if debug {
		return zerolog.DebugLevel
	}
	return zerolog.InfoLevel
}

func consoleWriter(out io.Writer, noColor bool) zerolog.ConsoleWriter {
	return zerolog.ConsoleWriter{
		Out:        out,
		NoColor:    noColor,
		TimeFormat: time.DateTime,
		PartsOrder: []string{
			zerolog.LevelFieldName,
			zerolog.TimestampFieldName,
			zerolog.MessageFieldName,
		},
	}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
