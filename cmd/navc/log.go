package main

import (
	"io"
	"os"
	"time"

	"github.com/navmlang/navc/internal/config"
	"github.com/navmlang/navc/internal/core"
	"github.com/rs/zerolog"
	"golang.org/x/term"
)

const CLI_LOG_SRC = "cli"

// newLogger returns a JSON logger writing to errW, or a console logger if errW is a terminal.
func newLogger(errW io.Writer, level zerolog.Level) zerolog.Logger {
	w := errW

	if f, ok := errW.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		w = zerolog.ConsoleWriter{
			Out:        errW,
			NoColor:    !config.SHOULD_COLORIZE,
			TimeFormat: time.TimeOnly,
		}
	}

	logger := zerolog.New(w).Level(level).With().Timestamp().Logger()
	return core.ChildLoggerForSource(logger, CLI_LOG_SRC)
}
