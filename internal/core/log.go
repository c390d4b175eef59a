package core

import (
	"time"

	"github.com/rs/zerolog"
)

const (
	SOURCE_LOG_FIELD_NAME = "src"
	BUILD_LOG_FIELD_NAME  = "build"

	COMPILER_LOG_SRC = "compiler"
)

func init() {
	zerolog.DurationFieldInteger = false
	zerolog.DurationFieldUnit = time.Millisecond
	zerolog.MessageFieldName = "msg"
	zerolog.LevelFieldName = "lvl"
	zerolog.TimestampFieldName = "tm"
}

func ChildLoggerForSource(logger zerolog.Logger, src string) zerolog.Logger {
	return logger.With().Str(SOURCE_LOG_FIELD_NAME, src).Logger()
}
