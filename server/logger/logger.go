package logger

import (
	"log"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LEVEL_ENV_VAR overrides the default "debug" level, e.g. PHONEBOOK_LOG_LEVEL=warn
const LEVEL_ENV_VAR = "PHONEBOOK_LOG_LEVEL"

func NewLogger() *zap.SugaredLogger {
	config := zap.NewDevelopmentConfig()
	config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	config.DisableStacktrace = true

	if levelName := os.Getenv(LEVEL_ENV_VAR); levelName != "" {
		var level zapcore.Level
		if err := level.UnmarshalText([]byte(levelName)); err == nil {
			config.Level = zap.NewAtomicLevelAt(level)
		}
	}

	logger, err := config.Build()
	if err != nil {
		log.Panic(err)
	}

	return logger.Sugar()
}
