package cmd

import (
	"fmt"
	"os"
	"strings"

	zaplogfmt "github.com/sykesm/zap-logfmt"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var logLevels = map[string]zapcore.Level{
	"debug":    zapcore.DebugLevel,
	"info":     zapcore.InfoLevel,
	"warning":  zapcore.WarnLevel,
	"warn":     zapcore.WarnLevel,
	"error":    zapcore.ErrorLevel,
	"fatal":    zapcore.FatalLevel,
	"critical": zapcore.FatalLevel,
}

// parseLogLevel accepts the level names of the --log-level flag.
func parseLogLevel(s string) (zapcore.Level, error) {
	lvl, ok := logLevels[strings.ToLower(strings.TrimSpace(s))]
	if !ok {
		return zapcore.InfoLevel, fmt.Errorf("%w: unsupported log level %q", ErrUsage, s)
	}
	return lvl, nil
}

func zapEncoderConfig() zapcore.EncoderConfig {
	cfg := zap.NewProductionEncoderConfig()

	cfg.LevelKey = "loglevel"
	cfg.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.EncodeDuration = zapcore.StringDurationEncoder

	return cfg
}

func newLogger(level, format string, out zapcore.WriteSyncer) (*zap.Logger, error) {
	lvl, err := parseLogLevel(level)
	if err != nil {
		return nil, err
	}

	cfg := zapEncoderConfig()

	var enc zapcore.Encoder
	switch format {
	case "logfmt":
		enc = zaplogfmt.NewEncoder(cfg)
	case "json":
		enc = zapcore.NewJSONEncoder(cfg)
	case "console":
		cfg.EncodeLevel = zapcore.CapitalLevelEncoder
		enc = zapcore.NewConsoleEncoder(cfg)
	default:
		return nil, fmt.Errorf("%w: unsupported log format %q", ErrUsage, format)
	}

	return zap.New(zapcore.NewCore(enc, out, lvl)), nil
}

// initLogger replaces the global logger. Logs go to stderr so that stdout
// only carries the report or the snapshot.
func initLogger(level, format string) error {
	logger, err := newLogger(level, format, zapcore.Lock(os.Stderr))
	if err != nil {
		return err
	}

	zap.ReplaceGlobals(logger.Named("main"))
	return nil
}

func syncLogger() {
	_ = zap.L().Sync()
}
