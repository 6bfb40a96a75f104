package utils

import (
	"cmp"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	lumberjack "gopkg.in/natefinch/lumberjack.v2"

	"github.com/cppla/gympoints/config"
)

var (
	// Logger is the global structured logger
	Logger *zap.Logger
	// Sugar is a sugared logger for convenience
	Sugar *zap.SugaredLogger
)

func init() {
	// usable before InitLogger, e.g. in tests and early CLI failures
	setLogger(zap.NewNop())
}

func setLogger(l *zap.Logger) {
	Logger = l
	Sugar = l.Sugar()
}

// InitLogger installs the global logger: JSON on stdout and, when LOG_PATH is
// set, the same stream in a rotated file.
func InitLogger(cfg config.AppConfig) error {
	level := levelOf(cfg.LogLevel)
	cores := []zapcore.Core{
		zapcore.NewCore(jsonEncoder(), zapcore.Lock(os.Stdout), level),
	}
	if cfg.LogPath != "" {
		ws, err := rollingWriter(cfg.LogPath, cfg)
		if err != nil {
			return err
		}
		cores = append(cores, zapcore.NewCore(jsonEncoder(), ws, level))
	}

	opts := []zap.Option{zap.AddCaller()}
	if level == zapcore.DebugLevel {
		opts = append(opts, zap.Development())
	}
	setLogger(zap.New(zapcore.NewTee(cores...), opts...))
	return nil
}

// NewRollingFileLogger builds a logger that writes only to path, rotated with
// the LOG_MAX_* settings. An empty path returns the global Logger.
func NewRollingFileLogger(path string, cfg config.AppConfig) (*zap.Logger, error) {
	if path == "" {
		return Logger, nil
	}
	ws, err := rollingWriter(path, cfg)
	if err != nil {
		return nil, err
	}
	return zap.New(zapcore.NewCore(jsonEncoder(), ws, levelOf(cfg.LogLevel))), nil
}

func rollingWriter(path string, cfg config.AppConfig) (zapcore.WriteSyncer, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	return zapcore.AddSync(&lumberjack.Logger{
		Filename:   path,
		MaxSize:    cmp.Or(cfg.LogMaxSizeMB, 100), // megabytes
		MaxBackups: cmp.Or(cfg.LogMaxBackups, 3),
		MaxAge:     cmp.Or(cfg.LogMaxAgeDays, 7), // days
		Compress:   cfg.LogCompress,
	}), nil
}

func jsonEncoder() zapcore.Encoder {
	return zapcore.NewJSONEncoder(zapcore.EncoderConfig{
		TimeKey:        "ts",
		LevelKey:       "level",
		NameKey:        "logger",
		CallerKey:      "caller",
		MessageKey:     "msg",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeTime:     zapcore.TimeEncoderOfLayout("2006-01-02 15:04:05.000"),
		EncodeDuration: zapcore.SecondsDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	})
}

// levelOf maps LOG_LEVEL to a zap level. Unknown values (including the
// gorm-only "silent") log at info.
func levelOf(s string) zapcore.Level {
	level, err := zapcore.ParseLevel(s)
	if err != nil {
		return zapcore.InfoLevel
	}
	return level
}
