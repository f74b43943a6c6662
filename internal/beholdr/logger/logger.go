package logger

import (
	"os"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	mu     sync.RWMutex
	logger *zap.SugaredLogger
)

// LogConfig describes where log output goes. Files are optional and rotated
// by size; the console always receives output at ConsoleLevel.
type LogConfig struct {
	Level        string
	ConsoleLevel string
	DebugFile    string
	InfoFile     string
	Development  bool
}

func parseLevel(level string, fallback zapcore.Level) zapcore.Level {
	switch level {
	case "debug":
		return zapcore.DebugLevel
	case "info":
		return zapcore.InfoLevel
	case "warn":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return fallback
	}
}

func rotatingWriter(path string) zapcore.WriteSyncer {
	return zapcore.AddSync(&lumberjack.Logger{
		Filename:   path,
		MaxSize:    100, // megabytes
		MaxBackups: 5,
		MaxAge:     28, // days
	})
}

// InitLogger initializes the global sugared logger.
func InitLogger(cfg LogConfig) error {
	base := parseLevel(cfg.Level, zapcore.InfoLevel)
	console := parseLevel(cfg.ConsoleLevel, base)

	encCfg := zap.NewProductionEncoderConfig()
	if cfg.Development {
		encCfg = zap.NewDevelopmentEncoderConfig()
	}
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	var consoleEnc zapcore.Encoder
	if cfg.Development {
		consoleEnc = zapcore.NewConsoleEncoder(encCfg)
	} else {
		consoleEnc = zapcore.NewJSONEncoder(encCfg)
	}

	cores := []zapcore.Core{
		zapcore.NewCore(consoleEnc, zapcore.Lock(os.Stderr), zap.NewAtomicLevelAt(console)),
	}
	if cfg.DebugFile != "" {
		cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(encCfg),
			rotatingWriter(cfg.DebugFile), zap.NewAtomicLevelAt(zapcore.DebugLevel)))
	}
	if cfg.InfoFile != "" {
		cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(encCfg),
			rotatingWriter(cfg.InfoFile), zap.NewAtomicLevelAt(zapcore.InfoLevel)))
	}

	opts := []zap.Option{zap.AddCaller()}
	if cfg.Development {
		opts = append(opts, zap.Development())
	}
	Set(zap.New(zapcore.NewTee(cores...), opts...).Sugar())
	return nil
}

// Set replaces the global logger. Tests use it to capture output.
func Set(l *zap.SugaredLogger) {
	mu.Lock()
	defer mu.Unlock()
	logger = l
}

// L returns the global sugared logger.
// If InitLogger has not been called, it initializes at info level.
func L() *zap.SugaredLogger {
	mu.RLock()
	l := logger
	mu.RUnlock()
	if l == nil {
		_ = InitLogger(LogConfig{Level: "info"})
		mu.RLock()
		l = logger
		mu.RUnlock()
	}
	return l
}

// Sync flushes any buffered log entries.
func Sync() {
	_ = L().Sync()
}
