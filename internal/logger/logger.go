package logger

import (
	"os"
	"sync"

	"github.com/natefinch/lumberjack"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	log  *zap.Logger
	once sync.Once
)

// Init sets up the global logger. Console output always; if logFile is
// non-empty, a rotating JSON file sink is added. Only the first call wins.
func Init(verbose bool, logFile string) {
	once.Do(func() {
		level := zapcore.InfoLevel
		encCfg := zap.NewProductionEncoderConfig()
		if verbose {
			level = zapcore.DebugLevel
			encCfg = zap.NewDevelopmentEncoderConfig()
		}

		cores := []zapcore.Core{
			zapcore.NewCore(
				zapcore.NewConsoleEncoder(encCfg),
				zapcore.AddSync(os.Stderr),
				level,
			),
		}

		if logFile != "" {
			cores = append(cores, zapcore.NewCore(
				zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()),
				zapcore.AddSync(&lumberjack.Logger{
					Filename:   logFile,
					MaxSize:    20, // MB
					MaxBackups: 3,
					MaxAge:     14, // days
				}),
				level,
			))
		}

		log = zap.New(zapcore.NewTee(cores...), zap.AddStacktrace(zapcore.ErrorLevel))
	})
}

// Get returns the global logger, initializing a default one if needed.
func Get() *zap.Logger {
	if log == nil {
		Init(false, "")
	}
	return log
}

// Sync flushes buffered log entries.
func Sync() {
	if log != nil {
		log.Sync()
	}
}
