// Package logging builds the zap logger used across the adapter and keeps
// secrets out of log lines.
package logging

import (
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/BaSui01/glmllm/config"
)

// Logger wraps a *zap.Logger together with the rotating file it writes to.
type Logger struct {
	*zap.Logger

	file *lumberjack.Logger
	stop chan struct{}
	once sync.Once
	wg   sync.WaitGroup
}

// ParseLevel maps a config level string to a zap level, defaulting to info.
func ParseLevel(s string) zapcore.Level {
	switch s {
	case "debug":
		return zapcore.DebugLevel
	case "warn":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

func newEncoder(format string) zapcore.Encoder {
	if format == "console" {
		encoderConfig := zap.NewDevelopmentEncoderConfig()
		encoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
		return zapcore.NewConsoleEncoder(encoderConfig)
	}
	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.TimeKey = "timestamp"
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	return zapcore.NewJSONEncoder(encoderConfig)
}

// New builds a logger writing to stderr and, when cfg.File is set, to a
// lumberjack-managed file. With RotateDaily the file is rotated at local
// midnight; rotated files are kept MaxAgeDays days and gzip-compressed when
// Compress is set.
func New(cfg config.LogConfig) (*Logger, error) {
	level := zap.NewAtomicLevelAt(ParseLevel(cfg.Level))
	cores := []zapcore.Core{
		zapcore.NewCore(newEncoder(cfg.Format), zapcore.Lock(os.Stderr), level),
	}

	l := &Logger{stop: make(chan struct{})}
	if cfg.File != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.File), 0o755); err != nil {
			return nil, err
		}
		l.file = &lumberjack.Logger{
			Filename:  cfg.File,
			MaxSize:   cfg.MaxSizeMB,
			MaxAge:    cfg.MaxAgeDays,
			Compress:  cfg.Compress,
			LocalTime: true,
		}
		// 文件始终使用 JSON，便于检索
		cores = append(cores, zapcore.NewCore(newEncoder("json"), zapcore.AddSync(l.file), level))
	}

	opts := []zap.Option{zap.AddStacktrace(zapcore.ErrorLevel)}
	if cfg.EnableCaller {
		opts = append(opts, zap.AddCaller())
	}
	l.Logger = zap.New(zapcore.NewTee(cores...), opts...)

	if l.file != nil && cfg.RotateDaily {
		l.wg.Add(1)
		go l.rotateDaily(time.Now)
	}
	return l, nil
}

// rotateDaily rotates the log file each time the local clock crosses midnight.
func (l *Logger) rotateDaily(now func() time.Time) {
	defer l.wg.Done()
	for {
		timer := time.NewTimer(time.Until(NextMidnight(now())))
		select {
		case <-l.stop:
			timer.Stop()
			return
		case <-timer.C:
			if err := l.file.Rotate(); err != nil {
				l.Warn("log rotation failed", zap.Error(err))
			}
		}
	}
}

// Close flushes the logger, stops the rotation goroutine and closes the file.
func (l *Logger) Close() error {
	var err error
	l.once.Do(func() {
		close(l.stop)
		l.wg.Wait()
		_ = l.Sync()
		if l.file != nil {
			err = l.file.Close()
		}
	})
	return err
}

// NextMidnight returns the first local midnight strictly after t.
func NextMidnight(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d+1, 0, 0, 0, 0, t.Location())
}
