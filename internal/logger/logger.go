package logger

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/natefinch/lumberjack"
	"github.com/sirupsen/logrus"
	prefixed "github.com/x-cray/logrus-prefixed-formatter"
)

var (
	prefixLen = 9
	prefixMu  sync.Mutex
)

// Init configures the global logger. verbosity follows the -v count:
// 0 info, 1 debug, 2+ trace. An empty logFile disables file logging.
func Init(verbosity int, logFile string) error {
	var useLevel logrus.Level
	switch {
	case verbosity == 1:
		useLevel = logrus.DebugLevel
	case verbosity > 1:
		useLevel = logrus.TraceLevel
	default:
		useLevel = logrus.InfoLevel
	}

	logrus.SetLevel(useLevel)
	logrus.SetOutput(os.Stderr)
	logrus.SetFormatter(&prefixed.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
		ForceFormatting: true,
	})

	if logFile == "" {
		return nil
	}

	hook, err := newRotateFileHook(rotateFileConfig{
		Filename:   logFile,
		MaxSize:    5,
		MaxBackups: 10,
		MaxAge:     14,
		Level:      useLevel,
		Formatter: &prefixed.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: "2006-01-02 15:04:05",
			DisableColors:   true,
			ForceFormatting: true,
		},
	})
	if err != nil {
		return fmt.Errorf("log file hook: %w", err)
	}

	logrus.AddHook(hook)
	return nil
}

// GetLogger returns an entry tagged with prefix.
func GetLogger(prefix string) *logrus.Entry {
	prefixMu.Lock()
	if len(prefix) > prefixLen {
		prefixLen = len(prefix)
	}
	width := prefixLen
	prefixMu.Unlock()

	return logrus.WithFields(logrus.Fields{
		"prefix": fmt.Sprintf("%-*s", width, prefix),
	})
}

// Discard silences the global logger; used by tests.
func Discard() {
	logrus.SetOutput(io.Discard)
}

type rotateFileConfig struct {
	Filename   string
	MaxSize    int
	MaxBackups int
	MaxAge     int
	Level      logrus.Level
	Formatter  logrus.Formatter
}

type rotateFileHook struct {
	cfg       rotateFileConfig
	logWriter io.Writer
}

func newRotateFileHook(cfg rotateFileConfig) (logrus.Hook, error) {
	return &rotateFileHook{
		cfg: cfg,
		logWriter: &lumberjack.Logger{
			Filename:   cfg.Filename,
			MaxSize:    cfg.MaxSize,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAge,
		},
	}, nil
}

func (h *rotateFileHook) Levels() []logrus.Level {
	return logrus.AllLevels[:h.cfg.Level+1]
}

func (h *rotateFileHook) Fire(entry *logrus.Entry) error {
	b, err := h.cfg.Formatter.Format(entry)
	if err != nil {
		return err
	}

	_, err = h.logWriter.Write(b)
	return err
}
