package logging

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Logger is the process-wide logger.
var Logger = logrus.New()

var once sync.Once

// Options configure Init.
type Options struct {
	Service string
	Level   string
	// File enables a size-rotated log file next to stdout.
	File       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

// Formatter renders one line per entry: time, service, level, message, fields.
type Formatter struct {
	Service string
}

func (f *Formatter) Format(entry *logrus.Entry) ([]byte, error) {
	b := entry.Buffer
	if b == nil {
		b = &bytes.Buffer{}
	}
	fmt.Fprintf(b, "%s %s %-5s %s",
		entry.Time.Format("2006-01-02T15:04:05.000Z07:00"),
		f.Service,
		strings.ToUpper(entry.Level.String()),
		entry.Message,
	)
	for k, v := range entry.Data {
		fmt.Fprintf(b, " %s=%v", k, v)
	}
	b.WriteByte('\n')
	return b.Bytes(), nil
}

// Init configures Logger once.
func Init(opts Options) {
	once.Do(func() {
		var out io.Writer = os.Stdout
		if opts.File != "" {
			if err := os.MkdirAll(filepath.Dir(opts.File), 0o755); err != nil {
				logrus.Fatalf("[log] create log directory: %v", err)
			}
			out = io.MultiWriter(os.Stdout, &lumberjack.Logger{
				Filename:   opts.File,
				MaxSize:    withDefault(opts.MaxSizeMB, 10),
				MaxBackups: withDefault(opts.MaxBackups, 3),
				MaxAge:     withDefault(opts.MaxAgeDays, 28),
				Compress:   true,
			})
		}
		Logger.SetOutput(out)
		Logger.SetFormatter(&Formatter{Service: opts.Service})

		level, err := logrus.ParseLevel(opts.Level)
		if err != nil {
			level = logrus.InfoLevel
		}
		Logger.SetLevel(level)
		Logger.Infof("[log] logger initialized service=%s level=%s file=%q", opts.Service, level, opts.File)
	})
}

func withDefault(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}
