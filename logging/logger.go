// Package logging builds the structured logger shared by the evaluator.
package logging

import (
	"fmt"
	"io"
	"os"
	"path"
	"runtime"
	"strings"

	formatter "github.com/antonfisher/nested-logrus-formatter"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Fields aliases logrus.Fields so callers need not import logrus for simple use.
type Fields = logrus.Fields

// Options configures NewLogger.
type Options struct {
	// Level is a logrus level name; empty means info.
	Level string
	// File mirrors output to a size-rotated log file when set.
	File string
	// NoColors disables ANSI colors, e.g. when stderr is not a terminal.
	NoColors bool
	// Output replaces stderr as the primary sink.
	Output io.Writer
}

// NewLogger returns a logger writing nested, caller-annotated entries to
// stderr and, optionally, to a rotated file.
func NewLogger(opts Options) (*logrus.Logger, error) {
	level := logrus.InfoLevel
	if opts.Level != "" {
		parsed, err := logrus.ParseLevel(opts.Level)
		if err != nil {
			return nil, errors.Wrapf(err, "invalid log level %q", opts.Level)
		}
		level = parsed
	}

	logger := logrus.New()
	logger.SetLevel(level)
	logger.SetFormatter(&formatter.Formatter{
		NoColors:        opts.NoColors,
		TimestampFormat: "02 Jan 06 - 15:04:05",
		HideKeys:        false,
		CallerFirst:     true,
		CustomCallerFormatter: func(f *runtime.Frame) string {
			s := strings.Split(f.Function, ".")
			funcName := s[len(s)-1]
			return fmt.Sprintf(" [%s:%d][%s()]", path.Base(f.File), f.Line, funcName)
		},
	})

	var primary io.Writer = os.Stderr
	if opts.Output != nil {
		primary = opts.Output
	}
	writers := []io.Writer{primary}

	if opts.File != "" {
		writers = append(writers, &lumberjack.Logger{
			Filename:   opts.File,
			LocalTime:  true,
			Compress:   true,
			MaxSize:    100,
			MaxAge:     7,
			MaxBackups: 3,
		})
	}

	logger.SetOutput(io.MultiWriter(writers...))
	logger.SetReportCaller(true)

	return logger, nil
}
