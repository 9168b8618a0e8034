// Package logger provides leveled logging for the fieldmon auth core with a
// console/syslog backend, a file backend and a small in-memory buffer the UI
// layer can read recent entries from.
package logger

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/fieldmon/fieldmon/config"
	"github.com/op/go-logging"
)

const (
	maxLogBufferSize = 10240
	logFileName      = "fieldmon.log"
	timeFormat       = "2006/01/02 15:04:05"
)

var (
	logger  *logging.Logger
	logFile *os.File

	// logBuffer keeps recent entries in memory for UI retrieval.
	logBuffer []bufferedEntry
)

type bufferedEntry struct {
	time  string
	level logging.Level
	log   string
}

// InitLogger sets up the console/syslog backend at the given level and a file
// backend that always captures DEBUG.
func InitLogger(level logging.Level) {
	newLogger := logging.MustGetLogger(config.GetName())
	backends := make([]logging.Backend, 0, 2)

	if consoleBackend := initDefaultBackend(); consoleBackend != nil {
		leveledBackend := logging.AddModuleLevel(consoleBackend)
		leveledBackend.SetLevel(level, config.GetName())
		backends = append(backends, leveledBackend)
	}

	if fileBackend := initFileBackend(); fileBackend != nil {
		leveledBackend := logging.AddModuleLevel(fileBackend)
		leveledBackend.SetLevel(logging.DEBUG, config.GetName())
		backends = append(backends, leveledBackend)
	}

	newLogger.SetBackend(logging.MultiLogger(backends...))
	logger = newLogger
}

// initDefaultBackend prefers syslog on unix-like systems and falls back to
// stderr. Windows has no syslog support.
func initDefaultBackend() logging.Backend {
	var backend logging.Backend
	includeTime := false

	if runtime.GOOS == "windows" {
		backend = logging.NewLogBackend(os.Stderr, "", 0)
		includeTime = true
	} else {
		if syslogBackend, err := logging.NewSyslogBackend(""); err != nil {
			fmt.Fprintf(os.Stderr, "syslog backend disabled: %v\n", err)
			backend = logging.NewLogBackend(os.Stderr, "", 0)
			includeTime = os.Getppid() > 0
		} else {
			backend = syslogBackend
		}
	}

	return logging.NewBackendFormatter(backend, newFormatter(includeTime))
}

func initFileBackend() logging.Backend {
	logDir := config.GetLogFolder()
	if err := os.MkdirAll(logDir, 0o750); err != nil {
		fmt.Fprintf(os.Stderr, "failed to create log folder %s: %v\n", logDir, err)
		return nil
	}

	logPath := filepath.Join(logDir, logFileName)
	file, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o660)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to open log file %s: %v\n", logPath, err)
		return nil
	}

	if logFile != nil {
		_ = logFile.Close()
	}
	logFile = file

	backend := logging.NewLogBackend(file, "", 0)
	return logging.NewBackendFormatter(backend, newFormatter(true))
}

func newFormatter(withTime bool) logging.Formatter {
	format := `%{level} - %{message}`
	if withTime {
		format = `%{time:` + timeFormat + `} %{level} - %{message}`
	}
	return logging.MustStringFormatter(format)
}

// CloseLogger releases the log file. Call during application shutdown.
func CloseLogger() {
	if logFile != nil {
		_ = logFile.Close()
		logFile = nil
	}
}

func Debug(args ...any) {
	logger.Debug(args...)
	addToBuffer("DEBUG", fmt.Sprint(args...))
}

func Debugf(format string, args ...any) {
	logger.Debugf(format, args...)
	addToBuffer("DEBUG", fmt.Sprintf(format, args...))
}

func Info(args ...any) {
	logger.Info(args...)
	addToBuffer("INFO", fmt.Sprint(args...))
}

func Infof(format string, args ...any) {
	logger.Infof(format, args...)
	addToBuffer("INFO", fmt.Sprintf(format, args...))
}

func Notice(args ...any) {
	logger.Notice(args...)
	addToBuffer("NOTICE", fmt.Sprint(args...))
}

func Noticef(format string, args ...any) {
	logger.Noticef(format, args...)
	addToBuffer("NOTICE", fmt.Sprintf(format, args...))
}

func Warning(args ...any) {
	logger.Warning(args...)
	addToBuffer("WARNING", fmt.Sprint(args...))
}

func Warningf(format string, args ...any) {
	logger.Warningf(format, args...)
	addToBuffer("WARNING", fmt.Sprintf(format, args...))
}

func Error(args ...any) {
	logger.Error(args...)
	addToBuffer("ERROR", fmt.Sprint(args...))
}

func Errorf(format string, args ...any) {
	logger.Errorf(format, args...)
	addToBuffer("ERROR", fmt.Sprintf(format, args...))
}

func addToBuffer(level string, newLog string) {
	t := time.Now()
	if len(logBuffer) >= maxLogBufferSize {
		logBuffer = logBuffer[1:]
	}

	logLevel, _ := logging.LogLevel(level)
	logBuffer = append(logBuffer, bufferedEntry{
		time:  t.Format(timeFormat),
		level: logLevel,
		log:   newLog,
	})
}

// GetLogs returns up to c buffered entries at or below the given level,
// newest first.
func GetLogs(c int, level string) []string {
	var output []string
	logLevel, _ := logging.LogLevel(level)

	for i := len(logBuffer) - 1; i >= 0 && len(output) < c; i-- {
		if logBuffer[i].level <= logLevel {
			output = append(output, fmt.Sprintf("%s %s - %s", logBuffer[i].time, logBuffer[i].level, logBuffer[i].log))
		}
	}
	return output
}
