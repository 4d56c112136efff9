// Package common provides shared constants, types, and utilities
// used across the VPN connector.
package common

import (
	"compress/gzip"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"
	"time"
)

// LogLevel represents the severity level of a log message.
type LogLevel int

const (
	LevelDebug LogLevel = iota
	LevelInfo
	LevelWarn
	LevelError
)

// String returns the string representation of the log level.
func (l LogLevel) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// AppLogger is a leveled logger for the application.
// Supports file logging with automatic size-based rotation.
type AppLogger struct {
	mu          sync.Mutex
	level       LogLevel
	logger      *log.Logger
	output      io.Writer
	logFile     *os.File
	filePath    string
	maxFileSize int64
	maxBackups  int
}

// LogConfig holds configuration options for the logger.
type LogConfig struct {
	Level       LogLevel
	EnableFile  bool
	MaxFileSize int64 // in bytes, default 5MB
	MaxBackups  int   // number of rotated files to keep, default 5
}

var (
	defaultLogger *AppLogger
	loggerOnce    sync.Once
)

const (
	defaultMaxFileSize = 5 * 1024 * 1024 // 5MB
	defaultMaxBackups  = 5
)

// GetLogger returns the singleton logger instance.
func GetLogger() *AppLogger {
	loggerOnce.Do(func() {
		defaultLogger = &AppLogger{
			level:       LevelInfo,
			output:      os.Stdout,
			logger:      log.New(os.Stdout, "", 0),
			maxFileSize: defaultMaxFileSize,
			maxBackups:  defaultMaxBackups,
		}
	})
	return defaultLogger
}

// InitLogger initializes the logger with custom configuration.
// Should be called early in application startup.
func InitLogger(config LogConfig) error {
	logger := GetLogger()
	logger.SetLevel(config.Level)

	if config.MaxFileSize > 0 {
		logger.maxFileSize = config.MaxFileSize
	}
	if config.MaxBackups > 0 {
		logger.maxBackups = config.MaxBackups
	}

	if config.EnableFile {
		return logger.EnableFileLogging()
	}
	return nil
}

// SetLevel sets the minimum log level.
func (l *AppLogger) SetLevel(level LogLevel) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.level = level
}

// SetOutput sets the log output destination.
func (l *AppLogger) SetOutput(w io.Writer) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.output = w
	l.logger = log.New(w, "", 0)
}

// isSymlink reports whether path is a symbolic link.
// Returns false if the path doesn't exist.
func isSymlink(path string) bool {
	info, err := os.Lstat(path)
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeSymlink != 0
}

// EnableFileLogging enables logging to a file in addition to stdout.
// The log file is rotated once it exceeds maxFileSize.
func (l *AppLogger) EnableFileLogging() error {
	logDir := GetLogDir()
	if logDir == "" {
		return fmt.Errorf("cannot determine log directory")
	}

	// Refuse symlinked paths to avoid writing through a planted link.
	if isSymlink(logDir) {
		return fmt.Errorf("security error: log directory is a symlink")
	}

	if err := os.MkdirAll(logDir, 0700); err != nil {
		return err
	}

	logPath := filepath.Join(logDir, LogFileName)
	if isSymlink(logPath) {
		return fmt.Errorf("security error: log file is a symlink")
	}

	l.rotateIfNeeded(logPath)

	file, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
	if err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.logFile != nil {
		l.logFile.Close()
	}

	l.logFile = file
	l.filePath = logPath
	l.output = io.MultiWriter(os.Stdout, file)
	l.logger = log.New(l.output, "", 0)
	return nil
}

// rotateIfNeeded checks if the log file needs rotation and performs it.
func (l *AppLogger) rotateIfNeeded(logPath string) {
	info, err := os.Stat(logPath)
	if err != nil {
		return // file doesn't exist yet
	}
	if info.Size() < l.maxFileSize {
		return
	}
	l.rotate(logPath)
}

// rotate compresses the current log file into a timestamped backup and
// prunes backups exceeding maxBackups.
func (l *AppLogger) rotate(logPath string) {
	l.mu.Lock()
	if l.logFile != nil {
		l.logFile.Close()
		l.logFile = nil
	}
	l.mu.Unlock()

	timestamp := time.Now().Format("20060102-150405")
	rotatedPath := fmt.Sprintf("%s.%s.gz", logPath, timestamp)

	if err := compressFile(logPath, rotatedPath); err != nil {
		// Compression failed, fall back to a plain rename.
		os.Rename(logPath, strings.TrimSuffix(rotatedPath, ".gz"))
	} else {
		os.Remove(logPath)
	}

	l.cleanupOldBackups(filepath.Dir(logPath))
}

// compressFile compresses a file using gzip.
func compressFile(src, dst string) error {
	srcFile, err := os.Open(src)
	if err != nil {
		return err
	}
	defer srcFile.Close()

	dstFile, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer dstFile.Close()

	gzWriter := gzip.NewWriter(dstFile)
	defer gzWriter.Close()

	_, err = io.Copy(gzWriter, srcFile)
	return err
}

// cleanupOldBackups removes the oldest backup files exceeding maxBackups.
func (l *AppLogger) cleanupOldBackups(logDir string) {
	matches, err := filepath.Glob(filepath.Join(logDir, LogFileName+".*"))
	if err != nil || len(matches) <= l.maxBackups {
		return
	}

	sort.Slice(matches, func(i, j int) bool {
		infoI, _ := os.Stat(matches[i])
		infoJ, _ := os.Stat(matches[j])
		if infoI == nil || infoJ == nil {
			return false
		}
		return infoI.ModTime().Before(infoJ.ModTime())
	})

	toRemove := len(matches) - l.maxBackups
	for i := 0; i < toRemove; i++ {
		os.Remove(matches[i])
	}
}

// GetLogDir returns the log directory path.
func GetLogDir() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(homeDir, ".config", ConfigDirName, "logs")
}

// log writes a formatted log message.
func (l *AppLogger) log(level LogLevel, msg string, args ...interface{}) {
	if level < l.level {
		return
	}

	_, file, line, ok := runtime.Caller(2)
	caller := "???"
	if ok {
		caller = fmt.Sprintf("%s:%d", filepath.Base(file), line)
	}

	timestamp := time.Now().Format("2006/01/02 15:04:05")
	formattedMsg := msg
	if len(args) > 0 {
		formattedMsg = fmt.Sprintf(msg, args...)
	}

	logLine := fmt.Sprintf("%s [%s] %s: %s", timestamp, level.String(), caller, formattedMsg)

	l.mu.Lock()
	defer l.mu.Unlock()
	l.logger.Println(logLine)
}

// Debug logs a debug message.
func (l *AppLogger) Debug(msg string, args ...interface{}) {
	l.log(LevelDebug, msg, args...)
}

// Info logs an informational message.
func (l *AppLogger) Info(msg string, args ...interface{}) {
	l.log(LevelInfo, msg, args...)
}

// Warn logs a warning message.
func (l *AppLogger) Warn(msg string, args ...interface{}) {
	l.log(LevelWarn, msg, args...)
}

// Error logs an error message.
func (l *AppLogger) Error(msg string, args ...interface{}) {
	l.log(LevelError, msg, args...)
}

// Shorthand functions for the default logger.

// LogDebug logs a debug message to the default logger.
func LogDebug(msg string, args ...interface{}) {
	GetLogger().Debug(msg, args...)
}

// LogInfo logs an info message to the default logger.
func LogInfo(msg string, args ...interface{}) {
	GetLogger().Info(msg, args...)
}

// LogWarn logs a warning message to the default logger.
func LogWarn(msg string, args ...interface{}) {
	GetLogger().Warn(msg, args...)
}

// LogError logs an error message to the default logger.
func LogError(msg string, args ...interface{}) {
	GetLogger().Error(msg, args...)
}

// Close closes the log file. Should be called on application shutdown.
func (l *AppLogger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.logFile != nil {
		err := l.logFile.Close()
		l.logFile = nil
		return err
	}
	return nil
}

// CloseLogger closes the default logger.
func CloseLogger() error {
	return GetLogger().Close()
}
