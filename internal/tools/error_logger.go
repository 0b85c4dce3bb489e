package tools

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// ErrorLogEntry is one JSONL record in the tool error log
type ErrorLogEntry struct {
	Timestamp string         `json:"timestamp"`
	ToolName  string         `json:"tool_name"`
	Arguments map[string]any `json:"arguments,omitempty"`
	Error     string         `json:"error"`
	Transport string         `json:"transport,omitempty"`
}

// ErrorLogger appends tool execution failures to a JSONL file so that
// failures in stdio mode (where stderr is off limits) remain diagnosable.
type ErrorLogger struct {
	enabled  bool
	logFile  *os.File
	logger   *logrus.Logger
	mu       sync.Mutex
	filePath string
}

var (
	globalErrorLogger *ErrorLogger
	errorLoggerOnce   sync.Once
)

// ErrorLogRetentionDays is how long rotated error log entries are kept
const ErrorLogRetentionDays = 60

// InitGlobalErrorLogger initialises the global error logger.
// Logging is opt-in via LOG_TOOL_ERRORS=true.
func InitGlobalErrorLogger(logger *logrus.Logger) error {
	var initErr error
	errorLoggerOnce.Do(func() {
		if os.Getenv("LOG_TOOL_ERRORS") != "true" {
			globalErrorLogger = &ErrorLogger{enabled: false, logger: logger}
			return
		}

		homeDir, err := os.UserHomeDir()
		if err != nil {
			initErr = fmt.Errorf("failed to get home directory: %w", err)
			return
		}

		logDir := filepath.Join(homeDir, ".pdfmill", "logs")
		if err := os.MkdirAll(logDir, 0700); err != nil {
			initErr = fmt.Errorf("failed to create log directory: %w", err)
			return
		}

		logFilePath := filepath.Join(logDir, "tool-errors.log")
		logFile, err := os.OpenFile(logFilePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
		if err != nil {
			initErr = fmt.Errorf("failed to open tool error log file: %w", err)
			return
		}

		globalErrorLogger = &ErrorLogger{
			enabled:  true,
			logFile:  logFile,
			logger:   logger,
			filePath: logFilePath,
		}

		// Rotation happens in the background so startup never blocks on it
		go func() {
			if rotateErr := globalErrorLogger.rotateOldEntries(); rotateErr != nil {
				logger.WithError(rotateErr).Warn("Failed to rotate old tool error logs")
			}
		}()

		logger.Infof("Tool error logging enabled: %s", logFilePath)
	})

	return initErr
}

// GetGlobalErrorLogger returns the global error logger instance
func GetGlobalErrorLogger() *ErrorLogger {
	if globalErrorLogger == nil {
		return &ErrorLogger{enabled: false}
	}
	return globalErrorLogger
}

// IsEnabled returns whether error logging is enabled
func (l *ErrorLogger) IsEnabled() bool {
	return l.enabled
}

// LogToolError appends a tool execution failure to the log file
func (l *ErrorLogger) LogToolError(toolName string, args map[string]any, err error, transport string) {
	if !l.enabled || l.logFile == nil {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	entry := ErrorLogEntry{
		Timestamp: time.Now().Format(time.RFC3339),
		ToolName:  toolName,
		Arguments: args,
		Error:     err.Error(),
		Transport: transport,
	}

	data, marshalErr := json.Marshal(entry)
	if marshalErr != nil {
		if l.logger != nil {
			l.logger.WithError(marshalErr).Error("Failed to marshal tool error log entry")
		}
		return
	}

	if _, writeErr := l.logFile.Write(append(data, '\n')); writeErr != nil {
		if l.logger != nil {
			l.logger.WithError(writeErr).Error("Failed to write tool error log entry")
		}
		return
	}

	if syncErr := l.logFile.Sync(); syncErr != nil && l.logger != nil {
		l.logger.WithError(syncErr).Error("Failed to sync tool error log file")
	}
}

// Close closes the error logger and its log file
func (l *ErrorLogger) Close() error {
	if !l.enabled || l.logFile == nil {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	return l.logFile.Close()
}

// rotateOldEntries drops log entries older than the retention period.
// Holds the mutex for the whole rewrite so LogToolError never writes to
// a closed file mid-rotation.
func (l *ErrorLogger) rotateOldEntries() error {
	if !l.enabled || l.filePath == "" {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.logFile != nil {
		if err := l.logFile.Close(); err != nil {
			return fmt.Errorf("failed to close log file for rotation: %w", err)
		}
		l.logFile = nil
	}

	file, err := os.Open(l.filePath)
	if err != nil {
		return l.reopenLocked()
	}

	cutoff := time.Now().AddDate(0, 0, -ErrorLogRetentionDays)
	var kept []string

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		// Malformed lines and unparseable timestamps are kept to avoid data loss
		var entry ErrorLogEntry
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			kept = append(kept, line)
			continue
		}
		entryTime, err := time.Parse(time.RFC3339, entry.Timestamp)
		if err != nil || entryTime.After(cutoff) {
			kept = append(kept, line)
		}
	}

	scanErr := scanner.Err()
	_ = file.Close()
	if scanErr != nil {
		_ = l.reopenLocked()
		return fmt.Errorf("error reading log file during rotation: %w", scanErr)
	}

	// Atomic replace via rename
	tmpPath := l.filePath + ".tmp"
	if err := os.WriteFile(tmpPath, []byte(strings.Join(kept, "\n")+"\n"), 0600); err != nil {
		_ = l.reopenLocked()
		return fmt.Errorf("failed to write rotated log file: %w", err)
	}
	if err := os.Rename(tmpPath, l.filePath); err != nil {
		_ = os.Remove(tmpPath)
		_ = l.reopenLocked()
		return fmt.Errorf("failed to replace log file during rotation: %w", err)
	}

	return l.reopenLocked()
}

// reopenLocked reopens the log file in append mode. Caller must hold l.mu.
func (l *ErrorLogger) reopenLocked() error {
	logFile, err := os.OpenFile(l.filePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
	if err != nil {
		return fmt.Errorf("failed to reopen log file: %w", err)
	}
	l.logFile = logFile
	return nil
}
