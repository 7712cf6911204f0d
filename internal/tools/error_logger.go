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

const (
	// DefaultLogRetentionDays is the default number of days to retain error logs
	DefaultLogRetentionDays = 60

	errorLogFileName = "tool-errors.log"
)

// ToolErrorLogEntry represents a logged tool error
type ToolErrorLogEntry struct {
	Timestamp string         `json:"timestamp"`
	ToolName  string         `json:"tool_name"`
	SessionID string         `json:"session_id,omitempty"`
	Arguments map[string]any `json:"arguments,omitempty"`
	Error     string         `json:"error"`
	Transport string         `json:"transport,omitempty"`
}

// ToolErrorLogger appends tool execution errors to a JSON lines file.
// A disabled logger drops every entry.
type ToolErrorLogger struct {
	enabled   bool
	logFile   *os.File
	logger    *logrus.Logger
	mu        sync.Mutex
	filePath  string
	retention time.Duration
	now       func() time.Time
}

var (
	globalErrorLogger *ToolErrorLogger
	errorLoggerOnce   sync.Once
)

// InitGlobalErrorLogger opens the shared error log in logDir when
// LOG_TOOL_ERRORS is "true".
func InitGlobalErrorLogger(logDir string, logger *logrus.Logger) error {
	var initErr error
	errorLoggerOnce.Do(func() {
		if os.Getenv("LOG_TOOL_ERRORS") != "true" {
			globalErrorLogger = &ToolErrorLogger{logger: logger}
			return
		}

		l, err := OpenToolErrorLogger(logDir, DefaultLogRetentionDays, logger)
		if err != nil {
			initErr = err
			globalErrorLogger = &ToolErrorLogger{logger: logger}
			return
		}
		globalErrorLogger = l

		// Rotation can be slow on a large file and must not delay startup.
		go func() {
			if rotateErr := l.RotateOldLogs(); rotateErr != nil {
				logger.WithError(rotateErr).Warn("Failed to rotate old tool error logs")
			}
		}()

		logger.Infof("Tool error logging enabled: %s", l.filePath)
	})

	return initErr
}

// GetGlobalErrorLogger returns the global error logger instance
func GetGlobalErrorLogger() *ToolErrorLogger {
	if globalErrorLogger == nil {
		return &ToolErrorLogger{}
	}
	return globalErrorLogger
}

// OpenToolErrorLogger opens (creating if needed) tool-errors.log in logDir.
func OpenToolErrorLogger(logDir string, retentionDays int, logger *logrus.Logger) (*ToolErrorLogger, error) {
	if err := os.MkdirAll(logDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	l := &ToolErrorLogger{
		enabled:   true,
		logger:    logger,
		filePath:  filepath.Join(logDir, errorLogFileName),
		retention: time.Duration(retentionDays) * 24 * time.Hour,
		now:       time.Now,
	}
	if err := l.reopenLogFileLocked(); err != nil {
		return nil, err
	}
	return l, nil
}

// LogToolError logs a tool execution error
func (l *ToolErrorLogger) LogToolError(toolName, sessionID string, args map[string]any, err error, transport string) {
	if !l.enabled || err == nil {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.logFile == nil {
		return
	}

	entry := ToolErrorLogEntry{
		Timestamp: l.now().Format(time.RFC3339),
		ToolName:  toolName,
		SessionID: sessionID,
		Arguments: args,
		Error:     err.Error(),
		Transport: transport,
	}

	jsonData, marshalErr := json.Marshal(entry)
	if marshalErr != nil {
		l.warn(marshalErr, "Failed to marshal tool error log entry")
		return
	}

	if _, writeErr := l.logFile.Write(append(jsonData, '\n')); writeErr != nil {
		l.warn(writeErr, "Failed to write tool error log entry")
		return
	}
	if syncErr := l.logFile.Sync(); syncErr != nil {
		l.warn(syncErr, "Failed to sync tool error log file")
	}
}

// Close closes the error logger and its log file
func (l *ToolErrorLogger) Close() error {
	if !l.enabled {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.logFile == nil {
		return nil
	}
	err := l.logFile.Close()
	l.logFile = nil
	return err
}

// IsEnabled returns whether error logging is enabled
func (l *ToolErrorLogger) IsEnabled() bool {
	return l.enabled
}

// GetLogFilePath returns the path to the error log file
func (l *ToolErrorLogger) GetLogFilePath() string {
	return l.filePath
}

// RotateOldLogs drops entries older than the retention period. Entries that
// cannot be parsed are kept. The file is replaced atomically.
func (l *ToolErrorLogger) RotateOldLogs() error {
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

	kept, err := l.retainedEntries()
	if err != nil {
		_ = l.reopenLogFileLocked()
		return err
	}

	var data string
	if len(kept) > 0 {
		data = strings.Join(kept, "\n") + "\n"
	}

	tmpPath := l.filePath + ".tmp"
	if err := os.WriteFile(tmpPath, []byte(data), 0600); err != nil {
		_ = l.reopenLogFileLocked()
		return fmt.Errorf("failed to write temporary rotated log file: %w", err)
	}
	if err := os.Rename(tmpPath, l.filePath); err != nil {
		_ = os.Remove(tmpPath)
		_ = l.reopenLogFileLocked()
		return fmt.Errorf("failed to rename temporary log file during rotation: %w", err)
	}

	return l.reopenLogFileLocked()
}

func (l *ToolErrorLogger) retainedEntries() ([]string, error) {
	file, err := os.Open(l.filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to open log file for rotation: %w", err)
	}
	defer func() { _ = file.Close() }()

	cutoff := l.now().Add(-l.retention)
	var kept []string

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		var entry ToolErrorLogEntry
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			kept = append(kept, line)
			continue
		}
		entryTime, err := time.Parse(time.RFC3339, entry.Timestamp)
		if err != nil || entryTime.After(cutoff) {
			kept = append(kept, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading log file during rotation: %w", err)
	}
	return kept, nil
}

// reopenLogFileLocked reopens the log file in append mode.
// Caller must hold l.mu.
func (l *ToolErrorLogger) reopenLogFileLocked() error {
	logFile, err := os.OpenFile(l.filePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
	if err != nil {
		return fmt.Errorf("failed to open tool error log file: %w", err)
	}

	l.logFile = logFile
	return nil
}

func (l *ToolErrorLogger) warn(err error, msg string) {
	if l.logger != nil {
		l.logger.WithError(err).Warn(msg)
	}
}
