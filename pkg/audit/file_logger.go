package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// FileLogger implements audit logging to a newline-delimited JSON file
type FileLogger struct {
	path    string
	file    *os.File
	mu      sync.Mutex
	encoder *json.Encoder
}

// NewFileLogger creates a new file-based audit logger appending to path
func NewFileLogger(path string) (*FileLogger, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create audit log directory: %w", err)
	}

	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open audit log file: %w", err)
	}

	return &FileLogger{
		path:    path,
		file:    file,
		encoder: json.NewEncoder(file),
	}, nil
}

// Log writes an event as one JSON line
func (l *FileLogger) Log(ctx context.Context, event *Event) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file == nil {
		return fmt.Errorf("audit logger is closed")
	}
	return l.encoder.Encode(event)
}

// LogRoleMutation logs a role create/delete event
func (l *FileLogger) LogRoleMutation(ctx context.Context, eventType EventType, roleType, roleName string, status EventStatus, errMessage string) error {
	return l.Log(ctx, buildEvent(eventType, roleType, roleName, status, errMessage))
}

// LogSidMutation logs a sid bind/unbind event
func (l *FileLogger) LogSidMutation(ctx context.Context, eventType EventType, roleType, roleName, sid string, status EventStatus, errMessage string) error {
	event := buildEvent(eventType, roleType, roleName, status, errMessage)
	event.Sid = sid
	return l.Log(ctx, event)
}

// Close closes the underlying file
func (l *FileLogger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file == nil {
		return nil
	}
	err := l.file.Close()
	l.file = nil
	return err
}
