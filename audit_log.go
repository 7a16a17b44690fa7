// Copyright 2025 The DBQ Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package dbqflag

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"
)

// AuditLog is an append-only sink of timestamped lines.
type AuditLog interface {
	Append(line string) error
}

// WriterAuditLog appends "<line> - <timestamp>" to a writer.
type WriterAuditLog struct {
	mu  sync.Mutex
	w   io.Writer
	now func() time.Time
}

func NewWriterAuditLog(w io.Writer) *WriterAuditLog {
	return &WriterAuditLog{w: w, now: time.Now}
}

func (l *WriterAuditLog) Append(line string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	_, err := fmt.Fprintf(l.w, "%s - %s\n", line, l.now().Format(time.RFC3339))
	return err
}

// Close closes the underlying writer when it is closable.
func (l *WriterAuditLog) Close() error {
	if c, ok := l.w.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// AuditLogPath returns <outDir>/workspace/<prefix>_logFile_<yyyymmdd>.txt.
func AuditLogPath(outDir string, prefix string, day time.Time) string {
	return filepath.Join(outDir, "workspace", fmt.Sprintf("%s_logFile_%s.txt", prefix, day.Format("20060102")))
}

// NewFileAuditLog opens the run log file under outDir/workspace, creating the directory when needed.
func NewFileAuditLog(outDir string, prefix string) (*WriterAuditLog, error) {
	path := AuditLogPath(outDir, prefix, time.Now())
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create workspace directory: %w", err)
	}

	return NewWriterAuditLog(&lumberjack.Logger{
		Filename:   path,
		MaxSize:    10,
		MaxBackups: 5,
		LocalTime:  true,
	}), nil
}

type nopAuditLog struct{}

func (nopAuditLog) Append(string) error { return nil }
