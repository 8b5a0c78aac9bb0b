package payments

import (
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/courseworks/fulfillment-backend/pkg/money"
)

// LogEntry is one line of the append-only payment log.
type LogEntry struct {
	Timestamp     time.Time
	Succeeded     bool
	PaymentID     string
	AmountCents   int64
	Currency      string
	CustomerEmail string
	CustomerName  string
}

// FileLogger appends payment outcomes to a plain-text log file. An empty path
// disables the logger.
type FileLogger struct {
	mu   sync.Mutex
	path string
}

// NewFileLogger returns a logger writing to path, or a disabled logger when
// path is empty.
func NewFileLogger(path string) *FileLogger {
	return &FileLogger{path: path}
}

// Enabled reports whether a log path is configured.
func (l *FileLogger) Enabled() bool {
	return l != nil && l.path != ""
}

// Append writes one pipe-delimited line for the entry:
//
//	<RFC3339 timestamp> | SUCCESS | pi_123 | $25.99 USD | buyer@example.com | Jamie Buyer
func (l *FileLogger) Append(entry LogEntry) error {
	if !l.Enabled() {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("opening payment log: %w", err)
	}
	defer f.Close()

	if _, err := f.WriteString(FormatLogLine(entry) + "\n"); err != nil {
		return fmt.Errorf("writing payment log: %w", err)
	}
	return nil
}

// FormatLogLine renders the log line for an entry without writing it.
func FormatLogLine(entry LogEntry) string {
	status := "FAILED"
	if entry.Succeeded {
		status = "SUCCESS"
	}
	return strings.Join([]string{
		entry.Timestamp.UTC().Format(time.RFC3339),
		status,
		sanitizeField(entry.PaymentID),
		"$" + money.Format(entry.AmountCents, entry.Currency),
		sanitizeField(entry.CustomerEmail),
		sanitizeField(entry.CustomerName),
	}, " | ")
}

// sanitizeField keeps the pipe-delimited format parseable when customer
// supplied values contain delimiters or newlines.
func sanitizeField(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return "-"
	}
	value = strings.ReplaceAll(value, "|", "/")
	value = strings.ReplaceAll(value, "\n", " ")
	value = strings.ReplaceAll(value, "\r", " ")
	return value
}
