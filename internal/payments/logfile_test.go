package payments

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestFormatLogLine(t *testing.T) {
	ts := time.Date(2025, 8, 1, 12, 30, 0, 0, time.UTC)

	line := FormatLogLine(LogEntry{
		Timestamp:     ts,
		Succeeded:     true,
		PaymentID:     "pi_123",
		AmountCents:   2599,
		Currency:      "usd",
		CustomerEmail: "buyer@example.com",
		CustomerName:  "Jamie Buyer",
	})
	require.Equal(t, "2025-08-01T12:30:00Z | SUCCESS | pi_123 | $25.99 USD | buyer@example.com | Jamie Buyer", line)

	line = FormatLogLine(LogEntry{
		Timestamp:   ts,
		Succeeded:   false,
		PaymentID:   "pi_456",
		AmountCents: 2599,
		Currency:    "usd",
	})
	require.Equal(t, "2025-08-01T12:30:00Z | FAILED | pi_456 | $25.99 USD | - | -", line)
}

func TestFormatLogLineSanitizesDelimiters(t *testing.T) {
	line := FormatLogLine(LogEntry{
		Timestamp:    time.Unix(0, 0),
		PaymentID:    "pi_1",
		CustomerName: "Evil | Name\nTwo",
	})
	require.NotContains(t, strings.TrimPrefix(line, "1970-01-01T00:00:00Z | FAILED | pi_1 | $0.00 | - | "), "|")
	require.NotContains(t, line, "\n")
}

func TestFileLoggerAppend(t *testing.T) {
	path := filepath.Join(t.TempDir(), "payments.log")
	logger := NewFileLogger(path)
	require.True(t, logger.Enabled())

	entry := LogEntry{
		Timestamp:     time.Date(2025, 8, 1, 12, 30, 0, 0, time.UTC),
		Succeeded:     true,
		PaymentID:     "pi_123",
		AmountCents:   10000,
		Currency:      "usd",
		CustomerEmail: "buyer@example.com",
		CustomerName:  "Jamie Buyer",
	}
	require.NoError(t, logger.Append(entry))
	require.NoError(t, logger.Append(entry))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 2)
	require.Contains(t, lines[0], "$100.00 USD")
}

func TestFileLoggerDisabled(t *testing.T) {
	logger := NewFileLogger("")
	require.False(t, logger.Enabled())
	require.NoError(t, logger.Append(LogEntry{PaymentID: "pi_1"}))
}
