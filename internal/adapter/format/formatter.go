package format

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/user/log-shipper/internal/domain"
)

// Formatter projects raw source records onto normalized events. It is
// stateless and purely deterministic: severity mapping, message and
// timestamp extraction, and the copy of the open-ended field bag with
// reserved keys excluded.
type Formatter struct {
	app      string
	minLevel int
	logger   *slog.Logger
}

// NewFormatter creates a Formatter tagging events with the given
// application name and dropping records below minLevel.
func NewFormatter(app, minLevel string, logger *slog.Logger) *Formatter {
	return &Formatter{
		app:      app,
		minLevel: levelNumber(minLevel, 30),
		logger:   logger.With("component", "formatter"),
	}
}

// Format converts one decoded record into an Event. The second return
// value is false when the record is below the minimum severity.
func (f *Formatter) Format(record map[string]any) (domain.Event, bool) {
	level := recordLevel(record)
	if level < f.minLevel {
		return domain.Event{}, false
	}

	event := domain.Event{
		Category:  domain.CategoryForLevel(level),
		App:       f.app,
		Timestamp: recordTimestamp(record),
		Message:   recordMessage(record),
	}

	// Reserved keys are skipped on insertion rather than deleted after
	// a full copy; the record itself is never mutated.
	for key, value := range record {
		if _, reserved := domain.ReservedRecordKeys[key]; reserved {
			continue
		}
		if event.Data == nil {
			event.Data = make(map[string]any)
		}
		event.Data[key] = value
	}

	return event, true
}

func recordLevel(record map[string]any) int {
	switch v := record["level"].(type) {
	case float64:
		return int(v)
	case int:
		return v
	case string:
		return levelNumber(v, 30)
	default:
		return 30
	}
}

func recordMessage(record map[string]any) string {
	if msg, ok := record["msg"].(string); ok {
		return msg
	}
	if errVal, ok := record["err"]; ok {
		return fmt.Sprintf("%v", errVal)
	}
	return ""
}

func recordTimestamp(record map[string]any) string {
	if ms, ok := record["time"].(float64); ok {
		return time.UnixMilli(int64(ms)).UTC().Format(time.RFC3339Nano)
	}
	if s, ok := record["time"].(string); ok {
		if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
			return t.UTC().Format(time.RFC3339Nano)
		}
	}
	return time.Now().UTC().Format(time.RFC3339Nano)
}

// levelNumber maps a named severity to its numeric value, falling back
// when the name is unknown.
func levelNumber(name string, fallback int) int {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "trace":
		return 10
	case "debug":
		return 20
	case "info":
		return 30
	case "warn", "warning":
		return 40
	case "error":
		return 50
	case "fatal", "critical":
		return 60
	default:
		return fallback
	}
}
