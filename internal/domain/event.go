package domain

// Category is the severity-derived class of a delivered event. The set is
// fixed; the collector rejects nothing, but dashboards group on it.
type Category string

const (
	CategoryDebug    Category = "debug"
	CategoryInfo     Category = "info"
	CategoryWarning  Category = "warning"
	CategoryError    Category = "error"
	CategoryCritical Category = "critical"
)

// CategoryForLevel maps a numeric source severity (pino-style, 10..60)
// to its delivery category.
func CategoryForLevel(level int) Category {
	switch {
	case level <= 20:
		return CategoryDebug
	case level <= 30:
		return CategoryInfo
	case level <= 40:
		return CategoryWarning
	case level <= 50:
		return CategoryError
	default:
		return CategoryCritical
	}
}

// Event is the normalized, immutable record queued for delivery. It is
// created once by the formatting stage and never mutated afterwards; the
// buffer owns it until a flush hands it to an in-flight send.
type Event struct {
	Category  Category       `json:"category"`
	App       string         `json:"app"`
	Timestamp string         `json:"timestamp"`
	Message   string         `json:"message"`
	Data      map[string]any `json:"data,omitempty"`
}

// DeliveryAck is the collector's response body for an accepted event.
// The client reads it best-effort; only the HTTP status decides success.
type DeliveryAck struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	EventID string `json:"eventId,omitempty"`
}

// ReservedRecordKeys are source-record keys that carry structural
// information already projected onto the Event and must not be copied
// into its data bag.
var ReservedRecordKeys = map[string]struct{}{
	"level":    {},
	"time":     {},
	"pid":      {},
	"hostname": {},
	"msg":      {},
	"err":      {},
	"v":        {},
}
