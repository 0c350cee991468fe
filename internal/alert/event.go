package alert

// Severity classifies a notification event.
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
	SeverityExpired  Severity = "expired"
)

// Event is a transient notification emitted by the scheduler or the sweep.
// It is never persisted; delivery is the notifier's concern.
type Event struct {
	Severity         Severity `json:"severity"`
	Message          string   `json:"message"`
	RoomID           int64    `json:"roomId"`
	ReservationID    int64    `json:"reservationId"`
	InstitutionID    int64    `json:"institutionId"`
	RemainingMinutes *int     `json:"remainingMinutes,omitempty"`
	OverdueMinutes   *int     `json:"overdueMinutes,omitempty"`
}

// Notifier fans an event out to connected clients. Publish must not block
// the caller for long; slow transports belong behind a queue.
type Notifier interface {
	Publish(event Event)
}

func minutesPtr(m int) *int {
	return &m
}
