package services

// Типы событий, которые получают подписчики live-хаба.
const (
	EventMatchUpdated = "MATCH_UPDATED"
	EventMatchDeleted = "MATCH_DELETED"
	EventMvpUpdated   = "MVP_UPDATED"
)

// EventPublisher pushes committed changes to live subscribers. Publish must not block.
type EventPublisher interface {
	Publish(eventType, matchID string, payload interface{})
}

type noopPublisher struct{}

func (noopPublisher) Publish(string, string, interface{}) {}

// MatchDeletedPayload is the payload of a MATCH_DELETED event.
type MatchDeletedPayload struct {
	MatchID string `json:"match_id"`
}
