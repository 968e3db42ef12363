package domain

import (
	"context"
	"time"
)

// Event types published after successful writes.
const (
	EventContentCreated = "content.created"
	EventContentUpdated = "content.updated"
	EventContentDeleted = "content.deleted"
	EventContentVoted   = "content.voted"
	EventUserCreated    = "user.created"
)

// ContentEvent describes a completed write. Consumers must not assume
// delivery: publishing is best effort and never fails the originating operation.
type ContentEvent struct {
	Type       string    `json:"type"`
	Collection string    `json:"collection"`
	ItemID     string    `json:"item_id"`
	ActorID    string    `json:"actor_id"`
	VoteCount  *int      `json:"vote_count,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// EventPublisher sends content events to downstream consumers.
type EventPublisher interface {
	Publish(ctx context.Context, event ContentEvent) error
}

// NopEventPublisher discards events. Used when no broker is configured.
type NopEventPublisher struct{}

// Publish implements EventPublisher.
func (NopEventPublisher) Publish(context.Context, ContentEvent) error { return nil }
