package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gitlab.com/timkado/api/forum-service/internal/adapters/metrics"
	"gitlab.com/timkado/api/forum-service/internal/domain"
	"gitlab.com/timkado/api/forum-service/pkg/rediskeys"
)

// VoteOutcome is the result of one applied toggle.
type VoteOutcome struct {
	State domain.VoteState
	Added bool
	// Document is the item as written, with the new vote fields merged in.
	Document domain.Document
}

// VoteEngine applies vote toggles on posts and comments. Every toggle runs
// read, transform and write under the item's lock so concurrent toggles on
// one item never lose an update.
type VoteEngine struct {
	store  domain.DocumentStore
	locker domain.ItemLocker
	events domain.EventPublisher
	logger domain.Logger
	now    func() time.Time
}

// NewVoteEngine creates a new VoteEngine.
func NewVoteEngine(store domain.DocumentStore, locker domain.ItemLocker, events domain.EventPublisher, logger domain.Logger) *VoteEngine {
	if store == nil {
		panic("document store cannot be nil in NewVoteEngine")
	}
	if locker == nil {
		panic("item locker cannot be nil in NewVoteEngine")
	}
	if events == nil {
		events = domain.NopEventPublisher{}
	}
	if logger == nil {
		panic("logger cannot be nil in NewVoteEngine")
	}
	return &VoteEngine{store: store, locker: locker, events: events, logger: logger, now: time.Now}
}

// Toggle adds voter's vote to the item, or retracts it if already present.
func (e *VoteEngine) Toggle(ctx context.Context, kind domain.ContentKind, itemID string, voter domain.Identity) (VoteOutcome, error) {
	if itemID == "" {
		return VoteOutcome{}, fmt.Errorf("%w: item id is required", domain.ErrBadInput)
	}
	if voter.ID == "" {
		return VoteOutcome{}, fmt.Errorf("%w: voter identity is required", domain.ErrUnauthenticated)
	}
	collection := kind.Collection()

	lockCtx, release, err := e.lock(ctx, rediskeys.ItemLockKey(collection, itemID))
	if err != nil {
		e.logger.Error(ctx, "Failed to acquire item lock for vote",
			"collection", collection,
			"item_id", itemID,
			"error", err.Error(),
		)
		return VoteOutcome{}, ensureInternal("acquire item lock", err)
	}
	defer release()

	doc, err := e.store.Get(lockCtx, collection, itemID)
	if err != nil {
		return VoteOutcome{}, storeError("read item for vote", err)
	}

	var item domain.ContentItem
	if err := doc.Decode(&item); err != nil {
		return VoteOutcome{}, storeError("decode item for vote", err)
	}

	next, added := domain.ToggleVote(item.VoteState(), voter.ID, e.now().UTC())
	partial := next.Fields()
	if err := lockCtx.Err(); err != nil {
		e.logger.Error(ctx, "Item lock lease ended before the vote was written",
			"collection", collection,
			"item_id", itemID,
			"error", err.Error(),
		)
		return VoteOutcome{}, ensureInternal("item lock lease ended", err)
	}
	if err := e.store.Update(lockCtx, collection, itemID, partial); err != nil {
		e.logger.Error(ctx, "Failed to write vote toggle",
			"collection", collection,
			"item_id", itemID,
			"error", err.Error(),
		)
		return VoteOutcome{}, storeError("write vote", err)
	}

	metrics.IncrementVoteToggle(string(kind), added)
	e.logger.Info(ctx, "Vote toggled",
		"collection", collection,
		"item_id", itemID,
		"voter", voter.ID,
		"added", added,
		"vote_count", next.VoteCount,
	)

	count := next.VoteCount
	publish(ctx, e.events, e.logger, domain.ContentEvent{
		Type:       domain.EventContentVoted,
		Collection: collection,
		ItemID:     itemID,
		ActorID:    voter.ID,
		VoteCount:  &count,
		OccurredAt: next.UpdatedAt,
	})

	return VoteOutcome{
		State:    next,
		Added:    added,
		Document: domain.Document{ID: itemID, Fields: doc.Fields.Merge(partial)},
	}, nil
}

// lock takes the item lock. With a LeaseLocker the returned context ends
// before the lock can expire; otherwise it is ctx itself.
func (e *VoteEngine) lock(ctx context.Context, key string) (context.Context, func(), error) {
	if ll, ok := e.locker.(domain.LeaseLocker); ok {
		return ll.Lease(ctx, key)
	}
	release, err := e.locker.Lock(ctx, key)
	return ctx, release, err
}

// storeError keeps ErrNotFound visible and files every other store failure under ErrInternal.
func storeError(op string, err error) error {
	if errors.Is(err, domain.ErrNotFound) {
		return err
	}
	return ensureInternal(op, err)
}

func ensureInternal(op string, err error) error {
	if errors.Is(err, domain.ErrInternal) {
		return err
	}
	return fmt.Errorf("%w: %s: %w", domain.ErrInternal, op, err)
}

// publish sends an event and only logs on failure.
func publish(ctx context.Context, events domain.EventPublisher, logger domain.Logger, event domain.ContentEvent) {
	if err := events.Publish(ctx, event); err != nil {
		logger.Warn(ctx, "Failed to publish content event",
			"event_type", event.Type,
			"collection", event.Collection,
			"item_id", event.ItemID,
			"error", err.Error(),
		)
	}
}
