package application

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"gitlab.com/timkado/api/forum-service/internal/adapters/config"
	"gitlab.com/timkado/api/forum-service/internal/adapters/logger"
	"gitlab.com/timkado/api/forum-service/internal/adapters/memory"
	"gitlab.com/timkado/api/forum-service/internal/domain"
)

var errBoom = errors.New("boom")

// spyStore wraps the memory store, counts calls and can be told to fail writes.
type spyStore struct {
	*memory.DocumentStore
	deletes    atomic.Int32
	updates    atomic.Int32
	failUpdate atomic.Bool
}

func newSpyStore() *spyStore {
	return &spyStore{DocumentStore: memory.NewDocumentStore()}
}

func (s *spyStore) Update(ctx context.Context, collection, id string, partial domain.Fields) error {
	s.updates.Add(1)
	if s.failUpdate.Load() {
		return errBoom
	}
	return s.DocumentStore.Update(ctx, collection, id, partial)
}

func (s *spyStore) Delete(ctx context.Context, collection, id string) error {
	s.deletes.Add(1)
	return s.DocumentStore.Delete(ctx, collection, id)
}

// recordingPublisher keeps every published event.
type recordingPublisher struct {
	mu     sync.Mutex
	events []domain.ContentEvent
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, e domain.ContentEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return p.err
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func testLogger(t *testing.T) domain.Logger {
	return logger.NewFromZap(zaptest.NewLogger(t))
}

func testConfig() *config.Config {
	return &config.Config{
		Cache: config.CacheConfig{Backend: config.BackendLocal, UsersTTLSeconds: 3600},
		Vote:  config.VoteConfig{LockBackend: config.BackendLocal},
		Store: config.StoreConfig{Driver: config.StoreDriverMemory},
	}
}

// harness wires every service over one spy store, the way bootstrap does.
type harness struct {
	store    *spyStore
	clock    *fakeClock
	cfg      *config.Config
	events   *recordingPublisher
	votes    *VoteEngine
	cache    *ReadThroughCache
	posts    *PostService
	comments *CommentService
	users    *UserService
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		store:  newSpyStore(),
		clock:  newFakeClock(),
		cfg:    testConfig(),
		events: &recordingPublisher{},
	}
	log := testLogger(t)
	locker := NewKeyedMutex()

	h.votes = NewVoteEngine(h.store, locker, h.events, log)
	h.votes.now = h.clock.Now
	h.cache = NewReadThroughCache(memory.NewCacheStore(h.clock.Now), log)
	h.posts = NewPostService(h.store, h.votes, h.events, log)
	h.posts.now = h.clock.Now
	h.comments = NewCommentService(h.store, h.votes, h.events, log)
	h.comments.now = h.clock.Now
	h.users = NewUserService(h.store, h.cache, locker, h.events, config.StaticProvider{Config: h.cfg}, log)
	h.users.now = h.clock.Now
	return h
}

// seedPost stores a post directly, bypassing the service.
func (h *harness) seedPost(t *testing.T, owner string, fields domain.Fields) string {
	t.Helper()
	base := domain.Fields{
		"createdBy":   owner,
		"title":       "title",
		"description": "description",
		"categories":  []string{"science"},
		"voteCount":   0,
		"usersVote":   []string{},
		"createdAt":   h.clock.Now().Format(time.RFC3339Nano),
		"updatedAt":   h.clock.Now().Format(time.RFC3339Nano),
	}
	id, err := h.store.Create(context.Background(), domain.CollectionPosts, base.Merge(fields))
	if err != nil {
		t.Fatalf("seed post: %v", err)
	}
	return id
}

func member(id string) domain.Identity { return domain.Identity{ID: id, Role: domain.RoleMember} }

func admin(id string) domain.Identity { return domain.Identity{ID: id, Role: domain.RoleAdmin} }
