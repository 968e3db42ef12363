package application

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gitlab.com/timkado/api/forum-service/internal/domain"
)

func strPtr(s string) *string { return &s }

func TestPostService_CreateAndGet(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	res := h.posts.CreatePost(ctx, member("u1"), PostInput{Title: "Go", Description: "gophers", Categories: []string{"technology"}})
	require.Equal(t, http.StatusCreated, res.Status, res.Message)
	created := res.Data.(domain.Post)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, "u1", created.CreatedBy)
	assert.Zero(t, created.VoteCount)
	assert.Equal(t, []string{}, created.UsersVote)

	got := h.posts.GetPost(ctx, created.ID)
	require.Equal(t, http.StatusOK, got.Status)
	post := got.Data.(domain.Post)
	assert.Equal(t, "Go", post.Title)
	assert.Equal(t, []string{"technology"}, post.Categories)
	assert.WithinDuration(t, h.clock.Now(), post.CreatedAt, 0)

	assert.Equal(t, []string{domain.EventContentCreated}, h.events.types())
}

func TestPostService_CreateValidation(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	res := h.posts.CreatePost(ctx, member("u1"), PostInput{Title: " ", Description: "d"})
	assert.Equal(t, http.StatusBadRequest, res.Status)

	res = h.posts.CreatePost(ctx, domain.Identity{}, PostInput{Title: "t", Description: "d"})
	assert.Equal(t, http.StatusUnauthorized, res.Status)
}

func TestPostService_GetMissing(t *testing.T) {
	h := newHarness(t)
	res := h.posts.GetPost(context.Background(), "nope")
	assert.Equal(t, http.StatusNotFound, res.Status)
	assert.Equal(t, "Post not found", res.Message)
	assert.Nil(t, res.Data)
}

func TestPostService_UpdatePolicy(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	p1 := h.seedPost(t, "u1", nil)

	res := h.posts.UpdatePost(ctx, member("u2"), p1, PostUpdate{Title: strPtr("hijacked")})
	assert.Equal(t, http.StatusForbidden, res.Status)
	assert.Equal(t, "Forbidden! You do not have permission to update this post.", res.Message)
	assert.Zero(t, h.store.updates.Load())

	res = h.posts.UpdatePost(ctx, member("u1"), p1, PostUpdate{Title: strPtr("mine")})
	require.Equal(t, http.StatusOK, res.Status)
	assert.Equal(t, "mine", res.Data.(domain.Post).Title)

	res = h.posts.UpdatePost(ctx, admin("mod"), p1, PostUpdate{Description: strPtr("moderated")})
	require.Equal(t, http.StatusOK, res.Status)
	post := res.Data.(domain.Post)
	assert.Equal(t, "mine", post.Title)
	assert.Equal(t, "moderated", post.Description)
	assert.Equal(t, "u1", post.CreatedBy, "ownership survives an admin edit")

	res = h.posts.UpdatePost(ctx, member("u1"), "nope", PostUpdate{Title: strPtr("x")})
	assert.Equal(t, http.StatusNotFound, res.Status)
}

func TestPostService_UpdateKeepsVotes(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	p1 := h.seedPost(t, "u1", domain.Fields{"usersVote": []string{"u2"}, "voteCount": 1})

	res := h.posts.UpdatePost(ctx, member("u1"), p1, PostUpdate{Title: strPtr("t2")})
	require.Equal(t, http.StatusOK, res.Status)
	post := res.Data.(domain.Post)
	assert.Equal(t, 1, post.VoteCount)
	assert.Equal(t, []string{"u2"}, post.UsersVote)
}

func TestPostService_DeleteMissingNeverCallsStoreDelete(t *testing.T) {
	h := newHarness(t)

	res := h.posts.DeletePost(context.Background(), admin("mod"), "ghost")

	assert.Equal(t, http.StatusNotFound, res.Status)
	assert.Zero(t, h.store.deletes.Load())
}

func TestPostService_DeletePolicy(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	p1 := h.seedPost(t, "u1", nil)

	res := h.posts.DeletePost(ctx, member("u2"), p1)
	assert.Equal(t, http.StatusForbidden, res.Status)
	assert.Zero(t, h.store.deletes.Load())

	res = h.posts.DeletePost(ctx, member("u1"), p1)
	assert.Equal(t, http.StatusOK, res.Status)
	assert.Equal(t, http.StatusNotFound, h.posts.GetPost(ctx, p1).Status)
}

func TestPostService_Listings(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.seedPost(t, "u1", domain.Fields{"title": "Quantum news", "categories": []string{"science"}})
	h.seedPost(t, "u1", domain.Fields{"description": "match report", "categories": []string{"sports"}})
	h.seedPost(t, "u2", domain.Fields{"categories": []string{"science", "health"}})

	all := h.posts.ListPosts(ctx)
	require.Equal(t, http.StatusOK, all.Status)
	assert.Len(t, all.Data.([]domain.Post), 3)

	byUser := h.posts.ListPostsByUser(ctx, "u1")
	require.Equal(t, http.StatusOK, byUser.Status)
	assert.Len(t, byUser.Data.([]domain.Post), 2)

	none := h.posts.ListPostsByUser(ctx, "u9")
	assert.Equal(t, http.StatusNotFound, none.Status)
	assert.Equal(t, "No posts found for this user", none.Message)

	science := h.posts.ListPostsByCategory(ctx, "science")
	require.Equal(t, http.StatusOK, science.Status)
	assert.Len(t, science.Data.([]domain.Post), 2)
	assert.Equal(t, http.StatusNotFound, h.posts.ListPostsByCategory(ctx, "culture").Status)

	search := h.posts.SearchPosts(ctx, "match")
	require.Equal(t, http.StatusOK, search.Status)
	assert.Len(t, search.Data.([]domain.Post), 1)
	assert.Equal(t, http.StatusBadRequest, h.posts.SearchPosts(ctx, "").Status)

	cats := h.posts.ListCategories(ctx)
	assert.Equal(t, domain.DefaultCategories, cats.Data)
}

func TestPostService_VotePost(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	p1 := h.seedPost(t, "u1", domain.Fields{"title": "keep me"})

	res := h.posts.VotePost(ctx, member("u2"), p1)
	require.Equal(t, http.StatusOK, res.Status)
	assert.Equal(t, "Vote processed successfully!", res.Message)
	post := res.Data.(domain.Post)
	assert.Equal(t, 1, post.VoteCount)
	assert.Equal(t, []string{"u2"}, post.UsersVote)
	assert.Equal(t, "keep me", post.Title)

	res = h.posts.VotePost(ctx, member("u2"), "nope")
	assert.Equal(t, http.StatusNotFound, res.Status)
	assert.Equal(t, "Post not found!", res.Message)

	h.store.failUpdate.Store(true)
	res = h.posts.VotePost(ctx, member("u3"), p1)
	assert.Equal(t, http.StatusInternalServerError, res.Status)
	assert.Equal(t, msgInternal, res.Message)
}
