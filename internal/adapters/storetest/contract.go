// Package storetest holds the behaviour every domain.DocumentStore must share.
package storetest

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gitlab.com/timkado/api/forum-service/internal/domain"
)

// Run exercises store against the DocumentStore contract. newStore must
// return an empty store each time it is called.
func Run(t *testing.T, newStore func(t *testing.T) domain.DocumentStore) {
	t.Run("CreateThenGet", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		id, err := s.Create(ctx, domain.CollectionPosts, domain.Fields{
			"title":      "hello",
			"categories": []string{"science"},
			"voteCount":  0,
		})
		require.NoError(t, err)
		require.NotEmpty(t, id)

		doc, err := s.Get(ctx, domain.CollectionPosts, id)
		require.NoError(t, err)
		assert.Equal(t, id, doc.ID)
		assert.Equal(t, "hello", doc.Fields["title"])
		assert.Equal(t, []any{"science"}, doc.Fields["categories"])
		assert.Equal(t, float64(0), doc.Fields["voteCount"])
	})

	t.Run("GetMissing", func(t *testing.T) {
		s := newStore(t)
		_, err := s.Get(context.Background(), domain.CollectionPosts, "nope")
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("CollectionsAreIsolated", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		id, err := s.Create(ctx, domain.CollectionPosts, domain.Fields{"title": "p"})
		require.NoError(t, err)

		_, err = s.Get(ctx, domain.CollectionComments, id)
		assert.ErrorIs(t, err, domain.ErrNotFound)
		comments, err := s.List(ctx, domain.CollectionComments)
		require.NoError(t, err)
		assert.Empty(t, comments)
	})

	t.Run("ListOrderedByID", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		for i := 0; i < 5; i++ {
			_, err := s.Create(ctx, domain.CollectionPosts, domain.Fields{"n": i})
			require.NoError(t, err)
		}
		docs, err := s.List(ctx, domain.CollectionPosts)
		require.NoError(t, err)
		require.Len(t, docs, 5)
		for i := 1; i < len(docs); i++ {
			assert.Less(t, docs[i-1].ID, docs[i].ID)
		}
	})

	t.Run("QueryEqualsAndArrayContains", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		a, err := s.Create(ctx, domain.CollectionPosts, domain.Fields{"createdBy": "u1", "categories": []string{"science", "health"}})
		require.NoError(t, err)
		_, err = s.Create(ctx, domain.CollectionPosts, domain.Fields{"createdBy": "u2", "categories": []string{"sports"}})
		require.NoError(t, err)

		byUser, err := s.Query(ctx, domain.CollectionPosts, "createdBy", domain.OpEquals, "u1")
		require.NoError(t, err)
		require.Len(t, byUser, 1)
		assert.Equal(t, a, byUser[0].ID)

		byCategory, err := s.Query(ctx, domain.CollectionPosts, "categories", domain.OpArrayContains, "health")
		require.NoError(t, err)
		require.Len(t, byCategory, 1)
		assert.Equal(t, a, byCategory[0].ID)

		none, err := s.Query(ctx, domain.CollectionPosts, "createdBy", domain.OpEquals, "u3")
		require.NoError(t, err)
		assert.Empty(t, none)
	})

	t.Run("UpdateMergesFields", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		id, err := s.Create(ctx, domain.CollectionPosts, domain.Fields{"title": "a", "description": "d"})
		require.NoError(t, err)

		require.NoError(t, s.Update(ctx, domain.CollectionPosts, id, domain.Fields{"title": "b", "voteCount": 1}))

		doc, err := s.Get(ctx, domain.CollectionPosts, id)
		require.NoError(t, err)
		assert.Equal(t, "b", doc.Fields["title"])
		assert.Equal(t, "d", doc.Fields["description"])
		assert.Equal(t, float64(1), doc.Fields["voteCount"])
	})

	t.Run("UpdateMissing", func(t *testing.T) {
		s := newStore(t)
		err := s.Update(context.Background(), domain.CollectionPosts, "nope", domain.Fields{"title": "x"})
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("DeleteIsIdempotent", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		id, err := s.Create(ctx, domain.CollectionPosts, domain.Fields{"title": "a"})
		require.NoError(t, err)

		require.NoError(t, s.Delete(ctx, domain.CollectionPosts, id))
		require.NoError(t, s.Delete(ctx, domain.CollectionPosts, id))
		_, err = s.Get(ctx, domain.CollectionPosts, id)
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("ReturnedDocumentsAreCopies", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		id, err := s.Create(ctx, domain.CollectionPosts, domain.Fields{"usersVote": []string{"u1"}})
		require.NoError(t, err)

		doc, err := s.Get(ctx, domain.CollectionPosts, id)
		require.NoError(t, err)
		doc.Fields["usersVote"].([]any)[0] = "tampered"

		again, err := s.Get(ctx, domain.CollectionPosts, id)
		require.NoError(t, err)
		assert.Equal(t, []any{"u1"}, again.Fields["usersVote"])
	})

	t.Run("ConcurrentUpdatesNeverTear", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		id, err := s.Create(ctx, domain.CollectionPosts, domain.Fields{"a": 0, "b": 0})
		require.NoError(t, err)

		var wg sync.WaitGroup
		for i := 1; i <= 10; i++ {
			wg.Add(1)
			go func(n int) {
				defer wg.Done()
				assert.NoError(t, s.Update(ctx, domain.CollectionPosts, id, domain.Fields{"a": n, "b": n}))
			}(i)
		}
		wg.Wait()

		doc, err := s.Get(ctx, domain.CollectionPosts, id)
		require.NoError(t, err)
		assert.Equal(t, doc.Fields["a"], doc.Fields["b"])
	})
}
