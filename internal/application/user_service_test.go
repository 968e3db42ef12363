package application

import (
	"context"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gitlab.com/timkado/api/forum-service/internal/domain"
	"gitlab.com/timkado/api/forum-service/pkg/crypto"
)

func createUser(t *testing.T, h *harness, email string) domain.User {
	t.Helper()
	res := h.users.CreateUser(context.Background(), UserInput{Email: email, Username: "name", Password: "s3cret"})
	require.Equal(t, http.StatusCreated, res.Status, res.Message)
	return res.Data.(domain.User)
}

func TestUserService_CreateUser(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	u := createUser(t, h, "Ann@Example.com ")
	assert.Equal(t, "ann@example.com", u.Email)
	assert.Equal(t, domain.RoleMember, u.Role)
	assert.Empty(t, u.Password, "hash never leaves the service")

	doc, err := h.store.Get(ctx, domain.CollectionUsers, u.ID)
	require.NoError(t, err)
	stored, _ := doc.Fields["password"].(string)
	assert.NoError(t, crypto.ComparePassword(stored, "s3cret"))

	dup := h.users.CreateUser(ctx, UserInput{Email: "ann@example.com", Username: "other", Password: "x"})
	assert.Equal(t, http.StatusConflict, dup.Status)
	assert.Equal(t, "User already exists", dup.Message)

	bad := h.users.CreateUser(ctx, UserInput{Email: "", Username: "x", Password: "x"})
	assert.Equal(t, http.StatusBadRequest, bad.Status)
}

func TestUserService_ConcurrentSignUpsWithSameEmail(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	const n = 8
	statuses := make([]int, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			statuses[i] = h.users.CreateUser(ctx, UserInput{Email: "race@example.com", Username: "r", Password: "p"}).Status
		}(i)
	}
	wg.Wait()

	created := 0
	for _, s := range statuses {
		if s == http.StatusCreated {
			created++
		} else {
			assert.Equal(t, http.StatusConflict, s)
		}
	}
	assert.Equal(t, 1, created)
}

func TestUserService_ListUsersIsCachedWithinTTL(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	createUser(t, h, "a@example.com")

	first := h.users.ListUsers(ctx)
	require.Equal(t, http.StatusOK, first.Status)
	users := first.Data.([]domain.User)
	require.Len(t, users, 1)
	assert.Empty(t, users[0].Password)

	createUser(t, h, "b@example.com")
	stale := h.users.ListUsers(ctx)
	assert.Len(t, stale.Data.([]domain.User), 1, "bounded staleness until the entry expires")

	h.clock.Advance(time.Hour)
	fresh := h.users.ListUsers(ctx)
	assert.Len(t, fresh.Data.([]domain.User), 2)
}

func TestUserService_InvalidateOnWrite(t *testing.T) {
	h := newHarness(t)
	h.cfg.Cache.InvalidateOnWrite = true
	ctx := context.Background()
	createUser(t, h, "a@example.com")

	require.Len(t, h.users.ListUsers(ctx).Data.([]domain.User), 1)
	createUser(t, h, "b@example.com")
	assert.Len(t, h.users.ListUsers(ctx).Data.([]domain.User), 2)
}

func TestUserService_GetUser(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	u := createUser(t, h, "a@example.com")

	res := h.users.GetUser(ctx, u.ID)
	require.Equal(t, http.StatusOK, res.Status)
	assert.Empty(t, res.Data.(domain.User).Password)

	assert.Equal(t, http.StatusNotFound, h.users.GetUser(ctx, "ghost").Status)
}

func TestUserService_UpdateSelf(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	u := createUser(t, h, "a@example.com")
	createUser(t, h, "taken@example.com")
	self := member(u.ID)

	res := h.users.UpdateSelf(ctx, self, UserUpdate{Username: strPtr("renamed")})
	require.Equal(t, http.StatusOK, res.Status)
	assert.Equal(t, "renamed", res.Data.(domain.User).Username)

	promote := domain.RoleAdmin
	res = h.users.UpdateSelf(ctx, self, UserUpdate{Role: &promote})
	assert.Equal(t, http.StatusForbidden, res.Status)

	same := domain.RoleMember
	res = h.users.UpdateSelf(ctx, self, UserUpdate{Role: &same})
	assert.Equal(t, http.StatusOK, res.Status, "restating the current role is not a change")

	res = h.users.UpdateSelf(ctx, self, UserUpdate{Email: strPtr("TAKEN@example.com")})
	assert.Equal(t, http.StatusConflict, res.Status)

	res = h.users.UpdateSelf(ctx, domain.Identity{}, UserUpdate{})
	assert.Equal(t, http.StatusUnauthorized, res.Status)
}

func TestUserService_UpdateSelfPasswordNeedsOldPassword(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	u := createUser(t, h, "a@example.com")
	self := member(u.ID)

	res := h.users.UpdateSelf(ctx, self, UserUpdate{Password: strPtr("n3w")})
	assert.Equal(t, http.StatusBadRequest, res.Status)
	assert.Equal(t, "Old password is required", res.Message)

	res = h.users.UpdateSelf(ctx, self, UserUpdate{Password: strPtr("n3w"), OldPassword: strPtr("wrong")})
	assert.Equal(t, http.StatusForbidden, res.Status)
	assert.Equal(t, "Old password is incorrect", res.Message)

	res = h.users.UpdateSelf(ctx, self, UserUpdate{Password: strPtr("n3w"), OldPassword: strPtr("s3cret")})
	require.Equal(t, http.StatusOK, res.Status, res.Message)
	assert.Empty(t, res.Data.(domain.User).Password)

	doc, err := h.store.Get(ctx, domain.CollectionUsers, u.ID)
	require.NoError(t, err)
	stored, _ := doc.Fields["password"].(string)
	assert.NoError(t, crypto.ComparePassword(stored, "n3w"))
	assert.ErrorIs(t, crypto.ComparePassword(stored, "s3cret"), crypto.ErrPasswordMismatch)
}

func TestUserService_AdminPaths(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	u := createUser(t, h, "a@example.com")
	promote := domain.RoleAdmin

	res := h.users.UpdateUser(ctx, member("someone"), u.ID, UserUpdate{Role: &promote})
	assert.Equal(t, http.StatusForbidden, res.Status)

	res = h.users.UpdateUser(ctx, member(u.ID), u.ID, UserUpdate{Role: &promote})
	assert.Equal(t, http.StatusForbidden, res.Status, "the administrative path is never open to members")

	res = h.users.UpdateUser(ctx, admin("root"), u.ID, UserUpdate{Role: &promote})
	require.Equal(t, http.StatusOK, res.Status)
	assert.Equal(t, domain.RoleAdmin, res.Data.(domain.User).Role)

	bogus := domain.Role("owner")
	res = h.users.UpdateUser(ctx, admin("root"), u.ID, UserUpdate{Role: &bogus})
	assert.Equal(t, http.StatusBadRequest, res.Status)

	assert.Equal(t, http.StatusNotFound, h.users.UpdateUser(ctx, admin("root"), "ghost", UserUpdate{}).Status)

	assert.Equal(t, http.StatusForbidden, h.users.DeleteUser(ctx, member(u.ID), u.ID).Status)
	assert.Equal(t, http.StatusOK, h.users.DeleteUser(ctx, admin("root"), u.ID).Status)
	assert.Equal(t, http.StatusNotFound, h.users.DeleteUser(ctx, admin("root"), u.ID).Status)
}
