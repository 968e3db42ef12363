package application

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gitlab.com/timkado/api/forum-service/internal/adapters/config"
	"gitlab.com/timkado/api/forum-service/internal/domain"
	"gitlab.com/timkado/api/forum-service/pkg/crypto"
	"gitlab.com/timkado/api/forum-service/pkg/rediskeys"
)

// UserInput carries the registration fields of a new user.
type UserInput struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	Password string `json:"password"`
}

// UserUpdate carries profile changes. Nil fields are left untouched.
// OldPassword is only read by UpdateSelf, which requires it to change Password.
type UserUpdate struct {
	Email       *string      `json:"email,omitempty"`
	Username    *string      `json:"username,omitempty"`
	Password    *string      `json:"password,omitempty"`
	OldPassword *string      `json:"oldPassword,omitempty"`
	Role        *domain.Role `json:"role,omitempty"`
}

// UserService implements the user operations. The user list is served
// through the read-through cache.
type UserService struct {
	store       domain.DocumentStore
	cache       *ReadThroughCache
	locker      domain.ItemLocker
	events      domain.EventPublisher
	cfgProvider config.Provider
	logger      domain.Logger
	now         func() time.Time
}

// NewUserService creates a new UserService.
func NewUserService(
	store domain.DocumentStore,
	cache *ReadThroughCache,
	locker domain.ItemLocker,
	events domain.EventPublisher,
	cfgProvider config.Provider,
	logger domain.Logger,
) *UserService {
	if store == nil {
		panic("document store cannot be nil in NewUserService")
	}
	if cache == nil {
		panic("read-through cache cannot be nil in NewUserService")
	}
	if locker == nil {
		panic("item locker cannot be nil in NewUserService")
	}
	if events == nil {
		events = domain.NopEventPublisher{}
	}
	if cfgProvider == nil {
		panic("config provider cannot be nil in NewUserService")
	}
	if logger == nil {
		panic("logger cannot be nil in NewUserService")
	}
	return &UserService{
		store:       store,
		cache:       cache,
		locker:      locker,
		events:      events,
		cfgProvider: cfgProvider,
		logger:      logger,
		now:         time.Now,
	}
}

// CreateUser registers a member account. Emails are unique; creation is
// serialized per email so two concurrent sign-ups cannot both succeed.
func (s *UserService) CreateUser(ctx context.Context, in UserInput) domain.Result {
	const op = "CreateUser"
	email := normalizeEmail(in.Email)
	if email == "" || blank(in.Username) || in.Password == "" {
		return fail(ctx, s.logger, op, fmt.Errorf("%w: email, username and password are required", domain.ErrBadInput), "Email, username and password are required")
	}

	release, err := s.locker.Lock(ctx, rediskeys.UserEmailLockKey(email))
	if err != nil {
		return fail(ctx, s.logger, op, ensureInternal("acquire email lock", err), "")
	}
	defer release()

	if err := s.ensureEmailFree(ctx, email, ""); err != nil {
		return fail(ctx, s.logger, op, err, "User already exists")
	}

	hashed, err := crypto.HashPassword(in.Password)
	if err != nil {
		return fail(ctx, s.logger, op, ensureInternal("hash password", err), "")
	}
	now := s.now().UTC()
	user := domain.User{
		Email:     email,
		Username:  in.Username,
		Password:  hashed,
		Role:      domain.RoleMember,
		CreatedAt: now,
		UpdatedAt: now,
	}
	fields, err := domain.EncodeFields(user)
	if err != nil {
		return fail(ctx, s.logger, op, storeError("encode user", err), "")
	}
	id, err := s.store.Create(ctx, domain.CollectionUsers, fields)
	if err != nil {
		return fail(ctx, s.logger, op, storeError("create user", err), "")
	}
	user.ID = id

	s.logger.Info(ctx, "User created", "user_id", id)
	s.afterWrite(ctx)
	publish(ctx, s.events, s.logger, domain.ContentEvent{
		Type: domain.EventUserCreated, Collection: domain.CollectionUsers, ItemID: id, ActorID: id, OccurredAt: now,
	})
	return domain.Created("User created successfully!", user.Public())
}

// ListUsers returns every user without password hashes. The list may be up
// to cache.users_ttl_seconds stale.
func (s *UserService) ListUsers(ctx context.Context) domain.Result {
	ttl := time.Duration(s.cfgProvider.Get().Cache.UsersTTLSeconds) * time.Second
	users, err := LoadJSON(ctx, s.cache, domain.CacheKeyUsers, ttl, func(ctx context.Context) ([]domain.User, error) {
		docs, err := s.store.List(ctx, domain.CollectionUsers)
		if err != nil {
			return nil, storeError("list users", err)
		}
		users, err := domain.DecodeAll[domain.User](docs)
		if err != nil {
			return nil, storeError("decode users", err)
		}
		for i := range users {
			users[i] = users[i].Public()
		}
		return users, nil
	})
	if err != nil {
		return fail(ctx, s.logger, "ListUsers", ensureInternal("load users", err), "")
	}
	return domain.OK("Users retrieved successfully!", users)
}

// GetUser returns one user without the password hash.
func (s *UserService) GetUser(ctx context.Context, id string) domain.Result {
	const op = "GetUser"
	if id == "" {
		return fail(ctx, s.logger, op, fmt.Errorf("%w: user id is required", domain.ErrBadInput), "User id is required")
	}
	user, err := s.load(ctx, id)
	if err != nil {
		return fail(ctx, s.logger, op, err, "User not found")
	}
	return domain.OK("User retrieved successfully!", user.Public())
}

// UpdateUser is the administrative update of any user, role included.
func (s *UserService) UpdateUser(ctx context.Context, actor domain.Identity, id string, upd UserUpdate) domain.Result {
	const op = "UpdateUser"
	if id == "" {
		return fail(ctx, s.logger, op, fmt.Errorf("%w: user id is required", domain.ErrBadInput), "User id is required")
	}
	current, err := s.load(ctx, id)
	if err != nil {
		return fail(ctx, s.logger, op, err, "User not found")
	}
	if err := domain.CanManageUsers(actor).Err(); err != nil {
		return fail(ctx, s.logger, op, err, "Forbidden! You have to be admin to perform this action.")
	}
	return s.apply(ctx, op, actor, current, upd)
}

// UpdateSelf updates the actor's own profile. Only admins may change a role.
// Changing the password requires the current one in OldPassword.
func (s *UserService) UpdateSelf(ctx context.Context, actor domain.Identity, upd UserUpdate) domain.Result {
	const op = "UpdateSelf"
	if actor.ID == "" {
		return fail(ctx, s.logger, op, domain.ErrUnauthenticated, "Unauthorized")
	}
	current, err := s.load(ctx, actor.ID)
	if err != nil {
		return fail(ctx, s.logger, op, err, "User not found")
	}
	if upd.Role != nil && *upd.Role != current.Role {
		if err := domain.CanManageUsers(actor).Err(); err != nil {
			return fail(ctx, s.logger, op, err, "Forbidden! You cannot change your own role.")
		}
	}
	if upd.Password != nil {
		if upd.OldPassword == nil || *upd.OldPassword == "" {
			return fail(ctx, s.logger, op, fmt.Errorf("%w: old password is required", domain.ErrBadInput), "Old password is required")
		}
		if err := crypto.ComparePassword(current.Password, *upd.OldPassword); err != nil {
			if errors.Is(err, crypto.ErrPasswordMismatch) {
				return fail(ctx, s.logger, op, fmt.Errorf("%w: %w", domain.ErrForbidden, err), "Old password is incorrect")
			}
			return fail(ctx, s.logger, op, ensureInternal("compare password", err), "")
		}
	}
	return s.apply(ctx, op, actor, current, upd)
}

// DeleteUser removes a user. Admin only.
func (s *UserService) DeleteUser(ctx context.Context, actor domain.Identity, id string) domain.Result {
	const op = "DeleteUser"
	if id == "" {
		return fail(ctx, s.logger, op, fmt.Errorf("%w: user id is required", domain.ErrBadInput), "User id is required")
	}
	if _, err := s.load(ctx, id); err != nil {
		return fail(ctx, s.logger, op, err, "User not found")
	}
	if err := domain.CanManageUsers(actor).Err(); err != nil {
		return fail(ctx, s.logger, op, err, "Forbidden! You have to be admin to perform this action.")
	}
	if err := s.store.Delete(ctx, domain.CollectionUsers, id); err != nil {
		return fail(ctx, s.logger, op, storeError("delete user", err), "")
	}
	s.logger.Info(ctx, "User deleted", "user_id", id)
	s.afterWrite(ctx)
	return domain.OK("User deleted successfully!", nil)
}

func (s *UserService) apply(ctx context.Context, op string, actor domain.Identity, current domain.User, upd UserUpdate) domain.Result {
	partial := domain.Fields{"updatedAt": s.now().UTC().Format(time.RFC3339Nano)}

	if upd.Username != nil {
		if blank(*upd.Username) {
			return fail(ctx, s.logger, op, fmt.Errorf("%w: username cannot be empty", domain.ErrBadInput), "Username cannot be empty")
		}
		partial["username"] = *upd.Username
	}
	if upd.Role != nil {
		if !upd.Role.Valid() {
			return fail(ctx, s.logger, op, fmt.Errorf("%w: unknown role %q", domain.ErrBadInput, *upd.Role), "Unknown role")
		}
		partial["role"] = string(*upd.Role)
	}
	if upd.Password != nil {
		if *upd.Password == "" {
			return fail(ctx, s.logger, op, fmt.Errorf("%w: password cannot be empty", domain.ErrBadInput), "Password cannot be empty")
		}
		hashed, err := crypto.HashPassword(*upd.Password)
		if err != nil {
			return fail(ctx, s.logger, op, ensureInternal("hash password", err), "")
		}
		partial["password"] = hashed
	}
	if upd.Email != nil {
		email := normalizeEmail(*upd.Email)
		if email == "" {
			return fail(ctx, s.logger, op, fmt.Errorf("%w: email cannot be empty", domain.ErrBadInput), "Email cannot be empty")
		}
		if email != current.Email {
			release, err := s.locker.Lock(ctx, rediskeys.UserEmailLockKey(email))
			if err != nil {
				return fail(ctx, s.logger, op, ensureInternal("acquire email lock", err), "")
			}
			defer release()
			if err := s.ensureEmailFree(ctx, email, current.ID); err != nil {
				return fail(ctx, s.logger, op, err, "Email already in use")
			}
		}
		partial["email"] = email
	}

	if err := s.store.Update(ctx, domain.CollectionUsers, current.ID, partial); err != nil {
		return fail(ctx, s.logger, op, storeError("update user", err), "User not found")
	}
	updated, err := s.load(ctx, current.ID)
	if err != nil {
		return fail(ctx, s.logger, op, err, "User not found")
	}

	s.logger.Info(ctx, "User updated", "user_id", current.ID, "actor_id", actor.ID)
	s.afterWrite(ctx)
	return domain.OK("User updated successfully!", updated.Public())
}

// afterWrite drops the cached user list when configured to do so; otherwise
// readers see the change once the entry expires.
func (s *UserService) afterWrite(ctx context.Context) {
	if s.cfgProvider.Get().Cache.InvalidateOnWrite {
		s.cache.Invalidate(ctx, domain.CacheKeyUsers)
	}
}

func (s *UserService) ensureEmailFree(ctx context.Context, email, selfID string) error {
	docs, err := s.store.Query(ctx, domain.CollectionUsers, "email", domain.OpEquals, email)
	if err != nil {
		return storeError("query users by email", err)
	}
	for _, d := range docs {
		if d.ID != selfID {
			return fmt.Errorf("%w: email already registered", domain.ErrConflict)
		}
	}
	return nil
}

func (s *UserService) load(ctx context.Context, id string) (domain.User, error) {
	var user domain.User
	doc, err := s.store.Get(ctx, domain.CollectionUsers, id)
	if err != nil {
		return user, storeError("get user", err)
	}
	if err := doc.Decode(&user); err != nil {
		return user, storeError("decode user", err)
	}
	return user, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
