package application

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"gitlab.com/timkado/api/forum-service/internal/domain"
)

// PostInput carries the client-supplied fields of a new post.
type PostInput struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Categories  []string `json:"categories"`
}

// PostUpdate carries the fields a post owner may change. Nil fields are left untouched.
type PostUpdate struct {
	Title       *string   `json:"title,omitempty"`
	Description *string   `json:"description,omitempty"`
	Categories  *[]string `json:"categories,omitempty"`
}

func (u PostUpdate) fields(now time.Time) (domain.Fields, error) {
	f := domain.Fields{"updatedAt": now.UTC().Format(time.RFC3339Nano)}
	if u.Title != nil {
		if blank(*u.Title) {
			return nil, fmt.Errorf("%w: title cannot be empty", domain.ErrBadInput)
		}
		f["title"] = *u.Title
	}
	if u.Description != nil {
		if blank(*u.Description) {
			return nil, fmt.Errorf("%w: description cannot be empty", domain.ErrBadInput)
		}
		f["description"] = *u.Description
	}
	if u.Categories != nil {
		f["categories"] = append([]string{}, (*u.Categories)...)
	}
	return f, nil
}

// PostService implements the post operations.
type PostService struct {
	store  domain.DocumentStore
	votes  *VoteEngine
	events domain.EventPublisher
	logger domain.Logger
	now    func() time.Time
}

// NewPostService creates a new PostService.
func NewPostService(store domain.DocumentStore, votes *VoteEngine, events domain.EventPublisher, logger domain.Logger) *PostService {
	if store == nil {
		panic("document store cannot be nil in NewPostService")
	}
	if votes == nil {
		panic("vote engine cannot be nil in NewPostService")
	}
	if events == nil {
		events = domain.NopEventPublisher{}
	}
	if logger == nil {
		panic("logger cannot be nil in NewPostService")
	}
	return &PostService{store: store, votes: votes, events: events, logger: logger, now: time.Now}
}

// CreatePost stores a new post owned by actor with no votes.
func (s *PostService) CreatePost(ctx context.Context, actor domain.Identity, in PostInput) domain.Result {
	const op = "CreatePost"
	if actor.ID == "" {
		return fail(ctx, s.logger, op, domain.ErrUnauthenticated, "Unauthorized")
	}
	if blank(in.Title) || blank(in.Description) {
		return fail(ctx, s.logger, op, fmt.Errorf("%w: title and description are required", domain.ErrBadInput), "Title and description are required")
	}

	now := s.now().UTC()
	categories := in.Categories
	if categories == nil {
		categories = []string{}
	}
	post := domain.Post{
		ContentItem: domain.ContentItem{
			CreatedBy: actor.ID,
			UsersVote: []string{},
			CreatedAt: now,
			UpdatedAt: now,
		},
		Title:       in.Title,
		Description: in.Description,
		Categories:  categories,
	}
	fields, err := domain.EncodeFields(post)
	if err != nil {
		return fail(ctx, s.logger, op, storeError("encode post", err), "")
	}
	id, err := s.store.Create(ctx, domain.CollectionPosts, fields)
	if err != nil {
		return fail(ctx, s.logger, op, storeError("create post", err), "")
	}
	post.ID = id

	s.logger.Info(ctx, "Post created", "post_id", id, "created_by", actor.ID)
	publish(ctx, s.events, s.logger, domain.ContentEvent{
		Type: domain.EventContentCreated, Collection: domain.CollectionPosts, ItemID: id, ActorID: actor.ID, OccurredAt: now,
	})
	return domain.Created("Post created successfully!", post)
}

// ListPosts returns every post.
func (s *PostService) ListPosts(ctx context.Context) domain.Result {
	posts, err := s.list(ctx)
	if err != nil {
		return fail(ctx, s.logger, "ListPosts", err, "")
	}
	return domain.OK("Posts retrieved successfully!", posts)
}

// GetPost returns one post.
func (s *PostService) GetPost(ctx context.Context, id string) domain.Result {
	const op = "GetPost"
	if id == "" {
		return fail(ctx, s.logger, op, fmt.Errorf("%w: post id is required", domain.ErrBadInput), "Post id is required")
	}
	post, err := s.load(ctx, id)
	if err != nil {
		return fail(ctx, s.logger, op, err, "Post not found")
	}
	return domain.OK("Post retrieved successfully!", post)
}

// UpdatePost changes title, description or categories of a post the actor may mutate.
func (s *PostService) UpdatePost(ctx context.Context, actor domain.Identity, id string, upd PostUpdate) domain.Result {
	const op = "UpdatePost"
	if id == "" {
		return fail(ctx, s.logger, op, fmt.Errorf("%w: post id is required", domain.ErrBadInput), "Post id is required")
	}
	post, err := s.load(ctx, id)
	if err != nil {
		return fail(ctx, s.logger, op, err, "Post not found")
	}
	if err := domain.CanMutate(post, actor).Err(); err != nil {
		return fail(ctx, s.logger, op, err, "Forbidden! You do not have permission to update this post.")
	}

	partial, err := upd.fields(s.now())
	if err != nil {
		return fail(ctx, s.logger, op, err, "Title and description cannot be empty")
	}
	if err := s.store.Update(ctx, domain.CollectionPosts, id, partial); err != nil {
		return fail(ctx, s.logger, op, storeError("update post", err), "Post not found")
	}

	updated, err := s.load(ctx, id)
	if err != nil {
		return fail(ctx, s.logger, op, err, "Post not found")
	}
	publish(ctx, s.events, s.logger, domain.ContentEvent{
		Type: domain.EventContentUpdated, Collection: domain.CollectionPosts, ItemID: id, ActorID: actor.ID, OccurredAt: updated.UpdatedAt,
	})
	return domain.OK("Post updated successfully!", updated)
}

// DeletePost removes a post the actor may mutate. Comments on it are kept.
func (s *PostService) DeletePost(ctx context.Context, actor domain.Identity, id string) domain.Result {
	const op = "DeletePost"
	if id == "" {
		return fail(ctx, s.logger, op, fmt.Errorf("%w: post id is required", domain.ErrBadInput), "Post id is required")
	}
	post, err := s.load(ctx, id)
	if err != nil {
		return fail(ctx, s.logger, op, err, "Post not found")
	}
	if err := domain.CanMutate(post, actor).Err(); err != nil {
		return fail(ctx, s.logger, op, err, "Forbidden! You do not have permission to delete this post.")
	}
	if err := s.store.Delete(ctx, domain.CollectionPosts, id); err != nil {
		return fail(ctx, s.logger, op, storeError("delete post", err), "")
	}

	s.logger.Info(ctx, "Post deleted", "post_id", id)
	publish(ctx, s.events, s.logger, domain.ContentEvent{
		Type: domain.EventContentDeleted, Collection: domain.CollectionPosts, ItemID: id, ActorID: actor.ID, OccurredAt: s.now().UTC(),
	})
	return domain.OK("Post deleted successfully!", nil)
}

// ListPostsByUser returns the posts created by userID; none found is a 404.
func (s *PostService) ListPostsByUser(ctx context.Context, userID string) domain.Result {
	const op = "ListPostsByUser"
	if userID == "" {
		return fail(ctx, s.logger, op, fmt.Errorf("%w: user id is required", domain.ErrBadInput), "User id is required")
	}
	posts, err := s.query(ctx, "createdBy", domain.OpEquals, userID)
	if err != nil {
		return fail(ctx, s.logger, op, err, "")
	}
	if len(posts) == 0 {
		return fail(ctx, s.logger, op, domain.ErrNotFound, "No posts found for this user")
	}
	return domain.OK("Posts retrieved successfully!", posts)
}

// ListPostsByCategory returns the posts tagged with category; none found is a 404.
func (s *PostService) ListPostsByCategory(ctx context.Context, category string) domain.Result {
	const op = "ListPostsByCategory"
	if blank(category) {
		return fail(ctx, s.logger, op, fmt.Errorf("%w: category is required", domain.ErrBadInput), "Category is required")
	}
	posts, err := s.query(ctx, "categories", domain.OpArrayContains, category)
	if err != nil {
		return fail(ctx, s.logger, op, err, "")
	}
	if len(posts) == 0 {
		return fail(ctx, s.logger, op, domain.ErrNotFound, "No posts found for this category")
	}
	return domain.OK("Posts retrieved successfully!", posts)
}

// SearchPosts returns the posts whose title or description contains keyword.
func (s *PostService) SearchPosts(ctx context.Context, keyword string) domain.Result {
	const op = "SearchPosts"
	if blank(keyword) {
		return fail(ctx, s.logger, op, fmt.Errorf("%w: keyword is required", domain.ErrBadInput), "Keyword is required")
	}
	posts, err := s.list(ctx)
	if err != nil {
		return fail(ctx, s.logger, op, err, "Failed to retrieve posts")
	}
	matched := make([]domain.Post, 0)
	for _, p := range posts {
		if containsKeyword(p.Title, keyword) || containsKeyword(p.Description, keyword) {
			matched = append(matched, p)
		}
	}
	return domain.OK("Posts retrieved successfully!", matched)
}

// ListCategories returns the fixed category list.
func (s *PostService) ListCategories(context.Context) domain.Result {
	return domain.OK("Categories retrieved successfully!", append([]string(nil), domain.DefaultCategories...))
}

// VotePost toggles actor's vote on a post.
func (s *PostService) VotePost(ctx context.Context, actor domain.Identity, id string) domain.Result {
	out, err := s.votes.Toggle(ctx, domain.KindPost, id, actor)
	if err != nil {
		return fail(ctx, s.logger, "VotePost", err, voteFailureMessage(err, "Post not found!"))
	}
	var post domain.Post
	if err := out.Document.Decode(&post); err != nil {
		return fail(ctx, s.logger, "VotePost", storeError("decode voted post", err), "")
	}
	return domain.OK("Vote processed successfully!", post)
}

func (s *PostService) load(ctx context.Context, id string) (domain.Post, error) {
	var post domain.Post
	doc, err := s.store.Get(ctx, domain.CollectionPosts, id)
	if err != nil {
		return post, storeError("get post", err)
	}
	if err := doc.Decode(&post); err != nil {
		return post, storeError("decode post", err)
	}
	return post, nil
}

func (s *PostService) list(ctx context.Context) ([]domain.Post, error) {
	docs, err := s.store.List(ctx, domain.CollectionPosts)
	if err != nil {
		return nil, storeError("list posts", err)
	}
	posts, err := domain.DecodeAll[domain.Post](docs)
	if err != nil {
		return nil, storeError("decode posts", err)
	}
	return posts, nil
}

func (s *PostService) query(ctx context.Context, field string, op domain.QueryOp, value any) ([]domain.Post, error) {
	docs, err := s.store.Query(ctx, domain.CollectionPosts, field, op, value)
	if err != nil {
		return nil, storeError("query posts", err)
	}
	posts, err := domain.DecodeAll[domain.Post](docs)
	if err != nil {
		return nil, storeError("decode posts", err)
	}
	return posts, nil
}

// voteFailureMessage picks the client message for a failed toggle.
func voteFailureMessage(err error, notFound string) string {
	switch domain.StatusFor(err) {
	case http.StatusNotFound:
		return notFound
	case http.StatusUnauthorized:
		return "Unauthorized"
	case http.StatusBadRequest:
		return "Item id is required"
	default:
		return ""
	}
}
