package application

import (
	"context"
	"fmt"
	"sort"
	"time"

	"gitlab.com/timkado/api/forum-service/internal/domain"
)

// CommentInput carries the client-supplied fields of a new comment.
type CommentInput struct {
	PostID      string `json:"postId"`
	Description string `json:"description"`
}

// CommentUpdate carries the fields a comment owner may change.
type CommentUpdate struct {
	Description *string `json:"description,omitempty"`
}

// CommentService implements the comment operations.
type CommentService struct {
	store  domain.DocumentStore
	votes  *VoteEngine
	events domain.EventPublisher
	logger domain.Logger
	now    func() time.Time
}

// NewCommentService creates a new CommentService.
func NewCommentService(store domain.DocumentStore, votes *VoteEngine, events domain.EventPublisher, logger domain.Logger) *CommentService {
	if store == nil {
		panic("document store cannot be nil in NewCommentService")
	}
	if votes == nil {
		panic("vote engine cannot be nil in NewCommentService")
	}
	if events == nil {
		events = domain.NopEventPublisher{}
	}
	if logger == nil {
		panic("logger cannot be nil in NewCommentService")
	}
	return &CommentService{store: store, votes: votes, events: events, logger: logger, now: time.Now}
}

// AddComment attaches a new comment by actor to an existing post.
func (s *CommentService) AddComment(ctx context.Context, actor domain.Identity, in CommentInput) domain.Result {
	const op = "AddComment"
	if actor.ID == "" {
		return fail(ctx, s.logger, op, domain.ErrUnauthenticated, "Unauthorized")
	}
	if in.PostID == "" || blank(in.Description) {
		return fail(ctx, s.logger, op, fmt.Errorf("%w: postId and description are required", domain.ErrBadInput), "Post id and description are required")
	}
	if _, err := s.store.Get(ctx, domain.CollectionPosts, in.PostID); err != nil {
		return fail(ctx, s.logger, op, storeError("get post for comment", err), "Post not found")
	}

	now := s.now().UTC()
	comment := domain.Comment{
		ContentItem: domain.ContentItem{
			CreatedBy: actor.ID,
			UsersVote: []string{},
			CreatedAt: now,
			UpdatedAt: now,
		},
		PostID:      in.PostID,
		Description: in.Description,
	}
	fields, err := domain.EncodeFields(comment)
	if err != nil {
		return fail(ctx, s.logger, op, storeError("encode comment", err), "")
	}
	id, err := s.store.Create(ctx, domain.CollectionComments, fields)
	if err != nil {
		return fail(ctx, s.logger, op, storeError("create comment", err), "")
	}
	comment.ID = id

	s.logger.Info(ctx, "Comment added", "comment_id", id, "post_id", in.PostID, "created_by", actor.ID)
	publish(ctx, s.events, s.logger, domain.ContentEvent{
		Type: domain.EventContentCreated, Collection: domain.CollectionComments, ItemID: id, ActorID: actor.ID, OccurredAt: now,
	})
	return domain.Created("Comment added successfully!", comment)
}

// ListComments returns every comment.
func (s *CommentService) ListComments(ctx context.Context) domain.Result {
	comments, err := s.list(ctx)
	if err != nil {
		return fail(ctx, s.logger, "ListComments", err, "")
	}
	return domain.OK("Comments retrieved successfully!", comments)
}

// ListCommentsByPost returns the comments of a post; none found is a 404.
func (s *CommentService) ListCommentsByPost(ctx context.Context, postID string) domain.Result {
	const op = "ListCommentsByPost"
	comments, res, ok := s.byPost(ctx, op, postID)
	if !ok {
		return res
	}
	return domain.OK("Comments retrieved successfully!", comments)
}

// TopComments returns the comments of a post ordered by vote count, highest
// first. Ties keep the store order.
func (s *CommentService) TopComments(ctx context.Context, postID string) domain.Result {
	comments, res, ok := s.byPost(ctx, "TopComments", postID)
	if !ok {
		return res
	}
	sort.SliceStable(comments, func(i, j int) bool {
		return comments[i].VoteCount > comments[j].VoteCount
	})
	return domain.OK("Comments sorted by vote count successfully!", comments)
}

// GetComment returns one comment.
func (s *CommentService) GetComment(ctx context.Context, id string) domain.Result {
	const op = "GetComment"
	if id == "" {
		return fail(ctx, s.logger, op, fmt.Errorf("%w: comment id is required", domain.ErrBadInput), "Comment id is required")
	}
	comment, err := s.load(ctx, id)
	if err != nil {
		return fail(ctx, s.logger, op, err, "Comment not found")
	}
	return domain.OK("Comment retrieved successfully!", comment)
}

// UpdateComment changes the description of a comment the actor may mutate.
func (s *CommentService) UpdateComment(ctx context.Context, actor domain.Identity, id string, upd CommentUpdate) domain.Result {
	const op = "UpdateComment"
	if id == "" {
		return fail(ctx, s.logger, op, fmt.Errorf("%w: comment id is required", domain.ErrBadInput), "Comment id is required")
	}
	comment, err := s.load(ctx, id)
	if err != nil {
		return fail(ctx, s.logger, op, err, "Comment not found")
	}
	if err := domain.CanMutate(comment, actor).Err(); err != nil {
		return fail(ctx, s.logger, op, err, "Forbidden! You do not have permission to update this comment.")
	}

	partial := domain.Fields{"updatedAt": s.now().UTC().Format(time.RFC3339Nano)}
	if upd.Description != nil {
		if blank(*upd.Description) {
			return fail(ctx, s.logger, op, fmt.Errorf("%w: description cannot be empty", domain.ErrBadInput), "Description cannot be empty")
		}
		partial["description"] = *upd.Description
	}
	if err := s.store.Update(ctx, domain.CollectionComments, id, partial); err != nil {
		return fail(ctx, s.logger, op, storeError("update comment", err), "Comment not found")
	}

	updated, err := s.load(ctx, id)
	if err != nil {
		return fail(ctx, s.logger, op, err, "Comment not found")
	}
	publish(ctx, s.events, s.logger, domain.ContentEvent{
		Type: domain.EventContentUpdated, Collection: domain.CollectionComments, ItemID: id, ActorID: actor.ID, OccurredAt: updated.UpdatedAt,
	})
	return domain.OK("Comment updated successfully!", updated)
}

// DeleteComment removes a comment the actor may mutate.
func (s *CommentService) DeleteComment(ctx context.Context, actor domain.Identity, id string) domain.Result {
	const op = "DeleteComment"
	if id == "" {
		return fail(ctx, s.logger, op, fmt.Errorf("%w: comment id is required", domain.ErrBadInput), "Comment id is required")
	}
	comment, err := s.load(ctx, id)
	if err != nil {
		return fail(ctx, s.logger, op, err, "Comment not found")
	}
	if err := domain.CanMutate(comment, actor).Err(); err != nil {
		return fail(ctx, s.logger, op, err, "Forbidden! You do not have permission to delete this comment.")
	}
	if err := s.store.Delete(ctx, domain.CollectionComments, id); err != nil {
		return fail(ctx, s.logger, op, storeError("delete comment", err), "")
	}

	s.logger.Info(ctx, "Comment deleted", "comment_id", id)
	publish(ctx, s.events, s.logger, domain.ContentEvent{
		Type: domain.EventContentDeleted, Collection: domain.CollectionComments, ItemID: id, ActorID: actor.ID, OccurredAt: s.now().UTC(),
	})
	return domain.OK("Comment deleted successfully!", nil)
}

// VoteComment toggles actor's vote on a comment.
func (s *CommentService) VoteComment(ctx context.Context, actor domain.Identity, id string) domain.Result {
	out, err := s.votes.Toggle(ctx, domain.KindComment, id, actor)
	if err != nil {
		return fail(ctx, s.logger, "VoteComment", err, voteFailureMessage(err, "Comment not found!"))
	}
	var comment domain.Comment
	if err := out.Document.Decode(&comment); err != nil {
		return fail(ctx, s.logger, "VoteComment", storeError("decode voted comment", err), "")
	}
	return domain.OK("Vote processed successfully!", comment)
}

// SearchComments returns the comments whose description contains keyword.
func (s *CommentService) SearchComments(ctx context.Context, keyword string) domain.Result {
	const op = "SearchComments"
	if blank(keyword) {
		return fail(ctx, s.logger, op, fmt.Errorf("%w: keyword is required", domain.ErrBadInput), "Keyword is required")
	}
	comments, err := s.list(ctx)
	if err != nil {
		return fail(ctx, s.logger, op, err, "Failed to retrieve comments")
	}
	matched := make([]domain.Comment, 0)
	for _, c := range comments {
		if containsKeyword(c.Description, keyword) {
			matched = append(matched, c)
		}
	}
	return domain.OK("Comments retrieved successfully!", matched)
}

func (s *CommentService) byPost(ctx context.Context, op, postID string) ([]domain.Comment, domain.Result, bool) {
	if postID == "" {
		return nil, fail(ctx, s.logger, op, fmt.Errorf("%w: post id is required", domain.ErrBadInput), "Post id is required"), false
	}
	docs, err := s.store.Query(ctx, domain.CollectionComments, "postId", domain.OpEquals, postID)
	if err != nil {
		return nil, fail(ctx, s.logger, op, storeError("query comments", err), ""), false
	}
	if len(docs) == 0 {
		return nil, fail(ctx, s.logger, op, domain.ErrNotFound, "No comments found for this post."), false
	}
	comments, err := domain.DecodeAll[domain.Comment](docs)
	if err != nil {
		return nil, fail(ctx, s.logger, op, storeError("decode comments", err), ""), false
	}
	return comments, domain.Result{}, true
}

func (s *CommentService) load(ctx context.Context, id string) (domain.Comment, error) {
	var comment domain.Comment
	doc, err := s.store.Get(ctx, domain.CollectionComments, id)
	if err != nil {
		return comment, storeError("get comment", err)
	}
	if err := doc.Decode(&comment); err != nil {
		return comment, storeError("decode comment", err)
	}
	return comment, nil
}

func (s *CommentService) list(ctx context.Context) ([]domain.Comment, error) {
	docs, err := s.store.List(ctx, domain.CollectionComments)
	if err != nil {
		return nil, storeError("list comments", err)
	}
	comments, err := domain.DecodeAll[domain.Comment](docs)
	if err != nil {
		return nil, storeError("decode comments", err)
	}
	return comments, nil
}
