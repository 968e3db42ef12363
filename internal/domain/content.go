package domain

import (
	"fmt"
	"time"
)

// Collection names used by the document store.
const (
	CollectionUsers    = "users"
	CollectionPosts    = "posts"
	CollectionComments = "comments"
)

// ContentKind distinguishes the two votable content types.
type ContentKind string

const (
	KindPost    ContentKind = "post"
	KindComment ContentKind = "comment"
)

// Collection returns the document collection holding items of this kind.
func (k ContentKind) Collection() string {
	switch k {
	case KindPost:
		return CollectionPosts
	case KindComment:
		return CollectionComments
	default:
		panic(fmt.Sprintf("unknown content kind %q", string(k)))
	}
}

// ContentItem holds the fields shared by posts and comments.
// Invariant: VoteCount == len(UsersVote) and UsersVote holds no duplicates.
type ContentItem struct {
	ID        string    `json:"id,omitempty"`
	CreatedBy string    `json:"createdBy"`
	VoteCount int       `json:"voteCount"`
	UsersVote []string  `json:"usersVote"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Owner implements Owned.
func (c ContentItem) Owner() string {
	return c.CreatedBy
}

// VoteState extracts the snapshot the vote transform operates on.
func (c ContentItem) VoteState() VoteState {
	return VoteState{VoteCount: c.VoteCount, Voters: c.UsersVote, UpdatedAt: c.UpdatedAt}
}

// Post is a top-level content item.
type Post struct {
	ContentItem
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Categories  []string `json:"categories"`
}

// Comment is a content item attached to a post.
type Comment struct {
	ContentItem
	PostID      string `json:"postId"`
	Description string `json:"description"`
}

// DefaultCategories is the fixed set of post categories exposed to clients.
var DefaultCategories = []string{
	"technology",
	"science",
	"culture",
	"sports",
	"politics",
	"health",
}
