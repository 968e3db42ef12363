package http

import (
	"encoding/json"
	"net/http"

	"gitlab.com/timkado/api/forum-service/internal/adapters/middleware"
	"gitlab.com/timkado/api/forum-service/internal/application"
	"gitlab.com/timkado/api/forum-service/internal/domain"
)

const maxBodyBytes = 1 << 20

// Handlers maps HTTP routes onto the application services. Every response
// body is a domain.Result and its status is the HTTP status.
type Handlers struct {
	posts    *application.PostService
	comments *application.CommentService
	users    *application.UserService
	resolver domain.IdentityResolver
	logger   domain.Logger
}

// NewHandlers creates a new Handlers.
func NewHandlers(
	posts *application.PostService,
	comments *application.CommentService,
	users *application.UserService,
	resolver domain.IdentityResolver,
	logger domain.Logger,
) *Handlers {
	if posts == nil || comments == nil || users == nil {
		panic("services cannot be nil in NewHandlers")
	}
	if resolver == nil {
		panic("identity resolver cannot be nil in NewHandlers")
	}
	if logger == nil {
		panic("logger cannot be nil in NewHandlers")
	}
	return &Handlers{posts: posts, comments: comments, users: users, resolver: resolver, logger: logger}
}

// Register mounts every route on mux.
func (h *Handlers) Register(mux *http.ServeMux) {
	auth := middleware.RequireIdentity(h.resolver, h.logger)
	protected := func(fn http.HandlerFunc) http.Handler { return auth(fn) }

	// Posts
	mux.Handle("POST /posts", protected(h.createPost))
	mux.HandleFunc("GET /allposts", h.listPosts)
	mux.HandleFunc("GET /categories", h.listCategories)
	mux.HandleFunc("GET /posts", h.listPostsByCategory)
	mux.HandleFunc("GET /posts/search", h.searchPosts)
	mux.HandleFunc("GET /posts/{id}", h.getPost)
	mux.Handle("PUT /posts/{id}", protected(h.updatePost))
	mux.Handle("DELETE /posts/{id}", protected(h.deletePost))
	mux.Handle("POST /posts/{id}/vote", protected(h.votePost))
	mux.HandleFunc("GET /users/{userId}/posts", h.listPostsByUser)

	// Comments
	mux.Handle("POST /posts/{id}/comments", protected(h.addComment))
	mux.HandleFunc("GET /posts/{id}/comments", h.listCommentsByPost)
	mux.HandleFunc("GET /posts/{id}/comments/top", h.topComments)
	mux.HandleFunc("GET /comments", h.listComments)
	mux.HandleFunc("GET /comments/search", h.searchComments)
	mux.HandleFunc("GET /comments/{id}", h.getComment)
	mux.Handle("PUT /comments/{id}", protected(h.updateComment))
	mux.Handle("DELETE /comments/{id}", protected(h.deleteComment))
	mux.Handle("POST /comments/{id}/vote", protected(h.voteComment))

	// Users
	mux.HandleFunc("POST /users", h.createUser)
	mux.Handle("GET /users", protected(h.listUsers))
	mux.Handle("GET /users/{id}", protected(h.getUser))
	mux.Handle("PUT /users/{id}", protected(h.updateUser))
	mux.Handle("DELETE /users/{id}", protected(h.deleteUser))
	mux.Handle("PUT /connecteduser", protected(h.updateSelf))
}

func (h *Handlers) createPost(w http.ResponseWriter, r *http.Request) {
	var in application.PostInput
	if !h.decode(w, r, &in) {
		return
	}
	h.posts.CreatePost(r.Context(), identity(r), in).WriteJSON(w)
}

func (h *Handlers) listPosts(w http.ResponseWriter, r *http.Request) {
	h.posts.ListPosts(r.Context()).WriteJSON(w)
}

func (h *Handlers) listCategories(w http.ResponseWriter, r *http.Request) {
	h.posts.ListCategories(r.Context()).WriteJSON(w)
}

func (h *Handlers) listPostsByCategory(w http.ResponseWriter, r *http.Request) {
	h.posts.ListPostsByCategory(r.Context(), r.URL.Query().Get("category")).WriteJSON(w)
}

func (h *Handlers) searchPosts(w http.ResponseWriter, r *http.Request) {
	h.posts.SearchPosts(r.Context(), r.URL.Query().Get("keyword")).WriteJSON(w)
}

func (h *Handlers) getPost(w http.ResponseWriter, r *http.Request) {
	h.posts.GetPost(r.Context(), r.PathValue("id")).WriteJSON(w)
}

func (h *Handlers) updatePost(w http.ResponseWriter, r *http.Request) {
	var upd application.PostUpdate
	if !h.decode(w, r, &upd) {
		return
	}
	h.posts.UpdatePost(r.Context(), identity(r), r.PathValue("id"), upd).WriteJSON(w)
}

func (h *Handlers) deletePost(w http.ResponseWriter, r *http.Request) {
	h.posts.DeletePost(r.Context(), identity(r), r.PathValue("id")).WriteJSON(w)
}

func (h *Handlers) votePost(w http.ResponseWriter, r *http.Request) {
	h.posts.VotePost(r.Context(), identity(r), r.PathValue("id")).WriteJSON(w)
}

func (h *Handlers) listPostsByUser(w http.ResponseWriter, r *http.Request) {
	h.posts.ListPostsByUser(r.Context(), r.PathValue("userId")).WriteJSON(w)
}

func (h *Handlers) addComment(w http.ResponseWriter, r *http.Request) {
	var in application.CommentInput
	if !h.decode(w, r, &in) {
		return
	}
	in.PostID = r.PathValue("id")
	h.comments.AddComment(r.Context(), identity(r), in).WriteJSON(w)
}

func (h *Handlers) listCommentsByPost(w http.ResponseWriter, r *http.Request) {
	h.comments.ListCommentsByPost(r.Context(), r.PathValue("id")).WriteJSON(w)
}

func (h *Handlers) topComments(w http.ResponseWriter, r *http.Request) {
	h.comments.TopComments(r.Context(), r.PathValue("id")).WriteJSON(w)
}

func (h *Handlers) listComments(w http.ResponseWriter, r *http.Request) {
	h.comments.ListComments(r.Context()).WriteJSON(w)
}

func (h *Handlers) searchComments(w http.ResponseWriter, r *http.Request) {
	h.comments.SearchComments(r.Context(), r.URL.Query().Get("keyword")).WriteJSON(w)
}

func (h *Handlers) getComment(w http.ResponseWriter, r *http.Request) {
	h.comments.GetComment(r.Context(), r.PathValue("id")).WriteJSON(w)
}

func (h *Handlers) updateComment(w http.ResponseWriter, r *http.Request) {
	var upd application.CommentUpdate
	if !h.decode(w, r, &upd) {
		return
	}
	h.comments.UpdateComment(r.Context(), identity(r), r.PathValue("id"), upd).WriteJSON(w)
}

func (h *Handlers) deleteComment(w http.ResponseWriter, r *http.Request) {
	h.comments.DeleteComment(r.Context(), identity(r), r.PathValue("id")).WriteJSON(w)
}

func (h *Handlers) voteComment(w http.ResponseWriter, r *http.Request) {
	h.comments.VoteComment(r.Context(), identity(r), r.PathValue("id")).WriteJSON(w)
}

func (h *Handlers) createUser(w http.ResponseWriter, r *http.Request) {
	var in application.UserInput
	if !h.decode(w, r, &in) {
		return
	}
	h.users.CreateUser(r.Context(), in).WriteJSON(w)
}

func (h *Handlers) listUsers(w http.ResponseWriter, r *http.Request) {
	h.users.ListUsers(r.Context()).WriteJSON(w)
}

func (h *Handlers) getUser(w http.ResponseWriter, r *http.Request) {
	h.users.GetUser(r.Context(), r.PathValue("id")).WriteJSON(w)
}

func (h *Handlers) updateUser(w http.ResponseWriter, r *http.Request) {
	var upd application.UserUpdate
	if !h.decode(w, r, &upd) {
		return
	}
	h.users.UpdateUser(r.Context(), identity(r), r.PathValue("id"), upd).WriteJSON(w)
}

func (h *Handlers) deleteUser(w http.ResponseWriter, r *http.Request) {
	h.users.DeleteUser(r.Context(), identity(r), r.PathValue("id")).WriteJSON(w)
}

func (h *Handlers) updateSelf(w http.ResponseWriter, r *http.Request) {
	var upd application.UserUpdate
	if !h.decode(w, r, &upd) {
		return
	}
	h.users.UpdateSelf(r.Context(), identity(r), upd).WriteJSON(w)
}

// decode reads a JSON body into v, answering 400 itself on failure.
func (h *Handlers) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	defer r.Body.Close()
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		h.logger.Warn(r.Context(), "Failed to decode request payload", "path", r.URL.Path, "code", string(domain.CodeBadInput), "error", err.Error())
		domain.Result{Status: http.StatusBadRequest, Message: "Invalid request payload"}.WriteJSON(w)
		return false
	}
	return true
}

func identity(r *http.Request) domain.Identity {
	id, _ := middleware.IdentityFromContext(r.Context())
	return id
}
