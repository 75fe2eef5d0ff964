package handlers

import (
	"net/http"
	"strings"

	"github.com/anonto42/yatube/internal/models"
	"github.com/anonto42/yatube/internal/repositories"
	"github.com/anonto42/yatube/internal/validators"
	"github.com/labstack/echo/v4"
)

// CommentHandler handles comment submissions
type CommentHandler struct {
	commentRepository repositories.CommentRepository
	postRepository    repositories.PostRepository
	detail            postDetail
}

// NewCommentHandler creates a new CommentHandler
func NewCommentHandler(commentRepo repositories.CommentRepository, postRepo repositories.PostRepository) *CommentHandler {
	return &CommentHandler{
		commentRepository: commentRepo,
		postRepository:    postRepo,
		detail:            postDetail{posts: postRepo, comments: commentRepo},
	}
}

// RegisterCommentRoutes registers comment-related routes
func (h *CommentHandler) RegisterCommentRoutes(g *echo.Group, requireLogin echo.MiddlewareFunc) {
	g.GET("/posts/:id/comment/", h.AddComment, requireLogin)
	g.POST("/posts/:id/comment/", h.AddComment, requireLogin)
}

// AddComment attaches a comment by the current user to a post. Invalid input
// re-renders the post page with the error and saves nothing.
func (h *CommentHandler) AddComment(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	post, err := h.postRepository.GetPostByID(c.Request().Context(), id)
	if err != nil {
		return lookupError(err, "post")
	}
	if c.Request().Method != http.MethodPost {
		return c.Redirect(http.StatusFound, postURL(post.ID))
	}

	var req models.CommentForm
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid form data")
	}
	req.Text = strings.TrimSpace(req.Text)

	form := newForm()
	form.Values["text"] = req.Text
	if err := c.Validate(&req); err != nil {
		form.Errors = validators.FieldErrors(err)
		return h.detail.render(c, post, form)
	}

	comment := &models.Comment{
		Text:     req.Text,
		AuthorID: currentUser(c).ID,
		PostID:   post.ID,
	}
	if err := h.commentRepository.CreateComment(c.Request().Context(), comment); err != nil {
		return err
	}
	return c.Redirect(http.StatusFound, postURL(post.ID))
}
