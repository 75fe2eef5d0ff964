package handlers

import (
	"net/http"

	"github.com/anonto42/yatube/internal/repositories"
	"github.com/labstack/echo/v4"
)

// FeedHandler serves the personal feed of followed authors
type FeedHandler struct {
	postRepository repositories.PostRepository
	perPage        int
}

// NewFeedHandler creates a new FeedHandler
func NewFeedHandler(postRepo repositories.PostRepository, perPage int) *FeedHandler {
	return &FeedHandler{postRepository: postRepo, perPage: perPage}
}

// RegisterFeedRoutes registers feed-related routes
func (h *FeedHandler) RegisterFeedRoutes(g *echo.Group, requireLogin echo.MiddlewareFunc) {
	g.GET("/follow/", h.FollowIndex, requireLogin)
}

// FollowIndex lists posts by the authors the current user follows.
func (h *FeedHandler) FollowIndex(c echo.Context) error {
	page, err := postPage(c, h.postRepository, repositories.FollowedBy(currentUser(c).ID), h.perPage)
	if err != nil {
		return err
	}
	return c.Render(http.StatusOK, "posts/follow.html", echo.Map{"page_obj": page})
}
