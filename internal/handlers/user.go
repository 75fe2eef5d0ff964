package handlers

import (
	"net/http"

	"github.com/anonto42/yatube/internal/repositories"
	"github.com/labstack/echo/v4"
)

// UserHandler serves author profile pages
type UserHandler struct {
	userRepository   repositories.UserRepository
	postRepository   repositories.PostRepository
	followRepository repositories.FollowRepository
	perPage          int
}

// NewUserHandler creates a new UserHandler
func NewUserHandler(userRepo repositories.UserRepository, postRepo repositories.PostRepository, followRepo repositories.FollowRepository, perPage int) *UserHandler {
	return &UserHandler{
		userRepository:   userRepo,
		postRepository:   postRepo,
		followRepository: followRepo,
		perPage:          perPage,
	}
}

// RegisterProfileRoutes registers profile routes
func (h *UserHandler) RegisterProfileRoutes(g *echo.Group) {
	g.GET("/profile/:username/", h.Profile)
}

// Profile lists one author's posts with their follow counters. "following"
// tells whether the viewer already follows the author.
func (h *UserHandler) Profile(c echo.Context) error {
	ctx := c.Request().Context()
	author, err := h.userRepository.GetUserByUsername(ctx, c.Param("username"))
	if err != nil {
		return lookupError(err, "author")
	}
	page, err := postPage(c, h.postRepository, repositories.ByAuthor(author.ID), h.perPage)
	if err != nil {
		return err
	}

	following := false
	if viewer := currentUser(c); viewer != nil {
		if following, err = h.followRepository.IsFollowing(ctx, viewer.ID, author.ID); err != nil {
			return err
		}
	}
	followers, err := h.followRepository.GetFollowersCount(ctx, author.ID)
	if err != nil {
		return err
	}
	followingCount, err := h.followRepository.GetFollowingCount(ctx, author.ID)
	if err != nil {
		return err
	}

	return c.Render(http.StatusOK, "posts/profile.html", echo.Map{
		"author":          author,
		"page_obj":        page,
		"post_count":      page.Total,
		"following":       following,
		"followers_count": followers,
		"following_count": followingCount,
	})
}
