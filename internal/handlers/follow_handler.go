package handlers

import (
	"errors"
	"net/http"

	"github.com/anonto42/yatube/internal/repositories"
	"github.com/labstack/echo/v4"
)

// FollowHandler handles follow/unfollow requests
type FollowHandler struct {
	followRepository repositories.FollowRepository
	userRepository   repositories.UserRepository
}

// NewFollowHandler creates a new FollowHandler
func NewFollowHandler(followRepo repositories.FollowRepository, userRepo repositories.UserRepository) *FollowHandler {
	return &FollowHandler{
		followRepository: followRepo,
		userRepository:   userRepo,
	}
}

// RegisterFollowRoutes registers follow-related routes. Both verbs are
// accepted because the profile page links to them.
func (h *FollowHandler) RegisterFollowRoutes(g *echo.Group, requireLogin echo.MiddlewareFunc) {
	g.Match([]string{http.MethodGet, http.MethodPost}, "/profile/:username/follow/", h.ProfileFollow, requireLogin)
	g.Match([]string{http.MethodGet, http.MethodPost}, "/profile/:username/unfollow/", h.ProfileUnfollow, requireLogin)
}

// ProfileFollow subscribes the current user to the author. Following
// yourself or following twice changes nothing.
func (h *FollowHandler) ProfileFollow(c echo.Context) error {
	ctx := c.Request().Context()
	author, err := h.userRepository.GetUserByUsername(ctx, c.Param("username"))
	if err != nil {
		return lookupError(err, "author")
	}
	user := currentUser(c)
	if user.ID == author.ID {
		return c.Redirect(http.StatusFound, profileURL(author.Username))
	}
	following, err := h.followRepository.IsFollowing(ctx, user.ID, author.ID)
	if err != nil {
		return err
	}
	// the unique index still rejects a concurrent duplicate
	if !following {
		if err := h.followRepository.CreateFollow(ctx, user.ID, author.ID); err != nil {
			return err
		}
	}
	return c.Redirect(http.StatusFound, profileURL(author.Username))
}

// ProfileUnfollow removes the subscription; there must be one to remove.
func (h *FollowHandler) ProfileUnfollow(c echo.Context) error {
	ctx := c.Request().Context()
	author, err := h.userRepository.GetUserByUsername(ctx, c.Param("username"))
	if err != nil {
		return lookupError(err, "author")
	}
	err = h.followRepository.DeleteFollow(ctx, currentUser(c).ID, author.ID)
	if errors.Is(err, repositories.ErrNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "Not following this author")
	}
	if err != nil {
		return err
	}
	return c.Redirect(http.StatusFound, profileURL(author.Username))
}
