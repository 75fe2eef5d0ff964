package render

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/anonto42/yatube/internal/models"
	"github.com/anonto42/yatube/internal/paginator"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newContext() echo.Context {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	return e.NewContext(req, httptest.NewRecorder())
}

func TestNew_ParsesAllPages(t *testing.T) {
	r, err := New(nil)
	require.NoError(t, err)

	for _, name := range []string{
		"posts/index.html", "posts/group_list.html", "posts/profile.html",
		"posts/post_detail.html", "posts/create_post.html", "posts/follow.html",
		"users/signup.html", "users/login.html", "users/logged_out.html",
		"about/author.html", "about/tech.html", "core/404.html", "core/500.html",
	} {
		assert.True(t, r.Has(name), name)
	}
}

func TestRender_IndexEscapesAndPaginates(t *testing.T) {
	r, err := New(func(c echo.Context) map[string]any {
		return map[string]any{"user": &models.User{Username: "leo"}}
	})
	require.NoError(t, err)

	posts := []models.Post{{
		ID:      7,
		Text:    "<b>first</b>\nsecond line",
		PubDate: time.Date(2022, 3, 1, 0, 0, 0, 0, time.UTC),
		Author:  models.User{Username: "ann"},
	}}
	page := paginator.Paginate(posts, 10, "")

	var buf bytes.Buffer
	err = r.Render(&buf, "posts/index.html", map[string]any{"page_obj": page}, newContext())
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "&lt;b&gt;first&lt;/b&gt;<br>second line")
	assert.Contains(t, out, "/posts/7/")
	assert.Contains(t, out, "/profile/ann/")
	assert.Contains(t, out, "1 March 2022")
	assert.Contains(t, out, "leo")
}

func TestRender_UnknownTemplate(t *testing.T) {
	r, err := New(nil)
	require.NoError(t, err)
	assert.Error(t, r.Render(&bytes.Buffer{}, "nope.html", nil, newContext()))
}

func TestTruncateWords(t *testing.T) {
	assert.Equal(t, "a b", truncateWords("a  b", 3))
	assert.Equal(t, "a b …", truncateWords("a b c d", 2))
}
