package handlers_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"firebase.google.com/go/v4/auth"
	"github.com/alicebob/miniredis/v2"
	"github.com/anonto42/yatube/internal/middleware"
	"github.com/anonto42/yatube/internal/models"
	"github.com/anonto42/yatube/internal/pagecache"
	"github.com/anonto42/yatube/internal/router"
	"github.com/anonto42/yatube/internal/storage"
	"github.com/anonto42/yatube/internal/testutil"
	"github.com/anonto42/yatube/pkg/config"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"gorm.io/gorm"
)

// smallGIF is a valid 2x1 GIF image.
var smallGIF = []byte{
	0x47, 0x49, 0x46, 0x38, 0x39, 0x61, 0x02, 0x00,
	0x01, 0x00, 0x80, 0x00, 0x00, 0x00, 0x00, 0x00,
	0xFF, 0xFF, 0xFF, 0x21, 0xF9, 0x04, 0x00, 0x00,
	0x00, 0x00, 0x00, 0x2C, 0x00, 0x00, 0x00, 0x00,
	0x02, 0x00, 0x01, 0x00, 0x00, 0x02, 0x02, 0x0C,
	0x0A, 0x00, 0x3B,
}

type renderCall struct {
	Name string
	Data echo.Map
}

// recordingRenderer remembers what each request rendered and still writes
// the real page.
type recordingRenderer struct {
	inner echo.Renderer
	mu    sync.Mutex
	calls []renderCall
}

func (r *recordingRenderer) Render(w io.Writer, name string, data interface{}, c echo.Context) error {
	m, _ := data.(echo.Map)
	r.mu.Lock()
	r.calls = append(r.calls, renderCall{Name: name, Data: m})
	r.mu.Unlock()
	return r.inner.Render(w, name, data, c)
}

func (r *recordingRenderer) reset() {
	r.mu.Lock()
	r.calls = nil
	r.mu.Unlock()
}

func (r *recordingRenderer) last(t *testing.T) renderCall {
	t.Helper()
	r.mu.Lock()
	defer r.mu.Unlock()
	require.NotEmpty(t, r.calls, "nothing was rendered")
	return r.calls[len(r.calls)-1]
}

func (r *recordingRenderer) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.calls)
}

type fakeVerifier struct {
	tokens map[string]*auth.Token
}

func (f fakeVerifier) VerifyIDToken(_ context.Context, idToken string) (*auth.Token, error) {
	if tok, ok := f.tokens[idToken]; ok {
		return tok, nil
	}
	return nil, errors.New("invalid token")
}

type testApp struct {
	e        *echo.Echo
	db       *gorm.DB
	cfg      *config.Config
	cache    pagecache.Store
	media    storage.Store
	renders  *recordingRenderer
	sessions *middleware.Sessions
}

type option func(*router.Dependencies)

func withFirebase(v middleware.TokenVerifier) option {
	return func(d *router.Dependencies) { d.Firebase = v }
}

func newTestApp(t *testing.T, opts ...option) *testApp {
	t.Helper()
	db := testutil.NewDB(t)
	cfg := &config.Config{
		Env:            "test",
		PostsPerPage:   10,
		IndexCacheTTL:  20 * time.Second,
		JWTSecret:      "test-secret",
		SessionTTL:     time.Hour,
		MaxUploadBytes: 1 << 20,
	}

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	media, err := storage.NewFSStore(t.TempDir())
	require.NoError(t, err)

	deps := router.Dependencies{
		DB:     db,
		Cache:  pagecache.NewRedisStore(rdb, config.CacheKeyPrefix),
		Media:  media,
		Config: cfg,
		Logger: zaptest.NewLogger(t),
	}
	for _, opt := range opts {
		opt(&deps)
	}

	e := echo.New()
	router.SetupMiddleware(e, cfg, deps.Logger)
	require.NoError(t, router.SetupRoutes(e, deps))
	renders := &recordingRenderer{inner: e.Renderer}
	e.Renderer = renders

	return &testApp{
		e:        e,
		db:       db,
		cfg:      cfg,
		cache:    deps.Cache,
		media:    media,
		renders:  renders,
		sessions: middleware.NewSessions(cfg.JWTSecret, cfg.SessionTTL, false, nil),
	}
}

func (a *testApp) do(t *testing.T, req *http.Request, user *models.User) *httptest.ResponseRecorder {
	t.Helper()
	if user != nil {
		token, err := a.sessions.NewToken(user)
		require.NoError(t, err)
		req.AddCookie(&http.Cookie{Name: middleware.SessionCookieName, Value: token})
	}
	a.renders.reset()
	rec := httptest.NewRecorder()
	a.e.ServeHTTP(rec, req)
	return rec
}

func (a *testApp) get(t *testing.T, target string, user *models.User) *httptest.ResponseRecorder {
	t.Helper()
	return a.do(t, httptest.NewRequest(http.MethodGet, target, nil), user)
}

func (a *testApp) postForm(t *testing.T, target string, form url.Values, user *models.User) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(form.Encode()))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
	return a.do(t, req, user)
}

func (a *testApp) postMultipart(t *testing.T, target string, fields map[string]string, filename string, file []byte, user *models.User) *httptest.ResponseRecorder {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	if filename != "" {
		part, err := w.CreateFormFile("image", filename)
		require.NoError(t, err)
		_, err = part.Write(file)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, target, &body)
	req.Header.Set(echo.HeaderContentType, w.FormDataContentType())
	return a.do(t, req, user)
}

func (a *testApp) countPosts(t *testing.T) int64 {
	t.Helper()
	var n int64
	require.NoError(t, a.db.Model(&models.Post{}).Count(&n).Error)
	return n
}

func httptestGet(target string) *http.Request {
	return httptest.NewRequest(http.MethodGet, target, nil)
}
