package pagecache

import (
	"bytes"
	"encoding/json"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

// VaryFunc returns the part of the cache key that differs between viewers,
// e.g. the signed-in username, so personalised chrome is never shared.
type VaryFunc func(c echo.Context) string

type entry struct {
	Status      int    `json:"status"`
	ContentType string `json:"content_type"`
	Body        []byte `json:"body"`
}

// Config configures Middleware.
type Config struct {
	Store  Store
	TTL    time.Duration
	Prefix string
	Vary   VaryFunc
	// OnError is called when the store fails; the request is then served uncached.
	OnError func(c echo.Context, err error)
}

// Middleware caches successful GET responses of the wrapped handler.
// The key is Prefix + request URI (so every page number is cached
// separately) + the Vary value.
func Middleware(cfg Config) echo.MiddlewareFunc {
	if cfg.OnError == nil {
		cfg.OnError = func(echo.Context, error) {}
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			if req.Method != http.MethodGet {
				return next(c)
			}
			key := cfg.Prefix + ":" + req.URL.RequestURI()
			if cfg.Vary != nil {
				key += ":" + cfg.Vary(c)
			}
			ctx := req.Context()

			data, ok, err := cfg.Store.Get(ctx, key)
			if err != nil {
				cfg.OnError(c, err)
			}
			if ok {
				var e entry
				if err := json.Unmarshal(data, &e); err == nil {
					return c.Blob(e.Status, e.ContentType, e.Body)
				}
			}

			rec := &recorder{ResponseWriter: c.Response().Writer}
			c.Response().Writer = rec
			if err := next(c); err != nil {
				return err
			}
			if c.Response().Status != http.StatusOK {
				return nil
			}

			payload, err := json.Marshal(entry{
				Status:      c.Response().Status,
				ContentType: c.Response().Header().Get(echo.HeaderContentType),
				Body:        rec.body.Bytes(),
			})
			if err == nil {
				err = cfg.Store.Set(ctx, key, payload, cfg.TTL)
			}
			if err != nil {
				cfg.OnError(c, err)
			}
			return nil
		}
	}
}

// recorder tees the response body into a buffer.
type recorder struct {
	http.ResponseWriter
	body bytes.Buffer
}

func (r *recorder) Write(b []byte) (int, error) {
	r.body.Write(b)
	return r.ResponseWriter.Write(b)
}

func (r *recorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}
