package router

import (
	"fmt"
	"time"

	"github.com/anonto42/yatube/internal/handlers"
	"github.com/anonto42/yatube/internal/middleware"
	"github.com/anonto42/yatube/internal/models"
	"github.com/anonto42/yatube/internal/pagecache"
	"github.com/anonto42/yatube/internal/render"
	"github.com/anonto42/yatube/internal/repositories"
	"github.com/anonto42/yatube/internal/storage"
	"github.com/anonto42/yatube/internal/validators"
	"github.com/anonto42/yatube/pkg/config"
	"github.com/labstack/echo/v4"
	eMiddleware "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
	"gorm.io/gorm"
)

// IndexCachePrefix namespaces the cached index pages in the page cache.
const IndexCachePrefix = "index_page"

// Dependencies are the services the routes are wired to. Firebase may be
// nil, which disables Firebase login.
type Dependencies struct {
	DB       *gorm.DB
	Cache    pagecache.Store
	Media    storage.Store
	Firebase middleware.TokenVerifier
	Config   *config.Config
	Logger   *zap.Logger
}

// SetupMiddleware configures global Echo middleware
func SetupMiddleware(e *echo.Echo, cfg *config.Config, log *zap.Logger) {
	config.SetupMiddleware(e, cfg, log)
	log.Debug("global middleware configured")
}

// SetupRoutes migrates the schema, then configures rendering, validation and
// all application routes.
func SetupRoutes(e *echo.Echo, deps Dependencies) error {
	cfg, log := deps.Config, deps.Logger

	if err := deps.DB.AutoMigrate(models.All()...); err != nil {
		return fmt.Errorf("auto migrate models: %w", err)
	}
	log.Info("database auto-migrations completed")

	renderer, err := render.New(func(c echo.Context) map[string]any {
		if user := middleware.CurrentUser(c); user != nil {
			return map[string]any{"user": user}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("load templates: %w", err)
	}
	e.Renderer = renderer
	e.Validator = validators.NewValidator()
	e.HTTPErrorHandler = handlers.NewHTTPErrorHandler(log)

	// --- Initialize Repositories ---
	userRepo := repositories.NewPostgresUserRepository(deps.DB)
	groupRepo := repositories.NewPostgresGroupRepository(deps.DB)
	postRepo := repositories.NewPostgresPostRepository(deps.DB)
	commentRepo := repositories.NewPostgresCommentRepository(deps.DB)
	followRepo := repositories.NewPostgresFollowRepository(deps.DB)

	sessions := middleware.NewSessions(cfg.JWTSecret, cfg.SessionTTL, cfg.IsProduction(), userRepo)
	e.Use(sessions.Middleware())
	requireLogin := middleware.RequireLogin("/auth/login/")

	indexCache := pagecache.Middleware(pagecache.Config{
		Store:  deps.Cache,
		TTL:    cfg.IndexCacheTTL,
		Prefix: IndexCachePrefix,
		Vary: func(c echo.Context) string {
			if user := middleware.CurrentUser(c); user != nil {
				return user.Username
			}
			return ""
		},
		OnError: func(c echo.Context, err error) {
			log.Warn("page cache unavailable", zap.String("uri", c.Request().RequestURI), zap.Error(err))
		},
	})

	e.GET("/health", handlers.HealthCheck)

	site := e.Group("")

	postHandler := handlers.NewPostHandler(postRepo, groupRepo, commentRepo, deps.Media, cfg.PostsPerPage, cfg.MaxUploadBytes, deps.Logger)
	postHandler.RegisterPostRoutes(site, requireLogin, indexCache)

	commentHandler := handlers.NewCommentHandler(commentRepo, postRepo)
	commentHandler.RegisterCommentRoutes(site, requireLogin)

	userHandler := handlers.NewUserHandler(userRepo, postRepo, followRepo, cfg.PostsPerPage)
	userHandler.RegisterProfileRoutes(site)

	followHandler := handlers.NewFollowHandler(followRepo, userRepo)
	followHandler.RegisterFollowRoutes(site, requireLogin)

	feedHandler := handlers.NewFeedHandler(postRepo, cfg.PostsPerPage)
	feedHandler.RegisterFeedRoutes(site, requireLogin)
	log.Debug("post routes configured")

	authHandler := handlers.NewAuthHandler(userRepo, sessions, deps.Firebase)
	authHandler.RegisterAuthRoutes(e.Group("/auth"), authRateLimit(cfg.AuthRateLimit))
	log.Debug("auth routes configured", zap.Bool("firebase", deps.Firebase != nil))

	handlers.RegisterAboutRoutes(e.Group("/about"))

	mediaHandler := handlers.NewMediaHandler(deps.Media)
	mediaHandler.RegisterMediaRoutes(e.Group("/media"))

	log.Info("all routes configured")
	return nil
}

// authRateLimit throttles credential checks per client IP. perSecond <= 0
// turns the limit off.
func authRateLimit(perSecond float64) echo.MiddlewareFunc {
	if perSecond <= 0 {
		return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	}
	burst := int(perSecond * 2)
	if burst < 1 {
		burst = 1
	}
	return eMiddleware.RateLimiterWithConfig(eMiddleware.RateLimiterConfig{
		Store: eMiddleware.NewRateLimiterMemoryStoreWithConfig(eMiddleware.RateLimiterMemoryStoreConfig{
			Rate:      rate.Limit(perSecond),
			Burst:     burst,
			ExpiresIn: 3 * time.Minute,
		}),
	})
}
