package handlers

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"secureauth/api/internal/config"
	"secureauth/api/internal/forms"
	"secureauth/api/internal/middleware"
	"secureauth/api/internal/models"
	"secureauth/api/internal/repository"
	"secureauth/api/internal/security"
	"secureauth/api/internal/service"
	"secureauth/api/internal/session"
)

// Pool is the pgx pool surface the handlers need: queries for the
// repositories plus Ping for the health check.
type Pool interface {
	repository.PgxPool
	Ping(ctx context.Context) error
}

// AuthWorkflow is the slice of AuthService the HTTP layer drives.
type AuthWorkflow interface {
	Register(ctx context.Context, form *forms.RegisterForm) (service.AuthResult, forms.FieldErrors, error)
	Login(ctx context.Context, form *forms.LoginForm) (service.AuthResult, forms.FieldErrors, error)
	Logout(ctx context.Context, token string) error
}

type HandlerSet struct {
	log      zerolog.Logger
	cfg      *config.AppConfig
	auth     AuthWorkflow
	users    *repository.UserRepository
	sessions *session.Manager
	cookies  *session.CookieWriter
	db       Pool
	cache    *redis.Client
}

func NewHandlerSet(log zerolog.Logger, db Pool, cache *redis.Client, cfg *config.AppConfig) HandlerSet {
	userRepo := repository.NewUserRepository(db)
	sessionManager := session.NewManager(cache, cfg.Session)
	hasher := security.NewHasher(cfg.Hasher)
	auth := service.NewAuthService(userRepo, sessionManager, hasher, log)

	return HandlerSet{
		log:      log,
		cfg:      cfg,
		auth:     auth,
		users:    userRepo,
		sessions: sessionManager,
		cookies:  session.NewCookieWriter(cfg.Session, cfg.SecureCookies()),
		db:       db,
		cache:    cache,
	}
}

func (h HandlerSet) Register(router *gin.Engine) {
	router.Use(middleware.Identity(h.sessions, h.users, h.cookies.Name()))

	router.GET("/healthz", h.Health)
	router.GET("/", h.Home)

	auth := router.Group("/auth")
	{
		auth.POST("/register", h.RegisterUser)
		auth.POST("/login", h.Login)
		auth.POST("/logout", middleware.RequireAuth(), h.Logout)
	}

	router.GET("/dashboard", middleware.RequireAuth(), h.Dashboard)

	admin := router.Group("/admin")
	admin.Use(middleware.RequireRoles(models.UserRoleAdmin))
	{
		admin.GET("", h.AdminHome)
		admin.GET("/users", h.AdminListUsers)
	}
}
