package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"postly/internal/service"
)

// Handler wires HTTP routes to domain services.
type Handler struct {
	users   service.UserService
	posts   service.PostService
	tokens  service.TokenService
	name    string
	version string
	maxBody int64
	logger  *logrus.Logger
}

type Options struct {
	AppName      string
	Version      string
	MaxMediaSize int64
	Logger       *logrus.Logger
}

func NewHandler(users service.UserService, posts service.PostService, tokens service.TokenService, opts Options) *Handler {
	if opts.Logger == nil {
		opts.Logger = logrus.New()
	}
	if opts.AppName == "" {
		opts.AppName = "Postly API"
	}
	if opts.MaxMediaSize <= 0 {
		opts.MaxMediaSize = 10 << 20
	}
	return &Handler{
		users:   users,
		posts:   posts,
		tokens:  tokens,
		name:    opts.AppName,
		version: opts.Version,
		maxBody: opts.MaxMediaSize,
		logger:  opts.Logger,
	}
}

func (h *Handler) RegisterRoutes(router *gin.Engine) {
	router.Use(requestLogger(h.logger), corsMiddleware())

	router.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "Welcome to " + h.name + " v" + h.version})
	})
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy", "version": h.version})
	})

	auth := router.Group("/auth")
	{
		auth.POST("/signup", h.signup)
		auth.POST("/signin", h.signin)
		auth.GET("/me", h.requireUser(), h.me)
	}

	posts := router.Group("/posts")
	{
		posts.GET("", h.listPosts)
		posts.POST("", h.requireUser(), h.createPost)
		posts.GET("/:id", h.getPost)
		posts.PUT("/:id", h.requireUser(), h.updatePost)
		posts.DELETE("/:id", h.requireUser(), h.deletePost)
		posts.POST("/:id/upload", h.requireUser(), h.uploadMedia)
		posts.GET("/users/:id", h.listUserPosts)
		posts.GET("/media/:filename", h.serveMedia)
	}
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

func requestLogger(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		entry := logger.WithFields(logrus.Fields{
			"method":  c.Request.Method,
			"path":    c.Request.URL.Path,
			"status":  c.Writer.Status(),
			"latency": time.Since(start).String(),
		})
		switch {
		case c.Writer.Status() >= http.StatusInternalServerError:
			entry.Error("request failed")
		case c.Writer.Status() >= http.StatusBadRequest:
			entry.Warn("request rejected")
		default:
			entry.Info("request served")
		}
	}
}
