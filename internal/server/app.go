package server

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"healthmate/backend/internal/apierr"
	"healthmate/backend/internal/assistant"
	"healthmate/backend/internal/config"
	"healthmate/backend/internal/health"
	"healthmate/backend/internal/logger"
	"healthmate/backend/internal/observability"
	"healthmate/backend/internal/store"
	"healthmate/backend/internal/users"
)

const authUserIDKey = "authUserID"

type App struct {
	cfg       config.Config
	log       *logger.Logger
	users     *users.Service
	health    *health.Service
	assistant *assistant.Assistant
}

func New(cfg config.Config, docs store.DocumentStore, generator assistant.Generator, log *logger.Logger) *App {
	if log == nil {
		log = logger.Nop()
	}
	accounts := users.NewService(docs, cfg, log)
	records := health.NewService(docs, accounts, cfg.PointsPerSubmission, log)
	return &App{
		cfg:       cfg,
		log:       log,
		users:     accounts,
		health:    records,
		assistant: assistant.New(generator, records, docs, cfg.ChatHistoryLimit, log),
	}
}

func (a *App) Router() *gin.Engine {
	router := gin.New()
	router.Use(otelgin.Middleware(observability.ServiceName), attachRequestContext())
	router.Use(requestLogger(a.log), a.recovery())
	router.Use(cors.New(cors.Config{
		AllowOrigins:     a.cfg.CORSAllowOrigins,
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", headerRequestID},
		ExposeHeaders:    []string{"Content-Length", headerRequestID, headerTraceID},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	router.GET("/health", a.healthCheck)

	api := router.Group(a.cfg.APIPrefix)
	api.POST("/auth/signup", a.signup)
	api.POST("/auth/login", a.login)

	authed := api.Group("")
	authed.Use(a.authMiddleware())
	authed.GET("/health-data", a.getHealthData)
	authed.POST("/health-data", a.submitHealthData)
	authed.GET("/recommendations", a.getRecommendations)
	authed.POST("/chat", a.chat)
	authed.GET("/chat/history", a.chatHistory)
	authed.GET("/user/profile", a.getProfile)
	authed.POST("/user/profile", a.updateProfile)

	return router
}

func (a *App) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"service": "healthmate-api",
	})
}

func (a *App) authMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if !strings.HasPrefix(strings.ToLower(authHeader), "bearer ") {
			writeError(c, http.StatusUnauthorized, "Bearer token required")
			return
		}
		tokenString := strings.TrimSpace(authHeader[len("Bearer "):])
		if tokenString == "" {
			writeError(c, http.StatusUnauthorized, "Bearer token required")
			return
		}

		token, err := jwt.Parse(tokenString, func(token *jwt.Token) (any, error) {
			if token.Method == nil || token.Method.Alg() != a.cfg.JWTAlgorithm {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return []byte(a.cfg.JWTSecret), nil
		})
		if err != nil || !token.Valid {
			writeError(c, http.StatusUnauthorized, "Invalid bearer token")
			return
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			writeError(c, http.StatusUnauthorized, "Invalid token payload")
			return
		}
		if a.cfg.JWTAudience != "" && !claimHasAudience(claims["aud"], a.cfg.JWTAudience) {
			writeError(c, http.StatusUnauthorized, "Invalid token audience")
			return
		}
		if a.cfg.JWTIssuer != "" {
			issuer, _ := claims["iss"].(string)
			if issuer != a.cfg.JWTIssuer {
				writeError(c, http.StatusUnauthorized, "Invalid token issuer")
				return
			}
		}
		sub, _ := claims["sub"].(string)
		sub = strings.TrimSpace(sub)
		if sub == "" {
			writeError(c, http.StatusUnauthorized, "Token subject missing")
			return
		}

		if _, err := a.users.Get(c.Request.Context(), sub); err != nil {
			if apierr.StatusOf(err, 0) == http.StatusNotFound {
				writeError(c, http.StatusUnauthorized, "User not found")
				return
			}
			a.log.Error("failed to load user for token", "user_id", sub, "err", err)
			writeError(c, http.StatusInternalServerError, "Failed to load user")
			return
		}

		c.Set(authUserIDKey, sub)
		c.Next()
	}
}

func claimHasAudience(value any, audience string) bool {
	switch v := value.(type) {
	case string:
		return v == audience
	case []any:
		for _, item := range v {
			if s, ok := item.(string); ok && s == audience {
				return true
			}
		}
	case []string:
		for _, item := range v {
			if item == audience {
				return true
			}
		}
	}
	return false
}

func authUserID(c *gin.Context) string {
	return c.GetString(authUserIDKey)
}

func writeError(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, gin.H{"success": false, "message": message})
}

// writeServiceError maps a service error to a JSON failure. fallback is the
// message used for storage and unknown failures, whose detail stays in logs.
func (a *App) writeServiceError(c *gin.Context, err error, fallback string) {
	var verr *health.ValidationError
	if errors.As(err, &verr) {
		body := gin.H{"success": false, "message": verr.Error()}
		if verr.Field != "" {
			body["field"] = verr.Field
		}
		c.AbortWithStatusJSON(http.StatusBadRequest, body)
		return
	}

	var apiErr *apierr.Error
	if errors.As(err, &apiErr) && apiErr.Status > 0 && apiErr.Status < http.StatusInternalServerError {
		writeError(c, apiErr.Status, apiErr.Error())
		return
	}

	a.log.Error(
		"request failed",
		"path", c.FullPath(),
		"user_id", authUserID(c),
		"persistence", store.IsPersistenceError(err),
		"err", err,
	)
	writeError(c, http.StatusInternalServerError, fallback)
}
