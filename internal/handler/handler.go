// Package handler exposes the REST API, the scheduler endpoints and the live
// alert stream over gin.
package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/user/nudge/backend/internal/jobs"
	"github.com/user/nudge/backend/internal/middleware"
	"github.com/user/nudge/backend/internal/pubsub"
	"github.com/user/nudge/backend/internal/service"
	apperrors "github.com/user/nudge/backend/pkg/errors"
	"github.com/user/nudge/backend/pkg/jwt"
)

// Services groups the application services the API calls into.
type Services struct {
	Auth        *service.AuthService
	Users       *service.UserService
	Reminders   *service.ReminderService
	Sharing     *service.SharingService
	Suggestions *service.SuggestionService
	Devices     *service.DeviceService
}

// CronJobs are the background jobs exposed to external schedulers. A nil
// job answers 503.
type CronJobs struct {
	Sweep         *jobs.SweepJob
	Delivery      *jobs.DeliveryJob
	DeviceCleanup *jobs.DeviceCleanupJob
	AccountPurge  *jobs.AccountPurgeJob
}

type Handler struct {
	services   Services
	cron       CronJobs
	hub        *pubsub.Hub
	jwtManager *jwt.Manager
	cronSecret string
	limiter    *middleware.RateLimiter
}

// New builds the handler. A nil limiter disables rate limiting.
func New(services Services, cron CronJobs, hub *pubsub.Hub, jwtManager *jwt.Manager, cronSecret string, limiter *middleware.RateLimiter) *Handler {
	return &Handler{
		services:   services,
		cron:       cron,
		hub:        hub,
		jwtManager: jwtManager,
		cronSecret: cronSecret,
		limiter:    limiter,
	}
}

// rateLimit runs after any auth middleware in the chain so authenticated
// callers get their own bucket instead of sharing their IP's.
func (h *Handler) rateLimit() []gin.HandlerFunc {
	if h.limiter == nil {
		return nil
	}
	return []gin.HandlerFunc{middleware.RateLimitMiddleware(h.limiter)}
}

// Routes mounts every route on r.
func (h *Handler) Routes(r *gin.Engine) {
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "app": "nudge"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	authChain := append([]gin.HandlerFunc{middleware.AuthMiddleware(h.jwtManager)}, h.rateLimit()...)
	r.Group("/ws", authChain...).GET("", h.LiveAlerts)

	api := r.Group("/api")

	auth := api.Group("/auth", h.rateLimit()...)
	auth.POST("/register", h.Register)
	auth.POST("/login", h.Login)
	auth.POST("/refresh", h.Refresh)

	cron := api.Group("/cron", middleware.CronAuthMiddleware(h.cronSecret))
	cron.POST("/sweep", h.CronSweep)
	cron.POST("/deliver", h.CronDeliver)
	cron.POST("/device-cleanup", h.CronDeviceCleanup)
	cron.POST("/account-purge", h.CronAccountPurge)

	authed := api.Group("", authChain...)

	authed.GET("/me", h.GetMe)
	authed.DELETE("/me", h.DeleteMe)
	authed.GET("/me/settings", h.GetSettings)
	authed.PUT("/me/settings", h.UpdateSettings)

	authed.GET("/reminders", h.ListReminders)
	authed.POST("/reminders", h.CreateReminder)
	authed.GET("/reminders/day/:date", h.ListRemindersForDay)
	authed.GET("/reminders/:id", h.GetReminder)
	authed.PUT("/reminders/:id", h.UpdateReminder)
	authed.DELETE("/reminders/:id", h.DeleteReminder)
	authed.POST("/reminders/:id/share", h.ShareReminder)

	authed.GET("/suggestions", h.Suggestions)

	authed.GET("/devices", h.ListDevices)
	authed.POST("/devices", h.RegisterDevice)
	authed.PUT("/devices/:id/location", h.ReportLocation)
	authed.DELETE("/devices/:id", h.DeleteDevice)
}

// respondError renders err as {"error": AppError}. Errors that are not
// AppErrors become a generic 500.
func respondError(c *gin.Context, err error) {
	appErr := apperrors.GetAppError(err)
	if appErr == nil {
		appErr = apperrors.Internal(err, "Internal server error")
	}
	if appErr.StatusCode >= http.StatusInternalServerError {
		_ = c.Error(err)
	}
	status := appErr.StatusCode
	if status == 0 {
		status = http.StatusInternalServerError
	}
	c.AbortWithStatusJSON(status, gin.H{"error": appErr})
}

func bindJSON(c *gin.Context, dst interface{}) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		respondError(c, apperrors.ValidationError("Invalid request body: "+err.Error()))
		return false
	}
	return true
}

func currentUser(c *gin.Context) (uuid.UUID, bool) {
	id, ok := middleware.GetUserID(c)
	if !ok {
		respondError(c, apperrors.ErrUnauthorized)
	}
	return id, ok
}

func pathID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondError(c, apperrors.ValidationError("Invalid id"))
		return uuid.Nil, false
	}
	return id, true
}
