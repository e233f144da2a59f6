package handler

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/user/nudge/backend/internal/jobs"
	apperrors "github.com/user/nudge/backend/pkg/errors"
)

// Scheduler requests must answer before the caller's deadline.
const cronTimeout = 55 * time.Second

var errJobNotConfigured = apperrors.New(apperrors.CodeUnavailable, "Job not configured", http.StatusServiceUnavailable)

func cronContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), cronTimeout)
}

func (h *Handler) CronSweep(c *gin.Context) {
	if h.cron.Sweep == nil {
		respondError(c, errJobNotConfigured)
		return
	}
	ctx, cancel := cronContext()
	defer cancel()

	result, err := h.cron.Sweep.RunAll(ctx)
	if err != nil {
		log.Printf("[Cron] Sweep failed: %v", err)
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *Handler) CronDeliver(c *gin.Context) {
	if h.cron.Delivery == nil {
		respondError(c, errJobNotConfigured)
		return
	}
	ctx, cancel := cronContext()
	defer cancel()

	result, err := h.cron.Delivery.ProcessDue(ctx)
	if err != nil {
		log.Printf("[Cron] Delivery failed: %v", err)
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *Handler) CronDeviceCleanup(c *gin.Context) {
	if h.cron.DeviceCleanup == nil {
		respondError(c, errJobNotConfigured)
		return
	}
	ctx, cancel := cronContext()
	defer cancel()

	count, err := h.cron.DeviceCleanup.CleanupStaleDevices(ctx, jobs.StaleDeviceDays)
	if err != nil {
		log.Printf("[Cron] Error cleaning up stale devices: %v", err)
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, jobs.DeviceCleanupResult{Deleted: count})
}

func (h *Handler) CronAccountPurge(c *gin.Context) {
	if h.cron.AccountPurge == nil {
		respondError(c, errJobNotConfigured)
		return
	}
	ctx, cancel := cronContext()
	defer cancel()

	count, err := h.cron.AccountPurge.PurgeDeletedAccounts(ctx, jobs.AccountPurgeDays)
	if err != nil {
		log.Printf("[Cron] Error purging deleted accounts: %v", err)
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, jobs.AccountPurgeResult{Purged: count})
}
