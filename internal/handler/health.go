package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/FarrelGhozy/Kasir-UTC-02/internal/infra"
	"github.com/FarrelGhozy/Kasir-UTC-02/internal/worker"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Health reports DB and Redis connectivity, the mail circuit state and the
// number of dead-lettered emails.
// An open mail circuit degrades receipts only, so it does not fail the check.
func Health(db *gorm.DB, rdb *redis.Client, mailCB *infra.CircuitBreaker) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
		defer cancel()

		dbStatus := "connected"
		sqlDB, err := db.DB()
		if err != nil || sqlDB.PingContext(ctx) != nil {
			dbStatus = "error"
		}

		redisStatus := "connected"
		if rdb == nil || rdb.Ping(ctx).Err() != nil {
			redisStatus = "error"
		}

		var deadEmails int64
		if redisStatus == "connected" {
			deadEmails, _ = worker.DLQLength(ctx, rdb, worker.QueueEmail)
		}

		mailStatus := "disabled"
		if mailCB != nil {
			mailStatus = mailCB.State().String()
		}

		status := http.StatusOK
		if dbStatus != "connected" || redisStatus != "connected" {
			status = http.StatusServiceUnavailable
		}

		c.JSON(status, gin.H{
			"ok":    status == http.StatusOK,
			"db":    dbStatus,
			"redis": redisStatus,
			"mail":  mailStatus,
			// receipts and alerts that will not be mailed without a manual requeue
			"dead_emails": deadEmails,
		})
	}
}
