package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
)

// HealthHandler serves the liveness and readiness probes. Readiness is
// stricter than a connection ping: the database check also requires the
// migration ledger to be present and clean, so a freshly provisioned
// database is not reported ready before the bookstore schema exists.
type HealthHandler struct {
	pool  *pgxpool.Pool
	cache *redis.Client
	queue *amqp.Connection
}

func NewHealthHandler(pool *pgxpool.Pool, cache *redis.Client, queue *amqp.Connection) *HealthHandler {
	return &HealthHandler{pool: pool, cache: cache, queue: queue}
}

func (h *HealthHandler) Healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "service": "bookstore-api"})
}

func (h *HealthHandler) Readyz(c *gin.Context) {
	ctx := c.Request.Context()

	components := gin.H{"postgres": "ready", "redis": "ready", "rabbitmq": "ready"}
	ready := true

	if err := h.checkSchema(ctx); err != nil {
		components["postgres"] = "not ready"
		ready = false
	}
	if err := h.cache.Ping(ctx).Err(); err != nil {
		components["redis"] = "not ready"
		ready = false
	}
	if h.queue.IsClosed() {
		components["rabbitmq"] = "not ready"
		ready = false
	}

	if !ready {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "error", "components": components})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "components": components})
}

var errDirtySchema = errors.New("schema migration dirty")

func (h *HealthHandler) checkSchema(ctx context.Context) error {
	var dirty bool
	err := h.pool.QueryRow(ctx,
		`SELECT dirty FROM schema_migrations ORDER BY version DESC LIMIT 1`,
	).Scan(&dirty)
	if err != nil {
		return err
	}
	if dirty {
		return errDirtySchema
	}
	return nil
}
