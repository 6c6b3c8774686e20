// Package httpapi is the REST control plane over the rule store: list,
// create, update, and delete rules while the forwarder runs. Grounded on
// the teacher's gin wiring style
// (internal/interfaces/http/handlers/forward/rule/crud.go) and the exact
// route/limit contract of _examples/original_source/src/web/resources.rs
// (16 KiB body limit, `/rules/{id}` path).
package httpapi

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"portrelay/internal/session"
)

// maxBodyBytes is the 16 KiB request body limit spec.md §4.6 requires,
// taken from original_source/src/web/resources.rs's
// content_length_limit(1024*16).
const maxBodyBytes = 16 * 1024

// Handler wires the rule-store/manager onto gin routes.
type Handler struct {
	manager *session.Manager
	logger  *slog.Logger
}

// NewHandler builds a Handler over manager. All mutating routes delegate
// to the manager (not the store directly) except update, which per
// spec.md §4.6/§9 only touches the store.
func NewHandler(manager *session.Manager, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{manager: manager, logger: logger}
}

// NewEngine builds the gin engine with routes and the body-size limit
// middleware wired in.
func NewEngine(h *Handler) *gin.Engine {
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(bodyLimitMiddleware(maxBodyBytes))

	engine.GET("/healthz", h.Healthz)
	engine.GET("/rules", h.ListRules)
	engine.POST("/rules", h.CreateRule)
	engine.GET("/rules/:id", h.GetRule)
	engine.PUT("/rules/:id", h.UpdateRule)
	engine.DELETE("/rules/:id", h.DeleteRule)

	return engine
}

func bodyLimitMiddleware(limit int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.ContentLength > limit {
			c.AbortWithStatus(http.StatusRequestEntityTooLarge)
			return
		}
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)
		c.Next()
	}
}
