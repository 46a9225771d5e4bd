// Package httpapi exposes the request service over HTTP.
package httpapi

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"featureboard/docs/openapi"
	"featureboard/internal/core"
	"featureboard/pkg/domain"
)

// Options configures the router.
type Options struct {
	// Logger receives one line per request. Defaults to a no-op.
	Logger core.Logger
	// CORSOrigins lists allowed origins; "*" or empty allows any.
	CORSOrigins []string
	// Gatherer, when set, is served on /metrics.
	Gatherer prometheus.Gatherer
}

// Handler binds HTTP routes to a core.Service.
type Handler struct {
	svc    *core.Service
	logger core.Logger
}

// NewRouter builds the gin engine serving the board API.
func NewRouter(svc *core.Service, opts Options) *gin.Engine {
	h := &Handler{svc: svc, logger: opts.Logger}
	if h.logger == nil {
		h.logger = nopLogger{}
	}

	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(h.logger), cors.New(corsConfig(opts.CORSOrigins)))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "api": openapi.Fingerprint()})
	})
	if opts.Gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{})))
	}

	api := r.Group("/api")
	{
		api.GET("/openapi.yaml", OpenAPI)
		api.GET("/meta/enums", h.Enums)
		api.GET("/feature-requests", h.List)
		api.POST("/feature-requests", h.Create)
		api.GET("/feature-requests/:id", h.Get)
		api.PUT("/feature-requests/:id", h.Update)
		api.DELETE("/feature-requests/:id", h.Delete)
	}
	return r
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders: []string{"Content-Length"},
		MaxAge:        12 * time.Hour,
	}
	for _, o := range origins {
		if o == "*" {
			cfg.AllowAllOrigins = true
			return cfg
		}
	}
	if len(origins) == 0 {
		cfg.AllowAllOrigins = true
		return cfg
	}
	cfg.AllowOrigins = origins
	return cfg
}

// List handles GET /api/feature-requests.
func (h *Handler) List(c *gin.Context) {
	records, err := h.svc.List(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, records)
}

// Get handles GET /api/feature-requests/:id.
func (h *Handler) Get(c *gin.Context) {
	id := c.Param("id")
	rec, ok, err := h.svc.Get(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	if !ok {
		h.fail(c, domain.ErrNotFound{Entity: domain.EntityFeatureRequest, ID: id})
		return
	}
	c.JSON(http.StatusOK, rec)
}

// Create handles POST /api/feature-requests.
func (h *Handler) Create(c *gin.Context) {
	var sub core.Submission
	if err := c.ShouldBindJSON(&sub); err != nil {
		writeError(c, http.StatusBadRequest, "invalid request body")
		return
	}
	rec, err := h.svc.Create(c.Request.Context(), sub)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, rec)
}

// Update handles PUT /api/feature-requests/:id. Unknown or invalid fields are
// ignored by the service; only a body that is not a JSON object is rejected.
func (h *Handler) Update(c *gin.Context) {
	var fields map[string]any
	if err := c.ShouldBindJSON(&fields); err != nil {
		writeError(c, http.StatusBadRequest, "invalid request body")
		return
	}
	rec, err := h.svc.Update(c.Request.Context(), c.Param("id"), core.PatchFromFields(fields))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

// Delete handles DELETE /api/feature-requests/:id.
func (h *Handler) Delete(c *gin.Context) {
	if err := h.svc.Delete(c.Request.Context(), c.Param("id")); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Feature request deleted successfully"})
}

type enumOption struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// Enums handles GET /api/meta/enums.
func (h *Handler) Enums(c *gin.Context) {
	statuses := make([]enumOption, 0, len(domain.Statuses()))
	for _, s := range domain.Statuses() {
		statuses = append(statuses, enumOption{Value: string(s), Label: s.Label()})
	}
	priorities := make([]enumOption, 0, len(domain.Priorities()))
	for _, p := range domain.Priorities() {
		priorities = append(priorities, enumOption{Value: string(p), Label: p.Label()})
	}
	c.JSON(http.StatusOK, gin.H{"statuses": statuses, "priorities": priorities})
}

// OpenAPI serves the embedded API description.
func OpenAPI(c *gin.Context) {
	c.Data(http.StatusOK, "application/yaml", openapi.Document)
}

// fail maps a service fault onto a status code and error body.
func (h *Handler) fail(c *gin.Context, err error) {
	var verr domain.ValidationError
	switch {
	case errors.As(err, &verr):
		c.JSON(http.StatusBadRequest, gin.H{"error": domain.ErrValidation.Error(), "fields": verr.Fields})
	case errors.Is(err, domain.ErrValidation):
		writeError(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrNotFoundSentinel):
		writeError(c, http.StatusNotFound, "feature request not found")
	default:
		_ = c.Error(err)
		writeError(c, http.StatusInternalServerError, "internal server error")
	}
}

func writeError(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{"error": message})
}
