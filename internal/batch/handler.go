package batch

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"novelhub/internal/scraper"
)

// Handler exposes run control over HTTP. Runs started here outlive the
// request and stop with ctx.
type Handler struct {
	ctx    context.Context
	Runner *Runner
	Runs   *RunRepo
}

func NewHandler(ctx context.Context, runner *Runner, runs *RunRepo) *Handler {
	return &Handler{ctx: ctx, Runner: runner, Runs: runs}
}

// RegisterRoutes mounts the read routes on rg and the mutating ones on
// admin.
func (h *Handler) RegisterRoutes(rg, admin *gin.RouterGroup) {
	rg.GET("", h.list)        // GET /runs
	rg.GET("/:id", h.getByID) // GET /runs/:id
	admin.POST("", h.start)   // POST /runs
	admin.POST("/:id/resume", h.resume)
}

func (h *Handler) start(c *gin.Context) {
	var sel Selection
	if err := c.ShouldBindJSON(&sel); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
		return
	}

	job, err := h.Runner.Begin(h.ctx, sel)
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusAccepted, job.Run)
}

func (h *Handler) resume(c *gin.Context) {
	job, err := h.Runner.Resume(h.ctx, c.Param("id"))
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusAccepted, job.Run)
}

func (h *Handler) list(c *gin.Context) {
	limit, _ := strconv.Atoi(c.Query("limit"))
	runs, err := h.Runs.List(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": runs})
}

func (h *Handler) getByID(c *gin.Context) {
	run, err := h.Runs.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "get failed"})
		return
	}
	if run == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	c.JSON(http.StatusOK, run)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, ErrRunInProgress), errors.Is(err, ErrRunFinished):
		return http.StatusConflict
	case errors.Is(err, ErrRunNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrInvalidSelection), errors.Is(err, scraper.ErrNoSource):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
