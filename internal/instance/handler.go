package instance

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"novelhub/internal/novel"
	"novelhub/pkg/models"
)

type Handler struct {
	Repo   *Repo
	Novels *novel.Repo
}

func NewHandler(repo *Repo, novels *novel.Repo) *Handler {
	return &Handler{Repo: repo, Novels: novels}
}

type upsertRequest struct {
	URL         string `json:"url" binding:"required"`
	VersionName string `json:"version_name"`
	Status      string `json:"status"`
}

// RegisterRoutes mounts instance routes under the /novels groups.
func (h *Handler) RegisterRoutes(novels, admin *gin.RouterGroup) {
	novels.GET("/:id/instances", h.list)   // GET /novels/:id/instances
	admin.POST("/:id/instances", h.upsert) // POST /novels/:id/instances
}

func (h *Handler) list(c *gin.Context) {
	id, ok := h.novelID(c)
	if !ok {
		return
	}
	items, err := h.Repo.ListByNovel(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

func (h *Handler) upsert(c *gin.Context) {
	id, ok := h.novelID(c)
	if !ok {
		return
	}

	var req upsertRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
		return
	}

	in, err := h.Repo.Upsert(c.Request.Context(), models.NovelInstance{
		NovelID:     id,
		URL:         req.URL,
		VersionName: req.VersionName,
		Status:      req.Status,
	})
	if err != nil {
		if errors.Is(err, ErrURLTaken) {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "upsert failed"})
		return
	}
	c.JSON(http.StatusOK, in)
}

// novelID parses :id and checks the novel exists, writing the error
// response itself when it does not.
func (h *Handler) novelID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return 0, false
	}
	n, err := h.Novels.GetByID(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "get failed"})
		return 0, false
	}
	if n == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return 0, false
	}
	return id, true
}
