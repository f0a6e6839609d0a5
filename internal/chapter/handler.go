package chapter

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"novelhub/internal/novel"
)

type Handler struct {
	Repo   *Repo
	Novels *novel.Repo
}

func NewHandler(repo *Repo, novels *novel.Repo) *Handler {
	return &Handler{Repo: repo, Novels: novels}
}

// RegisterRoutes mounts the chapter index under /novels and single
// chapters under /chapters.
func (h *Handler) RegisterRoutes(novels, chapters *gin.RouterGroup) {
	novels.GET("/:id/chapters", h.listByNovel) // GET /novels/:id/chapters
	chapters.GET("/:id", h.getByID)            // GET /chapters/:id
}

func (h *Handler) listByNovel(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}

	n, err := h.Novels.GetByID(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "get failed"})
		return
	}
	if n == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}

	limit := novel.ParseInt(c.Query("limit"), 100)
	offset := novel.ParseInt(c.Query("offset"), 0)

	total, err := h.Repo.CountByNovel(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "count failed"})
		return
	}
	items, err := h.Repo.ListByNovel(c.Request.Context(), id, limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"total":                       total,
		"latest_chapter_number":       n.LatestChapterNumber,
		"current_last_chapter_number": n.CurrentLastChapterNumber,
		"items":                       items,
	})
}

func (h *Handler) getByID(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	ch, err := h.Repo.GetByID(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "get failed"})
		return
	}
	if ch == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	c.JSON(http.StatusOK, ch)
}
