package novel

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"novelhub/internal/genre"
	"novelhub/internal/website"
	"novelhub/pkg/models"
)

type Handler struct {
	Repo     *Repo
	Genres   *genre.Repo
	Websites *website.Repo
}

func NewHandler(repo *Repo, genres *genre.Repo, websites *website.Repo) *Handler {
	return &Handler{Repo: repo, Genres: genres, Websites: websites}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("", h.list)        // GET /novels
	rg.GET("/:id", h.getByID) // GET /novels/:id
}

func (h *Handler) list(c *gin.Context) {
	q := ListQuery{
		Q:      c.Query("q"),
		Genre:  c.Query("genre"),
		Limit:  ParseInt(c.Query("limit"), 20),
		Offset: ParseInt(c.Query("offset"), 0),
	}
	if s := strings.TrimSpace(c.Query("completed")); s != "" {
		if b, err := strconv.ParseBool(s); err == nil {
			q.Completed = &b
		}
	}

	total, err := h.Repo.Count(c.Request.Context(), q)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "count failed"})
		return
	}

	items, err := h.Repo.List(c.Request.Context(), q)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"total":  total,
		"limit":  q.Limit,
		"offset": q.Offset,
		"items":  items,
	})
}

func (h *Handler) getByID(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}

	n, err := h.Repo.GetByID(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "get failed"})
		return
	}
	if n == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}

	genres, err := h.Genres.ListForNovel(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "get failed"})
		return
	}
	w, err := h.Websites.GetByID(c.Request.Context(), n.SourceWebsiteID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "get failed"})
		return
	}
	c.JSON(http.StatusOK, models.NovelWithGenres{Novel: *n, Genres: genres, Website: w})
}

// ParseInt reads a query integer, falling back to def.
func ParseInt(s string, def int) int {
	if strings.TrimSpace(s) == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}
