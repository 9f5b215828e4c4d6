package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/SergeiKhy/linkshort/internal/models"
	"github.com/SergeiKhy/linkshort/internal/service"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Ответ для корня и неизвестных кодов
const placeholderBody = "URL Shortener API - Ready!"

type LinkHandler struct {
	links     service.LinkService
	redirects service.RedirectService
	logger    *zap.Logger
}

func NewLinkHandler(links service.LinkService, redirects service.RedirectService, logger *zap.Logger) *LinkHandler {
	return &LinkHandler{
		links:     links,
		redirects: redirects,
		logger:    logger,
	}
}

type ShortenRequest struct {
	URL         string  `json:"url" binding:"required"`
	Title       *string `json:"title"`
	Description *string `json:"description"`
	CustomShort *string `json:"customShort"`
}

type UpdateLinkRequest struct {
	URL         string  `json:"url" binding:"required"`
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Short       *string `json:"short"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

// Shorten POST /api/shorten
func (h *LinkHandler) Shorten(c *gin.Context) {
	var req ShortenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Debug("Invalid request body", zap.Error(err))
		badRequest(c, "Request body must be JSON with a non-empty url")
		return
	}

	link, err := h.links.CreateLink(c.Request.Context(), &models.CreateLinkInput{
		URL:         req.URL,
		Title:       req.Title,
		Description: req.Description,
		CustomShort: req.CustomShort,
	})
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, link)
}

// ListLinks GET /api/links?limit=N
func (h *LinkHandler) ListLinks(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > 100 {
			badRequest(c, "limit must be an integer between 1 and 100")
			return
		}
		limit = n
	}

	links, err := h.links.ListLinks(c.Request.Context(), limit)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	if links == nil {
		links = []models.Link{}
	}

	c.JSON(http.StatusOK, links)
}

// UpdateLink PUT /api/links/:id
func (h *LinkHandler) UpdateLink(c *gin.Context) {
	id, ok := h.parseID(c)
	if !ok {
		return
	}

	var req UpdateLinkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Debug("Invalid request body", zap.Error(err))
		badRequest(c, "Request body must be JSON with a non-empty url")
		return
	}

	link, err := h.links.UpdateLink(c.Request.Context(), id, &models.UpdateLinkInput{
		URL:         req.URL,
		Title:       req.Title,
		Description: req.Description,
		Short:       req.Short,
	})
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, link)
}

// DeleteLink DELETE /api/links/:id
func (h *LinkHandler) DeleteLink(c *gin.Context) {
	id, ok := h.parseID(c)
	if !ok {
		return
	}

	if err := h.links.DeleteLink(c.Request.Context(), id); err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, MessageResponse{Message: "Link deleted successfully"})
}

// GetStats GET /api/stats/:short
func (h *LinkHandler) GetStats(c *gin.Context) {
	link, err := h.links.GetLink(c.Request.Context(), c.Param("short"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, link)
}

// Redirect GET /:code
func (h *LinkHandler) Redirect(c *gin.Context) {
	code := c.Param("code")

	target, err := h.redirects.Resolve(c.Request.Context(), code)
	if err != nil {
		if !errors.Is(err, service.ErrNotFound) {
			respondError(c, h.logger, err)
			return
		}
		h.Home(c)
		return
	}

	c.Redirect(http.StatusFound, target)
}

// Home отвечает на / и на неизвестные коды
func (h *LinkHandler) Home(c *gin.Context) {
	c.String(http.StatusOK, placeholderBody)
}

func (h *LinkHandler) parseID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		badRequest(c, "Link id must be a positive integer")
		return 0, false
	}
	return id, true
}
