package server

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/aluiziolira/okawa-catalog/catalog"
	"github.com/aluiziolira/okawa-catalog/models"
	"github.com/aluiziolira/okawa-catalog/order"
	"github.com/gin-gonic/gin"
)

const (
	msgInternal        = "Error interno del servidor"
	msgNoStatus        = "Sin registros"
	msgRefreshStarted  = "Actualización iniciada"
	msgRefreshRunning  = "Ya hay una actualización en curso"
	msgRefreshThrottle = "Demasiadas solicitudes de actualización, intente más tarde"
)

type orderRequest struct {
	Items []order.LineRequest `json:"items"`
}

func (s *Server) handlePing(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (s *Server) handleArticles(c *gin.Context) {
	filters := models.Filters{
		Code:         c.Query("codigo"),
		Description:  c.Query("descripcion"),
		Availability: c.Query("disponibilidad"),
		Category:     c.Query("rubro"),
		Brand:        c.Query("marca"),
		PriceList:    c.Query("lista"),
	}
	page := queryInt(c, "page", 1)
	limit := queryInt(c, "limit", 0)

	result, err := s.catalog.Query(c.Request.Context(), filters, page, limit)
	if err != nil {
		internalError(c, "query articles", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"ok":        true,
		"total":     result.Total,
		"page":      result.Page,
		"limit":     result.Limit,
		"articulos": result.Articles,
	})
}

func (s *Server) handleFacet(facet catalog.Facet, field string) gin.HandlerFunc {
	return func(c *gin.Context) {
		values, err := s.catalog.Facet(c.Request.Context(), facet)
		if err != nil {
			internalError(c, "list "+field, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"ok": true, field: values})
	}
}

func (s *Server) handleStatus(c *gin.Context) {
	status, err := s.catalog.Status(c.Request.Context())
	if err != nil {
		internalError(c, "load status", err)
		return
	}
	if status == nil {
		c.JSON(http.StatusOK, gin.H{"estado": msgNoStatus})
		return
	}
	c.JSON(http.StatusOK, status)
}

func (s *Server) handleRefresh(c *gin.Context) {
	if s.refresher.Running() {
		c.JSON(http.StatusOK, gin.H{"ok": false, "mensaje": msgRefreshRunning})
		return
	}
	if !s.limiter.Allow() {
		c.JSON(http.StatusTooManyRequests, gin.H{"ok": false, "mensaje": msgRefreshThrottle})
		return
	}
	s.startRefresh()
	c.JSON(http.StatusOK, gin.H{"ok": true, "mensaje": msgRefreshStarted})
}

func (s *Server) handleOrder(c *gin.Context) {
	var req orderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "cuerpo inválido: " + err.Error()})
		return
	}

	quote, err := order.NewQuote(c.Request.Context(), req.Items, s.catalog, s.pricing)
	switch {
	case errors.Is(err, order.ErrEmptyOrder),
		errors.Is(err, order.ErrInvalidQuantity),
		errors.Is(err, order.ErrUnknownArticle):
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": err.Error()})
		return
	case err != nil:
		internalError(c, "quote order", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "pedido": quote})
}

// queryInt reads a positive integer parameter, falling back to def.
func queryInt(c *gin.Context, key string, def int) int {
	n, err := strconv.Atoi(c.Query(key))
	if err != nil || n < 1 {
		return def
	}
	return n
}

func internalError(c *gin.Context, op string, err error) {
	slog.Error("request failed",
		slog.String("op", op),
		slog.String("path", c.Request.URL.Path),
		slog.Any("error", err),
	)
	c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": msgInternal})
}
