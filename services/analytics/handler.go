package analytics

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) Register(router *gin.Engine) {
	router.GET("/api/lockers/:id/analytics", h.summary)
}

func (h *Handler) summary(c *gin.Context) {
	summary, err := h.svc.Summarize(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, summary)
}
