package attribution

import (
	"net/http"

	"linklock/pkg/errutil"

	"github.com/gin-gonic/gin"
)

const ownerHeader = "X-User-ID"

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) Register(router *gin.Engine) {
	router.GET("/api/balance", h.balance)
	router.GET("/api/revenue-events", h.events)
}

func (h *Handler) balance(c *gin.Context) {
	owner := c.GetHeader(ownerHeader)
	if owner == "" {
		c.Error(errutil.Unauthorized("owner is required"))
		return
	}

	balance, err := h.svc.GetBalance(c.Request.Context(), owner)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"balance": balance})
}

func (h *Handler) events(c *gin.Context) {
	owner := c.GetHeader(ownerHeader)
	if owner == "" {
		c.Error(errutil.Unauthorized("owner is required"))
		return
	}

	events, err := h.svc.ListEvents(c.Request.Context(), owner)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": events})
}
