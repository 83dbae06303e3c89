package locker

import (
	"net/http"

	"linklock/pkg/errutil"

	"github.com/gin-gonic/gin"
)

// ownerHeader carries the authenticated account id. Authentication itself is
// handled upstream by the identity provider; the core trusts the header the
// gateway injects.
const ownerHeader = "X-User-ID"

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) Register(router *gin.Engine) {
	router.POST("/api/lockers", h.create)
	router.GET("/api/lockers", h.list)
	router.GET("/api/lockers/:id", h.get)
	router.PUT("/api/lockers/:id", h.update)
}

type lockerRequest struct {
	Title          string `json:"title"`
	DestinationURL string `json:"destination_url"`
}

func (h *Handler) create(c *gin.Context) {
	var req lockerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(errutil.BadRequest("invalid request body", errutil.WithErr(err)))
		return
	}

	locker, err := h.svc.Create(c.Request.Context(), c.GetHeader(ownerHeader), req.Title, req.DestinationURL)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, locker)
}

func (h *Handler) list(c *gin.Context) {
	lockers, err := h.svc.ListByOwner(c.Request.Context(), c.GetHeader(ownerHeader))
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": lockers})
}

func (h *Handler) get(c *gin.Context) {
	locker, err := h.svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, locker)
}

func (h *Handler) update(c *gin.Context) {
	var req lockerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(errutil.BadRequest("invalid request body", errutil.WithErr(err)))
		return
	}

	locker, err := h.svc.Update(c.Request.Context(), c.GetHeader(ownerHeader), c.Param("id"), req.Title, req.DestinationURL)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, locker)
}
