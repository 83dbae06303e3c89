package visit

import (
	"net/http"
	"time"

	"linklock/pkg/errutil"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) Register(router *gin.Engine) {
	router.POST("/api/visits", h.start)
	router.GET("/api/visits/:id", h.get)
	router.POST("/api/visits/:id/tasks/:taskID/click", h.click)
	router.POST("/api/visits/:id/unlock", h.unlock)
	router.POST("/api/visits/:id/dropoff", h.dropoff)
}

type startRequest struct {
	LockerID string `json:"locker_id" binding:"required"`
	Referrer string `json:"referrer"`
}

// visitResponse is the visit as shown to the visitor. The destination stays
// hidden until the gate is cleared.
type visitResponse struct {
	ID             string      `json:"id"`
	LockerID       string      `json:"locker_id"`
	Device         string      `json:"device"`
	Country        string      `json:"country"`
	Tier           string      `json:"tier"`
	Tasks          []TaskState `json:"tasks"`
	StartedAt      time.Time   `json:"started_at"`
	Unlocked       bool        `json:"unlocked"`
	DestinationURL string      `json:"destination_url,omitempty"`
}

func toResponse(v *Visit) visitResponse {
	resp := visitResponse{
		ID:        v.ID,
		LockerID:  v.LockerID,
		Device:    string(v.Device),
		Country:   v.Country,
		Tier:      string(v.Tier),
		Tasks:     v.Tasks,
		StartedAt: v.StartedAt,
		Unlocked:  v.Unlocked,
	}
	if v.Unlocked {
		resp.DestinationURL = v.DestinationURL
	}
	return resp
}

func (h *Handler) start(c *gin.Context) {
	var req startRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(errutil.BadRequest("invalid request body", errutil.WithErr(err)))
		return
	}

	visit, err := h.svc.Start(c.Request.Context(), StartInput{
		LockerID:  req.LockerID,
		UserAgent: c.Request.UserAgent(),
		IP:        c.ClientIP(),
		Referrer:  req.Referrer,
	})
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, toResponse(visit))
}

func (h *Handler) get(c *gin.Context) {
	visit, err := h.svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, toResponse(visit))
}

func (h *Handler) click(c *gin.Context) {
	state, err := h.svc.ClickTask(c.Request.Context(), c.Param("id"), c.Param("taskID"))
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, state)
}

func (h *Handler) unlock(c *gin.Context) {
	visit, err := h.svc.Unlock(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, toResponse(visit))
}

func (h *Handler) dropoff(c *gin.Context) {
	if err := h.svc.Dropoff(c.Request.Context(), c.Param("id")); err != nil {
		c.Error(err)
		return
	}
	c.Status(http.StatusNoContent)
}
