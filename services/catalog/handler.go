package catalog

import (
	"net/http"

	"linklock/pkg/config"
	"linklock/pkg/errutil"

	"github.com/gin-gonic/gin"
	"gorm.io/datatypes"
)

type Handler struct {
	svc *Service
	cfg *config.Config
}

func NewHandler(svc *Service, cfg *config.Config) *Handler {
	return &Handler{svc: svc, cfg: cfg}
}

func (h *Handler) Register(router *gin.Engine) {
	// The catalog read is public: visitors fetch it when a locker opens.
	router.GET("/api/tasks", h.list)

	admin := router.Group("/api/tasks", h.requireAdmin)
	admin.POST("", h.create)
	admin.PUT("/:id", h.update)
	admin.DELETE("/:id", h.delete)
}

// requireAdmin gates catalog writes. Identity management proper lives in an
// external provider; the service only checks the shared admin token.
func (h *Handler) requireAdmin(c *gin.Context) {
	if h.cfg.Admin.Token == "" || c.GetHeader("X-Admin-Token") != h.cfg.Admin.Token {
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
			"error": gin.H{"code": errutil.StatusForbidden, "message": "admin token required"},
		})
		return
	}
	c.Next()
}

func (h *Handler) list(c *gin.Context) {
	tasks, err := h.svc.ListTasks(c.Request.Context())
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": tasks})
}

type taskRequest struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	AdURL       string   `json:"ad_url"`
	Devices     []string `json:"devices"`
	CPMTier1    string   `json:"cpm_tier1"`
	CPMTier2    string   `json:"cpm_tier2"`
	CPMTier3    string   `json:"cpm_tier3"`
	Status      string   `json:"status"`
}

func (r taskRequest) toTask() *Task {
	return &Task{
		Title:       r.Title,
		Description: r.Description,
		AdURL:       r.AdURL,
		Devices:     datatypes.NewJSONSlice(r.Devices),
		CPMTier1:    r.CPMTier1,
		CPMTier2:    r.CPMTier2,
		CPMTier3:    r.CPMTier3,
		Status:      r.Status,
	}
}

func (h *Handler) create(c *gin.Context) {
	var req taskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(errutil.BadRequest("invalid request body", errutil.WithErr(err)))
		return
	}

	task, err := h.svc.CreateTask(c.Request.Context(), req.toTask())
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, task)
}

func (h *Handler) update(c *gin.Context) {
	var req taskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(errutil.BadRequest("invalid request body", errutil.WithErr(err)))
		return
	}

	task := req.toTask()
	task.ID = c.Param("id")

	updated, err := h.svc.UpdateTask(c.Request.Context(), task)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, updated)
}

func (h *Handler) delete(c *gin.Context) {
	if err := h.svc.DeleteTask(c.Request.Context(), c.Param("id")); err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}
