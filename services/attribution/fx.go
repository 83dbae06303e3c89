package attribution

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/fx"
)

var Module = fx.Module("attribution.service",
	fx.Provide(
		NewService,
		NewHandler,
	),
	fx.Invoke(registerRoutes),
)

func registerRoutes(router *gin.Engine, handler *Handler) {
	handler.Register(router)
}
