package visit

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/fx"
)

var Module = fx.Module("visit.service",
	fx.Provide(
		NewStore,
		NewService,
		NewHandler,
	),
	fx.Invoke(
		registerRoutes,
		registerWorker,
	),
)

func registerRoutes(router *gin.Engine, handler *Handler) {
	handler.Register(router)
}
