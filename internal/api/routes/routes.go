package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/MoAftaab/slidecast/internal/api/handlers"
)

type Deps struct {
	Presentation *handlers.PresentationHandler
	WS           *handlers.WSHandler
}

func RegisterRoutes(r *gin.Engine, d Deps) {
	// Health-ish
	r.GET("/ping", func(c *gin.Context) {
		c.JSON(200, gin.H{"message": "pong"})
	})

	api := r.Group("/api/audio")

	api.POST("/process", d.Presentation.Process)
	api.GET("/status/:id", d.Presentation.Status)
	api.GET("/content/:id", d.Presentation.Content)
	api.GET("/stream/:id", d.Presentation.Stream)
	api.GET("/api-status", d.Presentation.APIStatus)

	// WebSocket
	r.GET("/ws/presentations/:id", d.WS.StatusWS)
}
