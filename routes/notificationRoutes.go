package routes

import (
	"safasajha-be/controllers"

	"github.com/gin-gonic/gin"
)

func NotificationRoutes(r *gin.Engine, nc *controllers.NotificationController, auth gin.HandlerFunc) {
	notifications := r.Group("/api/notifications", auth)
	{
		notifications.GET("", nc.List)
		notifications.PUT("/read-all", nc.MarkAllRead)
		notifications.PUT("/:id/read", nc.MarkRead)
		notifications.DELETE("/:id", nc.Delete)
	}
}
