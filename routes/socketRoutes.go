package routes

import (
	"net/http"

	"safasajha-be/controllers"

	"github.com/gin-gonic/gin"
)

// SocketRoutes sets up the real-time channel and the liveness endpoints
func SocketRoutes(r *gin.Engine, sc *controllers.SocketController, auth gin.HandlerFunc) {
	r.GET("/ws", auth, sc.Serve)
	r.GET("/health", sc.Health)
	r.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})
}
