package controllers

import (
	"net/http"

	"safasajha-be/middlewares"
	"safasajha-be/realtime"

	"github.com/apex/log"
	"github.com/gin-gonic/gin"
)

type SocketController struct {
	hub *realtime.Hub
}

func NewSocketController(hub *realtime.Hub) *SocketController {
	return &SocketController{hub: hub}
}

// Serve upgrades GET /ws for the authenticated user; the client then joins its own channel.
func (sc *SocketController) Serve(c *gin.Context) {
	userID := c.GetString(middlewares.UserIDKey)
	if userID == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "User not authenticated"})
		return
	}
	if err := realtime.ServeWs(sc.hub, c.Writer, c.Request, userID); err != nil {
		// the upgrader has already written the HTTP error
		log.WithError(err).WithField("user", userID).Warn("websocket upgrade failed")
	}
}

func (sc *SocketController) Health(c *gin.Context) {
	clients, delivered := sc.hub.GetStats()
	c.JSON(http.StatusOK, gin.H{
		"status":            "ok",
		"connectedClients":  clients,
		"deliveredMessages": delivered,
	})
}
