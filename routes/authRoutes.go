package routes

import (
	"safasajha-be/controllers"

	"github.com/gin-gonic/gin"
)

// AuthRoutes sets up the authentication routes
func AuthRoutes(r *gin.Engine, ac *controllers.AuthController, auth gin.HandlerFunc) {
	authGroup := r.Group("/api/auth")
	{
		authGroup.POST("/register", ac.Register)
		authGroup.POST("/login", ac.Login)
		authGroup.GET("/me", auth, ac.Me)
		authGroup.POST("/logout", auth, ac.Logout)
	}
	r.POST("/api/change-password", auth, ac.ChangePassword)
}
