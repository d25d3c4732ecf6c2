package routes

import (
	"safasajha-be/controllers"

	"github.com/gin-gonic/gin"
)

func UserRoutes(r *gin.Engine, uc *controllers.UserController, auth gin.HandlerFunc) {
	users := r.Group("/api/users", auth)
	{
		users.GET("/profile", uc.GetProfile)
		users.PUT("/profile", uc.UpdateProfile)
		users.PUT("/preferences", uc.UpdatePreferences)
		users.GET("/stats", uc.Stats)
	}
}
