package routes

import (
	"safasajha-be/controllers"
	"safasajha-be/middlewares"

	"github.com/gin-gonic/gin"
)

func AdminRoutes(r *gin.Engine, ad *controllers.AdminController, wc *controllers.WasteController, auth gin.HandlerFunc) {
	admin := r.Group("/api/admin", auth, middlewares.AdminOnly())
	{
		admin.GET("/dashboard", ad.Dashboard)
		admin.GET("/analytics", ad.Analytics)
		admin.GET("/reports", wc.ListAll)
		admin.GET("/feedback", ad.Feedback)

		admin.GET("/users", ad.ListUsers)
		admin.GET("/users/:id", ad.GetUser)
		admin.PUT("/users/:id", ad.UpdateUser)
		admin.DELETE("/users/:id", ad.DeactivateUser)

		admin.POST("/notifications/broadcast", ad.Broadcast)
	}
}
