package routes

import (
	"safasajha-be/controllers"
	"safasajha-be/middlewares"

	"github.com/gin-gonic/gin"
)

// WasteRoutes sets up report submission, tracking and the admin report actions
func WasteRoutes(r *gin.Engine, wc *controllers.WasteController, auth, limiter gin.HandlerFunc) {
	waste := r.Group("/api/waste", auth)
	{
		waste.POST("/report", limiter, wc.CreateReport)
		waste.GET("/reports", wc.ListOwn)
		waste.GET("/reports/completed", wc.ListCompleted)
		waste.GET("/stats", wc.Stats)
		waste.GET("/reports/:id", wc.GetReport)
		waste.PUT("/reports/:id", wc.UpdateReport)
		waste.DELETE("/reports/:id", wc.DeleteReport)
		waste.PUT("/reports/:id/status", middlewares.AdminOnly(), wc.UpdateStatus)
		waste.POST("/reports/:id/feedback", wc.SubmitFeedback)
		waste.POST("/reports/:id/images", wc.UploadImage)
	}

	admin := waste.Group("/admin", middlewares.AdminOnly())
	{
		admin.GET("/reports", wc.ListAll)
		admin.PUT("/reports/:id/assign", wc.Assign)
	}
}
