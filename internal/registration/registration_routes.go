package registration

import (
	"github.com/azydesilva/Ecorporate-sub004/internal/middleware"

	"github.com/gin-gonic/gin"
)

func RegisterRoutes(r *gin.RouterGroup, handler *Handler) {
	regs := r.Group("/registrations")
	regs.Use(middleware.AuthMiddleware(), middleware.ExtractUserID())
	{
		regs.POST("", middleware.RateLimitByIP(5, 10), middleware.RateLimitByUser(1, 5), handler.Create)
		regs.GET("/:id", handler.Get)
		regs.POST("/:id/stages/:stage", middleware.RateLimitByIP(5, 10), middleware.RateLimitByUser(2, 5), handler.SubmitStage)
		regs.GET("/:id/content/:stage", handler.ContentAccess)
		regs.POST("/:id/update-information", handler.BeginUpdate)
		regs.POST("/:id/cancel", handler.Cancel)

		staff := regs.Group("")
		staff.Use(middleware.RoleMiddleware("staff", "admin"))
		{
			staff.GET("", handler.List)
			staff.PUT("/:id", handler.Replace)
			staff.POST("/:id/actions/:action", handler.StaffAction)
			staff.POST("/:id/pin", handler.SetPinned)
			staff.POST("/:id/note", handler.SetNoted)
		}
	}
}
