package renewal

import (
	"github.com/azydesilva/Ecorporate-sub004/internal/middleware"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

func RegisterRoutes(r *gin.RouterGroup, handler *Handler, rdb ...*redis.Client) {
	var redisClient *redis.Client
	if len(rdb) > 0 {
		redisClient = rdb[0]
	}

	regs := r.Group("/registrations/:id/renewals")
	regs.Use(middleware.AuthMiddleware(), middleware.ExtractUserID())
	{
		if redisClient != nil {
			regs.POST(
				"",
				middleware.Idempotency(redisClient),
				middleware.RateLimitByIP(5, 10),
				middleware.RateLimitByUser(1, 5),
				handler.Create,
			)
		} else {
			regs.POST("", middleware.RateLimitByIP(5, 10), middleware.RateLimitByUser(1, 5), handler.Create)
		}

		staff := regs.Group("")
		staff.Use(middleware.RoleMiddleware("staff", "admin"))
		{
			staff.GET("", handler.ListByRegistration)
		}
	}

	renewals := r.Group("/renewals")
	renewals.Use(middleware.AuthMiddleware(), middleware.ExtractUserID(), middleware.RoleMiddleware("staff", "admin"))
	{
		renewals.POST("/:id/approve", handler.Approve)
		renewals.POST("/:id/reject", handler.Reject)
		renewals.POST("/sweep", handler.SweepExpired)
	}
}
