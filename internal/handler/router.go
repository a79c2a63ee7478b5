package handler

import (
	"loyaltysystem/internal/config"

	"github.com/gin-gonic/gin"
)

// SetupRouter 配置路由
func SetupRouter(h *Handler, cfg *config.Config) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()

	r.Use(LoggerMiddleware())
	r.Use(RecoveryMiddleware())
	r.Use(CORSMiddleware())

	// 健康检查
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// 注册验证，无需登录态
	public := r.Group("/api")
	{
		public.POST("/register", h.Register)
		public.POST("/verify", h.Verify)
	}

	// 业务接口，JWT 鉴权
	api := r.Group("/api/v1")
	api.Use(AuthMiddleware(cfg))
	{
		// 扫码核销：统一入口按载荷路由，另有按链路的专用入口
		api.POST("/scan", h.Scan)
		api.POST("/scan/earn", h.ScanEarn)
		api.POST("/scan/redeem", h.ScanRedeem)

		// 会员账户
		user := api.Group("/user")
		{
			user.GET("/profile", h.GetProfile)
			user.POST("/profile", h.UpdateProfile)
			user.GET("/balance", h.GetBalance)
		}

		// 奖品
		reward := api.Group("/reward")
		{
			reward.GET("/list", h.ListRewards)
			reward.POST("/redeem", h.RedeemReward)
		}

		// 生日奖励
		api.POST("/bonus/birthday", h.CheckBirthdayBonus)

		// 活动流水
		activity := api.Group("/activity")
		{
			activity.GET("/list", h.ListActivities)
			activity.GET("/audit", h.AuditActivities)
		}

		// 菜单与应用状态
		api.GET("/menu/list", h.ListMenu)
		api.GET("/meta/status", h.GetMetaStatus)

		// 收银端签发
		cashier := api.Group("/cashier")
		{
			cashier.POST("/earn-code", h.IssueEarnCode)
			cashier.POST("/redeem-code", h.IssueRedeemCode)
		}
	}

	return r
}
