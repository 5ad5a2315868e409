package router

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"team-sports/backend/config"
	"team-sports/backend/internal/api/handler"
	"team-sports/backend/internal/api/middleware"
	"team-sports/backend/internal/model"
	"team-sports/backend/pkg/jwt"
	"team-sports/backend/pkg/metrics"
	"team-sports/backend/pkg/redis"
)

// Setup 初始化并返回 Gin 路由引擎
// rdb、m 可为 nil（未启用 Redis / 指标）
func Setup(
	cfg *config.Config,
	h *handler.Handler,
	jwtMgr *jwt.Manager,
	rdb *redis.Client,
	db *gorm.DB,
	m *metrics.Metrics,
	logger *zap.Logger,
) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()

	// ── 全局中间件 ──
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Tracing())
	if m != nil {
		r.Use(middleware.Metrics(m))
	}
	r.Use(middleware.Logger(logger))
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.CORS(cfg.Server.CORS.AllowOrigins))
	r.Use(middleware.BodyLimit(cfg.Server.MaxBodyBytes))

	// ── 运维端点 ──
	r.GET("/health", handler.NewHealthHandler(db, rdb).Check)
	if m != nil {
		r.GET(cfg.Metrics.Path, gin.WrapH(m.Handler()))
	}

	admin := middleware.RoleAuth(model.RoleAdmin)
	staff := middleware.RoleAuth(model.RoleAdmin, model.RoleCoach)

	// ── API v1 ──
	v1 := r.Group("/api/v1")
	{
		// 认证模块（无需认证）
		auth := v1.Group("/auth")
		{
			auth.POST("/login", middleware.RateLimit(rdb, cfg.Auth.LoginRateLimit, cfg.Auth.LoginRateWindow, logger), h.Auth.Login)
			auth.POST("/refresh", h.Auth.RefreshToken)
		}

		// 需要认证的路由
		authorized := v1.Group("")
		authorized.Use(middleware.JWTAuth(jwtMgr, rdb, logger))
		{
			// 认证模块（需要认证）
			authorized.POST("/auth/logout", h.Auth.Logout)
			authorized.GET("/auth/me", h.Auth.GetCurrentUser)
			authorized.PUT("/auth/password", h.Auth.ChangePassword)

			// 用户模块
			users := authorized.Group("/users")
			{
				users.GET("", staff, h.User.ListUsers)
				users.POST("", admin, h.User.CreateUser)
				users.POST("/import", staff, h.User.ImportUsers) // 教练仅本队（Service 层鉴权）
				users.GET("/:id", h.User.GetUser)
				users.PUT("/:id", h.User.UpdateUser) // admin 或本人（Service 层鉴权）
				users.DELETE("/:id", admin, h.User.DeleteUser)
				users.PUT("/:id/role", admin, h.User.AssignRole)
				users.PUT("/:id/team", staff, h.User.AssignTeam)
				users.POST("/:id/reset-password", admin, h.User.ResetPassword)
			}

			// 球队模块
			teams := authorized.Group("/teams")
			{
				teams.GET("", h.Team.ListTeams)
				teams.POST("", admin, h.Team.CreateTeam)
				teams.GET("/:id", h.Team.GetTeam)
				teams.PUT("/:id", staff, h.Team.UpdateTeam)
				teams.DELETE("/:id", admin, h.Team.DeleteTeam)
				teams.GET("/:id/members", h.Team.GetMembers)

				// 聚合日程
				teams.GET("/:id/schedule", h.Schedule.GetTeamSchedule)
				teams.GET("/:id/schedule.ics", h.Schedule.GetTeamCalendar)
				teams.GET("/:id/schedule/export", staff, h.Export.ExportTeamSchedule)
			}

			// 日程维护：训练 / 会议 / 比赛
			registerEntryRoutes(authorized.Group("/practices"), model.SourcePractice, h.Entry.CreatePractice, h.Entry.UpdatePractice, h.Entry, staff)
			registerEntryRoutes(authorized.Group("/meetings"), model.SourceMeeting, h.Entry.CreateMeeting, h.Entry.UpdateMeeting, h.Entry, staff)
			registerEntryRoutes(authorized.Group("/games"), model.SourceGame, h.Entry.CreateGame, h.Entry.UpdateGame, h.Entry, staff)

			// 公告模块
			announcements := authorized.Group("/announcements")
			{
				announcements.GET("", h.Announcement.List)
				announcements.GET("/:id", h.Announcement.Get)
				announcements.POST("", staff, h.Announcement.Create)
				announcements.PUT("/:id", staff, h.Announcement.Update)
				announcements.DELETE("/:id", staff, h.Announcement.Delete)
			}

			// 仪表盘
			authorized.GET("/dashboard", h.Dashboard.Get)
		}
	}

	return r
}

func registerEntryRoutes(
	g *gin.RouterGroup,
	source model.EventSource,
	create, update gin.HandlerFunc,
	h *handler.EntryHandler,
	staff gin.HandlerFunc,
) {
	g.GET("", h.List(source))
	g.GET("/:id", h.Get(source))
	g.POST("", staff, create)
	g.PUT("/:id", staff, update)
	g.DELETE("/:id", staff, h.Delete(source))
}
