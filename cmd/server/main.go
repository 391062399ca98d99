// Package main 是应用程序的入口点。
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"qudao-go/internal/config"
	"qudao-go/internal/handler"
	"qudao-go/internal/middleware"
	"qudao-go/internal/model"
	"qudao-go/internal/repository"
	"qudao-go/internal/service"
	"qudao-go/pkg/database"
	"qudao-go/pkg/kafka"
	"qudao-go/pkg/log"
	"qudao-go/pkg/storage"
	"qudao-go/pkg/token"
)

func main() {
	// 1. 初始化配置
	config.Init("./configs/config.yaml")
	cfg := config.Conf

	// 2. 初始化日志记录器
	log.Init(cfg.Log.Level, cfg.Log.Format, cfg.Log.OutputPath)
	defer log.Sync() // 确保在程序退出时刷新所有缓冲的日志条目
	log.Info("日志记录器初始化成功")

	// 3. 初始化数据库、Redis 和对象存储
	database.InitMySQL(cfg.Database.MySQL.DSN)
	database.InitRedis(cfg.Database.Redis.Addr, cfg.Database.Redis.Password, cfg.Database.Redis.DB)
	database.Migrate()
	storage.InitMinIO(cfg.MinIO)

	// 4. 初始化 Repository
	userRepo := repository.NewUserRepository(database.DB)
	posterRepo := repository.NewPosterRepository(database.DB)
	chatLogRepo := repository.NewChatLogRepository(database.DB)

	// 5. 初始化 Service (依赖注入)
	jwtManager := token.NewJWTManager(cfg.JWT.Secret, cfg.JWT.AccessTokenExpireHours, cfg.JWT.RefreshTokenExpireDays)
	authService := service.NewAuthService(userRepo, jwtManager, time.Duration(cfg.Auth.LoginTimeoutSeconds)*time.Second)
	accountService := service.NewAccountService(userRepo, cfg.Tree.RootAdminID)
	teamService := service.NewTeamService(userRepo)
	leadService := service.NewLeadService(userRepo, chatLogRepo)
	posterService := service.NewPosterService(posterRepo, userRepo, cfg.MinIO)

	// 6. 落库约定 ID 的根管理员，邀请链顶端不再依赖运行期兜底
	if err := accountService.EnsureRootAdmin(cfg.Tree.RootAdminMobile); err != nil {
		log.Fatal("初始化根管理员失败", err)
	}

	// 7. 启动后台 Kafka 消费者，灌入外部 AI 侧的聊天记录
	go kafka.StartConsumer(cfg.Kafka, leadService)

	// 8. 设置 Gin 模式并创建路由引擎
	gin.SetMode(cfg.Server.Mode)
	r := gin.New() // 使用 New() 创建一个不带默认中间件的引擎
	// 添加我们自定义的日志中间件和 Gin 的 Recovery 中间件
	r.Use(middleware.RequestLogger(), gin.Recovery())

	// 9. 注册路由
	authHandler := handler.NewAuthHandler(authService)
	accountHandler := handler.NewAccountHandler(accountService)
	teamHandler := handler.NewTeamHandler(teamService)
	leadHandler := handler.NewLeadHandler(teamService, leadService)
	posterHandler := handler.NewPosterHandler(posterService)

	apiV1 := r.Group("/api/v1")
	{
		// Auth 路由组
		auth := apiV1.Group("/auth")
		{
			auth.POST("/login", authHandler.Login)
			auth.POST("/admin-login", authHandler.AdminLogin)
			auth.POST("/refreshToken", authHandler.RefreshToken)
			auth.POST("/logout",
				middleware.AuthMiddleware(jwtManager, authService), authHandler.Logout)
		}

		users := apiV1.Group("/users")
		{
			// 扫码注册无需认证（注册前还没有账号）
			users.POST("/register", accountHandler.Register)

			authed := users.Group("/")
			authed.Use(middleware.AuthMiddleware(jwtManager, authService))
			{
				authed.POST("/upgrade", accountHandler.Upgrade)
				authed.PUT("/me", accountHandler.UpdateProfile)
			}
		}

		// Team 路由组，需要认证
		team := apiV1.Group("/team")
		team.Use(middleware.AuthMiddleware(jwtManager, authService))
		{
			team.GET("/members", teamHandler.Members)
			team.GET("/dashboard", teamHandler.Dashboard)
		}

		// Lead 路由组，需要认证
		leads := apiV1.Group("/leads")
		leads.Use(middleware.AuthMiddleware(jwtManager, authService))
		{
			leads.GET("", leadHandler.List)
			leads.POST("/:id/follow-ups", leadHandler.AddFollowUp)
			leads.GET("/:id/chat-logs", leadHandler.ChatLogs)
		}

		// Poster 路由组，需要认证；招募数按查看者重算
		posters := apiV1.Group("/posters")
		posters.Use(middleware.AuthMiddleware(jwtManager, authService))
		{
			posters.GET("", posterHandler.List)
		}

		admin := apiV1.Group("/admin")
		// 管理员路由组，需要同时通过认证和角色授权两个中间件
		admin.Use(middleware.AuthMiddleware(jwtManager, authService))
		{
			// 审核入口对任意已认证的上级开放，范围校验在 service 层
			admin.PUT("/users/:id/audit", accountHandler.Audit)

			adminOnly := admin.Group("/")
			adminOnly.Use(middleware.RequireRole(model.RoleAdmin))
			{
				adminOnly.POST("/users", accountHandler.CreateSuperAdmin)
				adminOnly.POST("/posters", posterHandler.Create)
				adminOnly.PUT("/posters/:id", posterHandler.Update)
				adminOnly.DELETE("/posters/:id", posterHandler.Delete)
				adminOnly.POST("/posters/upload", posterHandler.UploadImage)
			}
		}
	}

	// 启动 HTTP 服务器并实现优雅停机
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: r,
	}

	go func() {
		log.Infof("服务启动于 %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("HTTP 服务监听失败: %s\n", err)
		}
	}()

	// 等待中断信号以实现优雅停机
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("接收到停机信号，正在关闭服务...")

	// 设置一个5秒的超时上下文
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("HTTP 服务器关闭失败: %v", err)
	}

	// Kafka 消费循环会随进程退出自然结束，无需单独关闭。
	log.Info("服务已优雅关闭")
}
