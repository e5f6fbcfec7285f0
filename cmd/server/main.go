package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata" // 确保在精简镜像中也能识别时区

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/user/moviesite/internal/config"
	"github.com/user/moviesite/internal/handler"
	"github.com/user/moviesite/internal/repository"
	"github.com/user/moviesite/internal/router"
	"github.com/user/moviesite/internal/service"
	"github.com/user/moviesite/internal/storage"
)

func main() {
	// 加载环境变量
	if err := godotenv.Load(); err != nil {
		log.Println("未找到 .env 文件，使用系统环境变量")
	}

	// 加载配置
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("配置加载失败: %v", err)
	}

	// 初始化数据库
	db, err := repository.InitDB(cfg)
	if err != nil {
		log.Fatalf("数据库连接失败: %v", err)
	}

	sqlDB, _ := db.DB()
	defer sqlDB.Close()

	if err := repository.Migrate(db); err != nil {
		log.Fatalf("数据库迁移失败: %v", err)
	}

	// 初始化仓库
	repos := repository.NewRepositories(db)

	// 初始管理员
	if cfg.AdminUsername != "" && cfg.AdminPassword != "" {
		created, err := repos.User.EnsureStaff(cfg.AdminUsername, cfg.AdminPassword)
		if err != nil {
			log.Fatalf("创建管理员失败: %v", err)
		}
		if created {
			log.Printf("已创建管理员账号: %s", cfg.AdminUsername)
		}
	}

	// 媒体存储
	media, err := storage.NewMediaStore(cfg.MediaRoot)
	if err != nil {
		log.Fatalf("媒体目录初始化失败: %v", err)
	}

	// 初始化 Gin
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	// 初始化 Handler
	h := handler.NewHandler(repos, cfg, media)

	r, err := router.NewEngine(h)
	if err != nil {
		log.Fatalf("路由初始化失败: %v", err)
	}

	// 启动定时清理任务
	ctx, stop := context.WithCancel(context.Background())
	defer stop()
	cleanupSvc := service.NewCleanupService(media, repos.Movie, repos.Profile, cfg.CleanupInterval)
	cleanupSvc.Start(ctx)

	// 配置 HTTP 服务器，上传视频需要较长的读取时间
	srv := &http.Server{
		Addr:           ":" + cfg.Port,
		Handler:        r,
		ReadTimeout:    5 * time.Minute,
		WriteTimeout:   5 * time.Minute,
		MaxHeaderBytes: 1 << 20,
	}

	// 在 goroutine 中启动服务器，这样我们就可以监听信号
	go func() {
		log.Printf("服务器启动于 http://localhost:%s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("服务器启动失败: %v", err)
		}
	}()

	// 等待中断信号以优雅地关闭服务器
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("正在关闭服务器...")
	stop()

	// 5 秒超时上下文用于关闭过程
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatal("服务器强制关闭:", err)
	}

	log.Println("服务器已退出")
}
