package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	_ "github.com/lib/pq"
	"github.com/sirupsen/logrus"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "taskboard/docs"
	"taskboard/internal/cache"
	"taskboard/internal/config"
	"taskboard/internal/handlers"
	"taskboard/internal/logging"
	"taskboard/internal/pdf"
	"taskboard/internal/repositories"
	"taskboard/internal/routes"
	"taskboard/internal/services"
)

func Run() {
	cfg := config.LoadConfig()
	logging.Init(logging.Options{Service: "taskboard", Level: cfg.Log.Level, File: cfg.Log.File})
	log := logging.Logger

	// === DB ===
	db, err := sql.Open("postgres", cfg.Database.DSN)
	if err != nil {
		log.Fatalf("[app][db] open: %v", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Errorf("[app][db] close: %v", err)
		}
	}()
	db.SetMaxOpenConns(20)
	db.SetConnMaxIdleTime(5 * time.Minute)

	// === Repos ===
	repos := services.Repositories{
		Members:        repositories.NewMemberRepository(db),
		Projects:       repositories.NewProjectRepository(db),
		Tasks:          repositories.NewTaskRepository(db),
		ProjectMembers: repositories.NewProjectMemberRepository(db),
		Assignments:    repositories.NewTaskAssignmentRepository(db),
	}

	// === Cache ===
	dashboardCache := newCache(cfg.Cache, log)
	ttl := services.TTLs{
		Member:      cfg.Cache.MemberTTL,
		Tasks:       cfg.Cache.TasksTTL,
		Projects:    cfg.Cache.ProjectsTTL,
		Assignments: cfg.Cache.AssignmentsTTL,
	}

	// === Services ===
	dashboard := services.NewDashboardManager(dashboardCache, repos, ttl, log.WithField("component", "dashboard"))
	defer func() {
		if err := dashboard.Close(); err != nil {
			log.Errorf("[app][cache] close: %v", err)
		}
	}()

	notifier := services.NoopNotifier()
	if cfg.Email.SMTPHost != "" {
		emailService := services.NewEmailService(
			cfg.Email.SMTPHost,
			cfg.Email.SMTPPort,
			cfg.Email.SMTPUser,
			cfg.Email.SMTPPassword,
			cfg.Email.FromEmail,
		)
		notifier = services.NewAssignmentNotifier(emailService, repos.Members, log)
	} else {
		log.Warnf("[app][email] smtp_host not set, assignment emails disabled")
	}

	sessions := services.NewSessionService(cfg.Auth.JWTSecret, cfg.Auth.Issuer, cfg.Auth.TokenTTL, cfg.Auth.Leeway)
	taskService := services.NewTaskService(repos.Tasks, repos.Projects, repos.Assignments, dashboard, notifier, log)
	projectService := services.NewProjectService(
		repos.Projects,
		repos.ProjectMembers,
		repos.Tasks,
		dashboard,
		pdf.NewReportGenerator(cfg.Reports.FontPath),
		log,
	)
	memberService := services.NewMemberService(repos.Members, repos.Projects, repos.ProjectMembers)

	// === Handlers ===
	authHandler := handlers.NewAuthHandler(sessions, dashboard)
	dashboardHandler := handlers.NewDashboardHandler(dashboard)
	memberHandler := handlers.NewMemberHandler(memberService)
	projectHandler := handlers.NewProjectHandler(projectService)
	taskHandler := handlers.NewTaskHandler(taskService)

	// === Gin ===
	gin.DefaultWriter = log.Writer()
	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())
	router.Use(corsMiddleware())

	router.GET("/healthz", healthz(db))
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	routes.SetupRoutes(
		router,
		sessions,
		dashboard,
		authHandler,
		dashboardHandler,
		memberHandler,
		projectHandler,
		taskHandler,
	)

	// === Run ===
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		log.Infof("[app] listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("[app] serve: %v", err)
		}
	}()

	<-ctx.Done()
	log.Infof("[app] shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Errorf("[app] shutdown: %v", err)
	}
}

// newCache builds the two-tier cache; without a usable durable path it
// falls back to memory only.
func newCache(cfg config.CacheConfig, log *logrus.Logger) *cache.Cache {
	opts := []cache.Option{
		cache.WithLogger(log.WithField("component", "cache")),
		cache.WithPrefix(cfg.Prefix),
	}
	if cfg.DurablePath == "" {
		return cache.New(opts...)
	}
	store, err := cache.OpenSQLite(cfg.DurablePath)
	if err != nil {
		log.Warnf("[app][cache] durable tier disabled: %v", err)
		return cache.New(opts...)
	}
	return cache.New(append(opts, cache.WithDurable(store))...)
}

func healthz(db *sql.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := db.PingContext(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "db": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Origin, Content-Type, Authorization")
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	}
}
