package app

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/yinkev/Americano-sub009/internal/config"
	"github.com/yinkev/Americano-sub009/internal/controller"
	"github.com/yinkev/Americano-sub009/internal/repository"
	"github.com/yinkev/Americano-sub009/internal/service"
	"github.com/yinkev/Americano-sub009/pkg/database"
	"github.com/yinkev/Americano-sub009/pkg/logger"
	"github.com/yinkev/Americano-sub009/pkg/monitoring"
	"github.com/yinkev/Americano-sub009/pkg/tracing"
)

type App struct {
	Config   *config.Config
	Router   *gin.Engine
	DB       *gorm.DB
	Redis    *redis.Client
	services *services
}

type repositories struct {
	user      *repository.UserRepository
	course    *repository.CourseRepository
	objective *repository.ObjectiveRepository
	review    *repository.ReviewRepository
	metric    *repository.PerformanceRepository
	mission   *repository.MissionRepository
}

type services struct {
	auth        *service.AuthService
	catalog     *service.CatalogService
	performance *service.PerformanceService
	priority    *service.PriorityService
	mission     *service.MissionService
}

type controllers struct {
	auth        *controller.AuthController
	catalog     *controller.CatalogController
	performance *controller.PerformanceController
	mission     *controller.MissionController
	health      *controller.HealthController
}

func (a *App) initRepositories(db *gorm.DB) *repositories {
	return &repositories{
		user:      repository.NewUserRepository(db),
		course:    repository.NewCourseRepository(db),
		objective: repository.NewObjectiveRepository(db),
		review:    repository.NewReviewRepository(db),
		metric:    repository.NewPerformanceRepository(db),
		mission:   repository.NewMissionRepository(db),
	}
}

func (a *App) initServices(repos *repositories, cfg *config.Config, rdb *redis.Client) *services {
	s := &services{}

	s.auth = service.NewAuthService(repos.user, cfg)
	s.catalog = service.NewCatalogService(repos.course, repos.objective)
	s.performance = service.NewPerformanceService(repos.objective, repos.review, repos.metric, rdb)
	s.priority = service.NewPriorityService()
	s.mission = service.NewMissionService(repos.mission, repos.objective, repos.review, repos.user, s.priority, rdb, cfg.Mission)

	return s
}

func (a *App) initControllers(s *services, db *gorm.DB) *controllers {
	return &controllers{
		auth:        controller.NewAuthController(s.auth),
		catalog:     controller.NewCatalogController(s.catalog),
		performance: controller.NewPerformanceController(s.performance, a.Config),
		mission:     controller.NewMissionController(s.mission),
		health:      controller.NewHealthController(db),
	}
}

// ApplyConfig propagates a hot-reloaded config to the running services.
// Only mission tuning is applied live; server/database changes need a
// restart.
func (a *App) ApplyConfig(cfg *config.Config) {
	if a.services == nil {
		return
	}
	a.services.mission.SetTuning(cfg.Mission)
	logger.Log.Info("mission tuning reloaded",
		zap.Int("targetMinutes", cfg.Mission.TargetMinutes),
		zap.Float64("overloadFactor", cfg.Mission.OverloadFactor),
		zap.Float64("underloadFactor", cfg.Mission.UnderloadFactor))
}

func NewApp(cfg *config.Config) *App {
	logger.InitLogger(cfg)
	defer logger.Log.Sync()

	logger.Log.Info("Logger initialized successfully")

	db, err := database.InitDB(&cfg.Database)
	if err != nil {
		logger.Log.Fatal("Failed to initialize database", zap.Error(err))
	}

	rdb, err := database.InitRedis(&cfg.Redis)
	if err != nil {
		logger.Log.Fatal("Failed to initialize redis", zap.Error(err))
	}

	app := &App{
		Config: cfg,
		DB:     db,
		Redis:  rdb,
	}

	repos := app.initRepositories(db)
	services := app.initServices(repos, cfg, rdb)
	app.services = services
	controllers := app.initControllers(services, db)

	monitoring.Init()

	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	app.Router = router

	app.setupMiddlewares(router, cfg)

	if cfg.Tracing.Enabled {
		if _, err := tracing.InitTracer("americano", cfg.Tracing.CollectorEndpoint); err != nil {
			logger.Log.Fatal("Failed to initialize tracing", zap.Error(err))
		}
	}

	app.registerRoutes(router, controllers, cfg)

	return app
}

func (a *App) Run() {
	srv := &http.Server{
		Addr:    ":" + a.Config.Server.Port,
		Handler: a.Router,
	}

	go func() {
		log.Printf("Server running on port %s", a.Config.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %s\n", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	log.Println("Server exiting")
}
