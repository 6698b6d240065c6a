package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/chatuz-park/gym-now-back/internal/api"
	"github.com/chatuz-park/gym-now-back/internal/config"
	"github.com/chatuz-park/gym-now-back/internal/logger"
	"github.com/chatuz-park/gym-now-back/internal/repository/mongo"
	"github.com/chatuz-park/gym-now-back/internal/service"
	"github.com/chatuz-park/gym-now-back/internal/storage"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// @title Gym Now API
// @version 1.0
// @description Gym management backend: clients, routines, assignments and progress.
// @BasePath /api/v1
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.
func main() {
	// --- Configuration ---
	cfg, err := config.LoadConfig(".")
	if err != nil {
		// No logger yet; the level itself comes from config.
		zap.NewExample().Fatal("could not load config", zap.Error(err))
	}

	log, err := logger.New(cfg.Log)
	if err != nil {
		zap.NewExample().Fatal("could not build logger", zap.Error(err))
	}
	defer func() { _ = log.Sync() }()
	log.Info("starting gym server", zap.String("address", cfg.Server.Address))

	// --- Database Connection ---
	dbClient, err := mongo.ConnectDB(cfg.Database.URI)
	if err != nil {
		log.Fatal("could not connect to MongoDB", zap.Error(err))
	}
	defer func() {
		if err := mongo.DisconnectDB(dbClient); err != nil {
			log.Error("failed to disconnect MongoDB", zap.Error(err))
		}
	}()
	appDB := dbClient.Database(cfg.Database.Name)

	// The unique indexes back the ledger and identity invariants, so they
	// must exist before the first request.
	indexCtx, cancelIndexes := context.WithTimeout(context.Background(), time.Minute)
	err = mongo.EnsureIndexes(indexCtx, appDB)
	cancelIndexes()
	if err != nil {
		log.Fatal("could not ensure indexes", zap.Error(err))
	}

	// --- Storage ---
	storageCtx, cancelStorage := context.WithTimeout(context.Background(), 30*time.Second)
	fileStorage, err := storage.NewS3Storage(storageCtx, cfg.S3, log)
	cancelStorage()
	if err != nil {
		log.Fatal("failed to initialize S3 storage", zap.Error(err))
	}

	// --- Repositories ---
	tx := mongo.NewMongoTransactor(dbClient)
	userRepo := mongo.NewMongoUserRepository(appDB)
	clientRepo := mongo.NewMongoClientRepository(appDB)
	exerciseRepo := mongo.NewMongoExerciseRepository(appDB)
	workoutRepo := mongo.NewMongoWorkoutRepository(appDB)
	routineRepo := mongo.NewMongoRoutineRepository(appDB)
	clientRoutineRepo := mongo.NewMongoClientRoutineRepository(appDB)
	routineProgressRepo := mongo.NewMongoRoutineProgressRepository(appDB)
	progressRepo := mongo.NewMongoProgressRepository(appDB)
	goalRepo := mongo.NewMongoGoalRepository(appDB)

	// --- Services ---
	tokens := service.NewTokenManager(cfg.JWT.Secret, cfg.JWT.Expiration)
	identities := service.NewIdentityProvisioner(userRepo, clientRepo, log)
	clientService := service.NewClientService(tx, service.ClientRepositories{
		Clients:         clientRepo,
		Users:           userRepo,
		ClientRoutines:  clientRoutineRepo,
		RoutineProgress: routineProgressRepo,
		Progress:        progressRepo,
		Goals:           goalRepo,
	}, identities, fileStorage, log)
	authService := service.NewAuthService(userRepo, clientRepo, clientService, tokens, log)
	assignmentService := service.NewAssignmentService(tx, service.AssignmentRepositories{
		Clients:         clientRepo,
		Routines:        routineRepo,
		Workouts:        workoutRepo,
		ClientRoutines:  clientRoutineRepo,
		RoutineProgress: routineProgressRepo,
	}, log)

	bootCtx, cancelBoot := context.WithTimeout(context.Background(), 10*time.Second)
	err = authService.EnsureOwner(bootCtx, cfg.Bootstrap)
	cancelBoot()
	if err != nil {
		log.Fatal("could not bootstrap owner account", zap.Error(err))
	}

	// --- HTTP ---
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := api.NewMetrics(registry)

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(api.Recovery(log), api.RequestLogger(log, metrics))
	router.Use(cors.New(corsConfig(cfg.Server.CORSOrigins)))
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))

	api.SetupRoutes(router, api.Services{
		Auth:        authService,
		Clients:     clientService,
		Exercises:   service.NewExerciseService(exerciseRepo, fileStorage, log),
		Workouts:    service.NewWorkoutService(workoutRepo, exerciseRepo, log),
		Routines:    service.NewRoutineService(routineRepo, workoutRepo, clientRoutineRepo, log),
		Assignments: assignmentService,
		Metrics:     service.NewMetricsService(clientRepo, progressRepo, goalRepo, log),
		Tokens:      tokens,
	}, log, metrics)

	server := &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 60 * time.Second, // media uploads
		IdleTimeout:  120 * time.Second,
	}

	// --- Graceful Shutdown ---
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("listen error", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("shutting down server")

	ctxShutdown, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()

	if err := server.Shutdown(ctxShutdown); err != nil {
		log.Error("server forced to shutdown", zap.Error(err))
	}
	log.Info("server exiting")
}

func corsConfig(origins []string) cors.Config {
	c := cors.DefaultConfig()
	c.AllowHeaders = append(c.AllowHeaders, "Authorization")
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		c.AllowAllOrigins = true
	} else {
		c.AllowOrigins = origins
	}
	return c
}
