package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/joho/godotenv"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"token-reward-service/handlers"
	"token-reward-service/middleware"
	"token-reward-service/models"
	"token-reward-service/services"
	"token-reward-service/store"
	"token-reward-service/utils"
	"token-reward-service/workers"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file found, reading environment variables directly")
	}

	if err := utils.InitLogger(); err != nil {
		panic(err)
	}
	defer utils.Logger.Sync()

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		utils.Sugar.Fatal("DATABASE_URL environment variable not set")
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		utils.Sugar.Fatalf("failed to connect to database: %v", err)
	}

	if err := db.AutoMigrate(
		&models.User{},
		&models.GameEarning{},
		&models.PendingReward{},
		&models.SettlementIncident{},
	); err != nil {
		utils.Sugar.Fatalf("failed to migrate database: %v", err)
	}

	settler, err := services.NewERC20Settler()
	if err != nil {
		utils.Sugar.Fatalf("failed to initialize settlement client: %v", err)
	}

	loc := time.UTC
	if tz := os.Getenv("DAY_TIMEZONE"); tz != "" {
		loc, err = time.LoadLocation(tz)
		if err != nil {
			utils.Sugar.Fatalf("invalid DAY_TIMEZONE %q: %v", tz, err)
		}
	}

	rewardStore := store.NewGormStore(db)
	rewardService := services.NewRewardService(rewardStore, settler, loc)

	archive, err := utils.InitArchive()
	if err != nil {
		utils.Sugar.Fatalf("failed to initialize archive client: %v", err)
	}
	retentionDays, _ := strconv.Atoi(os.Getenv("ACCRUAL_RETENTION_DAYS"))
	rewardService.StartRetentionScheduler(archive, retentionDays)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go workers.WatchIncidents(ctx, rewardStore, time.Minute)

	app := fiber.New()
	app.Use(middleware.GatewayAuthMiddleware())
	app.Use(cors.New())

	handlers.SetupRewardRoutes(app, rewardService)

	port := os.Getenv("PORT")
	if port == "" {
		port = "3010"
	}

	go func() {
		if err := app.Listen(":" + port); err != nil {
			utils.Sugar.Errorf("server error: %v", err)
		}
	}()

	utils.Sugar.Infof("reward service running on :%s", port)

	<-ctx.Done()
	utils.Sugar.Info("shutting down server...")
	if err := app.Shutdown(); err != nil {
		utils.Sugar.Errorf("shutdown error: %v", err)
	}
}
