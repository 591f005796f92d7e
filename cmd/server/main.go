package main

import (
	"log"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/salon-appointment-booking/internal/cache"
	"github.com/iliyamo/salon-appointment-booking/internal/config"
	"github.com/iliyamo/salon-appointment-booking/internal/database"
	"github.com/iliyamo/salon-appointment-booking/internal/handler"
	"github.com/iliyamo/salon-appointment-booking/internal/queue"
	"github.com/iliyamo/salon-appointment-booking/internal/repository"
	"github.com/iliyamo/salon-appointment-booking/internal/router"
	"github.com/iliyamo/salon-appointment-booking/internal/service"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	if err := godotenv.Load(); err == nil {
		log.Printf("config: loaded .env")
	}
	cfg := config.Load()
	cacheCfg := config.LoadCacheConfig()
	rlCfg := config.LoadRateLimitConfig()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database: open failed: %v", err)
	}
	defer db.Close()

	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Printf("redis: unavailable, cache and rate limiting degraded")
	}

	users := repository.NewUserRepo(db)
	tokens := repository.NewTokenRepo(db)
	businesses := repository.NewBusinessRepo(db)
	blackouts := repository.NewBlackoutRepo(db)
	appointments := repository.NewAppointmentRepo(db)

	var store cache.Store
	if rdb != nil && cacheCfg.Enabled {
		store = cache.NewRedisStore(rdb, cacheCfg.OpTimeout)
	} else {
		store = cache.NewMemoryStore()
	}
	apptCache := cache.NewAppointmentCache(store, appointments, cacheCfg.TTL, cacheCfg.Prefix)

	checker := service.NewAvailabilityChecker(businesses, blackouts, appointments, nil)

	var lock service.SlotLocker = service.NoopSlotLock{}
	if rdb != nil {
		lock = service.NewRedisSlotLock(rdb, 0)
	}

	svc := service.NewAppointmentService(
		appointments, businesses, checker, apptCache,
		lock, queue.NewPublisher(), cfg.ClientTimeOffset, nil)

	go func() {
		if err := queue.StartAppointmentConsumer(); err != nil {
			log.Printf("rabbitmq: consumer stopped: %v", err)
		}
	}()

	e := echo.New()
	e.HideBanner = true
	router.RegisterRoutes(e)
	router.RegisterAuth(e, handler.NewAuthHandler(cfg, users, tokens), cfg.JWTSecret)
	router.RegisterPublic(e, handler.NewBrowseHandler(businesses, checker, cfg.ClientTimeOffset))
	router.RegisterAppointments(e, handler.NewAppointmentHandler(svc, users, businesses), cfg.JWTSecret, rlCfg, rdb)

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)
	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
