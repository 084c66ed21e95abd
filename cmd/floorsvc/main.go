package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"time"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/httprate"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	config "github.com/hyunwoo-dev/billiard-services/configs"
	"github.com/hyunwoo-dev/billiard-services/internal/floorsvc/board"
	"github.com/hyunwoo-dev/billiard-services/internal/floorsvc/db"
	handlers "github.com/hyunwoo-dev/billiard-services/internal/floorsvc/handlers"
	"github.com/hyunwoo-dev/billiard-services/internal/floorsvc/service"
	"github.com/hyunwoo-dev/billiard-services/internal/floorsvc/store"
	nats "github.com/hyunwoo-dev/billiard-services/internal/nats"
)

const SERVICE_NAME = "floor"

var instanceId string

func init() {
	config.Logging(SERVICE_NAME + "_service")
	config.LoadEnv(SERVICE_NAME)
	instanceId = config.CreateUniqueInstance(SERVICE_NAME)
}

func main() {

	// pg connection
	dbpool, err := db.Connect()
	if err != nil {
		log.Fatalf("Failed to connect to DB: %v", err)
	}
	defer db.ClosePool()
	log.Printf("pg connection established successfully")

	// Connect to NATS
	n, err := nats.Connect()
	if err != nil {
		log.Errorf("Error: unable to connect to NATS server %v", err)
		os.Exit(0)
	}

	defer n.Conn.Close()
	log.Printf("NATS connection established successfully %s", n.Url)

	feePerMinute, err := decimal.NewFromString(os.Getenv("TABLE_FEE_PER_MINUTE"))
	if err != nil {
		log.Fatalf("Invalid TABLE_FEE_PER_MINUTE value: %v", err)
	}

	userStore := store.NewUserStore(dbpool)
	tableStore := store.NewTableStore(dbpool)

	overlay := board.NewOverlay(userStore)
	floorService := service.NewFloorService(overlay, tableStore, n.Conn, instanceId, feePerMinute)
	userService := service.NewUserService(userStore, overlay, n.Conn, instanceId)

	// pull the authoritative user list before serving the board
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	if err := floorService.Refresh(ctx); err != nil {
		cancel()
		log.Fatalf("Failed to load user list: %v", err)
	}
	cancel()

	// periodic refresh keeps the board converging even if a socket update
	// is missed
	refreshDone := make(chan struct{})
	go func() {
		ticker := time.NewTicker(30 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				if err := floorService.Refresh(ctx); err != nil {
					log.Errorf("Error refreshing user list: %s", err)
				}
				cancel()
			case <-refreshDone:
				return
			}
		}
	}()

	// Setup router
	r := chi.NewRouter()
	c := config.CORS()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(config.CustomLoggerMiddleware())
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(c.Handler)

	// to protect the service api from any over requests
	rateLimitStr := os.Getenv("RATE_LIMIT")
	rateLimit, err := strconv.Atoi(rateLimitStr)
	if err != nil {
		log.Fatalf("Invalid RATE_LIMIT value: %v", err)
	}
	r.Use(httprate.LimitByIP(rateLimit, 1*time.Minute))

	// Init handlers and routes
	h := handlers.NewHandler(floorService, userService)
	h.InitAuth()
	h.SetRoutes(r)

	// Create server with timeout settings
	server := &http.Server{
		Addr:         ":" + os.Getenv("FLOOR_SERVICE_PORT"),
		Handler:      r,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("ListenAndServe(): %v", err)
		}
	}()
	log.Infof("%s service running at port %s", SERVICE_NAME, server.Addr)

	// Wait for interrupt signal to gracefully shutdown the server
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt)
	<-stop

	close(refreshDone)

	ctx, cancel = context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("%s service shutdown Failed:%+v", SERVICE_NAME, err)
	}
	log.Infof("%s service gracefully stopped", SERVICE_NAME)
}
