package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"city_parking/internal/api"
	"city_parking/internal/api/handler"
	"city_parking/internal/api/middleware"
	"city_parking/internal/config"
	"city_parking/internal/repository/postgresql"
	"city_parking/internal/service"
)

func main() {
	// 1. Load configuration
	cfg := config.Load()

	// 2. Setup database connection
	db, err := postgresql.NewDB(cfg)
	if err != nil {
		log.Fatalf("could not connect to database: %v", err)
	}
	defer db.Close()
	log.Println("database connection established")

	// 3. Initialize repositories
	userRepo := postgresql.NewPgUserRepository(db)
	adminRepo := postgresql.NewPgAdminRepository(db)
	lotRepo := postgresql.NewPgParkingLotRepository(db)
	spotRepo := postgresql.NewPgParkingSpotRepository(db)
	reservationRepo := postgresql.NewPgReservationRepository(db)

	// 4. Start the availability websocket hub
	hub := handler.NewAvailabilityHub()
	go hub.Start()

	// 5. Initialize services
	authService := service.NewAuthService(userRepo, adminRepo, cfg.JWTSecret, cfg.JWTExpirationHours)
	lotService := service.NewLotService(lotRepo, spotRepo, reservationRepo)
	reservationService := service.NewReservationService(lotRepo, reservationRepo, userRepo, hub)

	bootstrapCtx, cancelBootstrap := context.WithTimeout(context.Background(), 10*time.Second)
	if err := authService.EnsureDefaultAdmin(bootstrapCtx, cfg.DefaultAdminUsername, cfg.DefaultAdminEmail, cfg.DefaultAdminPassword); err != nil {
		log.Fatalf("could not ensure default admin: %v", err)
	}
	cancelBootstrap()

	// 6. Setup HTTP router
	authMiddleware := middleware.NewAuthMiddleware(authService)
	router := api.SetupRouter(authService, lotService, reservationService, authMiddleware, hub)

	// 7. Start HTTP server
	srv := &http.Server{
		Addr:    ":" + cfg.ServerPort,
		Handler: router,
	}

	go func() {
		log.Printf("server listening on port %s", cfg.ServerPort)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("ListenAndServe(): %v", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("shutting down server...")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("server forced to shut down: %v", err)
	}

	log.Println("server stopped")
}
