package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"tickethub/internal/config"
	"tickethub/internal/database"
	"tickethub/internal/handlers"
	"tickethub/internal/middleware"
	"tickethub/internal/repositories"
	"tickethub/internal/services"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	db, err := database.NewConnection(database.Config{
		URL:      cfg.Database.URL,
		Host:     cfg.Database.Host,
		Port:     cfg.Database.Port,
		User:     cfg.Database.User,
		Password: cfg.Database.Password,
		DBName:   cfg.Database.DBName,
		SSLMode:  cfg.Database.SSLMode,
	})
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	if err := db.RunMigrations(); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	redisClient, err := database.NewRedisClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		log.Fatalf("Failed to connect to redis: %v", err)
	}
	defer redisClient.Close()

	// Repositories
	eventRepo := repositories.NewEventRepository(db.DB)
	categoryRepo := repositories.NewCategoryRepository(db.DB)
	reservationRepo := repositories.NewReservationRepository(db.DB)
	transactionRepo := repositories.NewTransactionRepository(db.DB)
	ticketRepo := repositories.NewTicketRepository(db.DB)

	// Services
	inventoryService := services.NewInventoryService(categoryRepo, reservationRepo)
	cartService := services.NewCartService(redisClient, categoryRepo)
	gateway := services.NewGatewayFromConfig(services.PaystackConfig{
		SecretKey:   cfg.Paystack.SecretKey,
		CallbackURL: cfg.Paystack.CallbackURL,
		Currency:    cfg.Paystack.Currency,
	}, "http://"+cfg.Server.Host+":"+cfg.Server.Port)
	checkoutService := services.NewCheckoutService(cartService, inventoryService, transactionRepo, ticketRepo, gateway)
	reconcilerService := services.NewReconcilerService(transactionRepo, ticketRepo, reservationRepo, inventoryService,
		cfg.Checkout.PendingTTL, cfg.Checkout.SweepInterval)
	ticketService := services.NewTicketService(ticketRepo)

	// Handlers
	cartHandler := handlers.NewCartHandler(cartService)
	checkoutHandler := handlers.NewCheckoutHandler(checkoutService)
	paymentHandler := handlers.NewPaymentHandler(reconcilerService, transactionRepo, gateway)
	ticketHandler := handlers.NewTicketHandler(ticketService)
	eventHandler := handlers.NewEventHandler(eventRepo, categoryRepo)

	// Background sweep for transactions the gateway never answered for
	sweepCtx, stopSweep := context.WithCancel(context.Background())
	defer stopSweep()
	go reconcilerService.Run(sweepCtx)

	r := chi.NewRouter()

	r.Use(middleware.LoggingMiddleware)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.UserContext)

	r.Get("/health", func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		// Payment endpoints are reached by the gateway and the returning
		// buyer, neither of which carries a user header.
		r.Post("/payments/webhook", paymentHandler.Webhook)
		r.Get("/payments/callback", paymentHandler.Callback)

		// Storefront view, public.
		r.Get("/events/{eventID}/categories", eventHandler.ListCategories)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireUser)

			r.Get("/cart", cartHandler.GetCart)
			r.Post("/cart/items", cartHandler.AddItem)
			r.Put("/cart/items/{categoryID}", cartHandler.UpdateItem)
			r.Delete("/cart/items/{categoryID}", cartHandler.RemoveItem)

			r.Post("/checkout", checkoutHandler.Checkout)

			r.Get("/tickets", ticketHandler.ListTickets)
			r.Patch("/tickets/{code}/tag", ticketHandler.SetTag)
		})

		// Gate scanners authenticate out of band.
		r.Post("/checkin", ticketHandler.CheckIn)
	})

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Server starting on port %s", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed to start: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")
	stopSweep()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exited")
}
