package main

import (
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/sessions"
	"github.com/redis/go-redis/v9"

	"tixmojo/internal/config"
	"tixmojo/internal/database"
	"tixmojo/internal/handlers"
	"tixmojo/internal/middleware"
	"tixmojo/internal/repositories"
	"tixmojo/internal/services"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration:", err)
	}

	db, err := database.NewConnection(cfg.Database)
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}
	defer db.Close()
	log.Println("Database connection established")

	if err := db.RunMigrations(); err != nil {
		log.Fatal("Failed to run migrations:", err)
	}

	// Session repository: Redis when configured, Postgres otherwise.
	var sessionRepo repositories.SessionRepository
	if cfg.Redis.Addr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		sessionRepo = repositories.NewRedisSessionRepository(client)
		log.Println("Using Redis session store")
	} else {
		sessionRepo = repositories.NewPostgresSessionRepository(db.DB)
		log.Println("Using Postgres session store")
	}

	sessionStore := sessions.NewCookieStore([]byte(cfg.Session.Secret))
	sessionStore.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   86400 * 30, // 30 days
		HttpOnly: true,
		Secure:   cfg.Server.Env == "production",
		SameSite: http.SameSiteLaxMode,
	}

	eventRepo := repositories.NewEventRepository(db.DB)
	ticketRepo := repositories.NewTicketRepository(db.DB)

	eventService := services.NewEventService(eventRepo)
	ticketService := services.NewTicketService(ticketRepo)
	promoEvaluator := services.NewPromoEvaluator(services.DefaultPromoRules())
	checkoutService := services.NewCheckoutService(sessionRepo, promoEvaluator, cfg.Checkout.SessionTTL)
	gateway := services.NewPaymentGateway(services.ProcessorConfig{
		BaseURL:     cfg.Processor.BaseURL,
		SecretKey:   cfg.Processor.SecretKey,
		Environment: cfg.Processor.Environment,
	})

	publicHandler := handlers.NewPublicHandler(eventService, ticketService)
	cartHandler := handlers.NewCartHandler(eventService, ticketService, cfg.Checkout.ServiceFee, sessionStore)
	checkoutHandler := handlers.NewCheckoutHandler(checkoutService, gateway, sessionStore)

	checkoutLimiter := middleware.NewRateLimiter(30, time.Minute)

	r := chi.NewRouter()

	r.Use(middleware.RequestIDMiddleware)
	r.Use(middleware.LoggingMiddleware)
	r.Use(middleware.RecoveryMiddleware)
	r.Use(middleware.SecurityHeadersMiddleware)
	r.Use(middleware.CORSMiddleware(middleware.DefaultCORSConfig()))

	r.Get("/events", publicHandler.ListEvents)
	r.Get("/events/featured", publicHandler.FeaturedEvents)
	r.Get("/events/{id}", publicHandler.GetEvent)
	r.Get("/events/{id}/ticket-types", publicHandler.ListTicketTypes)
	r.Get("/search", publicHandler.SearchEvents)

	r.Get("/cart", cartHandler.ViewCart)
	r.Post("/cart/add", cartHandler.AddToCart)
	r.Post("/cart/update", cartHandler.UpdateCart)
	r.Post("/cart/clear", cartHandler.ClearCart)

	r.Route("/checkout/sessions", func(r chi.Router) {
		r.With(checkoutLimiter.Middleware).Post("/", checkoutHandler.CreateSession)
		r.Get("/{id}", checkoutHandler.GetSession)
		r.Post("/{id}/buyer-info", checkoutHandler.SubmitBuyerInfo)
		r.Post("/{id}/promo", checkoutHandler.ApplyPromo)
		r.With(checkoutLimiter.Middleware).Post("/{id}/payment", checkoutHandler.SubmitPayment)
		r.Post("/{id}/cancel", checkoutHandler.CancelSession)
	})

	addr := cfg.Server.Host + ":" + cfg.Server.Port
	log.Printf("Server starting on %s", addr)
	if err := http.ListenAndServe(addr, r); err != nil {
		log.Fatal("Server failed:", err)
	}
}
