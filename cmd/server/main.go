package main

import (
	"context"
	"database/sql"
	"net/http"
	"os"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/robfig/cron/v3"
	"github.com/stripe/stripe-go/v82"

	"autonoleggio/internal/api"
	"autonoleggio/internal/auth"
	"autonoleggio/internal/eventbus"
	"autonoleggio/internal/logger"
	"autonoleggio/internal/metrics"
	"autonoleggio/internal/repository"
	"autonoleggio/internal/service"
)

func main() {
	godotenv.Load()
	log := logger.New("server")

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Errorf("DATABASE_URL not set")
		os.Exit(1)
	}
	conn, err := sql.Open("postgres", dbURL)
	if err != nil {
		log.Errorf("failed to open database: %v", err)
		os.Exit(1)
	}
	if err := conn.Ping(); err != nil {
		log.Errorf("failed to connect to database: %v", err)
		os.Exit(1)
	}

	stripe.Key = os.Getenv("STRIPE_SECRET_KEY")

	rec, err := metrics.NewPromRecorder()
	if err != nil {
		log.Errorf("failed to register metrics: %v", err)
		os.Exit(1)
	}

	bus := eventbus.New()
	defer bus.Close()

	fleetRepo := repository.NewFleetRepository(conn)
	reservationRepo := repository.NewReservationRepository(conn)
	customerRepo := repository.NewCustomerRepository(conn)
	jobRepo := repository.NewJobRepository(conn)
	adminAuthRepo := repository.NewAdminAuthRepository(conn)

	notifier := service.NewNotifyService(logger.New("notify"))
	stripeSvc := service.NewStripeService(logger.New("stripe"))
	snapshots := service.NewSnapshotService(fleetRepo, reservationRepo, rec, logger.New("snapshot"))
	bookings := service.NewBookingService(fleetRepo, reservationRepo, customerRepo, snapshots, stripeSvc, notifier, bus, rec, logger.New("booking"))
	sessions := service.NewSessionService(snapshots, bookings.SessionCreator(), bus, rec, logger.New("sessions"))
	defer sessions.Close()
	fleet := service.NewFleetService(fleetRepo, bus, logger.New("fleet"))
	adminAuth := service.NewAdminAuthService(adminAuthRepo)
	jobs := service.NewJobService(jobRepo, fleetRepo, notifier, sessions, bus, logger.New("jobs"))

	if _, err := snapshots.Refresh(context.Background()); err != nil {
		// Availability falls back to a lazy refresh on first use.
		log.Warnf("initial snapshot refresh failed: %v", err)
	}

	scheduler := cron.New()
	scheduler.AddFunc("* * * * *", func() {
		ctx := context.Background()
		if err := jobs.ActivateStartedReservations(ctx); err != nil {
			log.Errorf("%v", err)
		}
		if err := jobs.CompleteFinishedReservations(ctx); err != nil {
			log.Errorf("%v", err)
		}
	})
	scheduler.AddFunc("*/5 * * * *", func() {
		jobs.SweepIdleSessions()
		if _, err := snapshots.Refresh(context.Background()); err != nil {
			log.Errorf("periodic snapshot refresh failed: %v", err)
		}
	})
	scheduler.AddFunc("0 7 * * *", func() {
		if err := jobs.WarnExpiringCompliance(context.Background()); err != nil {
			log.Errorf("%v", err)
		}
	})
	scheduler.Start()
	defer scheduler.Stop()

	bookingHandler := api.NewBookingHandler(bookings)
	sessionHandler := api.NewSessionHandler(sessions)
	adminHandler := api.NewAdminHandler(fleet, bookings)
	adminAuthHandler := api.NewAdminAuthHandler(adminAuth)
	stripeHandler := api.NewStripeWebhookHandler(os.Getenv("STRIPE_WEBHOOK_SECRET"), bookings, logger.New("stripe-webhook"))

	r := mux.NewRouter()

	// Public endpoints
	v1 := r.PathPrefix("/api/v1").Subrouter()
	v1.HandleFunc("/availability", bookingHandler.CheckAvailability).Methods("POST")
	v1.HandleFunc("/quotes", bookingHandler.QuotePrice).Methods("POST")
	v1.HandleFunc("/reservations", bookingHandler.CreateReservation).Methods("POST")
	v1.HandleFunc("/reservations/{code}", bookingHandler.GetReservation).Methods("GET")
	v1.HandleFunc("/reservations/{code}", bookingHandler.CancelReservation).Methods("DELETE")

	// Booking wizard
	v1.HandleFunc("/sessions", sessionHandler.StartSession).Methods("POST")
	v1.HandleFunc("/sessions/{id}", sessionHandler.GetSession).Methods("GET")
	v1.HandleFunc("/sessions/{id}/window", sessionHandler.SetWindow).Methods("PUT")
	v1.HandleFunc("/sessions/{id}/vehicle", sessionHandler.SelectVehicle).Methods("PUT")
	v1.HandleFunc("/sessions/{id}/details", sessionHandler.EnterDetails).Methods("PUT")
	v1.HandleFunc("/sessions/{id}/submit", sessionHandler.Submit).Methods("POST")
	v1.HandleFunc("/sessions/{id}", sessionHandler.EndSession).Methods("DELETE")

	// Stripe
	v1.HandleFunc("/stripe/webhook", stripeHandler.HandleWebhook).Methods("POST")
	v1.HandleFunc("/stripe/reservation", stripeHandler.GetReservationBySession).Methods("GET")

	// Admin endpoints (protected)
	r.HandleFunc("/admin/login", adminAuthHandler.Login).Methods("POST")
	admin := r.PathPrefix("/admin").Subrouter()
	admin.Use(auth.AdminAuthMiddleware)
	admin.HandleFunc("/register", adminAuthHandler.CreateAdmin).Methods("POST")
	admin.HandleFunc("/reservations", adminHandler.ListReservations).Methods("GET")
	admin.HandleFunc("/reservations/{code}/status", adminHandler.UpdateReservationStatus).Methods("PATCH")
	admin.HandleFunc("/vehicles", adminHandler.ListVehicles).Methods("GET")
	admin.HandleFunc("/vehicles", adminHandler.CreateVehicle).Methods("POST")
	admin.HandleFunc("/vehicles/{id}", adminHandler.GetVehicle).Methods("GET")
	admin.HandleFunc("/vehicles/{id}", adminHandler.UpdateVehicle).Methods("PUT")
	admin.HandleFunc("/vehicles/{id}/status", adminHandler.SetVehicleStatus).Methods("PATCH")

	r.Handle("/metrics", promhttp.Handler()).Methods("GET")

	allowedOrigin := os.Getenv("FRONTEND_BASE_URL")
	if allowedOrigin == "" {
		allowedOrigin = "http://localhost:3000"
	}
	cors := handlers.CORS(
		handlers.AllowedOrigins([]string{allowedOrigin}),
		handlers.AllowedMethods([]string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}),
		handlers.AllowedHeaders([]string{"Content-Type", "Authorization", "Stripe-Signature"}),
	)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	log.Infof("server listening on :%s", port)
	if err := http.ListenAndServe(":"+port, cors(r)); err != nil {
		log.Errorf("server stopped: %v", err)
		os.Exit(1)
	}
}
