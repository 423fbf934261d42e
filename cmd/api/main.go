package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	httpSwagger "github.com/swaggo/http-swagger"
	"go.uber.org/zap"

	_ "github.com/wanderly/tripmate/docs"
	"github.com/wanderly/tripmate/internal/config"
	"github.com/wanderly/tripmate/internal/connection"
	"github.com/wanderly/tripmate/internal/database"
	"github.com/wanderly/tripmate/internal/expense"
	"github.com/wanderly/tripmate/internal/logger"
	"github.com/wanderly/tripmate/internal/message"
	"github.com/wanderly/tripmate/internal/settlement"
	"github.com/wanderly/tripmate/internal/trip"
	"github.com/wanderly/tripmate/internal/user"
	mw "github.com/wanderly/tripmate/pkg/middleware"
)

// @title           tripmate API
// @version         1.0
// @description     Social travel planning backend: trips, shared expenses and settlements.
// @BasePath        /api/v1
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	// .env is optional; real environments set variables directly
	_ = godotenv.Load()

	cfg := config.Load()

	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	db, err := database.NewPostgresConnection(cfg.DatabaseURL)
	if err != nil {
		log.Fatal("failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	log.Info("connected to database")

	// User feature
	userRepo := user.NewRepository(db)
	userService := user.NewService(userRepo, cfg.JWTSecret, cfg.JWTTTL)
	userHandler := user.NewHandler(userService, log)

	// Trip feature; its repository doubles as the trip directory
	tripRepo := trip.NewRepository(db)
	tripService := trip.NewService(tripRepo, userRepo)
	tripHandler := trip.NewHandler(tripService, log)

	// Connection feature
	connectionRepo := connection.NewRepository(db)
	connectionService := connection.NewService(connectionRepo, userRepo)
	connectionHandler := connection.NewHandler(connectionService, log)

	// Message feature
	messageRepo := message.NewRepository(db)
	messageService := message.NewService(messageRepo, tripRepo, connectionRepo)
	messageHandler := message.NewHandler(messageService, log)

	// Expense feature
	expenseRepo := expense.NewRepository(db)
	expenseService := expense.NewService(expenseRepo, tripRepo)
	expenseHandler := expense.NewHandler(expenseService, log)

	// Settlement feature
	settlementRepo := settlement.NewRepository(db)
	settlementService := settlement.NewService(settlementRepo, expenseRepo, tripRepo)
	settlementHandler := settlement.NewHandler(settlementService, log)

	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(mw.RequestLogger(log))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})

	r.Get("/swagger/*", httpSwagger.WrapHandler)

	auth := mw.Auth(cfg.JWTSecret)

	r.Route("/api/v1", func(r chi.Router) {
		// register and login are public; /users/me carries its own auth
		r.Mount("/users", userHandler.Routes(auth))

		// everything else requires a bearer token
		r.Group(func(r chi.Router) {
			r.Use(auth)

			r.Mount("/trips", tripHandler.Routes())
			r.Mount("/connections", connectionHandler.Routes())
			r.Mount("/messages", messageHandler.Routes())
			r.Mount("/expenses", expenseHandler.Routes())
			r.Mount("/settlements", settlementHandler.Routes())
		})
	})

	log.Info("server starting", zap.String("port", cfg.Port))
	if err := http.ListenAndServe(":"+cfg.Port, r); err != nil {
		log.Fatal("server failed", zap.Error(err))
	}
}
