package routing

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.mongodb.org/mongo-driver/mongo"

	"authservice/internal/config"
	"authservice/pkg/access"
	"authservice/pkg/auth"
	"authservice/pkg/handlers"
	"authservice/pkg/metrics"
	"authservice/pkg/middleware"
	"authservice/pkg/password"
	"authservice/pkg/session"
	"authservice/pkg/user"
)

const shutdownTimeout = 10 * time.Second

// Deps are the process-wide resources the routes are built from. Mongo is only needed for the mongo session store.
type Deps struct {
	DB       *sql.DB
	Mongo    *mongo.Database
	Config   *config.Config
	Logger   *slog.Logger
	Registry *prometheus.Registry
}

// NewSessionRegistry picks the session store named by cfg.SessionStore.
func NewSessionRegistry(cfg *config.Config, db *sql.DB, mongoDB *mongo.Database, users user.Repository) (session.Registry, error) {
	switch cfg.SessionStore {
	case config.StoreUser, "":
		return session.NewUserFieldRegistry(users, cfg.SessionDuration), nil
	case config.StoreMemory:
		return session.NewMemoryRegistry(users, cfg.SessionDuration), nil
	case config.StoreDB:
		return session.NewSQLRegistry(db, cfg.DBDriver, users, cfg.SessionDuration), nil
	case config.StoreMongo:
		if mongoDB == nil {
			return nil, errors.New("mongo session store requires a mongo database")
		}
		return session.NewMongoRegistry(mongoDB, users, cfg.SessionDuration), nil
	default:
		return nil, fmt.Errorf("unknown session store %q", cfg.SessionStore)
	}
}

func InitRoutes(r *mux.Router, d Deps) error {
	m := metrics.New(d.Registry)

	users := user.NewSQLRepo(d.DB, d.Config.DBDriver)

	sessions, err := NewSessionRegistry(d.Config, d.DB, d.Mongo, users)
	if err != nil {
		return err
	}

	authService := auth.NewService(users, password.NewBcryptHasher(d.Config.BcryptCost), sessions, d.Logger, m)
	userHandler := handlers.NewUserHandler(authService, d.Logger, d.Config.SessionName)
	apiHandler := handlers.NewAPIHandler(authService, d.Logger, d.Config.SessionName)
	gate := access.NewGate(authService, d.Config.SessionName, d.Config.ExcludedPaths, d.Logger)

	r.Use(middleware.Panic(d.Logger))
	r.Use(middleware.Logging(d.Logger))
	r.Use(m.Middleware)

	/* -+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+ */

	r.Handle("/metrics", promhttp.HandlerFor(d.Registry, promhttp.HandlerOpts{})).Methods("GET")

	/* form routes */
	r.HandleFunc("/", userHandler.Index).Methods("GET").Name("index")
	r.HandleFunc("/users", userHandler.Register).Methods("POST").Name("register")
	r.HandleFunc("/sessions", userHandler.Login).Methods("POST").Name("login")
	r.HandleFunc("/sessions", userHandler.Logout).Methods("DELETE").Name("logout")
	r.HandleFunc("/profile", userHandler.Profile).Methods("GET").Name("profile")
	r.HandleFunc("/reset_password", userHandler.GetResetPasswordToken).Methods("POST").Name("reset_token")
	r.HandleFunc("/reset_password", userHandler.UpdatePassword).Methods("PUT").Name("update_password")

	/* api routers */
	api := r.PathPrefix("/api/v1").Subrouter()
	api.Use(gate.Middleware)

	api.HandleFunc("/status", apiHandler.Status).Methods("GET")
	api.HandleFunc("/users/me", apiHandler.Me).Methods("GET")
	api.HandleFunc("/auth_session/login", apiHandler.SessionLogin).Methods("POST")
	api.HandleFunc("/auth_session/logout", apiHandler.SessionLogout).Methods("DELETE")

	return nil
}

// StartServer serves h on addr until ctx is cancelled, then shuts down gracefully.
func StartServer(ctx context.Context, addr string, h http.Handler, logger *slog.Logger) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		MaxHeaderBytes:    1 << 20,
		ReadHeaderTimeout: 2 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server started", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	logger.Info("server stopped")
	return nil
}
