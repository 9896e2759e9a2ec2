package app

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"

	"tush00nka/s3files/internal/handler"
)

type Server struct {
	router *mux.Router
	srv    *http.Server
}

func NewServer(recordHandler *handler.RecordHandler, wsHandler *handler.WSHandler, checkers ...handler.HealthChecker) *Server {
	router := mux.NewRouter()

	// Routes
	recordHandler.RegisterRoutes(router)
	wsHandler.RegisterRoutes(router)
	router.HandleFunc("/ping", handler.Ping).Methods("GET")
	router.HandleFunc("/health", handler.Health(checkers...)).Methods("GET")
	router.Handle("/metrics", promhttp.Handler()).Methods("GET")

	// Настройка Swagger
	swaggerHandler := httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"), // Важно: относительный путь
	)

	// Явно обслуживаем doc.json
	router.HandleFunc("/swagger/doc.json", func(w http.ResponseWriter, r *http.Request) {
		http.ServeFile(w, r, "./docs/swagger.json")
	})
	router.PathPrefix("/swagger/").Handler(swaggerHandler)

	return &Server{router: router}
}

func corsMiddleware() func(http.Handler) http.Handler {
	return handlers.CORS(
		handlers.AllowedOrigins([]string{"*"}),
		handlers.AllowedMethods([]string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}),
		handlers.AllowedHeaders([]string{"Content-Type", "Authorization", "Bearer", "X-Requested-With"}),
	)
}

func (s *Server) Handler() http.Handler {
	return corsMiddleware()(s.router)
}

// Run блокируется до остановки сервера
func (s *Server) Run(port string) error {
	s.srv = &http.Server{
		Handler:      s.Handler(),
		Addr:         ":" + port,
		WriteTimeout: 60 * time.Second,
		ReadTimeout:  60 * time.Second,
	}

	log.Printf("Server starting on port %s", port)
	if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.srv == nil {
		return nil
	}
	return s.srv.Shutdown(ctx)
}
