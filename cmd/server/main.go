package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"github.com/skillhub/backend/internal/auth"
	"github.com/skillhub/backend/internal/database"
	"github.com/skillhub/backend/internal/importer"
	"github.com/skillhub/backend/internal/middleware"
	"github.com/skillhub/backend/internal/queue"
	"github.com/skillhub/backend/internal/storage"
)

func main() {
	// Initialize database
	db, err := database.Connect()
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	// Blob storage
	blobs, err := storage.NewDiskStore(getEnv("STORAGE_DIR", "./data/storage"))
	if err != nil {
		log.Fatalf("Failed to init storage: %v", err)
	}

	// Queue + importer wiring
	q := queue.New(db)
	jobStore := importer.NewJobStore(db)
	questionStore := importer.NewQuestionStore(db)
	service := importer.NewService(jobStore, blobs, q)
	processor := importer.NewProcessor(jobStore, questionStore, blobs, nil)

	ctx := context.Background()
	workers := intEnv("IMPORT_WORKERS", 2)
	for i := 0; i < workers; i++ {
		go q.Worker(ctx, importer.QueueName, processor.HandleTask)
	}
	go q.Worker(ctx, importer.SweepQueueName, service.HandleSweepTask)

	if err := q.ScheduleRecurring(importer.SweepQueueName, importer.SweepSchedule, nil); err != nil {
		log.Fatalf("Failed to schedule sweep: %v", err)
	}
	q.StartScheduler()
	defer q.StopScheduler()

	// Initialize handlers
	authHandler := auth.NewHandler(db)
	importHandler := importer.NewHandler(service, blobs)

	// Setup router
	r := mux.NewRouter()
	api := r.PathPrefix("/api/v1").Subrouter()

	// Public routes
	api.HandleFunc("/auth/register", authHandler.Register).Methods("POST")
	api.HandleFunc("/auth/login", authHandler.Login).Methods("POST")

	// Protected routes
	protected := api.PathPrefix("").Subrouter()
	protected.Use(middleware.AuthMiddleware)
	protected.HandleFunc("/auth/me", authHandler.GetCurrentUser).Methods("GET")
	protected.HandleFunc("/templates/{id}/questions/import", importHandler.StartImport).Methods("POST")
	protected.HandleFunc("/templates/{id}/import-jobs", importHandler.ListJobs).Methods("GET")
	protected.HandleFunc("/import-jobs/{id}", importHandler.GetJob).Methods("GET")
	protected.HandleFunc("/import-jobs/{id}/error-report", importHandler.DownloadErrorReport).Methods("GET")

	// Health check
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	}).Methods("GET")

	// CORS
	c := cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: true,
	})

	handler := c.Handler(r)

	port := getEnv("PORT", "8080")

	log.Printf("Server starting on :%s with %d import worker(s)", port, workers)
	if err := http.ListenAndServe(":"+port, handler); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func intEnv(key string, fallback int) int {
	s := os.Getenv(key)
	if s == "" {
		return fallback
	}
	v, err := strconv.Atoi(s)
	if err != nil || v <= 0 {
		return fallback
	}
	return v
}
