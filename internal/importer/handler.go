package importer

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/skillhub/backend/internal/models"
	"github.com/skillhub/backend/internal/storage"
)

const maxUploadBytes = 20 << 20 // 20MB

type Handler struct {
	service *Service
	blobs   storage.Store
}

func NewHandler(service *Service, blobs storage.Store) *Handler {
	return &Handler{service: service, blobs: blobs}
}

// getUserID extracts the authenticated user ID from the request context.
func getUserID(r *http.Request) (int64, bool) {
	uid, ok := r.Context().Value("user_id").(int64)
	return uid, ok
}

func (h *Handler) StartImport(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	templateID, err := strconv.ParseInt(vars["id"], 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "Invalid template ID"})
		return
	}

	adminID, ok := getUserID(r)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, models.ErrorResponse{Error: "Authentication required"})
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	file, header, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "A 'file' upload is required"})
		return
	}
	defer file.Close()

	fileBytes, err := io.ReadAll(file)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "Failed to read upload"})
		return
	}

	resp, err := h.service.StartImport(r.Context(), templateID, adminID,
		header.Filename, fileBytes, header.Header.Get("Content-Type"))
	if err != nil {
		switch {
		case errors.Is(err, ErrUnsupportedFileType):
			writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "File must be .csv, .xlsx, or .xls"})
		case errors.Is(err, ErrEmptyFile):
			writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "File contains no data rows"})
		case errors.Is(err, ErrUnreadableFile):
			writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "File could not be read"})
		case errors.Is(err, ErrTemplateNotFound):
			writeJSON(w, http.StatusNotFound, models.ErrorResponse{Error: "Template not found"})
		default:
			log.Printf("[handler] StartImport error: %v", err)
			writeJSON(w, http.StatusInternalServerError, models.ErrorResponse{Error: "Failed to start import"})
		}
		return
	}

	writeJSON(w, http.StatusAccepted, resp)
}

func (h *Handler) ListJobs(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	templateID, err := strconv.ParseInt(vars["id"], 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "Invalid template ID"})
		return
	}

	jobs, err := h.service.ListJobsByTemplate(r.Context(), templateID)
	if err != nil {
		log.Printf("[handler] ListJobs error: %v", err)
		writeJSON(w, http.StatusInternalServerError, models.ErrorResponse{Error: "Failed to list import jobs"})
		return
	}

	if jobs == nil {
		jobs = []models.ImportJobSummary{}
	}
	writeJSON(w, http.StatusOK, models.ImportJobListResponse{Jobs: jobs, Total: len(jobs)})
}

func (h *Handler) GetJob(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	job, err := h.service.GetJob(r.Context(), vars["id"])
	if errors.Is(err, ErrJobNotFound) {
		writeJSON(w, http.StatusNotFound, models.ErrorResponse{Error: "Import job not found"})
		return
	}
	if err != nil {
		log.Printf("[handler] GetJob error: %v", err)
		writeJSON(w, http.StatusInternalServerError, models.ErrorResponse{Error: "Failed to get import job"})
		return
	}

	writeJSON(w, http.StatusOK, job)
}

func (h *Handler) DownloadErrorReport(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	job, err := h.service.GetJob(r.Context(), vars["id"])
	if errors.Is(err, ErrJobNotFound) {
		writeJSON(w, http.StatusNotFound, models.ErrorResponse{Error: "Import job not found"})
		return
	}
	if err != nil {
		log.Printf("[handler] DownloadErrorReport error: %v", err)
		writeJSON(w, http.StatusInternalServerError, models.ErrorResponse{Error: "Failed to get import job"})
		return
	}

	if job.ErrorReportPath == nil {
		writeJSON(w, http.StatusNotFound, models.ErrorResponse{Error: "Job has no error report"})
		return
	}

	rc, err := h.blobs.Open(r.Context(), *job.ErrorReportPath)
	if err != nil {
		log.Printf("[handler] DownloadErrorReport open error: %v", err)
		writeJSON(w, http.StatusInternalServerError, models.ErrorResponse{Error: "Failed to open error report"})
		return
	}
	defer rc.Close()

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=import-errors-%s.csv", job.ID))
	io.Copy(w, rc)
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
