package handlers

import (
	"encoding/json"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"aprovaai-backend/internal/middleware"
	"aprovaai-backend/internal/models"
	"aprovaai-backend/internal/repository"
	"aprovaai-backend/internal/services"
)

type DocumentHandler struct {
	docRepo     *repository.DocumentRepo
	jobRepo     *repository.JobRepo
	fileExtract *services.FileExtractService
	ai          *services.AIService
	redis       *redis.Client
	storagePath string
}

func NewDocumentHandler(
	docRepo *repository.DocumentRepo,
	jobRepo *repository.JobRepo,
	fileExtract *services.FileExtractService,
	ai *services.AIService,
	redisClient *redis.Client,
	storagePath string,
) *DocumentHandler {
	return &DocumentHandler{
		docRepo:     docRepo,
		jobRepo:     jobRepo,
		fileExtract: fileExtract,
		ai:          ai,
		redis:       redisClient,
		storagePath: storagePath,
	}
}

// Upload accepts a PDF, DOCX or TXT file up to 10MB, stores it and queues
// extraction, summary and classification.
func (h *DocumentHandler) Upload(w http.ResponseWriter, r *http.Request) {
	if r.ContentLength > services.MaxUploadBytes {
		writeJSON(w, http.StatusRequestEntityTooLarge, errorResp("FILE_TOO_LARGE", "File size exceeds 10MB limit", r))
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, services.MaxUploadBytes)

	file, header, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "No file provided", r))
		return
	}
	defer file.Close()

	// Magic byte check on the first 512 bytes
	head := make([]byte, 512)
	n, _ := file.Read(head)
	head = head[:n]

	if err := h.fileExtract.ValidateUpload(header.Filename, header.Size, head); err != nil {
		handleServiceError(w, r, err)
		return
	}
	file.Seek(0, io.SeekStart)

	userID := middleware.GetUserID(r.Context())
	ext := filepath.Ext(header.Filename)
	storedPath := filepath.Join(h.storagePath, userID.String(), uuid.New().String()+ext)

	if err := saveUpload(file, storedPath); err != nil {
		log.Printf("failed to store upload: %v", err)
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to store file", r))
		return
	}

	doc := &models.Document{
		UserID:     userID,
		Title:      header.Filename,
		SourceType: "file",
		Status:     "pending",
		FilePath:   &storedPath,
	}

	if err := h.docRepo.Create(r.Context(), doc); err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to create document record", r))
		return
	}

	job, err := h.enqueueJob(r, userID, doc.ID, "document-processing", models.SummaryOptions{
		Type: r.FormValue("summary_type"),
		Tone: r.FormValue("tone"),
	})
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to queue document processing", r))
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]interface{}{
		"document_id": doc.ID,
		"job_id":      job.ID,
		"status":      doc.Status,
	})
}

// FromURL ingests a web page (or YouTube video) by URL.
func (h *DocumentHandler) FromURL(w http.ResponseWriter, r *http.Request) {
	var req models.IngestURLRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}
	if req.URL == "" {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "URL is required", r))
		return
	}

	userID := middleware.GetUserID(r.Context())

	sourceType := "url"
	title := req.URL
	if videoID := services.ExtractVideoID(req.URL); videoID != "" {
		sourceType = "youtube"
		title = "YouTube: " + videoID
	}

	doc := &models.Document{
		UserID:     userID,
		Title:      title,
		SourceType: sourceType,
		Status:     "pending",
		SourceURL:  &req.URL,
	}

	if err := h.docRepo.Create(r.Context(), doc); err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to create document record", r))
		return
	}

	job, err := h.enqueueJob(r, userID, doc.ID, "document-processing", models.SummaryOptions{
		Type: req.SummaryType,
		Tone: req.Tone,
	})
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to queue document processing", r))
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]interface{}{
		"document_id": doc.ID,
		"job_id":      job.ID,
		"status":      doc.Status,
	})
}

func (h *DocumentHandler) List(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	page, _ := strconv.Atoi(q.Get("page"))
	if page < 1 {
		page = 1
	}

	docs, total, err := h.docRepo.ListByUser(r.Context(), userID,
		q.Get("search"), q.Get("category"), q.Get("sort"), limit, (page-1)*limit)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to list documents", r))
		return
	}

	if docs == nil {
		docs = []*models.Document{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"documents": docs,
		"total":     total,
		"page":      page,
		"limit":     limit,
	})
}

func (h *DocumentHandler) Get(w http.ResponseWriter, r *http.Request) {
	doc, ok := h.ownedDocument(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

func (h *DocumentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	doc, ok := h.ownedDocument(w, r)
	if !ok {
		return
	}

	if err := h.docRepo.Delete(r.Context(), doc.ID); err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to delete document", r))
		return
	}

	if doc.FilePath != nil {
		if err := os.Remove(*doc.FilePath); err != nil && !os.IsNotExist(err) {
			log.Printf("failed to remove stored file %s: %v", *doc.FilePath, err)
		}
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "Document deleted"})
}

func (h *DocumentHandler) ToggleFavorite(w http.ResponseWriter, r *http.Request) {
	doc, ok := h.ownedDocument(w, r)
	if !ok {
		return
	}

	if err := h.docRepo.ToggleFavorite(r.Context(), doc.ID); err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to update document", r))
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"is_favorite": !doc.IsFavorite})
}

// Regenerate queues a new summary for an already-processed document.
func (h *DocumentHandler) Regenerate(w http.ResponseWriter, r *http.Request) {
	doc, ok := h.ownedDocument(w, r)
	if !ok {
		return
	}

	if doc.ContentText == nil || *doc.ContentText == "" {
		writeJSON(w, http.StatusConflict, errorResp("CONFLICT", "Document has no extracted text yet", r))
		return
	}

	var opts models.SummaryOptions
	if err := json.NewDecoder(r.Body).Decode(&opts); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}

	userID := middleware.GetUserID(r.Context())
	job, err := h.enqueueJob(r, userID, doc.ID, "summary-generation", opts)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to queue summary generation", r))
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]interface{}{"job_id": job.ID})
}

// AnalyzeEdital runs the structured edital extraction over the document's
// text synchronously.
func (h *DocumentHandler) AnalyzeEdital(w http.ResponseWriter, r *http.Request) {
	doc, ok := h.ownedDocument(w, r)
	if !ok {
		return
	}

	if doc.ContentText == nil || *doc.ContentText == "" {
		writeJSON(w, http.StatusConflict, errorResp("CONFLICT", "Document has no extracted text yet", r))
		return
	}

	analysis, err := h.ai.AnalyzeEdital(r.Context(), *doc.ContentText)
	if err != nil {
		if err == services.ErrAIDisabled {
			writeJSON(w, http.StatusServiceUnavailable, errorResp("AI_UNAVAILABLE", "AI analysis is not configured", r))
			return
		}
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, analysis)
}

func (h *DocumentHandler) SupportedFormats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"max_size_bytes": services.MaxUploadBytes,
		"formats": []map[string]string{
			{"extension": ".pdf", "mime_type": "application/pdf", "description": "PDF Document"},
			{"extension": ".docx", "mime_type": "application/vnd.openxmlformats-officedocument.wordprocessingml.document", "description": "Word Document"},
			{"extension": ".txt", "mime_type": "text/plain", "description": "Plain Text"},
		},
	})
}

// ownedDocument loads the {id} document and enforces ownership, writing the
// error response itself when the check fails.
func (h *DocumentHandler) ownedDocument(w http.ResponseWriter, r *http.Request) (*models.Document, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid document ID", r))
		return nil, false
	}

	doc, err := h.docRepo.GetByID(r.Context(), id)
	if err != nil {
		writeJSON(w, http.StatusNotFound, errorResp("NOT_FOUND", "Document not found", r))
		return nil, false
	}

	if doc.UserID != middleware.GetUserID(r.Context()) {
		writeJSON(w, http.StatusForbidden, errorResp("FORBIDDEN", "Access denied", r))
		return nil, false
	}

	return doc, true
}

func (h *DocumentHandler) enqueueJob(r *http.Request, userID, docID uuid.UUID, jobType string, opts models.SummaryOptions) (*models.Job, error) {
	if opts.Type == "" {
		opts.Type = "medium"
	}
	if opts.Tone == "" {
		opts.Tone = "formal"
	}
	if opts.Language == "" {
		opts.Language = "pt-BR"
	}
	configBytes, _ := json.Marshal(opts)

	job := &models.Job{
		UserID:      userID,
		Type:        jobType,
		ReferenceID: docID,
		ConfigJSON:  configBytes,
	}
	if err := h.jobRepo.Create(r.Context(), job); err != nil {
		return nil, err
	}

	jobBytes, _ := json.Marshal(job)
	h.redis.LPush(r.Context(), "queue:"+jobType, string(jobBytes))

	return job, nil
}

func saveUpload(file io.Reader, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	dst, err := os.Create(path)
	if err != nil {
		return err
	}
	defer dst.Close()

	if _, err := io.Copy(dst, file); err != nil {
		os.Remove(path)
		return err
	}
	return nil
}
