package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"aprovaai-backend/internal/models"
	"aprovaai-backend/internal/repository"
	"aprovaai-backend/internal/services"
)

// Pool runs the background pipeline for uploaded documents: text extraction,
// summary generation and classification. Jobs arrive on Redis lists and
// progress is streamed back to the owner over pub/sub.
type Pool struct {
	redis       *redis.Client
	ai          *services.AIService
	youtube     *services.YouTubeService
	fileExtract *services.FileExtractService
	urlExtract  *services.URLExtractService
	jobRepo     *repository.JobRepo
	docRepo     *repository.DocumentRepo
	workerCount int
	stopChan    chan struct{}
}

func NewPool(
	redisClient *redis.Client,
	ai *services.AIService,
	youtube *services.YouTubeService,
	fileExtract *services.FileExtractService,
	urlExtract *services.URLExtractService,
	jobRepo *repository.JobRepo,
	docRepo *repository.DocumentRepo,
	workerCount int,
) *Pool {
	return &Pool{
		redis:       redisClient,
		ai:          ai,
		youtube:     youtube,
		fileExtract: fileExtract,
		urlExtract:  urlExtract,
		jobRepo:     jobRepo,
		docRepo:     docRepo,
		workerCount: workerCount,
		stopChan:    make(chan struct{}),
	}
}

func (p *Pool) Start() {
	queues := []string{
		"queue:document-processing",
		"queue:summary-generation",
	}

	for i := 0; i < p.workerCount; i++ {
		go p.worker(i, queues)
	}

	log.Printf("Started %d worker goroutines", p.workerCount)
}

func (p *Pool) Stop() {
	close(p.stopChan)
}

func (p *Pool) worker(id int, queues []string) {
	for {
		select {
		case <-p.stopChan:
			log.Printf("Worker %d shutting down", id)
			return
		default:
		}

		ctx := context.Background()

		// BLPOP with 30s timeout
		result, err := p.redis.BLPop(ctx, 30*time.Second, queues...).Result()
		if err != nil {
			continue // Timeout or error, retry
		}

		if len(result) < 2 {
			continue
		}

		var job models.Job
		if err := json.Unmarshal([]byte(result[1]), &job); err != nil {
			log.Printf("Worker %d: failed to parse job: %v", id, err)
			continue
		}

		// Try to acquire lock
		lockKey := fmt.Sprintf("job_lock:%s", job.ID.String())
		locked, err := p.redis.SetNX(ctx, lockKey, "1", 10*time.Minute).Result()
		if err != nil || !locked {
			continue // Another worker has this job
		}

		log.Printf("Worker %d: processing job %s (type: %s)", id, job.ID, job.Type)

		p.jobRepo.UpdateStatus(ctx, job.ID, "processing")

		var processErr error
		switch job.Type {
		case "document-processing":
			processErr = p.processDocument(ctx, &job)
		case "summary-generation":
			processErr = p.processSummary(ctx, &job)
		default:
			processErr = fmt.Errorf("unknown job type: %s", job.Type)
		}

		if processErr != nil {
			p.handleFailure(ctx, &job, processErr)
		} else {
			p.handleSuccess(ctx, &job)
		}

		p.redis.Del(ctx, lockKey)
	}
}

// processDocument runs the full ingestion pipeline: extract text from the
// source, generate a summary, then categorize and tag the document.
func (p *Pool) processDocument(ctx context.Context, job *models.Job) error {
	doc, err := p.docRepo.GetByID(ctx, job.ReferenceID)
	if err != nil {
		return fmt.Errorf("failed to get document: %w", err)
	}

	p.docRepo.UpdateStatus(ctx, doc.ID, "processing")

	p.publishStep(ctx, job, 1, "Extraindo conteúdo")

	text, title, err := p.extractText(ctx, doc)
	if err != nil {
		return err
	}

	wordCount := len(strings.Fields(text))
	if err := p.docRepo.UpdateContent(ctx, doc.ID, text, wordCount); err != nil {
		return fmt.Errorf("failed to save extracted text: %w", err)
	}
	if title != "" && title != doc.Title {
		p.docRepo.UpdateTitle(ctx, doc.ID, title)
	}

	log.Printf("Extracted %d words for document %s", wordCount, doc.ID)

	var opts models.SummaryOptions
	json.Unmarshal(job.ConfigJSON, &opts)

	p.publishStep(ctx, job, 2, "Gerando resumo")

	summary, err := p.ai.GenerateSummary(ctx, text, opts)
	switch {
	case err == nil:
		if err := p.docRepo.UpdateSummary(ctx, doc.ID, summary, opts.Type); err != nil {
			return fmt.Errorf("failed to save summary: %w", err)
		}
	case errors.Is(err, services.ErrAIDisabled):
		log.Printf("AI disabled, skipping summary for document %s", doc.ID)
	default:
		var vErr *services.ValidationError
		if errors.As(err, &vErr) {
			// Content too short for a summary is not a pipeline failure
			log.Printf("Skipping summary for document %s: %s", doc.ID, vErr.Error())
		} else {
			return fmt.Errorf("summary generation failed: %w", err)
		}
	}

	p.publishStep(ctx, job, 3, "Classificando documento")

	// Categorize and ExtractTags degrade to keyword heuristics when the AI
	// service is unavailable, so classification always produces something.
	category := p.ai.Categorize(ctx, text)
	tags := p.ai.ExtractTags(ctx, text)
	if err := p.docRepo.UpdateClassification(ctx, doc.ID, category, tags); err != nil {
		return fmt.Errorf("failed to save classification: %w", err)
	}

	if err := p.docRepo.UpdateStatus(ctx, doc.ID, "completed"); err != nil {
		return fmt.Errorf("failed to mark document completed: %w", err)
	}

	return nil
}

// processSummary regenerates the summary of an already-processed document.
func (p *Pool) processSummary(ctx context.Context, job *models.Job) error {
	doc, err := p.docRepo.GetByID(ctx, job.ReferenceID)
	if err != nil {
		return fmt.Errorf("failed to get document: %w", err)
	}

	if doc.ContentText == nil || *doc.ContentText == "" {
		return fmt.Errorf("document %s has no extracted text", doc.ID)
	}

	var opts models.SummaryOptions
	json.Unmarshal(job.ConfigJSON, &opts)

	p.publishStep(ctx, job, 1, "Gerando resumo")

	summary, err := p.ai.GenerateSummary(ctx, *doc.ContentText, opts)
	if err != nil {
		return fmt.Errorf("summary generation failed: %w", err)
	}

	if err := p.docRepo.UpdateSummary(ctx, doc.ID, summary, opts.Type); err != nil {
		return fmt.Errorf("failed to save summary: %w", err)
	}

	return nil
}

// extractText pulls the raw study text out of whatever source backs the
// document. For YouTube sources the caption track is preferred; audio
// transcription via the AI service is the fallback.
func (p *Pool) extractText(ctx context.Context, doc *models.Document) (text, title string, err error) {
	switch doc.SourceType {
	case "file":
		if doc.FilePath == nil || *doc.FilePath == "" {
			return "", "", fmt.Errorf("file document %s has no stored path", doc.ID)
		}
		text, err = p.fileExtract.ExtractTextFromPath(*doc.FilePath)
		if err != nil {
			return "", "", fmt.Errorf("failed to extract file text: %w", err)
		}
		return text, "", nil

	case "url":
		if doc.SourceURL == nil || *doc.SourceURL == "" {
			return "", "", fmt.Errorf("url document %s has no source URL", doc.ID)
		}
		page, err := p.urlExtract.Extract(ctx, *doc.SourceURL)
		if err != nil {
			return "", "", fmt.Errorf("failed to extract page content: %w", err)
		}
		return page.Content, page.Title, nil

	case "youtube":
		if doc.SourceURL == nil || *doc.SourceURL == "" {
			return "", "", fmt.Errorf("youtube document %s has no source URL", doc.ID)
		}
		videoID := services.ExtractVideoID(*doc.SourceURL)
		if videoID == "" {
			return "", "", fmt.Errorf("invalid YouTube URL: %s", *doc.SourceURL)
		}

		videoTitle, _, _, _, _, metaErr := p.youtube.GetVideoMetadata(videoID)
		if metaErr != nil {
			videoTitle = ""
		}

		transcript, trErr := p.youtube.GetTranscript(videoID)
		if trErr != nil {
			log.Printf("Transcript extraction failed for %s: %v", videoID, trErr)

			// STT fallback via multimodal audio transcription
			audioBytes, mimeType, audioErr := p.youtube.DownloadAudio(*doc.SourceURL)
			if audioErr != nil {
				return "", "", fmt.Errorf("transcript extraction failed for video %s: %v; audio fallback download failed: %w", videoID, trErr, audioErr)
			}

			transcribed, sttErr := p.ai.TranscribeAudio(ctx, audioBytes, mimeType)
			if sttErr != nil {
				return "", "", fmt.Errorf("transcript extraction failed for video %s: %v; STT fallback transcription failed: %w", videoID, trErr, sttErr)
			}
			transcript = transcribed
		}

		return transcript, videoTitle, nil

	default:
		return "", "", fmt.Errorf("unknown source type: %s", doc.SourceType)
	}
}

func (p *Pool) publishStep(ctx context.Context, job *models.Job, step int, stepName string) {
	p.ai.PublishUpdate(ctx, job.UserID, models.WSMessage{
		Type: "status_update",
		Payload: models.StatusUpdate{
			JobID:    job.ID,
			Step:     step,
			StepName: stepName,
		},
	})
}

func (p *Pool) handleSuccess(ctx context.Context, job *models.Job) {
	p.jobRepo.UpdateStatus(ctx, job.ID, "completed")

	p.ai.PublishUpdate(ctx, job.UserID, models.WSMessage{
		Type: "completed",
		Payload: models.CompletedEvent{
			JobID:      job.ID,
			ResultID:   job.ReferenceID,
			ResultType: "document",
		},
	})

	log.Printf("Job %s completed successfully", job.ID)
}

func (p *Pool) handleFailure(ctx context.Context, job *models.Job, err error) {
	job.RetryCount++
	errMsg := err.Error()

	if job.RetryCount < job.MaxRetries {
		log.Printf("Job %s failed (attempt %d): %s, retrying", job.ID, job.RetryCount, errMsg)
		p.jobRepo.UpdateStatus(ctx, job.ID, "pending")
		p.jobRepo.UpdateError(ctx, job.ID, errMsg, job.RetryCount)

		// Re-queue after backoff
		jobBytes, _ := json.Marshal(job)
		backoff := time.Duration(1<<uint(job.RetryCount)) * time.Second
		time.AfterFunc(backoff, func() {
			p.redis.LPush(context.Background(), "queue:"+job.Type, string(jobBytes))
		})
	} else {
		log.Printf("Job %s failed permanently: %s", job.ID, errMsg)
		p.jobRepo.UpdateStatus(ctx, job.ID, "failed")
		p.jobRepo.UpdateError(ctx, job.ID, errMsg, job.RetryCount)
		if job.Type == "document-processing" {
			p.docRepo.UpdateStatus(ctx, job.ReferenceID, "failed")
		}

		p.ai.PublishUpdate(ctx, job.UserID, models.WSMessage{
			Type: "error",
			Payload: models.ErrorEvent{
				JobID:        job.ID,
				ErrorCode:    "JOB_FAILED",
				ErrorMessage: errMsg,
			},
		})
	}
}
