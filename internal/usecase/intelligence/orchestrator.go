// Package intelligence runs the end-to-end gathering pipeline: enumerate
// active sources, crawl each one, generate an article from the crawled
// content, score it, persist it, and escalate anything that needs a human.
// Partial failure is not pipeline failure; one bad source never aborts a run.
package intelligence

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"intelwire/internal/domain/entity"
	"intelwire/internal/infra/remote"
	"intelwire/internal/observability/logging"
	"intelwire/internal/observability/metrics"
	"intelwire/internal/repository"
	"intelwire/internal/usecase/escalation"
	"intelwire/internal/usecase/jobs"
	"intelwire/internal/usecase/notify"
)

// minContentLength is the threshold below which crawled content is treated
// as insufficient and skipped without escalation.
const minContentLength = 100

// RunResult summarizes one orchestration run.
type RunResult struct {
	JobID              string
	SourcesProcessed   int
	ArticlesCreated    int
	SourcesSkipped     int
	SourcesFailed      int
	EscalationsCreated int
}

// SummaryDeliverer receives the run summary after completion. Delivery is
// best-effort; failures are logged and never fail the run.
type SummaryDeliverer interface {
	Deliver(ctx context.Context, result *RunResult) error
}

// Config tunes one orchestrator instance.
type Config struct {
	// Parallelism bounds concurrent per-source processing. 1 means strictly
	// sequential.
	Parallelism int
}

func DefaultConfig() Config {
	return Config{Parallelism: 1}
}

type Orchestrator struct {
	sources     repository.SourceRepository
	articles    repository.ArticleRepository
	crawler     remote.CrawlProvider
	generator   remote.Generator
	jobs        *jobs.Service
	escalations *escalation.Service
	sink        notify.Sink
	deliverer   SummaryDeliverer
	logger      *logging.Logger
	cfg         Config
}

func NewOrchestrator(
	sources repository.SourceRepository,
	articles repository.ArticleRepository,
	crawler remote.CrawlProvider,
	generator remote.Generator,
	jobService *jobs.Service,
	escalationService *escalation.Service,
	sink notify.Sink,
	logger *logging.Logger,
	cfg Config,
) *Orchestrator {
	if cfg.Parallelism < 1 {
		cfg.Parallelism = 1
	}
	return &Orchestrator{
		sources:     sources,
		articles:    articles,
		crawler:     crawler,
		generator:   generator,
		jobs:        jobService,
		escalations: escalationService,
		sink:        sink,
		logger:      logger,
		cfg:         cfg,
	}
}

// WithSummaryDeliverer attaches an optional post-run summary hand-off.
func (o *Orchestrator) WithSummaryDeliverer(d SummaryDeliverer) *Orchestrator {
	o.deliverer = d
	return o
}

// Run executes one orchestration cycle. The returned RunResult reflects the
// completed job; an error is returned only when the run itself fails, never
// for individual source failures.
func (o *Orchestrator) Run(ctx context.Context) (*RunResult, error) {
	start := time.Now()

	jobID, err := o.jobs.Create(ctx, "intelligence_gathering", nil)
	if err != nil {
		return nil, fmt.Errorf("intelligence run: %w", err)
	}

	running := entity.JobRunning
	if _, err := o.jobs.Update(ctx, jobID, jobs.UpdateInput{Status: &running}); err != nil {
		return nil, fmt.Errorf("intelligence run %s: %w", jobID, err)
	}
	o.sink.Notify(ctx, "intelligence.started", map[string]any{"job_id": jobID})

	result, runErr := o.runSources(ctx, jobID)
	if runErr != nil {
		o.failRun(ctx, jobID, runErr)
		metrics.RecordPipelineRun("failed", time.Since(start))
		return nil, runErr
	}

	cancelled, err := o.jobCancelled(ctx, jobID)
	if err == nil && cancelled {
		metrics.RecordPipelineRun("cancelled", time.Since(start))
		o.logger.Info(ctx, "intelligence run cancelled",
			logging.WithContext("pipeline"),
			logging.WithMetadata(map[string]any{"job_id": jobID}))
		return result, nil
	}

	o.completeRun(ctx, jobID, result, time.Since(start))
	metrics.RecordPipelineRun("completed", time.Since(start))
	return result, nil
}

func (o *Orchestrator) runSources(ctx context.Context, jobID string) (*RunResult, error) {
	result := &RunResult{JobID: jobID}

	sources, err := o.sources.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("list active sources: %w", err)
	}

	if len(sources) == 0 {
		o.logger.Warn(ctx, "no active sources configured, run proceeds empty",
			logging.WithContext("pipeline"),
			logging.WithMetadata(map[string]any{"job_id": jobID}))
		if _, err := o.escalations.Create(ctx, escalation.CreateInput{
			Type:        entity.EscalationError,
			Priority:    entity.PriorityMedium,
			Title:       "Intelligence run found no active sources",
			Description: "The orchestrator had nothing to crawl. Add or re-enable sources.",
			Context:     "pipeline configuration",
			Related:     entity.RelatedEntities{JobID: jobID},
		}); err != nil {
			o.logger.Error(ctx, "failed to escalate empty source list",
				logging.WithContext("pipeline"),
				logging.WithError(err))
		} else {
			result.EscalationsCreated++
		}
		return result, nil
	}

	var (
		processed   atomic.Int64
		articles    atomic.Int64
		skipped     atomic.Int64
		failed      atomic.Int64
		escalated   atomic.Int64
		progressMu  sync.Mutex
		maxProgress int
	)

	updateProgress := func() {
		done := int(processed.Load())
		progress := done * 100 / len(sources)

		// Progress reported to pollers is monotonic even when sources
		// finish out of order.
		progressMu.Lock()
		if progress <= maxProgress {
			progressMu.Unlock()
			return
		}
		maxProgress = progress
		progressMu.Unlock()

		if _, err := o.jobs.Update(ctx, jobID, jobs.UpdateInput{Progress: &progress}); err != nil {
			o.logger.Warn(ctx, "failed to update job progress",
				logging.WithContext("pipeline"),
				logging.WithError(err),
				logging.WithMetadata(map[string]any{"job_id": jobID}))
		}
	}

	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(o.cfg.Parallelism)

	for _, src := range sources {
		cancelledRun, err := o.jobCancelled(ctx, jobID)
		if err != nil {
			o.logger.Warn(ctx, "failed to check job cancellation",
				logging.WithContext("pipeline"),
				logging.WithError(err),
				logging.WithMetadata(map[string]any{"job_id": jobID}))
		} else if cancelledRun {
			o.logger.Info(ctx, "cancellation observed, stopping source dispatch",
				logging.WithContext("pipeline"),
				logging.WithMetadata(map[string]any{"job_id": jobID}))
			break
		}

		source := src
		eg.Go(func() error {
			outcome := o.processSource(egCtx, jobID, source)
			processed.Add(1)
			switch outcome {
			case sourceCreated:
				articles.Add(1)
				metrics.RecordSourceProcessed("created")
			case sourceCreatedEscalated:
				articles.Add(1)
				escalated.Add(1)
				metrics.RecordSourceProcessed("created")
			case sourceSkipped:
				skipped.Add(1)
				metrics.RecordSourceProcessed("skipped")
			case sourceFailed:
				failed.Add(1)
				escalated.Add(1)
				metrics.RecordSourceProcessed("failed")
			}
			updateProgress()
			return nil
		})
	}

	// Per-source errors are absorbed inside processSource; Wait only
	// surfaces context cancellation.
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	result.SourcesProcessed = int(processed.Load())
	result.ArticlesCreated = int(articles.Load())
	result.SourcesSkipped = int(skipped.Load())
	result.SourcesFailed = int(failed.Load())
	result.EscalationsCreated += int(escalated.Load())
	return result, nil
}

type sourceOutcome int

const (
	sourceCreated sourceOutcome = iota
	sourceCreatedEscalated
	sourceSkipped
	sourceFailed
)

// processSource runs crawl -> generate -> score -> persist -> maybe-escalate
// for one source. All failures are scoped here; the caller always continues.
func (o *Orchestrator) processSource(ctx context.Context, jobID string, src *entity.Source) sourceOutcome {
	md := map[string]any{"job_id": jobID, "source_id": src.ID, "source_name": src.Name}

	crawled, err := o.crawler.Crawl(ctx, src.URL)
	if err != nil {
		o.logger.Error(ctx, "source crawl failed",
			logging.WithContext("pipeline"),
			logging.WithError(err),
			logging.WithMetadata(md))
		o.escalateSourceError(ctx, jobID, src, err)
		return sourceFailed
	}

	content := crawled.Markdown
	if content == "" {
		content = crawled.Content
	}
	if len(content) < minContentLength {
		o.logger.Warn(ctx, "crawled content too short, skipping source",
			logging.WithContext("pipeline"),
			logging.WithMetadata(map[string]any{
				"job_id": jobID, "source_id": src.ID, "content_length": len(content),
			}))
		return sourceSkipped
	}

	raw, err := o.generator.Generate(ctx, buildPrompt(src.Name, content))
	if err != nil {
		o.logger.Error(ctx, "article generation failed",
			logging.WithContext("pipeline"),
			logging.WithError(err),
			logging.WithMetadata(md))
		o.escalateSourceError(ctx, jobID, src, err)
		return sourceFailed
	}

	generated := ParseGenerated(raw)
	confidence := ConfidenceScore(generated.Title, generated.Content, generated.Summary, generated.Topics)

	article := &entity.Article{
		SourceID:   src.ID,
		Title:      generated.Title,
		Content:    generated.Content,
		Summary:    generated.Summary,
		Topics:     generated.Topics,
		Status:     entity.ArticleDraft,
		Confidence: confidence,
		CreatedAt:  time.Now(),
	}
	if err := o.articles.Create(ctx, article); err != nil {
		o.logger.Error(ctx, "failed to persist article",
			logging.WithContext("pipeline"),
			logging.WithError(err),
			logging.WithMetadata(md))
		o.escalateSourceError(ctx, jobID, src, err)
		return sourceFailed
	}
	metrics.RecordArticleCreated(confidence)

	if err := o.sources.TouchCrawledAt(ctx, src.ID, time.Now()); err != nil {
		o.logger.Warn(ctx, "failed to stamp source crawl time",
			logging.WithContext("pipeline"),
			logging.WithError(err),
			logging.WithMetadata(md))
	}

	o.sink.Notify(ctx, "article.created", map[string]any{
		"article_id": article.ID,
		"source_id":  src.ID,
		"title":      article.Title,
		"confidence": confidence,
	})

	if confidence < 0.6 {
		if _, err := o.escalations.FlagLowConfidence(ctx, "article", article.ID, confidence,
			fmt.Sprintf("generated from source %q during job %s", src.Name, jobID), nil); err != nil {
			o.logger.Error(ctx, "failed to escalate low-confidence article",
				logging.WithContext("pipeline"),
				logging.WithError(err),
				logging.WithMetadata(md))
			return sourceCreated
		}
		return sourceCreatedEscalated
	}
	return sourceCreated
}

func (o *Orchestrator) escalateSourceError(ctx context.Context, jobID string, src *entity.Source, cause error) {
	if _, err := o.escalations.EscalateError(ctx,
		fmt.Sprintf("Source %q failed during intelligence run", src.Name),
		"source processing",
		cause.Error(),
		entity.RelatedEntities{JobID: jobID},
	); err != nil {
		o.logger.Error(ctx, "failed to escalate source error",
			logging.WithContext("pipeline"),
			logging.WithError(err),
			logging.WithMetadata(map[string]any{"job_id": jobID, "source_id": src.ID}))
	}
}

func (o *Orchestrator) jobCancelled(ctx context.Context, jobID string) (bool, error) {
	view, err := o.jobs.Get(ctx, jobID)
	if err != nil {
		return false, err
	}
	return view.Status == entity.JobCancelled, nil
}

func (o *Orchestrator) completeRun(ctx context.Context, jobID string, result *RunResult, elapsed time.Duration) {
	completed := entity.JobCompleted
	progress := 100
	if _, err := o.jobs.Update(ctx, jobID, jobs.UpdateInput{
		Status:   &completed,
		Progress: &progress,
		Result: map[string]any{
			"sources_processed":   result.SourcesProcessed,
			"articles_created":    result.ArticlesCreated,
			"sources_skipped":     result.SourcesSkipped,
			"sources_failed":      result.SourcesFailed,
			"escalations_created": result.EscalationsCreated,
		},
	}); err != nil {
		o.logger.Error(ctx, "failed to complete job",
			logging.WithContext("pipeline"),
			logging.WithError(err),
			logging.WithMetadata(map[string]any{"job_id": jobID}))
	}

	o.sink.Notify(ctx, "intelligence.completed", map[string]any{
		"job_id":            jobID,
		"articles_created":  result.ArticlesCreated,
		"sources_processed": result.SourcesProcessed,
		"elapsed_ms":        elapsed.Milliseconds(),
	})

	if o.deliverer != nil {
		if err := o.deliverer.Deliver(ctx, result); err != nil {
			o.logger.Warn(ctx, "summary delivery failed",
				logging.WithContext("pipeline"),
				logging.WithError(err),
				logging.WithMetadata(map[string]any{"job_id": jobID}))
		}
	}

	o.logger.Info(ctx, "intelligence run completed",
		logging.WithContext("pipeline"),
		logging.WithMetadata(map[string]any{
			"job_id":           jobID,
			"articles_created": result.ArticlesCreated,
			"elapsed_ms":       elapsed.Milliseconds(),
		}))
}

func (o *Orchestrator) failRun(ctx context.Context, jobID string, cause error) {
	failed := entity.JobFailed
	msg := cause.Error()
	if _, err := o.jobs.Update(ctx, jobID, jobs.UpdateInput{Status: &failed, Error: &msg}); err != nil {
		o.logger.Error(ctx, "failed to mark job failed",
			logging.WithContext("pipeline"),
			logging.WithError(err),
			logging.WithMetadata(map[string]any{"job_id": jobID}))
	}

	o.sink.Notify(ctx, "intelligence.failed", map[string]any{
		"job_id": jobID,
		"error":  msg,
	})

	if _, err := o.escalations.EscalateError(ctx,
		"Intelligence run failed",
		"critical_system_error",
		msg,
		entity.RelatedEntities{JobID: jobID},
	); err != nil {
		o.logger.Error(ctx, "failed to escalate run failure",
			logging.WithContext("pipeline"),
			logging.WithError(err),
			logging.WithMetadata(map[string]any{"job_id": jobID}))
	}
}

func buildPrompt(sourceName, content string) string {
	const maxPromptContent = 10000
	if len(content) > maxPromptContent {
		content = content[:maxPromptContent]
	}
	return fmt.Sprintf(`You are an intelligence analyst. Write an article based on the following material from %q.

Respond in exactly this format:
Title: <headline, 10-100 characters>
TL;DR: <one-sentence summary>
Topics: <comma-separated topics>
Content: <the full article, multiple paragraphs>

Material:
%s`, sourceName, content)
}
