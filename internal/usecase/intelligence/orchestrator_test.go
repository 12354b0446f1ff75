package intelligence

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"intelwire/internal/domain/entity"
	"intelwire/internal/infra/remote"
	"intelwire/internal/observability/logging"
	"intelwire/internal/repository"
	"intelwire/internal/usecase/escalation"
	"intelwire/internal/usecase/jobs"
)

type stubSourceRepo struct {
	mu      sync.Mutex
	sources []*entity.Source
	listErr error
	touched []int64
}

func (s *stubSourceRepo) Get(ctx context.Context, id int64) (*entity.Source, error) {
	for _, src := range s.sources {
		if src.ID == id {
			return src, nil
		}
	}
	return nil, entity.ErrNotFound
}

func (s *stubSourceRepo) List(ctx context.Context) ([]*entity.Source, error) {
	return s.sources, nil
}

func (s *stubSourceRepo) ListActive(ctx context.Context) ([]*entity.Source, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}
	var active []*entity.Source
	for _, src := range s.sources {
		if src.Active {
			active = append(active, src)
		}
	}
	return active, nil
}

func (s *stubSourceRepo) Create(ctx context.Context, source *entity.Source) error { return nil }
func (s *stubSourceRepo) Update(ctx context.Context, source *entity.Source) error { return nil }
func (s *stubSourceRepo) Delete(ctx context.Context, id int64) error              { return nil }

func (s *stubSourceRepo) TouchCrawledAt(ctx context.Context, id int64, t time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touched = append(s.touched, id)
	return nil
}

type stubArticleRepo struct {
	mu       sync.Mutex
	articles []*entity.Article
}

func (r *stubArticleRepo) Get(ctx context.Context, id int64) (*entity.Article, error) {
	return nil, entity.ErrNotFound
}

func (r *stubArticleRepo) List(ctx context.Context, limit, offset int) ([]*entity.Article, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*entity.Article(nil), r.articles...), nil
}

func (r *stubArticleRepo) Create(ctx context.Context, article *entity.Article) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	article.ID = int64(len(r.articles) + 1)
	r.articles = append(r.articles, article)
	return nil
}

func (r *stubArticleRepo) Delete(ctx context.Context, id int64) error { return nil }

type stubJobRepo struct {
	mu   sync.Mutex
	jobs map[string]*entity.Job
}

func newStubJobRepo() *stubJobRepo {
	return &stubJobRepo{jobs: make(map[string]*entity.Job)}
}

func (r *stubJobRepo) Get(ctx context.Context, id string) (*entity.Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.jobs[id]
	if !ok {
		return nil, entity.ErrNotFound
	}
	cp := *job
	return &cp, nil
}

func (r *stubJobRepo) List(ctx context.Context, filter repository.JobFilter) ([]*entity.Job, error) {
	return nil, nil
}

func (r *stubJobRepo) CountByStatus(ctx context.Context, filter repository.JobFilter) (map[entity.JobStatus]int, error) {
	return map[entity.JobStatus]int{}, nil
}

func (r *stubJobRepo) Create(ctx context.Context, job *entity.Job) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *job
	r.jobs[job.ID] = &cp
	return nil
}

func (r *stubJobRepo) Update(ctx context.Context, job *entity.Job) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.jobs[job.ID]; !ok {
		return entity.ErrNotFound
	}
	cp := *job
	r.jobs[job.ID] = &cp
	return nil
}

func (r *stubJobRepo) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.jobs, id)
	return nil
}

type stubEscRepo struct {
	mu          sync.Mutex
	escalations []*entity.Escalation
}

func (r *stubEscRepo) Get(ctx context.Context, id string) (*entity.Escalation, error) {
	return nil, entity.ErrNotFound
}

func (r *stubEscRepo) List(ctx context.Context, filter repository.EscalationFilter) ([]*entity.Escalation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*entity.Escalation(nil), r.escalations...), nil
}

func (r *stubEscRepo) Counts(ctx context.Context, filter repository.EscalationFilter) (*repository.EscalationCounts, error) {
	return &repository.EscalationCounts{}, nil
}

func (r *stubEscRepo) Create(ctx context.Context, esc *entity.Escalation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.escalations = append(r.escalations, esc)
	return nil
}

func (r *stubEscRepo) Update(ctx context.Context, esc *entity.Escalation) error { return nil }

type recordedEvent struct {
	event   string
	payload map[string]any
}

type recordingSink struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (s *recordingSink) Notify(ctx context.Context, event string, payload map[string]any) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, recordedEvent{event: event, payload: payload})
	return true
}

func (s *recordingSink) names() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var names []string
	for _, e := range s.events {
		names = append(names, e.event)
	}
	return names
}

func (s *recordingSink) find(event string) (map[string]any, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.events {
		if e.event == event {
			return e.payload, true
		}
	}
	return nil, false
}

type stubCrawler struct {
	mu      sync.Mutex
	failFor map[string]error
	content string
	calls   []string
	onCrawl func(url string)
}

func (c *stubCrawler) Crawl(ctx context.Context, url string) (*remote.CrawlResult, error) {
	c.mu.Lock()
	c.calls = append(c.calls, url)
	c.mu.Unlock()
	if c.onCrawl != nil {
		c.onCrawl(url)
	}
	if err, ok := c.failFor[url]; ok {
		return nil, err
	}
	return &remote.CrawlResult{Content: c.content, Markdown: c.content}, nil
}

type stubGenerator struct {
	response string
	err      error
}

func (g *stubGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	if g.err != nil {
		return "", g.err
	}
	return g.response, nil
}

// goodResponse parses into an article scoring well above the review
// threshold.
const goodResponse = `Title: Container shipping rates climb again
TL;DR: Spot rates on the main east-west lanes rose for a third week.
Topics: shipping, logistics
Content: ` + "Spot rates climbed again this week. Carriers attribute the move to tight capacity.\n" +
	`Forward bookings suggest the trend will hold. Shippers are locking in longer contracts.

Analysts expect rates to stay elevated through the quarter. The main risk is a demand
pullback. Port congestion remains a secondary factor. Inventories are already high.
Some carriers have begun adding capacity back. That could soften rates later in the year.
For now the market remains firmly in the carriers' favour. Contract negotiations reflect it.`

type env struct {
	sources  *stubSourceRepo
	articles *stubArticleRepo
	jobRepo  *stubJobRepo
	escRepo  *stubEscRepo
	sink     *recordingSink
	crawler  *stubCrawler
	gen      *stubGenerator
	jobSvc   *jobs.Service
	orch     *Orchestrator
}

func newEnv(t *testing.T, sources []*entity.Source) *env {
	t.Helper()
	e := &env{
		sources:  &stubSourceRepo{sources: sources},
		articles: &stubArticleRepo{},
		jobRepo:  newStubJobRepo(),
		escRepo:  &stubEscRepo{},
		sink:     &recordingSink{},
		crawler:  &stubCrawler{content: strings.Repeat("Real crawled material. ", 20)},
		gen:      &stubGenerator{response: goodResponse},
	}
	logger := logging.NewNop()
	e.jobSvc = jobs.NewService(e.jobRepo, e.sink, logger)
	escSvc := escalation.NewService(e.escRepo, e.sink, logger)
	e.orch = NewOrchestrator(e.sources, e.articles, e.crawler, e.gen, e.jobSvc, escSvc, e.sink, logger, DefaultConfig())
	return e
}

func source(id int64, name string) *entity.Source {
	return &entity.Source{
		ID:     id,
		Name:   name,
		URL:    fmt.Sprintf("https://example.com/%d", id),
		Active: true,
	}
}

func (e *env) job(t *testing.T, id string) *entity.Job {
	t.Helper()
	job, err := e.jobRepo.Get(context.Background(), id)
	if err != nil {
		t.Fatalf("job %s not found: %v", id, err)
	}
	return job
}

func TestOrchestrator_Run_EndToEnd(t *testing.T) {
	e := newEnv(t, []*entity.Source{source(1, "Trade Weekly")})

	result, err := e.orch.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if result.ArticlesCreated != 1 {
		t.Errorf("ArticlesCreated = %d, want 1", result.ArticlesCreated)
	}
	if result.EscalationsCreated != 0 {
		t.Errorf("EscalationsCreated = %d, want 0", result.EscalationsCreated)
	}
	if len(e.escRepo.escalations) != 0 {
		t.Errorf("stored escalations = %d, want 0", len(e.escRepo.escalations))
	}

	job := e.job(t, result.JobID)
	if job.Status != entity.JobCompleted {
		t.Errorf("job status = %s, want completed", job.Status)
	}
	if job.Progress != 100 {
		t.Errorf("job progress = %d, want 100", job.Progress)
	}
	if job.CompletedAt == nil {
		t.Error("job CompletedAt not set")
	}

	if len(e.articles.articles) != 1 {
		t.Fatalf("stored articles = %d, want 1", len(e.articles.articles))
	}
	art := e.articles.articles[0]
	if art.Status != entity.ArticleDraft {
		t.Errorf("article status = %s, want draft", art.Status)
	}
	if art.Title != "Container shipping rates climb again" {
		t.Errorf("article title = %q", art.Title)
	}
	if art.Confidence < 0.6 {
		t.Errorf("article confidence = %v, want >= 0.6", art.Confidence)
	}

	if len(e.sources.touched) != 1 || e.sources.touched[0] != 1 {
		t.Errorf("touched sources = %v, want [1]", e.sources.touched)
	}

	for _, want := range []string{"intelligence.started", "article.created", "intelligence.completed"} {
		if _, ok := e.sink.find(want); !ok {
			t.Errorf("missing %s event, got %v", want, e.sink.names())
		}
	}
	payload, _ := e.sink.find("intelligence.completed")
	if payload["articles_created"] != 1 {
		t.Errorf("articles_created = %v, want 1", payload["articles_created"])
	}
}

func TestOrchestrator_Run_PartialFailureIsolated(t *testing.T) {
	srcs := []*entity.Source{source(1, "Alpha"), source(2, "Beta"), source(3, "Gamma")}
	e := newEnv(t, srcs)
	e.crawler.failFor = map[string]error{
		"https://example.com/2": errors.New("connection reset"),
	}

	result, err := e.orch.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if result.ArticlesCreated != 2 {
		t.Errorf("ArticlesCreated = %d, want 2", result.ArticlesCreated)
	}
	if result.SourcesFailed != 1 {
		t.Errorf("SourcesFailed = %d, want 1", result.SourcesFailed)
	}
	if len(e.escRepo.escalations) != 1 {
		t.Fatalf("stored escalations = %d, want 1", len(e.escRepo.escalations))
	}
	esc := e.escRepo.escalations[0]
	if esc.Type != entity.EscalationError {
		t.Errorf("escalation type = %s, want error", esc.Type)
	}
	if !strings.Contains(esc.Title, "Beta") {
		t.Errorf("escalation title = %q, want source name", esc.Title)
	}
	if esc.Related.JobID != result.JobID {
		t.Errorf("escalation job id = %q, want %q", esc.Related.JobID, result.JobID)
	}

	if got := e.job(t, result.JobID).Status; got != entity.JobCompleted {
		t.Errorf("job status = %s, want completed", got)
	}
}

func TestOrchestrator_Run_CancellationStopsDispatch(t *testing.T) {
	srcs := []*entity.Source{
		source(1, "Alpha"), source(2, "Beta"),
		source(3, "Gamma"), source(4, "Delta"),
	}
	e := newEnv(t, srcs)

	// Cancel the job during the first crawl. The dispatch loop checks for
	// cancellation before each source, so at most one more source may
	// already be in flight; the rest must never be crawled.
	var once sync.Once
	e.crawler.onCrawl = func(string) {
		once.Do(func() {
			payload, ok := e.sink.find("intelligence.started")
			if !ok {
				t.Error("intelligence.started not notified before first crawl")
				return
			}
			jobID := payload["job_id"].(string)
			if err := e.jobSvc.Cancel(context.Background(), jobID); err != nil {
				t.Errorf("Cancel() error = %v", err)
			}
		})
	}

	result, err := e.orch.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if got := len(e.crawler.calls); got > 2 {
		t.Errorf("crawled %d sources after cancellation, want at most 2", got)
	}
	if result.SourcesProcessed >= len(srcs) {
		t.Errorf("SourcesProcessed = %d, want fewer than %d", result.SourcesProcessed, len(srcs))
	}

	job := e.job(t, result.JobID)
	if job.Status != entity.JobCancelled {
		t.Errorf("job status = %s, want cancelled", job.Status)
	}
	if job.CompletedAt == nil {
		t.Error("cancelled job has no CompletedAt")
	}
	if _, ok := e.sink.find("intelligence.completed"); ok {
		t.Error("intelligence.completed notified for a cancelled run")
	}
}

func TestOrchestrator_Run_NoActiveSources(t *testing.T) {
	e := newEnv(t, nil)

	result, err := e.orch.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if result.ArticlesCreated != 0 {
		t.Errorf("ArticlesCreated = %d, want 0", result.ArticlesCreated)
	}
	if result.EscalationsCreated != 1 {
		t.Errorf("EscalationsCreated = %d, want 1", result.EscalationsCreated)
	}
	if got := e.job(t, result.JobID).Status; got != entity.JobCompleted {
		t.Errorf("job status = %s, want completed", got)
	}
	if len(e.escRepo.escalations) != 1 {
		t.Fatalf("stored escalations = %d, want 1", len(e.escRepo.escalations))
	}
	if !strings.Contains(e.escRepo.escalations[0].Title, "no active sources") {
		t.Errorf("escalation title = %q", e.escRepo.escalations[0].Title)
	}
}

func TestOrchestrator_Run_ShortContentSkipped(t *testing.T) {
	e := newEnv(t, []*entity.Source{source(1, "Sparse")})
	e.crawler.content = "too short"

	result, err := e.orch.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if result.ArticlesCreated != 0 {
		t.Errorf("ArticlesCreated = %d, want 0", result.ArticlesCreated)
	}
	if result.SourcesSkipped != 1 {
		t.Errorf("SourcesSkipped = %d, want 1", result.SourcesSkipped)
	}
	if len(e.escRepo.escalations) != 0 {
		t.Errorf("stored escalations = %d, want 0: thin content is not an error", len(e.escRepo.escalations))
	}
	if got := e.job(t, result.JobID).Status; got != entity.JobCompleted {
		t.Errorf("job status = %s, want completed", got)
	}
}

func TestOrchestrator_Run_LowConfidenceStillStored(t *testing.T) {
	e := newEnv(t, []*entity.Source{source(1, "Noisy")})
	e.gen.response = "meh"

	result, err := e.orch.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if result.ArticlesCreated != 1 {
		t.Errorf("ArticlesCreated = %d, want 1: low confidence never blocks storage", result.ArticlesCreated)
	}
	if len(e.escRepo.escalations) != 1 {
		t.Fatalf("stored escalations = %d, want 1", len(e.escRepo.escalations))
	}
	esc := e.escRepo.escalations[0]
	if esc.Type != entity.EscalationLowConfidence {
		t.Errorf("escalation type = %s, want low_confidence", esc.Type)
	}
	if esc.ConfidenceScore == nil || *esc.ConfidenceScore >= 0.6 {
		t.Errorf("escalation confidence = %v, want < 0.6", esc.ConfidenceScore)
	}
	if esc.Related.ArticleID == nil || *esc.Related.ArticleID != e.articles.articles[0].ID {
		t.Errorf("escalation article id = %v", esc.Related.ArticleID)
	}
}

func TestOrchestrator_Run_GeneratorFailureEscalates(t *testing.T) {
	e := newEnv(t, []*entity.Source{source(1, "Flaky")})
	e.gen.err = errors.New("model overloaded")

	result, err := e.orch.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if result.SourcesFailed != 1 {
		t.Errorf("SourcesFailed = %d, want 1", result.SourcesFailed)
	}
	if len(e.articles.articles) != 0 {
		t.Errorf("stored articles = %d, want 0", len(e.articles.articles))
	}
	if got := e.job(t, result.JobID).Status; got != entity.JobCompleted {
		t.Errorf("job status = %s, want completed", got)
	}
}

func TestOrchestrator_Run_SourceListErrorFailsRun(t *testing.T) {
	e := newEnv(t, nil)
	e.sources.listErr = errors.New("database unavailable")

	_, err := e.orch.Run(context.Background())
	if err == nil {
		t.Fatal("Run() error = nil, want failure")
	}

	var failedJob *entity.Job
	e.jobRepo.mu.Lock()
	for _, job := range e.jobRepo.jobs {
		failedJob = job
	}
	e.jobRepo.mu.Unlock()
	if failedJob == nil {
		t.Fatal("no job recorded")
	}
	if failedJob.Status != entity.JobFailed {
		t.Errorf("job status = %s, want failed", failedJob.Status)
	}
	if failedJob.Error == "" {
		t.Error("job error not recorded")
	}

	if _, ok := e.sink.find("intelligence.failed"); !ok {
		t.Errorf("missing intelligence.failed event, got %v", e.sink.names())
	}
	if len(e.escRepo.escalations) != 1 {
		t.Fatalf("stored escalations = %d, want 1", len(e.escRepo.escalations))
	}
	if e.escRepo.escalations[0].Priority != entity.PriorityCritical {
		t.Errorf("escalation priority = %s, want critical", e.escRepo.escalations[0].Priority)
	}
}

func TestOrchestrator_Run_Parallel(t *testing.T) {
	srcs := make([]*entity.Source, 0, 8)
	for i := int64(1); i <= 8; i++ {
		srcs = append(srcs, source(i, fmt.Sprintf("Source %d", i)))
	}
	e := newEnv(t, srcs)
	e.orch.cfg.Parallelism = 4

	result, err := e.orch.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if result.ArticlesCreated != 8 {
		t.Errorf("ArticlesCreated = %d, want 8", result.ArticlesCreated)
	}
	if got := e.job(t, result.JobID).Progress; got != 100 {
		t.Errorf("job progress = %d, want 100", got)
	}
}
