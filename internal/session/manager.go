// Package session is the translation orchestrator: it turns a parsed JSON
// tree into batches of per-unique-string jobs and drives each job through
// cache lookup, rate-limited backend calls, and retry with backoff, then
// reconstructs the translated tree and its diff/patch.
package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/abadojack/whatlanggo"
	"github.com/google/uuid"
	"github.com/khiemphamm/translate-json/internal/cache"
	"github.com/khiemphamm/translate-json/internal/jsontree"
	"github.com/khiemphamm/translate-json/internal/ratelimit"
	"github.com/khiemphamm/translate-json/pkg/log"
)

var (
	// ErrAlreadyRunning is returned when a start or resume collides with an
	// active session.
	ErrAlreadyRunning = errors.New("a translation session is already running")
	// ErrNoTranslatableContent is returned when extraction yields no strings.
	ErrNoTranslatableContent = errors.New("input contains no translatable strings")
	// ErrNoSession is returned by Resume when nothing has been started.
	ErrNoSession = errors.New("no translation session to resume")
)

// Backend is the slice of the translator client the orchestrator needs.
type Backend interface {
	Translate(ctx context.Context, text, sourceLang, targetLang string) (string, error)
	DetectLanguage(ctx context.Context, text string) (string, error)
}

// Manager owns the single active session. Callers acquire it through Start
// and observe it through Snapshot; there is no shared singleton.
type Manager struct {
	backend Backend
	cache   *cache.Cache
	limiter *ratelimit.Limiter

	callTimeout time.Duration
	backoffUnit time.Duration

	mu      sync.Mutex
	cfg     Config
	current *Session
	running bool
	pause   bool
	done    chan struct{}
}

type ManagerOption func(*Manager)

// WithCallTimeout bounds each individual backend call so one unresponsive
// request cannot stall the session. Timeouts are retryable failures.
func WithCallTimeout(d time.Duration) ManagerOption {
	return func(m *Manager) {
		if d > 0 {
			m.callTimeout = d
		}
	}
}

// WithBackoffUnit scales the exponential retry backoff (2^retryCount units).
// Production uses one second; tests shrink it.
func WithBackoffUnit(d time.Duration) ManagerOption {
	return func(m *Manager) {
		if d > 0 {
			m.backoffUnit = d
		}
	}
}

func NewManager(backend Backend, c *cache.Cache, l *ratelimit.Limiter, opts ...ManagerOption) *Manager {
	m := &Manager{
		backend:     backend,
		cache:       c,
		limiter:     l,
		callTimeout: 30 * time.Second,
		backoffUnit: time.Second,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Start begins a new translation run over tree. It fails with
// ErrAlreadyRunning while a session is active and ErrNoTranslatableContent
// when the classifier accepts nothing. Any previous finished session is
// replaced. Processing continues in the background; observe it via Snapshot
// and Wait.
func (m *Manager) Start(ctx context.Context, tree jsontree.Node, cfg Config) (*Session, error) {
	cfg = cfg.withDefaults()

	occurrences := jsontree.Extract(tree)
	if len(occurrences) == 0 {
		return nil, ErrNoTranslatableContent
	}
	uniques := jsontree.Deduplicate(occurrences)

	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return nil, ErrAlreadyRunning
	}
	sess := buildSession(tree, cfg, uniques)
	m.current = sess
	m.cfg = cfg
	m.running = true
	m.pause = false
	m.done = make(chan struct{})
	m.appendLogLocked("info", "Session %s started: %d occurrences, %d unique strings, %d batches",
		sess.ID, len(occurrences), len(uniques), len(sess.Batches))
	snapshot := cloneSession(sess)
	done := m.done
	m.mu.Unlock()

	// Rate limiter state is shared process-wide but windows from previous
	// independent sessions must not throttle this one.
	m.limiter.Reset()

	go m.run(ctx, done)
	return snapshot, nil
}

// Resume continues the existing session from the first non-completed batch,
// reusing its language configuration. Jobs already completed are never
// re-sent to the backend.
func (m *Manager) Resume(ctx context.Context) (*Session, error) {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return nil, ErrAlreadyRunning
	}
	if m.current == nil {
		m.mu.Unlock()
		return nil, ErrNoSession
	}
	sess := m.current
	sess.Status = StatusProcessing
	sess.EndTime = time.Time{}
	m.running = true
	m.pause = false
	m.done = make(chan struct{})
	m.appendLogLocked("info", "Session %s resumed", sess.ID)
	snapshot := cloneSession(sess)
	done := m.done
	m.mu.Unlock()

	go m.run(ctx, done)
	return snapshot, nil
}

// Pause requests a cooperative stop. The batch loop finishes the in-flight
// job and declines to start further work; in-flight backend calls are not
// interrupted.
func (m *Manager) Pause() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.running {
		return ErrNoSession
	}
	m.pause = true
	m.appendLogLocked("info", "Pause requested")
	return nil
}

// Stop is an alias for Pause: cancellation is cooperative and the session
// stays resumable.
func (m *Manager) Stop() error {
	return m.Pause()
}

// Wait blocks until the current run leaves its processing loop.
func (m *Manager) Wait(ctx context.Context) error {
	m.mu.Lock()
	done := m.done
	m.mu.Unlock()
	if done == nil {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-done:
		return nil
	}
}

// Snapshot returns a deep copy of the current session, or nil when none
// exists. Consumers poll this for progress.
func (m *Manager) Snapshot() *Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return cloneSession(m.current)
}

// Reset discards the current session so the next Start begins fresh. Fails
// while a run is active.
func (m *Manager) Reset() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.running {
		return ErrAlreadyRunning
	}
	m.current = nil
	return nil
}

func buildSession(tree jsontree.Node, cfg Config, uniques []jsontree.UniqueString) *Session {
	sess := &Session{
		ID:             uuid.NewString(),
		SourceLanguage: cfg.SourceLanguage,
		TargetLanguage: cfg.TargetLanguage,
		OriginalTree:   tree,
		TotalStrings:   len(uniques),
		Status:         StatusProcessing,
		StartTime:      time.Now(),
	}

	now := time.Now()
	jobSeq := 0
	for start := 0; start < len(uniques); start += cfg.BatchSize {
		end := start + cfg.BatchSize
		if end > len(uniques) {
			end = len(uniques)
		}
		batch := &Batch{
			ID:     fmt.Sprintf("batch-%d", len(sess.Batches)+1),
			Status: BatchPending,
		}
		for _, unique := range uniques[start:end] {
			jobSeq++
			batch.Jobs = append(batch.Jobs, &Job{
				ID:             fmt.Sprintf("job-%d", jobSeq),
				OriginalText:   unique.Value,
				SourceLanguage: cfg.SourceLanguage,
				TargetLanguage: cfg.TargetLanguage,
				Status:         JobPending,
				CreatedAt:      now,
				UpdatedAt:      now,
			})
		}
		sess.Batches = append(sess.Batches, batch)
	}
	return sess
}

// run drives the batch loop and finalization for one Start or Resume call.
func (m *Manager) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	err := m.processBatches(ctx)

	m.mu.Lock()
	sess := m.current
	paused := m.pause || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
	m.running = false
	m.pause = false
	switch {
	case err != nil && !paused:
		sess.Status = StatusError
		sess.EndTime = time.Now()
		m.appendLogLocked("error", "Session %s failed: %v", sess.ID, err)
		m.mu.Unlock()
		return
	case paused:
		sess.Status = StatusPaused
		m.appendLogLocked("info", "Session %s paused", sess.ID)
		m.mu.Unlock()
		return
	}
	m.mu.Unlock()

	m.finalize()
}

// processBatches iterates batches in order, skipping completed ones so a
// resumed session picks up exactly where it left off. A pause request aborts
// before the next batch or job.
func (m *Manager) processBatches(ctx context.Context) error {
	for batchIdx := 0; ; batchIdx++ {
		m.mu.Lock()
		if batchIdx >= len(m.current.Batches) {
			m.mu.Unlock()
			return nil
		}
		if m.pause {
			m.mu.Unlock()
			return nil
		}
		batch := m.current.Batches[batchIdx]
		if batch.Status == BatchCompleted {
			m.mu.Unlock()
			continue
		}
		batch.Status = BatchProcessing
		jobCount := len(batch.Jobs)
		m.mu.Unlock()

		for jobIdx := 0; jobIdx < jobCount; jobIdx++ {
			m.mu.Lock()
			if m.pause {
				m.mu.Unlock()
				return nil
			}
			job := batch.Jobs[jobIdx]
			runnable := job.Status == JobPending || job.Status == JobError
			if runnable {
				job.Status = JobTranslating
				job.UpdatedAt = time.Now()
			}
			m.mu.Unlock()
			if !runnable {
				continue
			}

			if err := m.processJob(ctx, job); err != nil {
				return err
			}

			m.mu.Lock()
			m.recountLocked()
			m.mu.Unlock()
		}

		m.mu.Lock()
		m.completeBatchLocked(batch)
		m.mu.Unlock()
	}
}

// processJob drives a single job to a terminal state: cache lookup, rate
// limit, optional language detection, backend call, and a bounded retry loop
// with exponential backoff. Only context errors propagate; job failures land
// in the job itself.
func (m *Manager) processJob(ctx context.Context, job *Job) error {
	maxRetries := m.cfg.MaxRetries

	for {
		// Step 1: the cache bounds backend calls to one per unique triple.
		if translated, ok := m.cache.Get(ctx, job.OriginalText, job.SourceLanguage, job.TargetLanguage); ok {
			m.completeJob(job, translated)
			m.logJob("info", job, "cache hit")
			return nil
		}

		// Step 2: shared sliding-window admission.
		if err := m.limiter.Wait(ctx); err != nil {
			m.markPending(job)
			return err
		}

		// Step 3: resolve "auto" to a concrete source language. The detected
		// code sticks to the job so the cache write and any retry lookups use
		// the effective language pair.
		if job.SourceLanguage == "auto" {
			m.setSourceLanguage(job, m.detectLanguage(ctx, job))
		}

		// Step 4: the backend call, individually bounded.
		callCtx, cancel := context.WithTimeout(ctx, m.callTimeout)
		translated, err := m.backend.Translate(callCtx, job.OriginalText, job.SourceLanguage, job.TargetLanguage)
		cancel()

		if err == nil {
			if strings.TrimSpace(translated) == "" {
				m.skipJob(job)
				m.logJob("warn", job, "backend returned empty translation, skipped")
				return nil
			}
			// Step 5: write-through so repeats and future sessions hit cache.
			m.cache.Set(ctx, job.OriginalText, job.SourceLanguage, job.TargetLanguage, translated)
			m.completeJob(job, translated)
			m.logJob("info", job, "translated")
			return nil
		}
		if ctx.Err() != nil {
			m.markPending(job)
			return ctx.Err()
		}

		// Step 6: retry with exponential backoff until the budget runs out.
		m.mu.Lock()
		job.RetryCount++
		retries := job.RetryCount
		job.UpdatedAt = time.Now()
		m.mu.Unlock()

		if retries > maxRetries {
			m.failJob(job, err)
			m.logJob("error", job, "failed after %d retries: %v", retries-1, err)
			return nil
		}

		backoff := m.backoffUnit * (1 << retries)
		m.logJob("warn", job, "attempt %d failed (%v), retrying in %s", retries, err, backoff)
		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			m.markPending(job)
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// detectLanguage asks the backend first, falls back to local detection, and
// finally to the configured fallback language. Detection failures never fail
// the job.
func (m *Manager) detectLanguage(ctx context.Context, job *Job) string {
	callCtx, cancel := context.WithTimeout(ctx, m.callTimeout)
	code, err := m.backend.DetectLanguage(callCtx, job.OriginalText)
	cancel()
	if err == nil && code != "" {
		m.logJob("info", job, "detected source language %q", code)
		return code
	}
	m.logJob("warn", job, "backend detection failed (%v), trying local detection", err)

	info := whatlanggo.Detect(job.OriginalText)
	if info.IsReliable() {
		if code := info.Lang.Iso6391(); code != "" {
			m.logJob("info", job, "locally detected source language %q", code)
			return code
		}
	}

	m.logJob("warn", job, "falling back to %q", m.cfg.FallbackLanguage)
	return m.cfg.FallbackLanguage
}

// setSourceLanguage records the resolved language under the session lock;
// snapshots may be reading the job concurrently.
func (m *Manager) setSourceLanguage(job *Job, lang string) {
	m.mu.Lock()
	job.SourceLanguage = lang
	job.UpdatedAt = time.Now()
	m.mu.Unlock()
}

func (m *Manager) completeJob(job *Job, translated string) {
	m.mu.Lock()
	job.Status = JobCompleted
	job.TranslatedText = translated
	job.Error = ""
	job.UpdatedAt = time.Now()
	m.mu.Unlock()
}

func (m *Manager) skipJob(job *Job) {
	m.mu.Lock()
	job.Status = JobSkipped
	job.UpdatedAt = time.Now()
	m.mu.Unlock()
}

func (m *Manager) failJob(job *Job, err error) {
	m.mu.Lock()
	job.Status = JobError
	job.Error = err.Error()
	job.UpdatedAt = time.Now()
	m.mu.Unlock()
}

// markPending returns an interrupted job to the resumable pool.
func (m *Manager) markPending(job *Job) {
	m.mu.Lock()
	if job.Status == JobTranslating {
		job.Status = JobPending
		job.UpdatedAt = time.Now()
	}
	m.mu.Unlock()
}

func (m *Manager) completeBatchLocked(batch *Batch) {
	allTerminal := true
	anyError := false
	for _, job := range batch.Jobs {
		if !job.Status.terminal() {
			allTerminal = false
		}
		if job.Status == JobError {
			anyError = true
		}
	}
	switch {
	case !allTerminal:
		batch.Status = BatchPending
	case anyError:
		// Error batches stay eligible for a future resume pass.
		batch.Status = BatchError
	default:
		batch.Status = BatchCompleted
	}
	m.appendLogLocked("info", "Batch %s finished with status %s", batch.ID, batch.Status)
}

// recountLocked re-derives every aggregate from job states. Counters are
// never incremented in place, so they cannot drift from job status.
func (m *Manager) recountLocked() {
	sess := m.current
	translated, skipped, failed := 0, 0, 0
	for _, batch := range sess.Batches {
		done := 0
		for _, job := range batch.Jobs {
			switch job.Status {
			case JobCompleted:
				translated++
				done++
			case JobSkipped:
				skipped++
				done++
			case JobError:
				failed++
			}
		}
		if len(batch.Jobs) > 0 {
			batch.Progress = float64(done) / float64(len(batch.Jobs)) * 100
		}
	}
	sess.TranslatedCount = translated
	sess.SkippedCount = skipped
	sess.ErrorCount = failed
}

// finalize rebuilds the unique-string correspondence from the original tree,
// fans every completed job's translation out to all occurrence paths, and
// produces the translated tree plus its diff and patch.
func (m *Manager) finalize() {
	m.mu.Lock()
	sess := m.current
	occurrences := jsontree.Extract(sess.OriginalTree)
	uniques := jsontree.Deduplicate(occurrences)

	jobs := make([]*Job, 0, sess.TotalStrings)
	for _, batch := range sess.Batches {
		jobs = append(jobs, batch.Jobs...)
	}

	translations := make(map[string]string)
	for i, unique := range uniques {
		if i >= len(jobs) {
			break
		}
		job := jobs[i]
		if job.Status != JobCompleted || job.OriginalText != unique.Value {
			continue
		}
		for _, occIdx := range unique.Occurrences {
			translations[jsontree.JoinPath(occurrences[occIdx].Path)] = job.TranslatedText
		}
	}

	sess.TranslatedTree = jsontree.Apply(sess.OriginalTree, translations)
	sess.Diff = jsontree.Diff(sess.OriginalTree, sess.TranslatedTree)
	sess.Patch = jsontree.CreatePatch(sess.OriginalTree, sess.TranslatedTree)
	m.recountLocked()
	sess.Status = StatusCompleted
	sess.EndTime = time.Now()
	m.appendLogLocked("info", "Session %s completed: %d translated, %d skipped, %d errors",
		sess.ID, sess.TranslatedCount, sess.SkippedCount, sess.ErrorCount)
	m.mu.Unlock()
}

func (m *Manager) logJob(level string, job *Job, format string, args ...interface{}) {
	m.mu.Lock()
	m.appendLogLocked(level, "Job %s (%q): %s", job.ID, truncate(job.OriginalText, 40), fmt.Sprintf(format, args...))
	m.mu.Unlock()
}

// appendLogLocked records an entry on the session's log stream and mirrors it
// to the process logger.
func (m *Manager) appendLogLocked(level, format string, args ...interface{}) {
	message := fmt.Sprintf(format, args...)
	if m.current != nil {
		m.current.Logs = append(m.current.Logs, LogEntry{
			Timestamp: time.Now(),
			Level:     level,
			Message:   message,
		})
	}
	switch level {
	case "warn":
		log.Warn("%s", message)
	case "error":
		log.Error("%s", message)
	default:
		log.Info("%s", message)
	}
}

func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	return s[:limit] + "..."
}
