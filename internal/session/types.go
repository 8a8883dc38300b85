package session

import (
	"time"

	"github.com/khiemphamm/translate-json/internal/jsontree"
)

type JobStatus string

const (
	JobPending     JobStatus = "pending"
	JobTranslating JobStatus = "translating"
	JobCompleted   JobStatus = "completed"
	JobError       JobStatus = "error"
	JobSkipped     JobStatus = "skipped"
)

// terminal reports whether a job will not be picked up again this run.
func (s JobStatus) terminal() bool {
	return s == JobCompleted || s == JobError || s == JobSkipped
}

type BatchStatus string

const (
	BatchPending    BatchStatus = "pending"
	BatchProcessing BatchStatus = "processing"
	BatchCompleted  BatchStatus = "completed"
	BatchError      BatchStatus = "error"
)

type Status string

const (
	StatusIdle       Status = "idle"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusPaused     Status = "paused"
	StatusError      Status = "error"
)

// Job is the unit of translation work for one unique string.
type Job struct {
	ID             string    `json:"id"`
	OriginalText   string    `json:"original_text"`
	SourceLanguage string    `json:"source_language"`
	TargetLanguage string    `json:"target_language"`
	Status         JobStatus `json:"status"`
	TranslatedText string    `json:"translated_text,omitempty"`
	Error          string    `json:"error,omitempty"`
	RetryCount     int       `json:"retry_count"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Batch is a fixed-size group of jobs in discovery order.
type Batch struct {
	ID       string      `json:"id"`
	Jobs     []*Job      `json:"jobs"`
	Status   BatchStatus `json:"status"`
	Progress float64     `json:"progress"` // percent of jobs completed or skipped
}

// LogEntry is one record of the session's append-only log stream.
type LogEntry struct {
	Timestamp time.Time `json:"timestamp"`
	Level     string    `json:"level"`
	Message   string    `json:"message"`
}

// Session is one end-to-end translation run over one input tree. It
// exclusively owns its batches and jobs.
type Session struct {
	ID              string                `json:"id"`
	SourceLanguage  string                `json:"source_language"`
	TargetLanguage  string                `json:"target_language"`
	OriginalTree    jsontree.Node         `json:"-"`
	TranslatedTree  jsontree.Node         `json:"-"`
	Diff            []jsontree.DiffRecord `json:"-"`
	Patch           jsontree.Node         `json:"-"`
	Batches         []*Batch              `json:"batches"`
	TotalStrings    int                   `json:"total_strings"`
	TranslatedCount int                   `json:"translated_count"`
	SkippedCount    int                   `json:"skipped_count"`
	ErrorCount      int                   `json:"error_count"`
	Status          Status                `json:"status"`
	StartTime       time.Time             `json:"start_time"`
	EndTime         time.Time             `json:"end_time,omitempty"`
	Logs            []LogEntry            `json:"logs"`
}

// Config are the per-run translation settings. MaxRetries zero is a valid
// budget (one attempt, no retries); the application default of 3 comes from
// the configuration layer (MAX_RETRIES), not from here.
type Config struct {
	SourceLanguage   string
	TargetLanguage   string
	FallbackLanguage string
	BatchSize        int
	MaxRetries       int
}

func (c Config) withDefaults() Config {
	if c.SourceLanguage == "" {
		c.SourceLanguage = "auto"
	}
	if c.FallbackLanguage == "" {
		c.FallbackLanguage = "en"
	}
	if c.BatchSize <= 0 {
		c.BatchSize = 50
	}
	if c.MaxRetries < 0 {
		c.MaxRetries = 0
	}
	return c
}

func cloneJob(job *Job) *Job {
	if job == nil {
		return nil
	}
	tmp := *job
	return &tmp
}

func cloneBatch(batch *Batch) *Batch {
	if batch == nil {
		return nil
	}
	tmp := *batch
	tmp.Jobs = make([]*Job, len(batch.Jobs))
	for i, job := range batch.Jobs {
		tmp.Jobs[i] = cloneJob(job)
	}
	return &tmp
}

func cloneSession(sess *Session) *Session {
	if sess == nil {
		return nil
	}
	tmp := *sess
	tmp.Batches = make([]*Batch, len(sess.Batches))
	for i, batch := range sess.Batches {
		tmp.Batches[i] = cloneBatch(batch)
	}
	tmp.Logs = append([]LogEntry(nil), sess.Logs...)
	return &tmp
}
