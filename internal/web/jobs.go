package web

// jobs.go implements asynchronous conversion jobs. A conversion reads an
// uploaded file in one format and produces a download in another. Clients
// get a job ID immediately, subscribe to progress over SSE, and fetch the
// converted output once the job completes.

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/taskdeck/interchange/internal/engine"
	"github.com/taskdeck/interchange/internal/format"
)

// Job phases, in order of occurrence.
const (
	PhaseStarting  = "starting"
	PhaseImporting = "importing"
	PhaseExporting = "exporting"
	PhaseComplete  = "complete"
	PhaseFailed    = "failed"
	PhaseCancelled = "cancelled"
)

// JobProgress is a progress snapshot pushed to subscribers.
type JobProgress struct {
	JobID    string  `json:"jobId"`
	Phase    string  `json:"phase"`
	Fraction float64 `json:"fraction"`
	Message  string  `json:"message,omitempty"`
	Error    string  `json:"error,omitempty"`
}

// Percent returns the progress as a whole percentage, used as the SSE
// event id so clients can resume without duplicate events.
func (p JobProgress) Percent() int {
	return int(p.Fraction * 100)
}

// JobResult is the final outcome of a conversion job.
type JobResult struct {
	From     format.Format        `json:"from"`
	To       format.Format        `json:"to"`
	Import   *engine.ImportResult `json:"import"`
	Export   *engine.ExportResult `json:"export"`
	Output   []byte               `json:"-"`
	MIMEType string               `json:"mimeType"`
	FileName string               `json:"fileName"`
}

// conversionJob is one tracked conversion. Progress fans out to every
// subscribed listener; the Done channel closes exactly once when the job
// reaches a terminal phase.
type conversionJob struct {
	ID       string
	FileName string
	Cancel   context.CancelFunc
	Done     chan struct{}

	mu        sync.Mutex
	progress  JobProgress
	listeners []chan JobProgress
	result    *JobResult
	err       error
}

// setProgress records a snapshot and fans it out without blocking: a slow
// listener drops intermediate updates instead of stalling the conversion.
func (j *conversionJob) setProgress(p JobProgress) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.progress = p
	for _, ch := range j.listeners {
		select {
		case ch <- p:
		default:
		}
	}
}

func (j *conversionJob) closeListeners() {
	j.mu.Lock()
	defer j.mu.Unlock()
	for _, ch := range j.listeners {
		close(ch)
	}
	j.listeners = nil
}

// jobManager tracks active and recently finished conversion jobs.
type jobManager struct {
	limiter *convertLimiter
	timeout time.Duration
	ttl     time.Duration

	mu   sync.RWMutex
	jobs map[string]*conversionJob
}

func newJobManager(limiter *convertLimiter, timeout, ttl time.Duration) *jobManager {
	if timeout <= 0 {
		timeout = 10 * time.Minute
	}
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &jobManager{
		limiter: limiter,
		timeout: timeout,
		ttl:     ttl,
		jobs:    make(map[string]*conversionJob),
	}
}

// Start begins an asynchronous conversion and returns the job ID
// immediately. Returns errTooManyConversions if the concurrency limit is
// reached and no slot becomes available within the wait timeout.
func (m *jobManager) Start(ctx context.Context, fileName string, source []byte, from format.Format, to format.Format, importOpts engine.ImportOptions, exportOpts engine.ExportOptions) (string, error) {
	if err := m.limiter.acquire(ctx); err != nil {
		return "", err
	}

	jobID := uuid.New().String()
	jobCtx, cancel := context.WithTimeout(context.Background(), m.timeout)

	job := &conversionJob{
		ID:       jobID,
		FileName: fileName,
		Cancel:   cancel,
		Done:     make(chan struct{}),
		progress: JobProgress{JobID: jobID, Phase: PhaseStarting},
	}

	m.mu.Lock()
	m.jobs[jobID] = job
	m.mu.Unlock()

	// Process in background with panic recovery to ensure limiter release.
	go func() {
		defer m.limiter.release()
		defer cancel()
		defer func() {
			if r := recover(); r != nil {
				slog.Error("panic in conversion job",
					"job_id", jobID,
					"from", from,
					"to", to,
					"panic", r,
				)
				m.finish(job, nil, fmt.Errorf("internal error: %v", r))
			}
		}()
		m.run(jobCtx, job, source, from, to, importOpts, exportOpts)
	}()

	return jobID, nil
}

// run executes the import and export halves of a conversion, translating
// the engine's raw progress into phased job progress.
func (m *jobManager) run(ctx context.Context, job *conversionJob, source []byte, from format.Format, to format.Format, importOpts engine.ImportOptions, exportOpts engine.ExportOptions) {
	phase := PhaseImporting
	conv := engine.Converter{Progress: func(fraction float64, message string) {
		// Import covers the first half of the bar, export the second.
		scaled := fraction / 2
		if phase == PhaseExporting {
			scaled = 0.5 + fraction/2
		}
		job.setProgress(JobProgress{
			JobID:    job.ID,
			Phase:    phase,
			Fraction: scaled,
			Message:  message,
		})
	}}

	importOpts.Format = from
	imported, err := conv.Import(source, importOpts)
	if err != nil {
		m.finish(job, nil, err)
		return
	}
	if err := ctx.Err(); err != nil {
		m.finish(job, nil, err)
		return
	}

	phase = PhaseExporting
	exportOpts.Format = to

	var out bytes.Buffer
	exported, err := conv.Export(imported.Records, exportOpts, &out)
	if err != nil {
		m.finish(job, nil, err)
		return
	}
	if err := ctx.Err(); err != nil {
		m.finish(job, nil, err)
		return
	}

	desc := format.MustLookup(to)
	result := &JobResult{
		From:     from,
		To:       to,
		Import:   imported,
		Export:   exported,
		Output:   out.Bytes(),
		MIMEType: desc.MIMEType,
		FileName: exportFileName(job.FileName, desc),
	}
	m.finish(job, result, nil)
}

// finish transitions a job to its terminal phase and schedules cleanup.
func (m *jobManager) finish(job *conversionJob, result *JobResult, err error) {
	phase := PhaseComplete
	errMsg := ""
	switch {
	case err == context.Canceled:
		phase = PhaseCancelled
		errMsg = err.Error()
	case err != nil:
		phase = PhaseFailed
		errMsg = err.Error()
	}

	job.mu.Lock()
	job.result = result
	job.err = err
	job.mu.Unlock()

	job.setProgress(JobProgress{
		JobID:    job.ID,
		Phase:    phase,
		Fraction: 1,
		Error:    errMsg,
	})
	job.closeListeners()
	close(job.Done)

	m.cleanup(job.ID, m.ttl)
}

// cleanup removes a finished job after the retention window.
func (m *jobManager) cleanup(jobID string, after time.Duration) {
	time.AfterFunc(after, func() {
		m.mu.Lock()
		delete(m.jobs, jobID)
		m.mu.Unlock()
	})
}

func (m *jobManager) get(jobID string) (*conversionJob, error) {
	m.mu.RLock()
	job, ok := m.jobs[jobID]
	m.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("job not found: %s", jobID)
	}
	return job, nil
}

// Subscribe returns a channel that receives progress updates. The channel
// is closed when the job completes.
func (m *jobManager) Subscribe(jobID string) (<-chan JobProgress, error) {
	job, err := m.get(jobID)
	if err != nil {
		return nil, err
	}

	ch := make(chan JobProgress, 10)

	job.mu.Lock()
	if job.listeners == nil && job.progress.Fraction >= 1 {
		// Already terminal: deliver the final snapshot and close.
		ch <- job.progress
		close(ch)
	} else {
		job.listeners = append(job.listeners, ch)
		select {
		case ch <- job.progress:
		default:
		}
	}
	job.mu.Unlock()

	return ch, nil
}

// Progress returns the current progress without blocking.
func (m *jobManager) Progress(jobID string) (JobProgress, error) {
	job, err := m.get(jobID)
	if err != nil {
		return JobProgress{}, err
	}
	job.mu.Lock()
	defer job.mu.Unlock()
	return job.progress, nil
}

// Cancel cancels an in-progress job.
func (m *jobManager) CancelJob(jobID string) error {
	job, err := m.get(jobID)
	if err != nil {
		return err
	}
	job.Cancel()
	return nil
}

// Result blocks until the job completes and returns its outcome.
func (m *jobManager) Result(jobID string) (*JobResult, error) {
	job, err := m.get(jobID)
	if err != nil {
		return nil, err
	}

	<-job.Done

	job.mu.Lock()
	defer job.mu.Unlock()
	if job.err != nil {
		return nil, job.err
	}
	return job.result, nil
}

// exportFileName derives a download filename from the source name and the
// target format's primary extension.
func exportFileName(source string, desc format.Descriptor) string {
	base := source
	for i := len(base) - 1; i >= 0; i-- {
		if base[i] == '.' {
			base = base[:i]
			break
		}
		if base[i] == '/' {
			break
		}
	}
	if base == "" {
		base = "tasks"
	}
	ext := ""
	if len(desc.Extensions) > 0 {
		ext = desc.Extensions[0]
	}
	return base + ext
}
