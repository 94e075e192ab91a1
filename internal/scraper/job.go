package scraper

import (
	"context"
	"fmt"
	"sync"
	"time"

	"scraper/internal/domain"
)

// Job is the shared state of one pipeline run. The run goroutine is the only
// writer; API pollers read concurrently through the mutex. A Job is reused
// across runs but never by two runs at once.
type Job struct {
	mu sync.Mutex

	running          bool
	totalLinks       int
	currentIndex     int
	bestsellersFound int
	err              string
	cancel           context.CancelFunc

	// Append-only within a process; read incrementally by cursor.
	logs []string

	lastResults []domain.ArticleRecord
	finishedAt  string

	now func() time.Time
}

func NewJob() *Job {
	return &Job{now: time.Now}
}

// TryStart transitions Idle -> Running and resets the per-run counters.
// It returns false without side effects when a run is already in flight.
func (j *Job) TryStart() (context.Context, bool) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.running {
		return nil, false
	}

	ctx, cancel := context.WithCancel(context.Background())
	j.running = true
	j.totalLinks = 0
	j.currentIndex = 0
	j.bestsellersFound = 0
	j.err = ""
	j.cancel = cancel
	return ctx, true
}

// Stop requests cooperative cancellation. It returns false when no run is
// in flight. The worker notices at the next loop boundary.
func (j *Job) Stop() bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	if !j.running {
		return false
	}
	if j.cancel != nil {
		j.cancel()
	}
	return true
}

// Finish transitions to Terminal, keeping the collected records for preview.
func (j *Job) Finish(records []domain.ArticleRecord) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.running = false
	j.cancel = nil
	j.lastResults = records
	j.finishedAt = j.now().Format("2006-01-02 15:04:05")
}

// SetError records a job-fatal failure. The job still terminates normally.
func (j *Job) SetError(msg string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.err = msg
}

func (j *Job) SetTotalLinks(n int) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.totalLinks = n
}

// NextIndex advances the detail-stage cursor and returns the 1-based index.
func (j *Job) NextIndex() int {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.currentIndex++
	return j.currentIndex
}

func (j *Job) IncBestsellers() {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.bestsellersFound++
}

// Status snapshots the job. Progress is recomputed against the latest link
// total, which may still grow while list pages are being discovered.
func (j *Job) Status() domain.StatusResponse {
	j.mu.Lock()
	defer j.mu.Unlock()

	total := j.totalLinks
	if total < 1 {
		total = 1
	}
	return domain.StatusResponse{
		IsRunning:        j.running,
		Progress:         j.currentIndex * 100 / total,
		TotalLinks:       j.totalLinks,
		CurrentIndex:     j.currentIndex,
		BestsellersFound: j.bestsellersFound,
		Error:            j.err,
	}
}

// Logf appends a timestamped line to the job log.
func (j *Job) Logf(format string, args ...any) {
	j.mu.Lock()
	defer j.mu.Unlock()
	line := fmt.Sprintf("[%s] %s", j.now().Format("2006-01-02 15:04:05"), fmt.Sprintf(format, args...))
	j.logs = append(j.logs, line)
}

// Logs returns the lines appended at or after the cursor, plus the next
// cursor value. The log is never truncated, so cursors stay valid.
func (j *Job) Logs(since int) ([]string, int) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if since < 0 {
		since = 0
	}
	if since > len(j.logs) {
		since = len(j.logs)
	}
	out := make([]string, len(j.logs)-since)
	copy(out, j.logs[since:])
	return out, len(j.logs)
}

// Preview returns truncated summaries of the last completed run's records.
func (j *Job) Preview(limit int) domain.PreviewResponse {
	if limit <= 0 {
		limit = 20
	}
	if limit > 200 {
		limit = 200
	}

	j.mu.Lock()
	defer j.mu.Unlock()

	items := make([]domain.PreviewItem, 0, limit)
	for _, rec := range j.lastResults {
		if len(items) >= limit {
			break
		}
		items = append(items, previewItem(rec))
	}
	return domain.PreviewResponse{
		Items:      items,
		Total:      len(j.lastResults),
		FinishedAt: j.finishedAt,
	}
}

func previewItem(rec domain.ArticleRecord) domain.PreviewItem {
	preview := rec.Content
	if runes := []rune(preview); len(runes) > 300 {
		preview = string(runes[:300]) + "..."
	}
	return domain.PreviewItem{
		Title:          rec.Title,
		PublishTime:    rec.PublishTime,
		Summary:        rec.Summary,
		DetailURL:      rec.DetailURL,
		StatusCode:     rec.StatusCode,
		Error:          rec.Error,
		ContentLength:  len([]rune(rec.Content)),
		ContentPreview: preview,
	}
}
