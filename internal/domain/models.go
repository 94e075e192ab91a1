package domain

// ArticleRecord holds everything extracted from one detail page. It is built
// once per page and never mutated afterwards; IsBestseller is always derived
// from the three counters at build time.
type ArticleRecord struct {
	Title        string `json:"title"`
	Author       string `json:"author"`
	PublishTime  string `json:"publish_time"`
	ReadCount    int    `json:"read_count"`
	LikeCount    int    `json:"like_count"`
	CollectCount int    `json:"collect_count"`
	Summary      string `json:"summary"`
	Content      string `json:"content"`
	DetailURL    string `json:"detail_url"`
	IsBestseller bool   `json:"is_bestseller"`
	StatusCode   int    `json:"status_code,omitempty"` // 0 when the fetch never completed
	Error        string `json:"error,omitempty"`       // e.g. "request_failed", "http_404"
}

// StartRequest is the payload for the start endpoint. Keywords is a free-form
// string split on commas (ASCII or fullwidth) and whitespace.
type StartRequest struct {
	Keywords string `json:"keywords"`
}

// StatusResponse is a point-in-time snapshot of the running job.
type StatusResponse struct {
	IsRunning        bool   `json:"is_running"`
	Progress         int    `json:"progress"`
	TotalLinks       int    `json:"total_links"`
	CurrentIndex     int    `json:"current_index"`
	BestsellersFound int    `json:"bestsellers_found"`
	Error            string `json:"error,omitempty"`
}

// LogsResponse carries the log lines appended since the caller's cursor.
type LogsResponse struct {
	Logs      []string `json:"logs"`
	NextIndex int      `json:"next_index"`
}

// PreviewItem is a truncated view of one collected record.
type PreviewItem struct {
	Title          string `json:"title"`
	PublishTime    string `json:"publish_time"`
	Summary        string `json:"summary"`
	DetailURL      string `json:"detail_url"`
	StatusCode     int    `json:"status_code,omitempty"`
	Error          string `json:"error,omitempty"`
	ContentLength  int    `json:"content_length"`
	ContentPreview string `json:"content_preview"`
}

// PreviewResponse lists truncated records from the last completed run.
type PreviewResponse struct {
	Items      []PreviewItem `json:"items"`
	Total      int           `json:"total"`
	FinishedAt string        `json:"finished_at,omitempty"`
}
