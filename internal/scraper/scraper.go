package scraper

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"scraper/internal/config"
	"scraper/internal/domain"
	"scraper/internal/extract"
	"scraper/internal/fetch"
	"scraper/internal/monitoring"
)

// Sink persists the records collected by one run.
type Sink interface {
	Save(ctx context.Context, records []domain.ArticleRecord) error
}

// VisitedStore remembers detail URLs across runs so they can be skipped.
type VisitedStore interface {
	IsRecentlyVisited(ctx context.Context, url string) (bool, error)
	MarkVisited(ctx context.Context, url string) error
}

// Scraper drives the pages -> links -> details pipeline for one job at a
// time. Pages and links are processed strictly sequentially; the politeness
// delays between requests are the rate limit.
type Scraper struct {
	cfg     *config.Config
	fetcher *fetch.Fetcher
	links   *extract.LinkDiscoverer
	fields  *extract.FieldExtractor
	sinks   []Sink
	visited VisitedStore // nil when cross-run dedupe is disabled
	metrics *monitoring.Metrics
	logger  *zap.Logger
	job     *Job
}

func NewScraper(cfg *config.Config, f *fetch.Fetcher, sinks []Sink, visited VisitedStore, m *monitoring.Metrics, l *zap.Logger) *Scraper {
	return &Scraper{
		cfg:     cfg,
		fetcher: f,
		links:   extract.NewLinkDiscoverer(l),
		fields:  extract.NewFieldExtractor(cfg.Selectors, l),
		sinks:   sinks,
		visited: visited,
		metrics: m,
		logger:  l,
		job:     NewJob(),
	}
}

// Job exposes the shared job state for the API layer.
func (s *Scraper) Job() *Job {
	return s.job
}

// Start launches a run on its own goroutine. It returns false when a run is
// already in flight.
func (s *Scraper) Start(keywords []string) bool {
	ctx, ok := s.job.TryStart()
	if !ok {
		return false
	}
	if len(keywords) > 0 {
		s.job.Logf("start accepted, keywords=%v", keywords)
	} else {
		s.job.Logf("start accepted, no keywords set")
	}
	go s.run(ctx, keywords)
	return true
}

// Stop requests cooperative cancellation of the running job.
func (s *Scraper) Stop() bool {
	return s.job.Stop()
}

func (s *Scraper) run(ctx context.Context, keywords []string) {
	var records []domain.ArticleRecord
	defer func() {
		if r := recover(); r != nil {
			msg := fmt.Sprintf("scraper run failed: %v", r)
			s.job.SetError(msg)
			s.job.Logf("%s", msg)
			s.logger.Error("scraper run failed", zap.Any("panic", r))
			s.metrics.IncErrorsTotal("internal")
		}
		s.job.Finish(records)
	}()

	s.job.Logf("starting bestseller scraping task")

	links := s.collectLinks(ctx)
	if len(links) == 0 {
		s.job.Logf("no article links found, task over")
		return
	}

	records = s.processLinks(ctx, links, keywords)
	s.persist(records, keywords)
}

// collectLinks runs the page stage: build each list-page URL, discover links,
// and keep going on empty pages since a page can be temporarily empty.
func (s *Scraper) collectLinks(ctx context.Context) []string {
	var all []string
	for page := 1; page <= s.cfg.MaxPages; page++ {
		if ctx.Err() != nil {
			s.job.Logf("stopped by user")
			break
		}

		pageURL := s.pageURL(page)
		s.job.Logf("fetching page %d: %s", page, pageURL)

		res := s.fetcher.Fetch(ctx, pageURL)
		s.metrics.PagesFetched.Inc()

		var links []string
		if res.OK() {
			doc, err := goquery.NewDocumentFromReader(strings.NewReader(res.Body))
			if err != nil {
				s.logger.Error("failed to parse list page", zap.String("url", pageURL), zap.Error(err))
			} else {
				links = s.links.Discover(doc, pageURL, s.cfg.Selectors.ArticleLinks)
			}
		} else {
			s.metrics.IncErrorsTotal("fetch_failed")
			s.job.Logf("failed to fetch page %d (%s)", page, res.Fail)
		}

		if len(links) == 0 {
			s.job.Logf("page %d has no links, trying next page", page)
			continue
		}

		all = append(all, links...)
		s.job.SetTotalLinks(len(all))
		s.job.Logf("page %d yielded %d links, %d total", page, len(links), len(all))

		s.politenessDelay(ctx, s.cfg.PageDelayMin, s.cfg.PageDelayMax)
	}

	s.job.Logf("collected %d article links in total", len(all))
	return all
}

// processLinks runs the detail stage over the discovered links, applying the
// content-length floor and the optional keyword filter.
func (s *Scraper) processLinks(ctx context.Context, links []string, keywords []string) []domain.ArticleRecord {
	var records []domain.ArticleRecord
	for _, link := range links {
		if ctx.Err() != nil {
			s.job.Logf("stopped by user")
			break
		}

		if s.visited != nil {
			seen, err := s.visited.IsRecentlyVisited(ctx, link)
			if err != nil {
				s.logger.Error("visited lookup failed", zap.String("url", link), zap.Error(err))
			} else if seen {
				s.job.Logf("skipping recently visited: %s", link)
				continue
			}
		}

		idx := s.job.NextIndex()
		s.job.Logf("processing article %d/%d: %s", idx, len(links), link)

		rec := s.parseDetail(ctx, link)
		if rec == nil {
			continue
		}
		if rec.IsBestseller {
			s.job.IncBestsellers()
			s.metrics.BestsellersTotal.Inc()
			s.job.Logf("bestseller found: %s", rec.Title)
		}

		if utf8.RuneCountInString(strings.TrimSpace(rec.Content)) < s.cfg.MinContentLength {
			continue
		}
		if len(keywords) > 0 && !matchesKeywords(rec, keywords) {
			continue
		}
		records = append(records, *rec)

		s.politenessDelay(ctx, s.cfg.RequestDelayMin, s.cfg.RequestDelayMax)
	}
	return records
}

// parseDetail fetches and extracts a single detail page. Failures are
// isolated: a dead page yields an error-tagged record, never an abort.
func (s *Scraper) parseDetail(ctx context.Context, url string) *domain.ArticleRecord {
	res := s.fetcher.Fetch(ctx, url)
	s.metrics.ArticlesTotal.Inc()

	if !res.OK() {
		s.metrics.IncErrorsTotal("fetch_failed")
		return &domain.ArticleRecord{
			Title:     url,
			DetailURL: url,
			Error:     "request_failed",
		}
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(res.Body))
	if err != nil {
		s.logger.Error("failed to parse detail page", zap.String("url", url), zap.Error(err))
		s.metrics.IncErrorsTotal("parse_failed")
		return nil
	}

	title := s.fields.Title(doc)
	author := s.fields.Text(doc, "author", 0)
	publishTime := s.fields.Text(doc, "publish_time", 0)
	readCount := s.fields.Number(doc, "read_count")
	likeCount := s.fields.Number(doc, "like_count")
	collectCount := s.fields.Number(doc, "collect_count")
	summary := s.fields.Text(doc, "summary", 200)
	content := s.fields.Content(doc)

	if summary == "" && content != "" {
		if runes := []rune(content); len(runes) > 200 {
			summary = string(runes[:200]) + "..."
		} else {
			summary = content
		}
	}
	if title == "" {
		title = url
	}

	errTag := ""
	if res.StatusCode != 200 {
		errTag = fmt.Sprintf("http_%d", res.StatusCode)
	}

	interaction := likeCount + collectCount
	rec := &domain.ArticleRecord{
		Title:        title,
		Author:       author,
		PublishTime:  publishTime,
		ReadCount:    readCount,
		LikeCount:    likeCount,
		CollectCount: collectCount,
		Summary:      summary,
		Content:      content,
		DetailURL:    url,
		IsBestseller: IsBestseller(readCount, interaction, s.cfg.MinReadCount, s.cfg.MinInteractionCount),
		StatusCode:   res.StatusCode,
		Error:        errTag,
	}

	s.logger.Debug("article parsed",
		zap.String("url", url),
		zap.Int("read_count", readCount),
		zap.Int("interaction", interaction),
		zap.Bool("bestseller", rec.IsBestseller))
	return rec
}

// persist writes the collected records through every sink; a sink failure is
// logged and surfaced but never discards the in-memory records.
func (s *Scraper) persist(records []domain.ArticleRecord, keywords []string) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	for _, sink := range s.sinks {
		if err := sink.Save(ctx, records); err != nil {
			s.logger.Error("failed to save records", zap.Error(err))
			s.job.Logf("failed to save results: %v", err)
			s.metrics.IncErrorsTotal("sink_failed")
		}
	}

	if s.visited != nil {
		for _, rec := range records {
			if err := s.visited.MarkVisited(ctx, rec.DetailURL); err != nil {
				s.logger.Error("failed to mark visited", zap.String("url", rec.DetailURL), zap.Error(err))
			}
		}
	}

	if len(keywords) > 0 {
		s.job.Logf("task finished, keywords=%v, %d records with full text", keywords, len(records))
	} else {
		s.job.Logf("task finished, %d records with full text", len(records))
	}
}

// pageURL appends the page parameter for pages past the first, joining with
// '&' when the base URL already carries a query string.
func (s *Scraper) pageURL(page int) string {
	if page <= 1 {
		return s.cfg.BaseURL
	}
	sep := "?"
	if strings.Contains(s.cfg.BaseURL, "?") {
		sep = "&"
	}
	return fmt.Sprintf("%s%spage=%d", s.cfg.BaseURL, sep, page)
}

// politenessDelay sleeps a uniform random duration in [min,max] seconds,
// waking early on cancellation.
func (s *Scraper) politenessDelay(ctx context.Context, min, max float64) {
	if max < min {
		max = min
	}
	d := time.Duration((min + rand.Float64()*(max-min)) * float64(time.Second))
	if d <= 0 {
		return
	}
	select {
	case <-time.After(d):
	case <-ctx.Done():
	}
}

// matchesKeywords reports whether any keyword occurs in the article's title
// or content.
func matchesKeywords(rec *domain.ArticleRecord, keywords []string) bool {
	haystack := rec.Title + "\n" + rec.Content
	for _, kw := range keywords {
		if strings.Contains(haystack, kw) {
			return true
		}
	}
	return false
}

// ParseKeywords splits a raw keyword string on ASCII and fullwidth commas,
// the enumeration comma, and whitespace.
func ParseKeywords(raw string) []string {
	raw = strings.NewReplacer("，", ",", "、", ",").Replace(raw)
	var out []string
	for _, part := range strings.Split(raw, ",") {
		for _, token := range strings.Fields(part) {
			out = append(out, token)
		}
	}
	return out
}
