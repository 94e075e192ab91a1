package extract

import (
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"scraper/internal/config"
)

const (
	// Paragraphs shorter than this are navigation crumbs, not body text.
	minParagraphLen = 20
	// A paragraph pool below this total is not accepted as article content.
	minContentLen = 200
)

var digitRun = regexp.MustCompile(`\d+`)

// FieldExtractor reads structured fields out of a parsed detail page using
// the configured selectors.
type FieldExtractor struct {
	selectors config.Selectors
	logger    *zap.Logger
}

func NewFieldExtractor(selectors config.Selectors, logger *zap.Logger) *FieldExtractor {
	return &FieldExtractor{selectors: selectors, logger: logger}
}

// Text returns the trimmed text of the first element matching the field's
// selector, truncated with an ellipsis when maxLength > 0. Missing selector
// or no match yields "".
func (e *FieldExtractor) Text(doc *goquery.Document, field string, maxLength int) string {
	selector := e.selectors.Lookup(field)
	if selector == "" {
		e.logger.Debug("no selector configured", zap.String("field", field))
		return ""
	}

	s := doc.Find(selector).First()
	if s.Length() == 0 {
		return ""
	}
	text := strings.TrimSpace(s.Text())
	if maxLength > 0 && utf8.RuneCountInString(text) > maxLength {
		text = string([]rune(text)[:maxLength]) + "..."
	}
	return text
}

// Number extracts the first run of digits from the field's element, with
// thousands separators stripped first. Anything missing yields 0.
func (e *FieldExtractor) Number(doc *goquery.Document, field string) int {
	selector := e.selectors.Lookup(field)
	if selector == "" {
		e.logger.Debug("no selector configured", zap.String("field", field))
		return 0
	}

	s := doc.Find(selector).First()
	if s.Length() == 0 {
		return 0
	}
	text := strings.ReplaceAll(strings.TrimSpace(s.Text()), ",", "")
	run := digitRun.FindString(text)
	if run == "" {
		return 0
	}
	n, err := strconv.Atoi(run)
	if err != nil {
		return 0
	}
	return n
}

// Title resolves the article title: configured selector first, then the
// document's own <title>. The caller substitutes the URL if both are empty.
func (e *FieldExtractor) Title(doc *goquery.Document) string {
	if title := e.Text(doc, "title", 0); title != "" {
		return title
	}
	return strings.TrimSpace(doc.Find("title").First().Text())
}

// Content runs the full-text cascade: configured selector, then <article>
// paragraphs, then document-wide paragraphs, then the largest structural
// block. Script, style and noscript elements are stripped first, so extract
// structured fields before calling this.
func (e *FieldExtractor) Content(doc *goquery.Document) string {
	doc.Find("script, style, noscript").Each(func(i int, s *goquery.Selection) {
		s.Remove()
	})

	if selector := e.selectors.Content; selector != "" {
		if s := doc.Find(selector); s.Length() > 0 {
			var parts []string
			s.Each(func(i int, el *goquery.Selection) {
				if t := strings.TrimSpace(el.Text()); t != "" {
					parts = append(parts, t)
				}
			})
			return strings.Join(parts, "\n")
		}
	}

	if article := doc.Find("article").First(); article.Length() > 0 {
		if text := joinParagraphs(article.Find("p")); utf8.RuneCountInString(text) >= minContentLen {
			return text
		}
	}

	if text := joinParagraphs(doc.Find("p")); utf8.RuneCountInString(text) >= minContentLen {
		return text
	}

	return largestBlock(doc)
}

// joinParagraphs keeps paragraphs with enough visible text and joins them.
func joinParagraphs(paragraphs *goquery.Selection) string {
	var kept []string
	paragraphs.Each(func(i int, p *goquery.Selection) {
		text := strings.Join(strings.Fields(p.Text()), " ")
		if utf8.RuneCountInString(text) >= minParagraphLen {
			kept = append(kept, text)
		}
	})
	return strings.TrimSpace(strings.Join(kept, "\n"))
}

// largestBlock returns the div, section or main element with the most text.
func largestBlock(doc *goquery.Document) string {
	best := ""
	doc.Find("div, section, main").Each(func(i int, s *goquery.Selection) {
		text := strings.TrimSpace(s.Text())
		if len(text) > len(best) {
			best = text
		}
	})
	return best
}
