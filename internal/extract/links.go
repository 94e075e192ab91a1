package extract

import (
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"
)

// Non-document extensions that can never be a detail page.
var skipExtensions = []string{
	".apk", ".jpg", ".jpeg", ".png", ".gif", ".css", ".js", ".pdf", ".zip", ".exe", ".rar",
}

// Anchor text containing any of these is navigation or boilerplate, not an
// article. Both the CJK and latin variants are checked.
var noiseKeywords = []string{
	"登录", "注册", "帮助", "关于", "联系", "反馈", "更多", "首页", "地图", "招聘",
	"login", "register", "help", "about", "contact", "feedback", "more", "home", "sitemap", "careers",
}

const (
	minAnchorTextLen = 4
	minHrefLen       = 10
)

// LinkDiscoverer pulls candidate detail-page links out of a list page using
// only structural selectors and text heuristics.
type LinkDiscoverer struct {
	logger *zap.Logger
}

func NewLinkDiscoverer(logger *zap.Logger) *LinkDiscoverer {
	return &LinkDiscoverer{logger: logger}
}

// Discover returns the absolute URLs of surviving anchors in document order.
// When the selector matches nothing and the page has no anchors at all, the
// page itself is treated as a single article and [pageURL] is returned.
func (d *LinkDiscoverer) Discover(doc *goquery.Document, pageURL, selector string) []string {
	if selector == "" {
		selector = "a"
	}

	base, err := url.Parse(pageURL)
	if err != nil {
		d.logger.Error("invalid page URL", zap.String("url", pageURL), zap.Error(err))
		return nil
	}

	matched := doc.Find(selector)
	d.logger.Debug("selector matched elements",
		zap.String("selector", selector), zap.Int("count", matched.Length()))

	var links []string
	matched.Each(func(i int, s *goquery.Selection) {
		href, ok := s.Attr("href")
		if !ok {
			return
		}
		href = NormalizeHref(href)
		if href == "" {
			return
		}

		text := strings.TrimSpace(s.Text())
		if !keepLink(href, text) {
			d.logger.Debug("link filtered", zap.String("href", href), zap.String("text", text))
			return
		}

		ref, err := url.Parse(href)
		if err != nil {
			return
		}
		links = append(links, base.ResolveReference(ref).String())
	})

	if len(links) == 0 {
		if doc.Find("a").Length() == 0 {
			d.logger.Info("page has no anchors, treating it as a single article",
				zap.String("url", pageURL))
			return []string{pageURL}
		}
		d.logger.Warn("no valid links found, selector may be wrong",
			zap.String("selector", selector), zap.String("url", pageURL))
	}

	return links
}

// NormalizeHref trims the attribute, keeps only the first whitespace-delimited
// token, and repairs the single-slash scheme artifact ("https:/x" -> "https://x").
func NormalizeHref(href string) string {
	href = strings.TrimSpace(href)
	if fields := strings.Fields(href); len(fields) > 0 {
		href = fields[0]
	} else {
		return ""
	}

	if strings.HasPrefix(href, "https:/") && !strings.HasPrefix(href, "https://") {
		href = "https://" + strings.TrimPrefix(href, "https:/")
	}
	if strings.HasPrefix(href, "http:/") && !strings.HasPrefix(href, "http://") && !strings.HasPrefix(href, "https://") {
		href = "http://" + strings.TrimPrefix(href, "http:/")
	}
	return href
}

func keepLink(href, text string) bool {
	lower := strings.ToLower(href)
	for _, ext := range skipExtensions {
		if strings.HasSuffix(lower, ext) {
			return false
		}
	}

	if utf8.RuneCountInString(text) < minAnchorTextLen {
		return false
	}
	if len(href) < minHrefLen {
		return false
	}
	if strings.HasPrefix(lower, "javascript") || strings.HasPrefix(href, "#") {
		return false
	}

	lowerText := strings.ToLower(text)
	for _, kw := range noiseKeywords {
		if strings.Contains(lowerText, kw) {
			return false
		}
	}
	return true
}
