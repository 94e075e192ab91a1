package fetch

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"io"
	"math/rand"
	"mime"
	"net"
	"net/http"
	neturl "net/url"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/net/html/charset"
	"golang.org/x/text/encoding/htmlindex"

	"scraper/internal/proxy"
)

// FailKind classifies why a request never produced a transport-level response.
type FailKind string

const (
	FailTimeout    FailKind = "timeout"
	FailConnection FailKind = "connection"
	FailTLS        FailKind = "tls"
	FailOther      FailKind = "other"
)

// Result is the outcome of one fetch. Either Fail is set and the body is
// empty, or the request completed at the transport level and StatusCode,
// Header and Body are populated. Non-2xx statuses are results, not failures.
type Result struct {
	URL        string
	StatusCode int
	Header     http.Header
	Body       string
	Fail       FailKind
}

// OK reports whether the request completed at the transport level.
func (r *Result) OK() bool {
	return r.Fail == ""
}

// Options configures a Fetcher.
type Options struct {
	Timeout      time.Duration
	TLSVerify    bool
	MaxRedirects int
	MaxRetries   int
	BaseDelay    time.Duration
}

// Fetcher performs HTTP GETs with bounded retries and exponential backoff.
// It holds no per-job state and is safe for concurrent use.
type Fetcher struct {
	client     *http.Client
	agents     *proxy.Manager
	maxRetries int
	baseDelay  time.Duration
	logger     *zap.Logger
}

func NewFetcher(opts Options, agents *proxy.Manager, logger *zap.Logger) *Fetcher {
	transport := &http.Transport{
		TLSClientConfig: &tls.Config{InsecureSkipVerify: !opts.TLSVerify},
		Proxy: func(req *http.Request) (*neturl.URL, error) {
			if p := agents.GetProxy(); p != "" {
				return neturl.Parse(p)
			}
			return nil, nil
		},
	}

	maxRedirects := opts.MaxRedirects
	client := &http.Client{
		Transport: transport,
		Timeout:   opts.Timeout,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= maxRedirects {
				return http.ErrUseLastResponse
			}
			return nil
		},
	}

	maxRetries := opts.MaxRetries
	if maxRetries < 1 {
		maxRetries = 1
	}

	return &Fetcher{
		client:     client,
		agents:     agents,
		maxRetries: maxRetries,
		baseDelay:  opts.BaseDelay,
		logger:     logger,
	}
}

// Fetch GETs the URL, retrying transient transport failures up to the retry
// budget. A response with any HTTP status is returned immediately without
// retry. On exhausted retries the Result carries the last failure's kind.
func (f *Fetcher) Fetch(ctx context.Context, url string) *Result {
	var kind FailKind
	for attempt := 0; attempt < f.maxRetries; attempt++ {
		res, err := f.do(ctx, url)
		if err == nil {
			return res
		}

		kind = Classify(err)
		f.logger.Warn("request failed",
			zap.String("url", url),
			zap.Int("attempt", attempt+1),
			zap.Int("max_retries", f.maxRetries),
			zap.String("kind", string(kind)),
			zap.Error(err))

		if attempt == f.maxRetries-1 {
			break
		}
		delay := f.backoff(attempt)
		f.logger.Info("waiting before retry", zap.Duration("delay", delay), zap.String("url", url))
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return &Result{URL: url, Fail: kind}
		}
	}
	f.logger.Error("request finally failed", zap.String("url", url), zap.String("kind", string(kind)))
	return &Result{URL: url, Fail: kind}
}

// backoff is base * 2^attempt plus up to one second of jitter.
func (f *Fetcher) backoff(attempt int) time.Duration {
	delay := f.baseDelay * time.Duration(1<<attempt)
	return delay + time.Duration(rand.Float64()*float64(time.Second))
}

func (f *Fetcher) do(ctx context.Context, url string) (*Result, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", f.agents.GetUserAgent())

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != http.StatusOK {
		f.logger.Warn("non-200 status", zap.String("url", url), zap.Int("status", resp.StatusCode))
	}

	return &Result{
		URL:        url,
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       DecodeBody(raw, resp.Header.Get("Content-Type")),
	}, nil
}

// DecodeBody converts a raw response body to UTF-8. A charset declared in the
// Content-Type is honored unless it is absent or the iso-8859-1 HTTP default,
// in which case the content is sniffed; an unsniffable body is treated as
// UTF-8 rather than the windows-1252 guess.
func DecodeBody(raw []byte, contentType string) string {
	if cs := declaredCharset(contentType); cs != "" && !strings.EqualFold(cs, "iso-8859-1") {
		if enc, err := htmlindex.Get(cs); err == nil && enc != nil {
			if out, err := enc.NewDecoder().Bytes(raw); err == nil {
				return string(out)
			}
		}
		return string(raw)
	}

	enc, name, _ := charset.DetermineEncoding(raw, "")
	if enc == nil || name == "windows-1252" {
		// DetermineEncoding guesses windows-1252 when it found nothing;
		// unlabeled pages are overwhelmingly UTF-8.
		return string(raw)
	}
	out, err := enc.NewDecoder().Bytes(raw)
	if err != nil {
		return string(raw)
	}
	return string(out)
}

func declaredCharset(contentType string) string {
	if contentType == "" {
		return ""
	}
	_, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		return ""
	}
	return params["charset"]
}

// Classify maps a transport error to its failure kind. TLS problems are
// checked before generic dial errors because the handshake error chain also
// contains a *net.OpError.
func Classify(err error) FailKind {
	var nerr net.Error
	if errors.As(err, &nerr) && nerr.Timeout() {
		return FailTimeout
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return FailTimeout
	}

	var recordErr tls.RecordHeaderError
	var certErr *tls.CertificateVerificationError
	var unknownAuthErr x509.UnknownAuthorityError
	var hostErr x509.HostnameError
	if errors.As(err, &recordErr) || errors.As(err, &certErr) ||
		errors.As(err, &unknownAuthErr) || errors.As(err, &hostErr) {
		return FailTLS
	}

	if errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, syscall.ECONNRESET) {
		return FailConnection
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return FailConnection
	}

	return FailOther
}
