package document

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"carelink/internal/config"
)

const userAgent = "CareLink/1.0 (+care-plan-fetcher)"

// Retriever turns uploaded or remote documents into plain text.
type Retriever struct {
	maxBytes int64
	fallback bool
	client   *http.Client
	breaker  *CircuitBreaker
	log      zerolog.Logger
}

type Option func(*Retriever)

// WithHTTPClient replaces the client used by Fetch.
func WithHTTPClient(c *http.Client) Option {
	return func(r *Retriever) { r.client = c }
}

func NewRetriever(cfg config.DocumentsConfig, log zerolog.Logger, opts ...Option) *Retriever {
	maxMB := cfg.MaxSizeMB
	if maxMB <= 0 {
		maxMB = 10
	}
	timeout := time.Duration(cfg.FetchTimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	log = log.With().Str("component", "document").Logger()

	r := &Retriever{
		maxBytes: int64(maxMB) * 1024 * 1024,
		fallback: cfg.FallbackEnabled,
		client:   &http.Client{Timeout: timeout},
		breaker:  NewCircuitBreaker(cfg.BreakerThreshold, time.Duration(cfg.BreakerTimeoutSeconds)*time.Second, log),
		log:      log,
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

func (r *Retriever) Breaker() *CircuitBreaker { return r.breaker }

func (r *Retriever) MaxBytes() int64 { return r.maxBytes }

// Retrieve reads the text of src. Unreadable or blank documents produce
// FallbackText when fallback is enabled. Oversized and unsupported documents
// are always errors.
func (r *Retriever) Retrieve(ctx context.Context, src Source) (Result, error) {
	return r.retrieve(ctx, src, nil)
}

func (r *Retriever) retrieve(ctx context.Context, src Source, pageURL *url.URL) (Result, error) {
	if int64(len(src.Data)) > r.maxBytes {
		return Result{}, fmt.Errorf("%w: %d bytes", ErrTooLarge, len(src.Data))
	}
	format, err := DetectFormat(src)
	if err != nil {
		return Result{}, fmt.Errorf("%s: %w", src.Name, err)
	}
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	var text string
	switch format {
	case FormatPDF:
		text, err = readPDF(src.Data)
	case FormatHTML:
		text, err = readHTML(src.Data, pageURL)
	default:
		text = readPlain(src.Data)
	}
	if err == nil && strings.TrimSpace(text) == "" {
		err = ErrEmptyDocument
	}

	if err != nil {
		if !r.fallback {
			return Result{}, fmt.Errorf("%s: %w", src.Name, err)
		}
		r.log.Warn().Err(err).Str("document", src.Name).Str("format", string(format)).Msg("using fallback care plan text")
		return Result{
			Text:          FallbackText,
			Format:        format,
			UsingFallback: true,
			Chars:         utf8.RuneCountInString(FallbackText),
			Cause:         err,
		}, nil
	}

	r.log.Debug().Str("document", src.Name).Str("format", string(format)).Int("chars", utf8.RuneCountInString(text)).Msg("text extracted")
	return Result{
		Text:   text,
		Format: format,
		Chars:  utf8.RuneCountInString(text),
	}, nil
}

// Fetch downloads rawURL and retrieves its text. Network failures count
// against the circuit breaker; once it opens, Fetch fails fast with
// ErrCircuitOpen until the cool-down elapses.
func (r *Retriever) Fetch(ctx context.Context, rawURL string) (Result, Source, error) {
	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return Result{}, Source{}, fmt.Errorf("invalid document URL %q", rawURL)
	}

	var src Source
	err = r.breaker.Call(func() error {
		var ferr error
		src, ferr = r.download(ctx, u)
		return ferr
	})
	if err != nil {
		if errors.Is(err, ErrCircuitOpen) {
			r.log.Warn().Str("url", rawURL).Msg("fetch rejected, circuit open")
		}
		return Result{}, Source{}, err
	}

	res, err := r.retrieve(ctx, src, u)
	return res, src, err
}

func (r *Retriever) download(ctx context.Context, u *url.URL) (Source, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return Source{}, err
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := r.client.Do(req)
	if err != nil {
		return Source{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Source{}, fmt.Errorf("HTTP %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, r.maxBytes+1))
	if err != nil {
		return Source{}, err
	}
	if int64(len(data)) > r.maxBytes {
		return Source{}, ErrTooLarge
	}

	name := path.Base(u.Path)
	if name == "/" || name == "." {
		name = u.Host
	}
	ct := resp.Header.Get("Content-Type")
	if mt, _, perr := mime.ParseMediaType(ct); perr == nil {
		ct = mt
	}
	return Source{Name: name, ContentType: ct, Data: data}, nil
}

func readPlain(data []byte) string {
	return strings.TrimSpace(strings.ToValidUTF8(string(data), ""))
}
