package fetcher

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/slrhub/litrag/core/objectstore"
	"github.com/slrhub/litrag/model"
)

var pdfMagic = []byte("%PDF-")

// PDF is a fetched PDF document.
type PDF struct {
	Data      []byte
	Key       string
	FromCache bool
	Source    string
}

// Config holds the fetcher settings.
type Config struct {
	// MaxSize is the maximum accepted PDF size in bytes.
	MaxSize int64
	// Timeout is the per-request download timeout.
	Timeout time.Duration
	// MaxAttempts is the number of download attempts for transient failures.
	MaxAttempts int
	// BaseDelay is the delay before the first retry, doubling per attempt.
	BaseDelay time.Duration
}

// ApplyDefaults fills unset fields with defaults
func (c *Config) ApplyDefaults() {
	if c.MaxSize <= 0 {
		c.MaxSize = 50 << 20
	}
	if c.Timeout <= 0 {
		c.Timeout = 30 * time.Second
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 3
	}
	if c.BaseDelay <= 0 {
		c.BaseDelay = time.Second
	}
}

// CacheKey is the deterministic object store key for a work's PDF within a
// project.
func CacheKey(projectRID uuid.UUID, workRID uuid.UUID) string {
	return fmt.Sprintf("projects/%s/works/%s.pdf", projectRID, workRID)
}

// Fetcher retrieves PDFs, preferring the object store cache over the
// network.
type Fetcher struct {
	store      objectstore.Store
	httpClient *http.Client
	config     Config
	logger     *slog.Logger

	sleep func(time.Duration)
}

// NewFetcher creates a fetcher backed by the given object store cache
func NewFetcher(store objectstore.Store, config Config, logger *slog.Logger) *Fetcher {
	config.ApplyDefaults()

	return &Fetcher{
		store:      store,
		httpClient: &http.Client{Timeout: config.Timeout},
		config:     config,
		logger:     logger,
		sleep:      time.Sleep,
	}
}

// Fetch returns the PDF of a work, from the cache when present, otherwise
// downloaded from the work's URL and written back to the cache. A work
// without a retrievable PDF (no URL, dead link, non-PDF content) returns
// (nil, nil), the caller records it as skipped. Transient download failures
// are retried and returned as errors once attempts are exhausted.
func (f *Fetcher) Fetch(ctx context.Context, projectWork *model.ProjectWork, work *model.Work) (*PDF, error) {
	key := CacheKey(projectWork.ProjectRID, projectWork.WorkRID)
	if projectWork.PDFKey != nil && *projectWork.PDFKey != "" {
		key = *projectWork.PDFKey
	}

	data, err := f.store.Get(ctx, key)
	if err == nil {
		f.logger.Info("PDF served from cache", slog.String("key", key))
		return &PDF{Data: data, Key: key, FromCache: true, Source: key}, nil
	}
	if err != objectstore.ErrNotFound {
		return nil, fmt.Errorf("cache lookup failed: %w", err)
	}

	if strings.TrimSpace(work.URL) == "" {
		f.logger.Info("Work has no PDF URL", slog.String("work", work.RID.String()))
		return nil, nil
	}

	data, err = f.download(ctx, work.URL)
	if err != nil {
		return nil, err
	}
	if data == nil {
		return nil, nil
	}

	// A failed write-back only costs a re-download next time.
	if err := f.store.Put(ctx, key, data, "application/pdf"); err != nil {
		f.logger.Warn("Failed to cache PDF", slog.String("key", key), slog.String("error", err.Error()))
	}

	return &PDF{Data: data, Key: key, FromCache: false, Source: work.URL}, nil
}

// download retrieves the URL with retries for transient failures.
// Permanent failures (client errors, non-PDF content, oversized documents)
// return (nil, nil).
func (f *Fetcher) download(ctx context.Context, url string) ([]byte, error) {
	var lastErr error

	for attempt := 1; attempt <= f.config.MaxAttempts; attempt++ {
		if attempt > 1 {
			delay := f.config.BaseDelay << (attempt - 2)
			f.logger.Info("Retrying PDF download",
				slog.String("url", url),
				slog.Int("attempt", attempt),
				slog.Duration("delay", delay))
			f.sleep(delay)
		}

		data, retryable, err := f.downloadOnce(ctx, url)
		if err == nil {
			return data, nil
		}
		if !retryable {
			f.logger.Warn("PDF not retrievable", slog.String("url", url), slog.String("reason", err.Error()))
			return nil, nil
		}

		lastErr = err
	}

	return nil, fmt.Errorf("download failed after %d attempts: %w", f.config.MaxAttempts, lastErr)
}

func (f *Fetcher) downloadOnce(ctx context.Context, url string) (data []byte, retryable bool, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, false, fmt.Errorf("invalid URL: %w", err)
	}

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, true, err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests:
		return nil, true, fmt.Errorf("server returned status %d", resp.StatusCode)
	default:
		return nil, false, fmt.Errorf("server returned status %d", resp.StatusCode)
	}

	if resp.ContentLength > f.config.MaxSize {
		return nil, false, fmt.Errorf("document of %d bytes exceeds limit of %d bytes", resp.ContentLength, f.config.MaxSize)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.config.MaxSize+1))
	if err != nil {
		return nil, true, fmt.Errorf("read body: %w", err)
	}
	if int64(len(body)) > f.config.MaxSize {
		return nil, false, fmt.Errorf("document exceeds limit of %d bytes", f.config.MaxSize)
	}

	if !bytes.HasPrefix(body, pdfMagic) {
		return nil, false, fmt.Errorf("content is not a PDF (content type %q)", resp.Header.Get("Content-Type"))
	}

	return body, false, nil
}
