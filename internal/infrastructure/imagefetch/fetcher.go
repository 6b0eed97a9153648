package imagefetch

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Conte777/affiliate-relay/config"
	"github.com/Conte777/affiliate-relay/internal/domain"
	"github.com/rs/zerolog"
	"github.com/valyala/fasthttp"
)

const (
	userAgent       = "affiliate-relay/1.0"
	maxImageBytes   = 10 << 20
	defaultDeadline = 10 * time.Second
)

// Fetcher downloads product images, consulting the image store first
type Fetcher struct {
	client  *fasthttp.Client
	store   domain.ImageStore
	timeout time.Duration
	logger  zerolog.Logger
}

// NewFetcher creates an image fetcher backed by a pooled fasthttp client
func NewFetcher(store domain.ImageStore, cfg *config.DispatcherConfig, logger zerolog.Logger) *Fetcher {
	timeout := cfg.ImageTimeout
	if timeout <= 0 {
		timeout = defaultDeadline
	}

	return &Fetcher{
		client: &fasthttp.Client{
			Name:                userAgent,
			MaxResponseBodySize: maxImageBytes,
			ReadTimeout:         timeout,
			WriteTimeout:        timeout,
		},
		store:   store,
		timeout: timeout,
		logger:  logger.With().Str("component", "image_fetcher").Logger(),
	}
}

// Fetch returns the image bytes for url. Only a 200 response with an image
// (or unspecified) content type is accepted. Store failures are logged and
// never fail the fetch.
func (f *Fetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	data, ok, err := f.store.Get(ctx, url)
	switch {
	case err != nil:
		f.logger.Warn().Err(err).Str("image_url", url).Msg("image store lookup failed")
	case ok:
		return data, nil
	}

	data, contentType, err := f.download(ctx, url)
	if err != nil {
		return nil, err
	}

	if err := f.store.Put(ctx, url, data, contentType); err != nil {
		f.logger.Warn().Err(err).Str("image_url", url).Msg("failed to store image")
	}

	return data, nil
}

func (f *Fetcher) download(ctx context.Context, url string) ([]byte, string, error) {
	if err := ctx.Err(); err != nil {
		return nil, "", err
	}

	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(f.timeout)
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(url)
	req.Header.SetMethod(fasthttp.MethodGet)
	req.Header.Set(fasthttp.HeaderAccept, "image/*")

	if err := f.client.DoDeadline(req, resp, deadline); err != nil {
		return nil, "", fmt.Errorf("failed to download image: %w", err)
	}

	if status := resp.StatusCode(); status != fasthttp.StatusOK {
		return nil, "", fmt.Errorf("image download returned status %d", status)
	}

	// ContentType() reports a default when the header is absent
	contentType := string(resp.Header.Peek(fasthttp.HeaderContentType))
	if contentType != "" && !strings.HasPrefix(contentType, "image/") {
		return nil, "", fmt.Errorf("unexpected image content type %q", contentType)
	}

	body := resp.Body()
	if len(body) == 0 {
		return nil, "", fmt.Errorf("image download returned an empty body")
	}

	f.logger.Debug().Str("image_url", url).Int("bytes", len(body)).Msg("downloaded image")
	return append([]byte(nil), body...), contentType, nil
}
