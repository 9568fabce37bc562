package abisource

import (
	"context"
	"fmt"
	"strings"
	"time"

	"abi_resolver/internal/domain/entity"

	jsoniter "github.com/json-iterator/go"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Options configures one HTTP-backed source.
type Options struct {
	BaseURL string
	Timeout time.Duration
	// RatePerSecond <= 0 disables client-side rate limiting.
	RatePerSecond float64
	Burst         int
}

// httpSource is the transport shared by every HTTP-backed source.
type httpSource struct {
	client  *fasthttp.Client
	baseURL string
	timeout time.Duration
	limiter *rate.Limiter
	logger  *zap.Logger
}

func newHTTPSource(opts Options, logger *zap.Logger, name string) httpSource {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	limiter := rate.NewLimiter(rate.Inf, 1)
	if opts.RatePerSecond > 0 {
		burst := opts.Burst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(opts.RatePerSecond), burst)
	}
	return httpSource{
		client:  &fasthttp.Client{Name: "abi_resolver"},
		baseURL: strings.TrimRight(opts.BaseURL, "/"),
		timeout: timeout,
		limiter: limiter,
		logger:  logger.Named(name),
	}
}

// get performs a GET and returns status and a copy of the body.
// Transport failures are wrapped in entity.ErrNetwork.
func (s *httpSource) get(ctx context.Context, requestURL string) (int, []byte, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return 0, nil, fmt.Errorf("%w: rate limiter: %v", entity.ErrNetwork, err)
	}

	s.logger.Debug("Requesting ABI", zap.String("url", redact(requestURL)))

	req := fasthttp.AcquireRequest()
	defer fasthttp.ReleaseRequest(req)
	req.SetRequestURI(requestURL)
	req.Header.SetMethod(fasthttp.MethodGet)
	req.Header.Set("Accept", "application/json")

	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseResponse(resp)

	deadline := time.Now().Add(s.timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := s.client.DoDeadline(req, resp, deadline); err != nil {
		s.logger.Warn("ABI request failed", zap.String("url", redact(requestURL)), zap.Error(err))
		return 0, nil, fmt.Errorf("%w: %v", entity.ErrNetwork, err)
	}
	if err := ctx.Err(); err != nil {
		return 0, nil, err
	}

	body := append([]byte(nil), resp.Body()...)
	return resp.StatusCode(), body, nil
}

// redact hides api keys from logged URLs.
func redact(u string) string {
	i := strings.Index(u, "apikey=")
	if i < 0 {
		return u
	}
	end := strings.IndexByte(u[i:], '&')
	if end < 0 {
		return u[:i] + "apikey=***"
	}
	return u[:i] + "apikey=***" + u[i+end:]
}

func statusError(source string, status int, body []byte) error {
	snippet := string(body)
	if len(snippet) > 200 {
		snippet = snippet[:200]
	}
	switch {
	case status == fasthttp.StatusNotFound:
		return fmt.Errorf("%w: %s returned 404", entity.ErrNotFound, source)
	case status == fasthttp.StatusTooManyRequests || status >= 500:
		return fmt.Errorf("%w: %s returned status %d: %s", entity.ErrNetwork, source, status, snippet)
	default:
		return fmt.Errorf("%w: %s returned status %d: %s", entity.ErrNotFound, source, status, snippet)
	}
}
