package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"runtime"
	"time"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/time/rate"

	"georag/internal/errs"
	"georag/internal/logger"
	"georag/internal/telemetry"
)

// HTTPEmbedder is the Embedder contract's HTTP JSON adapter (§6): POST
// {model, input} to a configured endpoint, expecting {embeddings:[[...]]}.
// Resilience is grounded on the teacher's internal/ai.GeminiClient:
// a circuit breaker around the call and a token-bucket rate limiter
// shared across queries via the connection pool the client holds.
type HTTPEmbedder struct {
	endpoint    string
	dimensions  map[string]int
	httpClient  *http.Client
	breaker     *gobreaker.CircuitBreaker
	rateLimiter *rate.Limiter
	metrics     *telemetry.Metrics // may be nil
}

// HTTPEmbedderConfig carries the §5/§6 knobs: pool size defaults to
// 2xNumCPU, idle connections close after idleTimeout.
type HTTPEmbedderConfig struct {
	Endpoint          string
	DefaultModel      string
	DefaultDimension  int
	PoolSize          int
	IdleTimeout       time.Duration
	RequestsPerSecond float64
	Metrics           *telemetry.Metrics
}

func NewHTTPEmbedder(cfg HTTPEmbedderConfig) *HTTPEmbedder {
	poolSize := cfg.PoolSize
	if poolSize <= 0 {
		poolSize = 2 * runtime.NumCPU()
	}
	idleTimeout := cfg.IdleTimeout
	if idleTimeout <= 0 {
		idleTimeout = 60 * time.Second
	}
	rps := cfg.RequestsPerSecond
	if rps <= 0 {
		rps = 20
	}

	transport := &http.Transport{
		MaxIdleConns:        poolSize,
		MaxIdleConnsPerHost: poolSize,
		IdleConnTimeout:     idleTimeout,
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "embedder",
		MaxRequests: 5,
		Interval:    10 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 3 && failureRatio >= 0.6
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("embedder circuit breaker state change", "name", name, "from", from.String(), "to", to.String())
			if cfg.Metrics != nil {
				cfg.Metrics.RecordCircuitBreakerState(name, to.String())
			}
		},
	})

	return &HTTPEmbedder{
		endpoint:    cfg.Endpoint,
		dimensions:  map[string]int{cfg.DefaultModel: cfg.DefaultDimension},
		httpClient:  &http.Client{Transport: transport},
		breaker:     breaker,
		rateLimiter: rate.NewLimiter(rate.Limit(rps), int(rps)),
		metrics:     cfg.Metrics,
	}
}

type embedRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type embedResponse struct {
	Embeddings [][]float32 `json:"embeddings"`
}

func (e *HTTPEmbedder) Dimension(model string) int {
	if d, ok := e.dimensions[model]; ok {
		return d
	}
	return 0
}

// Embed calls the HTTP backend under the circuit breaker and rate
// limiter, then L2-normalizes every returned vector (§4.4).
func (e *HTTPEmbedder) Embed(ctx context.Context, model string, texts []string) ([][]float32, error) {
	if err := validateInput(texts); err != nil {
		return nil, err
	}

	if err := e.rateLimiter.Wait(ctx); err != nil {
		return nil, errs.Wrap(errs.Timeout, "embedding.HTTPEmbedder.Embed", err)
	}

	tracer := otel.Tracer("georag.embedding")
	ctx, span := tracer.Start(ctx, "embedder.embed")
	defer span.End()
	span.SetAttributes(attribute.String("model", model), attribute.Int("batch_size", len(texts)))

	result, err := e.breaker.Execute(func() (any, error) {
		return e.doRequest(ctx, model, texts)
	})
	if err != nil {
		if e.metrics != nil {
			e.metrics.RecordEmbedCall(model, len(texts), false)
		}
		if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
			return nil, errs.New(errs.EmbedderUnavailable, "embedder circuit breaker is open").
				WithOp("embedding.HTTPEmbedder.Embed").
				WithRemediation(fmt.Sprintf("check that the embedder service at %s for model %q is reachable", e.endpoint, model))
		}
		var ue *errs.Error
		if errs.As(err, &ue) && ue.Kind == errs.EmbedderUnavailable {
			return nil, ue.WithRemediation(fmt.Sprintf("check that the embedder service at %s for model %q is reachable", e.endpoint, model))
		}
		return nil, err
	}

	vectors := result.([][]float32)
	expected := e.Dimension(model)
	for i, v := range vectors {
		if expected > 0 && len(v) != expected {
			if e.metrics != nil {
				e.metrics.RecordEmbedCall(model, len(texts), false)
			}
			return nil, errs.New(errs.DimensionMismatch,
				fmt.Sprintf("embedder returned dimension %d for model %q, expected %d", len(v), model, expected)).
				WithOp("embedding.HTTPEmbedder.Embed")
		}
		normalizeL2(vectors[i])
	}

	if e.metrics != nil {
		e.metrics.RecordEmbedCall(model, len(texts), true)
	}
	return vectors, nil
}

func (e *HTTPEmbedder) doRequest(ctx context.Context, model string, texts []string) ([][]float32, error) {
	payload, err := json.Marshal(embedRequest{Model: model, Input: texts})
	if err != nil {
		return nil, errs.Wrap(errs.Internal, "embedding.HTTPEmbedder.doRequest", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, errs.Wrap(errs.Internal, "embedding.HTTPEmbedder.doRequest", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return nil, errs.New(errs.EmbedderUnavailable, err.Error()).
			WithOp("embedding.HTTPEmbedder.doRequest").
			WithRemediation(fmt.Sprintf("check that %s is reachable", e.endpoint))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errs.Wrap(errs.Io, "embedding.HTTPEmbedder.doRequest", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, errs.New(errs.EmbedderUnavailable, fmt.Sprintf("embedder returned status %d: %s", resp.StatusCode, string(body))).
			WithOp("embedding.HTTPEmbedder.doRequest")
	}

	var parsed embedResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, errs.Wrap(errs.Parse, "embedding.HTTPEmbedder.doRequest", err)
	}

	if len(parsed.Embeddings) == 0 {
		return nil, errs.New(errs.EmbedderUnavailable, "embedder returned an empty embeddings array").
			WithOp("embedding.HTTPEmbedder.doRequest")
	}

	return parsed.Embeddings, nil
}
