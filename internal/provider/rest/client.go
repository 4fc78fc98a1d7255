// Package rest is the provider that talks to the graph server over HTTP.
package rest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/jm289765/concept-graph-web/internal/config"
	"github.com/jm289765/concept-graph-web/internal/domain/node"
	apperrors "github.com/jm289765/concept-graph-web/internal/errors"
	"github.com/jm289765/concept-graph-web/internal/observability"
	"github.com/jm289765/concept-graph-web/internal/provider"
)

// maxBody caps how much of a response is read.
const maxBody = 8 << 20

// Client implements provider.Provider against the graph server's REST API.
type Client struct {
	base    *url.URL
	http    *http.Client
	breaker *gobreaker.CircuitBreaker
	metrics *observability.Collector
	logger  *zap.Logger
}

var _ provider.Provider = (*Client)(nil)

// New creates a client for cfg.BaseURL.
func New(cfg config.Provider, metrics *observability.Collector, logger *zap.Logger) (*Client, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	base, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse provider base url: %w", err)
	}
	if !strings.HasSuffix(base.Path, "/") {
		base.Path += "/"
	}

	c := &Client{
		base:    base,
		http:    &http.Client{Timeout: cfg.Timeout},
		metrics: metrics,
		logger:  logger,
	}
	c.breaker = newBreaker(cfg.Breaker, logger)
	return c, nil
}

func newBreaker(cfg config.Breaker, logger *zap.Logger) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "graph-provider",
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < cfg.MinRequests {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return failureRatio >= cfg.FailureThreshold
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn("Circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
		// Only transport failures count against the server; a 404 is an answer.
		IsSuccessful: func(err error) bool {
			return err == nil || !apperrors.IsTransport(err)
		},
	})
}

// errorBody is the server's error response.
type errorBody struct {
	Message   string `json:"message"`
	ErrorCode string `json:"errorCode"`
}

// do sends one request and decodes a 2xx body into out.
func (c *Client) do(ctx context.Context, op, method string, params url.Values, out any) (err error) {
	start := time.Now()
	ctx, span := observability.Tracer().Start(ctx, "provider."+op, trace.WithSpanKind(trace.SpanKindClient))
	defer func() {
		status := "ok"
		if err != nil {
			status = "error"
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		c.metrics.ProviderRequest(op, status, time.Since(start))
		span.End()
	}()

	target := c.base.ResolveReference(&url.URL{Path: op, RawQuery: params.Encode()})
	requestID := uuid.NewString()
	span.SetAttributes(
		attribute.String("http.method", method),
		attribute.String("http.url", target.String()),
		attribute.String("request.id", requestID),
	)

	_, err = c.breaker.Execute(func() (interface{}, error) {
		return nil, c.send(ctx, op, method, target.String(), requestID, out)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return apperrors.Transport(apperrors.CodeProviderUnavailable, "graph server circuit is open").
			WithOperation(op).
			WithCause(err).
			Build()
	}
	return err
}

func (c *Client) send(ctx context.Context, op, method, target, requestID string, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, target, nil)
	if err != nil {
		return apperrors.Internal(apperrors.CodeProviderUnavailable, "build request").WithCause(err).Build()
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", requestID)
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Debug("Provider request failed", zap.String("op", op), zap.String("requestID", requestID), zap.Error(err))
		return apperrors.Transport(apperrors.CodeProviderUnavailable, "graph server unreachable").
			WithOperation(op).
			WithCause(err).
			Build()
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return apperrors.Transport(apperrors.CodeProviderUnavailable, "read response").
			WithOperation(op).
			WithCause(err).
			Build()
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return statusError(op, resp.StatusCode, body)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return apperrors.Transport(apperrors.CodeProviderDecode, "malformed response").
			WithOperation(op).
			WithCause(err).
			Build()
	}
	return nil
}

// statusError maps a non-2xx answer back onto the error taxonomy.
func statusError(op string, status int, body []byte) error {
	var eb errorBody
	_ = json.Unmarshal(body, &eb)
	if eb.Message == "" {
		eb.Message = http.StatusText(status)
	}

	var b *apperrors.ErrorBuilder
	switch {
	case status == http.StatusNotFound:
		code := eb.ErrorCode
		if code == "" {
			code = apperrors.CodeNodeNotFound
		}
		b = apperrors.NotFound(code, eb.Message)
	case status == http.StatusBadRequest && eb.ErrorCode == apperrors.CodeNodeIDInvalid:
		b = apperrors.NewError(apperrors.ErrorTypeInvalidID, eb.ErrorCode, eb.Message)
	case status == http.StatusBadRequest:
		code := eb.ErrorCode
		if code == "" {
			code = apperrors.CodeInvalidInput
		}
		b = apperrors.Validation(code, eb.Message)
	case status == http.StatusConflict:
		b = apperrors.Conflict(apperrors.CodeProviderStatus, eb.Message)
	case status == http.StatusNotImplemented:
		b = apperrors.Unimplemented(op)
	default:
		b = apperrors.Transport(apperrors.CodeProviderStatus, eb.Message).
			WithDetails("status " + strconv.Itoa(status))
	}
	return b.WithOperation(op).Build()
}

func idParams(id node.ID) url.Values {
	return url.Values{"id": {id.String()}}
}

func linkParams(parent, child node.ID, twoWay bool) url.Values {
	return url.Values{
		"parent":  {parent.String()},
		"child":   {child.String()},
		"two_way": {strconv.FormatBool(twoWay)},
	}
}

func (c *Client) GetNode(ctx context.Context, id node.ID) (node.Payload, error) {
	var p node.Payload
	if err := c.do(ctx, "get-node", http.MethodGet, idParams(id), &p); err != nil {
		return node.Payload{}, err
	}
	return p, nil
}

func (c *Client) GetNeighbors(ctx context.Context, id node.ID) (node.Neighborhood, error) {
	var n node.Neighborhood
	if err := c.do(ctx, "get-neighbors", http.MethodGet, idParams(id), &n); err != nil {
		return node.Neighborhood{}, err
	}
	return n, nil
}

func (c *Client) AddNode(ctx context.Context, typ node.Type, title, content, tags string, parent node.ID) (node.Payload, error) {
	params := url.Values{
		"type":    {string(typ)},
		"title":   {title},
		"content": {content},
		"tags":    {tags},
	}
	if !parent.IsZero() {
		params.Set("parent", parent.String())
	}
	var p node.Payload
	if err := c.do(ctx, "add", http.MethodPost, params, &p); err != nil {
		return node.Payload{}, err
	}
	return p, nil
}

func (c *Client) UpdateNode(ctx context.Context, id node.ID, field node.Field, val string) (node.Payload, error) {
	params := url.Values{"id": {id.String()}, "attr": {string(field)}, "val": {val}}
	var p node.Payload
	if err := c.do(ctx, "update", http.MethodPost, params, &p); err != nil {
		return node.Payload{}, err
	}
	return p, nil
}

func (c *Client) LinkNode(ctx context.Context, parent, child node.ID, twoWay bool) error {
	return c.do(ctx, "link", http.MethodPost, linkParams(parent, child, twoWay), nil)
}

func (c *Client) UnlinkNode(ctx context.Context, parent, child node.ID, twoWay bool) error {
	return c.do(ctx, "unlink", http.MethodPost, linkParams(parent, child, twoWay), nil)
}

func (c *Client) Search(ctx context.Context, query string) ([]node.SearchResult, error) {
	var results []node.SearchResult
	if err := c.do(ctx, "search", http.MethodGet, url.Values{"q": {query}}, &results); err != nil {
		return nil, err
	}
	return results, nil
}

func (c *Client) ListNodeIDs(ctx context.Context) ([]node.ID, error) {
	var ids []node.ID
	if err := c.do(ctx, "get-all-node-ids", http.MethodGet, nil, &ids); err != nil {
		return nil, err
	}
	return ids, nil
}
