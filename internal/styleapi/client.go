package styleapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const (
	// DefaultBaseURL matches the backend's development listener.
	DefaultBaseURL = "http://127.0.0.1:5000"

	defaultTimeout  = 60 * time.Second
	maxResponseBody = 4 << 20
	uploadFieldName = "image"
)

const instrumentationName = "github.com/tarakkrishna/StyleSense/internal/styleapi"

var tracer = otel.Tracer(instrumentationName)

// Client talks to the StyleAI backend.
type Client struct {
	baseURL string
	http    *http.Client
	logger  *zap.Logger
	meter   metric.Meter
	latency metric.Float64Histogram
}

// Option customises a Client.
type Option func(*Client)

// WithHTTPClient swaps the transport client (tests, custom transports).
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithTimeout bounds each backend call.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.http.Timeout = d
		}
	}
}

// WithLogger attaches a logger for call outcomes.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithMeter injects a custom OpenTelemetry meter.
func WithMeter(m metric.Meter) Option {
	return func(c *Client) {
		if m != nil {
			c.meter = m
		}
	}
}

// NewClient constructs a backend client. An empty baseURL selects DefaultBaseURL.
func NewClient(baseURL string, opts ...Option) *Client {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: defaultTimeout},
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.meter == nil {
		c.meter = otel.GetMeterProvider().Meter(instrumentationName)
	}
	latency, err := c.meter.Float64Histogram(
		"styleapi.request.latency",
		metric.WithUnit("ms"),
		metric.WithDescription("Latency in milliseconds of backend calls by operation and outcome"),
	)
	if err != nil {
		c.logger.Warn("styleapi: unable to register latency metric", zap.Error(err))
	} else {
		c.latency = latency
	}
	return c
}

// BaseURL returns the normalised backend endpoint.
func (c *Client) BaseURL() string { return c.baseURL }

// UploadImage sends the image as multipart form data and returns the detected skin tone payload.
func (c *Client) UploadImage(ctx context.Context, file ImageFile) (UploadResult, error) {
	const op = "upload"

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, uploadFieldName, uploadFilename(file.Name)))
	contentType := strings.TrimSpace(file.ContentType)
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	header.Set("Content-Type", contentType)
	part, err := mw.CreatePart(header)
	if err != nil {
		return UploadResult{}, &RequestError{Op: op, Kind: KindTransport, Err: err}
	}
	if _, err := part.Write(file.Data); err != nil {
		return UploadResult{}, &RequestError{Op: op, Kind: KindTransport, Err: err}
	}
	if err := mw.Close(); err != nil {
		return UploadResult{}, &RequestError{Op: op, Kind: KindTransport, Err: err}
	}

	var result UploadResult
	err = c.do(ctx, op, http.MethodPost, "upload", mw.FormDataContentType(), &body, &result,
		attribute.Int("styleapi.upload.bytes", len(file.Data)),
		attribute.String("styleapi.upload.content_type", contentType),
	)
	if err != nil {
		return UploadResult{}, err
	}
	return result, nil
}

// FetchRecommendation posts the styling request and returns the recommendation payload.
func (c *Client) FetchRecommendation(ctx context.Context, req RecommendationRequest) (RecommendationResult, error) {
	const op = "recommend"

	payload, err := json.Marshal(req)
	if err != nil {
		return RecommendationResult{}, &RequestError{Op: op, Kind: KindTransport, Err: err}
	}

	var result RecommendationResult
	err = c.do(ctx, op, http.MethodPost, "recommend", "application/json", bytes.NewReader(payload), &result,
		attribute.String("styleapi.recommend.occasion", req.Occasion),
		attribute.String("styleapi.recommend.season", req.Season),
	)
	if err != nil {
		return RecommendationResult{}, err
	}
	return result, nil
}

// Health probes the backend liveness endpoint.
func (c *Client) Health(ctx context.Context) error {
	return c.do(ctx, "health", http.MethodGet, "health", "", nil, nil)
}

// do issues one call and applies the shared interpretation rule: the call
// failed if the status is not 2xx or the body says success:false. A body
// that is not JSON is read as an empty object.
func (c *Client) do(ctx context.Context, op, method, path, contentType string, body io.Reader, out any, attrs ...attribute.KeyValue) (err error) {
	ctx, span := tracer.Start(ctx, "styleapi."+op, trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()
	span.SetAttributes(attrs...)

	start := time.Now()
	defer func() { c.recordLatency(ctx, op, err, time.Since(start)) }()

	endpoint, err := url.JoinPath(c.baseURL, path)
	if err != nil {
		return c.fail(span, &RequestError{Op: op, Kind: KindTransport, Err: err})
	}
	span.SetAttributes(
		attribute.String("http.request.method", method),
		attribute.String("url.full", endpoint),
	)

	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return c.fail(span, &RequestError{Op: op, Kind: KindTransport, Err: err})
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return c.fail(span, &RequestError{Op: op, Kind: KindTransport, Err: err})
	}
	defer resp.Body.Close()
	span.SetAttributes(attribute.Int("http.response.status_code", resp.StatusCode))

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return c.fail(span, &RequestError{Op: op, Kind: KindTransport, Status: resp.StatusCode, Err: err})
	}

	env := parseEnvelope(raw)
	ok := resp.StatusCode >= 200 && resp.StatusCode < 300
	switch {
	case !ok:
		return c.fail(span, &RequestError{Op: op, Kind: KindStatus, Status: resp.StatusCode, ServerMessage: env.message()})
	case env.rejected():
		return c.fail(span, &RequestError{Op: op, Kind: KindRejected, Status: resp.StatusCode, ServerMessage: env.message()})
	}

	if out != nil && env.valid {
		// Type mismatches leave the offending fields empty; the rest still decodes.
		_ = json.Unmarshal(raw, out)
	}

	c.logger.Debug("styleapi call succeeded",
		zap.String("op", op),
		zap.Int("status", resp.StatusCode),
		zap.Duration("latency", time.Since(start)),
	)
	span.SetStatus(codes.Ok, "")
	return nil
}

func (c *Client) fail(span trace.Span, err *RequestError) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, string(err.Kind))
	c.logger.Warn("styleapi call failed",
		zap.String("op", err.Op),
		zap.String("kind", string(err.Kind)),
		zap.Int("status", err.Status),
		zap.String("server_message", err.ServerMessage),
		zap.Error(err.Err),
	)
	return err
}

func (c *Client) recordLatency(ctx context.Context, op string, err error, d time.Duration) {
	if c.latency == nil {
		return
	}
	outcome := "ok"
	var reqErr *RequestError
	if errors.As(err, &reqErr) {
		outcome = string(reqErr.Kind)
	}
	c.latency.Record(ctx, float64(d)/float64(time.Millisecond), metric.WithAttributes(
		attribute.String("styleapi.op", op),
		attribute.String("styleapi.outcome", outcome),
	))
}

// envelope is the part of every backend response the client inspects.
type envelope struct {
	Success *bool           `json:"success"`
	Error   json.RawMessage `json:"error"`
	valid   bool
}

func parseEnvelope(raw []byte) envelope {
	var env envelope
	if len(bytes.TrimSpace(raw)) == 0 {
		return env
	}
	if err := json.Unmarshal(raw, &env); err != nil {
		return envelope{}
	}
	env.valid = true
	return env
}

func (e envelope) rejected() bool {
	return e.Success != nil && !*e.Success
}

func (e envelope) message() string {
	if len(e.Error) == 0 {
		return ""
	}
	var msg string
	if err := json.Unmarshal(e.Error, &msg); err != nil {
		return ""
	}
	return strings.TrimSpace(msg)
}

func uploadFilename(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return "upload"
	}
	return name
}
