package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	defaultTimeout    = 10 * time.Second
	idempotencyHeader = "Idempotency-Key"
	maxErrorBody      = 1 << 10
)

var tracer = otel.Tracer("example.com/storefront-checkout/app/internal/infra/remote")

// StatusError is a non-2xx answer from a collaborator service.
type StatusError struct {
	Service string
	Status  int
	Body    []byte
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: status %d: %s", e.Service, e.Status, strings.TrimSpace(string(e.Body)))
}

// jsonClient is the transport shared by every collaborator client.
type jsonClient struct {
	service string
	baseURL string
	http    *http.Client
	headers http.Header
}

func newJSONClient(service, baseURL string, httpClient *http.Client) *jsonClient {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultTimeout}
	}
	return &jsonClient{
		service: service,
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		http:    httpClient,
		headers: http.Header{},
	}
}

// call sends in as JSON and decodes a 2xx body into out. Non-2xx answers
// come back as *StatusError.
func (c *jsonClient) call(ctx context.Context, op, method string, path []string, in, out any, extra http.Header) error {
	ctx, span := tracer.Start(ctx, c.service+"."+op, trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()

	err := c.roundTrip(ctx, span, method, path, in, out, extra)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}

func (c *jsonClient) roundTrip(ctx context.Context, span trace.Span, method string, path []string, in, out any, extra http.Header) error {
	endpoint, err := url.JoinPath(c.baseURL, path...)
	if err != nil {
		return err
	}
	span.SetAttributes(
		attribute.String("http.request.method", method),
		attribute.String("url.full", endpoint),
	)

	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, vs := range c.headers {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	for k, vs := range extra {
		for _, v := range vs {
			req.Header.Set(k, v)
		}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	span.SetAttributes(attribute.Int("http.response.status_code", resp.StatusCode))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &StatusError{Service: c.service, Status: resp.StatusCode, Body: raw}
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s: decode response: %w", c.service, err)
	}
	return nil
}

func asStatusError(err error) (*StatusError, bool) {
	var se *StatusError
	if errors.As(err, &se) {
		return se, true
	}
	return nil, false
}

// flexibleID accepts ids sent either as JSON strings or numbers.
type flexibleID string

func (f *flexibleID) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if s == "null" {
		*f = ""
		return nil
	}
	*f = flexibleID(strings.Trim(s, `"`))
	return nil
}
