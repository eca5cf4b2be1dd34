package hrapi

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

	"attendance.tracker/internal/core/model"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/sony/gobreaker"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const (
	// DefaultTimeout bounds every HR call.
	DefaultTimeout = 10 * time.Second

	maxResponseBytes = 4 << 20
	requestIDHeader  = "X-Request-ID"
)

var (
	errServerFailure = errors.New("hr api server error")
	// errCallerGone marks a call abandoned by its caller. It says nothing
	// about the backend's health.
	errCallerGone = errors.New("caller abandoned the request")
)

// Client is the HTTP implementation of the AttendanceAPI port.
type Client struct {
	baseURL string
	http    *http.Client
	cb      *gobreaker.CircuitBreaker
	creds   CredentialProvider
	loc     *time.Location
}

// NewClient creates an HR API client. Every call runs through a circuit
// breaker so a failing backend is not hammered by the calendar's fan-out.
func NewClient(baseURL string, timeout time.Duration, creds CredentialProvider, loc *time.Location) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if loc == nil {
		loc = time.Local
	}
	settings := gobreaker.Settings{
		Name:        "HR-API",
		MaxRequests: 5,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			// Trip if failure rate is at least 50% after at least 10 requests
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 10 && failureRatio >= 0.5
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, errCallerGone)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("Circuit breaker state changed")
		},
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		cb:    gobreaker.NewCircuitBreaker(settings),
		creds: creds,
		loc:   loc,
	}
}

type rawResponse struct {
	status int
	body   []byte
}

// do performs one call and decodes a 2xx body into out. Non-2xx replies are
// returned as *model.RemoteError carrying the server message, or
// defaultMessage when the server sent none.
func (c *Client) do(ctx context.Context, op, method, path string, query url.Values, payload, out interface{}, defaultMessage string) (int, error) {
	creds, err := c.creds.Credentials(ctx)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	var body io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return 0, fmt.Errorf("failed to marshal %s payload: %w", op, err)
		}
		body = bytes.NewReader(b)
	}

	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return 0, fmt.Errorf("failed to create %s request: %w", op, err)
	}
	requestID := uuid.NewString()
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Cookie", creds.Cookie())
	req.Header.Set(requestIDHeader, requestID)

	logger := log.Ctx(ctx).With().Str("op", op).Str("request_id", requestID).Logger()

	result, err := c.cb.Execute(func() (interface{}, error) {
		resp, err := c.http.Do(req)
		if err != nil {
			return nil, callerError(ctx, err)
		}
		defer resp.Body.Close()
		b, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
		if err != nil {
			return nil, callerError(ctx, err)
		}
		raw := rawResponse{status: resp.StatusCode, body: b}
		if resp.StatusCode >= http.StatusInternalServerError {
			return raw, errServerFailure
		}
		return raw, nil
	})
	if errors.Is(err, errCallerGone) {
		logger.Debug().Err(ctx.Err()).Msg("HR API call abandoned by caller")
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	}
	if err != nil && !errors.Is(err, errServerFailure) {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			logger.Warn().Msg("Circuit Breaker is OPEN; skipping HR API call")
		} else {
			logger.Warn().Err(err).Msg("HR API call failed")
		}
		return 0, fmt.Errorf("%s: %w: %w", op, model.ErrNetworkFailure, err)
	}

	raw := result.(rawResponse)
	if raw.status < 200 || raw.status >= 300 {
		logger.Debug().Int("status", raw.status).Msg("HR API returned non-successful status code")
		return raw.status, &model.RemoteError{Op: op, Status: raw.status, Message: serverMessage(raw.body, defaultMessage, raw.status)}
	}
	if out == nil || len(bytes.TrimSpace(raw.body)) == 0 {
		return raw.status, nil
	}
	if err := json.Unmarshal(raw.body, out); err != nil {
		return raw.status, fmt.Errorf("%s: %w: %v", op, model.ErrMalformedResponse, err)
	}
	return raw.status, nil
}

// callerError tags err as errCallerGone when ctx ended first, so the breaker
// does not count it against the backend.
func callerError(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("%w: %w", errCallerGone, ctxErr)
	}
	return err
}

func serverMessage(body []byte, defaultMessage string, status int) string {
	var e errorResponse
	if err := json.Unmarshal(body, &e); err == nil {
		if e.Message != "" {
			return e.Message
		}
		if e.Error != "" {
			return e.Error
		}
	}
	if defaultMessage != "" {
		return defaultMessage
	}
	return http.StatusText(status)
}
