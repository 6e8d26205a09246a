// Package his is the REST client for the upstream hospital information
// system. Every response travels in a {code, message, data, meta} envelope;
// code 0 or 200 means success, anything else is a business rejection. The
// client forwards the caller's bearer token, adds a timestamp query param to
// GET requests to defeat intermediary caches, and routes all calls through a
// circuit breaker so a dead upstream fails fast instead of tying up
// workstation requests.
package his

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker/v2"

	"github.com/clinicdesk/clinicdesk/internal/platform/telemetry"
)

const successCode = 200

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Meta    json.RawMessage `json:"meta"`
}

// PageMeta mirrors the upstream pagination envelope section.
type PageMeta struct {
	Page       int `json:"page"`
	Size       int `json:"size"`
	Total      int `json:"total"`
	TotalPages int `json:"totalPages"`
}

type rawResult struct {
	status int
	body   []byte
}

type Options struct {
	BaseURL     string
	Timeout     time.Duration
	MaxFailures uint32
	OpenTimeout time.Duration
	HTTPClient  *http.Client
	Logger      zerolog.Logger
	Metrics     *telemetry.Metrics
}

type Client struct {
	baseURL string
	http    *http.Client
	breaker *gobreaker.CircuitBreaker[rawResult]
	log     zerolog.Logger
	metrics *telemetry.Metrics
	now     func() time.Time
}

func NewClient(opts Options) *Client {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: opts.Timeout}
	}
	if opts.MaxFailures == 0 {
		opts.MaxFailures = 5
	}
	if opts.OpenTimeout == 0 {
		opts.OpenTimeout = 30 * time.Second
	}

	c := &Client{
		baseURL: opts.BaseURL,
		http:    httpClient,
		log:     opts.Logger.With().Str("component", "his").Logger(),
		metrics: opts.Metrics,
		now:     time.Now,
	}

	c.breaker = gobreaker.NewCircuitBreaker[rawResult](gobreaker.Settings{
		Name:    "his",
		Timeout: opts.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= opts.MaxFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			c.log.Warn().Str("from", from.String()).Str("to", to.String()).Msg("circuit state change")
			if c.metrics != nil {
				if to == gobreaker.StateOpen {
					c.metrics.BreakerState.Set(1)
				} else {
					c.metrics.BreakerState.Set(0)
				}
			}
		},
	})

	return c
}

type tokenKey struct{}

// WithToken stashes the caller's bearer token for forwarding upstream.
func WithToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, tokenKey{}, token)
}

// Token returns the bearer token carried by ctx, if any.
func Token(ctx context.Context) string {
	token, _ := ctx.Value(tokenKey{}).(string)
	return token
}

func (c *Client) Get(ctx context.Context, path string, query url.Values, out any) error {
	_, err := c.do(ctx, http.MethodGet, path, query, nil, out)
	return err
}

// GetPaged is Get for list endpoints; it also decodes the pagination meta.
func (c *Client) GetPaged(ctx context.Context, path string, query url.Values, out any) (*PageMeta, error) {
	return c.do(ctx, http.MethodGet, path, query, nil, out)
}

func (c *Client) Post(ctx context.Context, path string, body, out any) error {
	_, err := c.do(ctx, http.MethodPost, path, nil, body, out)
	return err
}

func (c *Client) Put(ctx context.Context, path string, body, out any) error {
	_, err := c.do(ctx, http.MethodPut, path, nil, body, out)
	return err
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) (*PageMeta, error) {
	u, err := url.Parse(c.baseURL + path)
	if err != nil {
		return nil, fmt.Errorf("his: build url: %w", err)
	}
	q := u.Query()
	for k, vs := range query {
		for _, v := range vs {
			q.Add(k, v)
		}
	}
	if method == http.MethodGet {
		// Cache-bust: intermediaries between kiosk networks and the HIS
		// have been seen serving stale list responses.
		q.Set("_t", strconv.FormatInt(c.now().UnixMilli(), 10))
	}
	u.RawQuery = q.Encode()

	var payload []byte
	if body != nil {
		payload, err = json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("his: encode body: %w", err)
		}
	}

	start := c.now()
	res, err := c.breaker.Execute(func() (rawResult, error) {
		return c.roundTrip(ctx, method, u.String(), payload)
	})
	c.observe(method, start, err)

	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, &Error{Message: "upstream unavailable (circuit open)"}
		}
		var he *Error
		if errors.As(err, &he) {
			return nil, he
		}
		return nil, &Error{Message: err.Error()}
	}

	if res.status >= 400 {
		return nil, &Error{Status: res.status, Message: extractMessage(res.body)}
	}

	var env envelope
	if err := json.Unmarshal(res.body, &env); err != nil {
		return nil, &Error{Status: res.status, Message: fmt.Sprintf("malformed envelope: %v", err)}
	}
	if env.Code != successCode && env.Code != 0 {
		return nil, &Error{Status: res.status, Code: env.Code, Message: env.Message}
	}

	if out != nil && len(env.Data) > 0 && string(env.Data) != "null" {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return nil, &Error{Status: res.status, Message: fmt.Sprintf("decode data: %v", err)}
		}
	}

	var meta *PageMeta
	if len(env.Meta) > 0 && string(env.Meta) != "null" {
		meta = &PageMeta{}
		if err := json.Unmarshal(env.Meta, meta); err != nil {
			return nil, &Error{Status: res.status, Message: fmt.Sprintf("decode meta: %v", err)}
		}
	}
	return meta, nil
}

// roundTrip performs one HTTP exchange. Network failures and 5xx responses
// are returned as errors so the breaker counts them; 4xx responses are
// caller mistakes and must not trip the circuit.
func (c *Client) roundTrip(ctx context.Context, method, rawURL string, payload []byte) (rawResult, error) {
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, rawURL, reader)
	if err != nil {
		return rawResult{}, err
	}
	req.Header.Set("Content-Type", "application/json;charset=UTF-8")
	if token := Token(ctx); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return rawResult{}, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return rawResult{}, err
	}
	if resp.StatusCode >= 500 {
		return rawResult{}, &Error{Status: resp.StatusCode, Message: extractMessage(data)}
	}
	return rawResult{status: resp.StatusCode, body: data}, nil
}

func (c *Client) observe(method string, start time.Time, err error) {
	elapsed := time.Since(start)
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	if c.metrics != nil {
		c.metrics.UpstreamRequestsTotal.WithLabelValues(method, outcome).Inc()
		c.metrics.UpstreamDuration.WithLabelValues(method).Observe(elapsed.Seconds())
	}
	evt := c.log.Debug()
	if err != nil {
		evt = c.log.Warn().Err(err)
	}
	evt.Str("method", method).Dur("latency", elapsed).Msg("upstream call")
}

func extractMessage(body []byte) string {
	var probe struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &probe); err == nil && probe.Message != "" {
		return probe.Message
	}
	msg := string(body)
	if len(msg) > 200 {
		msg = msg[:200]
	}
	return msg
}
