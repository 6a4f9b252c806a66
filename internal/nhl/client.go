package nhl

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/valyala/fasthttp"
)

var (
	ErrUpstreamUnavailable = errors.New("nhl api unavailable")
	ErrUpstreamTimeout     = errors.New("nhl api timeout")
	ErrMalformedResponse   = errors.New("nhl api malformed response")
)

// snippetLen bounds how much of a bad body ends up in errors and logs.
const snippetLen = 240

type Client struct {
	baseURL string
	http    *fasthttp.Client

	defaultTimeout time.Duration
}

type Option func(*Client)

func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.defaultTimeout = d }
}

func WithMaxConnsPerHost(n int) Option {
	return func(c *Client) { c.http.MaxConnsPerHost = n }
}

// NewClient builds an upstream API client. Calls carry a bounded deadline
// and are never retried here; retry belongs to the scheduler that triggers
// each tick.
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:        strings.TrimRight(baseURL, "/"),
		http:           &fasthttp.Client{ReadTimeout: 10 * time.Second, WriteTimeout: 10 * time.Second, MaxConnsPerHost: 16},
		defaultTimeout: 8 * time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Schedule fetches the league schedule for a yyyy-mm-dd date.
func (c *Client) Schedule(ctx context.Context, date string) (*ScheduleResponse, error) {
	var sched ScheduleResponse
	if err := c.getJSON(ctx, "/schedule/"+date, &sched); err != nil {
		return nil, err
	}
	if sched.GameWeek == nil {
		return nil, fmt.Errorf("%w: schedule for %s has no gameWeek", ErrMalformedResponse, date)
	}
	return &sched, nil
}

// Boxscore fetches the current boxscore for a game.
func (c *Client) Boxscore(ctx context.Context, gameID int64) (*GameBoxscore, error) {
	var box GameBoxscore
	if err := c.getJSON(ctx, fmt.Sprintf("/gamecenter/%d/boxscore", gameID), &box); err != nil {
		return nil, err
	}
	if box.HomeTeam.Abbrev == "" || box.AwayTeam.Abbrev == "" {
		return nil, fmt.Errorf("%w: boxscore for game %d missing team abbrevs", ErrMalformedResponse, gameID)
	}
	return &box, nil
}

// BoxscoreRaw fetches the boxscore body untouched, for fan-out to live
// subscribers who want the full upstream payload.
func (c *Client) BoxscoreRaw(ctx context.Context, gameID int64) (json.RawMessage, error) {
	body, err := c.get(ctx, fmt.Sprintf("/gamecenter/%d/boxscore", gameID))
	if err != nil {
		return nil, err
	}
	if !json.Valid(body) {
		return nil, fmt.Errorf("%w: invalid json (body %q)", ErrMalformedResponse, snippet(body))
	}
	return json.RawMessage(body), nil
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	body, err := c.get(ctx, path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%w: %v (body %q)", ErrMalformedResponse, err, snippet(body))
	}
	return nil
}

func (c *Client) get(ctx context.Context, path string) ([]byte, error) {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer func() {
		fasthttp.ReleaseRequest(req)
		fasthttp.ReleaseResponse(resp)
	}()

	req.Header.SetMethod(fasthttp.MethodGet)
	req.SetRequestURI(c.baseURL + path)

	if err := c.http.DoDeadline(req, resp, c.computeDeadline(ctx)); err != nil {
		if errors.Is(err, fasthttp.ErrTimeout) {
			return nil, fmt.Errorf("%w: GET %s", ErrUpstreamTimeout, path)
		}
		return nil, fmt.Errorf("%w: GET %s: %v", ErrUpstreamUnavailable, path, err)
	}

	status := resp.StatusCode()
	if status < 200 || status >= 300 {
		return nil, fmt.Errorf("%w: GET %s: status=%d body=%q", ErrUpstreamUnavailable, path, status, snippet(resp.Body()))
	}

	// resp is released on return; hand back a copy.
	return append([]byte(nil), resp.Body()...), nil
}

func (c *Client) computeDeadline(ctx context.Context) time.Time {
	clientDL := time.Now().Add(c.defaultTimeout)
	if dl, ok := ctx.Deadline(); ok && dl.Before(clientDL) {
		return dl
	}
	return clientDL
}

func snippet(b []byte) string {
	if len(b) <= snippetLen {
		return string(b)
	}
	return string(b[:snippetLen])
}
