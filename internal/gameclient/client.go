// Package gameclient talks to the persistence service over its JSON API.
package gameclient

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
	"strings"
	"time"

	"tg-clicker/internal/domain/dto"
	"tg-clicker/internal/domain/models"
)

const defaultTimeout = 10 * time.Second

var (
	ErrNotFound          = errors.New("not found")
	ErrMalformedResponse = errors.New("malformed response")
	ErrUnavailable       = errors.New("service unavailable")
	ErrRejected          = errors.New("request rejected")
)

// APIError is a non-2xx answer of the service. It unwraps to one of the sentinel errors.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("HTTP %d: %v", e.StatusCode, e.Unwrap())
	}
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Message)
}

func (e *APIError) Unwrap() error {
	switch {
	case e.StatusCode == http.StatusNotFound:
		return ErrNotFound
	case e.StatusCode >= http.StatusInternalServerError:
		return ErrUnavailable
	default:
		return ErrRejected
	}
}

type Client struct {
	baseURL    string
	httpClient *http.Client
	token      string
}

type Option func(*Client)

func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) { cl.httpClient = c }
}

func WithToken(token string) Option {
	return func(cl *Client) { cl.token = token }
}

// New returns a client for the API rooted at baseURL, e.g. "http://localhost:3000/api".
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SetToken sets the bearer token sent with every request.
func (c *Client) SetToken(token string) {
	c.token = token
}

func (c *Client) GetPlayer(ctx context.Context, telegramID string) (dto.PlayerPayload, error) {
	const op = "gameclient.Client.GetPlayer"

	return c.player(ctx, op, http.MethodGet, "/players/"+url.PathEscape(telegramID), nil)
}

func (c *Client) CreatePlayer(ctx context.Context, player models.PlayerProgress) (dto.PlayerPayload, error) {
	const op = "gameclient.Client.CreatePlayer"

	return c.player(ctx, op, http.MethodPost, "/players", player)
}

func (c *Client) UpdatePlayer(ctx context.Context, id string, player models.PlayerProgress) (dto.PlayerPayload, error) {
	const op = "gameclient.Client.UpdatePlayer"

	return c.player(ctx, op, http.MethodPut, "/players/"+url.PathEscape(id), player)
}

// player performs a call answered by a player record. A 2xx body without a telegramId
// is not a record and is reported as malformed.
func (c *Client) player(ctx context.Context, op, method, path string, body any) (dto.PlayerPayload, error) {
	var p dto.PlayerPayload
	if err := c.do(ctx, method, path, body, &p); err != nil {
		return dto.PlayerPayload{}, fmt.Errorf("%s: %w", op, err)
	}
	if p.TelegramID == "" {
		return dto.PlayerPayload{}, fmt.Errorf("%s: %w: no telegramId in player record", op, ErrMalformedResponse)
	}

	return p, nil
}

func (c *Client) Leaderboard(ctx context.Context, limit int) ([]dto.LeaderboardEntry, error) {
	const op = "gameclient.Client.Leaderboard"

	path := "/leaderboard"
	if limit > 0 {
		path += "?limit=" + strconv.Itoa(limit)
	}

	var entries []dto.LeaderboardEntry
	if err := c.do(ctx, http.MethodGet, path, nil, &entries); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return entries, nil
}

func (c *Client) Authenticate(ctx context.Context, initData string) (dto.AuthResponse, error) {
	const op = "gameclient.Client.Authenticate"

	var resp dto.AuthResponse
	if err := c.do(ctx, http.MethodPost, "/auth/telegram", dto.AuthRequest{InitData: initData}, &resp); err != nil {
		return dto.AuthResponse{}, fmt.Errorf("%s: %w", op, err)
	}

	return resp, nil
}

// Probe checks that the API answers a preflight request on /players.
func (c *Client) Probe(ctx context.Context) error {
	const op = "gameclient.Client.Probe"

	if err := c.do(ctx, http.MethodOptions, "/players", nil, nil); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return newAPIError(resp.StatusCode, raw)
	}

	if out == nil {
		return nil
	}

	return decode(raw, out)
}

func decode(raw []byte, out any) error {
	trimmed := bytes.TrimSpace(raw)

	want := byte('{')
	if _, ok := out.(*[]dto.LeaderboardEntry); ok {
		want = '['
	}
	if len(trimmed) == 0 || trimmed[0] != want {
		return fmt.Errorf("%w: unexpected body %q", ErrMalformedResponse, preview(trimmed))
	}

	if err := json.Unmarshal(trimmed, out); err != nil {
		return fmt.Errorf("%w: %w", ErrMalformedResponse, err)
	}

	return nil
}

func newAPIError(status int, raw []byte) *APIError {
	apiErr := &APIError{StatusCode: status}

	var body dto.ErrorResponse
	if err := json.Unmarshal(raw, &body); err == nil {
		apiErr.Message = body.Error
	}

	return apiErr
}

func preview(b []byte) string {
	const limit = 64
	if len(b) > limit {
		return string(b[:limit]) + "..."
	}
	return string(b)
}
