package relay

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

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/rs/zerolog"

	"oracle-relay-keeper/internal/version"
)

const (
	sponsoredCallPath = "/relays/v2/sponsored-call"
	taskStatusPath    = "/tasks/status/"

	// StatusBaseURL is the public task tracking page.
	StatusBaseURL = "https://relay.gelato.digital"
)

// StatusURL returns the human-facing status link for a task.
func StatusURL(taskID string) string {
	return StatusBaseURL + taskStatusPath + url.PathEscape(taskID)
}

// GelatoOptions parameterise the Gelato relay client.
type GelatoOptions struct {
	BaseURL   string
	Timeout   time.Duration
	UserAgent string
}

// Gelato submits sponsored calls to the Gelato relay network.
type Gelato struct {
	logger  zerolog.Logger
	client  *http.Client
	baseURL string
	ua      string
}

// NewGelato constructs a relay client.
func NewGelato(opts GelatoOptions, logger zerolog.Logger) *Gelato {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://api.gelato.digital"
	}

	ua := strings.TrimSpace(opts.UserAgent)
	if ua == "" {
		ua = version.UserAgent()
	}

	return &Gelato{
		logger:  logger.With().Str("component", "gelato_relay").Logger(),
		client:  &http.Client{Timeout: timeout},
		baseURL: baseURL,
		ua:      ua,
	}
}

// SponsoredCall submits req; gas is paid from the balance tied to apiKey.
func (g *Gelato) SponsoredCall(ctx context.Context, req UpdateRequest, apiKey string) (string, error) {
	if apiKey == "" {
		return "", errors.New("sponsor api key required")
	}
	if req.ChainID == nil || req.ChainID.Sign() <= 0 {
		return "", errors.New("chain id required")
	}

	body, err := json.Marshal(sponsoredCallPayload{
		ChainID:       req.ChainID.String(),
		Target:        req.Target.Hex(),
		Data:          hexutil.Encode(req.Data),
		User:          req.User.Hex(),
		SponsorAPIKey: apiKey,
	})
	if err != nil {
		return "", err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+sponsoredCallPath, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("User-Agent", g.ua)

	payload, status, err := g.do(httpReq)
	if err != nil {
		return "", err
	}
	if status < 200 || status >= 300 {
		return "", parseRelayError(status, payload)
	}

	var res sponsoredCallResponse
	if err := json.Unmarshal(payload, &res); err != nil {
		return "", fmt.Errorf("decode relay response: %w", err)
	}
	if res.TaskID == "" {
		return "", fmt.Errorf("%w: empty task id", ErrRelayRejected)
	}

	g.logger.Info().
		Str("task_id", res.TaskID).
		Str("target", req.Target.Hex()).
		Str("chain_id", req.ChainID.String()).
		Str("status_url", StatusURL(res.TaskID)).
		Msg("sponsored call submitted")
	return res.TaskID, nil
}

// TaskStatus looks up the state of a previously submitted task.
func (g *Gelato) TaskStatus(ctx context.Context, taskID string) (TaskStatus, error) {
	if strings.TrimSpace(taskID) == "" {
		return TaskStatus{}, errors.New("task id required")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, g.baseURL+taskStatusPath+url.PathEscape(taskID), nil)
	if err != nil {
		return TaskStatus{}, err
	}
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("User-Agent", g.ua)

	payload, status, err := g.do(httpReq)
	if err != nil {
		return TaskStatus{}, err
	}
	if status != http.StatusOK {
		return TaskStatus{}, parseRelayError(status, payload)
	}

	var res taskStatusResponse
	if err := json.Unmarshal(payload, &res); err != nil {
		return TaskStatus{}, fmt.Errorf("decode task status: %w", err)
	}
	return res.Task, nil
}

func (g *Gelato) do(req *http.Request) ([]byte, int, error) {
	resp, err := g.client.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, err
	}
	return payload, resp.StatusCode, nil
}

type sponsoredCallPayload struct {
	ChainID       string `json:"chainId"`
	Target        string `json:"target"`
	Data          string `json:"data"`
	User          string `json:"user"`
	SponsorAPIKey string `json:"sponsorApiKey"`
}

type sponsoredCallResponse struct {
	TaskID string `json:"taskId"`
}

type taskStatusResponse struct {
	Task TaskStatus `json:"task"`
}

type errorResponse struct {
	Message string `json:"message"`
}

func parseRelayError(status int, payload []byte) error {
	var apiErr errorResponse
	if err := json.Unmarshal(payload, &apiErr); err == nil && apiErr.Message != "" {
		return fmt.Errorf("%w (%d): %s", ErrRelayRejected, status, apiErr.Message)
	}
	if len(payload) > 0 {
		return fmt.Errorf("%w (%d): %s", ErrRelayRejected, status, strings.TrimSpace(string(payload)))
	}
	return fmt.Errorf("%w (%d)", ErrRelayRejected, status)
}

var _ Relayer = (*Gelato)(nil)
