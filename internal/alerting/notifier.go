package alerting

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Notification 描述一次 canExec=false 调用的告警内容。
type Notification struct {
	StartedAt     time.Time
	Oracle        string
	Currency      string
	ChainID       string
	Message       string
	Price         string
	Channels      []string
	AdditionalMsg string
}

// Notifier 定义告警输送接口。
type Notifier interface {
	Notify(ctx context.Context, notification Notification) error
}

// Multi 将告警分发给多个通道，单个通道失败不影响其余通道。
type Multi []Notifier

// Notify 依次调用每个通道并合并错误。
func (m Multi) Notify(ctx context.Context, note Notification) error {
	var errs []error
	for _, n := range m {
		if err := n.Notify(ctx, note); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// LogNotifier 仅把告警写入日志，用于没有外部通道的部署。
type LogNotifier struct {
	logger zerolog.Logger
}

// NewLogNotifier 构造日志告警器。
func NewLogNotifier(logger zerolog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger.With().Str("component", "alert_log").Logger()}
}

// Notify 以 error 级别记录告警。
func (l *LogNotifier) Notify(ctx context.Context, note Notification) error {
	l.logger.Error().
		Time("started_at", note.StartedAt).
		Str("oracle", note.Oracle).
		Str("currency", note.Currency).
		Str("chain_id", note.ChainID).
		Str("reason", note.Message).
		Str("detail", note.AdditionalMsg).
		Msg("oracle update failed")
	return nil
}

// TelegramNotifier 通过 Telegram Bot API 推送消息。
type TelegramNotifier struct {
	endpoint string
	chatID   string
	client   *http.Client
	logger   zerolog.Logger
}

// NewTelegramNotifier 构造 Telegram 告警器。
func NewTelegramNotifier(botToken, chatID, baseURL string, timeout time.Duration, logger zerolog.Logger) *TelegramNotifier {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	base := strings.TrimRight(baseURL, "/")
	if base == "" {
		base = "https://api.telegram.org"
	}

	return &TelegramNotifier{
		endpoint: base + "/bot" + botToken + "/sendMessage",
		chatID:   chatID,
		client:   &http.Client{Timeout: timeout},
		logger:   logger.With().Str("component", "alert_telegram").Logger(),
	}
}

type sendMessageRequest struct {
	ChatID                string `json:"chat_id"`
	Text                  string `json:"text"`
	DisableWebPagePreview bool   `json:"disable_web_page_preview"`
}

type sendMessageResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description"`
}

// Notify 调用 sendMessage 推送文本告警。
func (n *TelegramNotifier) Notify(ctx context.Context, note Notification) error {
	body, err := json.Marshal(sendMessageRequest{
		ChatID:                n.chatID,
		Text:                  renderMessage(note),
		DisableWebPagePreview: true,
	})
	if err != nil {
		return fmt.Errorf("marshal telegram payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create telegram request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send telegram request: %w", err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read telegram response: %w", err)
	}

	var result sendMessageResponse
	_ = json.Unmarshal(payload, &result)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 || !result.OK {
		if result.Description != "" {
			return fmt.Errorf("telegram sendMessage failed (%d): %s", resp.StatusCode, result.Description)
		}
		return fmt.Errorf("telegram sendMessage failed (%d)", resp.StatusCode)
	}

	n.logger.Info().Time("started_at", note.StartedAt).
		Str("oracle", note.Oracle).
		Msg("告警已发送 (Telegram)")
	return nil
}

func renderMessage(note Notification) string {
	var b strings.Builder
	fmt.Fprintln(&b, "[Oracle Update Failed]")
	fmt.Fprintf(&b, "Time: %s UTC\n", note.StartedAt.UTC().Format(time.RFC3339))
	fmt.Fprintf(&b, "Oracle: %s\n", note.Oracle)
	if note.ChainID != "" {
		fmt.Fprintf(&b, "Chain: %s\n", note.ChainID)
	}
	fmt.Fprintf(&b, "Currency: %s\n", note.Currency)
	if note.Price != "" {
		fmt.Fprintf(&b, "Price: %s USD\n", note.Price)
	}
	fmt.Fprintf(&b, "Reason: %s\n", note.Message)
	if note.AdditionalMsg != "" {
		b.WriteString(note.AdditionalMsg)
	}
	return b.String()
}

var (
	_ Notifier = Multi(nil)
	_ Notifier = (*LogNotifier)(nil)
	_ Notifier = (*TelegramNotifier)(nil)
)
