package alerting

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func failedNote() Notification {
	return Notification{
		StartedAt: time.Unix(1_700_000_000, 0),
		Oracle:    "0x59FA68250a6EBD6b89c7828AEec472DB3BaC0279",
		Currency:  "ethereum",
		Message:   "Rpc call failed",
	}
}

func TestTelegramNotifierSuccess(t *testing.T) {
	var received sendMessageRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/bottoken/sendMessage" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&received); err != nil {
			t.Errorf("解析请求体失败: %v", err)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"ok": true})
	}))
	defer srv.Close()

	notifier := NewTelegramNotifier("token", "chat", srv.URL, time.Second, zerolog.Nop())
	if err := notifier.Notify(context.Background(), failedNote()); err != nil {
		t.Fatalf("Telegram Notify 应成功: %v", err)
	}

	if received.ChatID != "chat" {
		t.Fatalf("chat_id 不正确: %#v", received)
	}
	if !strings.Contains(received.Text, "Reason: Rpc call failed") {
		t.Fatalf("text 应包含失败原因: %q", received.Text)
	}
}

func TestTelegramNotifierError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(map[string]any{"ok": false, "description": "chat not found"})
	}))
	defer srv.Close()

	notifier := NewTelegramNotifier("token", "chat", srv.URL, time.Second, zerolog.Nop())
	err := notifier.Notify(context.Background(), failedNote())
	if err == nil || !strings.Contains(err.Error(), "chat not found") {
		t.Fatalf("expected telegram description in error, got %v", err)
	}
}

type notifierFunc func(ctx context.Context, note Notification) error

func (f notifierFunc) Notify(ctx context.Context, note Notification) error { return f(ctx, note) }

func TestMultiContinuesAfterFailure(t *testing.T) {
	var delivered int
	boom := errors.New("boom")
	multi := Multi{
		notifierFunc(func(context.Context, Notification) error { return boom }),
		notifierFunc(func(context.Context, Notification) error { delivered++; return nil }),
		NewLogNotifier(zerolog.Nop()),
	}

	err := multi.Notify(context.Background(), failedNote())
	if !errors.Is(err, boom) {
		t.Fatalf("expected joined error, got %v", err)
	}
	if delivered != 1 {
		t.Fatalf("second channel should still be notified")
	}
}

func TestRenderMessageOmitsEmptyFields(t *testing.T) {
	msg := renderMessage(Notification{StartedAt: time.Unix(0, 0), Oracle: "0xabc", Currency: "ethereum", Message: "quote not found: ethereum"})

	if strings.Contains(msg, "Price:") || strings.Contains(msg, "Chain:") {
		t.Fatalf("空字段不应渲染: %q", msg)
	}
	if !strings.Contains(msg, "Reason: quote not found: ethereum") {
		t.Fatalf("缺少失败原因: %q", msg)
	}
}
