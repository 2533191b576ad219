package alerting

import (
	"context"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"pacing-forecaster/internal/forecast"
)

func TestTelegramNotifierSuccess(t *testing.T) {
	received := make(map[string]string)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.URL.Path, "/bottoken/sendMessage") {
			t.Fatalf("路径应包含 sendMessage, 实际 %s", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&received); err != nil {
			t.Fatalf("解析请求体失败: %v", err)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"ok": true})
	}))
	defer srv.Close()

	notifier := NewTelegramNotifier("token", "chat", srv.URL+"/", time.Second, testLogger())
	if err := notifier.Notify(context.Background(), sampleNotification()); err != nil {
		t.Fatalf("Telegram Notify 应成功: %v", err)
	}

	if received["chat_id"] != "chat" {
		t.Fatalf("chat_id 不正确: %#v", received)
	}
	if !strings.Contains(received["text"], "Behind pace") {
		t.Fatalf("text 应包含 verdict: %q", received["text"])
	}
}

func TestTelegramNotifierError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(map[string]any{"ok": false})
	}))
	defer srv.Close()

	notifier := NewTelegramNotifier("token", "chat", srv.URL, time.Second, testLogger())
	if err := notifier.Notify(context.Background(), sampleNotification()); err == nil {
		t.Fatal("ok=false 应报错")
	}
}

func TestTelegramNotifierHTTPStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	notifier := NewTelegramNotifier("token", "chat", srv.URL, time.Second, testLogger())
	err := notifier.Notify(context.Background(), sampleNotification())
	if err == nil || !strings.Contains(err.Error(), "502") {
		t.Fatalf("应返回状态码错误, 实际 %v", err)
	}
}

func TestRenderMessage(t *testing.T) {
	msg := RenderMessage(sampleNotification())
	for _, want := range []string{
		"Date: 2024-01-29 (Monday), checkpoint 12:00, data through 11:59",
		"Verdict: Behind pace (-12.5% vs. expected)",
		"Revenue so far: 35.00 (expected 40.00)",
		"End of day: 70.00 (range 58.33 – 87.50)",
		"! Sessions are below normal by 16.7% for this weekday at hour 11.",
		"Channels: telegram",
	} {
		if !strings.Contains(msg, want) {
			t.Fatalf("消息缺少 %q:\n%s", want, msg)
		}
	}
}

func TestNewNotification(t *testing.T) {
	res := &forecast.Result{
		Weekday:        time.Tuesday,
		CheckpointHour: 9,
		EffectiveHour:  9,
		RevenueSoFar:   10,
		EOD:            33.333333,
		Low:            25,
		High:           math.NaN(),
		ExpectedByNow:  9,
		DeltaPct:       0.11111,
		Pacing:         forecast.PacingAhead,
		Warnings:       []forecast.Warning{{Message: "m1"}},
	}
	note := NewNotification(time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), res, []string{"telegram"})

	if got := note.EOD.String(); got != "33.33" {
		t.Fatalf("EOD 应四舍五入到分, 实际 %s", got)
	}
	if !note.High.IsZero() {
		t.Fatalf("NaN 应转换为 0, 实际 %s", note.High)
	}
	if got := note.DeltaPct.String(); got != "11.1" {
		t.Fatalf("DeltaPct 应为 11.1, 实际 %s", got)
	}
	if len(note.Warnings) != 1 || note.Warnings[0] != "m1" {
		t.Fatalf("warnings 不正确: %#v", note.Warnings)
	}
	if !strings.Contains(RenderMessage(note), "+11.1%") {
		t.Fatalf("正向偏差应带加号")
	}
}

func sampleNotification() Notification {
	return Notification{
		Date:           time.Date(2024, 1, 29, 0, 0, 0, 0, time.UTC),
		Weekday:        time.Monday,
		CheckpointHour: 12,
		EffectiveHour:  11,
		Verdict:        forecast.PacingBehind,
		RevenueSoFar:   decimal.NewFromInt(35),
		ExpectedByNow:  decimal.NewFromInt(40),
		EOD:            decimal.NewFromInt(70),
		Low:            decimal.RequireFromString("58.333"),
		High:           decimal.RequireFromString("87.5"),
		DeltaPct:       decimal.RequireFromString("-12.5"),
		Warnings:       []string{"Sessions are below normal by 16.7% for this weekday at hour 11."},
		Channels:       []string{"telegram"},
	}
}

func testLogger() zerolog.Logger {
	return zerolog.Nop()
}
