package alerting

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"pacing-forecaster/internal/forecast"
)

// Notification 封装告警上下文。
type Notification struct {
	Date           time.Time
	Weekday        time.Weekday
	CheckpointHour int
	EffectiveHour  int
	Verdict        forecast.Pacing
	RevenueSoFar   decimal.Decimal
	ExpectedByNow  decimal.Decimal
	EOD            decimal.Decimal
	Low            decimal.Decimal
	High           decimal.Decimal
	DeltaPct       decimal.Decimal
	Warnings       []string
	Channels       []string
	AdditionalMsg  string
}

// NewNotification converts a forecast result into a notification. Money is
// rounded to cents and the delta to a tenth of a percent.
func NewNotification(date time.Time, res *forecast.Result, channels []string) Notification {
	note := Notification{
		Date:           date,
		Weekday:        res.Weekday,
		CheckpointHour: res.CheckpointHour,
		EffectiveHour:  res.EffectiveHour,
		Verdict:        res.Pacing,
		RevenueSoFar:   Money(res.RevenueSoFar),
		ExpectedByNow:  Money(res.ExpectedByNow),
		EOD:            Money(res.EOD),
		Low:            Money(res.Low),
		High:           Money(res.High),
		DeltaPct:       Percent(res.DeltaPct),
		Channels:       channels,
	}
	for _, w := range res.Warnings {
		note.Warnings = append(note.Warnings, w.Message)
	}
	return note
}

// Money rounds v to two places. Non-finite values become zero.
func Money(v float64) decimal.Decimal {
	if !forecast.IsAvailable(v) {
		return decimal.Zero
	}
	return decimal.NewFromFloat(v).Round(2)
}

// Percent converts a fraction to a percentage rounded to one place.
func Percent(fraction float64) decimal.Decimal {
	if !forecast.IsAvailable(fraction) {
		return decimal.Zero
	}
	return decimal.NewFromFloat(fraction).Shift(2).Round(1)
}

// Notifier 定义告警输送接口。
type Notifier interface {
	Notify(ctx context.Context, notification Notification) error
}

// TelegramNotifier 通过 Telegram Bot API 推送消息。
type TelegramNotifier struct {
	botToken string
	chatID   string
	baseURL  string
	client   *http.Client
	logger   zerolog.Logger
}

// NewTelegramNotifier 构造 Telegram 告警器。
func NewTelegramNotifier(botToken, chatID, baseURL string, timeout time.Duration, logger zerolog.Logger) *TelegramNotifier {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if baseURL == "" {
		baseURL = "https://api.telegram.org"
	}

	return &TelegramNotifier{
		botToken: botToken,
		chatID:   chatID,
		baseURL:  strings.TrimRight(baseURL, "/"),
		client:   &http.Client{Timeout: timeout},
		logger:   logger.With().Str("component", "alert_telegram").Logger(),
	}
}

// Notify 调用 sendMessage API 推送文本。
func (n *TelegramNotifier) Notify(ctx context.Context, note Notification) error {
	payload := map[string]string{
		"chat_id": n.chatID,
		"text":    RenderMessage(note),
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal telegram payload: %w", err)
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", n.baseURL, n.botToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create telegram request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send telegram request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("telegram 响应码异常: %d", resp.StatusCode)
	}

	var result struct {
		OK bool `json:"ok"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err == nil {
		if !result.OK {
			return fmt.Errorf("telegram 返回 ok=false")
		}
	}

	n.logger.Info().Str("date", note.Date.Format(time.DateOnly)).
		Int("checkpoint_hour", note.CheckpointHour).
		Str("verdict", string(note.Verdict)).
		Str("channels", strings.Join(note.Channels, ",")).
		Msg("告警已发送 (Telegram)")
	return nil
}

// RenderMessage formats a notification as plain text.
func RenderMessage(note Notification) string {
	builder := strings.Builder{}
	builder.WriteString("[Revenue Pacing Alert]\n")
	builder.WriteString(fmt.Sprintf("Date: %s (%s), checkpoint %02d:00, data through %02d:59\n",
		note.Date.Format(time.DateOnly), note.Weekday, note.CheckpointHour, note.EffectiveHour))
	builder.WriteString(fmt.Sprintf("Verdict: %s (%s%% vs. expected)\n", note.Verdict.Label(), signed(note.DeltaPct)))
	builder.WriteString(fmt.Sprintf("Revenue so far: %s (expected %s)\n", note.RevenueSoFar.StringFixed(2), note.ExpectedByNow.StringFixed(2)))
	builder.WriteString(fmt.Sprintf("End of day: %s (range %s – %s)\n", note.EOD.StringFixed(2), note.Low.StringFixed(2), note.High.StringFixed(2)))
	for _, w := range note.Warnings {
		builder.WriteString("! ")
		builder.WriteString(w)
		builder.WriteString("\n")
	}
	if len(note.Channels) > 0 {
		builder.WriteString(fmt.Sprintf("Channels: %s\n", strings.Join(note.Channels, ",")))
	}
	if note.AdditionalMsg != "" {
		builder.WriteString(note.AdditionalMsg)
	}
	return builder.String()
}

func signed(d decimal.Decimal) string {
	if d.IsPositive() {
		return "+" + d.StringFixed(1)
	}
	return d.StringFixed(1)
}

var _ Notifier = (*TelegramNotifier)(nil)
