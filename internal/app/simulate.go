package app

import (
	"context"
	"errors"
	"time"

	"pacing-forecaster/internal/alerting"
)

// SimulateAlert 使用给定的 so-far 数值跑一次预测并推送告警。
func (a *App) SimulateAlert(ctx context.Context, opts ForecastOptions) error {
	if !a.Config.Alerting.Enabled {
		return errors.New("alerting 未启用")
	}

	notifier := a.newNotifier()
	if notifier == nil {
		return errors.New("未配置任何告警通道")
	}

	res, err := a.project(ctx, opts)
	if err != nil {
		return err
	}

	loc, err := a.Config.Location()
	if err != nil {
		return err
	}
	now := time.Now().In(loc)
	note := alerting.NewNotification(time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC), res, a.Config.Alerting.Channels)
	note.AdditionalMsg = "(simulated)\n"
	return notifier.Notify(ctx, note)
}
