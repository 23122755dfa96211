// Package retry 提供固定退避表的重试执行器，供采集链路包裹上游调用。
package retry

import (
	"context"
	"time"
)

const defaultMaxAttempts = 4

// defaultDelays 为默认退避表，条目数比默认总尝试次数少一。
var defaultDelays = []time.Duration{3 * time.Second, 9 * time.Second, 18 * time.Second}

// Options 控制重试行为：总尝试次数、退避表与重试前的通知回调。
// 不含抖动与单次超时——调用方需要更细的控制时应自带带超时的 ctx。
type Options struct {
	MaxAttempts int
	Delays      []time.Duration
	// OnRetry 在每次重试前触发，仅用于可观测性，attempt 从 1 开始计数。
	OnRetry func(attempt int, wait time.Duration, err error)
}

func (o Options) normalize() Options {
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = defaultMaxAttempts
	}
	if len(o.Delays) == 0 {
		o.Delays = defaultDelays
	}
	return o
}

// Do 依次执行 op，失败后按退避表等待再重试，返回首个成功结果。
// 尝试次数超过退避表长度时复用最后一个延迟；全部失败时原样返回最后一次的错误。
func Do[T any](ctx context.Context, op func(context.Context) (T, error), opts Options) (T, error) {
	opts = opts.normalize()

	var zero T
	var lastErr error

	for attempt := 1; attempt <= opts.MaxAttempts; attempt++ {
		result, err := op(ctx)
		if err == nil {
			return result, nil
		}
		lastErr = err

		if attempt == opts.MaxAttempts {
			break
		}

		wait := opts.Delays[len(opts.Delays)-1]
		if attempt-1 < len(opts.Delays) {
			wait = opts.Delays[attempt-1]
		}
		if opts.OnRetry != nil {
			opts.OnRetry(attempt, wait, err)
		}
		if err := sleep(ctx, wait); err != nil {
			return zero, err
		}
	}

	return zero, lastErr
}

// sleep 是可取消的等待：ctx 结束时立即返回其错误。
func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
