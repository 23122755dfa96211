package collector

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"crux-monitor-app/backend/internal/config"
	"crux-monitor-app/backend/internal/infra/retry"
)

const (
	// defaultRunAt 对应原型每天零点执行一次的约定。
	defaultRunAt = "00:00"
	// defaultTimezone 为调度使用的固定时区。
	defaultTimezone = "Europe/Moscow"

	envCollectAt       = "COLLECT_AT"
	envCollectTimezone = "COLLECT_TZ"
	envCollectInterval = "COLLECT_INTERVAL"
	envRetryMax        = "COLLECT_RETRY_MAX_ATTEMPTS"
	envRetryDelays     = "COLLECT_RETRY_DELAYS"
)

// Schedule 描述采集触发时刻：默认每天 RunAt（所在时区）触发一次；
// Interval 配置后改为固定间隔触发，主要供运维与联调使用。
type Schedule struct {
	RunAt    string
	Location *time.Location
	Interval time.Duration
}

// LoadScheduleFromEnv 解析调度配置并校验格式。
func LoadScheduleFromEnv() (Schedule, error) {
	config.LoadEnvFiles()

	schedule := Schedule{
		RunAt: strings.TrimSpace(os.Getenv(envCollectAt)),
	}
	if schedule.RunAt == "" {
		schedule.RunAt = defaultRunAt
	}
	if _, _, err := parseRunAt(schedule.RunAt); err != nil {
		return Schedule{}, err
	}

	tz := strings.TrimSpace(os.Getenv(envCollectTimezone))
	if tz == "" {
		tz = defaultTimezone
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return Schedule{}, fmt.Errorf("invalid %s %q: %w", envCollectTimezone, tz, err)
	}
	schedule.Location = loc

	if raw := strings.TrimSpace(os.Getenv(envCollectInterval)); raw != "" {
		interval, err := time.ParseDuration(raw)
		if err != nil || interval <= 0 {
			return Schedule{}, fmt.Errorf("invalid %s %q", envCollectInterval, raw)
		}
		schedule.Interval = interval
	}

	return schedule, nil
}

// LoadRetryOptionsFromEnv 解析重试配置，缺失时沿用 3s/9s/18s、共 4 次尝试的默认值。
func LoadRetryOptionsFromEnv() (retry.Options, error) {
	var opts retry.Options

	if raw := strings.TrimSpace(os.Getenv(envRetryMax)); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			return retry.Options{}, fmt.Errorf("invalid %s %q", envRetryMax, raw)
		}
		opts.MaxAttempts = parsed
	}

	if raw := strings.TrimSpace(os.Getenv(envRetryDelays)); raw != "" {
		for _, part := range strings.Split(raw, ",") {
			delay, err := time.ParseDuration(strings.TrimSpace(part))
			if err != nil || delay <= 0 {
				return retry.Options{}, fmt.Errorf("invalid %s entry %q", envRetryDelays, part)
			}
			opts.Delays = append(opts.Delays, delay)
		}
	}

	return opts, nil
}

// nextWait 计算距离下一次触发的等待时长。
func (s Schedule) nextWait(now time.Time) time.Duration {
	if s.Interval > 0 {
		return s.Interval
	}

	hour, minute, _ := parseRunAt(s.RunAt)
	local := now.In(s.Location)
	next := time.Date(local.Year(), local.Month(), local.Day(), hour, minute, 0, 0, s.Location)
	if !next.After(local) {
		next = next.AddDate(0, 0, 1)
	}
	return next.Sub(local)
}

// parseRunAt 解析 HH:MM 形式的每日触发时刻。
func parseRunAt(raw string) (int, int, error) {
	parts := strings.SplitN(raw, ":", 2)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("invalid %s %q, want HH:MM", envCollectAt, raw)
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return 0, 0, fmt.Errorf("invalid %s hour %q", envCollectAt, parts[0])
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("invalid %s minute %q", envCollectAt, parts[1])
	}
	return hour, minute, nil
}
