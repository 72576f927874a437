package scheduler

import (
	"context"
	"time"

	"pairloop/internal/logger"
)

// IntervalLoop 以固定周期驱动一个任务；tick 锚定启动时刻，不随任务耗时漂移。
type IntervalLoop struct {
	Name           string
	Interval       time.Duration
	RunImmediately bool

	ctx   context.Context
	nowFn func() time.Time
}

func NewIntervalLoop(ctx context.Context, name string, interval time.Duration) *IntervalLoop {
	if ctx == nil {
		ctx = context.Background()
	}
	return &IntervalLoop{
		Name:     name,
		Interval: interval,
		ctx:      ctx,
		nowFn:    time.Now,
	}
}

// Start 阻塞运行，ctx 取消后返回。
func (l *IntervalLoop) Start(task func()) {
	if l == nil || task == nil {
		return
	}
	if l.Interval <= 0 {
		logger.Warnf("IntervalLoop[%s]: invalid interval=%s, exit", l.Name, l.Interval)
		return
	}
	if l.nowFn == nil {
		l.nowFn = time.Now
	}

	anchor := l.nowFn().UTC()
	logger.Infof("IntervalLoop[%s]: started interval=%s run_immediately=%v at=%s",
		l.Name, l.Interval, l.RunImmediately, anchor.Format(time.RFC3339))

	if l.RunImmediately {
		task()
	}

	nextAt := nextFixedTimeAfter(anchor, l.Interval, l.nowFn().UTC())
	for {
		now := l.nowFn().UTC()
		logger.Debugf("IntervalLoop[%s]: next run=%s (in %s)", l.Name,
			nextAt.Format(time.RFC3339), nextAt.Sub(now).Truncate(time.Second))
		if !l.waitUntil(nextAt) {
			return
		}
		task()
		nextAt = nextFixedTimeAfter(anchor, l.Interval, l.nowFn().UTC())
	}
}

func (l *IntervalLoop) waitUntil(target time.Time) bool {
	now := l.nowFn().UTC()
	wait := target.Sub(now)
	if wait <= 0 {
		select {
		case <-l.ctx.Done():
			logger.Infof("IntervalLoop[%s]: ctx done, exit", l.Name)
			return false
		default:
			return true
		}
	}
	timer := time.NewTimer(wait)
	select {
	case <-l.ctx.Done():
		timer.Stop()
		logger.Infof("IntervalLoop[%s]: ctx done, exit", l.Name)
		return false
	case <-timer.C:
		return true
	}
}

func nextFixedTimeAfter(anchor time.Time, interval time.Duration, now time.Time) time.Time {
	anchor = anchor.UTC()
	now = now.UTC()
	if interval <= 0 {
		return now
	}
	delta := now.Sub(anchor)
	if delta < 0 {
		return anchor
	}
	k := delta / interval
	return anchor.Add((k + 1) * interval)
}
