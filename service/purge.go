package service

import (
	"context"
	"errors"
	"time"

	"yesno-backend/cache"
	"yesno-backend/logging"
	"yesno-backend/metrics"
	"yesno-backend/repository"
)

const purgeLockName = "yesno:purge-soft-deleted"

// Purger 定期彻底删除超过保留期的软删除数据
type Purger struct {
	store    *repository.Store
	locker   cache.Locker
	clock    Clock
	after    time.Duration
	interval time.Duration
}

// NewPurger 创建清理任务
func NewPurger(store *repository.Store, locker cache.Locker, clock Clock, after, interval time.Duration) *Purger {
	if clock == nil {
		clock = SystemClock
	}
	return &Purger{store: store, locker: locker, clock: clock, after: after, interval: interval}
}

// Run 按间隔执行清理直到 ctx 取消
func (p *Purger) Run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	logging.Info().Dur("after", p.after).Dur("interval", p.interval).Msg("软删除清理任务已启动")
	for {
		select {
		case <-ctx.Done():
			logging.Info().Msg("软删除清理任务已停止")
			return
		case <-ticker.C:
			if _, err := p.RunOnce(ctx); err != nil && !errors.Is(err, cache.ErrLockNotAcquired) {
				logging.Error().Err(err).Msg("清理软删除数据失败")
			}
		}
	}
}

// RunOnce 执行一次清理；其他实例持有锁时返回 cache.ErrLockNotAcquired
func (p *Purger) RunOnce(ctx context.Context) (repository.PurgeResult, error) {
	var result repository.PurgeResult
	err := p.locker.TryWithLock(ctx, purgeLockName, p.interval, func(ctx context.Context) error {
		var err error
		result, err = p.store.PurgeSoftDeleted(ctx, p.clock.Now().Add(-p.after))
		return err
	})
	if err != nil {
		return result, err
	}

	metrics.PurgedEntities.WithLabelValues("survey").Add(float64(result.Surveys))
	metrics.PurgedEntities.WithLabelValues("question").Add(float64(result.Questions))
	if result.Surveys > 0 || result.Questions > 0 {
		logging.Info().Int("surveys", result.Surveys).Int("questions", result.Questions).Msg("已清理软删除数据")
	}
	return result, nil
}
