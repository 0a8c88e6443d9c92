package service

import (
	"time"

	"yesno-backend/metrics"

	"gorm.io/gorm"
)

// DefaultUndoWindow 默认撤销窗口
const DefaultUndoWindow = 30 * time.Second

// checkUndo 撤销判定：未删除返回 ErrNotDeleted，超过窗口返回 ErrWindowExpired。
// 恰好等于窗口仍可撤销。
func checkUndo(deletedAt gorm.DeletedAt, now time.Time, window time.Duration) error {
	if !deletedAt.Valid {
		return ErrNotDeleted
	}
	if now.Sub(deletedAt.Time) > window {
		return ErrWindowExpired
	}
	return nil
}

// UndoDeadline 撤销截止时间
func UndoDeadline(deletedAt gorm.DeletedAt, window time.Duration) *time.Time {
	if !deletedAt.Valid {
		return nil
	}
	t := deletedAt.Time.Add(window)
	return &t
}

func recordSoftDelete(entity, op string, err error) {
	outcome := "ok"
	switch KindOf(err) {
	case KindWindowExpired:
		outcome = "expired"
	case KindNotDeleted:
		outcome = "not_deleted"
	default:
		if err != nil {
			outcome = "error"
		}
	}
	metrics.SoftDeleteOps.WithLabelValues(entity, op, outcome).Inc()
}
