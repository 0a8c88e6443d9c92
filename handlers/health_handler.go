package handlers

import (
	"context"
	"net/http"
	"runtime"
	"time"

	"yesno-backend/cache"
	"yesno-backend/database"

	"github.com/gin-gonic/gin"
)

const pingTimeout = 2 * time.Second

// SystemInfo 系统状态
type SystemInfo struct {
	Status       string    `json:"status"`
	Version      string    `json:"version"`
	Uptime       string    `json:"uptime"`
	StartTime    time.Time `json:"start_time"`
	CurrentTime  time.Time `json:"current_time"`
	GoVersion    string    `json:"go_version"`
	NumGoroutine int       `json:"num_goroutine"`
	NumCPU       int       `json:"num_cpu"`
	HeapAlloc    uint64    `json:"heap_alloc"`
	DBStatus     string    `json:"db_status"`
	RedisStatus  string    `json:"redis_status"`
}

// HealthCheck 检查数据库连接
func (h *Handler) HealthCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), pingTimeout)
	defer cancel()

	var dbError interface{}
	if err := database.Ping(ctx, h.db); err != nil {
		dbError = err.Error()
	}
	c.JSON(http.StatusOK, gin.H{
		"ok":                 true,
		"databaseConfigured": h.db != nil,
		"dbError":            dbError,
	})
}

// SystemStatus 详细的系统状态
func (h *Handler) SystemStatus(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), pingTimeout)
	defer cancel()

	dbStatus := "ok"
	if err := database.Ping(ctx, h.db); err != nil {
		dbStatus = "error"
	}
	redisStatus := "disabled"
	if h.redis != nil {
		redisStatus = "ok"
		if err := cache.Ping(ctx, h.redis); err != nil {
			redisStatus = "error"
		}
	}

	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	c.JSON(http.StatusOK, SystemInfo{
		Status:       "ok",
		Version:      h.version,
		Uptime:       time.Since(h.startTime).String(),
		StartTime:    h.startTime,
		CurrentTime:  time.Now(),
		GoVersion:    runtime.Version(),
		NumGoroutine: runtime.NumGoroutine(),
		NumCPU:       runtime.NumCPU(),
		HeapAlloc:    mem.HeapAlloc,
		DBStatus:     dbStatus,
		RedisStatus:  redisStatus,
	})
}
