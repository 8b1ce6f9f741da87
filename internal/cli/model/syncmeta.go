package model

// Порог подряд неудачных циклов, после которого авто-синхронизация подавляется.
const BackoffThreshold = 3

// SyncMeta — состояние синхронизации аккаунта на устройстве.
// Пишет его только движок синхронизации; UI/CLI лишь читает.
type SyncMeta struct {
	LastSyncAt          string // watermark входящих изменений, RFC3339Nano от сервера
	LastAttemptAt       int64  // unix-секунды последней попытки цикла
	ConsecutiveFailures int
	PendingChangeCount  int
	AutoSyncEnabled     bool
	MigrationCompleted  bool
}

// BackedOff — авто-триггеры подавлены до первого полностью успешного цикла.
func (m *SyncMeta) BackedOff() bool {
	return m.ConsecutiveFailures >= BackoffThreshold
}

// Агрегатный статус синхронизации для индикатора.
const (
	StatusSynced    = "synced"
	StatusSyncing   = "syncing"
	StatusNeedsSync = "needs-sync"
	StatusFailed    = "failed"
	StatusOffline   = "offline"
)
