package store

import (
	"database/sql"
	"errors"
	"strconv"

	"InspectVault/internal/cli/model"
)

// Ключи таблицы meta.
const (
	metaLastSyncAt          = "last_sync_at"
	metaLastAttemptAt       = "last_attempt_at"
	metaConsecutiveFailures = "consecutive_failures"
	metaAutoSyncEnabled     = "auto_sync_enabled"
	metaMigrationCompleted  = "migration_completed"
)

func (s *Store) metaGet(key string) (string, error) {
	var v string
	err := s.db.QueryRow(`SELECT value FROM meta WHERE key = ?`, key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	return v, err
}

func (s *Store) metaSet(key, value string) error {
	_, err := s.db.Exec(`INSERT OR REPLACE INTO meta(key, value) VALUES(?, ?)`, key, value)
	return err
}

// Meta собирает метаданные синхронизации аккаунта.
// PendingChangeCount всегда вычисляется по записям, а не хранится.
func (s *Store) Meta() (*model.SyncMeta, error) {
	m := &model.SyncMeta{AutoSyncEnabled: true}

	var err error
	if m.LastSyncAt, err = s.metaGet(metaLastSyncAt); err != nil {
		return nil, err
	}
	if v, err := s.metaGet(metaLastAttemptAt); err != nil {
		return nil, err
	} else if v != "" {
		m.LastAttemptAt, _ = strconv.ParseInt(v, 10, 64)
	}
	if v, err := s.metaGet(metaConsecutiveFailures); err != nil {
		return nil, err
	} else if v != "" {
		m.ConsecutiveFailures, _ = strconv.Atoi(v)
	}
	if v, err := s.metaGet(metaAutoSyncEnabled); err != nil {
		return nil, err
	} else if v == "0" {
		m.AutoSyncEnabled = false
	}
	if v, err := s.metaGet(metaMigrationCompleted); err != nil {
		return nil, err
	} else if v == "1" {
		m.MigrationCompleted = true
	}

	if m.PendingChangeCount, err = s.CountPending(); err != nil {
		return nil, err
	}
	return m, nil
}

// SaveMeta сохраняет метаданные синхронизации.
func (s *Store) SaveMeta(m *model.SyncMeta) error {
	if err := s.metaSet(metaLastSyncAt, m.LastSyncAt); err != nil {
		return err
	}
	if err := s.metaSet(metaLastAttemptAt, strconv.FormatInt(m.LastAttemptAt, 10)); err != nil {
		return err
	}
	if err := s.metaSet(metaConsecutiveFailures, strconv.Itoa(m.ConsecutiveFailures)); err != nil {
		return err
	}
	auto := "1"
	if !m.AutoSyncEnabled {
		auto = "0"
	}
	if err := s.metaSet(metaAutoSyncEnabled, auto); err != nil {
		return err
	}
	migrated := "0"
	if m.MigrationCompleted {
		migrated = "1"
	}
	return s.metaSet(metaMigrationCompleted, migrated)
}

// ResetMeta очищает метаданные (logout).
func (s *Store) ResetMeta() error {
	_, err := s.db.Exec(`DELETE FROM meta`)
	return err
}
