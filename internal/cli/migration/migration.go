package migration

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"InspectVault/internal/cli/api"
	"InspectVault/internal/cli/model"
	"InspectVault/internal/cli/store"
	"InspectVault/internal/cli/syncengine"
)

// ItemError — исход неудачной миграции одной записи.
type ItemError struct {
	Kind string
	ID   string
	Err  error
}

// Progress передаётся в callback после каждой обработанной записи.
// Completed растёт строго монотонно независимо от исхода записи.
type Progress struct {
	Completed   int
	Total       int
	CurrentItem string
	Failed      []ItemError
}

// Migrator — однократная выгрузка накопленных на устройстве записей в облако.
// Резюмируемость обеспечивает сам предикат отбора: записи без remote_revision.
// Успешно выгруженная запись в повторный проход не попадает.
type Migrator struct {
	store *store.Store
	gw    syncengine.Gateway
	log   *zap.SugaredLogger
}

func New(s *store.Store, gw syncengine.Gateway, log *zap.SugaredLogger) *Migrator {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Migrator{store: s, gw: gw, log: log}
}

// NeedsMigration — флаг аккаунта не выставлен И есть записи, не знавшие сервера.
func (m *Migrator) NeedsMigration() (bool, error) {
	meta, err := m.store.Meta()
	if err != nil {
		return false, err
	}
	if meta.MigrationCompleted {
		return false, nil
	}
	local, err := m.store.ListLocalOnly()
	if err != nil {
		return false, err
	}
	return len(local) > 0, nil
}

// Migrate выгружает все local-only записи: вложение раньше записи, исход
// каждой записи фиксируется отдельно, ошибка одной не прерывает остальные.
// Флаг migration_completed выставляется только при нуле неудач.
func (m *Migrator) Migrate(ctx context.Context, onProgress func(Progress)) (*Progress, error) {
	records, err := m.store.ListLocalOnly()
	if err != nil {
		return nil, err
	}
	p := &Progress{Total: len(records)}

	for i := range records {
		rec := &records[i]
		p.CurrentItem = rec.Kind + "/" + rec.ID
		if err := m.migrateOne(ctx, rec); err != nil {
			p.Failed = append(p.Failed, ItemError{Kind: rec.Kind, ID: rec.ID, Err: err})
			m.log.Warnw("migration item failed", "kind", rec.Kind, "id", rec.ID, "error", err)
		}
		p.Completed++
		if onProgress != nil {
			onProgress(*p)
		}
		if ctx.Err() != nil {
			return p, ctx.Err()
		}
	}

	if len(p.Failed) == 0 {
		meta, err := m.store.Meta()
		if err != nil {
			return p, err
		}
		meta.MigrationCompleted = true
		if err := m.store.SaveMeta(meta); err != nil {
			return p, err
		}
	}
	return p, nil
}

func (m *Migrator) migrateOne(ctx context.Context, rec *model.Record) error {
	var blobPath *string
	if rec.HasBlob() {
		data, err := m.store.GetBlob(rec.Kind, rec.ID)
		switch {
		case errors.Is(err, store.ErrNotFound):
			// запись без локальных байтов мигрирует как чистые метаданные
		case err != nil:
			return err
		default:
			category := rec.BlobCategory
			if category == "" {
				category = model.DefaultCategory(rec.Kind)
			}
			path := rec.BlobPath()
			if err := m.gw.UploadBlob(ctx, path, category, data); err != nil {
				return fmt.Errorf("blob upload: %w", err)
			}
			blobPath = &path
		}
	}

	newRev, conflict, err := m.gw.PushChange(ctx, api.Change{
		ID:       rec.ID,
		Kind:     rec.Kind,
		Name:     rec.Name,
		Payload:  rec.Payload,
		BlobPath: blobPath,
		Version:  0,
	})
	if err != nil {
		return err
	}
	if conflict != nil {
		return fmt.Errorf("server rejected: %s", conflict.Reason)
	}
	return m.store.MarkClean(rec.Kind, rec.ID, newRev)
}

// ResetMigrationStatus снимает флаг завершённой миграции:
// следующий NeedsMigration заново оценит локальное состояние.
func (m *Migrator) ResetMigrationStatus() error {
	meta, err := m.store.Meta()
	if err != nil {
		return err
	}
	meta.MigrationCompleted = false
	return m.store.SaveMeta(meta)
}
