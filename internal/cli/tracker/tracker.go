package tracker

import (
	"InspectVault/internal/cli/store"
)

// Tracker отслеживает локальные изменения поверх хранилища.
// Собственного состояния у него нет: всё выводится из полей записей.
type Tracker struct {
	store *store.Store
}

func New(s *store.Store) *Tracker {
	return &Tracker{store: s}
}

// MarkDirty помечает запись изменённой: state→dirty, updated_at обновляется,
// dirty_at выставляется только при первом переходе.
func (t *Tracker) MarkDirty(kind, id string) error {
	return t.store.MarkDirty(kind, id)
}

// MarkClean фиксирует успешный push с новой серверной версией.
func (t *Tracker) MarkClean(kind, id string, remoteRevision int64) error {
	return t.store.MarkClean(kind, id, remoteRevision)
}

// MarkError помечает неудачную попытку push.
func (t *Tracker) MarkError(kind, id string) error {
	return t.store.MarkError(kind, id)
}

// MarkConflict переводит запись в состояние conflict.
func (t *Tracker) MarkConflict(kind, id string) error {
	return t.store.MarkConflict(kind, id)
}

// PendingCount возвращает число записей, ожидающих синхронизации.
func (t *Tracker) PendingCount() (int, error) {
	return t.store.CountPending()
}
