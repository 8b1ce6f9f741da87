package repo

import (
	"InspectVault/internal/model"
	"bytes"
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrVersionConflict возвращается при попытке upsert с устаревшей версией.
var ErrVersionConflict = errors.New("record version conflict")

// RecordRepository определяет контракт доступа к синхронизируемым записям.
type RecordRepository interface {
	// GetChangedSince возвращает записи организации указанного вида,
	// изменённые после since, в порядке возрастания updated_at.
	GetChangedSince(ctx context.Context, orgID, kind string, since time.Time) ([]model.Record, error)

	// Get возвращает запись по id внутри организации.
	Get(ctx context.Context, orgID, kind, id string) (*model.Record, error)

	// Upsert применяет изменение по id. Версия входящей записи должна совпадать
	// с хранимой (или force=true при разрешении конфликта клиентом).
	// Возвращает новую серверную версию или ErrVersionConflict.
	Upsert(ctx context.Context, orgID string, rec model.Record, force bool) (int64, error)

	// Delete помечает запись удалённой (tombstone) и возвращает путь её блоба,
	// чтобы вызывающий код мог удалить вложение.
	Delete(ctx context.Context, orgID, kind, id string) (blobPath *string, err error)
}

type recordRepo struct {
	db *gorm.DB
}

// NewRecordRepository создаёт реализацию репозитория записей.
func NewRecordRepository(db *gorm.DB) RecordRepository {
	return &recordRepo{db: db}
}

func (r *recordRepo) GetChangedSince(ctx context.Context, orgID, kind string, since time.Time) ([]model.Record, error) {
	var recs []model.Record
	tx := r.db.WithContext(ctx).
		Where("org_id = ? AND kind = ? AND updated_at > ?", orgID, kind, since).
		Order("updated_at ASC").
		Find(&recs)
	if tx.Error != nil {
		return nil, tx.Error
	}
	return recs, nil
}

func (r *recordRepo) Get(ctx context.Context, orgID, kind, id string) (*model.Record, error) {
	var rec model.Record
	tx := r.db.WithContext(ctx).
		Where("org_id = ? AND kind = ? AND id = ?", orgID, kind, id).
		First(&rec)
	if tx.Error != nil {
		return nil, tx.Error
	}
	return &rec, nil
}

// Upsert выполняется в транзакции: читаем текущую версию, сверяем, пишем новую.
// Повтор уже применённого изменения (ретрай клиента после потерянного ack)
// не конфликтует: возвращается та же версия, запись не дублируется — ключ по id.
func (r *recordRepo) Upsert(ctx context.Context, orgID string, rec model.Record, force bool) (int64, error) {
	var newVersion int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var current model.Record
		err := tx.Where("id = ?", rec.ID).First(&current).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			// новая запись — версия 1
			rec.OrgID = orgID
			rec.Version = 1
			newVersion = 1
			return tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "id"}},
				DoNothing: true,
			}).Create(&rec).Error
		case err != nil:
			return err
		}

		// Запись существует: чужая организация неотличима от отсутствия прав
		if current.OrgID != orgID {
			return gorm.ErrRecordNotFound
		}
		if !force && rec.Version != current.Version {
			// ровно это изменение уже применено — ack потерялся, клиент повторяет
			if rec.Version == current.Version-1 && sameChange(&rec, &current) {
				newVersion = current.Version
				return nil
			}
			return ErrVersionConflict
		}

		newVersion = current.Version + 1
		updates := map[string]any{
			"name":      rec.Name,
			"payload":   rec.Payload,
			"blob_path": rec.BlobPath,
			"deleted":   rec.Deleted,
			"version":   newVersion,
		}
		return tx.Model(&model.Record{}).Where("id = ?", rec.ID).Updates(updates).Error
	})
	if err != nil {
		return 0, err
	}
	return newVersion, nil
}

// sameChange — входящее изменение совпадает с хранимым содержимым записи.
func sameChange(incoming, current *model.Record) bool {
	if incoming.Name != current.Name || incoming.Deleted != current.Deleted {
		return false
	}
	if !bytes.Equal(incoming.Payload, current.Payload) {
		return false
	}
	switch {
	case incoming.BlobPath == nil && current.BlobPath == nil:
		return true
	case incoming.BlobPath != nil && current.BlobPath != nil:
		return *incoming.BlobPath == *current.BlobPath
	}
	return false
}

func (r *recordRepo) Delete(ctx context.Context, orgID, kind, id string) (*string, error) {
	var blobPath *string
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var current model.Record
		if err := tx.Where("org_id = ? AND kind = ? AND id = ?", orgID, kind, id).First(&current).Error; err != nil {
			return err
		}
		blobPath = current.BlobPath
		return tx.Model(&model.Record{}).Where("id = ?", id).Updates(map[string]any{
			"deleted":   true,
			"blob_path": nil,
			"version":   current.Version + 1,
		}).Error
	})
	if err != nil {
		return nil, err
	}
	return blobPath, nil
}
