package repo

import (
	"InspectVault/internal/model"
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// BlobRepository — контракт доступа к бинарным вложениям.
type BlobRepository interface {
	// Put сохраняет вложение по пути. Повторная загрузка того же пути
	// перезаписывает содержимое (идемпотентно для клиента).
	Put(ctx context.Context, orgID, path string, data []byte) error

	// Get возвращает вложение. Путь чужой организации неотличим от отсутствующего.
	Get(ctx context.Context, orgID, path string) (*model.Blob, error)

	// Delete удаляет вложение, если оно есть. Отсутствие — не ошибка.
	Delete(ctx context.Context, orgID, path string) error
}

type blobRepo struct {
	db *gorm.DB
}

// NewBlobRepository создаёт реализацию репозитория блобов.
func NewBlobRepository(db *gorm.DB) BlobRepository {
	return &blobRepo{db: db}
}

func (r *blobRepo) Put(ctx context.Context, orgID, path string, data []byte) error {
	b := &model.Blob{Path: path, OrgID: orgID, Data: data, Size: int64(len(data))}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "path"}},
		DoUpdates: clause.AssignmentColumns([]string{"data", "size"}),
	}).Create(b).Error
}

func (r *blobRepo) Get(ctx context.Context, orgID, path string) (*model.Blob, error) {
	var b model.Blob
	tx := r.db.WithContext(ctx).Where("org_id = ? AND path = ?", orgID, path).First(&b)
	if tx.Error != nil {
		return nil, tx.Error
	}
	return &b, nil
}

func (r *blobRepo) Delete(ctx context.Context, orgID, path string) error {
	return r.db.WithContext(ctx).Where("org_id = ? AND path = ?", orgID, path).Delete(&model.Blob{}).Error
}
