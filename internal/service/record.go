package service

import (
	"InspectVault/internal/model"
	"InspectVault/internal/repo"
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// RecordService инкапсулирует серверную часть синхронизации записей.
type RecordService struct {
	records repo.RecordRepository
	blobs   repo.BlobRepository
	logger  *zap.SugaredLogger
}

func NewRecordService(rr repo.RecordRepository, br repo.BlobRepository, logger *zap.SugaredLogger) *RecordService {
	return &RecordService{records: rr, blobs: br, logger: logger}
}

// SyncChange — одно изменение из батча клиента.
type SyncChange struct {
	ID       string
	Kind     string
	Name     string
	Payload  []byte
	BlobPath *string
	Version  int64 // версия, от которой клиент отталкивался (0 для новой записи)
	Deleted  bool
	Force    bool // true после разрешения конфликта в пользу клиента
}

// SyncRequest — вход серверной синхронизации.
type SyncRequest struct {
	Changes []SyncChange
}

// AppliedChange — принятое изменение и его новая серверная версия.
type AppliedChange struct {
	ID         string
	NewVersion int64
}

// ConflictedChange — отклонённое изменение с серверным состоянием записи.
type ConflictedChange struct {
	ID         string
	Reason     string
	ServerItem *model.Record
}

// SyncResult — результат применения батча.
type SyncResult struct {
	Applied    []AppliedChange
	Conflicts  []ConflictedChange
	ServerTime time.Time
}

// Sync применяет изменения батча по одному: отказ одной записи не
// останавливает остальные. Upsert ключуется по id и потому идемпотентен —
// дубликатов при повторной доставке не возникает.
func (s *RecordService) Sync(ctx context.Context, orgID, createdBy string, req SyncRequest) (SyncResult, error) {
	res := SyncResult{
		Applied:    []AppliedChange{},
		Conflicts:  []ConflictedChange{},
		ServerTime: time.Now().UTC(),
	}

	for _, ch := range req.Changes {
		if !model.ValidKind(ch.Kind) {
			res.Conflicts = append(res.Conflicts, ConflictedChange{ID: ch.ID, Reason: "unknown kind"})
			continue
		}
		rec := model.Record{
			ID:        ch.ID,
			Kind:      ch.Kind,
			CreatedBy: createdBy,
			Name:      ch.Name,
			Payload:   ch.Payload,
			BlobPath:  ch.BlobPath,
			Version:   ch.Version,
			Deleted:   ch.Deleted,
		}
		newVersion, err := s.records.Upsert(ctx, orgID, rec, ch.Force)
		switch {
		case err == nil:
			res.Applied = append(res.Applied, AppliedChange{ID: ch.ID, NewVersion: newVersion})
		case errors.Is(err, repo.ErrVersionConflict):
			server, getErr := s.records.Get(ctx, orgID, ch.Kind, ch.ID)
			if getErr != nil {
				server = nil
			}
			res.Conflicts = append(res.Conflicts, ConflictedChange{ID: ch.ID, Reason: "version mismatch", ServerItem: server})
		case errors.Is(err, gorm.ErrRecordNotFound):
			res.Conflicts = append(res.Conflicts, ConflictedChange{ID: ch.ID, Reason: "not visible"})
		default:
			// инфраструктурная ошибка — прерываем батч целиком
			return res, err
		}
	}
	return res, nil
}

// ChangedSince возвращает записи организации, изменённые после watermark.
func (s *RecordService) ChangedSince(ctx context.Context, orgID, kind string, since time.Time) ([]model.Record, time.Time, error) {
	serverTime := time.Now().UTC()
	recs, err := s.records.GetChangedSince(ctx, orgID, kind, since)
	if err != nil {
		return nil, serverTime, err
	}
	return recs, serverTime, nil
}

// Delete ставит tombstone и удаляет вложение записи, чтобы блоб не осиротел.
func (s *RecordService) Delete(ctx context.Context, orgID, kind, id string) error {
	blobPath, err := s.records.Delete(ctx, orgID, kind, id)
	if err != nil {
		return err
	}
	if blobPath != nil {
		if err := s.blobs.Delete(ctx, orgID, *blobPath); err != nil {
			// запись уже помечена удалённой; потерянный блоб хуже, чем шумный лог
			s.logger.Errorw("failed to delete blob for deleted record", "path", *blobPath, "error", err)
			return err
		}
	}
	return nil
}

// SaveBlob сохраняет вложение по детерминированному пути.
func (s *RecordService) SaveBlob(ctx context.Context, orgID, path string, data []byte) error {
	return s.blobs.Put(ctx, orgID, path, data)
}

// GetBlob возвращает вложение организации.
func (s *RecordService) GetBlob(ctx context.Context, orgID, path string) (*model.Blob, error) {
	return s.blobs.Get(ctx, orgID, path)
}
