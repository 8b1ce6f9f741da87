package store

import (
	"database/sql"
	"errors"
	"time"

	"InspectVault/internal/cli/model"
)

// PutConflict сохраняет обнаруженный конфликт. Повторное обнаружение того же
// конфликта обновляет серверный снимок, но не затирает сделанный выбор.
func (s *Store) PutConflict(c *model.Conflict) error {
	if c.DetectedAt == 0 {
		c.DetectedAt = time.Now().Unix()
	}
	existing, err := s.GetConflict(c.Kind, c.ItemID)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return err
	}
	resolution := c.Resolution
	if existing != nil && existing.Resolution != "" {
		resolution = existing.Resolution
	}
	_, err = s.db.Exec(`INSERT OR REPLACE INTO conflicts(
		kind, item_id, local_updated_at, remote_revision, remote_updated_at,
		remote_name, remote_payload, remote_blob_path, remote_deleted,
		resolution, detected_at
	) VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.Kind, c.ItemID, c.LocalUpdatedAt, c.RemoteRevision, c.RemoteUpdatedAt,
		c.RemoteName, c.RemotePayload, c.RemoteBlobPath, boolToInt(c.RemoteDeleted),
		resolution, c.DetectedAt)
	return err
}

// GetConflict возвращает конфликт записи или ErrNotFound.
func (s *Store) GetConflict(kind, itemID string) (*model.Conflict, error) {
	row := s.db.QueryRow(`SELECT kind, item_id, local_updated_at, remote_revision, remote_updated_at,
		remote_name, remote_payload, remote_blob_path, remote_deleted, resolution, detected_at
		FROM conflicts WHERE kind = ? AND item_id = ?`, kind, itemID)
	c, err := scanConflict(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return c, err
}

// ListConflicts возвращает все неразрешённые и разрешённые, но ещё не
// применённые конфликты в порядке обнаружения.
func (s *Store) ListConflicts() ([]model.Conflict, error) {
	rows, err := s.db.Query(`SELECT kind, item_id, local_updated_at, remote_revision, remote_updated_at,
		remote_name, remote_payload, remote_blob_path, remote_deleted, resolution, detected_at
		FROM conflicts ORDER BY detected_at ASC, item_id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []model.Conflict
	for rows.Next() {
		c, err := scanConflict(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, *c)
	}
	return res, rows.Err()
}

// SetConflictResolution фиксирует терминальный выбор. Изменить уже сделанный
// выбор нельзя — конфликт разрешается ровно один раз.
func (s *Store) SetConflictResolution(kind, itemID, resolution string) error {
	if resolution != model.ResolveLocal && resolution != model.ResolveRemote {
		return errors.New("resolution must be local or remote")
	}
	res, err := s.db.Exec(`UPDATE conflicts SET resolution = ? WHERE kind = ? AND item_id = ? AND resolution = ''`,
		resolution, kind, itemID)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return errors.New("conflict not found or already resolved")
	}
	return nil
}

// DeleteConflict убирает применённый конфликт.
func (s *Store) DeleteConflict(kind, itemID string) error {
	_, err := s.db.Exec(`DELETE FROM conflicts WHERE kind = ? AND item_id = ?`, kind, itemID)
	return err
}

func scanConflict(row interface{ Scan(...any) error }) (*model.Conflict, error) {
	var c model.Conflict
	var delInt int
	err := row.Scan(&c.Kind, &c.ItemID, &c.LocalUpdatedAt, &c.RemoteRevision, &c.RemoteUpdatedAt,
		&c.RemoteName, &c.RemotePayload, &c.RemoteBlobPath, &delInt, &c.Resolution, &c.DetectedAt)
	if err != nil {
		return nil, err
	}
	c.RemoteDeleted = delInt != 0
	return &c, nil
}
