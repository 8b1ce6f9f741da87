package store

import (
	"database/sql"
	"errors"
)

// PutBlob сохраняет байты вложения записи.
func (s *Store) PutBlob(kind, recordID string, data []byte) error {
	_, err := s.db.Exec(`INSERT OR REPLACE INTO blobs(kind, record_id, data) VALUES(?, ?, ?)`,
		kind, recordID, data)
	return err
}

// GetBlob возвращает байты вложения или ErrNotFound.
func (s *Store) GetBlob(kind, recordID string) ([]byte, error) {
	var data []byte
	err := s.db.QueryRow(`SELECT data FROM blobs WHERE kind = ? AND record_id = ?`, kind, recordID).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return data, nil
}

// DeleteBlob убирает вложение. Отсутствие вложения — не ошибка:
// вложение не должно пережить свою запись.
func (s *Store) DeleteBlob(kind, recordID string) error {
	_, err := s.db.Exec(`DELETE FROM blobs WHERE kind = ? AND record_id = ?`, kind, recordID)
	return err
}
