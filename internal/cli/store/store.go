package store

import (
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"InspectVault/internal/cli/model"
)

// ErrNotFound возвращается, когда записи нет в локальном хранилище.
var ErrNotFound = errors.New("record not found")

// Store — локальное хранилище устройства: записи, вложения, конфликты и
// метаданные синхронизации в одном SQLite-файле на пользователя.
// Каждая запись пишется одним стейтментом: частично записанное состояние
// не наблюдаемо, отказ записи не задевает соседние записи.
type Store struct {
	db    *sql.DB
	login string
}

// OpenForUser открывает (и создаёт при необходимости) файл БД для указанного логина.
// Вторым значением возвращается путь к БД.
func OpenForUser(login string) (*Store, string, error) {
	if login == "" {
		return nil, "", errors.New("empty login for user store")
	}
	base := os.Getenv("CLIENT_DB_PATH")
	if base == "" {
		cfgDir, err := os.UserConfigDir()
		if err != nil {
			return nil, "", err
		}
		base = filepath.Join(cfgDir, "InspectVault", "users")
	}
	dir := filepath.Join(base, login)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, "", err
	}
	dbPath := filepath.Join(dir, "client.sqlite")
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, "", err
	}
	return &Store{db: db, login: login}, dbPath, nil
}

// Close закрывает соединение с БД.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Migrate гарантирует наличие необходимых таблиц/индексов.
func (s *Store) Migrate() error {
	const ddl = `
CREATE TABLE IF NOT EXISTS records (
  kind TEXT NOT NULL,
  id TEXT NOT NULL,
  org_id TEXT NOT NULL DEFAULT '',
  created_by TEXT NOT NULL DEFAULT '',
  name TEXT NOT NULL DEFAULT '',
  payload BLOB,
  blob_filename TEXT NOT NULL DEFAULT '',
  blob_category TEXT NOT NULL DEFAULT '',
  vessel_id TEXT NOT NULL DEFAULT '',
  updated_at INTEGER NOT NULL DEFAULT 0,
  dirty_at INTEGER NOT NULL DEFAULT 0,
  remote_revision INTEGER,
  sync_state TEXT NOT NULL DEFAULT 'dirty',
  deleted INTEGER NOT NULL DEFAULT 0,
  PRIMARY KEY (kind, id)
);
CREATE INDEX IF NOT EXISTS idx_records_state ON records(sync_state, dirty_at);
CREATE INDEX IF NOT EXISTS idx_records_localonly ON records(remote_revision) WHERE remote_revision IS NULL;

CREATE TABLE IF NOT EXISTS blobs (
  kind TEXT NOT NULL,
  record_id TEXT NOT NULL,
  data BLOB NOT NULL,
  PRIMARY KEY (kind, record_id)
);

CREATE TABLE IF NOT EXISTS conflicts (
  kind TEXT NOT NULL,
  item_id TEXT NOT NULL,
  local_updated_at INTEGER NOT NULL,
  remote_revision INTEGER NOT NULL,
  remote_updated_at INTEGER NOT NULL DEFAULT 0,
  remote_name TEXT NOT NULL DEFAULT '',
  remote_payload BLOB,
  remote_blob_path TEXT NOT NULL DEFAULT '',
  remote_deleted INTEGER NOT NULL DEFAULT 0,
  resolution TEXT NOT NULL DEFAULT '',
  detected_at INTEGER NOT NULL,
  PRIMARY KEY (kind, item_id)
);

CREATE TABLE IF NOT EXISTS meta (
  key TEXT PRIMARY KEY,
  value TEXT NOT NULL
);
`
	_, err := s.db.Exec(ddl)
	return err
}

const recordColumns = `kind, id, org_id, created_by, name, payload, blob_filename, blob_category, vessel_id,
  updated_at, dirty_at, remote_revision, sync_state, deleted`

func scanRecord(row interface{ Scan(...any) error }) (*model.Record, error) {
	var rec model.Record
	var rev sql.NullInt64
	var delInt int
	err := row.Scan(&rec.Kind, &rec.ID, &rec.OrgID, &rec.CreatedBy, &rec.Name, &rec.Payload,
		&rec.BlobFilename, &rec.BlobCategory, &rec.VesselID,
		&rec.UpdatedAt, &rec.DirtyAt, &rev, &rec.SyncState, &delInt)
	if err != nil {
		return nil, err
	}
	if rev.Valid {
		v := rev.Int64
		rec.RemoteRevision = &v
	}
	rec.Deleted = delInt != 0
	return &rec, nil
}

// Get возвращает запись или ErrNotFound.
func (s *Store) Get(kind, id string) (*model.Record, error) {
	row := s.db.QueryRow(`SELECT `+recordColumns+` FROM records WHERE kind = ? AND id = ?`, kind, id)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return rec, err
}

// Put сохраняет запись целиком (insert или replace) одним стейтментом.
func (s *Store) Put(rec *model.Record) error {
	if rec.Kind == "" || rec.ID == "" {
		return errors.New("record kind and id are required")
	}
	var rev any
	if rec.RemoteRevision != nil {
		rev = *rec.RemoteRevision
	}
	_, err := s.db.Exec(`INSERT OR REPLACE INTO records(`+recordColumns+`)
		VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.Kind, rec.ID, rec.OrgID, rec.CreatedBy, rec.Name, rec.Payload,
		rec.BlobFilename, rec.BlobCategory, rec.VesselID,
		rec.UpdatedAt, rec.DirtyAt, rev, rec.SyncState, boolToInt(rec.Deleted))
	return err
}

// Delete помечает запись удалённой и переводит её в dirty, чтобы удаление
// ушло на сервер следующим циклом. Байты вложения убираются сразу.
func (s *Store) Delete(kind, id string) error {
	now := time.Now().Unix()
	res, err := s.db.Exec(`UPDATE records SET deleted = 1, sync_state = ?, updated_at = ?,
		dirty_at = CASE WHEN dirty_at = 0 THEN ? ELSE dirty_at END
		WHERE kind = ? AND id = ?`, model.StateDirty, now, now, kind, id)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return ErrNotFound
	}
	return s.DeleteBlob(kind, id)
}

// Purge окончательно убирает запись и её вложение (после подтверждённого
// удаления на сервере или разрешения конфликта remote-delete).
func (s *Store) Purge(kind, id string) error {
	if _, err := s.db.Exec(`DELETE FROM records WHERE kind = ? AND id = ?`, kind, id); err != nil {
		return err
	}
	return s.DeleteBlob(kind, id)
}

// ListDirty возвращает записи, ожидающие push (dirty или error),
// в порядке FIFO по моменту загрязнения.
func (s *Store) ListDirty(kind string) ([]model.Record, error) {
	rows, err := s.db.Query(`SELECT `+recordColumns+` FROM records
		WHERE kind = ? AND sync_state IN (?, ?) ORDER BY dirty_at ASC, id ASC`,
		kind, model.StateDirty, model.StateError)
	if err != nil {
		return nil, err
	}
	return collectRecords(rows)
}

// ListAll возвращает все неудалённые записи вида, свежие сверху.
func (s *Store) ListAll(kind string) ([]model.Record, error) {
	rows, err := s.db.Query(`SELECT `+recordColumns+` FROM records
		WHERE kind = ? AND deleted = 0 ORDER BY updated_at DESC`, kind)
	if err != nil {
		return nil, err
	}
	return collectRecords(rows)
}

// ListLocalOnly возвращает записи, ни разу не уходившие на сервер,
// по всем видам. Порядок стабилен: вид, затем момент создания правки.
func (s *Store) ListLocalOnly() ([]model.Record, error) {
	rows, err := s.db.Query(`SELECT ` + recordColumns + ` FROM records
		WHERE remote_revision IS NULL AND deleted = 0 ORDER BY kind ASC, updated_at ASC, id ASC`)
	if err != nil {
		return nil, err
	}
	return collectRecords(rows)
}

func collectRecords(rows *sql.Rows) ([]model.Record, error) {
	defer rows.Close()
	var res []model.Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, *rec)
	}
	return res, rows.Err()
}

// ClaimForPush атомарно переводит запись dirty/error → pushing.
// Возвращает false, если запись уже захвачена другим циклом или не требует push.
func (s *Store) ClaimForPush(kind, id string) (bool, error) {
	res, err := s.db.Exec(`UPDATE records SET sync_state = ?
		WHERE kind = ? AND id = ? AND sync_state IN (?, ?)`,
		model.StatePushing, kind, id, model.StateDirty, model.StateError)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// ReleaseClaim возвращает запись из pushing в dirty (push не удался).
func (s *Store) ReleaseClaim(kind, id string) error {
	_, err := s.db.Exec(`UPDATE records SET sync_state = ? WHERE kind = ? AND id = ? AND sync_state = ?`,
		model.StateDirty, kind, id, model.StatePushing)
	return err
}

// MarkClean фиксирует успешный push: состояние clean и новая серверная версия.
func (s *Store) MarkClean(kind, id string, remoteRevision int64) error {
	_, err := s.db.Exec(`UPDATE records SET sync_state = ?, remote_revision = ?, dirty_at = 0
		WHERE kind = ? AND id = ?`, model.StateClean, remoteRevision, kind, id)
	return err
}

// MarkDirty помечает запись изменённой. Момент загрязнения выставляется
// только при первом переходе — повторные правки не теряют место в очереди.
func (s *Store) MarkDirty(kind, id string) error {
	now := time.Now().Unix()
	res, err := s.db.Exec(`UPDATE records SET sync_state = ?, updated_at = ?,
		dirty_at = CASE WHEN dirty_at = 0 THEN ? ELSE dirty_at END
		WHERE kind = ? AND id = ?`, model.StateDirty, now, now, kind, id)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// MarkError помечает неудачный push; запись вернётся в очередь следующего цикла.
func (s *Store) MarkError(kind, id string) error {
	_, err := s.db.Exec(`UPDATE records SET sync_state = ? WHERE kind = ? AND id = ?`,
		model.StateError, kind, id)
	return err
}

// MarkConflict переводит запись в состояние conflict до разрешения.
func (s *Store) MarkConflict(kind, id string) error {
	_, err := s.db.Exec(`UPDATE records SET sync_state = ? WHERE kind = ? AND id = ?`,
		model.StateConflict, kind, id)
	return err
}

// CountPending возвращает число записей, ожидающих синхронизации.
func (s *Store) CountPending() (int, error) {
	var n int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM records WHERE sync_state != ?`, model.StateClean).Scan(&n)
	return n, err
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
