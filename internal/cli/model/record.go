package model

import "strings"

// Виды синхронизируемых записей.
const (
	KindAsset       = "asset"
	KindVessel      = "vessel"
	KindVesselImage = "vessel_image"
	KindScan        = "scan"
)

// KnownKinds — порядок фиксирован: pull и push обходят виды именно так.
var KnownKinds = []string{KindAsset, KindVessel, KindVesselImage, KindScan}

// Состояния синхронизации записи.
const (
	StateClean    = "clean"
	StateDirty    = "dirty"
	StatePushing  = "pushing"
	StateConflict = "conflict"
	StateError    = "error"
)

// Категории вложений. Категория определяет лимит размера при загрузке.
const (
	CategoryModel3D     = "model3d"
	CategoryVesselImage = "vessel_image"
	CategoryScanImage   = "scan_image"
	CategoryScanData    = "scan_data"
)

// DefaultCategory возвращает категорию вложения для вида записи.
// Скан может нести и превью (scan_image) — это задаётся явно при добавлении файла.
func DefaultCategory(kind string) string {
	switch kind {
	case KindAsset:
		return CategoryModel3D
	case KindVesselImage:
		return CategoryVesselImage
	case KindScan:
		return CategoryScanData
	}
	return ""
}

// Record — локальная синхронизируемая запись (asset/vessel/vessel_image/scan).
type Record struct {
	ID        string
	Kind      string
	OrgID     string
	CreatedBy string
	Name      string

	// Payload — доменные поля записи как JSON; движок синхронизации их не трактует.
	Payload []byte

	// Вложение (опционально). Байты лежат в таблице blobs локального хранилища.
	BlobFilename string
	BlobCategory string
	VesselID     string // сегмент пути вложения; пуст для записей вне судна

	UpdatedAt int64 // локальная метка изменения, unix-секунды
	DirtyAt   int64 // момент перехода в dirty; порядок FIFO для push

	// RemoteRevision — серверная версия после последнего успешного push.
	// nil — запись ещё ни разу не уходила на сервер (local-only).
	RemoteRevision *int64

	SyncState string
	Deleted   bool
}

// HasBlob сообщает, есть ли у записи вложение.
func (r *Record) HasBlob() bool {
	return r.BlobFilename != ""
}

// BlobPath строит детерминированный путь вложения:
// {org_id}/{record_id}/{vessel_id}/{filename}; пустой vessel_id заменяется "-".
func (r *Record) BlobPath() string {
	vessel := r.VesselID
	if vessel == "" {
		vessel = "-"
	}
	return strings.Join([]string{r.OrgID, r.ID, vessel, r.BlobFilename}, "/")
}

// LocalOnly — запись существует только на устройстве.
func (r *Record) LocalOnly() bool {
	return r.RemoteRevision == nil && !r.Deleted
}
