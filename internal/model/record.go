package model

import "time"

// Виды синхронизируемых записей. Совпадают со значениями на клиенте.
const (
	KindAsset       = "asset"
	KindVessel      = "vessel"
	KindVesselImage = "vessel_image"
	KindScan        = "scan"
)

// KnownKinds — все поддерживаемые виды записей в фиксированном порядке.
var KnownKinds = []string{KindAsset, KindVessel, KindVesselImage, KindScan}

// ValidKind сообщает, поддерживается ли вид записи сервером.
func ValidKind(kind string) bool {
	for _, k := range KnownKinds {
		if k == kind {
			return true
		}
	}
	return false
}

// Record — серверная модель синхронизируемой записи (asset/vessel/vessel_image/scan).
// Version назначается сервером и растёт на единицу при каждом принятом upsert —
// клиент хранит его как remoteRevision.
type Record struct {
	ID    string `gorm:"primaryKey;type:uuid"`
	Kind  string `gorm:"not null;index:idx_records_org_kind"`
	OrgID string `gorm:"not null;index:idx_records_org_kind;type:uuid"`

	CreatedBy string `gorm:"not null"`
	Name      string `gorm:"not null"`

	// Payload — доменные поля записи как JSON. Сервер их не интерпретирует.
	Payload []byte

	// BlobPath — опциональная ссылка на бинарное вложение в blobs.path
	BlobPath *string `gorm:"index"`

	Version int64 `gorm:"not null;default:1"`
	Deleted bool  `gorm:"not null;default:false"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime;index" json:"updated_at"`
}
