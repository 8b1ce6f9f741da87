package model

// Варианты разрешения конфликта. Пустая строка — выбор ещё не сделан.
const (
	ResolveLocal  = "local"
	ResolveRemote = "remote"
)

// Conflict возникает, когда локальная запись с несинхронизированными правками
// разошлась с более свежей серверной версией. Разрешается ровно один раз.
type Conflict struct {
	Kind   string
	ItemID string

	// LocalUpdatedAt — локальная метка правки на момент обнаружения.
	LocalUpdatedAt int64
	// RemoteRevision — серверная версия конкурирующей записи.
	RemoteRevision int64
	// RemoteUpdatedAt — серверная метка правки, unix-секунды.
	// Используется автополитикой «последняя правка побеждает».
	RemoteUpdatedAt int64

	// RemoteName/RemotePayload/RemoteBlobPath — снимок серверной записи,
	// чтобы разрешение в пользу remote не требовало повторного pull.
	RemoteName     string
	RemotePayload  []byte
	RemoteBlobPath string
	RemoteDeleted  bool

	Resolution string // "", local, remote
	DetectedAt int64
}
