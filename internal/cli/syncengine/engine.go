package syncengine

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"InspectVault/internal/cli/api"
	"InspectVault/internal/cli/model"
	"InspectVault/internal/cli/store"
	"InspectVault/internal/cli/tracker"
	"InspectVault/internal/config"
)

// Триггеры цикла синхронизации.
type Trigger string

const (
	TriggerAuto   Trigger = "auto"   // дебаунс после локальной мутации
	TriggerManual Trigger = "manual" // явная команда пользователя
	TriggerLogin  Trigger = "login"  // вход: полная выгрузка с сервера
)

var (
	// ErrCycleRunning — цикл уже идёт; конкурирующий триггер схлопывается в no-op.
	ErrCycleRunning = errors.New("sync cycle already running")
	// ErrBackedOff — авто-триггер подавлен после серии неудачных циклов.
	ErrBackedOff = errors.New("sync backed off after consecutive failures")
)

// CycleResult — итог одного цикла.
type CycleResult struct {
	Pulled    int
	Pushed    int
	Purged    int // подтверждённые сервером удаления
	Conflicts int // конфликты, обнаруженные в этом цикле
	Resolved  int // конфликты, применённые в начале цикла

	TransientFailures int
	Unauthorized      bool
	Oversized         []string // id записей с неподъёмным вложением
}

func (r *CycleResult) failed() bool {
	return r.TransientFailures > 0 || r.Unauthorized
}

// Gateway — срез серверного API, нужный движку.
type Gateway interface {
	FetchChanged(ctx context.Context, kind, since string) ([]api.RemoteRecord, string, error)
	PushChange(ctx context.Context, chg api.Change) (int64, *api.RemoteConflict, error)
	DeleteRecord(ctx context.Context, kind, id string) error
	UploadBlob(ctx context.Context, path, category string, data []byte) error
	DownloadBlob(ctx context.Context, path string) ([]byte, error)
}

// Engine управляет циклами синхронизации одного аккаунта.
// Конструируемый объект без пакетных глобалей: тесты и CLI собирают свой.
type Engine struct {
	store   *store.Store
	gw      Gateway
	tracker *tracker.Tracker
	log     *zap.SugaredLogger
	cfg     *config.Config

	cycleMu sync.Mutex
	syncing atomic.Bool

	debounceMu sync.Mutex
	debounce   *time.Timer
	closed     bool
}

func New(s *store.Store, gw Gateway, tr *tracker.Tracker, log *zap.SugaredLogger, cfg *config.Config) *Engine {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Engine{store: s, gw: gw, tracker: tr, log: log, cfg: cfg}
}

// Close останавливает отложенный авто-запуск.
func (e *Engine) Close() {
	e.debounceMu.Lock()
	defer e.debounceMu.Unlock()
	e.closed = true
	if e.debounce != nil {
		e.debounce.Stop()
		e.debounce = nil
	}
}

// NotifyMutation планирует авто-цикл с дебаунсом: серия быстрых правок
// приводит к одному циклу, а не к лавине.
func (e *Engine) NotifyMutation() {
	if !e.cfg.AutoSync {
		return
	}
	e.debounceMu.Lock()
	defer e.debounceMu.Unlock()
	if e.closed {
		return
	}
	if e.debounce != nil {
		e.debounce.Reset(e.cfg.SyncDebounce())
		return
	}
	e.debounce = time.AfterFunc(e.cfg.SyncDebounce(), func() {
		if _, err := e.SyncCycle(context.Background(), TriggerAuto); err != nil &&
			!errors.Is(err, ErrCycleRunning) && !errors.Is(err, ErrBackedOff) {
			e.log.Warnw("auto sync cycle failed", "error", err)
		}
	})
}

// OnLogin выполняет принудительную полную выгрузку после входа.
func (e *Engine) OnLogin(ctx context.Context) (*CycleResult, error) {
	return e.SyncCycle(ctx, TriggerLogin)
}

// Conflicts возвращает конфликты, ожидающие разрешения или применения.
func (e *Engine) Conflicts() ([]model.Conflict, error) {
	return e.store.ListConflicts()
}

// Resolve фиксирует выбор пользователя. Применение — в начале следующего цикла.
func (e *Engine) Resolve(kind, id, choice string) error {
	return e.store.SetConflictResolution(kind, id, choice)
}

// Status выводит агрегатный статус для индикатора.
func (e *Engine) Status() (string, error) {
	if e.syncing.Load() {
		return model.StatusSyncing, nil
	}
	meta, err := e.store.Meta()
	if err != nil {
		return "", err
	}
	switch {
	case meta.BackedOff():
		return model.StatusFailed, nil
	case meta.ConsecutiveFailures > 0:
		return model.StatusOffline, nil
	case meta.PendingChangeCount > 0:
		return model.StatusNeedsSync, nil
	}
	return model.StatusSynced, nil
}

// SyncCycle выполняет один цикл: применение разрешённых конфликтов, pull,
// push, продвижение watermark. Конкурирующий вызов получает ErrCycleRunning.
func (e *Engine) SyncCycle(ctx context.Context, trigger Trigger) (*CycleResult, error) {
	if !e.cycleMu.TryLock() {
		return nil, ErrCycleRunning
	}
	defer e.cycleMu.Unlock()
	e.syncing.Store(true)
	defer e.syncing.Store(false)

	meta, err := e.store.Meta()
	if err != nil {
		return nil, err
	}
	if trigger == TriggerAuto {
		if !meta.AutoSyncEnabled {
			return nil, ErrBackedOff
		}
		if meta.BackedOff() {
			e.log.Infow("auto sync suppressed by backoff", "failures", meta.ConsecutiveFailures)
			return nil, ErrBackedOff
		}
	}

	meta.LastAttemptAt = time.Now().Unix()
	res := &CycleResult{}

	e.applyResolutions(ctx, res)

	since := meta.LastSyncAt
	if trigger == TriggerLogin {
		since = ""
	}
	serverTime, pullOK := e.pullPhase(ctx, since, res)

	e.pushPhase(ctx, res)

	// watermark продвигается после полного прохода попыток: неудачные записи
	// остаются dirty и не теряются из-за сдвинутой отметки
	if pullOK && serverTime != "" {
		meta.LastSyncAt = serverTime
	}
	if res.failed() || !pullOK {
		meta.ConsecutiveFailures++
	} else {
		meta.ConsecutiveFailures = 0
	}
	if err := e.store.SaveMeta(meta); err != nil {
		return res, err
	}

	e.log.Infow("sync cycle finished",
		"trigger", trigger, "pulled", res.Pulled, "pushed", res.Pushed,
		"conflicts", res.Conflicts, "transient", res.TransientFailures)
	return res, nil
}

// applyResolutions применяет накопленные конфликты. Без ручного выбора
// работает автополитика «последняя правка побеждает», при равенстве — remote.
func (e *Engine) applyResolutions(ctx context.Context, res *CycleResult) {
	conflicts, err := e.store.ListConflicts()
	if err != nil {
		e.log.Errorw("list conflicts failed", "error", err)
		res.TransientFailures++
		return
	}
	for _, c := range conflicts {
		choice := c.Resolution
		if choice == "" {
			if c.LocalUpdatedAt > c.RemoteUpdatedAt {
				choice = model.ResolveLocal
			} else {
				choice = model.ResolveRemote
			}
		}
		if err := e.applyResolution(ctx, c, choice); err != nil {
			e.log.Warnw("apply conflict resolution failed",
				"kind", c.Kind, "id", c.ItemID, "choice", choice, "error", err)
			res.TransientFailures++
			continue
		}
		res.Resolved++
	}
}

func (e *Engine) applyResolution(ctx context.Context, c model.Conflict, choice string) error {
	switch choice {
	case model.ResolveLocal:
		rec, err := e.store.Get(c.Kind, c.ItemID)
		if err != nil {
			return err
		}
		// принимаем серверную версию, чтобы push прошёл проверку версий
		rev := c.RemoteRevision
		rec.RemoteRevision = &rev
		rec.SyncState = model.StateDirty
		if rec.DirtyAt == 0 {
			rec.DirtyAt = time.Now().Unix()
		}
		if err := e.store.Put(rec); err != nil {
			return err
		}
	case model.ResolveRemote:
		if c.RemoteDeleted {
			if err := e.store.Purge(c.Kind, c.ItemID); err != nil {
				return err
			}
		} else if err := e.adoptRemoteSnapshot(ctx, c); err != nil {
			return err
		}
	default:
		return errors.New("unknown resolution " + choice)
	}
	return e.store.DeleteConflict(c.Kind, c.ItemID)
}

// adoptRemoteSnapshot перезаписывает локальную запись серверным снимком конфликта.
func (e *Engine) adoptRemoteSnapshot(ctx context.Context, c model.Conflict) error {
	rec, err := e.store.Get(c.Kind, c.ItemID)
	if err != nil {
		return err
	}
	rec.Name = c.RemoteName
	rec.Payload = c.RemotePayload
	rev := c.RemoteRevision
	rec.RemoteRevision = &rev
	rec.SyncState = model.StateClean
	rec.DirtyAt = 0
	rec.Deleted = false
	rec.UpdatedAt = c.RemoteUpdatedAt
	if c.RemoteBlobPath != "" {
		applyBlobPath(rec, c.RemoteBlobPath)
		data, err := e.gw.DownloadBlob(ctx, c.RemoteBlobPath)
		if err != nil {
			e.log.Warnw("conflict blob download failed", "path", c.RemoteBlobPath, "error", err)
		} else if err := e.store.PutBlob(rec.Kind, rec.ID, data); err != nil {
			return err
		}
	}
	return e.store.Put(rec)
}

// pullPhase скачивает изменения всех видов. Возвращает серверное время
// первого ответа и признак полного успеха прохода.
func (e *Engine) pullPhase(ctx context.Context, since string, res *CycleResult) (string, bool) {
	serverTime := ""
	ok := true
	for _, kind := range model.KnownKinds {
		records, st, err := e.gw.FetchChanged(ctx, kind, since)
		if err != nil {
			if errors.Is(err, api.ErrUnauthorized) {
				res.Unauthorized = true
			} else {
				res.TransientFailures++
			}
			e.log.Warnw("pull failed", "kind", kind, "error", err)
			ok = false
			continue
		}
		if serverTime == "" {
			serverTime = st
		}
		for _, remote := range records {
			if err := e.applyRemote(ctx, kind, remote, res); err != nil {
				e.log.Warnw("apply remote record failed", "kind", kind, "id", remote.ID, "error", err)
				res.TransientFailures++
				ok = false
			}
		}
	}
	return serverTime, ok
}

func (e *Engine) applyRemote(ctx context.Context, kind string, remote api.RemoteRecord, res *CycleResult) error {
	local, err := e.store.Get(kind, remote.ID)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return err
	}

	// эхо собственного push: сервер вернул версию, которую эта копия уже
	// приняла. Изменение одно и то же — ни перезаписи, ни конфликта.
	if local != nil && local.RemoteRevision != nil && remote.Version == *local.RemoteRevision {
		return nil
	}

	switch {
	case local == nil:
		if remote.Deleted {
			return nil
		}
		rec := &model.Record{ID: remote.ID, Kind: kind}
		e.fillFromRemote(rec, remote)
		if err := e.store.Put(rec); err != nil {
			return err
		}
		e.downloadBlobIfNeeded(ctx, rec, remote, res)
		res.Pulled++
		return nil

	case local.SyncState == model.StateClean:
		if remote.Deleted {
			if err := e.store.Purge(kind, remote.ID); err != nil {
				return err
			}
			res.Pulled++
			return nil
		}
		e.fillFromRemote(local, remote)
		if err := e.store.Put(local); err != nil {
			return err
		}
		e.downloadBlobIfNeeded(ctx, local, remote, res)
		res.Pulled++
		return nil

	case local.SyncState == model.StateConflict:
		// конфликт уже есть: освежаем серверный снимок, выбор сохраняется
		return e.recordConflict(local, remote, false, res)

	default:
		// dirty/error/pushing: локальные правки не затираем
		return e.recordConflict(local, remote, true, res)
	}
}

// recordConflict сохраняет снимок серверной записи и помечает локальную.
func (e *Engine) recordConflict(local *model.Record, remote api.RemoteRecord, markState bool, res *CycleResult) error {
	c := &model.Conflict{
		Kind:            local.Kind,
		ItemID:          local.ID,
		LocalUpdatedAt:  local.UpdatedAt,
		RemoteRevision:  remote.Version,
		RemoteUpdatedAt: parseServerTime(remote.UpdatedAt),
		RemoteName:      remote.Name,
		RemotePayload:   remote.Payload,
		RemoteDeleted:   remote.Deleted,
	}
	if remote.BlobPath != nil {
		c.RemoteBlobPath = *remote.BlobPath
	}
	if err := e.store.PutConflict(c); err != nil {
		return err
	}
	if markState {
		if err := e.tracker.MarkConflict(local.Kind, local.ID); err != nil {
			return err
		}
		res.Conflicts++
	}
	return nil
}

// fillFromRemote переносит серверные поля в локальную запись (clean).
func (e *Engine) fillFromRemote(rec *model.Record, remote api.RemoteRecord) {
	rec.Name = remote.Name
	rec.Payload = remote.Payload
	rec.CreatedBy = remote.CreatedBy
	rec.Deleted = remote.Deleted
	rec.UpdatedAt = parseServerTime(remote.UpdatedAt)
	rev := remote.Version
	rec.RemoteRevision = &rev
	rec.SyncState = model.StateClean
	rec.DirtyAt = 0
	if remote.BlobPath != nil {
		applyBlobPath(rec, *remote.BlobPath)
	} else {
		rec.BlobFilename = ""
	}
}

// downloadBlobIfNeeded скачивает вложение, если локальной копии байтов нет.
// Неудача скачивания не откатывает запись: метаданные ценнее картинки.
func (e *Engine) downloadBlobIfNeeded(ctx context.Context, rec *model.Record, remote api.RemoteRecord, res *CycleResult) {
	if remote.BlobPath == nil || *remote.BlobPath == "" {
		return
	}
	if _, err := e.store.GetBlob(rec.Kind, rec.ID); err == nil {
		return
	}
	data, err := e.gw.DownloadBlob(ctx, *remote.BlobPath)
	if err != nil {
		e.log.Warnw("blob download failed", "path", *remote.BlobPath, "error", err)
		res.TransientFailures++
		return
	}
	if err := e.store.PutBlob(rec.Kind, rec.ID, data); err != nil {
		e.log.Errorw("blob save failed", "path", *remote.BlobPath, "error", err)
		res.TransientFailures++
	}
}

// pushPhase отправляет локальные изменения в порядке FIFO.
// Каждая запись захватывается атомарно; проигранный захват означает,
// что её уже двигает конкурирующий цикл.
func (e *Engine) pushPhase(ctx context.Context, res *CycleResult) {
	for _, kind := range model.KnownKinds {
		queue, err := e.store.ListDirty(kind)
		if err != nil {
			e.log.Errorw("list dirty failed", "kind", kind, "error", err)
			res.TransientFailures++
			continue
		}
		for i := range queue {
			rec := &queue[i]
			won, err := e.store.ClaimForPush(kind, rec.ID)
			if err != nil {
				res.TransientFailures++
				continue
			}
			if !won {
				continue
			}
			if ctx.Err() != nil {
				// отмена между захватом и отправкой: запись возвращается в очередь
				_ = e.store.ReleaseClaim(kind, rec.ID)
				return
			}
			e.pushOne(ctx, rec, res)
		}
	}
}

// pushOne обрабатывает одну захваченную запись. Любой исход выводит её из
// pushing: clean, conflict, error или полное удаление строки.
func (e *Engine) pushOne(ctx context.Context, rec *model.Record, res *CycleResult) {
	if rec.Deleted {
		if err := e.gw.DeleteRecord(ctx, rec.Kind, rec.ID); err != nil {
			e.noteTransport(rec, err, res)
			return
		}
		if err := e.store.Purge(rec.Kind, rec.ID); err != nil {
			e.log.Errorw("purge after remote delete failed", "kind", rec.Kind, "id", rec.ID, "error", err)
			_ = e.tracker.MarkError(rec.Kind, rec.ID)
			res.TransientFailures++
			return
		}
		res.Purged++
		return
	}

	// вложение уходит раньше записи: сервер никогда не видит запись,
	// ссылающуюся на ещё не загруженные байты
	var blobPath *string
	if rec.HasBlob() {
		data, err := e.store.GetBlob(rec.Kind, rec.ID)
		switch {
		case errors.Is(err, store.ErrNotFound):
			// байтов нет локально (запись принята без вложения) — шлём без пути
		case err != nil:
			_ = e.tracker.MarkError(rec.Kind, rec.ID)
			res.TransientFailures++
			return
		default:
			category := rec.BlobCategory
			if category == "" {
				category = model.DefaultCategory(rec.Kind)
			}
			p := rec.BlobPath()
			if err := e.gw.UploadBlob(ctx, p, category, data); err != nil {
				if errors.Is(err, api.ErrPayloadTooLarge) {
					res.Oversized = append(res.Oversized, rec.ID)
					_ = e.tracker.MarkError(rec.Kind, rec.ID)
					e.log.Warnw("blob exceeds category limit", "kind", rec.Kind, "id", rec.ID)
					return
				}
				e.noteTransport(rec, err, res)
				return
			}
			blobPath = &p
		}
	}

	version := int64(0)
	if rec.RemoteRevision != nil {
		version = *rec.RemoteRevision
	}
	newRev, conflict, err := e.gw.PushChange(ctx, api.Change{
		ID:       rec.ID,
		Kind:     rec.Kind,
		Name:     rec.Name,
		Payload:  rec.Payload,
		BlobPath: blobPath,
		Version:  version,
	})
	if err != nil {
		e.noteTransport(rec, err, res)
		return
	}
	if conflict != nil {
		if conflict.ServerItem != nil {
			if err := e.recordConflict(rec, *conflict.ServerItem, true, res); err != nil {
				e.log.Errorw("record push conflict failed", "kind", rec.Kind, "id", rec.ID, "error", err)
				_ = e.tracker.MarkError(rec.Kind, rec.ID)
				res.TransientFailures++
			}
			return
		}
		// сервер отказал без снимка (например, запись чужой организации)
		e.log.Warnw("push rejected", "kind", rec.Kind, "id", rec.ID, "reason", conflict.Reason)
		_ = e.tracker.MarkError(rec.Kind, rec.ID)
		res.TransientFailures++
		return
	}
	if err := e.tracker.MarkClean(rec.Kind, rec.ID, newRev); err != nil {
		e.log.Errorw("mark clean failed", "kind", rec.Kind, "id", rec.ID, "error", err)
		res.TransientFailures++
		return
	}
	res.Pushed++
}

// noteTransport классифицирует сетевую ошибку push и выводит запись из pushing.
func (e *Engine) noteTransport(rec *model.Record, err error, res *CycleResult) {
	if errors.Is(err, api.ErrUnauthorized) {
		res.Unauthorized = true
	} else {
		res.TransientFailures++
	}
	_ = e.tracker.MarkError(rec.Kind, rec.ID)
	e.log.Warnw("push failed", "kind", rec.Kind, "id", rec.ID, "error", err)
}

func parseServerTime(s string) int64 {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return 0
	}
	return t.Unix()
}

// applyBlobPath разбирает серверный путь {org}/{id}/{vessel}/{filename}
// в поля локальной записи.
func applyBlobPath(rec *model.Record, path string) {
	parts := strings.Split(path, "/")
	if len(parts) != 4 {
		return
	}
	rec.OrgID = parts[0]
	if parts[2] != "-" {
		rec.VesselID = parts[2]
	}
	rec.BlobFilename = parts[3]
	if rec.BlobCategory == "" {
		rec.BlobCategory = model.DefaultCategory(rec.Kind)
	}
}
