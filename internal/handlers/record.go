package handlers

import (
	"InspectVault/internal/config"
	"InspectVault/internal/middleware"
	"InspectVault/internal/model"
	"InspectVault/internal/service"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// RecordHandler обрабатывает синхронизацию записей.
type RecordHandler struct {
	RecordService *service.RecordService
	Logger        *zap.SugaredLogger
	Config        *config.Config
}

func NewRecordHandler(recordService *service.RecordService, logger *zap.SugaredLogger, cfg *config.Config) *RecordHandler {
	return &RecordHandler{RecordService: recordService, Logger: logger, Config: cfg}
}

// RecordChange — элемент изменения из батча клиента.
type RecordChange struct {
	ID       string          `json:"id"`
	Kind     string          `json:"kind"`
	Name     string          `json:"name"`
	Payload  json.RawMessage `json:"payload,omitempty"`
	BlobPath *string         `json:"blob_path,omitempty"`
	Version  int64           `json:"version"`
	Deleted  bool            `json:"deleted,omitempty"`
	Force    bool            `json:"force,omitempty"`
}

// SyncRequest — батч изменений клиента.
type SyncRequest struct {
	Changes []RecordChange `json:"changes"`
}

type AppliedDTO struct {
	ID         string `json:"id"`
	NewVersion int64  `json:"new_version"`
}

type ConflictDTO struct {
	ID         string     `json:"id"`
	Reason     string     `json:"reason"`
	ServerItem *RecordDTO `json:"server_item,omitempty"`
}

// RecordDTO — запись в ответах сервера.
type RecordDTO struct {
	ID        string          `json:"id"`
	Kind      string          `json:"kind"`
	Name      string          `json:"name"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	BlobPath  *string         `json:"blob_path,omitempty"`
	Version   int64           `json:"version"`
	Deleted   bool            `json:"deleted"`
	CreatedBy string          `json:"created_by"`
	UpdatedAt string          `json:"updated_at"`
}

type SyncResponse struct {
	Applied    []AppliedDTO  `json:"applied"`
	Conflicts  []ConflictDTO `json:"conflicts"`
	ServerTime string        `json:"server_time"`
}

type ChangedResponse struct {
	Records    []RecordDTO `json:"records"`
	ServerTime string      `json:"server_time"`
}

func toRecordDTO(rec model.Record) RecordDTO {
	return RecordDTO{
		ID:        rec.ID,
		Kind:      rec.Kind,
		Name:      rec.Name,
		Payload:   rec.Payload,
		BlobPath:  rec.BlobPath,
		Version:   rec.Version,
		Deleted:   rec.Deleted,
		CreatedBy: rec.CreatedBy,
		UpdatedAt: rec.UpdatedAt.UTC().Format(time.RFC3339Nano),
	}
}

// Changed отдаёт записи организации, изменённые после ?since= (RFC3339).
// Пустой since означает полную выгрузку (первый вход на устройстве).
func (h *RecordHandler) Changed(w http.ResponseWriter, r *http.Request) {
	orgID, ok := middleware.GetOrgIDFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	kind := r.URL.Query().Get("kind")
	if !model.ValidKind(kind) {
		http.Error(w, "unknown kind", http.StatusBadRequest)
		return
	}

	var since time.Time
	if s := r.URL.Query().Get("since"); s != "" {
		t, err := time.Parse(time.RFC3339Nano, s)
		if err != nil {
			http.Error(w, "invalid since", http.StatusBadRequest)
			return
		}
		since = t
	}

	recs, serverTime, err := h.RecordService.ChangedSince(r.Context(), orgID, kind, since)
	if err != nil {
		h.Logger.Errorw("Changed: service error", "org_id", orgID, "kind", kind, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	resp := ChangedResponse{Records: make([]RecordDTO, 0, len(recs)), ServerTime: serverTime.UTC().Format(time.RFC3339Nano)}
	for _, rec := range recs {
		resp.Records = append(resp.Records, toRecordDTO(rec))
	}
	writeJSON(w, http.StatusOK, resp)
}

// Sync применяет батч изменений клиента.
func (h *RecordHandler) Sync(w http.ResponseWriter, r *http.Request) {
	orgID, ok := middleware.GetOrgIDFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	login, _ := middleware.GetLoginFromContext(r.Context())

	var req SyncRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.Logger.Warnw("Sync: invalid request body", "error", err)
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}

	svcReq := service.SyncRequest{Changes: make([]service.SyncChange, 0, len(req.Changes))}
	for _, ch := range req.Changes {
		svcReq.Changes = append(svcReq.Changes, service.SyncChange{
			ID:       ch.ID,
			Kind:     ch.Kind,
			Name:     ch.Name,
			Payload:  ch.Payload,
			BlobPath: ch.BlobPath,
			Version:  ch.Version,
			Deleted:  ch.Deleted,
			Force:    ch.Force,
		})
	}

	res, err := h.RecordService.Sync(r.Context(), orgID, login, svcReq)
	if err != nil {
		h.Logger.Errorw("Sync: service error", "org_id", orgID, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	applied := make([]AppliedDTO, 0, len(res.Applied))
	for _, a := range res.Applied {
		applied = append(applied, AppliedDTO{ID: a.ID, NewVersion: a.NewVersion})
	}
	conflicts := make([]ConflictDTO, 0, len(res.Conflicts))
	for _, c := range res.Conflicts {
		dto := ConflictDTO{ID: c.ID, Reason: c.Reason}
		if c.ServerItem != nil {
			item := toRecordDTO(*c.ServerItem)
			dto.ServerItem = &item
		}
		conflicts = append(conflicts, dto)
	}

	writeJSON(w, http.StatusOK, SyncResponse{
		Applied:    applied,
		Conflicts:  conflicts,
		ServerTime: res.ServerTime.UTC().Format(time.RFC3339Nano),
	})
}

// Delete ставит tombstone записи и удаляет её вложение.
func (h *RecordHandler) Delete(w http.ResponseWriter, r *http.Request) {
	orgID, ok := middleware.GetOrgIDFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	kind := chi.URLParam(r, "kind")
	id := chi.URLParam(r, "id")
	if !model.ValidKind(kind) || id == "" {
		http.Error(w, "invalid kind or id", http.StatusBadRequest)
		return
	}

	if err := h.RecordService.Delete(r.Context(), orgID, kind, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// удаление отсутствующей записи идемпотентно
			w.WriteHeader(http.StatusNoContent)
			return
		}
		h.Logger.Errorw("Delete: service error", "org_id", orgID, "kind", kind, "id", id, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
