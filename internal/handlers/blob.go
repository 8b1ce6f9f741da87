package handlers

import (
	"InspectVault/internal/config"
	"InspectVault/internal/middleware"
	"InspectVault/internal/service"
	"errors"
	"io"
	"net/http"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Категории вложений — определяют лимит размера при загрузке.
const (
	CategoryModel3D     = "model3d"
	CategoryVesselImage = "vessel_image"
	CategoryScanImage   = "scan_image"
	CategoryScanData    = "scan_data"
)

// BlobHandler обрабатывает загрузку и выгрузку вложений.
type BlobHandler struct {
	RecordService *service.RecordService
	Logger        *zap.SugaredLogger
	Config        *config.Config
}

func NewBlobHandler(recordService *service.RecordService, logger *zap.SugaredLogger, cfg *config.Config) *BlobHandler {
	return &BlobHandler{RecordService: recordService, Logger: logger, Config: cfg}
}

// categoryLimit возвращает лимит категории в байтах, 0 — категория неизвестна.
func categoryLimit(cfg *config.Config, category string) int64 {
	const mb = int64(1024 * 1024)
	switch category {
	case CategoryModel3D:
		return int64(cfg.Model3DMaxMB) * mb
	case CategoryVesselImage:
		return int64(cfg.VesselImgMaxMB) * mb
	case CategoryScanImage:
		return int64(cfg.ScanImageMaxMB) * mb
	case CategoryScanData:
		return int64(cfg.ScanDataMaxMB) * mb
	}
	return 0
}

// Upload принимает multipart-форму: path, category и файл data.
// Путь обязан начинаться с org_id вызывающего — чужое пространство имён закрыто.
func (h *BlobHandler) Upload(w http.ResponseWriter, r *http.Request) {
	orgID, ok := middleware.GetOrgIDFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	// самый большой лимит + накладные расходы multipart
	maxBody := int64(h.Config.ScanDataMaxMB)*1024*1024 + 1*1024*1024
	r.Body = http.MaxBytesReader(w, r.Body, maxBody)

	if err := r.ParseMultipartForm(10 << 20); err != nil {
		h.Logger.Warnw("UploadBlob: invalid multipart form", "error", err)
		http.Error(w, "invalid multipart form", http.StatusBadRequest)
		return
	}

	path := r.FormValue("path")
	category := r.FormValue("category")
	if path == "" {
		http.Error(w, "missing path", http.StatusBadRequest)
		return
	}
	if !strings.HasPrefix(path, orgID+"/") {
		http.Error(w, "forbidden path", http.StatusForbidden)
		return
	}
	limit := categoryLimit(h.Config, category)
	if limit == 0 {
		http.Error(w, "unknown category", http.StatusBadRequest)
		return
	}

	dataFile, _, err := r.FormFile("data")
	if err != nil {
		h.Logger.Warnw("UploadBlob: missing data file", "error", err)
		http.Error(w, "missing data file", http.StatusBadRequest)
		return
	}
	defer dataFile.Close()

	data, err := io.ReadAll(dataFile)
	if err != nil {
		h.Logger.Warnw("UploadBlob: failed to read data", "error", err)
		http.Error(w, "failed to read data", http.StatusBadRequest)
		return
	}
	if int64(len(data)) > limit {
		h.Logger.Warnw("UploadBlob: payload too large", "path", path, "size", len(data), "limit", limit)
		http.Error(w, "payload too large", http.StatusRequestEntityTooLarge)
		return
	}

	if err := h.RecordService.SaveBlob(r.Context(), orgID, path, data); err != nil {
		h.Logger.Errorw("UploadBlob: service error", "path", path, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"path": path, "size": len(data)})
}

// Download отдаёт вложение по ?path=.
func (h *BlobHandler) Download(w http.ResponseWriter, r *http.Request) {
	orgID, ok := middleware.GetOrgIDFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	path := r.URL.Query().Get("path")
	if path == "" {
		http.Error(w, "missing path", http.StatusBadRequest)
		return
	}

	b, err := h.RecordService.GetBlob(r.Context(), orgID, path)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		h.Logger.Errorw("DownloadBlob: service error", "path", path, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/octet-stream")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(b.Data)
}
