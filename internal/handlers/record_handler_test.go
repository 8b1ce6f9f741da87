package handlers_test

import (
	"InspectVault/internal/model"
	"InspectVault/internal/repo"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func TestRecords_Sync_AppliedAndConflict(t *testing.T) {
	rr := new(mockRecordRepo)
	router := newTestRouter(t, nil, rr, nil)

	rr.On("Upsert", mock.Anything, "org-1", mock.MatchedBy(func(r model.Record) bool { return r.ID == "a1" }), false).
		Return(int64(1), nil).Once()
	rr.On("Upsert", mock.Anything, "org-1", mock.MatchedBy(func(r model.Record) bool { return r.ID == "a2" }), false).
		Return(int64(0), repo.ErrVersionConflict).Once()
	rr.On("Get", mock.Anything, "org-1", model.KindAsset, "a2").
		Return(&model.Record{ID: "a2", Kind: model.KindAsset, Version: 4, UpdatedAt: time.Now()}, nil).Once()

	body := map[string]any{"changes": []map[string]any{
		{"id": "a1", "kind": "asset", "name": "pump", "version": 0},
		{"id": "a2", "kind": "asset", "name": "valve", "version": 2},
	}}
	w := postJSON(t, router, "/api/records/sync", body, "org-1")
	assert.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Applied []struct {
			ID         string `json:"id"`
			NewVersion int64  `json:"new_version"`
		} `json:"applied"`
		Conflicts []struct {
			ID         string `json:"id"`
			Reason     string `json:"reason"`
			ServerItem *struct {
				Version int64 `json:"version"`
			} `json:"server_item"`
		} `json:"conflicts"`
		ServerTime string `json:"server_time"`
	}
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Len(t, resp.Applied, 1)
	assert.Equal(t, int64(1), resp.Applied[0].NewVersion)
	assert.Len(t, resp.Conflicts, 1)
	if assert.NotNil(t, resp.Conflicts[0].ServerItem) {
		assert.Equal(t, int64(4), resp.Conflicts[0].ServerItem.Version)
	}
	assert.NotEmpty(t, resp.ServerTime)
	rr.AssertExpectations(t)
}

func TestRecords_Sync_Unauthorized(t *testing.T) {
	router := newTestRouter(t, nil, nil, nil)
	w := postJSON(t, router, "/api/records/sync", map[string]any{"changes": []any{}}, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRecords_Changed(t *testing.T) {
	rr := new(mockRecordRepo)
	router := newTestRouter(t, nil, rr, nil)

	rr.On("GetChangedSince", mock.Anything, "org-1", model.KindVessel, mock.Anything).
		Return([]model.Record{{ID: "v1", Kind: model.KindVessel, Name: "hull", Version: 3, UpdatedAt: time.Now()}}, nil).Once()

	req := httptest.NewRequest(http.MethodGet, "/api/records/changed?kind=vessel&since="+time.Now().Add(-time.Hour).UTC().Format(time.RFC3339Nano), nil)
	addAuthCookie(t, req, 1, "org-1", "tester")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Records []struct {
			ID      string `json:"id"`
			Version int64  `json:"version"`
		} `json:"records"`
		ServerTime string `json:"server_time"`
	}
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Len(t, resp.Records, 1)
	assert.Equal(t, int64(3), resp.Records[0].Version)
	assert.NotEmpty(t, resp.ServerTime)
}

func TestRecords_Changed_BadKind(t *testing.T) {
	router := newTestRouter(t, nil, nil, nil)
	req := httptest.NewRequest(http.MethodGet, "/api/records/changed?kind=widget", nil)
	addAuthCookie(t, req, 1, "org-1", "tester")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRecords_Delete(t *testing.T) {
	rr := new(mockRecordRepo)
	br := new(mockBlobRepo)
	router := newTestRouter(t, nil, rr, br)

	path := "org-1/a1/-/model.glb"
	rr.On("Delete", mock.Anything, "org-1", model.KindAsset, "a1").Return(&path, nil).Once()
	br.On("Delete", mock.Anything, "org-1", path).Return(nil).Once()

	req := httptest.NewRequest(http.MethodDelete, "/api/records/asset/a1", nil)
	addAuthCookie(t, req, 1, "org-1", "tester")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	rr.AssertExpectations(t)
	br.AssertExpectations(t)
}
