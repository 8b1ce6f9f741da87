package handlers_test

import (
	"InspectVault/internal/model"
	"bytes"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"gorm.io/gorm"
)

func multipartUpload(t *testing.T, path, category string, data []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	_ = mw.WriteField("path", path)
	_ = mw.WriteField("category", category)
	fw, err := mw.CreateFormFile("data", "data.bin")
	if err != nil {
		t.Fatalf("CreateFormFile: %v", err)
	}
	_, _ = fw.Write(data)
	_ = mw.Close()
	return &buf, mw.FormDataContentType()
}

func TestBlobs_UploadAndDownload(t *testing.T) {
	br := new(mockBlobRepo)
	router := newTestRouter(t, nil, nil, br)

	payload := []byte{1, 2, 3, 4}
	br.On("Put", mock.Anything, "org-1", "org-1/a1/-/img.png", payload).Return(nil).Once()

	body, contentType := multipartUpload(t, "org-1/a1/-/img.png", "vessel_image", payload)
	req := httptest.NewRequest(http.MethodPost, "/api/blobs/upload", body)
	req.Header.Set("Content-Type", contentType)
	addAuthCookie(t, req, 1, "org-1", "tester")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	br.AssertExpectations(t)

	// download
	br.On("Get", mock.Anything, "org-1", "org-1/a1/-/img.png").
		Return(&model.Blob{Path: "org-1/a1/-/img.png", OrgID: "org-1", Data: payload, Size: 4}, nil).Once()

	req = httptest.NewRequest(http.MethodGet, "/api/blobs/download?path=org-1%2Fa1%2F-%2Fimg.png", nil)
	addAuthCookie(t, req, 1, "org-1", "tester")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, payload, w.Body.Bytes())
}

func TestBlobs_Upload_TooLarge(t *testing.T) {
	br := new(mockBlobRepo)
	router := newTestRouter(t, nil, nil, br)

	// лимит в тестовом конфиге 1МБ
	big := make([]byte, 1024*1024+1)
	body, contentType := multipartUpload(t, "org-1/a1/-/img.png", "vessel_image", big)
	req := httptest.NewRequest(http.MethodPost, "/api/blobs/upload", body)
	req.Header.Set("Content-Type", contentType)
	addAuthCookie(t, req, 1, "org-1", "tester")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	br.AssertNotCalled(t, "Put", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestBlobs_Upload_ForeignOrgPathForbidden(t *testing.T) {
	router := newTestRouter(t, nil, nil, nil)

	body, contentType := multipartUpload(t, "org-other/a1/-/img.png", "vessel_image", []byte{1})
	req := httptest.NewRequest(http.MethodPost, "/api/blobs/upload", body)
	req.Header.Set("Content-Type", contentType)
	addAuthCookie(t, req, 1, "org-1", "tester")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestBlobs_Download_NotFound(t *testing.T) {
	br := new(mockBlobRepo)
	router := newTestRouter(t, nil, nil, br)

	br.On("Get", mock.Anything, "org-1", "org-1/x/-/gone.bin").
		Return((*model.Blob)(nil), gorm.ErrRecordNotFound).Once()

	req := httptest.NewRequest(http.MethodGet, "/api/blobs/download?path=org-1%2Fx%2F-%2Fgone.bin", nil)
	addAuthCookie(t, req, 1, "org-1", "tester")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
