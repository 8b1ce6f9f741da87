package handlers_test

import (
	"InspectVault/internal/model"
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"gorm.io/gorm"
)

func postJSON(t *testing.T, router http.Handler, path string, body any, authOrg string) *httptest.ResponseRecorder {
	t.Helper()
	b, _ := json.Marshal(body)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json")
	if authOrg != "" {
		addAuthCookie(t, req, 1, authOrg, "tester")
	}
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

func TestUser_Register(t *testing.T) {
	m := new(mockUserRepo)
	router := newTestRouter(t, m, nil, nil)

	t.Run("ok", func(t *testing.T) {
		m.ExpectedCalls = nil
		m.On("GetUserByLogin", mock.Anything, "john").Return((*model.User)(nil), gorm.ErrRecordNotFound).Once()
		created := &model.User{ID: 42, Login: "john", OrgID: "org-new"}
		m.On("CreateUser", mock.Anything, mock.Anything).Return(created, nil).Once()

		rr := postJSON(t, router, "/api/user/register", map[string]string{"login": "john", "password": "pw"}, "")
		assert.Equal(t, http.StatusOK, rr.Code)

		// cookie выдан сразу
		var hasAuth bool
		for _, c := range rr.Result().Cookies() {
			if c.Name == "auth_token" && c.Value != "" {
				hasAuth = true
			}
		}
		assert.True(t, hasAuth, "auth cookie must be set on register")

		var resp map[string]any
		assert.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
		assert.Equal(t, "org-new", resp["org_id"])
		m.AssertExpectations(t)
	})

	t.Run("conflict", func(t *testing.T) {
		m.ExpectedCalls = nil
		m.On("GetUserByLogin", mock.Anything, "john").Return(&model.User{ID: 1, Login: "john"}, nil).Once()

		rr := postJSON(t, router, "/api/user/register", map[string]string{"login": "john", "password": "pw"}, "")
		assert.Equal(t, http.StatusConflict, rr.Code)
	})

	t.Run("bad request on empty credentials", func(t *testing.T) {
		m.ExpectedCalls = nil
		rr := postJSON(t, router, "/api/user/register", map[string]string{"login": "", "password": ""}, "")
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})
}

func TestUser_Login_Invalid(t *testing.T) {
	m := new(mockUserRepo)
	router := newTestRouter(t, m, nil, nil)

	m.On("GetUserByLogin", mock.Anything, "ghost").Return((*model.User)(nil), gorm.ErrRecordNotFound).Once()
	rr := postJSON(t, router, "/api/user/login", map[string]string{"login": "ghost", "password": "x"}, "")
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestUser_Status(t *testing.T) {
	router := newTestRouter(t, nil, nil, nil)

	// без cookie — 401
	rr := postJSON(t, router, "/api/user/test", struct{}{}, "")
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	// с cookie — ok
	rr = postJSON(t, router, "/api/user/test", struct{}{}, "org-1")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "ok")
}
