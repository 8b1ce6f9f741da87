package handlers_test

import (
	"InspectVault/internal/config"
	"InspectVault/internal/handlers"
	"InspectVault/internal/middleware"
	"InspectVault/internal/model"
	"InspectVault/internal/repo"
	"InspectVault/internal/service"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"
)

// --- Minimal mocks ---

type mockUserRepo struct{ mock.Mock }

func (m *mockUserRepo) CreateUser(ctx context.Context, user *model.User) (*model.User, error) {
	args := m.Called(ctx, user)
	if u, ok := args.Get(0).(*model.User); ok {
		return u, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockUserRepo) GetUserByLogin(ctx context.Context, login string) (*model.User, error) {
	args := m.Called(ctx, login)
	if u, ok := args.Get(0).(*model.User); ok {
		return u, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockUserRepo) GetUserByID(ctx context.Context, id int64) (*model.User, error) {
	args := m.Called(ctx, id)
	if u, ok := args.Get(0).(*model.User); ok {
		return u, args.Error(1)
	}
	return nil, args.Error(1)
}

var _ repo.UserRepository = (*mockUserRepo)(nil)

type mockRecordRepo struct{ mock.Mock }

func (m *mockRecordRepo) GetChangedSince(ctx context.Context, orgID, kind string, since time.Time) ([]model.Record, error) {
	args := m.Called(ctx, orgID, kind, since)
	if v, ok := args.Get(0).([]model.Record); ok {
		return v, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockRecordRepo) Get(ctx context.Context, orgID, kind, id string) (*model.Record, error) {
	args := m.Called(ctx, orgID, kind, id)
	if v, ok := args.Get(0).(*model.Record); ok {
		return v, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockRecordRepo) Upsert(ctx context.Context, orgID string, rec model.Record, force bool) (int64, error) {
	args := m.Called(ctx, orgID, rec, force)
	return args.Get(0).(int64), args.Error(1)
}
func (m *mockRecordRepo) Delete(ctx context.Context, orgID, kind, id string) (*string, error) {
	args := m.Called(ctx, orgID, kind, id)
	if v, ok := args.Get(0).(*string); ok {
		return v, args.Error(1)
	}
	return nil, args.Error(1)
}

var _ repo.RecordRepository = (*mockRecordRepo)(nil)

type mockBlobRepo struct{ mock.Mock }

func (m *mockBlobRepo) Put(ctx context.Context, orgID, path string, data []byte) error {
	return m.Called(ctx, orgID, path, data).Error(0)
}
func (m *mockBlobRepo) Get(ctx context.Context, orgID, path string) (*model.Blob, error) {
	args := m.Called(ctx, orgID, path)
	if v, ok := args.Get(0).(*model.Blob); ok {
		return v, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockBlobRepo) Delete(ctx context.Context, orgID, path string) error {
	return m.Called(ctx, orgID, path).Error(0)
}

var _ repo.BlobRepository = (*mockBlobRepo)(nil)

// --- Helpers ---

const testSecret = "test-secret"

func testConfig() *config.Config {
	return &config.Config{
		AuthSecret:     testSecret,
		Model3DMaxMB:   1,
		VesselImgMaxMB: 1,
		ScanImageMaxMB: 1,
		ScanDataMaxMB:  1,
	}
}

func newTestRouter(t *testing.T, ur repo.UserRepository, rr repo.RecordRepository, br repo.BlobRepository) http.Handler {
	t.Helper()
	if ur == nil {
		ur = &mockUserRepo{}
	}
	if rr == nil {
		rr = &mockRecordRepo{}
	}
	if br == nil {
		br = &mockBlobRepo{}
	}
	logger := zap.NewNop().Sugar()
	h := handlers.NewHandler(
		service.NewUserService(ur),
		service.NewRecordService(rr, br, logger),
		logger,
		testConfig(),
	)
	return h.Router
}

func addAuthCookie(t *testing.T, req *http.Request, userID int64, orgID, login string) {
	t.Helper()
	rr := httptest.NewRecorder()
	_ = middleware.SetLoginCookie(rr, userID, orgID, login, testSecret)
	for _, c := range rr.Result().Cookies() {
		req.AddCookie(c)
	}
}
