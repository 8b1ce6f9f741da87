package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"

	"InspectVault/internal/cli/auth"
	"InspectVault/internal/cli/model"
	"InspectVault/internal/config"
)

// Ошибки уровня протокола, по которым вызывающий код принимает решения.
var (
	ErrUnauthorized    = errors.New("unauthorized")
	ErrNotFound        = errors.New("not found")
	ErrPayloadTooLarge = errors.New("payload too large")
)

// Gateway — HTTP-клиент бэкенда. Токен авторизации подхватывается из
// файлового хранилища при каждом запросе: login в соседнем процессе
// сразу виден без перезапуска.
type Gateway struct {
	cfg    *config.Config
	client *http.Client
}

func NewGateway(cfg *config.Config) *Gateway {
	return &Gateway{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.HTTPTimeout()},
	}
}

// RemoteRecord — запись в ответах сервера (/api/records/*).
type RemoteRecord struct {
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

// Change — элемент батча push.
type Change struct {
	ID       string          `json:"id"`
	Kind     string          `json:"kind"`
	Name     string          `json:"name"`
	Payload  json.RawMessage `json:"payload,omitempty"`
	BlobPath *string         `json:"blob_path,omitempty"`
	Version  int64           `json:"version"`
	Deleted  bool            `json:"deleted,omitempty"`
	Force    bool            `json:"force,omitempty"`
}

type syncRequest struct {
	Changes []Change `json:"changes"`
}

type appliedDTO struct {
	ID         string `json:"id"`
	NewVersion int64  `json:"new_version"`
}

// RemoteConflict описывает отказ сервера применить изменение.
type RemoteConflict struct {
	ID         string        `json:"id"`
	Reason     string        `json:"reason"`
	ServerItem *RemoteRecord `json:"server_item,omitempty"`
}

type syncResponse struct {
	Applied    []appliedDTO     `json:"applied"`
	Conflicts  []RemoteConflict `json:"conflicts"`
	ServerTime string           `json:"server_time"`
}

type changedResponse struct {
	Records    []RemoteRecord `json:"records"`
	ServerTime string         `json:"server_time"`
}

func (g *Gateway) do(req *http.Request, withToken bool) (*http.Response, []byte, error) {
	if withToken {
		token, err := auth.LoadToken()
		if err != nil {
			return nil, nil, fmt.Errorf("нет токена авторизации: %w", err)
		}
		req.Header.Set("Cookie", "auth_token="+token)
	}
	resp, err := g.client.Do(req)
	if err != nil {
		return nil, nil, err
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	return resp, body, nil
}

func (g *Gateway) postJSON(ctx context.Context, path string, payload any, withToken bool) (*http.Response, []byte, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return nil, nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.cfg.ServerURL+path, bytes.NewReader(b))
	if err != nil {
		return nil, nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	return g.do(req, withToken)
}

type credentials struct {
	Login    string `json:"login"`
	Password string `json:"password"`
	OrgID    string `json:"org_id,omitempty"`
}

// persistAuthFromResponse извлекает auth cookie из ответа и сохраняет её.
func persistAuthFromResponse(resp *http.Response) error {
	for _, c := range resp.Cookies() {
		if c.Name == "auth_token" && c.Value != "" {
			return auth.SaveToken(c.Value)
		}
	}
	return fmt.Errorf("no auth cookie in response")
}

type userResponse struct {
	ID    int64  `json:"id"`
	Login string `json:"login"`
	OrgID string `json:"org_id"`
}

// persistIdentity сохраняет логин и организацию из тела ответа.
func persistIdentity(login string, body []byte) error {
	if err := auth.SaveLastLogin(login); err != nil {
		return err
	}
	var u userResponse
	if err := json.Unmarshal(body, &u); err == nil && u.OrgID != "" {
		return auth.SaveOrgID(u.OrgID)
	}
	return nil
}

// Register регистрирует пользователя и сохраняет токен и логин локально.
func (g *Gateway) Register(ctx context.Context, login, password, orgID string) error {
	resp, body, err := g.postJSON(ctx, "/api/user/register", credentials{Login: login, Password: password, OrgID: orgID}, false)
	if err != nil {
		return err
	}
	if resp.StatusCode == http.StatusConflict {
		return fmt.Errorf("login %q already taken", login)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("server returned status %d: %s", resp.StatusCode, string(body))
	}
	if err := persistAuthFromResponse(resp); err != nil {
		return err
	}
	return persistIdentity(login, body)
}

// Login аутентифицирует пользователя и сохраняет токен и логин локально.
func (g *Gateway) Login(ctx context.Context, login, password string) error {
	resp, body, err := g.postJSON(ctx, "/api/user/login", credentials{Login: login, Password: password}, false)
	if err != nil {
		return err
	}
	if resp.StatusCode == http.StatusUnauthorized {
		return ErrUnauthorized
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("server returned status %d: %s", resp.StatusCode, string(body))
	}
	if err := persistAuthFromResponse(resp); err != nil {
		return err
	}
	return persistIdentity(login, body)
}

// Ping проверяет, что сохранённый токен ещё принимается сервером.
func (g *Gateway) Ping(ctx context.Context) error {
	resp, body, err := g.postJSON(ctx, "/api/user/test", struct{}{}, true)
	if err != nil {
		return err
	}
	if resp.StatusCode == http.StatusUnauthorized {
		return ErrUnauthorized
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("server returned status %d: %s", resp.StatusCode, string(body))
	}
	return nil
}

// FetchChanged возвращает записи вида kind, изменённые после since
// (RFC3339Nano; пустой since — полная выгрузка), и серверное время ответа.
func (g *Gateway) FetchChanged(ctx context.Context, kind, since string) ([]RemoteRecord, string, error) {
	q := url.Values{}
	q.Set("kind", kind)
	if since != "" {
		q.Set("since", since)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.cfg.ServerURL+"/api/records/changed?"+q.Encode(), nil)
	if err != nil {
		return nil, "", err
	}
	resp, body, err := g.do(req, true)
	if err != nil {
		return nil, "", err
	}
	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusUnauthorized:
		return nil, "", ErrUnauthorized
	default:
		return nil, "", fmt.Errorf("server returned status %d: %s", resp.StatusCode, string(body))
	}
	var cr changedResponse
	if err := json.Unmarshal(body, &cr); err != nil {
		return nil, "", err
	}
	return cr.Records, cr.ServerTime, nil
}

// PushChange отправляет одно изменение через /api/records/sync.
// Возвращает (новая версия, nil, nil) при применении либо (0, конфликт, nil),
// если сервер отказал по версии или видимости.
func (g *Gateway) PushChange(ctx context.Context, chg Change) (int64, *RemoteConflict, error) {
	resp, body, err := g.postJSON(ctx, "/api/records/sync", syncRequest{Changes: []Change{chg}}, true)
	if err != nil {
		return 0, nil, err
	}
	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusUnauthorized:
		return 0, nil, ErrUnauthorized
	default:
		return 0, nil, fmt.Errorf("server returned status %d: %s", resp.StatusCode, string(body))
	}
	var sr syncResponse
	if err := json.Unmarshal(body, &sr); err != nil {
		return 0, nil, err
	}
	if len(sr.Applied) > 0 {
		return sr.Applied[0].NewVersion, nil, nil
	}
	if len(sr.Conflicts) > 0 {
		c := sr.Conflicts[0]
		return 0, &c, nil
	}
	return 0, nil, fmt.Errorf("server applied nothing for %s/%s", chg.Kind, chg.ID)
}

// DeleteRecord удаляет запись на сервере. Отсутствие записи — не ошибка.
func (g *Gateway) DeleteRecord(ctx context.Context, kind, id string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete,
		g.cfg.ServerURL+"/api/records/"+url.PathEscape(kind)+"/"+url.PathEscape(id), nil)
	if err != nil {
		return err
	}
	resp, body, err := g.do(req, true)
	if err != nil {
		return err
	}
	switch resp.StatusCode {
	case http.StatusNoContent, http.StatusOK:
		return nil
	case http.StatusUnauthorized:
		return ErrUnauthorized
	default:
		return fmt.Errorf("server returned status %d: %s", resp.StatusCode, string(body))
	}
}

// categoryLimit возвращает клиентский лимит категории в байтах, 0 — категория неизвестна.
func (g *Gateway) categoryLimit(category string) int64 {
	const mb = int64(1024 * 1024)
	switch category {
	case model.CategoryModel3D:
		return int64(g.cfg.Model3DMaxMB) * mb
	case model.CategoryVesselImage:
		return int64(g.cfg.VesselImgMaxMB) * mb
	case model.CategoryScanImage:
		return int64(g.cfg.ScanImageMaxMB) * mb
	case model.CategoryScanData:
		return int64(g.cfg.ScanDataMaxMB) * mb
	}
	return 0
}

// UploadBlob загружает вложение multipart-формой. Размер проверяется до
// обращения к сети: заведомо неподъёмный файл не тратит трафик устройства.
func (g *Gateway) UploadBlob(ctx context.Context, path, category string, data []byte) error {
	limit := g.categoryLimit(category)
	if limit == 0 {
		return fmt.Errorf("unknown blob category %q", category)
	}
	if int64(len(data)) > limit {
		return fmt.Errorf("%w: %d bytes over %s limit %d", ErrPayloadTooLarge, len(data), category, limit)
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if err := mw.WriteField("path", path); err != nil {
		return err
	}
	if err := mw.WriteField("category", category); err != nil {
		return err
	}
	fw, err := mw.CreateFormFile("data", "data.bin")
	if err != nil {
		return err
	}
	if _, err := fw.Write(data); err != nil {
		return err
	}
	if err := mw.Close(); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.cfg.ServerURL+"/api/blobs/upload", &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	resp, body, err := g.do(req, true)
	if err != nil {
		return err
	}
	switch resp.StatusCode {
	case http.StatusOK:
		return nil
	case http.StatusUnauthorized:
		return ErrUnauthorized
	case http.StatusRequestEntityTooLarge:
		return ErrPayloadTooLarge
	default:
		return fmt.Errorf("server returned status %d: %s", resp.StatusCode, string(body))
	}
}

// DownloadBlob скачивает вложение по серверному пути.
func (g *Gateway) DownloadBlob(ctx context.Context, path string) ([]byte, error) {
	q := url.Values{}
	q.Set("path", path)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.cfg.ServerURL+"/api/blobs/download?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	resp, body, err := g.do(req, true)
	if err != nil {
		return nil, err
	}
	switch resp.StatusCode {
	case http.StatusOK:
		return body, nil
	case http.StatusUnauthorized:
		return nil, ErrUnauthorized
	case http.StatusNotFound:
		return nil, ErrNotFound
	default:
		return nil, fmt.Errorf("server returned status %d: %s", resp.StatusCode, string(body))
	}
}
