package handlers

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/bigkaa/drs-server/internal/auth"
	"github.com/bigkaa/drs-server/internal/domain/model"
	"github.com/bigkaa/drs-server/internal/filestore"
	"github.com/bigkaa/drs-server/internal/repository"
	"github.com/bigkaa/drs-server/internal/service"
	"github.com/bigkaa/drs-server/internal/signer"
)

// allowAll — тестовый validator, пропускающий любой непустой набор passport.
type allowAll struct{}

func (allowAll) Validate(_ context.Context, passports []string) error {
	if len(passports) == 0 {
		return auth.ErrDenied
	}
	return nil
}

// testObjects — seed-объекты для тестов handlers.
func testObjects() []model.DrsObject {
	return []model.DrsObject{
		{
			ID:        "HPA.csv",
			Name:      "HPA.csv",
			Size:      16,
			MimeType:  "text/csv",
			Checksums: []model.Checksum{{Type: model.ChecksumTypeMD5, Checksum: "aa"}},
			AccessMethods: []model.AccessMethod{
				{Type: model.AccessMethodHTTPS, AccessURL: &model.AccessURL{URL: "http://files.test/HPA.csv"}},
				{Type: model.AccessMethodHTTPS, AccessID: "signed-http"},
			},
		},
		{
			ID:        "phenotypes.csv",
			Name:      "phenotypes.csv",
			Size:      10,
			MimeType:  "text/csv",
			Checksums: []model.Checksum{{Type: model.ChecksumTypeMD5, Checksum: "bb"}},
			AccessMethods: []model.AccessMethod{
				{Type: model.AccessMethodHTTPS, AccessID: "signed-http"},
			},
		},
		{
			ID:        "examples",
			Name:      "examples",
			Checksums: []model.Checksum{{Type: model.ChecksumTypeMD5, Checksum: "cc"}},
			Contents: []model.ContentsObject{
				{Name: "inner", ID: "inner"},
				{Name: "HPA.csv", ID: "HPA.csv"},
			},
		},
		{
			ID:        "inner",
			Name:      "inner",
			Checksums: []model.Checksum{{Type: model.ChecksumTypeMD5, Checksum: "dd"}},
			Contents: []model.ContentsObject{
				{Name: "phenotypes.csv", ID: "phenotypes.csv"},
				{Name: "HPA.csv", ID: "HPA.csv"},
			},
		},
		{
			ID:        "cycle-a",
			Name:      "cycle-a",
			Checksums: []model.Checksum{{Type: model.ChecksumTypeMD5, Checksum: "ee"}},
			Contents:  []model.ContentsObject{{Name: "cycle-b", ID: "cycle-b"}},
		},
		{
			ID:        "cycle-b",
			Name:      "cycle-b",
			Checksums: []model.Checksum{{Type: model.ChecksumTypeMD5, Checksum: "ff"}},
			Contents:  []model.ContentsObject{{Name: "cycle-a", ID: "cycle-a"}},
		},
	}
}

// testEnv — собранный тестовый стенд handlers.
type testEnv struct {
	router *chi.Mux
	signer *signer.LocalSigner
}

// newTestEnv собирает полный API handler поверх in-memory store,
// локального signer и файлового хранилища во временном каталоге.
func newTestEnv(t *testing.T, validator auth.Validator) *testEnv {
	t.Helper()

	store, err := repository.NewInMemStore(testObjects(), "drs://drs.test")
	if err != nil {
		t.Fatalf("создание in-memory store: %v", err)
	}

	dir := t.TempDir()
	for name, content := range map[string]string{
		"HPA.csv":        "gene,expression\n",
		"phenotypes.csv": "id,trait\n",
	} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o600); err != nil {
			t.Fatal(err)
		}
	}
	files, err := filestore.New(dir)
	if err != nil {
		t.Fatalf("создание filestore: %v", err)
	}

	local, err := signer.New("http://localhost:8080", "signed-http", []byte("test-secret"), time.Minute)
	if err != nil {
		t.Fatalf("создание signer: %v", err)
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	cache := service.NewCacheService(100, time.Minute)
	resolver := service.NewResolverService(store, cache, logger)
	access := service.NewAccessService(store, cache, local, logger)

	info := &model.ServiceInfo{
		ID:   "org.test.drs",
		Name: "Test DRS",
		Type: model.ServiceType{Group: "org.ga4gh", Artifact: "drs", Version: "1.2.0"},
	}

	h := NewAPIHandler(resolver, access, validator, info,
		files, local, []byte(`{"openapi":"3.0.3"}`),
		NewHealthHandler(store), logger)

	router := chi.NewRouter()
	h.RegisterRoutes(router)

	return &testEnv{router: router, signer: local}
}

// do выполняет запрос к тестовому стенду.
func (e *testEnv) do(t *testing.T, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, target, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

// decodeObject разбирает тело ответа в DrsObject.
func decodeObject(t *testing.T, rec *httptest.ResponseRecorder) *model.DrsObject {
	t.Helper()
	var obj model.DrsObject
	if err := json.Unmarshal(rec.Body.Bytes(), &obj); err != nil {
		t.Fatalf("разбор ответа: %v", err)
	}
	return &obj
}

// assertErrorBody проверяет формат ошибки DRS {"msg","status_code"}.
func assertErrorBody(t *testing.T, rec *httptest.ResponseRecorder, wantStatus int) {
	t.Helper()
	var body struct {
		Msg        string `json:"msg"`
		StatusCode int    `json:"status_code"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("разбор тела ошибки: %v", err)
	}
	if body.StatusCode != wantStatus {
		t.Errorf("status_code в теле = %d, ожидался %d", body.StatusCode, wantStatus)
	}
	if body.Msg == "" {
		t.Error("ожидалось непустое поле msg")
	}
}

// TestGetServiceInfo проверяет GET /service-info.
func TestGetServiceInfo(t *testing.T) {
	env := newTestEnv(t, auth.DenyAll{})

	rec := env.do(t, http.MethodGet, "/service-info", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("статус = %d, ожидался 200", rec.Code)
	}

	var info model.ServiceInfo
	if err := json.Unmarshal(rec.Body.Bytes(), &info); err != nil {
		t.Fatal(err)
	}
	if info.Type.Group != "org.ga4gh" || info.Type.Artifact != "drs" {
		t.Errorf("type = %+v, ожидался org.ga4gh/drs", info.Type)
	}
}

// TestGetObject_Blob проверяет получение blob.
func TestGetObject_Blob(t *testing.T) {
	env := newTestEnv(t, auth.DenyAll{})

	rec := env.do(t, http.MethodGet, "/objects/HPA.csv", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("статус = %d, ожидался 200", rec.Code)
	}

	obj := decodeObject(t, rec)
	if obj.ID != "HPA.csv" {
		t.Errorf("id = %q, ожидался HPA.csv", obj.ID)
	}
	if obj.SelfURI != "drs://drs.test/HPA.csv" {
		t.Errorf("self_uri = %q", obj.SelfURI)
	}
	if obj.Contents != nil {
		t.Error("у blob не должно быть contents")
	}
	if len(obj.AccessMethods) < 1 {
		t.Error("ожидался минимум один access method")
	}
}

// TestGetObject_NotFound проверяет 404 и формат ошибки DRS.
func TestGetObject_NotFound(t *testing.T) {
	env := newTestEnv(t, auth.DenyAll{})

	rec := env.do(t, http.MethodGet, "/objects/missing", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("статус = %d, ожидался 404", rec.Code)
	}
	assertErrorBody(t, rec, http.StatusNotFound)
}

// TestGetObject_BadExpand проверяет 400 для некорректного expand.
func TestGetObject_BadExpand(t *testing.T) {
	env := newTestEnv(t, auth.DenyAll{})

	rec := env.do(t, http.MethodGet, "/objects/examples?expand=banana", nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("статус = %d, ожидался 400", rec.Code)
	}
	assertErrorBody(t, rec, http.StatusBadRequest)
}

// TestGetObject_BundleNoExpand проверяет прямые contents bundle.
func TestGetObject_BundleNoExpand(t *testing.T) {
	env := newTestEnv(t, auth.DenyAll{})

	rec := env.do(t, http.MethodGet, "/objects/examples", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("статус = %d, ожидался 200", rec.Code)
	}

	obj := decodeObject(t, rec)
	if len(obj.Contents) != 2 {
		t.Fatalf("contents = %d записей, ожидалось 2", len(obj.Contents))
	}
	if obj.Contents[0].ID != "inner" || obj.Contents[1].ID != "HPA.csv" {
		t.Errorf("contents = %+v", obj.Contents)
	}
}

// TestGetObject_BundleExpand проверяет рекурсивное раскрытие bundle:
// каждый достижимый blob ровно один раз, порядок обхода в глубину.
func TestGetObject_BundleExpand(t *testing.T) {
	env := newTestEnv(t, auth.DenyAll{})

	rec := env.do(t, http.MethodGet, "/objects/examples?expand=true", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("статус = %d, ожидался 200", rec.Code)
	}

	obj := decodeObject(t, rec)
	want := []string{"phenotypes.csv", "HPA.csv"}
	if len(obj.Contents) != len(want) {
		t.Fatalf("contents = %+v, ожидалось %v", obj.Contents, want)
	}
	for i, id := range want {
		if obj.Contents[i].ID != id {
			t.Errorf("contents[%d].id = %q, ожидался %q", i, obj.Contents[i].ID, id)
		}
	}
}

// TestGetObject_Cycle проверяет 500 для цикла в графе bundle.
func TestGetObject_Cycle(t *testing.T) {
	env := newTestEnv(t, auth.DenyAll{})

	rec := env.do(t, http.MethodGet, "/objects/cycle-a?expand=true", nil)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("статус = %d, ожидался 500", rec.Code)
	}
	assertErrorBody(t, rec, http.StatusInternalServerError)
}

// TestPostObject_Unauthorized проверяет 401 без валидного passport.
func TestPostObject_Unauthorized(t *testing.T) {
	env := newTestEnv(t, auth.DenyAll{})

	rec := env.do(t, http.MethodPost, "/objects/HPA.csv",
		map[string]any{"passports": []string{"some-jwt"}})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("статус = %d, ожидался 401", rec.Code)
	}
	assertErrorBody(t, rec, http.StatusUnauthorized)
}

// TestPostObject_Authorized проверяет получение объекта с passport.
func TestPostObject_Authorized(t *testing.T) {
	env := newTestEnv(t, allowAll{})

	rec := env.do(t, http.MethodPost, "/objects/examples",
		map[string]any{"passports": []string{"some-jwt"}, "expand": true})
	if rec.Code != http.StatusOK {
		t.Fatalf("статус = %d, ожидался 200", rec.Code)
	}

	obj := decodeObject(t, rec)
	// Expand из тела запроса действует
	if len(obj.Contents) != 2 || obj.Contents[0].ID != "phenotypes.csv" {
		t.Errorf("contents = %+v, ожидалось раскрытие", obj.Contents)
	}
}

// TestPostObject_UnauthorizedBeforeLookup проверяет, что 401 возвращается
// и для несуществующего объекта — авторизация идёт до обращения к store.
func TestPostObject_UnauthorizedBeforeLookup(t *testing.T) {
	env := newTestEnv(t, auth.DenyAll{})

	rec := env.do(t, http.MethodPost, "/objects/missing",
		map[string]any{"passports": []string{}})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("статус = %d, ожидался 401", rec.Code)
	}
}

// TestGetAccessURL проверяет обмен access_id на подписанный URL.
func TestGetAccessURL(t *testing.T) {
	env := newTestEnv(t, auth.DenyAll{})

	rec := env.do(t, http.MethodGet, "/objects/HPA.csv/access/signed-http", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("статус = %d, ожидался 200", rec.Code)
	}

	var accessURL model.AccessURL
	if err := json.Unmarshal(rec.Body.Bytes(), &accessURL); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(accessURL.URL, "/files/HPA.csv?token=") {
		t.Errorf("url = %q, ожидался подписанный /files URL", accessURL.URL)
	}
	if accessURL.Headers["Authorization"] == "" {
		t.Error("ожидался заголовок Authorization")
	}
}

// TestGetAccessURL_NotFound проверяет 404 для неизвестного access_id
// и для несуществующего объекта.
func TestGetAccessURL_NotFound(t *testing.T) {
	env := newTestEnv(t, auth.DenyAll{})

	for _, target := range []string{
		"/objects/HPA.csv/access/s3-direct",
		"/objects/missing/access/signed-http",
	} {
		rec := env.do(t, http.MethodGet, target, nil)
		if rec.Code != http.StatusNotFound {
			t.Errorf("GET %s: статус = %d, ожидался 404", target, rec.Code)
		}
	}
}

// TestPostAccessURL проверяет passport-вариант access endpoint.
func TestPostAccessURL(t *testing.T) {
	env := newTestEnv(t, allowAll{})

	rec := env.do(t, http.MethodPost, "/objects/HPA.csv/access/signed-http",
		map[string]any{"passports": []string{"some-jwt"}})
	if rec.Code != http.StatusOK {
		t.Fatalf("статус = %d, ожидался 200", rec.Code)
	}

	// Без passport — 401
	rec = env.do(t, http.MethodPost, "/objects/HPA.csv/access/signed-http",
		map[string]any{"passports": []string{}})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("статус = %d, ожидался 401", rec.Code)
	}
}

// TestDownloadFile проверяет полный цикл: access endpoint → скачивание по токену.
func TestDownloadFile(t *testing.T) {
	env := newTestEnv(t, auth.DenyAll{})

	accessURL, err := env.signer.MaterializeURL(context.Background(), "HPA.csv", "signed-http")
	if err != nil {
		t.Fatal(err)
	}
	target := strings.TrimPrefix(accessURL.URL, "http://localhost:8080")

	rec := env.do(t, http.MethodGet, target, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("статус = %d, ожидался 200", rec.Code)
	}
	if rec.Body.String() != "gene,expression\n" {
		t.Errorf("тело = %q", rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); ct != "text/csv" {
		t.Errorf("Content-Type = %q, ожидался text/csv", ct)
	}
}

// TestDownloadFile_Range проверяет поддержку Range-запросов.
func TestDownloadFile_Range(t *testing.T) {
	env := newTestEnv(t, auth.DenyAll{})

	accessURL, err := env.signer.MaterializeURL(context.Background(), "HPA.csv", "signed-http")
	if err != nil {
		t.Fatal(err)
	}
	target := strings.TrimPrefix(accessURL.URL, "http://localhost:8080")

	req := httptest.NewRequest(http.MethodGet, target, nil)
	req.Header.Set("Range", "bytes=0-3")
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusPartialContent {
		t.Fatalf("статус = %d, ожидался 206", rec.Code)
	}
	if rec.Body.String() != "gene" {
		t.Errorf("тело = %q, ожидался %q", rec.Body.String(), "gene")
	}
}

// TestDownloadFile_TokenChecks проверяет отказы по токену.
func TestDownloadFile_TokenChecks(t *testing.T) {
	env := newTestEnv(t, auth.DenyAll{})

	// Без токена — 401
	rec := env.do(t, http.MethodGet, "/files/HPA.csv", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("без токена: статус = %d, ожидался 401", rec.Code)
	}

	// Мусорный токен — 401
	rec = env.do(t, http.MethodGet, "/files/HPA.csv?token=garbage", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("мусорный токен: статус = %d, ожидался 401", rec.Code)
	}

	// Токен чужого объекта — 403
	accessURL, err := env.signer.MaterializeURL(context.Background(), "phenotypes.csv", "signed-http")
	if err != nil {
		t.Fatal(err)
	}
	token := strings.TrimPrefix(accessURL.Headers["Authorization"], "Bearer ")
	rec = env.do(t, http.MethodGet, "/files/HPA.csv?token="+token, nil)
	if rec.Code != http.StatusForbidden {
		t.Errorf("чужой токен: статус = %d, ожидался 403", rec.Code)
	}
}

// TestDownloadFile_BundleZip проверяет сборку zip-архива bundle на лету.
func TestDownloadFile_BundleZip(t *testing.T) {
	env := newTestEnv(t, auth.DenyAll{})

	accessURL, err := env.signer.MaterializeURL(context.Background(), "examples", "signed-http")
	if err != nil {
		t.Fatal(err)
	}
	target := strings.TrimPrefix(accessURL.URL, "http://localhost:8080")

	rec := env.do(t, http.MethodGet, target, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("статус = %d, ожидался 200", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/zip" {
		t.Errorf("Content-Type = %q, ожидался application/zip", ct)
	}

	zr, err := zip.NewReader(bytes.NewReader(rec.Body.Bytes()), int64(rec.Body.Len()))
	if err != nil {
		t.Fatalf("разбор zip: %v", err)
	}
	// Раскрытый bundle examples содержит phenotypes.csv и HPA.csv
	names := map[string]bool{}
	for _, f := range zr.File {
		names[f.Name] = true
	}
	if !names["phenotypes.csv"] || !names["HPA.csv"] {
		t.Errorf("файлы архива = %v, ожидались phenotypes.csv и HPA.csv", names)
	}
}

// TestGetOpenAPI проверяет /openapi.json.
func TestGetOpenAPI(t *testing.T) {
	env := newTestEnv(t, auth.DenyAll{})

	rec := env.do(t, http.MethodGet, "/openapi.json", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("статус = %d, ожидался 200", rec.Code)
	}
	var doc map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &doc); err != nil {
		t.Fatalf("тело не является JSON: %v", err)
	}
}

// TestHealthEndpoints проверяет liveness и readiness probes.
func TestHealthEndpoints(t *testing.T) {
	env := newTestEnv(t, auth.DenyAll{})

	rec := env.do(t, http.MethodGet, "/health/live", nil)
	if rec.Code != http.StatusOK {
		t.Errorf("live: статус = %d, ожидался 200", rec.Code)
	}

	rec = env.do(t, http.MethodGet, "/health/ready", nil)
	if rec.Code != http.StatusOK {
		t.Errorf("ready: статус = %d, ожидался 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"object_store"`) {
		t.Errorf("ready body = %q, ожидался check object_store", rec.Body.String())
	}
}
