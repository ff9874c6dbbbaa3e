package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"metroads/internal/objstore"
	"metroads/internal/repository"
	"metroads/internal/service"
	"metroads/internal/store"
)

// newTestAPI assembles the full stack on in-memory backends and returns the
// router plus a valid bearer token.
func newTestAPI(t *testing.T) (*Router, string) {
	t.Helper()
	logger := zap.NewNop()

	catalog := repository.NewMemoryCatalogRepository()
	archive := repository.NewMemoryArchiveRepository()
	ads := repository.NewMemoryAdvertisementsRepository(catalog, archive)
	users := repository.NewMemoryUsersRepository()
	kv := store.NewMemoryKV()
	files := objstore.NewMemoryStore()

	authSvc := service.NewAuthService(users, kv, time.Hour, logger)
	require.NoError(t, authSvc.SeedAdmin(context.Background(), "admin", "secret"))

	catalogSvc := service.NewCatalogService(catalog, ads, files, logger)
	adSvc := service.NewAdvertisementService(ads, catalog, files, logger)
	archiveSvc := service.NewArchiveService(archive, logger)

	router := NewRouter(logger)
	router.RegisterRoutes(
		authSvc,
		NewAuthHandler(authSvc, logger),
		NewCatalogHandler(catalogSvc, logger),
		NewAdvertisementHandler(adSvc, logger),
		NewArchiveHandler(archiveSvc, logger),
	)

	// Login to get a token for the protected routes.
	rec := httptest.NewRecorder()
	body := `{"account":"admin","password":"secret"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", bytes.NewBufferString(body))
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var loginResp Result[service.LoginResponse]
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &loginResp))
	require.NotEmpty(t, loginResp.Result.Token)

	return router, loginResp.Result.Token
}

func doJSON(t *testing.T, router *Router, token, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func resultOf(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var envelope Result[map[string]any]
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	return envelope.Result
}

// seedCatalog creates line -> station -> positions 1..n over the API.
func seedCatalog(t *testing.T, router *Router, token string, positions int) (lineID, stationID string, positionIDs []string) {
	t.Helper()

	rec := doJSON(t, router, token, http.MethodPost, "/api/v1/lines", map[string]any{"name": "Line 1"})
	require.Equal(t, http.StatusCreated, rec.Code)
	lineID = resultOf(t, rec)["line_id"].(string)

	rec = doJSON(t, router, token, http.MethodPost, "/api/v1/stations", map[string]any{"name": "Central", "line": lineID})
	require.Equal(t, http.StatusCreated, rec.Code)
	stationID = resultOf(t, rec)["station_id"].(string)

	for i := 1; i <= positions; i++ {
		rec = doJSON(t, router, token, http.MethodPost, "/api/v1/positions", map[string]any{"station": stationID, "number": i})
		require.Equal(t, http.StatusCreated, rec.Code)
		positionIDs = append(positionIDs, resultOf(t, rec)["position_id"].(string))
	}
	return lineID, stationID, positionIDs
}

func adPayload(positionID, contract string) map[string]any {
	return map[string]any{
		"position":        positionID,
		"ad_name":         "Escalator panel",
		"device_type":     "lightbox",
		"tenant_name":     "Acme Media",
		"contract_number": contract,
		"contract_start":  "2025-01-01",
		"contract_end":    "2025-12-31",
		"unit":            "piece",
		"device_price":    1200,
		"occupied_area":   3.5,
		"contract_amount": 14400,
		"contact_number":  "+998901234567",
	}
}

func TestAPI_RequiresAuth(t *testing.T) {
	router, _ := newTestAPI(t)

	rec := doJSON(t, router, "", http.MethodGet, "/api/v1/lines", nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = doJSON(t, router, "bogus-token", http.MethodGet, "/api/v1/lines", nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAPI_LoginRejectsBadPassword(t *testing.T) {
	router, _ := newTestAPI(t)

	rec := doJSON(t, router, "", http.MethodPost, "/api/v1/auth/login",
		map[string]any{"account": "admin", "password": "wrong"})
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAPI_Me(t *testing.T) {
	router, token := newTestAPI(t)

	rec := doJSON(t, router, token, http.MethodGet, "/api/v1/auth/me", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "admin", resultOf(t, rec)["account"])
}

func TestAPI_CatalogCRUD(t *testing.T) {
	router, token := newTestAPI(t)
	lineID, stationID, positionIDs := seedCatalog(t, router, token, 2)

	rec := doJSON(t, router, token, http.MethodGet, "/api/v1/stations?line="+lineID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	page := resultOf(t, rec)
	require.Equal(t, float64(1), page["count"])

	rec = doJSON(t, router, token, http.MethodGet, "/api/v1/positions?station="+stationID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, float64(2), resultOf(t, rec)["count"])

	// Duplicate position number at the same station conflicts.
	rec = doJSON(t, router, token, http.MethodPost, "/api/v1/positions", map[string]any{"station": stationID, "number": 1})
	require.Equal(t, http.StatusConflict, rec.Code)

	rec = doJSON(t, router, token, http.MethodDelete, "/api/v1/positions/"+positionIDs[1], nil)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = doJSON(t, router, token, http.MethodGet, "/api/v1/positions/"+positionIDs[1], nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAPI_AdvertisementLifecycle(t *testing.T) {
	router, token := newTestAPI(t)
	_, _, positionIDs := seedCatalog(t, router, token, 2)

	rec := doJSON(t, router, token, http.MethodPost, "/api/v1/advertisements", adPayload(positionIDs[0], "C-001"))
	require.Equal(t, http.StatusCreated, rec.Code)
	created := resultOf(t, rec)
	adID := created["ad_id"].(string)
	require.Equal(t, "Central", *jsonStr(created, "station_name"))
	require.Equal(t, "Line 1", *jsonStr(created, "line_name"))

	// Occupied position rejected.
	rec = doJSON(t, router, token, http.MethodPost, "/api/v1/advertisements", adPayload(positionIDs[0], "C-002"))
	require.Equal(t, http.StatusBadRequest, rec.Code)

	// Position listing reports the occupant.
	rec = doJSON(t, router, token, http.MethodGet, "/api/v1/positions/"+positionIDs[0], nil)
	require.Equal(t, http.StatusOK, rec.Code)
	occupied := resultOf(t, rec)
	require.Equal(t, true, occupied["occupied"])
	occupant, ok := occupied["advertisement"].(map[string]any)
	require.True(t, ok)
	require.Equal(t, adID, occupant["ad_id"])

	rec = doJSON(t, router, token, http.MethodGet, "/api/v1/positions/"+positionIDs[1], nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, false, resultOf(t, rec)["occupied"])

	// Transfer to the second position; the source id disappears.
	rec = doJSON(t, router, token, http.MethodPost, "/api/v1/advertisements/"+adID+"/export",
		map[string]any{"position": positionIDs[1]})
	require.Equal(t, http.StatusOK, rec.Code)
	clone := resultOf(t, rec)
	require.NotEqual(t, adID, clone["ad_id"])
	require.Equal(t, positionIDs[1], *jsonStr(clone, "position"))

	rec = doJSON(t, router, token, http.MethodGet, "/api/v1/advertisements/"+adID, nil)
	require.Equal(t, http.StatusNotFound, rec.Code)

	// The transfer left one archive row, pointing at the target position.
	rec = doJSON(t, router, token, http.MethodGet, "/api/v1/advertisements-archive", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	archivePage := resultOf(t, rec)
	require.Equal(t, float64(1), archivePage["count"])
}

func TestAPI_ExpiringReport(t *testing.T) {
	router, token := newTestAPI(t)
	_, _, positionIDs := seedCatalog(t, router, token, 3)

	expired := adPayload(positionIDs[0], "C-OLD")
	expired["contract_end"] = "2025-05-31"
	soon := adPayload(positionIDs[1], "C-SOON")
	soon["contract_end"] = "2025-06-05"
	active := adPayload(positionIDs[2], "C-FAR")
	active["contract_end"] = "2025-07-01"

	for _, p := range []map[string]any{expired, soon, active} {
		rec := doJSON(t, router, token, http.MethodPost, "/api/v1/advertisements", p)
		require.Equal(t, http.StatusCreated, rec.Code)
	}

	rec := doJSON(t, router, token, http.MethodGet, "/api/v1/advertisements/expiring?today=2025-06-01", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	report := resultOf(t, rec)
	counts, ok := report["counts"].(map[string]any)
	require.True(t, ok)
	require.Equal(t, float64(1), counts["expired"])
	require.Equal(t, float64(1), counts["expiring_soon"])
	require.Equal(t, float64(3), counts["total"])
	results, ok := report["results"].(map[string]any)
	require.True(t, ok)
	require.Len(t, results["expired"], 1)
	require.Len(t, results["expiring_soon"], 1)

	// Scoped to a single position the report only counts that placement.
	rec = doJSON(t, router, token, http.MethodGet,
		"/api/v1/advertisements/expiring?today=2025-06-01&position="+positionIDs[1], nil)
	require.Equal(t, http.StatusOK, rec.Code)
	scoped := resultOf(t, rec)
	counts, ok = scoped["counts"].(map[string]any)
	require.True(t, ok)
	require.Equal(t, float64(0), counts["expired"])
	require.Equal(t, float64(1), counts["expiring_soon"])
	require.Equal(t, float64(1), counts["total"])
}

func TestAPI_Uploads(t *testing.T) {
	router, token := newTestAPI(t)
	_, stationID, positionIDs := seedCatalog(t, router, token, 1)

	rec := doJSON(t, router, token, http.MethodPost, "/api/v1/advertisements", adPayload(positionIDs[0], "C-001"))
	require.Equal(t, http.StatusCreated, rec.Code)
	adID := resultOf(t, rec)["ad_id"].(string)

	// Photo accepts images only.
	rec = doUpload(t, router, token, "/api/v1/advertisements/"+adID+"/photo", "photo.png", []byte("img"))
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, jsonStr(resultOf(t, rec), "photo"))

	rec = doUpload(t, router, token, "/api/v1/advertisements/"+adID+"/photo", "malware.exe", []byte("x"))
	require.Equal(t, http.StatusBadRequest, rec.Code)

	// Contract accepts documents.
	rec = doUpload(t, router, token, "/api/v1/advertisements/"+adID+"/contract-file", "contract.pdf", []byte("pdf"))
	require.Equal(t, http.StatusOK, rec.Code)

	// Station schema image.
	rec = doUpload(t, router, token, "/api/v1/stations/"+stationID+"/image", "schema.jpg", []byte("img"))
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, jsonStr(resultOf(t, rec), "schema_image"))
}

func TestAPI_ExcelExports(t *testing.T) {
	router, token := newTestAPI(t)
	_, _, positionIDs := seedCatalog(t, router, token, 1)

	rec := doJSON(t, router, token, http.MethodPost, "/api/v1/advertisements", adPayload(positionIDs[0], "C-001"))
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doJSON(t, router, token, http.MethodGet, "/api/v1/advertisements/export.xlsx", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Header().Get("Content-Type"), "spreadsheetml")
	require.NotEmpty(t, rec.Body.Bytes())

	rec = doJSON(t, router, token, http.MethodGet, "/api/v1/advertisements-archive/export.xlsx", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Header().Get("Content-Type"), "spreadsheetml")
}

func doUpload(t *testing.T, router *Router, token, path, filename string, content []byte) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = fw.Write(content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPut, path, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func jsonStr(m map[string]any, key string) *string {
	v, ok := m[key]
	if !ok || v == nil {
		return nil
	}
	s, ok := v.(string)
	if !ok {
		s = fmt.Sprint(v)
	}
	return &s
}
