package http

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"parking-service/internal/config"
	"parking-service/internal/service"
	"parking-service/internal/storage"
)

const testSecret = "test-secret"

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := &config.Config{
		Auth: config.AuthConfig{JWTSecret: testSecret},
		Parking: config.ParkingConfig{
			TotalSpots: 100,
			Pricing:    config.PricingConfig{FirstHour: 5000, AdditionalHour: 3000, Overnight: 20000},
		},
		LPR: config.LPRConfig{HighThreshold: 95, MediumThreshold: 80, LowThreshold: 60},
	}

	store := storage.NewTestGateway()
	log := zerolog.Nop()
	vehicles := service.NewVehicleService(store, log)
	sessions := service.NewSessionService(vehicles, store, cfg.Parking, log)
	exceptions := service.NewExceptionService(sessions, vehicles, store, log)
	lpr := service.NewLPRService(sessions, exceptions, cfg.LPR, log)
	stats := service.NewStatsService(sessions, exceptions, vehicles, store, log)
	backups := service.NewBackupService(vehicles, sessions, exceptions, store, log)

	handler := NewHandler(vehicles, sessions, exceptions, lpr, stats, backups, cfg, log)
	r := gin.New()
	handler.Register(r, AuthMiddleware(cfg.Auth.JWTSecret))
	return r
}

func operatorToken(t *testing.T) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "operator_1",
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte(testSecret))
	require.NoError(t, err)
	return signed
}

func doJSON(r *gin.Engine, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	r := newTestRouter(t)

	w := doJSON(r, http.MethodGet, "/api/v1/sessions/current", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = doJSON(r, http.MethodGet, "/api/v1/sessions/current", "not-a-jwt", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = doJSON(r, http.MethodGet, "/api/v1/sessions/current", operatorToken(t), nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestIngestEntryEvent(t *testing.T) {
	r := newTestRouter(t)

	// Camera endpoints take no token.
	w := doJSON(r, http.MethodPost, "/api/v1/lpr/entry-events", "", map[string]interface{}{
		"license_plate": "29A-12345",
		"gate":          "A",
		"confidence":    97,
	})
	require.Equal(t, http.StatusCreated, w.Code)

	var resp struct {
		Data struct {
			Session *struct {
				ID           string `json:"id"`
				LicensePlate string `json:"license_plate"`
			} `json:"session"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotNil(t, resp.Data.Session)
	assert.Equal(t, "29A-12345", resp.Data.Session.LicensePlate)

	w = doJSON(r, http.MethodPost, "/api/v1/lpr/entry-events", "", map[string]interface{}{
		"license_plate": "29A-99999",
		"gate":          "Z",
		"confidence":    97,
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestFailedReadQueuesException(t *testing.T) {
	r := newTestRouter(t)
	token := operatorToken(t)

	w := doJSON(r, http.MethodPost, "/api/v1/lpr/entry-events", "", map[string]interface{}{
		"license_plate": "29A-1234?",
		"gate":          "B",
		"confidence":    40,
	})
	require.Equal(t, http.StatusCreated, w.Code)

	w = doJSON(r, http.MethodGet, "/api/v1/exceptions/pending", token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Data []struct {
			ID            string `json:"id"`
			Priority      string `json:"priority"`
			QueuePosition int    `json:"queue_position"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Data, 1)
	assert.Equal(t, "medium", resp.Data[0].Priority)
	assert.Equal(t, 1, resp.Data[0].QueuePosition)

	// Resolve the exception as an allowed entry.
	w = doJSON(r, http.MethodPost, "/api/v1/exceptions/"+resp.Data[0].ID+"/resolve", token, map[string]interface{}{
		"resolved_plate": "29A-12345",
		"method":         "manual_input",
		"action":         "allow",
	})
	require.Equal(t, http.StatusOK, w.Code)

	var resolved struct {
		Data struct {
			Session *struct {
				ID string `json:"id"`
			} `json:"session"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resolved))
	assert.NotNil(t, resolved.Data.Session)
}

func TestVehicleLifecycle(t *testing.T) {
	r := newTestRouter(t)
	token := operatorToken(t)

	body := map[string]interface{}{
		"license_plate": "30B-54321",
		"type":          "registered_staff",
		"owner_name":    "Tran Thi Binh",
		"phone_number":  "0987654321",
		"staff_id":      "GV-0042",
		"expiry_date":   time.Now().AddDate(1, 0, 0).Format(time.RFC3339),
	}
	w := doJSON(r, http.MethodPost, "/api/v1/vehicles", token, body)
	require.Equal(t, http.StatusCreated, w.Code)

	var created struct {
		Data struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	assert.Equal(t, "VH-STF-0001", created.Data.ID)

	// Duplicate plate conflicts.
	w = doJSON(r, http.MethodPost, "/api/v1/vehicles", token, body)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = doJSON(r, http.MethodGet, "/api/v1/vehicles/"+created.Data.ID, token, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = doJSON(r, http.MethodGet, "/api/v1/vehicles/VH-STF-9999", token, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doJSON(r, http.MethodPost, "/api/v1/vehicles/"+created.Data.ID+"/renew", token, map[string]interface{}{
		"months": 3,
	})
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestPaymentConflict(t *testing.T) {
	r := newTestRouter(t)
	token := operatorToken(t)

	w := doJSON(r, http.MethodPost, "/api/v1/lpr/entry-events", "", map[string]interface{}{
		"license_plate": "51F-88888",
		"gate":          "A",
		"confidence":    97,
	})
	require.Equal(t, http.StatusCreated, w.Code)
	var resp struct {
		Data struct {
			Session struct {
				ID string `json:"id"`
			} `json:"session"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	id := resp.Data.Session.ID

	w = doJSON(r, http.MethodPost, "/api/v1/sessions/"+id+"/exit", token, map[string]interface{}{
		"gate": "B", "confidence": "high",
	})
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(r, http.MethodPost, "/api/v1/sessions/"+id+"/payment", token, map[string]interface{}{
		"method": "cash",
	})
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(r, http.MethodPost, "/api/v1/sessions/"+id+"/payment", token, map[string]interface{}{
		"method": "cash",
	})
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestStatsAndExports(t *testing.T) {
	r := newTestRouter(t)
	token := operatorToken(t)

	w := doJSON(r, http.MethodGet, "/api/v1/stats/overview", token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var overview struct {
		Data struct {
			TotalCapacity int `json:"total_capacity"`
			Available     int `json:"available"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &overview))
	assert.Equal(t, 100, overview.Data.TotalCapacity)
	assert.Equal(t, 100, overview.Data.Available)

	w = doJSON(r, http.MethodGet, "/api/v1/exports/sessions", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Disposition"), ".csv")
}
