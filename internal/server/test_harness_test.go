package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"healthmate/backend/internal/assistant"
	"healthmate/backend/internal/config"
	"healthmate/backend/internal/store"
	"healthmate/backend/internal/users"
)

var baseTestConfig config.Config

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	baseTestConfig = newTestConfig()
	os.Exit(m.Run())
}

func newTestConfig() config.Config {
	return config.Config{
		AppEnv:              "test",
		AppName:             "HealthMate API Test",
		APIPrefix:           "/api",
		AppPort:             "0",
		StoreBackend:        config.StoreBackendFile,
		JWTSecret:           "test-secret-1234567890",
		JWTAlgorithm:        "HS256",
		JWTTTLHours:         1,
		AIProvider:          config.AIProviderMock,
		ChatHistoryLimit:    50,
		PointsPerSubmission: 10,
		CORSAllowOrigins: []string{
			"http://localhost:5000",
			"http://localhost:3000",
		},
	}
}

type testEnv struct {
	router http.Handler
	docs   store.DocumentStore
	cfg    config.Config
}

func newTestEnv(t *testing.T) testEnv {
	t.Helper()
	return newTestEnvWith(t, baseTestConfig, assistant.MockGenerator{})
}

func newTestEnvWith(t *testing.T, cfg config.Config, generator assistant.Generator) testEnv {
	t.Helper()
	docs, err := store.NewFileStore(t.TempDir(), nil)
	if err != nil {
		t.Fatalf("new file store: %v", err)
	}
	return newTestEnvWithStore(t, cfg, docs, generator)
}

func newTestEnvWithStore(t *testing.T, cfg config.Config, docs store.DocumentStore, generator assistant.Generator) testEnv {
	t.Helper()
	return testEnv{
		router: New(cfg, docs, generator, nil).Router(),
		docs:   docs,
		cfg:    cfg,
	}
}

// seedUser stores a user directly and returns its id and a signed token.
func seedUser(t *testing.T, env testEnv) (string, string) {
	t.Helper()
	userID := testID()
	err := env.docs.Put(context.Background(), store.CollectionUsers, userID, users.User{
		ID:        userID,
		Name:      "user-" + userID[:8],
		Email:     userID[:8] + "@example.com",
		Phone:     "555-0100",
		Gender:    "other",
		Age:       40,
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return userID, signTokenWithConfig(t, env.cfg, userID, nil)
}

func signToken(t *testing.T, sub string, overrides map[string]any) string {
	t.Helper()
	return signTokenWithConfig(t, baseTestConfig, sub, overrides)
}

func signTokenWithConfig(t *testing.T, cfg config.Config, sub string, overrides map[string]any) string {
	t.Helper()

	claims := jwt.MapClaims{
		"exp": time.Now().UTC().Add(1 * time.Hour).Unix(),
		"iat": time.Now().UTC().Add(-1 * time.Minute).Unix(),
	}
	if strings.TrimSpace(sub) != "" {
		claims["sub"] = sub
	}
	if strings.TrimSpace(cfg.JWTAudience) != "" {
		claims["aud"] = cfg.JWTAudience
	}
	if strings.TrimSpace(cfg.JWTIssuer) != "" {
		claims["iss"] = cfg.JWTIssuer
	}
	for key, value := range overrides {
		if value == nil {
			delete(claims, key)
			continue
		}
		claims[key] = value
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(cfg.JWTSecret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}

func performRequest(
	t *testing.T,
	router http.Handler,
	method, targetPath, token string,
	body any,
	headers map[string]string,
) *httptest.ResponseRecorder {
	t.Helper()

	var payload []byte
	switch v := body.(type) {
	case nil:
	case string:
		payload = []byte(v)
	default:
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal request body: %v", err)
		}
	}

	req := httptest.NewRequest(method, targetPath, bytes.NewReader(payload))
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if strings.TrimSpace(token) != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for key, value := range headers {
		req.Header.Set(key, value)
	}

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decodeJSONMap(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response body: %v body=%s", err, rec.Body.String())
	}
	return body
}

func decodeJSONList(t *testing.T, rec *httptest.ResponseRecorder) []map[string]any {
	t.Helper()
	var body []map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response list: %v body=%s", err, rec.Body.String())
	}
	return body
}

func responseMessage(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	message, _ := decodeJSONMap(t, rec)["message"].(string)
	return message
}

func testID() string {
	return uuid.NewString()
}
