// api/handlers/auth_handler_integration_test.go
package handlers_test

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/termbase/termbase-backend/api"
	"github.com/termbase/termbase-backend/api/models"
	"github.com/termbase/termbase-backend/config"
	"github.com/termbase/termbase-backend/internal/auth"
	"github.com/termbase/termbase-backend/internal/storage"
)

const testJWTSecret = "test_secret_key_for_integration_tests_1234567890"

// testDBSetup creates a temporary SQLite DB for testing and returns the DB pool and cleanup func.
func testDBSetup(t *testing.T) (*sql.DB, *config.Config, func()) {
	t.Helper()

	tempDir := t.TempDir()
	testDbPath := filepath.Join(tempDir, "test_metadata.db")

	testCfg := &config.Config{
		ServerPort:     ":0",
		JWTSecret:      testJWTSecret,
		JWTExpiration:  time.Minute * 5,
		MetadataDbDir:  tempDir,
		MetadataDbFile: "test_metadata.db",
	}

	db, err := storage.ConnectMetadataDB(testCfg)
	if err != nil {
		t.Fatalf("Failed to connect to test database '%s': %v", testDbPath, err)
	}

	cleanup := func() {
		err := db.Close()
		if err != nil {
			t.Logf("Warning: failed to close test database: %v", err)
		}
	}

	return db, testCfg, cleanup
}

// setupTestServer creates a test server instance with a test DB. The tenant
// pool is nil; these tests stay on the auth surface, which never touches it.
func setupTestServer(t *testing.T) (*httptest.Server, *sql.DB, *config.Config, func()) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, cfg, dbCleanup := testDBSetup(t)
	router := api.SetupRouter(api.Deps{MetaDB: db, Cfg: cfg})
	server := httptest.NewServer(router)

	cleanup := func() {
		server.Close()
		dbCleanup()
	}

	return server, db, cfg, cleanup
}

// TestAuthEndpoints performs integration tests on /auth/signup and /auth/login.
func TestAuthEndpoints(t *testing.T) {
	server, db, _, cleanup := setupTestServer(t)
	defer cleanup()

	assert := assert.New(t)

	testUsername := "integration_user_" + strconv.FormatInt(time.Now().UnixNano(), 10)
	testPassword := "StrongPassword123!"

	// --- Test Signup ---
	t.Run("Signup Success", func(t *testing.T) {
		signupReqBody := models.SignupRequest{Username: testUsername, Password: testPassword}
		bodyBytes, _ := json.Marshal(signupReqBody)

		res, err := http.Post(server.URL+"/auth/signup", "application/json", bytes.NewReader(bodyBytes))
		assert.NoError(err)
		defer res.Body.Close()

		assert.Equal(http.StatusCreated, res.StatusCode, "Expected status 201 Created")

		var resBody map[string]string
		err = json.NewDecoder(res.Body).Decode(&resBody)
		assert.NoError(err, "Failed to decode signup response body")
		assert.Equal("User registered successfully", resBody["message"])

		user, err := storage.FindUserByUsername(context.Background(), db, testUsername)
		assert.NoError(err, "Finding user after signup should not fail")
		assert.NotNil(user, "User should exist in DB after signup")
		if user != nil {
			assert.Equal(testUsername, user.Username)
			assert.True(auth.CheckPasswordHash(testPassword, user.PasswordHash), "Stored password hash should match")
		}
	})

	t.Run("Signup Conflict (Duplicate Username)", func(t *testing.T) {
		signupReqBody := models.SignupRequest{Username: testUsername, Password: "anotherPassword"}
		bodyBytes, _ := json.Marshal(signupReqBody)

		res, err := http.Post(server.URL+"/auth/signup", "application/json", bytes.NewReader(bodyBytes))
		assert.NoError(err)
		defer res.Body.Close()
		assert.Equal(http.StatusConflict, res.StatusCode, "Expected status 409 Conflict")
	})

	t.Run("Signup Bad Request (Short Password)", func(t *testing.T) {
		signupReqBody := models.SignupRequest{Username: "shortpass_user", Password: "short"}
		bodyBytes, _ := json.Marshal(signupReqBody)

		res, err := http.Post(server.URL+"/auth/signup", "application/json", bytes.NewReader(bodyBytes))
		assert.NoError(err)
		defer res.Body.Close()
		assert.Equal(http.StatusBadRequest, res.StatusCode, "Expected status 400 Bad Request")
	})

	// --- Test Login ---
	t.Run("Login Success", func(t *testing.T) {
		loginReqBody := models.LoginRequest{Username: testUsername, Password: testPassword}
		bodyBytes, _ := json.Marshal(loginReqBody)

		res, err := http.Post(server.URL+"/auth/login", "application/json", bytes.NewReader(bodyBytes))
		assert.NoError(err)
		defer res.Body.Close()
		assert.Equal(http.StatusOK, res.StatusCode, "Expected status 200 OK")

		var resBody models.LoginResponse
		err = json.NewDecoder(res.Body).Decode(&resBody)
		assert.NoError(err, "Failed to decode login response body")
		assert.Equal("Logged in successfully", resBody.Message)
		assert.NotEmpty(resBody.Token, "Token should not be empty on successful login")

		claims, err := auth.ValidateJWT(resBody.Token, testJWTSecret)
		assert.NoError(err, "Returned token should be valid")
		if claims != nil {
			assert.Equal(testUsername, claims.Username, "Token should carry the username claim")
			assert.NotEmpty(claims.UserID, "Token should carry the user id claim")
		}
	})

	t.Run("Login Unauthorized (Wrong Password)", func(t *testing.T) {
		loginReqBody := models.LoginRequest{Username: testUsername, Password: "IncorrectPassword"}
		bodyBytes, _ := json.Marshal(loginReqBody)

		res, err := http.Post(server.URL+"/auth/login", "application/json", bytes.NewReader(bodyBytes))
		assert.NoError(err)
		defer res.Body.Close()
		assert.Equal(http.StatusUnauthorized, res.StatusCode, "Expected status 401 Unauthorized for wrong password")
	})

	// The auth group allows 5 requests per minute per IP; this is the sixth.
	t.Run("Rate Limited", func(t *testing.T) {
		loginReqBody := models.LoginRequest{Username: testUsername, Password: testPassword}
		bodyBytes, _ := json.Marshal(loginReqBody)

		res, err := http.Post(server.URL+"/auth/login", "application/json", bytes.NewReader(bodyBytes))
		assert.NoError(err)
		defer res.Body.Close()
		assert.Equal(http.StatusTooManyRequests, res.StatusCode, "Expected status 429 Too Many Requests")
	})
}

// TestProtectedRoutes exercises the auth middleware and the /me endpoint.
func TestProtectedRoutes(t *testing.T) {
	server, _, cfg, cleanup := setupTestServer(t)
	defer cleanup()

	assert := assert.New(t)

	t.Run("Me Without Token", func(t *testing.T) {
		res, err := http.Get(server.URL + "/api/v1/me")
		assert.NoError(err)
		defer res.Body.Close()
		assert.Equal(http.StatusUnauthorized, res.StatusCode)
	})

	t.Run("Me With Malformed Token", func(t *testing.T) {
		req, _ := http.NewRequest(http.MethodGet, server.URL+"/api/v1/me", nil)
		req.Header.Set("Authorization", "Bearer not.a.token")
		res, err := http.DefaultClient.Do(req)
		assert.NoError(err)
		defer res.Body.Close()
		assert.Equal(http.StatusUnauthorized, res.StatusCode)
	})

	t.Run("Me With Valid Token", func(t *testing.T) {
		token, err := auth.GenerateJWT("user-123", "alice@example.com", cfg.JWTSecret, cfg.JWTExpiration)
		assert.NoError(err)

		req, _ := http.NewRequest(http.MethodGet, server.URL+"/api/v1/me", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		res, err := http.DefaultClient.Do(req)
		assert.NoError(err)
		defer res.Body.Close()
		assert.Equal(http.StatusOK, res.StatusCode)

		var resBody map[string]string
		assert.NoError(json.NewDecoder(res.Body).Decode(&resBody))
		assert.Equal("user-123", resBody["user_id"])
		assert.Equal("alice@example.com", resBody["username"])
	})
}
