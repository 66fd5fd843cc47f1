package api

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"sweetshop/internal/config"
	"sweetshop/internal/domain"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

const testJWTSecret = "test-secret"

// newTestEnv spins up the full router against an in-memory sqlite database
// and a miniredis instance, so tests go through the real middleware chain.
func newTestEnv(t *testing.T) (*gin.Engine, *gorm.DB) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("unwrap sql.DB: %v", err)
	}
	// In-memory sqlite is per-connection: pin the pool to one connection so
	// every goroutine sees the same database.
	sqlDB.SetMaxOpenConns(1)
	err = db.AutoMigrate(
		&domain.User{},
		&domain.Profile{},
		&domain.RoleGrant{},
		&domain.Sweet{},
		&domain.Purchase{},
	)
	if err != nil {
		t.Fatalf("migrate: %v", err)
	}
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	cfg := &config.Config{JWTSecret: testJWTSecret}
	return NewRouter(db, rdb, cfg), db
}

// doJSON performs a request with an optional bearer token and JSON body.
func doJSON(t *testing.T, r *gin.Engine, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		rd = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, rd)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

// decodeBody unmarshals a recorded JSON response into dest.
func decodeBody(t *testing.T, w *httptest.ResponseRecorder, dest any) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), dest); err != nil {
		t.Fatalf("decode response %q: %v", w.Body.String(), err)
	}
}

// registerAndLogin creates a user through the API and returns a session token.
func registerAndLogin(t *testing.T, r *gin.Engine, email, password string) string {
	t.Helper()
	w := doJSON(t, r, http.MethodPost, "/auth/register", "", gin.H{
		"email":    email,
		"password": password,
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("register %s: status %d body %s", email, w.Code, w.Body.String())
	}
	w = doJSON(t, r, http.MethodPost, "/auth/login", "", gin.H{
		"email":    email,
		"password": password,
	})
	if w.Code != http.StatusOK {
		t.Fatalf("login %s: status %d body %s", email, w.Code, w.Body.String())
	}
	var resp AuthResponse
	decodeBody(t, w, &resp)
	if resp.Token == "" {
		t.Fatalf("login %s: empty token", email)
	}
	return resp.Token
}

// grantAdmin provisions the admin role out of band, the only way it is granted.
func grantAdmin(t *testing.T, db *gorm.DB, email string) {
	t.Helper()
	var user domain.User
	if err := db.Where("email = ?", email).First(&user).Error; err != nil {
		t.Fatalf("find user %s: %v", email, err)
	}
	if err := db.Create(&domain.RoleGrant{UserID: user.ID, Role: domain.RoleAdmin}).Error; err != nil {
		t.Fatalf("grant admin to %s: %v", email, err)
	}
}

// mustCreateSweet seeds a sweet directly in the database.
func mustCreateSweet(t *testing.T, db *gorm.DB, name, category string, priceCents, quantity int64) domain.Sweet {
	t.Helper()
	sweet := domain.Sweet{
		Name:       name,
		Category:   category,
		PriceCents: priceCents,
		Quantity:   quantity,
		ImageURL:   domain.DefaultImageURL,
	}
	if err := db.Create(&sweet).Error; err != nil {
		t.Fatalf("create sweet %s: %v", name, err)
	}
	return sweet
}
