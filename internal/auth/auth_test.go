package auth

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/pquerna/otp/totp"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"solsub-admin/internal/database"
	apperrors "solsub-admin/internal/errors"
	"solsub-admin/internal/models"
	"solsub-admin/internal/sessions"
)

const (
	testEmail    = "ops@example.com"
	testPassword = "correct horse battery"
)

func setupAuth(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(models.Relational()...))

	prevDB, prevSM := database.DB, sessions.GlobalManager
	database.DB, sessions.GlobalManager = db, nil
	t.Cleanup(func() {
		database.DB, sessions.GlobalManager = prevDB, prevSM
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})

	SetBcryptCost(bcrypt.MinCost)
	require.NoError(t, InitJWT("test-secret", time.Hour))

	_, _, err = CreateAdmin(db, testEmail, "Ops", testPassword, false)
	require.NoError(t, err)

	r := gin.New()
	r.GET("/login", HandleLoginPage)
	r.POST("/login", HandleLogin)

	pages := r.Group("/", RequirePage())
	pages.GET("/", func(c *gin.Context) { c.String(http.StatusOK, "home %d", CurrentAdminID(c)) })
	pages.GET("/users", func(c *gin.Context) { c.String(http.StatusOK, "users") })
	pages.POST("/logout", HandleLogout)

	api := r.Group("/api", RequireAPI())
	api.GET("/ping", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"ok": true}) })
	return r
}

func postForm(r *gin.Engine, path string, form url.Values, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	for _, ck := range cookies {
		req.AddCookie(ck)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func get(r *gin.Engine, path string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	for _, ck := range cookies {
		req.AddCookie(ck)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func sessionCookie(t *testing.T, w *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, ck := range w.Result().Cookies() {
		if ck.Name == AuthCookieName {
			return ck
		}
	}
	t.Fatalf("no %s cookie in response", AuthCookieName)
	return nil
}

func login(t *testing.T, r *gin.Engine) *http.Cookie {
	t.Helper()
	w := postForm(r, "/login", url.Values{"email": {testEmail}, "password": {testPassword}})
	require.Equal(t, http.StatusSeeOther, w.Code, w.Body.String())
	return sessionCookie(t, w)
}

func TestLoginForm_RedirectsToNext(t *testing.T) {
	r := setupAuth(t)

	w := postForm(r, "/login", url.Values{"email": {"OPS@example.com"}, "password": {testPassword}, "next": {"/users"}})
	require.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/users", w.Header().Get("Location"))

	ck := sessionCookie(t, w)
	assert.True(t, ck.HttpOnly)
	assert.Equal(t, http.SameSiteLaxMode, ck.SameSite)

	w = get(r, "/users", ck)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestLoginForm_RejectsOffsiteNext(t *testing.T) {
	r := setupAuth(t)

	w := postForm(r, "/login", url.Values{"email": {testEmail}, "password": {testPassword}, "next": {"//evil.example"}})
	require.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/", w.Header().Get("Location"))
}

func TestLoginForm_InvalidCredentials(t *testing.T) {
	r := setupAuth(t)

	w := postForm(r, "/login", url.Values{"email": {testEmail}, "password": {"nope"}})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "Invalid credentials")
	assert.Contains(t, w.Body.String(), testEmail)

	w = postForm(r, "/login", url.Values{"email": {"ghost@example.com"}, "password": {testPassword}})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = postForm(r, "/login", url.Values{"email": {testEmail}})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestLogin_LocksAfterRepeatedFailures(t *testing.T) {
	r := setupAuth(t)

	for i := 0; i < MaxFailedLogins-1; i++ {
		w := postForm(r, "/login", url.Values{"email": {testEmail}, "password": {"wrong"}})
		require.Equal(t, http.StatusUnauthorized, w.Code)
	}
	w := postForm(r, "/login", url.Values{"email": {testEmail}, "password": {"wrong"}})
	assert.Equal(t, http.StatusLocked, w.Code)

	w = postForm(r, "/login", url.Values{"email": {testEmail}, "password": {testPassword}})
	assert.Equal(t, http.StatusLocked, w.Code, "correct password is refused while locked")

	_, err := SetPassword(database.DB, testEmail, testPassword)
	require.NoError(t, err)
	login(t, r)
}

func TestLogin_SuccessResetsFailures(t *testing.T) {
	r := setupAuth(t)

	postForm(r, "/login", url.Values{"email": {testEmail}, "password": {"wrong"}})
	login(t, r)

	var admin models.AdminUser
	require.NoError(t, database.DB.Where("email = ?", testEmail).First(&admin).Error)
	assert.Zero(t, admin.FailedLoginAttempts)
	assert.NotNil(t, admin.LastLoginAt)
}

func TestLoginJSON(t *testing.T) {
	r := setupAuth(t)

	body, _ := json.Marshal(gin.H{"email": testEmail, "password": testPassword})
	req := httptest.NewRequest(http.MethodPost, "/login", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var resp struct {
		CSRFToken string `json:"csrf_token"`
		SessionID string `json:"session_id"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.CSRFToken)
	assert.Equal(t, resp.CSRFToken, w.Header().Get("X-CSRF-Token"))
	assert.Len(t, resp.SessionID, 36)

	req = httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(`{"email":"ops@example.com","password":"bad"}`))
	req.Header.Set("Content-Type", "application/json")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), apperrors.ErrInvalidCredentials.Code)
}

func TestLogin_MFA(t *testing.T) {
	r := setupAuth(t)

	_, key, err := CreateAdmin(database.DB, "mfa@example.com", "MFA", testPassword, true)
	require.NoError(t, err)
	require.NotNil(t, key)

	w := postForm(r, "/login", url.Values{"email": {"mfa@example.com"}, "password": {testPassword}})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	code, err := totp.GenerateCode(key.Secret(), time.Now())
	require.NoError(t, err)
	w = postForm(r, "/login", url.Values{"email": {"mfa@example.com"}, "password": {testPassword}, "totp_code": {code}})
	assert.Equal(t, http.StatusSeeOther, w.Code)
}

func TestRequirePage_RedirectsToLogin(t *testing.T) {
	r := setupAuth(t)

	w := get(r, "/users?tab=all")
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/login?next="+url.QueryEscape("/users?tab=all"), w.Header().Get("Location"))

	w = get(r, "/users", &http.Cookie{Name: AuthCookieName, Value: "garbage"})
	assert.Equal(t, http.StatusFound, w.Code)
}

func TestRequireAPI_Unauthorized(t *testing.T) {
	r := setupAuth(t)

	w := get(r, "/api/ping")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), apperrors.ErrUnauthorized.Code)

	ck := login(t, r)
	req := httptest.NewRequest(http.MethodGet, "/api/ping", nil)
	req.Header.Set("Authorization", "Bearer "+ck.Value)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestLogout_RevokesToken(t *testing.T) {
	r := setupAuth(t)
	ck := login(t, r)

	w := postForm(r, "/logout", url.Values{}, ck)
	require.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/login", w.Header().Get("Location"))
	assert.True(t, IsTokenBlacklisted(database.DB, ck.Value))

	w = get(r, "/", ck)
	assert.Equal(t, http.StatusFound, w.Code)
}

func TestRedisSessionMustExist(t *testing.T) {
	r := setupAuth(t)

	mr := miniredis.RunT(t)
	sm := sessions.NewManager(redis.NewClient(&redis.Options{Addr: mr.Addr()}), time.Hour, time.Second)
	sessions.GlobalManager = sm

	ck := login(t, r)
	w := get(r, "/", ck)
	require.Equal(t, http.StatusOK, w.Code)

	claims, err := ParseToken(ck.Value)
	require.NoError(t, err)
	require.NoError(t, sm.DeleteAllUserSessions(claims.AdminID))

	w = get(r, "/", ck)
	assert.Equal(t, http.StatusFound, w.Code)
}

func TestCreateAdmin_Validation(t *testing.T) {
	setupAuth(t)

	_, _, err := CreateAdmin(database.DB, testEmail, "", testPassword, false)
	assert.ErrorIs(t, err, ErrAdminExists)

	_, _, err = CreateAdmin(database.DB, "short@example.com", "", "abc", false)
	assert.Error(t, err)

	_, _, err = CreateAdmin(database.DB, " ", "", testPassword, false)
	assert.Error(t, err)
}

func TestSafeNext(t *testing.T) {
	tests := map[string]string{
		"":                 "/",
		"/users":           "/users",
		"/reports?x=1":     "/reports?x=1",
		"//evil.example":   "/",
		"/\\evil.example":  "/",
		"https://evil.com": "/",
		"/login?next=/":    "/",
	}
	for in, want := range tests {
		assert.Equal(t, want, safeNext(in), in)
	}
}

func TestBlacklistLookupFailureRejectsToken(t *testing.T) {
	r := setupAuth(t)
	ck := login(t, r)
	assert.False(t, IsTokenBlacklisted(database.DB, ck.Value))

	require.NoError(t, database.DB.Migrator().DropTable(&models.TokenBlacklist{}))
	assert.True(t, IsTokenBlacklisted(database.DB, ck.Value))
	assert.Equal(t, http.StatusFound, get(r, "/", ck).Code)
	assert.Equal(t, http.StatusUnauthorized, get(r, "/api/ping", ck).Code)
}

func TestTokenRoundTrip(t *testing.T) {
	require.NoError(t, InitJWT("another-secret", time.Minute))
	issued, err := GenerateToken(&models.AdminUser{ID: 4, Email: "a@example.com"})
	require.NoError(t, err)

	claims, err := ParseToken(issued.Token)
	require.NoError(t, err)
	assert.Equal(t, uint(4), claims.AdminID)
	assert.Equal(t, issued.SessionID, claims.SessionID())

	_, err = ParseToken(issued.Token + "x")
	assert.Error(t, err)

	assert.ErrorIs(t, InitJWT("", time.Minute), ErrJWTNotConfigured)
}
