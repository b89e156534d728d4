package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/securehealth/identity/internal/core/domain"
	"github.com/securehealth/identity/internal/infra/config"
	"github.com/securehealth/identity/internal/usecase"
)

type stubAuthService struct {
	registerIn  usecase.RegisterInput
	registerErr error

	loginResult *usecase.LoginResult
	loginErr    error
	loginClient usecase.ClientInfo

	verifyResult *usecase.LoginResult
	verifyErr    error

	refreshToken  string
	refreshResult *usecase.LoginResult
	refreshErr    error

	logoutTokens []string
	logoutErr    error
}

func (s *stubAuthService) Register(_ context.Context, in usecase.RegisterInput) (*domain.Account, error) {
	s.registerIn = in
	if s.registerErr != nil {
		return nil, s.registerErr
	}
	return &domain.Account{ID: "acc-1", Email: in.Email, Role: in.Role}, nil
}

func (s *stubAuthService) Login(_ context.Context, _, _ string, client usecase.ClientInfo) (*usecase.LoginResult, error) {
	s.loginClient = client
	return s.loginResult, s.loginErr
}

func (s *stubAuthService) VerifyOTP(_ context.Context, _, _ string, _ usecase.ClientInfo) (*usecase.LoginResult, error) {
	return s.verifyResult, s.verifyErr
}

func (s *stubAuthService) Refresh(_ context.Context, token string, _ usecase.ClientInfo) (*usecase.LoginResult, error) {
	s.refreshToken = token
	return s.refreshResult, s.refreshErr
}

func (s *stubAuthService) Logout(_ context.Context, token string) error {
	s.logoutTokens = append(s.logoutTokens, token)
	return s.logoutErr
}

func testCookieConfig() CookieConfig {
	return NewCookieConfig(config.CookieSettings{Secure: true, SameSite: "strict"})
}

func newAuthRouter(svc AuthService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	NewAuthHandler(svc, testCookieConfig(), nil).RegisterRoutes(r.Group("/api/auth"), AuthRouteMiddlewares{})
	return r
}

func doJSON(t *testing.T, r http.Handler, path, body string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "handler-test")
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	return rr
}

func refreshCookie(t *testing.T, rr *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range rr.Result().Cookies() {
		if c.Name == "refreshToken" {
			return c
		}
	}
	return nil
}

func successResult() *usecase.LoginResult {
	return &usecase.LoginResult{
		Status:                usecase.StatusLoginSuccess,
		Role:                  domain.RolePatient,
		AccessToken:           "access-token",
		AccessTokenExpiresAt:  time.Now().Add(15 * time.Minute),
		RefreshToken:          "refresh-secret",
		RefreshTokenExpiresAt: time.Now().Add(7 * 24 * time.Hour),
	}
}

func TestRegister_Created(t *testing.T) {
	svc := &stubAuthService{}
	r := newAuthRouter(svc)

	rr := doJSON(t, r, "/api/auth/register", `{"email":"a@x.com","password":"P@ssword1234","role":"patient"}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rr.Code, rr.Body.String())
	}
	if svc.registerIn.Role != domain.RolePatient || svc.registerIn.Email != "a@x.com" {
		t.Fatalf("unexpected register input %+v", svc.registerIn)
	}
	if !strings.Contains(rr.Body.String(), "User registered successfully") {
		t.Fatalf("unexpected body %s", rr.Body.String())
	}
}

func TestRegister_Rejections(t *testing.T) {
	cases := []struct {
		name   string
		body   string
		err    error
		status int
	}{
		{"bad email", `{"email":"not-an-email","password":"P@ssword1234","role":"PATIENT"}`, nil, http.StatusBadRequest},
		{"unknown role", `{"email":"a@x.com","password":"P@ssword1234","role":"SURGEON"}`, nil, http.StatusBadRequest},
		{"weak password", `{"email":"a@x.com","password":"short","role":"PATIENT"}`, usecase.ErrWeakPassword, http.StatusBadRequest},
		{"duplicate", `{"email":"a@x.com","password":"P@ssword1234","role":"PATIENT"}`, usecase.ErrDuplicateAccount, http.StatusConflict},
		{"storage failure", `{"email":"a@x.com","password":"P@ssword1234","role":"PATIENT"}`, errors.New("db down"), http.StatusInternalServerError},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := newAuthRouter(&stubAuthService{registerErr: tc.err})
			rr := doJSON(t, r, "/api/auth/register", tc.body)
			if rr.Code != tc.status {
				t.Fatalf("expected %d, got %d: %s", tc.status, rr.Code, rr.Body.String())
			}
			if strings.Contains(rr.Body.String(), "db down") {
				t.Fatal("infrastructure error leaked to client")
			}
		})
	}
}

func TestLogin_SuccessSetsCookieAndHidesRefreshToken(t *testing.T) {
	svc := &stubAuthService{loginResult: successResult()}
	r := newAuthRouter(svc)

	rr := doJSON(t, r, "/api/auth/login", `{"email":"a@x.com","password":"P@ssword1234"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if strings.Contains(rr.Body.String(), "refresh-secret") {
		t.Fatal("refresh token must not appear in the response body")
	}

	var resp LoginResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Status != "LOGIN_SUCCESS" || resp.AccessToken == nil || *resp.AccessToken != "access-token" || resp.Role != "PATIENT" {
		t.Fatalf("unexpected response %+v", resp)
	}
	if resp.ExpiresIn <= 0 {
		t.Fatalf("expected positive expiresIn, got %d", resp.ExpiresIn)
	}

	cookie := refreshCookie(t, rr)
	if cookie == nil {
		t.Fatal("refresh cookie not set")
	}
	if cookie.Value != "refresh-secret" || !cookie.HttpOnly || !cookie.Secure || cookie.Path != "/api/auth" {
		t.Fatalf("unexpected cookie %+v", cookie)
	}
	if cookie.MaxAge != 7*24*60*60 {
		t.Fatalf("expected 7 day max-age, got %d", cookie.MaxAge)
	}
	if cookie.SameSite != http.SameSiteStrictMode {
		t.Fatalf("expected strict same-site, got %v", cookie.SameSite)
	}
	if svc.loginClient.UserAgent != "handler-test" || svc.loginClient.IPAddress == "" {
		t.Fatalf("client info not forwarded: %+v", svc.loginClient)
	}
}

func TestLogin_OTPRequiredHasNoTokens(t *testing.T) {
	svc := &stubAuthService{loginResult: &usecase.LoginResult{Status: usecase.StatusOTPRequired, Role: domain.RoleDoctor}}
	r := newAuthRouter(svc)

	rr := doJSON(t, r, "/api/auth/login", `{"email":"doc@x.com","password":"P@ssword1234"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if refreshCookie(t, rr) != nil {
		t.Fatal("no cookie expected before otp verification")
	}
	if !strings.Contains(rr.Body.String(), `"accessToken":null`) || !strings.Contains(rr.Body.String(), "OTP_REQUIRED") {
		t.Fatalf("unexpected body %s", rr.Body.String())
	}
}

func TestLogin_ErrorMapping(t *testing.T) {
	cases := []struct {
		err    error
		status int
	}{
		{usecase.ErrInvalidCredentials, http.StatusUnauthorized},
		{usecase.ErrAccountLocked, http.StatusLocked},
		{usecase.ErrTokenSigning, http.StatusInternalServerError},
	}
	for _, tc := range cases {
		r := newAuthRouter(&stubAuthService{loginErr: tc.err})
		rr := doJSON(t, r, "/api/auth/login", `{"email":"a@x.com","password":"P@ssword1234"}`)
		if rr.Code != tc.status {
			t.Fatalf("%v: expected %d, got %d", tc.err, tc.status, rr.Code)
		}
	}

	r := newAuthRouter(&stubAuthService{})
	if rr := doJSON(t, r, "/api/auth/login", `{"email":"a@x.com"}`); rr.Code != http.StatusBadRequest {
		t.Fatalf("missing password: expected 400, got %d", rr.Code)
	}
}

func TestVerifyOTP_UnknownEmailLooksLikeWrongCode(t *testing.T) {
	notFound := doJSON(t, newAuthRouter(&stubAuthService{verifyErr: usecase.ErrAccountNotFound}),
		"/api/auth/verify-otp", `{"email":"ghost@x.com","otp":"123456"}`)
	wrong := doJSON(t, newAuthRouter(&stubAuthService{verifyErr: usecase.ErrInvalidOrExpiredOTP}),
		"/api/auth/verify-otp", `{"email":"doc@x.com","otp":"123456"}`)

	if notFound.Code != http.StatusUnauthorized || wrong.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for both, got %d and %d", notFound.Code, wrong.Code)
	}
	var a, b ErrorResponse
	_ = json.Unmarshal(notFound.Body.Bytes(), &a)
	_ = json.Unmarshal(wrong.Body.Bytes(), &b)
	if a.Error != b.Error {
		t.Fatalf("messages differ: %q vs %q", a.Error, b.Error)
	}
}

func TestVerifyOTP_SuccessSetsCookie(t *testing.T) {
	result := successResult()
	result.Role = domain.RoleDoctor
	r := newAuthRouter(&stubAuthService{verifyResult: result})

	rr := doJSON(t, r, "/api/auth/verify-otp", `{"email":"doc@x.com","otp":"123456"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if c := refreshCookie(t, rr); c == nil || c.Value != "refresh-secret" {
		t.Fatalf("expected refresh cookie, got %+v", c)
	}
}

func TestRefresh_UsesCookie(t *testing.T) {
	result := successResult()
	result.RefreshToken = "rotated"
	svc := &stubAuthService{refreshResult: result}
	r := newAuthRouter(svc)

	rr := doJSON(t, r, "/api/auth/refresh", ``)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("missing cookie: expected 401, got %d", rr.Code)
	}

	rr = doJSON(t, r, "/api/auth/refresh", ``, &http.Cookie{Name: "refreshToken", Value: "old"})
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if svc.refreshToken != "old" {
		t.Fatalf("expected cookie value forwarded, got %q", svc.refreshToken)
	}
	if c := refreshCookie(t, rr); c == nil || c.Value != "rotated" {
		t.Fatalf("expected rotated cookie, got %+v", c)
	}

	svc.refreshErr = usecase.ErrInvalidSession
	rr = doJSON(t, r, "/api/auth/refresh", ``, &http.Cookie{Name: "refreshToken", Value: "old"})
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("revoked session: expected 401, got %d", rr.Code)
	}
}

func TestLogout_AlwaysSucceedsAndClearsCookie(t *testing.T) {
	svc := &stubAuthService{logoutErr: errors.New("db down")}
	r := newAuthRouter(svc)

	for _, cookies := range [][]*http.Cookie{nil, {{Name: "refreshToken", Value: "tok"}}} {
		rr := doJSON(t, r, "/api/auth/logout", ``, cookies...)
		if rr.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rr.Code)
		}
		c := refreshCookie(t, rr)
		if c == nil || c.MaxAge >= 0 || c.Value != "" {
			t.Fatalf("expected cleared cookie, got %+v", c)
		}
	}

	if len(svc.logoutTokens) != 1 || svc.logoutTokens[0] != "tok" {
		t.Fatalf("expected one logout call with cookie value, got %v", svc.logoutTokens)
	}
}

func TestNewCookieConfig_Defaults(t *testing.T) {
	cfg := NewCookieConfig(config.CookieSettings{SameSite: "Lax"})
	if cfg.Name != "refreshToken" || cfg.Path != "/api/auth" || cfg.MaxAge != 7*24*time.Hour {
		t.Fatalf("unexpected defaults %+v", cfg)
	}
	if cfg.SameSite != http.SameSiteLaxMode {
		t.Fatalf("expected lax, got %v", cfg.SameSite)
	}
}
