package client_test

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/pquerna/otp/totp"

	"github.com/cryptolearn/cryptolearn-tui/internal/domain"
)

/*
 * End-to-end tests for the client against an in-process fake of the
 * CryptoLearn auth service. The fake implements the consumed endpoints
 * (login, MFA verification, registration, account, refresh) with real
 * token and TOTP semantics so the full client stack is exercised.
 */

const (
	testIssuer   = "CryptoLearn"
	testPassword = "Sunshine123!"
	emailOTPCode = "424242"

	signingKey = "e2e-test-signing-key"
)

// fakeUser is one account in the fake service.
type fakeUser struct {
	SubjectID  string
	Username   string
	Email      string
	Password   string
	MFAMethod  domain.Method
	MFAEnabled bool
	TOTPSecret string
}

// fakeServer is the in-process auth service.
type fakeServer struct {
	mu       sync.Mutex
	users    map[string]*fakeUser // keyed by username and email
	pending  map[string]domain.Method
	nextID   int
	tokenSeq int
	tokenTTL time.Duration

	srv *httptest.Server
}

func newFakeServer() *fakeServer {
	f := &fakeServer{
		users:    make(map[string]*fakeUser),
		pending:  make(map[string]domain.Method),
		tokenTTL: time.Hour,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /auth/login", f.handleLogin)
	mux.HandleFunc("POST /auth/mfa/totp/verify", f.handleVerify(domain.MethodTOTP))
	mux.HandleFunc("POST /auth/mfa/email/verify", f.handleVerify(domain.MethodEmailOTP))
	mux.HandleFunc("POST /auth/register", f.handleRegister)
	mux.HandleFunc("GET /auth/account", f.handleGetAccount)
	mux.HandleFunc("PATCH /auth/account", f.handleUpdateAccount)
	mux.HandleFunc("POST /auth/refresh", f.handleRefresh)

	f.srv = httptest.NewServer(mux)
	return f
}

func (f *fakeServer) Close()      { f.srv.Close() }
func (f *fakeServer) URL() string { return f.srv.URL }

// addUser registers a user directly, bypassing the HTTP surface.
func (f *fakeServer) addUser(username, email string, method domain.Method) *fakeUser {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.nextID++
	u := &fakeUser{
		SubjectID:  fmt.Sprintf("sub-%04d", f.nextID),
		Username:   username,
		Email:      email,
		Password:   testPassword,
		MFAMethod:  method,
		MFAEnabled: method != domain.MethodNone,
	}
	if method == domain.MethodTOTP {
		key, err := totp.Generate(totp.GenerateOpts{Issuer: testIssuer, AccountName: email})
		if err != nil {
			panic(err)
		}
		u.TOTPSecret = key.Secret()
	}
	f.users[username] = u
	f.users[email] = u
	return u
}

// user looks up a registered user by identifier.
func (f *fakeServer) user(identifier string) *fakeUser {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.users[identifier]
}

func (f *fakeServer) findBySubject(subjectID string) *fakeUser {
	for _, u := range f.users {
		if u.SubjectID == subjectID {
			return u
		}
	}
	return nil
}

// totpCode returns a currently valid code for the user's secret.
func totpCode(secret string) string {
	code, err := totp.GenerateCode(secret, time.Now())
	if err != nil {
		panic(err)
	}
	return code
}

// issueTokens mints an HS256 pair for the user. The jti counter keeps every
// pair distinct even when minted within the same second.
func (f *fakeServer) issueTokens(u *fakeUser) map[string]string {
	f.tokenSeq++
	claims := jwt.MapClaims{
		"iss": testIssuer,
		"sub": u.SubjectID,
		"exp": time.Now().Add(f.tokenTTL).Unix(),
		"iat": time.Now().Unix(),
		"jti": fmt.Sprintf("tok-%06d", f.tokenSeq),
	}
	access, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(signingKey))
	if err != nil {
		panic(err)
	}
	refreshClaims := jwt.MapClaims{
		"iss": testIssuer,
		"sub": u.SubjectID,
		"exp": time.Now().Add(24 * f.tokenTTL).Unix(),
		"typ": "refresh",
		"jti": fmt.Sprintf("ref-%06d", f.tokenSeq),
	}
	refresh, err := jwt.NewWithClaims(jwt.SigningMethodHS256, refreshClaims).SignedString([]byte(signingKey))
	if err != nil {
		panic(err)
	}
	return map[string]string{"access_token": access, "refresh_token": refresh}
}

// subjectFromBearer validates the Authorization header and returns the user.
func (f *fakeServer) subjectFromBearer(r *http.Request) *fakeUser {
	header := r.Header.Get("Authorization")
	raw, ok := strings.CutPrefix(header, "Bearer ")
	if !ok {
		return nil
	}
	tok, err := jwt.Parse(raw, func(*jwt.Token) (any, error) {
		return []byte(signingKey), nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil || !tok.Valid {
		return nil
	}
	sub, err := tok.Claims.GetSubject()
	if err != nil {
		return nil
	}
	return f.findBySubject(sub)
}

func (f *fakeServer) userBody(u *fakeUser) map[string]any {
	return map[string]any{
		"username":    u.Username,
		"email":       u.Email,
		"mfa_enabled": u.MFAEnabled,
		"mfa_method":  u.MFAMethod.String(),
	}
}

func writeBody(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeErr(w http.ResponseWriter, status int, code, msg string) {
	writeBody(w, status, map[string]string{"error": code, "message": msg})
}

func (f *fakeServer) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Identifier string `json:"identifier"`
		Secret     string `json:"secret"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, http.StatusBadRequest, "invalid_request", "bad body")
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	u, ok := f.users[req.Identifier]
	if !ok || u.Password != req.Secret {
		writeErr(w, http.StatusUnauthorized, "invalid_credentials", "bad credentials")
		return
	}

	if u.MFAEnabled {
		f.pending[u.SubjectID] = u.MFAMethod
		body := map[string]any{
			"status":     "mfa_required",
			"method":     u.MFAMethod.String(),
			"subject_id": u.SubjectID,
		}
		if u.MFAMethod == domain.MethodEmailOTP {
			body["debug_otp"] = emailOTPCode
		}
		writeBody(w, http.StatusOK, body)
		return
	}

	writeBody(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"session": f.issueTokens(u),
		"user":    f.userBody(u),
	})
}

// handleVerify covers both login-challenge resolution and enrollment
// activation, like the real service.
func (f *fakeServer) handleVerify(method domain.Method) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			SubjectID string `json:"subject_id"`
			Code      string `json:"code"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeErr(w, http.StatusBadRequest, "invalid_request", "bad body")
			return
		}

		f.mu.Lock()
		defer f.mu.Unlock()

		u := f.findBySubject(req.SubjectID)
		if u == nil {
			writeErr(w, http.StatusUnauthorized, "invalid_code", "unknown subject")
			return
		}

		var valid bool
		switch method {
		case domain.MethodTOTP:
			valid = totp.Validate(req.Code, u.TOTPSecret)
		case domain.MethodEmailOTP:
			valid = req.Code == emailOTPCode
		}
		if !valid {
			writeErr(w, http.StatusUnauthorized, "invalid_code", "wrong code")
			return
		}

		if _, pendingLogin := f.pending[req.SubjectID]; pendingLogin {
			// Login challenge: a correct code completes the session.
			delete(f.pending, req.SubjectID)
			writeBody(w, http.StatusOK, map[string]any{
				"status":  "verified",
				"session": f.issueTokens(u),
				"user":    f.userBody(u),
			})
			return
		}

		// Enrollment activation: no session is issued.
		u.MFAEnabled = true
		writeBody(w, http.StatusOK, map[string]any{"status": "verified"})
	}
}

func (f *fakeServer) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username  string `json:"username"`
		Email     string `json:"email"`
		Secret    string `json:"secret"`
		MFAMethod string `json:"mfa_method"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, http.StatusBadRequest, "invalid_request", "bad body")
		return
	}

	f.mu.Lock()
	if _, exists := f.users[req.Username]; exists {
		f.mu.Unlock()
		writeErr(w, http.StatusConflict, "conflict", "username taken")
		return
	}
	f.mu.Unlock()

	method, err := domain.ParseMethod(req.MFAMethod)
	if err != nil {
		writeErr(w, http.StatusBadRequest, "invalid_request", "bad method")
		return
	}

	u := f.addUser(req.Username, req.Email, method)
	u.Password = req.Secret

	f.mu.Lock()
	defer f.mu.Unlock()

	// Until enrollment is verified, TOTP accounts are not MFA-enforced.
	if method == domain.MethodTOTP {
		u.MFAEnabled = false
	}

	body := map[string]any{"user": f.userBody(u)}
	if method == domain.MethodTOTP {
		body["subject_id"] = u.SubjectID
		body["totp_secret"] = u.TOTPSecret
		body["provisioning_uri"] = fmt.Sprintf(
			"otpauth://totp/%s:%s?secret=%s&issuer=%s",
			testIssuer, u.Email, u.TOTPSecret, testIssuer,
		)
	}
	writeBody(w, http.StatusCreated, body)
}

func (f *fakeServer) handleGetAccount(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	u := f.subjectFromBearer(r)
	if u == nil {
		writeErr(w, http.StatusUnauthorized, "invalid_token", "bad token")
		return
	}
	writeBody(w, http.StatusOK, f.userBody(u))
}

func (f *fakeServer) handleUpdateAccount(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	u := f.subjectFromBearer(r)
	if u == nil {
		writeErr(w, http.StatusUnauthorized, "invalid_token", "bad token")
		return
	}

	var req struct {
		Username  *string `json:"username"`
		Email     *string `json:"email"`
		Secret    *string `json:"secret"`
		MFAMethod *string `json:"mfa_method"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, http.StatusBadRequest, "invalid_request", "bad body")
		return
	}

	if req.Username != nil {
		if other, exists := f.users[*req.Username]; exists && other != u {
			writeErr(w, http.StatusConflict, "conflict", "username taken")
			return
		}
		delete(f.users, u.Username)
		u.Username = *req.Username
		f.users[u.Username] = u
	}
	if req.Email != nil {
		delete(f.users, u.Email)
		u.Email = *req.Email
		f.users[u.Email] = u
	}
	if req.Secret != nil {
		u.Password = *req.Secret
	}

	body := f.userBody(u)

	if req.MFAMethod != nil {
		method, err := domain.ParseMethod(*req.MFAMethod)
		if err != nil {
			writeErr(w, http.StatusBadRequest, "invalid_request", "bad method")
			return
		}
		u.MFAMethod = method
		u.MFAEnabled = method == domain.MethodEmailOTP

		if method == domain.MethodTOTP {
			key, err := totp.Generate(totp.GenerateOpts{Issuer: testIssuer, AccountName: u.Email})
			if err != nil {
				panic(err)
			}
			u.TOTPSecret = key.Secret()
			body = f.userBody(u)
			body["subject_id"] = u.SubjectID
			body["totp_secret"] = u.TOTPSecret
			body["provisioning_uri"] = fmt.Sprintf(
				"otpauth://totp/%s:%s?secret=%s&issuer=%s",
				testIssuer, u.Email, u.TOTPSecret, testIssuer,
			)
		} else {
			body = f.userBody(u)
		}
	}

	writeBody(w, http.StatusOK, body)
}

func (f *fakeServer) handleRefresh(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	u := f.subjectFromBearer(r)
	if u == nil {
		writeErr(w, http.StatusUnauthorized, "invalid_token", "bad refresh token")
		return
	}
	writeBody(w, http.StatusOK, map[string]any{"session": f.issueTokens(u)})
}
