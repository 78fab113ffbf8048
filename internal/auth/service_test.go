package auth

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	pkgAuth "github.com/mirelletran/fangallery-backend/pkg/auth"
	"github.com/mirelletran/fangallery-backend/pkg/auth/session"
	"github.com/mirelletran/fangallery-backend/pkg/config"
	pkgerrors "github.com/mirelletran/fangallery-backend/pkg/errors"
)

type stubSessions struct {
	mu      sync.Mutex
	tokens  map[string]string
	revoked []string
}

func newStubSessions() *stubSessions {
	return &stubSessions{tokens: map[string]string{}}
}

func (s *stubSessions) Generate(_ context.Context, accessID string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	token := "refresh-" + accessID
	s.tokens[accessID] = token
	return token, nil
}

func (s *stubSessions) Rotate(_ context.Context, oldAccessID, provided string) (string, string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.tokens[oldAccessID]
	if !ok || stored != provided {
		return "", "", session.ErrInvalidRefreshToken
	}
	delete(s.tokens, oldAccessID)
	newID := "rotated-" + oldAccessID
	token := "refresh-" + newID
	s.tokens[newID] = token
	return newID, token, nil
}

func (s *stubSessions) Revoke(_ context.Context, accessID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.tokens, accessID)
	s.revoked = append(s.revoked, accessID)
	return nil
}

type stubCodes struct {
	mu     sync.Mutex
	values map[string]string
	counts map[string]int64
}

func newStubCodes() *stubCodes {
	return &stubCodes{values: map[string]string{}, counts: map[string]int64{}}
}

func (s *stubCodes) Set(_ context.Context, key string, value any, _ time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = fmt.Sprint(value)
	return nil
}

func (s *stubCodes) Get(_ context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	value, ok := s.values[key]
	if !ok {
		return "", fmt.Errorf("codes: key missing")
	}
	return value, nil
}

func (s *stubCodes) Del(_ context.Context, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, key := range keys {
		delete(s.values, key)
		delete(s.counts, key)
	}
	return nil
}

func (s *stubCodes) IncrWithTTL(_ context.Context, key string, _ time.Duration) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counts[key]++
	return s.counts[key], nil
}

func (s *stubCodes) VerificationCodeKey(email string) string {
	return "verify:" + email
}

func (s *stubCodes) VerificationAttemptsKey(email string) string {
	return "verify:attempts:" + email
}

func (s *stubCodes) storedCode(email string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	value, ok := s.values[s.VerificationCodeKey(email)]
	return value, ok
}

type sentMail struct {
	to   string
	code string
}

type stubMailer struct {
	sent chan sentMail
}

func newStubMailer() *stubMailer {
	return &stubMailer{sent: make(chan sentMail, 8)}
}

func (m *stubMailer) SendVerificationCode(_ context.Context, to, code string) error {
	m.sent <- sentMail{to: to, code: code}
	return nil
}

func (m *stubMailer) waitForMail(t *testing.T) sentMail {
	t.Helper()
	select {
	case mail := <-m.sent:
		return mail
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for verification email")
		return sentMail{}
	}
}

type authFixture struct {
	svc      Service
	repo     *Repository
	sessions *stubSessions
	codes    *stubCodes
	mailer   *stubMailer
	jwtCfg   config.JWTConfig
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()

	repo := NewRepository(openAdminDB(t))
	sessions := newStubSessions()
	codes := newStubCodes()
	mail := newStubMailer()
	jwtCfg := config.JWTConfig{Secret: "secret", Issuer: "fangallery", ExpirationMinutes: 5}

	svc, err := NewService(ServiceParams{
		AdminRepo:      repo,
		SessionManager: sessions,
		Codes:          codes,
		Mailer:         mail,
		JWTConfig:      jwtCfg,
		PasswordConfig: config.PasswordConfig{},
		Verification:   config.VerificationConfig{CodeTTL: time.Minute, MaxAttempts: 3},
	})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return &authFixture{svc: svc, repo: repo, sessions: sessions, codes: codes, mailer: mail, jwtCfg: jwtCfg}
}

func (fx *authFixture) registerAndVerify(t *testing.T, email, password string) {
	t.Helper()
	ctx := context.Background()

	if _, err := fx.svc.Register(ctx, RegisterRequest{Email: email, Password: password, DisplayName: "Ops"}); err != nil {
		t.Fatalf("register: %v", err)
	}
	mail := fx.mailer.waitForMail(t)
	if err := fx.svc.Verify(ctx, VerifyRequest{Email: email, Code: mail.code}); err != nil {
		t.Fatalf("verify: %v", err)
	}
}

func TestRegisterCreatesPendingAdminAndEmailsCode(t *testing.T) {
	t.Parallel()

	fx := newAuthFixture(t)
	ctx := context.Background()

	resp, err := fx.svc.Register(ctx, RegisterRequest{
		Email:       "  Ops@Example.COM ",
		Password:    "correct horse battery",
		DisplayName: "Ops",
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if resp.Email != "ops@example.com" {
		t.Fatalf("expected normalized email, got %q", resp.Email)
	}

	admin, err := fx.repo.FindByEmail(ctx, "ops@example.com")
	if err != nil {
		t.Fatalf("find admin: %v", err)
	}
	if admin.IsVerified {
		t.Fatal("freshly registered admin must not be verified")
	}

	mail := fx.mailer.waitForMail(t)
	if mail.to != "ops@example.com" {
		t.Fatalf("unexpected recipient %q", mail.to)
	}
	stored, ok := fx.codes.storedCode("ops@example.com")
	if !ok || stored != mail.code {
		t.Fatalf("expected stored code %q to match emailed code %q", stored, mail.code)
	}
	if len(mail.code) != verificationCodeLength {
		t.Fatalf("unexpected code length %d", len(mail.code))
	}
}

func TestRegisterConflictForVerifiedAccount(t *testing.T) {
	t.Parallel()

	fx := newAuthFixture(t)
	fx.registerAndVerify(t, "ops@example.com", "correct horse battery")

	_, err := fx.svc.Register(context.Background(), RegisterRequest{
		Email:       "ops@example.com",
		Password:    "another password!",
		DisplayName: "Ops Again",
	})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeConflict {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestRegisterResendsCodeForPendingAccount(t *testing.T) {
	t.Parallel()

	fx := newAuthFixture(t)
	ctx := context.Background()

	req := RegisterRequest{Email: "ops@example.com", Password: "correct horse battery", DisplayName: "Ops"}
	if _, err := fx.svc.Register(ctx, req); err != nil {
		t.Fatalf("first register: %v", err)
	}
	first := fx.mailer.waitForMail(t)

	if _, err := fx.svc.Register(ctx, req); err != nil {
		t.Fatalf("second register: %v", err)
	}
	second := fx.mailer.waitForMail(t)
	if second.to != first.to {
		t.Fatalf("unexpected recipient %q", second.to)
	}

	// The latest code wins.
	stored, ok := fx.codes.storedCode("ops@example.com")
	if !ok || stored != second.code {
		t.Fatalf("expected latest code %q to be stored, got %q", second.code, stored)
	}
}

func TestVerifyWrongCodeAndAttemptLimit(t *testing.T) {
	t.Parallel()

	fx := newAuthFixture(t)
	ctx := context.Background()

	if _, err := fx.svc.Register(ctx, RegisterRequest{Email: "ops@example.com", Password: "correct horse battery", DisplayName: "Ops"}); err != nil {
		t.Fatalf("register: %v", err)
	}
	fx.mailer.waitForMail(t)

	for i := 0; i < 3; i++ {
		err := fx.svc.Verify(ctx, VerifyRequest{Email: "ops@example.com", Code: "000000"})
		if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeUnauthorized {
			t.Fatalf("attempt %d: expected unauthorized, got %v", i+1, err)
		}
	}

	err := fx.svc.Verify(ctx, VerifyRequest{Email: "ops@example.com", Code: "000000"})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeRateLimit {
		t.Fatalf("expected rate limit after exhausted attempts, got %v", err)
	}
}

func TestVerifyActivatesAccountAndClearsCode(t *testing.T) {
	t.Parallel()

	fx := newAuthFixture(t)
	ctx := context.Background()

	fx.registerAndVerify(t, "ops@example.com", "correct horse battery")

	admin, err := fx.repo.FindByEmail(ctx, "ops@example.com")
	if err != nil {
		t.Fatalf("find admin: %v", err)
	}
	if !admin.IsVerified || admin.VerifiedAt == nil {
		t.Fatalf("expected verified admin, got %+v", admin)
	}
	if _, ok := fx.codes.storedCode("ops@example.com"); ok {
		t.Fatal("expected consumed code to be deleted")
	}
}

func TestLoginRejectsUnverifiedAndBadPassword(t *testing.T) {
	t.Parallel()

	fx := newAuthFixture(t)
	ctx := context.Background()

	if _, err := fx.svc.Register(ctx, RegisterRequest{Email: "ops@example.com", Password: "correct horse battery", DisplayName: "Ops"}); err != nil {
		t.Fatalf("register: %v", err)
	}
	mail := fx.mailer.waitForMail(t)

	_, err := fx.svc.Login(ctx, LoginRequest{Email: "ops@example.com", Password: "correct horse battery"})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeUnauthorized {
		t.Fatalf("unverified login should be unauthorized, got %v", err)
	}

	if err := fx.svc.Verify(ctx, VerifyRequest{Email: "ops@example.com", Code: mail.code}); err != nil {
		t.Fatalf("verify: %v", err)
	}

	_, err = fx.svc.Login(ctx, LoginRequest{Email: "ops@example.com", Password: "wrong password!!"})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeUnauthorized {
		t.Fatalf("bad password should be unauthorized, got %v", err)
	}

	_, err = fx.svc.Login(ctx, LoginRequest{Email: "nobody@example.com", Password: "whatever at all"})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeUnauthorized {
		t.Fatalf("unknown email should be unauthorized, got %v", err)
	}
}

func TestLoginIssuesTokenPair(t *testing.T) {
	t.Parallel()

	fx := newAuthFixture(t)
	ctx := context.Background()
	fx.registerAndVerify(t, "ops@example.com", "correct horse battery")

	resp, err := fx.svc.Login(ctx, LoginRequest{Email: "OPS@example.com", Password: "correct horse battery"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if resp.Admin.Email != "ops@example.com" {
		t.Fatalf("unexpected admin in response: %+v", resp.Admin)
	}

	claims, err := pkgAuth.ParseAccessToken(fx.jwtCfg, resp.AccessToken)
	if err != nil {
		t.Fatalf("parse minted token: %v", err)
	}
	if claims.Email != "ops@example.com" || claims.AdminID != resp.Admin.ID {
		t.Fatalf("unexpected claims: %+v", claims)
	}
	if resp.RefreshToken != "refresh-"+claims.ID {
		t.Fatalf("expected refresh token bound to jti, got %q", resp.RefreshToken)
	}
}

func TestRefreshRotatesSession(t *testing.T) {
	t.Parallel()

	fx := newAuthFixture(t)
	ctx := context.Background()
	fx.registerAndVerify(t, "ops@example.com", "correct horse battery")

	login, err := fx.svc.Login(ctx, LoginRequest{Email: "ops@example.com", Password: "correct horse battery"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	resp, err := fx.svc.Refresh(ctx, RefreshRequest{AccessToken: login.AccessToken, RefreshToken: login.RefreshToken})
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	claims, err := pkgAuth.ParseAccessToken(fx.jwtCfg, resp.AccessToken)
	if err != nil {
		t.Fatalf("parse rotated token: %v", err)
	}
	if claims.AdminID != login.Admin.ID || claims.Email != "ops@example.com" {
		t.Fatalf("rotated token lost identity: %+v", claims)
	}
	if resp.RefreshToken == login.RefreshToken {
		t.Fatal("expected a fresh refresh token")
	}

	// The consumed refresh token is gone.
	_, err = fx.svc.Refresh(ctx, RefreshRequest{AccessToken: login.AccessToken, RefreshToken: login.RefreshToken})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeUnauthorized {
		t.Fatalf("expected replayed refresh to be unauthorized, got %v", err)
	}
}

func TestRefreshRejectsTamperedAccessToken(t *testing.T) {
	t.Parallel()

	fx := newAuthFixture(t)
	ctx := context.Background()
	fx.registerAndVerify(t, "ops@example.com", "correct horse battery")

	login, err := fx.svc.Login(ctx, LoginRequest{Email: "ops@example.com", Password: "correct horse battery"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	_, err = fx.svc.Refresh(ctx, RefreshRequest{AccessToken: login.AccessToken + "x", RefreshToken: login.RefreshToken})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeUnauthorized {
		t.Fatalf("expected unauthorized for tampered token, got %v", err)
	}
}

func TestLogoutRevokesSession(t *testing.T) {
	t.Parallel()

	fx := newAuthFixture(t)
	ctx := context.Background()

	if err := fx.svc.Logout(ctx, "access-1"); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if len(fx.sessions.revoked) != 1 || fx.sessions.revoked[0] != "access-1" {
		t.Fatalf("expected revoked session, got %+v", fx.sessions.revoked)
	}

	err := fx.svc.Logout(ctx, "  ")
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}
