package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	pkgAuth "github.com/mirelletran/fangallery-backend/pkg/auth"
	"github.com/mirelletran/fangallery-backend/pkg/auth/session"
	"github.com/mirelletran/fangallery-backend/pkg/config"
	"github.com/mirelletran/fangallery-backend/pkg/db/models"
	pkgerrors "github.com/mirelletran/fangallery-backend/pkg/errors"
	"github.com/mirelletran/fangallery-backend/pkg/logger"
	"github.com/mirelletran/fangallery-backend/pkg/security"
)

const (
	invalidCredentialsMessage = "invalid credentials"
	invalidCodeMessage        = "invalid or expired verification code"
	verificationCodeLength    = 6
	mailSendTimeout           = 10 * time.Second
)

// Service defines the behavior needed by the auth controller.
type Service interface {
	Register(ctx context.Context, req RegisterRequest) (*RegisterResponse, error)
	Verify(ctx context.Context, req VerifyRequest) error
	Login(ctx context.Context, req LoginRequest) (*LoginResponse, error)
	Refresh(ctx context.Context, req RefreshRequest) (*RefreshResponse, error)
	Logout(ctx context.Context, accessID string) error
}

type adminRepository interface {
	FindByEmail(ctx context.Context, email string) (*models.AdminUser, error)
	Create(ctx context.Context, admin *models.AdminUser) error
	MarkVerified(ctx context.Context, id uuid.UUID, at time.Time) error
}

type sessionManager interface {
	Generate(ctx context.Context, accessID string) (string, error)
	Rotate(ctx context.Context, oldAccessID, provided string) (string, string, error)
	Revoke(ctx context.Context, accessID string) error
}

// codeStore covers the Redis surface used for verification codes and
// their per-email attempt counters.
type codeStore interface {
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, error)
	Del(ctx context.Context, keys ...string) error
	IncrWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, error)
	VerificationCodeKey(email string) string
	VerificationAttemptsKey(email string) string
}

type codeMailer interface {
	SendVerificationCode(ctx context.Context, to, code string) error
}

// ServiceParams bundles the dependencies required to build an auth service.
type ServiceParams struct {
	AdminRepo      adminRepository
	SessionManager sessionManager
	Codes          codeStore
	Mailer         codeMailer
	JWTConfig      config.JWTConfig
	PasswordConfig config.PasswordConfig
	Verification   config.VerificationConfig
	Logger         *logger.Logger
	Now            func() time.Time
}

type service struct {
	admins      adminRepository
	session     sessionManager
	codes       codeStore
	mailer      codeMailer
	jwtCfg      config.JWTConfig
	passwordCfg config.PasswordConfig
	verifyCfg   config.VerificationConfig
	logg        *logger.Logger
	now         func() time.Time
}

// NewService constructs an admin auth service with the provided dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.AdminRepo == nil {
		return nil, fmt.Errorf("admin repository is required")
	}
	if params.SessionManager == nil {
		return nil, fmt.Errorf("session manager is required")
	}
	if params.Codes == nil {
		return nil, fmt.Errorf("code store is required")
	}
	if params.Mailer == nil {
		return nil, fmt.Errorf("mailer is required")
	}
	if params.Verification.CodeTTL <= 0 {
		return nil, fmt.Errorf("verification code ttl must be positive")
	}
	if params.Verification.MaxAttempts <= 0 {
		return nil, fmt.Errorf("verification max attempts must be positive")
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &service{
		admins:      params.AdminRepo,
		session:     params.SessionManager,
		codes:       params.Codes,
		mailer:      params.Mailer,
		jwtCfg:      params.JWTConfig,
		passwordCfg: params.PasswordConfig,
		verifyCfg:   params.Verification,
		logg:        params.Logger,
		now:         now,
	}, nil
}

// Register creates an unverified admin account and emails a one-time code.
// Registering again while unverified re-issues the code without touching the
// stored credentials.
func (s *service) Register(ctx context.Context, req RegisterRequest) (*RegisterResponse, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "email is required")
	}
	if strings.TrimSpace(req.DisplayName) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "display name is required")
	}

	existing, err := s.admins.FindByEmail(ctx, email)
	switch {
	case err == nil && existing.IsVerified:
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "email already registered")
	case err == nil:
		// Pending account; fall through and send a fresh code.
	case errors.Is(err, gorm.ErrRecordNotFound):
		passwordHash, hashErr := security.HashPassword(req.Password, s.passwordCfg)
		if hashErr != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, hashErr, "hash password")
		}
		admin := &models.AdminUser{
			Email:        email,
			PasswordHash: passwordHash,
			DisplayName:  strings.TrimSpace(req.DisplayName),
		}
		if createErr := s.admins.Create(ctx, admin); createErr != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, createErr, "create admin")
		}
	default:
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "check admin email")
	}

	if err := s.issueCode(ctx, email); err != nil {
		return nil, err
	}
	return &RegisterResponse{Email: email}, nil
}

func (s *service) issueCode(ctx context.Context, email string) error {
	code, err := security.GenerateVerificationCode(verificationCodeLength)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generate verification code")
	}
	if err := s.codes.Set(ctx, s.codes.VerificationCodeKey(email), code, s.verifyCfg.CodeTTL); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store verification code")
	}

	// Mail delivery is fire-and-forget; a lost email is recovered by
	// registering again, while the account row already exists.
	go func() {
		sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), mailSendTimeout)
		defer cancel()
		if err := s.mailer.SendVerificationCode(sendCtx, email, code); err != nil && s.logg != nil {
			s.logg.Error(sendCtx, "sending verification code email", err)
		}
	}()
	return nil
}

// Verify checks the emailed code and activates the account. Attempts are
// counted per email so a code cannot be brute forced within its TTL.
func (s *service) Verify(ctx context.Context, req VerifyRequest) error {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	code := strings.TrimSpace(req.Code)
	if email == "" || code == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "email and code are required")
	}

	attempts, err := s.codes.IncrWithTTL(ctx, s.codes.VerificationAttemptsKey(email), s.verifyCfg.CodeTTL)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count verification attempts")
	}
	if attempts > int64(s.verifyCfg.MaxAttempts) {
		return pkgerrors.New(pkgerrors.CodeRateLimit, "too many verification attempts")
	}

	stored, err := s.codes.Get(ctx, s.codes.VerificationCodeKey(email))
	if err != nil {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCodeMessage)
	}
	if subtle.ConstantTimeCompare([]byte(stored), []byte(code)) != 1 {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCodeMessage)
	}

	admin, err := s.admins.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCodeMessage)
		}
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup admin")
	}
	if !admin.IsVerified {
		if err := s.admins.MarkVerified(ctx, admin.ID, s.now().UTC()); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mark admin verified")
		}
	}

	if err := s.codes.Del(ctx, s.codes.VerificationCodeKey(email), s.codes.VerificationAttemptsKey(email)); err != nil && s.logg != nil {
		s.logg.Warn(ctx, "clearing consumed verification code failed")
	}
	return nil
}

// Login authenticates a verified admin and issues an access/refresh pair.
func (s *service) Login(ctx context.Context, req LoginRequest) (*LoginResponse, error) {
	admin, err := s.authenticate(ctx, req.Email, req.Password)
	if err != nil {
		return nil, err
	}

	accessID := session.NewAccessID()
	accessToken, err := pkgAuth.MintAccessToken(s.jwtCfg, s.now().UTC(), pkgAuth.AccessTokenPayload{
		AdminID: admin.ID,
		Email:   admin.Email,
		JTI:     accessID,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mint jwt")
	}
	refreshToken, err := s.session.Generate(ctx, accessID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "store refresh token")
	}

	return &LoginResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		Admin:        FromModel(admin),
	}, nil
}

// Refresh rotates the session behind a possibly expired access token.
func (s *service) Refresh(ctx context.Context, req RefreshRequest) (*RefreshResponse, error) {
	claims, err := pkgAuth.ParseExpiredAccessToken(s.jwtCfg, req.AccessToken)
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
	}

	newAccessID, newRefresh, err := s.session.Rotate(ctx, claims.ID, req.RefreshToken)
	if err != nil {
		if errors.Is(err, session.ErrInvalidRefreshToken) {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "rotate session")
	}

	accessToken, err := pkgAuth.MintAccessToken(s.jwtCfg, s.now().UTC(), pkgAuth.AccessTokenPayload{
		AdminID: claims.AdminID,
		Email:   claims.Email,
		JTI:     newAccessID,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mint jwt")
	}

	return &RefreshResponse{AccessToken: accessToken, RefreshToken: newRefresh}, nil
}

// Logout revokes the refresh session tied to the access identifier.
func (s *service) Logout(ctx context.Context, accessID string) error {
	if strings.TrimSpace(accessID) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "access id is required")
	}
	if err := s.session.Revoke(ctx, accessID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "revoke session")
	}
	return nil
}

func (s *service) authenticate(ctx context.Context, email, password string) (*models.AdminUser, error) {
	input := strings.TrimSpace(email)
	if input == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
	}
	admin, err := s.admins.FindByEmail(ctx, strings.ToLower(input))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup admin")
	}

	valid, err := security.VerifyPassword(password, admin.PasswordHash)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "verify password")
	}
	if !valid || !admin.IsVerified {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
	}
	return admin, nil
}
