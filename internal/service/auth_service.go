package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"messmate/config"
	"messmate/internal/auth"
	"messmate/internal/domain"
	"messmate/internal/models"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var (
	ErrEmailExists         = errors.New("email already registered")
	ErrInvalidCreds        = errors.New("invalid email or password")
	ErrEmailNotVerified    = errors.New("email not verified")
	ErrInvalidOTP          = errors.New("invalid verification code")
	ErrOTPExpired          = errors.New("verification code expired")
	ErrOTPAttemptsExceeded = errors.New("too many attempts; request a new code")
	ErrUserNotFound        = errors.New("user not found")
	ErrInvalidRole         = errors.New("role not allowed for self-registration")
	ErrWeakPassword        = errors.New("password must be at least 8 characters")
)

const minPasswordLen = 8

type UserStore interface {
	Create(u *models.User) error
	GetByID(id uint) (*models.User, error)
	GetByEmail(email string) (*models.User, error)
	Update(u *models.User) error
}

type OTPStore interface {
	Create(o *models.UserOTP) error
	Latest(userID uint, purpose string) (*models.UserOTP, error)
	Update(o *models.UserOTP) error
	ConsumeAll(userID uint, purpose string, at time.Time) error
}

type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

type RegisterInput struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
	Name     string `json:"name"`
	Phone    string `json:"phone"`
	Role     string `json:"role"`
}

type AuthService struct {
	cfg     *config.Config
	users   UserStore
	otps    OTPStore
	mailer  Mailer
	now     func() time.Time
	newCode func() (string, error)
}

func NewAuthService(cfg *config.Config, users UserStore, otps OTPStore, mailer Mailer) *AuthService {
	return &AuthService{
		cfg:     cfg,
		users:   users,
		otps:    otps,
		mailer:  mailer,
		now:     time.Now,
		newCode: generateOTP,
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Register creates an unverified account and emails a VERIFY_EMAIL code.
// ADMIN cannot be self-assigned; an empty role means USER.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	email := normalizeEmail(in.Email)
	role := in.Role
	if role == "" {
		role = domain.RoleUser
	}
	if role != domain.RoleUser && role != domain.RoleMessOwner {
		return nil, ErrInvalidRole
	}
	if len(in.Password) < minPasswordLen {
		return nil, ErrWeakPassword
	}
	_, err := s.users.GetByEmail(email)
	if err == nil {
		return nil, ErrEmailExists
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	u := &models.User{
		Email:        email,
		Name:         strings.TrimSpace(in.Name),
		Phone:        strings.TrimSpace(in.Phone),
		PasswordHash: string(hash),
		Role:         role,
	}
	if err := s.users.Create(u); err != nil {
		return nil, err
	}
	if err := s.issueOTP(ctx, u, domain.OTPPurposeVerifyEmail); err != nil {
		// The account exists; the user can ask for another code.
		log.Printf("[auth] verification code for %s not sent: %v", u.Email, err)
	}
	return u, nil
}

func (s *AuthService) Login(ctx context.Context, email, password string) (*models.User, *TokenPair, error) {
	u, err := s.users.GetByEmail(normalizeEmail(email))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, ErrInvalidCreds
		}
		return nil, nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return nil, nil, ErrInvalidCreds
	}
	if !u.Verified() {
		return u, nil, ErrEmailNotVerified
	}
	tokens, err := s.tokensFor(u)
	if err != nil {
		return nil, nil, err
	}
	return u, tokens, nil
}

// VerifyOTP confirms the account email and signs the user in.
func (s *AuthService) VerifyOTP(ctx context.Context, email, code string) (*models.User, *TokenPair, error) {
	u, err := s.userByEmail(email)
	if err != nil {
		return nil, nil, err
	}
	if err := s.checkOTP(u.ID, domain.OTPPurposeVerifyEmail, code); err != nil {
		return nil, nil, err
	}
	if u.EmailVerifiedAt == nil {
		now := s.now()
		u.EmailVerifiedAt = &now
		if err := s.users.Update(u); err != nil {
			return nil, nil, err
		}
	}
	tokens, err := s.tokensFor(u)
	if err != nil {
		return nil, nil, err
	}
	return u, tokens, nil
}

// ResendOTP issues a fresh code, invalidating earlier ones for the purpose.
func (s *AuthService) ResendOTP(ctx context.Context, email, purpose string) error {
	if purpose == "" {
		purpose = domain.OTPPurposeVerifyEmail
	}
	if purpose != domain.OTPPurposeVerifyEmail && purpose != domain.OTPPurposeResetPassword {
		return fmt.Errorf("unknown otp purpose %q", purpose)
	}
	u, err := s.userByEmail(email)
	if err != nil {
		return err
	}
	return s.issueOTP(ctx, u, purpose)
}

// ForgotPassword emails a RESET_PASSWORD code. Unknown addresses succeed
// silently so callers cannot enumerate accounts.
func (s *AuthService) ForgotPassword(ctx context.Context, email string) error {
	u, err := s.userByEmail(email)
	if errors.Is(err, ErrUserNotFound) {
		log.Printf("[auth] password reset requested for unknown email")
		return nil
	}
	if err != nil {
		return err
	}
	return s.issueOTP(ctx, u, domain.OTPPurposeResetPassword)
}

func (s *AuthService) ResetPassword(ctx context.Context, email, code, newPassword string) error {
	if len(newPassword) < minPasswordLen {
		return ErrWeakPassword
	}
	u, err := s.userByEmail(email)
	if err != nil {
		return err
	}
	if err := s.checkOTP(u.ID, domain.OTPPurposeResetPassword, code); err != nil {
		return err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.PasswordHash = string(hash)
	if u.EmailVerifiedAt == nil {
		// Receiving the reset code proves ownership of the address.
		now := s.now()
		u.EmailVerifiedAt = &now
	}
	return s.users.Update(u)
}

func (s *AuthService) RefreshToken(ctx context.Context, refreshToken string) (*TokenPair, error) {
	id, err := auth.ParseRefreshToken(&s.cfg.JWT, refreshToken)
	if err != nil {
		return nil, err
	}
	u, err := s.users.GetByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, auth.ErrInvalidToken
		}
		return nil, err
	}
	return s.tokensFor(u)
}

func (s *AuthService) Me(userID uint) (*models.User, error) {
	u, err := s.users.GetByID(userID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}
	return u, err
}

func (s *AuthService) userByEmail(email string) (*models.User, error) {
	u, err := s.users.GetByEmail(normalizeEmail(email))
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}
	return u, err
}

func (s *AuthService) tokensFor(u *models.User) (*TokenPair, error) {
	access, err := auth.GenerateAccessToken(&s.cfg.JWT, u.ID, u.Email, u.Role)
	if err != nil {
		return nil, err
	}
	refresh, err := auth.GenerateRefreshToken(&s.cfg.JWT, u.ID)
	if err != nil {
		return nil, err
	}
	return &TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

func (s *AuthService) issueOTP(ctx context.Context, u *models.User, purpose string) error {
	now := s.now()
	if err := s.otps.ConsumeAll(u.ID, purpose, now); err != nil {
		return fmt.Errorf("invalidate previous codes: %w", err)
	}
	code, err := s.newCode()
	if err != nil {
		return err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(code), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	err = s.otps.Create(&models.UserOTP{
		UserID:    u.ID,
		Purpose:   purpose,
		CodeHash:  string(hash),
		ExpiresAt: now.Add(s.cfg.OTP.TTL),
	})
	if err != nil {
		return err
	}
	subject, body, err := renderOTPEmail(u.Name, purpose, code, int(s.cfg.OTP.TTL/time.Minute))
	if err != nil {
		return err
	}
	return s.mailer.Send(ctx, u.Email, subject, body)
}

func (s *AuthService) checkOTP(userID uint, purpose, code string) error {
	o, err := s.otps.Latest(userID, purpose)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrInvalidOTP
	}
	if err != nil {
		return err
	}
	if o.Expired(s.now()) {
		return ErrOTPExpired
	}
	if o.Attempts >= s.cfg.OTP.MaxAttempts {
		return ErrOTPAttemptsExceeded
	}
	if bcrypt.CompareHashAndPassword([]byte(o.CodeHash), []byte(strings.TrimSpace(code))) != nil {
		o.Attempts++
		if err := s.otps.Update(o); err != nil {
			return err
		}
		return ErrInvalidOTP
	}
	now := s.now()
	o.ConsumedAt = &now
	return s.otps.Update(o)
}
