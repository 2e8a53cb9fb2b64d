package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/google/uuid"

	"github.com/studioflow/class-payroll-service/internal/models"
	"github.com/studioflow/class-payroll-service/internal/notify"
	"github.com/studioflow/class-payroll-service/internal/repositories"
)

// AuthOptions configures the password reset flow
type AuthOptions struct {
	ResetTTL     time.Duration
	ResetBaseURL string // frontend origin; the link is <base>/reset-password?token=...
}

type authService struct {
	repo     repositories.Repository
	notifier notify.Notifier
	opts     AuthOptions
	now      func() time.Time
	logger   *slog.Logger
}

func NewAuthService(repo repositories.Repository, notifier notify.Notifier, opts AuthOptions, logger *slog.Logger) AuthService {
	if opts.ResetTTL <= 0 {
		opts.ResetTTL = time.Hour
	}
	return &authService{
		repo:     repo,
		notifier: notifier,
		opts:     opts,
		now:      time.Now,
		logger:   logger,
	}
}

func toSessionUser(t *models.Teacher) *SessionUser {
	u := &SessionUser{ID: t.ID, Name: t.Name, Role: t.Role}
	if t.Email != nil {
		u.Email = *t.Email
	}
	return u
}

// ===== LOGIN =====

// Login checks the bcrypt hash; unknown email and wrong password fail alike
func (s *authService) Login(ctx context.Context, email, password string) (*SessionUser, error) {
	teacher, err := s.repo.Teacher().GetByEmail(ctx, nil, normalizeEmail(email))
	if err != nil {
		if repositories.IsNotFoundError(err) {
			s.logger.Info("Login rejected", "reason", "unknown email")
			return nil, fmt.Errorf("invalid credentials: %w", ErrUnauthorized)
		}
		return nil, fmt.Errorf("failed to load teacher: %w", err)
	}

	if !teacher.CheckPassword(password) {
		s.logger.Info("Login rejected", "teacher_id", teacher.ID, "reason", "wrong password")
		return nil, fmt.Errorf("invalid credentials: %w", ErrUnauthorized)
	}

	s.logger.Info("Login succeeded", "teacher_id", teacher.ID, "role", teacher.Role)
	return toSessionUser(teacher), nil
}

func (s *authService) Me(ctx context.Context, teacherID uint) (*SessionUser, error) {
	teacher, err := s.repo.Teacher().GetByID(ctx, nil, teacherID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, fmt.Errorf("session teacher %d no longer exists: %w", teacherID, ErrUnauthorized)
		}
		return nil, fmt.Errorf("failed to load teacher: %w", err)
	}
	return toSessionUser(teacher), nil
}

// ===== PASSWORD RESET =====

// ForgotPassword issues a reset token and mails it. Unknown emails and delivery
// failures return nil so the response never reveals which accounts exist.
func (s *authService) ForgotPassword(ctx context.Context, email string) error {
	teacher, err := s.repo.Teacher().GetByEmail(ctx, nil, normalizeEmail(email))
	if err != nil {
		if repositories.IsNotFoundError(err) {
			s.logger.Info("Password reset requested for unknown email")
			return nil
		}
		return fmt.Errorf("failed to load teacher: %w", err)
	}

	token := &models.PasswordResetToken{
		TeacherID: teacher.ID,
		Token:     uuid.NewString(),
		ExpiresAt: s.now().Add(s.opts.ResetTTL).UTC(),
	}
	if err := s.repo.PasswordReset().Create(ctx, nil, token); err != nil {
		return fmt.Errorf("failed to store reset token: %w", err)
	}

	msg := notify.PasswordReset{
		To:        *teacher.Email,
		Name:      teacher.Name,
		ResetURL:  s.resetURL(token.Token),
		ExpiresIn: s.opts.ResetTTL.String(),
	}
	if err := s.notifier.SendPasswordReset(ctx, msg); err != nil {
		s.logger.Error("Failed to deliver password reset", "teacher_id", teacher.ID, "error", err)
		return nil
	}

	s.logger.Info("Password reset issued", "teacher_id", teacher.ID, "expires_at", token.ExpiresAt)
	return nil
}

func (s *authService) resetURL(token string) string {
	return s.opts.ResetBaseURL + "/reset-password?token=" + url.QueryEscape(token)
}

// ResetPassword redeems a token once and replaces the password hash
func (s *authService) ResetPassword(ctx context.Context, token, newPassword string) error {
	stored, err := s.repo.PasswordReset().GetByToken(ctx, nil, token)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return ErrInvalidToken
		}
		return fmt.Errorf("failed to load reset token: %w", err)
	}
	if !stored.Usable(s.now()) {
		return ErrInvalidToken
	}

	var hashed models.Teacher
	if err := hashed.SetPassword(newPassword); err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	err = s.repo.WithTransaction(ctx, func(tx repositories.Repository) error {
		if err := tx.PasswordReset().MarkUsed(ctx, nil, stored.ID); err != nil {
			return err
		}
		return tx.Teacher().UpdatePassword(ctx, nil, stored.TeacherID, hashed.PasswordHash)
	})
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			// token redeemed concurrently or teacher removed
			return ErrInvalidToken
		}
		return fmt.Errorf("failed to reset password: %w", err)
	}

	s.logger.Info("Password reset completed", "teacher_id", stored.TeacherID)
	return nil
}
