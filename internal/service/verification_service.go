package service

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"errors"
	"math/big"
	"strings"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/passport/internal/model"
	appErr "github.com/xxxsen/passport/internal/pkg/errors"
	"github.com/xxxsen/passport/internal/pkg/timeutil"
)

// VerificationConfig holds the lifecycle knobs of the one-time-code
// state machine. Zero fields fall back to the defaults below.
type VerificationConfig struct {
	CodeLength      int
	CodeTTL         time.Duration
	MaxAttempts     int
	MaxCodesPerHour int
	Retention       time.Duration
}

func (c VerificationConfig) withDefaults() VerificationConfig {
	if c.CodeLength <= 0 {
		c.CodeLength = 6
	}
	if c.CodeTTL <= 0 {
		c.CodeTTL = 10 * time.Minute
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 5
	}
	if c.MaxCodesPerHour <= 0 {
		c.MaxCodesPerHour = 3
	}
	if c.Retention <= 0 {
		c.Retention = 24 * time.Hour
	}
	return c
}

// VerificationService owns issuing, validating and retiring one-time
// email codes.
type VerificationService struct {
	codes  CodeStore
	sender EmailSender
	cfg    VerificationConfig
	now    func() int64
}

func NewVerificationService(codes CodeStore, sender EmailSender, cfg VerificationConfig) *VerificationService {
	return &VerificationService{
		codes:  codes,
		sender: sender,
		cfg:    cfg.withDefaults(),
		now:    timeutil.NowUnix,
	}
}

// IssueCode creates and dispatches a fresh code for (email, purpose).
// Every previously active code for the pair is retired first, so at
// most one code per pair is normally live. A dispatch failure surfaces
// as ErrDispatchFailed but leaves the stored code active: the retry
// path is a resend, not a second record.
func (s *VerificationService) IssueCode(ctx context.Context, email, purpose, originIP string) error {
	email = NormalizeEmail(email)
	if email == "" || !model.KnownPurpose(purpose) {
		return appErr.ErrInvalid
	}
	windowStart := s.now() - int64(time.Hour/time.Second)
	issued, err := s.codes.CountSince(ctx, email, windowStart)
	if err != nil {
		return err
	}
	if issued >= int64(s.cfg.MaxCodesPerHour) {
		logutil.GetLogger(ctx).Warn("code issuance rate limited",
			zap.String("email", email), zap.String("purpose", purpose))
		return appErr.ErrRateLimited
	}
	if err := s.codes.RetireActive(ctx, email, purpose); err != nil {
		return err
	}
	code, err := generateCode(s.cfg.CodeLength)
	if err != nil {
		return err
	}
	now := s.now()
	item := &model.VerificationCode{
		ID:        newID(),
		Email:     email,
		Purpose:   purpose,
		Code:      code,
		OriginIP:  originIP,
		Ctime:     now,
		ExpiresAt: now + int64(s.cfg.CodeTTL/time.Second),
	}
	if err := s.codes.Create(ctx, item); err != nil {
		return err
	}
	if err := s.sender.Send(email, code, purpose); err != nil {
		logutil.GetLogger(ctx).Error("code dispatch failed",
			zap.String("email", email), zap.String("purpose", purpose), zap.Error(err))
		return appErr.ErrDispatchFailed
	}
	return nil
}

// ValidateCode checks a candidate against the newest active code for
// (email, purpose). It returns (false, nil) both when no code exists
// and when the candidate is wrong, so callers cannot tell the two
// apart. The attempt counter is persisted before expiry or equality are
// evaluated, and the final mark-used is conditional so two concurrent
// calls cannot both succeed.
func (s *VerificationService) ValidateCode(ctx context.Context, email, candidate, purpose string) (bool, error) {
	email = NormalizeEmail(email)
	candidate = strings.TrimSpace(candidate)
	if email == "" || candidate == "" || !model.KnownPurpose(purpose) {
		return false, nil
	}
	item, err := s.codes.LatestActive(ctx, email, purpose)
	if err != nil {
		if errors.Is(err, appErr.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	attempts, err := s.codes.IncrementAttempts(ctx, item.ID)
	if err != nil {
		return false, err
	}
	if attempts > s.cfg.MaxAttempts {
		s.retire(ctx, item.ID)
		logutil.GetLogger(ctx).Warn("verification attempts exceeded",
			zap.String("email", email), zap.String("purpose", purpose))
		return false, appErr.ErrAttemptsExceeded
	}
	if s.now() > item.ExpiresAt {
		s.retire(ctx, item.ID)
		return false, appErr.ErrCodeExpired
	}
	if subtle.ConstantTimeCompare([]byte(item.Code), []byte(candidate)) != 1 {
		return false, nil
	}
	if err := s.codes.MarkUsed(ctx, item.ID); err != nil {
		if errors.Is(err, appErr.ErrNotFound) {
			// Lost the race against a concurrent validation.
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// CleanupExpired reclaims every code older than the retention horizon,
// used or not. The horizon is far larger than the code TTL, so nothing
// it deletes can still be active.
func (s *VerificationService) CleanupExpired(ctx context.Context) (int64, error) {
	cutoff := s.now() - int64(s.cfg.Retention/time.Second)
	return s.codes.DeleteBefore(ctx, cutoff)
}

func (s *VerificationService) retire(ctx context.Context, id string) {
	if err := s.codes.MarkUsed(ctx, id); err != nil && !errors.Is(err, appErr.ErrNotFound) {
		logutil.GetLogger(ctx).Error("retire verification code failed", zap.String("id", id), zap.Error(err))
	}
}

// generateCode draws each digit independently from crypto/rand, so the
// result is uniform over the full code space.
func generateCode(length int) (string, error) {
	digits := make([]byte, length)
	for i := range digits {
		n, err := rand.Int(rand.Reader, big.NewInt(10))
		if err != nil {
			return "", err
		}
		digits[i] = byte('0' + n.Int64())
	}
	return string(digits), nil
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
