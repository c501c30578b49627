package service

import (
	"context"

	"github.com/xxxsen/passport/internal/model"
)

// CodeStore is the durable record of issued verification codes.
// Implemented by repo.VerificationRepo.
type CodeStore interface {
	Create(ctx context.Context, code *model.VerificationCode) error
	LatestActive(ctx context.Context, email, purpose string) (*model.VerificationCode, error)
	CountSince(ctx context.Context, email string, since int64) (int64, error)
	RetireActive(ctx context.Context, email, purpose string) error
	IncrementAttempts(ctx context.Context, id string) (int, error)
	// MarkUsed must be conditional on the code being unused and return
	// ErrNotFound otherwise, so concurrent validations have one winner.
	MarkUsed(ctx context.Context, id string) error
	DeleteBefore(ctx context.Context, cutoff int64) (int64, error)
}

// AccountStore is the local account record. Implemented by repo.UserRepo.
type AccountStore interface {
	Create(ctx context.Context, user *model.User) error
	GetByID(ctx context.Context, userID string) (*model.User, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	GetByProviderID(ctx context.Context, provider, subjectID string) (*model.User, error)
	EmailExists(ctx context.Context, email string) (bool, error)
	SetProviderID(ctx context.Context, userID, provider, subjectID string, mtime int64) error
	UpdatePassword(ctx context.Context, userID, passwordHash string, mtime int64) error
}

// EmailSender delivers a verification code to an address.
type EmailSender interface {
	Send(to, code, purpose string) error
}

// TokenIssuer turns a resolved account into an opaque bearer credential.
type TokenIssuer interface {
	Issue(user *model.User) (string, error)
}
