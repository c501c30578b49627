package service

import (
	"context"
	"sort"
	"sync"

	"github.com/xxxsen/passport/internal/model"
	appErr "github.com/xxxsen/passport/internal/pkg/errors"
)

// In-memory stores mirroring the repo contracts, including the
// conditional mark-used semantics.

type memCodeStore struct {
	mu    sync.Mutex
	seq   int
	codes []*memCode
}

type memCode struct {
	model.VerificationCode
	seq int
}

func newMemCodeStore() *memCodeStore {
	return &memCodeStore{}
}

func (s *memCodeStore) Create(_ context.Context, code *model.VerificationCode) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	clone := *code
	s.codes = append(s.codes, &memCode{VerificationCode: clone, seq: s.seq})
	return nil
}

func (s *memCodeStore) LatestActive(_ context.Context, email, purpose string) (*model.VerificationCode, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var active []*memCode
	for _, c := range s.codes {
		if c.Email == email && c.Purpose == purpose && c.Used == 0 {
			active = append(active, c)
		}
	}
	if len(active) == 0 {
		return nil, appErr.ErrNotFound
	}
	sort.Slice(active, func(i, j int) bool {
		if active[i].Ctime != active[j].Ctime {
			return active[i].Ctime > active[j].Ctime
		}
		return active[i].seq > active[j].seq
	})
	clone := active[0].VerificationCode
	return &clone, nil
}

func (s *memCodeStore) CountSince(_ context.Context, email string, since int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var count int64
	for _, c := range s.codes {
		if c.Email == email && c.Ctime > since {
			count++
		}
	}
	return count, nil
}

func (s *memCodeStore) RetireActive(_ context.Context, email, purpose string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.codes {
		if c.Email == email && c.Purpose == purpose && c.Used == 0 {
			c.Used = 1
		}
	}
	return nil
}

func (s *memCodeStore) IncrementAttempts(_ context.Context, id string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.codes {
		if c.ID == id {
			c.AttemptCount++
			return c.AttemptCount, nil
		}
	}
	return 0, appErr.ErrNotFound
}

func (s *memCodeStore) MarkUsed(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.codes {
		if c.ID == id && c.Used == 0 {
			c.Used = 1
			return nil
		}
	}
	return appErr.ErrNotFound
}

func (s *memCodeStore) DeleteBefore(_ context.Context, cutoff int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var kept []*memCode
	var removed int64
	for _, c := range s.codes {
		if c.Ctime < cutoff {
			removed++
			continue
		}
		kept = append(kept, c)
	}
	s.codes = kept
	return removed, nil
}

func (s *memCodeStore) get(id string) *model.VerificationCode {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.codes {
		if c.ID == id {
			clone := c.VerificationCode
			return &clone
		}
	}
	return nil
}

func (s *memCodeStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.codes)
}

type memAccountStore struct {
	mu    sync.Mutex
	users []*model.User
}

func newMemAccountStore() *memAccountStore {
	return &memAccountStore{}
}

func (s *memAccountStore) providerID(u *model.User, provider string) string {
	switch provider {
	case "google":
		return u.GoogleID
	case "facebook":
		return u.FacebookID
	case "twitter":
		return u.TwitterID
	case "linkedin":
		return u.LinkedInID
	}
	return ""
}

func (s *memAccountStore) Create(_ context.Context, user *model.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Email == user.Email {
			return appErr.ErrConflict
		}
		for _, p := range []string{"google", "facebook", "twitter", "linkedin"} {
			if id := s.providerID(user, p); id != "" && s.providerID(u, p) == id {
				return appErr.ErrConflict
			}
		}
	}
	clone := *user
	s.users = append(s.users, &clone)
	return nil
}

func (s *memAccountStore) GetByID(_ context.Context, userID string) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.ID == userID {
			clone := *u
			return &clone, nil
		}
	}
	return nil, appErr.ErrNotFound
}

func (s *memAccountStore) GetByEmail(_ context.Context, email string) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Email == email {
			clone := *u
			return &clone, nil
		}
	}
	return nil, appErr.ErrNotFound
}

func (s *memAccountStore) GetByProviderID(_ context.Context, provider, subjectID string) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if s.providerID(u, provider) == subjectID && subjectID != "" {
			clone := *u
			return &clone, nil
		}
	}
	return nil, appErr.ErrNotFound
}

func (s *memAccountStore) EmailExists(ctx context.Context, email string) (bool, error) {
	_, err := s.GetByEmail(ctx, email)
	if err == nil {
		return true, nil
	}
	if appErr.IsNotFound(err) {
		return false, nil
	}
	return false, err
}

func (s *memAccountStore) SetProviderID(_ context.Context, userID, provider, subjectID string, mtime int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.ID != userID {
			continue
		}
		switch provider {
		case "google":
			u.GoogleID = subjectID
		case "facebook":
			u.FacebookID = subjectID
		case "twitter":
			u.TwitterID = subjectID
		case "linkedin":
			u.LinkedInID = subjectID
		default:
			return appErr.ErrUnknownProvider
		}
		u.Mtime = mtime
		return nil
	}
	return appErr.ErrNotFound
}

func (s *memAccountStore) UpdatePassword(_ context.Context, userID, passwordHash string, mtime int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.ID == userID {
			u.PasswordHash = passwordHash
			u.Mtime = mtime
			return nil
		}
	}
	return appErr.ErrNotFound
}

func (s *memAccountStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.users)
}

type sentMail struct {
	to      string
	code    string
	purpose string
}

type memSender struct {
	mu      sync.Mutex
	sends   []sentMail
	failErr error
}

func (s *memSender) Send(to, code, purpose string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failErr != nil {
		return s.failErr
	}
	s.sends = append(s.sends, sentMail{to: to, code: code, purpose: purpose})
	return nil
}

func (s *memSender) last() sentMail {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.sends) == 0 {
		return sentMail{}
	}
	return s.sends[len(s.sends)-1]
}

func (s *memSender) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sends)
}

type staticIssuer struct{}

func (staticIssuer) Issue(user *model.User) (string, error) {
	return "token-" + user.ID, nil
}
