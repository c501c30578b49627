package service

import (
	"context"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/xxxsen/passport/internal/model"
	appErr "github.com/xxxsen/passport/internal/pkg/errors"
)

type verifierFixture struct {
	svc    *VerificationService
	codes  *memCodeStore
	sender *memSender
	clock  *int64
}

func newVerifierFixture(t *testing.T, cfg VerificationConfig) *verifierFixture {
	t.Helper()
	codes := newMemCodeStore()
	sender := &memSender{}
	svc := NewVerificationService(codes, sender, cfg)
	clock := int64(1_700_000_000)
	svc.now = func() int64 { return clock }
	f := &verifierFixture{svc: svc, codes: codes, sender: sender, clock: &clock}
	return f
}

func (f *verifierFixture) advance(d time.Duration) {
	*f.clock += int64(d / time.Second)
}

func TestIssueCodeDispatchesSixDigits(t *testing.T) {
	f := newVerifierFixture(t, VerificationConfig{})
	err := f.svc.IssueCode(context.Background(), "User@Example.com ", model.PurposeLogin, "10.0.0.1")
	require.NoError(t, err)
	require.Equal(t, 1, f.sender.count())
	mail := f.sender.last()
	require.Equal(t, "user@example.com", mail.to)
	require.Equal(t, model.PurposeLogin, mail.purpose)
	require.Regexp(t, regexp.MustCompile(`^\d{6}$`), mail.code)
}

func TestIssueCodeRejectsBadInput(t *testing.T) {
	f := newVerifierFixture(t, VerificationConfig{})
	require.ErrorIs(t, f.svc.IssueCode(context.Background(), "", model.PurposeLogin, ""), appErr.ErrInvalid)
	require.ErrorIs(t, f.svc.IssueCode(context.Background(), "a@b.com", "bogus", ""), appErr.ErrInvalid)
}

func TestIssueCodeHourlyCeiling(t *testing.T) {
	f := newVerifierFixture(t, VerificationConfig{})
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		require.NoError(t, f.svc.IssueCode(ctx, "a@b.com", model.PurposeLogin, ""))
		f.advance(time.Minute)
	}
	// The window counts across purposes.
	require.ErrorIs(t, f.svc.IssueCode(ctx, "a@b.com", model.PurposeRegister, ""), appErr.ErrRateLimited)

	f.advance(time.Hour)
	require.NoError(t, f.svc.IssueCode(ctx, "a@b.com", model.PurposeRegister, ""))
}

func TestIssueCodeRetiresPriorCode(t *testing.T) {
	f := newVerifierFixture(t, VerificationConfig{})
	ctx := context.Background()

	require.NoError(t, f.svc.IssueCode(ctx, "a@b.com", model.PurposeLogin, ""))
	first := f.sender.last().code
	f.advance(time.Minute)
	require.NoError(t, f.svc.IssueCode(ctx, "a@b.com", model.PurposeLogin, ""))
	second := f.sender.last().code

	ok, err := f.svc.ValidateCode(ctx, "a@b.com", first, model.PurposeLogin)
	require.NoError(t, err)
	if first == second {
		// A collision makes the first code indistinguishable from the second.
		require.True(t, ok)
		return
	}
	require.False(t, ok)

	ok, err = f.svc.ValidateCode(ctx, "a@b.com", second, model.PurposeLogin)
	require.NoError(t, err)
	require.True(t, ok)
}

func TestValidateCodeSingleSuccess(t *testing.T) {
	f := newVerifierFixture(t, VerificationConfig{})
	ctx := context.Background()
	require.NoError(t, f.svc.IssueCode(ctx, "a@b.com", model.PurposeLogin, ""))
	code := f.sender.last().code

	ok, err := f.svc.ValidateCode(ctx, "a@b.com", code, model.PurposeLogin)
	require.NoError(t, err)
	require.True(t, ok)

	// Consumed: the same code never validates twice.
	ok, err = f.svc.ValidateCode(ctx, "a@b.com", code, model.PurposeLogin)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestValidateCodeWrongCandidateCountsAttempt(t *testing.T) {
	f := newVerifierFixture(t, VerificationConfig{})
	ctx := context.Background()
	require.NoError(t, f.svc.IssueCode(ctx, "a@b.com", model.PurposeLogin, ""))
	code := f.sender.last().code
	wrong := "000000"
	if wrong == code {
		wrong = "999999"
	}

	ok, err := f.svc.ValidateCode(ctx, "a@b.com", wrong, model.PurposeLogin)
	require.NoError(t, err)
	require.False(t, ok)

	// A wrong guess does not consume the code.
	ok, err = f.svc.ValidateCode(ctx, "a@b.com", code, model.PurposeLogin)
	require.NoError(t, err)
	require.True(t, ok)
}

func TestValidateCodeAttemptsCeiling(t *testing.T) {
	f := newVerifierFixture(t, VerificationConfig{})
	ctx := context.Background()
	require.NoError(t, f.svc.IssueCode(ctx, "a@b.com", model.PurposeLogin, ""))
	code := f.sender.last().code
	wrong := "000000"
	if wrong == code {
		wrong = "999999"
	}

	for i := 0; i < 5; i++ {
		ok, err := f.svc.ValidateCode(ctx, "a@b.com", wrong, model.PurposeLogin)
		require.NoError(t, err)
		require.False(t, ok)
	}

	// The sixth attempt trips the ceiling even with the right code.
	ok, err := f.svc.ValidateCode(ctx, "a@b.com", code, model.PurposeLogin)
	require.ErrorIs(t, err, appErr.ErrAttemptsExceeded)
	require.False(t, ok)

	// The code is retired for good.
	ok, err = f.svc.ValidateCode(ctx, "a@b.com", code, model.PurposeLogin)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestValidateCodeExpiry(t *testing.T) {
	f := newVerifierFixture(t, VerificationConfig{})
	ctx := context.Background()
	require.NoError(t, f.svc.IssueCode(ctx, "a@b.com", model.PurposeLogin, ""))
	code := f.sender.last().code

	f.advance(10*time.Minute + time.Second)
	ok, err := f.svc.ValidateCode(ctx, "a@b.com", code, model.PurposeLogin)
	require.ErrorIs(t, err, appErr.ErrCodeExpired)
	require.False(t, ok)

	ok, err = f.svc.ValidateCode(ctx, "a@b.com", code, model.PurposeLogin)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestValidateCodePurposeIsolation(t *testing.T) {
	f := newVerifierFixture(t, VerificationConfig{})
	ctx := context.Background()
	require.NoError(t, f.svc.IssueCode(ctx, "a@b.com", model.PurposeRegister, ""))
	code := f.sender.last().code

	ok, err := f.svc.ValidateCode(ctx, "a@b.com", code, model.PurposeLogin)
	require.NoError(t, err)
	require.False(t, ok)

	ok, err = f.svc.ValidateCode(ctx, "a@b.com", code, model.PurposeRegister)
	require.NoError(t, err)
	require.True(t, ok)
}

func TestValidateCodeNoActiveCode(t *testing.T) {
	f := newVerifierFixture(t, VerificationConfig{})
	ok, err := f.svc.ValidateCode(context.Background(), "nobody@b.com", "123456", model.PurposeLogin)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestConcurrentValidateSingleWinner(t *testing.T) {
	f := newVerifierFixture(t, VerificationConfig{MaxAttempts: 100})
	ctx := context.Background()
	require.NoError(t, f.svc.IssueCode(ctx, "a@b.com", model.PurposeLogin, ""))
	code := f.sender.last().code

	const callers = 8
	results := make([]bool, callers)
	errs := make([]error, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = f.svc.ValidateCode(ctx, "a@b.com", code, model.PurposeLogin)
		}(i)
	}
	wg.Wait()

	wins := 0
	for i := 0; i < callers; i++ {
		require.NoError(t, errs[i])
		if results[i] {
			wins++
		}
	}
	require.Equal(t, 1, wins)
}

func TestCleanupExpired(t *testing.T) {
	f := newVerifierFixture(t, VerificationConfig{})
	ctx := context.Background()
	require.NoError(t, f.svc.IssueCode(ctx, "a@b.com", model.PurposeLogin, ""))
	require.NoError(t, f.svc.IssueCode(ctx, "c@d.com", model.PurposeRegister, ""))

	// Nothing inside the retention horizon is touched.
	removed, err := f.svc.CleanupExpired(ctx)
	require.NoError(t, err)
	require.Zero(t, removed)

	f.advance(25 * time.Hour)
	removed, err = f.svc.CleanupExpired(ctx)
	require.NoError(t, err)
	require.EqualValues(t, 2, removed)
	require.Zero(t, f.codes.count())

	// Idempotent on an empty table.
	removed, err = f.svc.CleanupExpired(ctx)
	require.NoError(t, err)
	require.Zero(t, removed)
}

func TestIssueCodeDispatchFailureKeepsCodeActive(t *testing.T) {
	f := newVerifierFixture(t, VerificationConfig{})
	ctx := context.Background()
	f.sender.failErr = appErr.ErrDispatchFailed

	err := f.svc.IssueCode(ctx, "a@b.com", model.PurposeLogin, "")
	require.ErrorIs(t, err, appErr.ErrDispatchFailed)

	// The stored code survives a failed dispatch; a resend is the retry.
	item, err := f.codes.LatestActive(ctx, "a@b.com", model.PurposeLogin)
	require.NoError(t, err)
	ok, err := f.svc.ValidateCode(ctx, "a@b.com", item.Code, model.PurposeLogin)
	require.NoError(t, err)
	require.True(t, ok)
}

func TestNormalizeEmail(t *testing.T) {
	require.Equal(t, "a@b.com", NormalizeEmail("  A@B.COM "))
	require.Equal(t, "", NormalizeEmail("   "))
}
