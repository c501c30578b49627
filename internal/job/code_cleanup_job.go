package job

import (
	"context"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/passport/internal/service"
)

// CodeCleanupJob reclaims verification codes past the retention
// horizon. It runs on its own schedule and shares no state with the
// request path.
type CodeCleanupJob struct {
	verifier *service.VerificationService
}

func NewCodeCleanupJob(verifier *service.VerificationService) *CodeCleanupJob {
	return &CodeCleanupJob{verifier: verifier}
}

func (j *CodeCleanupJob) Name() string {
	return "verification_code_cleanup"
}

func (j *CodeCleanupJob) Run(ctx context.Context) error {
	removed, err := j.verifier.CleanupExpired(ctx)
	if err != nil {
		return err
	}
	if removed > 0 {
		logutil.GetLogger(ctx).Info("verification codes reclaimed", zap.Int64("removed", removed))
	}
	return nil
}
