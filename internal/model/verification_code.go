package model

// Purpose a verification code was issued for. Codes are never valid
// across purposes.
const (
	PurposeLogin         = "login"
	PurposeRegister      = "register"
	PurposeResetPassword = "reset_password"
)

func KnownPurpose(purpose string) bool {
	switch purpose {
	case PurposeLogin, PurposeRegister, PurposeResetPassword:
		return true
	}
	return false
}

type VerificationCode struct {
	ID           string `json:"id"`
	Email        string `json:"email"`
	Purpose      string `json:"purpose"`
	Code         string `json:"code"`
	Used         int    `json:"used"`
	AttemptCount int    `json:"attempt_count"`
	OriginIP     string `json:"origin_ip"`
	Ctime        int64  `json:"ctime"`
	ExpiresAt    int64  `json:"expires_at"`
}
