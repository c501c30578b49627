package service

import (
	"fmt"

	"gopkg.in/gomail.v2"

	"github.com/xxxsen/passport/internal/config"
	"github.com/xxxsen/passport/internal/model"
	appErr "github.com/xxxsen/passport/internal/pkg/errors"
)

type smtpSender struct {
	dialer *gomail.Dialer
	cfg    config.MailConfig
}

func NewEmailSender(cfg config.MailConfig) EmailSender {
	return &smtpSender{
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
		cfg:    cfg,
	}
}

func (s *smtpSender) Send(to, code, purpose string) error {
	if s.cfg.Host == "" || s.cfg.Port == 0 || s.cfg.From == "" {
		return appErr.ErrInvalid
	}
	m := gomail.NewMessage()
	if s.cfg.FromName != "" {
		m.SetAddressHeader("From", s.cfg.From, s.cfg.FromName)
	} else {
		m.SetHeader("From", s.cfg.From)
	}
	m.SetHeader("To", to)
	m.SetHeader("Subject", subjectFor(purpose))
	m.SetBody("text/html", bodyFor(code, purpose))
	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("send verification email: %w", err)
	}
	return nil
}

func subjectFor(purpose string) string {
	if purpose == model.PurposeResetPassword {
		return "Your password reset code"
	}
	return "Your verification code"
}

func bodyFor(code, purpose string) string {
	action := "continue"
	switch purpose {
	case model.PurposeLogin:
		action = "sign in"
	case model.PurposeRegister:
		action = "complete your registration"
	case model.PurposeResetPassword:
		action = "reset your password"
	}
	return fmt.Sprintf(`
		<h2>Verification code</h2>
		<p>Use the code below to %s:</p>
		<p style="font-size:28px;font-weight:bold;letter-spacing:6px">%s</p>
		<p>The code expires in 10 minutes. If you did not request it, you can ignore this email.</p>
	`, action, code)
}
