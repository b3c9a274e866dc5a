package services

import (
	"sync"

	"go.uber.org/zap"

	"github.com/meinhoongagan/carenest/utils"
)

var (
	mailerMu sync.RWMutex
	mailer   utils.Mailer = utils.NopMailer{}
)

// SetMailer installs the outbound mail transport. nil restores the no-op mailer.
func SetMailer(m utils.Mailer) {
	mailerMu.Lock()
	defer mailerMu.Unlock()
	if m == nil {
		m = utils.NopMailer{}
	}
	mailer = m
}

// Mailer returns the installed transport.
func Mailer() utils.Mailer {
	mailerMu.RLock()
	defer mailerMu.RUnlock()
	return mailer
}

// sendEmail delivers in the background; failures are logged only.
func sendEmail(to, subject, body string) {
	m := Mailer()
	go func() {
		if err := m.Send(to, subject, body); err != nil {
			zap.L().Warn("failed to send email", zap.String("to", to), zap.String("subject", subject), zap.Error(err))
		}
	}()
}
