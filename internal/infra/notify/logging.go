package notify

import (
	"context"

	"go.uber.org/zap"

	"github.com/securehealth/identity/internal/core/port"
	"github.com/securehealth/identity/internal/infra/logger"
)

// LoggingNotifier writes one-time codes to the log instead of delivering them.
// It is selected when no SMTP host is configured and must not run in production.
type LoggingNotifier struct {
	logger *zap.Logger
}

func NewLoggingNotifier(log *zap.Logger) *LoggingNotifier {
	if log == nil {
		log = zap.NewNop()
	}
	return &LoggingNotifier{logger: log}
}

func (n *LoggingNotifier) SendOTP(ctx context.Context, email, code string) error {
	logger.FromContext(ctx, n.logger).Warn("otp delivery stubbed",
		zap.String("email", logger.MaskEmail(email)),
		zap.String("otp", code),
	)
	return nil
}

var _ port.Notifier = (*LoggingNotifier)(nil)
