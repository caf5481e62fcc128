package external

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/aws/aws-sdk-go-v2/aws"

	"noteria/internal/config"
	"noteria/internal/types"
)

// EmailProvider delivers a single pre-rendered message and returns the
// provider's message ID.
type EmailProvider interface {
	Send(ctx context.Context, input types.SendInput) (string, error)
}

// NewEmailProvider returns the provider selected by cfg.Provider. Reminder
// delivery is at-most-once, so neither the HTTP nor the SDK provider retries.
func NewEmailProvider(cfg config.EmailConfig, awsCfg aws.Config, logger *slog.Logger) (EmailProvider, error) {
	if logger == nil {
		logger = slog.Default()
	}

	switch cfg.Provider {
	case config.EmailProviderSES:
		return NewSESClient(awsCfg, SESClientConfig{
			ConfigSetName: cfg.SESConfigSet,
			Logger:        logger,
		}), nil
	case config.EmailProviderSendGrid:
		return NewSendGridClient(
			&http.Client{Timeout: cfg.SendTimeout},
			SendGridClientConfig{
				APIKey: cfg.SendGridAPIKey.Unmask(),
				Logger: logger,
			},
		), nil
	case config.EmailProviderStub:
		return NewStubEmailProvider(logger), nil
	default:
		return nil, fmt.Errorf("unknown email provider %q", cfg.Provider)
	}
}
