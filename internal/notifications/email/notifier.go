// Package email renders and sends task reminder emails through an
// external EmailProvider.
package email

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"noteria/internal/external"
	"noteria/internal/types"
)

// ErrRecipientBlocked indicates the provider refused the recipient outright.
var ErrRecipientBlocked = errors.New("recipient blocked by provider")

// ReminderNotifier sends exactly one reminder email per Send call.
type ReminderNotifier struct {
	provider external.EmailProvider
	renderer *Renderer
	sender   types.SenderIdentity
	logger   types.Logger
}

// ReminderNotifierConfig holds the dependencies for a ReminderNotifier.
type ReminderNotifierConfig struct {
	Provider external.EmailProvider
	Renderer *Renderer
	Sender   types.SenderIdentity
	Logger   types.Logger
}

func NewReminderNotifier(cfg ReminderNotifierConfig) *ReminderNotifier {
	return &ReminderNotifier{
		provider: cfg.Provider,
		renderer: cfg.Renderer,
		sender:   cfg.Sender,
		logger:   cfg.Logger,
	}
}

// Send renders task and hands it to the provider. Failures are logged and
// returned; the caller decides what to record, and nothing is retried.
func (n *ReminderNotifier) Send(ctx context.Context, to string, task *types.Task) error {
	if to == "" {
		n.logger.Error("reminder email not sent: empty recipient", "task_id", task.ID)
		return fmt.Errorf("reminder notifier: empty recipient for task %s", task.ID)
	}

	rendered, err := n.renderer.Render(task)
	if err != nil {
		n.logger.Error("reminder rendering failed", "task_id", task.ID, "error", err.Error())
		return err
	}

	msgID, err := n.provider.Send(ctx, types.SendInput{
		To:          to,
		From:        n.sender,
		Subject:     rendered.Subject,
		BodyHTML:    rendered.BodyHTML,
		BodyText:    rendered.BodyText,
		ReferenceID: task.ID,
	})
	if err != nil {
		if IsBlocklistError(err) {
			n.logger.Error("reminder recipient blocked by provider",
				"dest", RedactEmail(to),
				"task_id", task.ID,
			)
			return fmt.Errorf("%w: %w", ErrRecipientBlocked, err)
		}
		n.logger.Error("reminder email send failed",
			"dest", RedactEmail(to),
			"task_id", task.ID,
			"error", err.Error(),
		)
		return err
	}

	n.logger.Info("reminder email sent",
		"dest", RedactEmail(to),
		"task_id", task.ID,
		"message_id", msgID,
	)
	return nil
}

// IsBlocklistError reports whether err means the provider has the recipient
// on a suppression list.
func IsBlocklistError(err error) bool {
	if errors.Is(err, ErrRecipientBlocked) {
		return true
	}
	var appErr *types.AppError
	if errors.As(err, &appErr) {
		return appErr.Code == types.ErrCodeEmailBlocked
	}
	return false
}

// RedactEmail keeps the first character of the local part, so
// "john@gmail.com" becomes "j***@gmail.com". Input without "@" is masked
// entirely.
func RedactEmail(addr string) string {
	if addr == "" {
		return ""
	}
	local, domain, ok := strings.Cut(addr, "@")
	if !ok {
		return "***"
	}
	if local == "" {
		return "***@" + domain
	}
	return local[:1] + "***@" + domain
}
