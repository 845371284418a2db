package application

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/studentmarketplace/identity-service/internal/domain"
)

var mailSubjects = map[string]string{
	TemplateAccountVerification: "Verify your account",
	TemplatePasswordReset:       "Reset your password",
	TemplateRegistrationWelcome: "Welcome to the marketplace",
}

// HandleEmailJob is the delivery-subsystem consumer for transactional mail.
// A transport failure is returned as an error so the bus routes the message
// through retry and, eventually, the dead-letter destination; it never
// propagates to the request that enqueued the job.
func (s *Service) HandleEmailJob(ctx context.Context, payload []byte) error {
	var job EmailJob
	if err := json.Unmarshal(payload, &job); err != nil {
		return fmt.Errorf("%w: decode email job: %v", domain.ErrInvalidInput, err)
	}

	subject, ok := mailSubjects[job.Template]
	if !ok {
		return fmt.Errorf("%w: unknown mail template %q", domain.ErrInvalidInput, job.Template)
	}

	if err := s.mailer.Send(ctx, job.To, subject, job.Template, job.Context); err != nil {
		slog.Default().WarnContext(ctx, "mail send failed",
			"module", "application",
			"layer", "application",
			"operation", "handle_email_job",
			"outcome", "failure",
			"template", job.Template,
			"error", err,
		)
		return fmt.Errorf("%w: %v", domain.ErrMailDelivery, err)
	}

	slog.Default().InfoContext(ctx, "mail sent",
		"module", "application",
		"layer", "application",
		"operation", "handle_email_job",
		"outcome", "success",
		"template", job.Template,
	)
	return nil
}
