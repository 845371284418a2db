package ports

import "context"

// Mailer is the external mail transport collaborator. Failures surface as
// errors and are not retried here; retry is the delivery subsystem's job, one
// layer up.
type Mailer interface {
	Send(ctx context.Context, to, subject, templateID string, templateContext map[string]string) error
}
