package notify

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"

	"github.com/studioflow/class-payroll-service/internal/config"
)

const (
	sendgridHost     = "https://api.sendgrid.com"
	sendgridEndpoint = "/v3/mail/send"
)

type SendgridNotifier struct {
	key        string
	host       string
	from       *sgmail.Email
	subjPrefix string
	logger     *slog.Logger
}

func NewSendgridNotifier(cfg config.MailConfig, logger *slog.Logger) *SendgridNotifier {
	return &SendgridNotifier{
		key:        cfg.SendgridAPIKey,
		host:       sendgridHost,
		from:       sgmail.NewEmail(cfg.AppName, cfg.From),
		subjPrefix: "[" + cfg.AppName + "] ",
		logger:     logger,
	}
}

func (n *SendgridNotifier) SendPasswordReset(ctx context.Context, msg PasswordReset) error {
	text, html, err := renderReset(msg)
	if err != nil {
		return err
	}

	p := sgmail.NewPersonalization()
	p.Subject = n.subjPrefix + "Redefinição de senha"
	p.AddTos(sgmail.NewEmail(msg.Name, msg.To))

	m := sgmail.NewV3Mail()
	m.SetFrom(n.from)
	m.AddPersonalizations(p)
	m.AddContent(
		sgmail.NewContent("text/plain", text),
		sgmail.NewContent("text/html", html),
	)

	req := sendgrid.GetRequest(n.key, sendgridEndpoint, n.host)
	req.Method = http.MethodPost
	req.Body = sgmail.GetRequestBody(m)

	res, err := sendgrid.MakeRequestWithContext(ctx, req)
	if err != nil {
		return fmt.Errorf("failed to send reset mail: %w", err)
	}
	if res.StatusCode >= http.StatusBadRequest {
		n.logger.ErrorContext(ctx, "Sendgrid rejected reset mail", "status", res.StatusCode, "body", res.Body)
		return fmt.Errorf("sendgrid returned status %d", res.StatusCode)
	}

	n.logger.InfoContext(ctx, "Password reset mail sent", "to", msg.To)
	return nil
}
