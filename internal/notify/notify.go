package notify

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"log/slog"

	"github.com/studioflow/class-payroll-service/internal/config"
)

// PasswordReset is the content of a reset mail
type PasswordReset struct {
	To        string
	Name      string
	ResetURL  string
	ExpiresIn string
}

// Notifier delivers account mails
type Notifier interface {
	SendPasswordReset(ctx context.Context, msg PasswordReset) error
}

// NewNotifier picks sendgrid when an API key is configured and the log notifier otherwise
func NewNotifier(cfg config.MailConfig, logger *slog.Logger) Notifier {
	if cfg.SendgridAPIKey == "" {
		logger.Warn("SENDGRID_API_KEY not set, password reset links will only be logged")
		return NewLogNotifier(logger)
	}
	return NewSendgridNotifier(cfg, logger)
}

var resetTemplate = template.Must(template.New("reset").Parse(`<p>Olá {{.Name}},</p>
<p>Recebemos um pedido para redefinir sua senha. Use o link abaixo em até {{.ExpiresIn}}:</p>
<p><a href="{{.ResetURL}}">{{.ResetURL}}</a></p>
<p>Se você não fez este pedido, ignore este e-mail.</p>`))

func renderReset(msg PasswordReset) (text string, html string, err error) {
	var buf bytes.Buffer
	if err := resetTemplate.Execute(&buf, msg); err != nil {
		return "", "", fmt.Errorf("failed to render reset mail: %w", err)
	}
	text = fmt.Sprintf("Olá %s,\n\nUse o link abaixo em até %s para redefinir sua senha:\n%s\n\nSe você não fez este pedido, ignore este e-mail.\n",
		msg.Name, msg.ExpiresIn, msg.ResetURL)
	return text, buf.String(), nil
}

// LogNotifier writes the reset link to the log, for development setups
type LogNotifier struct {
	logger *slog.Logger
}

func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) SendPasswordReset(ctx context.Context, msg PasswordReset) error {
	n.logger.InfoContext(ctx, "Password reset requested",
		"to", msg.To,
		"reset_url", msg.ResetURL,
		"expires_in", msg.ExpiresIn)
	return nil
}
