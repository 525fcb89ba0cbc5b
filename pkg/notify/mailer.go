package notify

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/wneessen/go-mail"
	"go.uber.org/zap"

	"github.com/coinforge/coindw/pkg/metadata"
)

// Mailer sends plain-text pipeline reports over SMTP. Every operation is
// best-effort: a notification that cannot be delivered is logged and
// forgotten, never allowed to mask the job outcome it reports on.
type Mailer struct {
	Host      string
	Port      int
	User      string
	Password  string
	Recipient string
	Logger    *zap.Logger
}

// NewMailer builds a Mailer for the default relay. Host and port can be
// overridden after construction.
func NewMailer(logger *zap.Logger, user, password, recipient string) *Mailer {
	return &Mailer{
		Host:      "smtp.gmail.com",
		Port:      465,
		User:      user,
		Password:  password,
		Recipient: recipient,
		Logger:    logger,
	}
}

// BuildErrorMail renders the failure report for a job.
func BuildErrorMail(job string, jobErr error, meta *metadata.Meta) (subject, body string) {
	subject = fmt.Sprintf("[ETL ALERT] %s failed on %s", job, meta.Host)

	var b strings.Builder
	fmt.Fprintf(&b, "ETL job failure report\n")
	fmt.Fprintf(&b, "======================\n\n")
	fmt.Fprintf(&b, "Job:       %s\n", job)
	fmt.Fprintf(&b, "Time:      %s\n", time.Now().Format(time.RFC3339))
	fmt.Fprintf(&b, "Host:      %s\n", meta.Host)
	fmt.Fprintf(&b, "User:      %s\n", meta.RunBy)
	fmt.Fprintf(&b, "Session:   %s\n", meta.SessionID)
	fmt.Fprintf(&b, "PID:       %d\n", meta.PID)
	fmt.Fprintf(&b, "Binary:    %s\n", meta.ScriptPath)
	if meta.VCSRevision != "" {
		fmt.Fprintf(&b, "Revision:  %s\n", meta.VCSRevision)
	}
	fmt.Fprintf(&b, "\nError:\n%v\n", jobErr)
	return subject, b.String()
}

// BuildSuccessMail renders a completion report for a pipeline run.
func BuildSuccessMail(summary string, meta *metadata.Meta) (subject, body string) {
	subject = fmt.Sprintf("[ETL] pipeline completed on %s", meta.Host)

	var b strings.Builder
	fmt.Fprintf(&b, "ETL pipeline completion report\n")
	fmt.Fprintf(&b, "==============================\n\n")
	fmt.Fprintf(&b, "Time:      %s\n", time.Now().Format(time.RFC3339))
	fmt.Fprintf(&b, "Host:      %s\n", meta.Host)
	fmt.Fprintf(&b, "Session:   %s\n\n", meta.SessionID)
	b.WriteString(summary)
	return subject, b.String()
}

// Send delivers one message. Missing credentials skip delivery silently;
// delivery errors are logged as warnings only.
func (m *Mailer) Send(ctx context.Context, subject, body string) {
	if m.User == "" || m.Password == "" || m.Recipient == "" {
		m.Logger.Warn("Mail credentials not configured, skipping notification",
			zap.String("subject", subject))
		return
	}

	msg := mail.NewMsg()
	if err := msg.From(m.User); err != nil {
		m.Logger.Warn("Invalid sender address", zap.Error(err))
		return
	}
	if err := msg.To(m.Recipient); err != nil {
		m.Logger.Warn("Invalid recipient address", zap.Error(err))
		return
	}
	msg.Subject(subject)
	msg.SetBodyString(mail.TypeTextPlain, body)

	client, err := mail.NewClient(m.Host,
		mail.WithPort(m.Port),
		mail.WithSSL(),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(m.User),
		mail.WithPassword(m.Password),
		mail.WithTimeout(10*time.Second),
	)
	if err != nil {
		m.Logger.Warn("Failed to build SMTP client", zap.Error(err))
		return
	}

	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		m.Logger.Warn("Failed to send notification mail",
			zap.String("to", m.Recipient), zap.Error(err))
		return
	}
	m.Logger.Info("Notification mail sent", zap.String("to", m.Recipient))
}
