// Package mailer はパスワード再設定メールなどの送信を提供する。
package mailer

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"
)

// Message は送信するメール。
type Message struct {
	ToName  string
	ToEmail string
	Subject string
	Text    string
	HTML    string
}

// Mailer はメール送信のインターフェース。
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

const (
	defaultSendgridHost = "https://api.sendgrid.com"
	sendgridEndpoint    = "/v3/mail/send"
)

// SendgridConfig はSendGrid送信の設定。
type SendgridConfig struct {
	APIKey    string
	FromName  string
	FromEmail string

	// テスト用にオーバーライド可能なホスト
	Host string
}

// SendgridMailer はSendGrid v3 APIでメールを送信する。
type SendgridMailer struct {
	key  string
	host string
	from *sgmail.Email
}

// NewSendgridMailer はSendgridMailerを生成する。
func NewSendgridMailer(cfg SendgridConfig) *SendgridMailer {
	host := cfg.Host
	if host == "" {
		host = defaultSendgridHost
	}
	return &SendgridMailer{
		key:  cfg.APIKey,
		host: host,
		from: sgmail.NewEmail(cfg.FromName, cfg.FromEmail),
	}
}

func (m *SendgridMailer) prepare(msg Message) *sgmail.SGMailV3 {
	p := sgmail.NewPersonalization()
	p.Subject = msg.Subject
	p.AddTos(sgmail.NewEmail(msg.ToName, msg.ToEmail))

	v3 := sgmail.NewV3Mail()
	v3.SetFrom(m.from)
	v3.AddPersonalizations(p)
	v3.AddContent(sgmail.NewContent("text/plain", msg.Text))
	if msg.HTML != "" {
		v3.AddContent(sgmail.NewContent("text/html", msg.HTML))
	}
	return v3
}

// Send はメールを同期的に送信する。4xx/5xxの応答はエラーとして返す。
func (m *SendgridMailer) Send(ctx context.Context, msg Message) error {
	req := sendgrid.GetRequest(m.key, sendgridEndpoint, m.host)
	req.Method = http.MethodPost
	req.Body = sgmail.GetRequestBody(m.prepare(msg))

	res, err := sendgrid.API(req)
	if err != nil {
		return fmt.Errorf("failed to send mail: %w", err)
	}
	if res.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("sendgrid returned status %d: %s", res.StatusCode, res.Body)
	}

	slog.InfoContext(ctx, "メールを送信しました",
		slog.String("to", msg.ToEmail),
		slog.String("subject", msg.Subject),
	)
	return nil
}

// LogMailer はメールを送信せずログに出力する。SendGrid未設定時に使用する。
type LogMailer struct {
	logger *slog.Logger
}

// NewLogMailer はLogMailerを生成する。loggerがnilの場合はslog.Default()を使用する。
func NewLogMailer(logger *slog.Logger) *LogMailer {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogMailer{logger: logger}
}

// Send はメール内容をログに出力する。
func (m *LogMailer) Send(ctx context.Context, msg Message) error {
	m.logger.InfoContext(ctx, "メール送信（ログ出力のみ）",
		slog.String("to", msg.ToEmail),
		slog.String("subject", msg.Subject),
		slog.String("text", msg.Text),
	)
	return nil
}

// compile-time interface check
var (
	_ Mailer = (*SendgridMailer)(nil)
	_ Mailer = (*LogMailer)(nil)
)
