// Package mailer sends transactional mail over SMTP. Sends are
// blocking and never retried: a failed verification-code delivery
// surfaces immediately to the caller, which presents a retry
// affordance to the user instead of queueing.
package mailer

import (
    "fmt"
    "log/slog"

    "gopkg.in/gomail.v2"
)

// Mailer is the transactional email collaborator contract.
type Mailer interface {
    SendVerificationCode(to, code string) error
    SendBookingConfirmation(to string, bookingID uint64, totalCents uint32) error
    SendEmailChangeLink(to, confirmURL string) error
}

// LogMailer writes mail to the log instead of sending it. Used when
// SMTP is not configured, which keeps local development working
// without a mail server.
type LogMailer struct{ Log *slog.Logger }

func NewLogMailer(log *slog.Logger) *LogMailer { return &LogMailer{Log: log} }

func (m *LogMailer) SendVerificationCode(to, code string) error {
    m.Log.Info("verification code (not sent)", "to", to, "code", code)
    return nil
}

func (m *LogMailer) SendBookingConfirmation(to string, bookingID uint64, totalCents uint32) error {
    m.Log.Info("booking confirmation (not sent)", "to", to, "booking_id", bookingID, "total_cents", totalCents)
    return nil
}

func (m *LogMailer) SendEmailChangeLink(to, confirmURL string) error {
    m.Log.Info("email change link (not sent)", "to", to, "url", confirmURL)
    return nil
}

// SMTPConfig carries dialer settings plus the sender identity.
type SMTPConfig struct {
    Host        string
    Port        int
    Username    string
    Password    string
    FromAddress string
    FromName    string
}

// SMTPMailer implements Mailer with gomail.
type SMTPMailer struct {
    cfg    SMTPConfig
    dialer *gomail.Dialer
}

func NewSMTPMailer(cfg SMTPConfig) *SMTPMailer {
    return &SMTPMailer{
        cfg:    cfg,
        dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
    }
}

func (m *SMTPMailer) SendVerificationCode(to, code string) error {
    subject := "Your verification code"
    html := fmt.Sprintf(`
		<html>
		<body>
			<h2>Your verification code</h2>
			<p>Enter the following code to continue signing in:</p>
			<p style="font-size:24px;letter-spacing:4px;"><strong>%s</strong></p>
			<p>This code expires in 15 minutes and can only be used once.</p>
			<p>If you didn't request this code, you can safely ignore this email.</p>
		</body>
		</html>
	`, code)
    plain := fmt.Sprintf(`Your verification code is: %s

This code expires in 15 minutes and can only be used once.

If you didn't request this code, you can safely ignore this email.
`, code)
    return m.send(to, subject, html, plain)
}

func (m *SMTPMailer) SendBookingConfirmation(to string, bookingID uint64, totalCents uint32) error {
    subject := "Your booking is confirmed"
    html := fmt.Sprintf(`
		<html>
		<body>
			<h2>Booking confirmed</h2>
			<p>Your booking #%d has been confirmed.</p>
			<p>Amount charged: %.2f</p>
			<p>We look forward to welcoming you.</p>
		</body>
		</html>
	`, bookingID, float64(totalCents)/100)
    plain := fmt.Sprintf(`Booking confirmed

Your booking #%d has been confirmed.
Amount charged: %.2f

We look forward to welcoming you.
`, bookingID, float64(totalCents)/100)
    return m.send(to, subject, html, plain)
}

func (m *SMTPMailer) SendEmailChangeLink(to, confirmURL string) error {
    subject := "Confirm your new email address"
    html := fmt.Sprintf(`
		<html>
		<body>
			<h2>Confirm your new email address</h2>
			<p>Click the link below to finish changing the email on your account:</p>
			<p><a href="%s">Confirm email change</a></p>
			<p>The link expires in 12 hours. If you didn't request this change, ignore this email.</p>
		</body>
		</html>
	`, confirmURL)
    plain := fmt.Sprintf(`Confirm your new email address

Open the following link to finish changing the email on your account:

%s

The link expires in 12 hours. If you didn't request this change, ignore this email.
`, confirmURL)
    return m.send(to, subject, html, plain)
}

func (m *SMTPMailer) send(to, subject, htmlBody, plainBody string) error {
    msg := gomail.NewMessage()
    msg.SetAddressHeader("From", m.cfg.FromAddress, m.cfg.FromName)
    msg.SetHeader("To", to)
    msg.SetHeader("Subject", subject)
    msg.SetBody("text/plain", plainBody)
    msg.AddAlternative("text/html", htmlBody)
    return m.dialer.DialAndSend(msg)
}
