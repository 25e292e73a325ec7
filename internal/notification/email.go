package notification

import (
	"bytes"
	"fmt"
	"html/template"
	"net/smtp"

	"ms-booking/internal/config"
	"ms-booking/internal/logger"
	"ms-booking/internal/models"
)

const receiptTemplate = `
<h2>Booking Confirmed!</h2>
<p>Dear {{.UserName}},</p>
<p>Your booking has been confirmed for the following event:</p>
<ul>
  <li><strong>Event:</strong> {{.EventTitle}}</li>
  <li><strong>Date:</strong> {{.EventStart.Format "Jan 2, 2006 15:04"}}</li>
  <li><strong>Venue:</strong> {{.Venue}}</li>
  <li><strong>Tickets:</strong> {{.TicketCount}}</li>
  <li><strong>Total Amount:</strong> ${{printf "%.2f" .AmountPaid}}</li>
  <li><strong>Booking Code:</strong> {{.BookingCode}}</li>
</ul>
{{if .QRCode}}<p><img src="data:image/png;base64,{{.QRCode}}" alt="booking QR" /></p>{{end}}
<p>Please keep this booking code for your records.</p>
`

// EmailSender sends booking receipts over SMTP. Without credentials it runs
// in dev mode and only logs what it would have sent.
type EmailSender struct {
	cfg     config.EmailConfig
	tmpl    *template.Template
	logger  *logger.Logger
	devMode bool
}

func NewEmailSender(cfg config.EmailConfig, log *logger.Logger) *EmailSender {
	tmpl := template.Must(template.New("receipt").Parse(receiptTemplate))
	devMode := cfg.SMTPUsername == "" || cfg.SMTPPassword == ""
	if devMode {
		log.Warn("EMAIL", "SMTP credentials not set, running in dev mode (emails are logged, not sent)")
	}
	return &EmailSender{cfg: cfg, tmpl: tmpl, logger: log, devMode: devMode}
}

// Send renders and delivers a receipt for a confirmed booking.
func (s *EmailSender) Send(payload models.BookingConfirmed) error {
	if payload.UserEmail == "" {
		return fmt.Errorf("booking %s has no recipient email", payload.BookingID)
	}

	var body bytes.Buffer
	if err := s.tmpl.Execute(&body, payload); err != nil {
		return fmt.Errorf("failed to render receipt: %w", err)
	}

	if s.devMode {
		s.logger.Info("EMAIL", fmt.Sprintf("Dev mode: receipt for booking %s would go to %s", payload.BookingID, payload.UserEmail))
		return nil
	}

	msg := bytes.Buffer{}
	msg.WriteString(fmt.Sprintf("From: %s\r\n", s.cfg.From))
	msg.WriteString(fmt.Sprintf("To: %s\r\n", payload.UserEmail))
	msg.WriteString("Subject: Booking Confirmation\r\n")
	msg.WriteString("MIME-Version: 1.0\r\n")
	msg.WriteString("Content-Type: text/html; charset=\"UTF-8\"\r\n")
	msg.WriteString("\r\n")
	msg.Write(body.Bytes())

	addr := s.cfg.SMTPHost + ":" + s.cfg.SMTPPort
	auth := smtp.PlainAuth("", s.cfg.SMTPUsername, s.cfg.SMTPPassword, s.cfg.SMTPHost)

	if err := smtp.SendMail(addr, auth, s.cfg.From, []string{payload.UserEmail}, msg.Bytes()); err != nil {
		return fmt.Errorf("failed to send receipt: %w", err)
	}

	s.logger.Info("EMAIL", fmt.Sprintf("Receipt for booking %s sent to %s", payload.BookingID, payload.UserEmail))
	return nil
}
