package email

import (
	"context"
	"crypto/tls"
	"fmt"

	"github.com/Domenick1991/outdoorcamp/config"
	"github.com/Domenick1991/outdoorcamp/internal/kafka"
	"github.com/Domenick1991/outdoorcamp/internal/logger"
	"github.com/sirupsen/logrus"
	gomail "gopkg.in/gomail.v2"
)

// Sender delivers notification mails over SMTP. Without an SMTP host it only
// logs what it would have sent.
type Sender struct {
	dialer *gomail.Dialer
	from   string
}

func NewSender(cfg config.SMTPConfig) *Sender {
	s := &Sender{from: cfg.From}
	if cfg.Host != "" {
		s.dialer = gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password)
		s.dialer.TLSConfig = &tls.Config{ServerName: cfg.Host}
	}
	return s
}

func (s *Sender) Enabled() bool {
	return s.dialer != nil
}

func (s *Sender) Send(ctx context.Context, to string, event kafka.Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	subject, body := Compose(event)

	if !s.Enabled() {
		logger.Log.WithFields(logrus.Fields{"to": to, "subject": subject}).Info("smtp disabled, skipping email")
		return nil
	}

	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", body)

	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("send email to %s: %w", to, err)
	}
	logger.Log.WithFields(logrus.Fields{"to": to, "type": event.Type}).Info("email sent")
	return nil
}

// Compose renders the subject and plain text body for event.
func Compose(event kafka.Event) (string, string) {
	switch event.Type {
	case kafka.EventBookingCreated:
		return "Booking received",
			fmt.Sprintf("Your booking %s for %d x %s has been received. Total: %s.", event.BookingID, event.Quantity, event.ProductName, event.Amount)
	case kafka.EventBookingUpdated:
		return "Booking updated",
			fmt.Sprintf("Your booking %s is now %s.", event.BookingID, event.Status)
	case kafka.EventBookingCancelled:
		return "Booking cancelled",
			fmt.Sprintf("Your booking %s for %s has been cancelled.", event.BookingID, event.ProductName)
	case kafka.EventPaymentCreated:
		return "Payment recorded",
			fmt.Sprintf("We recorded your payment of %s for booking %s. It is awaiting confirmation.", event.Amount, event.BookingID)
	case kafka.EventPaymentSettled:
		return "Booking confirmed",
			fmt.Sprintf("Your payment of %s was completed and booking %s is confirmed.", event.Amount, event.BookingID)
	case kafka.EventPaymentUpdated:
		return "Payment updated",
			fmt.Sprintf("Your payment for booking %s is now %s.", event.BookingID, event.Status)
	case kafka.EventPaymentDeleted:
		return "Payment removed",
			fmt.Sprintf("The payment for booking %s has been removed.", event.BookingID)
	}
	return "OutdoorCamp notification", fmt.Sprintf("Booking %s: %s.", event.BookingID, event.Type)
}
