package email

import (
	"fmt"
	"net/smtp"
	"time"

	"github.com/jordan-wright/email"
	"github.com/sirupsen/logrus"

	"github.com/travelcomp/offer-service/internal/config"
	"github.com/travelcomp/offer-service/internal/models"
)

// Sender handles sending emails via SMTP
type Sender struct {
	cfg    *config.Config
	logger *logrus.Logger
}

// NewSender creates a new email sender
func NewSender(cfg *config.Config, logger *logrus.Logger) *Sender {
	return &Sender{
		cfg:    cfg,
		logger: logger,
	}
}

// SendComparisonReport sends a ranked take-home comparison to the user.
// offers maps offer IDs to their stored records for display names.
func (s *Sender) SendComparisonReport(to, username string, results []models.ComparisonResult, offers map[string]models.JobOffer) error {
	e := email.NewEmail()
	e.From = s.cfg.SenderEmail
	e.To = []string{to}
	e.Subject = "Your Offer Comparison Report"

	body := fmt.Sprintf("Dear %s,\n\nHere is your offer comparison, ranked by annual take-home pay:\n\n", username)
	for _, r := range results {
		name := r.OfferID
		if offer, ok := offers[r.OfferID]; ok {
			name = fmt.Sprintf("%s (%s, %s)", offer.Facility, offer.City, offer.State)
		}
		body += fmt.Sprintf(
			"#%d %s\n"+
				"    Weekly take-home: $%s\n"+
				"    Annual take-home: $%s (weekly taxable $%s, tax $%s, non-taxable $%s)\n",
			r.Rank, name, r.WeeklyTakeHome.StringFixed(2), r.AnnualTakeHome.StringFixed(2),
			r.WeeklyTaxableIncome.StringFixed(2), r.WeeklyTax.StringFixed(2), r.WeeklyNonTaxable.StringFixed(2),
		)
	}
	body += "\nFigures are estimates based on effective tax rates, not a filing computation.\n"
	body += "\nBest regards,\nTravelComp"
	e.Text = []byte(body)

	if err := s.send(e); err != nil {
		s.logger.Errorf("Failed to send comparison report to %s: %v", to, err)
		return fmt.Errorf("failed to send comparison report: %w", err)
	}

	s.logger.Infof("Email sent to %s: %s", to, e.Subject)
	return nil
}

// SendContractEndReminder notifies a user that an assignment is ending soon
func (s *Sender) SendContractEndReminder(to, username, facility string, endDate time.Time) error {
	e := email.NewEmail()
	e.From = s.cfg.SenderEmail
	e.To = []string{to}
	e.Subject = "Upcoming Contract End"

	body := fmt.Sprintf(
		"Dear %s,\n\n"+
			"Your assignment at %s ends on %s.\n"+
			"Now is a good time to add your next offers and run a comparison.\n"+
			"\nBest regards,\nTravelComp",
		username, facility, endDate.Format("2006-01-02"),
	)
	e.Text = []byte(body)

	if err := s.send(e); err != nil {
		s.logger.Errorf("Failed to send contract reminder to %s: %v", to, err)
		return fmt.Errorf("failed to send contract reminder: %w", err)
	}

	s.logger.Infof("Email sent to %s: %s", to, e.Subject)
	return nil
}

func (s *Sender) send(e *email.Email) error {
	addr := fmt.Sprintf("%s:%s", s.cfg.SMTPHost, s.cfg.SMTPPort)
	auth := smtp.PlainAuth("", s.cfg.SMTPUsername, s.cfg.SMTPPassword, s.cfg.SMTPHost)
	return e.Send(addr, auth)
}
