package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"github.com/travelcomp/offer-service/internal/config"
	"github.com/travelcomp/offer-service/internal/engine"
	"github.com/travelcomp/offer-service/internal/integrations/gsa"
	"github.com/travelcomp/offer-service/internal/models"
	"github.com/travelcomp/offer-service/internal/repository"
	"github.com/travelcomp/offer-service/internal/taxes"
	"github.com/travelcomp/offer-service/internal/utils/email"
)

// ErrPerDiemUnavailable is returned when the GSA feed cannot supply a rate
// and no cached rate exists.
var ErrPerDiemUnavailable = errors.New("per-diem rate unavailable")

// Service handles business logic
type Service struct {
	repo   *repository.Repository
	engine *engine.Engine
	gsa    *gsa.Client
	mail   *email.Sender
	log    *logrus.Logger
	config *config.Config
}

// NewService initializes a new service
func NewService(repo *repository.Repository, eng *engine.Engine, gsaClient *gsa.Client, mail *email.Sender, log *logrus.Logger, cfg *config.Config) *Service {
	return &Service{repo: repo, engine: eng, gsa: gsaClient, mail: mail, log: log, config: cfg}
}

// Register creates a new user with hashed password. The tax-home state must
// be a known state; comparisons are impossible without a resolvable rate.
func (s *Service) Register(username, emailAddr, password, taxHomeState string) (*models.User, error) {
	state, err := taxes.ParseState(taxHomeState)
	if err != nil {
		return nil, err
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		Username:     username,
		Email:        emailAddr,
		PasswordHash: string(hashedPassword),
		TaxHomeState: string(state),
	}

	if err := s.repo.CreateUser(user); err != nil {
		return nil, err
	}

	s.log.Infof("User registered: %s", user.Email)
	return user, nil
}

// Login authenticates a user and returns a JWT token
func (s *Service) Login(emailAddr, password string) (string, error) {
	user, err := s.repo.FindUserByEmail(emailAddr)
	if err != nil {
		return "", fmt.Errorf("invalid credentials")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return "", fmt.Errorf("invalid credentials")
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   fmt.Sprintf("%d", user.ID),
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(24 * time.Hour)),
	})
	tokenString, err := token.SignedString([]byte(s.config.JWTSecret))
	if err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}

	s.log.Infof("User logged in: %s", user.Email)
	return tokenString, nil
}

// CreateOffer stores a new job offer for the authenticated user
func (s *Service) CreateOffer(ctx context.Context, offer models.JobOffer) (*models.JobOffer, error) {
	userID, err := userIDFromContext(ctx)
	if err != nil {
		return nil, err
	}

	state, err := taxes.ParseState(offer.State)
	if err != nil {
		return nil, err
	}

	offer.ID = uuid.NewString()
	offer.UserID = userID
	offer.State = string(state)

	if err := s.repo.CreateOffer(&offer); err != nil {
		return nil, err
	}

	s.log.Infof("Offer created for user %d: %s at %s", userID, offer.ID, offer.Facility)
	return &offer, nil
}

// ListOffers returns all offers belonging to the authenticated user
func (s *Service) ListOffers(ctx context.Context) ([]models.JobOffer, error) {
	userID, err := userIDFromContext(ctx)
	if err != nil {
		return nil, err
	}
	return s.repo.ListOffersByUser(userID)
}

// GetOffer returns a single offer belonging to the authenticated user
func (s *Service) GetOffer(ctx context.Context, offerID string) (*models.JobOffer, error) {
	userID, err := userIDFromContext(ctx)
	if err != nil {
		return nil, err
	}
	return s.repo.FindOfferByID(offerID, userID)
}

// UpdateOffer replaces an offer's fields, scoped to the authenticated user
func (s *Service) UpdateOffer(ctx context.Context, offer models.JobOffer) (*models.JobOffer, error) {
	userID, err := userIDFromContext(ctx)
	if err != nil {
		return nil, err
	}

	state, err := taxes.ParseState(offer.State)
	if err != nil {
		return nil, err
	}
	offer.State = string(state)
	offer.UserID = userID

	if err := s.repo.UpdateOffer(&offer); err != nil {
		return nil, err
	}

	s.log.Infof("Offer updated for user %d: %s", userID, offer.ID)
	return &offer, nil
}

// DeleteOffer removes an offer, scoped to the authenticated user
func (s *Service) DeleteOffer(ctx context.Context, offerID string) error {
	userID, err := userIDFromContext(ctx)
	if err != nil {
		return err
	}
	if err := s.repo.DeleteOffer(offerID, userID); err != nil {
		return err
	}
	s.log.Infof("Offer deleted for user %d: %s", userID, offerID)
	return nil
}

// ComparisonReport bundles a comparison run with the tax context it used and
// any offers that were skipped as invalid.
type ComparisonReport struct {
	TaxContext models.TaxContext         `json:"tax_context"`
	Results    []models.ComparisonResult `json:"results"`
	Skipped    []engine.OfferError       `json:"skipped,omitempty"`
}

// CompareOffers runs the comparison engine over the user's stored offers.
// When offerIDs is non-empty, only those offers are compared; IDs that do not
// resolve to a stored offer are reported as skipped. The state rate always
// comes from the user's tax-home state.
func (s *Service) CompareOffers(ctx context.Context, federalRate decimal.Decimal, weeksWorked int, offerIDs []string, emailReport bool) (*ComparisonReport, error) {
	userID, err := userIDFromContext(ctx)
	if err != nil {
		return nil, err
	}

	user, err := s.repo.FindUserByID(userID)
	if err != nil {
		return nil, err
	}

	stateRate, err := s.engine.StateTaxRate(user.TaxHomeState)
	if err != nil {
		return nil, err
	}

	stored, err := s.repo.ListOffersByUser(userID)
	if err != nil {
		return nil, err
	}

	offers := stored
	var skipped []engine.OfferError
	if len(offerIDs) > 0 {
		byID := make(map[string]models.JobOffer, len(stored))
		for _, o := range stored {
			byID[o.ID] = o
		}
		offers = make([]models.JobOffer, 0, len(offerIDs))
		for _, id := range offerIDs {
			o, ok := byID[id]
			if !ok {
				skipped = append(skipped, engine.OfferError{OfferID: id, Reason: "offer not found"})
				continue
			}
			offers = append(offers, o)
		}
	}

	results, engineSkipped, err := s.engine.CompareOffers(offers, federalRate, stateRate, weeksWorked)
	if err != nil {
		return nil, err
	}
	skipped = append(skipped, engineSkipped...)

	report := &ComparisonReport{
		TaxContext: models.TaxContext{
			TaxHomeState:       user.TaxHomeState,
			FederalRate:        federalRate,
			StateRate:          stateRate,
			WeeksWorkedPerYear: weeksWorked,
		},
		Results: results,
		Skipped: skipped,
	}

	s.log.Infof("Comparison run for user %d: %d offers ranked, %d skipped", userID, len(results), len(skipped))

	if emailReport && len(results) > 0 {
		byID := make(map[string]models.JobOffer, len(offers))
		for _, o := range offers {
			byID[o.ID] = o
		}
		if err := s.mail.SendComparisonReport(user.Email, user.Username, results, byID); err != nil {
			// The comparison itself succeeded; a report delivery failure is
			// logged, not propagated.
			s.log.Warnf("Comparison report email failed for user %d: %v", userID, err)
		}
	}

	return report, nil
}

// OfferCompliance checks an offer's stipend against the GSA per-diem ceiling
// for its assignment locality. Rates come from the local cache, falling back
// to the GSA feed on a miss.
func (s *Service) OfferCompliance(ctx context.Context, offerID string) (*models.GSAComplianceResult, *models.PerDiemRate, error) {
	userID, err := userIDFromContext(ctx)
	if err != nil {
		return nil, nil, err
	}

	offer, err := s.repo.FindOfferByID(offerID, userID)
	if err != nil {
		return nil, nil, err
	}

	rate, err := s.perDiemFor(offer.State, offer.City)
	if err != nil {
		return nil, nil, err
	}

	result, err := s.engine.CheckGSACompliance(*offer, rate.DailyLodging, rate.DailyMeals)
	if err != nil {
		return nil, nil, err
	}
	return &result, rate, nil
}

// OfferSavings estimates the stipend tax savings for a stored offer over a
// working year
func (s *Service) OfferSavings(ctx context.Context, offerID string, federalRate decimal.Decimal, weeksWorked int) (decimal.Decimal, error) {
	userID, err := userIDFromContext(ctx)
	if err != nil {
		return decimal.Decimal{}, err
	}

	user, err := s.repo.FindUserByID(userID)
	if err != nil {
		return decimal.Decimal{}, err
	}

	stateRate, err := s.engine.StateTaxRate(user.TaxHomeState)
	if err != nil {
		return decimal.Decimal{}, err
	}

	offer, err := s.repo.FindOfferByID(offerID, userID)
	if err != nil {
		return decimal.Decimal{}, err
	}

	return s.engine.StipendTaxSavings(*offer, federalRate, stateRate, weeksWorked)
}

// PerDiemRate returns the GSA rate for a locality, from cache or the feed
func (s *Service) PerDiemRate(state, city string) (*models.PerDiemRate, error) {
	parsed, err := taxes.ParseState(state)
	if err != nil {
		return nil, err
	}
	return s.perDiemFor(string(parsed), city)
}

// RefreshPerDiemRates re-fetches GSA rates for every locality referenced by a
// stored offer. Called nightly by the scheduler.
func (s *Service) RefreshPerDiemRates() error {
	localities, err := s.repo.ListOfferLocalities()
	if err != nil {
		return err
	}

	var failed int
	for _, l := range localities {
		rate, err := s.gsa.FetchRate(l.State, l.City, s.config.FiscalYear)
		if err != nil {
			s.log.Errorf("Per-diem refresh failed for %s, %s: %v", l.City, l.State, err)
			failed++
			continue
		}
		if err := s.repo.UpsertPerDiemRate(rate); err != nil {
			s.log.Errorf("Per-diem cache update failed for %s, %s: %v", l.City, l.State, err)
			failed++
		}
	}

	s.log.Infof("Per-diem refresh complete: %d localities, %d failed", len(localities), failed)
	if failed > 0 {
		return fmt.Errorf("per-diem refresh: %d of %d localities failed", failed, len(localities))
	}
	return nil
}

// SendContractEndReminders emails users whose contracts end within two weeks.
// Called weekly by the scheduler.
func (s *Service) SendContractEndReminders() error {
	cutoff := time.Now().AddDate(0, 0, 14)
	contracts, err := s.repo.ListEndingContracts(cutoff)
	if err != nil {
		return err
	}

	var failed int
	for _, c := range contracts {
		if err := s.mail.SendContractEndReminder(c.Email, c.Username, c.Facility, c.EndDate); err != nil {
			failed++
		}
	}

	s.log.Infof("Contract reminders sent: %d contracts, %d failed", len(contracts), failed)
	if failed > 0 {
		return fmt.Errorf("contract reminders: %d of %d failed", failed, len(contracts))
	}
	return nil
}

func (s *Service) perDiemFor(state, city string) (*models.PerDiemRate, error) {
	rate, err := s.repo.FindPerDiemRate(state, city)
	if err == nil {
		return rate, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	rate, err = s.gsa.FetchRate(state, city, s.config.FiscalYear)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPerDiemUnavailable, err)
	}
	if err := s.repo.UpsertPerDiemRate(rate); err != nil {
		// Serve the fetched rate even if caching it failed.
		s.log.Warnf("Per-diem cache update failed for %s, %s: %v", city, state, err)
	}
	return rate, nil
}

func userIDFromContext(ctx context.Context) (int64, error) {
	userIDStr, ok := ctx.Value("userID").(string)
	if !ok || userIDStr == "" {
		return 0, fmt.Errorf("user ID not found in context")
	}

	userID, err := strconv.ParseInt(userIDStr, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid user ID: %w", err)
	}
	return userID, nil
}
