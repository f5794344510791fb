package repository

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/travelcomp/offer-service/internal/models"
)

// ErrNotFound is returned when a queried row does not exist.
var ErrNotFound = errors.New("not found")

// Repository provides database operations
type Repository struct {
	db *sql.DB
}

// NewRepository initializes a new repository
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// CreateUser creates a new user in the database
func (r *Repository) CreateUser(user *models.User) error {
	query := `
		INSERT INTO comp.users (username, email, password_hash, tax_home_state, created_at, updated_at)
		VALUES ($1, $2, $3, $4, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
		RETURNING id, created_at, updated_at`
	err := r.db.QueryRow(query, user.Username, user.Email, user.PasswordHash, user.TaxHomeState).
		Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// FindUserByEmail retrieves a user by email
func (r *Repository) FindUserByEmail(email string) (*models.User, error) {
	user := &models.User{}
	query := `
		SELECT id, username, email, password_hash, tax_home_state, created_at, updated_at
		FROM comp.users
		WHERE email = $1`
	err := r.db.QueryRow(query, email).
		Scan(&user.ID, &user.Username, &user.Email, &user.PasswordHash, &user.TaxHomeState, &user.CreatedAt, &user.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	return user, nil
}

// FindUserByID retrieves a user by ID
func (r *Repository) FindUserByID(id int64) (*models.User, error) {
	user := &models.User{}
	query := `
		SELECT id, username, email, password_hash, tax_home_state, created_at, updated_at
		FROM comp.users
		WHERE id = $1`
	err := r.db.QueryRow(query, id).
		Scan(&user.ID, &user.Username, &user.Email, &user.PasswordHash, &user.TaxHomeState, &user.CreatedAt, &user.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	return user, nil
}

const offerColumns = `id, user_id, facility, city, state, hourly_rate, weekly_hours,
	weekly_stipend, overtime_rate, overtime_hours, contract_weeks, completion_bonus,
	start_date, created_at, updated_at`

// CreateOffer inserts a new job offer
func (r *Repository) CreateOffer(offer *models.JobOffer) error {
	query := `
		INSERT INTO comp.job_offers (id, user_id, facility, city, state, hourly_rate, weekly_hours,
			weekly_stipend, overtime_rate, overtime_hours, contract_weeks, completion_bonus,
			start_date, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
		RETURNING created_at, updated_at`
	err := r.db.QueryRow(query,
		offer.ID, offer.UserID, offer.Facility, offer.City, offer.State,
		offer.HourlyRate, offer.WeeklyHours, offer.WeeklyStipend,
		offer.OvertimeRate, offer.OvertimeHours, offer.ContractWeeks,
		offer.CompletionBonus, nullTime(offer.StartDate)).
		Scan(&offer.CreatedAt, &offer.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create offer: %w", err)
	}
	return nil
}

// FindOfferByID retrieves an offer by ID, scoped to its owner
func (r *Repository) FindOfferByID(id string, userID int64) (*models.JobOffer, error) {
	query := `SELECT ` + offerColumns + ` FROM comp.job_offers WHERE id = $1 AND user_id = $2`
	offer, err := scanOffer(r.db.QueryRow(query, id, userID))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find offer: %w", err)
	}
	return offer, nil
}

// ListOffersByUser retrieves all offers for a user, newest first
func (r *Repository) ListOffersByUser(userID int64) ([]models.JobOffer, error) {
	query := `SELECT ` + offerColumns + ` FROM comp.job_offers WHERE user_id = $1 ORDER BY created_at DESC`
	rows, err := r.db.Query(query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list offers: %w", err)
	}
	defer rows.Close()

	offers := make([]models.JobOffer, 0)
	for rows.Next() {
		offer, err := scanOffer(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan offer: %w", err)
		}
		offers = append(offers, *offer)
	}
	return offers, rows.Err()
}

// UpdateOffer updates an existing offer, scoped to its owner
func (r *Repository) UpdateOffer(offer *models.JobOffer) error {
	query := `
		UPDATE comp.job_offers
		SET facility = $3, city = $4, state = $5, hourly_rate = $6, weekly_hours = $7,
			weekly_stipend = $8, overtime_rate = $9, overtime_hours = $10,
			contract_weeks = $11, completion_bonus = $12, start_date = $13,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = $1 AND user_id = $2
		RETURNING updated_at`
	err := r.db.QueryRow(query,
		offer.ID, offer.UserID, offer.Facility, offer.City, offer.State,
		offer.HourlyRate, offer.WeeklyHours, offer.WeeklyStipend,
		offer.OvertimeRate, offer.OvertimeHours, offer.ContractWeeks,
		offer.CompletionBonus, nullTime(offer.StartDate)).
		Scan(&offer.UpdatedAt)
	if err == sql.ErrNoRows {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to update offer: %w", err)
	}
	return nil
}

// DeleteOffer removes an offer, scoped to its owner
func (r *Repository) DeleteOffer(id string, userID int64) error {
	result, err := r.db.Exec(`DELETE FROM comp.job_offers WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("failed to delete offer: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete offer: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// UpsertPerDiemRate stores or refreshes the cached GSA rate for a locality
func (r *Repository) UpsertPerDiemRate(rate *models.PerDiemRate) error {
	query := `
		INSERT INTO comp.per_diem_rates (state, city, daily_lodging, daily_meals, fiscal_year, fetched_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (state, city)
		DO UPDATE SET daily_lodging = $3, daily_meals = $4, fiscal_year = $5, fetched_at = $6
		RETURNING id`
	err := r.db.QueryRow(query, rate.State, rate.City, rate.DailyLodging, rate.DailyMeals,
		rate.FiscalYear, rate.FetchedAt).Scan(&rate.ID)
	if err != nil {
		return fmt.Errorf("failed to upsert per-diem rate: %w", err)
	}
	return nil
}

// FindPerDiemRate retrieves the cached GSA rate for a locality
func (r *Repository) FindPerDiemRate(state, city string) (*models.PerDiemRate, error) {
	rate := &models.PerDiemRate{}
	query := `
		SELECT id, state, city, daily_lodging, daily_meals, fiscal_year, fetched_at
		FROM comp.per_diem_rates
		WHERE state = $1 AND city = $2`
	err := r.db.QueryRow(query, state, city).
		Scan(&rate.ID, &rate.State, &rate.City, &rate.DailyLodging, &rate.DailyMeals,
			&rate.FiscalYear, &rate.FetchedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find per-diem rate: %w", err)
	}
	return rate, nil
}

// Locality is a distinct (state, city) pair appearing in stored offers.
type Locality struct {
	State string
	City  string
}

// ListOfferLocalities returns every distinct assignment locality in use
func (r *Repository) ListOfferLocalities() ([]Locality, error) {
	rows, err := r.db.Query(`SELECT DISTINCT state, city FROM comp.job_offers ORDER BY state, city`)
	if err != nil {
		return nil, fmt.Errorf("failed to list localities: %w", err)
	}
	defer rows.Close()

	localities := make([]Locality, 0)
	for rows.Next() {
		var l Locality
		if err := rows.Scan(&l.State, &l.City); err != nil {
			return nil, fmt.Errorf("failed to scan locality: %w", err)
		}
		localities = append(localities, l)
	}
	return localities, rows.Err()
}

// EndingContract pairs an offer nearing its end date with its owner's contact details.
type EndingContract struct {
	Email    string
	Username string
	Facility string
	EndDate  time.Time
}

// ListEndingContracts returns offers whose contracts end on or before the cutoff
// but have not yet ended
func (r *Repository) ListEndingContracts(cutoff time.Time) ([]EndingContract, error) {
	query := `
		SELECT u.email, u.username, o.facility, o.start_date + o.contract_weeks * INTERVAL '7 days' AS end_date
		FROM comp.job_offers o
		JOIN comp.users u ON u.id = o.user_id
		WHERE o.start_date IS NOT NULL
		  AND o.start_date + o.contract_weeks * INTERVAL '7 days' BETWEEN CURRENT_TIMESTAMP AND $1`
	rows, err := r.db.Query(query, cutoff)
	if err != nil {
		return nil, fmt.Errorf("failed to list ending contracts: %w", err)
	}
	defer rows.Close()

	contracts := make([]EndingContract, 0)
	for rows.Next() {
		var c EndingContract
		if err := rows.Scan(&c.Email, &c.Username, &c.Facility, &c.EndDate); err != nil {
			return nil, fmt.Errorf("failed to scan ending contract: %w", err)
		}
		contracts = append(contracts, c)
	}
	return contracts, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOffer(row rowScanner) (*models.JobOffer, error) {
	offer := &models.JobOffer{}
	var startDate sql.NullTime
	err := row.Scan(
		&offer.ID, &offer.UserID, &offer.Facility, &offer.City, &offer.State,
		&offer.HourlyRate, &offer.WeeklyHours, &offer.WeeklyStipend,
		&offer.OvertimeRate, &offer.OvertimeHours, &offer.ContractWeeks,
		&offer.CompletionBonus, &startDate, &offer.CreatedAt, &offer.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if startDate.Valid {
		offer.StartDate = &startDate.Time
	}
	return offer, nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}
