package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/godilite/driver-compliance/internal/repository/models"
)

// Schema is the local driver records layout read by SQLiteProfileRepository.
const Schema = `
	CREATE TABLE IF NOT EXISTS drivers (
		id INTEGER PRIMARY KEY,
		name TEXT NOT NULL,
		license_number TEXT NOT NULL,
		contact TEXT NOT NULL DEFAULT ''
	);
	CREATE TABLE IF NOT EXISTS driver_feedback (
		id INTEGER PRIMARY KEY,
		driver_id INTEGER NOT NULL REFERENCES drivers(id),
		rating REAL NOT NULL,
		content TEXT NOT NULL DEFAULT ''
	);
	CREATE TABLE IF NOT EXISTS driver_violations (
		id INTEGER PRIMARY KEY,
		driver_id INTEGER NOT NULL REFERENCES drivers(id),
		type TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		date TEXT NOT NULL
	);
	CREATE TABLE IF NOT EXISTS driver_infractions (
		id INTEGER PRIMARY KEY,
		driver_id INTEGER NOT NULL REFERENCES drivers(id),
		incident TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		date TEXT NOT NULL
	);
	CREATE TABLE IF NOT EXISTS driver_drug_tests (
		id INTEGER PRIMARY KEY,
		driver_id INTEGER NOT NULL REFERENCES drivers(id),
		test_date TEXT NOT NULL,
		result TEXT NOT NULL
	);
	CREATE TABLE IF NOT EXISTS driver_credentials (
		id INTEGER PRIMARY KEY,
		driver_id INTEGER NOT NULL REFERENCES drivers(id),
		type TEXT NOT NULL,
		is_valid INTEGER NOT NULL,
		remarks TEXT
	);
`

// Migrate creates the schema if it does not exist.
func Migrate(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("migrate driver schema: %w", err)
	}
	return nil
}

type SQLiteProfileRepository struct {
	db *sql.DB
}

func NewSQLiteProfileRepository(db *sql.DB) *SQLiteProfileRepository {
	return &SQLiteProfileRepository{db: db}
}

// querier is satisfied by *sql.Tx, so every read shares one snapshot.
type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// GetDriverProfile loads the driver row and its five collections, each ordered
// by id, inside one read-only transaction.
func (s *SQLiteProfileRepository) GetDriverProfile(ctx context.Context, driverID int64) (models.DriverProfile, error) {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{ReadOnly: true})
	if err != nil {
		return models.DriverProfile{}, unavailable(fmt.Errorf("begin read: %w", err))
	}
	defer func() { _ = tx.Rollback() }()

	p, err := getDriver(ctx, tx, driverID)
	if err != nil {
		return models.DriverProfile{}, err
	}

	if p.Feedback, err = getFeedback(ctx, tx, driverID); err != nil {
		return models.DriverProfile{}, unavailable(err)
	}
	if p.Violations, err = getViolations(ctx, tx, driverID); err != nil {
		return models.DriverProfile{}, unavailable(err)
	}
	if p.Infractions, err = getInfractions(ctx, tx, driverID); err != nil {
		return models.DriverProfile{}, unavailable(err)
	}
	if p.DrugTestResults, err = getDrugTests(ctx, tx, driverID); err != nil {
		return models.DriverProfile{}, unavailable(err)
	}
	if p.Credentials, err = getCredentials(ctx, tx, driverID); err != nil {
		return models.DriverProfile{}, unavailable(err)
	}

	p.Normalize()
	return p, nil
}

func unavailable(err error) error {
	return fmt.Errorf("%w: %v", models.ErrSourceUnavailable, err)
}

func getDriver(ctx context.Context, q querier, driverID int64) (models.DriverProfile, error) {
	const query = `SELECT id, name, license_number, contact FROM drivers WHERE id = ?`

	var p models.DriverProfile
	err := q.QueryRowContext(ctx, query, driverID).Scan(&p.ID, &p.Name, &p.LicenseNumber, &p.Contact)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.DriverProfile{}, fmt.Errorf("%w: driver %d", models.ErrDriverNotFound, driverID)
		}
		return models.DriverProfile{}, unavailable(fmt.Errorf("query driver: %w", err))
	}
	return p, nil
}

func getFeedback(ctx context.Context, q querier, driverID int64) ([]models.FeedbackEntry, error) {
	const query = `SELECT id, rating, content FROM driver_feedback WHERE driver_id = ? ORDER BY id`

	rows, err := q.QueryContext(ctx, query, driverID)
	if err != nil {
		return nil, fmt.Errorf("query feedback: %w", err)
	}
	defer rows.Close()

	var out []models.FeedbackEntry
	for rows.Next() {
		var f models.FeedbackEntry
		if err := rows.Scan(&f.ID, &f.Rating, &f.Content); err != nil {
			return nil, fmt.Errorf("scan feedback row: %w", err)
		}
		out = append(out, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate feedback: %w", err)
	}
	return out, nil
}

func getViolations(ctx context.Context, q querier, driverID int64) ([]models.ViolationEntry, error) {
	const query = `SELECT id, type, description, date FROM driver_violations WHERE driver_id = ? ORDER BY id`

	rows, err := q.QueryContext(ctx, query, driverID)
	if err != nil {
		return nil, fmt.Errorf("query violations: %w", err)
	}
	defer rows.Close()

	var out []models.ViolationEntry
	for rows.Next() {
		var v models.ViolationEntry
		if err := rows.Scan(&v.ID, &v.Type, &v.Description, &v.Date); err != nil {
			return nil, fmt.Errorf("scan violation row: %w", err)
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate violations: %w", err)
	}
	return out, nil
}

func getInfractions(ctx context.Context, q querier, driverID int64) ([]models.InfractionEntry, error) {
	const query = `SELECT id, incident, description, date FROM driver_infractions WHERE driver_id = ? ORDER BY id`

	rows, err := q.QueryContext(ctx, query, driverID)
	if err != nil {
		return nil, fmt.Errorf("query infractions: %w", err)
	}
	defer rows.Close()

	var out []models.InfractionEntry
	for rows.Next() {
		var i models.InfractionEntry
		if err := rows.Scan(&i.ID, &i.Incident, &i.Description, &i.Date); err != nil {
			return nil, fmt.Errorf("scan infraction row: %w", err)
		}
		out = append(out, i)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate infractions: %w", err)
	}
	return out, nil
}

func getDrugTests(ctx context.Context, q querier, driverID int64) ([]models.DrugTestResult, error) {
	const query = `SELECT id, test_date, result FROM driver_drug_tests WHERE driver_id = ? ORDER BY id`

	rows, err := q.QueryContext(ctx, query, driverID)
	if err != nil {
		return nil, fmt.Errorf("query drug tests: %w", err)
	}
	defer rows.Close()

	var out []models.DrugTestResult
	for rows.Next() {
		var d models.DrugTestResult
		if err := rows.Scan(&d.ID, &d.TestDate, &d.Result); err != nil {
			return nil, fmt.Errorf("scan drug test row: %w", err)
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate drug tests: %w", err)
	}
	return out, nil
}

func getCredentials(ctx context.Context, q querier, driverID int64) ([]models.CredentialRecord, error) {
	const query = `SELECT id, type, is_valid, remarks FROM driver_credentials WHERE driver_id = ? ORDER BY id`

	rows, err := q.QueryContext(ctx, query, driverID)
	if err != nil {
		return nil, fmt.Errorf("query credentials: %w", err)
	}
	defer rows.Close()

	var out []models.CredentialRecord
	for rows.Next() {
		var c models.CredentialRecord
		var remarks sql.NullString
		if err := rows.Scan(&c.ID, &c.Type, &c.IsValid, &remarks); err != nil {
			return nil, fmt.Errorf("scan credential row: %w", err)
		}
		if remarks.Valid {
			r := remarks.String
			c.Remarks = &r
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate credentials: %w", err)
	}
	return out, nil
}
