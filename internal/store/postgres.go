package store

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/ayush/pawpal-api/internal/models"
)

//go:embed migrations/*.sql
var migrations embed.FS

const uniqueViolation = "23505"

// PostgresStore handles users, pets and medications against PostgreSQL.
type PostgresStore struct {
	pool *pgxpool.Pool
	db   txDB
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool, db: pool}
}

// Migrate applies the embedded goose migrations.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	db := stdlib.OpenDBFromPool(s.pool)
	defer db.Close()

	goose.SetBaseFS(migrations)
	if err := goose.SetDialect("pgx"); err != nil {
		return fmt.Errorf("goose dialect: %w", err)
	}
	if err := goose.UpContext(ctx, db, "migrations"); err != nil {
		return fmt.Errorf("goose up: %w", err)
	}
	return nil
}

// NormalizeEmail is the canonical form used for storage and lookup.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

// ── Users ───────────────────────────────────────────────────

const userColumns = `id, name, email, password_hash, created_at, is_active`

func scanUser(row pgx.Row) (*models.User, error) {
	var u models.User
	if err := row.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.CreatedAt, &u.IsActive); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}

// CreateUser inserts a user. The email unique constraint is the only
// duplicate check; a collision yields ErrConflict.
func (s *PostgresStore) CreateUser(ctx context.Context, name, email, passwordHash string) (*models.User, error) {
	var u *models.User
	err := withTx(ctx, s.db, func(ctx context.Context, tx DBTX) error {
		var err error
		u, err = scanUser(tx.QueryRow(ctx,
			`INSERT INTO users (name, email, password_hash)
			 VALUES ($1, $2, $3)
			 RETURNING `+userColumns,
			name, NormalizeEmail(email), passwordHash,
		))
		return err
	})
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrConflict
		}
		return nil, fmt.Errorf("create user: %w", err)
	}
	return u, nil
}

func (s *PostgresStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	u, err := scanUser(s.db.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = $1`, NormalizeEmail(email),
	))
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("get user by email: %w", err)
	}
	return u, err
}

func (s *PostgresStore) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	u, err := scanUser(s.db.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1`, id,
	))
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("get user by id: %w", err)
	}
	return u, err
}

// UserActive reads only the active flag. It backs the user cache, which
// never trusts a cached flag.
func (s *PostgresStore) UserActive(ctx context.Context, id int64) (bool, error) {
	var active bool
	err := s.db.QueryRow(ctx, `SELECT is_active FROM users WHERE id = $1`, id).Scan(&active)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, ErrNotFound
	}
	if err != nil {
		return false, fmt.Errorf("user active: %w", err)
	}
	return active, nil
}

func (s *PostgresStore) UpdatePassword(ctx context.Context, id int64, passwordHash string) error {
	tag, err := s.db.Exec(ctx, `UPDATE users SET password_hash = $2 WHERE id = $1`, id, passwordHash)
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ── Pets ────────────────────────────────────────────────────

const petColumns = `id, user_id, name, species, breed, age, COALESCE(photo_key, ''), created_at`

func scanPet(row pgx.Row) (*models.Pet, error) {
	var p models.Pet
	if err := row.Scan(&p.ID, &p.UserID, &p.Name, &p.Species, &p.Breed, &p.Age, &p.PhotoKey, &p.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	p.HasPhoto = p.PhotoKey != ""
	return &p, nil
}

func (s *PostgresStore) CreatePet(ctx context.Context, p *models.Pet) (*models.Pet, error) {
	out, err := scanPet(s.db.QueryRow(ctx,
		`INSERT INTO pets (user_id, name, species, breed, age)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING `+petColumns,
		p.UserID, p.Name, p.Species, p.Breed, p.Age,
	))
	if err != nil {
		return nil, fmt.Errorf("create pet: %w", err)
	}
	return out, nil
}

// ListPets returns the user's pets oldest first.
func (s *PostgresStore) ListPets(ctx context.Context, userID int64) ([]models.Pet, error) {
	rows, err := s.db.Query(ctx,
		`SELECT `+petColumns+` FROM pets WHERE user_id = $1 ORDER BY id`, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("list pets: %w", err)
	}
	pets, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.Pet, error) {
		p, err := scanPet(row)
		if err != nil {
			return models.Pet{}, err
		}
		return *p, nil
	})
	if err != nil {
		return nil, fmt.Errorf("list pets: %w", err)
	}
	return pets, nil
}

// GetPet returns the pet only when userID owns it; otherwise ErrNotFound.
func (s *PostgresStore) GetPet(ctx context.Context, userID, petID int64) (*models.Pet, error) {
	p, err := scanPet(s.db.QueryRow(ctx,
		`SELECT `+petColumns+` FROM pets WHERE id = $1 AND user_id = $2`, petID, userID,
	))
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("get pet: %w", err)
	}
	return p, err
}

func (s *PostgresStore) UpdatePet(ctx context.Context, p *models.Pet) (*models.Pet, error) {
	out, err := scanPet(s.db.QueryRow(ctx,
		`UPDATE pets SET name = $3, species = $4, breed = $5, age = $6
		 WHERE id = $1 AND user_id = $2
		 RETURNING `+petColumns,
		p.ID, p.UserID, p.Name, p.Species, p.Breed, p.Age,
	))
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("update pet: %w", err)
	}
	return out, err
}

// SetPetPhoto records a new photo object key and returns the one it
// replaced ("" when there was none).
func (s *PostgresStore) SetPetPhoto(ctx context.Context, userID, petID int64, key string) (string, error) {
	var previous string
	err := withTx(ctx, s.db, func(ctx context.Context, tx DBTX) error {
		err := tx.QueryRow(ctx,
			`SELECT COALESCE(photo_key, '') FROM pets WHERE id = $1 AND user_id = $2 FOR UPDATE`,
			petID, userID,
		).Scan(&previous)
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		_, err = tx.Exec(ctx, `UPDATE pets SET photo_key = $3 WHERE id = $1 AND user_id = $2`, petID, userID, key)
		return err
	})
	if err != nil && !errors.Is(err, ErrNotFound) {
		return "", fmt.Errorf("set pet photo: %w", err)
	}
	return previous, err
}

// DeletePet removes the pet and, by cascade, its medications. The deleted
// row is returned so callers can clean up external objects.
func (s *PostgresStore) DeletePet(ctx context.Context, userID, petID int64) (*models.Pet, error) {
	p, err := scanPet(s.db.QueryRow(ctx,
		`DELETE FROM pets WHERE id = $1 AND user_id = $2 RETURNING `+petColumns, petID, userID,
	))
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("delete pet: %w", err)
	}
	return p, err
}

// ── Medications ─────────────────────────────────────────────

const medicationColumns = `id, pet_id, name, dosage, frequency, start_time, end_time`

func scanMedication(row pgx.Row) (*models.Medication, error) {
	var m models.Medication
	if err := row.Scan(&m.ID, &m.PetID, &m.Name, &m.Dosage, &m.Frequency, &m.StartTime, &m.EndTime); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &m, nil
}

func (s *PostgresStore) CreateMedication(ctx context.Context, m *models.Medication) (*models.Medication, error) {
	out, err := scanMedication(s.db.QueryRow(ctx,
		`INSERT INTO medications (pet_id, name, dosage, frequency, start_time, end_time)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING `+medicationColumns,
		m.PetID, m.Name, m.Dosage, m.Frequency, m.StartTime, m.EndTime,
	))
	if err != nil {
		return nil, fmt.Errorf("create medication: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) ListMedications(ctx context.Context, petID int64) ([]models.Medication, error) {
	rows, err := s.db.Query(ctx,
		`SELECT `+medicationColumns+` FROM medications WHERE pet_id = $1 ORDER BY start_time, id`, petID,
	)
	if err != nil {
		return nil, fmt.Errorf("list medications: %w", err)
	}
	meds, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.Medication, error) {
		m, err := scanMedication(row)
		if err != nil {
			return models.Medication{}, err
		}
		return *m, nil
	})
	if err != nil {
		return nil, fmt.Errorf("list medications: %w", err)
	}
	return meds, nil
}

func (s *PostgresStore) GetMedication(ctx context.Context, petID, medID int64) (*models.Medication, error) {
	m, err := scanMedication(s.db.QueryRow(ctx,
		`SELECT `+medicationColumns+` FROM medications WHERE id = $1 AND pet_id = $2`, medID, petID,
	))
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("get medication: %w", err)
	}
	return m, err
}

func (s *PostgresStore) UpdateMedication(ctx context.Context, m *models.Medication) (*models.Medication, error) {
	out, err := scanMedication(s.db.QueryRow(ctx,
		`UPDATE medications
		 SET name = $3, dosage = $4, frequency = $5, start_time = $6, end_time = $7
		 WHERE id = $1 AND pet_id = $2
		 RETURNING `+medicationColumns,
		m.ID, m.PetID, m.Name, m.Dosage, m.Frequency, m.StartTime, m.EndTime,
	))
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("update medication: %w", err)
	}
	return out, err
}

func (s *PostgresStore) DeleteMedication(ctx context.Context, petID, medID int64) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM medications WHERE id = $1 AND pet_id = $2`, medID, petID)
	if err != nil {
		return fmt.Errorf("delete medication: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
