// Package sqlite provides a SQLite-backed pet storage implementation.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	sqlitemigrate "github.com/pawtrail/pawtrail/internal/platform/storage/sqlitemigrate"
	"github.com/pawtrail/pawtrail/internal/services/pets/storage"
	"github.com/pawtrail/pawtrail/internal/services/pets/storage/sqlite/migrations"
	_ "modernc.org/sqlite"
)

// Store persists pet state in SQLite.
type Store struct {
	sqlDB *sql.DB
}

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

// Open opens a SQLite pet store and applies embedded migrations.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	cleanPath := filepath.Clean(path)
	dsn := cleanPath + "?_journal_mode=WAL&_foreign_keys=ON&_busy_timeout=5000&_synchronous=NORMAL"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := sqlitemigrate.ApplyMigrations(sqlDB, migrations.FS, ""); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &Store{sqlDB: sqlDB}, nil
}

// OpenDB wraps an existing handle and applies embedded migrations.
// It lets multiple stores share one database file.
func OpenDB(sqlDB *sql.DB) (*Store, error) {
	if sqlDB == nil {
		return nil, fmt.Errorf("sql db is required")
	}
	if err := sqlitemigrate.ApplyMigrations(sqlDB, migrations.FS, ""); err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &Store{sqlDB: sqlDB}, nil
}

// Close closes the SQLite handle.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// CreatePet inserts one pet record.
func (s *Store) CreatePet(ctx context.Context, pet storage.Pet) (storage.Pet, error) {
	if err := ctx.Err(); err != nil {
		return storage.Pet{}, err
	}
	if s == nil || s.sqlDB == nil {
		return storage.Pet{}, fmt.Errorf("storage is not configured")
	}
	pet.Name = strings.TrimSpace(pet.Name)
	if pet.Name == "" {
		return storage.Pet{}, fmt.Errorf("pet name is required")
	}
	if pet.OwnerID <= 0 {
		return storage.Pet{}, fmt.Errorf("owner id is required")
	}
	if pet.Status == "" {
		pet.Status = storage.StatusHome
	}
	if !pet.Status.Valid() {
		return storage.Pet{}, fmt.Errorf("invalid pet status %q", pet.Status)
	}
	now := time.Now().UTC()
	if pet.CreatedAt.IsZero() {
		pet.CreatedAt = now
	}
	pet.UpdatedAt = pet.CreatedAt

	var lostDate any
	if pet.LostDate != nil {
		lostDate = toMillis(*pet.LostDate)
	}
	var age any
	if pet.Age != nil {
		age = *pet.Age
	}
	result, err := s.sqlDB.ExecContext(
		ctx,
		`INSERT INTO pets (
		   owner_id, name, species, breed, age, color, gender,
		   distinctive_features, status, last_seen_location,
		   coord_x, coord_y, lost_date, created_at, updated_at
		 ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		pet.OwnerID,
		pet.Name,
		strings.TrimSpace(pet.Species),
		strings.TrimSpace(pet.Breed),
		age,
		strings.TrimSpace(pet.Color),
		strings.TrimSpace(pet.Gender),
		strings.TrimSpace(pet.DistinctiveFeatures),
		string(pet.Status),
		strings.TrimSpace(pet.LastSeenLocation),
		strings.TrimSpace(pet.CoordX),
		strings.TrimSpace(pet.CoordY),
		lostDate,
		toMillis(pet.CreatedAt),
		toMillis(pet.UpdatedAt),
	)
	if err != nil {
		return storage.Pet{}, fmt.Errorf("insert pet: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return storage.Pet{}, fmt.Errorf("pet insert id: %w", err)
	}
	return s.GetPet(ctx, id)
}

// GetPet loads one pet by id.
func (s *Store) GetPet(ctx context.Context, id int64) (storage.Pet, error) {
	if err := ctx.Err(); err != nil {
		return storage.Pet{}, err
	}
	if s == nil || s.sqlDB == nil {
		return storage.Pet{}, fmt.Errorf("storage is not configured")
	}
	row := s.sqlDB.QueryRowContext(ctx, petSelect+` WHERE id = ?`, id)
	pet, err := scanPet(row)
	if errors.Is(err, sql.ErrNoRows) {
		return storage.Pet{}, storage.ErrNotFound
	}
	if err != nil {
		return storage.Pet{}, fmt.Errorf("select pet: %w", err)
	}
	return pet, nil
}

// UpdatePet overwrites the mutable fields of an existing record.
func (s *Store) UpdatePet(ctx context.Context, pet storage.Pet) (storage.Pet, error) {
	if err := ctx.Err(); err != nil {
		return storage.Pet{}, err
	}
	if s == nil || s.sqlDB == nil {
		return storage.Pet{}, fmt.Errorf("storage is not configured")
	}
	pet.Name = strings.TrimSpace(pet.Name)
	if pet.Name == "" {
		return storage.Pet{}, fmt.Errorf("pet name is required")
	}
	if !pet.Status.Valid() {
		return storage.Pet{}, fmt.Errorf("invalid pet status %q", pet.Status)
	}
	var lostDate any
	if pet.LostDate != nil {
		lostDate = toMillis(*pet.LostDate)
	}
	var age any
	if pet.Age != nil {
		age = *pet.Age
	}
	result, err := s.sqlDB.ExecContext(
		ctx,
		`UPDATE pets SET
		   name = ?, species = ?, breed = ?, age = ?, color = ?, gender = ?,
		   distinctive_features = ?, status = ?, last_seen_location = ?,
		   coord_x = ?, coord_y = ?, lost_date = ?, updated_at = ?
		 WHERE id = ?`,
		pet.Name,
		strings.TrimSpace(pet.Species),
		strings.TrimSpace(pet.Breed),
		age,
		strings.TrimSpace(pet.Color),
		strings.TrimSpace(pet.Gender),
		strings.TrimSpace(pet.DistinctiveFeatures),
		string(pet.Status),
		strings.TrimSpace(pet.LastSeenLocation),
		strings.TrimSpace(pet.CoordX),
		strings.TrimSpace(pet.CoordY),
		lostDate,
		toMillis(time.Now().UTC()),
		pet.ID,
	)
	if err != nil {
		return storage.Pet{}, fmt.Errorf("update pet: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return storage.Pet{}, fmt.Errorf("update pet rows: %w", err)
	}
	if affected == 0 {
		return storage.Pet{}, storage.ErrNotFound
	}
	return s.GetPet(ctx, pet.ID)
}

// ListPets returns pets newest-first, narrowed by filter.
func (s *Store) ListPets(ctx context.Context, filter storage.ListFilter) ([]storage.Pet, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}
	query := petSelect
	var clauses []string
	var args []any
	if filter.Status != "" {
		if !filter.Status.Valid() {
			return nil, fmt.Errorf("invalid pet status %q", filter.Status)
		}
		clauses = append(clauses, "status = ?")
		args = append(args, string(filter.Status))
	}
	if filter.OwnerID > 0 {
		clauses = append(clauses, "owner_id = ?")
		args = append(args, filter.OwnerID)
	}
	if species := strings.TrimSpace(filter.Species); species != "" {
		clauses = append(clauses, "species = ?")
		args = append(args, species)
	}
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	limit := filter.Limit
	if limit <= 0 || limit > 100 {
		limit = 100
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}
	query += " ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?"
	args = append(args, limit, offset)

	rows, err := s.sqlDB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("select pets: %w", err)
	}
	defer rows.Close()

	var pets []storage.Pet
	for rows.Next() {
		pet, err := scanPet(rows)
		if err != nil {
			return nil, fmt.Errorf("scan pet: %w", err)
		}
		pets = append(pets, pet)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate pets: %w", err)
	}
	return pets, nil
}

// DeletePet removes a pet and, via cascade, its photos and matches.
func (s *Store) DeletePet(ctx context.Context, id int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	result, err := s.sqlDB.ExecContext(ctx, `DELETE FROM pets WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete pet: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete pet rows: %w", err)
	}
	if affected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// AddPhoto stores a photo reference. A primary photo demotes any existing
// primary for the same pet.
func (s *Store) AddPhoto(ctx context.Context, photo storage.Photo) (storage.Photo, error) {
	if err := ctx.Err(); err != nil {
		return storage.Photo{}, err
	}
	if s == nil || s.sqlDB == nil {
		return storage.Photo{}, fmt.Errorf("storage is not configured")
	}
	photo.PhotoURL = strings.TrimSpace(photo.PhotoURL)
	if photo.PhotoURL == "" {
		return storage.Photo{}, fmt.Errorf("photo url is required")
	}
	if photo.PetID <= 0 {
		return storage.Photo{}, fmt.Errorf("pet id is required")
	}
	if photo.CreatedAt.IsZero() {
		photo.CreatedAt = time.Now().UTC()
	}

	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return storage.Photo{}, fmt.Errorf("begin photo tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if photo.IsPrimary {
		if _, err := tx.ExecContext(ctx, `UPDATE pet_photos SET is_primary = 0 WHERE pet_id = ?`, photo.PetID); err != nil {
			return storage.Photo{}, fmt.Errorf("demote primary photos: %w", err)
		}
	}
	result, err := tx.ExecContext(
		ctx,
		`INSERT INTO pet_photos (pet_id, photo_url, is_primary, created_at) VALUES (?, ?, ?, ?)`,
		photo.PetID,
		photo.PhotoURL,
		boolToInt(photo.IsPrimary),
		toMillis(photo.CreatedAt),
	)
	if err != nil {
		return storage.Photo{}, fmt.Errorf("insert photo: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return storage.Photo{}, fmt.Errorf("photo insert id: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return storage.Photo{}, fmt.Errorf("commit photo tx: %w", err)
	}
	return s.GetPhoto(ctx, id)
}

// ListPhotos returns the pet's photos, primary first, then newest first.
func (s *Store) ListPhotos(ctx context.Context, petID int64) ([]storage.Photo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}
	rows, err := s.sqlDB.QueryContext(
		ctx,
		`SELECT id, pet_id, photo_url, is_primary, created_at FROM pet_photos
		 WHERE pet_id = ? ORDER BY is_primary DESC, created_at DESC, id DESC`,
		petID,
	)
	if err != nil {
		return nil, fmt.Errorf("select photos: %w", err)
	}
	defer rows.Close()

	var photos []storage.Photo
	for rows.Next() {
		photo, err := scanPhoto(rows)
		if err != nil {
			return nil, fmt.Errorf("scan photo: %w", err)
		}
		photos = append(photos, photo)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate photos: %w", err)
	}
	return photos, nil
}

// GetPhoto loads one photo by id.
func (s *Store) GetPhoto(ctx context.Context, id int64) (storage.Photo, error) {
	if err := ctx.Err(); err != nil {
		return storage.Photo{}, err
	}
	if s == nil || s.sqlDB == nil {
		return storage.Photo{}, fmt.Errorf("storage is not configured")
	}
	row := s.sqlDB.QueryRowContext(
		ctx,
		`SELECT id, pet_id, photo_url, is_primary, created_at FROM pet_photos WHERE id = ?`,
		id,
	)
	photo, err := scanPhoto(row)
	if errors.Is(err, sql.ErrNoRows) {
		return storage.Photo{}, storage.ErrNotFound
	}
	if err != nil {
		return storage.Photo{}, fmt.Errorf("select photo: %w", err)
	}
	return photo, nil
}

// DeletePhoto removes one photo reference.
func (s *Store) DeletePhoto(ctx context.Context, id int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	result, err := s.sqlDB.ExecContext(ctx, `DELETE FROM pet_photos WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete photo: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete photo rows: %w", err)
	}
	if affected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// UpsertMatch records a score for the pair, replacing a previous score
// for the same found/lost pairing.
func (s *Store) UpsertMatch(ctx context.Context, match storage.Match) (storage.Match, error) {
	if err := ctx.Err(); err != nil {
		return storage.Match{}, err
	}
	if s == nil || s.sqlDB == nil {
		return storage.Match{}, fmt.Errorf("storage is not configured")
	}
	if match.FoundPetID <= 0 || match.LostPetID <= 0 {
		return storage.Match{}, fmt.Errorf("found and lost pet ids are required")
	}
	if match.CreatedAt.IsZero() {
		match.CreatedAt = time.Now().UTC()
	}
	_, err := s.sqlDB.ExecContext(
		ctx,
		`INSERT INTO pet_matches (found_pet_id, lost_pet_id, similarity_score, created_at)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT (found_pet_id, lost_pet_id)
		 DO UPDATE SET similarity_score = excluded.similarity_score`,
		match.FoundPetID,
		match.LostPetID,
		match.SimilarityScore,
		toMillis(match.CreatedAt),
	)
	if err != nil {
		return storage.Match{}, fmt.Errorf("upsert match: %w", err)
	}
	row := s.sqlDB.QueryRowContext(
		ctx,
		`SELECT id, found_pet_id, lost_pet_id, similarity_score, created_at FROM pet_matches
		 WHERE found_pet_id = ? AND lost_pet_id = ?`,
		match.FoundPetID,
		match.LostPetID,
	)
	stored, err := scanMatch(row)
	if err != nil {
		return storage.Match{}, fmt.Errorf("select match: %w", err)
	}
	return stored, nil
}

// GetMatch loads one match by id.
func (s *Store) GetMatch(ctx context.Context, id int64) (storage.Match, error) {
	if err := ctx.Err(); err != nil {
		return storage.Match{}, err
	}
	if s == nil || s.sqlDB == nil {
		return storage.Match{}, fmt.Errorf("storage is not configured")
	}
	row := s.sqlDB.QueryRowContext(
		ctx,
		`SELECT id, found_pet_id, lost_pet_id, similarity_score, created_at FROM pet_matches WHERE id = ?`,
		id,
	)
	match, err := scanMatch(row)
	if errors.Is(err, sql.ErrNoRows) {
		return storage.Match{}, storage.ErrNotFound
	}
	if err != nil {
		return storage.Match{}, fmt.Errorf("select match: %w", err)
	}
	return match, nil
}

// ListMatchesForPet returns matches touching the pet from either side,
// best score first.
func (s *Store) ListMatchesForPet(ctx context.Context, petID int64) ([]storage.Match, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}
	rows, err := s.sqlDB.QueryContext(
		ctx,
		`SELECT id, found_pet_id, lost_pet_id, similarity_score, created_at FROM pet_matches
		 WHERE found_pet_id = ? OR lost_pet_id = ?
		 ORDER BY similarity_score DESC, id ASC`,
		petID,
		petID,
	)
	if err != nil {
		return nil, fmt.Errorf("select matches: %w", err)
	}
	defer rows.Close()

	var matches []storage.Match
	for rows.Next() {
		match, err := scanMatch(rows)
		if err != nil {
			return nil, fmt.Errorf("scan match: %w", err)
		}
		matches = append(matches, match)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate matches: %w", err)
	}
	return matches, nil
}

// DeleteMatchesForPet removes every match touching the pet.
func (s *Store) DeleteMatchesForPet(ctx context.Context, petID int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	_, err := s.sqlDB.ExecContext(
		ctx,
		`DELETE FROM pet_matches WHERE found_pet_id = ? OR lost_pet_id = ?`,
		petID,
		petID,
	)
	if err != nil {
		return fmt.Errorf("delete matches: %w", err)
	}
	return nil
}

const petSelect = `SELECT
	id, owner_id, name, species, breed, age, color, gender,
	distinctive_features, status, last_seen_location,
	coord_x, coord_y, lost_date, created_at, updated_at
FROM pets`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPet(row rowScanner) (storage.Pet, error) {
	var pet storage.Pet
	var age sql.NullInt64
	var lostDate sql.NullInt64
	var status string
	var createdAt, updatedAt int64
	err := row.Scan(
		&pet.ID,
		&pet.OwnerID,
		&pet.Name,
		&pet.Species,
		&pet.Breed,
		&age,
		&pet.Color,
		&pet.Gender,
		&pet.DistinctiveFeatures,
		&status,
		&pet.LastSeenLocation,
		&pet.CoordX,
		&pet.CoordY,
		&lostDate,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return storage.Pet{}, err
	}
	pet.Status = storage.Status(status)
	if age.Valid {
		value := int(age.Int64)
		pet.Age = &value
	}
	if lostDate.Valid {
		at := fromMillis(lostDate.Int64)
		pet.LostDate = &at
	}
	pet.CreatedAt = fromMillis(createdAt)
	pet.UpdatedAt = fromMillis(updatedAt)
	return pet, nil
}

func scanPhoto(row rowScanner) (storage.Photo, error) {
	var photo storage.Photo
	var isPrimary int
	var createdAt int64
	if err := row.Scan(&photo.ID, &photo.PetID, &photo.PhotoURL, &isPrimary, &createdAt); err != nil {
		return storage.Photo{}, err
	}
	photo.IsPrimary = isPrimary != 0
	photo.CreatedAt = fromMillis(createdAt)
	return photo, nil
}

func scanMatch(row rowScanner) (storage.Match, error) {
	var match storage.Match
	var createdAt int64
	if err := row.Scan(&match.ID, &match.FoundPetID, &match.LostPetID, &match.SimilarityScore, &createdAt); err != nil {
		return storage.Match{}, err
	}
	match.CreatedAt = fromMillis(createdAt)
	return match, nil
}

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}

var (
	_ storage.PetStore   = (*Store)(nil)
	_ storage.PhotoStore = (*Store)(nil)
	_ storage.MatchStore = (*Store)(nil)
)
