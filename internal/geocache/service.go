package geocache

import (
	"context"
	"errors"
	"strings"

	"backend-geocaching/internal/db"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// PhotoRemover releases a stored photo by its opaque reference.
type PhotoRemover interface {
	Remove(ref string) error
}

type Service struct {
	db    db.Querier
	blobs PhotoRemover
}

func NewService(db db.Querier, blobs PhotoRemover) *Service {
	return &Service{db: db, blobs: blobs}
}

func (s *Service) Create(ctx context.Context, input CreateInput) (Geocache, error) {
	if input.CreatorID == "" {
		return Geocache{}, ErrValidation
	}
	if input.Difficulty < 1 || input.Difficulty > 5 {
		return Geocache{}, ErrValidation
	}
	if err := input.Coordinates.Validate(); err != nil {
		return Geocache{}, err
	}

	g := Geocache{
		ID:          uuid.NewString(),
		Coordinates: input.Coordinates,
		Difficulty:  input.Difficulty,
		Description: input.Description,
		PhotoPath:   input.PhotoPath,
		PhotoType:   input.PhotoType,
		HasPhoto:    input.PhotoPath != "",
		CreatorID:   input.CreatorID,
	}
	row := s.db.QueryRow(ctx, `
		INSERT INTO geocaches (id, lat, lng, difficulty, description, photo_path, photo_content_type, creator_id)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		RETURNING created_at
	`, g.ID, g.Coordinates.Lat, g.Coordinates.Lng, g.Difficulty, g.Description, g.PhotoPath, g.PhotoType, g.CreatorID)
	if err := row.Scan(&g.CreatedAt); err != nil {
		return Geocache{}, err
	}
	return g, nil
}

func (s *Service) Get(ctx context.Context, id string) (Geocache, error) {
	g, err := s.getRow(ctx, id)
	if err != nil {
		return Geocache{}, err
	}

	comments, err := s.loadComments(ctx, []string{id})
	if err != nil {
		return Geocache{}, err
	}
	findings, err := s.loadFindings(ctx, []string{id})
	if err != nil {
		return Geocache{}, err
	}
	g.Comments = comments[id]
	g.Findings = findings[id]
	return g, nil
}

func (s *Service) List(ctx context.Context) ([]Geocache, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, lat, lng, difficulty, description, photo_path, photo_content_type, creator_id, created_at
		FROM geocaches
		ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var caches []Geocache
	var ids []string
	for rows.Next() {
		g, err := scanGeocache(rows)
		if err != nil {
			return nil, err
		}
		ids = append(ids, g.ID)
		caches = append(caches, g)
	}

	comments, err := s.loadComments(ctx, ids)
	if err != nil {
		return nil, err
	}
	findings, err := s.loadFindings(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range caches {
		caches[i].Comments = comments[caches[i].ID]
		caches[i].Findings = findings[caches[i].ID]
	}
	return caches, nil
}

func (s *Service) Update(ctx context.Context, id, actingUserID string, patch UpdateInput) (Geocache, error) {
	g, err := s.getRow(ctx, id)
	if err != nil {
		return Geocache{}, err
	}
	if err := assertOwner(g, actingUserID); err != nil {
		return Geocache{}, err
	}

	if patch.Coordinates != nil {
		if err := patch.Coordinates.Validate(); err != nil {
			return Geocache{}, err
		}
		g.Coordinates = *patch.Coordinates
	}
	if patch.Difficulty != nil {
		if *patch.Difficulty < 1 || *patch.Difficulty > 5 {
			return Geocache{}, ErrValidation
		}
		g.Difficulty = *patch.Difficulty
	}
	if patch.Description != nil {
		g.Description = *patch.Description
	}
	oldPhoto := ""
	if patch.PhotoPath != "" {
		if g.PhotoPath != "" && g.PhotoPath != patch.PhotoPath {
			oldPhoto = g.PhotoPath
		}
		g.PhotoPath = patch.PhotoPath
		g.PhotoType = patch.PhotoType
		g.HasPhoto = true
	}

	_, err = s.db.Exec(ctx, `
		UPDATE geocaches
		SET lat=$2, lng=$3, difficulty=$4, description=$5, photo_path=$6, photo_content_type=$7
		WHERE id=$1
	`, g.ID, g.Coordinates.Lat, g.Coordinates.Lng, g.Difficulty, g.Description, g.PhotoPath, g.PhotoType)
	if err != nil {
		return Geocache{}, err
	}
	if oldPhoto != "" && s.blobs != nil {
		_ = s.blobs.Remove(oldPhoto)
	}
	return g, nil
}

func (s *Service) Delete(ctx context.Context, id, actingUserID string) error {
	g, err := s.getRow(ctx, id)
	if err != nil {
		return err
	}
	if err := assertOwner(g, actingUserID); err != nil {
		return err
	}

	if g.PhotoPath != "" && s.blobs != nil {
		// Best effort, a missing file must not block the delete.
		_ = s.blobs.Remove(g.PhotoPath)
	}

	if _, err := s.db.Exec(ctx, `DELETE FROM geocaches WHERE id=$1`, id); err != nil {
		return err
	}
	// Drop the per-user mirror rows so found lists do not reference a
	// geocache that no longer exists.
	_, err = s.db.Exec(ctx, `DELETE FROM user_found_caches WHERE geocache_id=$1`, id)
	return err
}

func (s *Service) AddComment(ctx context.Context, id, authorID, text string) (Comment, error) {
	if strings.TrimSpace(text) == "" {
		return Comment{}, ErrValidation
	}
	if _, err := s.getRow(ctx, id); err != nil {
		return Comment{}, err
	}

	c := Comment{
		ID:       uuid.NewString(),
		AuthorID: authorID,
		Text:     text,
	}
	row := s.db.QueryRow(ctx, `
		INSERT INTO geocache_comments (id, geocache_id, author_id, body)
		VALUES ($1,$2,$3,$4)
		RETURNING created_at
	`, c.ID, id, c.AuthorID, c.Text)
	if err := row.Scan(&c.CreatedAt); err != nil {
		return Comment{}, err
	}
	return c, nil
}

// Photo returns the stored photo reference and content type. ErrNotFound
// covers both a missing geocache and a geocache without a photo.
func (s *Service) Photo(ctx context.Context, id string) (string, string, error) {
	g, err := s.getRow(ctx, id)
	if err != nil {
		return "", "", err
	}
	if g.PhotoPath == "" {
		return "", "", ErrNotFound
	}
	return g.PhotoPath, g.PhotoType, nil
}

func (s *Service) getRow(ctx context.Context, id string) (Geocache, error) {
	row := s.db.QueryRow(ctx, `
		SELECT id, lat, lng, difficulty, description, photo_path, photo_content_type, creator_id, created_at
		FROM geocaches WHERE id=$1
	`, id)
	g, err := scanGeocache(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Geocache{}, ErrNotFound
	}
	if err != nil {
		return Geocache{}, err
	}
	return g, nil
}

func scanGeocache(row pgx.Row) (Geocache, error) {
	var g Geocache
	if err := row.Scan(&g.ID, &g.Coordinates.Lat, &g.Coordinates.Lng, &g.Difficulty,
		&g.Description, &g.PhotoPath, &g.PhotoType, &g.CreatorID, &g.CreatedAt); err != nil {
		return Geocache{}, err
	}
	g.HasPhoto = g.PhotoPath != ""
	return g, nil
}

func (s *Service) loadComments(ctx context.Context, ids []string) (map[string][]Comment, error) {
	comments := map[string][]Comment{}
	if len(ids) == 0 {
		return comments, nil
	}
	rows, err := s.db.Query(ctx, `
		SELECT id, geocache_id, author_id, body, created_at
		FROM geocache_comments WHERE geocache_id = ANY($1)
		ORDER BY created_at
	`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var c Comment
		var geocacheID string
		if err := rows.Scan(&c.ID, &geocacheID, &c.AuthorID, &c.Text, &c.CreatedAt); err != nil {
			return nil, err
		}
		comments[geocacheID] = append(comments[geocacheID], c)
	}
	return comments, nil
}

func (s *Service) loadFindings(ctx context.Context, ids []string) (map[string][]Finding, error) {
	findings := map[string][]Finding{}
	if len(ids) == 0 {
		return findings, nil
	}
	rows, err := s.db.Query(ctx, `
		SELECT geocache_id, user_id, comment, found_at
		FROM geocache_findings WHERE geocache_id = ANY($1)
		ORDER BY found_at
	`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var f Finding
		var geocacheID string
		if err := rows.Scan(&geocacheID, &f.UserID, &f.Comment, &f.FoundAt); err != nil {
			return nil, err
		}
		findings[geocacheID] = append(findings[geocacheID], f)
	}
	return findings, nil
}
