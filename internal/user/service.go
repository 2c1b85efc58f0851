package user

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"backend-geocaching/internal/db"

	"github.com/jackc/pgx/v5"
	"github.com/redis/go-redis/v9"
)

var ErrNotFound = errors.New("user not found")

const rankingCacheKey = "users:ranking"

type Service struct {
	db       db.Querier
	cache    *redis.Client
	cacheTTL time.Duration
}

// NewService builds the user service. cache may be nil; the ranking then
// falls back to querying on every call.
func NewService(querier db.Querier, cache *redis.Client, cacheTTL time.Duration) *Service {
	return &Service{db: querier, cache: cache, cacheTTL: cacheTTL}
}

// Email resolves a user id to its email. Satisfies geocache.UserDirectory.
func (s *Service) Email(ctx context.Context, userID string) (string, error) {
	var email string
	err := s.db.QueryRow(ctx, `SELECT email FROM users WHERE id=$1`, userID).Scan(&email)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", err
	}
	return email, nil
}

func (s *Service) Profile(ctx context.Context, userID string) (Profile, error) {
	var p Profile
	var avatarPath string
	err := s.db.QueryRow(ctx, `
		SELECT id, email, avatar_path, created_at
		FROM users WHERE id=$1
	`, userID).Scan(&p.ID, &p.Email, &avatarPath, &p.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Profile{}, ErrNotFound
	}
	if err != nil {
		return Profile{}, err
	}
	p.HasAvatar = avatarPath != ""

	rows, err := s.db.Query(ctx, `
		SELECT geocache_id, comment, found_at
		FROM user_found_caches WHERE user_id=$1
		ORDER BY found_at DESC
	`, userID)
	if err != nil {
		return Profile{}, err
	}
	defer rows.Close()

	p.FoundCaches = []FoundCache{}
	for rows.Next() {
		var f FoundCache
		if err := rows.Scan(&f.GeocacheID, &f.Comment, &f.FoundAt); err != nil {
			return Profile{}, err
		}
		p.FoundCaches = append(p.FoundCaches, f)
	}
	return p, nil
}

// Ranking returns all users ordered by found count, ties broken by email.
// The computed list is cached in redis under a short TTL; cache errors are
// ignored and the query runs directly.
func (s *Service) Ranking(ctx context.Context) ([]RankingEntry, error) {
	if s.cache != nil {
		if cached, err := s.cache.Get(ctx, rankingCacheKey).Bytes(); err == nil {
			var ranking []RankingEntry
			if json.Unmarshal(cached, &ranking) == nil {
				return ranking, nil
			}
		}
	}

	rows, err := s.db.Query(ctx, `
		SELECT u.id, u.email, u.avatar_path, COUNT(f.geocache_id)
		FROM users u
		LEFT JOIN user_found_caches f ON f.user_id = u.id
		GROUP BY u.id, u.email, u.avatar_path
		ORDER BY COUNT(f.geocache_id) DESC, u.email
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ranking := []RankingEntry{}
	for rows.Next() {
		var e RankingEntry
		var avatarPath string
		if err := rows.Scan(&e.ID, &e.Email, &avatarPath, &e.FoundCount); err != nil {
			return nil, err
		}
		e.HasAvatar = avatarPath != ""
		ranking = append(ranking, e)
	}

	if s.cache != nil {
		if payload, err := json.Marshal(ranking); err == nil {
			_ = s.cache.Set(ctx, rankingCacheKey, payload, s.cacheTTL).Err()
		}
	}
	return ranking, nil
}

// SetAvatar records the new avatar reference and returns the previous one so
// the caller can release the old file.
func (s *Service) SetAvatar(ctx context.Context, userID, ref string) (string, error) {
	var old string
	err := s.db.QueryRow(ctx, `SELECT avatar_path FROM users WHERE id=$1`, userID).Scan(&old)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", err
	}

	if _, err := s.db.Exec(ctx, `
		UPDATE users SET avatar_path=$2, updated_at=now() WHERE id=$1
	`, userID, ref); err != nil {
		return "", err
	}
	return old, nil
}

func (s *Service) AvatarPath(ctx context.Context, userID string) (string, error) {
	var path string
	err := s.db.QueryRow(ctx, `SELECT avatar_path FROM users WHERE id=$1`, userID).Scan(&path)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", err
	}
	if path == "" {
		return "", ErrNotFound
	}
	return path, nil
}
