package user

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/redis/go-redis/v9"
)

func newMock(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("mock pool: %v", err)
	}
	t.Cleanup(mock.Close)
	return mock
}

func newCache(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	server := miniredis.RunT(t)
	return server, redis.NewClient(&redis.Options{Addr: server.Addr()})
}

func TestEmailLookup(t *testing.T) {
	mock := newMock(t)
	svc := NewService(mock, nil, 0)

	mock.ExpectQuery(`SELECT email FROM users`).WithArgs("user-1").
		WillReturnRows(pgxmock.NewRows([]string{"email"}).AddRow("alice@example.com"))

	email, err := svc.Email(context.Background(), "user-1")
	if err != nil || email != "alice@example.com" {
		t.Fatalf("email: %s %v", email, err)
	}

	mock.ExpectQuery(`SELECT email FROM users`).WithArgs("ghost").WillReturnError(pgx.ErrNoRows)
	if _, err := svc.Email(context.Background(), "ghost"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestProfile(t *testing.T) {
	mock := newMock(t)
	svc := NewService(mock, nil, 0)

	createdAt := time.Now()
	foundAt := createdAt.Add(-time.Hour)
	mock.ExpectQuery(`SELECT id, email, avatar_path, created_at`).
		WithArgs("user-1").
		WillReturnRows(pgxmock.NewRows([]string{"id", "email", "avatar_path", "created_at"}).
			AddRow("user-1", "alice@example.com", "avatars/a.png", createdAt))
	mock.ExpectQuery(`SELECT geocache_id, comment, found_at`).
		WithArgs("user-1").
		WillReturnRows(pgxmock.NewRows([]string{"geocache_id", "comment", "found_at"}).
			AddRow("gc-1", "great", foundAt).
			AddRow("gc-2", "", foundAt.Add(-time.Hour)))

	p, err := svc.Profile(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("profile: %v", err)
	}
	if !p.HasAvatar {
		t.Fatalf("expected avatar flag set")
	}
	if len(p.FoundCaches) != 2 || p.FoundCaches[0].GeocacheID != "gc-1" {
		t.Fatalf("found caches: %+v", p.FoundCaches)
	}
}

func TestProfileNotFound(t *testing.T) {
	mock := newMock(t)
	svc := NewService(mock, nil, 0)

	mock.ExpectQuery(`SELECT id, email, avatar_path, created_at`).
		WithArgs("ghost").WillReturnError(pgx.ErrNoRows)

	if _, err := svc.Profile(context.Background(), "ghost"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func rankingRows() *pgxmock.Rows {
	return pgxmock.NewRows([]string{"id", "email", "avatar_path", "count"}).
		AddRow("user-2", "bob@example.com", "", 5).
		AddRow("user-1", "alice@example.com", "avatars/a.png", 2)
}

func TestRankingOrdering(t *testing.T) {
	mock := newMock(t)
	svc := NewService(mock, nil, 0)

	mock.ExpectQuery(`LEFT JOIN user_found_caches`).WillReturnRows(rankingRows())

	ranking, err := svc.Ranking(context.Background())
	if err != nil {
		t.Fatalf("ranking: %v", err)
	}
	if len(ranking) != 2 || ranking[0].ID != "user-2" || ranking[0].FoundCount != 5 {
		t.Fatalf("ranking order: %+v", ranking)
	}
	if ranking[0].HasAvatar || !ranking[1].HasAvatar {
		t.Fatalf("avatar flags: %+v", ranking)
	}
}

func TestRankingUsesCache(t *testing.T) {
	mock := newMock(t)
	server, client := newCache(t)
	svc := NewService(mock, client, 30*time.Second)

	mock.ExpectQuery(`LEFT JOIN user_found_caches`).WillReturnRows(rankingRows())

	first, err := svc.Ranking(context.Background())
	if err != nil {
		t.Fatalf("first ranking: %v", err)
	}
	if !server.Exists(rankingCacheKey) {
		t.Fatalf("ranking should be cached after the first call")
	}

	// No further query expectation: the second call must hit the cache.
	second, err := svc.Ranking(context.Background())
	if err != nil {
		t.Fatalf("second ranking: %v", err)
	}
	if len(second) != len(first) || second[0].ID != first[0].ID {
		t.Fatalf("cached ranking differs: %+v vs %+v", second, first)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestRankingIgnoresBrokenCache(t *testing.T) {
	mock := newMock(t)
	server, client := newCache(t)
	svc := NewService(mock, client, 30*time.Second)

	if err := server.Set(rankingCacheKey, "not json"); err != nil {
		t.Fatalf("seed cache: %v", err)
	}
	mock.ExpectQuery(`LEFT JOIN user_found_caches`).WillReturnRows(rankingRows())

	ranking, err := svc.Ranking(context.Background())
	if err != nil || len(ranking) != 2 {
		t.Fatalf("ranking with broken cache: %v", err)
	}

	raw, err := server.Get(rankingCacheKey)
	if err != nil {
		t.Fatalf("read cache: %v", err)
	}
	var cached []RankingEntry
	if err := json.Unmarshal([]byte(raw), &cached); err != nil {
		t.Fatalf("cache should be rewritten with valid payload: %v", err)
	}
	if len(cached) != 2 {
		t.Fatalf("rewritten cache should hold the ranking: %+v", cached)
	}
}

func TestSetAvatarReturnsOld(t *testing.T) {
	mock := newMock(t)
	svc := NewService(mock, nil, 0)

	mock.ExpectQuery(`SELECT avatar_path FROM users`).WithArgs("user-1").
		WillReturnRows(pgxmock.NewRows([]string{"avatar_path"}).AddRow("avatars/old.png"))
	mock.ExpectExec(`UPDATE users SET avatar_path`).
		WithArgs("user-1", "avatars/new.png").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	old, err := svc.SetAvatar(context.Background(), "user-1", "avatars/new.png")
	if err != nil || old != "avatars/old.png" {
		t.Fatalf("set avatar: %s %v", old, err)
	}
}

func TestSetAvatarUnknownUser(t *testing.T) {
	mock := newMock(t)
	svc := NewService(mock, nil, 0)

	mock.ExpectQuery(`SELECT avatar_path FROM users`).WithArgs("ghost").WillReturnError(pgx.ErrNoRows)

	if _, err := svc.SetAvatar(context.Background(), "ghost", "avatars/new.png"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestAvatarPath(t *testing.T) {
	mock := newMock(t)
	svc := NewService(mock, nil, 0)

	mock.ExpectQuery(`SELECT avatar_path FROM users`).WithArgs("user-1").
		WillReturnRows(pgxmock.NewRows([]string{"avatar_path"}).AddRow("avatars/a.png"))

	ref, err := svc.AvatarPath(context.Background(), "user-1")
	if err != nil || ref != "avatars/a.png" {
		t.Fatalf("avatar path: %s %v", ref, err)
	}

	mock.ExpectQuery(`SELECT avatar_path FROM users`).WithArgs("user-2").
		WillReturnRows(pgxmock.NewRows([]string{"avatar_path"}).AddRow(""))

	if _, err := svc.AvatarPath(context.Background(), "user-2"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("empty avatar should be not found, got %v", err)
	}
}
