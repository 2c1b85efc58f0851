package geocache

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
)

// MarkFound records that userID discovered the geocache. Preconditions are
// checked in order: the geocache must exist, the finder must not be its
// creator, and the finder must not have found it before. On success the
// finding is written to the geocache, mirrored into the user's found list,
// and a non-empty comment is additionally appended to the comment thread.
//
// The finding and its mirror are two separate writes in a fixed order
// (geocache first, then user). There is no cross-table transaction: a crash
// between the two leaves a finding without its mirror, which is detectable
// by comparing the two tables.
func (s *Service) MarkFound(ctx context.Context, id, userID, comment string) error {
	g, err := s.getRow(ctx, id)
	if err != nil {
		return err
	}
	if g.CreatorID == userID {
		return ErrSelfDiscovery
	}

	foundAt := time.Now()

	// The composite primary key makes the append atomic per (geocache, user):
	// a concurrent duplicate resolves as a conflict, not a double entry.
	tag, err := s.db.Exec(ctx, `
		INSERT INTO geocache_findings (geocache_id, user_id, comment, found_at)
		VALUES ($1,$2,$3,$4)
		ON CONFLICT (geocache_id, user_id) DO NOTHING
	`, id, userID, comment, foundAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrAlreadyFound
	}

	if _, err := s.db.Exec(ctx, `
		INSERT INTO user_found_caches (user_id, geocache_id, comment, found_at)
		VALUES ($1,$2,$3,$4)
		ON CONFLICT (user_id, geocache_id) DO NOTHING
	`, userID, id, comment, foundAt); err != nil {
		return err
	}

	if strings.TrimSpace(comment) != "" {
		if _, err := s.db.Exec(ctx, `
			INSERT INTO geocache_comments (id, geocache_id, author_id, body)
			VALUES ($1,$2,$3,$4)
		`, uuid.NewString(), id, userID, comment); err != nil {
			return err
		}
	}
	return nil
}
