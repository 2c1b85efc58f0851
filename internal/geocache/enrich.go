package geocache

import "context"

// UserDirectory resolves a user id to a display email.
type UserDirectory interface {
	Email(ctx context.Context, userID string) (string, error)
}

// UnknownUserEmail is the sentinel shown when a lookup fails or the user
// is gone. A failed lookup never aborts enrichment of the other entries.
const UnknownUserEmail = "unknown user"

type EnrichedComment struct {
	Comment
	AuthorEmail string `json:"author_email"`
}

type EnrichedGeocache struct {
	Geocache
	CreatorEmail string            `json:"creator_email"`
	Comments     []EnrichedComment `json:"comments"`
}

// Enrich attaches display emails to a geocache and its comments. The stored
// geocache is not modified; the result is a view-only copy.
func Enrich(ctx context.Context, dir UserDirectory, g Geocache) EnrichedGeocache {
	out := EnrichAll(ctx, dir, []Geocache{g})
	return out[0]
}

// EnrichAll resolves each distinct user id once per call.
func EnrichAll(ctx context.Context, dir UserDirectory, caches []Geocache) []EnrichedGeocache {
	seen := map[string]string{}
	resolve := func(userID string) string {
		if email, ok := seen[userID]; ok {
			return email
		}
		email, err := dir.Email(ctx, userID)
		if err != nil || email == "" {
			email = UnknownUserEmail
		}
		seen[userID] = email
		return email
	}

	enriched := make([]EnrichedGeocache, 0, len(caches))
	for _, g := range caches {
		e := EnrichedGeocache{
			Geocache:     g,
			CreatorEmail: resolve(g.CreatorID),
			Comments:     make([]EnrichedComment, 0, len(g.Comments)),
		}
		for _, c := range g.Comments {
			e.Comments = append(e.Comments, EnrichedComment{
				Comment:     c,
				AuthorEmail: resolve(c.AuthorID),
			})
		}
		enriched = append(enriched, e)
	}
	return enriched
}
