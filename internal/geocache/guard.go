package geocache

// assertOwner rejects mutation by anyone but the creator.
func assertOwner(g Geocache, userID string) error {
	if g.CreatorID != userID {
		return ErrForbidden
	}
	return nil
}
