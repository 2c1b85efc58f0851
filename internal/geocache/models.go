package geocache

import "time"

type Geocache struct {
	ID          string      `json:"id"`
	Coordinates Coordinates `json:"coordinates"`
	Difficulty  int         `json:"difficulty"`
	Description string      `json:"description"`
	PhotoPath   string      `json:"-"`
	PhotoType   string      `json:"-"`
	HasPhoto    bool        `json:"has_photo"`
	CreatorID   string      `json:"creator_id"`
	CreatedAt   time.Time   `json:"created_at"`
	Comments    []Comment   `json:"comments"`
	Findings    []Finding   `json:"findings"`
}

type Comment struct {
	ID        string    `json:"id"`
	AuthorID  string    `json:"author_id"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}

type Finding struct {
	UserID  string    `json:"user_id"`
	Comment string    `json:"comment,omitempty"`
	FoundAt time.Time `json:"found_at"`
}

type CreateInput struct {
	CreatorID   string
	Coordinates Coordinates
	Difficulty  int
	Description string
	PhotoPath   string
	PhotoType   string
}

// UpdateInput carries a partial patch. Nil pointers mean the field is
// untouched; photo fields apply only when non-empty.
type UpdateInput struct {
	Coordinates *Coordinates
	Difficulty  *int
	Description *string
	PhotoPath   string
	PhotoType   string
}
