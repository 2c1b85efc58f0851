package geocache

import (
	"encoding/json"
	"errors"
	"strconv"
	"strings"

	"backend-geocaching/internal/storage"

	"github.com/gofiber/fiber/v2"
)

type createRequest struct {
	Coordinates json.RawMessage `json:"coordinates"`
	Difficulty  json.RawMessage `json:"difficulty"`
	Description string          `json:"description"`
}

type updateRequest struct {
	Coordinates json.RawMessage `json:"coordinates"`
	Difficulty  json.RawMessage `json:"difficulty"`
	Description *string         `json:"description"`
}

func RegisterRoutes(r fiber.Router, svc *Service, users UserDirectory, files *storage.Store, authMiddleware fiber.Handler) {
	r.Post("/", authMiddleware, func(c *fiber.Ctx) error {
		userID, _ := c.Locals("user_id").(string)
		input := CreateInput{CreatorID: userID}

		if isMultipart(c) {
			coords, err := coordinatesFromForm(c)
			if err != nil {
				return fiber.NewError(fiber.StatusBadRequest, err.Error())
			}
			input.Coordinates = coords

			diff, ok := parseDifficulty(c.FormValue("difficulty"))
			if !ok {
				return fiber.NewError(fiber.StatusBadRequest, "difficulty required")
			}
			input.Difficulty = diff
			input.Description = c.FormValue("description")

			ref, ctype, err := savePhoto(c, files)
			if err != nil {
				return fiber.NewError(fiber.StatusBadRequest, err.Error())
			}
			input.PhotoPath, input.PhotoType = ref, ctype
		} else {
			var req createRequest
			if err := c.BodyParser(&req); err != nil {
				return fiber.NewError(fiber.StatusBadRequest, err.Error())
			}
			if !jsonPresent(req.Coordinates) {
				return fiber.NewError(fiber.StatusBadRequest, "coordinates required")
			}
			coords, err := ParseCoordinates(req.Coordinates)
			if err != nil {
				return fiber.NewError(fiber.StatusBadRequest, err.Error())
			}
			input.Coordinates = coords

			diff, ok := parseDifficulty(string(req.Difficulty))
			if !ok {
				return fiber.NewError(fiber.StatusBadRequest, "difficulty required")
			}
			input.Difficulty = diff
			input.Description = req.Description
		}

		g, err := svc.Create(c.Context(), input)
		if err != nil {
			return toHTTPError(err)
		}
		return c.Status(fiber.StatusCreated).JSON(fiber.Map{
			"message": "geocache created",
			"id":      g.ID,
		})
	})

	r.Get("/", authMiddleware, func(c *fiber.Ctx) error {
		caches, err := svc.List(c.Context())
		if err != nil {
			return toHTTPError(err)
		}
		return c.JSON(EnrichAll(c.Context(), users, caches))
	})

	// Registered before /:id so "nearby" is not captured as an id.
	r.Get("/nearby", authMiddleware, func(c *fiber.Ctx) error {
		lat, latErr := strconv.ParseFloat(c.Query("latitude"), 64)
		lng, lngErr := strconv.ParseFloat(c.Query("longitude"), 64)
		if latErr != nil || lngErr != nil {
			return fiber.NewError(fiber.StatusBadRequest, "latitude and longitude required")
		}
		radius, err := strconv.ParseFloat(c.Query("radius"), 64)
		if err != nil || radius <= 0 {
			radius = 5
		}

		caches, err := svc.Nearby(c.Context(), lat, lng, radius)
		if err != nil {
			return toHTTPError(err)
		}
		return c.JSON(EnrichAll(c.Context(), users, caches))
	})

	r.Get("/:id/photo", func(c *fiber.Ctx) error {
		ref, ctype, err := svc.Photo(c.Context(), c.Params("id"))
		if err != nil {
			return toHTTPError(err)
		}
		if ctype != "" {
			c.Set(fiber.HeaderContentType, ctype)
		}
		if err := c.SendFile(files.Path(ref)); err != nil {
			return fiber.NewError(fiber.StatusNotFound, "photo not found")
		}
		return nil
	})

	r.Get("/:id", authMiddleware, func(c *fiber.Ctx) error {
		g, err := svc.Get(c.Context(), c.Params("id"))
		if err != nil {
			return toHTTPError(err)
		}
		return c.JSON(Enrich(c.Context(), users, g))
	})

	r.Put("/:id", authMiddleware, func(c *fiber.Ctx) error {
		userID, _ := c.Locals("user_id").(string)
		var patch UpdateInput

		if isMultipart(c) {
			if v := formCoordinatesValue(c); v != "" {
				coords, err := ParseCoordinates([]byte(v))
				if err != nil {
					return fiber.NewError(fiber.StatusBadRequest, err.Error())
				}
				patch.Coordinates = &coords
			}
			if v := c.FormValue("difficulty"); v != "" {
				diff, ok := parseDifficulty(v)
				if !ok {
					return fiber.NewError(fiber.StatusBadRequest, "difficulty must be a number")
				}
				patch.Difficulty = &diff
			}
			if v := c.FormValue("description"); v != "" {
				patch.Description = &v
			}
			ref, ctype, err := savePhoto(c, files)
			if err != nil {
				return fiber.NewError(fiber.StatusBadRequest, err.Error())
			}
			patch.PhotoPath, patch.PhotoType = ref, ctype
		} else {
			var req updateRequest
			if err := c.BodyParser(&req); err != nil {
				return fiber.NewError(fiber.StatusBadRequest, err.Error())
			}
			if jsonPresent(req.Coordinates) {
				coords, err := ParseCoordinates(req.Coordinates)
				if err != nil {
					return fiber.NewError(fiber.StatusBadRequest, err.Error())
				}
				patch.Coordinates = &coords
			}
			if jsonPresent(req.Difficulty) {
				diff, ok := parseDifficulty(string(req.Difficulty))
				if !ok {
					return fiber.NewError(fiber.StatusBadRequest, "difficulty must be a number")
				}
				patch.Difficulty = &diff
			}
			patch.Description = req.Description
		}

		g, err := svc.Update(c.Context(), c.Params("id"), userID, patch)
		if err != nil {
			return toHTTPError(err)
		}
		return c.JSON(g)
	})

	r.Delete("/:id", authMiddleware, func(c *fiber.Ctx) error {
		userID, _ := c.Locals("user_id").(string)
		if err := svc.Delete(c.Context(), c.Params("id"), userID); err != nil {
			return toHTTPError(err)
		}
		return c.JSON(fiber.Map{"message": "geocache deleted"})
	})

	r.Post("/:id/comment", authMiddleware, func(c *fiber.Ctx) error {
		userID, _ := c.Locals("user_id").(string)
		var body struct {
			Comment string `json:"comment"`
		}
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		comment, err := svc.AddComment(c.Context(), c.Params("id"), userID, body.Comment)
		if err != nil {
			return toHTTPError(err)
		}
		return c.JSON(fiber.Map{"message": "comment added", "comment": comment})
	})

	r.Post("/:id/found", authMiddleware, func(c *fiber.Ctx) error {
		userID, _ := c.Locals("user_id").(string)
		var body struct {
			Comment string `json:"comment"`
		}
		// The comment is optional, so an empty body is fine; a body that is
		// present but malformed is not.
		if len(c.Body()) > 0 {
			if err := c.BodyParser(&body); err != nil {
				return fiber.NewError(fiber.StatusBadRequest, err.Error())
			}
		}

		if err := svc.MarkFound(c.Context(), c.Params("id"), userID, body.Comment); err != nil {
			return toHTTPError(err)
		}
		return c.JSON(fiber.Map{"message": "geocache marked as found"})
	})
}

func toHTTPError(err error) *fiber.Error {
	switch {
	case errors.Is(err, ErrForbidden):
		return fiber.NewError(fiber.StatusForbidden, err.Error())
	case errors.Is(err, ErrNotFound):
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	case errors.Is(err, ErrValidation), errors.Is(err, ErrSelfDiscovery), errors.Is(err, ErrAlreadyFound):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	default:
		return fiber.NewError(fiber.StatusServiceUnavailable, ErrStorageUnavailable.Error())
	}
}

// jsonPresent reports whether a raw patch field carries a value. An
// explicit null counts as absent, same as leaving the field out.
func jsonPresent(raw json.RawMessage) bool {
	return len(raw) != 0 && string(raw) != "null"
}

func isMultipart(c *fiber.Ctx) bool {
	return strings.HasPrefix(c.Get(fiber.HeaderContentType), fiber.MIMEMultipartForm)
}

func formCoordinatesValue(c *fiber.Ctx) string {
	return c.FormValue("coordinates")
}

// coordinatesFromForm accepts either a single "coordinates" field holding a
// JSON value or the indexed "coordinates[0]"/"coordinates[1]" pair.
func coordinatesFromForm(c *fiber.Ctx) (Coordinates, error) {
	if v := formCoordinatesValue(c); v != "" {
		return ParseCoordinates([]byte(v))
	}

	latStr := c.FormValue("coordinates[0]")
	lngStr := c.FormValue("coordinates[1]")
	if latStr == "" || lngStr == "" {
		return Coordinates{}, errors.New("coordinates required")
	}
	lat, latErr := strconv.ParseFloat(latStr, 64)
	lng, lngErr := strconv.ParseFloat(lngStr, 64)
	if latErr != nil || lngErr != nil {
		return Coordinates{}, ErrInvalidCoordinates
	}
	return Coordinates{Lat: lat, Lng: lng}, nil
}

// parseDifficulty accepts a bare integer or its quoted form.
func parseDifficulty(raw string) (int, bool) {
	raw = strings.TrimSpace(raw)
	raw = strings.Trim(raw, `"`)
	if raw == "" {
		return 0, false
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false
	}
	return n, true
}

func savePhoto(c *fiber.Ctx, files *storage.Store) (string, string, error) {
	fh, err := c.FormFile("photo")
	if err != nil {
		return "", "", nil
	}
	return files.SaveUpload("geocaches", fh)
}
