package user

import (
	"errors"

	"backend-geocaching/internal/storage"

	"github.com/gofiber/fiber/v2"
)

func RegisterRoutes(r fiber.Router, svc *Service, files *storage.Store, authMiddleware fiber.Handler) {
	r.Get("/ranking", authMiddleware, func(c *fiber.Ctx) error {
		ranking, err := svc.Ranking(c.Context())
		if err != nil {
			return fiber.NewError(fiber.StatusServiceUnavailable, "storage unavailable")
		}
		return c.JSON(ranking)
	})

	r.Post("/avatar", authMiddleware, func(c *fiber.Ctx) error {
		userID, _ := c.Locals("user_id").(string)

		fh, err := c.FormFile("avatar")
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "no image provided")
		}
		ref, _, err := files.SaveUpload("avatars", fh)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		old, err := svc.SetAvatar(c.Context(), userID, ref)
		if err != nil {
			_ = files.Remove(ref)
			return userHTTPError(err)
		}
		if old != "" && old != ref {
			_ = files.Remove(old)
		}
		return c.JSON(fiber.Map{"message": "avatar updated", "avatarUrl": ref})
	})

	r.Get("/avatar/:userId", func(c *fiber.Ctx) error {
		ref, err := svc.AvatarPath(c.Context(), c.Params("userId"))
		if err != nil {
			return fiber.NewError(fiber.StatusNotFound, "avatar not found")
		}
		if err := c.SendFile(files.Path(ref)); err != nil {
			return fiber.NewError(fiber.StatusNotFound, "avatar not found")
		}
		return nil
	})

	r.Get("/me", authMiddleware, func(c *fiber.Ctx) error {
		userID, _ := c.Locals("user_id").(string)
		profile, err := svc.Profile(c.Context(), userID)
		if err != nil {
			return userHTTPError(err)
		}
		return c.JSON(profile)
	})
}

func userHTTPError(err error) *fiber.Error {
	if errors.Is(err, ErrNotFound) {
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	}
	return fiber.NewError(fiber.StatusServiceUnavailable, "storage unavailable")
}
