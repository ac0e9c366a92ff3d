package handlers

import (
	"context"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/jjenkins/parliament/internal/service"
	"github.com/jjenkins/parliament/internal/store"
	"github.com/jjenkins/parliament/internal/templates"
)

const (
	defaultSittingLimit = 50
	maxSittingLimit     = 500
)

func SittingsHandler(sittingStore *store.SittingStore) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx := context.Background()

		limit := c.QueryInt("limit", defaultSittingLimit)
		if limit < 1 || limit > maxSittingLimit {
			limit = defaultSittingLimit
		}

		sittings, err := sittingStore.ListRecent(ctx, limit)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).SendString("Error loading sittings")
		}

		return render(c, templates.Sittings(sittings))
	}
}

// SittingDetailHandler serves /sittings/:date. ?ministry=ACRONYM restricts
// the agenda to one ministry.
func SittingDetailHandler(sittingStore *store.SittingStore, sectionStore *store.SectionStore, ministryStore *store.MinistryStore) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx := context.Background()

		date, err := service.ParseDate(c.Params("date"))
		if err != nil {
			return c.Status(fiber.StatusBadRequest).SendString("Invalid sitting date")
		}

		sitting, err := sittingStore.GetByDate(ctx, date)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).SendString("Error loading sitting")
		}
		if sitting == nil {
			return c.Status(fiber.StatusNotFound).SendString("Sitting not found")
		}

		filter := strings.ToUpper(strings.TrimSpace(c.Query("ministry")))

		sections, err := sectionStore.ListForSitting(ctx, sitting.ID, filter)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).SendString("Error loading sections")
		}

		attendance, err := sittingStore.Attendance(ctx, sitting.ID)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).SendString("Error loading attendance")
		}

		ministries, err := ministryStore.GetAll(ctx)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).SendString("Error loading ministries")
		}

		return render(c, templates.SittingDetail(templates.SittingPage{
			Sitting:    sitting,
			Sections:   sections,
			Attendance: attendance,
			Ministries: ministries,
			Ministry:   filter,
		}))
	}
}
