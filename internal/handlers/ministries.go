package handlers

import (
	"context"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/jjenkins/parliament/internal/store"
	"github.com/jjenkins/parliament/internal/templates"
)

const ministrySectionLimit = 100

func MinistriesHandler(ministryStore *store.MinistryStore) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx := context.Background()

		ministries, err := ministryStore.ListWithCounts(ctx)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).SendString("Error loading ministries")
		}

		return render(c, templates.Ministries(ministries))
	}
}

func MinistryDetailHandler(ministryStore *store.MinistryStore, sectionStore *store.SectionStore) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx := context.Background()

		acronym := strings.ToUpper(c.Params("acronym"))

		ministry, err := ministryStore.GetByAcronym(ctx, acronym)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).SendString("Error loading ministry")
		}
		if ministry == nil {
			return c.Status(fiber.StatusNotFound).SendString("Ministry not found")
		}

		sections, err := sectionStore.ListForMinistry(ctx, ministry.Acronym, ministrySectionLimit)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).SendString("Error loading sections")
		}

		return render(c, templates.MinistryDetail(ministry, sections))
	}
}
