package handlers

import (
	"context"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/jjenkins/parliament/internal/model"
	"github.com/jjenkins/parliament/internal/service"
	"github.com/jjenkins/parliament/internal/store"
	"github.com/jjenkins/parliament/internal/templates"
)

func BillsHandler(billStore *store.BillStore) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx := context.Background()

		bills, err := billStore.ListWithStats(ctx)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).SendString("Error loading bills")
		}

		return render(c, templates.Bills(bills))
	}
}

// BillDetailHandler serves /bills/:id with the bill's lineage across sittings
func BillDetailHandler(billStore *store.BillStore, ministryStore *store.MinistryStore, lineage *service.Lineage) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx := context.Background()

		id, err := strconv.ParseInt(c.Params("id"), 10, 64)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).SendString("Invalid bill id")
		}

		bill, err := billStore.GetByID(ctx, id)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).SendString("Error loading bill")
		}
		if bill == nil {
			return c.Status(fiber.StatusNotFound).SendString("Bill not found")
		}

		var ministry *model.Ministry
		if bill.MinistryID.Valid {
			ministries, err := ministryStore.GetAll(ctx)
			if err != nil {
				return c.Status(fiber.StatusInternalServerError).SendString("Error loading ministries")
			}
			for i := range ministries {
				if ministries[i].ID == bill.MinistryID.Int64 {
					ministry = &ministries[i]
				}
			}
		}

		sections, err := lineage.BillSections(ctx, bill.ID)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).SendString("Error loading sections")
		}

		return render(c, templates.BillDetail(bill, ministry, sections))
	}
}
