package handlers

import (
	"context"

	"github.com/a-h/templ"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/jjenkins/parliament/internal/service"
	"github.com/jjenkins/parliament/internal/store"
	"github.com/jjenkins/parliament/internal/templates"
	"go.uber.org/zap"
)

const recentSittings = 10

func render(c *fiber.Ctx, page templ.Component) error {
	handler := adaptor.HTTPHandler(templ.Handler(page))
	return handler(c)
}

func HomeHandler(stats *service.StatsService, sittingStore *store.SittingStore, logger *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx := context.Background()

		metrics := templates.HomeMetrics{}

		// Counts are best effort; the page renders without them
		s, err := stats.Calculate(ctx)
		if err != nil {
			logger.Error("Error calculating stats", zap.Error(err))
		} else {
			metrics.HasData = s.Sittings > 0
			metrics.Sittings = s.Sittings
			metrics.Members = s.Members
			metrics.Sections = s.Sections
			metrics.Bills = s.Bills
			metrics.AttributedSections = s.AttributedSections
			metrics.SummarizedSections = s.SummarizedSections
			if s.LatestSitting.Valid {
				metrics.LatestSitting = s.LatestSitting.Time
			}
		}

		if metrics.HasData {
			recent, err := sittingStore.ListRecent(ctx, recentSittings)
			if err != nil {
				logger.Error("Error loading recent sittings", zap.Error(err))
			} else {
				metrics.Recent = recent
			}
		}

		return render(c, templates.Home(metrics))
	}
}
