package handlers

import (
	"database/sql"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/jjenkins/parliament/internal/service"
	"github.com/jjenkins/parliament/internal/store"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Register mounts the browse routes on app
func Register(app *fiber.App, db *sql.DB, logger *zap.Logger) {
	sittingStore := store.NewSittingStore(db)
	sectionStore := store.NewSectionStore(db)
	billStore := store.NewBillStore(db)
	ministryStore := store.NewMinistryStore(db)

	// read-only: Track is never called, so no resolver is needed
	lineage := service.NewLineage(db, nil)

	app.Get("/", HomeHandler(service.NewStatsService(db), sittingStore, logger))

	app.Get("/sittings", SittingsHandler(sittingStore))
	app.Get("/sittings/:date", SittingDetailHandler(sittingStore, sectionStore, ministryStore))

	app.Get("/bills", BillsHandler(billStore))
	app.Get("/bills/:id", BillDetailHandler(billStore, ministryStore, lineage))

	app.Get("/ministries", MinistriesHandler(ministryStore))
	app.Get("/ministries/:acronym", MinistryDetailHandler(ministryStore, sectionStore))
}

// MetricsHandler serves the registry in the Prometheus text format
func MetricsHandler(reg *prometheus.Registry) fiber.Handler {
	return adaptor.HTTPHandler(promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
}
