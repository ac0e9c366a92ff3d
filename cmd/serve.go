package cmd

import (
	"fmt"

	"github.com/gofiber/fiber/v2"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/jjenkins/parliament/internal/handlers"
	"github.com/jjenkins/parliament/internal/service"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the sitting browser web server",
	Long:  `Start the read-only web server to browse stored sittings, bills and ministries.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openStore()
		if err != nil {
			return err
		}
		defer db.Close()

		reg := prometheus.NewRegistry()
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
			service.NewStatsCollector(service.NewStatsService(db), logger),
		)

		app := fiber.New(fiber.Config{
			AppName:               "Hansard Browser",
			DisableStartupMessage: true,
		})

		app.Use(fiberlogger.New())

		handlers.Register(app, db, logger)
		app.Get("/metrics", handlers.MetricsHandler(reg))

		addr := fmt.Sprintf(":%d", cfg.Server.Port)
		logger.Info("Starting server", zap.String("addr", addr))
		if err := app.Listen(addr); err != nil {
			return fmt.Errorf("failed to start server: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().IntP("port", "p", 8080, "Port to run the server on")
	_ = v.BindPFlag("server.port", serveCmd.Flags().Lookup("port"))
}
