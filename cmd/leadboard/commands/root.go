package commands

import (
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/Makoshaa/kia/internal/config"
	"github.com/Makoshaa/kia/internal/metrics"
	"github.com/Makoshaa/kia/internal/transformer"
)

var envFile string

var rootCmd = &cobra.Command{
	Use:   "leadboard",
	Short: "Lead-tracking dashboard service",
	Long: `leadboard pulls leads from spreadsheets, CRM endpoints or its own
database, normalizes them and serves dashboard summaries over HTTP.

Examples:
  leadboard setup
  leadboard serve
  leadboard create-user --username kia --password kia123 --name "Kia Qazaqstan"
  leadboard normalize leads.csv --window month`,
	SilenceUsage: true,
}

// Execute runs the root command. It is called once by main.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", "", "env file to load (default is .env)")
}

func loadConfig() *config.Config {
	if envFile != "" {
		return config.Load(envFile)
	}
	return config.Load()
}

func newLogger(cfg *config.Config) *logrus.Logger {
	logger := logrus.New()
	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)
	logger.SetFormatter(&logrus.JSONFormatter{})
	return logger
}

// newPipeline builds the transformer and calculator with the configured
// timezone and quality scheme.
func newPipeline(cfg *config.Config, logger *logrus.Logger) (*transformer.Transformer, *metrics.Calculator) {
	loc := cfg.Location()
	scheme := transformer.ParseScheme(cfg.QualityScheme)

	tr := transformer.New(
		transformer.WithLocation(loc),
		transformer.WithQuality(scheme, nil),
		transformer.WithLogger(logger),
	)
	calculator := metrics.NewCalculator(
		metrics.WithLocation(loc),
		metrics.WithScheme(scheme),
	)
	return tr, calculator
}
