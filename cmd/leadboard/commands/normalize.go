package commands

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Makoshaa/kia/internal/client"
	"github.com/Makoshaa/kia/internal/models"
)

var normalizeWindow string

var normalizeCmd = &cobra.Command{
	Use:   "normalize <file>",
	Short: "Normalize a JSON or CSV export and print leads, summary and quality report",
	Long: `normalize runs a local file through the same pipeline a dashboard
refresh uses. Files ending in .csv are read as a spreadsheet export, anything
else as a JSON response (bare array, data/leads/values envelope).`,
	Args: cobra.ExactArgs(1),
	RunE: runNormalize,
}

func init() {
	normalizeCmd.Flags().StringVar(&normalizeWindow, "window", string(models.WindowWeek), "summary window: week, month or year")
	rootCmd.AddCommand(normalizeCmd)
}

type normalizeOutput struct {
	Leads   []models.Lead            `json:"leads"`
	Summary models.DashboardSummary  `json:"summary"`
	Quality models.DataQualityReport `json:"quality"`
}

func runNormalize(cmd *cobra.Command, args []string) error {
	cfg := loadConfig()
	logger := newLogger(cfg)
	logger.SetOutput(cmd.ErrOrStderr())

	body, err := os.ReadFile(args[0])
	if err != nil {
		return err
	}

	records, err := readRecords(args[0], body)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", args[0], err)
	}

	tr, calculator := newPipeline(cfg, logger)
	leads, report := tr.NormalizeBatch(records)

	encoder := json.NewEncoder(cmd.OutOrStdout())
	encoder.SetIndent("", "  ")
	return encoder.Encode(normalizeOutput{
		Leads:   leads,
		Summary: calculator.Aggregate(leads, models.ParseWindow(normalizeWindow)),
		Quality: report,
	})
}

func readRecords(path string, body []byte) ([]models.RawRecord, error) {
	if strings.EqualFold(filepath.Ext(path), ".csv") {
		return client.ParseCSV(body)
	}
	return client.DecodeRecords(body)
}
