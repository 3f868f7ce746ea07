package journal

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/0xxCool/SolanaMemeCoin-bot/internal/domain"
)

// ExportFormat represents the export file format
type ExportFormat string

const (
	FormatCSV  ExportFormat = "csv"
	FormatJSON ExportFormat = "json"
)

// ExportOptions configures the export behavior
type ExportOptions struct {
	Format      ExportFormat
	StartTime   time.Time
	EndTime     time.Time
	TokenFilter string // keep only this token mint
	OnlyWins    bool   // keep only profitable closes
	OutputDir   string
}

// exportSummary is attached to JSON exports.
type exportSummary struct {
	Count       int     `json:"count"`
	Wins        int     `json:"wins"`
	TotalPnLSOL float64 `json:"total_pnl_sol"`
}

type jsonExport struct {
	ExportedAt time.Time            `json:"exported_at"`
	Summary    exportSummary        `json:"summary"`
	Trades     []domain.TradeRecord `json:"trades"`
}

// Exporter writes closed-trade records to disk for offline analysis.
type Exporter struct {
	logger *zap.Logger
}

func NewExporter(logger *zap.Logger) *Exporter {
	return &Exporter{logger: logger.Named("export")}
}

// Export filters, sorts and writes the records, returning the path of
// the written file.
func (e *Exporter) Export(records []domain.TradeRecord, options ExportOptions) (string, error) {
	filtered := filterRecords(records, options)
	if len(filtered) == 0 {
		return "", fmt.Errorf("no trades match the export criteria")
	}

	sort.Slice(filtered, func(i, j int) bool {
		return filtered[i].ExitTime.Before(filtered[j].ExitTime)
	})

	if err := os.MkdirAll(options.OutputDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}
	outputPath := filepath.Join(options.OutputDir,
		fmt.Sprintf("trades_%s.%s", time.Now().Format("20060102_150405"), options.Format))

	var err error
	switch options.Format {
	case FormatCSV:
		err = exportCSV(filtered, outputPath)
	case FormatJSON:
		err = exportJSON(filtered, outputPath)
	default:
		err = fmt.Errorf("unsupported format: %s", options.Format)
	}
	if err != nil {
		return "", err
	}

	e.logger.Info("Trades exported",
		zap.String("file", outputPath),
		zap.Int("count", len(filtered)),
		zap.String("format", string(options.Format)))
	return outputPath, nil
}

func filterRecords(records []domain.TradeRecord, options ExportOptions) []domain.TradeRecord {
	filtered := make([]domain.TradeRecord, 0, len(records))
	for _, rec := range records {
		if !options.StartTime.IsZero() && rec.ExitTime.Before(options.StartTime) {
			continue
		}
		if !options.EndTime.IsZero() && rec.ExitTime.After(options.EndTime) {
			continue
		}
		if options.TokenFilter != "" && rec.TokenMint != options.TokenFilter {
			continue
		}
		if options.OnlyWins && rec.PnLSOL <= 0 {
			continue
		}
		filtered = append(filtered, rec)
	}
	return filtered
}

func exportCSV(records []domain.TradeRecord, outputPath string) error {
	file, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create export file: %w", err)
	}
	defer file.Close()

	w := csv.NewWriter(file)
	defer w.Flush()

	header := []string{
		"id", "token_mint", "symbol", "entry_price", "exit_price",
		"invested_sol", "pnl_sol", "pnl_percent", "reason",
		"entry_time", "exit_time",
	}
	if err := w.Write(header); err != nil {
		return err
	}
	for _, rec := range records {
		row := []string{
			rec.ID,
			rec.TokenMint,
			rec.Symbol,
			strconv.FormatFloat(rec.EntryPrice, 'f', -1, 64),
			strconv.FormatFloat(rec.ExitPrice, 'f', -1, 64),
			strconv.FormatFloat(rec.InvestedSOL, 'f', -1, 64),
			strconv.FormatFloat(rec.PnLSOL, 'f', -1, 64),
			strconv.FormatFloat(rec.PnLPercent, 'f', 2, 64),
			rec.Reason,
			rec.EntryTime.Format(time.RFC3339),
			rec.ExitTime.Format(time.RFC3339),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	return w.Error()
}

func exportJSON(records []domain.TradeRecord, outputPath string) error {
	summary := exportSummary{Count: len(records)}
	for _, rec := range records {
		summary.TotalPnLSOL += rec.PnLSOL
		if rec.PnLSOL > 0 {
			summary.Wins++
		}
	}

	file, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create export file: %w", err)
	}
	defer file.Close()

	enc := json.NewEncoder(file)
	enc.SetIndent("", "  ")
	return enc.Encode(jsonExport{
		ExportedAt: time.Now(),
		Summary:    summary,
		Trades:     records,
	})
}
