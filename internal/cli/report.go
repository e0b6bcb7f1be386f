package cli

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/adscopehq/adscope/internal/database"
	"github.com/adscopehq/adscope/internal/insights"
	"github.com/adscopehq/adscope/internal/metrics"
)

var (
	reportClientID    string
	reportLevel       string
	reportStart       string
	reportEnd         string
	reportFormat      string
	reportCampaignIDs []string
	reportAdsetIDs    []string
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Print an aggregated insight report for a client",
	Long: `Aggregate a client's daily insight rows over a date range and print
one summary row per campaign, ad set or ad.

Output defaults to a table on a terminal and CSV when piped.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runReport()
	},
}

func init() {
	reportCmd.Flags().StringVar(&reportClientID, "client", "", "Client UUID (required)")
	reportCmd.Flags().StringVar(&reportLevel, "level", "campaigns", "Drill level: campaigns, adsets or ads")
	reportCmd.Flags().StringVar(&reportStart, "start", "", "Range start (YYYY-MM-DD, default 30 days ago)")
	reportCmd.Flags().StringVar(&reportEnd, "end", "", "Range end (YYYY-MM-DD, default today)")
	reportCmd.Flags().StringVar(&reportFormat, "format", "", "Output format: table, csv or json")
	reportCmd.Flags().StringSliceVar(&reportCampaignIDs, "campaign", nil, "Limit to these campaign ids")
	reportCmd.Flags().StringSliceVar(&reportAdsetIDs, "adset", nil, "Limit to these ad set ids")
	_ = reportCmd.MarkFlagRequired("client")
}

func runReport() error {
	clientID, err := uuid.Parse(reportClientID)
	if err != nil {
		return fmt.Errorf("invalid client id %q: %w", reportClientID, err)
	}

	level := insights.ParseLevel(reportLevel)

	start, end, err := reportRange(reportStart, reportEnd)
	if err != nil {
		return err
	}

	format := reportFormat
	if format == "" {
		if term.IsTerminal(int(os.Stdout.Fd())) {
			format = "table"
		} else {
			format = "csv"
		}
	}

	if database.DB == nil {
		if err := database.Connect(); err != nil {
			return fmt.Errorf("database connection failed: %w", err)
		}
		defer func() { _ = database.Close() }()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	var orgID uuid.UUID
	err = database.DB.QueryRowContext(ctx,
		`SELECT organization_id FROM clients WHERE id = $1`, clientID,
	).Scan(&orgID)
	if err != nil {
		return fmt.Errorf("client %s not found: %w", clientID, err)
	}

	filterColumn, filterIDs := reportParentFilter(level)

	rows, err := insights.FetchRows(ctx, orgID, clientID, level, start, end, filterColumn, filterIDs)
	if err != nil {
		return fmt.Errorf("failed to load insight rows: %w", err)
	}

	entities := insights.Aggregate(rows, level)
	defs := metrics.DefaultRegistry().Resolve(metrics.DefaultVisible)

	switch format {
	case "table":
		return renderReportTable(entities, defs)
	case "csv":
		return renderReportCSV(entities, defs)
	case "json":
		return renderReportJSON(entities, defs)
	default:
		return fmt.Errorf("invalid format: %s (use table, csv, or json)", format)
	}
}

func reportRange(startStr, endStr string) (time.Time, time.Time, error) {
	end := time.Now().UTC().Truncate(24 * time.Hour)
	start := end.AddDate(0, 0, -30)

	var err error
	if startStr != "" {
		start, err = time.Parse("2006-01-02", startStr)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid start date %q", startStr)
		}
	}
	if endStr != "" {
		end, err = time.Parse("2006-01-02", endStr)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid end date %q", endStr)
		}
	}
	if end.Before(start) {
		return time.Time{}, time.Time{}, fmt.Errorf("end date %s is before start date %s", end.Format("2006-01-02"), start.Format("2006-01-02"))
	}
	return start, end, nil
}

// reportParentFilter picks the narrowest parent filter that applies at the
// requested level, matching the API's drill-down behavior.
func reportParentFilter(level insights.DrillLevel) (string, []string) {
	switch level {
	case insights.LevelAdsets:
		if len(reportCampaignIDs) > 0 {
			return "campaign_id", reportCampaignIDs
		}
	case insights.LevelAds:
		if len(reportAdsetIDs) > 0 {
			return "adset_id", reportAdsetIDs
		}
		if len(reportCampaignIDs) > 0 {
			return "campaign_id", reportCampaignIDs
		}
	}
	return "", nil
}

// Output formatting functions

func renderReportTable(entities []insights.Entity, defs []metrics.Definition) error {
	if len(entities) == 0 {
		fmt.Println("No insight rows in range")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	defer func() { _ = w.Flush() }()

	header := []string{"ID", "NAME", "STATUS"}
	rule := []string{"--", "----", "------"}
	for _, d := range defs {
		label := strings.ToUpper(d.ShortLabel)
		if label == "" {
			label = strings.ToUpper(d.Key)
		}
		header = append(header, label)
		rule = append(rule, strings.Repeat("-", len(label)))
	}
	_, _ = fmt.Fprintln(w, strings.Join(header, "\t"))
	_, _ = fmt.Fprintln(w, strings.Join(rule, "\t"))

	for _, e := range entities {
		cols := []string{e.ID, e.Name, e.Status}
		for _, d := range defs {
			cols = append(cols, d.Format(d.Value(e.Base)))
		}
		_, _ = fmt.Fprintln(w, strings.Join(cols, "\t"))
	}

	return nil
}

func renderReportCSV(entities []insights.Entity, defs []metrics.Definition) error {
	w := csv.NewWriter(os.Stdout)
	defer w.Flush()

	header := []string{"id", "name", "status", "objective", "rows"}
	for _, d := range defs {
		header = append(header, d.Key)
	}
	if err := w.Write(header); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}

	for _, e := range entities {
		record := []string{e.ID, e.Name, e.Status, e.Objective, strconv.Itoa(e.RowCount)}
		for _, d := range defs {
			record = append(record, strconv.FormatFloat(d.Value(e.Base), 'f', -1, 64))
		}
		if err := w.Write(record); err != nil {
			return fmt.Errorf("failed to write CSV row: %w", err)
		}
	}

	return nil
}

func renderReportJSON(entities []insights.Entity, defs []metrics.Definition) error {
	output := make([]map[string]interface{}, len(entities))
	for i, e := range entities {
		values := make(map[string]float64, len(defs))
		for _, d := range defs {
			values[d.Key] = d.Value(e.Base)
		}
		output[i] = map[string]interface{}{
			"id":        e.ID,
			"name":      e.Name,
			"status":    e.Status,
			"objective": e.Objective,
			"rows":      e.RowCount,
			"metrics":   values,
		}
	}

	data, err := json.MarshalIndent(output, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	fmt.Println(string(data))
	return nil
}
