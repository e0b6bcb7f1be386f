package cli

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/adscopehq/adscope/internal/config"
	"github.com/adscopehq/adscope/internal/database"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Run health checks on an Adscope installation",
	Long: `Run health checks on an Adscope installation.

Checks performed:
  - Database connection
  - PostgreSQL version ≥15
  - Database migrations completed
  - Insight table partitions exist
  - Rollup materialized view exists

Example:
  adscope doctor
  adscope doctor --json
  adscope doctor --show-config`,
	RunE: runDoctor,
}

type CheckResult struct {
	Name       string `json:"name"`
	Pass       bool   `json:"pass"`
	Error      string `json:"error,omitempty"`
	Suggestion string `json:"suggestion,omitempty"`
	Details    string `json:"details,omitempty"`
}

func checkDatabaseConnection(db *sql.DB) CheckResult {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		return CheckResult{
			Name:       "Database Connection",
			Pass:       false,
			Error:      err.Error(),
			Suggestion: "Verify DATABASE_URL and ensure PostgreSQL is running",
		}
	}
	return CheckResult{Name: "Database Connection", Pass: true}
}

func checkPostgreSQLVersion(db *sql.DB) CheckResult {
	var version string
	err := db.QueryRow("SHOW server_version").Scan(&version)
	if err != nil {
		return CheckResult{Name: "PostgreSQL Version", Pass: false, Error: err.Error()}
	}

	// Parse version (e.g., "17.1 (Debian 17.1-1)")
	parts := strings.Split(version, " ")
	versionNum := strings.Split(parts[0], ".")
	major, _ := strconv.Atoi(versionNum[0])

	if major < 15 {
		return CheckResult{
			Name:       "PostgreSQL Version",
			Pass:       false,
			Error:      fmt.Sprintf("Version %s found, need ≥15", parts[0]),
			Suggestion: "Upgrade PostgreSQL to version 15 or higher",
		}
	}
	return CheckResult{Name: "PostgreSQL Version", Pass: true, Details: parts[0]}
}

func checkMigrations(cfg *config.Config) CheckResult {
	version, dirty, err := database.GetMigrationVersion(cfg.DatabaseURL)
	if err != nil {
		return CheckResult{
			Name:       "Database Migrations",
			Pass:       false,
			Error:      err.Error(),
			Suggestion: "Start the server once to apply migrations",
		}
	}

	if dirty {
		return CheckResult{
			Name:       "Database Migrations",
			Pass:       false,
			Error:      "Migration state is dirty",
			Suggestion: "Fix dirty migration state, may need manual intervention",
		}
	}

	return CheckResult{Name: "Database Migrations", Pass: true, Details: fmt.Sprintf("v%d", version)}
}

// checkInsightPartitions verifies the fact table has a partition covering
// the current month. The default partition still catches writes, but then
// old ranges can no longer be dropped cheaply.
func checkInsightPartitions(db *sql.DB) CheckResult {
	currentPartition := "campaign_insights_" + time.Now().UTC().Format("2006_01")

	query := `
		SELECT c.relname
		FROM pg_inherits i
		JOIN pg_class c ON c.oid = i.inhrelid
		JOIN pg_class p ON p.oid = i.inhparent
		WHERE p.relname = 'campaign_insights'
	`

	rows, err := db.Query(query)
	if err != nil {
		return CheckResult{Name: "Insight Partitions", Pass: false, Error: err.Error()}
	}
	defer func() { _ = rows.Close() }()

	found := make(map[string]bool)
	for rows.Next() {
		var name string
		_ = rows.Scan(&name)
		found[name] = true
	}

	if !found[currentPartition] {
		return CheckResult{
			Name:       "Insight Partitions",
			Pass:       false,
			Error:      fmt.Sprintf("Partition %s missing", currentPartition),
			Suggestion: "The partition scheduler creates it at server start; start the server or create it manually",
		}
	}

	return CheckResult{
		Name:    "Insight Partitions",
		Pass:    true,
		Details: fmt.Sprintf("%d partitions, current month present", len(found)),
	}
}

func checkRollupView(db *sql.DB) CheckResult {
	query := `
		SELECT matviewname
		FROM pg_matviews
		WHERE schemaname = 'public' AND matviewname = 'daily_insight_rollup'
	`

	var name string
	err := db.QueryRow(query).Scan(&name)
	if err == sql.ErrNoRows {
		return CheckResult{
			Name:       "Rollup View",
			Pass:       false,
			Error:      "daily_insight_rollup not found",
			Suggestion: "Run migrations to create the rollup view",
		}
	}
	if err != nil {
		return CheckResult{Name: "Rollup View", Pass: false, Error: err.Error()}
	}

	details := ""
	if stats, err := database.GetMaterializedViewStats(); err == nil {
		if views, ok := stats["views"].([]map[string]interface{}); ok {
			for _, v := range views {
				if v["name"] == "public.daily_insight_rollup" {
					details, _ = v["size"].(string)
				}
			}
		}
	}

	return CheckResult{Name: "Rollup View", Pass: true, Details: details}
}

func runDoctor(cmd *cobra.Command, args []string) error {
	jsonOutput, _ := cmd.Flags().GetBool("json")
	showConfig, _ := cmd.Flags().GetBool("show-config")

	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("✗ Configuration Error: %v\n", err)
		return err
	}

	if showConfig {
		return outputEffectiveConfig(cfg)
	}

	results := []CheckResult{}

	err = database.ConnectURL(cfg.DatabaseURL)
	if err != nil {
		results = append(results, CheckResult{
			Name:       "Database Connection",
			Pass:       false,
			Error:      err.Error(),
			Suggestion: "Verify DATABASE_URL is valid",
		})
	} else {
		defer func() { _ = database.Close() }()
		db := database.DB

		results = append(results, checkDatabaseConnection(db))
		results = append(results, checkPostgreSQLVersion(db))
		results = append(results, checkMigrations(cfg))
		results = append(results, checkInsightPartitions(db))
		results = append(results, checkRollupView(db))
	}

	if jsonOutput {
		outputDoctorJSON(results)
	} else {
		outputDoctorHuman(results)
	}

	allPassed := true
	for _, r := range results {
		if !r.Pass {
			allPassed = false
			break
		}
	}

	if !allPassed {
		os.Exit(1)
	}

	return nil
}

// outputEffectiveConfig prints the merged configuration as YAML with the
// database password masked.
func outputEffectiveConfig(cfg *config.Config) error {
	type effectiveConfig struct {
		DatabaseURL    string   `yaml:"database_url"`
		Port           string   `yaml:"port"`
		SecureCookies  bool     `yaml:"secure_cookies"`
		TrustedOrigins []string `yaml:"trusted_origins"`
		PeriodCap      int      `yaml:"period_cap"`
	}

	out := effectiveConfig{
		DatabaseURL:    maskDatabaseURL(cfg.DatabaseURL),
		Port:           cfg.Port,
		SecureCookies:  cfg.SecureCookies,
		TrustedOrigins: cfg.TrustedOrigins,
		PeriodCap:      cfg.PeriodCap,
	}

	data, err := yaml.Marshal(out)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	fmt.Print(string(data))
	return nil
}

func maskDatabaseURL(url string) string {
	at := strings.LastIndex(url, "@")
	colon := strings.Index(url, "://")
	if at == -1 || colon == -1 || at < colon {
		return url
	}
	creds := url[colon+3 : at]
	if pw := strings.Index(creds, ":"); pw != -1 {
		return url[:colon+3] + creds[:pw] + ":****" + url[at:]
	}
	return url
}

func outputDoctorHuman(results []CheckResult) {
	fmt.Println("\n🏥 Adscope Health Check")

	for _, r := range results {
		icon := "✓"
		if !r.Pass {
			icon = "✗"
		}

		fmt.Printf("%s %s", icon, r.Name)
		if r.Details != "" {
			fmt.Printf(" (%s)", r.Details)
		}
		fmt.Println()

		if !r.Pass {
			if r.Error != "" {
				fmt.Printf("  Error: %s\n", r.Error)
			}
			if r.Suggestion != "" {
				fmt.Printf("  💡 %s\n", r.Suggestion)
			}
		}
	}

	passed := 0
	for _, r := range results {
		if r.Pass {
			passed++
		}
	}

	fmt.Printf("\n%d/%d checks passed\n\n", passed, len(results))
}

func outputDoctorJSON(results []CheckResult) {
	data, _ := json.MarshalIndent(results, "", "  ")
	fmt.Println(string(data))
}

func init() {
	doctorCmd.Flags().Bool("json", false, "Output results as JSON")
	doctorCmd.Flags().Bool("show-config", false, "Print the effective configuration as YAML and exit")
}
