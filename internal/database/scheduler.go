package database

import (
	"fmt"
	"time"

	"github.com/adscopehq/adscope/internal/logging"
)

var (
	nowFunc              = time.Now
	partitionMonthsAhead = 2
	retentionMonths      = 24
)

// PartitionScheduler manages automatic partition creation and cleanup for
// the campaign_insights fact table.
type PartitionScheduler struct {
	databaseURL string
	stopChan    chan struct{}
}

// NewPartitionScheduler creates a new partition scheduler
func NewPartitionScheduler(databaseURL string) *PartitionScheduler {
	return &PartitionScheduler{
		databaseURL: databaseURL,
		stopChan:    make(chan struct{}),
	}
}

// Start begins the partition management tasks
func (ps *PartitionScheduler) Start() {
	logging.L().Info("starting partition scheduler")

	// Create future partitions daily
	go ps.schedulePartitionCreation()

	// Clean up old partitions weekly
	go ps.schedulePartitionCleanup()
}

// Stop gracefully stops the scheduler
func (ps *PartitionScheduler) Stop() {
	close(ps.stopChan)
}

func (ps *PartitionScheduler) schedulePartitionCreation() {
	ticker := time.NewTicker(24 * time.Hour)
	defer ticker.Stop()

	// Run immediately on start
	ps.createFuturePartitions()

	for {
		select {
		case <-ticker.C:
			ps.createFuturePartitions()
		case <-ps.stopChan:
			return
		}
	}
}

// createFuturePartitions creates monthly partitions covering the current
// month plus partitionMonthsAhead.
func (ps *PartitionScheduler) createFuturePartitions() {
	logging.L().Info("creating future partitions")

	base := nowFunc()
	firstOfMonth := time.Date(base.Year(), base.Month(), 1, 0, 0, 0, 0, time.UTC)

	for i := 0; i <= partitionMonthsAhead; i++ {
		start := firstOfMonth.AddDate(0, i, 0)
		end := start.AddDate(0, 1, 0)
		partitionName := fmt.Sprintf("campaign_insights_%s", start.Format("2006_01"))

		query := fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s
			PARTITION OF campaign_insights
			FOR VALUES FROM ('%s') TO ('%s')
		`, partitionName, start.Format("2006-01-02"), end.Format("2006-01-02"))

		_, err := DB.Exec(query)
		if err != nil {
			logging.L().Warn("failed to create partition", "partition", partitionName, "error", err)
			continue
		}

		logging.L().Info("created partition", "partition", partitionName)
	}
}

func (ps *PartitionScheduler) schedulePartitionCleanup() {
	ticker := time.NewTicker(7 * 24 * time.Hour) // Weekly
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			ps.cleanupOldPartitions()
		case <-ps.stopChan:
			return
		}
	}
}

// cleanupOldPartitions drops monthly partitions older than the retention window
func (ps *PartitionScheduler) cleanupOldPartitions() {
	cutoff := nowFunc().AddDate(0, -retentionMonths, 0)

	logging.L().Info("cleaning up old partitions", "cutoff", cutoff.Format("2006-01"))

	rows, err := DB.Query(`
		SELECT tablename
		FROM pg_tables
		WHERE schemaname = 'public'
		  AND tablename LIKE 'campaign_insights_%'
		  AND tablename <> 'campaign_insights_default'
		  AND tablename < $1
		ORDER BY tablename
	`, fmt.Sprintf("campaign_insights_%s", cutoff.Format("2006_01")))

	if err != nil {
		logging.L().Warn("failed to query old partitions", "error", err)
		return
	}
	defer func() {
		if err := rows.Close(); err != nil {
			logging.L().Warn("failed to close partition rows", "error", err)
		}
	}()

	droppedCount := 0
	for rows.Next() {
		var tableName string
		if err := rows.Scan(&tableName); err != nil {
			continue
		}

		query := fmt.Sprintf("DROP TABLE IF EXISTS %s", tableName)
		_, err := DB.Exec(query)
		if err != nil {
			logging.L().Warn("failed to drop partition", "partition", tableName, "error", err)
			continue
		}

		logging.L().Info("dropped old partition", "partition", tableName)
		droppedCount++
	}

	if droppedCount > 0 {
		logging.L().Info("partition cleanup complete", "dropped_count", droppedCount)
	}
}

// MaterializedViewScheduler manages concurrent refreshes
type MaterializedViewScheduler struct {
	stopChan chan struct{}
}

// NewMaterializedViewScheduler creates a new refresh scheduler
func NewMaterializedViewScheduler() *MaterializedViewScheduler {
	return &MaterializedViewScheduler{
		stopChan: make(chan struct{}),
	}
}

// Start begins the refresh tasks
func (mvs *MaterializedViewScheduler) Start() {
	logging.L().Info("starting materialized view refresh scheduler")

	// Summary rollup: every 15 minutes
	go mvs.scheduleRefresh("daily_insight_rollup", 15*time.Minute)
}

// Stop gracefully stops the scheduler
func (mvs *MaterializedViewScheduler) Stop() {
	close(mvs.stopChan)
}

// scheduleRefresh refreshes a materialized view at the specified interval
func (mvs *MaterializedViewScheduler) scheduleRefresh(viewName string, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	// Initial refresh on startup
	mvs.refreshView(viewName)

	for {
		select {
		case <-ticker.C:
			mvs.refreshView(viewName)
		case <-mvs.stopChan:
			return
		}
	}
}

// refreshView performs a concurrent refresh of the materialized view
func (mvs *MaterializedViewScheduler) refreshView(viewName string) {
	start := time.Now()

	query := fmt.Sprintf("REFRESH MATERIALIZED VIEW CONCURRENTLY %s", viewName)
	_, err := DB.Exec(query)

	duration := time.Since(start)

	if err != nil {
		logging.L().Warn("failed to refresh materialized view", "view", viewName, "error", err)
		return
	}

	logging.L().Info("refreshed materialized view", "view", viewName, "duration", duration)
}

// GetMaterializedViewStats returns refresh statistics
func GetMaterializedViewStats() (map[string]interface{}, error) {
	stats := make(map[string]interface{})

	// Query view sizes
	rows, err := DB.Query(`
		SELECT
			schemaname || '.' || matviewname as view_name,
			pg_size_pretty(pg_total_relation_size(schemaname||'.'||matviewname)) as size,
			last_refresh
		FROM pg_matviews
		WHERE schemaname = 'public'
		ORDER BY matviewname
	`)

	if err != nil {
		return nil, fmt.Errorf("failed to query matview stats: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			logging.L().Warn("failed to close stats rows", "error", err)
		}
	}()

	views := []map[string]interface{}{}
	for rows.Next() {
		var viewName, size string
		var lastRefresh *time.Time

		if err := rows.Scan(&viewName, &size, &lastRefresh); err != nil {
			continue
		}

		viewInfo := map[string]interface{}{
			"name": viewName,
			"size": size,
		}

		if lastRefresh != nil {
			viewInfo["last_refresh"] = lastRefresh.Format(time.RFC3339)
			viewInfo["age"] = time.Since(*lastRefresh).String()
		}

		views = append(views, viewInfo)
	}

	stats["views"] = views
	return stats, nil
}
