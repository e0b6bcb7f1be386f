package insights

import (
	"fmt"
	"time"
)

// Granularity selects the bucket size for time-series views.
type Granularity string

const (
	GranularityDay   Granularity = "day"
	GranularityWeek  Granularity = "week"
	GranularityMonth Granularity = "month"
)

// ParseGranularity maps a query-string value to a granularity, defaulting to day.
func ParseGranularity(value string) Granularity {
	switch Granularity(value) {
	case GranularityWeek:
		return GranularityWeek
	case GranularityMonth:
		return GranularityMonth
	default:
		return GranularityDay
	}
}

// Period is one labeled time bucket. Key and EndKey are ISO dates bounding
// the bucket inclusively; for day buckets they are equal, for month buckets
// matching is by year-month prefix rather than exact bounds.
type Period struct {
	Label  string `json:"label"`
	Key    string `json:"key"`
	EndKey string `json:"end_key"`
}

const isoDate = "2006-01-02"

func dayMonthLabel(t time.Time) string {
	return fmt.Sprintf("%d/%d", t.Day(), int(t.Month()))
}

// BuildPeriods converts a date range and granularity into an ordered bucket
// list. The cap bounds the number of buckets produced regardless of range
// size; when the range would exceed it the result is truncated and the
// second return value reports that, so callers can surface the cutoff
// instead of silently losing data.
func BuildPeriods(start, end time.Time, g Granularity, maxBuckets int) ([]Period, bool) {
	if maxBuckets <= 0 {
		maxBuckets = 100
	}
	if end.Before(start) {
		return []Period{}, false
	}

	periods := make([]Period, 0)

	switch g {
	case GranularityWeek:
		cursor := start
		for !cursor.After(end) {
			if len(periods) >= maxBuckets {
				return periods, true
			}
			weekEnd := cursor.AddDate(0, 0, 6)
			if weekEnd.After(end) {
				weekEnd = end // final partial week is clamped to the range end
			}
			periods = append(periods, Period{
				Label:  fmt.Sprintf("%s - %s", dayMonthLabel(cursor), dayMonthLabel(weekEnd)),
				Key:    cursor.Format(isoDate),
				EndKey: weekEnd.Format(isoDate),
			})
			cursor = cursor.AddDate(0, 0, 7)
		}

	case GranularityMonth:
		cursor := time.Date(start.Year(), start.Month(), 1, 0, 0, 0, 0, time.UTC)
		for !cursor.After(end) {
			if len(periods) >= maxBuckets {
				return periods, true
			}
			monthEnd := cursor.AddDate(0, 1, -1)
			if monthEnd.After(end) {
				monthEnd = end
			}
			periods = append(periods, Period{
				Label:  cursor.Format("Jan 2006"),
				Key:    cursor.Format(isoDate),
				EndKey: monthEnd.Format(isoDate),
			})
			cursor = cursor.AddDate(0, 1, 0)
		}

	default: // day
		cursor := start
		for !cursor.After(end) {
			if len(periods) >= maxBuckets {
				return periods, true
			}
			key := cursor.Format(isoDate)
			periods = append(periods, Period{
				Label:  dayMonthLabel(cursor),
				Key:    key,
				EndKey: key,
			})
			cursor = cursor.AddDate(0, 0, 1)
		}
	}

	return periods, false
}

// AssignToPeriod finds the bucket a row date belongs to: day matches the
// exact key, week matches the inclusive [Key, EndKey] range, month matches
// by year-month prefix. Returns the period index, or false when the date
// falls outside every bucket (e.g. past a truncation cutoff).
func AssignToPeriod(date string, periods []Period, g Granularity) (int, bool) {
	switch g {
	case GranularityWeek:
		for i, p := range periods {
			if date >= p.Key && date <= p.EndKey {
				return i, true
			}
		}
	case GranularityMonth:
		if len(date) < 7 {
			return 0, false
		}
		for i, p := range periods {
			if len(p.Key) >= 7 && date[:7] == p.Key[:7] {
				return i, true
			}
		}
	default:
		for i, p := range periods {
			if date == p.Key {
				return i, true
			}
		}
	}
	return 0, false
}

// Bucket holds the per-period sums for one entity. Frequency is not
// tracked at this granularity; it is not shown in the pivot table.
type Bucket struct {
	Impressions int64   `json:"impressions"`
	Clicks      int64   `json:"clicks"`
	Spend       float64 `json:"spend"`
	Leads       int64   `json:"leads"`
	Conversions int64   `json:"conversions"`
	Revenue     float64 `json:"revenue"`
}

// BucketByPeriod re-aggregates raw rows into the given periods per entity.
// The result maps entity id to a bucket slice parallel to periods; rows
// outside every period are dropped.
func BucketByPeriod(rows []Row, level DrillLevel, periods []Period, g Granularity) map[string][]Bucket {
	out := make(map[string][]Bucket)

	for _, row := range rows {
		id := row.EntityID(level)
		if id == "" {
			continue
		}

		idx, ok := AssignToPeriod(row.Date, periods, g)
		if !ok {
			continue
		}

		buckets, ok := out[id]
		if !ok {
			buckets = make([]Bucket, len(periods))
			out[id] = buckets
		}

		buckets[idx].Impressions += row.Impressions
		buckets[idx].Clicks += row.Clicks
		buckets[idx].Spend += row.Spend
		buckets[idx].Leads += row.Leads
		buckets[idx].Conversions += row.Conversions
		buckets[idx].Revenue += row.Revenue
	}

	return out
}
