package rotation

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"lvm-backup/src/backend"
)

// Policy selects which stored artifacts of a host/vg/lv subtree survive a
// prune. "Latest" is always the lexically greatest timestamp directory,
// which is chronological by construction of the store layout.
type Policy string

const (
	// Current retains only the most recent artifact.
	Current Policy = "current"
	// Day retains the latest artifact plus the latest of the previous day,
	// month and year buckets (at most four artifacts).
	Day Policy = "day"
	// Month retains the latest artifact plus the latest of the previous
	// month and year buckets (at most three artifacts).
	Month Policy = "month"
	// Year retains the latest artifact plus the latest of the previous year
	// bucket (at most two artifacts).
	Year Policy = "year"
	// Disabled retains everything.
	Disabled Policy = "disabled"
)

func (p Policy) String() string { return string(p) }

// Parse validates a policy name from the CLI or the defaults file.
func Parse(s string) (Policy, error) {
	switch p := Policy(strings.ToLower(strings.TrimSpace(s))); p {
	case Current, Day, Month, Year, Disabled:
		return p, nil
	default:
		return "", fmt.Errorf("unknown rotation policy %q (expected current|day|month|year|disabled)", s)
	}
}

type bucketFn func(time.Time) time.Time

func truncDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func truncMonth(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

func truncYear(t time.Time) time.Time {
	return time.Date(t.Year(), 1, 1, 0, 0, 0, 0, time.UTC)
}

// buckets returns the calendar granularities a policy retains. For each
// granularity the newest artifact of the two newest distinct buckets is
// kept: the bucket holding the latest artifact plus the one before it.
func (p Policy) buckets() []bucketFn {
	switch p {
	case Day:
		return []bucketFn{truncDay, truncMonth, truncYear}
	case Month:
		return []bucketFn{truncMonth, truncYear}
	case Year:
		return []bucketFn{truncYear}
	default:
		return nil
	}
}

// bucketsPerGranularity bounds the distinct calendar buckets retained per
// granularity. Two buckets (current plus previous) yield the documented
// retention counts: day keeps at most 4 artifacts, month 3, year 2.
const bucketsPerGranularity = 2

// Plan returns the artifacts eligible for deletion under the policy. The
// input must all belong to the same host/vg/lv subtree. Entries whose
// timestamp does not parse are foreign directories, not artifacts: they
// are excluded before the newest is selected and are never deleted.
func Plan(p Policy, entries []backend.Entry) []backend.Entry {
	if p == Disabled {
		return nil
	}

	sorted := make([]backend.Entry, 0, len(entries))
	for _, e := range entries {
		if _, err := e.Time(); err != nil {
			continue
		}
		sorted = append(sorted, e)
	}
	if len(sorted) == 0 {
		return nil
	}
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Timestamp > sorted[j].Timestamp
	})

	keep := map[string]struct{}{}

	// Newest artifact is always retained.
	keep[sorted[0].Path] = struct{}{}

	for _, trunc := range p.buckets() {
		markByBucket(sorted, bucketsPerGranularity, trunc, keep)
	}

	var del []backend.Entry
	for _, e := range sorted {
		if _, ok := keep[e.Path]; ok {
			continue
		}
		del = append(del, e)
	}
	return del
}

// markByBucket walks artifacts newest-first, assigns each to a calendar
// bucket, and keeps the newest artifact in up to count distinct buckets.
// The input carries parseable timestamps only.
func markByBucket(sortedNewestFirst []backend.Entry, count int, trunc bucketFn, keep map[string]struct{}) {
	seen := map[time.Time]bool{}
	for _, e := range sortedNewestFirst {
		t, _ := e.Time()
		bucket := trunc(t)
		if !seen[bucket] {
			seen[bucket] = true
			keep[e.Path] = struct{}{}
			if len(seen) >= count {
				return
			}
		}
	}
}
