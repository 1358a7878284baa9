// Package prefetch learns per-group access patterns from completed
// downloads and schedules speculative fetches through a bounded background
// queue. The manager only filters and schedules; deciding which concrete
// items are worth fetching stays with the download engine, which consumes
// AnalyzePatterns for its own candidate selection.
package prefetch

import (
	"sort"
	"time"
)

// sizeHistoryLimit caps the per-group size history at the most recent
// entries.
const sizeHistoryLimit = 1000

// defaultMinAccessCount gates prefetch eligibility: a group becomes
// eligible once it has been accessed this many times, so one-off items are
// never prefetched.
const defaultMinAccessCount = 2

// accessPattern accumulates per-group download history.
type accessPattern struct {
	extensions  map[string]uint64
	hours       map[int]uint64
	recentSizes []int64
	accessCount uint64
	lastAccess  time.Time
}

// FrequencyCount pairs a label with how often it was observed.
type FrequencyCount struct {
	Label string `json:"label"`
	Count uint64 `json:"count"`
}

// PatternReport summarizes one group's access pattern for the download
// engine's candidate selection.
type PatternReport struct {
	TopExtensions []FrequencyCount `json:"top_extensions"`
	TopHours      []FrequencyCount `json:"top_hours"`
	AccessCount   uint64           `json:"access_count"`
	AverageSize   int64            `json:"average_size"`
	LastAccess    time.Time        `json:"last_access"`
}

// RecordAccess folds one completed download into the group's pattern:
// extension and hour-of-day frequencies, a bounded size history, and the
// access counter that gates prefetch eligibility.
func (m *Manager) RecordAccess(groupID, extension string, size int64) {
	hour := m.now().Hour()

	m.patternsMu.Lock()
	defer m.patternsMu.Unlock()

	p, ok := m.patterns[groupID]
	if !ok {
		p = &accessPattern{
			extensions: make(map[string]uint64),
			hours:      make(map[int]uint64),
		}
		m.patterns[groupID] = p
	}

	p.extensions[extension]++
	p.hours[hour]++
	p.recentSizes = append(p.recentSizes, size)
	if len(p.recentSizes) > sizeHistoryLimit {
		p.recentSizes = p.recentSizes[len(p.recentSizes)-sizeHistoryLimit:]
	}
	p.accessCount++
	p.lastAccess = m.now()
}

// AnalyzePatterns reports the top-n extensions and hours per group.
func (m *Manager) AnalyzePatterns(n int) map[string]PatternReport {
	m.patternsMu.Lock()
	defer m.patternsMu.Unlock()

	reports := make(map[string]PatternReport, len(m.patterns))
	for groupID, p := range m.patterns {
		var total int64
		for _, s := range p.recentSizes {
			total += s
		}
		var avg int64
		if len(p.recentSizes) > 0 {
			avg = total / int64(len(p.recentSizes))
		}

		reports[groupID] = PatternReport{
			TopExtensions: topExtensions(p.extensions, n),
			TopHours:      topHours(p.hours, n),
			AccessCount:   p.accessCount,
			AverageSize:   avg,
			LastAccess:    p.lastAccess,
		}
	}
	return reports
}

// ClearStalePatterns drops groups whose last access is older than maxAge
// and returns how many were removed.
func (m *Manager) ClearStalePatterns(maxAge time.Duration) int {
	cutoff := m.now().Add(-maxAge)

	m.patternsMu.Lock()
	defer m.patternsMu.Unlock()

	removed := 0
	for groupID, p := range m.patterns {
		if p.lastAccess.Before(cutoff) {
			delete(m.patterns, groupID)
			removed++
		}
	}
	return removed
}

// groupEligibleLocked reports whether a group has crossed the
// access-count threshold. Caller must hold m.patternsMu.
func (m *Manager) groupEligibleLocked(groupID string) bool {
	p, ok := m.patterns[groupID]
	return ok && p.accessCount >= m.minAccessCount
}

func topExtensions(freq map[string]uint64, n int) []FrequencyCount {
	counts := make([]FrequencyCount, 0, len(freq))
	for label, count := range freq {
		counts = append(counts, FrequencyCount{Label: label, Count: count})
	}
	return topN(counts, n)
}

func topHours(freq map[int]uint64, n int) []FrequencyCount {
	counts := make([]FrequencyCount, 0, len(freq))
	for hour, count := range freq {
		counts = append(counts, FrequencyCount{Label: hourLabel(hour), Count: count})
	}
	return topN(counts, n)
}

// topN sorts by count descending with label as tiebreak for stable output.
func topN(counts []FrequencyCount, n int) []FrequencyCount {
	sort.Slice(counts, func(i, j int) bool {
		if counts[i].Count != counts[j].Count {
			return counts[i].Count > counts[j].Count
		}
		return counts[i].Label < counts[j].Label
	})
	if n > 0 && len(counts) > n {
		counts = counts[:n]
	}
	return counts
}

func hourLabel(hour int) string {
	return time.Date(0, 1, 1, hour, 0, 0, 0, time.UTC).Format("15:00")
}
