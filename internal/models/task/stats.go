package task

import (
	"math"
	"sort"
	"time"
)

type Stats struct {
	Total          int              `json:"total"`
	Completed      int              `json:"completed"`
	Pending        int              `json:"pending"`
	Overdue        int              `json:"overdue"`
	DueSoon        int              `json:"dueSoon"`
	ByPriority     map[Priority]int `json:"byPriority"`
	ByCategory     map[string]int   `json:"byCategory"`
	CompletionRate int              `json:"completionRate"`
}

// Summarize aggregates a user's tasks at the given instant.
func Summarize(tasks []*Task, now time.Time) *Stats {
	stats := &Stats{
		ByPriority: map[Priority]int{
			PriorityLow:    0,
			PriorityMedium: 0,
			PriorityHigh:   0,
		},
		ByCategory: make(map[string]int),
	}

	for _, t := range tasks {
		stats.Total++
		stats.ByPriority[t.Priority]++
		stats.ByCategory[t.Category]++

		switch t.Status(now) {
		case StatusCompleted:
			stats.Completed++
			continue
		case StatusOverdue:
			stats.Overdue++
		case StatusDueSoon:
			stats.DueSoon++
		}
		stats.Pending++
	}

	if stats.Total > 0 {
		stats.CompletionRate = int(math.Round(float64(stats.Completed) / float64(stats.Total) * 100))
	}
	return stats
}

func Categories(tasks []*Task) []string {
	seen := make(map[string]struct{})
	res := []string{}
	for _, t := range tasks {
		if _, ok := seen[t.Category]; ok {
			continue
		}
		seen[t.Category] = struct{}{}
		res = append(res, t.Category)
	}
	sort.Strings(res)
	return res
}
