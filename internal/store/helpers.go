package store

import (
	"math"
	"unicode/utf8"

	"github.com/xkilldash9x/synapse/api/schemas"
)

// hoursPerAnalysis is the dashboard's estimate of time saved per refactor, in hours.
const hoursPerAnalysis = 0.25

func newStats(total, smelly int, recent []schemas.RecentProject) schemas.DashboardStats {
	return schemas.DashboardStats{
		TotalAnalyses:  total,
		SmellsFixed:    smelly,
		TimeSaved:      math.Round(float64(total)*hoursPerAnalysis*10) / 10,
		RecentProjects: recent,
	}
}

func recentProject(id, title, date string, smell *string) schemas.RecentProject {
	smells := 0
	if smell != nil && *smell != "" {
		smells = 1
	}
	return schemas.RecentProject{
		ID:     id,
		Type:   "code",
		Title:  title,
		Date:   date,
		Status: "Completed",
		Smells: smells,
	}
}

// snippet returns the first n runes of code followed by an ellipsis.
func snippet(code string, n int) string {
	if utf8.RuneCountInString(code) <= n {
		return code + "..."
	}
	runes := []rune(code)
	return string(runes[:n]) + "..."
}

func decodeMetrics(raw []byte) schemas.Metrics {
	var m schemas.Metrics
	if len(raw) == 0 {
		return m
	}
	if err := json.Unmarshal(raw, &m); err != nil {
		return schemas.Metrics{}
	}
	return m
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func orDefault(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}
