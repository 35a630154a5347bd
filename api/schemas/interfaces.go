package schemas

import (
	"context"
)

// -- LLM Interfaces --

// LLMClient defines the contract for any model that can turn a prompt into
// raw text. Implementations return the completion exactly as received and
// never retry on their own.
type LLMClient interface {
	// Generate sends a prompt and returns the raw completion text.
	Generate(ctx context.Context, req GenerationRequest) (string, error)
	// Close releases any resources held by the client.
	Close() error
}

// GenerationRequest bundles the prompts and sampling options for one call.
type GenerationRequest struct {
	SystemPrompt string
	UserPrompt   string
	Options      GenerationOptions
}

// GenerationOptions tunes a single generation call. Zero values fall back to
// the client's configured defaults.
type GenerationOptions struct {
	Temperature     *float64
	MaxTokens       int
	ForceJSONFormat bool
}

// -- Persistence Interfaces --

// ResultSink accepts finished Results for best-effort storage. Save must not
// block the caller on I/O and must not report storage failures back.
type ResultSink interface {
	Save(result *Result, userID string)
}

// HistoryEntry is one row of the refactor history shown on the dashboard.
type HistoryEntry struct {
	ID             string  `json:"id"`
	Timestamp      string  `json:"timestamp"`
	Snippet        string  `json:"snippet"`
	Smell          string  `json:"smell"`
	OriginalCode   string  `json:"original_code"`
	RefactoredCode string  `json:"refactored_code"`
	Explanation    string  `json:"explanation"`
	Language       string  `json:"language,omitempty"`
	AnalysisType   string  `json:"analysis_type,omitempty"`
	Metrics        Metrics `json:"metrics"`
}

// DashboardStats is the aggregate view returned by the stats endpoint.
type DashboardStats struct {
	TotalAnalyses  int             `json:"totalAnalyses"`
	SmellsFixed    int             `json:"smellsFixed"`
	TimeSaved      float64         `json:"timeSaved"`
	RecentProjects []RecentProject `json:"recentProjects"`
}

// RecentProject is one dashboard tile.
type RecentProject struct {
	ID     string `json:"id"`
	Type   string `json:"type"`
	Title  string `json:"title"`
	Date   string `json:"date"`
	Status string `json:"status"`
	Smells int    `json:"smells"`
}

// HistoryReader serves read-only history and stats views.
type HistoryReader interface {
	History(ctx context.Context, userID string, limit int) ([]HistoryEntry, error)
	Stats(ctx context.Context, userID string) (DashboardStats, error)
}
