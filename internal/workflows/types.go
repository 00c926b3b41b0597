package workflows

// ScoreRunInput starts scoring of a run row created beforehand; the run row
// carries the scoring profile.
type ScoreRunInput struct {
	RunID                string `json:"run_id"`
	ModelPath            string `json:"model_path"`
	ReadingPath          string `json:"reading_path"`
	OutPrefix            string `json:"out_prefix,omitempty"`
	Filter               string `json:"filter,omitempty"`
	ResolveSymbols       bool   `json:"resolve_symbols,omitempty"`
	BatchSize            int    `json:"batch_size"`
	MaxConcurrentBatches int    `json:"max_concurrent_batches"`
}

type ScoreRunResult struct {
	RunID  string   `json:"run_id"`
	Status string   `json:"status"`
	Rows   int      `json:"rows"`
	Kept   int      `json:"kept"`
	Paths  []string `json:"paths"`
}

type RunProgress struct {
	RunID         string         `json:"run_id"`
	Stage         string         `json:"stage"`
	TotalRows     int            `json:"total_rows"`
	ScoredRows    int            `json:"scored_rows"`
	TotalBatches  int            `json:"total_batches"`
	DoneBatches   int            `json:"done_batches"`
	FailedBatches int            `json:"failed_batches"`
	Diagnostics   int            `json:"diagnostics"`
	KindCounts    map[string]int `json:"kind_counts"`
	FailReason    string         `json:"fail_reason,omitempty"`
}
