package activities

import "violin/internal/scoring"

type PrepareRunInput struct {
	RunID          string `json:"run_id"`
	ModelPath      string `json:"model_path"`
	ReadingPath    string `json:"reading_path"`
	ResolveSymbols bool   `json:"resolve_symbols"`
}

type PrepareRunOutput struct {
	ModelID         string `json:"model_id"`
	ReadingID       string `json:"reading_id"`
	ModelElements   int    `json:"model_elements"`
	RowCount        int    `json:"row_count"`
	ResolvedSymbols int    `json:"resolved_symbols"`
	Diagnostics     int    `json:"diagnostics"`
}

// ScoreBatchInput names a row range of a run. The scoring profile is the one
// stored with the run.
type ScoreBatchInput struct {
	RunID     string `json:"run_id"`
	ModelID   string `json:"model_id"`
	ReadingID string `json:"reading_id"`
	Offset    int    `json:"offset"`
	Limit     int    `json:"limit"`
}

type ScoreBatchOutput struct {
	Offset      int            `json:"offset"`
	Scored      int            `json:"scored"`
	KindCounts  map[string]int `json:"kind_counts"`
	Diagnostics int            `json:"diagnostics"`
}

type WriteRunArtifactsInput struct {
	RunID     string `json:"run_id"`
	OutPrefix string `json:"out_prefix,omitempty"`
	Filter    string `json:"filter,omitempty"`
}

type WriteRunArtifactsOutput struct {
	Paths []string `json:"paths"`
	Rows  int      `json:"rows"`
}

type UpdateRunStatusInput struct {
	RunID      string `json:"run_id"`
	Status     string `json:"status"`
	FailReason string `json:"fail_reason,omitempty"`
}

// RunSummary is written next to the output tables of a run.
type RunSummary struct {
	RunID          string                     `json:"run_id"`
	Rows           int                        `json:"rows"`
	Filter         string                     `json:"filter,omitempty"`
	KindCounts     map[string]int             `json:"kind_counts"`
	CategoryCounts map[string]int             `json:"category_counts"`
	Corroborations []scoring.InteractionCount `json:"corroborations"`
	Contradictions []scoring.InteractionCount `json:"contradictions"`
	Diagnostics    int                        `json:"diagnostics"`
}
