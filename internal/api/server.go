package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"violin/internal/biorecipe"
	"violin/internal/config"
	"violin/internal/models"
	"violin/internal/scoring"
	"violin/internal/storage"
	"violin/internal/util"
	"violin/internal/workflows"

	"github.com/google/uuid"
	enumspb "go.temporal.io/api/enums/v1"
	tclient "go.temporal.io/sdk/client"
)

const maxUploadBytes = 128 << 20

type Server struct {
	cfg       config.Config
	logger    *slog.Logger
	db        *storage.DB
	runRepo   *storage.RunRepo
	scoreRepo *storage.ScoreRepo
	temporal  tclient.Client
}

func NewServer(cfg config.Config, logger *slog.Logger) (*Server, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	db, err := storage.NewDB(ctx, cfg.PostgresURL)
	if err != nil {
		return nil, err
	}
	tc, err := tclient.Dial(tclient.Options{HostPort: cfg.TemporalAddress})
	if err != nil {
		db.Close()
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		cfg:       cfg,
		logger:    logger,
		db:        db,
		runRepo:   storage.NewRunRepo(db),
		scoreRepo: storage.NewScoreRepo(db),
		temporal:  tc,
	}, nil
}

func (s *Server) Close() {
	if s.temporal != nil {
		s.temporal.Close()
	}
	if s.db != nil {
		s.db.Close()
	}
}

func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", s.handleHealthz)
	mux.HandleFunc("/score", s.handleScore)
	mux.HandleFunc("/runs", s.handleRuns)
	mux.HandleFunc("/runs/", s.handleRunsScoped)
	return withCORS(mux)
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func workflowID(runID string) string {
	return "score-" + runID
}

func (s *Server) handleRuns(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		runs, err := s.runRepo.ListRuns(r.Context(), limit)
		if err != nil {
			writeErr(w, http.StatusInternalServerError, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"runs": runs})
	case http.MethodPost:
		s.handleCreateRun(w, r)
	default:
		writeErr(w, http.StatusMethodNotAllowed, fmt.Errorf("method not allowed"))
	}
}

// handleCreateRun accepts a multipart form with model and reading files and
// starts a scoring workflow over them.
func (s *Server) handleCreateRun(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeErr(w, http.StatusBadRequest, fmt.Errorf("parse multipart: %w", err))
		return
	}
	modelFile, okModel := firstFile(r.MultipartForm, "model")
	readingFile, okReading := firstFile(r.MultipartForm, "reading")
	if !okModel || !okReading {
		writeErr(w, http.StatusBadRequest, fmt.Errorf("model and reading files are required"))
		return
	}
	profile, err := profileFromForm(r)
	if err != nil {
		writeErr(w, http.StatusBadRequest, err)
		return
	}
	opts, err := profile.Options()
	if err != nil {
		writeErr(w, http.StatusBadRequest, fmt.Errorf("invalid profile: %w", err))
		return
	}
	filter := r.FormValue("filter")
	if _, err := biorecipe.ParseFilter(filter); err != nil {
		writeErr(w, http.StatusBadRequest, err)
		return
	}

	runID := uuid.NewString()
	inDir := filepath.Join(s.cfg.DataInRoot, runID)
	if err := util.EnsureDir(inDir); err != nil {
		writeErr(w, http.StatusInternalServerError, err)
		return
	}
	modelPath, err := saveUploadedFile(inDir, "model", modelFile)
	if err != nil {
		writeErr(w, http.StatusInternalServerError, err)
		return
	}
	readingPath, err := saveUploadedFile(inDir, "reading", readingFile)
	if err != nil {
		writeErr(w, http.StatusInternalServerError, err)
		return
	}

	run := models.Run{
		RunID:       runID,
		ModelPath:   modelPath,
		ReadingPath: readingPath,
		OutPrefix:   filepath.Join(s.cfg.DataOutRoot, runID, "violin"),
		Preset:      profile.Preset,
		Scheme:      opts.Scheme.String(),
	}
	if err := s.runRepo.CreateRun(r.Context(), run, profile); err != nil {
		writeErr(w, http.StatusInternalServerError, err)
		return
	}
	resolve, _ := strconv.ParseBool(r.FormValue("resolve_symbols"))
	we, err := s.temporal.ExecuteWorkflow(r.Context(), tclient.StartWorkflowOptions{
		ID:                                       workflowID(runID),
		TaskQueue:                                s.cfg.TemporalTaskQueue,
		WorkflowIDReusePolicy:                    enumspb.WORKFLOW_ID_REUSE_POLICY_REJECT_DUPLICATE,
		WorkflowExecutionErrorWhenAlreadyStarted: true,
	}, workflows.ScoreRunWorkflow, workflows.ScoreRunInput{
		RunID:                runID,
		ModelPath:            modelPath,
		ReadingPath:          readingPath,
		OutPrefix:            run.OutPrefix,
		Filter:               filter,
		ResolveSymbols:       resolve,
		BatchSize:            s.cfg.ScoreBatchSize,
		MaxConcurrentBatches: s.cfg.MaxConcurrentBatches,
	})
	if err != nil {
		_ = s.runRepo.UpdateRunStatus(r.Context(), runID, models.RunStatusFailed, err.Error())
		writeErr(w, http.StatusConflict, err)
		return
	}
	s.logger.Info("score run started", "run_id", runID, "workflow_id", we.GetID())
	writeJSON(w, http.StatusAccepted, map[string]any{"run_id": runID, "workflow_id": we.GetID(), "workflow_run_id": we.GetRunID()})
}

func (s *Server) handleRunsScoped(w http.ResponseWriter, r *http.Request) {
	parts := strings.Split(strings.Trim(strings.TrimPrefix(r.URL.Path, "/runs/"), "/"), "/")
	if len(parts) < 1 || parts[0] == "" {
		writeErr(w, http.StatusNotFound, fmt.Errorf("not found"))
		return
	}
	if r.Method != http.MethodGet {
		writeErr(w, http.StatusMethodNotAllowed, fmt.Errorf("method not allowed"))
		return
	}
	runID := parts[0]
	if _, err := uuid.Parse(runID); err != nil {
		writeErr(w, http.StatusNotFound, fmt.Errorf("run %q: %w", runID, util.ErrRunNotFound))
		return
	}

	if len(parts) == 1 {
		run, err := s.runRepo.GetRun(r.Context(), runID)
		if err != nil {
			writeErr(w, statusFor(err), err)
			return
		}
		writeJSON(w, http.StatusOK, run)
		return
	}
	switch {
	case len(parts) == 2 && parts[1] == "progress":
		s.handleProgress(w, r, runID)
	case len(parts) == 2 && parts[1] == "interactions":
		q := r.URL.Query()
		var cat scoring.Category
		raw := q.Get("bucket")
		if raw == "" {
			raw = q.Get("category")
		}
		if raw != "" {
			c, err := scoring.ParseCategory(raw)
			if err != nil {
				writeErr(w, http.StatusBadRequest, err)
				return
			}
			cat = c
		}
		limit, _ := strconv.Atoi(q.Get("limit"))
		offset, _ := strconv.Atoi(q.Get("offset"))
		if limit <= 0 {
			limit = 100
		}
		rows, err := s.scoreRepo.ListScoredRows(r.Context(), runID, cat, limit, offset)
		if err != nil {
			writeErr(w, http.StatusInternalServerError, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"interactions": rows, "limit": limit, "offset": offset})
	case len(parts) == 2 && parts[1] == "diagnostics":
		diags, err := s.scoreRepo.ListDiagnostics(r.Context(), runID)
		if err != nil {
			writeErr(w, http.StatusInternalServerError, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"diagnostics": diags})
	case len(parts) == 3 && parts[1] == "tables":
		suffix, ok := tableSuffix(parts[2])
		if !ok {
			writeErr(w, http.StatusNotFound, fmt.Errorf("unknown table %q", parts[2]))
			return
		}
		run, err := s.runRepo.GetRun(r.Context(), runID)
		if err != nil {
			writeErr(w, statusFor(err), err)
			return
		}
		if run.Status != models.RunStatusCompleted || run.OutPrefix == "" {
			writeErr(w, http.StatusConflict, fmt.Errorf("run %s is %s", runID, run.Status))
			return
		}
		w.Header().Set("Content-Type", "text/csv")
		http.ServeFile(w, r, run.OutPrefix+suffix)
	default:
		writeErr(w, http.StatusNotFound, fmt.Errorf("not found"))
	}
}

func (s *Server) handleProgress(w http.ResponseWriter, r *http.Request, runID string) {
	var prog workflows.RunProgress
	resp, err := s.temporal.QueryWorkflow(r.Context(), workflowID(runID), "", workflows.QueryGetRunProgress)
	if err != nil {
		// Fall back to the run row once the workflow is no longer queryable.
		run, rErr := s.runRepo.GetRun(r.Context(), runID)
		if rErr != nil {
			writeErr(w, statusFor(rErr), rErr)
			return
		}
		kinds, kErr := s.scoreRepo.KindHistogram(r.Context(), runID)
		if kErr != nil {
			writeErr(w, http.StatusInternalServerError, kErr)
			return
		}
		writeJSON(w, http.StatusOK, workflows.RunProgress{
			RunID:      runID,
			Stage:      run.Status,
			TotalRows:  run.RowCount,
			ScoredRows: run.ScoredCount,
			KindCounts: kinds,
			FailReason: run.FailReason,
		})
		return
	}
	if err := resp.Get(&prog); err != nil {
		writeErr(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, prog)
}

// handleScore scores an uploaded model and reading in the request itself,
// without storing anything.
func (s *Server) handleScore(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeErr(w, http.StatusMethodNotAllowed, fmt.Errorf("method not allowed"))
		return
	}
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeErr(w, http.StatusBadRequest, fmt.Errorf("parse multipart: %w", err))
		return
	}
	modelFile, okModel := firstFile(r.MultipartForm, "model")
	readingFile, okReading := firstFile(r.MultipartForm, "reading")
	if !okModel || !okReading {
		writeErr(w, http.StatusBadRequest, fmt.Errorf("model and reading files are required"))
		return
	}
	profile, err := profileFromForm(r)
	if err != nil {
		writeErr(w, http.StatusBadRequest, err)
		return
	}
	opts, err := profile.Options()
	if err != nil {
		writeErr(w, http.StatusBadRequest, fmt.Errorf("invalid profile: %w", err))
		return
	}
	filter, err := biorecipe.ParseFilter(r.FormValue("filter"))
	if err != nil {
		writeErr(w, http.StatusBadRequest, err)
		return
	}

	m, modelDiags, err := loadUploadedModel(modelFile)
	if err != nil {
		writeErr(w, statusFor(err), err)
		return
	}
	rows, readingDiags, err := loadUploadedReading(readingFile)
	if err != nil {
		writeErr(w, statusFor(err), err)
		return
	}
	rows = biorecipe.MergeEvidence(rows)

	p, err := scoring.NewPipeline(m, opts, s.logger)
	if err != nil {
		writeErr(w, http.StatusBadRequest, fmt.Errorf("invalid profile: %w", err))
		return
	}
	res, err := p.Score(r.Context(), rows, 0)
	if err != nil {
		writeErr(w, http.StatusInternalServerError, err)
		return
	}
	kept := filter.Apply(res.Rows)
	audit := scoring.AuditRows(kept)
	diags := append(append(modelDiags, readingDiags...), res.Diagnostics...)
	writeJSON(w, http.StatusOK, map[string]any{
		"interactions":   kept,
		"rows":           len(res.Rows),
		"kept":           len(kept),
		"kind_counts":    res.KindCounts(),
		"corroborations": scoring.Tally(audit.Corroborations),
		"contradictions": scoring.Tally(audit.Contradictions),
		"diagnostics":    diags,
	})
}

// profileFromForm reads an optional YAML profile (file or field) and applies
// the preset, scheme and connection_default form overrides.
func profileFromForm(r *http.Request) (config.Profile, error) {
	var profile config.Profile
	raw := []byte(r.FormValue("profile"))
	if fh, ok := firstFile(r.MultipartForm, "profile"); ok {
		b, err := readUpload(fh)
		if err != nil {
			return config.Profile{}, err
		}
		raw = b
	}
	if len(strings.TrimSpace(string(raw))) > 0 {
		p, err := config.ParseProfile(raw)
		if err != nil {
			return config.Profile{}, fmt.Errorf("invalid profile: %w", err)
		}
		profile = p
	}
	if v := strings.TrimSpace(r.FormValue("preset")); v != "" {
		profile.Preset = v
	}
	if v := strings.TrimSpace(r.FormValue("scheme")); v != "" {
		profile.Scheme = v
	}
	if v := strings.TrimSpace(r.FormValue("connection_default")); v != "" {
		profile.ConnectionDefault = v
	}
	return profile, nil
}

func loadUploadedModel(fh *multipart.FileHeader) (*models.Model, []models.Diagnostic, error) {
	t, err := readUploadedTable(fh)
	if err != nil {
		return nil, nil, err
	}
	return biorecipe.ModelFromTable(t)
}

func loadUploadedReading(fh *multipart.FileHeader) ([]models.Interaction, []models.Diagnostic, error) {
	if strings.EqualFold(filepath.Ext(fh.Filename), ".json") {
		b, err := readUpload(fh)
		if err != nil {
			return nil, nil, err
		}
		return biorecipe.ParseInteractionsJSON(string(b))
	}
	t, err := readUploadedTable(fh)
	if err != nil {
		return nil, nil, err
	}
	return biorecipe.ReadingFromTable(t)
}

func readUploadedTable(fh *multipart.FileHeader) (*biorecipe.Table, error) {
	format, err := biorecipe.DetectFormat(fh.Filename)
	if err != nil {
		return nil, err
	}
	src, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("open upload: %w", err)
	}
	defer src.Close()
	return biorecipe.ReadTable(src, format)
}

func readUpload(fh *multipart.FileHeader) ([]byte, error) {
	src, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("open upload: %w", err)
	}
	defer src.Close()
	return io.ReadAll(src)
}

// saveUploadedFile stores an upload as dstDir/<role><ext> and returns its path.
func saveUploadedFile(dstDir, role string, fh *multipart.FileHeader) (string, error) {
	ext := strings.ToLower(filepath.Ext(fh.Filename))
	if ext != ".json" {
		if _, err := biorecipe.DetectFormat(fh.Filename); err != nil {
			return "", err
		}
	}
	src, err := fh.Open()
	if err != nil {
		return "", fmt.Errorf("open upload: %w", err)
	}
	defer src.Close()

	finalPath := filepath.Join(dstDir, role+ext)
	err = util.WriteAtomic(finalPath, func(w io.Writer) error {
		_, err := io.Copy(w, src)
		return err
	})
	if err != nil {
		return "", fmt.Errorf("write upload: %w", err)
	}
	return finalPath, nil
}

func firstFile(form *multipart.Form, field string) (*multipart.FileHeader, bool) {
	if form == nil {
		return nil, false
	}
	if v := form.File[field]; len(v) > 0 {
		return v[0], true
	}
	return nil, false
}

// tableSuffix maps a table name to the file suffix written for it.
func tableSuffix(name string) (string, bool) {
	switch name {
	case "output":
		return "_outputDF.csv", true
	case "score":
		return "_scoreDF.csv", true
	case "summary":
		return "_summary.json", true
	}
	base, scoreOnly := strings.CutSuffix(name, "_score")
	cat, err := scoring.ParseCategory(base)
	if err != nil {
		return "", false
	}
	if scoreOnly {
		return "_" + string(cat) + "_score.csv", true
	}
	return "_" + string(cat) + ".csv", true
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, util.ErrRunNotFound), errors.Is(err, os.ErrNotExist):
		return http.StatusNotFound
	case biorecipe.IsConfigError(err), errors.Is(err, util.ErrInvalidFilter):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeErr(w http.ResponseWriter, code int, err error) {
	apiErr := toAPIError(code, err)
	writeJSON(w, code, map[string]any{
		"error": map[string]any{
			"code":    apiErr.Code,
			"message": apiErr.Message,
		},
	})
}

type apiError struct {
	Code    string
	Message string
}

func toAPIError(status int, err error) apiError {
	msg := "Request failed."
	code := "VL-API-4000"
	raw := ""
	if err != nil {
		raw = strings.ToLower(err.Error())
	}

	switch {
	case status >= 500:
		switch {
		case strings.Contains(raw, "relation") && strings.Contains(raw, "does not exist"):
			return apiError{
				Code:    "VL-DB-5001",
				Message: "Database schema is not initialized. Restart the worker and retry.",
			}
		case strings.Contains(raw, "connect"), strings.Contains(raw, "dial tcp"), strings.Contains(raw, "connection refused"):
			return apiError{
				Code:    "VL-DB-5002",
				Message: "Database connection is unavailable. Check local services and retry.",
			}
		default:
			return apiError{
				Code:    "VL-API-5000",
				Message: "Internal server error. Please retry or check service logs.",
			}
		}
	case status == http.StatusBadRequest:
		code = "VL-API-4001"
		msg = "Invalid request. Check inputs and retry."
	case status == http.StatusNotFound:
		code = "VL-API-4004"
		msg = "Requested resource was not found."
	case status == http.StatusConflict:
		code = "VL-API-4009"
		msg = "Operation conflicts with current state. Retry after checking status."
	case status == http.StatusMethodNotAllowed:
		code = "VL-API-4005"
		msg = "This endpoint does not support the requested method."
	}

	// 4xx responses only echo user-safe validation context.
	if status >= 400 && status < 500 && err != nil {
		switch {
		case strings.Contains(raw, "model and reading files are required"):
			msg = "Both a model file and a reading file are required."
		case errors.Is(err, util.ErrMissingColumn):
			msg = "A required column is missing: " + err.Error()
		case errors.Is(err, util.ErrUnsupportedFormat):
			msg = "Unsupported file format. Upload .csv, .tsv or .txt tables."
		case errors.Is(err, util.ErrEmptyModel):
			msg = "The model file has no elements."
		case errors.Is(err, util.ErrInvalidFilter):
			msg = "Invalid filter. Use a count, a percentage or a Total Score threshold."
		case strings.Contains(raw, "invalid profile"):
			msg = "Invalid scoring profile: " + err.Error()
		case strings.Contains(raw, "unknown table"):
			msg = "Unknown output table."
		}
	}

	return apiError{Code: code, Message: msg}
}

func withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		w.Header().Set("Access-Control-Allow-Methods", "GET,POST,OPTIONS")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
