package cli

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"violin/internal/biorecipe"
	"violin/internal/config"
	"violin/internal/providers"
	"violin/internal/scoring"
	"violin/internal/util"
)

var (
	scoreModel             string
	scoreReading           string
	scoreOut               string
	scoreProfile           string
	scorePreset            string
	scoreScheme            string
	scoreAttributes        []string
	scoreConnectionDefault string
	scoreFilter            string
	scoreWorkers           int
	scoreResolveSymbols    bool
)

var scoreCmd = &cobra.Command{
	Use:   "score",
	Short: "Score a reading table against a model and write the output tables",
	Long: `Score every interaction of a reading table against a BioRECIPE model.

Writes <out>_outputDF.csv, <out>_scoreDF.csv and one full and one score-only
table per category (corroborations, extensions, contradictions, flagged),
plus <out>_diagnostics.jsonl.

Examples:
  violin score --model model.csv --reading reading.tsv --out results/run1
  violin score --model model.csv --reading reading.csv --out r --preset corroborate --scheme 3
  violin score --model model.csv --reading reading.csv --out r --filter 25% --attributes "Regulated Compartment","Cell Line"`,
	Args: cobra.NoArgs,
	RunE: runScore,
}

func init() {
	scoreCmd.Flags().StringVarP(&scoreModel, "model", "m", "", "model file (.csv, .tsv, .txt)")
	scoreCmd.Flags().StringVarP(&scoreReading, "reading", "r", "", "reading file (.csv, .tsv, .txt, .json)")
	scoreCmd.Flags().StringVarP(&scoreOut, "out", "o", "", "output prefix")
	scoreCmd.Flags().StringVar(&scoreProfile, "profile", "", "YAML scoring profile (defaults to $VIOLIN_PROFILE)")
	scoreCmd.Flags().StringVar(&scorePreset, "preset", "", "kind/match value preset: "+strings.Join(scoring.PresetNames(), ", "))
	scoreCmd.Flags().StringVar(&scoreScheme, "scheme", "", "classification scheme (1, 2 or 3)")
	scoreCmd.Flags().StringSliceVar(&scoreAttributes, "attributes", nil, "attributes compared between model and reading: "+attributeNames())
	scoreCmd.Flags().StringVar(&scoreConnectionDefault, "connection-default", "", "connection type assumed for model edges without one (d or i)")
	scoreCmd.Flags().StringVar(&scoreFilter, "filter", "", "keep rows: X% (top by Total Score), St>Z or Se>Y")
	scoreCmd.Flags().IntVarP(&scoreWorkers, "workers", "w", 0, "scoring goroutines")
	scoreCmd.Flags().BoolVar(&scoreResolveSymbols, "resolve-symbols", false, "resolve numeric HGNC identifiers to symbols")
	_ = scoreCmd.MarkFlagRequired("model")
	_ = scoreCmd.MarkFlagRequired("reading")
	_ = scoreCmd.MarkFlagRequired("out")
}

func attributeNames() string {
	var names []string
	for _, a := range scoring.AllAttributes() {
		names = append(names, string(a))
	}
	return strings.Join(names, ", ")
}

func scoreProfileFromFlags(cmd *cobra.Command) (config.Profile, error) {
	path := scoreProfile
	if path == "" {
		path = cfg.ProfilePath
	}
	var profile config.Profile
	if path != "" {
		p, err := config.LoadProfile(path)
		if err != nil {
			return config.Profile{}, err
		}
		profile = p
	}
	flags := cmd.Flags()
	if flags.Changed("preset") {
		profile.Preset = scorePreset
	}
	if flags.Changed("scheme") {
		profile.Scheme = scoreScheme
	}
	if flags.Changed("attributes") {
		profile.Attributes = scoreAttributes
	}
	if flags.Changed("connection-default") {
		profile.ConnectionDefault = scoreConnectionDefault
	}
	if flags.Changed("workers") {
		profile.Workers = scoreWorkers
	}
	return profile, nil
}

func runScore(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	start := time.Now()

	profile, err := scoreProfileFromFlags(cmd)
	if err != nil {
		return err
	}
	opts, err := profile.Options()
	if err != nil {
		return fmt.Errorf("scoring profile: %w", err)
	}
	if !cmd.Flags().Changed("workers") && profile.Workers == 0 {
		opts.Workers = cfg.ScoreWorkers
	}
	filter, err := biorecipe.ParseFilter(scoreFilter)
	if err != nil {
		return err
	}

	m, modelDiags, err := biorecipe.LoadModel(scoreModel)
	if err != nil {
		return err
	}
	rows, readingDiags, err := biorecipe.LoadReading(scoreReading)
	if err != nil {
		return err
	}
	if scoreResolveSymbols {
		pm, err := providers.NewManager(cfg)
		if err != nil {
			return fmt.Errorf("symbol providers: %w", err)
		}
		var resolved int
		rows, resolved, err = providers.ResolveSymbols(ctx, pm, rows, logger)
		if err != nil {
			return fmt.Errorf("resolve symbols: %w", err)
		}
		if err := pm.Flush(); err != nil {
			logger.Warn("symbol cache not saved", "error", err)
		}
		logger.Info("symbols resolved", "count", resolved)
	}
	rows = biorecipe.MergeEvidence(rows)

	p, err := scoring.NewPipeline(m, opts, logger)
	if err != nil {
		return err
	}
	res, err := p.Score(ctx, rows, 0)
	if err != nil {
		return err
	}
	kept := filter.Apply(res.Rows)
	paths, err := biorecipe.WriteOutputs(scoreOut, kept)
	if err != nil {
		return err
	}
	diags := append(append(modelDiags, readingDiags...), res.Diagnostics...)
	diagPath := scoreOut + "_diagnostics.jsonl"
	if err := util.WriteJSONLinesAtomic(diagPath, diags); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Scored %d interactions against %d model elements (scheme %s) in %s.\n",
		len(res.Rows), m.Len(), opts.Scheme, time.Since(start).Round(time.Millisecond))
	if len(kept) != len(res.Rows) {
		fmt.Fprintf(out, "Kept %d rows after filter %s.\n", len(kept), filter)
	}
	for _, cat := range scoring.Categories {
		fmt.Fprintf(out, "  %-15s %d\n", cat, len(scoring.Bucket(kept, cat)))
	}
	if len(diags) > 0 {
		fmt.Fprintf(out, "%d diagnostics written to %s\n", len(diags), diagPath)
	}
	if verbose {
		for _, path := range paths {
			fmt.Fprintf(out, "  wrote %s\n", filepath.Clean(path))
		}
	}
	return nil
}
