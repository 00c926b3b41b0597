package biorecipe

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"violin/internal/models"
	"violin/internal/util"
)

type Format string

const (
	FormatCSV Format = "csv"
	FormatTSV Format = "tsv"
)

// DetectFormat picks the table format from a file extension.
func DetectFormat(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return FormatCSV, nil
	case ".tsv", ".txt":
		return FormatTSV, nil
	default:
		return "", fmt.Errorf("detect format %q: %w", path, util.ErrUnsupportedFormat)
	}
}

// Table is a header plus string rows. Column lookups ignore case and
// repeated whitespace.
type Table struct {
	Header []string
	Rows   [][]string
	index  map[string]int
}

func headerKey(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}

func NewTable(header []string, rows [][]string) *Table {
	t := &Table{Header: header, Rows: rows, index: make(map[string]int, len(header))}
	for i, h := range header {
		k := headerKey(h)
		if _, dup := t.index[k]; !dup {
			t.index[k] = i
		}
	}
	return t
}

func ReadTable(r io.Reader, f Format) (*Table, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	switch f {
	case FormatCSV:
	case FormatTSV:
		cr.Comma = '\t'
	default:
		return nil, fmt.Errorf("read table: %w", util.ErrUnsupportedFormat)
	}
	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read table: %w", err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("read table: empty input: %w", util.ErrMissingColumn)
	}
	if len(records[0]) > 0 {
		records[0][0] = strings.TrimPrefix(records[0][0], "\ufeff")
	}
	for i := range records {
		records[i] = util.SanitizeAll(records[i])
	}
	return NewTable(records[0], records[1:]), nil
}

// Col returns the index of the first of names present in the header.
func (t *Table) Col(names ...string) (int, bool) {
	for _, n := range names {
		if i, ok := t.index[headerKey(n)]; ok {
			return i, true
		}
	}
	return -1, false
}

// Require fails with ErrMissingColumn naming every absent column group.
func (t *Table) Require(groups ...[]string) error {
	var missing []string
	for _, g := range groups {
		if _, ok := t.Col(g...); !ok {
			missing = append(missing, g[0])
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("check columns %s: %w", strings.Join(missing, ", "), util.ErrMissingColumn)
	}
	return nil
}

// Cell returns the raw cell at row for the first matching column, or "".
func (t *Table) Cell(row int, names ...string) string {
	i, ok := t.Col(names...)
	if !ok || i >= len(t.Rows[row]) {
		return ""
	}
	return t.Rows[row][i]
}

var (
	colVariable    = []string{"Variable"}
	colElemName    = []string{"Element Name"}
	colElemType    = []string{"Element Type"}
	colElemSubtype = []string{"Element Subtype"}
	colElemSymbol  = []string{"Element HGNC Symbol", "Element Symbol"}
	colElemDB      = []string{"Element Database"}
	colElemIDs     = []string{"Element IDs", "Element ID"}
	colCompartment = []string{"Compartment", "Location"}
	colCompID      = []string{"Compartment ID", "Location ID"}
	colCellLine    = []string{"Cell Line"}
	colCellType    = []string{"Cell Type"}
	colTissueType  = []string{"Tissue Type"}
	colOrganism    = []string{"Organism"}
	colPosRegs     = []string{"Positive Regulator List", "Positive Regulators"}
	colPosConn     = []string{"Positive Connection Type List", "Positive Connection Type"}
	colPosMech     = []string{"Positive Mechanism List"}
	colPosSite     = []string{"Positive Site List"}
	colNegRegs     = []string{"Negative Regulator List", "Negative Regulators"}
	colNegConn     = []string{"Negative Connection Type List", "Negative Connection Type"}
	colNegMech     = []string{"Negative Mechanism List"}
	colNegSite     = []string{"Negative Site List"}
)

// ModelFromTable builds a normalized model from a BioRECIPE model table.
func ModelFromTable(t *Table) (*models.Model, []models.Diagnostic, error) {
	if err := t.Require(colVariable, colElemName, colElemType, colElemIDs, colPosRegs, colNegRegs); err != nil {
		return nil, nil, fmt.Errorf("load model: %w", err)
	}
	if len(t.Rows) == 0 {
		return nil, nil, fmt.Errorf("load model: %w", util.ErrEmptyModel)
	}
	var diags []models.Diagnostic
	entities := make([]models.Entity, 0, len(t.Rows))
	for i := range t.Rows {
		raw := models.Entity{
			Variable:      t.Cell(i, colVariable...),
			Name:          t.Cell(i, colElemName...),
			Type:          models.EntityType(t.Cell(i, colElemType...)),
			Subtype:       t.Cell(i, colElemSubtype...),
			Symbol:        t.Cell(i, colElemSymbol...),
			Database:      t.Cell(i, colElemDB...),
			IDs:           ParseRegulatorList(t.Cell(i, colElemIDs...)),
			Compartment:   t.Cell(i, colCompartment...),
			CompartmentID: t.Cell(i, colCompID...),
			CellLine:      t.Cell(i, colCellLine...),
			CellType:      t.Cell(i, colCellType...),
			TissueType:    t.Cell(i, colTissueType...),
			Organism:      t.Cell(i, colOrganism...),
		}
		pos, d := BuildRegulators(i, raw.Variable, models.SignPositive, RegulatorColumns{
			Regulators:  t.Cell(i, colPosRegs...),
			Connections: t.Cell(i, colPosConn...),
			Mechanisms:  t.Cell(i, colPosMech...),
			Sites:       t.Cell(i, colPosSite...),
		})
		diags = append(diags, d...)
		neg, d := BuildRegulators(i, raw.Variable, models.SignNegative, RegulatorColumns{
			Regulators:  t.Cell(i, colNegRegs...),
			Connections: t.Cell(i, colNegConn...),
			Mechanisms:  t.Cell(i, colNegMech...),
			Sites:       t.Cell(i, colNegSite...),
		})
		diags = append(diags, d...)
		raw.Regulators = append(pos, neg...)

		e := NormalizeEntity(raw)
		if e.Variable == "" {
			diags = append(diags, models.Diagnostic{Row: i, Message: "element has neither variable nor name; skipped"})
			continue
		}
		if Clean(raw.Variable) == "" {
			diags = append(diags, models.Diagnostic{Row: i, Variable: e.Variable, Message: "variable missing; derived from element name"})
		}
		entities = append(entities, e)
	}
	m, modelDiags := models.NewModel(entities)
	return m, append(diags, modelDiags...), nil
}

var (
	colRegName      = []string{"Regulator Name"}
	colRegType      = []string{"Regulator Type"}
	colRegSubtype   = []string{"Regulator Subtype"}
	colRegSymbol    = []string{"Regulator HGNC Symbol", "Regulator Symbol"}
	colRegDB        = []string{"Regulator Database"}
	colRegID        = []string{"Regulator ID"}
	colRegComp      = []string{"Regulator Compartment"}
	colRegCompID    = []string{"Regulator Compartment ID"}
	colTgtName      = []string{"Regulated Name"}
	colTgtType      = []string{"Regulated Type"}
	colTgtSubtype   = []string{"Regulated Subtype"}
	colTgtSymbol    = []string{"Regulated HGNC Symbol", "Regulated Symbol"}
	colTgtDB        = []string{"Regulated Database"}
	colTgtID        = []string{"Regulated ID"}
	colTgtComp      = []string{"Regulated Compartment"}
	colTgtCompID    = []string{"Regulated Compartment ID"}
	colSign         = []string{"Sign", "Regulator Sign", "Reg Sign"}
	colConnection   = []string{"Connection Type"}
	colMechanism    = []string{"Mechanism"}
	colSite         = []string{"Site"}
	colEvidence     = []string{"Evidence Score", "Evidence Count"}
	colEpistemic    = []string{"Epistemic Value"}
	colPaperIDs     = []string{"Paper IDs", "Paper ID"}
	colStatements   = []string{"Statements", "Statement"}
	colScoreOutput  = []string{"Match Score", "Kind Score", "Total Score", "Kind", "Category"}
	knownReadingCol = map[string]struct{}{}
)

func init() {
	groups := [][]string{
		colRegName, colRegType, colRegSubtype, colRegSymbol, colRegDB, colRegID, colRegComp, colRegCompID,
		colTgtName, colTgtType, colTgtSubtype, colTgtSymbol, colTgtDB, colTgtID, colTgtComp, colTgtCompID,
		colSign, colConnection, colMechanism, colSite, colCellLine, colCellType, colTissueType, colOrganism,
		colEvidence, colEpistemic, colPaperIDs, colStatements, colScoreOutput,
	}
	for _, g := range groups {
		for _, n := range g {
			knownReadingCol[headerKey(n)] = struct{}{}
		}
	}
}

// ReadingFromTable normalizes the rows of a BioRECIPE reading table. Rows
// without a sign or an endpoint are skipped with a diagnostic.
func ReadingFromTable(t *Table) ([]models.Interaction, []models.Diagnostic, error) {
	if err := t.Require(colRegName, colRegType, colTgtName, colTgtType, colSign); err != nil {
		return nil, nil, fmt.Errorf("load reading: %w", err)
	}
	var diags []models.Diagnostic
	out := make([]models.Interaction, 0, len(t.Rows))
	for i := range t.Rows {
		in := models.Interaction{
			Regulator: models.Reference{
				Name:          t.Cell(i, colRegName...),
				Type:          models.EntityType(t.Cell(i, colRegType...)),
				Subtype:       t.Cell(i, colRegSubtype...),
				Symbol:        t.Cell(i, colRegSymbol...),
				Database:      t.Cell(i, colRegDB...),
				ID:            t.Cell(i, colRegID...),
				Compartment:   t.Cell(i, colRegComp...),
				CompartmentID: t.Cell(i, colRegCompID...),
			},
			Regulated: models.Reference{
				Name:          t.Cell(i, colTgtName...),
				Type:          models.EntityType(t.Cell(i, colTgtType...)),
				Subtype:       t.Cell(i, colTgtSubtype...),
				Symbol:        t.Cell(i, colTgtSymbol...),
				Database:      t.Cell(i, colTgtDB...),
				ID:            t.Cell(i, colTgtID...),
				Compartment:   t.Cell(i, colTgtComp...),
				CompartmentID: t.Cell(i, colTgtCompID...),
			},
			Sign:       models.Sign(t.Cell(i, colSign...)),
			Connection: models.ConnectionType(t.Cell(i, colConnection...)),
			Mechanism:  t.Cell(i, colMechanism...),
			Site:       t.Cell(i, colSite...),
			CellLine:   t.Cell(i, colCellLine...),
			CellType:   t.Cell(i, colCellType...),
			TissueType: t.Cell(i, colTissueType...),
			Organism:   t.Cell(i, colOrganism...),
		}
		if raw := Clean(t.Cell(i, colEvidence...)); raw != "" {
			if n, ok := parseCount(raw); ok {
				in.EvidenceCount = n
			} else {
				diags = append(diags, models.Diagnostic{Row: i, Message: fmt.Sprintf("evidence count %q is not an integer; using 1", raw)})
			}
		}
		if raw := Clean(t.Cell(i, colEpistemic...)); raw != "" {
			v, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				diags = append(diags, models.Diagnostic{Row: i, Message: fmt.Sprintf("epistemic value %q is not a number; using 1", raw)})
			} else {
				in.EpistemicValue = &v
			}
		}
		if ids := splitList(t.Cell(i, colPaperIDs...)); len(ids) > 0 {
			in.PaperIDs = ids
		}
		if s := strings.TrimSpace(t.Cell(i, colStatements...)); Clean(s) != "" {
			in.Statements = []string{s}
		}
		for c, h := range t.Header {
			if _, known := knownReadingCol[headerKey(h)]; known || c >= len(t.Rows[i]) {
				continue
			}
			if in.Extra == nil {
				in.Extra = map[string]string{}
			}
			in.Extra[h] = t.Rows[i][c]
		}

		n, defaulted, ok := NormalizeInteraction(in)
		if !ok {
			diags = append(diags, models.Diagnostic{Row: i, Message: "reading row lacks a sign or an endpoint; skipped"})
			continue
		}
		if defaulted {
			diags = append(diags, models.Diagnostic{Row: i, Message: "connection type missing; defaulting to indirect"})
		}
		out = append(out, n)
	}
	return out, diags, nil
}

func splitList(raw string) []string {
	raw = strings.NewReplacer("[", "", "]", "", "'", "", `"`, "", ";", ",").Replace(raw)
	var out []string
	for _, p := range strings.Split(raw, ",") {
		if p = strings.TrimSpace(p); Clean(p) != "" {
			out = append(out, p)
		}
	}
	return out
}

func readFile(path string) (*Table, error) {
	f, err := DetectFormat(path)
	if err != nil {
		return nil, err
	}
	fh, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer fh.Close()
	return ReadTable(fh, f)
}

func LoadModel(path string) (*models.Model, []models.Diagnostic, error) {
	t, err := readFile(path)
	if err != nil {
		return nil, nil, err
	}
	return ModelFromTable(t)
}

// LoadReading reads a reading table, or a JSON payload when path ends in .json.
func LoadReading(path string) ([]models.Interaction, []models.Diagnostic, error) {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, nil, fmt.Errorf("open %s: %w", path, err)
		}
		return ParseInteractionsJSON(string(b))
	}
	t, err := readFile(path)
	if err != nil {
		return nil, nil, err
	}
	return ReadingFromTable(t)
}

// IsConfigError reports whether err is a caller mistake rather than a data
// condition.
func IsConfigError(err error) bool {
	return errors.Is(err, util.ErrMissingColumn) || errors.Is(err, util.ErrUnsupportedFormat) || errors.Is(err, util.ErrEmptyModel)
}

// parseCount accepts integer counts, including the "3.0" form spreadsheet
// exports write for whole numbers.
func parseCount(raw string) (int, bool) {
	if n, err := strconv.Atoi(raw); err == nil {
		return n, true
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsInf(f, 0) || f != math.Trunc(f) || math.Abs(f) > math.MaxInt32 {
		return 0, false
	}
	return int(f), true
}
