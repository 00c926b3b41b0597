package models

import (
	"fmt"
	"time"
)

type Sign string

const (
	SignPositive Sign = "positive"
	SignNegative Sign = "negative"
)

func (s Sign) Opposite() Sign {
	if s == SignNegative {
		return SignPositive
	}
	return SignNegative
}

// Bit is the regulatory graph edge weight for the sign: 0 positive, 1 negative.
func (s Sign) Bit() int {
	if s == SignNegative {
		return 1
	}
	return 0
}

type ConnectionType string

const (
	ConnectionDirect   ConnectionType = "d"
	ConnectionIndirect ConnectionType = "i"
)

type EntityType string

const (
	TypeProtein    EntityType = "protein"
	TypeChemical   EntityType = "chemical"
	TypeRNA        EntityType = "rna"
	TypeBioprocess EntityType = "bioprocess"
	TypeOther      EntityType = "other"
)

// RegulatorEdge is one slot of an element's regulator list. Connection is
// empty when the model does not annotate the slot.
type RegulatorEdge struct {
	Variable   string         `json:"variable"`
	Sign       Sign           `json:"sign"`
	Connection ConnectionType `json:"connection,omitempty"`
	Mechanism  string         `json:"mechanism,omitempty"`
	Site       string         `json:"site,omitempty"`
}

// Entity is one row of a BioRECIPE model. Every string field is normalized
// (trimmed, lower-cased, empty when absent) before it reaches scoring.
type Entity struct {
	Variable      string          `json:"variable"`
	Name          string          `json:"name"`
	Type          EntityType      `json:"type"`
	Subtype       string          `json:"subtype,omitempty"`
	Symbol        string          `json:"symbol,omitempty"`
	Database      string          `json:"database,omitempty"`
	IDs           []string        `json:"ids,omitempty"`
	Compartment   string          `json:"compartment,omitempty"`
	CompartmentID string          `json:"compartment_id,omitempty"`
	CellLine      string          `json:"cell_line,omitempty"`
	CellType      string          `json:"cell_type,omitempty"`
	TissueType    string          `json:"tissue_type,omitempty"`
	Organism      string          `json:"organism,omitempty"`
	Regulators    []RegulatorEdge `json:"regulators,omitempty"`
}

// FindRegulator returns the first slot of the given sign naming variable.
func (e Entity) FindRegulator(variable string, sign Sign) (RegulatorEdge, bool) {
	for _, r := range e.Regulators {
		if r.Sign == sign && r.Variable == variable {
			return r, true
		}
	}
	return RegulatorEdge{}, false
}

type Diagnostic struct {
	Row      int    `json:"row"`
	Variable string `json:"variable,omitempty"`
	Message  string `json:"message"`
}

func (d Diagnostic) String() string {
	if d.Variable == "" {
		return fmt.Sprintf("row %d: %s", d.Row, d.Message)
	}
	return fmt.Sprintf("row %d (%s): %s", d.Row, d.Variable, d.Message)
}

// Model is the immutable entity table of one scoring run.
type Model struct {
	entities []Entity
	byVar    map[string]int
}

// NewModel indexes entities by variable. Regulator slots naming a variable
// that no entity defines are dropped and reported; a repeated variable keeps
// its first row as the index target.
func NewModel(entities []Entity) (*Model, []Diagnostic) {
	m := &Model{
		entities: make([]Entity, len(entities)),
		byVar:    make(map[string]int, len(entities)),
	}
	var diags []Diagnostic
	for i, e := range entities {
		if _, exists := m.byVar[e.Variable]; exists {
			diags = append(diags, Diagnostic{Row: i, Variable: e.Variable, Message: "duplicate variable; first definition is used for regulator references"})
		} else if e.Variable != "" {
			m.byVar[e.Variable] = i
		}
		e.IDs = append([]string(nil), e.IDs...)
		m.entities[i] = e
	}
	for i := range m.entities {
		e := &m.entities[i]
		kept := make([]RegulatorEdge, 0, len(e.Regulators))
		for _, r := range e.Regulators {
			if _, ok := m.byVar[r.Variable]; !ok {
				diags = append(diags, Diagnostic{Row: i, Variable: e.Variable, Message: fmt.Sprintf("%s regulator %q is not a model element; slot skipped", r.Sign, r.Variable)})
				continue
			}
			kept = append(kept, r)
		}
		e.Regulators = kept
	}
	return m, diags
}

func (m *Model) Len() int {
	return len(m.entities)
}

// At returns the entity at row i. Callers must not modify it.
func (m *Model) At(i int) *Entity {
	return &m.entities[i]
}

func (m *Model) IndexOf(variable string) (int, bool) {
	i, ok := m.byVar[variable]
	return i, ok
}

func (m *Model) Entities() []Entity {
	out := make([]Entity, len(m.entities))
	copy(out, m.entities)
	return out
}

// Reference is one endpoint of a reading interaction.
type Reference struct {
	Name          string     `json:"name"`
	Type          EntityType `json:"type"`
	Subtype       string     `json:"subtype,omitempty"`
	Symbol        string     `json:"symbol,omitempty"`
	Database      string     `json:"database,omitempty"`
	ID            string     `json:"id,omitempty"`
	Compartment   string     `json:"compartment,omitempty"`
	CompartmentID string     `json:"compartment_id,omitempty"`
}

// Interaction is one deduplicated literature extracted event.
type Interaction struct {
	Regulator      Reference         `json:"regulator"`
	Regulated      Reference         `json:"regulated"`
	Sign           Sign              `json:"sign"`
	Connection     ConnectionType    `json:"connection_type"`
	Mechanism      string            `json:"mechanism,omitempty"`
	Site           string            `json:"site,omitempty"`
	CellLine       string            `json:"cell_line,omitempty"`
	CellType       string            `json:"cell_type,omitempty"`
	TissueType     string            `json:"tissue_type,omitempty"`
	Organism       string            `json:"organism,omitempty"`
	EvidenceCount  int               `json:"evidence_count"`
	EpistemicValue *float64          `json:"epistemic_value,omitempty"`
	PaperIDs       []string          `json:"paper_ids,omitempty"`
	Statements     []string          `json:"statements,omitempty"`
	Extra          map[string]string `json:"extra,omitempty"`
}

const (
	RunStatusQueued    = "queued"
	RunStatusRunning   = "running"
	RunStatusCompleted = "completed"
	RunStatusFailed    = "failed"
)

// Run is one scoring job over a stored model and reading.
type Run struct {
	RunID       string    `json:"run_id"`
	Status      string    `json:"status"`
	ModelID     string    `json:"model_id,omitempty"`
	ReadingID   string    `json:"reading_id,omitempty"`
	ModelPath   string    `json:"model_path"`
	ReadingPath string    `json:"reading_path"`
	OutPrefix   string    `json:"out_prefix,omitempty"`
	Preset      string    `json:"preset,omitempty"`
	Scheme      string    `json:"scheme"`
	RowCount    int       `json:"row_count"`
	ScoredCount int       `json:"scored_count"`
	FailReason  string    `json:"fail_reason,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
