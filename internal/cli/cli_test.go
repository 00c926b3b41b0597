package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

const cliModelCSV = "Variable,Element Name,Element Type,Element Database,Element IDs,Positive Regulator List,Positive Connection Type List,Negative Regulator List\n" +
	"egfr,EGFR,protein,UniProt,P00533,,,\n" +
	"kras,KRAS,protein,UniProt,P01116,egfr,d,\n" +
	"braf,BRAF,protein,UniProt,P15056,,,kras\n"

const cliReadingCSV = "Regulator Name,Regulator Type,Regulated Name,Regulated Type,Sign,Connection Type,Evidence Score\n" +
	"EGFR,protein,KRAS,protein,increases,d,2\n" +
	"EGFR,protein,TP53,protein,increases,d,1\n" +
	"KRAS,protein,BRAF,protein,increases,d,1\n"

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("VIOLIN_LOG_FILE", filepath.Join(t.TempDir(), "violin.log"))
	buf := &bytes.Buffer{}
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return buf.String(), err
}

func writeInputs(t *testing.T) (string, string, string) {
	t.Helper()
	dir := t.TempDir()
	model := filepath.Join(dir, "model.csv")
	reading := filepath.Join(dir, "reading.csv")
	require.NoError(t, os.WriteFile(model, []byte(cliModelCSV), 0o644))
	require.NoError(t, os.WriteFile(reading, []byte(cliReadingCSV), 0o644))
	return dir, model, reading
}

func TestScoreCommandWritesOutputs(t *testing.T) {
	dir, model, reading := writeInputs(t)
	prefix := filepath.Join(dir, "out", "run")

	out, err := execute(t, "score", "--model", model, "--reading", reading, "--out", prefix, "--preset", "extend", "--scheme", "1")
	require.NoError(t, err)
	require.Contains(t, out, "Scored 3 interactions against 3 model elements (scheme 1)")
	require.Contains(t, out, "contradictions")

	for _, suffix := range []string{"_outputDF.csv", "_scoreDF.csv", "_corroborations.csv", "_flagged_score.csv", "_diagnostics.jsonl"} {
		_, err := os.Stat(prefix + suffix)
		require.NoError(t, err, suffix)
	}
	b, err := os.ReadFile(prefix + "_outputDF.csv")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(b)), "\n")
	require.Len(t, lines, 4)
	require.Contains(t, lines[0], "Total Score")
}

func TestPathCommand(t *testing.T) {
	_, model, _ := writeInputs(t)

	out, err := execute(t, "path", "--model", model, "EGFR", "braf")
	require.NoError(t, err)
	require.Contains(t, out, "shortest: egfr -> kras -> braf (2 edges, negative)")

	out, err = execute(t, "path", "--model", model, "braf", "egfr")
	require.NoError(t, err)
	require.Contains(t, out, "No path from braf to egfr.")
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	require.Equal(t, "violin "+Version+"\n", out)
}

func TestPathCommandUnknownElement(t *testing.T) {
	_, model, _ := writeInputs(t)

	out, err := execute(t, "path", "--model", model, "egfr", "TP53")
	require.NoError(t, err)
	require.Contains(t, out, "tp53 is not a model element.")
}

func TestScoreCommandAttributes(t *testing.T) {
	dir, model, reading := writeInputs(t)
	prefix := filepath.Join(dir, "attrs")

	out, err := execute(t, "score", "--model", model, "--reading", reading, "--out", prefix, "--attributes", "Regulated Compartment,Cell Line")
	require.NoError(t, err)
	require.Contains(t, out, "Scored 3 interactions")
	require.Contains(t, scoreCmd.Flags().Lookup("attributes").Usage, "Regulated Compartment")
}
