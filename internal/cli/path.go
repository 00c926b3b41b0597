package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"violin/internal/biorecipe"
	"violin/internal/graph"
)

var pathModel string

var pathCmd = &cobra.Command{
	Use:   "path <from> <to>",
	Short: "Show the regulatory paths between two model variables",
	Long: `Print the shortest path, its sign and the path with the fewest negative
edges between two variables of a model's regulatory graph.

Examples:
  violin path --model model.csv egfr mek`,
	Args: cobra.ExactArgs(2),
	RunE: runPath,
}

func init() {
	pathCmd.Flags().StringVarP(&pathModel, "model", "m", "", "model file (.csv, .tsv, .txt)")
	_ = pathCmd.MarkFlagRequired("model")
}

func runPath(cmd *cobra.Command, args []string) error {
	m, diags, err := biorecipe.LoadModel(pathModel)
	if err != nil {
		return err
	}
	for _, d := range diags {
		logger.Warn("model diagnostic", "row", d.Row, "variable", d.Variable, "message", d.Message)
	}
	g := graph.Build(m)
	from := biorecipe.SanitizeVariable(args[0])
	to := biorecipe.SanitizeVariable(args[1])
	out := cmd.OutOrStdout()

	for _, v := range []string{from, to} {
		if _, ok := m.IndexOf(v); !ok {
			fmt.Fprintf(out, "%s is not a model element.\n", v)
			return nil
		}
		if !g.HasNode(v) {
			fmt.Fprintf(out, "%s is not part of the regulatory graph.\n", v)
			return nil
		}
	}
	shortest, ok := g.ShortestPath(from, to)
	if !ok {
		fmt.Fprintf(out, "No path from %s to %s.\n", from, to)
		return nil
	}
	sign, _ := g.PathSign(shortest)
	fmt.Fprintf(out, "shortest: %s (%d edges, %s)\n", strings.Join(shortest, " -> "), len(shortest)-1, signName(sign))
	if lightest, ok := g.LightestPath(from, to); ok {
		lsign, _ := g.PathSign(lightest)
		fmt.Fprintf(out, "lightest: %s (%d edges, %s)\n", strings.Join(lightest, " -> "), len(lightest)-1, signName(lsign))
	}
	return nil
}

func signName(bit int) string {
	if bit == 1 {
		return "negative"
	}
	return "positive"
}
