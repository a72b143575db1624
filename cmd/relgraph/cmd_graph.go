package main

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/persistorai/relgraph/client"
)

func newGraphCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "graph",
		Short: "Run graph queries against a server",
	}
	cmd.AddCommand(graphTraverseCmd())
	cmd.AddCommand(graphAggregateCmd())
	cmd.AddCommand(graphPathCmd())
	cmd.AddCommand(graphCentralityCmd())
	cmd.AddCommand(graphComponentsCmd())
	cmd.AddCommand(graphResilienceCmd())
	cmd.AddCommand(graphArticulationCmd())
	return cmd
}

// queryFlags are shared by every graph subcommand.
type queryFlags struct {
	rel      string
	asOf     string
	maxDepth int
}

func (f *queryFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.rel, "rel", "r", "", "Relationship name (required)")
	cmd.Flags().StringVar(&f.asOf, "as-of", "", "Point in time for temporal relationships (RFC 3339)")
	cmd.Flags().IntVar(&f.maxDepth, "depth", 0, "Max depth (0 = server default)")
	_ = cmd.MarkFlagRequired("rel")
}

func (f *queryFlags) asOfTime() (*time.Time, error) {
	if f.asOf == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, f.asOf)
	if err != nil {
		return nil, fmt.Errorf("--as-of: %w", err)
	}
	return &t, nil
}

// predicateOps lists the infix operators parsePredicate accepts, longest first
// so "<=" is not read as "<".
var predicateOps = []string{"!=", "<=", ">=", "=", "<", ">"}

// parsePredicate reads "column<op>value", "column in a,b,c", "column is_null"
// or "column not_null". Values that parse as JSON keep their type; anything
// else is a string.
func parsePredicate(s string) (client.Predicate, error) {
	s = strings.TrimSpace(s)

	if fields := strings.Fields(s); len(fields) >= 2 {
		switch fields[1] {
		case "is_null", "not_null":
			if len(fields) != 2 {
				return client.Predicate{}, fmt.Errorf("predicate %q: %s takes no value", s, fields[1])
			}
			return client.Predicate{Column: fields[0], Op: fields[1]}, nil
		case "in":
			rest := strings.TrimSpace(strings.TrimPrefix(s, fields[0]))
			rest = strings.TrimSpace(strings.TrimPrefix(rest, "in"))
			var values []any
			for _, v := range strings.Split(rest, ",") {
				if v = strings.TrimSpace(v); v != "" {
					values = append(values, literal(v))
				}
			}
			if len(values) == 0 {
				return client.Predicate{}, fmt.Errorf("predicate %q: in needs at least one value", s)
			}
			return client.Predicate{Column: fields[0], Op: "in", Value: values}, nil
		}
	}

	for _, op := range predicateOps {
		col, val, ok := strings.Cut(s, op)
		if !ok {
			continue
		}
		col, val = strings.TrimSpace(col), strings.TrimSpace(val)
		if col == "" || val == "" {
			return client.Predicate{}, fmt.Errorf("predicate %q: want column%svalue", s, op)
		}
		return client.Predicate{Column: col, Op: op, Value: literal(val)}, nil
	}

	return client.Predicate{}, fmt.Errorf("predicate %q: no operator", s)
}

func literal(s string) any {
	var v any
	if err := json.Unmarshal([]byte(s), &v); err == nil {
		return v
	}
	return s
}

func parsePredicates(in []string) ([]client.Predicate, error) {
	out := make([]client.Predicate, 0, len(in))
	for _, s := range in {
		p, err := parsePredicate(s)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

func graphTraverseCmd() *cobra.Command {
	var (
		qf        queryFlags
		direction string
		stopAt    []string
		targets   []string
		skipEst   bool
	)
	cmd := &cobra.Command{
		Use:   "traverse <start>",
		Short: "Breadth-first walk from a node",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			asOf, err := qf.asOfTime()
			if err != nil {
				return err
			}
			stops, err := parsePredicates(stopAt)
			if err != nil {
				return err
			}
			tgts, err := parsePredicates(targets)
			if err != nil {
				return err
			}
			req := client.TraverseRequest{
				Relationship:   qf.rel,
				Start:          args[0],
				Direction:      client.Direction(direction),
				MaxDepth:       qf.maxDepth,
				StopAt:         stops,
				Targets:        tgts,
				AsOf:           asOf,
				SkipEstimation: skipEst,
			}
			var res *client.TraversalResult
			if len(tgts) > 0 {
				res, err = apiClient.Graph.TraverseCollecting(cmd.Context(), req)
			} else {
				res, err = apiClient.Graph.Traverse(cmd.Context(), req)
			}
			if err != nil {
				return err
			}
			output(res)
			return nil
		},
	}
	qf.register(cmd)
	cmd.Flags().StringVar(&direction, "direction", "outbound", "outbound|inbound|both")
	cmd.Flags().StringArrayVar(&stopAt, "stop-at", nil, `Stop expanding at nodes matching, e.g. "status=retired" (repeatable)`)
	cmd.Flags().StringArrayVar(&targets, "target", nil, `Collect only nodes matching (repeatable)`)
	cmd.Flags().BoolVar(&skipEst, "skip-estimation", false, "Skip the pre-flight size estimate")
	return cmd
}

func graphAggregateCmd() *cobra.Command {
	var (
		qf        queryFlags
		direction string
		column    string
		operator  string
	)
	cmd := &cobra.Command{
		Use:   "aggregate <start>",
		Short: "Fold a value column along every path from a node",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			asOf, err := qf.asOfTime()
			if err != nil {
				return err
			}
			res, err := apiClient.Graph.PathAggregate(cmd.Context(), client.AggregateRequest{
				Relationship: qf.rel,
				Start:        args[0],
				Direction:    client.Direction(direction),
				ValueColumn:  column,
				Operator:     operator,
				MaxDepth:     qf.maxDepth,
				AsOf:         asOf,
			})
			if err != nil {
				return err
			}
			rows := make([][]string, len(res.Nodes))
			for i, n := range res.Nodes {
				rows[i] = []string{n.ID, strconv.FormatFloat(n.Value, 'g', -1, 64), strconv.Itoa(n.MinDepth), strconv.Itoa(n.PathCount)}
			}
			outputTable(res, []string{"NODE", "VALUE", "MIN DEPTH", "PATHS"}, rows)
			return nil
		},
	}
	qf.register(cmd)
	cmd.Flags().StringVar(&direction, "direction", "outbound", "outbound|inbound|both")
	cmd.Flags().StringVar(&column, "column", "", "Weight column to fold (not needed for count)")
	cmd.Flags().StringVar(&operator, "op", "sum", "sum|max|min|multiply|count")
	return cmd
}

func graphPathCmd() *cobra.Command {
	var (
		qf         queryFlags
		weight     string
		exclude    []string
		all        bool
		maxPaths   int
		undirected bool
	)
	cmd := &cobra.Command{
		Use:   "path <from> <to>",
		Short: "Find the shortest path between two nodes",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			asOf, err := qf.asOfTime()
			if err != nil {
				return err
			}
			req := client.PathRequest{
				Relationship: qf.rel,
				Start:        args[0],
				End:          args[1],
				WeightColumn: weight,
				Exclude:      exclude,
				MaxDepth:     qf.maxDepth,
				MaxPaths:     maxPaths,
				Undirected:   undirected,
				AsOf:         asOf,
			}
			if all {
				res, err := apiClient.Graph.AllShortestPaths(cmd.Context(), req)
				if err != nil {
					return err
				}
				rows := make([][]string, len(res.Paths))
				for i, p := range res.Paths {
					rows[i] = []string{strconv.Itoa(i + 1), strings.Join(p, " -> ")}
				}
				outputTable(res, []string{"#", "PATH"}, rows)
				return nil
			}
			res, err := apiClient.Graph.ShortestPath(cmd.Context(), req)
			if err != nil {
				return err
			}
			output(res)
			return nil
		},
	}
	qf.register(cmd)
	cmd.Flags().StringVar(&weight, "weight", "", "Weight column (empty = hop count)")
	cmd.Flags().StringSliceVar(&exclude, "exclude", nil, "Nodes the path must avoid")
	cmd.Flags().BoolVar(&all, "all", false, "Return every path tied for the minimum")
	cmd.Flags().IntVar(&maxPaths, "max-paths", 0, "Cap on tied paths with --all")
	cmd.Flags().BoolVar(&undirected, "undirected", false, "Ignore edge direction")
	return cmd
}

func graphCentralityCmd() *cobra.Command {
	var (
		qf         queryFlags
		kind       string
		topN       int
		weight     string
		undirected bool
		start      string
	)
	cmd := &cobra.Command{
		Use:   "centrality",
		Short: "Rank nodes by degree, betweenness, closeness or pagerank",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			asOf, err := qf.asOfTime()
			if err != nil {
				return err
			}
			res, err := apiClient.Graph.Centrality(cmd.Context(), client.CentralityRequest{
				Relationship: qf.rel,
				Type:         kind,
				TopN:         topN,
				WeightColumn: weight,
				Undirected:   undirected,
				Start:        start,
				MaxDepth:     qf.maxDepth,
				AsOf:         asOf,
			})
			if err != nil {
				return err
			}
			rows := make([][]string, len(res.Nodes))
			for i, n := range res.Nodes {
				rows[i] = []string{strconv.Itoa(n.Rank), n.ID, strconv.FormatFloat(n.Score, 'f', 6, 64)}
			}
			outputTable(res, []string{"RANK", "NODE", "SCORE"}, rows)
			return nil
		},
	}
	qf.register(cmd)
	cmd.Flags().StringVar(&kind, "type", client.CentralityDegree, "degree|betweenness|closeness|pagerank")
	cmd.Flags().IntVar(&topN, "top", 0, "Number of nodes to return (0 = server default)")
	cmd.Flags().StringVar(&weight, "weight", "", "Weight column")
	cmd.Flags().BoolVar(&undirected, "undirected", false, "Ignore edge direction")
	cmd.Flags().StringVar(&start, "start", "", "Limit the analysis to the neighborhood of this node")
	return cmd
}

func graphComponentsCmd() *cobra.Command {
	var (
		qf      queryFlags
		strong  bool
		minSize int
	)
	cmd := &cobra.Command{
		Use:   "components",
		Short: "Group nodes into connected components",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			asOf, err := qf.asOfTime()
			if err != nil {
				return err
			}
			res, err := apiClient.Graph.ConnectedComponents(cmd.Context(), client.ComponentsRequest{
				Relationship: qf.rel,
				Strong:       strong,
				MinSize:      minSize,
				MaxDepth:     qf.maxDepth,
				AsOf:         asOf,
			})
			if err != nil {
				return err
			}
			rows := make([][]string, len(res.Components))
			for i, c := range res.Components {
				rows[i] = []string{strconv.Itoa(c.ID), strconv.Itoa(c.Size), strings.Join(c.Nodes, ", ")}
			}
			outputTable(res, []string{"ID", "SIZE", "NODES"}, rows)
			return nil
		},
	}
	qf.register(cmd)
	cmd.Flags().BoolVar(&strong, "strong", false, "Strongly connected components")
	cmd.Flags().IntVar(&minSize, "min-size", 0, "Hide components smaller than this")
	return cmd
}

func graphResilienceCmd() *cobra.Command {
	var qf queryFlags
	cmd := &cobra.Command{
		Use:   "resilience <node>",
		Short: "Simulate removing a node",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			asOf, err := qf.asOfTime()
			if err != nil {
				return err
			}
			res, err := apiClient.Graph.Resilience(cmd.Context(), client.ResilienceRequest{
				Relationship: qf.rel,
				Node:         args[0],
				AsOf:         asOf,
			})
			if err != nil {
				return err
			}
			output(res)
			return nil
		},
	}
	qf.register(cmd)
	return cmd
}

func graphArticulationCmd() *cobra.Command {
	var qf queryFlags
	cmd := &cobra.Command{
		Use:   "articulation",
		Short: "List cut vertices and bridges",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			asOf, err := qf.asOfTime()
			if err != nil {
				return err
			}
			res, err := apiClient.Graph.ArticulationPoints(cmd.Context(), client.ComponentsRequest{
				Relationship: qf.rel,
				MaxDepth:     qf.maxDepth,
				AsOf:         asOf,
			})
			if err != nil {
				return err
			}
			rows := make([][]string, 0, len(res.Points)+len(res.Bridges))
			for _, p := range res.Points {
				rows = append(rows, []string{"point", p})
			}
			for _, b := range res.Bridges {
				rows = append(rows, []string{"bridge", b[0] + " - " + b[1]})
			}
			outputTable(res, []string{"KIND", "NODES"}, rows)
			return nil
		},
	}
	qf.register(cmd)
	return cmd
}

func newMappingCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mapping [relationship]",
		Short: "Show the server's mapping, or one relationship",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				rel, err := apiClient.Mapping.Relationship(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				output(rel)
				return nil
			}
			m, err := apiClient.Mapping.Get(cmd.Context())
			if err != nil {
				return err
			}
			rows := make([][]string, len(m.Relationships))
			for i, r := range m.Relationships {
				rows[i] = []string{r.Name, r.From + " -> " + strings.Join(r.To, "|"), strings.Join(r.Operations, ",")}
			}
			outputTable(m, []string{"RELATIONSHIP", "ENDPOINTS", "OPERATIONS"}, rows)
			return nil
		},
	}
}
