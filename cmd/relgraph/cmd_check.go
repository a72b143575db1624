package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/persistorai/relgraph/internal/ontology"
	"github.com/persistorai/relgraph/internal/store/memstore"
)

// checkSampleLimit caps how many rows check counts per relationship.
const checkSampleLimit = 100000

func newCheckCmd() *cobra.Command {
	var mappingPath, fixturePath string

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Validate a mapping file, and optionally a fixture against it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(cmd.Context(), cmd.OutOrStdout(), mappingPath, fixturePath)
		},
	}
	cmd.Flags().StringVar(&mappingPath, "mapping", "", "Mapping YAML file (required)")
	cmd.Flags().StringVar(&fixturePath, "fixture", "", "Fixture YAML file to query through the mapping")
	_ = cmd.MarkFlagRequired("mapping")

	return cmd
}

func runCheck(ctx context.Context, w io.Writer, mappingPath, fixturePath string) error {
	mapping, err := ontology.LoadFile(mappingPath)
	if err != nil {
		return err
	}

	if err := mapping.Err(); err != nil {
		var verrs *ontology.ValidationErrors
		if errors.As(err, &verrs) {
			for _, e := range verrs.Errors {
				fmt.Fprintf(w, "❌ %s: %s\n", e.Path, e.Message)
			}
		}

		return fmt.Errorf("mapping %s is invalid", mappingPath)
	}

	fmt.Fprintf(w, "✅ mapping %q: %d entities, %d relationships\n",
		mapping.Name(), len(mapping.EntityNames()), len(mapping.RelationshipNames()))

	if fixturePath == "" {
		return nil
	}

	src, err := memstore.LoadFile(fixturePath)
	if err != nil {
		return err
	}

	r, err := src.Open(ctx)
	if err != nil {
		return err
	}
	defer r.Close(ctx) //nolint:errcheck // read-only fixture reader.

	failed := false

	for _, name := range mapping.RelationshipNames() {
		rel, err := mapping.ResolveRelationship(name)
		if err != nil {
			return err
		}

		n, err := r.CountEdges(ctx, rel, nil, checkSampleLimit)
		if err != nil {
			failed = true

			fmt.Fprintf(w, "❌ %s: %v\n", name, err)

			continue
		}

		fmt.Fprintf(w, "✅ %s: %d live edges\n", name, n)
	}

	if failed {
		return fmt.Errorf("fixture %s does not match the mapping", fixturePath)
	}

	return nil
}
