package main

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/persistorai/relgraph/client"
)

const doctorTimeout = 5 * time.Second

func newDoctorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Diagnose a running relgraph server",
		Long:  "Check that the server answers, that its database and mapping are ready, and list what it can query",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDoctor(cmd.Context(), cmd.OutOrStdout(), apiClient)
		},
	}
}

type checkResult struct {
	Name   string
	Passed bool
	Detail string
	Hint   string
}

func runDoctor(ctx context.Context, w io.Writer, c *client.Client) error {
	fmt.Fprintln(w, "\nrelgraph doctor")
	fmt.Fprintln(w, "===============")

	ctx, cancel := context.WithTimeout(ctx, doctorTimeout)
	defer cancel()

	var results []checkResult

	health, err := c.Health(ctx)
	if err != nil {
		results = append(results, checkResult{
			Name: "Server reachable", Passed: false,
			Hint: fmt.Sprintf("Is relgraph serve running at %s?\n   Error: %v", flagURL, err),
		})

		return report(w, results)
	}

	results = append(results, checkResult{
		Name: "Server reachable", Passed: true,
		Detail: fmt.Sprintf("v%s, %s backend, up %s", health.Version, health.Backend,
			(time.Duration(health.UptimeSeconds) * time.Second).String()),
	})

	ready, err := c.Ready(ctx)
	switch {
	case ready != nil:
		keys := make([]string, 0, len(ready.Checks))
		for k := range ready.Checks {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		for _, k := range keys {
			r := checkResult{Name: "Ready: " + k, Passed: ready.Checks[k] == "ok", Detail: ready.Checks[k]}
			if !r.Passed {
				r.Hint = "See the server log for the failing check"
			}
			results = append(results, r)
		}
	case err != nil:
		results = append(results, checkResult{Name: "Ready", Passed: false, Hint: err.Error()})
	}

	m, err := c.Mapping.Get(ctx)
	if err != nil {
		results = append(results, checkResult{Name: "Mapping", Passed: false, Hint: err.Error()})
	} else {
		names := make([]string, len(m.Relationships))
		for i, r := range m.Relationships {
			names[i] = r.Name
		}

		results = append(results, checkResult{
			Name: "Mapping", Passed: true,
			Detail: fmt.Sprintf("%q v%s: %s", m.Name, m.Version, strings.Join(names, ", ")),
		})
	}

	return report(w, results)
}

func report(w io.Writer, results []checkResult) error {
	fmt.Fprintln(w)

	allPassed := true
	for _, r := range results {
		mark := "✅"
		if !r.Passed {
			mark = "❌"
			allPassed = false
		}

		if r.Detail != "" {
			fmt.Fprintf(w, "%s %s: %s\n", mark, r.Name, r.Detail)
		} else {
			fmt.Fprintf(w, "%s %s\n", mark, r.Name)
		}

		if !r.Passed && r.Hint != "" {
			fmt.Fprintf(w, "   Hint: %s\n", r.Hint)
		}
	}

	fmt.Fprintln(w)

	if !allPassed {
		fmt.Fprintln(w, "❌ Some checks failed.")

		return fmt.Errorf("doctor found issues")
	}

	fmt.Fprintln(w, "✅ All checks passed!")

	return nil
}
