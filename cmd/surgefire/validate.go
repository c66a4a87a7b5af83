package main

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/torosent/surgefire/internal/config"
	"github.com/torosent/surgefire/internal/placeholders"
	"github.com/torosent/surgefire/internal/scenario"
)

// describePlan prints what a run of plan would do without sending anything.
func describePlan(w io.Writer, plan *config.Plan) {
	fmt.Fprintln(w, "Configuration is valid.")
	for _, inj := range plan.Injections {
		sc := inj.Scenario
		fmt.Fprintf(w, "\nScenario %q\n", sc.Name)
		fmt.Fprintf(w, "  Users:     %d over %s\n", inj.Profile.TotalUsers(), inj.Profile.Duration())
		fmt.Fprintf(w, "  Profile:   %s\n", inj.Profile)
		fmt.Fprintf(w, "  Requests:  %d per user (%s)\n", sc.RequestCount(), strings.Join(sc.RequestNames(), ", "))
		if vars := referencedVariables(sc.Steps); len(vars) > 0 {
			fmt.Fprintf(w, "  Variables: %s\n", strings.Join(vars, ", "))
		}
	}
	if len(plan.Assertions) > 0 {
		fmt.Fprintln(w, "\nAssertions:")
		for _, a := range plan.Assertions {
			fmt.Fprintf(w, "  - %s\n", a)
		}
	}
}

// referencedVariables lists the session variables request templates read,
// sorted and without duplicates.
func referencedVariables(steps []scenario.Step) []string {
	seen := make(map[string]struct{})
	var walk func([]scenario.Step)
	walk = func(steps []scenario.Step) {
		for _, st := range steps {
			switch s := st.(type) {
			case *scenario.Request:
				templates := []string{s.Path, s.Body}
				for _, q := range s.Query {
					templates = append(templates, q.Value)
				}
				for _, h := range s.Headers {
					templates = append(templates, h)
				}
				for _, t := range templates {
					for _, name := range placeholders.References(t) {
						seen[name] = struct{}{}
					}
				}
			case *scenario.Repeat:
				walk(s.Steps)
			}
		}
	}
	walk(steps)

	out := make([]string, 0, len(seen))
	for name := range seen {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
