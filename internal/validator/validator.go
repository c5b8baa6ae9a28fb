// Package validator checks the membership transition table for consistency.
package validator

import (
	"fmt"
	"strings"

	"github.com/aretw0/staffgate/internal/membership"
	"github.com/aretw0/staffgate/pkg/domain"
)

// ValidateEdges crawls the graphs from the idle state and reports edges into
// undeclared states and declared states no edge reaches.
func ValidateEdges(edges []membership.Edge) error {
	out := make(map[domain.State][]domain.State)
	var errs []string
	for _, e := range edges {
		if !e.From.Valid() {
			errs = append(errs, fmt.Sprintf("edge %q leaves undeclared state '%s'", e.On, e.From))
		}
		if e.Rollback {
			continue // target is whatever rollback point is stored
		}
		if !e.To.Valid() {
			errs = append(errs, fmt.Sprintf("edge %q from '%s' enters undeclared state '%s'", e.On, e.From, e.To))
			continue
		}
		out[e.From] = append(out[e.From], e.To)
	}

	visited := map[domain.State]bool{}
	queue := []domain.State{domain.StateNone}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		if visited[current] {
			continue
		}
		visited[current] = true
		for _, next := range out[current] {
			if !visited[next] {
				queue = append(queue, next)
			}
		}
	}

	for _, states := range [][]domain.State{domain.ApplicantStates, domain.ReviewerStates} {
		for _, s := range states {
			if !visited[s] {
				errs = append(errs, fmt.Sprintf("unreachable state '%s'", s))
			}
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("found %d errors:\n- %s", len(errs), strings.Join(errs, "\n- "))
	}
	return nil
}
