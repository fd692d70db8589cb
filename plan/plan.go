// Package plan validates the requested artifact combination and fixes
// the leaves-first submission order.
package plan

import (
	"fmt"
	"sort"
	"strings"
)

// Target is one submittable artifact class.
type Target string

// The five artifact classes, in submission order.
const (
	Samples  Target = "samples"
	Reads    Target = "reads"
	Assembly Target = "assembly"
	Bins     Target = "bins"
	MAGs     Target = "mags"
)

// order fixes the leaves-first execution order.
var order = []Target{Samples, Reads, Assembly, Bins, MAGs}

var bit = map[Target]uint8{
	Samples:  1 << 0,
	Reads:    1 << 1,
	Assembly: 1 << 2,
	Bins:     1 << 3,
	MAGs:     1 << 4,
}

// legalModes are the only artifact combinations the archive's dependency
// DAG admits. mags without bins is allowed only on its own.
var legalModes = func() map[uint8]bool {
	modes := [][]Target{
		{Samples},
		{Reads},
		{Samples, Reads},
		{Samples, Reads, Assembly},
		{Samples, Reads, Assembly, Bins},
		{Samples, Reads, Assembly, Bins, MAGs},
		{Reads, Assembly},
		{Reads, Assembly, Bins},
		{Reads, Assembly, Bins, MAGs},
		{Assembly},
		{Assembly, Bins},
		{Assembly, Bins, MAGs},
		{Bins},
		{Bins, MAGs},
		{MAGs},
	}
	out := make(map[uint8]bool, len(modes))
	for _, m := range modes {
		var mask uint8
		for _, t := range m {
			mask |= bit[t]
		}
		out[mask] = true
	}
	return out
}()

// Plan is a validated, ordered submission plan.
type Plan []Target

// New validates the requested target set against the legal modes and
// returns the plan in leaves-first order.
func New(targets map[Target]bool) (Plan, error) {
	var mask uint8
	for t, on := range targets {
		if !on {
			continue
		}
		b, ok := bit[t]
		if !ok {
			return nil, fmt.Errorf("unknown submission target %q", t)
		}
		mask |= b
	}
	if mask == 0 {
		return nil, fmt.Errorf("empty submission plan: at least one of %s is required", targetList())
	}
	if !legalModes[mask] {
		return nil, &IllegalModeError{Requested: fromMask(mask)}
	}
	return fromMask(mask), nil
}

// Has reports whether the plan includes the target.
func (p Plan) Has(t Target) bool {
	for _, x := range p {
		if x == t {
			return true
		}
	}
	return false
}

func (p Plan) String() string {
	parts := make([]string, len(p))
	for i, t := range p {
		parts[i] = string(t)
	}
	return strings.Join(parts, " -> ")
}

func fromMask(mask uint8) Plan {
	var p Plan
	for _, t := range order {
		if mask&bit[t] != 0 {
			p = append(p, t)
		}
	}
	return p
}

func targetList() string {
	parts := make([]string, len(order))
	for i, t := range order {
		parts[i] = string(t)
	}
	return strings.Join(parts, ", ")
}

// IllegalModeError reports a requested combination outside the legal
// mode set.
type IllegalModeError struct {
	Requested Plan
}

func (e *IllegalModeError) Error() string {
	legal := make([]string, 0, len(legalModes))
	for mask := range legalModes {
		legal = append(legal, "{"+fromMask(mask).join(",")+"}")
	}
	sort.Strings(legal)
	return fmt.Sprintf("submission plan {%s} is not a legal combination; legal combinations are %s",
		e.Requested.join(","), strings.Join(legal, " "))
}

func (p Plan) join(sep string) string {
	parts := make([]string, len(p))
	for i, t := range p {
		parts[i] = string(t)
	}
	return strings.Join(parts, sep)
}
