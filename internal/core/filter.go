package core

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/samber/lo"
)

// FilterOp is one comparison/membership operator a filter expression can
// use (spec.md §4.3 "Filter expressions").
type FilterOp int

const (
	OpEq FilterOp = iota
	OpNeq
	OpLt
	OpLte
	OpGt
	OpGte
	OpIn
	OpOut
	OpBetween
)

// FilterExpr is one parsed clause: attribute OP operand(s). A chain of
// clauses is implicitly ANDed, matching the teacher's flat chained-filter
// style (pkg/s57/region.go parses its filter strings the same line-token
// way, no grammar library).
type FilterExpr struct {
	Attribute string
	Op        FilterOp
	Operand   float64
	Operands  []float64 // %in%, %out%, %between%
}

// ParseFilter parses a single filter expression string, e.g.
// "Classification == 2", "Z %between% 10 20", "Classification %in% 2 6 9".
func ParseFilter(expr string) (*FilterExpr, error) {
	fields := strings.Fields(expr)
	if len(fields) < 3 {
		return nil, newConfigurationErrorf("invalid filter expression %q", expr)
	}
	attr := MapAttribute(fields[0])
	opTok := fields[1]
	rest := fields[2:]

	op, err := parseOp(opTok)
	if err != nil {
		return nil, newConfigurationErrorf("filter %q: %v", expr, err)
	}

	fe := &FilterExpr{Attribute: attr, Op: op}
	switch op {
	case OpIn, OpOut:
		vals, err := parseFloats(rest)
		if err != nil {
			return nil, newConfigurationErrorf("filter %q: %v", expr, err)
		}
		fe.Operands = vals
	case OpBetween:
		if len(rest) != 2 {
			return nil, newConfigurationErrorf("filter %q: %%between%% needs exactly two bounds", expr)
		}
		vals, err := parseFloats(rest)
		if err != nil {
			return nil, newConfigurationErrorf("filter %q: %v", expr, err)
		}
		fe.Operands = vals
	default:
		if len(rest) != 1 {
			return nil, newConfigurationErrorf("filter %q: operator %s needs exactly one operand", expr, opTok)
		}
		v, err := strconv.ParseFloat(rest[0], 64)
		if err != nil {
			return nil, newConfigurationErrorf("filter %q: %v", expr, err)
		}
		fe.Operand = v
	}
	return fe, nil
}

func parseOp(tok string) (FilterOp, error) {
	switch tok {
	case "==", "=":
		return OpEq, nil
	case "!=", "<>":
		return OpNeq, nil
	case "<":
		return OpLt, nil
	case "<=":
		return OpLte, nil
	case ">":
		return OpGt, nil
	case ">=":
		return OpGte, nil
	case "%in%":
		return OpIn, nil
	case "%out%":
		return OpOut, nil
	case "%between%":
		return OpBetween, nil
	default:
		return 0, fmt.Errorf("unknown filter operator %q", tok)
	}
}

func parseFloats(toks []string) ([]float64, error) {
	out := make([]float64, len(toks))
	for i, t := range toks {
		v, err := strconv.ParseFloat(t, 64)
		if err != nil {
			return nil, fmt.Errorf("operand %q: %w", t, err)
		}
		out[i] = v
	}
	return out, nil
}

// Matches evaluates the clause against p, returning false if the attribute
// doesn't exist on p's schema (unknown attributes never match, spec.md §7
// "invalid filter" is caught at parse time via ParseFilter instead).
func (fe *FilterExpr) Matches(p PointView) bool {
	if !p.Schema().HasAttribute(fe.Attribute) {
		return false
	}
	v := p.Value(fe.Attribute)
	switch fe.Op {
	case OpEq:
		return v == fe.Operand
	case OpNeq:
		return v != fe.Operand
	case OpLt:
		return v < fe.Operand
	case OpLte:
		return v <= fe.Operand
	case OpGt:
		return v > fe.Operand
	case OpGte:
		return v >= fe.Operand
	case OpIn:
		return lo.Contains(fe.Operands, v)
	case OpOut:
		return !lo.Contains(fe.Operands, v)
	case OpBetween:
		return v >= fe.Operands[0] && v <= fe.Operands[1]
	default:
		return false
	}
}

// CompileFilter parses a chain of filter expressions (one per element,
// implicitly ANDed) into a single Filter predicate usable by
// PointCloud.Query and friends.
func CompileFilter(exprs []string) (Filter, error) {
	clauses := make([]*FilterExpr, 0, len(exprs))
	for _, e := range exprs {
		fe, err := ParseFilter(e)
		if err != nil {
			return nil, err
		}
		clauses = append(clauses, fe)
	}
	return func(p PointView) bool {
		for _, c := range clauses {
			if !c.Matches(p) {
				return false
			}
		}
		return true
	}, nil
}
