package binexport

import (
	"fmt"
	"strings"
)

// children returns the indices of expressions whose parent is exprIdx, in
// table order — the order the original writer emitted them in, which is
// the order the rendered tree must preserve.
func (art *Artifact) children(exprIdx int) []int {
	var out []int
	for i, e := range art.Expressions {
		if e.HasParent && e.ParentIndex == exprIdx {
			out = append(out, i)
		}
	}
	return out
}

// roots returns the root expression indices of an operand — the
// expressions in its ExpressionIndex list that have no parent within this
// same operand's tree (normally exactly one).
func (art *Artifact) roots(op Operand) []int {
	var out []int
	for _, idx := range op.ExpressionIndex {
		if idx < 0 || idx >= len(art.Expressions) {
			continue
		}
		if !art.Expressions[idx].HasParent {
			out = append(out, idx)
		}
	}
	return out
}

// RenderOperand renders one operand's expression tree to text: an
// operator with a single child renders prefix,
// with multiple children renders infix; an immediate 0 on "+" is
// suppressed; on 32-bit architectures immediates are sign-extended from
// 32 bits; register lists render as "{a, b, c}".
func (art *Artifact) RenderOperand(operandIdx int, arch32 bool) string {
	if operandIdx < 0 || operandIdx >= len(art.Operands) {
		return ""
	}
	op := art.Operands[operandIdx]
	roots := art.roots(op)
	var parts []string
	for _, r := range roots {
		parts = append(parts, art.renderExpr(r, arch32))
	}
	return strings.Join(parts, ", ")
}

func (art *Artifact) renderExpr(idx int, arch32 bool) string {
	if idx < 0 || idx >= len(art.Expressions) {
		return ""
	}
	e := art.Expressions[idx]
	kids := art.children(idx)

	switch e.Type {
	case ExprImmediate:
		v := e.Immediate
		if arch32 {
			v = int64(int32(v))
		}
		if v < 0 {
			return fmt.Sprintf("-0x%x", -v)
		}
		return fmt.Sprintf("0x%x", v)
	case ExprSymbol:
		return e.Symbol
	case ExprRegister:
		if len(kids) > 1 {
			names := make([]string, len(kids))
			for i, k := range kids {
				names[i] = art.renderExpr(k, arch32)
			}
			return "{" + strings.Join(names, ", ") + "}"
		}
		return e.Symbol
	case ExprSize:
		if len(kids) == 1 {
			return e.Symbol + " " + art.renderExpr(kids[0], arch32)
		}
		return e.Symbol
	case ExprDeref:
		if len(kids) == 1 {
			return "[" + art.renderExpr(kids[0], arch32) + "]"
		}
		inner := make([]string, len(kids))
		for i, k := range kids {
			inner[i] = art.renderExpr(k, arch32)
		}
		return "[" + strings.Join(inner, ", ") + "]"
	case ExprOperator:
		return art.renderOperator(e, kids, arch32)
	default:
		return e.Symbol
	}
}

func (art *Artifact) renderOperator(e Expression, kids []int, arch32 bool) string {
	op := e.Symbol
	if len(kids) == 1 {
		return op + art.renderExpr(kids[0], arch32)
	}
	// Immediate-0 suppression on "+": "reg+0" renders as "reg".
	if op == "+" {
		var nonZero []int
		for _, k := range kids {
			ke := art.Expressions[k]
			if ke.Type == ExprImmediate && ke.Immediate == 0 {
				continue
			}
			nonZero = append(nonZero, k)
		}
		if len(nonZero) == 1 {
			return art.renderExpr(nonZero[0], arch32)
		}
		kids = nonZero
	}
	rendered := make([]string, len(kids))
	for i, k := range kids {
		rendered[i] = art.renderExpr(k, arch32)
	}
	return strings.Join(rendered, op)
}
