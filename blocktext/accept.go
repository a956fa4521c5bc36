package blocktext

import (
	"strconv"

	"github.com/chazu/scratchkit/blocks"
)

// ---------------------------------------------------------------------------
// Parsed operands
// ---------------------------------------------------------------------------

type nodeKind int

const (
	nodeBlock nodeKind = iota
	nodeNumber
	nodeString
	nodeColor
	nodeDropdown     // [x v]
	nodeMenuDropdown // (x v)
	nodeEmpty        // () or <>
)

// node is an operand before it is matched against an insert.
type node struct {
	kind  nodeKind
	block *blocks.Block
	value any // int64 or float64 for numbers, string for text
	color blocks.Color
	tok   Token // first token, for error positions
	angle bool  // written between < >
}

// shapeName describes n in error messages.
func (n *node) shapeName() string {
	switch n.kind {
	case nodeBlock:
		return n.block.Shape().String()
	case nodeNumber:
		return "number"
	case nodeString:
		return "string"
	case nodeColor:
		return "color"
	case nodeDropdown:
		return "dropdown"
	case nodeMenuDropdown:
		return "number-menu"
	}
	if n.angle {
		return "empty boolean"
	}
	return "empty"
}

func (n *node) text() string {
	s, _ := n.value.(string)
	return s
}

func parseNumber(s string) any {
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return i
	}
	f, _ := strconv.ParseFloat(s, 64)
	return f
}

func isNumeric(s string) bool {
	_, err := strconv.ParseFloat(s, 64)
	return err == nil
}

// ---------------------------------------------------------------------------
// Accept predicates
// ---------------------------------------------------------------------------

// accept converts n into an argument for in, or reports that in does not
// take it.
func accept(in blocks.Insert, n *node, scope *blocks.Scope) (any, bool) {
	switch in.Shape() {
	case blocks.InsertNumber, blocks.InsertNumberMenu:
		return acceptNumber(in, n, scope)
	case blocks.InsertString:
		switch n.kind {
		case nodeString, nodeNumber:
			return n.value, true
		case nodeBlock:
			return n.block, isReporter(n.block)
		case nodeEmpty:
			return "", !n.angle
		}
	case blocks.InsertBoolean:
		switch n.kind {
		case nodeBlock:
			return n.block, n.block.Shape() == blocks.ShapeBoolean
		case nodeEmpty:
			return false, n.angle
		}
	case blocks.InsertColor:
		if n.kind == nodeColor {
			return n.color, true
		}
	case blocks.InsertReadonlyMenu:
		switch n.kind {
		case nodeDropdown:
			if in.Kind.ClosedOptions() && !in.Kind.HasOption(n.text(), scope) {
				return nil, false
			}
			return n.value, true
		case nodeString:
			return n.value, in.Kind.HasOption(n.text(), scope)
		case nodeNumber:
			// costume and sound menus also take an index
			return n.value, !in.Kind.ClosedOptions()
		case nodeBlock:
			return n.block, n.block.Command == "readVariable"
		}
	}
	return nil, false
}

func acceptNumber(in blocks.Insert, n *node, scope *blocks.Scope) (any, bool) {
	switch n.kind {
	case nodeNumber:
		return n.value, true
	case nodeBlock:
		return n.block, isReporter(n.block)
	case nodeString:
		if isNumeric(n.text()) {
			return n.value, true
		}
		return n.value, in.Shape() == blocks.InsertNumberMenu && in.Kind.HasOption(n.text(), scope)
	case nodeMenuDropdown, nodeDropdown:
		if in.Shape() != blocks.InsertNumberMenu {
			return nil, false
		}
		if _, ok := n.value.(string); !ok {
			return n.value, true // (90 v)
		}
		return n.value, isNumeric(n.text()) || in.Kind.HasOption(n.text(), scope)
	case nodeEmpty:
		return "", !n.angle
	}
	return nil, false
}

func isReporter(b *blocks.Block) bool {
	return b.Shape() == blocks.ShapeReporter
}
