package blocks

import (
	"fmt"
	"strconv"
)

// ---------------------------------------------------------------------------
// Block shapes
// ---------------------------------------------------------------------------

// Shape governs where a block may appear in a script.
type Shape int

const (
	ShapeStack Shape = iota
	ShapeReporter
	ShapeBoolean
	ShapeHat
	ShapeCap
)

var shapeNames = map[Shape]string{
	ShapeStack:    "stack",
	ShapeReporter: "reporter",
	ShapeBoolean:  "boolean",
	ShapeHat:      "hat",
	ShapeCap:      "cap",
}

func (s Shape) String() string {
	if name, ok := shapeNames[s]; ok {
		return name
	}
	return "Shape(" + strconv.Itoa(int(s)) + ")"
}

// ParseShape converts a shape name from a spec file.
func ParseShape(name string) (Shape, error) {
	for s, n := range shapeNames {
		if n == name {
			return s, nil
		}
	}
	return 0, fmt.Errorf("unknown shape %q", name)
}

// IsExpression reports whether blocks of this shape produce a value.
func (s Shape) IsExpression() bool {
	return s == ShapeReporter || s == ShapeBoolean
}

// ---------------------------------------------------------------------------
// Insert kinds
// ---------------------------------------------------------------------------

// InsertShape is the family of values an insert accepts.
type InsertShape int

const (
	InsertNumber InsertShape = iota
	InsertString
	InsertBoolean
	InsertColor
	InsertNumberMenu
	InsertReadonlyMenu
	InsertInline
	InsertStack
)

var insertShapeNames = [...]string{
	InsertNumber:       "number",
	InsertString:       "string",
	InsertBoolean:      "boolean",
	InsertColor:        "color",
	InsertNumberMenu:   "number-menu",
	InsertReadonlyMenu: "readonly-menu",
	InsertInline:       "inline",
	InsertStack:        "stack",
}

func (s InsertShape) String() string {
	if int(s) >= 0 && int(s) < len(insertShapeNames) {
		return insertShapeNames[s]
	}
	return "InsertShape(" + strconv.Itoa(int(s)) + ")"
}

// InsertKind identifies what an insert stands for. The kind determines the
// insert shape and the menu options offered for it.
type InsertKind int

const (
	KindNumber InsertKind = iota
	KindString
	KindBoolean
	KindColor
	KindDirection
	KindListIndex
	KindListDeleteIndex
	KindSprite
	KindBroadcast
	KindAttribute
	KindEffect
	KindMathFunction
	KindKey
	KindDrum
	KindInstrument
	KindNote
	KindSensor
	KindBooleanSensor
	KindMotorDirection
	KindVariable
	KindList
	KindCostume
	KindSound
	KindInlineVariable
	KindInlineList
	KindStack
)

type kindInfo struct {
	char  byte
	name  string
	shape InsertShape
}

var kinds = map[InsertKind]kindInfo{
	KindNumber:          {'n', "number", InsertNumber},
	KindString:          {'s', "string", InsertString},
	KindBoolean:         {'b', "boolean", InsertBoolean},
	KindColor:           {'c', "color", InsertColor},
	KindDirection:       {'d', "direction", InsertNumberMenu},
	KindListIndex:       {'i', "list-index", InsertNumberMenu},
	KindListDeleteIndex: {'y', "list-delete-index", InsertNumberMenu},
	KindSprite:          {'m', "sprite", InsertReadonlyMenu},
	KindBroadcast:       {'e', "broadcast", InsertReadonlyMenu},
	KindAttribute:       {'a', "attribute", InsertReadonlyMenu},
	KindEffect:          {'g', "effect-name", InsertReadonlyMenu},
	KindMathFunction:    {'f', "math-function", InsertReadonlyMenu},
	KindKey:             {'k', "key", InsertReadonlyMenu},
	KindDrum:            {'D', "drum", InsertNumberMenu},
	KindInstrument:      {'I', "instrument", InsertNumberMenu},
	KindNote:            {'N', "note", InsertNumberMenu},
	KindSensor:          {'H', "sensor-name", InsertReadonlyMenu},
	KindBooleanSensor:   {'h', "boolean-sensor-name", InsertReadonlyMenu},
	KindMotorDirection:  {'W', "motor-direction", InsertReadonlyMenu},
	KindVariable:        {'v', "variable", InsertReadonlyMenu},
	KindList:            {'L', "list", InsertReadonlyMenu},
	KindCostume:         {'l', "costume", InsertReadonlyMenu},
	KindSound:           {'S', "sound", InsertReadonlyMenu},
	KindInlineVariable:  {'V', "inline-variable", InsertInline},
	KindInlineList:      {'K', "inline-list", InsertInline},
	KindStack:           {0, "stack", InsertStack},
}

var kindByChar = func() map[byte]InsertKind {
	m := make(map[byte]InsertKind, len(kinds)+1)
	for k, info := range kinds {
		if info.char != 0 {
			m[info.char] = k
		}
	}
	// %C is the color picker that samples the screen; it takes the same
	// values as %c.
	m['C'] = KindColor
	return m
}()

// KindForChar returns the insert kind for a placeholder character.
func KindForChar(c byte) (InsertKind, bool) {
	k, ok := kindByChar[c]
	return k, ok
}

func (k InsertKind) String() string {
	if info, ok := kinds[k]; ok {
		return info.name
	}
	return "InsertKind(" + strconv.Itoa(int(k)) + ")"
}

// Shape returns the family of values the kind accepts.
func (k InsertKind) Shape() InsertShape {
	return kinds[k].shape
}

// Char returns the placeholder character for k, or 0 for stack mouths.
func (k InsertKind) Char() byte {
	return kinds[k].char
}

// IsMenu reports whether the insert is a dropdown of either flavour.
func (k InsertKind) IsMenu() bool {
	s := k.Shape()
	return s == InsertNumberMenu || s == InsertReadonlyMenu
}
