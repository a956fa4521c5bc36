package blocks

import "strconv"

// ---------------------------------------------------------------------------
// Menu options
// ---------------------------------------------------------------------------

var (
	directionOptions = []string{"90", "-90", "0", "180"}
	indexOptions     = []string{"1", "last", "any"}
	deleteOptions    = []string{"1", "last", "all"}
	effectOptions    = []string{"color", "fisheye", "whirl", "pixelate", "mosaic", "brightness", "ghost"}
	mathOptions      = []string{"abs", "sqrt", "sin", "cos", "tan", "asin", "acos", "atan", "ln", "log", "e ^", "10 ^"}
	sensorOptions    = []string{"slider", "light", "sound", "resistance-A", "resistance-B", "resistance-C", "resistance-D"}
	boolSensorOpts   = []string{"button pressed", "A connected", "B connected", "C connected", "D connected"}
	motorOptions     = []string{"this way", "that way", "reverse"}
	attributeOptions = []string{"x position", "y position", "direction", "costume #", "size", "volume"}
	keyOptions       = func() []string {
		out := []string{"space", "up arrow", "down arrow", "right arrow", "left arrow"}
		for c := 'a'; c <= 'z'; c++ {
			out = append(out, string(c))
		}
		for c := '0'; c <= '9'; c++ {
			out = append(out, string(c))
		}
		return out
	}()
)

func numberRange(lo, hi int) []string {
	out := make([]string, 0, hi-lo+1)
	for i := lo; i <= hi; i++ {
		out = append(out, strconv.Itoa(i))
	}
	return out
}

var (
	drumOptions       = numberRange(35, 81)
	instrumentOptions = numberRange(1, 128)
	noteOptions       = numberRange(48, 72)
)

// ClosedOptions reports whether every valid value of k is known without a
// scope. Menus over sprites, variables and other project names are open.
func (k InsertKind) ClosedOptions() bool {
	switch k {
	case KindEffect, KindMathFunction, KindKey, KindSensor, KindBooleanSensor, KindMotorDirection:
		return true
	}
	return false
}

// Options returns the menu entries offered for k. scope may be nil.
func (k InsertKind) Options(scope *Scope) []string {
	if scope == nil {
		scope = &Scope{}
	}
	switch k {
	case KindDirection:
		return directionOptions
	case KindListIndex:
		return indexOptions
	case KindListDeleteIndex:
		return deleteOptions
	case KindSprite:
		return append([]string{"mouse-pointer", "edge"}, scope.Sprites...)
	case KindBroadcast:
		return scope.Broadcasts
	case KindAttribute:
		return append(append([]string{}, attributeOptions...), scope.Variables...)
	case KindEffect:
		return effectOptions
	case KindMathFunction:
		return mathOptions
	case KindKey:
		return keyOptions
	case KindDrum:
		return drumOptions
	case KindInstrument:
		return instrumentOptions
	case KindNote:
		return noteOptions
	case KindSensor:
		return sensorOptions
	case KindBooleanSensor:
		return boolSensorOpts
	case KindMotorDirection:
		return motorOptions
	case KindVariable:
		return scope.Variables
	case KindList:
		return scope.Lists
	case KindCostume:
		return scope.Costumes
	case KindSound:
		return scope.Sounds
	}
	return nil
}

// HasOption reports whether value is one of k's options in scope.
func (k InsertKind) HasOption(value string, scope *Scope) bool {
	for _, o := range k.Options(scope) {
		if o == value {
			return true
		}
	}
	return false
}
