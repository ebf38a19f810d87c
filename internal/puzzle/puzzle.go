// Package puzzle computes answers to the shape puzzles issued by the
// challenge service.
//
// Instructions fall into three categories, tried in a fixed order:
//
//  1. size: "largest <type>" / "smallest <type>" -> index of that shape
//  2. find: "... <type>"                         -> index of the first shape of that type
//  3. rotate: "rotate" / "align"                 -> degrees that bring the first shape to 0
//
// The order matters. "find the largest circle" is a size question.
package puzzle

import (
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strings"

	"github.com/qm4/keyfetch/internal/types"
)

// Shape is one figure of a puzzle.
type Shape struct {
	Type        string  `json:"type"`
	Size        float64 `json:"size"`
	Orientation float64 `json:"orientation,omitempty"`
}

// Puzzle is the challenge description returned by the request endpoint.
type Puzzle struct {
	ID          string  `json:"id,omitempty"`
	Instruction string  `json:"instruction"`
	Shapes      []Shape `json:"shapes"`
}

// AnswerKind tells which variant an Answer holds.
type AnswerKind int

const (
	// AnswerIndex is a zero-based index into Puzzle.Shapes.
	AnswerIndex AnswerKind = iota
	// AnswerRotation is a rotation in degrees in [0, 360). Fractional
	// orientations yield fractional rotations.
	AnswerRotation
)

func (k AnswerKind) String() string {
	switch k {
	case AnswerIndex:
		return "index"
	case AnswerRotation:
		return "rotation"
	default:
		return "unknown"
	}
}

// Answer is the solution submitted to the verify endpoint. It encodes as a
// bare JSON number.
type Answer struct {
	Kind  AnswerKind
	Value float64
}

// MarshalJSON implements json.Marshaler.
func (a Answer) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.Value)
}

// Category is one recognised instruction family.
type Category struct {
	Name     string
	Triggers []string
	solve    func(instruction string, shapes []Shape) (Answer, error)
}

func (c Category) matches(instruction string) bool {
	for _, t := range c.Triggers {
		if strings.Contains(instruction, t) {
			return true
		}
	}
	return false
}

// Categories is the dispatch table, in priority order. The first category
// with a trigger contained in the instruction handles it.
var Categories = []Category{
	{Name: "size", Triggers: []string{"largest", "smallest"}, solve: solveSize},
	{Name: "find", Triggers: []string{"find"}, solve: solveFind},
	{Name: "rotate", Triggers: []string{"rotate", "align"}, solve: solveRotate},
}

// Classify returns the category name for instruction, or "" if none applies.
func Classify(instruction string) string {
	instruction = strings.ToLower(instruction)
	for _, c := range Categories {
		if c.matches(instruction) {
			return c.Name
		}
	}
	return ""
}

// Solve returns the answer for p.
func Solve(p Puzzle) (Answer, error) {
	instruction := strings.ToLower(p.Instruction)
	for _, c := range Categories {
		if c.matches(instruction) {
			return c.solve(instruction, p.Shapes)
		}
	}
	return Answer{}, fmt.Errorf("%w: %q", types.ErrUnsupportedInstruction, p.Instruction)
}

var sizePattern = regexp.MustCompile(`(largest|smallest) (\w+)`)

func solveSize(instruction string, shapes []Shape) (Answer, error) {
	m := sizePattern.FindStringSubmatch(instruction)
	if m == nil {
		return Answer{}, fmt.Errorf("%w: cannot parse size comparison %q", types.ErrUnsupportedInstruction, instruction)
	}
	largest := m[1] == "largest"
	target := m[2]

	best := -1
	for i, s := range shapes {
		if !strings.EqualFold(s.Type, target) {
			continue
		}
		// Strict comparison keeps the first shape on ties.
		if best < 0 || (largest && s.Size > shapes[best].Size) || (!largest && s.Size < shapes[best].Size) {
			best = i
		}
	}
	if best < 0 {
		return Answer{}, fmt.Errorf("%w: %s", types.ErrNoMatchingShape, target)
	}
	return Answer{Kind: AnswerIndex, Value: float64(best)}, nil
}

func solveFind(instruction string, shapes []Shape) (Answer, error) {
	var target string
	if words := strings.Fields(instruction); len(words) > 0 {
		target = words[len(words)-1]
	}
	for i, s := range shapes {
		if strings.EqualFold(s.Type, target) {
			return Answer{Kind: AnswerIndex, Value: float64(i)}, nil
		}
	}
	return Answer{}, fmt.Errorf("%w: %s", types.ErrNoMatchingShape, target)
}

func solveRotate(_ string, shapes []Shape) (Answer, error) {
	if len(shapes) == 0 {
		return Answer{}, types.ErrEmptyPuzzle
	}
	deg := math.Mod(360-shapes[0].Orientation, 360)
	if deg < 0 {
		deg += 360
	}
	return Answer{Kind: AnswerRotation, Value: deg}, nil
}
