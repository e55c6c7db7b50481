package sexp

import (
	"fmt"
	"strconv"

	"github.com/kenchangh/kicad-schematic/pkg/kicad/sexp/kicadsexp"
)

// S-expression navigation helpers

// FindNode searches for a child node with the given key (first symbol).
// Example: FindNode(sexp, "at") finds (at 100 50) in a list.
func FindNode(s kicadsexp.Sexp, key string) (kicadsexp.Sexp, bool) {
	list, ok := s.(*kicadsexp.List)
	if !ok {
		return nil, false
	}

	for _, item := range list.Items() {
		if item == nil {
			continue
		}

		if sym, ok := item.(kicadsexp.Symbol); ok && string(sym) == key {
			return item, true
		}

		if sub, ok := item.(*kicadsexp.List); ok {
			if sym, ok := sub.At(0).(kicadsexp.Symbol); ok && string(sym) == key {
				return item, true
			}
		}
	}

	return nil, false
}

// FindAllNodes finds all direct child lists with the given key
func FindAllNodes(s kicadsexp.Sexp, key string) []*kicadsexp.List {
	var results []*kicadsexp.List

	list, ok := s.(*kicadsexp.List)
	if !ok {
		return results
	}

	for _, item := range list.Items() {
		sub, ok := item.(*kicadsexp.List)
		if !ok {
			continue
		}
		if sym, ok := sub.At(0).(kicadsexp.Symbol); ok && string(sym) == key {
			results = append(results, sub)
		}
	}

	return results
}

// GetString extracts the atom value at the given index in a list.
// Index 0 is the key, 1 is the first value, etc. Both bare symbols and
// quoted strings qualify.
func GetString(s kicadsexp.Sexp, index int) (string, error) {
	list, ok := s.(*kicadsexp.List)
	if !ok {
		return "", fmt.Errorf("expected list, got leaf")
	}

	if index < 0 || index >= list.Len() {
		return "", fmt.Errorf("index %d out of bounds (length %d)", index, list.Len())
	}

	switch v := list.At(index).(type) {
	case kicadsexp.Symbol:
		return string(v), nil
	case kicadsexp.Str:
		return string(v), nil
	default:
		return "", fmt.Errorf("expected atom at index %d, got %T", index, list.At(index))
	}
}

// GetQuotedString extracts a string value at the given index, accepting
// either a quoted string or a bare symbol (older files leave UUIDs and some
// names unquoted).
func GetQuotedString(s kicadsexp.Sexp, index int) (string, error) {
	return GetString(s, index)
}

// GetFloat extracts a float64 value at the given index
func GetFloat(s kicadsexp.Sexp, index int) (float64, error) {
	str, err := GetString(s, index)
	if err != nil {
		return 0, err
	}

	val, err := strconv.ParseFloat(str, 64)
	if err != nil {
		return 0, fmt.Errorf("failed to parse float %q: %w", str, err)
	}

	return val, nil
}

// GetInt extracts an int value at the given index
func GetInt(s kicadsexp.Sexp, index int) (int, error) {
	str, err := GetString(s, index)
	if err != nil {
		return 0, err
	}

	val, err := strconv.Atoi(str)
	if err != nil {
		return 0, fmt.Errorf("failed to parse int %q: %w", str, err)
	}

	return val, nil
}

// HasSymbol checks if a list directly contains a bare symbol
func HasSymbol(s kicadsexp.Sexp, symbol string) bool {
	list, ok := s.(*kicadsexp.List)
	if !ok {
		return false
	}

	for _, item := range list.Items() {
		if sym, ok := item.(kicadsexp.Symbol); ok && string(sym) == symbol {
			return true
		}
	}

	return false
}

// GetNodeName returns the first symbol of a list (the node type/name)
func GetNodeName(s kicadsexp.Sexp) (string, error) {
	if sym, ok := s.(kicadsexp.Symbol); ok {
		return string(sym), nil
	}

	list, ok := s.(*kicadsexp.List)
	if !ok {
		return "", fmt.Errorf("expected symbol or list")
	}

	if sym, ok := list.At(0).(kicadsexp.Symbol); ok {
		return string(sym), nil
	}

	return "", fmt.Errorf("expected symbol at head of list")
}

// GetPosition extracts a PositionAngle from an (at X Y [angle]) node
func GetPosition(s kicadsexp.Sexp) (PositionAngle, error) {
	key, err := GetString(s, 0)
	if err != nil {
		return PositionAngle{}, err
	}
	if key != "at" {
		return PositionAngle{}, fmt.Errorf("expected 'at', got %q", key)
	}

	x, err := GetFloat(s, 1)
	if err != nil {
		return PositionAngle{}, fmt.Errorf("failed to parse X coordinate: %w", err)
	}

	y, err := GetFloat(s, 2)
	if err != nil {
		return PositionAngle{}, fmt.Errorf("failed to parse Y coordinate: %w", err)
	}

	result := PositionAngle{Position: Position{X: x, Y: y}}

	// Optional trailing angle
	if angle, err := GetFloat(s, 3); err == nil {
		result.Angle = Angle(angle)
	}

	return result, nil
}

// GetPositionXY extracts just X,Y coordinates from a (keyword X Y) node.
// Used for (xy ...), (start ...), (end ...) and similar.
func GetPositionXY(s kicadsexp.Sexp) (Position, error) {
	x, err := GetFloat(s, 1)
	if err != nil {
		return Position{}, fmt.Errorf("failed to parse X: %w", err)
	}

	y, err := GetFloat(s, 2)
	if err != nil {
		return Position{}, fmt.Errorf("failed to parse Y: %w", err)
	}

	return Position{X: x, Y: y}, nil
}

// GetUUID extracts a UUID from a (uuid "...") node
func GetUUID(s kicadsexp.Sexp) (UUID, error) {
	key, err := GetString(s, 0)
	if err != nil || key != "uuid" {
		return "", fmt.Errorf("expected 'uuid' node")
	}

	val, err := GetString(s, 1)
	if err != nil {
		return "", err
	}

	return UUID(val), nil
}
