// Package cmdargs parses the argument tail of a chat command against a
// declared schema. It replaces per-handler ad hoc string splitting with one
// shared "--flag value" grammar: a command declares its flags (name, type,
// bounds, default) once, and the parser returns typed values plus the
// remaining positional text.
//
// Example: for "/generate a red fox --size 512 --hd" the handler declares
// size (int, bounded) and hd (bool) and receives Positional "a red fox".
package cmdargs

import (
	"fmt"
	"strconv"
	"strings"
)

// Kind enumerates the supported flag value types.
type Kind int

const (
	String Kind = iota
	Int
	Float
	Bool
)

// Flag declares one option a command accepts.
type Flag struct {
	Name    string  // without the "--" prefix
	Kind    Kind    // value type; Bool flags take no value
	Default any     // used when the flag is absent; nil means zero value
	Min     float64 // numeric lower bound (inclusive); ignored when Min == Max == 0
	Max     float64 // numeric upper bound (inclusive)
}

// Schema is the declared flag set for one command.
type Schema struct {
	Flags []Flag
}

// Args holds parse results: typed flag values plus the positional text
// (every token that was not part of a flag, joined in order).
type Args struct {
	Positional string
	values     map[string]any
}

// String returns the named flag's value.
func (a Args) String(name string) string {
	v, _ := a.values[name].(string)
	return v
}

// Int returns the named flag's value.
func (a Args) Int(name string) int {
	v, _ := a.values[name].(int)
	return v
}

// Float returns the named flag's value.
func (a Args) Float(name string) float64 {
	v, _ := a.values[name].(float64)
	return v
}

// Bool returns the named flag's value.
func (a Args) Bool(name string) bool {
	v, _ := a.values[name].(bool)
	return v
}

// Parse tokenizes input against the schema. Unknown flags, missing values,
// type mismatches, and out-of-bounds numerics are errors with messages
// suitable for echoing back to the user.
func Parse(schema Schema, input string) (Args, error) {
	byName := make(map[string]Flag, len(schema.Flags))
	values := make(map[string]any, len(schema.Flags))
	for _, f := range schema.Flags {
		byName[f.Name] = f
		values[f.Name] = defaultValue(f)
	}

	var positional []string
	tokens := strings.Fields(input)
	for i := 0; i < len(tokens); i++ {
		tok := tokens[i]
		if !strings.HasPrefix(tok, "--") {
			positional = append(positional, tok)
			continue
		}
		name := strings.TrimPrefix(tok, "--")
		f, ok := byName[name]
		if !ok {
			return Args{}, fmt.Errorf("unknown option --%s", name)
		}
		if f.Kind == Bool {
			values[name] = true
			continue
		}
		if i+1 >= len(tokens) {
			return Args{}, fmt.Errorf("option --%s needs a value", name)
		}
		i++
		v, err := convert(f, tokens[i])
		if err != nil {
			return Args{}, err
		}
		values[name] = v
	}

	return Args{Positional: strings.Join(positional, " "), values: values}, nil
}

func defaultValue(f Flag) any {
	if f.Default != nil {
		return f.Default
	}
	switch f.Kind {
	case Int:
		return 0
	case Float:
		return 0.0
	case Bool:
		return false
	default:
		return ""
	}
}

func convert(f Flag, raw string) (any, error) {
	switch f.Kind {
	case Int:
		n, err := strconv.Atoi(raw)
		if err != nil {
			return nil, fmt.Errorf("option --%s expects a number", f.Name)
		}
		if err := checkBounds(f, float64(n)); err != nil {
			return nil, err
		}
		return n, nil
	case Float:
		x, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, fmt.Errorf("option --%s expects a number", f.Name)
		}
		if err := checkBounds(f, x); err != nil {
			return nil, err
		}
		return x, nil
	default:
		return raw, nil
	}
}

func checkBounds(f Flag, v float64) error {
	if f.Min == 0 && f.Max == 0 {
		return nil
	}
	if v < f.Min || v > f.Max {
		return fmt.Errorf("option --%s must be between %g and %g", f.Name, f.Min, f.Max)
	}
	return nil
}
