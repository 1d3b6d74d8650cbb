// Package naming defines how actors and ports are named.
//
// An actor name is a single element such as "Clock" or "Stage[3]". A port is
// named by its owner followed by a dot and the port's local name, for example
// "Clock.Output".
package naming

import (
	"strconv"
	"strings"
	"unicode"
)

// Named describes an object that has a name.
type Named interface {
	// Name returns the name of the object.
	Name() string
}

// NamedBase is a base implementation of Named.
type NamedBase struct {
	name string
}

// Name returns the name.
func (b *NamedBase) Name() string {
	return b.name
}

// MakeNamedBase creates a new NamedBase
func MakeNamedBase(name string) NamedBase {
	return NamedBase{name: name}
}

// NameMustBeValid panics if the name cannot be used as an actor or port name.
// A valid name is not empty, contains no dots, whitespace or quotes, and any
// square brackets are balanced.
func NameMustBeValid(name string) {
	if name == "" {
		panic("name must not be empty")
	}

	depth := 0

	for _, c := range name {
		switch {
		case c == '.':
			panic("name " + name + " must not contain '.'")
		case c == '"' || c == '\'':
			panic("name " + name + " must not contain quotes")
		case unicode.IsSpace(c):
			panic("name " + name + " must not contain whitespace")
		case c == '[':
			depth++
		case c == ']':
			depth--
			if depth < 0 {
				panic("name " + name + " has unbalanced brackets")
			}
		}
	}

	if depth != 0 {
		panic("name " + name + " has unbalanced brackets")
	}
}

// BuildName builds a name from a parent name and an element name.
func BuildName(parentName, elementName string) string {
	if parentName == "" {
		return elementName
	}

	return parentName + "." + elementName
}

// BuildNameWithIndex builds a name for one element of a series, such as
// "Stage[3]".
func BuildNameWithIndex(parentName, elementName string, index int) string {
	return BuildName(parentName, elementName+"["+strconv.Itoa(index)+"]")
}

// SplitName splits a full port name into the owner name and the local name.
// A name without a dot has an empty owner.
func SplitName(fullName string) (owner, local string) {
	i := strings.LastIndex(fullName, ".")
	if i < 0 {
		return "", fullName
	}

	return fullName[:i], fullName[i+1:]
}
