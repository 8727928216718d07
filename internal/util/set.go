package util

import (
	"fmt"
	"sort"
	"strings"
)

// KeySet is a map[E comparable]bool with set operations added.
type KeySet[E comparable] map[E]bool

// NewKeySet returns a KeySet holding the keys of every map in of.
func NewKeySet[E comparable](of ...map[E]bool) KeySet[E] {
	s := KeySet[E]{}
	for _, m := range of {
		for k := range m {
			s.Add(k)
		}
	}
	return s
}

// KeySetOf returns a KeySet containing every element of sl.
func KeySetOf[E comparable](sl []E) KeySet[E] {
	s := NewKeySet[E]()

	for i := range sl {
		s.Add(sl[i])
	}

	return s
}

func (s KeySet[E]) Has(value E) bool {
	_, has := s[value]
	return has
}

func (s KeySet[E]) Add(value E) {
	s[value] = true
}

func (s KeySet[E]) Remove(value E) {
	delete(s, value)
}

func (s KeySet[E]) Len() int {
	return len(s)
}

func (s KeySet[E]) Empty() bool {
	return s.Len() == 0
}

// AddAll adds every element of s2 to s. It returns whether s grew.
func (s KeySet[E]) AddAll(s2 KeySet[E]) bool {
	before := len(s)
	for element := range s2 {
		s.Add(element)
	}
	return len(s) != before
}

// Elements returns the elements of s as a slice. No particular order is
// guaranteed nor should it be relied on.
func (s KeySet[E]) Elements() []E {
	if s == nil {
		return nil
	}

	sl := make([]E, 0, len(s))

	for item := range s {
		sl = append(sl, item)
	}

	return sl
}

// StringOrdered shows the contents of the set. Items are guaranteed to be
// alphabetized.
func (s KeySet[E]) StringOrdered() string {
	convs := []string{}

	for k := range s {
		convs = append(convs, fmt.Sprintf("%v", k))
	}

	sort.Strings(convs)

	var sb strings.Builder

	sb.WriteRune('{')
	for i := range convs {
		sb.WriteString(convs[i])
		if i+1 < len(convs) {
			sb.WriteRune(',')
			sb.WriteRune(' ')
		}
	}
	sb.WriteRune('}')
	return sb.String()
}

// String is the same as StringOrdered.
func (s KeySet[E]) String() string {
	return s.StringOrdered()
}
