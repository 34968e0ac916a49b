package utils

import "strings"

func NewPath(s ...string) Path {
	p := Path{}
	p = append(p, s...)
	return p
}

// Path is the chain of node names from the rendered node down to the one
// being evaluated.
type Path []string

func (p Path) Push(s string) Path {
	return append(p, s)
}

// Pop drops the innermost name.
func (p Path) Pop() Path {
	if len(p) == 0 {
		return p
	}
	return p[:len(p)-1]
}

func (p Path) Depth() int {
	return len(p)
}

func (p Path) Last() (string, bool) {
	if len(p) == 0 {
		return "", false
	}
	return p[len(p)-1], true
}

func (p Path) String() string {
	return strings.Join(p, ".")
}
