// Package taxonomy implements the cost-code classification system used to
// organize extracted scope items. A job carries either a caller-supplied
// custom taxonomy or the built-in default set; the taxonomy is immutable
// once attached.
package taxonomy

import (
	"fmt"
	"sort"
	"strings"
)

// SubCode is an optional finer classification under a top-level code.
type SubCode struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

// Code is one top-level cost-code entry with optional sub-codes.
type Code struct {
	Code     string    `json:"code"`
	Name     string    `json:"name"`
	SubCodes []SubCode `json:"subcodes,omitempty"`
}

// Taxonomy is an ordered mapping from cost code to category name.
type Taxonomy struct {
	codes []Code
	index map[string]int
}

// New builds a Taxonomy from the given codes, preserving order.
// Duplicate or empty codes are rejected.
func New(codes []Code) (*Taxonomy, error) {
	if len(codes) == 0 {
		return nil, ErrEmptyTaxonomy
	}

	t := &Taxonomy{
		codes: make([]Code, len(codes)),
		index: make(map[string]int, len(codes)),
	}
	copy(t.codes, codes)

	for i, c := range t.codes {
		code := strings.TrimSpace(c.Code)
		if code == "" {
			return nil, fmt.Errorf("%w: entry %d", ErrInvalidCode, i)
		}
		if _, exists := t.index[code]; exists {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateCode, code)
		}
		t.codes[i].Code = code
		t.index[code] = i
	}

	return t, nil
}

// Default returns the built-in 19-category construction taxonomy.
func Default() *Taxonomy {
	t, err := New(defaultCodes)
	if err != nil {
		// defaultCodes is a package constant set; this cannot fail
		panic(err)
	}
	return t
}

// Codes returns the ordered code entries.
func (t *Taxonomy) Codes() []Code {
	out := make([]Code, len(t.codes))
	copy(out, t.codes)
	return out
}

// Len returns the number of top-level codes.
func (t *Taxonomy) Len() int {
	return len(t.codes)
}

// Resolve returns the category name for a top-level code.
// The second result reports whether the code exists in this taxonomy.
func (t *Taxonomy) Resolve(code string) (string, bool) {
	i, ok := t.index[strings.TrimSpace(code)]
	if !ok {
		return "", false
	}
	return t.codes[i].Name, true
}

// ResolveSub returns the sub-category name for a code/sub-code pair.
func (t *Taxonomy) ResolveSub(code, subCode string) (string, bool) {
	i, ok := t.index[strings.TrimSpace(code)]
	if !ok {
		return "", false
	}
	subCode = strings.TrimSpace(subCode)
	for _, sc := range t.codes[i].SubCodes {
		if sc.Code == subCode {
			return sc.Name, true
		}
	}
	return "", false
}

// FindByName returns the code whose category name matches the given label,
// case-insensitively. Used to link photo annotations to scope categories.
func (t *Taxonomy) FindByName(name string) (Code, bool) {
	name = strings.ToLower(strings.TrimSpace(name))
	for _, c := range t.codes {
		if strings.ToLower(c.Name) == name {
			return c, true
		}
	}
	return Code{}, false
}

// PromptList renders the taxonomy as "- code: name" lines for LLM prompts.
func (t *Taxonomy) PromptList() string {
	var b strings.Builder
	for _, c := range t.codes {
		fmt.Fprintf(&b, "- %s: %s\n", c.Code, c.Name)
	}
	return strings.TrimRight(b.String(), "\n")
}

// SortCodes orders a slice of code strings by their position in the taxonomy.
// Codes not present sort after resolved ones, alphabetically.
func (t *Taxonomy) SortCodes(codes []string) {
	sort.SliceStable(codes, func(a, b int) bool {
		ia, oka := t.index[codes[a]]
		ib, okb := t.index[codes[b]]
		switch {
		case oka && okb:
			return ia < ib
		case oka:
			return true
		case okb:
			return false
		default:
			return codes[a] < codes[b]
		}
	})
}
