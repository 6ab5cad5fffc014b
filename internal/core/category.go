package core

import (
	"errors"
	"fmt"
	"strings"

	"github.com/agnivade/levenshtein"
)

var ErrCategoryNotFound = errors.New("category not found")

// maxSuggestionDistance bounds how far a typo may be from a real name before
// no suggestion is offered.
const maxSuggestionDistance = 3

// CategoryNotFoundError carries the closest existing name, if any.
type CategoryNotFoundError struct {
	Name       string
	Suggestion string
}

func (e *CategoryNotFoundError) Error() string {
	if e.Suggestion != "" {
		return fmt.Sprintf("category %q not found (did you mean %q?)", e.Name, e.Suggestion)
	}
	return fmt.Sprintf("category %q not found", e.Name)
}

func (e *CategoryNotFoundError) Unwrap() error { return ErrCategoryNotFound }

// FindCategory resolves ref against user categories, first by ID, then by
// exact name (names are unique per user and case-sensitive as stored), then
// case-insensitively when that match is unambiguous.
func FindCategory(cats []Category, ref string) (Category, error) {
	ref = strings.TrimSpace(ref)
	user := UserCategories(cats)
	for _, c := range user {
		if c.ID == ref || c.Name == ref {
			return c, nil
		}
	}

	var folded []Category
	for _, c := range user {
		if strings.EqualFold(c.Name, ref) {
			folded = append(folded, c)
		}
	}
	if len(folded) == 1 {
		return folded[0], nil
	}

	return Category{}, &CategoryNotFoundError{Name: ref, Suggestion: suggestName(user, ref)}
}

func suggestName(cats []Category, ref string) string {
	best, bestDist := "", maxSuggestionDistance+1
	target := strings.ToLower(ref)
	for _, c := range cats {
		d := levenshtein.ComputeDistance(target, strings.ToLower(c.Name))
		if d < bestDist {
			best, bestDist = c.Name, d
		}
	}
	return best
}
