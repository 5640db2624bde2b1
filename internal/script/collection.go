package script

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

var (
	// ErrNotFound is returned when an id does not resolve to a script.
	ErrNotFound = errors.New("script not found")

	// ErrIDExhausted is returned when the generator keeps producing ids that
	// are already taken.
	ErrIDExhausted = errors.New("could not allocate a unique script id")

	// ErrDuplicateID is returned by Replace when two scripts share an id.
	ErrDuplicateID = errors.New("duplicate script id")
)

// maxIDAttempts bounds regeneration after an id collision.
const maxIDAttempts = 8

// Collection is the ordered list of scripts. Newly created scripts go to the
// front; updates keep their position. Ids are unique.
//
// Collection is not safe for concurrent use; the runner serializes access.
type Collection struct {
	scripts []Script
	ids     IDGenerator
}

// NewCollection returns an empty collection allocating ids from ids.
func NewCollection(ids IDGenerator) *Collection {
	if ids == nil {
		ids = UUIDv7Generator{}
	}
	return &Collection{ids: ids}
}

// Create inserts a new script at position 0 and returns it.
func (c *Collection) Create(title, code string, opts Options) (Script, error) {
	id, err := c.allocateID()
	if err != nil {
		return Script{}, err
	}

	s := Script{ID: id, Title: title, Code: code, Options: opts}
	c.scripts = slices.Insert(c.scripts, 0, s)
	return s, nil
}

func (c *Collection) allocateID() (string, error) {
	return allocate(c.ids, func(id string) bool { return c.indexOf(id) >= 0 })
}

// Update replaces the fields of an existing script in place.
func (c *Collection) Update(id, title, code string, opts Options) (Script, error) {
	i := c.indexOf(id)
	if i < 0 {
		return Script{}, fmt.Errorf("update %q: %w", id, ErrNotFound)
	}

	c.scripts[i] = Script{ID: id, Title: title, Code: code, Options: opts}
	return c.scripts[i], nil
}

// Delete removes a script. Deleting an absent id is an error, not a no-op.
func (c *Collection) Delete(id string) error {
	i := c.indexOf(id)
	if i < 0 {
		return fmt.Errorf("delete %q: %w", id, ErrNotFound)
	}

	c.scripts = slices.Delete(c.scripts, i, i+1)
	return nil
}

// Find returns the script with id, if any.
func (c *Collection) Find(id string) (Script, bool) {
	i := c.indexOf(id)
	if i < 0 {
		return Script{}, false
	}
	return c.scripts[i], true
}

// Search returns the scripts whose title contains every whitespace-separated
// term of query, ignoring case. A blank query returns the whole collection.
// Order is preserved.
func (c *Collection) Search(query string) []Script {
	terms := strings.Fields(query)
	if len(terms) == 0 {
		return c.All()
	}

	for i, term := range terms {
		terms[i] = fold(term)
	}

	matches := []Script{}
	for _, s := range c.scripts {
		if matchesAll(fold(s.Title), terms) {
			matches = append(matches, s)
		}
	}
	return matches
}

func matchesAll(title string, terms []string) bool {
	for _, term := range terms {
		if !strings.Contains(title, term) {
			return false
		}
	}
	return true
}

// fold normalizes s for case-insensitive substring matching.
// A Caser carries state, so one is created per call.
func fold(s string) string {
	return cases.Fold().String(norm.NFC.String(s))
}

// All returns a copy of the scripts in collection order.
func (c *Collection) All() []Script {
	return append(make([]Script, 0, len(c.scripts)), c.scripts...)
}

// Len returns the number of scripts.
func (c *Collection) Len() int {
	return len(c.scripts)
}

// Replace swaps the whole collection for scripts, keeping their order.
// Scripts with an empty id get a fresh one. The collection is left untouched
// if two scripts share an id.
func (c *Collection) Replace(scripts []Script) error {
	seen := make(map[string]struct{}, len(scripts))
	for _, s := range scripts {
		if s.ID == "" {
			continue
		}
		if _, dup := seen[s.ID]; dup {
			return fmt.Errorf("replace: %w: %q", ErrDuplicateID, s.ID)
		}
		seen[s.ID] = struct{}{}
	}

	next := slices.Clone(scripts)
	for i := range next {
		if next[i].ID != "" {
			continue
		}
		id, err := allocate(c.ids, func(id string) bool {
			_, taken := seen[id]
			return taken
		})
		if err != nil {
			return err
		}
		next[i].ID = id
		seen[id] = struct{}{}
	}

	c.scripts = next
	return nil
}

// allocate draws ids until one is not taken. A collision is detected and
// regenerated, never overwritten.
func allocate(ids IDGenerator, taken func(string) bool) (string, error) {
	for attempt := 0; attempt < maxIDAttempts; attempt++ {
		id := ids.NewID()
		if id == "" || taken(id) {
			continue
		}
		return id, nil
	}
	return "", fmt.Errorf("%w after %d attempts", ErrIDExhausted, maxIDAttempts)
}

func (c *Collection) indexOf(id string) int {
	return slices.IndexFunc(c.scripts, func(s Script) bool { return s.ID == id })
}
