package synonym

import (
	"fmt"
	"strings"
)

// Synonym is a synonym group. A non-empty Root makes it a one-way mapping
// from Root to Synonyms; otherwise all terms are equivalent.
// Collection is empty for global definitions.
type Synonym struct {
	ID         string   `json:"id" yaml:"id"`
	Root       string   `json:"root,omitempty" yaml:"root,omitempty"`
	Synonyms   []string `json:"synonyms" yaml:"synonyms"`
	Collection string   `json:"-" yaml:"collection,omitempty"`
}

// New validates and creates a Synonym. Blank terms are dropped.
func New(id, root string, terms []string, collection string) (Synonym, error) {
	s := Synonym{
		ID:         strings.TrimSpace(id),
		Root:       strings.TrimSpace(root),
		Collection: collection,
	}
	for _, t := range terms {
		if t = strings.TrimSpace(t); t != "" {
			s.Synonyms = append(s.Synonyms, t)
		}
	}
	if err := s.Validate(); err != nil {
		return Synonym{}, err
	}
	return s, nil
}

// Validate checks the id and the term list.
func (s Synonym) Validate() error {
	if s.ID == "" {
		return fmt.Errorf("synonym id is required")
	}
	if len(s.Synonyms) == 0 {
		return fmt.Errorf("synonym %q: at least one term is required", s.ID)
	}
	return nil
}

// IsOneWay reports whether the group is anchored to a root term.
func (s Synonym) IsOneWay() bool { return s.Root != "" }

// IsGlobal reports whether the definition applies to every collection.
func (s Synonym) IsGlobal() bool { return s.Collection == "" }

// Equal compares id, root and terms in order. Collection is ignored.
func (s Synonym) Equal(o Synonym) bool {
	if s.ID != o.ID || s.Root != o.Root || len(s.Synonyms) != len(o.Synonyms) {
		return false
	}
	for i := range s.Synonyms {
		if s.Synonyms[i] != o.Synonyms[i] {
			return false
		}
	}
	return true
}
