// Package nlp wraps the prose NLP library behind the PersonTagger
// interface, keeping the model a soft dependency of the name extractor.
package nlp

import (
	"github.com/jdkato/prose/v2"
)

// ProseTagger detects person names using prose's NER model
type ProseTagger struct{}

// NewProseTagger creates a prose-backed person tagger
func NewProseTagger() *ProseTagger {
	return &ProseTagger{}
}

// PersonNames returns the PERSON entities found in the text. Errors from
// the underlying model are returned as-is; callers treat them as "no
// detection".
func (t *ProseTagger) PersonNames(text string) ([]string, error) {
	doc, err := prose.NewDocument(text)
	if err != nil {
		return nil, err
	}

	var names []string
	for _, ent := range doc.Entities() {
		if ent.Label == "PERSON" {
			names = append(names, ent.Text)
		}
	}
	return names, nil
}
