package providers

// PersonTagger detects person names in free text, typically backed by an
// NER model. The dependency is soft: a nil tagger or a tagger error must
// degrade to "no detection", never to a failed turn.
type PersonTagger interface {
	PersonNames(text string) ([]string, error)
}
