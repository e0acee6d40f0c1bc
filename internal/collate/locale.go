package collate

import (
	"golang.org/x/text/language"

	"github.com/brackendb/jetstore/internal/model"
)

// Resolve picks the Table for a column's declared sort order. The locale
// tag is parsed (but, in this representative implementation, not otherwise
// consulted) to surface a consistent language.Tag to callers that want to
// report it. An empty or unparseable locale yields American English; it is
// not reported as an error.
func Resolve(order model.TextSortOrder) (*Table, language.Tag, error) {
	name := order.Name
	if name == "" {
		name = "GENERAL"
	}
	tag := language.AmericanEnglish
	if order.Locale != "" {
		parsed, err := language.Parse(order.Locale)
		if err == nil {
			tag = parsed
		}
	}
	t, err := LoadBuiltin(name)
	return t, tag, err
}
