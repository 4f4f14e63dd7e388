package matching

import (
	"strings"
	"unicode"
)

// Transliterations folded before comparison so "Müller" and "Mueller"
// score as the same name.
var foldTable = map[string]string{
	"ä": "ae", "æ": "ae",
	"ö": "oe", "œ": "oe",
	"ü": "ue",
	"ß": "ss",
	"á": "a", "à": "a", "â": "a", "ã": "a", "å": "a",
	"é": "e", "è": "e", "ê": "e", "ë": "e",
	"í": "i", "ì": "i", "î": "i", "ï": "i",
	"ó": "o", "ò": "o", "ô": "o", "õ": "o",
	"ú": "u", "ù": "u", "û": "u",
	"ñ": "n", "ç": "c", "ý": "y",
}

var nameAffixes = map[string]struct{}{
	"mr": {}, "mrs": {}, "ms": {}, "dr": {}, "prof": {}, "sir": {},
	"jr": {}, "sr": {}, "ii": {}, "iii": {}, "iv": {}, "esq": {},
}

// Normalize canonicalizes a free-text identity field for comparison:
// lowercase, diacritics folded, honorific affixes dropped, punctuation
// removed, whitespace collapsed.
func Normalize(s string) string {
	s = strings.ToLower(s)

	for from, to := range foldTable {
		if strings.Contains(s, from) {
			s = strings.ReplaceAll(s, from, to)
		}
	}

	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsNumber(r) || r == ' ' {
			b.WriteRune(r)
		} else {
			b.WriteRune(' ')
		}
	}

	tokens := strings.Fields(b.String())
	kept := tokens[:0]
	for _, t := range tokens {
		if _, affix := nameAffixes[t]; !affix {
			kept = append(kept, t)
		}
	}

	return strings.Join(kept, " ")
}
