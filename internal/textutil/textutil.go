// Package textutil holds the small keyword/similarity helpers shared by the
// context store's baseline inference rules, the hybrid dependency inferer,
// and memory's similarity scoring.
package textutil

import "strings"

var stopwords = map[string]bool{
	"the": true, "and": true, "for": true, "with": true, "this": true,
	"that": true, "from": true, "are": true, "was": true, "were": true,
	"been": true, "have": true, "has": true, "had": true, "will": true,
	"would": true, "could": true, "should": true, "may": true, "might": true,
	"can": true, "not": true, "but": true, "all": true, "any": true,
	"how": true, "when": true, "where": true, "what": true, "which": true,
	"who": true, "whom": true, "why": true, "use": true, "using": true,
	"used": true, "get": true, "set": true, "new": true, "make": true,
	"into": true, "over": true, "your": true, "you": true, "our": true,
}

// Keywords extracts the meaningful (length >= 3, non-stopword) lowercase
// words from text.
func Keywords(text string) map[string]bool {
	keywords := make(map[string]bool)
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !((r >= 'a' && r <= 'z') || (r >= '0' && r <= '9'))
	})
	for _, word := range words {
		if len(word) >= 3 && !stopwords[word] {
			keywords[word] = true
		}
	}
	return keywords
}

// SharedCount returns how many keywords two keyword sets have in common.
func SharedCount(a, b map[string]bool) int {
	n := 0
	for k := range a {
		if b[k] {
			n++
		}
	}
	return n
}

// JaccardWords returns the Jaccard similarity of the meaningful-word sets of
// two strings: |intersection| / |union|, 0 when the union is empty.
func JaccardWords(a, b string) float64 {
	wa, wb := Keywords(a), Keywords(b)
	if len(wa) == 0 && len(wb) == 0 {
		return 0
	}
	inter := SharedCount(wa, wb)
	union := len(wa) + len(wb) - inter
	if union == 0 {
		return 0
	}
	return float64(inter) / float64(union)
}

// technicalTerms is the fixed vocabulary memory's similarity rule checks for
// shared-term overlap independent of word-overlap ratio.
var technicalTerms = []string{"api", "database", "frontend", "backend", "test", "auth", "ui"}

// SharesTechnicalTerm reports whether both strings contain at least one
// common word from the fixed technical-term vocabulary.
func SharesTechnicalTerm(a, b string) bool {
	la, lb := strings.ToLower(a), strings.ToLower(b)
	for _, term := range technicalTerms {
		if strings.Contains(la, term) && strings.Contains(lb, term) {
			return true
		}
	}
	return false
}

// Phase classifies a task name into the design(1) < implementation(2) <
// testing(3) < deployment(4) ordering the hybrid inferer's phase rule uses.
// Unknown phases return 2.5.
func Phase(name string) float64 {
	n := strings.ToLower(name)
	switch {
	case containsAny(n, "design", "architect", "plan", "wireframe", "spec"):
		return 1
	case containsAny(n, "implement", "build", "create", "develop", "code", "feature"):
		return 2
	case containsAny(n, "test", "qa", "quality", "verify", "testing"):
		return 3
	case containsAny(n, "deploy", "release", "launch", "production"):
		return 4
	default:
		return 2.5
	}
}

func containsAny(s string, needles ...string) bool {
	for _, n := range needles {
		if strings.Contains(s, n) {
			return true
		}
	}
	return false
}
