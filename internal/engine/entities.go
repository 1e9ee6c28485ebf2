package engine

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"finquery/internal/core"
)

// Candidate confidence scores. Exact vocabulary hits outrank free-text
// heuristics, which survive only so the dispatcher can name the unknown
// value in its clarification.
const (
	ScoreVocabulary = 2
	ScoreHeuristic  = 1
)

type (
	// Match is one candidate entity value with its confidence. Known is
	// true when the value exists in the dataset vocabulary.
	Match struct {
		Value string
		Score int
		Known bool
	}

	// Entities is everything extractable from a question against the
	// current dataset vocabulary. Empty slots are valid outcomes; the
	// intent resolver decides what they mean.
	Entities struct {
		Month      string
		Categories []Match
		Merchants  []Match
		Sources    []Match
	}
)

var (
	monthKeyPattern = regexp.MustCompile(`\b(\d{4})-(\d{2})\b`)
	monthNames      = map[string]int{
		"january": 1, "february": 2, "march": 3, "april": 4, "may": 5, "june": 6,
		"july": 7, "august": 8, "september": 9, "october": 10, "november": 11, "december": 12,
		"jan": 1, "feb": 2, "mar": 3, "apr": 4, "jun": 6,
		"jul": 7, "aug": 8, "sep": 9, "oct": 10, "nov": 11, "dec": 12,
	}
	monthNamePattern = regexp.MustCompile(`(?i)\b(jan(?:uary)?|feb(?:ruary)?|mar(?:ch)?|apr(?:il)?|may|jun(?:e)?|jul(?:y)?|aug(?:ust)?|sep(?:tember)?|oct(?:ober)?|nov(?:ember)?|dec(?:ember)?)\s+(\d{4})\b`)

	quotedPattern   = regexp.MustCompile(`["']([^"']+)["']`)
	afterAtPattern  = regexp.MustCompile(`(?i)\b(?:at|on)\s+`)
	boundaryPattern = regexp.MustCompile(`(?i)\b(?:in|for|during|this|last)\b|\d{4}-\d{2}`)
	punctPattern    = regexp.MustCompile(`[^\w\s']`)
	spacesPattern   = regexp.MustCompile(`\s+`)
)

// ResolveEntities scans a question against the dataset vocabulary. It
// never fails: absent slots are simply empty.
func ResolveEntities(question string, vocab core.Vocabulary) Entities {
	e := Entities{
		Month:      extractMonth(question),
		Categories: matchVocabulary(question, vocab.Categories),
		Sources:    matchVocabulary(question, vocab.Sources),
		Merchants:  matchVocabulary(question, vocab.Merchants),
	}

	// Free-text merchant heuristic, kept only when the vocabulary scan
	// found nothing and the phrase isn't a known category or source.
	if len(e.Merchants) == 0 {
		if m := extractMerchantPhrase(question); m != "" &&
			!containsFold(vocab.Categories, m) && !containsFold(vocab.Sources, m) {
			e.Merchants = append(e.Merchants, Match{Value: m, Score: ScoreHeuristic, Known: false})
		}
	}

	return e
}

// extractMonth finds a month as "YYYY-MM" or a natural "June 2025"
// phrase. Returns "" when nothing parseable is present.
func extractMonth(question string) string {
	if m := monthKeyPattern.FindStringSubmatch(question); m != nil {
		candidate := m[0]
		if core.ValidateMonth(candidate) == nil {
			return candidate
		}
	}

	if m := monthNamePattern.FindStringSubmatch(question); m != nil {
		num, ok := monthNames[strings.ToLower(m[1])]
		if ok {
			return fmt.Sprintf("%s-%02d", m[2], num)
		}
	}

	return ""
}

// matchVocabulary finds vocabulary entries appearing in the question as
// whole words, case-insensitively. Results are sorted by score then
// value so resolution stays deterministic.
func matchVocabulary(question string, vocab []string) []Match {
	var matches []Match
	for _, entry := range vocab {
		if entry == "" {
			continue
		}
		pattern := `(?i)\b` + regexp.QuoteMeta(entry) + `\b`
		re, err := regexp.Compile(pattern)
		if err != nil {
			continue
		}
		if re.MatchString(question) {
			matches = append(matches, Match{Value: entry, Score: ScoreVocabulary, Known: true})
		}
	}
	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Score != matches[j].Score {
			return matches[i].Score > matches[j].Score
		}
		return matches[i].Value < matches[j].Value
	})
	return matches
}

// extractMerchantPhrase pulls a merchant-looking phrase out of free
// text: a quoted name, or the words after "at"/"on" up to a boundary
// token or month key.
func extractMerchantPhrase(question string) string {
	var phrase string

	if m := quotedPattern.FindStringSubmatch(question); m != nil {
		phrase = m[1]
	} else if loc := afterAtPattern.FindStringIndex(question); loc != nil {
		rest := question[loc[1]:]
		if b := boundaryPattern.FindStringIndex(rest); b != nil {
			phrase = rest[:b[0]]
		} else {
			phrase = rest
		}
	}

	phrase = punctPattern.ReplaceAllString(phrase, "")
	phrase = spacesPattern.ReplaceAllString(phrase, " ")
	return strings.TrimSpace(phrase)
}

func containsFold(values []string, target string) bool {
	for _, v := range values {
		if strings.EqualFold(v, target) {
			return true
		}
	}
	return false
}

// Best returns the highest-confidence candidate of a slot.
func best(matches []Match) (Match, bool) {
	if len(matches) == 0 {
		return Match{}, false
	}
	return matches[0], true
}

func (e Entities) BestCategory() (Match, bool) { return best(e.Categories) }
func (e Entities) BestMerchant() (Match, bool) { return best(e.Merchants) }
func (e Entities) BestSource() (Match, bool)   { return best(e.Sources) }
