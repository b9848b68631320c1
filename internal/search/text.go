package search

import (
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/WebblyCMS/Webbly/internal/models"
)

var (
	nonQueryChars = regexp.MustCompile(`[^a-z0-9\s-]+`)
	whitespace    = regexp.MustCompile(`\s+`)
	htmlTag       = regexp.MustCompile(`<[^>]+>`)
)

// Normalize canonicalizes a string for matching: lowercase, everything
// outside [a-z0-9\s-] removed, whitespace runs collapsed to one space,
// ends trimmed. Idempotent: Normalize(Normalize(s)) == Normalize(s).
func Normalize(s string) string {
	s = strings.ToLower(s)
	s = nonQueryChars.ReplaceAllString(s, "")
	s = whitespace.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// StripTags removes every <...> span from s, keeping the text between
// tags in order. Entities are not decoded and malformed markup is not
// balanced; any <...> span is removed verbatim. That is policy, not a
// bug: content here is trusted CMS output, not hostile input.
func StripTags(s string) string {
	return htmlTag.ReplaceAllString(s, "")
}

// Excerpt is a bounded snippet around a search match.
type Excerpt struct {
	Text      string `json:"text"`
	Truncated bool   `json:"truncated"`
}

// BuildExcerpt locates the first occurrence of query in content and
// returns a window of roughly the requested length around it, with "..."
// markers where text continues beyond the window. Positions are found on
// normalized text but the excerpt itself preserves the original casing
// and spacing of the tag-stripped content. Truncated reports whether
// content continued past the end of the window.
func BuildExcerpt(content, query string, window int) Excerpt {
	if content == "" || query == "" {
		return Excerpt{}
	}
	if window <= 0 {
		window = 200
	}

	stripped := []rune(StripTags(content))

	pos := strings.Index(Normalize(string(stripped)), Normalize(query))
	if pos == -1 {
		// Query not found, return the start of the content.
		if len(stripped) <= window {
			return Excerpt{Text: string(stripped)}
		}
		return Excerpt{Text: string(stripped[:window]) + "...", Truncated: true}
	}
	if pos > len(stripped) {
		pos = len(stripped)
	}

	start := pos - window/2
	if start < 0 {
		start = 0
	}
	end := pos + utf8.RuneCountInString(query) + window/2
	if end > len(stripped) {
		end = len(stripped)
	}

	prefix, suffix := "", ""
	if start > 0 {
		prefix = "..."
	}
	if end < len(stripped) {
		suffix = "..."
	}

	return Excerpt{
		Text:      prefix + string(stripped[start:end]) + suffix,
		Truncated: end < len(stripped),
	}
}

var htmlEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")

// Highlight wraps every occurrence of each query term in text with a
// <mark> span. The text is HTML-escaped first, so no raw markup from the
// input survives. Matching is case-insensitive substring matching with
// no word-boundary logic; terms are applied one after another, so
// overlapping terms can produce nested marks. Known limitation, kept
// deliberately simple.
func Highlight(text, query string) string {
	if text == "" || query == "" {
		return text
	}

	highlighted := htmlEscaper.Replace(text)

	for _, term := range strings.Fields(Normalize(query)) {
		pattern, err := regexp.Compile(`(?i)(` + regexp.QuoteMeta(term) + `)`)
		if err != nil {
			continue
		}
		highlighted = pattern.ReplaceAllString(highlighted, "<mark>$1</mark>")
	}

	return highlighted
}

// ExtractKeywords derives the most frequent significant terms from text.
// Markup is stripped, tokens shorter than minLength or present in
// stopwords are dropped, and the survivors are counted and returned in
// descending frequency. Ties keep first-seen order so the result is
// deterministic. At most maxKeywords terms are returned.
func ExtractKeywords(text string, minLength, maxKeywords int, stopwords map[string]struct{}) []models.Keyword {
	if minLength <= 0 {
		minLength = 4
	}
	if maxKeywords <= 0 {
		maxKeywords = 10
	}

	words := strings.Fields(strings.ToLower(StripTags(text)))

	counts := make(map[string]int)
	var order []string
	for _, word := range words {
		if utf8.RuneCountInString(word) < minLength {
			continue
		}
		if _, stop := stopwords[word]; stop {
			continue
		}
		if counts[word] == 0 {
			order = append(order, word)
		}
		counts[word]++
	}

	sort.SliceStable(order, func(i, j int) bool {
		return counts[order[i]] > counts[order[j]]
	})

	if len(order) > maxKeywords {
		order = order[:maxKeywords]
	}

	keywords := make([]models.Keyword, 0, len(order))
	for _, term := range order {
		keywords = append(keywords, models.Keyword{Term: term, Count: counts[term]})
	}
	return keywords
}
