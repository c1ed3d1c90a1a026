// Package placeholder protects markup and do-not-translate spans during
// translation by substituting opaque tokens the model is instructed to keep
// intact. Markup tags become [TAGn] and technical spans (code, URLs,
// entities) become [idn]. After translation Decode looks the tokens up and
// reinserts the original spans.
package placeholder

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

var (
	// fenced code blocks: ```...``` (non-greedy, may span lines)
	reFencedCode = regexp.MustCompile("(?s)```.*?```")

	// inline code spans: `...`
	reInlineCode = regexp.MustCompile("`[^`\n]+`")

	// opening, closing and self-closing HTML/XML tags
	reMarkupTag = regexp.MustCompile(`<[^<>]+>`)

	// bare URLs
	reURL = regexp.MustCompile(`https?://[^\s<>"']+`)

	// character entities such as &amp; or &#8217;
	reEntity = regexp.MustCompile(`&#?[a-zA-Z0-9]+;`)

	// any token emitted by Encode
	reToken = regexp.MustCompile(`\[(?:TAG|id)(\d+)\]`)
)

// Encode replaces every markup tag with a [TAGn] token and every
// preserve-verbatim span with an [idn] token. The returned plain text
// contains no markup. Token numbers are assigned monotonically in order of
// extraction and are never reused within the chunk.
func Encode(raw string) (string, map[string]string) {
	tokens := make(map[string]string)
	tagCount := 0
	idCount := 0

	// Token-shaped text the author wrote must keep its meaning: numbers
	// already present in the source are never assigned, so Decode finds no
	// map entry for them and passes them through verbatim.
	used := make(map[string]bool)
	for _, m := range reToken.FindAllString(raw, -1) {
		used[m] = true
	}
	nextToken := func(prefix string, count *int) string {
		for {
			token := fmt.Sprintf("[%s%d]", prefix, *count)
			*count++
			if !used[token] {
				return token
			}
		}
	}

	protectVerbatim := func(match string) string {
		token := nextToken("id", &idCount)
		tokens[token] = match
		return token
	}
	protectTag := func(match string) string {
		token := nextToken("TAG", &tagCount)
		tokens[token] = match
		return token
	}

	// Verbatim spans first: code blocks may contain things that look like
	// tags, and a tag regex must never fire inside an already protected span.
	text := reFencedCode.ReplaceAllStringFunc(raw, protectVerbatim)
	text = reInlineCode.ReplaceAllStringFunc(text, protectVerbatim)
	text = reMarkupTag.ReplaceAllStringFunc(text, protectTag)
	text = reURL.ReplaceAllStringFunc(text, protectVerbatim)
	text = reEntity.ReplaceAllStringFunc(text, protectVerbatim)

	return text, tokens
}

// Decode substitutes tokens in translated back with the originals captured
// by Encode. It returns the final text together with the tokens that did not
// survive translation (a tag mismatch, not a hard failure).
//
// Fallback behaviour: spans whose tokens went missing are appended after the
// decoded text in extraction order so no original content is ever lost. If
// the translation lost every token of a non-empty map, the pre-placeholder
// original is returned instead, guaranteeing structural fidelity over
// translation of that run.
func Decode(translated, original string, tokens map[string]string) (string, []string) {
	if len(tokens) == 0 {
		return translated, nil
	}

	seen := make(map[string]bool, len(tokens))
	decoded := reToken.ReplaceAllStringFunc(translated, func(match string) string {
		span, ok := tokens[match]
		if !ok {
			// Token the model invented; leave it alone.
			return match
		}
		seen[match] = true
		return span
	})

	if len(seen) == len(tokens) {
		return decoded, nil
	}

	missing := make([]string, 0, len(tokens)-len(seen))
	for token := range tokens {
		if !seen[token] {
			missing = append(missing, token)
		}
	}
	sort.Slice(missing, func(i, j int) bool {
		return tokenOrder(missing[i]) < tokenOrder(missing[j])
	})

	if len(seen) == 0 {
		// Nothing survived, the reinsertion points are unknowable.
		return original, missing
	}

	var sb strings.Builder
	sb.WriteString(decoded)
	for _, token := range missing {
		sb.WriteString(" ")
		sb.WriteString(tokens[token])
	}
	return sb.String(), missing
}

// Count reports how many distinct Encode tokens occur in text.
func Count(text string, tokens map[string]string) int {
	seen := make(map[string]bool)
	for _, match := range reToken.FindAllString(text, -1) {
		if _, ok := tokens[match]; ok {
			seen[match] = true
		}
	}
	return len(seen)
}

// InstructionHint returns a prompt sentence telling the model to keep the
// tokens intact.
func InstructionHint() string {
	return "Preserve all [TAGn] and [idn] markers exactly as they appear. Do not translate, reorder or remove them."
}

// tokenOrder gives a stable sort key: tags before ids, then numeric order.
func tokenOrder(token string) int {
	sub := reToken.FindStringSubmatch(token)
	if len(sub) < 2 {
		return 1 << 30
	}
	n, _ := strconv.Atoi(sub[1])
	if strings.HasPrefix(token, "[id") {
		n += 1 << 20
	}
	return n
}
