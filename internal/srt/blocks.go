package srt

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

const (
	// InlineBreak stands in for a newline inside a single subtitle block so
	// the model sees one logical line per block.
	InlineBreak = "%%inline_break%%"
)

var reBlockMarker = regexp.MustCompile(`%%block_(\d+)%%`)

// blockMarker is built by concatenation: a Printf verb would swallow the
// doubled percent signs the marker grammar requires.
func blockMarker(i int) string {
	return "%%block_" + strconv.Itoa(i) + "%%"
}

// Group is a run of consecutive subtitle blocks packed into one translation
// unit. Start and End index into File.Blocks.
type Group struct {
	Start int
	End   int // exclusive
	Text  string
}

// GroupBlocks packs consecutive blocks into groups of at most maxWords words.
// Each block's text is prefixed with a %%block_N%% marker carrying its global
// position, and intra-block newlines become InlineBreak markers.
func GroupBlocks(blocks []Block, maxWords int) []Group {
	if maxWords <= 0 {
		maxWords = 200
	}

	var groups []Group
	var sb strings.Builder
	start := 0
	words := 0

	flush := func(end int) {
		if end > start {
			groups = append(groups, Group{Start: start, End: end, Text: sb.String()})
		}
		sb.Reset()
		start = end
		words = 0
	}

	for i, block := range blocks {
		blockWords := len(strings.Fields(block.Text))
		if words > 0 && words+blockWords > maxWords {
			flush(i)
		}
		if sb.Len() > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString(blockMarker(i))
		sb.WriteString("\n")
		sb.WriteString(strings.ReplaceAll(block.Text, "\n", " "+InlineBreak+" "))
		words += blockWords
	}
	flush(len(blocks))

	return groups
}

// SplitGroup splits a translated group back into per-block texts keyed by
// global block index. Inline break markers are restored to newlines. An error
// is returned when any expected marker is missing so the caller can fall back
// to the untranslated originals for the whole group.
func SplitGroup(translated string, g Group) (map[int]string, error) {
	matches := reBlockMarker.FindAllStringSubmatchIndex(translated, -1)
	found := make(map[int][2]int, len(matches))
	order := make([]int, 0, len(matches))
	for _, m := range matches {
		n, _ := strconv.Atoi(translated[m[2]:m[3]])
		if _, dup := found[n]; dup {
			return nil, fmt.Errorf("duplicate block marker %d in translated group", n)
		}
		found[n] = [2]int{m[0], m[1]}
		order = append(order, n)
	}

	for i := g.Start; i < g.End; i++ {
		if _, ok := found[i]; !ok {
			return nil, fmt.Errorf("block marker %d missing from translated group", i)
		}
	}

	texts := make(map[int]string, g.End-g.Start)
	for pos, n := range order {
		if n < g.Start || n >= g.End {
			continue
		}
		segStart := found[n][1]
		segEnd := len(translated)
		if pos+1 < len(order) {
			segEnd = found[order[pos+1]][0]
		}
		text := strings.TrimSpace(translated[segStart:segEnd])
		text = strings.ReplaceAll(text, " "+InlineBreak+" ", "\n")
		text = strings.ReplaceAll(text, InlineBreak, "\n")
		text = strings.TrimSpace(text)
		texts[n] = text
	}

	return texts, nil
}
