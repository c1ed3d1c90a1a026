package srt

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/abadojack/whatlanggo"
	"golang.org/x/text/language"
)

var reTimeLine = regexp.MustCompile(`(\d{2}):(\d{2}):(\d{2})[,.](\d{3})\s*-->\s*(\d{2}):(\d{2}):(\d{2})[,.](\d{3})`)

// ReadFile parses the SRT file at path.
func ReadFile(path string) (*File, error) {
	if !strings.HasSuffix(strings.ToLower(path), ".srt") {
		return nil, fmt.Errorf("only SRT subtitle files are supported: %s", path)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open subtitle file: %w", err)
	}
	defer f.Close()

	return Parse(f)
}

// Parse reads SRT entries with a small index/time/text state machine.
// Malformed entries are skipped rather than aborting the file.
func Parse(r io.Reader) (*File, error) {
	var blocks []Block

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	current := Block{}
	state := "index"
	var textLines []string

	for scanner.Scan() {
		line := strings.TrimSpace(strings.TrimPrefix(scanner.Text(), "\uFEFF"))

		switch state {
		case "index":
			if line == "" {
				continue
			}
			index, err := strconv.Atoi(line)
			if err != nil {
				continue // skip stray non-index lines
			}
			current.Index = index
			state = "time"

		case "time":
			if line == "" {
				continue
			}
			start, end, err := parseTimeLine(line)
			if err != nil {
				// broken timing; drop the entry and hunt for the next index
				state = "index"
				current = Block{}
				continue
			}
			current.TimeRaw = line
			current.StartTime = start
			current.EndTime = end
			state = "text"
			textLines = nil

		case "text":
			if line == "" {
				// An empty entry still owns its index and timing; it must
				// survive to the output untouched.
				current.Text = strings.Join(textLines, "\n")
				blocks = append(blocks, current)
				current = Block{}
				state = "index"
				textLines = nil
			} else {
				textLines = append(textLines, line)
			}
		}
	}

	if state == "text" {
		current.Text = strings.Join(textLines, "\n")
		blocks = append(blocks, current)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read subtitle data: %w", err)
	}

	return &File{
		Blocks:   blocks,
		Language: detectLanguage(blocks),
	}, nil
}

func parseTimeLine(line string) (time.Duration, time.Duration, error) {
	matches := reTimeLine.FindStringSubmatch(line)
	if len(matches) != 9 {
		return 0, 0, fmt.Errorf("invalid time line: %s", line)
	}

	parse := func(h, m, s, ms string) time.Duration {
		hh, _ := strconv.Atoi(h)
		mm, _ := strconv.Atoi(m)
		ss, _ := strconv.Atoi(s)
		mss, _ := strconv.Atoi(ms)
		return time.Duration(hh)*time.Hour +
			time.Duration(mm)*time.Minute +
			time.Duration(ss)*time.Second +
			time.Duration(mss)*time.Millisecond
	}

	return parse(matches[1], matches[2], matches[3], matches[4]),
		parse(matches[5], matches[6], matches[7], matches[8]),
		nil
}

// detectLanguage votes across block texts.
func detectLanguage(blocks []Block) language.Tag {
	if len(blocks) == 0 {
		return language.Und
	}

	votes := make(map[string]int)
	for _, b := range blocks {
		lang := whatlanggo.DetectLang(b.Text).Iso6391()
		votes[lang]++
	}

	var topLang string
	var topCount int
	for lang, count := range votes {
		if count > topCount {
			topLang = lang
			topCount = count
		}
	}

	return language.Make(topLang)
}
