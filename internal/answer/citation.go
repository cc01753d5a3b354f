package answer

import (
	"regexp"
	"sort"
	"strconv"
)

// citationRe matches the literal bracket notation the prompts instruct the
// model to use. The format is part of the contract with downstream
// consumers; keep it in sync with the prompt templates.
var citationRe = regexp.MustCompile(`\[Page (\d+)\]`)

// ExtractCitations returns every page citation in the text in order of
// appearance, duplicates included.
func ExtractCitations(text string) []int {
	matches := citationRe.FindAllStringSubmatch(text, -1)
	if len(matches) == 0 {
		return nil
	}
	pages := make([]int, 0, len(matches))
	for _, m := range matches {
		p, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		pages = append(pages, p)
	}
	return pages
}

// UniquePages deduplicates citations and returns them in ascending order.
func UniquePages(citations []int) []int {
	seen := map[int]struct{}{}
	var out []int
	for _, p := range citations {
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	sort.Ints(out)
	return out
}
