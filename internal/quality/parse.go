package quality

import (
	"regexp"
	"strconv"
	"strings"
)

// defaultScore is substituted for any rubric line the model omitted or
// mangled. Parsing degrades field by field instead of failing the analysis.
const defaultScore = 70

var (
	methodologyRe = regexp.MustCompile(`Methodology Rigor:\s*(\d+)`)
	dataRe        = regexp.MustCompile(`Data Quality:\s*(\d+)`)
	citationRe    = regexp.MustCompile(`Citation Quality:\s*(\d+)`)
	clarityRe     = regexp.MustCompile(`Clarity:\s*(\d+)`)
	assessmentRe  = regexp.MustCompile(`(?s)Overall Assessment:\s*(.+?)(?:\n\n|$)`)
)

// rubric is the typed outcome of parsing one rubric response. Defaulted
// records which fields fell back so callers can tell a parsed 70 from a
// defaulted one.
type rubric struct {
	Methodology int
	Data        int
	Citation    int
	Clarity     int
	Assessment  string
	Defaulted   []string
}

func parseRubric(text string) rubric {
	var r rubric
	r.Methodology = parseScore(methodologyRe, text, "methodology", &r.Defaulted)
	r.Data = parseScore(dataRe, text, "data", &r.Defaulted)
	r.Citation = parseScore(citationRe, text, "citation", &r.Defaulted)
	r.Clarity = parseScore(clarityRe, text, "clarity", &r.Defaulted)

	if m := assessmentRe.FindStringSubmatch(text); m != nil {
		r.Assessment = strings.TrimSpace(m[1])
	} else {
		r.Assessment = "Quality analysis completed."
		r.Defaulted = append(r.Defaulted, "assessment")
	}
	return r
}

func parseScore(re *regexp.Regexp, text, field string, defaulted *[]string) int {
	m := re.FindStringSubmatch(text)
	if m == nil {
		*defaulted = append(*defaulted, field)
		return defaultScore
	}
	score, err := strconv.Atoi(m[1])
	if err != nil || score < 0 || score > 100 {
		*defaulted = append(*defaulted, field)
		return defaultScore
	}
	return score
}
