package scenario

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var (
	ErrNoScore         = errors.New("narrative has no grass is greener score")
	ErrScoreOutOfRange = errors.New("grass is greener score out of range")
)

var (
	yearHeader  = regexp.MustCompile(`(?i)^YEAR\s+(\d+)\s*:?\s*(.*)$`)
	leadingInt  = regexp.MustCompile(`^\D*?(\d+)(?:\s*/\s*100)?(.*)$`)
	bulletStrip = strings.NewReplacer("•", "", "*", "")
)

type YearBlock struct {
	Year      int      `json:"year"`
	Wins      []string `json:"wins"`
	Struggles []string `json:"struggles"`
}

// Narrative is the sectioned form of a simulation answer.
type Narrative struct {
	Years            []YearBlock `json:"years"`
	Ending           string      `json:"ending"`
	Losses           []string    `json:"losses"`
	Score            int         `json:"score"`
	ScoreExplanation string      `json:"score_explanation"`
}

// Complete reports whether every timeline checkpoint and the ending are present.
func (n *Narrative) Complete() bool {
	if len(n.Years) != len(Years) || n.Ending == "" {
		return false
	}
	for i, y := range Years {
		if n.Years[i].Year != y {
			return false
		}
	}
	return true
}

type section int

const (
	sectionNone section = iota
	sectionWins
	sectionStruggles
	sectionEnding
	sectionLosses
	sectionScore
)

// ParseNarrative splits a raw answer into its sections. It is lenient about
// decoration the model may add around headers, but the score must be present and
// within 1-100.
func ParseNarrative(raw string) (*Narrative, error) {
	n := &Narrative{}
	var (
		cur    = sectionNone
		block  *YearBlock
		ending []string
		score  []string
	)

	flushBlock := func() {
		if block != nil {
			n.Years = append(n.Years, *block)
			block = nil
		}
	}

	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		header := strings.Trim(line, "*# ")
		upper := strings.ToUpper(header)

		if m := yearHeader.FindStringSubmatch(header); m != nil {
			flushBlock()
			year, _ := strconv.Atoi(m[1])
			block = &YearBlock{Year: year}
			cur = sectionNone
			continue
		}

		switch {
		case block != nil && isHeader(upper, "WINS"):
			cur = sectionWins
			line = afterColon(header)
		case block != nil && isHeader(upper, "STRUGGLES"):
			cur = sectionStruggles
			line = afterColon(header)
		case isHeader(upper, HeaderEnding):
			flushBlock()
			cur = sectionEnding
			line = afterColon(header)
		case strings.HasPrefix(upper, "WHAT THEY WOULD HAVE LOST"):
			flushBlock()
			cur = sectionLosses
			line = afterColon(header)
		case strings.HasPrefix(upper, HeaderScore):
			flushBlock()
			cur = sectionScore
			line = afterColon(header)
		}
		if line == "" {
			continue
		}

		switch cur {
		case sectionWins:
			block.Wins = append(block.Wins, bulletText(line))
		case sectionStruggles:
			block.Struggles = append(block.Struggles, bulletText(line))
		case sectionEnding:
			ending = append(ending, line)
		case sectionLosses:
			n.Losses = append(n.Losses, bulletText(line))
		case sectionScore:
			score = append(score, line)
		}
	}
	flushBlock()

	n.Ending = strings.Join(ending, " ")

	if len(score) == 0 {
		return n, ErrNoScore
	}
	m := leadingInt.FindStringSubmatch(strings.Join(score, " "))
	if m == nil {
		return n, ErrNoScore
	}
	value, err := strconv.Atoi(m[1])
	if err != nil {
		return n, fmt.Errorf("%w: %s", ErrNoScore, m[1])
	}
	if value < 1 || value > 100 {
		return n, fmt.Errorf("%w: %d", ErrScoreOutOfRange, value)
	}
	n.Score = value
	n.ScoreExplanation = strings.TrimSpace(strings.TrimLeft(strings.TrimSpace(m[2]), "-–—:/"))

	return n, nil
}

func isHeader(upper, name string) bool {
	if !strings.HasPrefix(upper, name) {
		return false
	}
	rest := strings.TrimSpace(upper[len(name):])
	return rest == "" || strings.HasPrefix(rest, ":")
}

func afterColon(s string) string {
	if i := strings.Index(s, ":"); i >= 0 {
		return strings.TrimSpace(s[i+1:])
	}
	return ""
}

func bulletText(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "- ")
	return strings.TrimSpace(bulletStrip.Replace(s))
}
