// Package scenario holds the text side of a simulation: the instruction sent to the
// model, the canned narrative used when the model is unavailable, and a parser that
// turns a narrative back into its sections.
package scenario

import (
	"fmt"
	"strings"

	"github.com/BerylCAtieno/forked/internal/models"
)

// Section headers shared by the prompt, the fallback narrative and the parser.
const (
	HeaderEnding = "ENDING"
	HeaderLosses = "WHAT THEY WOULD HAVE LOST FROM THEIR CURRENT LIFE"
	HeaderScore  = "GRASS IS GREENER SCORE"
)

// Years are the timeline checkpoints, in order.
var Years = []int{1, 3, 5, 10}

// TestPrompt is the connectivity probe sent by GET /test.
const TestPrompt = "Say Hello in one sentence."

// BuildPrompt renders the simulation instruction for a request. Optional fields that
// were left empty get their defaults first.
func BuildPrompt(req models.GenerationRequest) string {
	req = req.WithDefaults()

	return fmt.Sprintf(`You are a behavioral life simulation engine focused on trade-offs and psychological realism.

User Context:
Age: %s
Profession: %s
Location: %s
Risk Level: %s

Simulate a 10-year alternate life timeline based on this decision:
"%s"

CRITICAL RULE:
For every WIN listed, include at least one STRUGGLE that does NOT exist in their current life.

TONE:
Stay grounded and realistic. No utopian success stories and no catastrophes.
Describe ordinary gains and ordinary costs a real person would notice.

Follow this structure EXACTLY:

%s%s:

%s:
- Bullet points

%s:
Number from 1-100 with short explanation.

No markdown.
No extra commentary.
`,
		req.Age, req.Profession, req.Location, req.Risk, req.Decision,
		yearBlocks(), HeaderEnding, HeaderLosses, HeaderScore)
}

func yearBlocks() string {
	var b strings.Builder
	for _, y := range Years {
		b.WriteString(fmt.Sprintf("YEAR %d:\nWins:\nStruggles:\n\n", y))
	}
	return b.String()
}
