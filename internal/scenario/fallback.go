package scenario

const fallbackNarrative = `YEAR 1:
Wins:
You gain business exposure and networking growth.
Struggles:
You miss deep technical immersion.

YEAR 3:
Wins:
Leadership visibility increases.
Struggles:
Stress and pressure rise.

YEAR 5:
Wins:
Financial stability improves.
Struggles:
You question your creative fulfillment.

YEAR 10:
Wins:
You hold strategic authority.
Struggles:
You wonder about alternate technical mastery.

ENDING:
No path is perfect. Every gain carries cost.

WHAT THEY WOULD HAVE LOST FROM THEIR CURRENT LIFE:
- Technical depth
- Engineering camaraderie
- Daily problem-solving satisfaction

GRASS IS GREENER SCORE:
60 - Attractive, but emotionally complex.
`

// FallbackNarrative is served in place of a model answer when the provider path fails
// and the fallback policy is active.
func FallbackNarrative() string {
	return fallbackNarrative
}
