package intelligence

import (
	"regexp"
	"strings"
)

// Fallback values used when the generated output is missing a section. The
// confidence scorer penalizes output that still carries them.
const (
	fallbackTitle   = "Untitled"
	fallbackSummary = "No summary"
)

var fallbackTopics = []string{"General"}

var sentenceBoundary = regexp.MustCompile(`[.!?]\s+[A-Z]`)

// ConfidenceScore is a deterministic heuristic over generated output. It
// only decides whether content is escalated for review; it never blocks
// persistence.
func ConfidenceScore(title, content, summary string, topics []string) float64 {
	score := 0.5

	if len(title) > 10 && len(title) < 100 {
		score += 0.15
		lowered := strings.ToLower(title)
		if !strings.Contains(lowered, "generated") && !strings.Contains(lowered, "untitled") {
			score += 0.05
		}
	}

	if len(content) > 500 {
		score += 0.1
	}
	if len(content) > 1000 {
		score += 0.1
	}
	// 6 lines have 5 separators, so the threshold is on newline count.
	if strings.Count(content, "\n") >= 5 {
		score += 0.1
	}
	if sentenceBoundary.MatchString(content) {
		score += 0.1
	}

	if len(summary) > 20 && len(summary) < 200 {
		score += 0.1
	}
	if summary != fallbackSummary {
		score += 0.1
	}

	if len(topics) > 0 && !isFallbackTopics(topics) {
		score += 0.1
	}

	if score > 1.0 {
		score = 1.0
	}
	if score < 0.0 {
		score = 0.0
	}
	return score
}

func isFallbackTopics(topics []string) bool {
	return len(topics) == 1 && topics[0] == fallbackTopics[0]
}
