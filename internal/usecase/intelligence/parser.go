package intelligence

import "strings"

// Generated is the structured form of one text-generation response.
type Generated struct {
	Title   string
	Summary string
	Topics  []string
	Content string
}

// ParseGenerated decodes the line-prefixed convention the generation prompt
// asks for:
//
//	Title: ...
//	TL;DR: ...
//	Topics: a, b, c
//	Content: ...
//
// Missing sections fall back to placeholder values so a sloppy generation
// still produces a storable article; the confidence scorer penalizes the
// fallbacks.
func ParseGenerated(raw string) *Generated {
	out := &Generated{
		Title:   fallbackTitle,
		Summary: fallbackSummary,
		Topics:  append([]string(nil), fallbackTopics...),
	}

	lines := strings.Split(raw, "\n")
	contentStart := -1
	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(trimmed, "Title:"):
			if v := strings.TrimSpace(strings.TrimPrefix(trimmed, "Title:")); v != "" {
				out.Title = v
			}
		case strings.HasPrefix(trimmed, "TL;DR:"):
			if v := strings.TrimSpace(strings.TrimPrefix(trimmed, "TL;DR:")); v != "" {
				out.Summary = v
			}
		case strings.HasPrefix(trimmed, "Topics:"):
			if topics := splitTopics(strings.TrimPrefix(trimmed, "Topics:")); len(topics) > 0 {
				out.Topics = topics
			}
		case strings.HasPrefix(trimmed, "Content:"):
			rest := strings.TrimSpace(strings.TrimPrefix(trimmed, "Content:"))
			var parts []string
			if rest != "" {
				parts = append(parts, rest)
			}
			if i+1 < len(lines) {
				parts = append(parts, lines[i+1:]...)
			}
			out.Content = strings.TrimSpace(strings.Join(parts, "\n"))
			contentStart = i
		}
		if contentStart >= 0 {
			break
		}
	}

	// Without a Content: marker the whole response is the content.
	if contentStart < 0 {
		out.Content = strings.TrimSpace(raw)
	}
	return out
}

func splitTopics(raw string) []string {
	var topics []string
	for _, topic := range strings.Split(raw, ",") {
		if t := strings.TrimSpace(topic); t != "" {
			topics = append(topics, t)
		}
	}
	return topics
}
