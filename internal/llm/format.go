package llm

import (
	"strings"
)

// sections splits model output on the given headings ("CLASS:", ...).
// Text on the heading line itself counts as section content. Anything
// before the first heading is dropped.
func sections(content string, headings ...string) map[string][]string {
	out := make(map[string][]string, len(headings))
	current := ""

	for _, raw := range strings.Split(strings.ReplaceAll(content, "\r\n", "\n"), "\n") {
		line := strings.TrimSpace(raw)

		matched := false
		for _, h := range headings {
			if strings.HasPrefix(line, h) {
				current = h
				matched = true
				if rest := strings.TrimSpace(line[len(h):]); rest != "" {
					out[current] = append(out[current], rest)
				}
				break
			}
		}
		if matched || current == "" {
			continue
		}
		out[current] = append(out[current], line)
	}
	return out
}

// joinWords collapses a section into one line
func joinWords(lines []string) string {
	var parts []string
	for _, l := range lines {
		if l != "" {
			parts = append(parts, l)
		}
	}
	return strings.Join(parts, " ")
}

// joinLines keeps line structure, trimming blank lines at both ends
func joinLines(lines []string) string {
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

// FormatEmailBody lays out a composed body as greeting, main paragraph,
// thank-you line, and closing lines, each block separated by a blank line.
// Without a thank-you line the last two lines are taken as closing and
// signature. This is a best-effort layout for model output.
func FormatEmailBody(body string) string {
	body = strings.ReplaceAll(body, "\r\n", "\n")
	body = strings.ReplaceAll(body, "\r", "\n")

	var lines []string
	for _, l := range strings.Split(body, "\n") {
		lines = append(lines, strings.TrimRight(l, " \t"))
	}
	for len(lines) > 0 && strings.TrimSpace(lines[0]) == "" {
		lines = lines[1:]
	}
	for len(lines) > 0 && strings.TrimSpace(lines[len(lines)-1]) == "" {
		lines = lines[:len(lines)-1]
	}
	if len(lines) == 0 {
		return ""
	}

	greeting, rest := lines[0], lines[1:]
	if len(rest) == 0 {
		return greeting
	}

	thanksIdx := -1
	for i, l := range rest {
		low := strings.ToLower(l)
		if strings.Contains(low, "thank you") || strings.HasPrefix(strings.TrimSpace(low), "thanks") {
			thanksIdx = i
			break
		}
	}

	var main, closing []string
	thanks := ""
	switch {
	case thanksIdx >= 0:
		main, thanks, closing = rest[:thanksIdx], rest[thanksIdx], rest[thanksIdx+1:]
	case len(rest) >= 3:
		main, closing = rest[:len(rest)-2], rest[len(rest)-2:]
	default:
		main = rest
	}

	out := []string{greeting, ""}
	if para := joinWords(trimAll(main)); para != "" {
		out = append(out, para, "")
	}
	if t := strings.TrimSpace(thanks); t != "" {
		out = append(out, t, "")
	}
	for _, l := range closing {
		if l = strings.TrimSpace(l); l != "" {
			out = append(out, l)
		}
	}

	result := strings.Join(out, "\n")
	for strings.Contains(result, "\n\n\n") {
		result = strings.ReplaceAll(result, "\n\n\n", "\n\n")
	}
	return strings.TrimSpace(result)
}

func trimAll(lines []string) []string {
	out := make([]string, len(lines))
	for i, l := range lines {
		out[i] = strings.TrimSpace(l)
	}
	return out
}
