package tui

import (
	"strings"
)

// HighlightJSONLine colors the key of a pretty-printed json line and its brackets
func HighlightJSONLine(line string) string {
	leadingWhitespace := ""
	contentStart := 0
	for i, r := range line {
		if r != ' ' && r != '\t' {
			leadingWhitespace = line[:i]
			contentStart = i
			break
		}
	}

	trimmedLine := strings.TrimRight(line, " \t\r\n")
	trailingWhitespace := line[len(trimmedLine):]
	if contentStart > len(trimmedLine) {
		return line
	}
	content := trimmedLine[contentStart:]

	// "key": value
	if idx := strings.Index(content, "\":"); idx > 0 {
		keyStart := strings.LastIndex(content[:idx], "\"")
		if keyStart >= 0 {
			beforeKey := content[:keyStart]
			keyPart := content[keyStart : idx+2] // includes quotes and colon
			valuePart := content[idx+2:]

			styledContent := styleBrackets(beforeKey) + SyntaxKeyStyle.Render(keyPart) + styleBrackets(valuePart)
			return leadingWhitespace + styledContent + trailingWhitespace
		}
	}

	return leadingWhitespace + styleBrackets(content) + trailingWhitespace
}

// styleBrackets styles { } in pink and [ ] in yellow, everything else is left alone
func styleBrackets(text string) string {
	if text == "" {
		return text
	}

	var result strings.Builder
	for _, r := range text {
		switch r {
		case '{', '}':
			result.WriteString(SyntaxDashStyle.Render(string(r)))
		case '[', ']':
			result.WriteString(SyntaxNumberStyle.Render(string(r)))
		default:
			result.WriteRune(r)
		}
	}
	return result.String()
}

func applySyntaxHighlightingToContent(content string) string {
	lines := strings.Split(content, "\n")
	for i, line := range lines {
		if line != "" {
			lines[i] = HighlightJSONLine(line)
		}
	}
	return strings.Join(lines, "\n")
}
