package translate

import "strings"

// CleanCommand strips markdown wrapping from a model answer and keeps only
// the first non-fence line. Later lines are dropped on purpose: callers
// expect exactly one command line.
func CleanCommand(text string) string {
	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, "```") {
		// Drop the opening fence together with its language tag.
		if i := strings.IndexByte(text, '\n'); i >= 0 {
			text = text[i+1:]
		} else {
			text = strings.TrimLeft(text, "`")
		}
	}
	text = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(text), "```"))

	line, _, _ := strings.Cut(text, "\n")
	line = strings.TrimSpace(line)
	if len(line) >= 2 && line[0] == '`' && line[len(line)-1] == '`' {
		line = strings.TrimSpace(strings.Trim(line, "`"))
	}
	return line
}
