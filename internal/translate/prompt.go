package translate

import "fmt"

func buildPrompt(query string) string {
	return fmt.Sprintf(`
Convert the following natural language request into a single, appropriate terminal/shell command.
Only respond with the command itself, no explanations or additional text.

Examples:
- "show me all files in current directory" -> "ls -la"
- "what's my current location" -> "pwd"
- "create a new folder called test" -> "mkdir test"
- "show running processes" -> "ps aux"
- "check disk usage" -> "df -h"
- "find all python files" -> "find . -name "*.py""
- "show current date and time" -> "date"
- "show system information" -> "uname -a"
- "list all directories" -> "ls -d */"
- "show file contents of readme.txt" -> "cat readme.txt"

Request: %s

Command:`, query)
}
