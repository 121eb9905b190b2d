package assist

import (
	"fmt"
	"strings"
)

// fallbackResponse answers common sysadmin topics when the model is
// unreachable. Responses keep commands fenced so the pipeline still sees
// them.
func fallbackResponse(input string) string {
	lower := strings.ToLower(input)

	if pkg := parseInstallRequest(input); pkg != "" {
		return InstallCommands(pkg)
	}

	if containsAny(lower, "disk", "space", "storage") {
		return "AI unavailable. Here are basic disk space commands:\n\n" +
			"```bash\ndf -h\n```\nShows disk usage in human-readable format.\n\n" +
			"```bash\ndu -sh /*\n```\nShows directory sizes in root."
	}

	if containsAny(lower, "process", "cpu", "memory") {
		return "AI unavailable. Here are process monitoring commands:\n\n" +
			"```bash\ntop\n```\nShows running processes and resource usage.\n\n" +
			"```bash\nps aux | head -20\n```\nLists running processes."
	}

	if containsAny(lower, "network", "connection", "port") {
		return "AI unavailable. Here are network diagnostic commands:\n\n" +
			"```bash\nnetstat -tulpn\n```\nShows listening ports.\n\n" +
			"```bash\nping -c 4 8.8.8.8\n```\nTests internet connectivity."
	}

	return fmt.Sprintf(`AI model is currently unavailable.

You asked: %q

Please try:
1. Using a smaller/faster model
2. Restarting Ollama: 'ollama serve'
3. Checking system resources with 'htop'
4. Reducing prompt complexity

Type your request again when ready.`, input)
}

func containsAny(s string, words ...string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}
