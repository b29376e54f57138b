package rollback

import (
	"regexp"
	"strings"
)

var sqlLineRe = regexp.MustCompile(`(?i)^\s*(SELECT|INSERT|UPDATE|DELETE|CREATE|ALTER|DROP|TRUNCATE|BEGIN|COMMIT|ROLLBACK|START|SET|WITH|REPLACE|MERGE|RENAME|IF|DO|SAVEPOINT)\b`)

// ExtractSQL pulls the script out of a generator reply. Fenced blocks win
// over surrounding prose; a reply with no statement at all is malformed.
func ExtractSQL(reply string) (string, error) {
	script := strings.TrimSpace(reply)
	if strings.Contains(script, "```") {
		script = fencedBody(script)
	}
	if script == "" || !containsStatement(script) {
		return "", ErrMalformedResponse
	}
	return script, nil
}

// fencedBody joins the lines inside every ``` fence.
func fencedBody(text string) string {
	var (
		lines   []string
		inFence bool
	)
	for _, line := range strings.Split(text, "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), "```") {
			inFence = !inFence
			continue
		}
		if inFence {
			lines = append(lines, line)
		}
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

func containsStatement(script string) bool {
	for _, line := range strings.Split(script, "\n") {
		if sqlLineRe.MatchString(line) {
			return true
		}
	}
	return false
}
