package service

import (
	"regexp"
	"strings"

	"github.com/Payphone-Digital/sprintdesk/internal/constants"
)

var mentionRe = regexp.MustCompile(constants.MentionPattern)

// ExtractMentions returns the lowercased, deduplicated emails written as
// "@user@example.com" in body, in order of first appearance. Code spans and
// quotes are not treated specially.
func ExtractMentions(body string) []string {
	matches := mentionRe.FindAllStringSubmatch(body, -1)
	if len(matches) == 0 {
		return nil
	}

	seen := make(map[string]struct{}, len(matches))
	emails := make([]string, 0, len(matches))
	for _, m := range matches {
		email := strings.ToLower(m[1])
		if _, ok := seen[email]; ok {
			continue
		}
		seen[email] = struct{}{}
		emails = append(emails, email)
	}
	return emails
}
