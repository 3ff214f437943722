// Package command implements the slash-command grammar of the chat surface:
// a single prefix character, a bare identifier, and an optional free-form
// argument string that may span multiple lines.
package command

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/chatrelay/chatrelay/internal/domain"
)

// Prefix marks a message as a command attempt.
const Prefix = '/'

var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*`)

// Command is one parsed slash command.
type Command struct {
	Name string
	Args string
}

// Parse inspects text for a slash command. It returns (nil, nil) when the
// text is not command-shaped at all, the parsed command when it is, and a
// parse error when the text starts with the prefix but the token after it is
// malformed. Malformed command-looking text never falls through to normal
// message handling.
func Parse(text string) (*Command, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" || rune(trimmed[0]) != Prefix {
		return nil, nil
	}

	body := trimmed[1:]
	name := identifierPattern.FindString(body)
	if name == "" {
		return nil, domain.E(domain.KindParse, "malformed command, expected /name [arguments]")
	}

	rest := body[len(name):]
	if rest != "" && !unicode.IsSpace(rune(rest[0])) {
		return nil, domain.E(domain.KindParse, "malformed command, expected /name [arguments]")
	}

	return &Command{Name: name, Args: strings.TrimSpace(rest)}, nil
}
