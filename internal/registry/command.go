package registry

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Command keywords
const (
	CmdRegister   = "register"
	CmdLogin      = "login"
	CmdPostWish   = "post-wish"
	CmdGetWish    = "get-wish"
	CmdLogout     = "logout"
	CmdDisconnect = "disconnect"
)

// maxTokens is command, first argument, rest of line
const maxTokens = 3

// Command is one tokenized request line
type Command struct {
	Name string   // lower-cased keyword
	Args []string // at most two; the last one may contain spaces
}

// Parse splits the line on Unicode whitespace into at most three tokens.
// Fields past the second argument are joined back with single spaces.
// The keyword is lower-cased.
func Parse(line string) Command {
	tokens := strings.Fields(line)
	if len(tokens) == 0 {
		return Command{}
	}
	if len(tokens) > maxTokens {
		tokens = append(tokens[:maxTokens-1], strings.Join(tokens[maxTokens-1:], " "))
	}

	return Command{
		Name: cases.Lower(language.Und).String(tokens[0]),
		Args: tokens[1:],
	}
}

// Arity returns the total token count, keyword included
func (c Command) Arity() int {
	if c.Name == "" {
		return 0
	}
	return 1 + len(c.Args)
}
