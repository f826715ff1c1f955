package bubbletea

import (
	"fmt"
	"strings"
)

// CommandKind identifies a slash command.
type CommandKind int

const (
	CommandUnknown CommandKind = iota
	CommandHelp
	CommandProviders
	CommandEnable
	CommandDisable
)

// Command is a parsed slash command.
type Command struct {
	Kind CommandKind
	Arg  string
	Name string // as typed, without the slash
}

// ParseCommand parses input starting with "/". ok is false for ordinary
// chat input.
func ParseCommand(input string) (cmd Command, ok bool) {
	input = strings.TrimSpace(input)
	if !strings.HasPrefix(input, "/") {
		return Command{}, false
	}
	fields := strings.Fields(input[1:])
	if len(fields) == 0 {
		return Command{Kind: CommandUnknown}, true
	}
	cmd.Name = fields[0]
	if len(fields) > 1 {
		cmd.Arg = strings.Join(fields[1:], " ")
	}
	switch strings.ToLower(cmd.Name) {
	case "help", "?":
		cmd.Kind = CommandHelp
	case "providers":
		cmd.Kind = CommandProviders
	case "enable":
		cmd.Kind = CommandEnable
	case "disable":
		cmd.Kind = CommandDisable
	}
	return cmd, true
}

const helpText = `Commands:
  /enable <id>    connect a provider and publish its tools
  /disable <id>   withdraw a provider's tools
  /providers      list configured providers
  /help           show this help
Tab toggles the focused tool block, Shift+Tab moves focus.`

func usage(cmd Command) string {
	return fmt.Sprintf("usage: /%s <provider id>", strings.ToLower(cmd.Name))
}
