package protocol

import (
	"errors"
	"fmt"
	"strings"
)

// CommandType identifies one of the wire commands.
type CommandType uint8

const (
	CommandPut CommandType = iota
	CommandGet
	CommandDel
	CommandStart
	CommandCommit
	CommandRollback
)

// Command is one parsed client request.
type Command struct {
	Type  CommandType
	Key   string
	Value string
}

var (
	// ErrEmptyCommand is returned when the input holds no tokens
	ErrEmptyCommand = errors.New("empty command")

	// ErrUnknownCommand is returned when the keyword is not recognized
	ErrUnknownCommand = errors.New("unknown command")

	// ErrMissingArgument is returned when a required argument is absent
	ErrMissingArgument = errors.New("missing argument")
)

// Parse parses one whitespace-delimited command line. The keyword is
// case-insensitive. For PUT, the value is every token after the key joined
// by a single space, so values may contain spaces.
func Parse(input string) (*Command, error) {
	tokens := strings.Fields(input)
	if len(tokens) == 0 {
		return nil, ErrEmptyCommand
	}

	keyword := strings.ToUpper(tokens[0])
	switch keyword {
	case "PUT":
		if len(tokens) < 3 {
			return nil, fmt.Errorf("%w: PUT requires a key and a value", ErrMissingArgument)
		}
		return &Command{
			Type:  CommandPut,
			Key:   tokens[1],
			Value: strings.Join(tokens[2:], " "),
		}, nil

	case "GET":
		if len(tokens) < 2 {
			return nil, fmt.Errorf("%w: GET requires a key", ErrMissingArgument)
		}
		return &Command{Type: CommandGet, Key: tokens[1]}, nil

	case "DEL":
		if len(tokens) < 2 {
			return nil, fmt.Errorf("%w: DEL requires a key", ErrMissingArgument)
		}
		return &Command{Type: CommandDel, Key: tokens[1]}, nil

	case "START":
		return &Command{Type: CommandStart}, nil

	case "COMMIT":
		return &Command{Type: CommandCommit}, nil

	case "ROLLBACK":
		return &Command{Type: CommandRollback}, nil

	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownCommand, keyword)
	}
}
