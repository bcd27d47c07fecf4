package main

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/mnohosten/keyra-db/pkg/client"
)

const (
	version = "0.1.0"
	banner  = `
╔══════════════════════════════════════╗
║         KeyraDB CLI v%s          ║
║  Transactional Key-Value Store      ║
╚══════════════════════════════════════╝

Type 'help' for available commands
Type 'exit' or 'quit' to exit

`
)

var errExit = errors.New("exit")

type CLI struct {
	client         *client.Client
	inTransaction  bool
	scanner        *bufio.Scanner
	commandHistory []string
}

func NewCLI(connStr string) (*CLI, error) {
	c, err := client.ConnectString(connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to connect: %w", err)
	}

	return &CLI{
		client:         c,
		scanner:        bufio.NewScanner(os.Stdin),
		commandHistory: make([]string, 0),
	}, nil
}

func (c *CLI) Close() error {
	return c.client.Close()
}

func (c *CLI) Run() error {
	fmt.Printf(banner, version)

	for {
		// Display prompt
		prompt := "keyra> "
		if c.inTransaction {
			prompt = "keyra(txn)> "
		}
		fmt.Print(prompt)

		// Read input
		if !c.scanner.Scan() {
			break
		}

		line := strings.TrimSpace(c.scanner.Text())
		if line == "" {
			continue
		}

		// Add to history
		c.commandHistory = append(c.commandHistory, line)

		// Execute command
		if err := c.executeCommand(line); err != nil {
			if errors.Is(err, errExit) {
				fmt.Println("Goodbye!")
				return nil
			}
			fmt.Printf("Error: %v\n", err)
		}
	}

	return c.scanner.Err()
}

func (c *CLI) executeCommand(line string) error {
	parts := strings.Fields(line)
	if len(parts) == 0 {
		return nil
	}

	switch strings.ToLower(parts[0]) {
	case "exit", "quit":
		return errExit

	case "help":
		c.printHelp()
		return nil

	case "history":
		for i, cmd := range c.commandHistory {
			fmt.Printf("%4d  %s\n", i+1, cmd)
		}
		return nil

	case "put":
		if len(parts) < 3 {
			return fmt.Errorf("usage: put <key> <value>")
		}
		if err := c.client.Put(parts[1], strings.Join(parts[2:], " ")); err != nil {
			return err
		}
		fmt.Println("Ok")
		return nil

	case "get":
		if len(parts) < 2 {
			return fmt.Errorf("usage: get <key>")
		}
		value, err := c.client.Get(parts[1])
		if err != nil {
			return err
		}
		fmt.Println(value)
		return nil

	case "del":
		if len(parts) < 2 {
			return fmt.Errorf("usage: del <key>")
		}
		if err := c.client.Delete(parts[1]); err != nil {
			return err
		}
		fmt.Println("Ok")
		return nil

	case "start":
		if err := c.client.Start(); err != nil {
			return err
		}
		c.inTransaction = true
		fmt.Println("Transaction started")
		return nil

	case "commit":
		if err := c.client.Commit(); err != nil {
			return err
		}
		c.inTransaction = false
		fmt.Println("Transaction committed")
		return nil

	case "rollback":
		if err := c.client.Rollback(); err != nil {
			return err
		}
		c.inTransaction = false
		fmt.Println("Transaction rolled back")
		return nil

	default:
		return fmt.Errorf("unknown command '%s' (type 'help' for available commands)", parts[0])
	}
}

func (c *CLI) printHelp() {
	fmt.Println(`
Available commands:
  put <key> <value>   Store a value (value may contain spaces)
  get <key>           Retrieve a value
  del <key>           Delete a key
  start               Begin a transaction on this connection
  commit              Apply the transaction's buffered writes
  rollback            Discard the transaction's buffered writes
  history             Show command history
  help                Show this help
  exit, quit          Exit the CLI`)
}

func main() {
	url := flag.String("url", "keyra://localhost:6380", "Server connection string")
	flag.Parse()

	cli, err := NewCLI(*url)
	if err != nil {
		fmt.Fprintf(os.Stderr, "❌ %v\n", err)
		os.Exit(1)
	}
	defer cli.Close()

	if err := cli.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "❌ %v\n", err)
		os.Exit(1)
	}
}
