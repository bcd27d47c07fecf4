package client

import (
	"bufio"
	"errors"
	"fmt"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/mnohosten/keyra-db/pkg/connstring"
	"github.com/mnohosten/keyra-db/pkg/protocol"
)

var (
	// ErrKeyNotFound is returned by Get when the key does not exist
	ErrKeyNotFound = errors.New("key not found")

	// ErrTxnActive is returned by Start when a transaction is already open
	ErrTxnActive = errors.New("transaction already active")

	// ErrNoTxn is returned by Commit or Rollback without an open transaction
	ErrNoTxn = errors.New("no active transaction")

	// ErrInvalidArgument is returned when a key or value cannot be sent
	// over the text protocol
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrClosed is returned when operating on a closed client
	ErrClosed = errors.New("client is closed")
)

// Config holds configuration for the client
type Config struct {
	// Host is the server hostname or IP address (default: "localhost")
	Host string
	// Port is the server TCP port (default: 6380)
	Port int
	// Timeout is the per-request timeout (default: 30s)
	Timeout time.Duration
	// ConnectTimeout is the dial timeout (default: 10s)
	ConnectTimeout time.Duration
}

// DefaultConfig returns the default client configuration
func DefaultConfig() *Config {
	return &Config{
		Host:           "localhost",
		Port:           connstring.DefaultPort,
		Timeout:        30 * time.Second,
		ConnectTimeout: 10 * time.Second,
	}
}

// Client is one connection to a KeyraDB server. The server binds a session
// to this connection, so transactions started through the client are scoped
// to it and discarded if the connection drops. A Client is safe for
// concurrent use; requests serialize over the single connection.
type Client struct {
	config *Config

	mu     sync.Mutex
	conn   net.Conn
	reader *bufio.Reader
	closed bool
}

// Connect dials a server with the given configuration.
func Connect(config *Config) (*Client, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if config.Host == "" {
		config.Host = "localhost"
	}
	if config.Port == 0 {
		config.Port = connstring.DefaultPort
	}
	if config.Timeout == 0 {
		config.Timeout = 30 * time.Second
	}
	if config.ConnectTimeout == 0 {
		config.ConnectTimeout = 10 * time.Second
	}

	addr := fmt.Sprintf("%s:%d", config.Host, config.Port)
	conn, err := net.DialTimeout("tcp", addr, config.ConnectTimeout)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", addr, err)
	}

	return &Client{
		config: config,
		conn:   conn,
		reader: bufio.NewReader(conn),
	}, nil
}

// ConnectString dials a server described by a connection string, e.g.
// "keyra://localhost:6380?timeout=5000".
func ConnectString(connStr string) (*Client, error) {
	cs, err := connstring.Parse(connStr)
	if err != nil {
		return nil, err
	}
	return Connect(&Config{
		Host:           cs.Host,
		Port:           cs.Port,
		Timeout:        cs.Options.Timeout,
		ConnectTimeout: cs.Options.ConnectTimeout,
	})
}

// Close closes the connection. The server discards any open transaction.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true
	return c.conn.Close()
}

// Put stores a value under a key. Inside a transaction the write is
// buffered until Commit.
func (c *Client) Put(key, value string) error {
	if err := validateKey(key); err != nil {
		return err
	}
	if value == "" || strings.ContainsAny(value, "\r\n") {
		return fmt.Errorf("%w: value must be non-empty and single-line", ErrInvalidArgument)
	}

	resp, err := c.roundTrip(fmt.Sprintf("PUT %s %s", key, value))
	if err != nil {
		return err
	}
	return responseError(resp)
}

// Get retrieves the value for a key. Returns ErrKeyNotFound when absent.
func (c *Client) Get(key string) (string, error) {
	if err := validateKey(key); err != nil {
		return "", err
	}

	resp, err := c.roundTrip("GET " + key)
	if err != nil {
		return "", err
	}
	if err := responseError(resp); err != nil {
		return "", err
	}
	return resp.Result, nil
}

// Delete removes a key. Deleting an absent key succeeds.
func (c *Client) Delete(key string) error {
	if err := validateKey(key); err != nil {
		return err
	}

	resp, err := c.roundTrip("DEL " + key)
	if err != nil {
		return err
	}
	return responseError(resp)
}

// Start begins a transaction on this connection's session.
func (c *Client) Start() error {
	resp, err := c.roundTrip("START")
	if err != nil {
		return err
	}
	return responseError(resp)
}

// Commit applies the buffered transaction writes atomically.
func (c *Client) Commit() error {
	resp, err := c.roundTrip("COMMIT")
	if err != nil {
		return err
	}
	return responseError(resp)
}

// Rollback discards the buffered transaction writes.
func (c *Client) Rollback() error {
	resp, err := c.roundTrip("ROLLBACK")
	if err != nil {
		return err
	}
	return responseError(resp)
}

// WithTransaction runs fn inside a transaction, committing on success and
// rolling back on error.
func (c *Client) WithTransaction(fn func(c *Client) error) error {
	if err := c.Start(); err != nil {
		return err
	}
	if err := fn(c); err != nil {
		if rollbackErr := c.Rollback(); rollbackErr != nil {
			return fmt.Errorf("transaction error: %w, rollback error: %v", err, rollbackErr)
		}
		return err
	}
	if err := c.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// roundTrip sends one command line and reads back one envelope.
func (c *Client) roundTrip(line string) (protocol.Response, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return protocol.Response{}, ErrClosed
	}

	deadline := time.Now().Add(c.config.Timeout)
	if err := c.conn.SetDeadline(deadline); err != nil {
		return protocol.Response{}, fmt.Errorf("failed to set deadline: %w", err)
	}

	if _, err := fmt.Fprintf(c.conn, "%s\n", line); err != nil {
		return protocol.Response{}, fmt.Errorf("request failed: %w", err)
	}

	raw, err := c.reader.ReadString('\n')
	if err != nil {
		return protocol.Response{}, fmt.Errorf("failed to read response: %w", err)
	}
	resp, err := protocol.DecodeResponse([]byte(raw))
	if err != nil {
		return protocol.Response{}, fmt.Errorf("failed to parse response: %w", err)
	}
	return resp, nil
}

// validateKey rejects keys the whitespace-delimited protocol cannot carry.
func validateKey(key string) error {
	if key == "" || strings.ContainsAny(key, " \t\r\n") {
		return fmt.Errorf("%w: key must be non-empty and contain no whitespace", ErrInvalidArgument)
	}
	return nil
}

// responseError maps an error envelope to a client error.
func responseError(resp protocol.Response) error {
	if resp.IsOk() {
		return nil
	}
	switch {
	case strings.HasSuffix(resp.Mesg, "not found."):
		return fmt.Errorf("%w: %s", ErrKeyNotFound, resp.Mesg)
	case resp.Mesg == "Transaction already active.":
		return ErrTxnActive
	case resp.Mesg == "No active transaction.":
		return ErrNoTxn
	default:
		return fmt.Errorf("server error: %s", resp.Mesg)
	}
}
