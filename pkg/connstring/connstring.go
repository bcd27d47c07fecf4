package connstring

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"
)

var (
	// ErrInvalidConnString is returned when the connection string is invalid
	ErrInvalidConnString = errors.New("invalid connection string")
	// ErrInvalidScheme is returned when the connection string scheme is not supported
	ErrInvalidScheme = errors.New("invalid scheme: must be 'keyra://'")
	// ErrNoHost is returned when no host is specified
	ErrNoHost = errors.New("no host specified in connection string")
)

// DefaultPort is the server's default TCP port.
const DefaultPort = 6380

// ConnString represents a parsed connection string
type ConnString struct {
	// Host is the server hostname or IP address
	Host string
	// Port is the server TCP port
	Port int
	// Options contains connection options
	Options Options
}

// Options contains connection string options
type Options struct {
	// Timeout applies to each request-response round trip
	Timeout time.Duration
	// ConnectTimeout applies to dialing the server
	ConnectTimeout time.Duration
	// AppName identifies the client application in server logs
	AppName string
}

// DefaultOptions returns default connection options
func DefaultOptions() Options {
	return Options{
		Timeout:        30 * time.Second,
		ConnectTimeout: 10 * time.Second,
	}
}

// Parse parses a connection string into a ConnString struct.
// Supported format:
//   - keyra://host:port?options
//
// A bare "host:port" (no scheme) is accepted as a convenience.
func Parse(connStr string) (*ConnString, error) {
	if connStr == "" {
		return nil, fmt.Errorf("%w: empty connection string", ErrInvalidConnString)
	}

	// Allow bare host:port by assuming the keyra scheme
	if !strings.Contains(connStr, "://") {
		connStr = "keyra://" + connStr
	}

	u, err := url.Parse(connStr)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConnString, err)
	}

	if strings.ToLower(u.Scheme) != "keyra" {
		return nil, ErrInvalidScheme
	}

	if u.Host == "" {
		return nil, ErrNoHost
	}

	cs := &ConnString{
		Options: DefaultOptions(),
	}

	host, portStr, hasPort := strings.Cut(u.Host, ":")
	if host == "" {
		return nil, ErrNoHost
	}
	cs.Host = host
	cs.Port = DefaultPort
	if hasPort {
		port, err := strconv.Atoi(portStr)
		if err != nil || port < 1 || port > 65535 {
			return nil, fmt.Errorf("%w: invalid port '%s'", ErrInvalidConnString, portStr)
		}
		cs.Port = port
	}

	if u.RawQuery != "" {
		if err := parseOptions(&cs.Options, u.Query()); err != nil {
			return nil, err
		}
	}

	return cs, nil
}

// Addr returns the host:port address to dial.
func (cs *ConnString) Addr() string {
	return fmt.Sprintf("%s:%d", cs.Host, cs.Port)
}

// parseOptions parses query parameters into Options
func parseOptions(opts *Options, values url.Values) error {
	for key, vals := range values {
		if len(vals) == 0 {
			continue
		}
		val := vals[0] // use first value if multiple provided

		switch strings.ToLower(key) {
		case "timeout", "timeoutms":
			ms, err := strconv.Atoi(val)
			if err != nil {
				return fmt.Errorf("invalid timeout value: %v", err)
			}
			opts.Timeout = time.Duration(ms) * time.Millisecond

		case "connecttimeout", "connecttimeoutms":
			ms, err := strconv.Atoi(val)
			if err != nil {
				return fmt.Errorf("invalid connectTimeout value: %v", err)
			}
			opts.ConnectTimeout = time.Duration(ms) * time.Millisecond

		case "appname":
			opts.AppName = val

		default:
			return fmt.Errorf("%w: unknown option '%s'", ErrInvalidConnString, key)
		}
	}
	return nil
}
