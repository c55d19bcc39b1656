package modtcp

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"net"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/arloliu/go-hvps/hvps"
	"github.com/arloliu/go-hvps/logger"
)

const (
	// terminator ends every frame in both directions.
	terminator = "\r\n"

	// errorSentinel is the literal payload the supply answers a rejected
	// query with.
	errorSentinel = "10:ERR"
)

// Client is the TCP implementation of hvps.Transport. It is the exclusive
// owner of one socket and its buffered line reader.
//
// The connection is established lazily by Connect and torn down on every
// socket-level failure, so a failed exchange never leaves a half-open
// connection behind for the next one to misuse.
type Client struct {
	cfg    *ConnectionConfig
	logger logger.Logger

	mu     sync.Mutex
	conn   net.Conn
	reader *bufio.Reader

	metrics ExchangeMetrics
}

// ensure Client implements the hvps.Transport interface.
var _ hvps.Transport = (*Client)(nil)

// NewClient creates a disconnected client with the given configuration.
func NewClient(cfg *ConnectionConfig) (*Client, error) {
	if cfg == nil {
		return nil, ErrConnConfigNil
	}

	return &Client{cfg: cfg, logger: cfg.logger}, nil
}

// Target returns the remote endpoint in host:port form.
func (c *Client) Target() string {
	return net.JoinHostPort(c.cfg.host, strconv.Itoa(c.cfg.port))
}

// Metrics returns the exchange metrics of this client.
func (c *Client) Metrics() *ExchangeMetrics {
	return &c.metrics
}

// Connect establishes the TCP connection. It is a no-op when already
// connected. On failure the client stays disconnected and the error wraps
// hvps.ErrConnection.
func (c *Client) Connect() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn != nil {
		return nil
	}

	conn, err := net.DialTimeout("tcp", c.Target(), c.cfg.connectTimeout)
	if err != nil {
		return fmt.Errorf("dial %s: %v: %w", c.Target(), err, hvps.ErrConnection)
	}

	c.conn = conn
	c.reader = bufio.NewReader(conn)
	c.metrics.incConnectCount()
	c.logger.Debug("connected", "target", c.Target())

	return nil
}

// Connected reports whether the client currently holds an established
// connection.
func (c *Client) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.conn != nil
}

// Disconnect closes the connection, best effort. A close failure is
// swallowed and a not-connected condition is only logged. The client is
// always left disconnected.
func (c *Client) Disconnect() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil {
		c.logger.Debug("disconnect requested while not connected", "target", c.Target())

		return
	}

	c.dropConn()
}

// dropConn closes and forgets the socket. Callers must hold c.mu.
func (c *Client) dropConn() {
	if c.conn == nil {
		return
	}

	if err := c.conn.Close(); err != nil {
		c.logger.Debug("close error ignored", "target", c.Target(), "error", err)
	}

	c.conn = nil
	c.reader = nil
	c.metrics.incDisconnectCount()
}

// Execute sends one framed command and reads one terminated response
// line.
//
// Set-style commands (code <= hvps.SetCommandMax) succeed only when the
// supply echoes the exact frame back; the result is then empty. Queries
// return the response payload with the code prefix and terminator
// stripped, after checking for the error sentinel.
//
// Timeouts and empty reads return hvps.ErrTimeout; every socket-level
// failure disconnects before the error is returned.
func (c *Client) Execute(code int, payload string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil {
		return "", hvps.ErrNotConnected
	}

	frame := fmt.Sprintf("%02d:%s%s", code, payload, terminator)

	c.metrics.incCommandSendCount()

	if err := c.conn.SetDeadline(time.Now().Add(c.cfg.readTimeout)); err != nil {
		c.dropConn()

		return "", fmt.Errorf("set deadline: %v: %w", err, hvps.ErrConnection)
	}

	if _, err := c.conn.Write([]byte(frame)); err != nil {
		c.dropConn()

		return "", c.classifySocketError("send", err)
	}

	line, err := c.reader.ReadString('\n')
	if err != nil {
		c.dropConn()

		return "", c.classifySocketError("receive", err)
	}

	if !strings.HasSuffix(line, terminator) {
		c.metrics.incProtocolErrCount()

		return "", fmt.Errorf("response %q lacks terminator: %w", line, hvps.ErrProtocol)
	}

	if code <= hvps.SetCommandMax {
		if line != frame {
			c.metrics.incProtocolErrCount()

			return "", fmt.Errorf("command %02d not acknowledged, response %q: %w",
				code, strings.TrimSuffix(line, terminator), hvps.ErrProtocol)
		}

		c.metrics.incAckCount()

		return "", nil
	}

	body := strings.TrimSuffix(line, terminator)
	if body == errorSentinel {
		c.metrics.incProtocolErrCount()

		return "", fmt.Errorf("query %02d: %w", code, hvps.ErrCommandFailed)
	}

	prefix := fmt.Sprintf("%02d", code)
	if !strings.HasPrefix(body, prefix) {
		c.metrics.incProtocolErrCount()

		return "", fmt.Errorf("query %02d answered with code %q: %w",
			code, body, hvps.ErrProtocol)
	}

	c.metrics.incReplyCount()

	return body[len(prefix):], nil
}

// classifySocketError maps a socket failure to the transport error
// taxonomy: deadline expiries and empty reads are timeouts, everything
// else is a connection failure. Callers must already have dropped the
// connection.
func (c *Client) classifySocketError(op string, err error) error {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		c.metrics.incTimeoutCount()
		c.logger.Debug("exchange timeout", "op", op, "target", c.Target())

		return fmt.Errorf("%s: %w", op, hvps.ErrTimeout)
	}

	// An EOF means the peer returned nothing before closing; the protocol
	// treats an empty read like a timeout.
	if errors.Is(err, io.EOF) {
		c.metrics.incTimeoutCount()
		c.logger.Debug("empty read", "op", op, "target", c.Target())

		return fmt.Errorf("%s: empty read: %w", op, hvps.ErrTimeout)
	}

	c.logger.Debug("socket error", "op", op, "target", c.Target(), "error", err)

	return fmt.Errorf("%s: %v: %w", op, err, hvps.ErrConnection)
}
