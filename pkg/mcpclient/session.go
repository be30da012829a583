package mcpclient

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/agentry/mcp-agent-go/pkg/mcpconfig"
)

// ConnState tracks a server connection through its lifecycle.
type ConnState int

const (
	StateUnopened ConnState = iota
	StateConnecting
	StateReady
	StateFailed
	StateClosed
)

func (s ConnState) String() string {
	switch s {
	case StateUnopened:
		return "unopened"
	case StateConnecting:
		return "connecting"
	case StateReady:
		return "ready"
	case StateFailed:
		return "failed"
	case StateClosed:
		return "closed"
	default:
		return fmt.Sprintf("ConnState(%d)", int(s))
	}
}

// serverConn owns the MCP client session for one configured server. The
// session is established lazily on first use; concurrent callers share a
// single in-flight dial. A lost or failed connection is terminal for the
// conn.
type serverConn struct {
	desc   mcpconfig.ServerDescriptor
	client *mcp.Client
	http   *http.Client
	logger *slog.Logger

	mu            sync.Mutex
	state         ConnState
	session       *mcp.ClientSession
	sessionCancel context.CancelFunc
	connecting    chan struct{}
	failErr       *Error
	closed        bool
}

func newServerConn(desc mcpconfig.ServerDescriptor, impl *mcp.Implementation, logger *slog.Logger) *serverConn {
	httpClient := http.DefaultClient
	if len(desc.Headers) > 0 {
		httpClient = &http.Client{
			Transport: &headerRoundTripper{base: http.DefaultTransport, headers: desc.Headers},
		}
	}
	return &serverConn{
		desc:   desc,
		client: mcp.NewClient(impl, nil),
		http:   httpClient,
		logger: logger.With("server", desc.Name),
	}
}

// headerRoundTripper injects static headers into every outgoing request.
type headerRoundTripper struct {
	base    http.RoundTripper
	headers map[string]string
}

func (h *headerRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	clone := req.Clone(req.Context())
	for k, v := range h.headers {
		clone.Header.Set(k, v)
	}
	return h.base.RoundTrip(clone)
}

// ensure returns a live session, dialing on first use. Only one dial runs at
// a time; other callers wait for it and then re-check. A connection that has
// failed stays failed for the rest of its lifetime.
func (c *serverConn) ensure(ctx context.Context) (*mcp.ClientSession, error) {
	for {
		c.mu.Lock()
		if c.closed {
			c.mu.Unlock()
			return nil, &Error{Kind: KindTransport, Server: c.desc.Name, Err: fmt.Errorf("connection closed")}
		}
		if c.state == StateFailed {
			err := c.failErr
			c.mu.Unlock()
			if err != nil {
				return nil, err
			}
			return nil, &Error{Kind: KindTransport, Server: c.desc.Name, Err: fmt.Errorf("connection failed")}
		}
		if c.session != nil {
			session := c.session
			c.mu.Unlock()
			return session, nil
		}
		if c.connecting != nil {
			wait := c.connecting
			c.mu.Unlock()
			select {
			case <-wait:
				continue
			case <-ctx.Done():
				return nil, classify(c.desc.Name, "", ctx.Err(), KindTransport)
			}
		}
		done := make(chan struct{})
		c.connecting = done
		c.state = StateConnecting
		c.mu.Unlock()

		session, cancel, err := c.dial(ctx)

		c.mu.Lock()
		c.connecting = nil
		if err != nil {
			c.state = StateFailed
			c.failErr = classify(c.desc.Name, "", err, KindTransport)
			c.mu.Unlock()
			close(done)
			return nil, err
		}
		if c.closed {
			c.mu.Unlock()
			close(done)
			_ = session.Close()
			cancel()
			return nil, &Error{Kind: KindTransport, Server: c.desc.Name, Err: fmt.Errorf("connection closed")}
		}
		c.session = session
		c.sessionCancel = cancel
		c.state = StateReady
		c.mu.Unlock()
		close(done)
		go c.monitor(session)
		return session, nil
	}
}

type connectResult struct {
	session *mcp.ClientSession
	err     error
}

// dial connects with the handshake bounded by the descriptor timeout. The
// SDK keeps the connect context for the whole session (the SSE stream and
// the streamable hanging GET live on it), so the session gets its own
// cancel-only context and the bound is enforced here; the returned cancel
// releases that context and must fire once the session is finished.
func (c *serverConn) dial(ctx context.Context) (*mcp.ClientSession, context.CancelFunc, error) {
	var transport mcp.Transport
	switch c.desc.Transport {
	case mcpconfig.TransportStreamableHTTP:
		transport = &mcp.StreamableClientTransport{Endpoint: c.desc.URL, HTTPClient: c.http}
	default:
		transport = &mcp.SSEClientTransport{Endpoint: c.desc.URL, HTTPClient: c.http}
	}

	connCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	done := make(chan connectResult, 1)
	go func() {
		session, err := c.client.Connect(connCtx, transport, nil)
		done <- connectResult{session: session, err: err}
	}()

	var handshakeTimeout <-chan time.Time
	if c.desc.Timeout > 0 {
		timer := time.NewTimer(c.desc.Timeout)
		defer timer.Stop()
		handshakeTimeout = timer.C
	}

	select {
	case res := <-done:
		if res.err != nil {
			cancel()
			return nil, nil, classify(c.desc.Name, "", res.err, KindTransport)
		}
		c.logger.Debug("mcp session established",
			"transport", string(c.desc.Transport),
			"session_id", res.session.ID())
		return res.session, cancel, nil
	case <-handshakeTimeout:
		cancel()
		go discardConnect(done)
		return nil, nil, &Error{Kind: KindTimeout, Server: c.desc.Name,
			Err: fmt.Errorf("handshake exceeded %s", c.desc.Timeout)}
	case <-ctx.Done():
		cancel()
		go discardConnect(done)
		return nil, nil, classify(c.desc.Name, "", ctx.Err(), KindTransport)
	}
}

// discardConnect reaps a connect attempt that lost the race against its
// handshake bound.
func discardConnect(done <-chan connectResult) {
	if res := <-done; res.session != nil {
		_ = res.session.Close()
	}
}

// monitor marks the connection failed when the server closes the session,
// so later operations fail fast instead of hanging on a dead stream.
func (c *serverConn) monitor(session *mcp.ClientSession) {
	err := session.Wait()

	c.mu.Lock()
	stale := c.session == session
	var cancel context.CancelFunc
	if stale {
		c.session = nil
		cancel = c.sessionCancel
		c.sessionCancel = nil
		if !c.closed {
			c.state = StateFailed
			c.failErr = &Error{Kind: KindTransport, Server: c.desc.Name, Err: fmt.Errorf("session ended: %w", errOrClosed(err))}
		}
	}
	closed := c.closed
	c.mu.Unlock()
	if cancel != nil {
		cancel()
	}

	if stale && !closed {
		if err != nil {
			c.logger.Warn("mcp session ended", "error", err)
		} else {
			c.logger.Debug("mcp session ended")
		}
	}
}

// listTools fetches the server's tool list under the server's base timeout.
func (c *serverConn) listTools(ctx context.Context) ([]*mcp.Tool, error) {
	session, err := c.ensure(ctx)
	if err != nil {
		return nil, err
	}
	listCtx, cancel := withTimeout(ctx, c.desc.Timeout)
	defer cancel()

	res, err := session.ListTools(listCtx, nil)
	if err != nil {
		return nil, classify(c.desc.Name, "", err, KindProtocol)
	}
	return res.Tools, nil
}

// callTool invokes a native tool name on this server under the per-call
// timeout for its transport.
func (c *serverConn) callTool(ctx context.Context, name string, args map[string]any) (*mcp.CallToolResult, error) {
	session, err := c.ensure(ctx)
	if err != nil {
		return nil, err
	}
	callCtx, cancel := withTimeout(ctx, c.callTimeout())
	defer cancel()

	res, err := session.CallTool(callCtx, &mcp.CallToolParams{Name: name, Arguments: args})
	if err != nil {
		return nil, classify(c.desc.Name, "", err, KindTransport)
	}
	return res, nil
}

// callTimeout picks the per-call deadline: SSE calls wait on a long-lived
// event stream, so they get the read timeout instead of the base timeout.
func (c *serverConn) callTimeout() time.Duration {
	if c.desc.Transport == mcpconfig.TransportSSE {
		return c.desc.SSEReadTimeout
	}
	return c.desc.Timeout
}

func (c *serverConn) currentState() ConnState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *serverConn) close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.state = StateClosed
	session := c.session
	cancel := c.sessionCancel
	c.session = nil
	c.sessionCancel = nil
	c.mu.Unlock()

	if session == nil {
		if cancel != nil {
			cancel()
		}
		return nil
	}
	err := session.Close()
	if cancel != nil {
		cancel()
	}
	if err != nil {
		return &Error{Kind: KindTransport, Server: c.desc.Name, Err: err}
	}
	return nil
}

func errOrClosed(err error) error {
	if err != nil {
		return err
	}
	return errors.New("connection lost")
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, d)
}
