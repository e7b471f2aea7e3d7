// Package conn opens one CQL connection to a (host, shard) pair and runs the
// handshake (OPTIONS/STARTUP/AUTHENTICATE) before handing split read/write
// halves to the reporter/sender/receiver goroutines that own the socket
// thereafter.
package conn

import (
	"context"
	"errors"
	"fmt"
	"net"
	"syscall"
	"time"

	"golang.org/x/sys/unix"

	"github.com/cqlshard/driver/cql/compression"
	"github.com/cqlshard/driver/cql/frame"
)

// ErrHandshake wraps any failure during the OPTIONS/STARTUP/AUTHENTICATE
// exchange with the step that failed.
type ErrHandshake struct {
	Step string
	Err  error
}

func (e *ErrHandshake) Error() string {
	return fmt.Sprintf("conn: handshake failed at %s: %v", e.Step, e.Err)
}

func (e *ErrHandshake) Unwrap() error { return e.Err }

// Authenticator answers a server AUTHENTICATE challenge with an AUTH_RESPONSE
// request.
type Authenticator interface {
	Respond(authenticatorName string) frame.AuthResponse
}

// AllowAllAuthenticator satisfies Cassandra's AllowAllAuthenticator.
type AllowAllAuthenticator struct{}

func (AllowAllAuthenticator) Respond(string) frame.AuthResponse {
	return frame.AllowAllAuthResponse()
}

// PasswordAuthenticator satisfies Cassandra's PasswordAuthenticator.
type PasswordAuthenticator struct {
	Username string
	Password string
}

func (a PasswordAuthenticator) Respond(string) frame.AuthResponse {
	return frame.PasswordAuthResponse(a.Username, a.Password)
}

// Options configures how a Connection is opened.
type Options struct {
	Host          string
	CommonPort    int
	ShardPort     int // 0 disables shard-aware port selection
	ShardCount    int
	TargetShard   int
	Compression   string // "", "lz4", "snappy"
	Authenticator Authenticator
	DialTimeout   time.Duration
}

// Connection is a live, handshaken CQL socket ready for the
// sender/receiver/reporter trio to take over.
type Connection struct {
	TCP         *net.TCPConn
	Compression compression.Codec
	Supported   map[string][]string
}

// Open dials (host, shard), preferring the shard-aware port when configured,
// and runs the CQL v4 handshake.
func Open(ctx context.Context, opts Options) (*Connection, error) {
	tcpConn, err := dial(ctx, opts)
	if err != nil {
		return nil, &ErrHandshake{Step: "dial", Err: err}
	}

	codec, err := compression.ByName(opts.Compression)
	if err != nil {
		tcpConn.Close()
		return nil, &ErrHandshake{Step: "compression", Err: err}
	}

	c := &Connection{TCP: tcpConn, Compression: codec}
	if err := c.handshake(ctx, opts); err != nil {
		tcpConn.Close()
		return nil, err
	}
	return c, nil
}

// dial opens the TCP socket, using a shard-aware local port when
// opts.ShardPort and opts.ShardCount are set: it binds an ephemeral local
// port p such that p % ShardCount == TargetShard, so the server's
// shard-aware listener routes the connection to the intended shard. Falls
// back to a normal dial to the common port on any shard-aware failure.
func dial(ctx context.Context, opts Options) (*net.TCPConn, error) {
	if opts.ShardPort == 0 || opts.ShardCount <= 0 {
		return dialCommon(ctx, opts)
	}
	tcpConn, err := dialShardAware(ctx, opts)
	if err != nil {
		return dialCommon(ctx, opts)
	}
	return tcpConn, nil
}

func dialCommon(ctx context.Context, opts Options) (*net.TCPConn, error) {
	d := net.Dialer{Timeout: opts.DialTimeout}
	addr := fmt.Sprintf("%s:%d", opts.Host, opts.CommonPort)
	c, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, err
	}
	return c.(*net.TCPConn), nil
}

// dialShardAware binds a local ephemeral port satisfying
// port % ShardCount == TargetShard before connecting to the shard-aware
// port, per Scylla's shard-aware port convention.
func dialShardAware(ctx context.Context, opts Options) (*net.TCPConn, error) {
	d := net.Dialer{
		Timeout: opts.DialTimeout,
		Control: func(network, address string, c syscall.RawConn) error {
			var sockErr error
			err := c.Control(func(fd uintptr) {
				sockErr = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_REUSEADDR, 1)
			})
			if err != nil {
				return err
			}
			return sockErr
		},
	}
	const maxAttempts = 32
	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		localPort := ephemeralPortForShard(opts.TargetShard, opts.ShardCount, attempt)
		localAddr := fmt.Sprintf(":%d", localPort)
		laddr, err := net.ResolveTCPAddr("tcp", localAddr)
		if err != nil {
			return nil, err
		}
		d.LocalAddr = laddr
		addr := fmt.Sprintf("%s:%d", opts.Host, opts.ShardPort)
		c, err := d.DialContext(ctx, "tcp", addr)
		if err != nil {
			lastErr = err
			continue
		}
		return c.(*net.TCPConn), nil
	}
	return nil, fmt.Errorf("shard-aware dial: exhausted %d local port attempts: %w", maxAttempts, lastErr)
}

// ephemeralPortForShard picks a candidate local port in the high ephemeral
// range satisfying port % shardCount == targetShard, advancing by shardCount
// on each retry to probe a fresh port if the previous one was in use.
func ephemeralPortForShard(targetShard, shardCount, attempt int) int {
	const base = 49152
	start := base - (base % shardCount) + targetShard
	if start < base {
		start += shardCount
	}
	return start + attempt*shardCount
}

// handshake runs OPTIONS -> STARTUP -> READY, or STARTUP -> AUTHENTICATE ->
// one AUTH_RESPONSE -> AUTH_SUCCESS, in sequence over c.TCP. An
// AUTH_CHALLENGE in reply to the AUTH_RESPONSE fails the handshake.
func (c *Connection) handshake(ctx context.Context, opts Options) error {
	if _, err := c.roundTrip(frame.Options{}); err != nil {
		return &ErrHandshake{Step: "options", Err: err}
	}

	startupOpts := frame.StartupOptions{"CQL_VERSION": "3.0.0"}
	if opts.Compression != "" {
		startupOpts["COMPRESSION"] = opts.Compression
	}
	resp, err := c.roundTrip(frame.Startup{Options: startupOpts})
	if err != nil {
		return &ErrHandshake{Step: "startup", Err: err}
	}

	switch body := resp.(type) {
	case *frame.ReadyBody:
		return nil
	case *frame.AuthenticateBody:
		return c.authenticate(body, opts)
	default:
		return &ErrHandshake{Step: "startup", Err: fmt.Errorf("unexpected response %T", resp)}
	}
}

func (c *Connection) authenticate(auth *frame.AuthenticateBody, opts Options) error {
	if opts.Authenticator == nil {
		return &ErrHandshake{Step: "authenticate", Err: errors.New("server requires auth but no Authenticator configured")}
	}
	req := opts.Authenticator.Respond(auth.Authenticator)
	resp, err := c.roundTrip(req)
	if err != nil {
		return &ErrHandshake{Step: "authenticate", Err: err}
	}
	switch resp.(type) {
	case *frame.AuthSuccessBody:
		return nil
	case *frame.AuthChallengeBody:
		return &ErrHandshake{Step: "authenticate", Err: errors.New("multi-step SASL challenges are not supported")}
	default:
		return &ErrHandshake{Step: "authenticate", Err: fmt.Errorf("unexpected response %T", resp)}
	}
}

// roundTrip writes req with stream 0 (handshake frames are never
// multiplexed) and reads back exactly one response frame, synchronously.
func (c *Connection) roundTrip(req frame.Request) (frame.Response, error) {
	w := frame.NewWriter()
	req.WriteBody(w)
	body := w.Bytes()

	h := frame.NewRequestHeader(req.OpCode())
	h.BodyLen = uint32(len(body))
	buf := h.Encode(make([]byte, 0, frame.HeaderSize+len(body)))
	buf = append(buf, body...)

	if _, err := c.TCP.Write(buf); err != nil {
		return nil, err
	}

	var hdrBuf [frame.HeaderSize]byte
	if _, err := readFull(c.TCP, hdrBuf[:]); err != nil {
		return nil, err
	}
	respHeader, err := frame.DecodeHeader(hdrBuf[:])
	if err != nil {
		return nil, err
	}

	respBody := make([]byte, respHeader.BodyLen)
	if _, err := readFull(c.TCP, respBody); err != nil {
		return nil, err
	}
	if respHeader.Flags&frame.FlagCompression != 0 {
		respBody, err = c.Compression.Decompress(respBody)
		if err != nil {
			return nil, err
		}
	}
	if respHeader.OpCode == frame.OpError {
		errBody := func() *frame.ErrorBody {
			resp, _ := frame.DecodeResponse(frame.OpError, respBody)
			eb, _ := resp.(*frame.ErrorBody)
			return eb
		}()
		if errBody != nil {
			return nil, errBody
		}
	}
	return frame.DecodeResponse(respHeader.OpCode, respBody)
}

func readFull(r net.Conn, buf []byte) (int, error) {
	total := 0
	for total < len(buf) {
		n, err := r.Read(buf[total:])
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}
