package cluster

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"github.com/pixveil/pixveil/internal/logging"
)

// MaxFrameSize bounds a single wire frame
const MaxFrameSize = 10 * 1024 * 1024

// HandlerFunc processes an inbound message. A non-nil return is written
// back as the reply; nil means no reply.
type HandlerFunc func(msg Message) *Message

// Transport exchanges messages with peers. The TCP implementation is used
// in production; tests substitute an in-process one.
type Transport interface {
	// Start begins accepting inbound messages
	Start(handler HandlerFunc) error

	// Send sends a message and waits for a single reply
	Send(addr string, msg Message) (Message, error)

	// Notify sends a message without waiting for a reply
	Notify(addr string, msg Message) error

	// Stop stops accepting inbound messages
	Stop() error
}

// TCPTransport carries one length-prefixed JSON frame per exchange:
// a 4-byte big-endian length, then the message body.
type TCPTransport struct {
	addr    string
	timeout time.Duration
	logger  *logging.Logger

	mu       sync.Mutex
	listener net.Listener
	handler  HandlerFunc
	stopped  bool
}

// NewTCPTransport creates a transport listening on addr with the given
// per-peer dial/read/write timeout
func NewTCPTransport(addr string, timeout time.Duration, logger *logging.Logger) *TCPTransport {
	return &TCPTransport{
		addr:    addr,
		timeout: timeout,
		logger:  logger,
	}
}

// Start begins accepting peer connections
func (t *TCPTransport) Start(handler HandlerFunc) error {
	listener, err := net.Listen("tcp", t.addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", t.addr, err)
	}

	t.mu.Lock()
	t.listener = listener
	t.handler = handler
	t.mu.Unlock()

	go t.acceptLoop(listener)

	t.logger.Info("Cluster transport listening", "addr", t.addr)
	return nil
}

func (t *TCPTransport) acceptLoop(listener net.Listener) {
	for {
		conn, err := listener.Accept()
		if err != nil {
			t.mu.Lock()
			stopped := t.stopped
			t.mu.Unlock()
			if stopped {
				return
			}
			t.logger.Warn("Accept failed", "error", err)
			continue
		}

		go t.handleConn(conn)
	}
}

// handleConn serves one request/reply exchange per connection
func (t *TCPTransport) handleConn(conn net.Conn) {
	defer conn.Close()

	_ = conn.SetDeadline(time.Now().Add(t.timeout))

	msg, err := readFrame(conn)
	if err != nil {
		return
	}

	t.mu.Lock()
	handler := t.handler
	t.mu.Unlock()
	if handler == nil {
		return
	}

	reply := handler(msg)
	if reply == nil {
		return
	}

	if err := writeFrame(conn, *reply); err != nil {
		t.logger.Debug("Failed to write reply", "peer", conn.RemoteAddr().String(), "error", err)
	}
}

// Send sends a message and waits for a single reply
func (t *TCPTransport) Send(addr string, msg Message) (Message, error) {
	conn, err := net.DialTimeout("tcp", addr, t.timeout)
	if err != nil {
		return Message{}, fmt.Errorf("failed to dial %s: %w", addr, err)
	}
	defer conn.Close()

	_ = conn.SetDeadline(time.Now().Add(t.timeout))

	if err := writeFrame(conn, msg); err != nil {
		return Message{}, fmt.Errorf("failed to send to %s: %w", addr, err)
	}

	reply, err := readFrame(conn)
	if err != nil {
		return Message{}, fmt.Errorf("failed to read reply from %s: %w", addr, err)
	}

	return reply, nil
}

// Notify sends a message without waiting for a reply
func (t *TCPTransport) Notify(addr string, msg Message) error {
	conn, err := net.DialTimeout("tcp", addr, t.timeout)
	if err != nil {
		return fmt.Errorf("failed to dial %s: %w", addr, err)
	}
	defer conn.Close()

	_ = conn.SetDeadline(time.Now().Add(t.timeout))

	if err := writeFrame(conn, msg); err != nil {
		return fmt.Errorf("failed to notify %s: %w", addr, err)
	}

	return nil
}

// Addr returns the bound listen address, useful when the configured
// address picked an ephemeral port
func (t *TCPTransport) Addr() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.listener != nil {
		return t.listener.Addr().String()
	}
	return t.addr
}

// Stop stops accepting inbound messages
func (t *TCPTransport) Stop() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.stopped = true
	if t.listener != nil {
		return t.listener.Close()
	}
	return nil
}

func writeFrame(w io.Writer, msg Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	var length [4]byte
	binary.BigEndian.PutUint32(length[:], uint32(len(data)))

	if _, err := w.Write(length[:]); err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

func readFrame(r io.Reader) (Message, error) {
	var length [4]byte
	if _, err := io.ReadFull(r, length[:]); err != nil {
		return Message{}, err
	}

	size := binary.BigEndian.Uint32(length[:])
	if size == 0 || size > MaxFrameSize {
		return Message{}, fmt.Errorf("invalid frame size: %d", size)
	}

	data := make([]byte, size)
	if _, err := io.ReadFull(r, data); err != nil {
		return Message{}, err
	}

	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return Message{}, fmt.Errorf("unmarshal message: %w", err)
	}

	return msg, nil
}
