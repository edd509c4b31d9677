package stream

import (
	"net"
	"strconv"
	"sync"

	"github.com/pkg/errors"
	"go.uber.org/multierr"
)

// Sink receives one encoded record per frame.
type Sink interface {
	Send(payload []byte) error
	Close() error
}

// UDPSink sends each payload as one datagram on a connected socket.
type UDPSink struct {
	conn *net.UDPConn
}

// DialUDP opens the datagram socket to the local consumer on port.
func DialUDP(port int) (*UDPSink, error) {
	return DialUDPAddr(net.JoinHostPort("127.0.0.1", strconv.Itoa(port)))
}

// DialUDPAddr opens a datagram socket to addr.
func DialUDPAddr(addr string) (*UDPSink, error) {
	raddr, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return nil, errors.Wrapf(err, "resolve %s", addr)
	}
	conn, err := net.DialUDP("udp", nil, raddr)
	if err != nil {
		return nil, errors.Wrapf(err, "dial %s", addr)
	}
	return &UDPSink{conn: conn}, nil
}

// Send writes payload as a single datagram. There is no retry.
func (s *UDPSink) Send(payload []byte) error {
	_, err := s.conn.Write(payload)
	return err
}

// RemoteAddr returns the destination address.
func (s *UDPSink) RemoteAddr() net.Addr {
	return s.conn.RemoteAddr()
}

// Close closes the socket.
func (s *UDPSink) Close() error {
	return s.conn.Close()
}

// MultiSink fans each payload out to every sink.
type MultiSink []Sink

// Send delivers payload to all sinks, even when some of them fail.
func (m MultiSink) Send(payload []byte) error {
	var err error
	for _, s := range m {
		err = multierr.Append(err, s.Send(payload))
	}
	return err
}

// Close closes every sink.
func (m MultiSink) Close() error {
	var err error
	for _, s := range m {
		err = multierr.Append(err, s.Close())
	}
	return err
}

// BufferSink keeps every payload in memory.
type BufferSink struct {
	mu       sync.Mutex
	payloads [][]byte
	err      error
	closed   bool
}

// NewBufferSink returns an empty BufferSink.
func NewBufferSink() *BufferSink {
	return &BufferSink{}
}

// Send records a copy of payload, or returns the configured error.
func (b *BufferSink) Send(payload []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.err != nil {
		return b.err
	}
	b.payloads = append(b.payloads, append([]byte(nil), payload...))
	return nil
}

// SetError makes subsequent sends fail with err.
func (b *BufferSink) SetError(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.err = err
}

// Payloads returns the payloads received so far.
func (b *BufferSink) Payloads() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]string, len(b.payloads))
	for i, p := range b.payloads {
		out[i] = string(p)
	}
	return out
}

// Close marks the sink closed.
func (b *BufferSink) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	return nil
}

// Closed reports whether Close was called.
func (b *BufferSink) Closed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.closed
}
