package stream

import (
	"errors"
	"net"
	"testing"
	"time"

	"go.uber.org/multierr"
)

func listenUDP(t *testing.T) *net.UDPConn {
	t.Helper()
	conn, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	if err != nil {
		t.Fatalf("ListenUDP() error = %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readDatagram(t *testing.T, conn *net.UDPConn) string {
	t.Helper()
	buf := make([]byte, 65535)
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	n, _, err := conn.ReadFromUDP(buf)
	if err != nil {
		t.Fatalf("ReadFromUDP() error = %v", err)
	}
	return string(buf[:n])
}

func TestUDPSink_Send(t *testing.T) {
	listener := listenUDP(t)
	port := listener.LocalAddr().(*net.UDPAddr).Port

	sink, err := DialUDP(port)
	if err != nil {
		t.Fatalf("DialUDP() error = %v", err)
	}
	defer sink.Close()

	if got := sink.RemoteAddr().String(); got != listener.LocalAddr().String() {
		t.Errorf("RemoteAddr() = %s, want %s", got, listener.LocalAddr())
	}

	for _, payload := range []string{"['NoHand']", "[640, 480, []]"} {
		if err := sink.Send([]byte(payload)); err != nil {
			t.Fatalf("Send() error = %v", err)
		}
		if got := readDatagram(t, listener); got != payload {
			t.Errorf("received %q, want %q", got, payload)
		}
	}
}

func TestDialUDPAddr_Invalid(t *testing.T) {
	if _, err := DialUDPAddr("not an address"); err == nil {
		t.Error("DialUDPAddr() should fail on a malformed address")
	}
}

func TestMultiSink(t *testing.T) {
	a, b, c := NewBufferSink(), NewBufferSink(), NewBufferSink()
	errB := errors.New("b is down")
	b.SetError(errB)

	m := MultiSink{a, b, c}
	err := m.Send([]byte("['NoBody']"))
	if !errors.Is(err, errB) {
		t.Errorf("Send() error = %v, want %v", err, errB)
	}
	if len(a.Payloads()) != 1 || len(c.Payloads()) != 1 {
		t.Error("a failing sink should not stop delivery to the others")
	}

	if err := m.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
	if !a.Closed() || !b.Closed() || !c.Closed() {
		t.Error("Close() should close every sink")
	}

	b2 := NewBufferSink()
	b2.SetError(errors.New("also down"))
	if errs := multierr.Errors(MultiSink{b, b2}.Send(nil)); len(errs) != 2 {
		t.Errorf("got %d errors, want 2", len(errs))
	}
}
