package kouhai

import (
	"bufio"
	"crypto/tls"
	"fmt"
	"io"
	"net"
	"sync"
	"time"
)

// Transport is a line-oriented connection to the chat server.  SendLine
// is safe for concurrent use; ReceiveLine is not and belongs to a single
// reader goroutine.
type Transport interface {
	ReceiveLine() (string, error)
	SendLine(line string) error
	Close() error
}

type connTransport struct {
	conn    net.Conn
	scanner *bufio.Scanner

	sendMu sync.Mutex
}

// DialTransport connects to addr, defaulting the port to 6697 (TLS) or
// 6667 (plain) when none is given.
func DialTransport(addr string, noTLS bool) (Transport, error) {
	_, _, err := net.SplitHostPort(addr)
	if err != nil {
		if noTLS {
			addr = net.JoinHostPort(addr, "6667")
		} else {
			addr = net.JoinHostPort(addr, "6697")
		}
	}

	var conn net.Conn
	if noTLS {
		conn, err = net.DialTimeout("tcp", addr, 10*time.Second)
	} else {
		conn, err = tls.DialWithDialer(&net.Dialer{Timeout: 10 * time.Second}, "tcp", addr, nil)
	}
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", addr, err)
	}
	return NewConnTransport(conn), nil
}

// NewConnTransport wraps an established connection.
func NewConnTransport(conn net.Conn) Transport {
	return &connTransport{
		conn:    conn,
		scanner: bufio.NewScanner(conn),
	}
}

func (t *connTransport) ReceiveLine() (string, error) {
	if !t.scanner.Scan() {
		if err := t.scanner.Err(); err != nil {
			return "", err
		}
		return "", io.EOF
	}
	return t.scanner.Text(), nil
}

func (t *connTransport) SendLine(line string) error {
	t.sendMu.Lock()
	defer t.sendMu.Unlock()
	_, err := fmt.Fprintf(t.conn, "%s\r\n", line)
	return err
}

func (t *connTransport) Close() error {
	return t.conn.Close()
}
