package protocol

import (
	"bufio"
	"bytes"
	"context"
	"io"
	"log/slog"
	"net"
	"strings"
	"time"

	"github.com/nao1215/lure/internal/model"
)

const (
	// readBufferSize is the bufio buffer per connection.
	readBufferSize = 4096

	// maxLineBytes bounds a single protocol line.
	maxLineBytes = 8 * 1024
)

// Recorder turns a completed request unit into a stored event.
type Recorder interface {
	Execute(ctx context.Context, event *model.Event) error
}

// Session is one accepted connection.
type Session struct {
	// ID identifies the session in logs.
	ID string

	// RemoteIP is the peer address without port.
	RemoteIP string

	// LocalPort is the listening port that accepted the connection.
	LocalPort int

	conn        net.Conn
	reader      *bufio.Reader
	idleTimeout time.Duration
	logger      *slog.Logger
}

func newSession(id string, conn net.Conn, idleTimeout time.Duration, logger *slog.Logger) *Session {
	return &Session{
		ID:          id,
		RemoteIP:    remoteIP(conn.RemoteAddr()),
		LocalPort:   localPort(conn.LocalAddr()),
		conn:        conn,
		reader:      bufio.NewReaderSize(conn, readBufferSize),
		idleTimeout: idleTimeout,
		logger:      logger,
	}
}

// Logger returns the session-scoped logger.
func (s *Session) Logger() *slog.Logger {
	return s.logger
}

// NewEvent starts an event for this session.
func (s *Session) NewEvent(service model.Service, requestType string) *model.Event {
	return model.NewEvent(service, s.RemoteIP, s.LocalPort, requestType)
}

// Record hands event to rec on a context that survives cancellation of
// ctx, so an append in progress completes during shutdown. Failures are
// logged and the event is dropped.
func (s *Session) Record(ctx context.Context, rec Recorder, event *model.Event) {
	if err := rec.Execute(context.WithoutCancel(ctx), event); err != nil {
		s.logger.Warn("event dropped",
			"type", event.RequestType,
			"error", err,
		)
	}
}

// WriteString writes s to the peer.
func (s *Session) WriteString(str string) error {
	if s.idleTimeout > 0 {
		if err := s.conn.SetWriteDeadline(time.Now().Add(s.idleTimeout)); err != nil {
			return err
		}
	}
	_, err := io.WriteString(s.conn, str)
	return err
}

// ReadRawLine reads up to and including the next '\n'. A final line
// without a newline is returned together with a nil error; the following
// call returns io.EOF.
func (s *Session) ReadRawLine() ([]byte, error) {
	if s.idleTimeout > 0 {
		if err := s.conn.SetReadDeadline(time.Now().Add(s.idleTimeout)); err != nil {
			return nil, err
		}
	}

	var line []byte
	for {
		chunk, err := s.reader.ReadSlice('\n')
		line = append(line, chunk...)
		if len(line) > maxLineBytes {
			return nil, errLineTooLong
		}
		switch err {
		case nil:
			return line, nil
		case bufio.ErrBufferFull:
			continue
		default:
			if len(line) > 0 && err == io.EOF {
				return line, nil
			}
			return nil, err
		}
	}
}

// ReadLine reads one line, replaces invalid UTF-8 and trims surrounding
// CR and LF characters only.
func (s *Session) ReadLine() (string, error) {
	raw, err := s.ReadRawLine()
	if err != nil {
		return "", err
	}
	return strings.Trim(decodeLenient(raw), "\r\n"), nil
}

// ReadFull reads exactly len(buf) bytes.
func (s *Session) ReadFull(buf []byte) error {
	if s.idleTimeout > 0 {
		if err := s.conn.SetReadDeadline(time.Now().Add(s.idleTimeout)); err != nil {
			return err
		}
	}
	_, err := io.ReadFull(s.reader, buf)
	return err
}

// decodeLenient converts b to a string, replacing invalid UTF-8 sequences
// with U+FFFD.
func decodeLenient(b []byte) string {
	return string(bytes.ToValidUTF8(b, []byte("\uFFFD")))
}

func remoteIP(addr net.Addr) string {
	if tcp, ok := addr.(*net.TCPAddr); ok {
		return tcp.IP.String()
	}
	host, _, err := net.SplitHostPort(addr.String())
	if err != nil {
		return addr.String()
	}
	return host
}

func localPort(addr net.Addr) int {
	if tcp, ok := addr.(*net.TCPAddr); ok {
		return tcp.Port
	}
	return 0
}
