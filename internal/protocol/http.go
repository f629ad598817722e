package protocol

import (
	"context"
	"errors"
	"io"
	"math/rand/v2"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/nao1215/lure/internal/model"
)

const (
	// maxHeaderBytes bounds the request line plus headers.
	maxHeaderBytes = 64 * 1024

	// maxBodyBytes bounds the request body. Larger bodies are treated as
	// absent and left unread.
	maxBodyBytes = 1 << 20

	contentLengthHeader = "Content-Length"
)

// httpRequest is one parsed request.
type httpRequest struct {
	method  string
	path    string
	headers map[string]string
	body    string
}

// HTTPHoneypot emulates a web server that answers every request with a
// plausible 200 response.
type HTTPHoneypot struct {
	recorder Recorder
	pick     func(n int) int
}

// HTTPOption configures an HTTPHoneypot.
type HTTPOption func(*HTTPHoneypot)

// WithHTTPPicker overrides the random choice of headers and generic pages.
// pick must return a value in [0, n).
func WithHTTPPicker(pick func(n int) int) HTTPOption {
	return func(h *HTTPHoneypot) {
		h.pick = pick
	}
}

// NewHTTPHoneypot creates the HTTP handler.
func NewHTTPHoneypot(rec Recorder, opts ...HTTPOption) *HTTPHoneypot {
	h := &HTTPHoneypot{
		recorder: rec,
		pick:     rand.IntN,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Protocol returns the protocol name.
func (h *HTTPHoneypot) Protocol() string {
	return string(model.ServiceHTTP)
}

// DefaultPort returns the default HTTP honeypot port.
func (h *HTTPHoneypot) DefaultPort() int {
	return 8080
}

// Handle serves exactly one request and closes.
func (h *HTTPHoneypot) Handle(ctx context.Context, s *Session) {
	req, err := readHTTPRequest(s)
	if err != nil {
		if !errors.Is(err, io.EOF) {
			s.Logger().Debug("request aborted", "error", err)
		}
		return
	}

	event := s.NewEvent(model.ServiceHTTP, req.method)
	event.Path = req.path
	event.Payload = req.body
	event.Headers = req.headers
	s.Record(ctx, h.recorder, event)

	body := responseBody(req.path, event.Tool, h.pick)
	if err := s.WriteString(h.buildResponse(body)); err != nil {
		s.Logger().Debug("failed to write response", "error", err)
	}
}

func (h *HTTPHoneypot) buildResponse(body string) string {
	var b strings.Builder
	b.WriteString("HTTP/1.1 200 OK\r\n")
	b.WriteString("Server: " + serverHeaders[h.pick(len(serverHeaders))] + "\r\n")
	b.WriteString("X-Powered-By: " + poweredByHeaders[h.pick(len(poweredByHeaders))] + "\r\n")
	b.WriteString("Content-Type: text/html; charset=utf-8\r\n")
	b.WriteString("Content-Length: " + strconv.Itoa(len(body)) + "\r\n")
	b.WriteString("Connection: close\r\n")
	b.WriteString("\r\n")
	b.WriteString(body)
	return b.String()
}

// readHTTPRequest parses the request line, headers and optional body.
// A request line with fewer than two fields or invalid UTF-8 yields
// errMalformedRequest.
func readHTTPRequest(s *Session) (*httpRequest, error) {
	line, err := s.ReadRawLine()
	if err != nil {
		return nil, err
	}
	if !utf8.Valid(line) {
		return nil, errMalformedRequest
	}
	parts := strings.Fields(string(line))
	if len(parts) < 2 {
		return nil, errMalformedRequest
	}

	req := &httpRequest{
		method:  parts[0],
		path:    parts[1],
		headers: make(map[string]string),
	}

	total := len(line)
	for {
		raw, err := s.ReadRawLine()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, err
		}
		total += len(raw)
		if total > maxHeaderBytes {
			return nil, errHeadersTooLarge
		}

		header := strings.TrimSpace(decodeLenient(raw))
		if header == "" {
			break
		}
		if key, value, ok := strings.Cut(header, ":"); ok {
			req.headers[strings.TrimSpace(key)] = strings.TrimSpace(value)
		}
	}

	req.body = readHTTPBody(s, req.headers[contentLengthHeader])
	return req, nil
}

// readHTTPBody reads exactly Content-Length bytes. Any failure, including
// an unparsable, negative or oversized length, leaves the body absent.
func readHTTPBody(s *Session, contentLength string) string {
	if contentLength == "" {
		return ""
	}
	n, err := strconv.Atoi(contentLength)
	if err != nil || n < 0 || n > maxBodyBytes {
		return ""
	}
	buf := make([]byte, n)
	if err := s.ReadFull(buf); err != nil {
		return ""
	}
	return decodeLenient(buf)
}
