package model

import (
	"maps"
	"time"
)

// Event is one recorded interaction unit: an HTTP request, an SSH login
// attempt or an FTP command line. Events are immutable once appended to
// the store.
type Event struct {
	// ID is assigned by the event store on append. Zero means not yet stored.
	ID int64 `json:"id"`

	// Timestamp is when the interaction unit finished parsing (UTC).
	Timestamp time.Time `json:"timestamp"`

	// Service is the emulated protocol that produced the event.
	Service Service `json:"service"`

	// IP is the remote peer address without port.
	IP string `json:"ip"`

	// Port is the local listening port that accepted the connection.
	Port int `json:"port"`

	// RequestType is the protocol verb: an HTTP method, "LOGIN" or an FTP verb.
	RequestType string `json:"request_type"`

	// Path is the HTTP path, SSH username or FTP argument. Empty means absent.
	Path string `json:"path,omitempty"`

	// Payload is the HTTP body or SSH password. Empty means absent.
	Payload string `json:"payload,omitempty"`

	// Headers holds protocol headers or session attributes. Never nil.
	Headers map[string]string `json:"headers"`

	// Tool is the fingerprinted tool label, if any.
	Tool Tool `json:"tool,omitempty"`

	// Classification is the label assigned by the session's classifier.
	Classification Classification `json:"classification,omitempty"`

	// Meta holds enrichment data such as GeoIP lookups. Never nil.
	Meta map[string]any `json:"meta"`
}

// NewEvent returns an event stamped with the current UTC time and
// non-nil Headers and Meta maps.
func NewEvent(service Service, ip string, port int, requestType string) *Event {
	return &Event{
		Timestamp:   time.Now().UTC(),
		Service:     service,
		IP:          ip,
		Port:        port,
		RequestType: requestType,
		Headers:     make(map[string]string),
		Meta:        make(map[string]any),
	}
}

// Clone returns a deep copy of the event so callers can hand it out
// without sharing the maps.
func (e *Event) Clone() Event {
	c := *e
	c.Headers = maps.Clone(e.Headers)
	if c.Headers == nil {
		c.Headers = make(map[string]string)
	}
	c.Meta = maps.Clone(e.Meta)
	if c.Meta == nil {
		c.Meta = make(map[string]any)
	}
	return c
}
