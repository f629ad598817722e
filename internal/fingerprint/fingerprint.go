package fingerprint

import (
	"strings"

	"github.com/nao1215/lure/internal/model"
)

// userAgentHeader is the header consulted for tool signatures.
const userAgentHeader = "User-Agent"

// Signature associates one lower-case substring with the tool it identifies.
type Signature struct {
	Pattern string
	Tool    model.Tool
}

// toolSignatures are tested against the User-Agent or, failing that, the payload.
var toolSignatures = []Signature{
	{Pattern: "sqlmap", Tool: model.ToolSQLMap},
	{Pattern: "nikto", Tool: model.ToolNikto},
	{Pattern: "nmap", Tool: model.ToolNmap},
	{Pattern: "libwww-perl", Tool: model.ToolNmap},
	{Pattern: "python-requests", Tool: model.ToolNmap},
	{Pattern: "w3af", Tool: model.ToolW3af},
	{Pattern: "acunetix", Tool: model.ToolAcunetix},
	{Pattern: "nessus", Tool: model.ToolNessus},
}

// pathSignatures are tested against the request path.
var pathSignatures = []Signature{
	{Pattern: "wp-login", Tool: model.ToolWordPressScanner},
	{Pattern: "wp-admin", Tool: model.ToolWordPressScanner},
	{Pattern: "phpmyadmin", Tool: model.ToolPHPMyAdmin},
	{Pattern: "/etc/passwd", Tool: model.ToolFileInclusion},
}

// sqlKeywords mark a payload as an SQL injection attempt.
var sqlKeywords = []string{
	"select",
	"union",
	"sleep",
	"benchmark",
	"load_file",
	"into outfile",
}

// Request carries the features of one interaction. Empty strings mean absent.
type Request struct {
	// Headers are the protocol headers; nil is treated as empty.
	Headers map[string]string

	// Payload is the request body or credential.
	Payload string

	// Path is the request path.
	Path string

	// RequestType is the protocol verb. It does not influence detection
	// but is kept so every session passes the same shape.
	RequestType string
}

// DetectTool returns the tool label for req, or model.ToolNone.
func DetectTool(req Request) model.Tool {
	source := userAgent(req.Headers)
	if source == "" {
		source = req.Payload
	}
	if source != "" {
		if tool := match(strings.ToLower(source), toolSignatures); tool.Detected() {
			return tool
		}
	}

	if req.Path != "" {
		if tool := match(strings.ToLower(req.Path), pathSignatures); tool.Detected() {
			return tool
		}
	}

	if req.Payload != "" {
		payload := strings.ToLower(req.Payload)
		for _, keyword := range sqlKeywords {
			if strings.Contains(payload, keyword) {
				return model.ToolSQLInjection
			}
		}
	}

	return model.ToolNone
}

// Signatures returns a copy of the tool signature table in match order.
func Signatures() []Signature {
	out := make([]Signature, 0, len(toolSignatures)+len(pathSignatures))
	out = append(out, toolSignatures...)
	return append(out, pathSignatures...)
}

// userAgent looks up the User-Agent header with a case-insensitive name match.
func userAgent(headers map[string]string) string {
	if v, ok := headers[userAgentHeader]; ok {
		return v
	}
	for k, v := range headers {
		if strings.EqualFold(k, userAgentHeader) {
			return v
		}
	}
	return ""
}

func match(s string, table []Signature) model.Tool {
	for _, sig := range table {
		if strings.Contains(s, sig.Pattern) {
			return sig.Tool
		}
	}
	return model.ToolNone
}
