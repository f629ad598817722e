package protocol

import (
	"context"
	"strings"

	"github.com/nao1215/lure/internal/model"
)

const (
	ftpGreeting       = "220 (vsFTPd 3.0.3)\r\n"
	ftpUserOK         = "331 Please specify the password.\r\n"
	ftpLoginIncorrect = "530 Login incorrect.\r\n"
	ftpPWD            = "257 \"/\" is the current directory\r\n"
	ftpListStart      = "150 Here comes the directory listing.\r\n"
	ftpListing        = "-rw-r--r-- 1 root root    0 Jan 01 00:00 README.txt\r\ndrwxr-xr-x 2 root root 4096 Jan 01 00:00 data\r\n"
	ftpListDone       = "226 Directory send OK.\r\n"
	ftpGoodbye        = "221 Goodbye.\r\n"
	ftpNotImplemented = "502 Command not implemented.\r\n"
)

// FTPHoneypot emulates the control channel of a vsFTPd server. Logins
// always fail and no data connection is ever opened.
type FTPHoneypot struct {
	recorder Recorder
}

// NewFTPHoneypot creates the FTP handler.
func NewFTPHoneypot(rec Recorder) *FTPHoneypot {
	return &FTPHoneypot{recorder: rec}
}

// Protocol returns the protocol name.
func (h *FTPHoneypot) Protocol() string {
	return string(model.ServiceFTP)
}

// DefaultPort returns the default FTP honeypot port.
func (h *FTPHoneypot) DefaultPort() int {
	return 2121
}

// Handle reads commands until QUIT or EOF. Every non-empty line records
// an event whose request type is the upper-cased verb and whose path is
// the argument.
func (h *FTPHoneypot) Handle(ctx context.Context, s *Session) {
	if err := s.WriteString(ftpGreeting); err != nil {
		return
	}

	for {
		line, err := s.ReadLine()
		if err != nil {
			logSessionEnd(s, err)
			return
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		verb, arg, _ := strings.Cut(line, " ")
		verb = strings.ToUpper(verb)

		event := s.NewEvent(model.ServiceFTP, verb)
		event.Path = arg
		s.Record(ctx, h.recorder, event)

		reply, quit := ftpReply(verb)
		if err := s.WriteString(reply); err != nil {
			return
		}
		if quit {
			return
		}
	}
}

// ftpReply returns the canned reply for verb and whether the session ends.
func ftpReply(verb string) (string, bool) {
	switch verb {
	case "USER":
		return ftpUserOK, false
	case "PASS":
		return ftpLoginIncorrect, false
	case "PWD":
		return ftpPWD, false
	case "LIST":
		return ftpListStart + ftpListing + ftpListDone, false
	case "QUIT":
		return ftpGoodbye, true
	default:
		return ftpNotImplemented, false
	}
}
