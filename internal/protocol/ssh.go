package protocol

import (
	"context"
	"errors"
	"io"

	"github.com/nao1215/lure/internal/classify"
	"github.com/nao1215/lure/internal/model"
)

const (
	sshBanner        = "SSH-2.0-OpenSSH_7.4p1 Debian-10+deb9u6\r\n"
	sshBannerVersion = "OpenSSH_7.4p1"
	sshLoginPrompt   = "login as: "
	sshRetry         = "Permission denied, please try again.\r\n"
	sshFinalDenial   = "Permission denied (publickey,password).\r\n"

	// maxLoginAttempts is the number of credential rounds before disconnect.
	maxLoginAttempts = 3

	sshLoginRequest = "LOGIN"
)

// SSHHoneypot emulates the interactive password prompt of an OpenSSH
// server as seen by line-oriented clients. No key exchange takes place.
type SSHHoneypot struct {
	recorder Recorder
}

// NewSSHHoneypot creates the SSH handler.
func NewSSHHoneypot(rec Recorder) *SSHHoneypot {
	return &SSHHoneypot{recorder: rec}
}

// Protocol returns the protocol name.
func (h *SSHHoneypot) Protocol() string {
	return string(model.ServiceSSH)
}

// DefaultPort returns the default SSH honeypot port.
func (h *SSHHoneypot) DefaultPort() int {
	return 2222
}

// Handle runs up to three login rounds. Each completed round records a
// LOGIN event with the username as path and the password as payload.
func (h *SSHHoneypot) Handle(ctx context.Context, s *Session) {
	if err := s.WriteString(sshBanner); err != nil {
		return
	}

	for attempt := 1; attempt <= maxLoginAttempts; attempt++ {
		if err := s.WriteString(sshLoginPrompt); err != nil {
			return
		}
		username, err := s.ReadLine()
		if err != nil {
			logSessionEnd(s, err)
			return
		}
		if err := s.WriteString(username + "@server's password: "); err != nil {
			return
		}
		password, err := s.ReadLine()
		if err != nil {
			logSessionEnd(s, err)
			return
		}

		event := s.NewEvent(model.ServiceSSH, sshLoginRequest)
		event.Path = username
		event.Payload = password
		event.Headers["banner"] = sshBannerVersion
		s.Record(classify.WithAttempt(ctx, attempt), h.recorder, event)

		reply := sshRetry
		if attempt == maxLoginAttempts {
			reply = sshFinalDenial
		}
		if err := s.WriteString(reply); err != nil {
			return
		}
	}
}

// logSessionEnd logs why a session stopped reading. EOF is the normal way
// for a peer to leave and is not logged.
func logSessionEnd(s *Session, err error) {
	if errors.Is(err, io.EOF) {
		return
	}
	s.Logger().Debug("session ended", "error", err)
}
