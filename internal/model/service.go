package model

// Service identifies which emulated protocol produced an event.
type Service string

const (
	// ServiceHTTP is the emulated web server.
	ServiceHTTP Service = "http"

	// ServiceSSH is the emulated OpenSSH login prompt.
	ServiceSSH Service = "ssh"

	// ServiceFTP is the emulated vsFTPd command channel.
	ServiceFTP Service = "ftp"
)

// Services returns every emulated service in start-up order.
func Services() []Service {
	return []Service{ServiceHTTP, ServiceSSH, ServiceFTP}
}

// String returns the lower-case service name stored with each event.
func (s Service) String() string {
	return string(s)
}

// Valid reports whether s is one of the emulated services.
func (s Service) Valid() bool {
	switch s {
	case ServiceHTTP, ServiceSSH, ServiceFTP:
		return true
	default:
		return false
	}
}
