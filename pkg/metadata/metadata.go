package metadata

import (
	"net"
	"os"
	"os/user"
	"runtime/debug"

	"github.com/google/uuid"
)

// Meta is the process identity attached to every run-history record and
// notification. Collected once at startup and read-only afterwards.
type Meta struct {
	SessionID   string
	RunBy       string
	Host        string
	PID         int
	ScriptPath  string
	SourceIP    string
	VCSRevision string
}

// Collect gathers process metadata. Every field is best-effort; a failure to
// resolve one leaves it empty rather than aborting startup.
func Collect() *Meta {
	m := &Meta{
		SessionID: uuid.NewString(),
		PID:       os.Getpid(),
	}

	if v := os.Getenv("RUN_BY"); v != "" {
		m.RunBy = v
	} else if u, err := user.Current(); err == nil {
		m.RunBy = u.Username
	}

	if h, err := os.Hostname(); err == nil {
		m.Host = h
	}

	if p, err := os.Executable(); err == nil {
		m.ScriptPath = p
	}

	m.SourceIP = outboundIP()
	m.VCSRevision = vcsRevision()

	return m
}

// outboundIP resolves the local address used for outbound traffic. No packet
// is sent; UDP "connect" only selects a route.
func outboundIP() string {
	conn, err := net.Dial("udp", "8.8.8.8:80")
	if err != nil {
		return ""
	}
	defer conn.Close()
	if addr, ok := conn.LocalAddr().(*net.UDPAddr); ok {
		return addr.IP.String()
	}
	return ""
}

// vcsRevision returns the short commit hash stamped into the binary, if any.
func vcsRevision() string {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return ""
	}
	for _, s := range info.Settings {
		if s.Key == "vcs.revision" {
			if len(s.Value) > 12 {
				return s.Value[:12]
			}
			return s.Value
		}
	}
	return ""
}
