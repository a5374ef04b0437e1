package timing

import (
	"errors"
	"net"
	"syscall"
)

// IsUnreachable reports whether err means the endpoint cannot be contacted
// at all: the host does not resolve, or nothing accepts connections on it.
// Timeouts and HTTP-level failures are not unreachability.
func IsUnreachable(err error) bool {
	if err == nil {
		return false
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return !dnsErr.IsTimeout
	}
	return errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.EHOSTUNREACH) ||
		errors.Is(err, syscall.ENETUNREACH)
}
