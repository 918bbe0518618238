package hal

import (
	"context"
	"net"
	"strings"

	"github.com/Microsoft/go-winio"

	"github.com/go-ctap/halbridge/pkg/options"
)

const pipePrefix = `\\.\pipe\`

// Dial connects to a HAL listening on a named pipe (\\.\pipe\...) or on an
// AF_UNIX socket path.
func Dial(ctx context.Context, addr string, opts ...options.Option) (*Client, error) {
	var (
		conn net.Conn
		err  error
	)
	if strings.HasPrefix(addr, pipePrefix) {
		conn, err = winio.DialPipeContext(ctx, addr)
	} else {
		var d net.Dialer
		conn, err = d.DialContext(ctx, "unix", addr)
	}
	if err != nil {
		return nil, err
	}

	return NewClient(conn, opts...), nil
}
