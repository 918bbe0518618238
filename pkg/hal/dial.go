//go:build !windows

package hal

import (
	"context"
	"net"

	"github.com/go-ctap/halbridge/pkg/options"
)

// Dial connects to a HAL listening on the unix socket at addr.
func Dial(ctx context.Context, addr string, opts ...options.Option) (*Client, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "unix", addr)
	if err != nil {
		return nil, err
	}

	return NewClient(conn, opts...), nil
}
