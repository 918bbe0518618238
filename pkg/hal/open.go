package hal

import (
	"context"

	"github.com/go-ctap/halbridge/pkg/options"
)

// OpenMlipay returns an OpenFunc dialing the payment HAL at addr.
func OpenMlipay(addr string, opts ...options.Option) OpenFunc[Mlipay] {
	return func(ctx context.Context) (Mlipay, error) {
		cl, err := Dial(ctx, addr, opts...)
		if err != nil {
			return nil, err
		}
		return cl, nil
	}
}

// OpenSoter returns an OpenFunc dialing the secure element HAL at addr.
func OpenSoter(addr string, opts ...options.Option) OpenFunc[Soter] {
	return func(ctx context.Context) (Soter, error) {
		cl, err := Dial(ctx, addr, opts...)
		if err != nil {
			return nil, err
		}
		return cl, nil
	}
}
