package soter

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/go-ctap/halbridge/internal/softhal"
	"github.com/go-ctap/halbridge/pkg/hal"
)

func TestUninstallListener(t *testing.T) {
	ctx := context.Background()

	cases := []struct {
		name  string
		b     Broadcast
		purge bool
	}{
		{"fully removed", Broadcast{Action: ActionPackageFullyRemoved, UID: 10100}, true},
		{"replacing", Broadcast{Action: ActionPackageFullyRemoved, UID: 10100, Replacing: true}, false},
		{"removed", Broadcast{Action: "android.intent.action.PACKAGE_REMOVED", UID: 10100}, false},
		{"no action", Broadcast{UID: 10100}, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := &fakeSoter{}
			NewUninstallListener(static(f)).OnReceive(ctx, tc.b)

			if tc.purge {
				assert.Equal(t, []string{"RemoveAllUIDKey"}, f.Calls())
				assert.Equal(t, []uint32{10100}, f.uids)
			} else {
				assert.Empty(t, f.Calls())
			}
		})
	}
}

func TestUninstallListenerSwallowsErrors(t *testing.T) {
	ctx := context.Background()
	b := Broadcast{Action: ActionPackageFullyRemoved, UID: 1}

	assert.NotPanics(t, func() {
		NewUninstallListener(unavailable()).OnReceive(ctx, b)
		NewUninstallListener(nil).OnReceive(ctx, b)
		NewUninstallListener(static(&fakeSoter{err: errors.New("dead")})).OnReceive(ctx, b)
		NewUninstallListener(static(&fakeSoter{code: CodeFailed})).OnReceive(ctx, b)
	})
}

func TestUninstallListenerSoftHAL(t *testing.T) {
	ctx := context.Background()

	soft := softhal.New(nil)
	for _, u := range []uint32{1, 2} {
		_, _ = soft.GenerateAskKeyPair(ctx, u)
		_, _ = soft.GenerateAuthKeyPair(ctx, u, "pay")
	}

	l := NewUninstallListener(hal.Static[hal.Soter]("soter", soft))
	l.OnReceive(ctx, Broadcast{Action: ActionPackageFullyRemoved, UID: 1})

	assert.Zero(t, soft.KeyCount(1))
	assert.Equal(t, 2, soft.KeyCount(2))
}
