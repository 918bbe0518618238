package options

import (
	"context"
	"log/slog"

	"github.com/fxamacker/cbor/v2"
)

// GeometryScheme selects which pair of properties describes the under-display
// fingerprint sensor. Both schemes are found on shipping devices.
type GeometryScheme string

const (
	GeometrySchemeUDFPS GeometryScheme = "udfps"
	GeometrySchemeFOD   GeometryScheme = "fod"
)

func (s GeometryScheme) IsValid() bool {
	switch s {
	case GeometrySchemeUDFPS, GeometrySchemeFOD:
		return true
	default:
		return false
	}
}

type Options struct {
	Logger         *slog.Logger
	EncMode        cbor.EncMode
	Context        context.Context
	GeometryScheme GeometryScheme
	InvalidVendors []string
	BroadcastUIDs  []uint32
}

type Option func(*Options)

func WithLogger(logger *slog.Logger) Option {
	return func(opts *Options) {
		opts.Logger = logger
	}
}

func WithEncMode(encMode cbor.EncMode) Option {
	return func(opts *Options) {
		opts.EncMode = encMode
	}
}

func WithContext(ctx context.Context) Option {
	return func(opts *Options) {
		opts.Context = ctx
	}
}

// WithGeometryScheme picks the sensor flag and geometry properties.
// Invalid schemes are ignored.
func WithGeometryScheme(scheme GeometryScheme) Option {
	return func(opts *Options) {
		if scheme.IsValid() {
			opts.GeometryScheme = scheme
		}
	}
}

// WithInvalidVendors replaces the list of fingerprint vendor names meaning
// "no fingerprint hardware". Names are compared case-insensitively.
func WithInvalidVendors(vendors ...string) Option {
	return func(opts *Options) {
		opts.InvalidVendors = vendors
	}
}

// WithBroadcastUIDs replaces the Unix users allowed to send package
// broadcasts. Root is the only one by default.
func WithBroadcastUIDs(uids ...uint32) Option {
	return func(opts *Options) {
		opts.BroadcastUIDs = uids
	}
}

func NewOptions(opts ...Option) *Options {
	encMode, _ := cbor.CTAP2EncOptions().EncMode()
	oo := &Options{
		Logger:         slog.Default(),
		EncMode:        encMode,
		Context:        context.Background(),
		GeometryScheme: GeometrySchemeUDFPS,
		InvalidVendors: []string{""},
		BroadcastUIDs:  []uint32{0},
	}

	for _, opt := range opts {
		opt(oo)
	}

	return oo
}
