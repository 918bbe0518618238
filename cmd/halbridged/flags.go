package main

import (
	"bytes"
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/samber/lo"

	"github.com/go-ctap/halbridge/pkg/ifaa"
	"github.com/go-ctap/halbridge/pkg/options"
)

var flags = flag.NewFlagSet("halbridged", flag.ContinueOnError)

// stringList collects a repeatable flag.
type stringList []string

func (l *stringList) String() string {
	return strings.Join(*l, ",")
}

func (l *stringList) Set(v string) error {
	*l = append(*l, v)
	return nil
}

var (
	debug          bool
	sessionBus     bool
	propFiles      stringList
	mlipayAddr     string
	soterAddr      string
	geometry       string
	invalidVendors string
	lockScreenProp string
	fingerprint    bool
	softHAL        bool
	broadcastUIDs  string

	trustedUIDs []uint32
)

func init() {
	flags.BoolVar(&debug, "debug", false, "Log HAL traffic and other debug messages")
	flags.BoolVar(&sessionBus, "session", false, "Use the session bus instead of the system bus")
	flags.Var(&propFiles, "props", "build.prop style property `file`, may be repeated; earlier files win")
	flags.StringVar(&mlipayAddr, "mlipay", "/run/halbridge/mlipay.sock", "Payment HAL `address`")
	flags.StringVar(&soterAddr, "soter", "/run/halbridge/soter.sock", "Soter HAL `address`")
	flags.StringVar(&geometry, "geometry", string(options.GeometrySchemeUDFPS), "Under-display sensor properties: udfps or fod")
	flags.StringVar(&invalidVendors, "invalid-vendors", "", "Comma separated fingerprint vendor names meaning no fingerprint hardware")
	flags.StringVar(&lockScreenProp, "lockscreen-prop", ifaa.PropLockScreenSecure, "Boolean property telling whether a secure lock screen is set")
	flags.BoolVar(&fingerprint, "fingerprint", true, "The device has fingerprint hardware")
	flags.BoolVar(&softHAL, "soft-hal", false, "Serve both HALs in-process from a software implementation")
	flags.StringVar(&broadcastUIDs, "broadcast-uids", "0", "Comma separated Unix `uids` allowed to send package broadcasts")
	flags.Usage = usage
}

func usage() {
	var buf bytes.Buffer
	flags.SetOutput(&buf)
	flags.PrintDefaults()
	flags.SetOutput(os.Stderr)

	_, _ = fmt.Fprintf(os.Stderr, `
Usage:
  halbridged [options]

Options:
%s`, buf.String())
}

func validateFlags() error {
	if !options.GeometryScheme(geometry).IsValid() {
		return fmt.Errorf("invalid geometry scheme %q", geometry)
	}
	if mlipayAddr == "" || soterAddr == "" {
		return errors.New("HAL addresses must not be empty")
	}

	uids, err := parseUIDs(broadcastUIDs)
	if err != nil {
		return err
	}
	trustedUIDs = uids
	return nil
}

func parseUIDs(s string) ([]uint32, error) {
	fields := lo.Compact(strings.Split(s, ","))
	if len(fields) == 0 {
		return nil, errors.New("at least one broadcast uid is required")
	}

	uids := make([]uint32, 0, len(fields))
	for _, f := range fields {
		uid, err := strconv.ParseUint(strings.TrimSpace(f), 10, 32)
		if err != nil {
			return nil, fmt.Errorf("invalid broadcast uid %q: %w", f, err)
		}
		uids = append(uids, uint32(uid))
	}
	return uids, nil
}
