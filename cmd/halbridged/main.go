// Command halbridged publishes the IFAA manager and the Soter service on
// D-Bus and forwards their calls to the vendor HALs.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/godbus/dbus/v5"
	"golang.org/x/sync/errgroup"

	"github.com/go-ctap/halbridge/internal/softhal"
	"github.com/go-ctap/halbridge/pkg/dbusapi"
	"github.com/go-ctap/halbridge/pkg/hal"
	"github.com/go-ctap/halbridge/pkg/ifaa"
	"github.com/go-ctap/halbridge/pkg/options"
	"github.com/go-ctap/halbridge/pkg/soter"
	"github.com/go-ctap/halbridge/pkg/sysprop"
)

func main() {
	if err := flags.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		os.Exit(1)
	}
	if err := validateFlags(); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "%v\n", err)
		usage()
		os.Exit(1)
	}

	if debug {
		level.Set(slog.LevelDebug)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		slog.Error("halbridged failed", "error", err)
		os.Exit(2)
	}
}

func connect() (*dbus.Conn, error) {
	if sessionBus {
		return dbus.ConnectSessionBus()
	}
	return dbus.ConnectSystemBus()
}

func properties(logger *slog.Logger) (sysprop.Reader, error) {
	layers := make(sysprop.Layered, 0, len(propFiles))
	for _, path := range propFiles {
		f, err := sysprop.NewFile(path, logger)
		if err != nil {
			return nil, err
		}
		layers = append(layers, f)
	}
	return layers, nil
}

// serveSoftHAL listens on addr and answers with h until ctx is done.
func serveSoftHAL(ctx context.Context, g *errgroup.Group, h *softhal.HAL, addr string) error {
	_ = os.Remove(addr)

	var lc net.ListenConfig
	l, err := lc.Listen(ctx, "unix", addr)
	if err != nil {
		return fmt.Errorf("cannot listen for soft HAL: %w", err)
	}

	g.Go(func() error {
		defer func() {
			_ = os.Remove(addr)
		}()
		if err := h.Serve(ctx, l); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})
	return nil
}

func run(ctx context.Context) error {
	logger := slog.Default()

	props, err := properties(logger)
	if err != nil {
		return err
	}

	g, ctx := errgroup.WithContext(ctx)

	opts := []options.Option{
		options.WithLogger(logger),
		options.WithContext(ctx),
		options.WithGeometryScheme(options.GeometryScheme(geometry)),
		options.WithInvalidVendors(strings.Split(invalidVendors, ",")...),
		options.WithBroadcastUIDs(trustedUIDs...),
	}

	if softHAL {
		seed, _ := props.Get("ro.serialno")
		h := softhal.New([]byte(seed), opts...)

		if err := serveSoftHAL(ctx, g, h, mlipayAddr); err != nil {
			return err
		}
		if err := serveSoftHAL(ctx, g, h, soterAddr); err != nil {
			return err
		}
		logger.Warn("serving software HALs, keys are not hardware backed")
	}

	mlipay := hal.NewHandle("mlipay", hal.OpenMlipay(mlipayAddr, opts...), logger)
	soterHAL := hal.NewHandle("soter", hal.OpenSoter(soterAddr, opts...), logger)
	defer mlipay.Reset()
	defer soterHAL.Reset()

	conn, err := connect()
	if err != nil {
		return fmt.Errorf("cannot connect to D-Bus: %w", err)
	}
	defer func() {
		_ = conn.Close()
	}()

	deps := ifaa.Deps{
		Props:      props,
		Mlipay:     mlipay,
		LockScreen: &ifaa.PropertyLockScreen{Props: props, Key: lockScreenProp},
		Settings:   &dbusapi.SignalLauncher{Conn: conn},
	}
	if fingerprint {
		deps.Enrollments = &ifaa.HALEnrollments{Mlipay: mlipay, Logger: logger}
	}

	if err := dbusapi.ExportIfaa(conn, ifaa.NewService(deps, opts...), opts...); err != nil {
		return err
	}
	callers := dbusapi.NewBusCallers(conn)
	if err := dbusapi.ExportSoter(conn, soter.NewService(soterHAL, opts...), callers, opts...); err != nil {
		return err
	}

	watcher := dbusapi.NewPackageWatcher(conn, callers, soter.NewUninstallListener(soterHAL, opts...), opts...)
	g.Go(func() error {
		return watcher.Run(ctx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	logger.Info("halbridged stopped")
	return nil
}
