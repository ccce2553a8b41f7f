// Command slokedctl is the slave/bridge CLI client (spec.md §2): it
// dials a running sloked, optionally authenticates, connects to one
// named service, invokes one method, and prints the JSON result —
// grounded on cmd/rond's Dial/Conn/Run shape but carried over
// internal/bridge's connect/activate handshake instead of a JSON-over-
// unix-socket pipe.
package main

import (
	"context"
	"flag"
	"fmt"
	"net"
	"os"
	"time"

	"github.com/sloked/sloked/internal/auth"
	"github.com/sloked/sloked/internal/bridge"
	"github.com/sloked/sloked/internal/kgr"
	"github.com/sloked/sloked/internal/named"
	"github.com/sloked/sloked/internal/netif"
	"github.com/sloked/sloked/internal/pipe"
)

var (
	fAddr    = flag.String("addr", "localhost:7710", "sloked address to dial")
	fService = flag.String("service", "/editor/authorization", "named service path to connect to")
	fMethod  = flag.String("method", "whoami", "method to invoke on the service")
	fParams  = flag.String("params", "null", "method parameters, as JSON")
	fUser    = flag.String("user", "", "username to authenticate as; skips the handshake if empty")
	fSecret  = flag.String("secret", "", "shared secret for -user's HKDF challenge response")
	fTimeout = flag.Duration("timeout", 5*time.Second, "per-call timeout")
)

func main() {
	flag.Parse()

	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "slokedctl:", err)
		os.Exit(1)
	}
}

func run() error {
	params, err := kgr.DecodeJSONBytes([]byte(*fParams))
	if err != nil {
		return fmt.Errorf("parsing -params: %w", err)
	}

	netConn, err := net.DialTimeout("tcp", *fAddr, *fTimeout)
	if err != nil {
		return fmt.Errorf("dialing %s: %w", *fAddr, err)
	}
	defer netConn.Close()

	wire := netif.NewConn(netConn, *fTimeout)
	go wire.Serve()
	defer wire.Close()

	br := bridge.New(wire, named.NewServer())

	ctx, cancel := context.WithTimeout(context.Background(), *fTimeout)
	defer cancel()

	if *fUser != "" {
		if err := auth.Login(ctx, wire, *fUser, func(nonce []byte) []byte {
			return auth.DeriveResponse([]byte(*fSecret), *fUser, nonce)
		}); err != nil {
			return fmt.Errorf("authenticating as %s: %w", *fUser, err)
		}
	}

	servicePipe, id, err := br.Connect(ctx, *fService)
	if err != nil {
		return fmt.Errorf("connecting to %s: %w", *fService, err)
	}
	defer servicePipe.Close()
	if err := br.Activate(ctx, id); err != nil {
		return fmt.Errorf("activating %s: %w", *fService, err)
	}

	client := pipe.NewClient(servicePipe)
	result, err := client.Invoke(ctx, *fMethod, params)
	if err != nil {
		return fmt.Errorf("invoking %s.%s: %w", *fService, *fMethod, err)
	}

	out, err := kgr.EncodeJSON(result)
	if err != nil {
		return fmt.Errorf("encoding result: %w", err)
	}
	fmt.Println(string(out))
	return nil
}
