// Command sloked is the master/standalone launcher (spec.md §2): it owns
// the process-wide DocumentSet and screen Tree, accepts bridge
// connections on a TCP listener, and wires one named.Server per
// connection the way ron's master accepts one Client per TCP dial.
//
// Flag parsing here is deliberately thin (spec.md's Non-goals exclude a
// general CLI grammar and config file loading): a handful of flags is
// enough to stand the editor up for tests and single-host use.
package main

import (
	"flag"
	"fmt"
	"net"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/sloked/sloked/internal/auth"
	"github.com/sloked/sloked/internal/bridge"
	"github.com/sloked/sloked/internal/document"
	"github.com/sloked/sloked/internal/named"
	"github.com/sloked/sloked/internal/netif"
	"github.com/sloked/sloked/internal/screen"
	"github.com/sloked/sloked/internal/server"
	"github.com/sloked/sloked/internal/slklog"
)

var (
	fAddr      = flag.String("addr", ":7710", "address to listen on")
	fLevel     = flag.String("level", "info", "log level: debug, info, warn, error, fatal")
	fAuthUser  = flag.String("auth-user", "", "if set, requires this username at login and derives the challenge key from -auth-secret")
	fAuthToken = flag.String("auth-secret", "", "shared secret for the default HKDF authenticator; requires -auth-user")
)

func main() {
	flag.Parse()

	level, err := slklog.ParseLevel(*fLevel)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	slklog.Default(level)

	docs := document.NewSet()
	tree := screen.NewTree()
	tree.Root().SetChild(screen.NewTextPane())

	var authenticator *auth.HKDFAuthenticator
	if *fAuthUser != "" {
		if *fAuthToken == "" {
			slklog.Fatal("sloked: -auth-user requires -auth-secret")
		}
		authenticator = auth.NewHKDFAuthenticator([]byte(*fAuthToken))
		authenticator.Register(*fAuthUser, &auth.Principal{Name: *fAuthUser})
	}

	listener, err := net.Listen("tcp", *fAddr)
	if err != nil {
		slklog.Fatal("sloked: listen %s: %v", *fAddr, err)
	}
	slklog.Info("sloked: listening on %s", listener.Addr())

	shutdown := make(chan struct{})
	var shutdownOnce sync.Once
	triggerShutdown := func() { shutdownOnce.Do(func() { close(shutdown) }) }
	go acceptLoop(listener, docs, tree, authenticator, shutdown, triggerShutdown)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	select {
	case <-sig:
		slklog.Info("sloked: signal received, shutting down")
	case <-shutdown:
		slklog.Info("sloked: shutdown requested, exiting")
	}
	listener.Close()
}

var holderSeq int64

func nextHolder() screen.HolderID {
	return screen.HolderID(atomic.AddInt64(&holderSeq, 1))
}

// mustRegister registers a fresh per-connection named.Server's services;
// a duplicate or malformed path here is a programming error in this
// file, not something a client triggered, so it is logged and the
// connection goes on without that service; nothing is reported over the
// wire.
func mustRegister(srv *named.Server, path string, svc named.Service) {
	if err := srv.Register(path, svc); err != nil {
		slklog.Error("sloked: register %s: %v", path, err)
	}
}

func acceptLoop(listener net.Listener, docs *document.Set, tree *screen.Tree, authenticator *auth.HKDFAuthenticator, shutdown chan struct{}, triggerShutdown func()) {
	for {
		conn, err := listener.Accept()
		if err != nil {
			select {
			case <-shutdown:
				return
			default:
				slklog.Warn("sloked: accept: %v", err)
				return
			}
		}
		go serveConn(conn, docs, tree, authenticator, triggerShutdown)
	}
}

// serveConn wires one connection's named.Server: the document and screen
// singletons are shared across every connection, but AuthorizationService
// and ScreenManagerService are bound fresh per connection since they
// carry connection-local identity (the authenticated Principal, this
// connection's HolderID) that named.Service.Attach has no room for.
func serveConn(netConn net.Conn, docs *document.Set, tree *screen.Tree, authenticator *auth.HKDFAuthenticator, triggerShutdown func()) {
	defer netConn.Close()
	slklog.Info("sloked: connection from %s", netConn.RemoteAddr())

	wire := netif.NewConn(netConn, 30*time.Second)
	local := named.NewServer()
	holder := nextHolder()

	principal := (*auth.Principal)(nil)
	bindServices := func() {
		local.Deregister("/editor/authorization")
		local.Deregister("/screen/manager")
		mustRegister(local, "/editor/authorization", server.NewAuthorizationService(principal))
		mustRegister(local, "/screen/manager", server.NewScreenManagerService(tree, holder))
	}

	mustRegister(local, "/document/manager", server.NewDocumentManagerService(docs))
	mustRegister(local, "/document/cursor", document.NewCursorService(docs))
	mustRegister(local, "/document/render", document.NewRenderService(docs))
	mustRegister(local, "/document/notify", document.NewNotifyService(docs))
	mustRegister(local, "/document/search", document.NewSearchService(docs))
	mustRegister(local, "/editor/shutdown", server.NewShutdownService(triggerShutdown))
	mustRegister(local, "/screen/component/input/forward", server.NewComponentInputForwardService(tree, holder))
	mustRegister(local, "/screen/component/input/notify", server.NewComponentInputNotifyService(tree, holder))
	mustRegister(local, "/screen/component/text/pane", server.NewTextPaneService(tree, holder, local))
	mustRegister(local, "/screen/size/notify", server.NewSizeNotifyService(tree))
	bindServices()

	br := bridge.New(wire, local)
	if authenticator != nil {
		auth.Serve(wire, authenticator, func(p *auth.Principal) {
			principal = p
			br.SetAuthorizer(p)
			bindServices()
		})
	}

	if err := wire.Serve(); err != nil {
		slklog.Debug("sloked: connection from %s closed: %v", netConn.RemoteAddr(), err)
	}
}
