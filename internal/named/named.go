// Package named implements the Named Server component (spec.md §4.9): a
// registry from absolute service path to Service, plus local connect and
// a reusable connector factory. Grounded on minicli's command-pattern
// registry — a flat map keyed by the routing string, with the same
// fail-fast-on-duplicate-registration posture minicli.Register uses for
// colliding patterns.
package named

import (
	"strings"
	"sync"

	"github.com/sloked/sloked/internal/pipe"
	"github.com/sloked/sloked/internal/slkerr"
)

// Service accepts an endpoint Pipe and spawns a context bound to it
// (spec.md §3 "Service"). Every Attach in this module starts a goroutine
// serving the endpoint, usually pipe.Serve.
type Service interface {
	Attach(endpoint *pipe.Pipe)
}

// ServiceFunc adapts a plain func to Service.
type ServiceFunc func(endpoint *pipe.Pipe)

func (f ServiceFunc) Attach(endpoint *pipe.Pipe) { f(endpoint) }

// Server is a mapping from absolute service path to Service.
type Server struct {
	mu       sync.RWMutex
	services map[string]Service
	aliases  map[string]string
}

func NewServer() *Server {
	return &Server{services: make(map[string]Service), aliases: make(map[string]string)}
}

func normalize(path string) string {
	if path == "" {
		return "/"
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	if len(path) > 1 {
		path = strings.TrimRight(path, "/")
	}
	return path
}

// Register binds path to service. Fails with AlreadyRegistered if path
// (after alias resolution) already has a service.
func (s *Server) Register(path string, service Service) error {
	path = normalize(path)
	s.mu.Lock()
	defer s.mu.Unlock()

	resolved := s.resolveLocked(path)
	if _, ok := s.services[resolved]; ok {
		return slkerr.New(slkerr.AlreadyRegistered, "named: %s is already registered", path)
	}
	s.services[resolved] = service
	return nil
}

// Alias registers alias to resolve to target for every subsequent
// Register/Registered/Connect call (spec.md §4.9 "path aliases", e.g.
// "/screen/manager" resolving to an internal screen-service instance).
func (s *Server) Alias(alias, target string) {
	alias, target = normalize(alias), normalize(target)
	s.mu.Lock()
	s.aliases[alias] = target
	s.mu.Unlock()
}

func (s *Server) resolveLocked(path string) string {
	seen := map[string]bool{}
	for {
		target, ok := s.aliases[path]
		if !ok || seen[path] {
			return path
		}
		seen[path] = true
		path = target
	}
}

// Deregister removes path's service, if any. Deregistering an
// unregistered path is a no-op.
func (s *Server) Deregister(path string) {
	path = normalize(path)
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.services, s.resolveLocked(path))
}

func (s *Server) Registered(path string) bool {
	path = normalize(path)
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.services[s.resolveLocked(path)]
	return ok
}

// Connect allocates a fresh pipe pair, hands one end to the service's
// Attach, and returns the other. Fails with PathNotFound if path has no
// registered service.
func (s *Server) Connect(path string) (*pipe.Pipe, error) {
	path = normalize(path)
	s.mu.RLock()
	service, ok := s.services[s.resolveLocked(path)]
	s.mu.RUnlock()
	if !ok {
		return nil, slkerr.New(slkerr.PathNotFound, "named: %s is not registered", path)
	}

	client, serviceEnd := pipe.NewPair()
	service.Attach(serviceEnd)
	return client, nil
}

// Connector returns a reusable factory closure equivalent to
// func() (*pipe.Pipe, error) { return s.Connect(path) }.
func (s *Server) Connector(path string) func() (*pipe.Pipe, error) {
	return func() (*pipe.Pipe, error) { return s.Connect(path) }
}
