package server

import (
	"context"

	"github.com/sloked/sloked/internal/auth"
	"github.com/sloked/sloked/internal/kgr"
	"github.com/sloked/sloked/internal/pipe"
)

// ShutdownService implements /editor/shutdown (spec.md §6): any connected
// client invoking "shutdown" triggers fn once. Exit-code policy (0 on a
// requested shutdown) is cmd/sloked's concern, not this service's.
type ShutdownService struct {
	fn func()
}

func NewShutdownService(fn func()) *ShutdownService { return &ShutdownService{fn: fn} }

func (s *ShutdownService) Attach(endpoint *pipe.Pipe) {
	go pipe.Serve(context.Background(), endpoint, map[string]pipe.Handler{
		"shutdown": func(kgr.Value) (kgr.Value, error) {
			s.fn()
			return kgr.Null(), nil
		},
	})
}

// AuthorizationService implements /editor/authorization (spec.md §6): it
// reports the access/modify ACLs of the Principal the caller authenticated
// as, or an empty (unrestricted) pair for an anonymous session.
type AuthorizationService struct {
	principal *auth.Principal
}

func NewAuthorizationService(p *auth.Principal) *AuthorizationService {
	return &AuthorizationService{principal: p}
}

func (s *AuthorizationService) Attach(endpoint *pipe.Pipe) {
	go pipe.Serve(context.Background(), endpoint, map[string]pipe.Handler{
		"whoami": func(kgr.Value) (kgr.Value, error) {
			om := kgr.NewOrderedMap()
			if s.principal == nil {
				om.Set("anonymous", kgr.Bool(true))
				return kgr.Object(om), nil
			}
			om.Set("anonymous", kgr.Bool(false))
			om.Set("name", kgr.String(s.principal.Name))
			access := make([]kgr.Value, len(s.principal.Access))
			for i, p := range s.principal.Access {
				access[i] = kgr.String(p)
			}
			modify := make([]kgr.Value, len(s.principal.Modify))
			for i, p := range s.principal.Modify {
				modify[i] = kgr.String(p)
			}
			om.Set("access", kgr.Array(access...))
			om.Set("modify", kgr.Array(modify...))
			return kgr.Object(om), nil
		},
	})
}
