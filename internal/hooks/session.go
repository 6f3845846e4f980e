package hooks

import (
	"errors"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	glog "github.com/zboralski/cryptotap/internal/log"
)

// Session ties a registry's lifetime to one attachment to a host. Bindings
// made through a session are restored on Detach.
type Session struct {
	ID  uuid.UUID
	reg *Registry
}

// NewSession creates a session with a fresh registry for host.
func NewSession(host Host, sink Sink, opts ...Option) *Session {
	return &Session{
		ID:  uuid.New(),
		reg: NewRegistry(host, sink, opts...),
	}
}

// Registry returns the session's registry.
func (s *Session) Registry() *Registry {
	return s.reg
}

// Install binds every definition in cat. Definitions whose type or overload
// the host lacks are skipped; a helper class may simply not be loaded in this
// process. Other failures are combined. Returns the number of bindings made.
func (s *Session) Install(cat *Catalog) (int, error) {
	log := s.reg.logger()
	installed := 0
	var errs error

	for _, def := range cat.Definitions() {
		err := s.reg.BindDefinition(def)
		switch {
		case err == nil:
			installed++
		case errors.Is(err, ErrTypeNotFound), errors.Is(err, ErrOverloadNotFound):
			log.Skipped(def.Key().String(), err)
		default:
			errs = multierr.Append(errs, err)
		}
	}

	log.Info("installed",
		glog.Session(s.ID.String()),
		zap.Int("bindings", installed),
	)
	return installed, errs
}

// Detach restores every binding of the session.
func (s *Session) Detach() error {
	return s.reg.RestoreAll()
}
