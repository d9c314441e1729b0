package shell

import (
	"context"
	"errors"
	"sync"
)

// Module names, as used in routes.
const (
	Dashboard = "dashboard"
	RoomMap   = "roommap"
	CheckIn   = "checkin"
	Clients   = "clients"
	Users     = "users"
	Analytics = "analytics"
)

var ErrUnknownModule = errors.New("unknown module")

// Module is a dashboard section and the load it needs the first time it is
// opened.
type Module struct {
	Name string
	Load func(ctx context.Context) error
}

type Shell struct {
	mu      sync.Mutex
	modules map[string]Module
	loaded  map[string]bool
	// loading serialises activations of one module without holding up the
	// others while a load is in flight.
	loading map[string]*sync.Mutex
}

func New(modules ...Module) *Shell {
	s := &Shell{
		modules: make(map[string]Module, len(modules)),
		loaded:  make(map[string]bool, len(modules)),
		loading: make(map[string]*sync.Mutex, len(modules)),
	}
	for _, m := range modules {
		s.modules[m.Name] = m
		s.loading[m.Name] = &sync.Mutex{}
	}
	return s
}

// Activate runs the module's initial load once per session and reports
// whether it ran now. A failed load leaves the module inactive so the next
// activation tries again.
func (s *Shell) Activate(ctx context.Context, name string) (bool, error) {
	m, ok := s.modules[name]
	if !ok {
		return false, ErrUnknownModule
	}
	lock := s.loading[name]
	lock.Lock()
	defer lock.Unlock()

	if s.isLoaded(name) {
		return false, nil
	}
	if m.Load != nil {
		if err := m.Load(ctx); err != nil {
			return false, err
		}
	}
	s.mu.Lock()
	s.loaded[name] = true
	s.mu.Unlock()
	return true, nil
}

func (s *Shell) isLoaded(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loaded[name]
}

// Active lists the modules loaded so far.
func (s *Shell) Active() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.loaded))
	for _, name := range []string{Dashboard, RoomMap, CheckIn, Clients, Users, Analytics} {
		if s.loaded[name] {
			out = append(out, name)
		}
	}
	return out
}
