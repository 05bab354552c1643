package provider

import (
	"fmt"

	"github.com/paddock/raceline/core"
	"github.com/paddock/raceline/utils/log"

	"golang.org/x/time/rate"
)

// Manager manages provider clients for race types.
type Manager struct {
	clients map[core.RaceType]Client
}

// NewManager creates a new empty Manager.
func NewManager() *Manager {
	return &Manager{make(map[core.RaceType]Client)}
}

// Register registers c as the client serving raceType. If limiter is non-nil,
// every call through c first waits on limiter. A single limiter may be shared
// between race types served by the same upstream.
func (m *Manager) Register(raceType core.RaceType, c Client, limiter *rate.Limiter) error {
	if _, ok := m.clients[raceType]; ok {
		return fmt.Errorf("race type %s already registered", raceType)
	}
	if limiter != nil {
		c = throttle(c, limiter)
	}
	m.clients[raceType] = c
	log.With("race_type", raceType, "throttled", limiter != nil).Info("Registered provider client")
	return nil
}

// GetClient returns the Client serving raceType. Returns
// core.ErrRaceTypeNotFound if none is registered.
func (m *Manager) GetClient(raceType core.RaceType) (Client, error) {
	c, ok := m.clients[raceType]
	if !ok {
		return nil, core.ErrRaceTypeNotFound
	}
	return c, nil
}

// RaceTypes returns the registered race types in canonical order.
func (m *Manager) RaceTypes() []core.RaceType {
	var types []core.RaceType
	for _, t := range core.AllRaceTypes() {
		if _, ok := m.clients[t]; ok {
			types = append(types, t)
		}
	}
	return types
}
