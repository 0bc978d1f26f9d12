// Package mgr sequences the daemon's collaborators (dispatcher, capture,
// query responder, purge loop) the way safing/portmaster's service/mgr
// package sequences its modules, trimmed to the single Group/Module shape
// this daemon needs: Start everything in order, Stop in reverse on
// shutdown. Group.Stop does not unban anything; cmd/peerguardd calls
// Firewall.Shutdown after it for that.
package mgr

import (
	"context"
	"fmt"
)

// Module is a manage-able daemon component.
type Module interface {
	Start(ctx context.Context) error
	Stop() error
}

// Group runs a fixed, ordered set of modules.
type Group struct {
	modules []namedModule
}

type namedModule struct {
	name   string
	module Module
}

// NewGroup returns an empty group.
func NewGroup() *Group {
	return &Group{}
}

// Add appends a module to the group's start order.
func (g *Group) Add(name string, m Module) {
	if m == nil {
		return
	}
	g.modules = append(g.modules, namedModule{name: name, module: m})
}

// Start starts all modules in order. If one fails, every module started so
// far is stopped in reverse order and the error is returned.
func (g *Group) Start(ctx context.Context) error {
	for i, nm := range g.modules {
		if err := nm.module.Start(ctx); err != nil {
			g.stopFrom(i - 1)
			return fmt.Errorf("failed to start %s: %w", nm.name, err)
		}
	}
	return nil
}

// Stop stops all modules in reverse start order.
func (g *Group) Stop() {
	g.stopFrom(len(g.modules) - 1)
}

func (g *Group) stopFrom(index int) {
	for i := index; i >= 0; i-- {
		_ = g.modules[i].module.Stop()
	}
}
