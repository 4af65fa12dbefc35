package tui

import (
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/rulehub/rulehub-backend/internal/browse"
)

// snapshotMsg carries the newest coordinator snapshot into the tea loop
type snapshotMsg struct {
	snap         browse.Snapshot
	closeFilters bool
}

// Bridge implements browse.View without ever blocking the coordinator:
// Render keeps only the latest snapshot and wakes the tea loop, which
// collects it through Wait.
type Bridge struct {
	mu           sync.Mutex
	latest       browse.Snapshot
	closeFilters bool
	notify       chan struct{}
}

// NewBridge 코디네이터 -> bubbletea 연결
func NewBridge() *Bridge {
	return &Bridge{notify: make(chan struct{}, 1)}
}

func (b *Bridge) Render(s browse.Snapshot) {
	b.mu.Lock()
	if s.Version >= b.latest.Version {
		b.latest = s
	}
	b.mu.Unlock()
	b.wake()
}

func (b *Bridge) CloseFilters() {
	b.mu.Lock()
	b.closeFilters = true
	b.mu.Unlock()
	b.wake()
}

// Wait returns a command that blocks until the next render
func (b *Bridge) Wait() tea.Cmd {
	return func() tea.Msg {
		<-b.notify
		b.mu.Lock()
		defer b.mu.Unlock()
		msg := snapshotMsg{snap: b.latest, closeFilters: b.closeFilters}
		b.closeFilters = false
		return msg
	}
}

func (b *Bridge) wake() {
	select {
	case b.notify <- struct{}{}:
	default:
	}
}
