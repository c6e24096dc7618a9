package bot

import (
	"context"
	"testing"

	"github.com/bwmarrin/discordgo"
)

// stubModule is a test double for Module
type stubModule struct {
	name          string
	commands      []*discordgo.ApplicationCommand
	handlers      map[string]InteractionHandler
	eventHandlers []EventHandler
	initErr       error
	shutErr       error
}

func (m *stubModule) Name() string                                   { return m.name }
func (m *stubModule) Commands() []*discordgo.ApplicationCommand      { return m.commands }
func (m *stubModule) CommandHandlers() map[string]InteractionHandler { return m.handlers }
func (m *stubModule) EventHandlers() []EventHandler                  { return m.eventHandlers }
func (m *stubModule) Init(deps ModuleDependencies) error             { return m.initErr }
func (m *stubModule) Shutdown(ctx context.Context) error             { return m.shutErr }

func TestRegistry_KeepsRegistrationOrder(t *testing.T) {
	reg := NewRegistry()

	for _, name := range []string{"playback", "admin", "stats"} {
		reg.Register(&stubModule{name: name})
	}

	modules := reg.Modules()
	if len(modules) != 3 {
		t.Fatalf("expected 3 modules, got %d", len(modules))
	}
	for i, want := range []string{"playback", "admin", "stats"} {
		if modules[i].Name() != want {
			t.Errorf("module %d: expected %q, got %q", i, want, modules[i].Name())
		}
	}
}

func TestRegistry_RejectsDuplicateNames(t *testing.T) {
	reg := NewRegistry()
	reg.Register(&stubModule{name: "playback"})

	defer func() {
		if recover() == nil {
			t.Error("expected panic for duplicate module name")
		}
		if n := len(reg.Modules()); n != 1 {
			t.Errorf("expected 1 module after rejected registration, got %d", n)
		}
	}()

	reg.Register(&stubModule{name: "playback"})
}

func TestRegistry_ModulesReturnsSnapshot(t *testing.T) {
	reg := NewRegistry()
	reg.Register(&stubModule{name: "module-1"})

	modules := reg.Modules()
	reg.Register(&stubModule{name: "module-2"})

	if len(modules) != 1 {
		t.Errorf("expected snapshot to have 1 module, got %d", len(modules))
	}
}

func TestGlobalRegistry(t *testing.T) {
	ResetGlobalRegistry()
	t.Cleanup(ResetGlobalRegistry)

	Register(&stubModule{name: "global-test"})

	modules := Modules()
	if len(modules) != 1 {
		t.Fatalf("expected 1 module, got %d", len(modules))
	}
	if modules[0].Name() != "global-test" {
		t.Errorf("expected module name %q, got %q", "global-test", modules[0].Name())
	}

	// A reset registry accepts the same name again.
	ResetGlobalRegistry()
	Register(&stubModule{name: "global-test"})
}
