package discord

import (
	"testing"

	"github.com/bwmarrin/discordgo"
)

func commandInteraction(name string) *discordgo.InteractionCreate {
	return &discordgo.InteractionCreate{
		Interaction: &discordgo.Interaction{
			Type: discordgo.InteractionApplicationCommand,
			Data: discordgo.ApplicationCommandInteractionData{Name: name},
		},
	}
}

func TestRouterDispatchesByName(t *testing.T) {
	t.Parallel()
	r := NewCommandRouter()
	called := ""
	r.RegisterCommand(&discordgo.ApplicationCommand{Name: "stop"}, func(s *discordgo.Session, i *discordgo.InteractionCreate) {
		called = i.ApplicationCommandData().Name
	})
	r.RegisterCommand(&discordgo.ApplicationCommand{Name: "show-settings"}, func(s *discordgo.Session, i *discordgo.InteractionCreate) {
		t.Error("wrong handler invoked")
	})

	r.Handle(nil, commandInteraction("stop"))
	if called != "stop" {
		t.Errorf("expected stop handler to run, got %q", called)
	}
}

func TestRouterIgnoresUnknownCommand(t *testing.T) {
	t.Parallel()
	r := NewCommandRouter()
	r.Handle(nil, commandInteraction("missing"))
}

func TestRouterIgnoresNonCommandInteractions(t *testing.T) {
	t.Parallel()
	r := NewCommandRouter()
	r.RegisterCommand(&discordgo.ApplicationCommand{Name: "stop"}, func(s *discordgo.Session, i *discordgo.InteractionCreate) {
		t.Error("handler should not run for ping interactions")
	})
	r.Handle(nil, &discordgo.InteractionCreate{
		Interaction: &discordgo.Interaction{Type: discordgo.InteractionPing},
	})
}

func TestApplicationCommandsSorted(t *testing.T) {
	t.Parallel()
	r := NewCommandRouter()
	noop := func(s *discordgo.Session, i *discordgo.InteractionCreate) {}
	r.RegisterCommand(&discordgo.ApplicationCommand{Name: "stop"}, noop)
	r.RegisterCommand(&discordgo.ApplicationCommand{Name: "set-voice-category"}, noop)
	r.RegisterCommand(&discordgo.ApplicationCommand{Name: "show-settings"}, noop)

	defs := r.ApplicationCommands()
	if len(defs) != 3 {
		t.Fatalf("expected 3 definitions, got %d", len(defs))
	}
	for i := 1; i < len(defs); i++ {
		if defs[i-1].Name > defs[i].Name {
			t.Errorf("definitions not sorted: %q before %q", defs[i-1].Name, defs[i].Name)
		}
	}
}
