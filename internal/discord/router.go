package discord

import (
	"log/slog"
	"sort"
	"sync"

	"github.com/bwmarrin/discordgo"
)

// CommandHandler handles a single application command interaction.
type CommandHandler func(s *discordgo.Session, i *discordgo.InteractionCreate)

type registeredCommand struct {
	definition *discordgo.ApplicationCommand
	handler    CommandHandler
}

// CommandRouter dispatches application command interactions to handlers
// keyed by command name.
type CommandRouter struct {
	mu       sync.RWMutex
	commands map[string]registeredCommand
}

func NewCommandRouter() *CommandRouter {
	return &CommandRouter{commands: make(map[string]registeredCommand)}
}

// RegisterCommand binds a command definition and its handler. Registering
// the same name twice replaces the previous binding.
func (r *CommandRouter) RegisterCommand(def *discordgo.ApplicationCommand, handler CommandHandler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.commands[def.Name] = registeredCommand{definition: def, handler: handler}
}

// ApplicationCommands returns the definitions of every registered
// command, ordered by name for stable bulk registration.
func (r *CommandRouter) ApplicationCommands() []*discordgo.ApplicationCommand {
	r.mu.RLock()
	defer r.mu.RUnlock()
	defs := make([]*discordgo.ApplicationCommand, 0, len(r.commands))
	for _, cmd := range r.commands {
		defs = append(defs, cmd.definition)
	}
	sort.Slice(defs, func(i, j int) bool { return defs[i].Name < defs[j].Name })
	return defs
}

// Handle routes an interaction to its registered handler. Unknown or
// non-command interactions are logged and dropped.
func (r *CommandRouter) Handle(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.Type != discordgo.InteractionApplicationCommand {
		return
	}
	name := i.ApplicationCommandData().Name

	r.mu.RLock()
	cmd, ok := r.commands[name]
	r.mu.RUnlock()
	if !ok {
		slog.Warn("discord: no handler for command", "command", name)
		return
	}
	cmd.handler(s, i)
}
