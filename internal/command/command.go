// Package command implements the slash commands understood by the chat
// gateways.
package command

import (
	"context"
	"sort"
	"strings"
	"sync"
)

// Command is one slash command. Names and aliases match case-insensitively.
type Command struct {
	Name        string
	Aliases     []string
	Description string
	Usage       string
	Handler     Handler
}

// Handler runs a command with the text after its name.
type Handler func(ctx context.Context, args string, origin *Origin) (*Reply, error)

// Origin describes where a command came from.
type Origin struct {
	Platform  string
	ChannelID string
	UserID    string
	UserName  string
}

// Reply is the text sent back to the chat, plus optional structured data.
type Reply struct {
	Content string      `json:"content"`
	Data    interface{} `json:"data,omitempty"`
}

// Registry maps command names and aliases to commands.
type Registry struct {
	mu     sync.RWMutex
	byName map[string]*Command
	names  map[string]*Command
}

func NewRegistry() *Registry {
	return &Registry{byName: make(map[string]*Command), names: make(map[string]*Command)}
}

// Register adds cmd, replacing any command that held the same name or alias.
func (r *Registry) Register(cmd *Command) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.names[strings.ToLower(cmd.Name)] = cmd
	r.byName[strings.ToLower(cmd.Name)] = cmd
	for _, a := range cmd.Aliases {
		r.byName[strings.ToLower(a)] = cmd
	}
}

// IsCommand reports whether input should be dispatched rather than treated
// as a shopping query.
func IsCommand(input string) bool {
	return strings.HasPrefix(strings.TrimSpace(input), "/")
}

// parse splits "/name args" at the first run of whitespace, newlines included.
func parse(input string) (name, args string) {
	input = strings.TrimPrefix(strings.TrimSpace(input), "/")
	i := strings.IndexFunc(input, func(r rune) bool {
		return r == ' ' || r == '\t' || r == '\n' || r == '\r'
	})
	if i < 0 {
		return strings.ToLower(input), ""
	}
	return strings.ToLower(input[:i]), strings.TrimSpace(input[i:])
}

// Dispatch runs the command named in input. Unknown commands get a hint
// instead of an error. The handler runs without holding the registry lock.
func (r *Registry) Dispatch(ctx context.Context, input string, origin *Origin) (*Reply, error) {
	name, args := parse(input)
	r.mu.RLock()
	cmd, ok := r.byName[name]
	r.mu.RUnlock()
	if !ok {
		return &Reply{Content: "I don't know /" + name + ". Try /help, or just tell me what you're shopping for."}, nil
	}
	return cmd.Handler(ctx, args, origin)
}

// List returns each command once, sorted by name.
func (r *Registry) List() []*Command {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Command, 0, len(r.names))
	for _, cmd := range r.names {
		out = append(out, cmd)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
