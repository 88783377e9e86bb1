package command

import (
	"context"
	"fmt"
	"strings"

	"github.com/nidhogg/boutique-stylist/internal/gateway"
)

// StatusProvider provides adapter connection status.
type StatusProvider interface {
	StatusAll() []gateway.AdapterStatus
}

// RegisterBuiltins registers /help and /status.
func RegisterBuiltins(reg *Registry, status StatusProvider) {
	reg.Register(helpCommand(reg))
	reg.Register(statusCommand(status))
}

func helpCommand(reg *Registry) *Command {
	return &Command{
		Name:        "help",
		Description: "List all available commands",
		Usage:       "/help",
		Handler: func(_ context.Context, _ string, _ *Origin) (*Reply, error) {
			var b strings.Builder
			b.WriteString("Ask me for shopping ideas in plain words, or use:\n")
			for _, c := range reg.List() {
				fmt.Fprintf(&b, "  /%s: %s\n", c.Name, c.Description)
				if len(c.Aliases) > 0 {
					fmt.Fprintf(&b, "    Also: /%s\n", strings.Join(c.Aliases, ", /"))
				}
				if c.Usage != "" {
					fmt.Fprintf(&b, "    Usage: %s\n", c.Usage)
				}
			}
			return &Reply{Content: b.String()}, nil
		},
	}
}

func statusCommand(provider StatusProvider) *Command {
	return &Command{
		Name:        "status",
		Description: "Show adapter connection status",
		Usage:       "/status",
		Handler: func(_ context.Context, _ string, _ *Origin) (*Reply, error) {
			adapters := provider.StatusAll()
			if len(adapters) == 0 {
				return &Reply{Content: "No adapters configured."}, nil
			}
			var b strings.Builder
			b.WriteString("Adapter status:\n")
			for _, a := range adapters {
				state := "disconnected"
				if a.Connected {
					state = "connected"
				}
				fmt.Fprintf(&b, "  %s: %s", a.Platform, state)
				if a.Error != "" {
					fmt.Fprintf(&b, " (%s)", a.Error)
				}
				b.WriteByte('\n')
			}
			return &Reply{Content: b.String(), Data: adapters}, nil
		},
	}
}
