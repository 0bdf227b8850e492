package review

// Agent is a named unit of document analysis. The user picks one or more
// agents per review; each maps to a concrete model invocation.
type Agent struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Model string `json:"model"`
}

// agentOrder fixes the listing order for the registry.
var agentOrder = []string{"claude", "opus", "mini"}

var registry = map[string]Agent{
	"claude": {ID: "claude", Name: "Claude 3.7 Sonnet", Model: "claude-3-7-sonnet-20250219"},
	"opus":   {ID: "opus", Name: "Claude 3 Opus", Model: "claude-3-opus-20240229"},
	"mini":   {ID: "mini", Name: "o3-mini-high", Model: "claude-3-haiku-20240307"},
}

// Agents returns all configured agents in a stable order.
func Agents() []Agent {
	agents := make([]Agent, 0, len(agentOrder))
	for _, id := range agentOrder {
		agents = append(agents, registry[id])
	}
	return agents
}

// Known reports whether id names a configured agent.
func Known(id string) bool {
	_, ok := registry[id]
	return ok
}

// Resolve maps agent ids to their configurations, dropping unknown ids and
// duplicates while preserving the input order.
func Resolve(ids []string) []Agent {
	seen := make(map[string]bool, len(ids))
	agents := make([]Agent, 0, len(ids))
	for _, id := range ids {
		agent, ok := registry[id]
		if !ok || seen[id] {
			continue
		}
		seen[id] = true
		agents = append(agents, agent)
	}
	return agents
}
