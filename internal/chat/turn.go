// Package chat turns conversation history into model prompts.
package chat

// Role names the speaker of a turn. Values are passed through unvalidated.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is one message of a conversation.
type Turn struct {
	Role    Role
	Content string
}

// Window keeps the n most recent turns. n <= 0 keeps everything.
func Window(history []Turn, n int) []Turn {
	if n <= 0 || len(history) <= n {
		return history
	}
	return history[len(history)-n:]
}

// Build assembles the turns sent to the template: the system instruction
// (when non-empty) first, then the windowed history, then the new message.
func Build(system string, history []Turn, message string, window int) []Turn {
	kept := Window(history, window)
	out := make([]Turn, 0, len(kept)+2)
	if system != "" {
		out = append(out, Turn{Role: RoleSystem, Content: system})
	}
	out = append(out, kept...)
	return append(out, Turn{Role: RoleUser, Content: message})
}

// FromPairs expands (user, assistant) pairs kept by chat widgets into turns.
// A pair whose assistant half is empty yields only the user turn.
func FromPairs(pairs [][2]string) []Turn {
	out := make([]Turn, 0, 2*len(pairs))
	for _, p := range pairs {
		out = append(out, Turn{Role: RoleUser, Content: p[0]})
		if p[1] != "" {
			out = append(out, Turn{Role: RoleAssistant, Content: p[1]})
		}
	}
	return out
}
