package memory

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/sandevgo/stridemem/internal/core"
)

var ErrNoMessages = errors.New("no messages")

// ParseMessages decodes a JSON array of {role, content} objects. Roles are
// lowercased; only user and assistant turns are accepted.
func ParseMessages(data []byte) ([]core.Message, error) {
	var msgs []core.Message
	if err := json.Unmarshal(data, &msgs); err != nil {
		return nil, fmt.Errorf("invalid messages json: %w", err)
	}
	if len(msgs) == 0 {
		return nil, ErrNoMessages
	}

	for i := range msgs {
		msgs[i].Role = strings.ToLower(strings.TrimSpace(msgs[i].Role))
		if msgs[i].Role != core.RoleUser && msgs[i].Role != core.RoleAssistant {
			return nil, fmt.Errorf("message %d: unsupported role %q", i, msgs[i].Role)
		}
	}
	return msgs, nil
}
