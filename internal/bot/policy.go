package bot

import (
	"fmt"

	"linkpeek/internal/config"
)

// AccessPolicy decides which chats the bot serves. The mode is fixed at
// startup and never inferred from list emptiness: open mode serves everyone,
// allowlist mode requires a non-empty set.
type AccessPolicy struct {
	open  bool
	chats map[int64]struct{}
}

func NewAccessPolicy(mode string, chats []int64) (AccessPolicy, error) {
	switch mode {
	case config.AccessOpen:
		return AccessPolicy{open: true}, nil
	case config.AccessAllowlist:
		if len(chats) == 0 {
			return AccessPolicy{}, fmt.Errorf("allowlist mode requires at least one chat")
		}
		set := make(map[int64]struct{}, len(chats))
		for _, id := range chats {
			set[id] = struct{}{}
		}
		return AccessPolicy{chats: set}, nil
	default:
		return AccessPolicy{}, fmt.Errorf("unknown access mode %q", mode)
	}
}

// Open reports whether the policy serves every chat.
func (p AccessPolicy) Open() bool { return p.open }

// Allowed reports whether the chat may use the bot.
func (p AccessPolicy) Allowed(chatID int64) bool {
	if p.open {
		return true
	}
	_, ok := p.chats[chatID]
	return ok
}
