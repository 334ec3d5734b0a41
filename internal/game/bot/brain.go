package bot

import (
	"sync"

	"github.com/cory-johannsen/arena/internal/scripting"
)

// Brain holds the situation of every bot that is currently planning, so Lua
// preconditions can query it through bot.info. Sessions plan concurrently,
// so the table has its own lock.
type Brain struct {
	mu    sync.Mutex
	infos map[string]scripting.BotInfo
}

// NewBrain returns an empty Brain.
func NewBrain() *Brain {
	return &Brain{infos: make(map[string]scripting.BotInfo)}
}

// Lookup returns a copy of uid's situation, or nil when uid is not planning.
// It is the scripting.Manager GetBot callback.
func (b *Brain) Lookup(uid string) *scripting.BotInfo {
	b.mu.Lock()
	defer b.mu.Unlock()
	info, ok := b.infos[uid]
	if !ok {
		return nil
	}
	return &info
}

func (b *Brain) remember(info scripting.BotInfo) {
	b.mu.Lock()
	b.infos[info.UID] = info
	b.mu.Unlock()
}

func (b *Brain) forget(uid string) {
	b.mu.Lock()
	delete(b.infos, uid)
	b.mu.Unlock()
}
