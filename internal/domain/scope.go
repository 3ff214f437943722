package domain

import "strings"

// Scope identifies the conversation a message belongs to: a whole space, or a
// single thread within a space when the space threads its messages. Ledger and
// configuration state is partitioned by scope.
type Scope string

// DeriveScope returns the scope key for an incoming message. In a threaded
// space the thread name (which embeds the space name as a prefix) is the
// scope; otherwise the space name is. Exactly one scope is derived per
// message.
func DeriveScope(spaceName, threadName string, threaded bool) Scope {
	if threaded && threadName != "" {
		return Scope(threadName)
	}
	return Scope(spaceName)
}

// Contains reports whether child is s itself or a thread scope nested under
// s. Used to tear down every ledger belonging to a space when the bot is
// removed from it.
func (s Scope) Contains(child Scope) bool {
	if s == child {
		return true
	}
	return strings.HasPrefix(string(child), string(s)+"/")
}
