package model

import (
	"strconv"
	"strings"
	"time"
)

// ThreadID identifies a chat thread.
type ThreadID int64

// String renders the id in base 10.
func (id ThreadID) String() string { return strconv.FormatInt(int64(id), 10) }

// ParseThreadID parses a base-10 thread id. Zero and negative values are rejected.
func ParseThreadID(raw string) (ThreadID, bool) {
	n, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || n < 1 {
		return 0, false
	}
	return ThreadID(n), true
}

// MessageID identifies a chat message.
type MessageID int64

// ChatThread is the single conversation between two users. User1 is always
// the lower id.
type ChatThread struct {
	ID        ThreadID
	User1     UserID
	User2     UserID
	CreatedAt time.Time
}

// ThreadPair orders two participants the way ChatThread stores them.
func ThreadPair(a, b UserID) (UserID, UserID) {
	if a > b {
		return b, a
	}
	return a, b
}

// Has reports whether id takes part in t.
func (t ChatThread) Has(id UserID) bool { return id == t.User1 || id == t.User2 }

// Other returns the participant that is not id.
func (t ChatThread) Other(id UserID) UserID {
	if id == t.User1 {
		return t.User2
	}
	return t.User1
}

// ChatMessage is one message posted to a thread.
type ChatMessage struct {
	ID        MessageID
	ThreadID  ThreadID
	SenderID  UserID
	Content   string
	CreatedAt time.Time
}
