package model

import "time"

// ChatMessage is a message in the global chat.
type ChatMessage struct {
	ID        int64     `json:"-"`
	Nick      string    `json:"nick"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"ts"`
}

// ThreadMessage is a message in an item's discussion thread.
type ThreadMessage struct {
	ID        int64     `json:"-"`
	ItemID    int64     `json:"-"`
	Nick      string    `json:"nick"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"ts"`
}

// Message limits, counted in characters (Unicode code points).
const (
	MaxNickLength = 50
	MaxTextLength = 2000
	DefaultNick   = "Anonymous"
)

// SanitizeNick applies the default nickname and truncates to MaxNickLength.
func SanitizeNick(nick string) string {
	if nick == "" {
		nick = DefaultNick
	}
	return truncate(nick, MaxNickLength)
}

// SanitizeText truncates text to MaxTextLength. It does not trim.
func SanitizeText(text string) string {
	return truncate(text, MaxTextLength)
}

func truncate(s string, n int) string {
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}
