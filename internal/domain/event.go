package domain

// MessageReceived is an inbound chat message addressed to the bot.
type MessageReceived struct {
	Scope    Scope
	Sender   string
	Text     string
	OneToOne bool
}

// ConversationAdded fires when the bot is added to a space.
type ConversationAdded struct{}

// ConversationRemoved fires when the bot is removed from a space. Scope is
// the parent space scope; thread scopes nested under it are torn down too.
type ConversationRemoved struct {
	Scope Scope
}

// Response is what the bot sends back to the chat surface. A zero Response
// means silence. ImageURLs, when present, are rendered as an image section
// by the transport layer.
type Response struct {
	Text      string
	ImageURLs []string
}

// Empty reports whether the response carries nothing to send.
func (r Response) Empty() bool {
	return r.Text == "" && len(r.ImageURLs) == 0
}
