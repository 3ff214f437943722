package controllers

import (
	"github.com/chatrelay/chatrelay/internal/domain"
)

// chatEvent is the inbound webhook payload, shaped like a Google Chat event.
// Only the fields the bot consumes are declared.
type chatEvent struct {
	Type  string `json:"type"`
	Token string `json:"token"`

	Space struct {
		Name                string `json:"name"`
		Type                string `json:"type"`
		SingleUserBotDM     bool   `json:"singleUserBotDm"`
		SpaceThreadingState string `json:"spaceThreadingState"`
	} `json:"space"`

	Message struct {
		Text         string `json:"text"`
		ArgumentText string `json:"argumentText"`

		Thread struct {
			Name string `json:"name"`
		} `json:"thread"`

		Sender struct {
			Name        string `json:"name"`
			DisplayName string `json:"displayName"`
		} `json:"sender"`
	} `json:"message"`

	User struct {
		Name        string `json:"name"`
		DisplayName string `json:"displayName"`
	} `json:"user"`
}

const (
	eventTypeMessage          = "MESSAGE"
	eventTypeAddedToSpace     = "ADDED_TO_SPACE"
	eventTypeRemovedFromSpace = "REMOVED_FROM_SPACE"

	threadedMessagesState = "THREADED_MESSAGES"
	spaceTypeDM           = "DM"
)

func (e *chatEvent) threaded() bool {
	return e.Space.SpaceThreadingState == threadedMessagesState
}

func (e *chatEvent) oneToOne() bool {
	return e.Space.SingleUserBotDM || e.Space.Type == spaceTypeDM
}

func (e *chatEvent) scope() domain.Scope {
	return domain.DeriveScope(e.Space.Name, e.Message.Thread.Name, e.threaded())
}

func (e *chatEvent) sender() string {
	if e.Message.Sender.Name != "" {
		return e.Message.Sender.Name
	}
	return e.User.Name
}

// messageText prefers argumentText, which has the bot mention already
// stripped by the platform.
func (e *chatEvent) messageText() string {
	if e.Message.ArgumentText != "" {
		return e.Message.ArgumentText
	}
	return e.Message.Text
}

func (e *chatEvent) toMessageReceived() domain.MessageReceived {
	return domain.MessageReceived{
		Scope:    e.scope(),
		Sender:   e.sender(),
		Text:     e.messageText(),
		OneToOne: e.oneToOne(),
	}
}

// chatResponse is the outbound webhook payload: text plus an optional
// minimal card carrying generated images.
type chatResponse struct {
	Text    string     `json:"text,omitempty"`
	CardsV2 []cardItem `json:"cardsV2,omitempty"`
}

type cardItem struct {
	CardID string `json:"cardId"`
	Card   card   `json:"card"`
}

type card struct {
	Sections []cardSection `json:"sections"`
}

type cardSection struct {
	Widgets []cardWidget `json:"widgets"`
}

type cardWidget struct {
	Image cardImage `json:"image"`
}

type cardImage struct {
	ImageURL string `json:"imageUrl"`
}

func renderResponse(resp domain.Response) chatResponse {
	out := chatResponse{Text: resp.Text}

	if len(resp.ImageURLs) == 0 {
		return out
	}

	widgets := make([]cardWidget, 0, len(resp.ImageURLs))
	for _, url := range resp.ImageURLs {
		widgets = append(widgets, cardWidget{Image: cardImage{ImageURL: url}})
	}

	out.CardsV2 = []cardItem{{
		CardID: "images",
		Card:   card{Sections: []cardSection{{Widgets: widgets}}},
	}}
	return out
}
