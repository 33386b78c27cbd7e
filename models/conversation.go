package models

import (
	"slices"
	"time"
)

type Conversation struct {
	ID            string    `json:"id" bson:"_id"`
	Participants  []string  `json:"participants" bson:"participants"`
	PairKey       string    `json:"-" bson:"pairKey"`
	LastMessageID string    `json:"lastMessageId,omitempty" bson:"lastMessageId,omitempty"`
	CreatedAt     time.Time `json:"createdAt" bson:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt" bson:"updatedAt"`
}

type ConversationResponse struct {
	ID               string          `json:"id"`
	OtherParticipant UserSummary     `json:"otherParticipant"`
	LastMessage      *MessagePreview `json:"lastMessage"`
	UpdatedAt        time.Time       `json:"updatedAt"`
}

// PairKey identifies an unordered pair of users.
func PairKey(a, b string) string {
	if a > b {
		a, b = b, a
	}
	return a + ":" + b
}

// OrderedPair returns the pair lowest id first.
func OrderedPair(a, b string) (string, string) {
	if a > b {
		return b, a
	}
	return a, b
}

func NewConversation(id, a, b string, now time.Time) *Conversation {
	first, second := OrderedPair(a, b)
	return &Conversation{
		ID:           id,
		Participants: []string{first, second},
		PairKey:      PairKey(a, b),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

func (c *Conversation) HasParticipant(userID string) bool {
	return slices.Contains(c.Participants, userID)
}

// OtherParticipant returns the participant that is not userID.
func (c *Conversation) OtherParticipant(userID string) string {
	for _, p := range c.Participants {
		if p != userID {
			return p
		}
	}
	return ""
}
