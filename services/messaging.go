package services

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/pkg/errors"

	"github.com/adi27online/meruglobalconnect/apperrors"
	"github.com/adi27online/meruglobalconnect/database"
	"github.com/adi27online/meruglobalconnect/metrics"
	"github.com/adi27online/meruglobalconnect/models"
	"github.com/adi27online/meruglobalconnect/utils"
)

type MessagingService struct {
	Deps
}

func NewMessagingService(deps Deps) *MessagingService {
	return &MessagingService{Deps: deps.withDefaults()}
}

// StartConversation returns the conversation between two friends, creating
// it on first use. created is true only for the call that created it.
func (s *MessagingService) StartConversation(ctx context.Context, initiatorID, peerID string) (*models.Conversation, bool, error) {
	if peerID == "" {
		return nil, false, apperrors.BadRequest("friendId is required")
	}
	if peerID == initiatorID {
		return nil, false, apperrors.BadRequest("you cannot start a conversation with yourself")
	}

	ctx, cancel := s.db(ctx)
	defer cancel()

	initiator, err := s.Store.GetUser(ctx, initiatorID)
	if err != nil {
		return nil, false, storeError(err, "user not found")
	}
	if _, err := s.Store.GetUser(ctx, peerID); err != nil {
		return nil, false, storeError(err, "user not found")
	}
	if initiator.RelationshipTo(peerID) != models.StatusFriends {
		return nil, false, apperrors.Forbidden("you can only start conversations with friends")
	}

	conv, created, err := s.Store.FindOrCreateConversation(ctx, initiatorID, peerID, s.Now())
	if err != nil {
		return nil, false, apperrors.Internal(err)
	}
	return conv, created, nil
}

func (s *MessagingService) SendMessage(ctx context.Context, senderID, conversationID, content string) (*models.Message, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, apperrors.BadRequest("message content cannot be empty")
	}
	if utf8.RuneCountInString(content) > models.MaxMessageLength {
		return nil, apperrors.BadRequest("message content is too long")
	}

	ctx, cancel := s.db(ctx)
	defer cancel()

	conv, err := s.member(ctx, conversationID, senderID)
	if err != nil {
		return nil, err
	}

	msg := &models.Message{
		ID:             utils.GenerateOrderedID(),
		ConversationID: conv.ID,
		SenderID:       senderID,
		Content:        content,
		CreatedAt:      s.Now(),
	}
	if err := s.Store.AppendMessage(ctx, msg); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, apperrors.NotFound("conversation not found")
		}
		return nil, apperrors.Internal(err)
	}

	metrics.MessageSent()
	s.Notifier.Notify(conv.Participants, EventNewMessage, msg)
	return msg, nil
}

// ListMessages returns the conversation oldest first.
func (s *MessagingService) ListMessages(ctx context.Context, conversationID, requesterID string) ([]*models.Message, error) {
	ctx, cancel := s.db(ctx)
	defer cancel()

	if _, err := s.member(ctx, conversationID, requesterID); err != nil {
		return nil, err
	}
	msgs, err := s.Store.ListMessages(ctx, conversationID)
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	if msgs == nil {
		msgs = []*models.Message{}
	}
	return msgs, nil
}

// ListConversations returns the user's conversations, most recently active
// first, with the other participant and the last message filled in.
func (s *MessagingService) ListConversations(ctx context.Context, userID string) ([]models.ConversationResponse, error) {
	ctx, cancel := s.db(ctx)
	defer cancel()

	convs, err := s.Store.ListConversations(ctx, userID)
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	out := make([]models.ConversationResponse, 0, len(convs))
	if len(convs) == 0 {
		return out, nil
	}

	var peerIDs, lastIDs []string
	for _, c := range convs {
		peerIDs = append(peerIDs, c.OtherParticipant(userID))
		if c.LastMessageID != "" {
			lastIDs = append(lastIDs, c.LastMessageID)
		}
	}

	peers, err := s.Store.GetUsers(ctx, peerIDs)
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	users := make(map[string]*models.User, len(peers))
	for _, u := range peers {
		users[u.ID] = u
	}

	messages := map[string]*models.Message{}
	if len(lastIDs) > 0 {
		last, err := s.Store.GetMessages(ctx, lastIDs)
		if err != nil {
			return nil, apperrors.Internal(err)
		}
		for _, m := range last {
			messages[m.ID] = m
		}
	}

	for _, c := range convs {
		resp := models.ConversationResponse{ID: c.ID, UpdatedAt: c.UpdatedAt}
		peerID := c.OtherParticipant(userID)
		if u, ok := users[peerID]; ok {
			resp.OtherParticipant = u.ToSummary()
		} else {
			resp.OtherParticipant = models.UserSummary{ID: peerID}
		}
		if m, ok := messages[c.LastMessageID]; ok {
			resp.LastMessage = m.ToPreview()
		}
		out = append(out, resp)
	}
	return out, nil
}

func (s *MessagingService) member(ctx context.Context, conversationID, userID string) (*models.Conversation, error) {
	conv, err := s.Store.GetConversation(ctx, conversationID)
	if err != nil {
		return nil, storeError(err, "conversation not found")
	}
	if !conv.HasParticipant(userID) {
		return nil, apperrors.Forbidden("you are not a participant in this conversation")
	}
	return conv, nil
}
