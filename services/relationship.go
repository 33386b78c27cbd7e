package services

import (
	"context"

	"github.com/pkg/errors"

	"github.com/adi27online/meruglobalconnect/apperrors"
	"github.com/adi27online/meruglobalconnect/database"
	"github.com/adi27online/meruglobalconnect/logger"
	"github.com/adi27online/meruglobalconnect/metrics"
	"github.com/adi27online/meruglobalconnect/models"
)

// RelationshipService drives the friend request state machine. Every
// transition is pre-checked against a fresh read and then re-checked by the
// store's guarded write, which reports a lost race as ErrConflict.
type RelationshipService struct {
	Deps
}

func NewRelationshipService(deps Deps) *RelationshipService {
	return &RelationshipService{Deps: deps.withDefaults()}
}

func (s *RelationshipService) SendRequest(ctx context.Context, fromID, toID string) error {
	if toID == "" {
		return apperrors.BadRequest("recipientId is required")
	}
	if fromID == toID {
		return apperrors.BadRequest("you cannot send a friend request to yourself")
	}

	ctx, cancel := s.db(ctx)
	defer cancel()

	sender, err := s.Store.GetUser(ctx, fromID)
	if err != nil {
		return storeError(err, "user not found")
	}
	if _, err := s.Store.GetUser(ctx, toID); err != nil {
		return storeError(err, "recipient not found")
	}

	switch sender.RelationshipTo(toID) {
	case models.StatusFriends:
		return apperrors.Conflict("you are already friends with this user")
	case models.StatusPendingOutgoing:
		return apperrors.Conflict("friend request already sent")
	case models.StatusPendingIncoming:
		return apperrors.Conflict("this user has already sent you a friend request, accept it instead")
	}

	if err := s.Store.CreateFriendRequest(ctx, fromID, toID); err != nil {
		if errors.Is(err, database.ErrConflict) {
			return apperrors.Conflict("a friend request between you and this user already exists")
		}
		return storeError(err, "recipient not found")
	}

	metrics.FriendRequest("sent")
	logger.Info().Str("from", fromID).Str("to", toID).Msg("friend request sent")
	s.Notifier.Notify([]string{toID}, EventFriendRequest, payload{"from": sender.ToSummary()})
	return nil
}

// Accept makes recipient and requester friends.
func (s *RelationshipService) Accept(ctx context.Context, recipientID, requesterID string) error {
	recipient, err := s.pendingIncoming(ctx, recipientID, requesterID)
	if err != nil {
		return err
	}

	ctx, cancel := s.db(ctx)
	defer cancel()
	if err := s.Store.AcceptFriendRequest(ctx, requesterID, recipientID); err != nil {
		if errors.Is(err, database.ErrConflict) {
			return apperrors.Conflict("friend request is no longer pending")
		}
		return storeError(err, "friend request not found")
	}

	metrics.FriendRequest("accepted")
	logger.Info().Str("requester", requesterID).Str("recipient", recipientID).Msg("friend request accepted")
	s.Notifier.Notify([]string{requesterID}, EventFriendRequestAccepted, payload{"by": recipient.ToSummary()})
	return nil
}

func (s *RelationshipService) Reject(ctx context.Context, recipientID, requesterID string) error {
	if _, err := s.pendingIncoming(ctx, recipientID, requesterID); err != nil {
		return err
	}
	return s.deleteRequest(ctx, requesterID, recipientID, "rejected")
}

// Withdraw cancels the caller's own outgoing request.
func (s *RelationshipService) Withdraw(ctx context.Context, requesterID, recipientID string) error {
	if recipientID == "" {
		return apperrors.BadRequest("user id is required")
	}
	if requesterID == recipientID {
		return apperrors.BadRequest("you cannot withdraw a request to yourself")
	}

	dbCtx, cancel := s.db(ctx)
	defer cancel()
	requester, err := s.Store.GetUser(dbCtx, requesterID)
	if err != nil {
		return storeError(err, "user not found")
	}
	if requester.RelationshipTo(recipientID) != models.StatusPendingOutgoing {
		return apperrors.NotFound("friend request not found")
	}
	return s.deleteRequest(ctx, requesterID, recipientID, "withdrawn")
}

func (s *RelationshipService) pendingIncoming(ctx context.Context, recipientID, requesterID string) (*models.User, error) {
	if requesterID == "" {
		return nil, apperrors.BadRequest("senderId is required")
	}
	if recipientID == requesterID {
		return nil, apperrors.BadRequest("you cannot answer your own friend request")
	}

	ctx, cancel := s.db(ctx)
	defer cancel()
	recipient, err := s.Store.GetUser(ctx, recipientID)
	if err != nil {
		return nil, storeError(err, "user not found")
	}
	if recipient.RelationshipTo(requesterID) != models.StatusPendingIncoming {
		return nil, apperrors.NotFound("friend request not found")
	}
	return recipient, nil
}

func (s *RelationshipService) deleteRequest(ctx context.Context, requesterID, recipientID, action string) error {
	ctx, cancel := s.db(ctx)
	defer cancel()
	if err := s.Store.DeleteFriendRequest(ctx, requesterID, recipientID); err != nil {
		if errors.Is(err, database.ErrConflict) {
			return apperrors.Conflict("friend request is no longer pending")
		}
		return storeError(err, "friend request not found")
	}
	metrics.FriendRequest(action)
	logger.Info().Str("requester", requesterID).Str("recipient", recipientID).Str("action", action).Msg("friend request removed")
	return nil
}

func (s *RelationshipService) Friends(ctx context.Context, userID string) ([]models.UserSummary, error) {
	return s.summaries(ctx, userID, func(u *models.User) []string { return u.Friends })
}

func (s *RelationshipService) IncomingRequests(ctx context.Context, userID string) ([]models.UserSummary, error) {
	return s.summaries(ctx, userID, func(u *models.User) []string { return u.IncomingFriendRequests })
}

func (s *RelationshipService) IncomingCount(ctx context.Context, userID string) (int, error) {
	ctx, cancel := s.db(ctx)
	defer cancel()
	user, err := s.Store.GetUser(ctx, userID)
	if err != nil {
		return 0, storeError(err, "user not found")
	}
	return len(user.IncomingFriendRequests), nil
}

// Status reports other as seen from viewer.
func (s *RelationshipService) Status(ctx context.Context, viewerID, otherID string) (models.RelationshipStatus, error) {
	ctx, cancel := s.db(ctx)
	defer cancel()
	viewer, err := s.Store.GetUser(ctx, viewerID)
	if err != nil {
		return "", storeError(err, "user not found")
	}
	return viewer.RelationshipTo(otherID), nil
}

// summaries loads the users named by pick, in the order pick lists them.
// Ids whose user no longer exists are dropped.
func (s *RelationshipService) summaries(ctx context.Context, userID string, pick func(*models.User) []string) ([]models.UserSummary, error) {
	ctx, cancel := s.db(ctx)
	defer cancel()

	user, err := s.Store.GetUser(ctx, userID)
	if err != nil {
		return nil, storeError(err, "user not found")
	}
	ids := pick(user)
	out := make([]models.UserSummary, 0, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	users, err := s.Store.GetUsers(ctx, ids)
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	byID := make(map[string]*models.User, len(users))
	for _, u := range users {
		byID[u.ID] = u
	}
	for _, id := range ids {
		if u, ok := byID[id]; ok {
			out = append(out, u.ToSummary())
		}
	}
	return out, nil
}
