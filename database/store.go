package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/adi27online/meruglobalconnect/models"
)

var (
	ErrNotFound  = errors.New("not found")
	ErrDuplicate = errors.New("duplicate")
	// ErrConflict reports a guarded write that found the expected state gone.
	ErrConflict = errors.New("conflict")
)

// UserFilter narrows a user search. Query is matched case-insensitively as a
// substring against each of QueryFields; the other string filters are
// substring matches on the named field.
type UserFilter struct {
	ExcludeIDs    []string
	Query         string
	QueryFields   []string
	City          string
	State         string
	Country       string
	Gender        string
	MatrimonyOnly bool
	Limit         int
}

// PostQuery controls bulletin listings. ActiveOn (YYYY-MM-DD) keeps posts
// whose ActiveUntil is on or after that day; empty keeps everything that is
// active at all.
type PostQuery struct {
	ActiveOn   string
	Descending bool
}

type UserStore interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUser(ctx context.Context, id string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUsers(ctx context.Context, ids []string) ([]*models.User, error)
	FindUsers(ctx context.Context, filter UserFilter) ([]*models.User, error)
	UpdateProfile(ctx context.Context, id string, profile models.Profile, now time.Time) error
	SetVerificationToken(ctx context.Context, id, token string, expires time.Time) error
	// ConsumeVerificationToken marks the owner of an unexpired token verified
	// and clears the token.
	ConsumeVerificationToken(ctx context.Context, token string, now time.Time) (*models.User, error)
	// MarkPaid reports whether the flag changed.
	MarkPaid(ctx context.Context, id string, now time.Time) (bool, error)
	SetProfilePicture(ctx context.Context, id, url string, now time.Time) error
	AddMatrimonyPictures(ctx context.Context, id string, urls []string, now time.Time) error
}

// RelationshipStore mutates both sides of a pair as one unit. Every method
// returns ErrConflict when the state it expects is no longer there.
type RelationshipStore interface {
	CreateFriendRequest(ctx context.Context, from, to string) error
	AcceptFriendRequest(ctx context.Context, requester, recipient string) error
	DeleteFriendRequest(ctx context.Context, requester, recipient string) error
}

type ConversationStore interface {
	// FindOrCreateConversation reports created=true only for the call that
	// inserted the conversation.
	FindOrCreateConversation(ctx context.Context, a, b string, now time.Time) (*models.Conversation, bool, error)
	GetConversation(ctx context.Context, id string) (*models.Conversation, error)
	ListConversations(ctx context.Context, userID string) ([]*models.Conversation, error)
	// AppendMessage stores msg and moves the conversation's last message
	// pointer to it in one unit.
	AppendMessage(ctx context.Context, msg *models.Message) error
	ListMessages(ctx context.Context, conversationID string) ([]*models.Message, error)
	GetMessages(ctx context.Context, ids []string) ([]*models.Message, error)
}

type PostStore interface {
	// SavePost inserts or replaces post by id.
	SavePost(ctx context.Context, post models.Post) error
	GetPost(ctx context.Context, board models.Board, id string, dst models.Post) error
	// ListPosts decodes into dst, a pointer to a slice of the board's type.
	ListPosts(ctx context.Context, board models.Board, q PostQuery, dst any) error
}

type Store interface {
	UserStore
	RelationshipStore
	ConversationStore
	PostStore
	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}

type Options struct {
	Driver        string
	MongoURI      string
	MongoDatabase string
	MysqlDSN      string
}

// Open connects the configured backend and prepares its schema.
func Open(ctx context.Context, opts Options) (Store, error) {
	switch opts.Driver {
	case "mongo", "":
		return OpenMongo(ctx, opts.MongoURI, opts.MongoDatabase)
	case "mysql":
		return OpenMySQL(ctx, opts.MysqlDSN)
	case "memory":
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", opts.Driver)
	}
}

func newID() string {
	return uuid.New().String()
}
