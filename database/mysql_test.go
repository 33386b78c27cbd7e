package database

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adi27online/meruglobalconnect/models"
)

func newMockStore(t *testing.T) (*MySQLStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewMySQLStore(db), mock
}

func TestCreateTablesExecutesAllStatements(t *testing.T) {
	s, mock := newMockStore(t)
	for i := 0; i < 5; i++ {
		mock.ExpectExec("CREATE TABLE IF NOT EXISTS").WillReturnResult(sqlmock.NewResult(0, 0))
	}

	require.NoError(t, s.CreateTables(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMySQLAcceptFriendRequest(t *testing.T) {
	s, mock := newMockStore(t)
	query := regexp.QuoteMeta("UPDATE friendships SET status = 'accepted', updated_at = ? WHERE pair_key = ? AND requester_id = ? AND status = 'pending'")

	mock.ExpectExec(query).
		WithArgs(sqlmock.AnyArg(), models.PairKey("alice", "bob"), "alice").
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, s.AcceptFriendRequest(context.Background(), "alice", "bob"))

	mock.ExpectExec(query).
		WithArgs(sqlmock.AnyArg(), models.PairKey("alice", "bob"), "alice").
		WillReturnResult(sqlmock.NewResult(0, 0))
	assert.ErrorIs(t, s.AcceptFriendRequest(context.Background(), "alice", "bob"), ErrConflict)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMySQLCreateFriendRequestDuplicateIsConflict(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectExec("INSERT INTO friendships").
		WithArgs(models.PairKey("carol", "dave"), "carol", "dave", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnError(&mysql.MySQLError{Number: errDuplicateEntry, Message: "Duplicate entry"})

	err := s.CreateFriendRequest(context.Background(), "carol", "dave")
	assert.ErrorIs(t, err, ErrConflict)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMySQLDeleteFriendRequestNothingRemoved(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectExec("DELETE FROM friendships").
		WithArgs(models.PairKey("carol", "dave"), "carol").
		WillReturnResult(sqlmock.NewResult(0, 0))

	assert.ErrorIs(t, s.DeleteFriendRequest(context.Background(), "carol", "dave"), ErrConflict)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMySQLAppendMessageCommitsBothWrites(t *testing.T) {
	s, mock := newMockStore(t)
	msg := &models.Message{ID: "m1", ConversationID: "c1", SenderID: "alice", Content: "hello", CreatedAt: time.Now()}

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO messages").
		WithArgs("m1", "c1", "alice", "hello", msg.CreatedAt).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE conversations SET last_message_id").
		WithArgs("m1", msg.CreatedAt, "c1", "alice", "alice").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, s.AppendMessage(context.Background(), msg))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMySQLAppendMessageRollsBackForNonParticipant(t *testing.T) {
	s, mock := newMockStore(t)
	msg := &models.Message{ID: "m1", ConversationID: "c1", SenderID: "mallory", Content: "hi", CreatedAt: time.Now()}

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO messages").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE conversations SET last_message_id").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	assert.ErrorIs(t, s.AppendMessage(context.Background(), msg), ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMySQLFindOrCreateConversation(t *testing.T) {
	s, mock := newMockStore(t)
	now := time.Now()
	key := models.PairKey("alice", "bob")
	row := func() *sqlmock.Rows {
		return sqlmock.NewRows([]string{"id", "pair_key", "user_a", "user_b", "last_message_id", "created_at", "updated_at"}).
			AddRow("c1", key, "alice", "bob", nil, now, now)
	}

	mock.ExpectExec("INSERT INTO conversations").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("SELECT (.+) FROM conversations WHERE pair_key = ?").WithArgs(key).WillReturnRows(row())
	mock.ExpectExec("INSERT INTO conversations").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT (.+) FROM conversations WHERE pair_key = ?").WithArgs(key).WillReturnRows(row())

	first, created, err := s.FindOrCreateConversation(context.Background(), "bob", "alice", now)
	require.NoError(t, err)
	assert.True(t, created)

	second, created, err := s.FindOrCreateConversation(context.Background(), "alice", "bob", now)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, []string{"alice", "bob"}, second.Participants)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMySQLMarkPaid(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectExec("UPDATE users SET is_paid = TRUE").WillReturnResult(sqlmock.NewResult(0, 1))
	changed, err := s.MarkPaid(context.Background(), "u1", time.Now())
	require.NoError(t, err)
	assert.True(t, changed)

	mock.ExpectExec("UPDATE users SET is_paid = TRUE").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT EXISTS").WithArgs("u1").WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
	changed, err = s.MarkPaid(context.Background(), "u1", time.Now())
	require.NoError(t, err)
	assert.False(t, changed)

	mock.ExpectExec("UPDATE users SET is_paid = TRUE").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT EXISTS").WithArgs("ghost").WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
	_, err = s.MarkPaid(context.Background(), "ghost", time.Now())
	assert.ErrorIs(t, err, ErrNotFound)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBuildUserSearch(t *testing.T) {
	where, args := buildUserSearch(UserFilter{
		ExcludeIDs:  []string{"me", "friend"},
		Query:       "50%_Off",
		QueryFields: []string{"name", "bio", "unknown"},
		City:        "Nairobi",
	})

	assert.Equal(t,
		"id NOT IN (?,?) AND LOWER(city) LIKE ? AND (LOWER(name) LIKE ? OR LOWER(profile->>'$.bio') LIKE ?)",
		where)
	assert.Equal(t, []any{"me", "friend", "%nairobi%", `%50\%\_off%`, `%50\%\_off%`}, args)

	where, args = buildUserSearch(UserFilter{})
	assert.Equal(t, "1 = 1", where)
	assert.Empty(t, args)
}

func TestMySQLListPostsDecodesPayloads(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT payload FROM posts WHERE board = ? AND active_until <> '' AND active_until >= ? ORDER BY sort_key, id")).
		WithArgs("guest_hosts", "2026-01-01").
		WillReturnRows(sqlmock.NewRows([]string{"payload"}).
			AddRow([]byte(`{"id":"g1","city":"Meru"}`)).
			AddRow([]byte(`{"id":"g2","city":"Embu"}`)))

	var offers []models.GuestHostOffer
	err := s.ListPosts(context.Background(), models.BoardGuestHosts, PostQuery{ActiveOn: "2026-01-01"}, &offers)
	require.NoError(t, err)
	require.Len(t, offers, 2)
	assert.Equal(t, "g1", offers[0].ID)
	assert.Equal(t, "Embu", offers[1].City)
	assert.NoError(t, mock.ExpectationsWereMet())
}
