package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/pkg/errors"

	"github.com/adi27online/meruglobalconnect/logger"
	"github.com/adi27online/meruglobalconnect/models"
)

const errDuplicateEntry = 1062

// MySQLStore keeps one friendships row per unordered pair, so both sides of a
// relationship always change in a single statement.
type MySQLStore struct {
	db *sql.DB
}

var _ Store = (*MySQLStore)(nil)

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func NewMySQLStore(db *sql.DB) *MySQLStore {
	return &MySQLStore{db: db}
}

func OpenMySQL(ctx context.Context, dsn string) (*MySQLStore, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, errors.Wrap(err, "open mysql")
	}
	if err = db.PingContext(ctx); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "ping mysql")
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)

	s := NewMySQLStore(db)
	if err := s.CreateTables(ctx); err != nil {
		db.Close()
		return nil, err
	}

	logger.Info().Msg("mysql connected")
	return s, nil
}

func (s *MySQLStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *MySQLStore) Close(context.Context) error {
	return s.db.Close()
}

func (s *MySQLStore) CreateTables(ctx context.Context) error {
	tables := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id                   VARCHAR(36) PRIMARY KEY,
			email                VARCHAR(255) NOT NULL,
			password             VARCHAR(255) NOT NULL,
			name                 VARCHAR(200) NOT NULL,
			city                 VARCHAR(100) NOT NULL DEFAULT '',
			state                VARCHAR(100) NOT NULL DEFAULT '',
			country              VARCHAR(100) NOT NULL DEFAULT '',
			gender               VARCHAR(32) NOT NULL DEFAULT '',
			is_matrimony_enabled BOOLEAN NOT NULL DEFAULT FALSE,
			profile              JSON NOT NULL,
			is_verified          BOOLEAN NOT NULL DEFAULT FALSE,
			is_paid              BOOLEAN NOT NULL DEFAULT FALSE,
			verification_token   VARCHAR(64),
			verification_expires DATETIME(6),
			created_at           DATETIME(6) NOT NULL,
			updated_at           DATETIME(6) NOT NULL,
			UNIQUE KEY uk_email (email),
			INDEX idx_verification_token (verification_token),
			INDEX idx_matrimony (is_matrimony_enabled, name)
		)`,
		`CREATE TABLE IF NOT EXISTS friendships (
			pair_key     VARCHAR(80) PRIMARY KEY,
			requester_id VARCHAR(36) NOT NULL,
			recipient_id VARCHAR(36) NOT NULL,
			status       ENUM('pending', 'accepted') NOT NULL DEFAULT 'pending',
			created_at   DATETIME(6) NOT NULL,
			updated_at   DATETIME(6) NOT NULL,
			INDEX idx_requester (requester_id),
			INDEX idx_recipient (recipient_id)
		)`,
		`CREATE TABLE IF NOT EXISTS conversations (
			id              VARCHAR(36) PRIMARY KEY,
			pair_key        VARCHAR(80) NOT NULL,
			user_a          VARCHAR(36) NOT NULL,
			user_b          VARCHAR(36) NOT NULL,
			last_message_id VARCHAR(36),
			created_at      DATETIME(6) NOT NULL,
			updated_at      DATETIME(6) NOT NULL,
			UNIQUE KEY uk_pair (pair_key),
			INDEX idx_user_a (user_a, updated_at),
			INDEX idx_user_b (user_b, updated_at)
		)`,
		`CREATE TABLE IF NOT EXISTS messages (
			id              VARCHAR(36) PRIMARY KEY,
			conversation_id VARCHAR(36) NOT NULL,
			sender_id       VARCHAR(36) NOT NULL,
			content         TEXT NOT NULL,
			created_at      DATETIME(6) NOT NULL,
			INDEX idx_conv_time (conversation_id, created_at, id)
		)`,
		`CREATE TABLE IF NOT EXISTS posts (
			board        VARCHAR(32) NOT NULL,
			id           VARCHAR(36) NOT NULL,
			author_id    VARCHAR(36) NOT NULL,
			sort_key     VARCHAR(64) NOT NULL,
			active_until VARCHAR(10) NOT NULL DEFAULT '',
			payload      JSON NOT NULL,
			created_at   DATETIME(6) NOT NULL,
			updated_at   DATETIME(6) NOT NULL,
			PRIMARY KEY (board, id),
			INDEX idx_board_listing (board, active_until, sort_key)
		)`,
	}

	for _, table := range tables {
		if _, err := s.db.ExecContext(ctx, table); err != nil {
			return errors.Wrap(err, "create tables")
		}
	}

	logger.Info().Msg("database tables created successfully")
	return nil
}

func isDuplicate(err error) bool {
	var mysqlErr *mysql.MySQLError
	return errors.As(err, &mysqlErr) && mysqlErr.Number == errDuplicateEntry
}

func placeholders(n int) string {
	return strings.Repeat("?,", n-1) + "?"
}

func stringArgs(ids []string) []any {
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	return args
}

// escapeLikePattern escapes the LIKE wildcards in user input.
func escapeLikePattern(pattern string) string {
	pattern = strings.ReplaceAll(pattern, "\\", "\\\\")
	pattern = strings.ReplaceAll(pattern, "%", "\\%")
	pattern = strings.ReplaceAll(pattern, "_", "\\_")
	return pattern
}

func affected(res sql.Result, missing error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "rows affected")
	}
	if n == 0 {
		return missing
	}
	return nil
}

// Users ------------------------------------------------------------------------

const userColumns = `id, email, password, profile, is_verified, is_paid,
	verification_token, verification_expires, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*models.User, error) {
	var (
		u       models.User
		profile []byte
		token   sql.NullString
		expires sql.NullTime
	)
	if err := row.Scan(&u.ID, &u.Email, &u.Password, &profile, &u.IsVerified, &u.IsPaid,
		&token, &expires, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(profile, &u.Profile); err != nil {
		return nil, errors.Wrap(err, "decode profile")
	}
	u.EmailVerificationToken = token.String
	if expires.Valid {
		u.EmailVerificationTokenExpires = &expires.Time
	}
	return &u, nil
}

func (s *MySQLStore) CreateUser(ctx context.Context, user *models.User) error {
	profile, err := json.Marshal(user.Profile)
	if err != nil {
		return errors.Wrap(err, "encode profile")
	}
	var token sql.NullString
	if user.EmailVerificationToken != "" {
		token = sql.NullString{String: user.EmailVerificationToken, Valid: true}
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO users (id, email, password, name, city, state, country, gender, is_matrimony_enabled,
			profile, is_verified, is_paid, verification_token, verification_expires, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		user.ID, user.Email, user.Password, user.Name, user.City, user.State, user.Country, user.Gender,
		user.IsMatrimonyEnabled, profile, user.IsVerified, user.IsPaid, token, user.EmailVerificationTokenExpires,
		user.CreatedAt, user.UpdatedAt,
	)
	if isDuplicate(err) {
		return ErrDuplicate
	}
	return errors.Wrap(err, "insert user")
}

func (s *MySQLStore) getUserWhere(ctx context.Context, where string, arg any) (*models.User, error) {
	u, err := scanUser(s.db.QueryRowContext(ctx, "SELECT "+userColumns+" FROM users WHERE "+where, arg))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "find user")
	}
	if err := s.attachRelations(ctx, []*models.User{u}); err != nil {
		return nil, err
	}
	return u, nil
}

func (s *MySQLStore) GetUser(ctx context.Context, id string) (*models.User, error) {
	return s.getUserWhere(ctx, "id = ?", id)
}

func (s *MySQLStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.getUserWhere(ctx, "email = ?", email)
}

func (s *MySQLStore) queryUsers(ctx context.Context, query string, args ...any) ([]*models.User, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "query users")
	}
	defer rows.Close()

	users := []*models.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, errors.Wrap(err, "scan user")
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "iterate users")
	}
	if err := s.attachRelations(ctx, users); err != nil {
		return nil, err
	}
	return users, nil
}

func (s *MySQLStore) GetUsers(ctx context.Context, ids []string) ([]*models.User, error) {
	if len(ids) == 0 {
		return []*models.User{}, nil
	}
	return s.queryUsers(ctx,
		"SELECT "+userColumns+" FROM users WHERE id IN ("+placeholders(len(ids))+")",
		stringArgs(ids)...)
}

// attachRelations fills the relationship and conversation sets of users from
// the friendships and conversations tables.
func (s *MySQLStore) attachRelations(ctx context.Context, users []*models.User) error {
	if len(users) == 0 {
		return nil
	}
	byID := make(map[string]*models.User, len(users))
	ids := make([]string, 0, len(users))
	for _, u := range users {
		byID[u.ID] = u
		ids = append(ids, u.ID)
		u.Normalize()
	}
	in := placeholders(len(ids))
	args := append(stringArgs(ids), stringArgs(ids)...)

	rows, err := s.db.QueryContext(ctx,
		"SELECT requester_id, recipient_id, status FROM friendships WHERE requester_id IN ("+in+") OR recipient_id IN ("+in+") ORDER BY created_at",
		args...)
	if err != nil {
		return errors.Wrap(err, "query friendships")
	}
	defer rows.Close()
	for rows.Next() {
		var requester, recipient, status string
		if err := rows.Scan(&requester, &recipient, &status); err != nil {
			return errors.Wrap(err, "scan friendship")
		}
		if u, ok := byID[requester]; ok {
			if status == "accepted" {
				u.Friends = append(u.Friends, recipient)
			} else {
				u.OutgoingFriendRequests = append(u.OutgoingFriendRequests, recipient)
			}
		}
		if u, ok := byID[recipient]; ok {
			if status == "accepted" {
				u.Friends = append(u.Friends, requester)
			} else {
				u.IncomingFriendRequests = append(u.IncomingFriendRequests, requester)
			}
		}
	}
	if err := rows.Err(); err != nil {
		return errors.Wrap(err, "iterate friendships")
	}

	convRows, err := s.db.QueryContext(ctx,
		"SELECT id, user_a, user_b FROM conversations WHERE user_a IN ("+in+") OR user_b IN ("+in+") ORDER BY created_at",
		args...)
	if err != nil {
		return errors.Wrap(err, "query conversations")
	}
	defer convRows.Close()
	for convRows.Next() {
		var id, a, b string
		if err := convRows.Scan(&id, &a, &b); err != nil {
			return errors.Wrap(err, "scan conversation")
		}
		for _, member := range []string{a, b} {
			if u, ok := byID[member]; ok {
				u.Conversations = append(u.Conversations, id)
			}
		}
	}
	return errors.Wrap(convRows.Err(), "iterate conversations")
}

var userSearchColumns = map[string]string{
	"name":       "name",
	"city":       "city",
	"state":      "state",
	"country":    "country",
	"bio":        "profile->>'$.bio'",
	"profession": "profile->>'$.profession'",
	"fatherName": "profile->>'$.fatherName'",
	"motherName": "profile->>'$.motherName'",
	"education":  "profile->>'$.education'",
}

func likeArg(s string) string {
	return "%" + escapeLikePattern(strings.ToLower(s)) + "%"
}

// buildUserSearch renders a UserFilter as a WHERE clause and its arguments.
func buildUserSearch(f UserFilter) (string, []any) {
	var (
		conds []string
		args  []any
	)
	if len(f.ExcludeIDs) > 0 {
		conds = append(conds, "id NOT IN ("+placeholders(len(f.ExcludeIDs))+")")
		args = append(args, stringArgs(f.ExcludeIDs)...)
	}
	if f.MatrimonyOnly {
		conds = append(conds, "is_matrimony_enabled = TRUE")
	}
	for _, c := range []struct{ column, value string }{
		{"city", f.City}, {"state", f.State}, {"country", f.Country},
	} {
		if c.value != "" {
			conds = append(conds, "LOWER("+c.column+") LIKE ?")
			args = append(args, likeArg(c.value))
		}
	}
	if f.Gender != "" {
		conds = append(conds, "LOWER(gender) = ?")
		args = append(args, strings.ToLower(f.Gender))
	}
	if f.Query != "" {
		var ors []string
		for _, field := range f.QueryFields {
			column, ok := userSearchColumns[field]
			if !ok {
				continue
			}
			ors = append(ors, "LOWER("+column+") LIKE ?")
			args = append(args, likeArg(f.Query))
		}
		if len(ors) > 0 {
			conds = append(conds, "("+strings.Join(ors, " OR ")+")")
		}
	}

	where := "1 = 1"
	if len(conds) > 0 {
		where = strings.Join(conds, " AND ")
	}
	return where, args
}

func (s *MySQLStore) FindUsers(ctx context.Context, f UserFilter) ([]*models.User, error) {
	where, args := buildUserSearch(f)
	query := "SELECT " + userColumns + " FROM users WHERE " + where + " ORDER BY name, id"
	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
	}
	return s.queryUsers(ctx, query, args...)
}

func (s *MySQLStore) UpdateProfile(ctx context.Context, id string, p models.Profile, now time.Time) error {
	profile, err := json.Marshal(p)
	if err != nil {
		return errors.Wrap(err, "encode profile")
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE users SET name = ?, city = ?, state = ?, country = ?, gender = ?, is_matrimony_enabled = ?,
			profile = ?, updated_at = ?
		WHERE id = ?`,
		p.Name, p.City, p.State, p.Country, p.Gender, p.IsMatrimonyEnabled, profile, now, id,
	)
	if err != nil {
		return errors.Wrap(err, "update profile")
	}
	return affected(res, ErrNotFound)
}

func (s *MySQLStore) SetVerificationToken(ctx context.Context, id, token string, expires time.Time) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE users SET verification_token = ?, verification_expires = ? WHERE id = ?",
		token, expires, id,
	)
	if err != nil {
		return errors.Wrap(err, "set verification token")
	}
	return affected(res, ErrNotFound)
}

func (s *MySQLStore) ConsumeVerificationToken(ctx context.Context, token string, now time.Time) (*models.User, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, errors.Wrap(err, "begin")
	}

	var id string
	err = tx.QueryRowContext(ctx,
		"SELECT id FROM users WHERE verification_token = ? AND verification_expires > ? FOR UPDATE",
		token, now,
	).Scan(&id)
	if err == sql.ErrNoRows {
		tx.Rollback()
		return nil, ErrNotFound
	}
	if err != nil {
		tx.Rollback()
		return nil, errors.Wrap(err, "find verification token")
	}

	_, err = tx.ExecContext(ctx,
		"UPDATE users SET is_verified = TRUE, verification_token = NULL, verification_expires = NULL, updated_at = ? WHERE id = ?",
		now, id,
	)
	if err != nil {
		tx.Rollback()
		return nil, errors.Wrap(err, "verify user")
	}
	if err := tx.Commit(); err != nil {
		return nil, errors.Wrap(err, "commit")
	}
	return s.GetUser(ctx, id)
}

func (s *MySQLStore) MarkPaid(ctx context.Context, id string, now time.Time) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		"UPDATE users SET is_paid = TRUE, updated_at = ? WHERE id = ? AND is_paid = FALSE",
		now, id,
	)
	if err != nil {
		return false, errors.Wrap(err, "mark paid")
	}
	if affected(res, ErrNotFound) == nil {
		return true, nil
	}

	var exists bool
	if err := s.db.QueryRowContext(ctx, "SELECT EXISTS(SELECT 1 FROM users WHERE id = ?)", id).Scan(&exists); err != nil {
		return false, errors.Wrap(err, "check user")
	}
	if !exists {
		return false, ErrNotFound
	}
	return false, nil
}

func (s *MySQLStore) SetProfilePicture(ctx context.Context, id, url string, now time.Time) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE users SET profile = JSON_SET(profile, '$.profilePicture', ?), updated_at = ? WHERE id = ?",
		url, now, id,
	)
	if err != nil {
		return errors.Wrap(err, "set profile picture")
	}
	return affected(res, ErrNotFound)
}

func (s *MySQLStore) AddMatrimonyPictures(ctx context.Context, id string, urls []string, now time.Time) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "begin")
	}

	var raw []byte
	err = tx.QueryRowContext(ctx, "SELECT profile FROM users WHERE id = ? FOR UPDATE", id).Scan(&raw)
	if err == sql.ErrNoRows {
		tx.Rollback()
		return ErrNotFound
	}
	if err != nil {
		tx.Rollback()
		return errors.Wrap(err, "load profile")
	}

	var p models.Profile
	if err := json.Unmarshal(raw, &p); err != nil {
		tx.Rollback()
		return errors.Wrap(err, "decode profile")
	}
	p.MatrimonyPictures = append(p.MatrimonyPictures, urls...)
	raw, err = json.Marshal(p)
	if err != nil {
		tx.Rollback()
		return errors.Wrap(err, "encode profile")
	}

	if _, err := tx.ExecContext(ctx, "UPDATE users SET profile = ?, updated_at = ? WHERE id = ?", raw, now, id); err != nil {
		tx.Rollback()
		return errors.Wrap(err, "save profile")
	}
	return errors.Wrap(tx.Commit(), "commit")
}

// Relationships ----------------------------------------------------------------

func (s *MySQLStore) CreateFriendRequest(ctx context.Context, from, to string) error {
	now := time.Now().UTC()
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO friendships (pair_key, requester_id, recipient_id, status, created_at, updated_at) VALUES (?, ?, ?, 'pending', ?, ?)",
		models.PairKey(from, to), from, to, now, now,
	)
	if isDuplicate(err) {
		return ErrConflict
	}
	return errors.Wrap(err, "insert friend request")
}

func (s *MySQLStore) AcceptFriendRequest(ctx context.Context, requester, recipient string) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE friendships SET status = 'accepted', updated_at = ? WHERE pair_key = ? AND requester_id = ? AND status = 'pending'",
		time.Now().UTC(), models.PairKey(requester, recipient), requester,
	)
	if err != nil {
		return errors.Wrap(err, "accept friend request")
	}
	return affected(res, ErrConflict)
}

func (s *MySQLStore) DeleteFriendRequest(ctx context.Context, requester, recipient string) error {
	res, err := s.db.ExecContext(ctx,
		"DELETE FROM friendships WHERE pair_key = ? AND requester_id = ? AND status = 'pending'",
		models.PairKey(requester, recipient), requester,
	)
	if err != nil {
		return errors.Wrap(err, "delete friend request")
	}
	return affected(res, ErrConflict)
}

// Conversations ----------------------------------------------------------------

const conversationColumns = "id, pair_key, user_a, user_b, last_message_id, created_at, updated_at"

func scanConversation(row rowScanner) (*models.Conversation, error) {
	var (
		c    models.Conversation
		a, b string
		last sql.NullString
	)
	if err := row.Scan(&c.ID, &c.PairKey, &a, &b, &last, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, err
	}
	c.Participants = []string{a, b}
	c.LastMessageID = last.String
	return &c, nil
}

func (s *MySQLStore) FindOrCreateConversation(ctx context.Context, a, b string, now time.Time) (*models.Conversation, bool, error) {
	conv := models.NewConversation(newID(), a, b, now)
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO conversations (id, pair_key, user_a, user_b, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE id = id`,
		conv.ID, conv.PairKey, conv.Participants[0], conv.Participants[1], now, now,
	)
	if err != nil {
		return nil, false, errors.Wrap(err, "upsert conversation")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, false, errors.Wrap(err, "rows affected")
	}

	stored, err := scanConversation(s.db.QueryRowContext(ctx,
		"SELECT "+conversationColumns+" FROM conversations WHERE pair_key = ?", conv.PairKey))
	if err != nil {
		return nil, false, errors.Wrap(err, "find conversation")
	}
	return stored, n == 1, nil
}

func (s *MySQLStore) GetConversation(ctx context.Context, id string) (*models.Conversation, error) {
	c, err := scanConversation(s.db.QueryRowContext(ctx,
		"SELECT "+conversationColumns+" FROM conversations WHERE id = ?", id))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "find conversation")
	}
	return c, nil
}

func (s *MySQLStore) ListConversations(ctx context.Context, userID string) ([]*models.Conversation, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+conversationColumns+" FROM conversations WHERE user_a = ? OR user_b = ? ORDER BY updated_at DESC, id DESC",
		userID, userID)
	if err != nil {
		return nil, errors.Wrap(err, "list conversations")
	}
	defer rows.Close()

	convs := []*models.Conversation{}
	for rows.Next() {
		c, err := scanConversation(rows)
		if err != nil {
			return nil, errors.Wrap(err, "scan conversation")
		}
		convs = append(convs, c)
	}
	return convs, errors.Wrap(rows.Err(), "iterate conversations")
}

func (s *MySQLStore) AppendMessage(ctx context.Context, msg *models.Message) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "begin")
	}

	_, err = tx.ExecContext(ctx,
		"INSERT INTO messages (id, conversation_id, sender_id, content, created_at) VALUES (?, ?, ?, ?, ?)",
		msg.ID, msg.ConversationID, msg.SenderID, msg.Content, msg.CreatedAt,
	)
	if err != nil {
		tx.Rollback()
		if isDuplicate(err) {
			return ErrDuplicate
		}
		return errors.Wrap(err, "insert message")
	}

	res, err := tx.ExecContext(ctx,
		"UPDATE conversations SET last_message_id = ?, updated_at = ? WHERE id = ? AND (user_a = ? OR user_b = ?)",
		msg.ID, msg.CreatedAt, msg.ConversationID, msg.SenderID, msg.SenderID,
	)
	if err != nil {
		tx.Rollback()
		return errors.Wrap(err, "update last message")
	}
	if err := affected(res, ErrNotFound); err != nil {
		tx.Rollback()
		return err
	}

	return errors.Wrap(tx.Commit(), "commit")
}

func (s *MySQLStore) queryMessages(ctx context.Context, q querier, query string, args ...any) ([]*models.Message, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "query messages")
	}
	defer rows.Close()

	msgs := []*models.Message{}
	for rows.Next() {
		var m models.Message
		if err := rows.Scan(&m.ID, &m.ConversationID, &m.SenderID, &m.Content, &m.CreatedAt); err != nil {
			return nil, errors.Wrap(err, "scan message")
		}
		msgs = append(msgs, &m)
	}
	return msgs, errors.Wrap(rows.Err(), "iterate messages")
}

func (s *MySQLStore) ListMessages(ctx context.Context, conversationID string) ([]*models.Message, error) {
	return s.queryMessages(ctx, s.db,
		"SELECT id, conversation_id, sender_id, content, created_at FROM messages WHERE conversation_id = ? ORDER BY created_at, id",
		conversationID)
}

func (s *MySQLStore) GetMessages(ctx context.Context, ids []string) ([]*models.Message, error) {
	if len(ids) == 0 {
		return []*models.Message{}, nil
	}
	return s.queryMessages(ctx, s.db,
		"SELECT id, conversation_id, sender_id, content, created_at FROM messages WHERE id IN ("+placeholders(len(ids))+")",
		stringArgs(ids)...)
}

// Posts ------------------------------------------------------------------------

func (s *MySQLStore) SavePost(ctx context.Context, post models.Post) error {
	post.Index()
	payload, err := json.Marshal(post)
	if err != nil {
		return errors.Wrap(err, "encode post")
	}
	meta := post.Meta()

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO posts (board, id, author_id, sort_key, active_until, payload, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE sort_key = VALUES(sort_key), active_until = VALUES(active_until),
			payload = VALUES(payload), updated_at = VALUES(updated_at)`,
		string(post.Board()), meta.ID, meta.AuthorID, meta.SortKey, meta.ActiveUntil, payload,
		meta.CreatedAt, meta.UpdatedAt,
	)
	return errors.Wrap(err, "save post")
}

func (s *MySQLStore) GetPost(ctx context.Context, board models.Board, id string, dst models.Post) error {
	var payload []byte
	err := s.db.QueryRowContext(ctx, "SELECT payload FROM posts WHERE board = ? AND id = ?", string(board), id).Scan(&payload)
	if err == sql.ErrNoRows {
		return ErrNotFound
	}
	if err != nil {
		return errors.Wrap(err, "find post")
	}
	return errors.Wrap(json.Unmarshal(payload, dst), "decode post")
}

func (s *MySQLStore) ListPosts(ctx context.Context, board models.Board, q PostQuery, dst any) error {
	query := "SELECT payload FROM posts WHERE board = ? AND active_until <> ''"
	args := []any{string(board)}
	if q.ActiveOn != "" {
		query += " AND active_until >= ?"
		args = append(args, q.ActiveOn)
	}
	if q.Descending {
		query += " ORDER BY sort_key DESC, id DESC"
	} else {
		query += " ORDER BY sort_key, id"
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return errors.Wrap(err, "list posts")
	}
	defer rows.Close()

	var payloads [][]byte
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return errors.Wrap(err, "scan post")
		}
		payloads = append(payloads, payload)
	}
	if err := rows.Err(); err != nil {
		return errors.Wrap(err, "iterate posts")
	}
	return errors.Wrap(decodePayloads(payloads, dst), "decode posts")
}
