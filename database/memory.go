package database

import (
	"context"
	"encoding/json"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/adi27online/meruglobalconnect/models"
)

// MemoryStore keeps everything in process memory behind one mutex, so every
// multi-record write is serialized. It backs tests and local development.
type MemoryStore struct {
	mu            sync.RWMutex
	users         map[string]*models.User
	emails        map[string]string
	conversations map[string]*models.Conversation
	pairs         map[string]string
	messages      map[string]*models.Message
	byConv        map[string][]string
	posts         map[models.Board]map[string]storedPost
}

type storedPost struct {
	id          string
	sortKey     string
	activeUntil string
	payload     []byte
}

var _ Store = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:         make(map[string]*models.User),
		emails:        make(map[string]string),
		conversations: make(map[string]*models.Conversation),
		pairs:         make(map[string]string),
		messages:      make(map[string]*models.Message),
		byConv:        make(map[string][]string),
		posts:         make(map[models.Board]map[string]storedPost),
	}
}

func (s *MemoryStore) Ping(context.Context) error  { return nil }
func (s *MemoryStore) Close(context.Context) error { return nil }

func cloneUser(u *models.User) *models.User {
	cp := *u
	cp.Hobbies = slices.Clone(u.Hobbies)
	cp.Children = slices.Clone(u.Children)
	cp.MatrimonyPictures = slices.Clone(u.MatrimonyPictures)
	cp.Friends = slices.Clone(u.Friends)
	cp.OutgoingFriendRequests = slices.Clone(u.OutgoingFriendRequests)
	cp.IncomingFriendRequests = slices.Clone(u.IncomingFriendRequests)
	cp.Conversations = slices.Clone(u.Conversations)
	if u.Spouse != nil {
		spouse := *u.Spouse
		cp.Spouse = &spouse
	}
	if u.DateOfBirth != nil {
		dob := *u.DateOfBirth
		cp.DateOfBirth = &dob
	}
	if u.EmailVerificationTokenExpires != nil {
		exp := *u.EmailVerificationTokenExpires
		cp.EmailVerificationTokenExpires = &exp
	}
	return &cp
}

func addToSet(set []string, id string) []string {
	if slices.Contains(set, id) {
		return set
	}
	return append(set, id)
}

func pull(set []string, id string) ([]string, bool) {
	i := slices.Index(set, id)
	if i < 0 {
		return set, false
	}
	return slices.Delete(set, i, i+1), true
}

// Users ------------------------------------------------------------------------

func (s *MemoryStore) CreateUser(_ context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.users[user.ID]; exists {
		return ErrDuplicate
	}
	if _, exists := s.emails[user.Email]; exists {
		return ErrDuplicate
	}
	s.users[user.ID] = cloneUser(user)
	s.emails[user.Email] = user.ID
	return nil
}

func (s *MemoryStore) GetUser(_ context.Context, id string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneUser(u), nil
}

func (s *MemoryStore) GetUserByEmail(_ context.Context, email string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.emails[email]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneUser(s.users[id]), nil
}

func (s *MemoryStore) GetUsers(_ context.Context, ids []string) ([]*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*models.User, 0, len(ids))
	for _, id := range ids {
		if u, ok := s.users[id]; ok {
			out = append(out, cloneUser(u))
		}
	}
	return out, nil
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}

func userField(u *models.User, field string) string {
	switch field {
	case "name":
		return u.Name
	case "bio":
		return u.Bio
	case "profession":
		return u.Profession
	case "fatherName":
		return u.FatherName
	case "motherName":
		return u.MotherName
	case "education":
		return u.Education
	case "city":
		return u.City
	case "state":
		return u.State
	case "country":
		return u.Country
	}
	return ""
}

func matchUser(u *models.User, f UserFilter) bool {
	if slices.Contains(f.ExcludeIDs, u.ID) {
		return false
	}
	if f.MatrimonyOnly && !u.IsMatrimonyEnabled {
		return false
	}
	if f.City != "" && !containsFold(u.City, f.City) {
		return false
	}
	if f.State != "" && !containsFold(u.State, f.State) {
		return false
	}
	if f.Country != "" && !containsFold(u.Country, f.Country) {
		return false
	}
	if f.Gender != "" && !strings.EqualFold(u.Gender, f.Gender) {
		return false
	}
	if f.Query == "" {
		return true
	}
	for _, field := range f.QueryFields {
		if containsFold(userField(u, field), f.Query) {
			return true
		}
	}
	return false
}

func (s *MemoryStore) FindUsers(_ context.Context, f UserFilter) ([]*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*models.User
	for _, u := range s.users {
		if matchUser(u, f) {
			out = append(out, cloneUser(u))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func (s *MemoryStore) updateUser(id string, fn func(u *models.User) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return ErrNotFound
	}
	return fn(u)
}

func (s *MemoryStore) UpdateProfile(_ context.Context, id string, profile models.Profile, now time.Time) error {
	return s.updateUser(id, func(u *models.User) error {
		tmp := cloneUser(&models.User{Profile: profile})
		u.Profile = tmp.Profile
		u.UpdatedAt = now
		return nil
	})
}

func (s *MemoryStore) SetVerificationToken(_ context.Context, id, token string, expires time.Time) error {
	return s.updateUser(id, func(u *models.User) error {
		u.EmailVerificationToken = token
		u.EmailVerificationTokenExpires = &expires
		return nil
	})
}

func (s *MemoryStore) ConsumeVerificationToken(_ context.Context, token string, now time.Time) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range s.users {
		if u.EmailVerificationToken != token || u.EmailVerificationTokenExpires == nil {
			continue
		}
		if !u.EmailVerificationTokenExpires.After(now) {
			return nil, ErrNotFound
		}
		u.IsVerified = true
		u.EmailVerificationToken = ""
		u.EmailVerificationTokenExpires = nil
		u.UpdatedAt = now
		return cloneUser(u), nil
	}
	return nil, ErrNotFound
}

func (s *MemoryStore) MarkPaid(_ context.Context, id string, now time.Time) (bool, error) {
	changed := false
	err := s.updateUser(id, func(u *models.User) error {
		if !u.IsPaid {
			u.IsPaid = true
			u.UpdatedAt = now
			changed = true
		}
		return nil
	})
	return changed, err
}

func (s *MemoryStore) SetProfilePicture(_ context.Context, id, url string, now time.Time) error {
	return s.updateUser(id, func(u *models.User) error {
		u.ProfilePicture = url
		u.UpdatedAt = now
		return nil
	})
}

func (s *MemoryStore) AddMatrimonyPictures(_ context.Context, id string, urls []string, now time.Time) error {
	return s.updateUser(id, func(u *models.User) error {
		u.MatrimonyPictures = append(u.MatrimonyPictures, urls...)
		u.UpdatedAt = now
		return nil
	})
}

// Relationships ----------------------------------------------------------------

func (s *MemoryStore) pair(a, b string) (*models.User, *models.User, error) {
	ua, ok := s.users[a]
	if !ok {
		return nil, nil, ErrNotFound
	}
	ub, ok := s.users[b]
	if !ok {
		return nil, nil, ErrNotFound
	}
	return ua, ub, nil
}

func (s *MemoryStore) CreateFriendRequest(_ context.Context, from, to string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sender, recipient, err := s.pair(from, to)
	if err != nil {
		return err
	}
	if sender.RelationshipTo(to) != models.StatusNotFriends || recipient.RelationshipTo(from) != models.StatusNotFriends {
		return ErrConflict
	}
	sender.OutgoingFriendRequests = append(sender.OutgoingFriendRequests, to)
	recipient.IncomingFriendRequests = append(recipient.IncomingFriendRequests, from)
	return nil
}

func (s *MemoryStore) AcceptFriendRequest(_ context.Context, requester, recipient string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	req, rcp, err := s.pair(requester, recipient)
	if err != nil {
		return err
	}
	if !slices.Contains(rcp.IncomingFriendRequests, requester) || !slices.Contains(req.OutgoingFriendRequests, recipient) {
		return ErrConflict
	}
	rcp.IncomingFriendRequests, _ = pull(rcp.IncomingFriendRequests, requester)
	req.OutgoingFriendRequests, _ = pull(req.OutgoingFriendRequests, recipient)
	rcp.Friends = addToSet(rcp.Friends, requester)
	req.Friends = addToSet(req.Friends, recipient)
	return nil
}

func (s *MemoryStore) DeleteFriendRequest(_ context.Context, requester, recipient string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	req, rcp, err := s.pair(requester, recipient)
	if err != nil {
		return err
	}
	var pulledIn, pulledOut bool
	rcp.IncomingFriendRequests, pulledIn = pull(rcp.IncomingFriendRequests, requester)
	req.OutgoingFriendRequests, pulledOut = pull(req.OutgoingFriendRequests, recipient)
	if !pulledIn && !pulledOut {
		return ErrConflict
	}
	return nil
}

// Conversations ----------------------------------------------------------------

func cloneConversation(c *models.Conversation) *models.Conversation {
	cp := *c
	cp.Participants = slices.Clone(c.Participants)
	return &cp
}

func (s *MemoryStore) FindOrCreateConversation(_ context.Context, a, b string, now time.Time) (*models.Conversation, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ua, ub, err := s.pair(a, b)
	if err != nil {
		return nil, false, err
	}

	key := models.PairKey(a, b)
	if id, ok := s.pairs[key]; ok {
		return cloneConversation(s.conversations[id]), false, nil
	}

	conv := models.NewConversation(newID(), a, b, now)
	s.conversations[conv.ID] = conv
	s.pairs[key] = conv.ID
	ua.Conversations = addToSet(ua.Conversations, conv.ID)
	ub.Conversations = addToSet(ub.Conversations, conv.ID)
	return cloneConversation(conv), true, nil
}

func (s *MemoryStore) GetConversation(_ context.Context, id string) (*models.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.conversations[id]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneConversation(c), nil
}

func (s *MemoryStore) ListConversations(_ context.Context, userID string) ([]*models.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*models.Conversation
	for _, c := range s.conversations {
		if c.HasParticipant(userID) {
			out = append(out, cloneConversation(c))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].UpdatedAt.Equal(out[j].UpdatedAt) {
			return out[i].UpdatedAt.After(out[j].UpdatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (s *MemoryStore) AppendMessage(_ context.Context, msg *models.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv, ok := s.conversations[msg.ConversationID]
	if !ok || !conv.HasParticipant(msg.SenderID) {
		return ErrNotFound
	}
	if _, exists := s.messages[msg.ID]; exists {
		return ErrDuplicate
	}
	cp := *msg
	s.messages[msg.ID] = &cp
	s.byConv[msg.ConversationID] = append(s.byConv[msg.ConversationID], msg.ID)
	conv.LastMessageID = msg.ID
	conv.UpdatedAt = msg.CreatedAt
	return nil
}

func (s *MemoryStore) ListMessages(_ context.Context, conversationID string) ([]*models.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := s.byConv[conversationID]
	out := make([]*models.Message, 0, len(ids))
	for _, id := range ids {
		cp := *s.messages[id]
		out = append(out, &cp)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *MemoryStore) GetMessages(_ context.Context, ids []string) ([]*models.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*models.Message, 0, len(ids))
	for _, id := range ids {
		if m, ok := s.messages[id]; ok {
			cp := *m
			out = append(out, &cp)
		}
	}
	return out, nil
}

// Posts ------------------------------------------------------------------------

func (s *MemoryStore) SavePost(_ context.Context, post models.Post) error {
	post.Index()
	payload, err := json.Marshal(post)
	if err != nil {
		return err
	}
	meta := post.Meta()

	s.mu.Lock()
	defer s.mu.Unlock()

	board := s.posts[post.Board()]
	if board == nil {
		board = make(map[string]storedPost)
		s.posts[post.Board()] = board
	}
	board[meta.ID] = storedPost{id: meta.ID, sortKey: meta.SortKey, activeUntil: meta.ActiveUntil, payload: payload}
	return nil
}

func (s *MemoryStore) GetPost(_ context.Context, board models.Board, id string, dst models.Post) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.posts[board][id]
	if !ok {
		return ErrNotFound
	}
	return json.Unmarshal(p.payload, dst)
}

func (s *MemoryStore) ListPosts(_ context.Context, board models.Board, q PostQuery, dst any) error {
	s.mu.RLock()
	var selected []storedPost
	for _, p := range s.posts[board] {
		if p.activeUntil == "" || (q.ActiveOn != "" && p.activeUntil < q.ActiveOn) {
			continue
		}
		selected = append(selected, p)
	}
	s.mu.RUnlock()

	sort.Slice(selected, func(i, j int) bool {
		a, b := selected[i], selected[j]
		if q.Descending {
			a, b = b, a
		}
		if a.sortKey != b.sortKey {
			return a.sortKey < b.sortKey
		}
		return a.id < b.id
	})

	payloads := make([][]byte, len(selected))
	for i, p := range selected {
		payloads[i] = p.payload
	}
	return decodePayloads(payloads, dst)
}

// decodePayloads unmarshals a list of JSON documents into a slice pointer by
// joining them into one JSON array.
func decodePayloads(payloads [][]byte, dst any) error {
	var buf strings.Builder
	buf.WriteByte('[')
	for i, p := range payloads {
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.Write(p)
	}
	buf.WriteByte(']')
	return json.Unmarshal([]byte(buf.String()), dst)
}
