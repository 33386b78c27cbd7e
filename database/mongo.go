package database

import (
	"context"
	"regexp"
	"time"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/adi27online/meruglobalconnect/logger"
	"github.com/adi27online/meruglobalconnect/models"
)

const (
	usersCollection         = "users"
	conversationsCollection = "conversations"
	messagesCollection      = "messages"
)

// Fields a profile update removes when they are empty, mirroring the
// omitempty tags on models.Profile.
var optionalProfileFields = []string{
	"spouse", "dateOfBirth", "timeOfBirth", "placeOfBirth", "fatherName",
	"motherName", "gender", "education", "matrimonyPictures",
}

// MongoStore keeps users, conversations, messages and one collection per
// bulletin board in a MongoDB database. Paired writes run in multi-document
// transactions, which need a replica set.
type MongoStore struct {
	client *mongo.Client
	db     *mongo.Database
}

var _ Store = (*MongoStore)(nil)

func OpenMongo(ctx context.Context, uri, database string) (*MongoStore, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, errors.Wrap(err, "connect mongo")
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(ctx)
		return nil, errors.Wrap(err, "ping mongo")
	}

	s := &MongoStore{client: client, db: client.Database(database)}
	if err := s.ensureIndexes(ctx); err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}

	logger.Info().Str("database", database).Msg("mongo connected")
	return s, nil
}

func (s *MongoStore) collection(name string) *mongo.Collection {
	return s.db.Collection(name)
}

func (s *MongoStore) ensureIndexes(ctx context.Context) error {
	indexes := map[string][]mongo.IndexModel{
		usersCollection: {
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "emailVerificationToken", Value: 1}}, Options: options.Index().SetSparse(true)},
			{Keys: bson.D{{Key: "isMatrimonyEnabled", Value: 1}, {Key: "name", Value: 1}}},
		},
		conversationsCollection: {
			{Keys: bson.D{{Key: "pairKey", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "participants", Value: 1}, {Key: "updatedAt", Value: -1}}},
		},
		messagesCollection: {
			{Keys: bson.D{{Key: "conversationId", Value: 1}, {Key: "createdAt", Value: 1}, {Key: "_id", Value: 1}}},
		},
	}
	for _, board := range []models.Board{
		models.BoardNews, models.BoardJobPostings, models.BoardJobSeekers,
		models.BoardMeetGreets, models.BoardGuestHosts, models.BoardYouthConnect,
	} {
		indexes[string(board)] = []mongo.IndexModel{
			{Keys: bson.D{{Key: "activeUntil", Value: 1}, {Key: "sortKey", Value: 1}}},
		}
	}

	for name, idx := range indexes {
		if _, err := s.collection(name).Indexes().CreateMany(ctx, idx); err != nil {
			return errors.Wrapf(err, "create indexes on %s", name)
		}
	}
	return nil
}

func (s *MongoStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, readpref.Primary())
}

func (s *MongoStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

func (s *MongoStore) withTransaction(ctx context.Context, fn func(sc mongo.SessionContext) error) error {
	session, err := s.client.StartSession()
	if err != nil {
		return errors.Wrap(err, "start session")
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, fn(sc)
	})
	return err
}

func translate(err error, op string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, mongo.ErrNoDocuments):
		return ErrNotFound
	case mongo.IsDuplicateKeyError(err):
		return ErrDuplicate
	default:
		return errors.Wrap(err, op)
	}
}

// Users ------------------------------------------------------------------------

func (s *MongoStore) CreateUser(ctx context.Context, user *models.User) error {
	doc := cloneUser(user).Normalize()
	_, err := s.collection(usersCollection).InsertOne(ctx, doc)
	return translate(err, "insert user")
}

func (s *MongoStore) findUser(ctx context.Context, filter bson.M) (*models.User, error) {
	var u models.User
	if err := s.collection(usersCollection).FindOne(ctx, filter).Decode(&u); err != nil {
		return nil, translate(err, "find user")
	}
	return &u, nil
}

func (s *MongoStore) GetUser(ctx context.Context, id string) (*models.User, error) {
	return s.findUser(ctx, bson.M{"_id": id})
}

func (s *MongoStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.findUser(ctx, bson.M{"email": email})
}

func (s *MongoStore) GetUsers(ctx context.Context, ids []string) ([]*models.User, error) {
	if len(ids) == 0 {
		return []*models.User{}, nil
	}
	cursor, err := s.collection(usersCollection).Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, errors.Wrap(err, "find users")
	}
	users := []*models.User{}
	if err := cursor.All(ctx, &users); err != nil {
		return nil, errors.Wrap(err, "decode users")
	}
	return users, nil
}

func containsRegex(s string) primitive.Regex {
	return primitive.Regex{Pattern: regexp.QuoteMeta(s), Options: "i"}
}

// userFilterDoc translates a UserFilter into a MongoDB query document.
func userFilterDoc(f UserFilter) bson.M {
	doc := bson.M{}
	if len(f.ExcludeIDs) > 0 {
		doc["_id"] = bson.M{"$nin": f.ExcludeIDs}
	}
	if f.MatrimonyOnly {
		doc["isMatrimonyEnabled"] = true
	}
	if f.City != "" {
		doc["city"] = containsRegex(f.City)
	}
	if f.State != "" {
		doc["state"] = containsRegex(f.State)
	}
	if f.Country != "" {
		doc["country"] = containsRegex(f.Country)
	}
	if f.Gender != "" {
		doc["gender"] = primitive.Regex{Pattern: "^" + regexp.QuoteMeta(f.Gender) + "$", Options: "i"}
	}
	if f.Query != "" && len(f.QueryFields) > 0 {
		or := bson.A{}
		for _, field := range f.QueryFields {
			or = append(or, bson.M{field: containsRegex(f.Query)})
		}
		doc["$or"] = or
	}
	return doc
}

func (s *MongoStore) FindUsers(ctx context.Context, f UserFilter) ([]*models.User, error) {
	opts := options.Find().SetSort(bson.D{{Key: "name", Value: 1}, {Key: "_id", Value: 1}})
	if f.Limit > 0 {
		opts.SetLimit(int64(f.Limit))
	}
	cursor, err := s.collection(usersCollection).Find(ctx, userFilterDoc(f), opts)
	if err != nil {
		return nil, errors.Wrap(err, "search users")
	}
	users := []*models.User{}
	if err := cursor.All(ctx, &users); err != nil {
		return nil, errors.Wrap(err, "decode users")
	}
	return users, nil
}

// profileUpdate builds the $set/$unset pair that replaces a stored profile.
func profileUpdate(p models.Profile, now time.Time) (bson.M, error) {
	raw, err := bson.Marshal(p)
	if err != nil {
		return nil, err
	}
	set := bson.M{}
	if err := bson.Unmarshal(raw, &set); err != nil {
		return nil, err
	}
	set["updatedAt"] = now

	update := bson.M{"$set": set}
	unset := bson.M{}
	for _, field := range optionalProfileFields {
		if _, ok := set[field]; !ok {
			unset[field] = ""
		}
	}
	if len(unset) > 0 {
		update["$unset"] = unset
	}
	return update, nil
}

func (s *MongoStore) updateUser(ctx context.Context, id string, update bson.M, op string) error {
	res, err := s.collection(usersCollection).UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return errors.Wrap(err, op)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *MongoStore) UpdateProfile(ctx context.Context, id string, profile models.Profile, now time.Time) error {
	update, err := profileUpdate(profile, now)
	if err != nil {
		return errors.Wrap(err, "encode profile")
	}
	return s.updateUser(ctx, id, update, "update profile")
}

func (s *MongoStore) SetVerificationToken(ctx context.Context, id, token string, expires time.Time) error {
	return s.updateUser(ctx, id, bson.M{"$set": bson.M{
		"emailVerificationToken":        token,
		"emailVerificationTokenExpires": expires,
	}}, "set verification token")
}

func (s *MongoStore) ConsumeVerificationToken(ctx context.Context, token string, now time.Time) (*models.User, error) {
	filter := bson.M{
		"emailVerificationToken":        token,
		"emailVerificationTokenExpires": bson.M{"$gt": now},
	}
	update := bson.M{
		"$set":   bson.M{"isVerified": true, "updatedAt": now},
		"$unset": bson.M{"emailVerificationToken": "", "emailVerificationTokenExpires": ""},
	}
	var u models.User
	err := s.collection(usersCollection).
		FindOneAndUpdate(ctx, filter, update, options.FindOneAndUpdate().SetReturnDocument(options.After)).
		Decode(&u)
	if err != nil {
		return nil, translate(err, "consume verification token")
	}
	return &u, nil
}

func (s *MongoStore) MarkPaid(ctx context.Context, id string, now time.Time) (bool, error) {
	users := s.collection(usersCollection)
	res, err := users.UpdateOne(ctx,
		bson.M{"_id": id, "isPaid": bson.M{"$ne": true}},
		bson.M{"$set": bson.M{"isPaid": true, "updatedAt": now}},
	)
	if err != nil {
		return false, errors.Wrap(err, "mark paid")
	}
	if res.ModifiedCount == 1 {
		return true, nil
	}

	n, err := users.CountDocuments(ctx, bson.M{"_id": id})
	if err != nil {
		return false, errors.Wrap(err, "count user")
	}
	if n == 0 {
		return false, ErrNotFound
	}
	return false, nil
}

func (s *MongoStore) SetProfilePicture(ctx context.Context, id, url string, now time.Time) error {
	return s.updateUser(ctx, id, bson.M{"$set": bson.M{"profilePicture": url, "updatedAt": now}}, "set profile picture")
}

func (s *MongoStore) AddMatrimonyPictures(ctx context.Context, id string, urls []string, now time.Time) error {
	return s.updateUser(ctx, id, bson.M{
		"$push": bson.M{"matrimonyPictures": bson.M{"$each": urls}},
		"$set":  bson.M{"updatedAt": now},
	}, "add matrimony pictures")
}

// Relationships ----------------------------------------------------------------

// unrelatedTo matches a user document with no relationship to other.
func unrelatedTo(id, other string) bson.M {
	return bson.M{
		"_id":                    id,
		"friends":                bson.M{"$ne": other},
		"outgoingFriendRequests": bson.M{"$ne": other},
		"incomingFriendRequests": bson.M{"$ne": other},
	}
}

// guardedUpdate applies update to the single document matching filter and
// fails with ErrConflict when nothing matched.
func (s *MongoStore) guardedUpdate(sc mongo.SessionContext, filter, update bson.M) error {
	res, err := s.collection(usersCollection).UpdateOne(sc, filter, update)
	if err != nil {
		return errors.Wrap(err, "update relationship")
	}
	if res.MatchedCount == 0 {
		return ErrConflict
	}
	return nil
}

func (s *MongoStore) CreateFriendRequest(ctx context.Context, from, to string) error {
	return s.withTransaction(ctx, func(sc mongo.SessionContext) error {
		if err := s.guardedUpdate(sc, unrelatedTo(from, to),
			bson.M{"$addToSet": bson.M{"outgoingFriendRequests": to}}); err != nil {
			return err
		}
		return s.guardedUpdate(sc, unrelatedTo(to, from),
			bson.M{"$addToSet": bson.M{"incomingFriendRequests": from}})
	})
}

func (s *MongoStore) AcceptFriendRequest(ctx context.Context, requester, recipient string) error {
	return s.withTransaction(ctx, func(sc mongo.SessionContext) error {
		if err := s.guardedUpdate(sc,
			bson.M{"_id": recipient, "incomingFriendRequests": requester},
			bson.M{
				"$pull":     bson.M{"incomingFriendRequests": requester},
				"$addToSet": bson.M{"friends": requester},
			}); err != nil {
			return err
		}
		return s.guardedUpdate(sc,
			bson.M{"_id": requester, "outgoingFriendRequests": recipient},
			bson.M{
				"$pull":     bson.M{"outgoingFriendRequests": recipient},
				"$addToSet": bson.M{"friends": recipient},
			})
	})
}

// DeleteFriendRequest cleans whichever side of a pending request still
// exists, so a half-applied pair can be repaired. It fails only when neither
// side had anything to remove.
func (s *MongoStore) DeleteFriendRequest(ctx context.Context, requester, recipient string) error {
	return s.withTransaction(ctx, func(sc mongo.SessionContext) error {
		users := s.collection(usersCollection)
		in, err := users.UpdateOne(sc,
			bson.M{"_id": recipient},
			bson.M{"$pull": bson.M{"incomingFriendRequests": requester}})
		if err != nil {
			return errors.Wrap(err, "pull incoming request")
		}
		out, err := users.UpdateOne(sc,
			bson.M{"_id": requester},
			bson.M{"$pull": bson.M{"outgoingFriendRequests": recipient}})
		if err != nil {
			return errors.Wrap(err, "pull outgoing request")
		}
		if in.ModifiedCount == 0 && out.ModifiedCount == 0 {
			return ErrConflict
		}
		return nil
	})
}

// Conversations ----------------------------------------------------------------

func (s *MongoStore) FindOrCreateConversation(ctx context.Context, a, b string, now time.Time) (*models.Conversation, bool, error) {
	convs := s.collection(conversationsCollection)
	conv := models.NewConversation(newID(), a, b, now)

	created := false
	res, err := convs.UpdateOne(ctx,
		bson.M{"pairKey": conv.PairKey},
		bson.M{"$setOnInsert": conv},
		options.Update().SetUpsert(true),
	)
	switch {
	case err == nil:
		created = res.UpsertedCount == 1
	case mongo.IsDuplicateKeyError(err):
		// lost an upsert race; the winner's document is read below
	default:
		return nil, false, errors.Wrap(err, "upsert conversation")
	}

	var stored models.Conversation
	if err := convs.FindOne(ctx, bson.M{"pairKey": conv.PairKey}).Decode(&stored); err != nil {
		return nil, false, translate(err, "find conversation")
	}

	_, err = s.collection(usersCollection).UpdateMany(ctx,
		bson.M{"_id": bson.M{"$in": stored.Participants}},
		bson.M{"$addToSet": bson.M{"conversations": stored.ID}},
	)
	if err != nil {
		return nil, false, errors.Wrap(err, "link conversation")
	}
	return &stored, created, nil
}

func (s *MongoStore) GetConversation(ctx context.Context, id string) (*models.Conversation, error) {
	var c models.Conversation
	if err := s.collection(conversationsCollection).FindOne(ctx, bson.M{"_id": id}).Decode(&c); err != nil {
		return nil, translate(err, "find conversation")
	}
	return &c, nil
}

func (s *MongoStore) ListConversations(ctx context.Context, userID string) ([]*models.Conversation, error) {
	opts := options.Find().SetSort(bson.D{{Key: "updatedAt", Value: -1}, {Key: "_id", Value: -1}})
	cursor, err := s.collection(conversationsCollection).Find(ctx, bson.M{"participants": userID}, opts)
	if err != nil {
		return nil, errors.Wrap(err, "list conversations")
	}
	convs := []*models.Conversation{}
	if err := cursor.All(ctx, &convs); err != nil {
		return nil, errors.Wrap(err, "decode conversations")
	}
	return convs, nil
}

func (s *MongoStore) AppendMessage(ctx context.Context, msg *models.Message) error {
	return s.withTransaction(ctx, func(sc mongo.SessionContext) error {
		if _, err := s.collection(messagesCollection).InsertOne(sc, msg); err != nil {
			return translate(err, "insert message")
		}
		res, err := s.collection(conversationsCollection).UpdateOne(sc,
			bson.M{"_id": msg.ConversationID, "participants": msg.SenderID},
			bson.M{"$set": bson.M{"lastMessageId": msg.ID, "updatedAt": msg.CreatedAt}},
		)
		if err != nil {
			return errors.Wrap(err, "update last message")
		}
		if res.MatchedCount == 0 {
			return ErrNotFound
		}
		return nil
	})
}

func (s *MongoStore) findMessages(ctx context.Context, filter bson.M) ([]*models.Message, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}, {Key: "_id", Value: 1}})
	cursor, err := s.collection(messagesCollection).Find(ctx, filter, opts)
	if err != nil {
		return nil, errors.Wrap(err, "find messages")
	}
	msgs := []*models.Message{}
	if err := cursor.All(ctx, &msgs); err != nil {
		return nil, errors.Wrap(err, "decode messages")
	}
	return msgs, nil
}

func (s *MongoStore) ListMessages(ctx context.Context, conversationID string) ([]*models.Message, error) {
	return s.findMessages(ctx, bson.M{"conversationId": conversationID})
}

func (s *MongoStore) GetMessages(ctx context.Context, ids []string) ([]*models.Message, error) {
	if len(ids) == 0 {
		return []*models.Message{}, nil
	}
	return s.findMessages(ctx, bson.M{"_id": bson.M{"$in": ids}})
}

// Posts ------------------------------------------------------------------------

func postFilterDoc(q PostQuery) bson.M {
	if q.ActiveOn != "" {
		return bson.M{"activeUntil": bson.M{"$gte": q.ActiveOn}}
	}
	return bson.M{"activeUntil": bson.M{"$gt": ""}}
}

func postSortDoc(q PostQuery) bson.D {
	dir := 1
	if q.Descending {
		dir = -1
	}
	return bson.D{{Key: "sortKey", Value: dir}, {Key: "_id", Value: dir}}
}

func (s *MongoStore) SavePost(ctx context.Context, post models.Post) error {
	post.Index()
	_, err := s.collection(string(post.Board())).ReplaceOne(ctx,
		bson.M{"_id": post.Meta().ID}, post, options.Replace().SetUpsert(true))
	return translate(err, "save post")
}

func (s *MongoStore) GetPost(ctx context.Context, board models.Board, id string, dst models.Post) error {
	err := s.collection(string(board)).FindOne(ctx, bson.M{"_id": id}).Decode(dst)
	return translate(err, "find post")
}

func (s *MongoStore) ListPosts(ctx context.Context, board models.Board, q PostQuery, dst any) error {
	cursor, err := s.collection(string(board)).Find(ctx, postFilterDoc(q), options.Find().SetSort(postSortDoc(q)))
	if err != nil {
		return errors.Wrap(err, "list posts")
	}
	return errors.Wrap(cursor.All(ctx, dst), "decode posts")
}
