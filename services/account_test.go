package services

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adi27online/meruglobalconnect/apperrors"
	"github.com/adi27online/meruglobalconnect/models"
	"github.com/adi27online/meruglobalconnect/utils"
)

func newAccounts(f *fixture, mail *captureMailer) (*AccountService, *utils.TokenManager) {
	tokens := utils.NewTokenManager("test-secret", 7*24*time.Hour)
	return NewAccountService(f.deps, tokens, mail, "https://meru.example/"), tokens
}

func tokenFromLink(t *testing.T, msg string) string {
	t.Helper()
	_, after, ok := strings.Cut(msg, "/verify-email?token=")
	require.True(t, ok, "no verification link in %q", msg)
	return strings.Fields(after)[0]
}

func TestRegisterVerifyLogin(t *testing.T) {
	f := newFixture()
	mail := &captureMailer{}
	svc, tokens := newAccounts(f, mail)
	ctx := context.Background()

	user, err := svc.Register(ctx, RegisterInput{
		Name:     "  Asha Rao ",
		Email:    " Asha@Example.com",
		Password: "secret123",
		City:     "Pune",
	})
	require.NoError(t, err)
	assert.Equal(t, "asha@example.com", user.Email)
	assert.Equal(t, "Asha Rao", user.Name)
	assert.False(t, user.IsVerified)
	assert.False(t, user.IsPaid)
	assert.NotEqual(t, "secret123", user.Password)

	require.Len(t, mail.sent, 1)
	assert.Equal(t, "asha@example.com", mail.sent[0].To)
	assert.Contains(t, mail.sent[0].Text, "https://meru.example/verify-email?token=")

	_, _, err = svc.Login(ctx, "asha@example.com", "secret123")
	requireStatus(t, err, http.StatusForbidden)
	appErr, _ := apperrors.As(err)
	assert.Equal(t, true, appErr.Fields["emailNotVerified"])

	require.NoError(t, svc.VerifyEmail(ctx, tokenFromLink(t, mail.sent[0].Text)))

	_, _, err = svc.Login(ctx, "asha@example.com", "wrong-pass")
	requireStatus(t, err, http.StatusUnauthorized)
	_, _, err = svc.Login(ctx, "nobody@example.com", "secret123")
	requireStatus(t, err, http.StatusUnauthorized)

	token, loggedIn, err := svc.Login(ctx, "ASHA@example.com", "secret123")
	require.NoError(t, err)
	assert.Equal(t, user.ID, loggedIn.ID)
	claims, err := tokens.ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.UserID)
	assert.Equal(t, "Asha Rao", claims.Name)
}

func TestRegisterValidation(t *testing.T) {
	f := newFixture()
	svc, _ := newAccounts(f, &captureMailer{})
	ctx := context.Background()

	cases := []RegisterInput{
		{Email: "a@example.com", Password: "secret123"},
		{Name: "A", Email: "not-an-email", Password: "secret123"},
		{Name: "A", Email: "a@example.com", Password: "12345"},
		{Name: "A", Email: "a@example.com", Password: strings.Repeat("x", 73)},
	}
	for _, in := range cases {
		_, err := svc.Register(ctx, in)
		requireStatus(t, err, http.StatusBadRequest)
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	f := newFixture()
	svc, _ := newAccounts(f, &captureMailer{})
	ctx := context.Background()

	first, err := svc.Register(ctx, RegisterInput{Name: "A", Email: "a@example.com", Password: "secret123"})
	require.NoError(t, err)

	_, err = svc.Register(ctx, RegisterInput{Name: "A", Email: "A@example.com", Password: "secret123"})
	requireStatus(t, err, http.StatusConflict)
	appErr, _ := apperrors.As(err)
	assert.Equal(t, true, appErr.Fields["requiresPayment"])
	assert.Equal(t, first.ID, appErr.Fields["userId"])

	f.seed(t, "done", "Done")
	_, err = svc.Register(ctx, RegisterInput{Name: "D", Email: "done@example.com", Password: "secret123"})
	requireStatus(t, err, http.StatusConflict)
	appErr, _ = apperrors.As(err)
	assert.Nil(t, appErr.Fields)
}

func TestRegisterSurvivesMailFailure(t *testing.T) {
	f := newFixture()
	svc, _ := newAccounts(f, &captureMailer{err: assert.AnError})

	_, err := svc.Register(context.Background(), RegisterInput{Name: "A", Email: "a@example.com", Password: "secret123"})
	require.NoError(t, err)
}

func TestVerificationTokenExpires(t *testing.T) {
	f := newFixture()
	mail := &captureMailer{}
	svc, _ := newAccounts(f, mail)
	ctx := context.Background()

	_, err := svc.Register(ctx, RegisterInput{Name: "A", Email: "a@example.com", Password: "secret123"})
	require.NoError(t, err)

	f.clock.Advance(time.Hour + time.Minute)
	requireStatus(t, svc.VerifyEmail(ctx, tokenFromLink(t, mail.sent[0].Text)), http.StatusBadRequest)
	requireStatus(t, svc.VerifyEmail(ctx, ""), http.StatusBadRequest)

	msg, err := svc.ResendVerification(ctx, "a@example.com")
	require.NoError(t, err)
	assert.NotEmpty(t, msg)
	require.Len(t, mail.sent, 2)
	require.NoError(t, svc.VerifyEmail(ctx, tokenFromLink(t, mail.sent[1].Text)))

	msg, err = svc.ResendVerification(ctx, "a@example.com")
	require.NoError(t, err)
	assert.Contains(t, msg, "already verified")
	assert.Len(t, mail.sent, 2)
}

func TestResendVerification(t *testing.T) {
	f := newFixture()
	mail := &captureMailer{}
	svc, _ := newAccounts(f, mail)
	ctx := context.Background()

	_, err := svc.ResendVerification(ctx, " ")
	requireStatus(t, err, http.StatusBadRequest)

	msg, err := svc.ResendVerification(ctx, "ghost@example.com")
	require.NoError(t, err)
	assert.NotEmpty(t, msg)
	assert.Empty(t, mail.sent)

	_, err = svc.Register(ctx, RegisterInput{Name: "A", Email: "a@example.com", Password: "secret123"})
	require.NoError(t, err)
	mail.err = assert.AnError
	_, err = svc.ResendVerification(ctx, "a@example.com")
	requireStatus(t, err, http.StatusInternalServerError)
}

func TestUpdateProfileClearsMatrimony(t *testing.T) {
	f := newFixture()
	svc, _ := newAccounts(f, &captureMailer{})
	ctx := context.Background()
	f.seed(t, "asha", "Asha")
	require.NoError(t, f.store.SetProfilePicture(ctx, "asha", "/files/a.jpg", f.clock.Now()))

	_, err := svc.UpdateProfile(ctx, "asha", models.Profile{Name: "  "})
	requireStatus(t, err, http.StatusBadRequest)

	updated, err := svc.UpdateProfile(ctx, "asha", models.Profile{
		Name:               "Asha R",
		City:               "Pune",
		IsMatrimonyEnabled: true,
		Gender:             "female",
		FatherName:         "Ravi",
	})
	require.NoError(t, err)
	assert.Equal(t, "Asha R", updated.Name)
	assert.Equal(t, "female", updated.Gender)
	assert.Equal(t, "/files/a.jpg", updated.ProfilePicture)

	updated, err = svc.UpdateProfile(ctx, "asha", models.Profile{Name: "Asha R", Gender: "female", FatherName: "Ravi"})
	require.NoError(t, err)
	assert.False(t, updated.IsMatrimonyEnabled)
	assert.Empty(t, updated.Gender)
	assert.Empty(t, updated.FatherName)
	assert.Equal(t, "/files/a.jpg", updated.ProfilePicture)
}

func TestFindPeopleExcludesConnections(t *testing.T) {
	f := newFixture()
	svc, _ := newAccounts(f, &captureMailer{})
	ctx := context.Background()
	f.seed(t, "alice", "Alice")
	f.seed(t, "bob", "Bob")
	f.seed(t, "carol", "Carol")
	f.seed(t, "dave", "Dave")
	f.befriend(t, "alice", "bob")
	require.NoError(t, f.store.CreateFriendRequest(ctx, "carol", "alice"))

	found, err := svc.FindPeople(ctx, "alice", SearchInput{})
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "dave", found[0].ID)
	assert.Equal(t, models.StatusNotFriends, found[0].RelationshipStatus)

	found, err = svc.FindPeople(ctx, "alice", SearchInput{Query: "  DAV "})
	require.NoError(t, err)
	assert.Len(t, found, 1)

	found, err = svc.FindPeople(ctx, "alice", SearchInput{Query: "zzz"})
	require.NoError(t, err)
	assert.Empty(t, found)
}

func TestFindPeopleHidesFamilyAndMatrimonyFields(t *testing.T) {
	f := newFixture()
	svc, _ := newAccounts(f, &captureMailer{})
	ctx := context.Background()
	f.seed(t, "alice", "Alice")
	f.seed(t, "dave", "Dave")

	dob := time.Date(1990, 1, 1, 0, 0, 0, 0, time.UTC)
	_, err := svc.UpdateProfile(ctx, "dave", models.Profile{
		Name:               "Dave",
		City:               "Nairobi",
		Profession:         "Teacher",
		Spouse:             &models.Spouse{Name: "S"},
		Children:           []models.Child{{Name: "Kid", Age: 3, Gender: "male"}},
		IsMatrimonyEnabled: true,
		DateOfBirth:        &dob,
		FatherName:         "Dad",
		MotherName:         "Mum",
		Gender:             "male",
		Education:          "BSc",
	})
	require.NoError(t, err)

	found, err := svc.FindPeople(ctx, "alice", SearchInput{})
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "Teacher", found[0].Profession)

	raw, err := json.Marshal(found[0])
	require.NoError(t, err)
	var fields map[string]any
	require.NoError(t, json.Unmarshal(raw, &fields))
	for _, key := range []string{
		"email", "spouse", "children", "isMatrimonyEnabled", "dateOfBirth",
		"fatherName", "motherName", "gender", "education", "matrimonyPictures",
	} {
		assert.NotContains(t, fields, key)
	}

	// The full profile still carries them.
	profile, err := svc.PublicProfile(ctx, "alice", "dave")
	require.NoError(t, err)
	assert.Equal(t, "Dad", profile.FatherName)
}

func TestFindPeopleQueryMatchesNameOnly(t *testing.T) {
	f := newFixture()
	svc, _ := newAccounts(f, &captureMailer{})
	ctx := context.Background()
	f.seed(t, "alice", "Alice")
	f.seed(t, "dave", "Dave")
	_, err := svc.UpdateProfile(ctx, "dave", models.Profile{Name: "Dave", City: "Nairobi", State: "Nairobi County"})
	require.NoError(t, err)

	found, err := svc.FindPeople(ctx, "alice", SearchInput{Query: "nairobi"})
	require.NoError(t, err)
	assert.Empty(t, found)

	found, err = svc.FindPeople(ctx, "alice", SearchInput{City: "nairobi"})
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "dave", found[0].ID)
}

func TestFindMatrimony(t *testing.T) {
	f := newFixture()
	svc, _ := newAccounts(f, &captureMailer{})
	ctx := context.Background()
	f.seed(t, "viewer", "Viewer")
	f.seed(t, "priya", "Priya")
	f.seed(t, "ravi", "Ravi")
	f.seed(t, "hidden", "Hidden")

	for id, p := range map[string]models.Profile{
		"viewer": {Name: "Viewer", IsMatrimonyEnabled: true, Gender: "male"},
		"priya":  {Name: "Priya", IsMatrimonyEnabled: true, Gender: "female", City: "Nairobi", Profession: "Engineer"},
		"ravi":   {Name: "Ravi", IsMatrimonyEnabled: true, Gender: "male", City: "Meru"},
	} {
		_, err := svc.UpdateProfile(ctx, id, p)
		require.NoError(t, err)
	}

	found, err := svc.FindMatrimony(ctx, "viewer", SearchInput{})
	require.NoError(t, err)
	assert.Len(t, found, 2)

	found, err = svc.FindMatrimony(ctx, "viewer", SearchInput{Query: "engineer", Gender: "female"})
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "priya", found[0].ID)

	found, err = svc.FindMatrimony(ctx, "viewer", SearchInput{City: "meru"})
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "ravi", found[0].ID)
}

func TestPublicProfile(t *testing.T) {
	f := newFixture()
	svc, _ := newAccounts(f, &captureMailer{})
	ctx := context.Background()
	f.seed(t, "alice", "Alice")
	f.seed(t, "bob", "Bob")
	require.NoError(t, f.store.CreateFriendRequest(ctx, "alice", "bob"))

	p, err := svc.PublicProfile(ctx, "alice", "bob")
	require.NoError(t, err)
	assert.Equal(t, models.StatusPendingOutgoing, p.RelationshipStatus)

	p, err = svc.PublicProfile(ctx, "bob", "bob")
	require.NoError(t, err)
	assert.Equal(t, models.StatusSelf, p.RelationshipStatus)

	_, err = svc.PublicProfile(ctx, "alice", "ghost")
	requireStatus(t, err, http.StatusNotFound)
}
