package services

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adi27online/meruglobalconnect/apperrors"
	"github.com/adi27online/meruglobalconnect/models"
)

func TestCreateNewsValidation(t *testing.T) {
	f := newFixture()
	svc := NewBulletinService(f.deps)

	err := svc.Create(context.Background(), "alice", &models.NewsItem{Title: "  ", Date: "10/03/2025"})
	requireStatus(t, err, http.StatusBadRequest)
	appErr, _ := apperrors.As(err)
	assert.ElementsMatch(t, []string{"title", "content", "date"}, appErr.Fields["fields"])
}

func TestNewsListedNewestFirst(t *testing.T) {
	f := newFixture()
	svc := NewBulletinService(f.deps)
	ctx := context.Background()

	for _, n := range []models.NewsItem{
		{Title: "Older", Content: "x", Date: "2025-01-05"},
		{Title: "Newest", Content: "x", Date: "2025-03-01"},
		{Title: "Middle", Content: "x", Date: "2025-02-14"},
	} {
		n := n
		require.NoError(t, svc.Create(ctx, "alice", &n))
	}

	items, err := ListBoard[models.NewsItem](ctx, svc, models.BoardNews)
	require.NoError(t, err)
	require.Len(t, items, 3)
	assert.Equal(t, "Newest", items[0].Title)
	assert.Equal(t, "Middle", items[1].Title)
	assert.Equal(t, "Older", items[2].Title)
	assert.Equal(t, "alice", items[0].AuthorID)
	assert.NotEmpty(t, items[0].ID)
}

func TestEmptyBoardListsEmptySlice(t *testing.T) {
	svc := NewBulletinService(newFixture().deps)
	items, err := ListBoard[models.YouthConnectEntry](context.Background(), svc, models.BoardYouthConnect)
	require.NoError(t, err)
	assert.NotNil(t, items)
	assert.Empty(t, items)
}

func TestMeetGreetsListedByUpcomingDate(t *testing.T) {
	f := newFixture()
	svc := NewBulletinService(f.deps)
	ctx := context.Background()

	for _, m := range []models.MeetGreet{
		{EventName: "Evening", EventDate: "2025-04-01", EventTime: "18:30", Location: "Hall"},
		{EventName: "Morning", EventDate: "2025-04-01", EventTime: "09:00", Location: "Hall"},
		{EventName: "Earlier", EventDate: "2025-03-20", EventTime: "20:00", Location: "Park"},
	} {
		m := m
		require.NoError(t, svc.Create(ctx, "bob", &m))
	}
	requireStatus(t, svc.Create(ctx, "bob", &models.MeetGreet{
		EventName: "Bad", EventDate: "2025-04-01", EventTime: "25:00", Location: "Hall",
	}), http.StatusBadRequest)

	items, err := ListBoard[models.MeetGreet](ctx, svc, models.BoardMeetGreets)
	require.NoError(t, err)
	require.Len(t, items, 3)
	assert.Equal(t, []string{"Earlier", "Morning", "Evening"},
		[]string{items[0].EventName, items[1].EventName, items[2].EventName})
}

func guestHost(from, to string) *models.GuestHostOffer {
	return &models.GuestHostOffer{
		AccommodationType: "spare_room",
		AvailableFrom:     from,
		AvailableTo:       to,
		MaxGuests:         2,
		ContactEmail:      "host@example.com",
		City:              "Meru",
		State:             "Meru",
		Zip:               "60200",
		Country:           "Kenya",
	}
}

func TestGuestHostDatesAndExpiry(t *testing.T) {
	f := newFixture() // today is 2025-03-10
	svc := NewBulletinService(f.deps)
	ctx := context.Background()

	requireStatus(t, svc.Create(ctx, "host", guestHost("2025-03-20", "2025-03-12")), http.StatusBadRequest)
	requireStatus(t, svc.Create(ctx, "host", guestHost("2025-03-01", "2025-03-09")), http.StatusBadRequest)

	err := svc.Create(ctx, "host", guestHost("2025-03-01", "2025-03-20"))
	requireStatus(t, err, http.StatusBadRequest)
	appErr, _ := apperrors.As(err)
	assert.Equal(t, []string{"availableFrom"}, appErr.Fields["fields"])
	requireStatus(t, svc.Create(ctx, "host", guestHost("2025-03-09", "2025-03-11")), http.StatusBadRequest)

	require.NoError(t, svc.Create(ctx, "host", guestHost("2025-03-15", "2025-03-30")))
	require.NoError(t, svc.Create(ctx, "host", guestHost("2025-03-10", "2025-03-11")))

	items, err := ListBoard[models.GuestHostOffer](ctx, svc, models.BoardGuestHosts)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "2025-03-10", items[0].AvailableFrom)
	assert.Equal(t, models.PostStatusActive, items[0].Status)

	// The short offer stays visible through its last day, then lapses.
	f.clock.Advance(24 * time.Hour)
	items, err = ListBoard[models.GuestHostOffer](ctx, svc, models.BoardGuestHosts)
	require.NoError(t, err)
	assert.Len(t, items, 2)

	f.clock.Advance(24 * time.Hour)
	items, err = ListBoard[models.GuestHostOffer](ctx, svc, models.BoardGuestHosts)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "2025-03-15", items[0].AvailableFrom)
}

func jobSeeker(name string) *models.JobSeekerProfile {
	return &models.JobSeekerProfile{
		FullName:     name,
		Location:     "Nairobi",
		ContactEmail: "seeker@example.com",
		Education:    []models.Education{{Degree: "BSc", Institution: "UoN"}},
		Experience:   []models.Experience{{JobTitle: "Analyst", CompanyName: "Acme"}},
		Skills:       []string{"go"},
	}
}

func TestJobSeekerProfileUpsert(t *testing.T) {
	f := newFixture()
	svc := NewBulletinService(f.deps)
	ctx := context.Background()

	_, err := svc.GetJobSeekerProfile(ctx, "asha")
	requireStatus(t, err, http.StatusNotFound)

	invalid := jobSeeker("Asha")
	invalid.Education = []models.Education{{Institution: "UoN"}}
	_, err = svc.SaveJobSeekerProfile(ctx, "asha", invalid)
	requireStatus(t, err, http.StatusBadRequest)
	appErr, _ := apperrors.As(err)
	assert.Equal(t, []string{"education[0].degree"}, appErr.Fields["fields"])

	created, err := svc.SaveJobSeekerProfile(ctx, "asha", jobSeeker("Asha"))
	require.NoError(t, err)
	assert.True(t, created)
	first, err := svc.GetJobSeekerProfile(ctx, "asha")
	require.NoError(t, err)

	f.clock.Advance(time.Hour)
	created, err = svc.SaveJobSeekerProfile(ctx, "asha", jobSeeker("Asha Rao"))
	require.NoError(t, err)
	assert.False(t, created)

	second, err := svc.GetJobSeekerProfile(ctx, "asha")
	require.NoError(t, err)
	assert.Equal(t, "Asha Rao", second.FullName)
	assert.Equal(t, "asha", second.ID)
	assert.True(t, first.CreatedAt.Equal(second.CreatedAt))
	assert.True(t, second.UpdatedAt.After(first.UpdatedAt))

	all, err := ListBoard[models.JobSeekerProfile](ctx, svc, models.BoardJobSeekers)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestJobPostingIsActive(t *testing.T) {
	f := newFixture()
	svc := NewBulletinService(f.deps)
	ctx := context.Background()

	post := &models.JobPosting{
		JobTitle:                "Engineer",
		CompanyName:             "Acme",
		Location:                "Remote",
		JobDescription:          "Build things",
		EmploymentType:          "full-time",
		ApplicationInstructions: "Email us",
		ContactEmail:            "jobs@acme.example",
		Status:                  models.PostStatusInactive,
	}
	require.NoError(t, svc.Create(ctx, "acme", post))

	items, err := ListBoard[models.JobPosting](ctx, svc, models.BoardJobPostings)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, models.PostStatusActive, items[0].Status)
}
