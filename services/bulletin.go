package services

import (
	"context"

	"github.com/leebenson/conform"
	"github.com/pkg/errors"

	"github.com/adi27online/meruglobalconnect/apperrors"
	"github.com/adi27online/meruglobalconnect/database"
	"github.com/adi27online/meruglobalconnect/models"
	"github.com/adi27online/meruglobalconnect/utils"
)

// newestFirst lists which boards are shown newest first. The others are
// ordered by upcoming date.
var newestFirst = map[models.Board]bool{
	models.BoardNews:         true,
	models.BoardJobPostings:  true,
	models.BoardJobSeekers:   true,
	models.BoardMeetGreets:   false,
	models.BoardGuestHosts:   false,
	models.BoardYouthConnect: true,
}

type BulletinService struct {
	Deps
}

func NewBulletinService(deps Deps) *BulletinService {
	return &BulletinService{Deps: deps.withDefaults()}
}

// Create validates post, stamps it with a fresh id and its author, and
// stores it.
func (s *BulletinService) Create(ctx context.Context, authorID string, post models.Post) error {
	if err := s.prepare(post); err != nil {
		return err
	}

	now := s.Now()
	meta := post.Meta()
	meta.ID = utils.GenerateUUID()
	meta.AuthorID = authorID
	meta.CreatedAt = now
	meta.UpdatedAt = now

	ctx, cancel := s.db(ctx)
	defer cancel()
	if err := s.Store.SavePost(ctx, post); err != nil {
		return apperrors.Internal(err)
	}
	return nil
}

func (s *BulletinService) prepare(post models.Post) error {
	if err := conform.Strings(post); err != nil {
		return apperrors.BadRequest("invalid request")
	}
	if err := validateStruct(post); err != nil {
		return err
	}

	switch p := post.(type) {
	case *models.JobPosting:
		p.Status = models.PostStatusActive
	case *models.GuestHostOffer:
		if p.AvailableTo < p.AvailableFrom {
			return apperrors.BadRequest("availableTo must not be before availableFrom").
				With("fields", []string{"availableTo"})
		}
		if p.AvailableFrom < s.today() {
			return apperrors.BadRequest("availableFrom must not be in the past").
				With("fields", []string{"availableFrom"})
		}
		p.Status = models.PostStatusActive
	}
	return nil
}

func (s *BulletinService) today() string {
	return s.Now().Format(models.DateLayout)
}

// List decodes a board's visible posts into dst, a pointer to a slice of the
// board's post type.
func (s *BulletinService) List(ctx context.Context, board models.Board, dst any) error {
	q := database.PostQuery{Descending: newestFirst[board]}
	if board == models.BoardGuestHosts {
		q.ActiveOn = s.today()
	}

	ctx, cancel := s.db(ctx)
	defer cancel()
	if err := s.Store.ListPosts(ctx, board, q, dst); err != nil {
		return apperrors.Internal(err)
	}
	return nil
}

// ListBoard is List for a concrete post type. It never returns a nil slice.
func ListBoard[T any](ctx context.Context, s *BulletinService, board models.Board) ([]T, error) {
	items := []T{}
	if err := s.List(ctx, board, &items); err != nil {
		return nil, err
	}
	if items == nil {
		items = []T{}
	}
	return items, nil
}

// SaveJobSeekerProfile creates or replaces the caller's profile, keeping the
// first creation time on replace.
func (s *BulletinService) SaveJobSeekerProfile(ctx context.Context, userID string, p *models.JobSeekerProfile) (bool, error) {
	if err := s.prepare(p); err != nil {
		return false, err
	}

	ctx, cancel := s.db(ctx)
	defer cancel()

	now := s.Now()
	created := false
	var existing models.JobSeekerProfile
	err := s.Store.GetPost(ctx, models.BoardJobSeekers, userID, &existing)
	switch {
	case err == nil:
		p.CreatedAt = existing.CreatedAt
	case errors.Is(err, database.ErrNotFound):
		p.CreatedAt = now
		created = true
	default:
		return false, apperrors.Internal(err)
	}
	p.ID = userID
	p.AuthorID = userID
	p.UpdatedAt = now

	if err := s.Store.SavePost(ctx, p); err != nil {
		return false, apperrors.Internal(err)
	}
	return created, nil
}

func (s *BulletinService) GetJobSeekerProfile(ctx context.Context, userID string) (*models.JobSeekerProfile, error) {
	ctx, cancel := s.db(ctx)
	defer cancel()

	var p models.JobSeekerProfile
	if err := s.Store.GetPost(ctx, models.BoardJobSeekers, userID, &p); err != nil {
		return nil, storeError(err, "job seeker profile not found")
	}
	return &p, nil
}
