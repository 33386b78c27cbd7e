package services

import (
	"context"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/adi27online/meruglobalconnect/apperrors"
	"github.com/adi27online/meruglobalconnect/database"
	"github.com/adi27online/meruglobalconnect/logger"
)

// Realtime event names pushed to connected clients.
const (
	EventFriendRequest         = "friend_request"
	EventFriendRequestAccepted = "friend_request_accepted"
	EventNewMessage            = "new_message"
)

// Notifier delivers an event to every live connection of the given users.
type Notifier interface {
	Notify(userIDs []string, event string, data any)
}

type payload = map[string]any

type noopNotifier struct{}

func (noopNotifier) Notify([]string, string, any) {}

// Deps is what every service is built from.
type Deps struct {
	Store           database.Store
	Notifier        Notifier
	DBTimeout       time.Duration
	ProviderTimeout time.Duration
	Now             func() time.Time
}

func (d Deps) withDefaults() Deps {
	if d.Notifier == nil {
		d.Notifier = noopNotifier{}
	}
	if d.DBTimeout <= 0 {
		d.DBTimeout = 10 * time.Second
	}
	if d.ProviderTimeout <= 0 {
		d.ProviderTimeout = 15 * time.Second
	}
	if d.Now == nil {
		d.Now = func() time.Time { return time.Now().UTC() }
	}
	return d
}

func (d Deps) db(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, d.DBTimeout)
}

func (d Deps) provider(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, d.ProviderTimeout)
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// validationError names every failing field, using JSON paths such as
// "education[0].degree".
func validationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return apperrors.BadRequest("invalid request")
	}
	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		ns := fe.Namespace()
		if i := strings.Index(ns, "."); i >= 0 {
			ns = ns[i+1:]
		}
		fields = append(fields, ns)
	}
	return apperrors.BadRequest("missing or invalid fields: "+strings.Join(fields, ", ")).With("fields", fields)
}

func validateStruct(v any) error {
	if err := validate.Struct(v); err != nil {
		return validationError(err)
	}
	return nil
}

// storeError maps store sentinels onto client errors. Anything else is
// logged and hidden behind a 500.
func storeError(err error, notFound string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, database.ErrNotFound):
		return apperrors.NotFound(notFound)
	case errors.Is(err, database.ErrConflict):
		return apperrors.Conflict("the record was changed by another request, please retry")
	case errors.Is(err, database.ErrDuplicate):
		return apperrors.Conflict("record already exists")
	}
	if _, ok := apperrors.As(err); ok {
		return err
	}
	return apperrors.Internal(err)
}

func logProviderFailure(err error, provider, op string) {
	logger.Error().Err(err).Str("provider", provider).Str("op", op).Msg("provider call failed")
}
