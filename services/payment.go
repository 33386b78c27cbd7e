package services

import (
	"context"
	"net/http"
	"strings"

	"github.com/pkg/errors"

	"github.com/adi27online/meruglobalconnect/apperrors"
	"github.com/adi27online/meruglobalconnect/database"
	"github.com/adi27online/meruglobalconnect/logger"
	"github.com/adi27online/meruglobalconnect/metrics"
	"github.com/adi27online/meruglobalconnect/payment"
)

// AlreadyPaidSecret is returned in place of a client secret when the account
// has already paid.
const AlreadyPaidSecret = "already_paid"

type PaymentService struct {
	Deps
	processor payment.Processor
	amount    int64
	currency  string
}

func NewPaymentService(deps Deps, processor payment.Processor, amountCents int64, currency string) *PaymentService {
	if processor == nil {
		processor = payment.Disabled{}
	}
	return &PaymentService{
		Deps:      deps.withDefaults(),
		processor: processor,
		amount:    amountCents,
		currency:  strings.ToLower(currency),
	}
}

// CreateIntent starts the registration payment for userID and returns the
// client secret the browser completes it with.
func (s *PaymentService) CreateIntent(ctx context.Context, userID string) (string, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return "", apperrors.BadRequest("userId is required")
	}

	dbCtx, cancel := s.db(ctx)
	defer cancel()
	user, err := s.Store.GetUser(dbCtx, userID)
	if err != nil {
		return "", storeError(err, "user not found")
	}
	if user.IsPaid {
		return AlreadyPaidSecret, nil
	}

	pctx, pcancel := s.provider(ctx)
	defer pcancel()
	intent, err := s.processor.CreateIntent(pctx, s.amount, s.currency, map[string]string{"userId": user.ID})
	if err != nil {
		return "", s.providerError(err, "create_intent")
	}
	logger.Info().Str("user_id", user.ID).Str("intent", intent.ID).Msg("payment intent created")
	return intent.ClientSecret, nil
}

// ConfirmPayment marks the intent's user as paid. alreadyProcessed reports
// that the flag was already set.
func (s *PaymentService) ConfirmPayment(ctx context.Context, intentID string) (alreadyProcessed bool, err error) {
	intentID = strings.TrimSpace(intentID)
	if intentID == "" {
		return false, apperrors.BadRequest("paymentIntentId is required")
	}

	pctx, pcancel := s.provider(ctx)
	defer pcancel()
	intent, err := s.processor.GetIntent(pctx, intentID)
	if err != nil {
		return false, s.providerError(err, "get_intent")
	}
	if !intent.Succeeded() {
		return false, apperrors.BadRequest("payment not successful, status: " + intent.Status)
	}
	userID := intent.Metadata["userId"]
	if userID == "" {
		return false, apperrors.BadRequest("payment is not linked to a user")
	}

	dbCtx, cancel := s.db(ctx)
	defer cancel()
	changed, err := s.Store.MarkPaid(dbCtx, userID, s.Now())
	if errors.Is(err, database.ErrNotFound) {
		return false, apperrors.NotFound("user not found")
	}
	if err != nil {
		return false, apperrors.Internal(err)
	}
	if changed {
		metrics.Registration("paid")
		logger.Info().Str("user_id", userID).Str("intent", intentID).Msg("registration paid")
	}
	return !changed, nil
}

func (s *PaymentService) providerError(err error, op string) error {
	logProviderFailure(err, "payment", op)
	if errors.Is(err, payment.ErrNotConfigured) {
		return apperrors.New(http.StatusInternalServerError, "payments are not configured")
	}
	return apperrors.New(http.StatusInternalServerError, "payment provider error")
}
