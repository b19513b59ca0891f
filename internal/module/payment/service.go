package payment

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/simp-lee/dinesync/internal/domain"
	"github.com/simp-lee/dinesync/internal/identity"
	"github.com/simp-lee/dinesync/internal/pkg"
	"github.com/simp-lee/dinesync/internal/rest"
)

// CardConfirmer completes a card payment for a prepared intent and
// returns the settled transaction id. Implementations wrap the payment
// provider's client-side confirmation step.
type CardConfirmer interface {
	ConfirmCardPayment(ctx context.Context, clientSecret string) (transactionID string, err error)
}

// CardConfirmerFunc adapts a function to the CardConfirmer interface.
type CardConfirmerFunc func(ctx context.Context, clientSecret string) (string, error)

// ConfirmCardPayment implements CardConfirmer.
func (f CardConfirmerFunc) ConfirmCardPayment(ctx context.Context, clientSecret string) (string, error) {
	return f(ctx, clientSecret)
}

// checkoutForm validates the package selection before any network call.
type checkoutForm struct {
	Package string `json:"package" validate:"required,oneof=Silver Gold Platinum"`
}

type intentResponse struct {
	ClientSecret string  `json:"client_secret"`
	Amount       float64 `json:"amount"`
}

type saveRequest struct {
	Package       string  `json:"package"`
	Amount        float64 `json:"amount"`
	TransactionID string  `json:"transaction_id"`
}

// Service runs the membership checkout: prepare an intent server-side,
// confirm the card with the provider, then record the settled payment.
type Service struct {
	api       *rest.Client
	session   *identity.Session
	confirmer CardConfirmer
	log       *slog.Logger
}

// NewService creates a payment service.
func NewService(api *rest.Client, session *identity.Session, confirmer CardConfirmer, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{api: api, session: session, confirmer: confirmer, log: log}
}

// Packages lists the purchasable membership tiers.
func (s *Service) Packages(ctx context.Context) ([]domain.MembershipPackage, error) {
	var out struct {
		Packages []domain.MembershipPackage `json:"packages"`
	}
	if err := s.api.Get(ctx, "/packages", nil, &out); err != nil {
		return nil, err
	}
	return out.Packages, nil
}

// Checkout purchases a membership package for the signed-in user. The
// intent and the confirmation both happen before anything is recorded,
// so an abandoned or declined card leaves no payment row behind. The
// new tier takes effect on the next sign-in, when a fresh token is
// issued.
func (s *Service) Checkout(ctx context.Context, packageName string) error {
	if s.session == nil {
		return domain.NewAppError(domain.CodeUnauthorized, "sign in to continue", nil)
	}
	if err := pkg.ValidateStruct(checkoutForm{Package: packageName}); err != nil {
		return err
	}

	var intent intentResponse
	if err := s.api.Post(ctx, "/payments/create-intent", checkoutForm{Package: packageName}, &intent); err != nil {
		return err
	}
	if intent.ClientSecret == "" {
		return domain.NewAppError(domain.CodeInternal, "payment intent missing client secret", nil)
	}

	txID, err := s.confirmer.ConfirmCardPayment(ctx, intent.ClientSecret)
	if err != nil {
		s.log.Warn("card confirmation failed",
			slog.String("package", packageName),
			slog.Any("error", err),
		)
		return domain.NewAppError(domain.CodeApplication, "card payment was not completed", err)
	}

	save := saveRequest{Package: packageName, Amount: intent.Amount, TransactionID: txID}
	return s.api.Mutate(ctx, http.MethodPost, "/payments/save", save)
}
