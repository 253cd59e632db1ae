// internal/services/payment_service.go
package services

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stripe/stripe-go/v74"
	"github.com/stripe/stripe-go/v74/client"

	"github.com/javajoker/nepshop-backend/internal/config"
	"github.com/javajoker/nepshop-backend/internal/metrics"
	"github.com/javajoker/nepshop-backend/internal/models"
	"github.com/javajoker/nepshop-backend/internal/utils"
)

// PaymentProcessor creates payment intents with an external gateway. amount is in
// minor currency units.
type PaymentProcessor interface {
	CreateIntent(ctx context.Context, amount int64, currency string, metadata map[string]string) (*ProcessorIntent, error)
}

type ProcessorIntent struct {
	ID           string
	ClientSecret string
	Status       string
}

// StripeProcessor talks to Stripe through a dedicated client, never the package-level key.
type StripeProcessor struct {
	api *client.API
}

func NewStripeProcessor(secretKey string) *StripeProcessor {
	api := &client.API{}
	api.Init(secretKey, nil)
	return &StripeProcessor{api: api}
}

func (p *StripeProcessor) CreateIntent(ctx context.Context, amount int64, currency string, metadata map[string]string) (*ProcessorIntent, error) {
	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(amount),
		Currency: stripe.String(currency),
	}
	params.Context = ctx
	for k, v := range metadata {
		params.AddMetadata(k, v)
	}

	pi, err := p.api.PaymentIntents.New(params)
	if err != nil {
		return nil, err
	}

	return &ProcessorIntent{
		ID:           pi.ID,
		ClientSecret: pi.ClientSecret,
		Status:       string(pi.Status),
	}, nil
}

type PaymentService struct {
	processor PaymentProcessor
	config    *config.Config
	metrics   *metrics.Metrics
}

type CreatePaymentIntentRequest struct {
	TotalAmount decimal.Decimal `json:"total_amount"`
}

type PaymentIntentResponse struct {
	ClientSecret string `json:"client_secret"`
	PaymentID    string `json:"payment_id"`
	Status       string `json:"status"`
}

func NewPaymentService(processor PaymentProcessor, config *config.Config, m *metrics.Metrics) *PaymentService {
	return &PaymentService{
		processor: processor,
		config:    config,
		metrics:   m,
	}
}

// MinorUnits converts a major-unit amount to the smallest currency unit, rounding half
// away from zero.
func MinorUnits(amount decimal.Decimal) int64 {
	return amount.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}

func (s *PaymentService) CreatePaymentIntent(ctx context.Context, identity models.Identity, totalAmount decimal.Decimal) (*PaymentIntentResponse, error) {
	if !totalAmount.IsPositive() {
		return nil, utils.NewValidationError("Total amount is required for payment")
	}

	amount := MinorUnits(totalAmount)
	if amount < 1 {
		return nil, utils.NewValidationError("Total amount is too small to charge")
	}

	intent, err := s.processor.CreateIntent(ctx, amount, s.config.Payment.Currency, map[string]string{
		"user_id": identity.UserID.String(),
	})
	if err != nil {
		s.metrics.PaymentIntent("error")
		s.metrics.ExternalFailure("payment_processor")
		logrus.WithError(err).WithFields(logrus.Fields{
			"user_id": identity.UserID,
			"amount":  amount,
		}).Error("Failed to create payment intent")
		return nil, utils.NewExternalServiceError("payment processor", fmt.Errorf("create intent: %w", err))
	}

	s.metrics.PaymentIntent("created")
	return &PaymentIntentResponse{
		ClientSecret: intent.ClientSecret,
		PaymentID:    intent.ID,
		Status:       intent.Status,
	}, nil
}
