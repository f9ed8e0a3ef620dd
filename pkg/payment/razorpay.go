package payment

import (
	"context"

	"github.com/example/jewelshop/pkg/apperror"
	"github.com/example/jewelshop/pkg/config"
	razorpay "github.com/razorpay/razorpay-go"
	"go.uber.org/zap"
)

// orderCreator is the slice of the Razorpay client used here.
type orderCreator interface {
	Create(data map[string]interface{}, extraHeaders map[string]string) (map[string]interface{}, error)
}

type RazorpayGateway struct {
	orders orderCreator
	keyID  string
	secret string
	logger *zap.Logger
}

// NewRazorpayGateway fails with a configuration error when credentials are
// missing, so a misconfigured process never starts serving.
func NewRazorpayGateway(cfg config.PaymentConfig, logger *zap.Logger) (*RazorpayGateway, error) {
	if cfg.KeyID == "" || cfg.KeySecret == "" {
		return nil, apperror.New(apperror.KindConfiguration, "payment gateway credentials are not configured")
	}
	client := razorpay.NewClient(cfg.KeyID, cfg.KeySecret)
	return &RazorpayGateway{
		orders: client.Order,
		keyID:  cfg.KeyID,
		secret: cfg.KeySecret,
		logger: logger.Named("razorpay"),
	}, nil
}

func (g *RazorpayGateway) KeyID() string {
	return g.keyID
}

// CreateOrder has no context support in the SDK; the call runs to completion
// under the client's own HTTP timeout.
func (g *RazorpayGateway) CreateOrder(ctx context.Context, amountMinor int64, currency, receipt string) (GatewayOrder, error) {
	if err := ctx.Err(); err != nil {
		return GatewayOrder{}, err
	}

	resp, err := g.orders.Create(map[string]interface{}{
		"amount":   amountMinor,
		"currency": currency,
		"receipt":  receipt,
	}, nil)
	if err != nil {
		g.logger.Warn("Gateway order creation failed",
			zap.String("receipt", receipt),
			zap.Int64("amount", amountMinor),
			zap.Error(err))
		return GatewayOrder{}, apperror.Wrap(apperror.KindUpstream, err, "payment gateway error: %s", err.Error())
	}

	id, _ := resp["id"].(string)
	if id == "" {
		return GatewayOrder{}, apperror.New(apperror.KindUpstream, "payment gateway returned no order id")
	}

	order := GatewayOrder{
		ID:       id,
		Amount:   amountMinor,
		Currency: currency,
		Receipt:  receipt,
	}
	if amt, ok := resp["amount"].(float64); ok {
		order.Amount = int64(amt)
	}
	if cur, ok := resp["currency"].(string); ok && cur != "" {
		order.Currency = cur
	}

	g.logger.Info("Gateway order created",
		zap.String("receipt", receipt),
		zap.String("gateway_order_id", id),
		zap.Int64("amount", order.Amount))

	return order, nil
}

func (g *RazorpayGateway) VerifySignature(gatewayOrderID, gatewayPaymentID, signature string) bool {
	return VerifySignature(gatewayOrderID, gatewayPaymentID, signature, g.secret)
}
