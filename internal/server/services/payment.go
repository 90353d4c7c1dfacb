package services

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/vaultkeeper/internal/common"
	"github.com/dmitrijs2005/vaultkeeper/internal/logging"
	"github.com/dmitrijs2005/vaultkeeper/internal/server/models"
)

// PaymentService turns payment provider notifications into entitlements.
type PaymentService struct {
	quota *QuotaService
	log   logging.Logger
}

func NewPaymentService(q *QuotaService, log logging.Logger) *PaymentService {
	return &PaymentService{quota: q, log: log}
}

// HandlePaymentEvent ignores anything that is not approved. Approved events
// must carry a payment id, a user id and a product id.
func (p *PaymentService) HandlePaymentEvent(ctx context.Context, ev models.PaymentEvent) error {
	if ev.Status != models.PaymentStatusApproved {
		p.log.Debug(ctx, "payment event ignored", "payment_id", ev.PaymentID, "status", ev.Status)
		return nil
	}
	if ev.PaymentID == "" || ev.UserID == "" || ev.ProductID <= 0 {
		return fmt.Errorf("%w: payment event is missing metadata", common.ErrValidation)
	}
	return p.quota.ApplyEntitlement(ctx, ev.UserID, ev.PurchaseKind, ev.ProductID, ev.PaymentID)
}
