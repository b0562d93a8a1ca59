package api

import (
	"context"
	"net/http"
	"time"

	"github.com/shopdesk/shopdesk-go/internal/domain/billing"
	"github.com/shopdesk/shopdesk-go/internal/ports"
)

const subscriptionsPath = "/subscriptions"

var _ ports.SubscriptionAPI = (*Client)(nil)

// subscriptionPayload is the wire shape of one subscription record.
type subscriptionPayload struct {
	ID        int64     `json:"id"`
	PlanName  string    `json:"plan_name"`
	Status    string    `json:"status"`
	IsExpired bool      `json:"is_expired"`
	EndDate   time.Time `json:"end_date"`
}

// ListSubscriptions fetches the account's full subscription history.
// Protected call, subject to the standard retry-once policy.
func (c *Client) ListSubscriptions(ctx context.Context) ([]billing.Subscription, error) {
	var resp []subscriptionPayload
	err := c.Do(ctx, RequestSpec{
		Method: http.MethodGet,
		Path:   subscriptionsPath,
		Out:    &resp,
	})
	if err != nil {
		return nil, err
	}

	subs := make([]billing.Subscription, 0, len(resp))
	for _, p := range resp {
		subs = append(subs, billing.Subscription{
			ID:        p.ID,
			PlanName:  p.PlanName,
			Status:    billing.SubscriptionStatus(p.Status),
			IsExpired: p.IsExpired,
			EndDate:   p.EndDate,
		})
	}
	return subs, nil
}
