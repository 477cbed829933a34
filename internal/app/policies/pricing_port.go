package policies

import (
	"context"

	domainpricing "hotelres/internal/domain/pricing"
	domainrooms "hotelres/internal/domain/rooms"
	domainrange "hotelres/internal/domain/shared/daterange"
)

// PricingPort quotes a stay before any promotion is applied.
type PricingPort interface {
	Quote(ctx context.Context, room *domainrooms.Room, dr domainrange.DateRange) (domainpricing.Breakdown, error)
}

var _ PricingPort = domainpricing.FixedRate{}
