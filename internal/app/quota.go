package app

import "quickgen/pkg/domain"

// Non-premium callers get this many metered text generations.
const freeUsageLimit = 10

// admitText decides whether a metered text operation (article, blog titles)
// may proceed. Pure decision; the usage counter is bumped only after the
// operation succeeds.
func admitText(u domain.User) error {
	if u.Plan == domain.PlanPremium {
		return nil
	}
	if u.FreeUsage >= freeUsageLimit {
		return ErrQuotaExceeded
	}
	return nil
}

// admitPremium gates the premium-only operations (image generation,
// background removal, object removal, resume review). The free-usage
// counter plays no part here.
func admitPremium(u domain.User) error {
	if u.Plan != domain.PlanPremium {
		return ErrPremiumRequired
	}
	return nil
}
