package entitlement

type Tier int

const (
	TierFree    Tier = 0
	TierPremium Tier = 1
	TierChef    Tier = 2
)

// CanRead reports whether content with the given premium flag is fully
// visible at this tier.
func (t Tier) CanRead(isPremium bool) bool {
	return !isPremium || t >= TierPremium
}
