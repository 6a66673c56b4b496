// internal/domain/entitlement/features.go
package entitlement

type Feature string

const (
	FeatureCreateCampaign  Feature = "create_campaign"
	FeatureAccessCRM       Feature = "access_crm"
	FeatureAdvanced        Feature = "advanced_features"
	FeatureIntentDiscovery Feature = "intent_discovery"
)

// Grant says in which paid state a feature is unlocked.
type Grant struct {
	Trial bool
	Paid  bool
}

// FeatureTable is the only place feature gating is decided.
var FeatureTable = map[Feature]Grant{
	FeatureCreateCampaign:  {Trial: true, Paid: true},
	FeatureAccessCRM:       {Trial: true, Paid: true},
	FeatureAdvanced:        {Trial: false, Paid: true},
	FeatureIntentDiscovery: {Trial: false, Paid: true},
}

func evaluateFeatures(trial, paid bool) map[Feature]bool {
	out := make(map[Feature]bool, len(FeatureTable))
	for f, g := range FeatureTable {
		out[f] = (trial && g.Trial) || (paid && g.Paid)
	}
	return out
}
