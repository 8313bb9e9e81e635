package classify

var tierRecommendations = map[Classification][]string{
	TopSecret: {
		"Apply maximum security controls and encryption",
		"Limit access to explicitly authorized personnel",
		"Enable comprehensive audit logging",
	},
	Restricted: {
		"Encrypt data at rest and in transit",
		"Implement strict role-based access controls",
		"Enable audit logging for all access",
	},
	Confidential: {
		"Apply encryption to sensitive fields",
		"Restrict access to authorized users",
	},
	Internal: {
		"Limit access to internal users",
	},
}

// Pattern-type advice, applied in this order.
var typeRecommendations = []struct {
	typ  PatternType
	text string
}{
	{TypePII, "Consider anonymization or pseudonymization of personal data"},
	{TypeFinancial, "Ensure PCI DSS compliance for payment card data"},
	{TypeAcademic, "Ensure FERPA compliance for student education records"},
}

var complianceRecommendations = []string{
	"Review compliance requirements for the flagged regulations",
	"Schedule a periodic compliance audit for this data",
}

// Recommend builds the advisory list for a result: classification tier
// first, then pattern types, then compliance follow-up.
func Recommend(classification Classification, patterns []DetectedPattern, flags []ComplianceFlag) []string {
	recs := []string{}
	recs = append(recs, tierRecommendations[classification]...)

	present := make(map[PatternType]bool, len(patterns))
	for _, p := range patterns {
		present[p.Type] = true
	}
	for _, tr := range typeRecommendations {
		if present[tr.typ] {
			recs = append(recs, tr.text)
		}
	}

	if len(flags) > 0 {
		recs = append(recs, complianceRecommendations...)
	}
	return recs
}
