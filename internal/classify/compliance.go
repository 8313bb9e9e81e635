package classify

import "strings"

var (
	ferpaFlag = ComplianceFlag{
		Framework:   FrameworkFERPA,
		Regulation:  "20 U.S.C. § 1232g; 34 CFR Part 99",
		Severity:    SeverityHigh,
		Description: "Student education records detected",
		RequiredActions: []string{
			"Limit access to school officials with a legitimate educational interest",
			"Obtain written consent before disclosing records",
			"Record every disclosure of the education record",
			"Allow students to inspect and review their records",
		},
	}

	pciFlag = ComplianceFlag{
		Framework:   FrameworkPCI,
		Regulation:  "PCI DSS v4.0 Requirements 3 and 4",
		Severity:    SeverityCritical,
		Description: "Payment card data detected",
		RequiredActions: []string{
			"Encrypt stored cardholder data",
			"Mask the PAN wherever it is displayed",
			"Restrict access to cardholder data by business need to know",
			"Log and monitor all access to cardholder data",
		},
	}

	gdprFlag = ComplianceFlag{
		Framework:   FrameworkGDPR,
		Regulation:  "Regulation (EU) 2016/679 Articles 5, 25 and 32",
		Severity:    SeverityHigh,
		Description: "Personal data detected in non-public content",
		RequiredActions: []string{
			"Document the lawful basis for processing",
			"Apply data minimisation and purpose limitation",
			"Implement appropriate technical and organisational safeguards",
			"Support data subject access and erasure requests",
		},
	}
)

// AnalyzeCompliance derives compliance flags from the detected pattern
// types and the final classification. Each framework is flagged at most
// once, in the order FERPA, PCI, GDPR. PHI patterns do not raise a HIPAA
// flag.
func AnalyzeCompliance(patterns []DetectedPattern, classification Classification) []ComplianceFlag {
	var academic, financial, pii bool
	for _, p := range patterns {
		switch p.Type {
		case TypeAcademic:
			academic = true
		case TypeFinancial:
			financial = true
		case TypePII:
			pii = true
		}
		if strings.Contains(p.Pattern, "student") {
			academic = true
		}
	}

	flags := []ComplianceFlag{}
	if academic {
		flags = append(flags, cloneFlag(ferpaFlag))
	}
	if financial {
		flags = append(flags, cloneFlag(pciFlag))
	}
	if pii && classification != Public {
		flags = append(flags, cloneFlag(gdprFlag))
	}
	return flags
}

func cloneFlag(f ComplianceFlag) ComplianceFlag {
	f.RequiredActions = append([]string(nil), f.RequiredActions...)
	return f
}
