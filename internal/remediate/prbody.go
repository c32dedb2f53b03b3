package remediate

import (
	"fmt"
	"strings"

	"github.com/jmckenzie-cs/shiftgate/internal/models"
)

// PRBody renders the pull request description for a set of critical/high
// findings being fixed.
func PRBody(findings []models.Finding) string {
	var b strings.Builder

	fmt.Fprintf(&b, "## Security Remediation\n\n")
	fmt.Fprintf(&b, "This pull request addresses **%d critical/high severity security issues** reported by the IaC scan.\n\n", len(findings))

	b.WriteString("### Findings addressed\n\n")
	for i, f := range findings {
		name := f.RuleName
		if name == "" {
			name = f.RuleID
		}
		desc := f.Message
		if desc == "" {
			desc = "Security issue detected"
		}
		fmt.Fprintf(&b, "%d. **%s** (%s): %s\n", i+1, name, f.Severity, desc)
	}

	b.WriteString(`
### Fix applied

The vulnerable configuration is replaced with the hardened template:
public access blocked, encryption at rest enabled, versioning enabled,
wildcard IAM permissions removed, and access logging added.

### Validation

- Terraform syntax validated
- Security scan re-run against the fixed configuration

*Generated by the shiftgate remediation workflow.*
`)

	return b.String()
}
