package personas

import (
	"context"
	"fmt"
	"sort"

	"personabrief/internal/core"
)

// Catalog is the built-in persona set, used when no external store is
// configured or the store is unreachable. Descriptions double as the
// summarization system instruction. Catalog personas carry no precomputed
// embedding; GetVector returns a zero vector, which scores as "no signal"
// and keeps the gate honest instead of silently accepting everything.
type Catalog struct {
	dimensions int
}

// NewCatalog creates the built-in catalog with the deployment's embedding
// dimensionality.
func NewCatalog(dimensions int) *Catalog {
	if dimensions <= 0 {
		dimensions = 1536
	}
	return &Catalog{dimensions: dimensions}
}

var catalogDescriptions = map[string]string{
	"SOC Analyst": "You are a SOC Analyst. Summarize focusing on threat indicators, " +
		"detection opportunities, and incident triage priorities.",
	"CISO": "You are a CISO. Summarize focusing on high-level risks, business impact, " +
		"and strategic security decisions.",
	"Compliance Officer": "You are a Compliance Officer. Summarize focusing on policy " +
		"compliance, regulatory gaps, and audit obligations.",
	"Privacy Engineer": "You are a Privacy Engineer. Summarize focusing on data handling, " +
		"data minimization, and privacy implications.",
	"Vendor Security Specialist": "Vendor security specialists are responsible for assessing and " +
		"managing the cybersecurity posture of third-party vendors as well as the vendor's products " +
		"and services. They focus on integrations, data security practices, SOC 2 and ISO 27001 " +
		"compliance, vendor audits, and security clauses in contracts.",
	"Network Security Analyst": "Network Security Analysts secure data transmission within an " +
		"organization's IT infrastructure, including cloud and on-prem environments. Responsibilities " +
		"include firewalls, IDS/IPS, VPNs, network segmentation, zero-trust architecture, traffic " +
		"monitoring, access controls, and incident response.",
	"Cyber Risk Analyst / CISO / ISO": "Cyber Risk Analysts identify and prioritize risks to the " +
		"organization's IT environment. CISOs and ISOs oversee strategic direction of cybersecurity " +
		"policies, ensure regulatory compliance (e.g. GDPR), lead incident response, crisis management, " +
		"and align security practices with business objectives.",
	"Application Security Analyst": "Application Security Analysts focus on secure coding practices, " +
		"identify vulnerabilities in development frameworks, monitor the OWASP Top 10 and zero-day " +
		"threats, and integrate SAST/DAST tools into CI/CD pipelines.",
	"Threat Intelligence Analyst": "Threat Intelligence Analysts track evolving threat actor TTPs, " +
		"especially those targeting financial systems. They analyze supply chain attacks, use MITRE " +
		"ATT&CK, monitor initial access and lateral movement, and collaborate with sources like FS-ISAC.",
	"DLP / Insider Threat Analyst": "DLP and Insider Threat Analysts monitor internal data misuse, " +
		"detect policy failures, USB/file transfers, shadow IT activities, and enforce DLP policies " +
		"using UEBA platforms.",
	"Malware Analyst": "Malware Analysts reverse-engineer malware, study payload behavior, track new " +
		"strains, use YARA and Ghidra, and analyze IOCs to understand ransomware, trojans, and C2 frameworks.",
}

// ListNames returns the built-in persona names, sorted.
func (c *Catalog) ListNames(ctx context.Context) ([]string, error) {
	names := make([]string, 0, len(catalogDescriptions))
	for name := range catalogDescriptions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// Get returns the built-in persona by exact name.
func (c *Catalog) Get(ctx context.Context, name string) (*core.Persona, error) {
	description, ok := catalogDescriptions[name]
	if !ok {
		return nil, fmt.Errorf("%w: unknown persona %q", core.ErrInvalidInput, name)
	}
	return &core.Persona{Name: name, Description: description}, nil
}

// GetVector returns a zero vector; catalog personas have no precomputed
// embedding.
func (c *Catalog) GetVector(ctx context.Context, name string) ([]float64, error) {
	if _, ok := catalogDescriptions[name]; !ok {
		return nil, fmt.Errorf("%w: unknown persona %q", core.ErrInvalidInput, name)
	}
	return make([]float64, c.dimensions), nil
}

// GlossarySearch returns no snippets; the catalog carries no glossary.
func (c *Catalog) GlossarySearch(ctx context.Context, embedding []float64, topK int) ([]core.GlossarySnippet, error) {
	return nil, nil
}
