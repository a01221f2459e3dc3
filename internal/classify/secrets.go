package classify

import (
	"regexp"

	"github.com/dshills/privfilter/internal/flatten"
)

// secretPatterns are regex heuristics for common secret types.
var secretPatterns = []*regexp.Regexp{
	// Generic API keys (long hex/base64 strings after common key patterns)
	regexp.MustCompile(`(?i)(api[_-]?key|apikey|api[_-]?secret)\s*[:=]\s*["']?([A-Za-z0-9/+=_-]{20,})["']?`),
	// AWS access key IDs
	regexp.MustCompile(`AKIA[0-9A-Z]{16}`),
	// Bearer tokens
	regexp.MustCompile(`(?i)Bearer\s+[A-Za-z0-9._-]{20,}`),
	// JWTs
	regexp.MustCompile(`eyJ[A-Za-z0-9_-]{10,}\.eyJ[A-Za-z0-9_-]{10,}\.[A-Za-z0-9_-]{10,}`),
	// Private key blocks
	regexp.MustCompile(`-----BEGIN\s+(RSA\s+|EC\s+|OPENSSH\s+)?PRIVATE KEY-----`),
	// GitHub tokens
	regexp.MustCompile(`gh[pousr]_[A-Za-z0-9_]{36,}`),
	// Slack tokens
	regexp.MustCompile(`xox[bporas]-[A-Za-z0-9-]{10,}`),
	// Anthropic and OpenAI API keys
	regexp.MustCompile(`sk-(ant-)?[A-Za-z0-9_-]{20,}`),
}

// credentialRule flags string values that carry a secret anywhere inside.
type credentialRule struct {
	patterns []*regexp.Regexp
}

func newCredentialRule() *credentialRule {
	return &credentialRule{patterns: secretPatterns}
}

func (r *credentialRule) ID() string { return "credential-value" }

func (r *credentialRule) Test(e flatten.Entry) (Match, bool, error) {
	s, ok := e.Value.(string)
	if !ok {
		return Match{}, false, unclassifiable(r.ID(), e, "non-string value")
	}
	for _, pat := range r.patterns {
		if pat.MatchString(s) {
			return Match{Category: CategoryCredential, Severity: SeverityHigh}, true, nil
		}
	}
	return Match{}, false, nil
}
