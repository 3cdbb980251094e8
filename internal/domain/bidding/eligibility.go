package bidding

import (
	"net/mail"
	"strings"
)

// EligibilityRule decides whether an email address may bid. The rule is
// swappable configuration: community auctions accept anyone, closed events
// restrict bidding to one organization's domain.
type EligibilityRule func(email string) error

// AllowAll accepts any syntactically valid email address
func AllowAll() EligibilityRule {
	return func(email string) error {
		if _, err := mail.ParseAddress(email); err != nil {
			return ErrIneligibleBidder
		}
		return nil
	}
}

// RequireDomain accepts only addresses under the given domain suffix,
// e.g. "@example.org". Matching is case-insensitive.
func RequireDomain(domain string) EligibilityRule {
	suffix := strings.ToLower(domain)
	if !strings.HasPrefix(suffix, "@") {
		suffix = "@" + suffix
	}
	return func(email string) error {
		if _, err := mail.ParseAddress(email); err != nil {
			return ErrIneligibleBidder
		}
		if !strings.HasSuffix(strings.ToLower(email), suffix) {
			return ErrIneligibleBidder
		}
		return nil
	}
}
