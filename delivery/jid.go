package delivery

import "strings"

const (
	// DomainIndividual is the JID suffix for individual accounts.
	DomainIndividual = "s.whatsapp.net"

	// DomainGroup is the JID suffix for group chats.
	DomainGroup = "g.us"
)

// groupLengthThreshold: raw targets longer than this are assumed to be
// group identifiers, which carry a creation timestamp and exceed any
// phone number length.
const groupLengthThreshold = 15

// NormalizeJID turns a raw target into a fully qualified JID. A target
// that already carries a domain separator is authoritative and used
// verbatim, never reclassified. Otherwise the target is classified as
// a group when it contains a hyphen or exceeds the phone number length
// threshold, and as an individual account otherwise.
func NormalizeJID(raw string) string {
	if strings.Contains(raw, "@") {
		return raw
	}
	if strings.Contains(raw, "-") || len(raw) > groupLengthThreshold {
		return raw + "@" + DomainGroup
	}
	return raw + "@" + DomainIndividual
}

// NormalizeIndividualJID qualifies a raw target as an individual
// account unless it already carries a domain. Used for operations that
// only make sense against individual accounts, like registration
// lookups and contact cards.
func NormalizeIndividualJID(raw string) string {
	if strings.Contains(raw, "@") {
		return raw
	}
	return raw + "@" + DomainIndividual
}
