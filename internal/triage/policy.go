package triage

import (
	"strings"

	"github.com/brandon/mail-butler/pkg/types"
)

// Policy holds the auto-send allow-lists. Senders outside both lists get a
// draft for human review.
type Policy struct {
	addresses map[string]struct{}
	domains   map[string]struct{}
}

// NewPolicy builds a policy from individual addresses and domains
func NewPolicy(addresses, domains []string) *Policy {
	p := &Policy{
		addresses: make(map[string]struct{}, len(addresses)),
		domains:   make(map[string]struct{}, len(domains)),
	}
	for _, a := range addresses {
		if a = NormalizeAddress(a); a != "" {
			p.addresses[a] = struct{}{}
		}
	}
	for _, d := range domains {
		d = strings.TrimPrefix(strings.ToLower(strings.TrimSpace(d)), "@")
		if d != "" {
			p.domains[d] = struct{}{}
		}
	}
	return p
}

// Resolve decides whether a reply to sender is sent immediately or drafted
func (p *Policy) Resolve(sender string) types.SendMode {
	if p == nil {
		return types.SendDraftOnly
	}
	addr := NormalizeAddress(sender)
	at := strings.LastIndex(addr, "@")
	if at == -1 {
		return types.SendDraftOnly
	}
	if _, ok := p.addresses[addr]; ok {
		return types.SendAuto
	}
	if _, ok := p.domains[addr[at+1:]]; ok {
		return types.SendAuto
	}
	return types.SendDraftOnly
}

// Size returns the number of allow-listed addresses and domains
func (p *Policy) Size() (addresses, domains int) {
	if p == nil {
		return 0, 0
	}
	return len(p.addresses), len(p.domains)
}
