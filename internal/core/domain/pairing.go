package domain

import "time"

type PairID string

// CanonicalPairID derives the pair identifier from the two connection IDs
// in lexicographic order, so pairing A-B and B-A yield the same ID.
func CanonicalPairID(a, b ConnectionID) PairID {
	if b < a {
		a, b = b, a
	}
	return PairID(string(a) + "::" + string(b))
}

// PairingRelationship is a symmetric association between two connections.
// A connection appears in at most one relationship at a time.
type PairingRelationship struct {
	ID        PairID
	MemberA   ConnectionID
	MemberB   ConnectionID
	CreatedAt time.Time
}

func NewPairingRelationship(a, b ConnectionID) *PairingRelationship {
	return &PairingRelationship{
		ID:        CanonicalPairID(a, b),
		MemberA:   a,
		MemberB:   b,
		CreatedAt: time.Now(),
	}
}

// Other returns the peer of the given member, or empty if id is not a member.
func (p *PairingRelationship) Other(id ConnectionID) ConnectionID {
	switch id {
	case p.MemberA:
		return p.MemberB
	case p.MemberB:
		return p.MemberA
	}
	return ""
}

// Has reports whether id is one of the two members.
func (p *PairingRelationship) Has(id ConnectionID) bool {
	return id == p.MemberA || id == p.MemberB
}
