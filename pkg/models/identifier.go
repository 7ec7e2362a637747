package models

import (
	"encoding/json"
	"strings"
	"time"
)

// IdentifierKind is the type of a discrete identifier fact
type IdentifierKind string

const (
	KindEmail         IdentifierKind = "email"
	KindPhone         IdentifierKind = "phone"
	KindCryptoAddress IdentifierKind = "crypto_address"
	KindName          IdentifierKind = "name"
	KindOrganization  IdentifierKind = "organization"
	KindAlias         IdentifierKind = "alias"
	KindUsername      IdentifierKind = "username"
	KindSocialHandle  IdentifierKind = "social_handle"
	KindDomain        IdentifierKind = "domain"
	KindURL           IdentifierKind = "url"
	KindIP            IdentifierKind = "ip"
	KindMAC           IdentifierKind = "mac"
	KindAddress       IdentifierKind = "address"
	KindDate          IdentifierKind = "date"
	KindCurrency      IdentifierKind = "currency"
	KindFile          IdentifierKind = "file"
	KindFileHash      IdentifierKind = "file_hash"
	KindImage         IdentifierKind = "image"
	KindDocument      IdentifierKind = "document"
	KindOther         IdentifierKind = "other"
)

// kindAliases maps loose spellings seen in tool exports to canonical kinds
var kindAliases = map[string]IdentifierKind{
	"e-mail":         KindEmail,
	"mail":           KindEmail,
	"email_address":  KindEmail,
	"telephone":      KindPhone,
	"tel":            KindPhone,
	"mobile":         KindPhone,
	"phone_number":   KindPhone,
	"crypto":         KindCryptoAddress,
	"wallet":         KindCryptoAddress,
	"btc":            KindCryptoAddress,
	"eth":            KindCryptoAddress,
	"bitcoin":        KindCryptoAddress,
	"ethereum":       KindCryptoAddress,
	"full_name":      KindName,
	"person":         KindName,
	"company":        KindOrganization,
	"org":            KindOrganization,
	"handle":         KindSocialHandle,
	"user":           KindUsername,
	"screen_name":    KindUsername,
	"hostname":       KindDomain,
	"website":        KindURL,
	"link":           KindURL,
	"ip_address":     KindIP,
	"ipv4":           KindIP,
	"ipv6":           KindIP,
	"mac_address":    KindMAC,
	"street_address": KindAddress,
	"location":       KindAddress,
	"dob":            KindDate,
	"birth_date":     KindDate,
	"amount":         KindCurrency,
	"money":          KindCurrency,
	"hash":           KindFileHash,
	"sha256":         KindFileHash,
	"photo":          KindImage,
}

// ParseIdentifierKind resolves a kind string, accepting the aliases above.
// Unknown strings are returned as-is so pass-through kinds still match exactly.
func ParseIdentifierKind(s string) IdentifierKind {
	k := strings.ToLower(strings.TrimSpace(s))
	if alias, ok := kindAliases[k]; ok {
		return alias
	}
	return IdentifierKind(k)
}

// IsFileLike reports whether records of this kind carry a content hash
func (k IdentifierKind) IsFileLike() bool {
	switch k {
	case KindFile, KindFileHash, KindImage, KindDocument:
		return true
	}
	return false
}

// IsNameLike reports whether the kind holds a person or organization name
func (k IdentifierKind) IsNameLike() bool {
	switch k {
	case KindName, KindOrganization, KindAlias:
		return true
	}
	return false
}

// IsAddressLike reports whether the kind holds a postal address
func (k IdentifierKind) IsAddressLike() bool {
	return k == KindAddress
}

// IsContextDependent reports whether normalization may need a caller hint
func (k IdentifierKind) IsContextDependent() bool {
	switch k {
	case KindPhone, KindDate, KindCurrency:
		return true
	}
	return false
}

// OwnerType identifies what an identifier record is attached to
type OwnerType string

const (
	OwnerNone    OwnerType = ""
	OwnerSubject OwnerType = "subject"
	OwnerOrphan  OwnerType = "orphan"
)

// Owner is the single owner of an identifier record. A record has exactly one
// owner type, so it can never be attached to a subject and an orphan at once.
type Owner struct {
	Type OwnerType `json:"type"`
	ID   string    `json:"id,omitempty"`
}

// SubjectOwner returns an owner reference for a subject
func SubjectOwner(id string) Owner { return Owner{Type: OwnerSubject, ID: id} }

// OrphanOwner returns an owner reference for an orphan
func OrphanOwner(id string) Owner { return Owner{Type: OwnerOrphan, ID: id} }

// IsZero reports whether the owner is unset
func (o Owner) IsZero() bool { return o.Type == OwnerNone || o.ID == "" }

func (o Owner) String() string {
	if o.IsZero() {
		return "none"
	}
	return string(o.Type) + ":" + o.ID
}

// IdentifierRecord is a single discrete fact about a subject or orphan
type IdentifierRecord struct {
	ID              string          `json:"id" db:"id"`
	Kind            IdentifierKind  `json:"kind" db:"kind"`
	RawValue        string          `json:"raw_value" db:"raw_value"`
	NormalizedValue string          `json:"normalized_value" db:"normalized_value"`
	SearchValue     string          `json:"search_value" db:"search_value"`
	ContentHash     *string         `json:"content_hash,omitempty" db:"content_hash"`
	OwnerType       OwnerType       `json:"owner_type" db:"owner_type"`
	OwnerID         *string         `json:"owner_id,omitempty" db:"owner_id"`
	NeedsReview     bool            `json:"needs_review" db:"needs_review"`
	Metadata        json.RawMessage `json:"metadata,omitempty" db:"metadata"`
	CreatedAt       time.Time       `json:"created_at" db:"created_at"`
}

// Owner returns the record's owner
func (r *IdentifierRecord) Owner() Owner {
	if r.OwnerID == nil || r.OwnerType == OwnerNone {
		return Owner{}
	}
	return Owner{Type: r.OwnerType, ID: *r.OwnerID}
}

// SetOwner replaces the record's owner
func (r *IdentifierRecord) SetOwner(o Owner) {
	if o.IsZero() {
		r.OwnerType = OwnerNone
		r.OwnerID = nil
		return
	}
	id := o.ID
	r.OwnerType = o.Type
	r.OwnerID = &id
}
