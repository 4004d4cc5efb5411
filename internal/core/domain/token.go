package domain

import "time"

// SignedDeliveryToken is the decoded form of a CDN signed cookie value.
// It is created per request and never stored.
type SignedDeliveryToken struct {
	URLPrefix string
	KeyName   string
	ExpiresAt time.Time
	Signature string
}

// Grant records what a successful authorization allowed.
type Grant struct {
	ContentID ContentID
	Kind      ContentKind
	SourceURL string
	ExpiresAt time.Time
	Decision  ExpiryDecision
	Viewer    Viewer
}
