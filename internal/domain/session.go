package domain

import (
	"github.com/google/uuid"
)

// Session identifies the merchant acting on a request. It is built per
// request from a verified token and passed explicitly into every operation.
type Session struct {
	Subject    string
	TokenID    string
	MerchantID uuid.UUID
}

// Validate ensures the session names a merchant
func (s Session) Validate() error {
	if s.MerchantID == uuid.Nil {
		return ErrAuthMissing
	}
	return nil
}

// Owns returns an error unless the session's merchant owns the resource
func (s Session) Owns(merchantID uuid.UUID) error {
	if err := s.Validate(); err != nil {
		return err
	}
	if s.MerchantID != merchantID {
		return ErrAuthMerchantMismatch
	}
	return nil
}
