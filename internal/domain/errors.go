package domain

import "errors"

var (
	ErrLeaseExpired = errors.New("lease already expired")
	ErrUnknownSlot  = errors.New("unknown slot")
	ErrInvalidLease = errors.New("invalid lease")
)
