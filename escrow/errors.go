package escrow

import "errors"

// Every rejection is a no-op with respect to agreement state and balances.
var (
	ErrAgreementExists   = errors.New("agreement id already exists")
	ErrAgreementUnknown  = errors.New("agreement id unknown")
	ErrInvalidPayee      = errors.New("payee is the zero address or equals payer")
	ErrInvalidAmount     = errors.New("amount must be positive")
	ErrInvalidArbitrator = errors.New("arbitrator does not match policy")
	ErrUnauthorized      = errors.New("caller is not allowed to perform this action")
	ErrWrongState        = errors.New("agreement is not in the required state")
	ErrIncorrectValue    = errors.New("attached value does not equal agreement amount")
	ErrTransferFailed    = errors.New("outbound transfer failed")
	ErrReentrantCall     = errors.New("reentrant call rejected")
)
