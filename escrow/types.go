package escrow

import (
	"math/big"

	ethcommon "github.com/ethereum/go-ethereum/common"

	"github.com/trustflow-io/escrow-go/common"
)

// ArbitrationPolicy matches the contract's uint8 enum.
type ArbitrationPolicy uint8

const (
	PolicyNone ArbitrationPolicy = iota
	PolicyWithArbitrator
)

func (p ArbitrationPolicy) String() string {
	switch p {
	case PolicyNone:
		return "NONE"
	case PolicyWithArbitrator:
		return "WITH_ARBITRATOR"
	default:
		return "UNKNOWN"
	}
}

// AgreementState matches the contract's uint8 enum.
type AgreementState uint8

const (
	StateCreated AgreementState = iota
	StateFunded
	StateDisputed
	StateReleased
	StateRefunded
)

func (s AgreementState) String() string {
	switch s {
	case StateCreated:
		return "CREATED"
	case StateFunded:
		return "FUNDED"
	case StateDisputed:
		return "DISPUTED"
	case StateReleased:
		return "RELEASED"
	case StateRefunded:
		return "REFUNDED"
	default:
		return "UNKNOWN"
	}
}

// Terminal reports whether no transition can leave the state.
func (s AgreementState) Terminal() bool {
	return s == StateReleased || s == StateRefunded
}

// Agreement is the escrowed payment between payer and payee.
// Arbitrator is the zero address unless Policy is WITH_ARBITRATOR.
type Agreement struct {
	ID         ethcommon.Hash
	Payer      ethcommon.Address
	Payee      ethcommon.Address
	Arbitrator ethcommon.Address
	Amount     *big.Int
	Policy     ArbitrationPolicy
	State      AgreementState
}

func (a *Agreement) Clone() *Agreement {
	if a == nil {
		return nil
	}
	cp := *a
	cp.Amount = common.BigIntClone(a.Amount)
	return &cp
}
