package escrow

import (
	"math/big"

	ethcommon "github.com/ethereum/go-ethereum/common"
)

// One event is emitted per successful state transition. Field layout matches
// the on-chain event signatures.

type AgreementCreatedEvent struct {
	ID         ethcommon.Hash
	Payer      ethcommon.Address
	Payee      ethcommon.Address
	Amount     *big.Int
	Policy     ArbitrationPolicy
	Arbitrator ethcommon.Address
}

type PaymentFundedEvent struct {
	ID     ethcommon.Hash
	Payer  ethcommon.Address
	Amount *big.Int
}

type DisputeOpenedEvent struct {
	ID       ethcommon.Hash
	OpenedBy ethcommon.Address
}

type PaymentReleasedEvent struct {
	ID     ethcommon.Hash
	Payee  ethcommon.Address
	Amount *big.Int
}

type PaymentRefundedEvent struct {
	ID     ethcommon.Hash
	Payer  ethcommon.Address
	Amount *big.Int
}

// EventSink receives emitted events. Emission happens after the state
// transition and its transfer (if any) have both succeeded.
type EventSink interface {
	AgreementCreated(ev *AgreementCreatedEvent)
	PaymentFunded(ev *PaymentFundedEvent)
	DisputeOpened(ev *DisputeOpenedEvent)
	PaymentReleased(ev *PaymentReleasedEvent)
	PaymentRefunded(ev *PaymentRefundedEvent)
}
