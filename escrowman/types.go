package escrowman

import (
	"math/big"

	ethcommon "github.com/ethereum/go-ethereum/common"
)

// Event names as they appear on-chain and in the onchain_events table.
const (
	EventAgreementCreated = "AgreementCreated"
	EventPaymentFunded    = "PaymentFunded"
	EventDisputeOpened    = "DisputeOpened"
	EventPaymentReleased  = "PaymentReleased"
	EventPaymentRefunded  = "PaymentRefunded"
)

// EscrowEvent is one decoded contract log. Name selects which of the
// optional fields are meaningful. (TxHash, LogIndex) plus the chain id is
// the idempotency key for the whole sync pipeline.
type EscrowEvent struct {
	Name        string            `json:"event"`
	TxHash      ethcommon.Hash    `json:"transactionHash"`
	BlockNumber uint64            `json:"blockNumber"`
	LogIndex    uint              `json:"logIndex"`
	AgreementID ethcommon.Hash    `json:"agreementId"`
	Payer       ethcommon.Address `json:"payer,omitempty"`
	Payee       ethcommon.Address `json:"payee,omitempty"`
	Arbitrator  ethcommon.Address `json:"arbitrator,omitempty"`
	OpenedBy    ethcommon.Address `json:"openedBy,omitempty"`
	Amount      *big.Int          `json:"amount,omitempty"`
	Policy      uint8             `json:"policy"`
}
