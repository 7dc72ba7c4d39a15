// The TrustFlowEscrow contract state machine.
//
// Each operation validates every precondition before touching state and
// either completes in full or leaves no trace. Outbound transfers follow
// checks-effects-interactions: the state transition commits first, the
// transfer runs under a re-entry lock, and a failed transfer rolls the
// transition back atomically.
package escrow

import (
	"math/big"
	"sync"

	ethcommon "github.com/ethereum/go-ethereum/common"
	logger "github.com/sirupsen/logrus"
)

type Contract struct {
	addr   ethcommon.Address // custody account on the ledger
	store  AgreementStore
	ledger Ledger
	sink   EventSink

	// Re-entry lock. Held for the duration of every mutating call; a
	// nested call arriving from a credit hook is rejected, not queued.
	callMu sync.Mutex
}

func NewContract(addr ethcommon.Address, store AgreementStore, ledger Ledger, sink EventSink) *Contract {
	return &Contract{
		addr:   addr,
		store:  store,
		ledger: ledger,
		sink:   sink,
	}
}

// Address returns the contract's custody account.
func (c *Contract) Address() ethcommon.Address {
	return c.addr
}

func (c *Contract) enter() bool {
	return c.callMu.TryLock()
}

// CreateAgreement stores a new agreement in state CREATED. The caller
// becomes the payer.
func (c *Contract) CreateAgreement(
	caller ethcommon.Address,
	id ethcommon.Hash,
	payee ethcommon.Address,
	arbitrator ethcommon.Address,
	amount *big.Int,
	policy ArbitrationPolicy,
) error {
	if !c.enter() {
		return ErrReentrantCall
	}
	defer c.callMu.Unlock()

	if _, ok := c.store.Get(id); ok {
		return ErrAgreementExists
	}
	if payee == (ethcommon.Address{}) || payee == caller {
		return ErrInvalidPayee
	}
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	switch policy {
	case PolicyNone:
		if arbitrator != (ethcommon.Address{}) {
			return ErrInvalidArbitrator
		}
	case PolicyWithArbitrator:
		if arbitrator == (ethcommon.Address{}) || arbitrator == caller || arbitrator == payee {
			return ErrInvalidArbitrator
		}
	default:
		return ErrInvalidArbitrator
	}

	a := &Agreement{
		ID:         id,
		Payer:      caller,
		Payee:      payee,
		Arbitrator: arbitrator,
		Amount:     new(big.Int).Set(amount),
		Policy:     policy,
		State:      StateCreated,
	}
	c.store.Put(a)

	logger.WithFields(logger.Fields{
		"id":     id.Hex(),
		"payer":  caller.Hex(),
		"payee":  payee.Hex(),
		"policy": policy.String(),
	}).Debug("agreement created")

	if c.sink != nil {
		c.sink.AgreementCreated(&AgreementCreatedEvent{
			ID:         id,
			Payer:      caller,
			Payee:      payee,
			Amount:     new(big.Int).Set(amount),
			Policy:     policy,
			Arbitrator: arbitrator,
		})
	}
	return nil
}

// Fund moves the attached value into custody and transitions the agreement
// to FUNDED. The value must equal the agreement amount exactly.
func (c *Contract) Fund(caller ethcommon.Address, id ethcommon.Hash, value *big.Int) error {
	if !c.enter() {
		return ErrReentrantCall
	}
	defer c.callMu.Unlock()

	a, ok := c.store.Get(id)
	if !ok {
		return ErrAgreementUnknown
	}
	if caller != a.Payer {
		return ErrUnauthorized
	}
	if a.State != StateCreated {
		return ErrWrongState
	}
	if value == nil || value.Cmp(a.Amount) != 0 {
		return ErrIncorrectValue
	}

	if err := c.ledger.Transfer(caller, c.addr, value); err != nil {
		return ErrTransferFailed
	}

	a.State = StateFunded
	c.store.Put(a)

	if c.sink != nil {
		c.sink.PaymentFunded(&PaymentFundedEvent{
			ID:     id,
			Payer:  a.Payer,
			Amount: new(big.Int).Set(a.Amount),
		})
	}
	return nil
}

// OpenDispute transitions a funded agreement to DISPUTED. Only available
// under WITH_ARBITRATOR and only to payer or payee.
func (c *Contract) OpenDispute(caller ethcommon.Address, id ethcommon.Hash) error {
	if !c.enter() {
		return ErrReentrantCall
	}
	defer c.callMu.Unlock()

	a, ok := c.store.Get(id)
	if !ok {
		return ErrAgreementUnknown
	}
	if a.Policy != PolicyWithArbitrator {
		return ErrWrongState
	}
	if caller != a.Payer && caller != a.Payee {
		return ErrUnauthorized
	}
	if a.State != StateFunded {
		return ErrWrongState
	}

	a.State = StateDisputed
	c.store.Put(a)

	if c.sink != nil {
		c.sink.DisputeOpened(&DisputeOpenedEvent{ID: id, OpenedBy: caller})
	}
	return nil
}

// Release pays the payee. Callable by the payer from FUNDED under any
// policy, or by the arbitrator from DISPUTED.
func (c *Contract) Release(caller ethcommon.Address, id ethcommon.Hash) error {
	if !c.enter() {
		return ErrReentrantCall
	}
	defer c.callMu.Unlock()

	a, ok := c.store.Get(id)
	if !ok {
		return ErrAgreementUnknown
	}
	if a.State.Terminal() {
		return ErrWrongState
	}
	switch a.State {
	case StateFunded:
		if caller != a.Payer {
			return ErrUnauthorized
		}
	case StateDisputed:
		if caller != a.Arbitrator {
			return ErrUnauthorized
		}
	default:
		return ErrWrongState
	}

	if err := c.payout(a, StateReleased, a.Payee); err != nil {
		return err
	}

	if c.sink != nil {
		c.sink.PaymentReleased(&PaymentReleasedEvent{
			ID:     id,
			Payee:  a.Payee,
			Amount: new(big.Int).Set(a.Amount),
		})
	}
	return nil
}

// Refund returns custody to the payer. Only the arbitrator can refund, and
// only from DISPUTED.
func (c *Contract) Refund(caller ethcommon.Address, id ethcommon.Hash) error {
	if !c.enter() {
		return ErrReentrantCall
	}
	defer c.callMu.Unlock()

	a, ok := c.store.Get(id)
	if !ok {
		return ErrAgreementUnknown
	}
	if a.State != StateDisputed {
		return ErrWrongState
	}
	if caller != a.Arbitrator {
		return ErrUnauthorized
	}

	if err := c.payout(a, StateRefunded, a.Payer); err != nil {
		return err
	}

	if c.sink != nil {
		c.sink.PaymentRefunded(&PaymentRefundedEvent{
			ID:     id,
			Payer:  a.Payer,
			Amount: new(big.Int).Set(a.Amount),
		})
	}
	return nil
}

// payout commits the terminal state, then transfers. A failed transfer
// rolls the state back so funds never leave custody without the flip
// persisting, and vice versa.
func (c *Contract) payout(a *Agreement, final AgreementState, to ethcommon.Address) error {
	prev := a.State
	a.State = final
	c.store.Put(a)

	if err := c.ledger.Transfer(c.addr, to, a.Amount); err != nil {
		a.State = prev
		c.store.Put(a)
		logger.WithFields(logger.Fields{
			"id": a.ID.Hex(),
			"to": to.Hex(),
		}).Warn("payout transfer failed, state rolled back")
		return ErrTransferFailed
	}
	return nil
}

// GetAgreement returns the stored agreement, or a zero-valued agreement for
// an unknown id.
func (c *Contract) GetAgreement(id ethcommon.Hash) Agreement {
	a, ok := c.store.Get(id)
	if !ok {
		return Agreement{Amount: new(big.Int)}
	}
	return *a
}

// GetAgreementState returns the state of the agreement; unknown ids report
// the zero state, as an on-chain mapping read would.
func (c *Contract) GetAgreementState(id ethcommon.Hash) AgreementState {
	a, ok := c.store.Get(id)
	if !ok {
		return StateCreated
	}
	return a.State
}
