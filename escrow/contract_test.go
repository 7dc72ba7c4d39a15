package escrow

import (
	"math/big"
	"testing"

	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trustflow-io/escrow-go/common"
)

type recordingSink struct {
	created  []*AgreementCreatedEvent
	funded   []*PaymentFundedEvent
	disputed []*DisputeOpenedEvent
	released []*PaymentReleasedEvent
	refunded []*PaymentRefundedEvent
}

func (s *recordingSink) AgreementCreated(ev *AgreementCreatedEvent) { s.created = append(s.created, ev) }
func (s *recordingSink) PaymentFunded(ev *PaymentFundedEvent)       { s.funded = append(s.funded, ev) }
func (s *recordingSink) DisputeOpened(ev *DisputeOpenedEvent)       { s.disputed = append(s.disputed, ev) }
func (s *recordingSink) PaymentReleased(ev *PaymentReleasedEvent)   { s.released = append(s.released, ev) }
func (s *recordingSink) PaymentRefunded(ev *PaymentRefundedEvent)   { s.refunded = append(s.refunded, ev) }

type testEnv struct {
	contract *Contract
	ledger   *MemoryLedger
	sink     *recordingSink

	payer      ethcommon.Address
	payee      ethcommon.Address
	arbitrator ethcommon.Address
}

func newTestEnv() *testEnv {
	env := &testEnv{
		ledger:     NewMemoryLedger(),
		sink:       &recordingSink{},
		payer:      common.RandEthAddress(),
		payee:      common.RandEthAddress(),
		arbitrator: common.RandEthAddress(),
	}
	env.contract = NewContract(common.RandEthAddress(), NewMemoryAgreementStore(), env.ledger, env.sink)
	env.ledger.SetBalance(env.payer, big.NewInt(1000))
	return env
}

func (env *testEnv) create(t *testing.T, id ethcommon.Hash, amount int64, policy ArbitrationPolicy) {
	arb := ethcommon.Address{}
	if policy == PolicyWithArbitrator {
		arb = env.arbitrator
	}
	require.NoError(t, env.contract.CreateAgreement(env.payer, id, env.payee, arb, big.NewInt(amount), policy))
}

func TestCreateAgreementValidation(t *testing.T) {
	env := newTestEnv()
	id := ethcommon.Hash(common.RandBytes32())
	amount := big.NewInt(5)

	// valid NONE
	assert.NoError(t, env.contract.CreateAgreement(env.payer, id, env.payee, ethcommon.Address{}, amount, PolicyNone))

	// duplicate id
	assert.ErrorIs(t, env.contract.CreateAgreement(env.payer, id, env.payee, ethcommon.Address{}, amount, PolicyNone), ErrAgreementExists)

	id2 := ethcommon.Hash(common.RandBytes32())

	// zero payee
	assert.ErrorIs(t, env.contract.CreateAgreement(env.payer, id2, ethcommon.Address{}, ethcommon.Address{}, amount, PolicyNone), ErrInvalidPayee)
	// payee == payer
	assert.ErrorIs(t, env.contract.CreateAgreement(env.payer, id2, env.payer, ethcommon.Address{}, amount, PolicyNone), ErrInvalidPayee)
	// non-positive amount
	assert.ErrorIs(t, env.contract.CreateAgreement(env.payer, id2, env.payee, ethcommon.Address{}, big.NewInt(0), PolicyNone), ErrInvalidAmount)
	assert.ErrorIs(t, env.contract.CreateAgreement(env.payer, id2, env.payee, ethcommon.Address{}, big.NewInt(-1), PolicyNone), ErrInvalidAmount)
	// arbitrator present under NONE
	assert.ErrorIs(t, env.contract.CreateAgreement(env.payer, id2, env.payee, env.arbitrator, amount, PolicyNone), ErrInvalidArbitrator)
	// arbitrator absent under WITH_ARBITRATOR
	assert.ErrorIs(t, env.contract.CreateAgreement(env.payer, id2, env.payee, ethcommon.Address{}, amount, PolicyWithArbitrator), ErrInvalidArbitrator)
	// arbitrator == payer
	assert.ErrorIs(t, env.contract.CreateAgreement(env.payer, id2, env.payee, env.payer, amount, PolicyWithArbitrator), ErrInvalidArbitrator)
	// arbitrator == payee
	assert.ErrorIs(t, env.contract.CreateAgreement(env.payer, id2, env.payee, env.payee, amount, PolicyWithArbitrator), ErrInvalidArbitrator)

	// valid WITH_ARBITRATOR
	assert.NoError(t, env.contract.CreateAgreement(env.payer, id2, env.payee, env.arbitrator, amount, PolicyWithArbitrator))

	assert.Equal(t, 2, len(env.sink.created))
}

func TestFund(t *testing.T) {
	env := newTestEnv()
	id := ethcommon.Hash(common.RandBytes32())
	env.create(t, id, 5, PolicyNone)

	// unknown id
	assert.ErrorIs(t, env.contract.Fund(env.payer, ethcommon.Hash(common.RandBytes32()), big.NewInt(5)), ErrAgreementUnknown)
	// wrong caller
	assert.ErrorIs(t, env.contract.Fund(env.payee, id, big.NewInt(5)), ErrUnauthorized)
	// under/over payment
	assert.ErrorIs(t, env.contract.Fund(env.payer, id, big.NewInt(4)), ErrIncorrectValue)
	assert.ErrorIs(t, env.contract.Fund(env.payer, id, big.NewInt(6)), ErrIncorrectValue)
	assert.Equal(t, StateCreated, env.contract.GetAgreementState(id))
	assert.Equal(t, int64(0), env.ledger.BalanceOf(env.contract.Address()).Int64())

	// exact value succeeds once
	assert.NoError(t, env.contract.Fund(env.payer, id, big.NewInt(5)))
	assert.Equal(t, StateFunded, env.contract.GetAgreementState(id))
	assert.Equal(t, int64(5), env.ledger.BalanceOf(env.contract.Address()).Int64())

	// only once
	assert.ErrorIs(t, env.contract.Fund(env.payer, id, big.NewInt(5)), ErrWrongState)
	assert.Equal(t, 1, len(env.sink.funded))
}

func TestFundInsufficientBalance(t *testing.T) {
	env := newTestEnv()
	id := ethcommon.Hash(common.RandBytes32())
	env.create(t, id, 5, PolicyNone)
	env.ledger.SetBalance(env.payer, big.NewInt(1))

	assert.ErrorIs(t, env.contract.Fund(env.payer, id, big.NewInt(5)), ErrTransferFailed)
	assert.Equal(t, StateCreated, env.contract.GetAgreementState(id))
}

func TestOpenDispute(t *testing.T) {
	env := newTestEnv()

	// NONE policy cannot dispute
	idNone := ethcommon.Hash(common.RandBytes32())
	env.create(t, idNone, 1, PolicyNone)
	require.NoError(t, env.contract.Fund(env.payer, idNone, big.NewInt(1)))
	assert.ErrorIs(t, env.contract.OpenDispute(env.payer, idNone), ErrWrongState)

	id := ethcommon.Hash(common.RandBytes32())
	env.create(t, id, 2, PolicyWithArbitrator)

	// not funded yet
	assert.ErrorIs(t, env.contract.OpenDispute(env.payer, id), ErrWrongState)
	require.NoError(t, env.contract.Fund(env.payer, id, big.NewInt(2)))

	// arbitrator is not payer/payee
	assert.ErrorIs(t, env.contract.OpenDispute(env.arbitrator, id), ErrUnauthorized)

	// payee can open
	assert.NoError(t, env.contract.OpenDispute(env.payee, id))
	assert.Equal(t, StateDisputed, env.contract.GetAgreementState(id))
	require.Equal(t, 1, len(env.sink.disputed))
	assert.Equal(t, env.payee, env.sink.disputed[0].OpenedBy)

	// only once
	assert.ErrorIs(t, env.contract.OpenDispute(env.payer, id), ErrWrongState)
}

func TestReleaseByPayerScenario(t *testing.T) {
	// create(NONE, 1) -> fund(1) -> release by payer
	env := newTestEnv()
	id := ethcommon.Hash(common.RandBytes32())
	env.create(t, id, 1, PolicyNone)
	require.NoError(t, env.contract.Fund(env.payer, id, big.NewInt(1)))

	// payee cannot release
	assert.ErrorIs(t, env.contract.Release(env.payee, id), ErrUnauthorized)

	assert.NoError(t, env.contract.Release(env.payer, id))
	assert.Equal(t, StateReleased, env.contract.GetAgreementState(id))
	assert.Equal(t, int64(1), env.ledger.BalanceOf(env.payee).Int64())
	assert.Equal(t, int64(0), env.ledger.BalanceOf(env.contract.Address()).Int64())

	// terminal: nothing else works
	assert.True(t, env.contract.GetAgreementState(id).Terminal())
	assert.ErrorIs(t, env.contract.Fund(env.payer, id, big.NewInt(1)), ErrWrongState)
	assert.ErrorIs(t, env.contract.Release(env.payer, id), ErrWrongState)
	assert.ErrorIs(t, env.contract.Refund(env.arbitrator, id), ErrWrongState)
}

func TestRefundScenario(t *testing.T) {
	// create(WITH_ARBITRATOR, 2) -> fund(2) -> dispute by payee -> refund by arbitrator
	env := newTestEnv()
	id := ethcommon.Hash(common.RandBytes32())
	env.create(t, id, 2, PolicyWithArbitrator)
	require.NoError(t, env.contract.Fund(env.payer, id, big.NewInt(2)))
	require.NoError(t, env.contract.OpenDispute(env.payee, id))

	payerBefore := env.ledger.BalanceOf(env.payer)

	// refund before dispute resolution authority checks
	assert.ErrorIs(t, env.contract.Refund(env.payer, id), ErrUnauthorized)
	assert.ErrorIs(t, env.contract.Refund(env.payee, id), ErrUnauthorized)

	assert.NoError(t, env.contract.Refund(env.arbitrator, id))
	assert.Equal(t, StateRefunded, env.contract.GetAgreementState(id))
	assert.Equal(t, new(big.Int).Add(payerBefore, big.NewInt(2)), env.ledger.BalanceOf(env.payer))

	// terminal and mutually exclusive with release
	assert.True(t, env.contract.GetAgreementState(id).Terminal())
	assert.ErrorIs(t, env.contract.Release(env.arbitrator, id), ErrWrongState)
	assert.ErrorIs(t, env.contract.OpenDispute(env.payer, id), ErrWrongState)
}

func TestArbitratorReleaseFromDispute(t *testing.T) {
	env := newTestEnv()
	id := ethcommon.Hash(common.RandBytes32())
	env.create(t, id, 3, PolicyWithArbitrator)
	require.NoError(t, env.contract.Fund(env.payer, id, big.NewInt(3)))
	require.NoError(t, env.contract.OpenDispute(env.payer, id))

	// payer lost release authority once disputed
	assert.ErrorIs(t, env.contract.Release(env.payer, id), ErrUnauthorized)

	assert.NoError(t, env.contract.Release(env.arbitrator, id))
	assert.Equal(t, int64(3), env.ledger.BalanceOf(env.payee).Int64())
}

func TestReentrantReleaseRejected(t *testing.T) {
	env := newTestEnv()
	id := ethcommon.Hash(common.RandBytes32())
	env.create(t, id, 7, PolicyNone)
	require.NoError(t, env.contract.Fund(env.payer, id, big.NewInt(7)))

	var reentrantErr error
	calls := 0
	env.ledger.SetCreditHook(env.payee, func(from ethcommon.Address, amount *big.Int) error {
		calls++
		// hostile payee calls back into Release mid-transfer
		reentrantErr = env.contract.Release(env.payer, id)
		return nil
	})

	assert.NoError(t, env.contract.Release(env.payer, id))
	assert.Equal(t, 1, calls)
	assert.ErrorIs(t, reentrantErr, ErrReentrantCall)

	// exactly one payout
	assert.Equal(t, int64(7), env.ledger.BalanceOf(env.payee).Int64())
	assert.Equal(t, int64(0), env.ledger.BalanceOf(env.contract.Address()).Int64())
	assert.Equal(t, 1, len(env.sink.released))
}

func TestReleaseTransferFailureRollsBack(t *testing.T) {
	env := newTestEnv()
	id := ethcommon.Hash(common.RandBytes32())
	env.create(t, id, 4, PolicyNone)
	require.NoError(t, env.contract.Fund(env.payer, id, big.NewInt(4)))

	env.ledger.SetCreditHook(env.payee, func(from ethcommon.Address, amount *big.Int) error {
		return ErrTransferFailed // recipient rejects the credit
	})

	assert.ErrorIs(t, env.contract.Release(env.payer, id), ErrTransferFailed)
	// state rolled back, funds still in custody
	assert.Equal(t, StateFunded, env.contract.GetAgreementState(id))
	assert.Equal(t, int64(4), env.ledger.BalanceOf(env.contract.Address()).Int64())
	assert.Empty(t, env.sink.released)

	// a later attempt still works
	env.ledger.SetCreditHook(env.payee, nil)
	assert.NoError(t, env.contract.Release(env.payer, id))
	assert.Equal(t, StateReleased, env.contract.GetAgreementState(id))
}

func TestGetAgreementUnknownId(t *testing.T) {
	env := newTestEnv()
	a := env.contract.GetAgreement(ethcommon.Hash(common.RandBytes32()))
	assert.Equal(t, ethcommon.Hash{}, a.ID)
	assert.Equal(t, 0, a.Amount.Sign())
	assert.Equal(t, StateCreated, env.contract.GetAgreementState(ethcommon.Hash(common.RandBytes32())))
}
