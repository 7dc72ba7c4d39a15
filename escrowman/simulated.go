package escrowman

import (
	"context"
	"encoding/binary"
	"math/big"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/trustflow-io/escrow-go/escrow"
)

var simulatedChainID = big.NewInt(31337)

// SimEscrowChain is an in-memory chain producing real, ABI-encoded escrow
// logs. It satisfies the same client surface as an RPC node, so the
// synchronizer and decoder run unmodified against it in tests.
type SimEscrowChain struct {
	mu sync.Mutex

	chainID         *big.Int
	contractAddress ethcommon.Address
	escrowABI       abi.ABI

	head    uint64 // latest committed block
	pending []types.Log
	logs    map[uint64][]types.Log
	txCount uint64
}

func NewSimEscrowChain() *SimEscrowChain {
	parsed, err := abi.JSON(strings.NewReader(TrustFlowEscrowABI))
	if err != nil {
		panic(err)
	}
	var addr ethcommon.Address
	copy(addr[:], crypto.Keccak256([]byte("TrustFlowEscrow"))[:20])
	return &SimEscrowChain{
		chainID:         new(big.Int).Set(simulatedChainID),
		contractAddress: addr,
		escrowABI:       parsed,
		logs:            make(map[uint64][]types.Log),
	}
}

func (c *SimEscrowChain) ContractAddress() ethcommon.Address {
	return c.contractAddress
}

func (c *SimEscrowChain) SetChainID(id *big.Int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.chainID = new(big.Int).Set(id)
}

func (c *SimEscrowChain) ChainID(ctx context.Context) (*big.Int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return new(big.Int).Set(c.chainID), nil
}

func (c *SimEscrowChain) BlockNumber(ctx context.Context) (uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.head, nil
}

func (c *SimEscrowChain) FilterLogs(ctx context.Context, q ethereum.FilterQuery) ([]types.Log, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	from := uint64(0)
	if q.FromBlock != nil {
		from = q.FromBlock.Uint64()
	}
	to := c.head
	if q.ToBlock != nil {
		to = q.ToBlock.Uint64()
	}

	var out []types.Log
	for num := from; num <= to; num++ {
		for _, vlog := range c.logs[num] {
			if len(q.Addresses) > 0 && !containsAddress(q.Addresses, vlog.Address) {
				continue
			}
			out = append(out, vlog)
		}
	}
	return out, nil
}

func containsAddress(addrs []ethcommon.Address, addr ethcommon.Address) bool {
	for _, a := range addrs {
		if a == addr {
			return true
		}
	}
	return false
}

// Commit seals pending logs into the next block and advances the head.
func (c *SimEscrowChain) Commit() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.head++
	if len(c.pending) > 0 {
		sealed := make([]types.Log, len(c.pending))
		copy(sealed, c.pending)
		for i := range sealed {
			sealed[i].BlockNumber = c.head
		}
		c.logs[c.head] = sealed
		c.pending = nil
	}
	return c.head
}

// CommitEmpty advances the head n blocks without any logs.
func (c *SimEscrowChain) CommitEmpty(n int) uint64 {
	var h uint64
	for i := 0; i < n; i++ {
		h = c.Commit()
	}
	return h
}

func (c *SimEscrowChain) nextTxHash() ethcommon.Hash {
	c.txCount++
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], c.txCount)
	return crypto.Keccak256Hash(b[:])
}

func (c *SimEscrowChain) appendLog(topics []ethcommon.Hash, data []byte) types.Log {
	c.mu.Lock()
	defer c.mu.Unlock()
	vlog := types.Log{
		Address: c.contractAddress,
		Topics:  topics,
		Data:    data,
		TxHash:  c.nextTxHash(),
		Index:   uint(len(c.pending)),
	}
	c.pending = append(c.pending, vlog)
	return vlog
}

func (c *SimEscrowChain) EmitAgreementCreated(
	id ethcommon.Hash,
	payer, payee ethcommon.Address,
	amount *big.Int,
	policy uint8,
	arbitrator ethcommon.Address,
) types.Log {
	data, err := c.escrowABI.Events[EventAgreementCreated].Inputs.NonIndexed().Pack(amount, policy, arbitrator)
	if err != nil {
		panic(err)
	}
	return c.appendLog([]ethcommon.Hash{
		AgreementCreatedSigHash,
		id,
		addressTopic(payer),
		addressTopic(payee),
	}, data)
}

func (c *SimEscrowChain) EmitPaymentFunded(id ethcommon.Hash, payer ethcommon.Address, amount *big.Int) types.Log {
	data, err := c.escrowABI.Events[EventPaymentFunded].Inputs.NonIndexed().Pack(amount)
	if err != nil {
		panic(err)
	}
	return c.appendLog([]ethcommon.Hash{PaymentFundedSigHash, id, addressTopic(payer)}, data)
}

func (c *SimEscrowChain) EmitDisputeOpened(id ethcommon.Hash, openedBy ethcommon.Address) types.Log {
	return c.appendLog([]ethcommon.Hash{DisputeOpenedSigHash, id, addressTopic(openedBy)}, nil)
}

func (c *SimEscrowChain) EmitPaymentReleased(id ethcommon.Hash, payee ethcommon.Address, amount *big.Int) types.Log {
	data, err := c.escrowABI.Events[EventPaymentReleased].Inputs.NonIndexed().Pack(amount)
	if err != nil {
		panic(err)
	}
	return c.appendLog([]ethcommon.Hash{PaymentReleasedSigHash, id, addressTopic(payee)}, data)
}

func (c *SimEscrowChain) EmitPaymentRefunded(id ethcommon.Hash, payer ethcommon.Address, amount *big.Int) types.Log {
	data, err := c.escrowABI.Events[EventPaymentRefunded].Inputs.NonIndexed().Pack(amount)
	if err != nil {
		panic(err)
	}
	return c.appendLog([]ethcommon.Hash{PaymentRefundedSigHash, id, addressTopic(payer)}, data)
}

func addressTopic(addr ethcommon.Address) ethcommon.Hash {
	var h ethcommon.Hash
	copy(h[12:], addr[:])
	return h
}

// ChainSink bridges the in-process contract to the simulated chain: every
// emitted contract event becomes a sealed log. It lets end-to-end tests
// drive the real state machine and observe it through the real decoder.
type ChainSink struct {
	chain *SimEscrowChain
}

func NewChainSink(chain *SimEscrowChain) *ChainSink {
	return &ChainSink{chain: chain}
}

func (s *ChainSink) AgreementCreated(ev *escrow.AgreementCreatedEvent) {
	s.chain.EmitAgreementCreated(ev.ID, ev.Payer, ev.Payee, ev.Amount, uint8(ev.Policy), ev.Arbitrator)
}

func (s *ChainSink) PaymentFunded(ev *escrow.PaymentFundedEvent) {
	s.chain.EmitPaymentFunded(ev.ID, ev.Payer, ev.Amount)
}

func (s *ChainSink) DisputeOpened(ev *escrow.DisputeOpenedEvent) {
	s.chain.EmitDisputeOpened(ev.ID, ev.OpenedBy)
}

func (s *ChainSink) PaymentReleased(ev *escrow.PaymentReleasedEvent) {
	s.chain.EmitPaymentReleased(ev.ID, ev.Payee, ev.Amount)
}

func (s *ChainSink) PaymentRefunded(ev *escrow.PaymentRefundedEvent) {
	s.chain.EmitPaymentRefunded(ev.ID, ev.Payer, ev.Amount)
}
