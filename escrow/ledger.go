package escrow

import (
	"math/big"
	"sync"

	ethcommon "github.com/ethereum/go-ethereum/common"

	"github.com/trustflow-io/escrow-go/common"
)

// Ledger moves value between accounts. The contract only ever transfers
// between a caller and its own custody address.
type Ledger interface {
	BalanceOf(addr ethcommon.Address) *big.Int
	// Transfer moves amount from one account to another. It fails without
	// any balance change if the sender cannot cover the amount or the
	// receiving side rejects the credit.
	Transfer(from, to ethcommon.Address, amount *big.Int) error
}

// CreditHook runs when an account is credited, before the transfer is
// considered complete. It models a recipient that executes code on payment,
// which is how reentrancy attempts reach the contract.
type CreditHook func(from ethcommon.Address, amount *big.Int) error

// MemoryLedger is an in-process account book.
type MemoryLedger struct {
	mu       sync.Mutex
	balances map[ethcommon.Address]*big.Int
	hooks    map[ethcommon.Address]CreditHook
}

func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{
		balances: make(map[ethcommon.Address]*big.Int),
		hooks:    make(map[ethcommon.Address]CreditHook),
	}
}

// SetBalance seeds an account.
func (l *MemoryLedger) SetBalance(addr ethcommon.Address, amount *big.Int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.balances[addr] = common.BigIntClone(amount)
}

// SetCreditHook installs a hook invoked whenever addr receives value.
func (l *MemoryLedger) SetCreditHook(addr ethcommon.Address, hook CreditHook) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.hooks[addr] = hook
}

func (l *MemoryLedger) BalanceOf(addr ethcommon.Address) *big.Int {
	l.mu.Lock()
	defer l.mu.Unlock()
	b, ok := l.balances[addr]
	if !ok {
		return new(big.Int)
	}
	return common.BigIntClone(b)
}

func (l *MemoryLedger) Transfer(from, to ethcommon.Address, amount *big.Int) error {
	l.mu.Lock()
	src, ok := l.balances[from]
	if !ok || src.Cmp(amount) < 0 {
		l.mu.Unlock()
		return ErrTransferFailed
	}
	hook := l.hooks[to]
	l.mu.Unlock()

	// The hook runs outside the ledger lock so it may call back into the
	// contract; a failing hook aborts the transfer with no balance change.
	if hook != nil {
		if err := hook(from, amount); err != nil {
			return ErrTransferFailed
		}
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	src = l.balances[from]
	if src.Cmp(amount) < 0 {
		return ErrTransferFailed
	}
	l.balances[from] = new(big.Int).Sub(src, amount)
	dst, ok := l.balances[to]
	if !ok {
		dst = new(big.Int)
	}
	l.balances[to] = new(big.Int).Add(dst, amount)
	return nil
}
