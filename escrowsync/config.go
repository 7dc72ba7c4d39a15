package escrowsync

import (
	"math/big"
	"time"

	ethcommon "github.com/ethereum/go-ethereum/common"
)

const (
	DefaultPollInterval      = 12 * time.Second
	DefaultConfirmations     = uint64(3)
	DefaultBatchSize         = uint64(1000)
	DefaultMaxCatchupBatches = 20

	MinTickerDuration = 100 * time.Millisecond
)

// Config drives one synchronizer instance. Exactly one instance must run
// per (chain, contract) pair: concurrent instances would race on cursor
// advancement. Nothing here enforces that; it is an operational constraint
// of the deployment.
type Config struct {
	ContractAddress ethcommon.Address
	ChainID         *big.Int // expected chain id, validated at startup
	StartBlock      uint64   // cursor origin when none is persisted

	PollInterval      time.Duration
	Confirmations     uint64 // blocks below the head treated as not yet final
	BatchSize         uint64 // max blocks per log query
	MaxCatchupBatches int    // max windows per cycle
}

func (cfg *Config) withDefaults() *Config {
	out := *cfg
	if out.PollInterval <= 0 {
		out.PollInterval = DefaultPollInterval
	}
	if out.PollInterval < MinTickerDuration {
		out.PollInterval = MinTickerDuration
	}
	if out.Confirmations == 0 {
		out.Confirmations = DefaultConfirmations
	}
	if out.BatchSize == 0 {
		out.BatchSize = DefaultBatchSize
	}
	if out.MaxCatchupBatches <= 0 {
		out.MaxCatchupBatches = DefaultMaxCatchupBatches
	}
	return &out
}
