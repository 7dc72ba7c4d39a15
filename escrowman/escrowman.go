package escrowman

import (
	"context"
	"fmt"
	"math/big"
	"sort"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	logger "github.com/sirupsen/logrus"
)

var (
	// Events
	AgreementCreatedSigHash = crypto.Keccak256Hash([]byte("AgreementCreated(bytes32,address,address,uint256,uint8,address)"))
	PaymentFundedSigHash    = crypto.Keccak256Hash([]byte("PaymentFunded(bytes32,address,uint256)"))
	DisputeOpenedSigHash    = crypto.Keccak256Hash([]byte("DisputeOpened(bytes32,address)"))
	PaymentReleasedSigHash  = crypto.Keccak256Hash([]byte("PaymentReleased(bytes32,address,uint256)"))
	PaymentRefundedSigHash  = crypto.Keccak256Hash([]byte("PaymentRefunded(bytes32,address,uint256)"))
)

type ethereumClient interface {
	ChainID(ctx context.Context) (*big.Int, error)
	BlockNumber(ctx context.Context) (uint64, error)
	FilterLogs(ctx context.Context, q ethereum.FilterQuery) ([]types.Log, error)
}

// Escrowman reads TrustFlowEscrow logs off the chain and decodes them into
// typed events.
type Escrowman struct {
	ethClient       ethereumClient
	contractAddress ethcommon.Address
	escrowABI       abi.ABI
}

func NewEscrowman(cfg *Config) (*Escrowman, error) {
	ethClient, err := ethclient.Dial(cfg.URL)
	if err != nil {
		return nil, err
	}
	return NewEscrowmanWithClient(ethClient, cfg.ContractAddress)
}

// NewEscrowmanWithClient wires an existing client, e.g. a simulated chain
// in tests.
func NewEscrowmanWithClient(client ethereumClient, contractAddress ethcommon.Address) (*Escrowman, error) {
	parsed, err := abi.JSON(strings.NewReader(TrustFlowEscrowABI))
	if err != nil {
		return nil, err
	}
	return &Escrowman{
		ethClient:       client,
		contractAddress: contractAddress,
		escrowABI:       parsed,
	}, nil
}

func (e *Escrowman) ContractAddress() ethcommon.Address {
	return e.contractAddress
}

func (e *Escrowman) ChainID(ctx context.Context) (*big.Int, error) {
	return e.ethClient.ChainID(ctx)
}

// LatestBlockNumber returns the current chain head.
func (e *Escrowman) LatestBlockNumber(ctx context.Context) (uint64, error) {
	return e.ethClient.BlockNumber(ctx)
}

// GetEventLogs fetches and decodes all escrow events in [fromBlock, toBlock],
// ordered by (block number, log index). A log that fails to decode is
// reported and skipped; it never fails the batch.
func (e *Escrowman) GetEventLogs(ctx context.Context, fromBlock, toBlock uint64) ([]*EscrowEvent, error) {
	logs, err := e.ethClient.FilterLogs(ctx, ethereum.FilterQuery{
		FromBlock: new(big.Int).SetUint64(fromBlock),
		ToBlock:   new(big.Int).SetUint64(toBlock),
		Addresses: []ethcommon.Address{e.contractAddress},
	})
	if err != nil {
		return nil, err
	}

	events := make([]*EscrowEvent, 0, len(logs))
	for _, vlog := range logs {
		ev, err := e.DecodeLog(vlog)
		if err != nil {
			logger.WithFields(logger.Fields{
				"txHash":   vlog.TxHash.Hex(),
				"logIndex": vlog.Index,
				"block":    vlog.BlockNumber,
			}).Warnf("skipping undecodable log: %v", err)
			continue
		}
		if ev == nil {
			// not an escrow event
			continue
		}
		events = append(events, ev)
	}

	sort.SliceStable(events, func(i, j int) bool {
		if events[i].BlockNumber != events[j].BlockNumber {
			return events[i].BlockNumber < events[j].BlockNumber
		}
		return events[i].LogIndex < events[j].LogIndex
	})
	return events, nil
}

// DecodeLog maps a raw log to a typed escrow event. It returns (nil, nil)
// for logs whose topic does not belong to the escrow contract.
func (e *Escrowman) DecodeLog(vlog types.Log) (*EscrowEvent, error) {
	if len(vlog.Topics) == 0 {
		return nil, nil
	}

	ev := &EscrowEvent{
		TxHash:      vlog.TxHash,
		BlockNumber: vlog.BlockNumber,
		LogIndex:    vlog.Index,
	}

	switch vlog.Topics[0] {
	case AgreementCreatedSigHash:
		if len(vlog.Topics) != 4 {
			return nil, fmt.Errorf("AgreementCreated: want 4 topics, got %d", len(vlog.Topics))
		}
		var data struct {
			Amount     *big.Int
			Policy     uint8
			Arbitrator ethcommon.Address
		}
		if err := e.escrowABI.UnpackIntoInterface(&data, EventAgreementCreated, vlog.Data); err != nil {
			return nil, err
		}
		ev.Name = EventAgreementCreated
		ev.AgreementID = vlog.Topics[1]
		ev.Payer = ethcommon.BytesToAddress(vlog.Topics[2].Bytes())
		ev.Payee = ethcommon.BytesToAddress(vlog.Topics[3].Bytes())
		ev.Amount = data.Amount
		ev.Policy = data.Policy
		ev.Arbitrator = data.Arbitrator

	case PaymentFundedSigHash:
		if len(vlog.Topics) != 3 {
			return nil, fmt.Errorf("PaymentFunded: want 3 topics, got %d", len(vlog.Topics))
		}
		var data struct{ Amount *big.Int }
		if err := e.escrowABI.UnpackIntoInterface(&data, EventPaymentFunded, vlog.Data); err != nil {
			return nil, err
		}
		ev.Name = EventPaymentFunded
		ev.AgreementID = vlog.Topics[1]
		ev.Payer = ethcommon.BytesToAddress(vlog.Topics[2].Bytes())
		ev.Amount = data.Amount

	case DisputeOpenedSigHash:
		if len(vlog.Topics) != 3 {
			return nil, fmt.Errorf("DisputeOpened: want 3 topics, got %d", len(vlog.Topics))
		}
		ev.Name = EventDisputeOpened
		ev.AgreementID = vlog.Topics[1]
		ev.OpenedBy = ethcommon.BytesToAddress(vlog.Topics[2].Bytes())

	case PaymentReleasedSigHash:
		if len(vlog.Topics) != 3 {
			return nil, fmt.Errorf("PaymentReleased: want 3 topics, got %d", len(vlog.Topics))
		}
		var data struct{ Amount *big.Int }
		if err := e.escrowABI.UnpackIntoInterface(&data, EventPaymentReleased, vlog.Data); err != nil {
			return nil, err
		}
		ev.Name = EventPaymentReleased
		ev.AgreementID = vlog.Topics[1]
		ev.Payee = ethcommon.BytesToAddress(vlog.Topics[2].Bytes())
		ev.Amount = data.Amount

	case PaymentRefundedSigHash:
		if len(vlog.Topics) != 3 {
			return nil, fmt.Errorf("PaymentRefunded: want 3 topics, got %d", len(vlog.Topics))
		}
		var data struct{ Amount *big.Int }
		if err := e.escrowABI.UnpackIntoInterface(&data, EventPaymentRefunded, vlog.Data); err != nil {
			return nil, err
		}
		ev.Name = EventPaymentRefunded
		ev.AgreementID = vlog.Topics[1]
		ev.Payer = ethcommon.BytesToAddress(vlog.Topics[2].Bytes())
		ev.Amount = data.Amount

	default:
		return nil, nil
	}

	return ev, nil
}
