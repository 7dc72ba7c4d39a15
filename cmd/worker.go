// Worker = chain event synchronizer + db/state + http reporter.
// All components are configured via envionment variables (strings!).

package cmd

import (
	"context"
	"database/sql"
	"fmt"
	"math/big"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	ethcommon "github.com/ethereum/go-ethereum/common"
	_ "github.com/mattn/go-sqlite3"
	logger "github.com/sirupsen/logrus"

	"github.com/trustflow-io/escrow-go/common"
	"github.com/trustflow-io/escrow-go/escrowman"
	"github.com/trustflow-io/escrow-go/escrowsync"
	"github.com/trustflow-io/escrow-go/reporter"
	"github.com/trustflow-io/escrow-go/state"
)

// Keep the configuration's fields as "text" as possible.
// Its easier to load it from env vars or a config file.
type EscrowWorkerConfig struct {
	// chain side
	RpcUrl       string // json rpc url
	ChainId      int64  // expected chain id, startup fails on mismatch
	ContractAddr string // escrow contract address (0x-prefixed or bare hex)
	StartBlock   uint64 // cursor origin on first run

	// sync tuning, zero values fall back to the package defaults
	PollIntervalSec   int
	Confirmations     uint64
	BatchSize         uint64
	MaxCatchupBatches int

	// state side
	DbFilePath string // db file path

	// Http side
	HttpIp   string // eg. 0.0.0.0
	HttpPort string // eg. 8080
}

// EscrowWorker holds the objects that consists of the worker.
type EscrowWorker struct {
	MyEscrowman *escrowman.Escrowman
	MyStateDb   *state.StateDB
	MyState     *state.State
	MySync      *escrowsync.Synchronizer
}

// NewEscrowWorker creates a new escrow worker.
// ctx is used for parental context to cancel the operation of the worker.
// wg is used to wait for the synchronizer goroutine to finish.
func NewEscrowWorker(ewc *EscrowWorkerConfig, ctx context.Context, wg *sync.WaitGroup) (*EscrowWorker, error) {
	contractAddr := ethcommon.HexToAddress(ewc.ContractAddr)

	myEscrowman, err := escrowman.NewEscrowman(&escrowman.Config{
		URL:             ewc.RpcUrl,
		ContractAddress: contractAddr,
	})
	if err != nil {
		logger.Fatalf("failed to connect to rpc endpoint %s: %v", ewc.RpcUrl, err)
		return nil, err
	}

	// Create sql db, and related state_db, state.
	sqldb, err := sql.Open("sqlite3", ewc.DbFilePath)
	if err != nil {
		logger.Fatalf("failed to open db file: %v", err)
		return nil, err
	}

	myStateDb, err := state.NewStateDB(sqldb)
	if err != nil {
		logger.Fatalf("failed to create state db: %v", err)
		return nil, err
	}

	myState := state.New(myStateDb, ewc.ChainId, common.ByteSliceToPureHexStr(contractAddr.Bytes()))

	mySync, err := escrowsync.New(
		myEscrowman,
		myState,
		&escrowsync.Config{
			ContractAddress:   contractAddr,
			ChainID:           big.NewInt(ewc.ChainId),
			StartBlock:        ewc.StartBlock,
			PollInterval:      time.Duration(ewc.PollIntervalSec) * time.Second,
			Confirmations:     ewc.Confirmations,
			BatchSize:         ewc.BatchSize,
			MaxCatchupBatches: ewc.MaxCatchupBatches,
		},
	)
	if err != nil {
		logger.Fatalf("failed to create synchronizer: %v", err)
		return nil, err
	}

	// Important: turn on the synchronizer!
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := mySync.Sync(ctx); err != nil && ctx.Err() == nil {
			logger.Fatalf("synchronizer stopped: %v", err)
		}
	}()
	// Don't forget to call wg.Wait() in the main routine.

	// *** Setup a http server to report status ***
	http_server := reporter.NewHttpReporter(
		ewc.HttpIp,
		ewc.HttpPort,
		myStateDb,
		ewc.ChainId,
		common.ByteSliceToPureHexStr(contractAddr.Bytes()),
	)
	// Turn on the http server
	go http_server.Run()

	// Give it some time to start the http server
	time.Sleep(1 * time.Second)
	// *** End the setup of http server ***

	return &EscrowWorker{
		MyEscrowman: myEscrowman,
		MyStateDb:   myStateDb,
		MyState:     myState,
		MySync:      mySync,
	}, nil
}

// Create, then start the escrow worker and wait.
// Press Ctrl-C to kill the worker.
func StartWorkerAndWait(ewc *EscrowWorkerConfig) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Set up a signal channel to listen for Ctrl-C (SIGINT) or SIGTERM
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	// Launch a new goroutine to handle the signal
	go func() {
		sig := <-sigCh
		fmt.Printf("Received signal: %v, cancelling context...\n", sig)
		cancel()
	}()

	var wg sync.WaitGroup

	_, err := NewEscrowWorker(ewc, ctx, &wg)
	if err != nil {
		logger.Fatalf("failed to create escrow worker: %v", err)
		return
	}

	// wait for the synchronizer to finish (runs until cancelled)
	wg.Wait()
}
