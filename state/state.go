// Package state keeps the off-chain projection of the TrustFlowEscrow
// contract: agreement and dispute records, the write-once event journal and
// the sync cursor. The projection is derived from, and never authoritative
// over, on-chain state.
package state

import (
	"database/sql"
	"encoding/json"

	logger "github.com/sirupsen/logrus"

	"github.com/trustflow-io/escrow-go/common"
	"github.com/trustflow-io/escrow-go/escrowman"
)

// State applies decoded events to the projection. The sync worker is its
// only caller; user-facing layers read the tables and never write them.
type State struct {
	statedb         *StateDB
	chainID         int64
	contractAddress string
}

func New(statedb *StateDB, chainID int64, contractAddress string) *State {
	return &State{
		statedb:         statedb,
		chainID:         chainID,
		contractAddress: common.Trim0xPrefix(contractAddress),
	}
}

func (s *State) StateDB() *StateDB {
	return s.statedb
}

// Cursor returns the persisted last processed block.
func (s *State) Cursor() (uint64, bool, error) {
	return s.statedb.GetSyncCursor(s.chainID, s.contractAddress)
}

// InitCursor creates the cursor row at startBlock if absent.
func (s *State) InitCursor(startBlock uint64) (uint64, error) {
	return s.statedb.InitSyncCursor(s.chainID, s.contractAddress, startBlock)
}

// ApplyWindow records and applies one batch window atomically: every new
// event is journaled and projected, already-seen events are skipped, and
// the cursor advances to newCursor in the same transaction. Either the
// whole window commits or none of it does.
func (s *State) ApplyWindow(events []*escrowman.EscrowEvent, newCursor uint64) error {
	tx, err := s.statedb.db.Begin()
	if err != nil {
		return ErrBeginWindow
	}
	defer tx.Rollback()

	for _, ev := range events {
		if err := s.applyEvent(tx, ev); err != nil {
			return err
		}
	}

	// monotonic: the cursor never moves backwards
	if _, err := tx.Exec(
		`UPDATE chain_sync_state SET last_processed_block = ? WHERE chain_id = ? AND contract_address = ? AND last_processed_block < ?`,
		newCursor, s.chainID, s.contractAddress, newCursor,
	); err != nil {
		return ErrAdvanceCursor
	}

	if err := tx.Commit(); err != nil {
		return ErrCommitWindow
	}
	return nil
}

func (s *State) applyEvent(tx *sql.Tx, ev *escrowman.EscrowEvent) error {
	txHash := common.ByteSliceToPureHexStr(ev.TxHash[:])
	agreementID := common.ByteSliceToPureHexStr(ev.AgreementID[:])

	var one int
	err := tx.QueryRow(
		`SELECT 1 FROM onchain_events WHERE chain_id = ? AND tx_hash = ? AND log_index = ?`,
		s.chainID, txHash, ev.LogIndex,
	).Scan(&one)
	if err == nil {
		logger.WithFields(logger.Fields{
			"txHash":   common.Shorten(txHash, 8),
			"logIndex": ev.LogIndex,
		}).Info("event already processed, skipping")
		return nil
	}
	if err != sql.ErrNoRows {
		return ErrInsertEvent
	}

	payload, err := json.Marshal(ev)
	if err != nil {
		return ErrInsertEvent
	}
	if _, err := tx.Exec(
		`INSERT INTO onchain_events (chain_id, contract_address, tx_hash, log_index, block_number, event_name, agreement_id, payload)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		s.chainID, s.contractAddress, txHash, ev.LogIndex, ev.BlockNumber, ev.Name, agreementID, string(payload),
	); err != nil {
		return ErrInsertEvent
	}

	// Precondition failures are consistency warnings, not errors: the event
	// stays journaled (never reprocessed) and the mutation is skipped. A
	// database failure aborts the whole window so nothing partial commits.
	ok, reason, err := s.project(tx, ev, agreementID, txHash)
	if err != nil {
		return ErrApplyEvent
	}
	if !ok {
		logger.WithFields(logger.Fields{
			"event":       ev.Name,
			"agreementId": common.Shorten(agreementID, 8),
			"txHash":      common.Shorten(txHash, 8),
		}).Warnf("projection precondition violated, mutation skipped: %s", reason)
	}
	return nil
}

// project mutates the agreements/disputes tables for one event. It returns
// ok=false with a reason when the currently projected state does not satisfy
// the event's precondition; err is reserved for database failures.
func (s *State) project(tx *sql.Tx, ev *escrowman.EscrowEvent, agreementID, txHash string) (bool, string, error) {
	status, exists, err := agreementStatus(tx, agreementID)
	if err != nil {
		return false, "", err
	}

	switch ev.Name {
	case escrowman.EventAgreementCreated:
		if exists {
			return false, "agreement already projected", nil
		}
		policy := PolicyNone
		var arbitrator interface{}
		if ev.Policy == 1 {
			policy = PolicyWithArbitrator
			arbitrator = common.ByteSliceToPureHexStr(ev.Arbitrator[:])
		}
		_, err := tx.Exec(
			`INSERT INTO agreements (agreement_id, payer, payee, arbitrator, amount, policy, status, created_tx_hash)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			agreementID,
			common.ByteSliceToPureHexStr(ev.Payer[:]),
			common.ByteSliceToPureHexStr(ev.Payee[:]),
			arbitrator,
			ev.Amount.String(),
			policy,
			StatusCreated,
			txHash,
		)
		return true, "", err

	case escrowman.EventPaymentFunded:
		if !exists {
			return false, "agreement not projected", nil
		}
		if status != StatusCreated {
			return false, "agreement not in CREATED", nil
		}
		_, err := tx.Exec(`UPDATE agreements SET status = ?, funded_tx_hash = ? WHERE agreement_id = ?`,
			StatusFunded, txHash, agreementID)
		return true, "", err

	case escrowman.EventDisputeOpened:
		if !exists {
			return false, "agreement not projected", nil
		}
		if status != StatusFunded {
			return false, "agreement not in FUNDED", nil
		}
		if _, err := tx.Exec(`UPDATE agreements SET status = ? WHERE agreement_id = ?`, StatusDisputed, agreementID); err != nil {
			return true, "", err
		}
		_, err := tx.Exec(`INSERT OR IGNORE INTO disputes (agreement_id, opened_by, status) VALUES (?, ?, ?)`,
			agreementID, common.ByteSliceToPureHexStr(ev.OpenedBy[:]), DisputeOpen)
		return true, "", err

	case escrowman.EventPaymentReleased:
		if !exists {
			return false, "agreement not projected", nil
		}
		if status != StatusFunded && status != StatusDisputed {
			return false, "agreement not in FUNDED or DISPUTED", nil
		}
		if _, err := tx.Exec(`UPDATE agreements SET status = ?, released_tx_hash = ? WHERE agreement_id = ?`,
			StatusReleased, txHash, agreementID); err != nil {
			return true, "", err
		}
		return true, "", resolveDispute(tx, agreementID, ResolutionRelease, txHash, "Resolved on-chain via release")

	case escrowman.EventPaymentRefunded:
		if !exists {
			return false, "agreement not projected", nil
		}
		if status != StatusDisputed {
			return false, "agreement not in DISPUTED", nil
		}
		if _, err := tx.Exec(`UPDATE agreements SET status = ?, refunded_tx_hash = ? WHERE agreement_id = ?`,
			StatusRefunded, txHash, agreementID); err != nil {
			return true, "", err
		}
		return true, "", resolveDispute(tx, agreementID, ResolutionRefund, txHash, "Resolved on-chain via refund")

	default:
		return false, "unknown event type", nil
	}
}

func agreementStatus(tx *sql.Tx, agreementID string) (string, bool, error) {
	var status string
	err := tx.QueryRow(`SELECT status FROM agreements WHERE agreement_id = ?`, agreementID).Scan(&status)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return status, true, nil
}

func resolveDispute(tx *sql.Tx, agreementID, resolution, txHash, justification string) error {
	_, err := tx.Exec(
		`UPDATE disputes SET status = ?, resolution = ?, resolution_tx_hash = ?, justification = ?
		 WHERE agreement_id = ? AND resolution IS NULL`,
		DisputeResolved, resolution, txHash, justification, agreementID,
	)
	return err
}
