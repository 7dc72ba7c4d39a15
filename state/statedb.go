package state

import (
	"database/sql"

	_ "github.com/mattn/go-sqlite3"

	"github.com/trustflow-io/escrow-go/database"
)

// StateDB is the sqlite store behind the projection: agreements, disputes,
// the event journal and the sync cursor.
type StateDB struct {
	db        *sql.DB
	stmtCache *database.StmtCache
}

func NewStateDB(db *sql.DB) (*StateDB, error) {
	if _, err := db.Exec(agreementsTable + disputesTable + onchainEventsTable + chainSyncStateTable); err != nil {
		return nil, err
	}
	return &StateDB{
		db:        db,
		stmtCache: database.NewStmtCache(db),
	}, nil
}

func (st *StateDB) Close() {
	st.stmtCache.Clear()
}

const agreementColumns = `agreement_id, payer, payee, COALESCE(arbitrator, ''), amount, policy, status,
	COALESCE(created_tx_hash, ''), COALESCE(funded_tx_hash, ''), COALESCE(released_tx_hash, ''), COALESCE(refunded_tx_hash, '')`

// GetAgreement looks up a projected agreement by its hex id (no 0x prefix).
func (st *StateDB) GetAgreement(agreementID string) (*ProjectedAgreement, bool, error) {
	stmt, err := st.stmtCache.Prepare(`SELECT ` + agreementColumns + ` FROM agreements WHERE agreement_id = ?`)
	if err != nil {
		return nil, false, err
	}
	a, err := scanAgreement(stmt.QueryRow(agreementID))
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, ErrGetAgreement
	}
	return a, true, nil
}

func scanAgreement(row *sql.Row) (*ProjectedAgreement, error) {
	var a ProjectedAgreement
	err := row.Scan(
		&a.AgreementID, &a.Payer, &a.Payee, &a.Arbitrator, &a.Amount, &a.Policy, &a.Status,
		&a.CreatedTxHash, &a.FundedTxHash, &a.ReleasedTxHash, &a.RefundedTxHash,
	)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// GetDispute looks up the dispute of an agreement, if one was ever opened.
func (st *StateDB) GetDispute(agreementID string) (*ProjectedDispute, bool, error) {
	stmt, err := st.stmtCache.Prepare(`SELECT agreement_id, opened_by, status,
		COALESCE(resolution, ''), COALESCE(resolution_tx_hash, ''), COALESCE(justification, '')
		FROM disputes WHERE agreement_id = ?`)
	if err != nil {
		return nil, false, err
	}
	var d ProjectedDispute
	err = stmt.QueryRow(agreementID).Scan(
		&d.AgreementID, &d.OpenedBy, &d.Status, &d.Resolution, &d.ResolutionTxHash, &d.Justification,
	)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, ErrGetDispute
	}
	return &d, true, nil
}

// GetSyncCursor returns the last processed block for (chain, contract).
func (st *StateDB) GetSyncCursor(chainID int64, contractAddress string) (uint64, bool, error) {
	stmt, err := st.stmtCache.Prepare(`SELECT last_processed_block FROM chain_sync_state WHERE chain_id = ? AND contract_address = ?`)
	if err != nil {
		return 0, false, err
	}
	var blk uint64
	if err := stmt.QueryRow(chainID, contractAddress).Scan(&blk); err != nil {
		if err == sql.ErrNoRows {
			return 0, false, nil
		}
		return 0, false, ErrGetSyncCursor
	}
	return blk, true, nil
}

// InitSyncCursor creates the cursor row at startBlock unless one already
// exists, and returns the effective cursor.
func (st *StateDB) InitSyncCursor(chainID int64, contractAddress string, startBlock uint64) (uint64, error) {
	stored, ok, err := st.GetSyncCursor(chainID, contractAddress)
	if err != nil {
		return 0, err
	}
	if ok {
		return stored, nil
	}
	stmt, err := st.stmtCache.Prepare(`INSERT INTO chain_sync_state (chain_id, contract_address, last_processed_block) VALUES (?, ?, ?)`)
	if err != nil {
		return 0, err
	}
	if _, err := stmt.Exec(chainID, contractAddress, startBlock); err != nil {
		return 0, err
	}
	return startBlock, nil
}

// HasEvent reports whether the idempotency key was already recorded.
func (st *StateDB) HasEvent(chainID int64, txHash string, logIndex uint) (bool, error) {
	stmt, err := st.stmtCache.Prepare(`SELECT 1 FROM onchain_events WHERE chain_id = ? AND tx_hash = ? AND log_index = ?`)
	if err != nil {
		return false, err
	}
	var one int
	if err := stmt.QueryRow(chainID, txHash, logIndex).Scan(&one); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// CountEvents returns the number of recorded events for an agreement.
func (st *StateDB) CountEvents(agreementID string) (int, error) {
	stmt, err := st.stmtCache.Prepare(`SELECT COUNT(*) FROM onchain_events WHERE agreement_id = ?`)
	if err != nil {
		return 0, err
	}
	var n int
	if err := stmt.QueryRow(agreementID).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}
