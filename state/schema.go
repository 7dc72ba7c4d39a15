package state

// Hex columns carry no 0x prefix: CHAR(64) for 32-byte values, CHAR(40)
// for addresses.
var (
	// projected agreements, written exclusively by the sync worker
	agreementsTable = `CREATE TABLE IF NOT EXISTS agreements (
		agreement_id CHAR(64) PRIMARY KEY NOT NULL,
		payer CHAR(40) NOT NULL,
		payee CHAR(40) NOT NULL,
		arbitrator CHAR(40),
		amount TEXT NOT NULL,
		policy VARCHAR(20) NOT NULL,
		status VARCHAR(10) NOT NULL,
		created_tx_hash CHAR(64),
		funded_tx_hash CHAR(64),
		released_tx_hash CHAR(64),
		refunded_tx_hash CHAR(64),
		CONSTRAINT chk_policy CHECK (policy IN ('NONE', 'WITH_ARBITRATOR')),
		CONSTRAINT chk_status CHECK (status IN ('CREATED', 'FUNDED', 'DISPUTED', 'RELEASED', 'REFUNDED')),
		CONSTRAINT chk_arbitrator CHECK ((policy = 'NONE') = (arbitrator IS NULL))
	);`

	// at most one dispute per agreement
	disputesTable = `CREATE TABLE IF NOT EXISTS disputes (
		agreement_id CHAR(64) PRIMARY KEY NOT NULL,
		opened_by CHAR(40) NOT NULL,
		status VARCHAR(10) NOT NULL,
		resolution VARCHAR(10),
		resolution_tx_hash CHAR(64),
		justification TEXT,
		CONSTRAINT chk_dispute_status CHECK (status IN ('OPEN', 'RESOLVED')),
		CONSTRAINT chk_resolution CHECK (resolution IS NULL OR resolution IN ('RELEASE', 'REFUND'))
	);`

	// write-once event journal; the UNIQUE key is the idempotency boundary
	onchainEventsTable = `CREATE TABLE IF NOT EXISTS onchain_events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		chain_id INTEGER NOT NULL,
		contract_address CHAR(40) NOT NULL,
		tx_hash CHAR(64) NOT NULL,
		log_index INTEGER NOT NULL,
		block_number INTEGER NOT NULL,
		event_name VARCHAR(20) NOT NULL,
		agreement_id CHAR(64) NOT NULL,
		payload TEXT NOT NULL,
		processed_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		UNIQUE (chain_id, tx_hash, log_index)
	);
	CREATE INDEX IF NOT EXISTS idx_onchain_events_agreement ON onchain_events(agreement_id);`

	// one row per (chain, contract); the worker's only progress state
	chainSyncStateTable = `CREATE TABLE IF NOT EXISTS chain_sync_state (
		chain_id INTEGER NOT NULL,
		contract_address CHAR(40) NOT NULL,
		last_processed_block INTEGER NOT NULL,
		PRIMARY KEY (chain_id, contract_address)
	);`
)
