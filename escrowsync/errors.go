package escrowsync

import "errors"

var (
	// ErrChainIDUnmatched means the RPC endpoint answered with a chain id
	// different from the configured one. Starting against the wrong chain
	// would poison the projection, so this is fatal.
	ErrChainIDUnmatched = errors.New("chain id of the endpoint does not match the configured chain id")
)
