package state

import "errors"

var (
	ErrGetAgreement  = errors.New("failed to get agreement from statedb")
	ErrGetDispute    = errors.New("failed to get dispute from statedb")
	ErrGetSyncCursor = errors.New("failed to get sync cursor from statedb")
	ErrBeginWindow   = errors.New("failed to begin apply-window transaction")
	ErrInsertEvent   = errors.New("failed to insert onchain event")
	ErrApplyEvent    = errors.New("failed to apply onchain event to projection")
	ErrAdvanceCursor = errors.New("failed to advance sync cursor")
	ErrCommitWindow  = errors.New("failed to commit apply-window transaction")
)
