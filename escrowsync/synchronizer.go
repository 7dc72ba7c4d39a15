package escrowsync

import (
	"context"
	"time"

	"github.com/trustflow-io/escrow-go/escrowman"
	"github.com/trustflow-io/escrow-go/state"

	logger "github.com/sirupsen/logrus"
)

// Synchronizer tails the escrow contract's event logs and feeds them into
// the local projection. It only looks at blocks that sit at least
// cfg.Confirmations below the chain head, so a shallow reorg never reaches
// the database.
type Synchronizer struct {
	cfg       *Config
	escrowman *escrowman.Escrowman
	st        *state.State
	cursor    uint64
}

func New(
	escrowman *escrowman.Escrowman,
	st *state.State,
	cfg *Config,
) (*Synchronizer, error) {
	cfg = cfg.withDefaults()

	chainID, err := escrowman.ChainID(context.Background())
	if err != nil {
		logger.Error("failed to get chain ID from the endpoint")
		return nil, err
	}

	if chainID.Cmp(cfg.ChainID) != 0 {
		logger.WithFields(logger.Fields{
			"configured": cfg.ChainID,
			"endpoint":   chainID,
		}).Error("chain id mismatch")
		return nil, ErrChainIDUnmatched
	}

	cursor, err := st.InitCursor(cfg.StartBlock)
	if err != nil {
		logger.Error("failed to initialize sync cursor when creating synchronizer")
		return nil, err
	}

	return &Synchronizer{
		cfg:       cfg,
		escrowman: escrowman,
		st:        st,
		cursor:    cursor,
	}, nil
}

// LastProcessedBlock returns the in-memory cursor. It trails the persisted
// cursor by at most one window while a cycle is running.
func (s *Synchronizer) LastProcessedBlock() uint64 {
	return s.cursor
}

// Sync runs the polling loop until ctx is cancelled. Transient errors from
// the endpoint or the database abort the current cycle without advancing
// the cursor; the next tick retries from the same position.
func (s *Synchronizer) Sync(ctx context.Context) error {
	logger.Debug("starting escrow synchronization")
	defer func() {
		logger.Debug("stopping escrow synchronization")
	}()

	ticker := time.NewTicker(s.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := s.runCycle(ctx); err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				logger.WithFields(logger.Fields{
					"cursor": s.cursor,
					"err":    err,
				}).Warn("sync cycle failed, will retry on next tick")
			}
		}
	}
}

// runCycle processes up to MaxCatchupBatches windows of at most BatchSize
// blocks each, stopping early once the cursor reaches the safe head.
// Cancellation is honored between windows only; a window that has started
// always runs to completion so the cursor and the projection stay aligned.
func (s *Synchronizer) runCycle(ctx context.Context) error {
	head, err := s.escrowman.LatestBlockNumber(ctx)
	if err != nil {
		return err
	}
	if head < s.cfg.Confirmations {
		return nil
	}
	safeHead := head - s.cfg.Confirmations

	for i := 0; i < s.cfg.MaxCatchupBatches; i++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if s.cursor >= safeHead {
			return nil
		}

		from := s.cursor + 1
		to := s.cursor + s.cfg.BatchSize
		if to > safeHead {
			to = safeHead
		}

		events, err := s.escrowman.GetEventLogs(ctx, from, to)
		if err != nil {
			return err
		}
		if err := s.st.ApplyWindow(events, to); err != nil {
			return err
		}
		s.cursor = to

		if len(events) > 0 {
			logger.WithFields(logger.Fields{
				"from":   from,
				"to":     to,
				"events": len(events),
			}).Debug("applied event window")
		}
	}

	logger.WithFields(logger.Fields{
		"cursor":   s.cursor,
		"safeHead": safeHead,
	}).Debug("max catch-up batches reached, resuming next tick")
	return nil
}
