package main

import (
	"context"
	"fmt"

	"ledgerview/internal/backend"
	"ledgerview/internal/ledger"
	"ledgerview/internal/log"
	"ledgerview/internal/notify"
	"ledgerview/internal/session"
)

// cliSession is one session store opened for a single command.
type cliSession struct {
	store   *session.Store
	backend *backend.Result
	notices *notify.Buffer
}

func (a *app) openBackend(ctx context.Context) (*backend.Result, error) {
	bcfg, err := backend.FromAppConfig(a.cfg)
	if err != nil {
		return nil, err
	}
	return backend.NewFactory(a.logger).CreateBackend(ctx, bcfg)
}

// connect builds a store and connects it, remote unless --fallback is set,
// then waits for the initial load.
func (a *app) connect(ctx context.Context) (*cliSession, error) {
	res, err := a.openBackend(ctx)
	if err != nil {
		return nil, err
	}
	notices := notify.NewBuffer(a.cfg.NoticeBuffer)
	factory := res.SessionFactory(a.cfg.LocalStoreKey, res.Notifier(a.logger, notices), a.logger)
	s := &cliSession{store: factory("cli"), backend: res, notices: notices}

	var done <-chan error
	if a.fallback {
		done, err = s.store.Connect(ctx, ledger.Fallback())
	} else {
		var attempt ledger.ConnectResult
		attempt, done, err = s.store.ConnectLedger(ctx, a.cfg.ConnectTimeout)
		if err == nil && attempt.Status != ledger.Connected {
			s.close(ctx)
			return nil, fmt.Errorf("ledger %s (%v); rerun with --fallback to use the local store", attempt.Status, attempt.Err)
		}
	}
	if err != nil {
		s.close(ctx)
		return nil, err
	}

	select {
	case err := <-done:
		if err != nil {
			s.close(ctx)
			return nil, err
		}
	case <-ctx.Done():
		s.close(ctx)
		return nil, ctx.Err()
	}
	a.logger.Debug("Session ready",
		log.FieldIdentity, s.store.Identity().String(),
		log.FieldRecordCount, len(s.store.Records()))
	return s, nil
}

func (s *cliSession) close(ctx context.Context) {
	s.store.Disconnect(context.WithoutCancel(ctx))
	_ = s.backend.Close()
}
