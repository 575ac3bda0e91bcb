package client

import (
	"context"
	"fmt"
	"sync"

	atelierv1 "github.com/jamesainslie/atelier/pkg/api/atelier/v1"
	"github.com/jamesainslie/atelier/pkg/atelier/config"
	"github.com/jamesainslie/atelier/pkg/daemon"
	"github.com/jamesainslie/atelier/pkg/workspace"
)

// Local runs the workspace inside the calling process. It answers the
// same calls as the daemon and persists the session while open.
type Local struct {
	*daemon.Service

	ws     *workspace.Workspace
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
	err    error
}

var _ Workspace = (*Local)(nil)

// NewLocal restores the session described by cfg and starts persisting it.
func NewLocal(cfg *config.Config) (*Local, error) {
	opts, err := workspace.OptionsFromConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("open workspace: %w", err)
	}
	ws := workspace.New(opts)
	ws.Restore()
	return newLocal(ws, daemon.GitHubOptions{Token: cfg.GitHub.Token, APIURL: cfg.GitHub.APIURL}), nil
}

// LocalFrom serves an existing workspace. Close closes ws.
func LocalFrom(ws *workspace.Workspace) *Local {
	return newLocal(ws, daemon.GitHubOptions{})
}

func newLocal(ws *workspace.Workspace, gh daemon.GitHubOptions) *Local {
	ctx, cancel := context.WithCancel(context.Background())
	l := &Local{
		Service: daemon.NewService(ws, gh),
		ws:      ws,
		cancel:  cancel,
		done:    make(chan struct{}),
	}
	go func() {
		defer close(l.done)
		ws.Run(ctx)
	}()
	return l
}

// Workspace returns the underlying workspace for in-process callers such
// as the TUI.
func (l *Local) Workspace() *workspace.Workspace { return l.ws }

func (l *Local) Remote() bool { return false }

// Close stops persistence, saves the session and releases it.
func (l *Local) Close() error {
	l.once.Do(func() {
		l.cancel()
		<-l.done
		_ = l.Service.Close()
		l.err = l.ws.Close()
	})
	return l.err
}

// chanStream adapts Service.Watch to a channel.
type chanStream struct {
	ctx context.Context
	out chan<- *atelierv1.WatchEvent
}

func (s chanStream) Context() context.Context { return s.ctx }

func (s chanStream) Send(e *atelierv1.WatchEvent) error {
	select {
	case s.out <- e:
		return nil
	case <-s.ctx.Done():
		return s.ctx.Err()
	}
}

// Events runs Watch in the background.
func (l *Local) Events(ctx context.Context, req *atelierv1.WatchRequest) (<-chan *atelierv1.WatchEvent, error) {
	if err := l.CheckWatch(req); err != nil {
		return nil, err
	}
	events := make(chan *atelierv1.WatchEvent, 100)
	go func() {
		defer close(events)
		_ = l.Watch(req, chanStream{ctx: ctx, out: events})
	}()
	return events, nil
}
