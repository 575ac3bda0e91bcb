// Package client connects commands to a workspace: the atelierd daemon
// over its Unix socket, or an in-process workspace when no daemon runs.
package client

import (
	"context"
	"fmt"
	"os"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	atelierv1 "github.com/jamesainslie/atelier/pkg/api/atelier/v1"
)

// Workspace is what commands talk to. Both the daemon client and the
// in-process workspace implement it.
type Workspace interface {
	atelierv1.Workspace
	// Events streams changes until ctx is cancelled. The channel is closed
	// when the stream ends.
	Events(ctx context.Context, req *atelierv1.WatchRequest) (<-chan *atelierv1.WatchEvent, error)
	// Remote reports whether calls go to the daemon.
	Remote() bool
	Close() error
}

// Client connects to the atelierd daemon via gRPC.
type Client struct {
	*atelierv1.WorkspaceClient
	conn *grpc.ClientConn
}

var _ Workspace = (*Client)(nil)

// Connect establishes a connection to the daemon.
// Uses a default timeout of 5 seconds.
func Connect(socketPath string) (*Client, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return ConnectWithContext(ctx, socketPath)
}

// ConnectWithContext establishes a connection to the daemon and waits for
// it to answer a Status call.
func ConnectWithContext(ctx context.Context, socketPath string) (*Client, error) {
	if _, err := os.Stat(socketPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("daemon socket not found at %s", socketPath)
	}

	conn, err := grpc.NewClient(
		"unix://"+socketPath,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to daemon: %w", err)
	}

	c := &Client{
		WorkspaceClient: atelierv1.NewWorkspaceClient(conn),
		conn:            conn,
	}
	// NewClient is lazy; a round trip proves the daemon is there.
	if _, err := c.Status(ctx, &atelierv1.Empty{}); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to connect to daemon: %w", err)
	}
	return c, nil
}

// Close closes the connection to the daemon.
func (c *Client) Close() error {
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

func (c *Client) Remote() bool { return true }

// Events opens a Watch stream and forwards it to a channel.
func (c *Client) Events(ctx context.Context, req *atelierv1.WatchRequest) (<-chan *atelierv1.WatchEvent, error) {
	stream, err := c.Watch(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("Watch RPC failed: %w", err)
	}

	events := make(chan *atelierv1.WatchEvent, 100)
	go func() {
		defer close(events)
		for {
			e, err := stream.Recv()
			if err != nil {
				return // Stream closed or error
			}
			select {
			case events <- e:
			case <-ctx.Done():
				return
			}
		}
	}()
	return events, nil
}
