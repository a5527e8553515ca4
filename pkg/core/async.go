package core

import (
	"context"
	"sync"
)

// SnapshotResult carries the outcome of an asynchronous refresh.
type SnapshotResult struct {
	Dimension Dimension
	Snapshot  *Snapshot
	Error     error
}

// AsyncClient provides asynchronous dashboard refreshes.
//
// It wraps the synchronous Client and refreshes dimensions in separate
// goroutines. Dimensions are computed independently: one failing or being
// slow never holds back the others.
//
// Example:
//
//	asyncClient, _ := core.NewAsyncClient(config)
//	defer asyncClient.Close()
//
//	for result := range asyncClient.RefreshAllAsync(ctx) {
//	    if result.Error != nil {
//	        log.Println(result.Dimension, result.Error)
//	    }
//	}
type AsyncClient struct {
	*Client
	wg sync.WaitGroup
}

// NewAsyncClient creates a new asynchronous client.
func NewAsyncClient(cfg *Config, opts ...ClientOption) (*AsyncClient, error) {
	client, err := NewClient(cfg, opts...)
	if err != nil {
		return nil, err
	}

	return &AsyncClient{
		Client: client,
	}, nil
}

// RefreshAsync refreshes one dimension in a separate goroutine.
//
// Returns a channel that receives exactly one result and is then closed.
func (ac *AsyncClient) RefreshAsync(ctx context.Context, dim Dimension) <-chan *SnapshotResult {
	resultChan := make(chan *SnapshotResult, 1)
	ac.wg.Add(1)

	go func() {
		defer ac.wg.Done()
		snapshot, err := ac.Refresh(ctx, dim)
		resultChan <- &SnapshotResult{
			Dimension: dim,
			Snapshot:  snapshot,
			Error:     err,
		}
		close(resultChan)
	}()

	return resultChan
}

// RefreshAllAsync refreshes every dimension concurrently.
//
// Returns a channel that receives one result per dimension in completion
// order and is closed once all have arrived.
func (ac *AsyncClient) RefreshAllAsync(ctx context.Context) <-chan *SnapshotResult {
	resultChan := make(chan *SnapshotResult, len(Dimensions))

	var group sync.WaitGroup
	for _, dim := range Dimensions {
		group.Add(1)
		ac.wg.Add(1)
		go func(dim Dimension) {
			defer ac.wg.Done()
			defer group.Done()
			snapshot, err := ac.Refresh(ctx, dim)
			resultChan <- &SnapshotResult{
				Dimension: dim,
				Snapshot:  snapshot,
				Error:     err,
			}
		}(dim)
	}

	go func() {
		group.Wait()
		close(resultChan)
	}()

	return resultChan
}

// Wait blocks until all in-flight asynchronous refreshes finish.
func (ac *AsyncClient) Wait() {
	ac.wg.Wait()
}

// Close waits for in-flight refreshes and closes the client.
func (ac *AsyncClient) Close() error {
	ac.Wait()
	return ac.Client.Close()
}
