package worker

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/ppiankov/ghitriage/internal/model"
)

// SignalFetcher loads one signal by id
type SignalFetcher interface {
	GetSignal(ctx context.Context, id string) (*model.Signal, error)
}

// LookupJob fetches a single signal
type LookupJob struct {
	ID      string
	Fetcher SignalFetcher
}

// Execute executes the lookup job
func (j *LookupJob) Execute(ctx context.Context) Result {
	signal, err := j.Fetcher.GetSignal(ctx, j.ID)
	return &LookupResult{
		ID:     j.ID,
		Signal: signal,
		Error:  err,
	}
}

// LookupResult represents the result of a lookup job
type LookupResult struct {
	ID     string
	Signal *model.Signal
	Error  error
}

// GetError returns the error from the lookup result
func (r *LookupResult) GetError() error {
	return r.Error
}

// BatchLookup fetches several signals concurrently
type BatchLookup struct {
	fetcher     SignalFetcher
	concurrency int
}

// NewBatchLookup creates a new batch lookup
func NewBatchLookup(fetcher SignalFetcher, concurrency int) *BatchLookup {
	return &BatchLookup{
		fetcher:     fetcher,
		concurrency: concurrency,
	}
}

// Signals fetches every id and returns one result per distinct id, in input order
func (b *BatchLookup) Signals(ctx context.Context, ids []string) []*LookupResult {
	ids = dedupe(ids)
	if len(ids) == 0 {
		return []*LookupResult{}
	}

	pool := NewPool(ctx, b.concurrency)
	pool.Start()

	for _, id := range ids {
		if !pool.Submit(&LookupJob{ID: id, Fetcher: b.fetcher}) {
			break
		}
	}

	byID := make(map[string]*LookupResult, len(ids))
	for _, result := range pool.Wait() {
		lr := result.(*LookupResult)
		byID[lr.ID] = lr
	}

	ordered := make([]*LookupResult, len(ids))
	for i, id := range ids {
		if lr, ok := byID[id]; ok {
			ordered[i] = lr
			continue
		}
		err := ctx.Err()
		if err == nil {
			err = fmt.Errorf("lookup of %s was not run", id)
		}
		ordered[i] = &LookupResult{ID: id, Error: err}
	}

	return ordered
}

// ReadIDsFromFile reads ids from a file (one per line, # comments allowed)
func ReadIDsFromFile(filePath string) ([]string, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer func() { _ = file.Close() }()

	var ids []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		// Skip empty lines and comments
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		ids = append(ids, line)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan file: %w", err)
	}

	return dedupe(ids), nil
}

func dedupe(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}
