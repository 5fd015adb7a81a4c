package candidate

import "github.com/kailas-cloud/lostmatch/internal/domain"

// Status is the embedding outcome of a single candidate.
type Status string

// Candidate status values.
const (
	StatusEmbedded Status = "embedded"
	StatusFailed   Status = "failed"
)

// Result is the outcome of embedding one candidate item.
type Result struct {
	item      domain.Item
	status    Status
	embedding domain.Embedding
	err       error
}

// NewEmbedded creates a successful candidate result.
func NewEmbedded(item domain.Item, emb domain.Embedding) Result {
	return Result{item: item, status: StatusEmbedded, embedding: emb}
}

// NewFailed creates a failed candidate result.
func NewFailed(item domain.Item, err error) Result {
	return Result{item: item, status: StatusFailed, err: err}
}

// Item returns the candidate item.
func (r Result) Item() domain.Item { return r.item }

// OK reports whether the candidate produced an embedding.
func (r Result) OK() bool { return r.status == StatusEmbedded }

// Embedding returns the vector, nil on failure.
func (r Result) Embedding() domain.Embedding { return r.embedding }

// Err returns the failure reason, if any.
func (r Result) Err() error { return r.err }

// Split separates successful results from failures, preserving order.
func Split(results []Result) (ok, failed []Result) {
	for _, r := range results {
		if r.OK() {
			ok = append(ok, r)
		} else {
			failed = append(failed, r)
		}
	}
	return ok, failed
}
