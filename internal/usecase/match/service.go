package match

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kailas-cloud/lostmatch/internal/domain"
	"github.com/kailas-cloud/lostmatch/internal/domain/candidate"
	"github.com/kailas-cloud/lostmatch/internal/index"
	"github.com/kailas-cloud/lostmatch/internal/logger"
	"github.com/kailas-cloud/lostmatch/internal/metrics"
)

// Defaults for the matching parameters.
const (
	DefaultTopK       = 5
	DefaultDimensions = 512
)

// Service matches lost item reports against found item reports by image similarity.
// Every operation builds its corpus and index from scratch.
type Service struct {
	encoder        ItemEncoder
	corpus         Corpus
	memo           MemoFactory
	dims           int
	topK           int
	scorer         Scorer
	minScore       float64
	categoryFilter bool
	skipResolved   bool
	logger         *zap.Logger
}

// New creates a match service. corpus may be nil when only Match is used.
func New(encoder ItemEncoder, corpus Corpus, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		encoder: encoder,
		corpus:  corpus,
		dims:    DefaultDimensions,
		topK:    DefaultTopK,
		scorer:  InverseDistance,
		logger:  log,
	}
}

// WithTopK sets the number of matches returned when callers pass k <= 0.
func (s *Service) WithTopK(k int) *Service {
	if k > 0 {
		s.topK = k
	}
	return s
}

// WithDimensions sets the index dimension. Invalid values surface as
// ErrConfiguration on the first operation.
func (s *Service) WithDimensions(dims int) *Service {
	s.dims = dims
	return s
}

// WithScorer sets the distance-to-similarity transform.
func (s *Service) WithScorer(sc Scorer) *Service {
	if sc != nil {
		s.scorer = sc
	}
	return s
}

// WithMinScore drops matches scoring below minScore. Zero disables the filter.
func (s *Service) WithMinScore(minScore float64) *Service {
	s.minScore = minScore
	return s
}

// WithCategoryFilter restricts candidates to the query's category when both
// carry a known category label.
func (s *Service) WithCategoryFilter(enabled bool) *Service {
	s.categoryFilter = enabled
	return s
}

// WithExcludeResolved drops resolved items from corpus-loaded pools: the
// lost queries of MatchAll and the candidate pools of MatchAll, MatchLost and
// MatchFound. Explicit pools passed to Match are never filtered.
func (s *Service) WithExcludeResolved(enabled bool) *Service {
	s.skipResolved = enabled
	return s
}

// WithMemo enables per-run embedding memoization in batch mode.
func (s *Service) WithMemo(f MemoFactory) *Service {
	s.memo = f
	return s
}

// Match ranks candidates by visual similarity to query and returns up to k
// matches (k <= 0 selects the default). A query without a usable embedding or a
// pool without any usable candidate yields an empty result, not an error.
// ErrDimensionMismatch and ErrConfiguration are returned to the caller.
func (s *Service) Match(
	ctx context.Context, query domain.Item, candidates []domain.Item, k int,
) ([]domain.Match, error) {
	start := time.Now()
	defer func() { metrics.MatchDuration.WithLabelValues("single").Observe(time.Since(start).Seconds()) }()

	return s.match(ctx, s.encoder, query, candidates, k, logger.FromContextOr(ctx, s.logger))
}

// MatchLost matches the lost item id against all found items.
func (s *Service) MatchLost(ctx context.Context, id string, k int) ([]domain.Match, error) {
	if s.corpus == nil {
		return nil, fmt.Errorf("corpus source is not configured: %w", domain.ErrConfiguration)
	}
	query, err := s.corpus.GetLost(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get lost item %s: %w", id, err)
	}
	pool, err := s.corpus.ListFound(ctx)
	if err != nil {
		return nil, fmt.Errorf("list found items: %w", err)
	}
	return s.Match(ctx, query, s.pool(pool), k)
}

// MatchFound matches the found item id against all lost items.
func (s *Service) MatchFound(ctx context.Context, id string, k int) ([]domain.Match, error) {
	if s.corpus == nil {
		return nil, fmt.Errorf("corpus source is not configured: %w", domain.ErrConfiguration)
	}
	query, err := s.corpus.GetFound(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get found item %s: %w", id, err)
	}
	pool, err := s.corpus.ListLost(ctx)
	if err != nil {
		return nil, fmt.Errorf("list lost items: %w", err)
	}
	return s.Match(ctx, query, s.pool(pool), k)
}

// MatchAll runs every lost item as a query against the full found item pool
// and concatenates the per-item results in lost item order. A lost item whose
// own image cannot be embedded contributes no matches.
func (s *Service) MatchAll(ctx context.Context) ([]domain.Match, error) {
	if s.corpus == nil {
		return nil, fmt.Errorf("corpus source is not configured: %w", domain.ErrConfiguration)
	}
	start := time.Now()
	defer func() { metrics.MatchDuration.WithLabelValues("batch").Observe(time.Since(start).Seconds()) }()

	lost, err := s.corpus.ListLost(ctx)
	if err != nil {
		return nil, fmt.Errorf("list lost items: %w", err)
	}
	found, err := s.corpus.ListFound(ctx)
	if err != nil {
		return nil, fmt.Errorf("list found items: %w", err)
	}
	lost, found = s.pool(lost), s.pool(found)

	log := logger.FromContextOr(ctx, s.logger).With(zap.String("run_id", uuid.NewString()))
	log.Info("Batch match started",
		zap.Int("lost_items", len(lost)),
		zap.Int("found_items", len(found)),
	)

	enc := s.encoder
	if s.memo != nil {
		enc = s.memo(s.encoder)
	}

	all := make([]domain.Match, 0, len(lost)*s.topK)
	for _, q := range lost {
		matches, err := s.match(ctx, enc, q, found, s.topK, log)
		if err != nil {
			return nil, fmt.Errorf("match lost item %s: %w", q.ID, err)
		}
		all = append(all, matches...)
	}

	fields := []zap.Field{
		zap.Int("matches", len(all)),
		zap.Duration("duration", time.Since(start)),
	}
	if m, ok := enc.(interface{ Len() int }); ok {
		fields = append(fields, zap.Int("cached_embeddings", m.Len()))
	}
	log.Info("Batch match completed", fields...)
	return all, nil
}

func (s *Service) match(
	ctx context.Context, enc ItemEncoder,
	query domain.Item, candidates []domain.Item, k int, log *zap.Logger,
) ([]domain.Match, error) {
	if k <= 0 {
		k = s.topK
	}
	log = log.With(zap.String("query_id", query.ID))

	idx, err := index.New(s.dims)
	if err != nil {
		metrics.MatchOperationsTotal.WithLabelValues("error").Inc()
		return nil, err
	}

	q, err := enc.EncodeItem(ctx, query)
	if err != nil {
		if fatal(ctx, err) {
			metrics.MatchOperationsTotal.WithLabelValues("error").Inc()
			return nil, fmt.Errorf("embed query: %w", err)
		}
		log.Warn("Query image unusable, no matches", zap.Error(err))
		metrics.MatchOperationsTotal.WithLabelValues("query_failed").Inc()
		return []domain.Match{}, nil
	}

	results, err := s.embedCandidates(ctx, enc, query, q.Model, candidates)
	if err != nil {
		metrics.MatchOperationsTotal.WithLabelValues("error").Inc()
		return nil, err
	}
	usable, failed := candidate.Split(results)
	for _, f := range failed {
		log.Warn("Skipping candidate",
			zap.String("candidate_id", f.Item().ID),
			zap.Error(f.Err()),
		)
	}
	metrics.MatchCandidatesSkipped.Add(float64(len(failed)))

	if len(usable) == 0 {
		log.Info("No usable candidates",
			zap.Int("candidates", len(candidates)),
			zap.Error(domain.ErrEmptyCorpus),
		)
		metrics.MatchOperationsTotal.WithLabelValues("empty_corpus").Inc()
		return []domain.Match{}, nil
	}

	vectors := make([][]float32, len(usable))
	for i, r := range usable {
		vectors[i] = r.Embedding()
	}
	if err := idx.Build(vectors); err != nil {
		metrics.MatchOperationsTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("build index: %w", err)
	}

	hits, err := idx.Search(q.Vector, k)
	if err != nil {
		metrics.MatchOperationsTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("search index: %w", err)
	}

	// hits ascend by distance, so scores descend; ties keep candidate order.
	matches := make([]domain.Match, 0, len(hits))
	for _, h := range hits {
		score := s.scorer.Score(h.Distance)
		if s.minScore > 0 && score < s.minScore {
			continue
		}
		c := usable[h.Position].Item()
		matches = append(matches, domain.Match{
			QueryID:     query.ID,
			CandidateID: c.ID,
			Candidate:   c,
			Distance:    h.Distance,
			Score:       score,
		})
	}

	log.Info("Match completed",
		zap.Int("candidates", len(candidates)),
		zap.Int("indexed", len(usable)),
		zap.Int("skipped", len(failed)),
		zap.Int("matches", len(matches)),
	)
	metrics.MatchOperationsTotal.WithLabelValues("ok").Inc()
	metrics.MatchResults.Observe(float64(len(matches)))
	return matches, nil
}

// embedCandidates embeds candidates in the order given. Per-candidate failures
// are recorded in the result; only fatal errors abort.
func (s *Service) embedCandidates(
	ctx context.Context, enc ItemEncoder,
	query domain.Item, model string, candidates []domain.Item,
) ([]candidate.Result, error) {
	results := make([]candidate.Result, 0, len(candidates))
	for _, c := range candidates {
		if s.categoryFilter && query.CategoryKnown() && c.CategoryKnown() && c.Category != query.Category {
			continue
		}
		if !c.HasImage() {
			results = append(results, candidate.NewFailed(c, domain.ErrNoImage))
			continue
		}

		res, err := enc.EncodeItem(ctx, c)
		if err != nil {
			if fatal(ctx, err) {
				return nil, fmt.Errorf("embed candidate %s: %w", c.ID, err)
			}
			results = append(results, candidate.NewFailed(c, err))
			continue
		}
		if model != "" && res.Model != "" && res.Model != model {
			results = append(results, candidate.NewFailed(c, domain.NewEncodingError(domain.ReasonModel,
				fmt.Errorf("candidate model %q, query model %q", res.Model, model))))
			continue
		}
		results = append(results, candidate.NewEmbedded(c, res.Vector))
	}
	return results, nil
}

// fatal reports errors that must abort the operation instead of skipping an item.
func fatal(ctx context.Context, err error) bool {
	if ctx.Err() != nil {
		return true
	}
	return errors.Is(err, domain.ErrDimensionMismatch) || errors.Is(err, domain.ErrConfiguration)
}

// pool applies the resolved-item exclusion when enabled.
func (s *Service) pool(items []domain.Item) []domain.Item {
	if !s.skipResolved {
		return items
	}
	out := make([]domain.Item, 0, len(items))
	for _, it := range items {
		if !it.Resolved() {
			out = append(out, it)
		}
	}
	return out
}
