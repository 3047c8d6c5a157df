package knowledge

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"mnp-assistant-be/internal/entity"
	"mnp-assistant-be/internal/repository/contract"
	"mnp-assistant-be/pkg/embedding"
	"mnp-assistant-be/pkg/metrics"

	"github.com/google/uuid"
)

const logModule = "KnowledgeRetriever"

// Method names the search path(s) that produced a result.
type Method string

const (
	MethodVector  Method = "vector"
	MethodLexical Method = "lexical"
	MethodFused   Method = "fused"
)

// Logger is the subset of the application logger the retriever writes to.
type Logger interface {
	Info(module, message string, details map[string]interface{})
	Warn(module, message string, details map[string]interface{})
	Error(module, message string, details map[string]interface{})
}

// Store is the knowledge store port. The gorm KnowledgeItemRepository satisfies it.
type Store interface {
	SearchSimilarWithScore(ctx context.Context, embedding []float32, filter contract.KnowledgeFilter, threshold float64, limit int) ([]*contract.ScoredKnowledgeItem, error)
	SearchLexical(ctx context.Context, query string, keywords []string, filter contract.KnowledgeFilter, limit int) ([]*contract.ScoredKnowledgeItem, error)
}

type Config struct {
	SimilarityFloor float64
	VectorWeight    float64
	LexicalWeight   float64
	MaxResults      int
	// CandidateLimit bounds each search method before fusion
	CandidateLimit int

	CarrierBoost  float64
	StepBoost     float64
	PriorityBoost float64

	StepCategories map[string][]string

	EmbeddingTimeout time.Duration
	SearchTimeout    time.Duration
}

func DefaultConfig() Config {
	return Config{
		SimilarityFloor:  0.7,
		VectorWeight:     0.7,
		LexicalWeight:    0.3,
		MaxResults:       5,
		CandidateLimit:   20,
		CarrierBoost:     0.2,
		StepBoost:        0.15,
		PriorityBoost:    0.05,
		StepCategories:   DefaultStepCategories,
		EmbeddingTimeout: 5 * time.Second,
		SearchTimeout:    3 * time.Second,
	}
}

// SearchContext is the session state that steers filtering and boosting.
type SearchContext struct {
	Carrier     string
	CurrentStep string
}

type Result struct {
	Item *entity.KnowledgeItem
	// Score is the boosted relevance in [0,1]
	Score float64
	// FusedScore is the weighted sum before boosting
	FusedScore     float64
	Method         Method
	CarrierMatched bool
	StepRelevant   bool
}

type SearchResponse struct {
	Items            []Result
	ContextRelevance float64
}

type Retriever struct {
	store    Store
	embedder embedding.EmbeddingProvider
	config   Config
	logger   Logger
	metrics  *metrics.Metrics
}

func NewRetriever(store Store, embedder embedding.EmbeddingProvider, config Config, logger Logger, m *metrics.Metrics) *Retriever {
	if config.StepCategories == nil {
		config.StepCategories = DefaultStepCategories
	}
	if config.MaxResults <= 0 {
		config.MaxResults = 5
	}
	if config.CandidateLimit < config.MaxResults {
		config.CandidateLimit = config.MaxResults * 4
	}
	return &Retriever{
		store:    store,
		embedder: embedder,
		config:   config,
		logger:   logger,
		metrics:  m,
	}
}

// Search never fails: backend errors degrade to the other method, and a total failure
// yields an empty response with zero relevance.
func (r *Retriever) Search(ctx context.Context, query string, sc SearchContext) SearchResponse {
	query = strings.TrimSpace(query)
	if query == "" {
		r.metrics.ObserveSearch("empty", 0)
		return SearchResponse{Items: []Result{}}
	}

	filter := contract.KnowledgeFilter{Carrier: sc.Carrier}
	keywords := ExtractKeywords(query)

	var (
		wg             sync.WaitGroup
		vectorResults  []*contract.ScoredKnowledgeItem
		lexicalResults []*contract.ScoredKnowledgeItem
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		vectorResults = r.vectorSearch(ctx, query, filter)
	}()
	go func() {
		defer wg.Done()
		lexicalResults = r.lexicalSearch(ctx, query, keywords, filter)
	}()
	wg.Wait()

	results := r.fuse(vectorResults, lexicalResults, keywords)
	for i := range results {
		r.boost(&results[i], sc)
	}

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		if results[i].Item.Priority != results[j].Item.Priority {
			return results[i].Item.Priority > results[j].Item.Priority
		}
		return results[i].Item.Id.String() < results[j].Item.Id.String()
	})
	if len(results) > r.config.MaxResults {
		results = results[:r.config.MaxResults]
	}

	relevance := r.contextRelevance(results)
	r.metrics.ObserveSearch(outcome(results), relevance)

	r.logger.Info(logModule, "Knowledge search finished", map[string]interface{}{
		"query":             query,
		"carrier":           sc.Carrier,
		"step":              sc.CurrentStep,
		"vector_candidates": len(vectorResults),
		"lexical_hits":      len(lexicalResults),
		"results":           len(results),
		"context_relevance": relevance,
	})

	return SearchResponse{Items: results, ContextRelevance: relevance}
}

func (r *Retriever) vectorSearch(ctx context.Context, query string, filter contract.KnowledgeFilter) []*contract.ScoredKnowledgeItem {
	if r.embedder == nil {
		return nil
	}

	embedCtx, cancel := context.WithTimeout(ctx, r.config.EmbeddingTimeout)
	resp, err := r.embedder.Generate(embedCtx, query, embedding.TaskRetrievalQuery)
	cancel()
	if err != nil || resp == nil || len(resp.Embedding.Values) == 0 {
		r.metrics.ObserveEmbeddingDegraded()
		r.logger.Warn(logModule, "Query embedding failed, continuing lexical-only", map[string]interface{}{
			"error": err,
		})
		return nil
	}

	searchCtx, cancel := context.WithTimeout(ctx, r.config.SearchTimeout)
	defer cancel()
	items, err := r.store.SearchSimilarWithScore(searchCtx, resp.Embedding.Values, filter, r.config.SimilarityFloor, r.config.CandidateLimit)
	if err != nil {
		r.logger.Error(logModule, "Vector search failed", map[string]interface{}{"error": err})
		return nil
	}
	return items
}

func (r *Retriever) lexicalSearch(ctx context.Context, query string, keywords []string, filter contract.KnowledgeFilter) []*contract.ScoredKnowledgeItem {
	searchCtx, cancel := context.WithTimeout(ctx, r.config.SearchTimeout)
	defer cancel()
	items, err := r.store.SearchLexical(searchCtx, query, keywords, filter, r.config.CandidateLimit)
	if err != nil {
		r.logger.Error(logModule, "Lexical search failed", map[string]interface{}{"error": err})
		return nil
	}
	return items
}

// fuse merges both candidate lists by item id. Items found by both methods accumulate
// both weighted contributions; single-method items must clear the floor on their raw score.
func (r *Retriever) fuse(vector, lexical []*contract.ScoredKnowledgeItem, keywords []string) []Result {
	type entry struct {
		item         *entity.KnowledgeItem
		vectorScore  float64
		lexicalScore float64
		hasVector    bool
		hasLexical   bool
	}

	merged := make(map[uuid.UUID]*entry)
	var order []uuid.UUID

	get := func(item *entity.KnowledgeItem) *entry {
		e, ok := merged[item.Id]
		if !ok {
			e = &entry{item: item}
			merged[item.Id] = e
			order = append(order, item.Id)
		}
		return e
	}

	for _, v := range vector {
		if v == nil || v.Item == nil || !v.Item.IsActive {
			continue
		}
		e := get(v.Item)
		if clamp01(v.Score) > e.vectorScore {
			e.vectorScore = clamp01(v.Score)
		}
		e.hasVector = true
	}

	for _, l := range lexical {
		if l == nil || l.Item == nil || !l.Item.IsActive {
			continue
		}
		raw := clamp01(l.Score)
		if overlap := keywordOverlap(keywords, l.Item.Keywords); overlap > raw {
			raw = overlap
		}
		e := get(l.Item)
		if raw > e.lexicalScore {
			e.lexicalScore = raw
		}
		e.hasLexical = true
	}

	results := make([]Result, 0, len(order))
	for _, id := range order {
		e := merged[id]
		var (
			fused  float64
			method Method
		)
		switch {
		case e.hasVector && e.hasLexical:
			fused = e.vectorScore*r.config.VectorWeight + e.lexicalScore*r.config.LexicalWeight
			method = MethodFused
		case e.hasVector:
			if e.vectorScore < r.config.SimilarityFloor {
				continue
			}
			fused = e.vectorScore * r.config.VectorWeight
			method = MethodVector
		default:
			if e.lexicalScore < r.config.SimilarityFloor {
				continue
			}
			fused = e.lexicalScore * r.config.LexicalWeight
			method = MethodLexical
		}
		results = append(results, Result{
			Item:       e.item,
			FusedScore: fused,
			Score:      fused,
			Method:     method,
		})
	}
	return results
}

func (r *Retriever) boost(res *Result, sc SearchContext) {
	score := res.FusedScore

	if res.Item.MatchesCarrier(sc.Carrier) {
		res.CarrierMatched = true
		score *= 1 + r.config.CarrierBoost
	}
	if isStepRelevant(r.config.StepCategories, sc.CurrentStep, res.Item.Category) {
		res.StepRelevant = true
		score *= 1 + r.config.StepBoost
	}
	if res.Item.Priority > 0 {
		score *= 1 + float64(res.Item.Priority)*r.config.PriorityBoost
	}

	res.Score = clamp01(score)
}

func (r *Retriever) contextRelevance(results []Result) float64 {
	if len(results) == 0 {
		return 0
	}

	var sum float64
	var carrierMatched, stepRelevant int
	for _, res := range results {
		sum += res.Score
		if res.CarrierMatched {
			carrierMatched++
		}
		if res.StepRelevant {
			stepRelevant++
		}
	}

	n := float64(len(results))
	relevance := sum/n +
		r.config.CarrierBoost*float64(carrierMatched)/n +
		r.config.StepBoost*float64(stepRelevant)/n
	return clamp01(relevance)
}

func outcome(results []Result) string {
	if len(results) == 0 {
		return "empty"
	}
	var vector, lexical bool
	for _, res := range results {
		switch res.Method {
		case MethodFused:
			return "fused"
		case MethodVector:
			vector = true
		case MethodLexical:
			lexical = true
		}
	}
	switch {
	case vector && lexical:
		return "fused"
	case vector:
		return "vector_only"
	default:
		return "lexical_only"
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
