package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	DiscoveryRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "leadengine_discovery_runs_total",
		Help: "The total number of discovery runs by terminal status",
	}, []string{"status"})

	DiscoveryRunDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "leadengine_discovery_run_duration_seconds",
		Help:    "Duration in seconds of a full discovery run",
		Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600, 1200},
	})

	DiscoveryRejectedStarts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "leadengine_discovery_rejected_starts_total",
		Help: "Total number of discovery starts rejected because a run was live",
	})

	CandidatesScored = promauto.NewCounter(prometheus.CounterOpts{
		Name: "leadengine_candidates_scored_total",
		Help: "Total number of candidate posts scored",
	})

	CandidatesRelevant = promauto.NewCounter(prometheus.CounterOpts{
		Name: "leadengine_candidates_relevant_total",
		Help: "Total number of candidate posts at or above the relevance threshold",
	})

	LeadsPersisted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "leadengine_leads_persisted_total",
		Help: "Total number of lead upserts by outcome",
	}, []string{"outcome"})

	SessionBatchSize = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "leadengine_session_batch_size",
		Help:    "Distribution of selected batch sizes per discovery session",
		Buckets: []float64{0, 1, 5, 10, 15, 20, 30, 50},
	})

	StaleRunsSwept = promauto.NewCounter(prometheus.CounterOpts{
		Name: "leadengine_stale_runs_swept_total",
		Help: "Total number of stuck discovery runs forced to failed by the sweep",
	})

	SweepDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "leadengine_sweep_duration_seconds",
		Help:    "Duration of a stuck-job sweep pass",
		Buckets: prometheus.DefBuckets,
	})

	EmbeddingRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "leadengine_embedding_requests_total",
		Help: "Total number of embedding requests by status",
	}, []string{"status"})

	ProgressCacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "leadengine_progress_cache_hits_total",
		Help: "Total number of progress polls served from cache",
	})

	ProgressCacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "leadengine_progress_cache_misses_total",
		Help: "Total number of progress polls that hit the database",
	})
)
