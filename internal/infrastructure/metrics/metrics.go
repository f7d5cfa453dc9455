package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// Posting metrics
	DepositsPosted       prometheus.Counter
	WithdrawalsRequested prometheus.Counter
	TransfersRequested   prometheus.Counter
	PostingDuration      prometheus.Histogram
	PostingAmount        prometheus.Histogram
	PostingErrors        *prometheus.CounterVec

	// Approval metrics
	TransactionsApproved prometheus.Counter
	TransactionsRejected prometheus.Counter
	TransactionsVoided   prometheus.Counter
	ApprovalDuration     prometheus.Histogram

	// Earned fee metrics
	EarnedFeesRecognized prometheus.Counter

	// Reconciliation metrics
	ReconciliationsRecorded      prometheus.Counter
	ReconciliationStructuralGaps prometheus.Counter

	// API metrics
	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec

	// Database metrics
	DBErrors *prometheus.CounterVec

	// Audit metrics
	AuditLogsCreated *prometheus.CounterVec
}

// New creates and registers all Prometheus metrics
func New() *Metrics {
	return &Metrics{
		DepositsPosted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "trustledger_deposits_posted_total",
			Help: "Total number of deposits posted",
		}),
		WithdrawalsRequested: promauto.NewCounter(prometheus.CounterOpts{
			Name: "trustledger_withdrawals_requested_total",
			Help: "Total number of withdrawal requests recorded",
		}),
		TransfersRequested: promauto.NewCounter(prometheus.CounterOpts{
			Name: "trustledger_transfers_requested_total",
			Help: "Total number of transfer requests recorded",
		}),
		PostingDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "trustledger_posting_duration_seconds",
			Help:    "Duration of posting operations",
			Buckets: prometheus.DefBuckets,
		}),
		PostingAmount: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "trustledger_posting_amount",
			Help:    "Posted transaction amounts",
			Buckets: []float64{10, 100, 1000, 10000, 100000, 1000000},
		}),
		PostingErrors: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "trustledger_posting_errors_total",
				Help: "Total number of posting errors by type",
			},
			[]string{"error"},
		),
		TransactionsApproved: promauto.NewCounter(prometheus.CounterOpts{
			Name: "trustledger_transactions_approved_total",
			Help: "Total number of transactions approved",
		}),
		TransactionsRejected: promauto.NewCounter(prometheus.CounterOpts{
			Name: "trustledger_transactions_rejected_total",
			Help: "Total number of transactions rejected",
		}),
		TransactionsVoided: promauto.NewCounter(prometheus.CounterOpts{
			Name: "trustledger_transactions_voided_total",
			Help: "Total number of transactions voided",
		}),
		ApprovalDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "trustledger_approval_duration_seconds",
			Help:    "Duration of approval operations",
			Buckets: prometheus.DefBuckets,
		}),
		EarnedFeesRecognized: promauto.NewCounter(prometheus.CounterOpts{
			Name: "trustledger_earned_fees_recognized_total",
			Help: "Total number of earned fees recognized",
		}),
		ReconciliationsRecorded: promauto.NewCounter(prometheus.CounterOpts{
			Name: "trustledger_reconciliations_recorded_total",
			Help: "Total number of reconciliation records persisted",
		}),
		ReconciliationStructuralGaps: promauto.NewCounter(prometheus.CounterOpts{
			Name: "trustledger_reconciliation_structural_gaps_total",
			Help: "Reconciliations where the trust ledger disagreed with the client ledger sum",
		}),
		HTTPRequests: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "trustledger_http_requests_total",
				Help: "Total HTTP requests by method, path and status",
			},
			[]string{"method", "path", "status"},
		),
		HTTPDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "trustledger_http_request_duration_seconds",
				Help:    "HTTP request duration",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		DBErrors: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "trustledger_db_errors_total",
				Help: "Total database errors by operation",
			},
			[]string{"operation"},
		),
		AuditLogsCreated: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "trustledger_audit_logs_created_total",
				Help: "Total audit log entries by action",
			},
			[]string{"action"},
		),
	}
}
