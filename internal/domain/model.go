package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Core domain models. Tender and Bid are immutable snapshots of the
// procurement store; detectors read them and never write them back.

type Tender struct {
	ID              string
	ProcuringEntity string
	EstimatedValue  decimal.Decimal
	ActualValue     decimal.Decimal
	PublicationDate *time.Time
	ClosingDate     *time.Time
	SigningDate     *time.Time
	Status          string
	Winner          string
	ProcedureType   string
	NumBidders      int
	AmendmentCount  int
	LastAmendmentAt *time.Time
	PriceOnlyAward  bool
}

type Bid struct {
	TenderID      string
	Company       string
	Amount        decimal.Decimal
	IsWinner      bool
	Rank          int
	Disqualified  bool
	DisqualReason string
}

type FlagType string

const (
	FlagSingleBidder        FlagType = "single_bidder"
	FlagRepeatWinner        FlagType = "repeat_winner"
	FlagPriceAnomaly        FlagType = "price_anomaly"
	FlagBidClustering       FlagType = "bid_clustering"
	FlagShortDeadline       FlagType = "short_deadline"
	FlagProcedureType       FlagType = "procedure_type"
	FlagIdenticalBids       FlagType = "identical_bids"
	FlagProfessionalLoser   FlagType = "professional_loser"
	FlagContractSplitting   FlagType = "contract_splitting"
	FlagShortDecision       FlagType = "short_decision"
	FlagStrategicDisqual    FlagType = "strategic_disqualification"
	FlagContractValueGrowth FlagType = "contract_value_growth"
	FlagBidRotation         FlagType = "bid_rotation"
	FlagThresholdManip      FlagType = "threshold_manipulation"
	FlagLateAmendment       FlagType = "late_amendment"
)

// FlagTypes lists every detector output type in a stable order.
var FlagTypes = []FlagType{
	FlagSingleBidder, FlagRepeatWinner, FlagPriceAnomaly, FlagBidClustering,
	FlagShortDeadline, FlagProcedureType, FlagIdenticalBids, FlagProfessionalLoser,
	FlagContractSplitting, FlagShortDecision, FlagStrategicDisqual,
	FlagContractValueGrowth, FlagBidRotation, FlagThresholdManip, FlagLateAmendment,
}

type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Flag is one detector's finding for one tender.
type Flag struct {
	TenderID    string
	Type        FlagType
	Severity    Severity
	Score       float64
	Evidence    map[string]any
	Description string
}

type RiskLevel string

const (
	RiskMinimal  RiskLevel = "minimal"
	RiskLow      RiskLevel = "low"
	RiskMedium   RiskLevel = "medium"
	RiskHigh     RiskLevel = "high"
	RiskCritical RiskLevel = "critical"
)

// RiskScore is the aggregate per-tender result. One row per tender with at
// least one flag; recomputed from the current flag set on every run.
type RiskScore struct {
	TenderID   string
	CRI        int
	Level      RiskLevel
	FlagCount  int
	Flags      []Flag
	ComputedAt time.Time
}

// FlagReview is operator review state for one (tender, flag type) pair. It
// lives in its own table so full-replace runs never clobber it.
type FlagReview struct {
	TenderID      string
	Type          FlagType
	FalsePositive bool
	Reviewer      string
	Note          string
	ReviewedAt    time.Time
}

type RunState string

const (
	RunIdle              RunState = "idle"
	RunRunningDetectors  RunState = "running_detectors"
	RunPersistingFlags   RunState = "persisting_flags"
	RunRecomputingScores RunState = "recomputing_scores"
	RunDone              RunState = "done"
	RunFailed            RunState = "failed"
)

// Run records one analyzer execution.
type Run struct {
	ID         string
	State      RunState
	StartedAt  time.Time
	FinishedAt *time.Time
	FlagCount  int
	Error      string
}

// RunReport is what a finished analyzer run hands back to callers:
// per-detector flag counts so operators can see which detectors degraded.
type RunReport struct {
	RunID           string
	DetectorCounts  map[string]int
	FailedDetectors []string
	FlagCount       int
	TendersScored   int
	Duration        time.Duration
}

// Stats aggregates the current flag and score tables.
type Stats struct {
	TotalFlags   int
	TotalTenders int
	BySeverity   map[Severity]int
	ByType       map[FlagType]int
	ByRiskLevel  map[RiskLevel]int
}

