package domain

import (
	"testing"
	"time"
)

func TestComputeMetricsRoundsToNearest(t *testing.T) {
	readiness, index := ComputeMetrics(3, 1, 3, 2)
	if readiness != 33 {
		t.Fatalf("expected readiness 33, got %d", readiness)
	}
	if index != 67 {
		t.Fatalf("expected index 67, got %d", index)
	}
}

func TestComputeMetricsZeroDenominators(t *testing.T) {
	readiness, index := ComputeMetrics(0, 0, 0, 0)
	if readiness != 0 {
		t.Fatalf("expected readiness 0 with no categories, got %d", readiness)
	}
	if index != 0 {
		t.Fatalf("expected index 0 with no entries, got %d", index)
	}
}

func TestComputeMetricsSingleCoveredCategory(t *testing.T) {
	// Two categories, one completed entry in one of them.
	readiness, index := ComputeMetrics(2, 1, 1, 1)
	if readiness != 50 {
		t.Fatalf("expected readiness 50, got %d", readiness)
	}
	if index != 100 {
		t.Fatalf("expected index 100, got %d", index)
	}
}

func TestComputeMetricsIsIdempotent(t *testing.T) {
	r1, i1 := ComputeMetrics(10, 4, 7, 5)
	r2, i2 := ComputeMetrics(10, 4, 7, 5)
	if r1 != r2 || i1 != i2 {
		t.Fatalf("expected identical results, got (%d,%d) then (%d,%d)", r1, i1, r2, i2)
	}
}

func TestAppendTransitionKeepsHistory(t *testing.T) {
	loan := &LoanApplication{Status: LoanDraft}
	now := time.Now().UTC()

	loan.AppendTransition(LoanSubmitted, Actor{ID: "user-1"}, "", now)
	loan.AppendTransition(LoanUnderReview, Actor{ID: "officer-1", Name: "Olive Reed"}, "moved to review", now.Add(time.Hour))

	if loan.Status != LoanUnderReview {
		t.Fatalf("expected status under_review, got %s", loan.Status)
	}
	history, _ := loan.Metadata[MetaProcessingHistory].([]any)
	if len(history) != 2 {
		t.Fatalf("expected 2 history records, got %d", len(history))
	}
	first, ok := history[0].(StatusTransition)
	if !ok {
		t.Fatalf("unexpected history record type %T", history[0])
	}
	if first.From != LoanDraft || first.To != LoanSubmitted {
		t.Fatalf("unexpected first transition %+v", first)
	}
	second, _ := history[1].(StatusTransition)
	if second.ActorName != "Olive Reed" || second.Notes != "moved to review" {
		t.Fatalf("unexpected second transition %+v", second)
	}
}
