package router

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/raqdev/docq-go/internal/rag"
)

func Test_Metrics_DecisionCounters(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	ret := &fakeRetriever{chunks: []rag.Document{chunk("a", 0.9)}}
	r, err := New(ret, nil, Config{Threshold: 0.7}, WithMetrics(reg))
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}

	if _, err := r.Route(context.Background(), "q"); err != nil {
		t.Fatalf("Route() failed: %v", err)
	}

	got := testutil.ToFloat64(r.metrics.decisionsTotal.WithLabelValues("local_sufficient"))
	if got != 1 {
		t.Errorf("decisions_total{outcome=local_sufficient} = %v, want 1", got)
	}
}

func Test_Metrics_IndexErrorCounted(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	ret := &fakeRetriever{err: errors.New("down")}
	r, err := New(ret, nil, Config{Threshold: 0.7}, WithMetrics(reg))
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}

	if _, err := r.Route(context.Background(), "q"); err == nil {
		t.Fatal("Route() succeeded, want index error")
	}

	got := testutil.ToFloat64(r.metrics.decisionsTotal.WithLabelValues("index_error"))
	if got != 1 {
		t.Errorf("decisions_total{outcome=index_error} = %v, want 1", got)
	}
}

func Test_Metrics_NilSafeWithoutRegistry(t *testing.T) {
	t.Parallel()

	ret := &fakeRetriever{chunks: []rag.Document{chunk("a", 0.9)}}
	r, err := New(ret, nil, Config{Threshold: 0.7})
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}

	// Must not panic when no metrics are attached.
	if _, err := r.Route(context.Background(), "q"); err != nil {
		t.Fatalf("Route() failed: %v", err)
	}
}
