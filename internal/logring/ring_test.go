package logring

import (
	"fmt"
	"sync"
	"testing"

	"github.com/rs/zerolog"

	"inferd/pkg/types"
)

func TestRingEvictsOldestFirst(t *testing.T) {
	r := New(3)
	for i := 0; i < 5; i++ {
		r.Info(fmt.Sprintf("m%d", i), "")
	}
	got := r.Snapshot()
	if len(got) != 3 {
		t.Fatalf("len=%d", len(got))
	}
	if got[0].Message != "m2" || got[2].Message != "m4" {
		t.Fatalf("unexpected order: %q..%q", got[0].Message, got[2].Message)
	}
}

func TestRingDefaultCapacity(t *testing.T) {
	r := New(0)
	for i := 0; i < DefaultCapacity+10; i++ {
		r.Info("m", "")
	}
	if r.Len() != DefaultCapacity {
		t.Fatalf("len=%d want %d", r.Len(), DefaultCapacity)
	}
}

func TestRingConcurrentAppends(t *testing.T) {
	r := New(100)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				r.Warning("w", "d")
			}
		}()
	}
	wg.Wait()
	if r.Len() != 100 {
		t.Fatalf("len=%d", r.Len())
	}
}

func TestRingSeverities(t *testing.T) {
	r := New(10)
	r.Info("i", "")
	r.Success("s", "")
	r.Warning("w", "")
	r.Error("e", "detail")
	got := r.Snapshot()
	want := []types.LogSeverity{types.SeverityInfo, types.SeveritySuccess, types.SeverityWarning, types.SeverityError}
	for i, sev := range want {
		if got[i].Severity != sev {
			t.Fatalf("entry %d severity=%s want %s", i, got[i].Severity, sev)
		}
	}
	if got[3].Detail != "detail" {
		t.Fatalf("detail=%q", got[3].Detail)
	}
}

func TestHookMirrorsLoggerEvents(t *testing.T) {
	r := New(10)
	log := zerolog.New(nil).Hook(Hook{Ring: r})
	log.Info().Msg("hello")
	log.Warn().Msg("careful")
	log.Error().Msg("boom")
	got := r.Snapshot()
	if len(got) != 3 {
		t.Fatalf("len=%d", len(got))
	}
	if got[0].Severity != types.SeverityInfo || got[1].Severity != types.SeverityWarning || got[2].Severity != types.SeverityError {
		t.Fatalf("unexpected severities: %+v", got)
	}
}
