package ota

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"
)

// event is one call observed by the fakes, in order.
type event struct {
	kind string
	text string
}

// journal records reporter and fetcher calls in a single ordered list.
type journal struct {
	mu     sync.Mutex
	events []event
}

func (j *journal) add(kind, text string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.events = append(j.events, event{kind, text})
}

func (j *journal) kinds() []string {
	j.mu.Lock()
	defer j.mu.Unlock()
	out := make([]string, len(j.events))
	for i, e := range j.events {
		out[i] = e.kind
	}
	return out
}

type fakeReporter struct{ j *journal }

func (r fakeReporter) Info(payload any) {
	m, _ := payload.(map[string]string)
	r.j.add("info", m["upgrade"])
}

func (r fakeReporter) OTA(text string) { r.j.add("ota", text) }

type fakeFetcher struct {
	j      *journal
	result Result
	target Target
	calls  int
}

func (f *fakeFetcher) FetchAndFlash(_ context.Context, target Target) Result {
	f.calls++
	f.target = target
	f.j.add("fetch", target.Server)
	return f.result
}

type fakeRecorder struct {
	outcomes []string
	ids      []string
}

func (r *fakeRecorder) RecordOTA(attemptID, outcome string, _ time.Duration) {
	r.ids = append(r.ids, attemptID)
	r.outcomes = append(r.outcomes, outcome)
}

func newTestOrchestrator(result Result) (*Orchestrator, *fakeFetcher, *journal) {
	j := &journal{}
	fetcher := &fakeFetcher{j: j, result: result}
	return NewOrchestrator(fetcher, fakeReporter{j: j}), fetcher, j
}

func TestAttemptUpgrade_MissingFieldNeverFetches(t *testing.T) {
	tests := []struct {
		name string
		req  Request
	}{
		{"no server", Request{Port: "3000", URI: "/fw.bin"}},
		{"no port", Request{Server: "10.0.0.5", URI: "/fw.bin"}},
		{"no uri", Request{Server: "10.0.0.5", Port: "3000"}},
		{"nothing", Request{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o, fetcher, j := newTestOrchestrator(Result{Outcome: Applied})

			result := o.AttemptUpgrade(context.Background(), tt.req)

			if fetcher.calls != 0 {
				t.Errorf("fetcher called %d times, want 0", fetcher.calls)
			}
			if !errors.Is(result.Err, ErrIncompleteRequest) {
				t.Errorf("result.Err = %v, want ErrIncompleteRequest", result.Err)
			}
			if len(j.events) != 1 || j.events[0] != (event{"ota", "OTA Information Error"}) {
				t.Errorf("reports = %+v, want one OTA Information Error", j.events)
			}
		})
	}
}

// Upgrade announced, fetch fails, failure names the target.
func TestAttemptUpgrade_FailureReportsTarget(t *testing.T) {
	o, fetcher, j := newTestOrchestrator(Result{Outcome: Failed, Err: errors.New("connection refused")})

	o.AttemptUpgrade(context.Background(), Request{Server: "10.0.0.5", Port: "3000", URI: "/fw.bin"})

	if got := strings.Join(j.kinds(), ","); got != "info,fetch,ota" {
		t.Fatalf("call order = %s, want info,fetch,ota", got)
	}
	if j.events[0].text != "Device will be upgraded." {
		t.Errorf("announcement = %q", j.events[0].text)
	}
	if !strings.Contains(j.events[2].text, "10.0.0.5:3000/fw.bin") {
		t.Errorf("failure report %q does not name the target", j.events[2].text)
	}
	if fetcher.target != (Target{Server: "10.0.0.5", Port: 3000, URI: "/fw.bin"}) {
		t.Errorf("target = %+v", fetcher.target)
	}
}

func TestAttemptUpgrade_OutcomeReports(t *testing.T) {
	tests := []struct {
		name      string
		outcome   Outcome
		wantKinds string
		wantLast  string
	}{
		{"no update", NoUpdateAvailable, "info,fetch,ota", "[update] No update available."},
		{"applied sends nothing after fetch", Applied, "info,fetch", "10.0.0.5"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o, _, j := newTestOrchestrator(Result{Outcome: tt.outcome})

			o.AttemptUpgrade(context.Background(), Request{Server: "10.0.0.5", Port: "3000", URI: "/fw.bin"})

			if got := strings.Join(j.kinds(), ","); got != tt.wantKinds {
				t.Errorf("calls = %s, want %s", got, tt.wantKinds)
			}
			if last := j.events[len(j.events)-1].text; last != tt.wantLast {
				t.Errorf("last = %q, want %q", last, tt.wantLast)
			}
		})
	}
}

func TestAttemptUpgrade_InvalidPortReachesFetcherAsZero(t *testing.T) {
	o, fetcher, _ := newTestOrchestrator(Result{Outcome: Failed})

	o.AttemptUpgrade(context.Background(), Request{Server: "h", Port: "eighty", URI: "/fw"})

	if fetcher.calls != 1 || fetcher.target.Port != 0 {
		t.Errorf("calls=%d port=%d, want 1 call with port 0", fetcher.calls, fetcher.target.Port)
	}
}

func TestAttemptUpgrade_RecordsEvents(t *testing.T) {
	o, _, _ := newTestOrchestrator(Result{Outcome: NoUpdateAvailable})
	rec := &fakeRecorder{}
	o.SetRecorder(rec)

	o.AttemptUpgrade(context.Background(), Request{Server: "h", Port: "1", URI: "/fw"})
	o.AttemptUpgrade(context.Background(), Request{})

	if strings.Join(rec.outcomes, ",") != "no_update,failed" {
		t.Errorf("outcomes = %v", rec.outcomes)
	}
	if len(rec.ids) != 2 || rec.ids[0] == rec.ids[1] || rec.ids[0] == "" {
		t.Errorf("attempt ids = %v, want two distinct ids", rec.ids)
	}
}

func TestParseRequest(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want Request
	}{
		{"strings", `{"server":"10.0.0.5","port":"3000","uri":"/fw.bin"}`, Request{"10.0.0.5", "3000", "/fw.bin"}},
		{"numeric port", `{"server":"h","port":8080,"uri":"/a"}`, Request{"h", "8080", "/a"}},
		{"missing uri", `{"server":"h","port":"1"}`, Request{"h", "1", ""}},
		{"wrong type", `{"server":true,"port":[1],"uri":{}}`, Request{}},
		{"not an object", `"upgrade please"`, Request{}},
		{"empty object", `{}`, Request{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ParseRequest([]byte(tt.raw)); got != tt.want {
				t.Errorf("ParseRequest() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestOutcomeString(t *testing.T) {
	for outcome, want := range map[Outcome]string{Failed: "failed", NoUpdateAvailable: "no_update", Applied: "applied"} {
		if outcome.String() != want {
			t.Errorf("%d.String() = %q, want %q", outcome, outcome.String(), want)
		}
	}
}
