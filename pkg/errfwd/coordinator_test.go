package errfwd

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func newTestCoordinator(t *testing.T, opts ...Option) *Coordinator {
	t.Helper()
	opts = append([]Option{WithLogger(zerolog.Nop())}, opts...)
	c, err := NewCoordinator(opts...)
	if err != nil {
		t.Fatalf("NewCoordinator returned error: %v", err)
	}
	return c
}

func testOccurrence() Occurrence {
	return Occurrence{ID: "occ-1", Message: "message", Source: "source"}
}

func TestCoordinator_IgnoreFilters_EmptyArguments(t *testing.T) {
	c := newTestCoordinator(t)
	if got := c.IgnoreFilters(); len(got) != 0 {
		t.Errorf("IgnoreFilters() = %v, want empty", got)
	}
}

func TestCoordinator_IgnoreFilters_OneFilter(t *testing.T) {
	c := newTestCoordinator(t)
	if got := c.IgnoreFilters(newAlwaysTrueFilter); len(got) != 1 {
		t.Errorf("len(IgnoreFilters(valid)) = %d, want 1", len(got))
	}
}

func TestCoordinator_IgnoreFilters_SkipsAndLogsInvalid(t *testing.T) {
	var buf bytes.Buffer
	c := newTestCoordinator(t, WithLogger(zerolog.New(&buf)))

	got := c.IgnoreFilters(newAlwaysTrueFilter, newBadFilter)
	if len(got) != 1 {
		t.Fatalf("len(IgnoreFilters) = %d, want 1", len(got))
	}
	if _, ok := got[0].(alwaysTrueFilter); !ok {
		t.Errorf("IgnoreFilters()[0] = %T, want alwaysTrueFilter", got[0])
	}

	logged := buf.String()
	if !strings.Contains(logged, "newBadFilter") {
		t.Errorf("log should name the rejected candidate, got %q", logged)
	}
	if !strings.Contains(logged, "does not have Filter() method") {
		t.Errorf("log should explain the rejection, got %q", logged)
	}
}

func TestCoordinator_IgnoreFilters_NonConstructorIsSkipped(t *testing.T) {
	var buf bytes.Buffer
	c := newTestCoordinator(t, WithLogger(zerolog.New(&buf)))

	got := c.IgnoreFilters([]any{newAlwaysTrueFilter}, "not a filter", nil, newAlwaysFalseFilter)
	if len(got) != 1 {
		t.Fatalf("len(IgnoreFilters) = %d, want 1", len(got))
	}
	if n := strings.Count(buf.String(), "rejected filter candidate"); n != 3 {
		t.Errorf("rejections logged = %d, want 3", n)
	}
}

func TestCoordinator_IgnoreFilters_PreservesOrderAndDuplicates(t *testing.T) {
	c := newTestCoordinator(t)
	c.IgnoreFilters(newAlwaysFalseFilter, newBadFilter)
	got := c.IgnoreFilters(newAlwaysTrueFilter, newAlwaysFalseFilter)

	if len(got) != 3 {
		t.Fatalf("len(IgnoreFilters) = %d, want 3", len(got))
	}
	if _, ok := got[0].(alwaysFalseFilter); !ok {
		t.Errorf("got[0] = %T, want alwaysFalseFilter", got[0])
	}
	if _, ok := got[1].(alwaysTrueFilter); !ok {
		t.Errorf("got[1] = %T, want alwaysTrueFilter", got[1])
	}
	if _, ok := got[2].(alwaysFalseFilter); !ok {
		t.Errorf("got[2] = %T, want alwaysFalseFilter", got[2])
	}
}

func TestCoordinator_IgnoreFilters_ReturnsCopy(t *testing.T) {
	c := newTestCoordinator(t)
	got := c.IgnoreFilters(newAlwaysTrueFilter)
	got[0] = alwaysFalseFilter{}

	if !c.ShouldIgnore(context.Background(), testOccurrence()) {
		t.Error("mutating the returned list must not change the registered filters")
	}
}

func TestCoordinator_ForceForwardFilters_IndependentOfIgnore(t *testing.T) {
	c := newTestCoordinator(t)
	c.IgnoreFilters(newAlwaysTrueFilter)
	got := c.ForceForwardFilters(newAlwaysFalseFilter, newBadFilter)

	if len(got) != 1 {
		t.Fatalf("len(ForceForwardFilters) = %d, want 1", len(got))
	}
	if len(c.IgnoreFilters()) != 1 {
		t.Errorf("len(IgnoreFilters()) = %d, want 1", len(c.IgnoreFilters()))
	}
}

func TestValidFilter(t *testing.T) {
	tests := []struct {
		name      string
		candidate any
		want      bool
	}{
		{"valid constructor", newAlwaysTrueFilter, true},
		{"constructor returning any", func() any { return alwaysFalseFilter{} }, true},
		{"filter func constructor", func() FilterFunc {
			return func(ctx context.Context, occ Occurrence) bool { return true }
		}, true},
		{"instance without Filter", newBadFilter, false},
		{"constructor returning nil", func() Filter { return nil }, false},
		{"constructor with arguments", func(s string) Filter { return alwaysTrueFilter{} }, false},
		{"instance instead of constructor", alwaysTrueFilter{}, false},
		{"slice", []any{newAlwaysTrueFilter}, false},
		{"nil", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, ok := ValidFilter(tt.candidate)
			if ok != tt.want {
				t.Errorf("ValidFilter() ok = %v, want %v", ok, tt.want)
			}
			if ok && f == nil {
				t.Error("ValidFilter() returned ok with nil filter")
			}
			if !ok && f != nil {
				t.Errorf("ValidFilter() returned %T with ok=false", f)
			}
		})
	}
}

func TestCoordinator_ShouldIgnore(t *testing.T) {
	tests := []struct {
		name    string
		filters []any
		want    bool
	}{
		{"no filters", nil, false},
		{"one false filter", []any{newAlwaysFalseFilter}, false},
		{"one true filter", []any{newAlwaysTrueFilter}, true},
		{"one false and one true filter", []any{newAlwaysFalseFilter, newAlwaysTrueFilter}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestCoordinator(t)
			c.IgnoreFilters(tt.filters...)
			if got := c.ShouldIgnore(context.Background(), testOccurrence()); got != tt.want {
				t.Errorf("ShouldIgnore() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCoordinator_ShouldForceForward(t *testing.T) {
	c := newTestCoordinator(t)
	ctx := context.Background()

	if c.ShouldForceForward(ctx, testOccurrence()) {
		t.Error("ShouldForceForward() with no filters should be false")
	}

	c.ForceForwardFilters(newAlwaysFalseFilter)
	if c.ShouldForceForward(ctx, testOccurrence()) {
		t.Error("ShouldForceForward() with only false filters should be false")
	}

	c.ForceForwardFilters(newAlwaysTrueFilter)
	if !c.ShouldForceForward(ctx, testOccurrence()) {
		t.Error("ShouldForceForward() with a true filter should be true")
	}
}

func TestCoordinator_ShouldIgnore_StopsAtFirstMatch(t *testing.T) {
	first := &countingFilter{result: true}
	second := &countingFilter{result: true}
	c := newTestCoordinator(t, WithIgnoreFilters(filterCandidate(first), filterCandidate(second)))

	if !c.ShouldIgnore(context.Background(), testOccurrence()) {
		t.Fatal("ShouldIgnore() = false, want true")
	}
	if first.getCalls() != 1 {
		t.Errorf("first filter calls = %d, want 1", first.getCalls())
	}
	if second.getCalls() != 0 {
		t.Errorf("second filter calls = %d, want 0", second.getCalls())
	}
}

func TestCoordinator_SetForwarder(t *testing.T) {
	c := newTestCoordinator(t)
	if c.Forwarder() != nil {
		t.Fatal("Forwarder() should be nil before configuration")
	}

	first := &recordingSink{result: true}
	got, err := c.SetForwarder(sinkCandidate(first))
	if err != nil {
		t.Fatalf("SetForwarder returned error: %v", err)
	}
	if got != first || c.Forwarder() != first {
		t.Error("SetForwarder should install and return the new sink")
	}

	second := &recordingSink{}
	if _, err := c.SetForwarder(sinkCandidate(second)); err != nil {
		t.Fatalf("SetForwarder returned error: %v", err)
	}
	if c.Forwarder() != second {
		t.Error("a valid sink should replace the previous one")
	}
}

func TestCoordinator_SetForwarder_InvalidInstanceKeepsPrevious(t *testing.T) {
	sink := &recordingSink{}
	c := newTestCoordinator(t, WithForwarder(sinkCandidate(sink)))

	got, err := c.SetForwarder(func() any { return &badFilterWithoutFilterMethod{} })
	if err != nil {
		t.Fatalf("SetForwarder with an invalid instance returned error: %v", err)
	}
	if got != sink || c.Forwarder() != sink {
		t.Error("an invalid sink instance must leave the previous sink in place")
	}
}

func TestCoordinator_SetForwarder_NotAConstructor(t *testing.T) {
	c := newTestCoordinator(t)

	_, err := c.SetForwarder([]any{sinkCandidate(&recordingSink{})})
	if !errors.Is(err, ErrNotConstructor) {
		t.Fatalf("SetForwarder(slice) error = %v, want ErrNotConstructor", err)
	}
	if c.Forwarder() != nil {
		t.Error("Forwarder() should remain unset after a failed SetForwarder")
	}
}

func TestCoordinator_ForwardStatus_UnsetBeforeProcess(t *testing.T) {
	c := newTestCoordinator(t)
	if got := c.ForwardStatus(); got != StatusUnset {
		t.Errorf("ForwardStatus() = %v, want %v", got, StatusUnset)
	}
}

func TestCoordinator_Process(t *testing.T) {
	tests := []struct {
		name        string
		hasSink     bool
		sinkResult  bool
		ignore      []any
		force       []any
		wantStatus  Status
		wantForward bool
	}{
		{name: "no sink", hasSink: false, force: []any{newAlwaysTrueFilter}, wantStatus: StatusNotForwarded},
		{name: "no filters", hasSink: true, sinkResult: true, wantStatus: StatusForwarded, wantForward: true},
		{name: "sink declines", hasSink: true, sinkResult: false, wantStatus: StatusNotForwarded, wantForward: true},
		{name: "ignored", hasSink: true, sinkResult: true, ignore: []any{newAlwaysTrueFilter}, wantStatus: StatusNotForwarded},
		{name: "ignore filter false", hasSink: true, sinkResult: true, ignore: []any{newAlwaysFalseFilter}, wantStatus: StatusForwarded, wantForward: true},
		{
			name: "ignored and forced", hasSink: true, sinkResult: true,
			ignore: []any{newAlwaysTrueFilter}, force: []any{newAlwaysTrueFilter},
			wantStatus: StatusForwarded, wantForward: true,
		},
		{
			name: "ignored, force filter false", hasSink: true, sinkResult: true,
			ignore: []any{newAlwaysTrueFilter}, force: []any{newAlwaysFalseFilter},
			wantStatus: StatusNotForwarded,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sink := &recordingSink{result: tt.sinkResult}
			opts := []Option{WithIgnoreFilters(tt.ignore...), WithForceForwardFilters(tt.force...)}
			if tt.hasSink {
				opts = append(opts, WithForwarder(sinkCandidate(sink)))
			}
			c := newTestCoordinator(t, opts...)

			status, err := c.Process(context.Background(), testOccurrence())
			if err != nil {
				t.Fatalf("Process returned error: %v", err)
			}
			if status != tt.wantStatus {
				t.Errorf("Process() status = %v, want %v", status, tt.wantStatus)
			}
			if got := c.ForwardStatus(); got != tt.wantStatus {
				t.Errorf("ForwardStatus() = %v, want %v", got, tt.wantStatus)
			}
			if forwarded := len(sink.getForwarded()) == 1; forwarded != tt.wantForward {
				t.Errorf("sink invoked = %v, want %v", forwarded, tt.wantForward)
			}
		})
	}
}

func TestCoordinator_Process_ForcedSkipsIgnoreEvaluation(t *testing.T) {
	ignore := &countingFilter{result: true}
	c := newTestCoordinator(t,
		WithForwarder(sinkCandidate(&recordingSink{result: true})),
		WithIgnoreFilters(filterCandidate(ignore)),
		WithForceForwardFilters(newAlwaysTrueFilter),
	)

	if _, err := c.Process(context.Background(), testOccurrence()); err != nil {
		t.Fatalf("Process returned error: %v", err)
	}
	if ignore.getCalls() != 0 {
		t.Errorf("ignore filter calls = %d, want 0 when force-forwarded", ignore.getCalls())
	}
}

func TestCoordinator_Process_SinkError(t *testing.T) {
	sinkErr := errors.New("collector unavailable")
	sink := &recordingSink{result: true, forwardErr: sinkErr}
	c := newTestCoordinator(t, WithForwarder(sinkCandidate(sink)))

	status, err := c.Process(context.Background(), testOccurrence())
	if !errors.Is(err, sinkErr) {
		t.Fatalf("Process error = %v, want wrapped %v", err, sinkErr)
	}
	if status != StatusFailed || c.ForwardStatus() != StatusFailed {
		t.Errorf("status = %v / %v, want %v", status, c.ForwardStatus(), StatusFailed)
	}
	if c.ForwardStatus().Forwarded() {
		t.Error("a failed forward must not read as forwarded")
	}
}

func TestCoordinator_Process_SinkPanicPropagates(t *testing.T) {
	panicking := SinkFunc(func(ctx context.Context, occ Occurrence) (bool, error) {
		panic("sink exploded")
	})
	c := newTestCoordinator(t, WithForwarder(func() Sink { return panicking }))

	defer func() {
		if r := recover(); r == nil {
			t.Error("expected the sink panic to propagate")
		}
	}()
	_, _ = c.Process(context.Background(), testOccurrence())
}

func TestCoordinator_Process_StatusTracksMostRecent(t *testing.T) {
	sink := &recordingSink{result: true}
	onlyFirst := FilterFunc(func(ctx context.Context, occ Occurrence) bool {
		return occ.Message == "ignored"
	})
	c := newTestCoordinator(t,
		WithForwarder(sinkCandidate(sink)),
		WithIgnoreFilters(filterCandidate(onlyFirst)),
	)
	ctx := context.Background()

	c.Process(ctx, Occurrence{Message: "kept"})
	if c.ForwardStatus() != StatusForwarded {
		t.Fatalf("ForwardStatus() = %v, want forwarded", c.ForwardStatus())
	}

	c.Process(ctx, Occurrence{Message: "ignored"})
	if c.ForwardStatus() != StatusNotForwarded {
		t.Errorf("ForwardStatus() = %v, want not_forwarded", c.ForwardStatus())
	}
}

func TestCoordinator_Process_NotifiesObserver(t *testing.T) {
	var decisions []Decision
	observer := ObserverFunc(func(ctx context.Context, d Decision) {
		decisions = append(decisions, d)
	})
	c := newTestCoordinator(t,
		WithForwarder(sinkCandidate(&recordingSink{result: true})),
		WithIgnoreFilters(newAlwaysTrueFilter),
		WithForceForwardFilters(newAlwaysTrueFilter),
		WithObserver(observer),
	)

	c.Process(context.Background(), testOccurrence())

	if len(decisions) != 1 {
		t.Fatalf("observer decisions = %d, want 1", len(decisions))
	}
	d := decisions[0]
	if !d.HasSink || !d.Forced || d.Ignored {
		t.Errorf("decision = %+v, want HasSink, Forced and not Ignored", d)
	}
	if d.Status != StatusForwarded {
		t.Errorf("decision status = %v, want forwarded", d.Status)
	}
	if d.Occurrence.ID != "occ-1" {
		t.Errorf("decision occurrence ID = %q, want occ-1", d.Occurrence.ID)
	}
}

func TestCoordinator_Process_ScrubsBeforeSink(t *testing.T) {
	sink := &recordingSink{result: true}
	var seenByFilter string
	spy := FilterFunc(func(ctx context.Context, occ Occurrence) bool {
		seenByFilter = occ.Message
		return false
	})
	c := newTestCoordinator(t,
		WithForwarder(sinkCandidate(sink)),
		WithIgnoreFilters(filterCandidate(spy)),
		WithDefaultScrubbing(),
	)

	raw := "login failed for admin@example.com password=hunter2"
	c.Process(context.Background(), Occurrence{
		Message: raw,
		Source:  "https://app.example.com/main.js?session=abc",
		Err:     errors.New(raw),
	})

	if seenByFilter != raw {
		t.Errorf("filters should see the raw message, got %q", seenByFilter)
	}

	forwarded := sink.getForwarded()
	if len(forwarded) != 1 {
		t.Fatalf("forwarded = %d, want 1", len(forwarded))
	}
	got := forwarded[0]
	if strings.Contains(got.Message, "admin@example.com") || strings.Contains(got.Message, "hunter2") {
		t.Errorf("message should be scrubbed, got %q", got.Message)
	}
	if got.Source != "https://app.example.com/main.js" {
		t.Errorf("source = %q, want query stripped", got.Source)
	}
	if strings.Contains(got.Err.Error(), "hunter2") {
		t.Errorf("error detail should be scrubbed, got %q", got.Err.Error())
	}
}

func TestCoordinator_Process_PartialScrubberConfigKeepsContent(t *testing.T) {
	sink := &recordingSink{result: true}
	c := newTestCoordinator(t,
		WithForwarder(sinkCandidate(sink)),
		WithScrubber(ScrubberConfig{ScrubMessages: true, StripSourceQuery: true}),
	)

	if _, err := c.Process(context.Background(), Occurrence{
		Message:  "TypeError: x is undefined",
		Source:   "https://app.example.com/x.js?v=1",
		Metadata: map[string]string{"page": "/checkout"},
	}); err != nil {
		t.Fatalf("Process returned error: %v", err)
	}

	forwarded := sink.getForwarded()
	if len(forwarded) != 1 {
		t.Fatalf("forwarded = %d, want 1", len(forwarded))
	}
	got := forwarded[0]
	if got.Message != "TypeError: x is undefined" {
		t.Errorf("message = %q, want unchanged", got.Message)
	}
	if got.Source != "https://app.example.com/x.js" {
		t.Errorf("source = %q, want query stripped", got.Source)
	}
	if got.Metadata["page"] != "/checkout" {
		t.Errorf("metadata page = %q, want unchanged", got.Metadata["page"])
	}
}

func TestCoordinator_FlushAndClose(t *testing.T) {
	c := newTestCoordinator(t)
	if err := c.Flush(context.Background()); err != nil {
		t.Errorf("Flush without sink returned error: %v", err)
	}
	if err := c.Close(); err != nil {
		t.Errorf("Close without sink returned error: %v", err)
	}

	sink := &recordingSink{}
	c.SetForwarder(sinkCandidate(sink))
	c.Flush(context.Background())
	c.Close()
	if sink.flushed != 1 || sink.closed != 1 {
		t.Errorf("flushed=%d closed=%d, want 1 and 1", sink.flushed, sink.closed)
	}
}

func TestStatus_String(t *testing.T) {
	tests := []struct {
		status Status
		want   string
	}{
		{StatusUnset, "unset"},
		{StatusNotForwarded, "not_forwarded"},
		{StatusForwarded, "forwarded"},
		{StatusFailed, "failed"},
		{Status(42), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.status.String(); got != tt.want {
			t.Errorf("Status(%d).String() = %q, want %q", int(tt.status), got, tt.want)
		}
	}
}
