package bar

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"gitlab.com/tinyland/lab/pulse-bar/pkg/frame"
	"gitlab.com/tinyland/lab/pulse-bar/pkg/widget"
)

var quietLog = slog.New(slog.NewTextHandler(io.Discard, nil))

// recordSink keeps every snapshot it receives.
type recordSink struct {
	mu      sync.Mutex
	updates [][]frame.Batch
	notify  chan struct{}
}

func newRecordSink() *recordSink {
	return &recordSink{notify: make(chan struct{}, 100)}
}

func (r *recordSink) Update(b []frame.Batch) error {
	r.mu.Lock()
	r.updates = append(r.updates, b)
	r.mu.Unlock()
	select {
	case r.notify <- struct{}{}:
	default:
	}
	return nil
}

func (r *recordSink) last() []frame.Batch {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.updates) == 0 {
		return nil
	}
	return r.updates[len(r.updates)-1]
}

func (r *recordSink) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.updates)
}

func waitFor(t *testing.T, cond func() bool, what string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(time.Millisecond)
	}
}

type onceWidget struct{ text string }

func (o onceWidget) Name() string { return "once" }
func (o onceWidget) IntoStream() (widget.Stream, error) {
	return widget.Once(frame.Single(frame.Attributes{}, o.text, false)), nil
}

func runBar(t *testing.T, b *Bar) (cancel func() error) {
	t.Helper()
	ctx, stop := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- b.Run(ctx) }()
	return func() error {
		stop()
		select {
		case err := <-errc:
			return err
		case <-time.After(2 * time.Second):
			t.Fatal("Run did not return after cancel")
			return nil
		}
	}
}

// --- Registry ---

func TestRegistryOrderAndStatus(t *testing.T) {
	r := NewRegistry()
	for _, n := range []string{"1:clock", "0:mpd", "2:file"} {
		if err := r.Register(n); err != nil {
			t.Fatal(err)
		}
	}
	if err := r.Register("0:mpd"); err == nil {
		t.Error("duplicate Register should fail")
	}

	r.recordUpdate("1:clock", time.Unix(100, 0))
	r.recordError("2:file", errors.New("gone"))

	all := r.AllStatus()
	if len(all) != 3 || all[0].Name != "1:clock" || all[2].Name != "2:file" {
		t.Fatalf("AllStatus order = %+v", all)
	}
	if s, _ := r.Status("1:clock"); s.Updates != 1 || !s.Healthy {
		t.Errorf("clock status = %+v", s)
	}
	if s, _ := r.Status("2:file"); s.Healthy || s.LastError != "gone" || s.Errors != 1 {
		t.Errorf("file status = %+v", s)
	}
	if got := r.Unhealthy(); len(got) != 1 || got[0] != "2:file" {
		t.Errorf("Unhealthy = %v", got)
	}
	if _, ok := r.Status("missing"); ok {
		t.Error("Status for unknown slot should be false")
	}
}

// --- Bar ---

func TestFailOnceThenSucceedKeepsRunning(t *testing.T) {
	w := widget.NewMockWidget("flaky", widget.WithSteps(widget.FailStep()), widget.WithText("ok"))
	sink := newRecordSink()
	b := New(sink, WithLogger(quietLog))
	b.Add(w)
	stop := runBar(t, b)

	waitFor(t, func() bool { return sink.count() == 1 }, "first update")
	if got := sink.last()[0].Text(); got != "ok" {
		t.Errorf("rendered %q, want ok", got)
	}
	st, _ := b.Registry().Status("0:flaky")
	if st.Errors != 1 || st.Updates != 1 || !st.Healthy {
		t.Errorf("status = %+v, want one error then one update", st)
	}

	if err := stop(); err != nil {
		t.Errorf("Run = %v", err)
	}
	if !w.Closed() {
		t.Error("stream not closed after Run returned")
	}
}

func TestBrokenWidgetIsIsolated(t *testing.T) {
	broken := widget.NewMockWidget("broken", widget.WithBuildError(errors.New("no mpd")))
	good := widget.NewMockWidget("good", widget.WithText("a", "b"))
	sink := newRecordSink()
	b := New(sink, WithLogger(quietLog))
	b.Add(broken)
	b.Add(good)
	stop := runBar(t, b)
	defer stop()

	waitFor(t, func() bool { return sink.count() == 2 }, "two updates")
	last := sink.last()
	if len(last) != 2 || last[0] != nil || last[1].Text() != "b" {
		t.Errorf("snapshot = %+v", last)
	}
	if st, _ := b.Registry().Status("0:broken"); st.Healthy || st.LastError == "" {
		t.Errorf("broken status = %+v", st)
	}
}

func TestNoWidgetStarts(t *testing.T) {
	b := New(newRecordSink(), WithLogger(quietLog))
	b.Add(widget.NewMockWidget("x", widget.WithBuildError(errors.New("boom"))))
	if err := b.Run(context.Background()); err == nil {
		t.Error("Run should fail when no widget starts")
	}
}

func TestFiniteWidgetKeepsLastBatch(t *testing.T) {
	sink := newRecordSink()
	b := New(sink, WithLogger(quietLog))
	b.Add(onceWidget{text: "|"})
	b.Add(widget.NewMockWidget("later", widget.WithText("x")))
	stop := runBar(t, b)
	defer stop()

	waitFor(t, func() bool {
		st, _ := b.Registry().Status("0:once")
		return st.Finished && sink.count() == 2
	}, "finished separator")
	snap := b.Snapshot()
	if snap[0].Text() != "|" || snap[1].Text() != "x" {
		t.Errorf("snapshot = %+v", snap)
	}
}

func TestHealthFileWritten(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run", "health.json")
	b := New(newRecordSink(), WithLogger(quietLog), WithHealthFile(path, 10*time.Millisecond))
	b.Add(widget.NewMockWidget("m", widget.WithText("hi")))
	stop := runBar(t, b)

	waitFor(t, func() bool {
		h, err := ReadHealthFile(path)
		return err == nil && len(h.Slots) == 1 && h.Slots[0].Updates == 1
	}, "health file with one update")
	if err := stop(); err != nil {
		t.Fatal(err)
	}

	h, err := ReadHealthFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !h.Healthy() || h.PID == 0 || h.Slots[0].Name != "0:m" {
		t.Errorf("health = %+v", h)
	}
}

func TestReadHealthFileErrors(t *testing.T) {
	if _, err := ReadHealthFile(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Error("expected error for a missing file")
	}
}

// --- Line composition ---

func plainRenderer() *lipgloss.Renderer {
	r := lipgloss.NewRenderer(io.Discard)
	r.SetColorProfile(termenv.Ascii)
	return r
}

func TestComposeStretchFillsWidth(t *testing.T) {
	batches := []frame.Batch{
		frame.Single(frame.Attributes{}, "left", false),
		{{Stretch: true}},
		frame.Single(frame.Attributes{}, "right", false),
	}
	got := ComposeLine(plainRenderer(), batches, 20, true)
	want := "left" + strings.Repeat(" ", 11) + "right"
	if got != want {
		t.Errorf("compose = %q, want %q", got, want)
	}
}

func TestComposeSplitsSpareBetweenStretchers(t *testing.T) {
	batches := []frame.Batch{{
		{Text: "a"}, {Stretch: true}, {Text: "b"}, {Stretch: true}, {Text: "c"},
	}}
	got := ComposeLine(plainRenderer(), batches, 8, true)
	// The first stretcher takes the remainder.
	if got != "a   b  c" {
		t.Errorf("compose = %q, want %q", got, "a   b  c")
	}
}

func TestComposeOverflowLeavesStretchEmpty(t *testing.T) {
	batches := []frame.Batch{{{Text: "0123456789"}, {Stretch: true}}}
	if got := ComposeLine(plainRenderer(), batches, 5, true); got != "0123456789" {
		t.Errorf("compose = %q", got)
	}
}

func TestComposePadding(t *testing.T) {
	attr := frame.Attributes{Padding: frame.NewPadding(1, 2, 0, 0)}
	got := ComposeLine(plainRenderer(), []frame.Batch{frame.Single(attr, "x", false)}, 0, true)
	if got != " x  " {
		t.Errorf("compose = %q, want %q", got, " x  ")
	}
}

func TestComposeStripsUntrustedEscapes(t *testing.T) {
	r := lipgloss.NewRenderer(io.Discard)
	r.SetColorProfile(termenv.TrueColor)
	red := "\x1b[31mred\x1b[0m"

	untrusted := ComposeLine(r, []frame.Batch{frame.Single(frame.Attributes{}, red, false)}, 0, false)
	if strings.Contains(untrusted, "\x1b[31m") {
		t.Errorf("untrusted escapes kept: %q", untrusted)
	}
	trusted := ComposeLine(r, []frame.Batch{frame.Single(frame.Attributes{}, red, true)}, 0, false)
	if !strings.Contains(trusted, "\x1b[31m") {
		t.Errorf("markup escapes dropped: %q", trusted)
	}
	plain := ComposeLine(r, []frame.Batch{frame.Single(frame.Attributes{}, red, true)}, 0, true)
	if plain != "red" {
		t.Errorf("plain compose = %q, want %q", plain, "red")
	}
}

func TestComposeFlattensNewlines(t *testing.T) {
	got := ComposeLine(plainRenderer(), []frame.Batch{frame.Single(frame.Attributes{}, "a\nb", true)}, 0, true)
	if got != "a b" {
		t.Errorf("compose = %q", got)
	}
}

func TestLineSinkWritesOneLinePerUpdate(t *testing.T) {
	var buf bytes.Buffer
	s := NewLineSink(&buf, WithOutput(OutputPlain), WithWidth(10))
	if !s.Plain() || s.Width() != 10 {
		t.Fatalf("Plain = %v, Width = %d", s.Plain(), s.Width())
	}
	_ = s.Update([]frame.Batch{frame.Single(frame.Attributes{Foreground: "#ff0000"}, "one", false)})
	_ = s.Update([]frame.Batch{frame.Single(frame.Attributes{}, "two", false), nil})

	if got := buf.String(); got != "one\ntwo\n" {
		t.Errorf("output = %q", got)
	}
}

func TestLineSinkANSIForcedOnPipe(t *testing.T) {
	var buf bytes.Buffer
	s := NewLineSink(&buf, WithOutput(OutputANSI))
	if s.Plain() {
		t.Fatal("ANSI output reported plain")
	}
	_ = s.Update([]frame.Batch{frame.Single(frame.Attributes{Foreground: "#ff0000"}, "hot", false)})
	if !strings.Contains(buf.String(), "\x1b[") {
		t.Errorf("expected escapes in %q", buf.String())
	}
}

func TestParseOutput(t *testing.T) {
	tests := []struct {
		in      string
		want    Output
		wantErr bool
	}{
		{"", OutputAuto, false},
		{"ANSI", OutputANSI, false},
		{"plain", OutputPlain, false},
		{"html", 0, true},
	}
	for _, tt := range tests {
		got, err := ParseOutput(tt.in)
		if (err != nil) != tt.wantErr || (err == nil && got != tt.want) {
			t.Errorf("ParseOutput(%q) = %v, %v", tt.in, got, err)
		}
	}
}
