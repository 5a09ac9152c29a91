package widget

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"gitlab.com/tinyland/lab/pulse-bar/pkg/frame"
)

// MockWidget implements Widget for testing. Each call to Next consumes the
// next scripted step; when the script runs out the stream blocks until its
// context is cancelled or it is closed.
type MockWidget struct {
	name     string
	steps    []MockStep
	buildErr error

	mu       sync.Mutex
	streams  []*MockStream
	nextCall atomic.Int64
}

// MockStep is one scripted result of Next.
type MockStep struct {
	Batch frame.Batch
	Err   error
}

// MockWidgetOption configures a MockWidget.
type MockWidgetOption func(*MockWidget)

// WithSteps appends scripted results.
func WithSteps(steps ...MockStep) MockWidgetOption {
	return func(m *MockWidget) { m.steps = append(m.steps, steps...) }
}

// WithText appends one successful step with a single plain frame per text.
func WithText(texts ...string) MockWidgetOption {
	return func(m *MockWidget) {
		for _, t := range texts {
			m.steps = append(m.steps, MockStep{Batch: frame.Single(frame.Attributes{}, t, false)})
		}
	}
}

// WithBuildError makes IntoStream fail.
func WithBuildError(err error) MockWidgetOption {
	return func(m *MockWidget) { m.buildErr = err }
}

// NewMockWidget creates a mock widget with the given name and options.
func NewMockWidget(name string, opts ...MockWidgetOption) *MockWidget {
	m := &MockWidget{name: name}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Name returns the widget name.
func (m *MockWidget) Name() string { return m.name }

// IntoStream returns a new MockStream replaying the script, or the
// configured build error.
func (m *MockWidget) IntoStream() (Stream, error) {
	if m.buildErr != nil {
		return nil, m.buildErr
	}
	s := &MockStream{steps: m.steps, closed: make(chan struct{}), calls: &m.nextCall}
	m.mu.Lock()
	m.streams = append(m.streams, s)
	m.mu.Unlock()
	return s, nil
}

// NextCount returns how many times Next was called across all streams.
func (m *MockWidget) NextCount() int64 { return m.nextCall.Load() }

// Closed reports whether every stream built so far has been closed.
func (m *MockWidget) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.streams {
		select {
		case <-s.closed:
		default:
			return false
		}
	}
	return len(m.streams) > 0
}

// MockStream is the stream built by MockWidget.
type MockStream struct {
	mu    sync.Mutex
	steps []MockStep
	pos   int
	calls *atomic.Int64

	closeOnce sync.Once
	closed    chan struct{}
}

// Next returns the next scripted step.
func (s *MockStream) Next(ctx context.Context) (frame.Batch, error) {
	s.calls.Add(1)
	s.mu.Lock()
	if s.pos < len(s.steps) {
		st := s.steps[s.pos]
		s.pos++
		s.mu.Unlock()
		return st.Batch.Clone(), st.Err
	}
	s.mu.Unlock()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-s.closed:
		return nil, ErrDone
	}
}

// Close marks the stream closed and releases a blocked Next.
func (s *MockStream) Close() error {
	s.closeOnce.Do(func() { close(s.closed) })
	return nil
}

// errMock is a reusable scripted failure.
var errMock = errors.New("mock failure")

// FailStep returns a failing step with a generic error.
func FailStep() MockStep { return MockStep{Err: errMock} }
