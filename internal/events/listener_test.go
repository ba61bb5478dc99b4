package events

import (
	"context"
	"errors"
	"testing"

	"github.com/segmentio/kafka-go"
)

// fakeReader replays msgs, then blocks until ctx is done.
type fakeReader struct {
	msgs      []kafka.Message
	committed []kafka.Message
	fetchErr  error
	closed    bool
	drained   chan struct{}
}

func (f *fakeReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	if len(f.msgs) > 0 {
		m := f.msgs[0]
		f.msgs = f.msgs[1:]
		return m, nil
	}
	if f.fetchErr != nil {
		return kafka.Message{}, f.fetchErr
	}
	if f.drained != nil {
		close(f.drained)
		f.drained = nil
	}
	<-ctx.Done()
	return kafka.Message{}, ctx.Err()
}

func (f *fakeReader) CommitMessages(ctx context.Context, msgs ...kafka.Message) error {
	f.committed = append(f.committed, msgs...)
	return nil
}

func (f *fakeReader) Close() error {
	f.closed = true
	return nil
}

type fakeCache struct {
	students []string
	all      int
}

func (c *fakeCache) Invalidate(studentID string) int {
	c.students = append(c.students, studentID)
	return 1
}

func (c *fakeCache) InvalidateAll() int {
	c.all++
	return 3
}

func TestHandle(t *testing.T) {
	testCases := []struct {
		name         string
		payload      string
		wantErr      bool
		wantStudents int
		wantAll      int
	}{
		{"submission for student", `{"kind":"submission","studentId":"S1"}`, false, 1, 0},
		{"enrollment for everyone", `{"kind":"Enrollment"}`, false, 0, 1},
		{"unknown kind", `{"kind":"grade","studentId":"S1"}`, true, 0, 0},
		{"not json", `kind=submission`, true, 0, 0},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cache := &fakeCache{}
			l := NewListenerWith(&fakeReader{}, cache, nil, nil)

			err := l.Handle([]byte(tc.payload))
			if (err != nil) != tc.wantErr {
				t.Fatalf("Handle() error = %v, wantErr %v", err, tc.wantErr)
			}
			if len(cache.students) != tc.wantStudents || cache.all != tc.wantAll {
				t.Errorf("Unexpected invalidations students=%v all=%d", cache.students, cache.all)
			}
		})
	}
}

func TestRunCommitsEveryMessage(t *testing.T) {
	drained := make(chan struct{})
	r := &fakeReader{drained: drained, msgs: []kafka.Message{
		{Offset: 1, Value: []byte(`{"kind":"submission","studentId":"S1"}`)},
		{Offset: 2, Value: []byte(`garbage`)},
		{Offset: 3, Value: []byte(`{"kind":"enrollment","studentId":"S2"}`)},
	}}
	cache := &fakeCache{}
	l := NewListenerWith(r, cache, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- l.Run(ctx) }()

	<-drained
	cancel()

	if err := <-done; err != nil {
		t.Fatalf("Expected nil on cancellation, got %v", err)
	}
	if len(r.committed) != 3 {
		t.Errorf("Expected malformed message to be committed too, got %d commits", len(r.committed))
	}
	if len(cache.students) != 2 || cache.students[1] != "S2" {
		t.Errorf("Unexpected invalidations %v", cache.students)
	}
}

func TestRunFetchError(t *testing.T) {
	l := NewListenerWith(&fakeReader{fetchErr: errors.New("broker down")}, &fakeCache{}, nil, nil)
	if err := l.Run(context.Background()); err == nil {
		t.Error("Expected fetch error to stop the listener")
	}
}

func TestClose(t *testing.T) {
	r := &fakeReader{}
	if err := NewListenerWith(r, &fakeCache{}, nil, nil).Close(); err != nil || !r.closed {
		t.Errorf("Expected reader to be closed, got %v", err)
	}
}
