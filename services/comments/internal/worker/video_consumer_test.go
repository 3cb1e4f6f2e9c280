package worker

import (
	"context"
	"errors"
	"testing"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

type fakePurger struct {
	calls []string
	err   error
}

func (f *fakePurger) PurgeVideo(_ context.Context, videoID string) (int, error) {
	f.calls = append(f.calls, videoID)
	return 3, f.err
}

type fakeMsg struct {
	acked, naked, termed int
}

func (m *fakeMsg) Ack(...nats.AckOpt) error  { m.acked++; return nil }
func (m *fakeMsg) Nak(...nats.AckOpt) error  { m.naked++; return nil }
func (m *fakeMsg) Term(...nats.AckOpt) error { m.termed++; return nil }

func TestHandleVideoEvent_TopLevelAndEnvelopeIDs(t *testing.T) {
	p := &fakePurger{}
	c := NewVideoConsumer(p, zap.NewNop(), Options{})

	if err := c.HandleVideoEvent(context.Background(), []byte(`{"event_id":"e1","video_id":"V1"}`)); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if err := c.HandleVideoEvent(context.Background(), []byte(`{"event_id":"e2","properties":{"video_id":"V2"}}`)); err != nil {
		t.Fatalf("handle envelope: %v", err)
	}
	if len(p.calls) != 2 || p.calls[0] != "V1" || p.calls[1] != "V2" {
		t.Fatalf("unexpected purge calls %v", p.calls)
	}
}

func TestHandleVideoEvent_ForgetsBeforePurging(t *testing.T) {
	p := &fakePurger{}
	var forgotten []string
	var purgedAtForget []int
	c := NewVideoConsumer(p, nil, Options{BeforePurge: func(id string) {
		forgotten = append(forgotten, id)
		purgedAtForget = append(purgedAtForget, len(p.calls))
	}})
	_ = c.HandleVideoEvent(context.Background(), []byte(`{"video_id":"V1"}`))

	failing := NewVideoConsumer(&fakePurger{err: errors.New("db down")}, nil, Options{BeforePurge: func(id string) { forgotten = append(forgotten, id) }})
	_ = failing.HandleVideoEvent(context.Background(), []byte(`{"video_id":"V2"}`))
	_ = failing.HandleVideoEvent(context.Background(), []byte(`{"event_id":"x"}`))

	if len(forgotten) != 2 || forgotten[0] != "V1" || forgotten[1] != "V2" {
		t.Fatalf("expected a forget per purge attempt, got %v", forgotten)
	}
	if purgedAtForget[0] != 0 {
		t.Fatalf("forget must run before the purge, saw %d purges first", purgedAtForget[0])
	}
}

func TestSettle(t *testing.T) {
	ctx := context.Background()

	ok := &fakeMsg{}
	NewVideoConsumer(&fakePurger{}, nil, Options{}).settle(ctx, ok, []byte(`{"video_id":"V1"}`))
	if ok.acked != 1 || ok.naked != 0 || ok.termed != 0 {
		t.Fatalf("expected ack, got %+v", ok)
	}

	poison := &fakeMsg{}
	p := &fakePurger{}
	NewVideoConsumer(p, nil, Options{}).settle(ctx, poison, []byte(`{"event_id":"x"}`))
	if poison.termed != 1 || len(p.calls) != 0 {
		t.Fatalf("expected term without purge, got %+v %v", poison, p.calls)
	}

	garbage := &fakeMsg{}
	NewVideoConsumer(&fakePurger{}, nil, Options{}).settle(ctx, garbage, []byte(`not json`))
	if garbage.termed != 1 {
		t.Fatalf("expected term, got %+v", garbage)
	}

	retry := &fakeMsg{}
	NewVideoConsumer(&fakePurger{err: errors.New("db down")}, nil, Options{}).settle(ctx, retry, []byte(`{"video_id":"V1"}`))
	if retry.naked != 1 || retry.acked != 0 {
		t.Fatalf("expected nak, got %+v", retry)
	}
}

func TestNewVideoConsumer_Defaults(t *testing.T) {
	c := NewVideoConsumer(&fakePurger{}, nil, Options{BatchSize: -1})
	if c.opts.Durable != DefaultDurable || c.opts.BatchSize != DefaultBatchSize || c.opts.MaxWait != DefaultMaxWait {
		t.Fatalf("unexpected defaults %+v", c.opts)
	}
}
