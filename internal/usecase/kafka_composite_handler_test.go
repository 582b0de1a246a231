package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"SignalFuse/internal/domain/models"
	icache "SignalFuse/internal/service/cache"
)

type fakePublisher struct {
	msgs []models.RawMessage
	err  error
}

func (f *fakePublisher) Publish(ctx context.Context, msg models.RawMessage) error {
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, msg)
	return nil
}

func (f *fakePublisher) Close() error { return nil }

type fakeStore struct {
	recs []*models.SignalRecord
}

func (f *fakeStore) Init(ctx context.Context) error { return nil }

func (f *fakeStore) Store(ctx context.Context, rec *models.SignalRecord) error {
	f.recs = append(f.recs, rec)
	return nil
}

func (f *fakeStore) Latest(ctx context.Context, symbol string) (*models.SignalRecord, error) {
	for i := len(f.recs) - 1; i >= 0; i-- {
		if f.recs[i].Symbol == symbol {
			return f.recs[i], nil
		}
	}
	return nil, nil
}

func (f *fakeStore) Query(ctx context.Context, symbol string, from, to time.Time, limit int) ([]*models.SignalRecord, error) {
	return f.recs, nil
}

func (f *fakeStore) Health(ctx context.Context) error { return nil }
func (f *fakeStore) Close() error                     { return nil }

type fakeMetrics struct {
	decisions map[string]int
	rejected  map[string]int
	errs      map[string]int
}

func newFakeMetrics() *fakeMetrics {
	return &fakeMetrics{
		decisions: map[string]int{},
		rejected:  map[string]int{},
		errs:      map[string]int{},
	}
}

func (m *fakeMetrics) RecordDecision(decision, symbol string)      { m.decisions[decision]++ }
func (m *fakeMetrics) RecordRejected(reason string)                { m.rejected[reason]++ }
func (m *fakeMetrics) RecordError(kind string)                     { m.errs[kind]++ }
func (m *fakeMetrics) RecordAffirmativeVotes(symbol string, n int) {}
func (m *fakeMetrics) RecordLatency(op string, seconds float64)    {}

func newTestHandler(t *testing.T) (*KafkaCompositeHandler, *fakePublisher, *fakeStore, *fakeMetrics, *icache.TTLCache) {
	t.Helper()
	pub := &fakePublisher{}
	store := &fakeStore{}
	m := newFakeMetrics()
	c := icache.NewTTLCache()
	proc := NewSignalProcessor(acceptAll(), nil)
	h := NewKafkaCompositeHandler("signals.raw", proc, pub, store, m, nil)
	h.SetCache(c, time.Minute)
	return h, pub, store, m, c
}

func TestHandleMalformedJSON(t *testing.T) {
	h, pub, _, m, _ := newTestHandler(t)
	if err := h.Handle(context.Background(), []byte("{not json")); err == nil {
		t.Fatalf("expected error")
	}
	if len(pub.msgs) != 0 {
		t.Fatalf("nothing should be published")
	}
	if m.errs["consumer_unmarshal"] != 1 {
		t.Fatalf("unmarshal error not recorded: %v", m.errs)
	}
}

func TestHandleSchemaRejection(t *testing.T) {
	pub := &fakePublisher{}
	m := newFakeMetrics()
	proc := NewSignalProcessor(rejectAll(), nil)
	h := NewKafkaCompositeHandler("signals.raw", proc, pub, &fakeStore{}, m, nil)

	err := h.Handle(context.Background(), []byte(`{"symbol":"AAPL"}`))
	if err == nil {
		t.Fatalf("expected error")
	}
	var ife *InvalidFormatError
	if !errors.As(err, &ife) {
		t.Fatalf("expected InvalidFormatError, got %T", err)
	}
	if len(pub.msgs) != 0 {
		t.Fatalf("rejected message must not be published")
	}
	if m.rejected["schema"] != 1 {
		t.Fatalf("rejection not recorded: %v", m.rejected)
	}
}

func TestHandleFansOutEnrichedMessage(t *testing.T) {
	h, pub, store, m, c := newTestHandler(t)
	payload := []byte(`{"symbol":"AAPL","signal_alpha":"BUY","beta_signal":"SELL","momentum_signal":"SELL","anomaly_detected":false}`)

	if err := h.Handle(context.Background(), payload); err != nil {
		t.Fatalf("handle: %v", err)
	}

	if len(pub.msgs) != 1 {
		t.Fatalf("expected one published message, got %d", len(pub.msgs))
	}
	enriched := pub.msgs[0]
	if enriched[models.KeyCompositeSignal] != models.SignalBuy {
		t.Fatalf("composite = %v", enriched[models.KeyCompositeSignal])
	}

	if len(store.recs) != 1 {
		t.Fatalf("expected one stored record, got %d", len(store.recs))
	}
	rec := store.recs[0]
	if rec.Symbol != "AAPL" || rec.Composite != models.SignalBuy || rec.Affirmative != 2 {
		t.Fatalf("unexpected record: %+v", rec)
	}
	if rec.Source != "kafka" {
		t.Fatalf("source = %q", rec.Source)
	}

	if m.decisions[models.SignalBuy] != 1 {
		t.Fatalf("decision not recorded: %v", m.decisions)
	}

	b, ok, err := c.GetBytes("composite:latest:AAPL")
	if err != nil || !ok {
		t.Fatalf("latest cache miss: ok=%v err=%v", ok, err)
	}
	var cached models.RawMessage
	if err := json.Unmarshal(b, &cached); err != nil {
		t.Fatalf("cached payload: %v", err)
	}
	if cached[models.KeyCompositeSignal] != models.SignalBuy {
		t.Fatalf("cached composite = %v", cached[models.KeyCompositeSignal])
	}
}

func TestHandleHonorsEventTimestamp(t *testing.T) {
	h, _, store, _, _ := newTestHandler(t)
	payload := []byte(`{"symbol":"MSFT","timestamp":"2026-03-01T09:30:00Z","signal_alpha":"BUY","beta_signal":"BUY"}`)

	if err := h.Handle(context.Background(), payload); err != nil {
		t.Fatalf("handle: %v", err)
	}
	want := time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)
	if got := store.recs[0].Timestamp; !got.Equal(want) {
		t.Fatalf("timestamp = %v, want %v", got, want)
	}
}

func TestHandlePublishErrorPropagates(t *testing.T) {
	pub := &fakePublisher{err: errors.New("broker down")}
	m := newFakeMetrics()
	proc := NewSignalProcessor(acceptAll(), nil)
	h := NewKafkaCompositeHandler("signals.raw", proc, pub, &fakeStore{}, m, nil)

	if err := h.Handle(context.Background(), []byte(`{"symbol":"AAPL"}`)); err == nil {
		t.Fatalf("expected publish error")
	}
	if m.errs["publish"] != 1 {
		t.Fatalf("publish error not recorded: %v", m.errs)
	}
}
