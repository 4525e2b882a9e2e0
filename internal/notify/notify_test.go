package notify

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/Cheertaboi/storefront-checkout-service/internal/metrics"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type recordingNotifier struct {
	mu   sync.Mutex
	got  []Notification
	fail bool
	gate chan struct{}
}

func (r *recordingNotifier) Notify(ctx context.Context, n Notification) error {
	if r.gate != nil {
		<-r.gate
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.got = append(r.got, n)
	if r.fail {
		return errors.New("smtp down")
	}
	return nil
}

func (r *recordingNotifier) all() []Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Notification(nil), r.got...)
}

func TestDispatcherDeliversBeforeClose(t *testing.T) {
	rec := &recordingNotifier{}
	m := metrics.New(prometheus.NewRegistry())
	d := NewDispatcher(rec, 3, 16, discardLogger(), m)

	for i := 0; i < 10; i++ {
		d.Send(Notification{UserID: "u1", Type: TypePurchase})
	}
	d.Close()

	got := rec.all()
	require.Len(t, got, 10)
	assert.False(t, got[0].CreatedAt.IsZero())
	assert.Equal(t, 10.0, testutil.ToFloat64(m.Notifications.WithLabelValues("purchase", "sent")))
}

func TestDispatcherCountsFailures(t *testing.T) {
	rec := &recordingNotifier{fail: true}
	m := metrics.New(prometheus.NewRegistry())
	d := NewDispatcher(rec, 1, 4, discardLogger(), m)

	d.Send(Notification{UserID: "u1", Type: TypeSale})
	d.Close()

	assert.Equal(t, 1.0, testutil.ToFloat64(m.Notifications.WithLabelValues("sale", "failed")))
}

func TestDispatcherDropsWhenFull(t *testing.T) {
	rec := &recordingNotifier{gate: make(chan struct{})}
	m := metrics.New(prometheus.NewRegistry())
	d := NewDispatcher(rec, 1, 1, discardLogger(), m)

	// The single worker may or may not have picked up the first message yet,
	// so at most two fit and the rest are dropped.
	for i := 0; i < 5; i++ {
		d.Send(Notification{UserID: "u1", Type: TypeOrderShipped})
	}
	close(rec.gate)
	d.Close()

	dropped := testutil.ToFloat64(m.Notifications.WithLabelValues("order_shipped", "dropped"))
	sent := testutil.ToFloat64(m.Notifications.WithLabelValues("order_shipped", "sent"))
	assert.Equal(t, 5.0, dropped+sent)
	assert.GreaterOrEqual(t, dropped, 3.0)
}

func TestDispatcherSendAfterClose(t *testing.T) {
	m := metrics.New(prometheus.NewRegistry())
	d := NewDispatcher(&recordingNotifier{}, 1, 1, discardLogger(), m)
	d.Close()
	d.Close()

	assert.NotPanics(t, func() { d.Send(Notification{UserID: "u1", Type: TypeSale}) })
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Notifications.WithLabelValues("sale", "dropped")))
}

type fakeWriter struct {
	msgs []kafka.Message
}

func (f *fakeWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	f.msgs = append(f.msgs, msgs...)
	return nil
}

func (f *fakeWriter) Close() error { return nil }

func TestKafkaNotifierKeysByUser(t *testing.T) {
	w := &fakeWriter{}
	k := &KafkaNotifier{writer: w}

	err := k.Notify(context.Background(), Notification{
		UserID: "buyer-1",
		Type:   TypePurchase,
		Data:   map[string]any{"orderId": "o-1"},
	})
	require.NoError(t, err)
	require.Len(t, w.msgs, 1)
	assert.Equal(t, "buyer-1", string(w.msgs[0].Key))

	var decoded Notification
	require.NoError(t, json.Unmarshal(w.msgs[0].Value, &decoded))
	assert.Equal(t, TypePurchase, decoded.Type)
	assert.Equal(t, "o-1", decoded.Data["orderId"])
}

func TestParseBrokers(t *testing.T) {
	assert.Equal(t, []string{"a:9092", "b:9092"}, ParseBrokers(" a:9092, ,b:9092"))
	assert.Empty(t, ParseBrokers(""))
}
