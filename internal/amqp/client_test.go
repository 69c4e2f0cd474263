package amqp

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/rabbitmq/amqp091-go"

	"custos/internal/core"
	applog "custos/internal/log"
)

func TestExponentialBackoff(t *testing.T) {
	tests := []struct {
		attempt  int
		expected time.Duration
	}{
		{-1, 1 * time.Second},
		{0, 1 * time.Second},
		{1, 2 * time.Second},
		{2, 4 * time.Second},
		{3, 8 * time.Second},
		{4, 16 * time.Second},
		{5, 30 * time.Second},  // capped at 30s
		{10, 30 * time.Second}, // capped at 30s
		{64, 30 * time.Second}, // no shift overflow
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("attempt_%d", tt.attempt), func(t *testing.T) {
			result := exponentialBackoff(tt.attempt)
			if result != tt.expected {
				t.Errorf("exponentialBackoff(%d) = %v, want %v", tt.attempt, result, tt.expected)
			}
		})
	}
}

func TestIsConnectionError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{"nil error", nil, false},
		{"connection refused", errors.New("dial AMQP: connection refused"), true},
		{"amqp closed", fmt.Errorf("start consuming: %w", amqp091.ErrClosed), true},
		{"channel closed", errors.New("message channel closed"), true},
		{"EOF error", errors.New("unexpected EOF"), true},
		{"broken pipe error", errors.New("broken pipe"), true},
		{"other error", errors.New("some other error"), false},
		{"validation error", errors.New("invalid input"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := isConnectionError(tt.err)
			if result != tt.expected {
				t.Errorf("isConnectionError(%v) = %v, want %v", tt.err, result, tt.expected)
			}
		})
	}
}

func TestLoadCompletedMessageJSON(t *testing.T) {
	stats := core.NormalizeStats{InputRows: 3, OutputRows: 2, DroppedInvalidDate: 1, DefaultedValues: 1, FilledPlants: 1}
	msg := NewLoadCompletedMessage("id-1", "memory:", "ok", "", stats)
	if msg.Timestamp.IsZero() {
		t.Fatal("expected timestamp to be set")
	}

	data, err := msg.ToJSON()
	if err != nil {
		t.Fatalf("ToJSON: %v", err)
	}
	body := string(data)
	for _, want := range []string{`"load_id":"id-1"`, `"outcome":"ok"`, `"source":"memory:"`} {
		if !strings.Contains(body, want) {
			t.Errorf("expected %s in %s", want, body)
		}
	}
	if strings.Contains(body, `"reason"`) {
		t.Errorf("empty reason should be omitted: %s", body)
	}
}

func TestRefreshRequestMessageFromJSON(t *testing.T) {
	msg, err := RefreshRequestMessageFromJSON([]byte(`{"source":"file:/tmp/x.xlsx","requested_by":"ci"}`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if msg.Source != "file:/tmp/x.xlsx" || msg.RequestedBy != "ci" {
		t.Fatalf("unexpected message %+v", msg)
	}

	if _, err := RefreshRequestMessageFromJSON([]byte("not json")); err == nil {
		t.Fatal("expected error for invalid payload")
	}
}

type recordingAck struct {
	acked   int
	nacked  int
	requeue []bool
}

func (a *recordingAck) Ack(tag uint64, multiple bool) error {
	a.acked++
	return nil
}

func (a *recordingAck) Nack(tag uint64, multiple, requeue bool) error {
	a.nacked++
	a.requeue = append(a.requeue, requeue)
	return nil
}

func (a *recordingAck) Reject(tag uint64, requeue bool) error {
	return a.Nack(tag, false, requeue)
}

func TestHandleDelivery(t *testing.T) {
	client := &Client{queueName: "custos_refresh", logger: applog.Discard()}
	ctx := context.Background()

	t.Run("success acks", func(t *testing.T) {
		ack := &recordingAck{}
		var got *RefreshRequestMessage
		client.handleDelivery(ctx, amqp091.Delivery{Acknowledger: ack, DeliveryTag: 1, Body: []byte(`{"source":"memory:"}`)},
			func(_ context.Context, m *RefreshRequestMessage) error {
				got = m
				return nil
			})
		if ack.acked != 1 || ack.nacked != 0 {
			t.Fatalf("expected ack, got %+v", ack)
		}
		if got == nil || got.Source != "memory:" {
			t.Fatalf("handler not called with decoded message: %+v", got)
		}
	})

	t.Run("bad payload is dropped", func(t *testing.T) {
		ack := &recordingAck{}
		called := false
		client.handleDelivery(ctx, amqp091.Delivery{Acknowledger: ack, DeliveryTag: 2, Body: []byte("{")},
			func(context.Context, *RefreshRequestMessage) error {
				called = true
				return nil
			})
		if called {
			t.Fatal("handler should not run for invalid payload")
		}
		if ack.nacked != 1 || ack.requeue[0] {
			t.Fatalf("expected nack without requeue, got %+v", ack)
		}
	})

	t.Run("handler failure requeues once", func(t *testing.T) {
		fail := func(context.Context, *RefreshRequestMessage) error { return errors.New("boom") }

		first := &recordingAck{}
		client.handleDelivery(ctx, amqp091.Delivery{Acknowledger: first, DeliveryTag: 3, Body: []byte(`{}`)}, fail)
		if first.nacked != 1 || !first.requeue[0] {
			t.Fatalf("expected requeue on first failure, got %+v", first)
		}

		second := &recordingAck{}
		client.handleDelivery(ctx, amqp091.Delivery{Acknowledger: second, DeliveryTag: 4, Redelivered: true, Body: []byte(`{}`)}, fail)
		if second.nacked != 1 || second.requeue[0] {
			t.Fatalf("expected drop on redelivery failure, got %+v", second)
		}
	})
}

func TestClosedClientRejectsPublish(t *testing.T) {
	client := &Client{exchangeName: "custos", queueName: "custos_refresh", logger: applog.Discard()}
	if err := client.Close(); err != nil {
		t.Fatalf("close on unopened client: %v", err)
	}
	err := client.PublishLoadCompleted(context.Background(), NewLoadCompletedMessage("id", "s", "ok", "", core.NormalizeStats{}))
	if err == nil {
		t.Fatal("expected error publishing without a channel")
	}
}
