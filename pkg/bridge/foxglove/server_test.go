package foxglove

import (
	"context"
	"testing"
	"time"

	"github.com/kfly-project/kfly-comm/pkg/kfly"
)

func TestPublishJSONReachesSubscriber(t *testing.T) {
	s := NewServer(Config{})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go s.hub.Run(ctx)
	sub := s.hub.Subscribe()
	defer s.hub.Unsubscribe(sub)

	s.publishStatus(kfly.SystemStatus{FlightTime: 1, BatteryVoltage: 11.1})

	select {
	case evt := <-sub:
		if evt.ChannelID != chanStatus {
			t.Fatalf("ChannelID = %d, want %d", evt.ChannelID, chanStatus)
		}
		if len(evt.Body) == 0 {
			t.Fatalf("expected a non-empty JSON body")
		}
	case <-time.After(time.Second):
		t.Fatalf("timed out waiting for the published event")
	}
}

func TestAdvertiseListsAllChannels(t *testing.T) {
	msg := advertise(DefaultConfig())
	if len(msg.Channels) != 5 {
		t.Fatalf("advertised %d channels, want 5", len(msg.Channels))
	}
}
