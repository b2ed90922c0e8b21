package store

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jpalmerr/sensorbridge/telemetry"
)

func sample(device string, temp float64) telemetry.Sample {
	return telemetry.Sample{
		Device:    device,
		Reading:   telemetry.Reading{Temperature: temp},
		FetchedAt: time.Now().UTC(),
	}
}

func TestNewMemoryStore(t *testing.T) {
	store := NewMemoryStore()
	if store == nil {
		t.Fatal("NewMemoryStore() = nil")
	}
	if len(store.GetAll()) != 0 {
		t.Errorf("GetAll() = %v items, want 0", len(store.GetAll()))
	}
	if _, ok := store.Latest("esp"); ok {
		t.Error("Latest() on empty store returned ok")
	}
}

func TestMemoryStore_UpdateAndLatest(t *testing.T) {
	store := NewMemoryStore()
	store.Update(sample("esp", 23.5))

	got, ok := store.Latest("esp")
	if !ok {
		t.Fatal("Latest() ok = false, want true")
	}
	if got.Reading.Temperature != 23.5 {
		t.Errorf("Latest().Reading.Temperature = %v, want 23.5", got.Reading.Temperature)
	}
}

func TestMemoryStore_UpdateOverwrites(t *testing.T) {
	store := NewMemoryStore()
	store.Update(sample("esp", 20))
	store.Update(sample("esp", 21))

	all := store.GetAll()
	if len(all) != 1 {
		t.Fatalf("GetAll() = %v items, want 1", len(all))
	}
	if all[0].Reading.Temperature != 21 {
		t.Errorf("Temperature = %v, want 21", all[0].Reading.Temperature)
	}
}

func TestMemoryStore_GetAllSortedByDevice(t *testing.T) {
	store := NewMemoryStore()
	store.Update(sample("desk", 1))
	store.Update(sample("chair", 2))
	store.Update(sample("wrist", 3))

	all := store.GetAll()
	want := []string{"chair", "desk", "wrist"}
	if len(all) != len(want) {
		t.Fatalf("GetAll() = %d items, want %d", len(all), len(want))
	}
	for i, name := range want {
		if all[i].Device != name {
			t.Errorf("GetAll()[%d].Device = %q, want %q", i, all[i].Device, name)
		}
	}
}

func TestMemoryStore_UpdateCopiesAlerts(t *testing.T) {
	store := NewMemoryStore()
	alerts := []telemetry.Alert{{Kind: telemetry.AlertRoll, Value: 40}}
	s := sample("esp", 0)
	s.Alerts = alerts
	store.Update(s)

	alerts[0].Value = -1

	got, _ := store.Latest("esp")
	if got.Alerts[0].Value != 40 {
		t.Errorf("stored alert mutated through caller slice: %v", got.Alerts[0].Value)
	}
}

func TestMemoryStore_Status(t *testing.T) {
	failAt := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	okSample := sample("esp", 20)

	tests := []struct {
		name         string
		apply        func(*MemoryStore)
		wantOK       bool
		wantState    telemetry.ConnectionState
		wantFailures int
		wantError    string
		wantSuccess  time.Time
	}{
		{
			name:   "unknown device",
			apply:  func(*MemoryStore) {},
			wantOK: false,
		},
		{
			name:        "update connects",
			apply:       func(m *MemoryStore) { m.Update(okSample) },
			wantOK:      true,
			wantState:   telemetry.StateConnected,
			wantSuccess: okSample.FetchedAt,
		},
		{
			name: "failures accumulate",
			apply: func(m *MemoryStore) {
				m.RecordFailure("esp", failAt, errors.New("timeout"))
				m.RecordFailure("esp", failAt, errors.New("connection refused"))
			},
			wantOK:       true,
			wantState:    telemetry.StateError,
			wantFailures: 2,
			wantError:    "connection refused",
		},
		{
			name: "failure keeps last success",
			apply: func(m *MemoryStore) {
				m.Update(okSample)
				m.RecordFailure("esp", failAt, errors.New("timeout"))
			},
			wantOK:       true,
			wantState:    telemetry.StateError,
			wantFailures: 1,
			wantError:    "timeout",
			wantSuccess:  okSample.FetchedAt,
		},
		{
			name: "success resets failures",
			apply: func(m *MemoryStore) {
				m.RecordFailure("esp", failAt, errors.New("timeout"))
				m.Update(okSample)
			},
			wantOK:      true,
			wantState:   telemetry.StateConnected,
			wantSuccess: okSample.FetchedAt,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := NewMemoryStore()
			tt.apply(store)

			got, ok := store.Status("esp")
			if ok != tt.wantOK {
				t.Fatalf("Status() ok = %v, want %v", ok, tt.wantOK)
			}
			if !ok {
				return
			}
			if got.Device != "esp" {
				t.Errorf("Device = %q, want esp", got.Device)
			}
			if got.State != tt.wantState {
				t.Errorf("State = %q, want %q", got.State, tt.wantState)
			}
			if got.ConsecutiveFailures != tt.wantFailures {
				t.Errorf("ConsecutiveFailures = %d, want %d", got.ConsecutiveFailures, tt.wantFailures)
			}
			if got.LastError != tt.wantError {
				t.Errorf("LastError = %q, want %q", got.LastError, tt.wantError)
			}
			if !got.LastSuccess.Equal(tt.wantSuccess) {
				t.Errorf("LastSuccess = %v, want %v", got.LastSuccess, tt.wantSuccess)
			}
		})
	}
}

func TestMemoryStore_RecordFailureKeepsSample(t *testing.T) {
	store := NewMemoryStore()
	store.Update(sample("esp", 21))

	status := store.RecordFailure("esp", time.Now().UTC(), nil)
	if status.Connected() || status.LastError != "" {
		t.Errorf("RecordFailure() = %+v, want error state without message", status)
	}

	got, ok := store.Latest("esp")
	if !ok || got.Reading.Temperature != 21 {
		t.Errorf("Latest() = %+v, %v; want last good sample", got, ok)
	}
}

func TestMemoryStore_Subscribe(t *testing.T) {
	store := NewMemoryStore()
	ch := store.Subscribe()

	go store.Update(sample("esp", 19))

	select {
	case got := <-ch:
		if got.Device != "esp" {
			t.Errorf("received Device = %v, want esp", got.Device)
		}
	case <-time.After(time.Second):
		t.Error("Subscribe() channel did not receive update")
	}
}

func TestMemoryStore_MultipleSubscribers(t *testing.T) {
	store := NewMemoryStore()
	chans := []<-chan telemetry.Sample{store.Subscribe(), store.Subscribe(), store.Subscribe()}

	go store.Update(sample("esp", 1))

	for i, ch := range chans {
		select {
		case <-ch:
		case <-time.After(time.Second):
			t.Errorf("subscriber %d did not receive update", i)
		}
	}
}

func TestMemoryStore_Unsubscribe(t *testing.T) {
	store := NewMemoryStore()
	ch := store.Subscribe()
	store.Unsubscribe(ch)

	if _, ok := <-ch; ok {
		t.Error("channel should be closed after Unsubscribe")
	}

	// second call and updates after unsubscribe must not panic
	store.Unsubscribe(ch)
	store.Update(sample("esp", 1))
}

func TestMemoryStore_SlowSubscriberDoesNotBlock(t *testing.T) {
	store := NewMemoryStore()
	_ = store.Subscribe() // never drained

	done := make(chan struct{})
	go func() {
		for i := 0; i < subscriberBuffer*3; i++ {
			store.Update(sample("esp", float64(i)))
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Update blocked on a full subscriber buffer")
	}
}

func TestMemoryStore_ConcurrentAccess(t *testing.T) {
	store := NewMemoryStore()
	var wg sync.WaitGroup

	for i := 0; i < 10; i++ {
		wg.Add(4)
		go func(n int) {
			defer wg.Done()
			store.Update(sample("esp", float64(n)))
		}(i)
		go func() {
			defer wg.Done()
			store.RecordFailure("esp", time.Now(), errors.New("timeout"))
			_, _ = store.Status("esp")
		}()
		go func() {
			defer wg.Done()
			_ = store.GetAll()
		}()
		go func() {
			defer wg.Done()
			ch := store.Subscribe()
			store.Unsubscribe(ch)
		}()
	}

	wg.Wait()
}
