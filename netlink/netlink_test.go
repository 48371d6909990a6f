package netlink

import (
	"testing"

	"github.com/signalsfoundry/leo-orbit-sim/model"
	"github.com/signalsfoundry/leo-orbit-sim/simkernel"
)

func TestTransmit_ComputesDurationAndArrival(t *testing.T) {
	l := &Link{DatarateBps: 1e9, DelaySec: 1000.0 / 299792.458}
	arrival, ok := l.Transmit(0, 8*1024)
	if !ok {
		t.Fatalf("expected link to admit frame at t=0")
	}
	wantTxDuration := 8192.0 / 1e9
	wantArrival := wantTxDuration + 1000.0/299792.458
	if diff := arrival - wantArrival; diff > 1e-12 || diff < -1e-12 {
		t.Errorf("arrival = %v, want %v", arrival, wantArrival)
	}
}

func TestTransmit_BusyAtStrictlyLessThanBusyUntil(t *testing.T) {
	l := &Link{DatarateBps: 1000, BusyUntil: 5}
	if _, ok := l.Transmit(4.999, 8); ok {
		t.Errorf("expected link to be busy just before busy_until")
	}
	if _, ok := l.Transmit(5, 8); !ok {
		t.Errorf("expected link to admit a frame exactly at busy_until (strict <, not <=)")
	}
}

func TestOutbox_TailDropsAtCapacity(t *testing.T) {
	sched := simkernel.New()
	ob := NewOutbox(2)
	link := &Link{DatarateBps: 1, BusyUntil: 1e9} // always busy, nothing drains
	ob.AddGate()
	ob.Connect(0, 1, link)

	var drops []model.DropReason
	ob.OnDrop = func(reason model.DropReason, f Frame) { drops = append(drops, reason) }

	for i := 0; i < 3; i++ {
		ob.Enqueue(sched, Frame{GateIdx: 0, BitLength: 8})
	}

	if ob.QueueLength() != 2 {
		t.Errorf("expected queue length 2, got %d", ob.QueueLength())
	}
	if len(drops) != 1 || drops[0] != model.DropQueueOverflow {
		t.Errorf("expected exactly one queue-overflow drop, got %v", drops)
	}
}

func TestOutbox_DropsOnDisconnectedGate(t *testing.T) {
	sched := simkernel.New()
	ob := NewOutbox(10)
	ob.AddGate() // never connected

	var drops []model.DropReason
	ob.OnDrop = func(reason model.DropReason, f Frame) { drops = append(drops, reason) }

	ob.Enqueue(sched, Frame{GateIdx: 0, BitLength: 8})

	if len(drops) != 1 || drops[0] != model.DropGateDisconnected {
		t.Fatalf("expected gate-disconnected drop, got %v", drops)
	}
}

func TestOutbox_DeliversThroughScheduler(t *testing.T) {
	sched := simkernel.New()
	ob := NewOutbox(10)
	link := &Link{DatarateBps: 1e9, DelaySec: 0}
	ob.AddGate()
	ob.Connect(0, 2, link)

	delivered := false
	ob.Enqueue(sched, Frame{
		GateIdx:   0,
		BitLength: 8 * 1024,
		Arrive:    func(*simkernel.Scheduler, float64) { delivered = true },
	})

	sched.Run(1)
	if !delivered {
		t.Errorf("expected frame to be delivered after scheduler drains")
	}
}

func TestOutbox_OnlyOneWakeOutstanding(t *testing.T) {
	sched := simkernel.New()
	ob := NewOutbox(10)
	link := &Link{DatarateBps: 1000, BusyUntil: 5}
	ob.AddGate()
	ob.Connect(0, 2, link)

	var delivered int
	var firstWake simkernel.Handle
	for i := 0; i < 3; i++ {
		ob.Enqueue(sched, Frame{
			GateIdx:   0,
			BitLength: 8,
			Arrive:    func(*simkernel.Scheduler, float64) { delivered++ },
		})
		if i == 0 {
			firstWake = ob.wake
		}
	}
	if !ob.hasWake {
		t.Fatalf("expected a wake to be scheduled while link is busy")
	}
	if ob.wake != firstWake {
		t.Errorf("expected later enqueues to reuse the pending wake %v, got %v", firstWake, ob.wake)
	}

	sched.Run(100)
	if delivered != 3 {
		t.Errorf("expected all 3 frames eventually delivered, got %d", delivered)
	}
}
