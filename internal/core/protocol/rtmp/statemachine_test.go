package rtmp

import "testing"

func TestApplyPeerBandwidthHard(t *testing.T) {
	f := NewFlowControl()
	f.ApplyPeerBandwidth(1000, LimitTypeHard)
	if f.OutAckWindow != 1000 || f.InLimitType != LimitTypeHard {
		t.Fatalf("unexpected flow control state: %+v", f)
	}
}

func TestApplyPeerBandwidthSoftOnlyLowers(t *testing.T) {
	f := NewFlowControl()
	f.OutAckWindow = 500
	f.ApplyPeerBandwidth(1000, LimitTypeSoft)
	if f.OutAckWindow != 500 {
		t.Fatalf("soft limit above current window should not raise it, got %d", f.OutAckWindow)
	}
	f.ApplyPeerBandwidth(200, LimitTypeSoft)
	if f.OutAckWindow != 200 {
		t.Fatalf("soft limit below current window should lower it, got %d", f.OutAckWindow)
	}
}

func TestApplyPeerBandwidthDynamicAfterHardUpdatesWindow(t *testing.T) {
	f := NewFlowControl()
	f.ApplyPeerBandwidth(1000, LimitTypeHard)
	f.ApplyPeerBandwidth(2000, LimitTypeDynamic)
	if f.OutAckWindow != 2000 {
		t.Fatalf("dynamic limit following hard should update window, got %d", f.OutAckWindow)
	}
	if f.InLimitType != LimitTypeDynamic {
		t.Fatalf("expected limit type to become Dynamic")
	}
}

func TestRecordInboundBytesAckDue(t *testing.T) {
	f := NewFlowControl()
	f.InAckWindow = 100
	if f.RecordInboundBytes(50) {
		t.Fatalf("ack should not be due yet")
	}
	if !f.RecordInboundBytes(60) {
		t.Fatalf("ack should be due after crossing the window")
	}
	if f.InBytesSinceAck != 0 {
		t.Fatalf("ack counter should reset once due, got %d", f.InBytesSinceAck)
	}
}

func TestTransactionAllocatorPerStream(t *testing.T) {
	a := NewTransactionAllocator()
	if got := a.Next(0); got != 1 {
		t.Fatalf("first tx id on stream 0: got %d want 1", got)
	}
	if got := a.Next(0); got != 2 {
		t.Fatalf("second tx id on stream 0: got %d want 2", got)
	}
	if got := a.Next(1); got != 1 {
		t.Fatalf("first tx id on stream 1: got %d want 1", got)
	}
}

func TestConnectionStateString(t *testing.T) {
	if StateConnected.String() != "Connected" {
		t.Fatalf("got %q", StateConnected.String())
	}
	if ConnectionState(99).String() != "Unknown" {
		t.Fatalf("expected Unknown for out-of-range state")
	}
}
