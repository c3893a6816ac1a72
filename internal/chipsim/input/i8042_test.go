package input

import "testing"

type testLineInterrupt struct {
	pulses int
}

func (t *testLineInterrupt) Pulse() { t.pulses++ }

func TestI8042ScancodeReadIsFIFO(t *testing.T) {
	ctrl := NewI8042()
	irq := &testLineInterrupt{}
	ctrl.SetKeyboardIRQ(irq.Pulse)

	ctrl.Keyboard().SendKey(0x1e, true) // 'A' make code, set 1

	data := make([]byte, 1)
	if err := ctrl.ReadIOPort(i8042DataPort, data); err != nil {
		t.Fatalf("read scancode failed: %v", err)
	}
	if data[0] != 0x1e {
		t.Fatalf("expected raw set-1 make code 0x1e, got 0x%02x", data[0])
	}
	if irq.pulses == 0 {
		t.Fatalf("expected IRQ1 pulse on queued scancode")
	}
}

func TestI8042ScancodeBreakSetsTopBit(t *testing.T) {
	ctrl := NewI8042()
	ctrl.Keyboard().SendKey(0x1e, false)

	data := make([]byte, 1)
	if err := ctrl.ReadIOPort(i8042DataPort, data); err != nil {
		t.Fatalf("read break scancode failed: %v", err)
	}
	if data[0] != 0x9e {
		t.Fatalf("expected break code 0x9e (0x80|0x1e), got 0x%02x", data[0])
	}
}

func TestI8042ReadWithEmptyBufferReturnsZero(t *testing.T) {
	ctrl := NewI8042()
	data := make([]byte, 1)
	if err := ctrl.ReadIOPort(i8042DataPort, data); err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if data[0] != 0 {
		t.Fatalf("expected 0 from an empty output buffer, got 0x%02x", data[0])
	}
}

func TestI8042SetLEDsHandshake(t *testing.T) {
	ctrl := NewI8042()

	if err := ctrl.WriteIOPort(i8042DataPort, []byte{ps2CmdSetLEDs}); err != nil {
		t.Fatalf("set-LEDs command failed: %v", err)
	}
	data := make([]byte, 1)
	if err := ctrl.ReadIOPort(i8042DataPort, data); err != nil {
		t.Fatalf("read ack failed: %v", err)
	}
	if data[0] != ps2ResponseAck {
		t.Fatalf("expected ACK 0x%02x, got 0x%02x", ps2ResponseAck, data[0])
	}

	if err := ctrl.WriteIOPort(i8042DataPort, []byte{0x04}); err != nil { // Caps Lock bit
		t.Fatalf("LED mask write failed: %v", err)
	}
	if got := ctrl.Keyboard().leds; got != 0x04 {
		t.Fatalf("expected LED state 0x04, got 0x%02x", got)
	}
}

func TestI8042DisableStopsScancodeDelivery(t *testing.T) {
	ctrl := NewI8042()

	if err := ctrl.WriteIOPort(i8042DataPort, []byte{ps2CmdDisable}); err != nil {
		t.Fatalf("disable command failed: %v", err)
	}
	data := make([]byte, 1)
	if err := ctrl.ReadIOPort(i8042DataPort, data); err != nil { // ack
		t.Fatalf("read ack failed: %v", err)
	}
	if data[0] != ps2ResponseAck {
		t.Fatalf("expected ACK, got 0x%02x", data[0])
	}

	ctrl.Keyboard().SendKey(0x1e, true)
	if err := ctrl.ReadIOPort(i8042DataPort, data); err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if data[0] != 0 {
		t.Fatalf("expected no scancode while disabled, got 0x%02x", data[0])
	}
}

func TestI8042ResetRestoresDefaults(t *testing.T) {
	ctrl := NewI8042()
	ctrl.Keyboard().leds = 0x07
	ctrl.Reset()
	if ctrl.Keyboard().leds != 0 {
		t.Fatalf("expected LEDs cleared after reset, got 0x%02x", ctrl.Keyboard().leds)
	}
	if !ctrl.Keyboard().enabled {
		t.Fatalf("expected keyboard enabled after reset")
	}
}

func TestI8042InvalidPortRejected(t *testing.T) {
	ctrl := NewI8042()
	data := make([]byte, 1)
	if err := ctrl.ReadIOPort(0x64, data); err == nil {
		t.Fatalf("expected error reading an unregistered port")
	}
	if err := ctrl.WriteIOPort(0x64, data); err == nil {
		t.Fatalf("expected error writing an unregistered port")
	}
}
