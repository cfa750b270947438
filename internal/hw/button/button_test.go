package button

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/cjeanneret/BoothGo/internal/hw/gpio"
)

// scriptedDriver returns the queued levels in order, then repeats the last one.
type scriptedDriver struct {
	levels []gpio.Level
	reads  int
	modes  map[int]gpio.PinMode
	err    error
}

func (d *scriptedDriver) SetupPin(pin int, mode gpio.PinMode) error {
	if d.modes == nil {
		d.modes = make(map[int]gpio.PinMode)
	}
	d.modes[pin] = mode
	return nil
}

func (d *scriptedDriver) WritePin(pin int, level gpio.Level) error { return nil }

func (d *scriptedDriver) ReadPin(pin int) (gpio.Level, error) {
	if d.err != nil {
		return gpio.High, d.err
	}
	i := d.reads
	if i >= len(d.levels) {
		i = len(d.levels) - 1
	}
	d.reads++
	return d.levels[i], nil
}

func (d *scriptedDriver) Close() error { return nil }

func TestNew_ConfiguresPullUp(t *testing.T) {
	drv := &scriptedDriver{levels: []gpio.Level{gpio.High}}
	if _, err := New(drv, 17, time.Millisecond, 0); err != nil {
		t.Fatalf("New: %v", err)
	}
	if drv.modes[17] != gpio.InputPullUp {
		t.Errorf("pin 17 mode = %v, want %v", drv.modes[17], gpio.InputPullUp)
	}
}

func TestWaitPress_ReturnsOnLow(t *testing.T) {
	drv := &scriptedDriver{levels: []gpio.Level{gpio.High, gpio.High, gpio.Low}}
	b, err := New(drv, 17, time.Microsecond, time.Microsecond)
	if err != nil {
		t.Fatal(err)
	}
	if err := b.WaitPress(context.Background()); err != nil {
		t.Fatalf("WaitPress: %v", err)
	}
	if drv.reads != 3 {
		t.Errorf("reads = %d, want 3", drv.reads)
	}
}

func TestWaitPress_ContextCancelled(t *testing.T) {
	drv := &scriptedDriver{levels: []gpio.Level{gpio.High}}
	b, err := New(drv, 17, time.Millisecond, 0)
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	if err := b.WaitPress(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("WaitPress error = %v, want deadline exceeded", err)
	}
}

func TestWaitPress_ReadError(t *testing.T) {
	readErr := errors.New("bus error")
	drv := &scriptedDriver{levels: []gpio.Level{gpio.High}, err: readErr}
	b, err := New(drv, 17, time.Millisecond, 0)
	if err != nil {
		t.Fatal(err)
	}
	if err := b.WaitPress(context.Background()); !errors.Is(err, readErr) {
		t.Errorf("WaitPress error = %v, want %v", err, readErr)
	}
}

func TestWaitPress_MockDriverPressesImmediately(t *testing.T) {
	b, err := New(&gpio.MockDriver{}, 4, time.Millisecond, 0)
	if err != nil {
		t.Fatal(err)
	}
	if err := b.WaitPress(context.Background()); err != nil {
		t.Errorf("WaitPress with mock driver: %v", err)
	}
}
