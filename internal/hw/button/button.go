package button

import (
	"context"
	"time"

	"github.com/cjeanneret/BoothGo/internal/debug"
	"github.com/cjeanneret/BoothGo/internal/hw/gpio"
)

// Button is a momentary push button wired between a GPIO pin and GND.
// The internal pull-up keeps the line HIGH; pressing pulls it LOW.
type Button struct {
	gpio     gpio.Driver
	pin      int
	poll     time.Duration // delay between two reads
	debounce time.Duration // settle time after a press is detected
}

// New configures pin as a pulled-up input and returns the button.
// A zero poll interval defaults to 20ms.
func New(g gpio.Driver, pin int, poll, debounce time.Duration) (*Button, error) {
	if err := g.SetupPin(pin, gpio.InputPullUp); err != nil {
		return nil, err
	}
	if poll <= 0 {
		poll = 20 * time.Millisecond
	}
	return &Button{
		gpio:     g,
		pin:      pin,
		poll:     poll,
		debounce: debounce,
	}, nil
}

// WaitPress blocks until the button is pressed or ctx is done.
func (b *Button) WaitPress(ctx context.Context) error {
	debug.Live("Waiting for trigger button (pin %d)", b.pin)

	ticker := time.NewTicker(b.poll)
	defer ticker.Stop()

	for {
		level, err := b.gpio.ReadPin(b.pin)
		if err != nil {
			return err
		}
		if level == gpio.Low {
			break
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}

	debug.Live("Trigger button pressed")
	if b.debounce > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(b.debounce):
		}
	}
	return nil
}
