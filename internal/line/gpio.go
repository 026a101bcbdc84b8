package line

import (
	"errors"
	"fmt"
	"strings"

	"periph.io/x/periph/conn/gpio"
	"periph.io/x/periph/conn/gpio/gpioreg"
	"periph.io/x/periph/host"
)

var (
	ErrPinNotFound = errors.New("line: gpio pin not found")
	ErrInvalidPull = errors.New("line: invalid pull")
)

// GPIOLine drives a single periph pin as an open-drain line: output low to
// assert, input to release.
type GPIOLine struct {
	pin  gpio.PinIO
	pull gpio.Pull
}

var _ Line = (*GPIOLine)(nil)

func NewGPIOLine(pin gpio.PinIO, pull gpio.Pull) (*GPIOLine, error) {
	if pin == nil {
		return nil, ErrPinNotFound
	}
	l := &GPIOLine{pin: pin, pull: pull}
	if err := l.Release(); err != nil {
		return nil, err
	}
	return l, nil
}

// OpenGPIOLine initializes the periph host drivers and looks the pin up by name.
func OpenGPIOLine(name string, pull gpio.Pull) (*GPIOLine, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("line: host init: %w", err)
	}
	pin := gpioreg.ByName(strings.TrimSpace(name))
	if pin == nil {
		return nil, fmt.Errorf("%w: %q", ErrPinNotFound, name)
	}
	return NewGPIOLine(pin, pull)
}

func (l *GPIOLine) DriveLow() error {
	if err := l.pin.Out(gpio.Low); err != nil {
		return fmt.Errorf("line: drive %s low: %w", l.pin.Name(), err)
	}
	return nil
}

func (l *GPIOLine) Release() error {
	if err := l.pin.In(l.pull, gpio.NoEdge); err != nil {
		return fmt.Errorf("line: release %s: %w", l.pin.Name(), err)
	}
	return nil
}

func (l *GPIOLine) Read() gpio.Level {
	return l.pin.Read()
}

func (l *GPIOLine) Name() string {
	return l.pin.Name()
}

// Halt releases the line and stops any pin activity.
func (l *GPIOLine) Halt() error {
	if err := l.Release(); err != nil {
		return err
	}
	return l.pin.Halt()
}

// ParsePull maps config names onto periph pull settings.
func ParsePull(raw string) (gpio.Pull, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "up", "pullup":
		return gpio.PullUp, nil
	case "float", "none", "external":
		return gpio.Float, nil
	case "nochange":
		return gpio.PullNoChange, nil
	default:
		return gpio.PullNoChange, fmt.Errorf("%w: %q", ErrInvalidPull, raw)
	}
}
