package bits

import "time"

// Timing holds the bus windows. Both nodes must run identical values.
type Timing struct {
	// Bit slots: a 0 is a long low pulse, a 1 a short one.
	ZeroLow     time.Duration
	ZeroRelease time.Duration
	OneLow      time.Duration
	OneRelease  time.Duration

	// Receiver samples SampleAt into each slot, then waits SampleTail.
	SampleAt   time.Duration
	SampleTail time.Duration

	ByteGap time.Duration

	// Master reset pulse.
	ResetLow         time.Duration
	ResetLowData     time.Duration
	ResetDataRelease time.Duration
	PresenceSample   time.Duration
	MessageSample    time.Duration
	ResetTail        time.Duration

	// Slave answer to a reset, measured from the falling edge.
	SlaveDataSample time.Duration
	PresenceDelay   time.Duration
	PresencePulse   time.Duration
	DataPulseDelay  time.Duration
	DataPulse       time.Duration
	DataPulseTail   time.Duration
	SlaveSettle     time.Duration

	// Frame-level settles.
	PostFrame time.Duration
	PreAck    time.Duration

	PollInterval time.Duration
}

func DefaultTiming() Timing {
	return Timing{
		ZeroLow:     65 * time.Microsecond,
		ZeroRelease: 35 * time.Microsecond,
		OneLow:      15 * time.Microsecond,
		OneRelease:  85 * time.Microsecond,

		SampleAt:   40 * time.Microsecond,
		SampleTail: 60 * time.Microsecond,

		ByteGap: 750 * time.Microsecond,

		ResetLow:         500 * time.Microsecond,
		// Shorter pulse flags master data: the slave samples a released
		// line at 350µs.
		ResetLowData:     300 * time.Microsecond,
		ResetDataRelease: 200 * time.Microsecond,
		PresenceSample:   100 * time.Microsecond,
		MessageSample:    150 * time.Microsecond,
		ResetTail:        150 * time.Microsecond,

		SlaveDataSample: 350 * time.Microsecond,
		PresenceDelay:   200 * time.Microsecond,
		PresencePulse:   100 * time.Microsecond,
		DataPulseDelay:  50 * time.Microsecond,
		DataPulse:       100 * time.Microsecond,
		DataPulseTail:   100 * time.Microsecond,
		SlaveSettle:     250 * time.Microsecond,

		PostFrame: 10 * time.Millisecond,
		PreAck:    15 * time.Millisecond,

		PollInterval: time.Microsecond,
	}
}

// ByteDuration is the wire time of one byte including the trailing gap.
func (t Timing) ByteDuration() time.Duration {
	return 8*(t.SampleAt+t.SampleTail) + t.ByteGap
}

// ResetDuration is the length of a full reset/presence exchange.
func (t Timing) ResetDuration() time.Duration {
	return t.ResetLow + t.PresenceSample + t.MessageSample + t.ResetTail
}
