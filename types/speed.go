package types

import "time"

// Speed multiplier of the training loop
type Speed int

const (
	Speed1x   Speed = 1
	Speed10x  Speed = 10
	Speed100x Speed = 100
)

// DefaultDelays maps each speed to the pause between two training steps
var DefaultDelays = map[Speed]time.Duration{
	Speed1x:   500 * time.Millisecond,
	Speed10x:  50 * time.Millisecond,
	Speed100x: 5 * time.Millisecond,
}

func ParseSpeed(v int) (Speed, error) {
	s := Speed(v)
	if _, ok := DefaultDelays[s]; !ok {
		return 0, NewConfigError("speed must be 1, 10 or 100, got %d", v)
	}
	return s, nil
}
