package domain

// Strategy selects how a sampler collects messages: listener delivery into a
// buffer, or counted pulls against a receiving client.
type Strategy int

const (
	StrategyListen Strategy = iota
	StrategyReceive
)

// Canonical configuration values, plus the textual value older configs used
// before the selector was normalized.
const (
	strategyListenValue  = "listen"
	strategyReceiveValue = "receive"
	legacyReceiveValue   = "Receive"
)

func (s Strategy) String() string {
	if s == StrategyReceive {
		return strategyReceiveValue
	}
	return strategyListenValue
}

// ParseStrategy normalizes a configured selector. Anything that is not a
// recognized receive value falls back to the listener strategy, matching the
// behavior old test plans relied on.
func ParseStrategy(v string) Strategy {
	switch v {
	case strategyReceiveValue, legacyReceiveValue:
		return StrategyReceive
	default:
		return StrategyListen
	}
}
