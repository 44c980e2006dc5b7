// Package strategy defines the contract for swappable business policies,
// such as the lot selection order used by dispatch allocation.
package strategy

// StrategyType groups strategies by the decision they make
type StrategyType string

const (
	StrategyTypeLot StrategyType = "lot"
)

func (t StrategyType) String() string {
	return string(t)
}

// Strategy identifies a policy implementation so it can be chosen by name
// from configuration
type Strategy interface {
	Name() string
	Type() StrategyType
	// Description is shown to operators when listing available policies
	Description() string
}

// BaseStrategy implements the identification half of a strategy; concrete
// policies embed it and add their decision method.
type BaseStrategy struct {
	name         string
	strategyType StrategyType
	description  string
}

// NewBaseStrategy creates a BaseStrategy
func NewBaseStrategy(name string, strategyType StrategyType, description string) BaseStrategy {
	return BaseStrategy{
		name:         name,
		strategyType: strategyType,
		description:  description,
	}
}

func (s BaseStrategy) Name() string {
	return s.name
}

func (s BaseStrategy) Type() StrategyType {
	return s.strategyType
}

func (s BaseStrategy) Description() string {
	return s.description
}
