package inventory

import (
	"context"

	"github.com/pkg/errors"
	"github.com/sksmith/inventory-allocation/core"
)

type StrategyKind string

const (
	StrategyJournaling StrategyKind = "journaling"
	StrategyDirect     StrategyKind = "direct"
)

func ParseStrategyKind(v string) (StrategyKind, error) {
	switch v {
	case string(StrategyJournaling), "":
		return StrategyJournaling, nil
	case string(StrategyDirect):
		return StrategyDirect, nil
	default:
		return "", errors.Errorf("invalid inventory strategy %q", v)
	}
}

// Facade routes every command through the strategy selected at startup.
type Facade struct {
	strategies map[StrategyKind]Strategy
	active     Strategy
}

func NewFacade(kind StrategyKind, repo Repository) (*Facade, error) {
	return NewFacadeWithStrategies(kind, NewJournalingStrategy(repo), NewDirectStrategy(repo))
}

func NewFacadeWithStrategies(kind StrategyKind, strategies ...Strategy) (*Facade, error) {
	f := &Facade{strategies: make(map[StrategyKind]Strategy, len(strategies))}
	for _, s := range strategies {
		f.strategies[s.Kind()] = s
	}
	active, ok := f.strategies[kind]
	if !ok {
		return nil, errors.Errorf("no inventory strategy registered for %q", kind)
	}
	f.active = active
	return f, nil
}

func (f *Facade) Active() StrategyKind {
	return f.active.Kind()
}

func (f *Facade) Execute(ctx context.Context, cmd Command, check Check, options ...core.UpdateOptions) (ExecutionResult, error) {
	result, err := f.active.Execute(ctx, cmd, check, options...)
	recordCommand(cmd.EventType(), err)
	return result, err
}

func (f *Facade) GetInventory(ctx context.Context, key Key, options ...core.QueryOptions) (Dto, error) {
	return f.active.GetInventory(ctx, key, options...)
}
