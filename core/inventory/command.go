package inventory

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	ErrInsufficientInventory = errors.New("inventory: insufficient inventory")
	ErrInvalidQuantity       = errors.New("inventory: invalid quantity")
)

// InsufficientInventoryError is returned when a command cannot be satisfied by the level it was validated
// against. It matches ErrInsufficientInventory with errors.Is.
type InsufficientInventoryError struct {
	Key       Key
	Requested int64
	Available int64
	Reason    string
}

func (e *InsufficientInventoryError) Error() string {
	return fmt.Sprintf("insufficient inventory for %s: requested=%d available=%d: %s",
		e.Key, e.Requested, e.Available, e.Reason)
}

func (e *InsufficientInventoryError) Is(target error) bool {
	return target == ErrInsufficientInventory
}

type EventType string

const (
	EventAllocate   EventType = "ALLOCATE"
	EventDeallocate EventType = "DEALLOCATE"
	EventAdjust     EventType = "ADJUST"
	EventRelease    EventType = "RELEASE"
)

// Delta is the signed change a command makes to a key.
type Delta struct {
	QuantityOnHand    int64 `json:"quantityOnHand"`
	AllocatedQuantity int64 `json:"allocatedQuantity"`
}

// Check is a business rule evaluated against the level of a key before a command is journaled. A non-nil
// error aborts the command and nothing is written.
type Check func(before Dto) error

// Command is one of AllocateCommand, DeallocateCommand, AdjustCommand or ReleaseCommand. Commands are built by
// a CommandFactory and executed once.
type Command interface {
	Key() Key
	EventType() EventType
	Quantity() int64
	Originator() string
	Delta() Delta
	// Validate applies the command's own invariants to the level it is about to change.
	Validate(before Dto) error
	// ExecutionResult returns the result captured by the most recent execution.
	ExecutionResult() ExecutionResult

	record(result ExecutionResult)
}

type baseCommand struct {
	key        Key
	quantity   int64
	originator string
	result     ExecutionResult
}

func (c *baseCommand) Key() Key                         { return c.key }
func (c *baseCommand) Quantity() int64                  { return c.quantity }
func (c *baseCommand) Originator() string               { return c.originator }
func (c *baseCommand) ExecutionResult() ExecutionResult { return c.result }
func (c *baseCommand) record(result ExecutionResult)    { c.result = result }

func (c *baseCommand) requirePositive() error {
	if c.quantity < 1 {
		return errors.Wrapf(ErrInvalidQuantity, "quantity must be greater than zero, got %d", c.quantity)
	}
	return nil
}

func (c *baseCommand) insufficient(available int64, reason string) error {
	return &InsufficientInventoryError{Key: c.key, Requested: c.quantity, Available: available, Reason: reason}
}

// AllocateCommand reserves stock against an order.
type AllocateCommand struct{ baseCommand }

func (c *AllocateCommand) EventType() EventType { return EventAllocate }

func (c *AllocateCommand) Delta() Delta {
	return Delta{AllocatedQuantity: c.quantity}
}

func (c *AllocateCommand) Validate(_ Dto) error {
	return c.requirePositive()
}

// DeallocateCommand gives back a prior allocation.
type DeallocateCommand struct{ baseCommand }

func (c *DeallocateCommand) EventType() EventType { return EventDeallocate }

func (c *DeallocateCommand) Delta() Delta {
	return Delta{AllocatedQuantity: -c.quantity}
}

func (c *DeallocateCommand) Validate(before Dto) error {
	if err := c.requirePositive(); err != nil {
		return err
	}
	if before.AllocatedQuantity < c.quantity {
		return c.insufficient(before.AllocatedQuantity, "cannot deallocate more than is allocated")
	}
	return nil
}

// AdjustCommand corrects on-hand stock. The quantity is signed: receipts are positive, write-offs negative.
type AdjustCommand struct{ baseCommand }

func (c *AdjustCommand) EventType() EventType { return EventAdjust }

func (c *AdjustCommand) Delta() Delta {
	return Delta{QuantityOnHand: c.quantity}
}

func (c *AdjustCommand) Validate(before Dto) error {
	if c.quantity == 0 {
		return errors.Wrap(ErrInvalidQuantity, "adjustment quantity must not be zero")
	}
	if before.QuantityOnHand+c.quantity < 0 {
		return c.insufficient(before.QuantityOnHand, "adjustment would make quantity on hand negative")
	}
	return nil
}

// ReleaseCommand ships allocated stock. It leaves the warehouse and its allocation clears with it.
type ReleaseCommand struct{ baseCommand }

func (c *ReleaseCommand) EventType() EventType { return EventRelease }

func (c *ReleaseCommand) Delta() Delta {
	return Delta{QuantityOnHand: -c.quantity, AllocatedQuantity: -c.quantity}
}

func (c *ReleaseCommand) Validate(before Dto) error {
	if err := c.requirePositive(); err != nil {
		return err
	}
	if before.QuantityOnHand < c.quantity {
		return c.insufficient(before.QuantityOnHand, "not enough stock on hand to release")
	}
	if before.AllocatedQuantity < c.quantity {
		return c.insufficient(before.AllocatedQuantity, "cannot release more than is allocated")
	}
	return nil
}

// CommandFactory builds the inventory commands.
type CommandFactory struct{}

func NewCommandFactory() CommandFactory {
	return CommandFactory{}
}

func (CommandFactory) Allocate(key Key, qty int64, originator string) Command {
	return &AllocateCommand{baseCommand{key: key, quantity: qty, originator: originator}}
}

func (CommandFactory) Deallocate(key Key, qty int64, originator string) Command {
	return &DeallocateCommand{baseCommand{key: key, quantity: qty, originator: originator}}
}

func (CommandFactory) Adjust(key Key, qty int64, originator string) Command {
	return &AdjustCommand{baseCommand{key: key, quantity: qty, originator: originator}}
}

func (CommandFactory) Release(key Key, qty int64, originator string) Command {
	return &ReleaseCommand{baseCommand{key: key, quantity: qty, originator: originator}}
}
