package royaltysale

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

var (
	// ErrConfiguration represents a missing or invalid configuration value
	ErrConfiguration = errors.New("configuration error")

	// ErrInvalidRate represents a royalty rate outside [0, 10000] bps
	ErrInvalidRate = errors.New("invalid royalty rate")

	// ErrArithmeticOverflow represents a value that does not fit the ledger's 256-bit word
	ErrArithmeticOverflow = errors.New("arithmetic overflow")

	// ErrNegativeAmount represents a negative wei amount
	ErrNegativeAmount = errors.New("negative amount")

	// ErrMalformedOrder represents an order that cannot be assembled from its inputs
	ErrMalformedOrder = errors.New("malformed order")

	// ErrConsiderationMismatch represents a consideration total that differs from the sale price
	ErrConsiderationMismatch = errors.New("consideration mismatch")

	// ErrInvalidTimeWindow represents an order whose time window is empty or already over
	ErrInvalidTimeWindow = errors.New("invalid time window")

	// ErrOrderExpired represents an order whose end time has passed
	ErrOrderExpired = errors.New("order expired")

	// ErrInvalidTransition represents a forbidden order status change
	ErrInvalidTransition = errors.New("invalid order status transition")

	// ErrRoyaltyInfoMismatch represents an on-chain royaltyInfo quote that disagrees with the computed split
	ErrRoyaltyInfoMismatch = errors.New("royalty info mismatch")

	// ErrOrderNotFulfilled represents a fulfillment receipt without the expected OrderFulfilled event
	ErrOrderNotFulfilled = errors.New("order not fulfilled")

	// ErrSettlementMismatch represents observed settlement deltas that differ from the expected split
	ErrSettlementMismatch = errors.New("settlement mismatch")
)

// ConfigurationError names the configuration field that is missing or invalid
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("configuration error: %s is required", e.Field)
	}
	return fmt.Sprintf("configuration error: %s: %s", e.Field, e.Reason)
}

func (e *ConfigurationError) Unwrap() error {
	return ErrConfiguration
}

// ConsiderationMismatchError carries the expected and actual consideration totals
type ConsiderationMismatchError struct {
	Expected *big.Int
	Actual   *big.Int
}

func (e *ConsiderationMismatchError) Error() string {
	return fmt.Sprintf("consideration mismatch: expected %s wei, got %s wei", e.Expected, e.Actual)
}

func (e *ConsiderationMismatchError) Unwrap() error {
	return ErrConsiderationMismatch
}

// InvalidTimeWindowError carries the offending window and the reference time
type InvalidTimeWindowError struct {
	Start uint64
	End   uint64
	Now   uint64
}

func (e *InvalidTimeWindowError) Error() string {
	if e.Start >= e.End {
		return fmt.Sprintf("invalid time window: start %d is not before end %d", e.Start, e.End)
	}
	return fmt.Sprintf("invalid time window: end %d is not after now %d", e.End, e.Now)
}

func (e *InvalidTimeWindowError) Unwrap() error {
	return ErrInvalidTimeWindow
}

// MismatchKind classifies a settlement discrepancy
type MismatchKind int

const (
	RoyaltyUnderpaid MismatchKind = iota + 1
	RoyaltyOverpaid
	SellerUnderpaid
	SellerOverpaid
)

func (k MismatchKind) String() string {
	switch k {
	case RoyaltyUnderpaid:
		return "royalty underpaid"
	case RoyaltyOverpaid:
		return "royalty overpaid"
	case SellerUnderpaid:
		return "seller underpaid"
	case SellerOverpaid:
		return "seller overpaid"
	default:
		return "unknown"
	}
}

// SettlementMismatchError names the balance field that did not reconcile
type SettlementMismatchError struct {
	Field    string
	Address  common.Address
	Expected *big.Int
	Actual   *big.Int
	Kind     MismatchKind
}

func (e *SettlementMismatchError) Error() string {
	return fmt.Sprintf("settlement mismatch (%s): %s %s expected delta %s wei, observed %s wei",
		e.Kind, e.Field, e.Address.Hex(), e.Expected, e.Actual)
}

func (e *SettlementMismatchError) Unwrap() error {
	return ErrSettlementMismatch
}

// StageError marks the pipeline stage at which a sale was aborted
type StageError struct {
	Stage  Stage
	TxHash common.Hash
	Err    error
}

func (e *StageError) Error() string {
	if e.TxHash != (common.Hash{}) {
		return fmt.Sprintf("stage %s aborted (tx %s): %v", e.Stage, e.TxHash.Hex(), e.Err)
	}
	return fmt.Sprintf("stage %s aborted: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// IsValidationError reports whether err is one of the pre-submission order checks
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidRate) ||
		errors.Is(err, ErrMalformedOrder) ||
		errors.Is(err, ErrConsiderationMismatch) ||
		errors.Is(err, ErrInvalidTimeWindow)
}

func malformed(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrMalformedOrder, fmt.Sprintf(format, args...))
}
