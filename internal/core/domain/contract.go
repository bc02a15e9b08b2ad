package domain

import "errors"

// =============================================================================
// Errors
// =============================================================================

var (
	// Contract validation errors
	ErrContractTickerRequired = errors.New("contract ticker is required")
	ErrContractInvalidType    = errors.New("contract type must be call or put")
	ErrContractInvalidStrike  = errors.New("contract strike price must be positive")
)

// =============================================================================
// Contract Types
// =============================================================================

// ContractType identifies the side of an options contract.
type ContractType string

const (
	ContractTypeCall ContractType = "call"
	ContractTypePut  ContractType = "put"
)

// IsValid checks if the contract type is valid.
func (ct ContractType) IsValid() bool {
	switch ct {
	case ContractTypeCall, ContractTypePut:
		return true
	default:
		return false
	}
}

// =============================================================================
// Contract
// =============================================================================

// Contract is a single options contract from a chain snapshot.
// Volume, LastPrice, and ImpliedVolatility are nil when the upstream
// snapshot did not include them.
type Contract struct {
	Ticker            string       `json:"ticker"`
	Underlying        string       `json:"underlying"`
	Type              ContractType `json:"type"`
	StrikePrice       float64      `json:"strike_price"`
	ExpirationDate    string       `json:"expiration_date"`
	Volume            *float64     `json:"volume,omitempty"`
	LastPrice         *float64     `json:"last_trade_price,omitempty"`
	ImpliedVolatility *float64     `json:"implied_volatility,omitempty"`
}

// Validate checks the contract's required fields.
func (c Contract) Validate() error {
	if c.Ticker == "" {
		return ErrContractTickerRequired
	}
	if !c.Type.IsValid() {
		return ErrContractInvalidType
	}
	if c.StrikePrice <= 0 {
		return ErrContractInvalidStrike
	}
	return nil
}

// InTheMoney reports whether the contract is in the money at the given
// underlying price. Calls are ITM strictly below the underlying, puts
// strictly above it.
func (c Contract) InTheMoney(underlying float64) bool {
	switch c.Type {
	case ContractTypeCall:
		return c.StrikePrice < underlying
	case ContractTypePut:
		return c.StrikePrice > underlying
	default:
		return false
	}
}

// VolumeOrZero returns the day volume, treating a missing volume as zero.
func (c Contract) VolumeOrZero() float64 {
	if c.Volume == nil {
		return 0
	}
	return *c.Volume
}
