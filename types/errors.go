package types

import (
	"errors"
)

const Codespace = "surety"

var (
	ErrNotAuthorized       = errors.New("not authorized")
	ErrNotOperational      = errors.New("airline not operational")
	ErrAlreadyRegistered   = errors.New("already registered")
	ErrAlreadyVoted        = errors.New("already voted")
	ErrAlreadyPurchased    = errors.New("insurance already purchased")
	ErrInvalidTiming       = errors.New("invalid timing")
	ErrValueOutOfBounds    = errors.New("value out of bounds")
	ErrPaused              = errors.New("paused")
	ErrNotFound            = errors.New("not found")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrFlightSettled       = errors.New("flight status already settled")
)

const (
	CodeOK                  uint32 = 0
	CodeInternal            uint32 = 1
	CodeNotAuthorized       uint32 = 2
	CodeNotOperational      uint32 = 3
	CodeAlreadyRegistered   uint32 = 4
	CodeAlreadyVoted        uint32 = 5
	CodeAlreadyPurchased    uint32 = 6
	CodeInvalidTiming       uint32 = 7
	CodeValueOutOfBounds    uint32 = 8
	CodePaused              uint32 = 9
	CodeNotFound            uint32 = 10
	CodeInsufficientBalance uint32 = 11
	CodeFlightSettled       uint32 = 12
	CodeInvalidTx           uint32 = 20
)

var errorCodes = []struct {
	err  error
	code uint32
}{
	{ErrNotAuthorized, CodeNotAuthorized},
	{ErrNotOperational, CodeNotOperational},
	{ErrAlreadyRegistered, CodeAlreadyRegistered},
	{ErrAlreadyVoted, CodeAlreadyVoted},
	{ErrAlreadyPurchased, CodeAlreadyPurchased},
	{ErrInvalidTiming, CodeInvalidTiming},
	{ErrValueOutOfBounds, CodeValueOutOfBounds},
	{ErrPaused, CodePaused},
	{ErrNotFound, CodeNotFound},
	{ErrInsufficientBalance, CodeInsufficientBalance},
	{ErrFlightSettled, CodeFlightSettled},
}

// ErrorCode maps err to the result code reported in a transaction result.
func ErrorCode(err error) uint32 {
	if err == nil {
		return CodeOK
	}
	for _, ec := range errorCodes {
		if errors.Is(err, ec.err) {
			return ec.code
		}
	}
	return CodeInternal
}

// CodeError is the inverse of ErrorCode, used by clients reading results.
func CodeError(code uint32) error {
	for _, ec := range errorCodes {
		if ec.code == code {
			return ec.err
		}
	}
	return nil
}
