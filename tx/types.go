package tx

import (
	"errors"
)

type SuretyTxType uint8

const (
	SuretyTxTypeUnknown            SuretyTxType = 0
	SuretyTxTypeRegisterAirline    SuretyTxType = 1
	SuretyTxTypeFundAirline        SuretyTxType = 2
	SuretyTxTypeRegisterFlight     SuretyTxType = 3
	SuretyTxTypeFetchFlightStatus  SuretyTxType = 4
	SuretyTxTypeUpdateFlightStatus SuretyTxType = 5
	SuretyTxTypeBuy                SuretyTxType = 6
	SuretyTxTypeWithdraw           SuretyTxType = 7
	SuretyTxTypeSetPaused          SuretyTxType = 8
	SuretyTxTypeAuthorizeCaller    SuretyTxType = 9
	SuretyTxTypeResetAirlineVotes  SuretyTxType = 10
)

var txTypeNames = map[SuretyTxType]string{
	SuretyTxTypeRegisterAirline:    "register_airline",
	SuretyTxTypeFundAirline:        "fund_airline",
	SuretyTxTypeRegisterFlight:     "register_flight",
	SuretyTxTypeFetchFlightStatus:  "fetch_flight_status",
	SuretyTxTypeUpdateFlightStatus: "update_flight_status",
	SuretyTxTypeBuy:                "buy",
	SuretyTxTypeWithdraw:           "withdraw",
	SuretyTxTypeSetPaused:          "set_paused",
	SuretyTxTypeAuthorizeCaller:    "authorize_caller",
	SuretyTxTypeResetAirlineVotes:  "reset_airline_votes",
}

func (t SuretyTxType) String() string {
	if n, ok := txTypeNames[t]; ok {
		return n
	}
	return "unknown"
}

const (
	SuretyTxVersion0 uint8 = 0
)

var (
	ErrInvalidTx            = errors.New("invalid tx")
	ErrUnsupportedTxType    = errors.New("unsupported tx type")
	ErrUnsupportedTxVersion = errors.New("unsupported tx version")
	ErrSenderMismatch       = errors.New("sender does not match signature")
)
