package types

import (
	"encoding/binary"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

type Surface uint8

const (
	SurfaceUnknown Surface = 0
	SurfaceData    Surface = 1
	SurfaceApp     Surface = 2
)

func (s Surface) String() string {
	switch s {
	case SurfaceData:
		return "data"
	case SurfaceApp:
		return "app"
	}
	return "unknown"
}

func ParseSurface(s string) (Surface, error) {
	switch strings.ToLower(s) {
	case "data":
		return SurfaceData, nil
	case "app":
		return SurfaceApp, nil
	}
	return SurfaceUnknown, fmt.Errorf("unknown surface %q", s)
}

type FlightStatus uint8

const (
	FlightStatusUnknown       FlightStatus = 0
	FlightStatusOnTime        FlightStatus = 10
	FlightStatusLateAirline   FlightStatus = 20
	FlightStatusLateWeather   FlightStatus = 30
	FlightStatusLateTechnical FlightStatus = 40
	FlightStatusLateOther     FlightStatus = 50
)

var flightStatusNames = map[FlightStatus]string{
	FlightStatusUnknown:       "unknown",
	FlightStatusOnTime:        "on_time",
	FlightStatusLateAirline:   "late_airline",
	FlightStatusLateWeather:   "late_weather",
	FlightStatusLateTechnical: "late_technical",
	FlightStatusLateOther:     "late_other",
}

func (s FlightStatus) String() string {
	if n, ok := flightStatusNames[s]; ok {
		return n
	}
	return fmt.Sprintf("status(%d)", uint8(s))
}

func (s FlightStatus) Valid() bool {
	_, ok := flightStatusNames[s]
	return ok
}

func ParseFlightStatus(s string) (FlightStatus, error) {
	for st, n := range flightStatusNames {
		if n == strings.ToLower(s) {
			return st, nil
		}
	}
	return FlightStatusUnknown, fmt.Errorf("unknown flight status %q", s)
}

// Airline is created on registration and only ever gains funding.
type Airline struct {
	Address      common.Address `json:"address"`
	Index        uint64         `json:"index"`
	Registered   bool           `json:"registered"`
	FundedAmount *big.Int       `json:"fundedAmount"`
}

func (a *Airline) Operational(threshold *big.Int) bool {
	if a == nil || !a.Registered || a.FundedAmount == nil {
		return false
	}
	return a.FundedAmount.Cmp(threshold) >= 0
}

type Flight struct {
	Key       common.Hash    `json:"key"`
	Airline   common.Address `json:"airline"`
	Code      string         `json:"code"`
	Timestamp uint64         `json:"timestamp"`
	Status    FlightStatus   `json:"status"`
	Index     uint64         `json:"index"`
}

// FlightKey is keccak256(airline || code || timestamp).
func FlightKey(airline common.Address, code string, timestamp uint64) common.Hash {
	ts := make([]byte, 8)
	binary.BigEndian.PutUint64(ts, timestamp)
	return crypto.Keccak256Hash(airline.Bytes(), []byte(code), ts)
}

type Policy struct {
	Insuree   common.Address `json:"insuree"`
	FlightKey common.Hash    `json:"flightKey"`
	Premium   *big.Int       `json:"premium"`
	Payout    *big.Int       `json:"payout"`
	Claimed   bool           `json:"claimed"`
}
