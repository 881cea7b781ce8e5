package types

import (
	"fmt"
	"math/big"
	"strconv"

	abci "github.com/cometbft/cometbft/abci/types"
	"github.com/ethereum/go-ethereum/common"
)

const (
	EventPausedType            = "paused"
	EventUnpausedType          = "unpaused"
	EventCallerAuthorizedType  = "caller_authorized"
	EventAirlineRegisteredType = "airline_registered"
	EventAirlineVoteType       = "airline_vote"
	EventVotesResetType        = "airline_votes_reset"
	EventAirlineFundedType     = "airline_funded"
	EventFlightRegisteredType  = "flight_registered"
	EventOracleRequestType     = "oracle_request"
	EventFlightStatusType      = "flight_status"
	EventPolicyPurchasedType   = "policy_purchased"
	EventInsureeCreditedType   = "insuree_credited"
	EventWithdrawalType        = "withdrawal"
)

type EventOperatingStatus struct {
	Surface Surface        `json:"surface"`
	Paused  bool           `json:"paused"`
	Account common.Address `json:"account"`
}

func EncodeEventOperatingStatus(event *EventOperatingStatus) abci.Event {
	tp := EventUnpausedType
	if event.Paused {
		tp = EventPausedType
	}
	return abci.Event{
		Type: tp,
		Attributes: []abci.EventAttribute{
			{Key: "surface", Value: event.Surface.String(), Index: true},
			{Key: "account", Value: event.Account.Hex(), Index: false},
		},
	}
}

func DecodeEventOperatingStatus(originEvent abci.Event) *EventOperatingStatus {
	event := &EventOperatingStatus{Paused: originEvent.Type == EventPausedType}
	for _, v := range originEvent.Attributes {
		switch v.Key {
		case "surface":
			s, err := ParseSurface(v.Value)
			if err != nil {
				return nil
			}
			event.Surface = s
		case "account":
			event.Account = common.HexToAddress(v.Value)
		}
	}
	return event
}

type EventCallerAuthorized struct {
	Surface    Surface        `json:"surface"`
	Caller     common.Address `json:"caller"`
	Authorized bool           `json:"authorized"`
}

func EncodeEventCallerAuthorized(event *EventCallerAuthorized) abci.Event {
	return abci.Event{
		Type: EventCallerAuthorizedType,
		Attributes: []abci.EventAttribute{
			{Key: "surface", Value: event.Surface.String(), Index: true},
			{Key: "caller", Value: event.Caller.Hex(), Index: true},
			{Key: "authorized", Value: fmt.Sprintf("%v", event.Authorized), Index: false},
		},
	}
}

func DecodeEventCallerAuthorized(originEvent abci.Event) *EventCallerAuthorized {
	event := &EventCallerAuthorized{}
	for _, v := range originEvent.Attributes {
		switch v.Key {
		case "surface":
			s, err := ParseSurface(v.Value)
			if err != nil {
				return nil
			}
			event.Surface = s
		case "caller":
			event.Caller = common.HexToAddress(v.Value)
		case "authorized":
			authorized, err := strconv.ParseBool(v.Value)
			if err != nil {
				return nil
			}
			event.Authorized = authorized
		}
	}
	return event
}

type EventAirlineRegistered struct {
	Airline   common.Address `json:"airline"`
	Index     uint64         `json:"index"`
	Registrar common.Address `json:"registrar"`
	Votes     uint64         `json:"votes"`
}

func EncodeEventAirlineRegistered(event *EventAirlineRegistered) abci.Event {
	return abci.Event{
		Type: EventAirlineRegisteredType,
		Attributes: []abci.EventAttribute{
			{Key: "airline", Value: event.Airline.Hex(), Index: true},
			{Key: "index", Value: fmt.Sprintf("%v", event.Index), Index: false},
			{Key: "registrar", Value: event.Registrar.Hex(), Index: false},
			{Key: "votes", Value: fmt.Sprintf("%v", event.Votes), Index: false},
		},
	}
}

func DecodeEventAirlineRegistered(originEvent abci.Event) *EventAirlineRegistered {
	event := &EventAirlineRegistered{}
	for _, v := range originEvent.Attributes {
		switch v.Key {
		case "airline":
			event.Airline = common.HexToAddress(v.Value)
		case "index":
			index, err := strconv.ParseUint(v.Value, 10, 64)
			if err != nil {
				return nil
			}
			event.Index = index
		case "registrar":
			event.Registrar = common.HexToAddress(v.Value)
		case "votes":
			votes, err := strconv.ParseUint(v.Value, 10, 64)
			if err != nil {
				return nil
			}
			event.Votes = votes
		}
	}
	return event
}

type EventAirlineVote struct {
	Candidate common.Address `json:"candidate"`
	Voter     common.Address `json:"voter"`
	Votes     uint64         `json:"votes"`
	Required  uint64         `json:"required"`
}

func EncodeEventAirlineVote(event *EventAirlineVote) abci.Event {
	return abci.Event{
		Type: EventAirlineVoteType,
		Attributes: []abci.EventAttribute{
			{Key: "candidate", Value: event.Candidate.Hex(), Index: true},
			{Key: "voter", Value: event.Voter.Hex(), Index: true},
			{Key: "votes", Value: fmt.Sprintf("%v", event.Votes), Index: false},
			{Key: "required", Value: fmt.Sprintf("%v", event.Required), Index: false},
		},
	}
}

func DecodeEventAirlineVote(originEvent abci.Event) *EventAirlineVote {
	event := &EventAirlineVote{}
	for _, v := range originEvent.Attributes {
		switch v.Key {
		case "candidate":
			event.Candidate = common.HexToAddress(v.Value)
		case "voter":
			event.Voter = common.HexToAddress(v.Value)
		case "votes":
			votes, err := strconv.ParseUint(v.Value, 10, 64)
			if err != nil {
				return nil
			}
			event.Votes = votes
		case "required":
			required, err := strconv.ParseUint(v.Value, 10, 64)
			if err != nil {
				return nil
			}
			event.Required = required
		}
	}
	return event
}

// EventVotesReset reports an abandoned registration tally.
type EventVotesReset struct {
	Candidate common.Address `json:"candidate"`
	Account   common.Address `json:"account"`
	Votes     uint64         `json:"votes"`
}

func EncodeEventVotesReset(event *EventVotesReset) abci.Event {
	return abci.Event{
		Type: EventVotesResetType,
		Attributes: []abci.EventAttribute{
			{Key: "candidate", Value: event.Candidate.Hex(), Index: true},
			{Key: "account", Value: event.Account.Hex(), Index: false},
			{Key: "votes", Value: fmt.Sprintf("%v", event.Votes), Index: false},
		},
	}
}

func DecodeEventVotesReset(originEvent abci.Event) *EventVotesReset {
	event := &EventVotesReset{}
	for _, v := range originEvent.Attributes {
		switch v.Key {
		case "candidate":
			event.Candidate = common.HexToAddress(v.Value)
		case "account":
			event.Account = common.HexToAddress(v.Value)
		case "votes":
			votes, err := strconv.ParseUint(v.Value, 10, 64)
			if err != nil {
				return nil
			}
			event.Votes = votes
		}
	}
	return event
}

type EventAirlineFunded struct {
	Airline     common.Address `json:"airline"`
	Amount      *big.Int       `json:"amount"`
	Funded      *big.Int       `json:"funded"`
	Operational bool           `json:"operational"`
}

func EncodeEventAirlineFunded(event *EventAirlineFunded) abci.Event {
	return abci.Event{
		Type: EventAirlineFundedType,
		Attributes: []abci.EventAttribute{
			{Key: "airline", Value: event.Airline.Hex(), Index: true},
			{Key: "amount", Value: event.Amount.String(), Index: false},
			{Key: "funded", Value: event.Funded.String(), Index: false},
			{Key: "operational", Value: fmt.Sprintf("%v", event.Operational), Index: false},
		},
	}
}

func DecodeEventAirlineFunded(originEvent abci.Event) *EventAirlineFunded {
	event := &EventAirlineFunded{}
	for _, v := range originEvent.Attributes {
		switch v.Key {
		case "airline":
			event.Airline = common.HexToAddress(v.Value)
		case "amount":
			amount, ok := new(big.Int).SetString(v.Value, 10)
			if !ok {
				return nil
			}
			event.Amount = amount
		case "funded":
			funded, ok := new(big.Int).SetString(v.Value, 10)
			if !ok {
				return nil
			}
			event.Funded = funded
		case "operational":
			operational, err := strconv.ParseBool(v.Value)
			if err != nil {
				return nil
			}
			event.Operational = operational
		}
	}
	return event
}

type EventFlight struct {
	Key       common.Hash    `json:"key"`
	Airline   common.Address `json:"airline"`
	Code      string         `json:"code"`
	Timestamp uint64         `json:"timestamp"`
	Status    FlightStatus   `json:"status"`
	Index     uint64         `json:"index"`
	Requester common.Address `json:"requester"`
}

// EncodeEventFlight is shared by flight_registered, oracle_request and
// flight_status; for oracle_request Index is the request index.
func EncodeEventFlight(tp string, event *EventFlight) abci.Event {
	attrs := []abci.EventAttribute{
		{Key: "key", Value: event.Key.Hex(), Index: true},
		{Key: "airline", Value: event.Airline.Hex(), Index: true},
		{Key: "code", Value: event.Code, Index: false},
		{Key: "timestamp", Value: fmt.Sprintf("%v", event.Timestamp), Index: false},
		{Key: "status", Value: fmt.Sprintf("%v", uint8(event.Status)), Index: false},
		{Key: "index", Value: fmt.Sprintf("%v", event.Index), Index: false},
	}
	if tp == EventOracleRequestType {
		attrs = append(attrs, abci.EventAttribute{Key: "requester", Value: event.Requester.Hex(), Index: false})
	}
	return abci.Event{Type: tp, Attributes: attrs}
}

func DecodeEventFlight(originEvent abci.Event) *EventFlight {
	event := &EventFlight{}
	for _, v := range originEvent.Attributes {
		switch v.Key {
		case "key":
			event.Key = common.HexToHash(v.Value)
		case "airline":
			event.Airline = common.HexToAddress(v.Value)
		case "code":
			event.Code = v.Value
		case "timestamp":
			ts, err := strconv.ParseUint(v.Value, 10, 64)
			if err != nil {
				return nil
			}
			event.Timestamp = ts
		case "status":
			status, err := strconv.ParseUint(v.Value, 10, 8)
			if err != nil {
				return nil
			}
			event.Status = FlightStatus(status)
		case "index":
			index, err := strconv.ParseUint(v.Value, 10, 64)
			if err != nil {
				return nil
			}
			event.Index = index
		case "requester":
			event.Requester = common.HexToAddress(v.Value)
		}
	}
	return event
}

type EventPolicy struct {
	Insuree   common.Address `json:"insuree"`
	FlightKey common.Hash    `json:"flightKey"`
	Amount    *big.Int       `json:"amount"`
}

// EncodeEventPolicy is shared by policy_purchased (Amount is the premium),
// insuree_credited (Amount is the payout) and withdrawal (FlightKey empty).
func EncodeEventPolicy(tp string, event *EventPolicy) abci.Event {
	return abci.Event{
		Type: tp,
		Attributes: []abci.EventAttribute{
			{Key: "insuree", Value: event.Insuree.Hex(), Index: true},
			{Key: "flight", Value: event.FlightKey.Hex(), Index: true},
			{Key: "amount", Value: event.Amount.String(), Index: false},
		},
	}
}

func DecodeEventPolicy(originEvent abci.Event) *EventPolicy {
	event := &EventPolicy{}
	for _, v := range originEvent.Attributes {
		switch v.Key {
		case "insuree":
			event.Insuree = common.HexToAddress(v.Value)
		case "flight":
			event.FlightKey = common.HexToHash(v.Value)
		case "amount":
			amount, ok := new(big.Int).SetString(v.Value, 10)
			if !ok {
				return nil
			}
			event.Amount = amount
		}
	}
	return event
}
