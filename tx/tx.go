package tx

import (
	"crypto/ecdsa"
	"encoding/json"
	"fmt"
	"math/big"

	"github.com/calehh/surety-app/types"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

type SuretyTx struct {
	Version uint8          `json:"version"`
	Type    SuretyTxType   `json:"type"`
	Nonce   uint64         `json:"nonce"`
	Sender  common.Address `json:"sender"`
	Value   *big.Int       `json:"value,omitempty"`
	Tx      any            `json:"tx"`
	Sig     []byte         `json:"sig"`
}

type RegisterAirlineTx struct {
	Airline common.Address `json:"airline"`
}

// FundAirlineTx funds the sender; the amount is the transaction value.
type FundAirlineTx struct{}

// ResetAirlineVotesTx abandons the registration tally of a candidate.
type ResetAirlineVotesTx struct {
	Airline common.Address `json:"airline"`
}

type FlightTx struct {
	Airline   common.Address `json:"airline"`
	Code      string         `json:"code"`
	Timestamp uint64         `json:"timestamp"`
}

type RegisterFlightTx struct {
	FlightTx
}

type FetchFlightStatusTx struct {
	FlightTx
}

type UpdateFlightStatusTx struct {
	FlightTx
	Status types.FlightStatus `json:"status"`
}

// BuyTx buys a policy; the premium is the transaction value.
type BuyTx struct {
	FlightTx
}

type WithdrawTx struct{}

type SetPausedTx struct {
	Surface types.Surface `json:"surface"`
	Paused  bool          `json:"paused"`
}

type AuthorizeCallerTx struct {
	Surface    types.Surface  `json:"surface"`
	Caller     common.Address `json:"caller"`
	Authorized bool           `json:"authorized"`
}

type suretyTxTmpl[Tx any] struct {
	Version uint8          `json:"version"`
	Type    SuretyTxType   `json:"type"`
	Nonce   uint64         `json:"nonce"`
	Sender  common.Address `json:"sender"`
	Value   *big.Int       `json:"value,omitempty"`
	Tx      Tx             `json:"tx"`
	Sig     []byte         `json:"sig"`
}

// SigData is the signing payload: the transaction with the chain id in
// place of the signature.
func (tx *SuretyTx) SigData(chainId []byte) (dat []byte, err error) {
	ntx := *tx
	ntx.Sig = chainId
	dat, err = json.Marshal(ntx)
	return
}

func (tx *SuretyTx) Sign(chainId []byte, key *ecdsa.PrivateKey) (err error) {
	tx.Sender = crypto.PubkeyToAddress(key.PublicKey)
	dat, err := tx.SigData(chainId)
	if err != nil {
		return
	}
	sig, err := crypto.Sign(crypto.Keccak256(dat), key)
	if err != nil {
		return
	}
	tx.Sig = sig
	return
}

// Verify recovers the signer and checks it is the declared sender.
func (tx *SuretyTx) Verify(chainId []byte) (err error) {
	if len(tx.Sig) != crypto.SignatureLength {
		return fmt.Errorf("signature length %v: %w", len(tx.Sig), ErrInvalidTx)
	}
	dat, err := tx.SigData(chainId)
	if err != nil {
		return
	}
	pub, err := crypto.SigToPub(crypto.Keccak256(dat), tx.Sig)
	if err != nil {
		return
	}
	if crypto.PubkeyToAddress(*pub) != tx.Sender {
		return ErrSenderMismatch
	}
	return
}

func (tx *SuretyTx) Amount() *big.Int {
	if tx.Value == nil {
		return new(big.Int)
	}
	return tx.Value
}

func parseSuretyTxType(dat []byte) SuretyTxType {
	var tx struct {
		Type SuretyTxType `json:"type"`
	}
	err := json.Unmarshal(dat, &tx)
	if err != nil {
		return SuretyTxTypeUnknown
	}
	return tx.Type
}

func unmarshalSuretyTx[Tx any](dat []byte) (btx *SuretyTx, err error) {
	var txt suretyTxTmpl[Tx]
	err = json.Unmarshal(dat, &txt)
	if err != nil {
		return
	}
	if txt.Version != SuretyTxVersion0 {
		return nil, ErrUnsupportedTxVersion
	}
	btx = new(SuretyTx)
	btx.Version = txt.Version
	btx.Type = txt.Type
	btx.Nonce = txt.Nonce
	btx.Sender = txt.Sender
	btx.Value = txt.Value
	btx.Tx = &txt.Tx
	btx.Sig = txt.Sig
	return
}

func UnmarshalSuretyTx(dat []byte) (btx *SuretyTx, err error) {
	tp := parseSuretyTxType(dat)
	switch tp {
	case SuretyTxTypeRegisterAirline:
		return unmarshalSuretyTx[RegisterAirlineTx](dat)
	case SuretyTxTypeFundAirline:
		return unmarshalSuretyTx[FundAirlineTx](dat)
	case SuretyTxTypeRegisterFlight:
		return unmarshalSuretyTx[RegisterFlightTx](dat)
	case SuretyTxTypeFetchFlightStatus:
		return unmarshalSuretyTx[FetchFlightStatusTx](dat)
	case SuretyTxTypeUpdateFlightStatus:
		return unmarshalSuretyTx[UpdateFlightStatusTx](dat)
	case SuretyTxTypeBuy:
		return unmarshalSuretyTx[BuyTx](dat)
	case SuretyTxTypeWithdraw:
		return unmarshalSuretyTx[WithdrawTx](dat)
	case SuretyTxTypeSetPaused:
		return unmarshalSuretyTx[SetPausedTx](dat)
	case SuretyTxTypeAuthorizeCaller:
		return unmarshalSuretyTx[AuthorizeCallerTx](dat)
	case SuretyTxTypeResetAirlineVotes:
		return unmarshalSuretyTx[ResetAirlineVotesTx](dat)
	default:
		err = ErrUnsupportedTxType
	}
	return
}

func MarshalSuretyTx(btx *SuretyTx) (dat []byte, err error) {
	return json.Marshal(btx)
}
