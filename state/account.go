package state

import (
	"encoding/json"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Account holds the spendable balance of an identity and the nonce of its
// next transaction.
type Account struct {
	Address common.Address
	Balance *big.Int
	Nonce   uint64
}

type accountSt struct {
	Address common.Address `json:"address"`
	Balance string         `json:"balance"`
	Nonce   uint64         `json:"nonce"`
}

func NewAccount(addr common.Address) *Account {
	return &Account{
		Address: addr,
		Balance: new(big.Int),
	}
}

func (a *Account) MarshalJSON() (dat []byte, err error) {
	o := accountSt{
		Address: a.Address,
		Balance: a.balance().String(),
		Nonce:   a.Nonce,
	}
	return json.Marshal(o)
}

func (a *Account) UnmarshalJSON(dat []byte) (err error) {
	var o accountSt
	err = json.Unmarshal(dat, &o)
	if err != nil {
		return
	}
	a.Address = o.Address
	a.Balance = new(big.Int)
	if o.Balance != "" {
		if _, ok := a.Balance.SetString(o.Balance, 10); !ok {
			return errInvalidBalance
		}
	}
	a.Nonce = o.Nonce
	return
}

func (a *Account) Clone() *Account {
	return &Account{
		Address: a.Address,
		Balance: new(big.Int).Set(a.balance()),
		Nonce:   a.Nonce,
	}
}

func (a *Account) balance() *big.Int {
	if a.Balance == nil {
		return new(big.Int)
	}
	return a.Balance
}
