package main

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"

	"github.com/calehh/surety-app/app"
	"github.com/calehh/surety-app/crypto"
	"github.com/calehh/surety-app/tx"
	"github.com/calehh/surety-app/types"
	"github.com/cometbft/cometbft/rpc/client/http"
	"github.com/ethereum/go-ethereum/common"
)

type txArguments struct {
	Url   string
	Key   string
	Nonce int64
}

func newClient(url string) (*http.HTTP, error) {
	cli, err := http.New(url, "/websocket")
	if err != nil {
		return nil, fmt.Errorf("new client: %w", err)
	}
	return cli, nil
}

// abciQuery runs an application query and decodes the JSON result into v.
func abciQuery(ctx context.Context, url string, path string, data []byte, v any) error {
	cli, err := newClient(url)
	if err != nil {
		return err
	}
	res, err := cli.ABCIQuery(ctx, path, data)
	if err != nil {
		return fmt.Errorf("query %v: %w", path, err)
	}
	if res.Response.Code != 0 {
		return fmt.Errorf("query %v: code %v %v", path, res.Response.Code, res.Response.Log)
	}
	return json.Unmarshal(res.Response.Value, v)
}

func printJSON(v any) {
	dat, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fmt.Printf("encode result err:%v\n", err)
		return
	}
	fmt.Println(string(dat))
}

// sendTx signs a transaction with the key file and broadcasts it. A negative
// nonce is replaced by the account's current nonce.
func sendTx(args *txArguments, tp tx.SuretyTxType, value *big.Int, payload any) error {
	ctx := context.Background()
	key, err := crypto.LoadKeyFile(args.Key)
	if err != nil {
		return err
	}
	cli, err := newClient(args.Url)
	if err != nil {
		return err
	}
	gres, err := cli.Genesis(ctx)
	if err != nil {
		return fmt.Errorf("get chain genesis: %w", err)
	}
	chainId := gres.Genesis.ChainID

	btx := &tx.SuretyTx{
		Version: tx.SuretyTxVersion0,
		Type:    tp,
		Value:   value,
		Tx:      payload,
	}
	if args.Nonce < 0 {
		var acnt app.AccountResult
		err = abciQuery(ctx, args.Url, "/accounts/", key.Address.Bytes(), &acnt)
		if err != nil {
			return err
		}
		btx.Nonce = acnt.Account.Nonce
	} else {
		btx.Nonce = uint64(args.Nonce)
	}
	err = btx.Sign([]byte(chainId), key.PrivKey)
	if err != nil {
		return fmt.Errorf("sign tx: %w", err)
	}
	dat, err := tx.MarshalSuretyTx(btx)
	if err != nil {
		return err
	}
	res, err := cli.BroadcastTxCommit(ctx, dat)
	if err != nil {
		return fmt.Errorf("broadcast tx: %w", err)
	}
	if res.CheckTx.Code != types.CodeOK {
		return fmt.Errorf("check tx: %v (code %v)", res.CheckTx.Log, res.CheckTx.Code)
	}
	if res.TxResult.Code != types.CodeOK {
		return fmt.Errorf("tx failed at height %v: %v (code %v)", res.Height, res.TxResult.Log, res.TxResult.Code)
	}
	fmt.Printf("tx %v committed at height %v\n", res.Hash, res.Height)
	for _, ev := range res.TxResult.Events {
		attrs := make(map[string]string, len(ev.Attributes))
		for _, a := range ev.Attributes {
			attrs[a.Key] = a.Value
		}
		printJSON(map[string]any{"type": ev.Type, "attributes": attrs})
	}
	return nil
}

func parseAddress(s string) (common.Address, error) {
	if !common.IsHexAddress(s) {
		return common.Address{}, fmt.Errorf("invalid address %q", s)
	}
	return common.HexToAddress(s), nil
}
