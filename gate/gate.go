// Package gate implements the pause switch, the single owner and the
// authorized-caller allow list guarding one mutable surface.
package gate

import (
	"fmt"

	"github.com/calehh/surety-app/types"
	"github.com/ethereum/go-ethereum/common"
)

// Store is the key-value view a gate persists itself into.
type Store interface {
	Get(key []byte) ([]byte, error)
	Set(key, value []byte) error
	Delete(key []byte) error
}

var (
	keyOwner      = "%s/gate/owner"
	keyPaused     = "%s/gate/paused"
	keyAuthorized = "%s/gate/auth/%x"
)

type Gate struct {
	store   Store
	surface types.Surface
}

func New(store Store, surface types.Surface) *Gate {
	return &Gate{
		store:   store,
		surface: surface,
	}
}

func (g *Gate) Surface() types.Surface {
	return g.surface
}

func (g *Gate) key(format string, args ...any) []byte {
	return []byte(fmt.Sprintf(format, append([]any{g.surface.String()}, args...)...))
}

// Init sets the owner. It only succeeds once.
func (g *Gate) Init(owner common.Address) (err error) {
	cur, err := g.Owner()
	if err != nil {
		return
	}
	if cur != (common.Address{}) {
		return fmt.Errorf("%v gate owner: %w", g.surface, types.ErrAlreadyRegistered)
	}
	if owner == (common.Address{}) {
		return fmt.Errorf("%v gate owner is empty: %w", g.surface, types.ErrValueOutOfBounds)
	}
	return g.store.Set(g.key(keyOwner), owner.Bytes())
}

func (g *Gate) Owner() (owner common.Address, err error) {
	val, err := g.store.Get(g.key(keyOwner))
	if err != nil {
		return
	}
	owner = common.BytesToAddress(val)
	return
}

func (g *Gate) IsPaused() (paused bool, err error) {
	val, err := g.store.Get(g.key(keyPaused))
	if err != nil {
		return
	}
	paused = len(val) == 1 && val[0] == 1
	return
}

func (g *Gate) IsAuthorized(id common.Address) (bool, error) {
	val, err := g.store.Get(g.key(keyAuthorized, id.Bytes()))
	if err != nil {
		return false, err
	}
	return val != nil, nil
}

func (g *Gate) RequireNotPaused() error {
	paused, err := g.IsPaused()
	if err != nil {
		return err
	}
	if paused {
		return fmt.Errorf("%v surface: %w", g.surface, types.ErrPaused)
	}
	return nil
}

func (g *Gate) RequireOwner(id common.Address) error {
	owner, err := g.Owner()
	if err != nil {
		return err
	}
	if owner == (common.Address{}) || owner != id {
		return fmt.Errorf("%v is not the %v owner: %w", id.Hex(), g.surface, types.ErrNotAuthorized)
	}
	return nil
}

func (g *Gate) RequireAuthorized(id common.Address) error {
	ok, err := g.IsAuthorized(id)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%v is not authorized on %v: %w", id.Hex(), g.surface, types.ErrNotAuthorized)
	}
	return nil
}

// SetPaused is the only mutation accepted while paused. Setting the current
// value again succeeds without an event.
func (g *Gate) SetPaused(caller common.Address, paused bool) (event *types.EventOperatingStatus, err error) {
	err = g.RequireOwner(caller)
	if err != nil {
		return
	}
	cur, err := g.IsPaused()
	if err != nil {
		return
	}
	if cur == paused {
		return
	}
	var val byte
	if paused {
		val = 1
	}
	err = g.store.Set(g.key(keyPaused), []byte{val})
	if err != nil {
		return
	}
	event = &types.EventOperatingStatus{
		Surface: g.surface,
		Paused:  paused,
		Account: caller,
	}
	return
}

func (g *Gate) AuthorizeCaller(caller, id common.Address) (event *types.EventCallerAuthorized, err error) {
	return g.setAuthorized(caller, id, true)
}

func (g *Gate) DeauthorizeCaller(caller, id common.Address) (event *types.EventCallerAuthorized, err error) {
	return g.setAuthorized(caller, id, false)
}

func (g *Gate) setAuthorized(caller, id common.Address, authorized bool) (event *types.EventCallerAuthorized, err error) {
	err = g.RequireNotPaused()
	if err != nil {
		return
	}
	err = g.RequireOwner(caller)
	if err != nil {
		return
	}
	if authorized {
		err = g.store.Set(g.key(keyAuthorized, id.Bytes()), []byte{1})
	} else {
		err = g.store.Delete(g.key(keyAuthorized, id.Bytes()))
	}
	if err != nil {
		return
	}
	event = &types.EventCallerAuthorized{
		Surface:    g.surface,
		Caller:     id,
		Authorized: authorized,
	}
	return
}
