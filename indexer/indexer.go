package indexer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/calehh/surety-app/types"
	abci "github.com/cometbft/cometbft/abci/types"
	cmtlog "github.com/cometbft/cometbft/libs/log"
	comethttp "github.com/cometbft/cometbft/rpc/client/http"
	coretypes "github.com/cometbft/cometbft/rpc/core/types"
	"github.com/jinzhu/gorm"
	_ "github.com/jinzhu/gorm/dialects/sqlite"
)

// ChainClient is the part of the CometBFT RPC client the indexer polls.
type ChainClient interface {
	Status(ctx context.Context) (*coretypes.ResultStatus, error)
	BlockResults(ctx context.Context, height *int64) (*coretypes.ResultBlockResults, error)
}

type ChainIndexer struct {
	logger        cmtlog.Logger
	Url           string
	Height        int64
	db            *gorm.DB
	cli           ChainClient
	interval      time.Duration
	eventHandlers map[string]eventHandler
}

// OpenDB opens the sqlite database at dbPath and migrates the models.
func OpenDB(dbPath string) (*gorm.DB, error) {
	db, err := gorm.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}
	// a single connection keeps ":memory:" databases shared
	db.DB().SetMaxOpenConns(1)
	if err := db.AutoMigrate(&Height{}, &Airline{}, &AirlineVote{}, &Flight{}, &OracleRequest{},
		&Policy{}, &Withdrawal{}, &OperatingStatus{}, &Authorization{}).Error; err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

func NewChainIndexer(logger cmtlog.Logger, dbPath string, chainUrl string, interval time.Duration) (*ChainIndexer, error) {
	logger.Info("NewChainIndexer", "dbPath", dbPath, "url", chainUrl)
	cli, err := comethttp.New(chainUrl, "/websocket")
	if err != nil {
		return nil, err
	}
	db, err := OpenDB(dbPath)
	if err != nil {
		return nil, err
	}
	c, err := newChainIndexer(logger, db, cli, interval)
	if err != nil {
		db.Close()
		return nil, err
	}
	c.Url = chainUrl
	return c, nil
}

func newChainIndexer(logger cmtlog.Logger, db *gorm.DB, cli ChainClient, interval time.Duration) (*ChainIndexer, error) {
	h := Height{Id: 1}
	if err := db.First(&h).Error; err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	if interval <= 0 {
		interval = time.Second
	}
	c := &ChainIndexer{
		logger:   logger.With("module", "indexer"),
		Height:   int64(h.Height + 1),
		db:       db,
		cli:      cli,
		interval: interval,
	}
	c.eventHandlers = map[string]eventHandler{
		types.EventAirlineRegisteredType: c.handleEventAirlineRegistered,
		types.EventAirlineVoteType:       c.handleEventAirlineVote,
		types.EventVotesResetType:        c.handleEventVotesReset,
		types.EventAirlineFundedType:     c.handleEventAirlineFunded,
		types.EventFlightRegisteredType:  c.handleEventFlightRegistered,
		types.EventOracleRequestType:     c.handleEventOracleRequest,
		types.EventFlightStatusType:      c.handleEventFlightStatus,
		types.EventPolicyPurchasedType:   c.handleEventPolicyPurchased,
		types.EventInsureeCreditedType:   c.handleEventInsureeCredited,
		types.EventWithdrawalType:        c.handleEventWithdrawal,
		types.EventPausedType:            c.handleEventOperatingStatus,
		types.EventUnpausedType:          c.handleEventOperatingStatus,
		types.EventCallerAuthorizedType:  c.handleEventCallerAuthorized,
	}
	return c, nil
}

func (c *ChainIndexer) Close() error {
	return c.db.Close()
}

type eventHandler func(db *gorm.DB, event abci.Event, height int64) error

var errDecodeEvent = errors.New("decode event fail")

func (c *ChainIndexer) handleEvent(tx *gorm.DB, event abci.Event, height int64) error {
	h, ok := c.eventHandlers[event.Type]
	if !ok {
		return nil
	}
	return h(tx, event, height)
}

func (c *ChainIndexer) handleEventAirlineRegistered(db *gorm.DB, event abci.Event, height int64) error {
	ev := types.DecodeEventAirlineRegistered(event)
	if ev == nil {
		return errDecodeEvent
	}
	a, err := c.airline(db, ev.Airline.Hex())
	if err != nil {
		return err
	}
	a.Index = ev.Index
	a.Registered = true
	a.Registrar = ev.Registrar.Hex()
	a.Votes = ev.Votes
	a.RegisterHeight = uint64(height)
	return db.Save(a).Error
}

func (c *ChainIndexer) handleEventAirlineVote(db *gorm.DB, event abci.Event, height int64) error {
	ev := types.DecodeEventAirlineVote(event)
	if ev == nil {
		return errDecodeEvent
	}
	return db.Create(&AirlineVote{
		Candidate: ev.Candidate.Hex(),
		Voter:     ev.Voter.Hex(),
		Votes:     ev.Votes,
		Required:  ev.Required,
		Height:    uint64(height),
	}).Error
}

// handleEventVotesReset drops the abandoned tally of a candidate.
func (c *ChainIndexer) handleEventVotesReset(db *gorm.DB, event abci.Event, height int64) error {
	ev := types.DecodeEventVotesReset(event)
	if ev == nil {
		return errDecodeEvent
	}
	return db.Where("candidate = ?", ev.Candidate.Hex()).Delete(&AirlineVote{}).Error
}

func (c *ChainIndexer) handleEventAirlineFunded(db *gorm.DB, event abci.Event, height int64) error {
	ev := types.DecodeEventAirlineFunded(event)
	if ev == nil {
		return errDecodeEvent
	}
	a, err := c.airline(db, ev.Airline.Hex())
	if err != nil {
		return err
	}
	a.Funded = ev.Funded.String()
	a.Operational = ev.Operational
	a.FundHeight = uint64(height)
	return db.Save(a).Error
}

func (c *ChainIndexer) handleEventFlightRegistered(db *gorm.DB, event abci.Event, height int64) error {
	ev := types.DecodeEventFlight(event)
	if ev == nil {
		return errDecodeEvent
	}
	return db.Save(&Flight{
		Key:            ev.Key.Hex(),
		Airline:        ev.Airline.Hex(),
		Code:           ev.Code,
		Timestamp:      ev.Timestamp,
		Status:         uint8(ev.Status),
		StatusName:     ev.Status.String(),
		Index:          ev.Index,
		RegisterHeight: uint64(height),
	}).Error
}

func (c *ChainIndexer) handleEventOracleRequest(db *gorm.DB, event abci.Event, height int64) error {
	ev := types.DecodeEventFlight(event)
	if ev == nil {
		return errDecodeEvent
	}
	return db.Create(&OracleRequest{
		Request:   ev.Index,
		FlightKey: ev.Key.Hex(),
		Airline:   ev.Airline.Hex(),
		Code:      ev.Code,
		Timestamp: ev.Timestamp,
		Requester: ev.Requester.Hex(),
		Height:    uint64(height),
	}).Error
}

func (c *ChainIndexer) handleEventFlightStatus(db *gorm.DB, event abci.Event, height int64) error {
	ev := types.DecodeEventFlight(event)
	if ev == nil {
		return errDecodeEvent
	}
	var f Flight
	if err := db.Where("`key` = ?", ev.Key.Hex()).First(&f).Error; err != nil {
		return fmt.Errorf("flight %v: %w", ev.Key.Hex(), err)
	}
	f.Status = uint8(ev.Status)
	f.StatusName = ev.Status.String()
	f.StatusHeight = uint64(height)
	return db.Save(&f).Error
}

func (c *ChainIndexer) handleEventPolicyPurchased(db *gorm.DB, event abci.Event, height int64) error {
	ev := types.DecodeEventPolicy(event)
	if ev == nil {
		return errDecodeEvent
	}
	return db.Create(&Policy{
		Insuree:   ev.Insuree.Hex(),
		FlightKey: ev.FlightKey.Hex(),
		Premium:   ev.Amount.String(),
		Payout:    "0",
		Height:    uint64(height),
	}).Error
}

func (c *ChainIndexer) handleEventInsureeCredited(db *gorm.DB, event abci.Event, height int64) error {
	ev := types.DecodeEventPolicy(event)
	if ev == nil {
		return errDecodeEvent
	}
	var p Policy
	err := db.Where("insuree = ? AND flight_key = ?", ev.Insuree.Hex(), ev.FlightKey.Hex()).First(&p).Error
	if err != nil {
		return fmt.Errorf("policy %v/%v: %w", ev.FlightKey.Hex(), ev.Insuree.Hex(), err)
	}
	p.Payout = ev.Amount.String()
	p.Credited = true
	p.CreditHeight = uint64(height)
	return db.Save(&p).Error
}

func (c *ChainIndexer) handleEventWithdrawal(db *gorm.DB, event abci.Event, height int64) error {
	ev := types.DecodeEventPolicy(event)
	if ev == nil {
		return errDecodeEvent
	}
	return db.Create(&Withdrawal{
		Insuree: ev.Insuree.Hex(),
		Amount:  ev.Amount.String(),
		Height:  uint64(height),
	}).Error
}

func (c *ChainIndexer) handleEventOperatingStatus(db *gorm.DB, event abci.Event, height int64) error {
	ev := types.DecodeEventOperatingStatus(event)
	if ev == nil {
		return errDecodeEvent
	}
	return db.Save(&OperatingStatus{
		Surface: ev.Surface.String(),
		Paused:  ev.Paused,
		Account: ev.Account.Hex(),
		Height:  uint64(height),
	}).Error
}

func (c *ChainIndexer) handleEventCallerAuthorized(db *gorm.DB, event abci.Event, height int64) error {
	ev := types.DecodeEventCallerAuthorized(event)
	if ev == nil {
		return errDecodeEvent
	}
	return db.Save(&Authorization{
		Id:         ev.Surface.String() + "/" + ev.Caller.Hex(),
		Surface:    ev.Surface.String(),
		Caller:     ev.Caller.Hex(),
		Authorized: ev.Authorized,
		Height:     uint64(height),
	}).Error
}

func (c *ChainIndexer) airline(db *gorm.DB, address string) (*Airline, error) {
	a := Airline{Address: address, Funded: "0"}
	err := db.Where("address = ?", address).First(&a).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	return &a, nil
}

// indexBlock stores the events of the successful transactions at height and
// advances the saved height, all in one sqlite transaction.
func (c *ChainIndexer) indexBlock(ctx context.Context, height int64) error {
	res, err := c.cli.BlockResults(ctx, &height)
	if err != nil {
		return err
	}
	tx := c.db.Begin()
	if tx.Error != nil {
		return tx.Error
	}
	for _, r := range res.TxsResults {
		if r.Code != types.CodeOK {
			continue
		}
		for _, event := range r.Events {
			if err := c.handleEvent(tx, event, height); err != nil {
				tx.Rollback()
				return fmt.Errorf("event %v: %w", event.Type, err)
			}
		}
	}
	if err := tx.Save(&Height{Id: 1, Height: uint64(height)}).Error; err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit().Error
}

// Sync indexes every block up to the chain's latest height.
func (c *ChainIndexer) Sync(ctx context.Context) error {
	b, err := c.cli.Status(ctx)
	if err != nil {
		return err
	}
	for b.SyncInfo.LatestBlockHeight >= c.Height {
		if err := ctx.Err(); err != nil {
			return err
		}
		c.logger.Debug("indexer syncing", "height", c.Height)
		if err := c.indexBlock(ctx, c.Height); err != nil {
			return fmt.Errorf("height %v: %w", c.Height, err)
		}
		c.Height++
	}
	return nil
}

func (c *ChainIndexer) Start(ctx context.Context) {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := c.Sync(ctx); err != nil {
				c.logger.Error("indexer sync fail", "err", err)
			}
		}
	}
}

func (c *ChainIndexer) getAirlines(page int, pageSize int) ([]Airline, uint64, error) {
	var airlines []Airline
	err := c.db.Order("`index` asc").Offset(page * pageSize).Limit(pageSize).Find(&airlines).Error
	if err != nil {
		return nil, 0, err
	}
	var total uint64
	err = c.db.Model(&Airline{}).Count(&total).Error
	if err != nil {
		return nil, 0, err
	}
	return airlines, total, nil
}

func (c *ChainIndexer) getAirlineByAddress(address string) (*Airline, error) {
	var a Airline
	err := c.db.Where("address = ?", address).First(&a).Error
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (c *ChainIndexer) getFlights(airline string, page int, pageSize int) ([]Flight, uint64, error) {
	q := c.db.Model(&Flight{})
	if airline != "" {
		q = q.Where("airline = ?", airline)
	}
	var flights []Flight
	err := q.Order("`index` desc").Offset(page * pageSize).Limit(pageSize).Find(&flights).Error
	if err != nil {
		return nil, 0, err
	}
	var total uint64
	err = q.Count(&total).Error
	if err != nil {
		return nil, 0, err
	}
	return flights, total, nil
}

func (c *ChainIndexer) getFlightByKey(key string) (*Flight, error) {
	var f Flight
	err := c.db.Where("`key` = ?", key).First(&f).Error
	if err != nil {
		return nil, err
	}
	return &f, nil
}

func (c *ChainIndexer) getPolicies(insuree string, flightKey string, page int, pageSize int) ([]Policy, uint64, error) {
	q := c.db.Model(&Policy{})
	if insuree != "" {
		q = q.Where("insuree = ?", insuree)
	}
	if flightKey != "" {
		q = q.Where("flight_key = ?", flightKey)
	}
	var policies []Policy
	err := q.Order("id desc").Offset(page * pageSize).Limit(pageSize).Find(&policies).Error
	if err != nil {
		return nil, 0, err
	}
	var total uint64
	err = q.Count(&total).Error
	if err != nil {
		return nil, 0, err
	}
	return policies, total, nil
}

func (c *ChainIndexer) getWithdrawals(insuree string, page int, pageSize int) ([]Withdrawal, error) {
	var ws []Withdrawal
	err := c.db.Where("insuree = ?", insuree).Order("id desc").Offset(page * pageSize).Limit(pageSize).Find(&ws).Error
	if err != nil {
		return nil, err
	}
	return ws, nil
}

func (c *ChainIndexer) getVotesByCandidate(candidate string, page int, pageSize int) ([]AirlineVote, error) {
	var votes []AirlineVote
	err := c.db.Where("candidate = ?", candidate).Order("id asc").Offset(page * pageSize).Limit(pageSize).Find(&votes).Error
	if err != nil {
		return nil, err
	}
	return votes, nil
}

func (c *ChainIndexer) getVotesByVoter(voter string, page int, pageSize int) ([]AirlineVote, error) {
	var votes []AirlineVote
	err := c.db.Where("voter = ?", voter).Order("id desc").Offset(page * pageSize).Limit(pageSize).Find(&votes).Error
	if err != nil {
		return nil, err
	}
	return votes, nil
}

func (c *ChainIndexer) getOracleRequests(flightKey string, page int, pageSize int) ([]OracleRequest, uint64, error) {
	q := c.db.Model(&OracleRequest{})
	if flightKey != "" {
		q = q.Where("flight_key = ?", flightKey)
	}
	var reqs []OracleRequest
	err := q.Order("request desc").Offset(page * pageSize).Limit(pageSize).Find(&reqs).Error
	if err != nil {
		return nil, 0, err
	}
	var total uint64
	err = q.Count(&total).Error
	if err != nil {
		return nil, 0, err
	}
	return reqs, total, nil
}

func (c *ChainIndexer) getOperatingStatus() ([]OperatingStatus, []Authorization, error) {
	var status []OperatingStatus
	err := c.db.Order("surface asc").Find(&status).Error
	if err != nil {
		return nil, nil, err
	}
	var auths []Authorization
	err = c.db.Where("authorized = ?", true).Order("id asc").Find(&auths).Error
	if err != nil {
		return nil, nil, err
	}
	return status, auths, nil
}

// getHeight is the last indexed height.
func (c *ChainIndexer) getHeight() (uint64, error) {
	h := Height{Id: 1}
	err := c.db.First(&h).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, err
	}
	return h.Height, nil
}
