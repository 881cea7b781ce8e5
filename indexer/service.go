package indexer

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jinzhu/gorm"
)

const defaultPageSize = 20

type Service struct {
	engine     *gin.Engine
	indexer    *ChainIndexer
	listenAddr string
	srv        *http.Server
}

func NewService(listenAddr string, indexer *ChainIndexer) *Service {
	r := gin.New()
	r.Use(gin.Recovery())
	s := &Service{
		engine:     r,
		indexer:    indexer,
		listenAddr: listenAddr,
	}
	s.engine.POST("/getAirlines", s.handleGetAirlines)
	s.engine.POST("/getFlights", s.handleGetFlights)
	s.engine.POST("/getPolicies", s.handleGetPolicies)
	s.engine.POST("/getVotes", s.handleGetVotes)
	s.engine.POST("/getOracleRequests", s.handleGetOracleRequests)
	s.engine.POST("/getOperatingStatus", s.handleGetOperatingStatus)
	return s
}

func (s *Service) Handler() http.Handler {
	return s.engine
}

// Start serves until Stop is called.
func (s *Service) Start() error {
	s.srv = &http.Server{Addr: s.listenAddr, Handler: s.engine, ReadHeaderTimeout: 10 * time.Second}
	err := s.srv.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (s *Service) Stop(ctx context.Context) error {
	if s.srv == nil {
		return nil
	}
	return s.srv.Shutdown(ctx)
}

type PageReq struct {
	Page     int `json:"page"`
	PageSize int `json:"pageSize"`
}

func (p PageReq) size() int {
	if p.PageSize <= 0 {
		return defaultPageSize
	}
	return p.PageSize
}

func bindJSON(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return false
	}
	return true
}

func internalError(c *gin.Context, err error) {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
}

type GetAirlinesReq struct {
	PageReq
	Address string `json:"address"`
}

type GetAirlinesResponse struct {
	Airlines []Airline `json:"airlines"`
	Total    uint64    `json:"total"`
}

func (s *Service) handleGetAirlines(c *gin.Context) {
	var response GetAirlinesResponse
	response.Airlines = make([]Airline, 0)
	var requestData GetAirlinesReq
	if !bindJSON(c, &requestData) {
		return
	}
	if requestData.Address != "" {
		a, err := s.indexer.getAirlineByAddress(requestData.Address)
		if err != nil {
			internalError(c, err)
			return
		}
		response.Airlines = append(response.Airlines, *a)
		response.Total = 1
		c.JSON(http.StatusOK, response)
		return
	}
	airlines, total, err := s.indexer.getAirlines(requestData.Page, requestData.size())
	if err != nil {
		internalError(c, err)
		return
	}
	response.Airlines = append(response.Airlines, airlines...)
	response.Total = total
	c.JSON(http.StatusOK, response)
}

type GetFlightsReq struct {
	PageReq
	Key     string `json:"key"`
	Airline string `json:"airline"`
}

type FlightInfo struct {
	Flight   Flight          `json:"flight"`
	Requests []OracleRequest `json:"requests"`
}

type GetFlightsResponse struct {
	Flights []FlightInfo `json:"flights"`
	Total   uint64       `json:"total"`
}

func (s *Service) flightInfo(f Flight) (FlightInfo, error) {
	reqs, _, err := s.indexer.getOracleRequests(f.Key, 0, 1000)
	if err != nil {
		return FlightInfo{}, err
	}
	if reqs == nil {
		reqs = []OracleRequest{}
	}
	return FlightInfo{Flight: f, Requests: reqs}, nil
}

func (s *Service) handleGetFlights(c *gin.Context) {
	var response GetFlightsResponse
	response.Flights = make([]FlightInfo, 0)
	var requestData GetFlightsReq
	if !bindJSON(c, &requestData) {
		return
	}
	var flights []Flight
	if requestData.Key != "" {
		f, err := s.indexer.getFlightByKey(requestData.Key)
		if err != nil {
			internalError(c, err)
			return
		}
		flights = []Flight{*f}
		response.Total = 1
	} else {
		var err error
		flights, response.Total, err = s.indexer.getFlights(requestData.Airline, requestData.Page, requestData.size())
		if err != nil {
			internalError(c, err)
			return
		}
	}
	for _, f := range flights {
		info, err := s.flightInfo(f)
		if err != nil {
			internalError(c, err)
			return
		}
		response.Flights = append(response.Flights, info)
	}
	c.JSON(http.StatusOK, response)
}

type GetPoliciesReq struct {
	PageReq
	Insuree string `json:"insuree"`
	Flight  string `json:"flight"`
}

type GetPoliciesResponse struct {
	Policies    []Policy     `json:"policies"`
	Withdrawals []Withdrawal `json:"withdrawals"`
	Total       uint64       `json:"total"`
}

func (s *Service) handleGetPolicies(c *gin.Context) {
	var response GetPoliciesResponse
	response.Policies = make([]Policy, 0)
	response.Withdrawals = make([]Withdrawal, 0)
	var requestData GetPoliciesReq
	if !bindJSON(c, &requestData) {
		return
	}
	if requestData.Insuree == "" && requestData.Flight == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "insuree or flight is required"})
		return
	}
	policies, total, err := s.indexer.getPolicies(requestData.Insuree, requestData.Flight, requestData.Page, requestData.size())
	if err != nil {
		internalError(c, err)
		return
	}
	response.Policies = append(response.Policies, policies...)
	response.Total = total
	if requestData.Insuree != "" {
		ws, err := s.indexer.getWithdrawals(requestData.Insuree, 0, 1000)
		if err != nil {
			internalError(c, err)
			return
		}
		response.Withdrawals = append(response.Withdrawals, ws...)
	}
	c.JSON(http.StatusOK, response)
}

type GetVotesReq struct {
	PageReq
	Candidate string `json:"candidate"`
	Voter     string `json:"voter"`
}

type GetVotesResponse struct {
	Votes []AirlineVote `json:"votes"`
}

func (s *Service) handleGetVotes(c *gin.Context) {
	var response GetVotesResponse
	response.Votes = make([]AirlineVote, 0)
	var requestData GetVotesReq
	if !bindJSON(c, &requestData) {
		return
	}
	var votes []AirlineVote
	var err error
	switch {
	case requestData.Candidate != "":
		votes, err = s.indexer.getVotesByCandidate(requestData.Candidate, requestData.Page, requestData.size())
	case requestData.Voter != "":
		votes, err = s.indexer.getVotesByVoter(requestData.Voter, requestData.Page, requestData.size())
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "candidate or voter is required"})
		return
	}
	if err != nil {
		internalError(c, err)
		return
	}
	response.Votes = append(response.Votes, votes...)
	c.JSON(http.StatusOK, response)
}

type GetOracleRequestsReq struct {
	PageReq
	Flight string `json:"flight"`
}

type GetOracleRequestsResponse struct {
	Requests []OracleRequest `json:"requests"`
	Total    uint64          `json:"total"`
}

func (s *Service) handleGetOracleRequests(c *gin.Context) {
	var response GetOracleRequestsResponse
	response.Requests = make([]OracleRequest, 0)
	var requestData GetOracleRequestsReq
	if !bindJSON(c, &requestData) {
		return
	}
	reqs, total, err := s.indexer.getOracleRequests(requestData.Flight, requestData.Page, requestData.size())
	if err != nil {
		internalError(c, err)
		return
	}
	response.Requests = append(response.Requests, reqs...)
	response.Total = total
	c.JSON(http.StatusOK, response)
}

type GetOperatingStatusResponse struct {
	Surfaces       []OperatingStatus `json:"surfaces"`
	Authorizations []Authorization   `json:"authorizations"`
	Height         uint64            `json:"height"`
}

func (s *Service) handleGetOperatingStatus(c *gin.Context) {
	status, auths, err := s.indexer.getOperatingStatus()
	if err != nil {
		internalError(c, err)
		return
	}
	height, err := s.indexer.getHeight()
	if err != nil {
		internalError(c, err)
		return
	}
	response := GetOperatingStatusResponse{
		Surfaces:       append(make([]OperatingStatus, 0), status...),
		Authorizations: append(make([]Authorization, 0), auths...),
		Height:         height,
	}
	c.JSON(http.StatusOK, response)
}
