package indexer

// sqlite models

type Height struct {
	Id     uint64 `gorm:"primary_key" json:"id"`
	Height uint64 `json:"height"`
}

type Airline struct {
	Address        string `gorm:"primary_key" json:"address"`
	Index          uint64 `json:"index"`
	Registered     bool   `json:"registered"`
	Registrar      string `json:"registrar"`
	Votes          uint64 `json:"votes"`
	Funded         string `json:"funded"`
	Operational    bool   `json:"operational"`
	RegisterHeight uint64 `json:"register_height"`
	FundHeight     uint64 `json:"fund_height"`
}

type AirlineVote struct {
	Id        uint64 `gorm:"primary_key" json:"id"`
	Candidate string `json:"candidate"`
	Voter     string `json:"voter"`
	Votes     uint64 `json:"votes"`
	Required  uint64 `json:"required"`
	Height    uint64 `json:"height"`
}

type Flight struct {
	Key            string `gorm:"primary_key" json:"key"`
	Airline        string `json:"airline"`
	Code           string `json:"code"`
	Timestamp      uint64 `json:"timestamp"`
	Status         uint8  `json:"status"`
	StatusName     string `json:"status_name"`
	Index          uint64 `json:"index"`
	RegisterHeight uint64 `json:"register_height"`
	StatusHeight   uint64 `json:"status_height"`
}

type OracleRequest struct {
	Id        uint64 `gorm:"primary_key" json:"id"`
	Request   uint64 `json:"request"`
	FlightKey string `json:"flight_key"`
	Airline   string `json:"airline"`
	Code      string `json:"code"`
	Timestamp uint64 `json:"timestamp"`
	Requester string `json:"requester"`
	Height    uint64 `json:"height"`
}

type Policy struct {
	Id           uint64 `gorm:"primary_key" json:"id"`
	Insuree      string `json:"insuree"`
	FlightKey    string `json:"flight_key"`
	Premium      string `json:"premium"`
	Payout       string `json:"payout"`
	Credited     bool   `json:"credited"`
	Height       uint64 `json:"height"`
	CreditHeight uint64 `json:"credit_height"`
}

type Withdrawal struct {
	Id      uint64 `gorm:"primary_key" json:"id"`
	Insuree string `json:"insuree"`
	Amount  string `json:"amount"`
	Height  uint64 `json:"height"`
}

type OperatingStatus struct {
	Surface string `gorm:"primary_key" json:"surface"`
	Paused  bool   `json:"paused"`
	Account string `json:"account"`
	Height  uint64 `json:"height"`
}

type Authorization struct {
	Id         string `gorm:"primary_key" json:"id"`
	Surface    string `json:"surface"`
	Caller     string `json:"caller"`
	Authorized bool   `json:"authorized"`
	Height     uint64 `json:"height"`
}
