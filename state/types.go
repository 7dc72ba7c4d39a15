package state

// Agreement status values as stored in the projection.
const (
	StatusCreated  = "CREATED"
	StatusFunded   = "FUNDED"
	StatusDisputed = "DISPUTED"
	StatusReleased = "RELEASED"
	StatusRefunded = "REFUNDED"
)

const (
	PolicyNone           = "NONE"
	PolicyWithArbitrator = "WITH_ARBITRATOR"
)

const (
	DisputeOpen     = "OPEN"
	DisputeResolved = "RESOLVED"
)

const (
	ResolutionRelease = "RELEASE"
	ResolutionRefund  = "REFUND"
)

// ProjectedAgreement mirrors the on-chain agreement plus off-chain
// bookkeeping. Hex fields carry no 0x prefix; Amount is a decimal string.
type ProjectedAgreement struct {
	AgreementID    string `json:"agreement_id"`
	Payer          string `json:"payer"`
	Payee          string `json:"payee"`
	Arbitrator     string `json:"arbitrator,omitempty"`
	Amount         string `json:"amount"`
	Policy         string `json:"policy"`
	Status         string `json:"status"`
	CreatedTxHash  string `json:"created_tx_hash,omitempty"`
	FundedTxHash   string `json:"funded_tx_hash,omitempty"`
	ReleasedTxHash string `json:"released_tx_hash,omitempty"`
	RefundedTxHash string `json:"refunded_tx_hash,omitempty"`
}

type ProjectedDispute struct {
	AgreementID      string `json:"agreement_id"`
	OpenedBy         string `json:"opened_by"`
	Status           string `json:"status"`
	Resolution       string `json:"resolution,omitempty"`
	ResolutionTxHash string `json:"resolution_tx_hash,omitempty"`
	Justification    string `json:"justification,omitempty"`
}
