package shared

type ChargeRequest struct {
	Amount            int64
	Fee               int64
	Currency          string
	Method            string
	ExternalReference string
	Description       string
}

type ChargeResult struct {
	Approved         bool
	GatewayReference string
	DeclineReason    string
}
