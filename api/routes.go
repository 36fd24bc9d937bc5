package api

const (
	// PingEndpoint is the endpoint for checking the API status
	PingEndpoint = "/ping"
	// InfoEndpoint returns the chain the node is bound to and the deployed
	// counters.
	InfoEndpoint = "/info"

	// ContractsEndpoint is the endpoint for deploying a new counter
	ContractsEndpoint = "/contracts"
	// ContractURLParam is the URL parameter holding a counter address
	ContractURLParam = "address"
	// ContractEndpoint is the endpoint to get the counter info
	ContractEndpoint       = ContractsEndpoint + "/{" + ContractURLParam + "}"
	TotalEndpoint          = ContractEndpoint + "/total"
	EncryptedTotalEndpoint = ContractEndpoint + "/encrypted"

	// UserURLParam is the URL parameter holding a contributor address
	UserURLParam                  = "user"
	ContributionEndpoint          = ContractEndpoint + "/contributions/{" + UserURLParam + "}"
	EncryptedContributionEndpoint = ContributionEndpoint + "/encrypted"
	ContributionProofEndpoint     = ContributionEndpoint + "/proof"

	// Signed state changing calls.
	AddEndpoint          = ContractEndpoint + "/add"
	RandomEndpoint       = ContractEndpoint + "/random"
	ResetEndpoint        = ContractEndpoint + "/reset"
	ThresholdEndpoint    = ContractEndpoint + "/threshold"
	MaxEndpoint          = ContractEndpoint + "/max"
	OperationEndpoint    = ContractEndpoint + "/operation"
	DecryptEndpoint      = ContractEndpoint + "/decrypt"
	DecryptTotalEndpoint = ContractEndpoint + "/decrypt/total"

	// ConditionalEndpoint evaluates the conditional operation. Query
	// parameters: cond, ifTrue, ifFalse.
	ConditionalEndpoint = ContractEndpoint + "/conditional"

	// EventsEndpoint lists the events of a counter. Query parameters: from,
	// limit.
	EventsEndpoint = ContractEndpoint + "/events"
	// EventsStreamEndpoint upgrades to a websocket that receives the events
	// of a counter as they are emitted.
	EventsStreamEndpoint = EventsEndpoint + "/ws"

	// ReceiptURLParam is the URL parameter holding a transaction hash
	ReceiptURLParam = "hash"
	ReceiptEndpoint = "/receipts/{" + ReceiptURLParam + "}"

	AccountURLParam = "account"
	NonceEndpoint   = "/accounts/{" + AccountURLParam + "}/nonce"
)

// Method names, used in signed requests and receipts.
const (
	MethodDeploy       = "deploy"
	MethodAdd          = "addToCounter"
	MethodRandom       = "addRandomToCounter"
	MethodReset        = "resetCounter"
	MethodThreshold    = "isCounterAboveThreshold"
	MethodMax          = "getMaxValue"
	MethodOperation    = "performEncryptedOperation"
	MethodDecrypt      = "decryptMyContribution"
	MethodDecryptTotal = "decryptCounter"
)

// methodArgs is the number of arguments each signed method takes.
var methodArgs = map[string]int{
	MethodDeploy:       0,
	MethodAdd:          1,
	MethodRandom:       0,
	MethodReset:        0,
	MethodThreshold:    1,
	MethodMax:          1,
	MethodOperation:    2,
	MethodDecrypt:      0,
	MethodDecryptTotal: 0,
}
