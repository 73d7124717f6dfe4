package blockcerts

import "github.com/information-sharing-networks/blockcerts-viewer/internal/verification"

// Parent step codes
const (
	StepFormatValidation = "formatValidation"
	StepHashComparison   = "hashComparison"
	StepStatusCheck      = "statusCheck"
)

// Sub step codes
const (
	StepGetTransactionID   = "getTransactionId"
	StepComputeLocalHash   = "computeLocalHash"
	StepFetchRemoteHash    = "fetchRemoteHash"
	StepGetIssuerProfile   = "getIssuerProfile"
	StepParseIssuerKeys    = "parseIssuerKeys"
	StepCompareHashes      = "compareHashes"
	StepCheckMerkleRoot    = "checkMerkleRoot"
	StepCheckReceipt       = "checkReceipt"
	StepCheckAuthenticity  = "checkAuthenticity"
	StepCheckRevokedStatus = "checkRevokedStatus"
	StepCheckExpiresDate   = "checkExpiresDate"
)

// SuccessFinalStep is the verdict reported for a certificate that passed every check.
// ${chain} is left for the presentation layer to resolve.
var SuccessFinalStep = verification.FinalStep{
	Label:       "Verified",
	Description: "This is a valid ${chain} certificate.",
	LinkText:    "View transaction link",
}

// MockSuccessFinalStep is the verdict for a mocknet certificate that passed every check.
var MockSuccessFinalStep = verification.FinalStep{
	Label:       "This Mock Certificate passed all checks",
	Description: "This mode is only used for issuers to test their workflow locally. This Blockcert was not recorded on a blockchain, and it should not be considered a verified Blockcert.",
}

type stepGroup struct {
	code  string
	label string
	steps []verification.StepTemplate
}

var stepGroups = []stepGroup{
	{
		code:  StepFormatValidation,
		label: "Format validation",
		steps: []verification.StepTemplate{
			{Code: StepGetTransactionID, Label: "Getting transaction ID"},
			{Code: StepComputeLocalHash, Label: "Computing local hash"},
			{Code: StepFetchRemoteHash, Label: "Fetching remote hash"},
			{Code: StepGetIssuerProfile, Label: "Getting issuer profile"},
			{Code: StepParseIssuerKeys, Label: "Parsing issuer keys"},
		},
	},
	{
		code:  StepHashComparison,
		label: "Hash comparison",
		steps: []verification.StepTemplate{
			{Code: StepCompareHashes, Label: "Comparing hashes"},
			{Code: StepCheckMerkleRoot, Label: "Checking Merkle root"},
			{Code: StepCheckReceipt, Label: "Checking receipt"},
		},
	},
	{
		code:  StepStatusCheck,
		label: "Status check",
		steps: []verification.StepTemplate{
			{Code: StepCheckAuthenticity, Label: "Checking authenticity"},
			{Code: StepCheckRevokedStatus, Label: "Checking revoked status"},
			{Code: StepCheckExpiresDate, Label: "Checking expiration date"},
		},
	},
}

// StepPlan returns the ordered step templates: each parent followed by its sub steps.
func StepPlan() []verification.StepTemplate {
	var plan []verification.StepTemplate
	for _, g := range stepGroups {
		plan = append(plan, verification.StepTemplate{Code: g.code, Label: g.label})
		for _, s := range g.steps {
			s.ParentStep = g.code
			plan = append(plan, s)
		}
	}
	return plan
}
