package blockscout

// Verification settings used when nothing overrides them
const (
	DefaultCompiler     = "v0.8.22+commit.4fc1097e"
	DefaultContractName = "ColorDropPool"
	DefaultRuns         = 200
	DefaultEVMVersion   = "default"
)

// FlattenedRequest is the body of a flattened-code verification request
type FlattenedRequest struct {
	Compiler         string            `json:"compiler"`
	SourceCode       string            `json:"sourceCode"`
	ContractName     string            `json:"contractName"`
	ConstructorArgs  string            `json:"constructorArgs"`
	OptimizationUsed bool              `json:"optimizationUsed"`
	Runs             int               `json:"runs"`
	EVMVersion       string            `json:"evmVersion"`
	Libraries        map[string]string `json:"libraries"`
}

// Outcome classifies an accepted (HTTP 200) response
type Outcome string

const (
	// OutcomeVerified means the body reported success
	OutcomeVerified Outcome = "verified"
	// OutcomeSubmitted means the request was accepted but the body was not
	// recognised; the explorer may still reject the source later.
	OutcomeSubmitted Outcome = "submitted"
)

// Response is an accepted verification response
type Response struct {
	StatusCode int
	Body       string
	Outcome    Outcome
	RequestID  string
}

// Preview returns the body truncated for display: 200 bytes for a verified
// response, 500 otherwise.
func (r *Response) Preview() string {
	if r.Outcome == OutcomeVerified {
		return Preview(r.Body, 200)
	}
	return Preview(r.Body, 500)
}
