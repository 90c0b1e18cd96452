package verification

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/colordrop/blockscout-verify/internal/blockscout"
	"github.com/colordrop/blockscout-verify/internal/networks"
	"github.com/colordrop/blockscout-verify/internal/observability/metrics"
	"github.com/colordrop/blockscout-verify/internal/validation"
)

// Common errors returned by the verification service.
var (
	ErrInvalidAddress  = errors.New("invalid contract address")
	ErrInvalidSettings = errors.New("invalid compiler settings")
)

// Submitter sends a flattened-code verification request to one explorer.
type Submitter interface {
	VerifyFlattened(ctx context.Context, address string, req blockscout.FlattenedRequest) (*blockscout.Response, error)
}

// ClientFactory builds the Submitter for a network.
type ClientFactory func(network networks.Network, apiKey string) Submitter

// BlockscoutClients returns a ClientFactory producing instrumented Blockscout
// clients with the given request timeout.
func BlockscoutClients(timeout time.Duration, logger *slog.Logger) ClientFactory {
	return func(network networks.Network, apiKey string) Submitter {
		httpClient := &http.Client{
			Timeout:   timeout,
			Transport: metrics.InstrumentTransport(nil),
		}
		return blockscout.New(network.ExplorerURL, apiKey,
			blockscout.WithHTTPClient(httpClient),
			blockscout.WithLogger(logger),
		)
	}
}

// Service submits contracts for verification.
type Service struct {
	registry  *networks.Registry
	settings  Settings
	newClient ClientFactory
	logger    *slog.Logger
}

// NewService creates a new verification service.
func NewService(registry *networks.Registry, settings Settings, newClient ClientFactory, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Service{
		registry:  registry,
		settings:  settings,
		newClient: newClient,
		logger:    logger,
	}
}

// Settings returns the compiler settings sent with each submission.
func (s *Service) Settings() Settings {
	return s.settings
}

// Validate checks the settings against what explorers accept.
func (st Settings) Validate() error {
	if err := validation.ValidateCompilerVersion(st.Compiler); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSettings, err)
	}
	if err := validation.ValidateContractName(st.ContractName); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSettings, err)
	}
	if err := validation.ValidateOptimizerRuns(st.Runs); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSettings, err)
	}
	if st.EVMVersion == "" {
		return fmt.Errorf("%w: evm version cannot be empty", ErrInvalidSettings)
	}
	return nil
}

// Request builds the explorer payload for sub.
func (s *Service) Request(sub Submission) blockscout.FlattenedRequest {
	return blockscout.FlattenedRequest{
		Compiler:         s.settings.Compiler,
		SourceCode:       sub.SourceCode,
		ContractName:     s.settings.ContractName,
		ConstructorArgs:  sub.ConstructorArgs,
		OptimizationUsed: s.settings.OptimizationUsed,
		Runs:             s.settings.Runs,
		EVMVersion:       s.settings.EVMVersion,
		Libraries:        map[string]string{},
	}
}

// Submit sends sub to its network's explorer. The network is resolved first;
// an unsupported network fails before any client is created. A single
// attempt is made.
func (s *Service) Submit(ctx context.Context, sub Submission) (*Result, error) {
	network, err := s.registry.Lookup(sub.Network)
	if err != nil {
		metrics.VerificationSubmit(sub.Network, metrics.OutcomeUnsupported, 0)
		return nil, err
	}

	if err := validation.ValidateAddress(sub.Address); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidAddress, err)
	}

	if err := s.settings.Validate(); err != nil {
		return nil, err
	}

	client := s.newClient(network, sub.APIKey)

	s.logger.Info("submitting verification",
		"network", network.Name,
		"address", sub.Address,
		"contract", s.settings.ContractName,
		"compiler", s.settings.Compiler,
		"endpoint", network.VerificationURL(sub.Address),
	)

	start := time.Now()
	resp, err := client.VerifyFlattened(ctx, sub.Address, s.Request(sub))
	duration := time.Since(start)
	if err != nil {
		outcome := metrics.OutcomeTransport
		if errors.Is(err, blockscout.ErrRejected) {
			outcome = metrics.OutcomeRejected
		}
		metrics.VerificationSubmit(network.Name, outcome, duration)
		s.logger.Warn("verification failed",
			"network", network.Name,
			"address", sub.Address,
			"outcome", outcome,
			"duration", duration.String(),
			"error", err,
		)
		return nil, fmt.Errorf("verifying %s on %s: %w", sub.Address, network.Name, err)
	}

	metrics.VerificationSubmit(network.Name, string(resp.Outcome), duration)
	s.logger.Info("verification accepted",
		"network", network.Name,
		"address", sub.Address,
		"outcome", resp.Outcome,
		"request_id", resp.RequestID,
		"duration", duration.String(),
	)

	return &Result{
		Network:    network,
		Address:    sub.Address,
		Outcome:    resp.Outcome,
		StatusCode: resp.StatusCode,
		Body:       resp.Body,
		Preview:    resp.Preview(),
		RequestID:  resp.RequestID,
		AddressURL: network.AddressURL(sub.Address),
	}, nil
}
