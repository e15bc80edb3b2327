package ai

import (
	"context"
	"errors"
	"net"
	"strings"

	"hyperagent/pkg/logging"
)

// FallbackService routes every call to the primary provider and retries
// on the fallback when the primary is unreachable or out of quota.
type FallbackService struct {
	primary  Service
	fallback Service
	logger   logging.Logger
}

// NewFallbackService creates a new fallback service with both providers
func NewFallbackService(primary, fallback Service, logger logging.Logger) *FallbackService {
	if logger == nil {
		logger = logging.NewDiscardLogger()
	}
	return &FallbackService{
		primary:  primary,
		fallback: fallback,
		logger:   logger,
	}
}

// isConnectionError checks if the error is a network/connection error
func isConnectionError(err error) bool {
	if err == nil {
		return false
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}

	errStr := strings.ToLower(err.Error())
	for _, indicator := range []string{
		"connection refused",
		"no such host",
		"network is unreachable",
		"connection reset",
		"timeout",
		"dial tcp",
		"eof",
	} {
		if strings.Contains(errStr, indicator) {
			return true
		}
	}
	return false
}

// isQuotaError checks if the error indicates API quota exhaustion (429)
func isQuotaError(err error) bool {
	if err == nil {
		return false
	}

	errStr := strings.ToLower(err.Error())
	for _, indicator := range []string{
		"429",
		"quota",
		"rate limit",
		"too many requests",
		"insufficient_quota",
		"503",
		"overloaded",
	} {
		if strings.Contains(errStr, indicator) {
			return true
		}
	}
	return false
}

func shouldFallback(ctx context.Context, err error) bool {
	if ctx.Err() != nil {
		return false
	}
	return isConnectionError(err) || isQuotaError(err)
}

func fallbackCall[T any](ctx context.Context, f *FallbackService, operation string, call func(Service) (T, error)) (T, error) {
	result, err := call(f.primary)
	if err == nil || !shouldFallback(ctx, err) {
		return result, err
	}

	f.logger.WithError(err).WithField("operation", operation).Warn("Primary AI provider failed, using fallback")
	return call(f.fallback)
}

func (f *FallbackService) Classify(ctx context.Context, in ClassificationInput) (*Classification, error) {
	return fallbackCall(ctx, f, "classify", func(s Service) (*Classification, error) {
		return s.Classify(ctx, in)
	})
}

func (f *FallbackService) IdentifyOpportunities(ctx context.Context, transcript string, candidates []Candidate) ([]IdentifiedOpportunity, error) {
	return fallbackCall(ctx, f, "identify", func(s Service) ([]IdentifiedOpportunity, error) {
		return s.IdentifyOpportunities(ctx, transcript, candidates)
	})
}

func (f *FallbackService) InferStatus(ctx context.Context, in InferenceInput) (*StatusInference, error) {
	return fallbackCall(ctx, f, "infer_status", func(s Service) (*StatusInference, error) {
		return s.InferStatus(ctx, in)
	})
}

func (f *FallbackService) DraftReply(ctx context.Context, in DraftInput) (string, error) {
	return fallbackCall(ctx, f, "draft_reply", func(s Service) (string, error) {
		return s.DraftReply(ctx, in)
	})
}

func (f *FallbackService) Ping(ctx context.Context) error {
	_, err := fallbackCall(ctx, f, "ping", func(s Service) (struct{}, error) {
		return struct{}{}, s.Ping(ctx)
	})
	return err
}
