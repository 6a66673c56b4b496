// internal/service/outreach/outreach.go
package outreach

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"text/template"
	"time"

	"fluencr-service/internal/domain/outreach"
	"fluencr-service/internal/domain/quota"
	xerrors "fluencr-service/internal/pkg/errors"
	"fluencr-service/internal/pkg/ratelimit"

	"github.com/microcosm-cc/bluemonday"
	"go.uber.org/zap"
)

// Consumer takes one metered use from an account's quota.
type Consumer interface {
	Consume(ctx context.Context, accountID string) (*quota.Quota, error)
}

type Options struct {
	RateLimit  int
	RateWindow time.Duration
}

type OutreachService struct {
	limiter ratelimit.Limiter
	quota   Consumer
	opts    Options
	strict  *bluemonday.Policy
	logger  *zap.Logger
}

func NewOutreachService(limiter ratelimit.Limiter, consumer Consumer, opts Options, logger *zap.Logger) *OutreachService {
	if opts.RateLimit <= 0 {
		opts.RateLimit = 10
	}
	if opts.RateWindow <= 0 {
		opts.RateWindow = time.Minute
	}
	return &OutreachService{
		limiter: limiter,
		quota:   consumer,
		opts:    opts,
		strict:  bluemonday.StrictPolicy(),
		logger:  logger,
	}
}

// GenerateMessage drafts an outreach email. Each call is rate limited per
// account and consumes one quota unit before anything is rendered.
func (s *OutreachService) GenerateMessage(ctx context.Context, accountID string, req *outreach.GenerateMessageRequest) (*outreach.GenerateMessageResponse, error) {
	in := outreach.GenerateMessageRequest{
		Prompt:         s.clean(req.Prompt),
		InfluencerName: s.clean(req.InfluencerName),
		Platform:       s.clean(req.Platform),
		Industry:       s.clean(req.Industry),
		Context:        s.clean(req.Context),
	}
	if in.Prompt == "" || in.InfluencerName == "" {
		return nil, fmt.Errorf("%w: prompt and influencer_name are required", xerrors.ErrInvalidInput)
	}

	allowed, remaining, err := s.limiter.Allow(ctx, "generate:"+accountID, s.opts.RateLimit, s.opts.RateWindow)
	if err != nil {
		// The quota still bounds usage when the limiter backend is down.
		s.logger.Warn("rate limiter unavailable", zap.String("account_id", accountID), zap.Error(err))
	} else if !allowed {
		s.logger.Info("message generation rate limited", zap.String("account_id", accountID))
		return nil, fmt.Errorf("%w: at most %d messages per %s", xerrors.ErrRateLimited, s.opts.RateLimit, s.opts.RateWindow)
	}

	q, err := s.quota.Consume(ctx, accountID)
	if err != nil {
		if !errors.Is(err, xerrors.ErrQuotaExhausted) {
			s.logger.Error("failed to consume quota", zap.String("account_id", accountID), zap.Error(err))
		}
		return nil, err
	}

	tpl := pickTemplate(in.Prompt)
	subject, err := render(tpl.subject, in)
	if err != nil {
		return nil, err
	}
	body, err := render(tpl.body, in)
	if err != nil {
		return nil, err
	}

	s.logger.Info("outreach message generated",
		zap.String("account_id", accountID),
		zap.String("template", tpl.subject.Name()),
		zap.Int("rate_remaining", remaining),
		zap.Int("remaining_trials", q.RemainingTrials),
		zap.Bool("is_premium", q.IsPremium),
	)

	return &outreach.GenerateMessageResponse{
		Subject:     subject,
		Message:     body,
		Suggestions: append([]string(nil), tpl.suggestions...),
		Quota:       q,
	}, nil
}

func (s *OutreachService) clean(v string) string {
	return strings.TrimSpace(s.strict.Sanitize(v))
}

func render(t *template.Template, data outreach.GenerateMessageRequest) (string, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to render %s: %w", t.Name(), err)
	}
	return buf.String(), nil
}
