package application

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/strataboard/authcore/internal/domain"
)

// IssueResourceLink mints a signed, time-limited token granting anonymous
// access to one resource. Tokens are bearer capabilities: nothing is stored
// at issue time, and possession is the whole credential.
func (s *Service) IssueResourceLink(ctx context.Context, resourceID uuid.UUID) (ResourceLink, error) {
	if resourceID == uuid.Nil {
		return ResourceLink{}, fmt.Errorf("%w: resource id is required", domain.ErrInvalidInput)
	}
	now := s.nowFn()
	token, err := s.tokens.Issue(resourceID, now)
	if err != nil {
		return ResourceLink{}, fmt.Errorf("issue resource token: %w", err)
	}
	s.logger.Info("resource link issued",
		"operation", "issue_resource_link", "resource_id", resourceID)
	return ResourceLink{
		ResourceID: resourceID,
		Token:      token,
		ExpiresAt:  now.Add(s.cfg.ResourceTokenMaxAge),
	}, nil
}

// ViewResource validates a resource token and records the access. The audit
// append is part of the grant: if the log write fails, the access fails.
func (s *Service) ViewResource(ctx context.Context, token, originAddress, userAgent string) (ResourceView, error) {
	now := s.nowFn()
	resourceID, err := s.tokens.Validate(token, now, s.cfg.ResourceTokenMaxAge)
	if err != nil {
		return ResourceView{}, err
	}

	entry := domain.AccessLogEntry{
		ResourceID:    resourceID,
		TokenDigest:   hashToken(token),
		AccessedAt:    now,
		OriginAddress: originAddress,
		UserAgent:     userAgent,
	}
	if err := s.accessLog.Insert(ctx, entry); err != nil {
		return ResourceView{}, fmt.Errorf("record resource access: %w", err)
	}

	s.logger.Info("resource viewed",
		"operation", "view_resource", "outcome", "success", "resource_id", resourceID)
	return ResourceView{ResourceID: resourceID}, nil
}
