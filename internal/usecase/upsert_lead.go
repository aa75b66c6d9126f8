package usecase

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/xavierca1/ligue-leads/internal/entity"
)

// UpsertLeadUseCase keeps exactly one lead per normalized email.
type UpsertLeadUseCase struct {
	Repo    entity.LeadRepository
	Metrics Metrics
	Now     func() time.Time
}

func NewUpsertLeadUseCase(repo entity.LeadRepository, metrics Metrics) *UpsertLeadUseCase {
	if metrics == nil {
		metrics = noopMetrics{}
	}
	return &UpsertLeadUseCase{
		Repo:    repo,
		Metrics: metrics,
		Now:     func() time.Time { return time.Now().UTC() },
	}
}

// ExecuteSubmission validates a raw payload for the upsert contract, where an
// update may omit the name, and then upserts it.
func (uc *UpsertLeadUseCase) ExecuteSubmission(ctx context.Context, input SubmitLeadInput) (*UpsertLeadOutput, error) {
	if errs := ValidateSubmission(input, false); len(errs) > 0 {
		return nil, validationFailure(errs)
	}
	return uc.Execute(ctx, input.toLeadInput())
}

func (uc *UpsertLeadUseCase) Execute(ctx context.Context, input entity.LeadInput) (*UpsertLeadOutput, error) {
	input.Email = entity.NormalizeEmail(input.Email)

	existing, err := uc.Repo.FindByEmail(ctx, input.Email)
	if err == nil {
		return uc.update(ctx, existing, input)
	}
	if !errors.Is(err, entity.ErrLeadNotFound) {
		return nil, storeUnavailable(err)
	}

	if strings.TrimSpace(input.Name) == "" {
		return nil, &DomainError{
			Code:    CodeNameRequired,
			Message: "name is required to create a lead",
			Details: []ValidationError{{"name", "is required"}},
		}
	}

	lead := entity.NewLead(input, uc.Now())
	err = uc.Repo.Insert(ctx, lead)
	if err == nil {
		uc.Metrics.LeadUpserted(entity.UpsertCreated)
		zap.L().Info("lead created",
			zap.String("lead_id", lead.ID),
			zap.String("email", lead.Email),
			zap.String("category", string(lead.Category)),
		)
		return &UpsertLeadOutput{Status: entity.UpsertCreated, Lead: lead}, nil
	}
	if !errors.Is(err, entity.ErrLeadAlreadyExists) {
		return nil, storeUnavailable(err)
	}

	// Another request created the same email between lookup and insert.
	zap.L().Warn("duplicate email on insert, retrying as update", zap.String("email", input.Email))
	existing, err = uc.Repo.FindByEmail(ctx, input.Email)
	if err != nil {
		return nil, storeUnavailable(err)
	}
	return uc.update(ctx, existing, input)
}

func (uc *UpsertLeadUseCase) update(ctx context.Context, lead *entity.Lead, input entity.LeadInput) (*UpsertLeadOutput, error) {
	lead.Merge(input, uc.Now())
	if err := uc.Repo.Update(ctx, lead); err != nil {
		return nil, storeUnavailable(err)
	}

	uc.Metrics.LeadUpserted(entity.UpsertUpdated)
	zap.L().Info("lead updated",
		zap.String("lead_id", lead.ID),
		zap.String("email", lead.Email),
		zap.String("category", string(lead.Category)),
	)
	return &UpsertLeadOutput{Status: entity.UpsertUpdated, Lead: lead}, nil
}
