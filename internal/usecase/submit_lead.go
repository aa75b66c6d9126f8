package usecase

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/xavierca1/ligue-leads/internal/entity"
)

// SubmitLeadUseCase runs one submission through validation, optional
// classification and the lead store, then hands the result to the
// notification dispatcher.
type SubmitLeadUseCase struct {
	Classifier LeadClassifier
	Store      LeadStore
	Dispatcher NotificationDispatcher
	Metrics    Metrics
}

func NewSubmitLeadUseCase(
	classifier LeadClassifier,
	store LeadStore,
	dispatcher NotificationDispatcher,
	metrics Metrics,
) *SubmitLeadUseCase {
	if metrics == nil {
		metrics = noopMetrics{}
	}
	return &SubmitLeadUseCase{
		Classifier: classifier,
		Store:      store,
		Dispatcher: dispatcher,
		Metrics:    metrics,
	}
}

func (uc *SubmitLeadUseCase) Execute(ctx context.Context, input SubmitLeadInput) (*SubmitLeadOutput, error) {
	if errs := ValidateSubmission(input, true); len(errs) > 0 {
		return nil, validationFailure(errs)
	}

	leadInput := input.toLeadInput()
	if leadInput.Category == "" {
		leadInput.Category, leadInput.CategoryTag = uc.classify(ctx, leadInput.Message)
		uc.Metrics.LeadClassified(leadInput.Category, sourceOrDefault(leadInput.Source))
	}

	stored, err := uc.Store.Execute(ctx, leadInput)
	if err != nil {
		return nil, err
	}

	event := entity.Event{
		Kind: entity.EventKindFor(stored.Status),
		Lead: *stored.Lead,
		Meta: entity.EventMeta{
			Source: stored.Lead.Source,
			IP:     leadInput.OriginIP,
		},
	}

	notified := false
	if uc.Dispatcher != nil {
		notified = uc.Dispatcher.Dispatch(ctx, event)
	}

	return &SubmitLeadOutput{
		Status:   stored.Status,
		LeadID:   stored.Lead.ID,
		Lead:     stored.Lead,
		Notified: notified,
	}, nil
}

func (uc *SubmitLeadUseCase) classify(ctx context.Context, message string) (entity.Category, *string) {
	if strings.TrimSpace(message) == "" || uc.Classifier == nil {
		return entity.CategoryInquiry, nil
	}
	res := uc.Classifier.Classify(ctx, message)
	if !res.Category.Valid() {
		zap.L().Warn("classifier returned unknown category", zap.String("category", string(res.Category)))
		return entity.CategoryInquiry, nil
	}
	return res.Category, entity.NormalizeTag(res.Category, res.Tag)
}

func sourceOrDefault(source string) string {
	if s := strings.TrimSpace(source); s != "" {
		return s
	}
	return entity.DefaultSource
}
