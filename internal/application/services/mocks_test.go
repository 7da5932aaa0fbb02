package services_test

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/contentloop/contentloop/internal/domain/entities"
	"github.com/contentloop/contentloop/internal/domain/providers"
	"github.com/contentloop/contentloop/internal/domain/repositories"
)

// Mocks

type MockGenerationRunRepository struct {
	mock.Mock
}

func (m *MockGenerationRunRepository) Create(ctx context.Context, run *entities.GenerationRun) error {
	args := m.Called(ctx, run)
	return args.Error(0)
}

func (m *MockGenerationRunRepository) GetByID(ctx context.Context, id string) (*entities.GenerationRun, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.GenerationRun), args.Error(1)
}

func (m *MockGenerationRunRepository) Complete(ctx context.Context, id string, status entities.RunStatus, actuals entities.RunActuals) error {
	args := m.Called(ctx, id, status, actuals)
	return args.Error(0)
}

func (m *MockGenerationRunRepository) ClaimAnalysis(ctx context.Context, id string) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

func (m *MockGenerationRunRepository) ReleaseAnalysis(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockGenerationRunRepository) AggregatePerformance(ctx context.Context, clientID string, contentType entities.ContentType, since time.Time) (*repositories.PerformanceAggregate, error) {
	args := m.Called(ctx, clientID, contentType, since)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*repositories.PerformanceAggregate), args.Error(1)
}

type MockFeedbackRepository struct {
	mock.Mock
}

func (m *MockFeedbackRepository) Create(ctx context.Context, feedback *entities.QualityFeedback) error {
	args := m.Called(ctx, feedback)
	return args.Error(0)
}

func (m *MockFeedbackRepository) ListByRun(ctx context.Context, runID string) ([]*entities.QualityFeedback, error) {
	args := m.Called(ctx, runID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.QualityFeedback), args.Error(1)
}

type MockSignalRepository struct {
	mock.Mock
}

func (m *MockSignalRepository) Create(ctx context.Context, signal *entities.LearningSignal) error {
	args := m.Called(ctx, signal)
	return args.Error(0)
}

func (m *MockSignalRepository) List(ctx context.Context, filter repositories.SignalFilter) ([]*entities.LearningSignal, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.LearningSignal), args.Error(1)
}

func (m *MockSignalRepository) IncrementApplied(ctx context.Context, ids []int64) error {
	args := m.Called(ctx, ids)
	return args.Error(0)
}

func (m *MockSignalRepository) MarkExpired(ctx context.Context, olderThan time.Time) (int64, error) {
	args := m.Called(ctx, olderThan)
	return args.Get(0).(int64), args.Error(1)
}

type MockPromptEffectivenessRepository struct {
	mock.Mock
}

func (m *MockPromptEffectivenessRepository) GetByHash(ctx context.Context, promptHash string) (*entities.PromptEffectivenessRecord, error) {
	args := m.Called(ctx, promptHash)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.PromptEffectivenessRecord), args.Error(1)
}

func (m *MockPromptEffectivenessRepository) RecordUse(ctx context.Context, promptHash string, qualityScore float64, usedAt time.Time) error {
	args := m.Called(ctx, promptHash, qualityScore, usedAt)
	return args.Error(0)
}

type MockRouteDecisionRepository struct {
	mock.Mock
}

func (m *MockRouteDecisionRepository) Create(ctx context.Context, record *entities.RouteDecisionRecord) error {
	args := m.Called(ctx, record)
	return args.Error(0)
}

func (m *MockRouteDecisionRepository) GetByID(ctx context.Context, id string) (*entities.RouteDecisionRecord, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.RouteDecisionRecord), args.Error(1)
}

func (m *MockRouteDecisionRepository) GetByRunID(ctx context.Context, runID string) (*entities.RouteDecisionRecord, error) {
	args := m.Called(ctx, runID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.RouteDecisionRecord), args.Error(1)
}

func (m *MockRouteDecisionRepository) UpdateOutcome(ctx context.Context, id string, actuals entities.RunActuals, wasCorrect bool, corrective *entities.LearningSignal) error {
	args := m.Called(ctx, id, actuals, wasCorrect, corrective)
	return args.Error(0)
}

type MockAnalysisQueue struct {
	mock.Mock
}

func (m *MockAnalysisQueue) Enqueue(ctx context.Context, task providers.AnalysisTask) error {
	args := m.Called(ctx, task)
	return args.Error(0)
}

func (m *MockAnalysisQueue) Dequeue(ctx context.Context) (*providers.AnalysisTask, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*providers.AnalysisTask), args.Error(1)
}

func (m *MockAnalysisQueue) Ack(ctx context.Context, task providers.AnalysisTask) error {
	args := m.Called(ctx, task)
	return args.Error(0)
}

func (m *MockAnalysisQueue) Nack(ctx context.Context, task providers.AnalysisTask) error {
	args := m.Called(ctx, task)
	return args.Error(0)
}

func (m *MockAnalysisQueue) RecoverInFlight(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

func (m *MockAnalysisQueue) Close() error {
	args := m.Called()
	return args.Error(0)
}
