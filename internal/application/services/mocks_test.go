package services_test

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/afferentology/platform/backend/internal/application/services"
	"github.com/afferentology/platform/backend/internal/domain/entities"
	"github.com/afferentology/platform/backend/pkg/geo"
)

type MockPractitionerRepository struct {
	mock.Mock
}

func (m *MockPractitionerRepository) Create(ctx context.Context, p *entities.Practitioner) error {
	return m.Called(ctx, p).Error(0)
}

func (m *MockPractitionerRepository) Update(ctx context.Context, p *entities.Practitioner) error {
	return m.Called(ctx, p).Error(0)
}

func (m *MockPractitionerRepository) GetByID(ctx context.Context, id string) (*entities.Practitioner, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Practitioner), args.Error(1)
}

func (m *MockPractitionerRepository) GetByEmail(ctx context.Context, email string) (*entities.Practitioner, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Practitioner), args.Error(1)
}

func (m *MockPractitionerRepository) List(ctx context.Context, filter entities.PractitionerFilter) ([]*entities.Practitioner, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.Practitioner), args.Error(1)
}

func (m *MockPractitionerRepository) ListSearchable(ctx context.Context) ([]*entities.Practitioner, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.Practitioner), args.Error(1)
}

func (m *MockPractitionerRepository) UpdateStatus(ctx context.Context, id string, status entities.PractitionerStatus, approvedAt *time.Time, approvedBy string) error {
	return m.Called(ctx, id, status, approvedAt, approvedBy).Error(0)
}

func (m *MockPractitionerRepository) Delete(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

type MockArticleRepository struct {
	mock.Mock
}

func (m *MockArticleRepository) Create(ctx context.Context, a *entities.Article) error {
	return m.Called(ctx, a).Error(0)
}

func (m *MockArticleRepository) Update(ctx context.Context, a *entities.Article) error {
	return m.Called(ctx, a).Error(0)
}

func (m *MockArticleRepository) GetByID(ctx context.Context, id string) (*entities.Article, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Article), args.Error(1)
}

func (m *MockArticleRepository) SlugExists(ctx context.Context, slug, excludeID string) (bool, error) {
	args := m.Called(ctx, slug, excludeID)
	return args.Bool(0), args.Error(1)
}

func (m *MockArticleRepository) List(ctx context.Context, filter entities.ArticleFilter) ([]*entities.ArticleSummary, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.ArticleSummary), args.Error(1)
}

func (m *MockArticleRepository) Delete(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockArticleRepository) SetPublished(ctx context.Context, id string, published bool, at time.Time) error {
	return m.Called(ctx, id, published, at).Error(0)
}

func (m *MockArticleRepository) ListDueForPublish(ctx context.Context, now time.Time) ([]*entities.Article, error) {
	args := m.Called(ctx, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.Article), args.Error(1)
}

func (m *MockArticleRepository) ListPendingSchedule(ctx context.Context) ([]*entities.PendingArticle, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.PendingArticle), args.Error(1)
}

func (m *MockArticleRepository) PublishScheduled(ctx context.Context, id string, now time.Time) (bool, error) {
	args := m.Called(ctx, id, now)
	return args.Bool(0), args.Error(1)
}

type MockPublicArticleRepository struct {
	mock.Mock
}

func (m *MockPublicArticleRepository) GetPublishedBySlug(ctx context.Context, slug string) (*entities.Article, error) {
	args := m.Called(ctx, slug)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Article), args.Error(1)
}

func (m *MockPublicArticleRepository) ListPublished(ctx context.Context, filter entities.ArticleFilter) ([]*entities.ArticleSummary, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.ArticleSummary), args.Error(1)
}

func (m *MockPublicArticleRepository) IncrementViews(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

type MockArticleIndex struct {
	mock.Mock
}

func (m *MockArticleIndex) Index(ctx context.Context, a *entities.Article) error {
	return m.Called(ctx, a).Error(0)
}

func (m *MockArticleIndex) Remove(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockArticleIndex) Search(ctx context.Context, query string, limit int) ([]*entities.ArticleSearchHit, error) {
	args := m.Called(ctx, query, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.ArticleSearchHit), args.Error(1)
}

type MockGeocoder struct {
	mock.Mock
}

func (m *MockGeocoder) Geocode(ctx context.Context, addr services.Address) *geo.Coordinates {
	args := m.Called(ctx, addr)
	if args.Get(0) == nil {
		return nil
	}
	return args.Get(0).(*geo.Coordinates)
}

type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) PractitionerSubmitted(ctx context.Context, p *entities.Practitioner, isUpdate bool) {
	m.Called(ctx, p, isUpdate)
}

func (m *MockNotifier) PractitionerApproved(ctx context.Context, p *entities.Practitioner) {
	m.Called(ctx, p)
}

type MockEmailSender struct {
	mock.Mock
}

func (m *MockEmailSender) Send(ctx context.Context, msg *entities.EmailMessage) error {
	return m.Called(ctx, msg).Error(0)
}

type MockChatProvider struct {
	mock.Mock
}

func (m *MockChatProvider) StreamChat(ctx context.Context, messages []entities.ChatMessage, onDelta func(string) error) error {
	args := m.Called(ctx, messages, onDelta)
	for _, d := range args.Get(0).([]string) {
		if err := onDelta(d); err != nil {
			return err
		}
	}
	return args.Error(1)
}

func ptr[T any](v T) *T {
	return &v
}
