// Package profile creates user profiles from declared attributes and uploaded resumes.
package profile

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hyperjump/matchfeed/internal/embedding"
	"github.com/hyperjump/matchfeed/internal/extract"
	"github.com/hyperjump/matchfeed/internal/models"
	"github.com/hyperjump/matchfeed/internal/storage"
)

// Service creates and reads profiles.
type Service struct {
	store     storage.Storage
	embedder  embedding.Embedder
	extractor *extract.Extractor
	logger    *zap.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the service logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithExtractor replaces the default resume extractor.
func WithExtractor(e *extract.Extractor) Option {
	return func(s *Service) {
		if e != nil {
			s.extractor = e
		}
	}
}

// NewService creates a profile service.
func NewService(store storage.Storage, embedder embedding.Embedder, opts ...Option) *Service {
	s := &Service{
		store:     store,
		embedder:  embedder,
		extractor: extract.NewExtractor(),
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create builds a profile from declared attributes. The base embedding is computed once here;
// the current embedding starts equal to it. A missing ID gets a new UUID.
func (s *Service) Create(ctx context.Context, in *models.UserInput) (*models.UserProfile, error) {
	seniority, err := models.ParseSeniority(in.Seniority)
	if err != nil {
		return nil, err
	}
	text := embedding.UserText(in)
	if text == "" {
		return nil, fmt.Errorf("%w: profile declares no headline, skills, locations or resume", models.ErrInvalidInput)
	}
	emb, err := s.embedder.Embed(ctx, text)
	if err != nil {
		if errors.Is(err, models.ErrInvalidInput) {
			return nil, err
		}
		return nil, fmt.Errorf("embed profile: %w: %w", models.ErrUnavailable, err)
	}

	u := &models.UserProfile{
		ID:                 strings.TrimSpace(in.ID),
		Headline:           strings.TrimSpace(in.Headline),
		Skills:             models.NormalizeTags(in.Skills),
		PreferredLocations: models.NormalizeTags(in.PreferredLocations),
		Seniority:          seniority,
		BaseEmbedding:      emb,
	}
	if u.ID == "" {
		u.ID = uuid.New().String()
	}
	if err := s.store.CreateUser(ctx, u); err != nil {
		return nil, err
	}
	s.logger.Info("profile created",
		zap.String("user_id", u.ID),
		zap.Int("skills", len(u.Skills)),
		zap.Bool("resume", in.ResumeText != ""))
	return u, nil
}

// CreateFromResume extracts the text of a resume file (by extension) and creates a profile
// from it together with the declared attributes in in.
func (s *Service) CreateFromResume(ctx context.Context, in *models.UserInput, content []byte, ext string) (*models.UserProfile, error) {
	text, err := s.extractor.ExtractBytes(content, ext)
	if err != nil {
		return nil, err
	}
	withResume := *in
	withResume.ResumeText = text
	return s.Create(ctx, &withResume)
}

// Get returns a profile by ID.
func (s *Service) Get(ctx context.Context, id string) (*models.UserProfile, error) {
	return s.store.GetUser(ctx, id)
}

// MaxResumeBytes returns the largest resume CreateFromResume accepts.
func (s *Service) MaxResumeBytes() int {
	return s.extractor.MaxBytes()
}
