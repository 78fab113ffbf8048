package banners

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/mirelletran/fangallery-backend/internal/content"
	"github.com/mirelletran/fangallery-backend/pkg/broadcast"
	"github.com/mirelletran/fangallery-backend/pkg/db/models"
	pkgerrors "github.com/mirelletran/fangallery-backend/pkg/errors"
	"github.com/mirelletran/fangallery-backend/pkg/logger"
	"github.com/mirelletran/fangallery-backend/pkg/metrics"
)

// Service exposes the banner slider operations.
type Service interface {
	Slides(ctx context.Context) ([]content.BannerSlide, content.Source)
	Reorder(ctx context.Context, ids []string) error
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// service implements the banner service.
type service struct {
	repo        *Repository
	dbClient    txRunner
	syncer      *content.Syncer[models.Banner]
	broadcaster *broadcast.Broadcaster
	logg        *logger.Logger
	metrics     *metrics.SyncMetrics
	instanceID  string
}

// NewService constructs a banner service instance. Logger and metrics may
// be nil.
func NewService(
	repo *Repository,
	dbClient txRunner,
	syncer *content.Syncer[models.Banner],
	broadcaster *broadcast.Broadcaster,
	logg *logger.Logger,
	syncMetrics *metrics.SyncMetrics,
	instanceID string,
) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("banner repository required")
	}
	if dbClient == nil {
		return nil, fmt.Errorf("db client required")
	}
	if syncer == nil {
		return nil, fmt.Errorf("syncer required")
	}
	if broadcaster == nil {
		return nil, fmt.Errorf("broadcaster required")
	}
	return &service{
		repo:        repo,
		dbClient:    dbClient,
		syncer:      syncer,
		broadcaster: broadcaster,
		logg:        logg,
		metrics:     syncMetrics,
		instanceID:  instanceID,
	}, nil
}

// Slides returns the slider entries in display order through the layered
// load, so the slider keeps rendering during store outages.
func (s *service) Slides(ctx context.Context) ([]content.BannerSlide, content.Source) {
	banners, source := s.syncer.Load(ctx)
	slides := make([]content.BannerSlide, 0, len(banners))
	for _, banner := range banners {
		if banner.ImageURL == "" {
			continue
		}
		slides = append(slides, content.BannerSlide{
			ID:       banner.ID,
			Title:    banner.Title,
			ImageURL: banner.ImageURL,
		})
	}
	return slides, source
}

// Reorder rewrites slider positions to match the given ID order. Every ID
// must name an existing banner or the whole reorder rolls back.
func (s *service) Reorder(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "banner order is required")
	}
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if id == "" {
			return pkgerrors.New(pkgerrors.CodeValidation, "banner id cannot be empty")
		}
		if seen[id] {
			return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("duplicate banner id %q", id))
		}
		seen[id] = true
	}

	if err := s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		for position, id := range ids {
			if err := txRepo.SetPosition(ctx, id, position); err != nil {
				if pkgerrors.As(err) != nil {
					return err
				}
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: set banner position")
			}
		}
		return nil
	}); err != nil {
		return err
	}

	s.afterWrite(ctx)
	return nil
}

// afterWrite refreshes the banner snapshot and announces the change. Both
// halves are best-effort once the store write has committed.
func (s *service) afterWrite(ctx context.Context) {
	banners, err := s.repo.List(ctx)
	if err != nil {
		if s.logg != nil {
			s.logg.Error(ctx, "reloading banners after write", err)
		}
		s.syncer.Invalidate()
	} else if err := s.syncer.Mirror(ctx, banners); err != nil && s.logg != nil {
		s.logg.Warn(ctx, "mirroring banner snapshot after write failed")
	}

	s.metrics.IncBroadcast(s.syncer.Kind())
	s.broadcaster.Publish(ctx, broadcast.Event{
		Kind:   s.syncer.Kind(),
		Origin: s.instanceID,
	})
}
