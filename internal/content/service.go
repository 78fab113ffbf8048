package content

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/mirelletran/fangallery-backend/internal/taxonomy"
	"github.com/mirelletran/fangallery-backend/pkg/broadcast"
	"github.com/mirelletran/fangallery-backend/pkg/db/models"
	"github.com/mirelletran/fangallery-backend/pkg/enums"
	pkgerrors "github.com/mirelletran/fangallery-backend/pkg/errors"
	"github.com/mirelletran/fangallery-backend/pkg/logger"
	"github.com/mirelletran/fangallery-backend/pkg/metrics"
	"github.com/mirelletran/fangallery-backend/pkg/pagination"
)

// Service exposes the gallery content operations.
type Service interface {
	Browse(ctx context.Context, q BrowseQuery) (*BrowseResult, error)
	Get(ctx context.Context, id string) (*ViewModel, error)
	Create(ctx context.Context, input CreateInput) (*ViewModel, error)
	Update(ctx context.Context, id string, input UpdateInput) (*ViewModel, error)
	Delete(ctx context.Context, id string) error
}

// BrowseQuery selects, searches and orders a page of content.
type BrowseQuery struct {
	Query
	Cursor string
	Limit  int
}

// BrowseResult is one page of projected content plus the layer that served
// the underlying records.
type BrowseResult struct {
	Items      []ViewModel
	Source     Source
	NextCursor string
}

// AssetUpload is one incoming asset stream bound to a slot.
type AssetUpload struct {
	Slot        enums.AssetSlot
	FileName    string
	ContentType string
	Body        io.Reader
}

// CreateInput holds the validated payload to publish a content record.
type CreateInput struct {
	Title       string
	Description string
	Section     enums.Section
	Category    string
	Subcategory string
	Tags        []string
	DateAdded   string
	Uploads     []AssetUpload
}

// UpdateInput holds optional mutation values. Uploads replace the asset in
// the matching slot; omitted slots keep their current asset.
type UpdateInput struct {
	Title       *string
	Description *string
	Tags        *[]string
	DateAdded   *string
	Uploads     []AssetUpload
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// BannerMirror maintains the banner row that shadows a Banner Slider record.
type BannerMirror interface {
	Upsert(ctx context.Context, tx *gorm.DB, banner *models.Banner) error
	Delete(ctx context.Context, tx *gorm.DB, id string) error
}

// service implements the content service.
type service struct {
	repo        *Repository
	dbClient    txRunner
	assets      AssetStore
	syncer      *Syncer[models.ContentRecord]
	projector   *Projector
	taxonomy    *taxonomy.Table
	broadcaster *broadcast.Broadcaster
	banners     BannerMirror
	logg        *logger.Logger
	metrics     *metrics.SyncMetrics
	instanceID  string
	now         func() time.Time
}

// NewService constructs a content service instance. The banner mirror,
// logger and metrics may be nil.
func NewService(
	repo *Repository,
	dbClient txRunner,
	assets AssetStore,
	syncer *Syncer[models.ContentRecord],
	projector *Projector,
	table *taxonomy.Table,
	broadcaster *broadcast.Broadcaster,
	banners BannerMirror,
	logg *logger.Logger,
	syncMetrics *metrics.SyncMetrics,
	instanceID string,
) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("content repository required")
	}
	if dbClient == nil {
		return nil, fmt.Errorf("db client required")
	}
	if assets == nil {
		return nil, fmt.Errorf("asset store required")
	}
	if syncer == nil {
		return nil, fmt.Errorf("syncer required")
	}
	if projector == nil {
		return nil, fmt.Errorf("projector required")
	}
	if table == nil {
		return nil, fmt.Errorf("taxonomy table required")
	}
	if broadcaster == nil {
		return nil, fmt.Errorf("broadcaster required")
	}
	return &service{
		repo:        repo,
		dbClient:    dbClient,
		assets:      assets,
		syncer:      syncer,
		projector:   projector,
		taxonomy:    table,
		broadcaster: broadcaster,
		banners:     banners,
		logg:        logg,
		metrics:     syncMetrics,
		instanceID:  instanceID,
		now:         time.Now,
	}, nil
}

// Browse loads the freshest record set available and returns one projected
// page. Only a malformed cursor fails; remote outages degrade the source.
func (s *service) Browse(ctx context.Context, q BrowseQuery) (*BrowseResult, error) {
	cursor, err := pagination.ParseCursor(q.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}

	records, source := s.syncer.Load(ctx)
	items := s.projector.Project(records, q.Query)

	start := 0
	if cursor != nil {
		for i := range items {
			if items[i].ID == cursor.ID {
				start = i + 1
				break
			}
		}
	}
	limit := pagination.NormalizeLimit(q.Limit)
	end := start + limit
	if end > len(items) {
		end = len(items)
	}
	page := items[start:end]

	next := ""
	if end < len(items) && len(page) > 0 {
		last := page[len(page)-1]
		next = pagination.EncodeCursor(pagination.Cursor{
			CreatedAt: time.UnixMilli(dateSortKey(last.DateAdded)).UTC(),
			ID:        last.ID,
		})
	}
	return &BrowseResult{Items: page, Source: source, NextCursor: next}, nil
}

// Get returns one projected record by ID, served through the same layered
// load as Browse so it stays available during remote outages.
func (s *service) Get(ctx context.Context, id string) (*ViewModel, error) {
	records, _ := s.syncer.Load(ctx)
	for i := range records {
		if records[i].ID == id {
			vm := NewViewModel(records[i], s.taxonomy, s.now)
			return &vm, nil
		}
	}
	return nil, pkgerrors.New(pkgerrors.CodeNotFound, "content record not found")
}

// Create validates, uploads the assets, stores the record and announces the
// change. A failed upload or store leaves no partial state behind: already
// uploaded assets are deleted best-effort and nothing is mirrored or
// broadcast.
func (s *service) Create(ctx context.Context, input CreateInput) (*ViewModel, error) {
	if err := s.validateCreate(input); err != nil {
		return nil, err
	}

	folder := s.resolveFolder(input.Section, input.Category, input.Subcategory)
	refs, err := s.uploadAll(ctx, folder, input.Uploads)
	if err != nil {
		return nil, err
	}

	rec := &models.ContentRecord{
		ID:          uuid.NewString(),
		Title:       strings.TrimSpace(input.Title),
		Description: input.Description,
		Section:     input.Section,
		Category:    input.Category,
		Subcategory: input.Subcategory,
		Tags:        pq.StringArray(input.Tags),
		DateAdded:   input.DateAdded,
		Folder:      folder,
	}
	if rec.DateAdded == "" {
		rec.DateAdded = s.now().UTC().Format(time.RFC3339)
	}
	applyAssets(rec, refs)

	if err := s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		if err := txRepo.Insert(ctx, rec); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: insert content record")
		}
		return s.mirrorBanner(ctx, tx, rec)
	}); err != nil {
		s.cleanupRefs(ctx, refs)
		return nil, err
	}

	s.afterWrite(ctx, rec.ID, rec.Section)
	vm := NewViewModel(*rec, s.taxonomy, s.now)
	return &vm, nil
}

// Update applies metadata changes and asset replacements to an existing
// record. Replacement uploads happen before the store write; if anything
// fails the new uploads are removed and the stored record stays untouched.
func (s *service) Update(ctx context.Context, id string, input UpdateInput) (*ViewModel, error) {
	if err := validateUploads(input.Uploads); err != nil {
		return nil, err
	}
	if input.Title != nil && strings.TrimSpace(*input.Title) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "title cannot be empty")
	}

	rec, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	folder := rec.Folder
	if folder == "" {
		folder = s.resolveFolder(rec.Section, rec.Category, rec.Subcategory)
	}
	refs, err := s.uploadAll(ctx, folder, input.Uploads)
	if err != nil {
		return nil, err
	}
	replaced := replacedFileIDs(rec, refs)

	if input.Title != nil {
		rec.Title = strings.TrimSpace(*input.Title)
	}
	if input.Description != nil {
		rec.Description = *input.Description
	}
	if input.Tags != nil {
		rec.Tags = pq.StringArray(*input.Tags)
	}
	if input.DateAdded != nil {
		rec.DateAdded = *input.DateAdded
	}
	applyAssets(rec, refs)

	if err := s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		if err := txRepo.Update(ctx, rec); err != nil {
			if pkgerrors.As(err) != nil {
				return err
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: update content record")
		}
		return s.mirrorBanner(ctx, tx, rec)
	}); err != nil {
		s.cleanupRefs(ctx, refs)
		return nil, err
	}

	s.afterWrite(ctx, rec.ID, rec.Section)
	s.deleteFileIDs(ctx, replaced)
	vm := NewViewModel(*rec, s.taxonomy, s.now)
	return &vm, nil
}

// Delete removes the record, its shadow banner row and its stored assets.
// The record and banner row go in one transaction; asset deletion is
// best-effort afterwards.
func (s *service) Delete(ctx context.Context, id string) error {
	rec, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return err
	}

	if err := s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		if err := txRepo.Delete(ctx, id); err != nil {
			if pkgerrors.As(err) != nil {
				return err
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: delete content record")
		}
		if rec.Section != enums.SectionBannerSlider || s.banners == nil {
			return nil
		}
		if err := s.banners.Delete(ctx, tx, id); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: delete banner row")
		}
		return nil
	}); err != nil {
		return err
	}

	s.afterWrite(ctx, id, rec.Section)
	s.deleteFileIDs(ctx, allFileIDs(rec))
	return nil
}

func (s *service) validateCreate(input CreateInput) error {
	if strings.TrimSpace(input.Title) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "title is required")
	}
	if !input.Section.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid section")
	}
	if err := validateUploads(input.Uploads); err != nil {
		return err
	}

	slots := make(map[enums.AssetSlot]bool, len(input.Uploads))
	for _, up := range input.Uploads {
		slots[up.Slot] = true
	}

	if input.Section == enums.SectionBannerSlider {
		if !slots[enums.AssetSlotImage] {
			return pkgerrors.New(pkgerrors.CodeValidation, "banner slides require an image upload")
		}
		return nil
	}

	if strings.TrimSpace(input.Category) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "category is required")
	}
	if !s.taxonomy.Contains(input.Category, input.Subcategory) {
		return pkgerrors.New(pkgerrors.CodeValidation, "unknown category or subcategory")
	}
	kind, ok := s.taxonomy.KindFor(input.Category, input.Subcategory)
	if !ok {
		return pkgerrors.New(pkgerrors.CodeValidation, "category has no content kind")
	}
	for _, slot := range requiredSlots(kind) {
		if !slots[slot] {
			return pkgerrors.New(pkgerrors.CodeValidation,
				fmt.Sprintf("%s upload is required for %s content", slot, kind))
		}
	}
	return nil
}

func validateUploads(uploads []AssetUpload) error {
	seen := make(map[enums.AssetSlot]bool, len(uploads))
	for _, up := range uploads {
		if !up.Slot.IsValid() {
			return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid asset slot %q", up.Slot))
		}
		if seen[up.Slot] {
			return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("duplicate %s upload", up.Slot))
		}
		seen[up.Slot] = true
		if up.Body == nil {
			return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("%s upload has no body", up.Slot))
		}
	}
	return nil
}

// requiredSlots maps a content kind to the uploads it cannot publish
// without. Thumbnails are always optional.
func requiredSlots(kind enums.ContentKind) []enums.AssetSlot {
	switch kind {
	case enums.ContentKindSingleImage:
		return []enums.AssetSlot{enums.AssetSlotImage}
	case enums.ContentKindImageZip:
		return []enums.AssetSlot{enums.AssetSlotImage, enums.AssetSlotZip}
	case enums.ContentKindVideo:
		return []enums.AssetSlot{enums.AssetSlotVideo}
	default:
		return nil
	}
}

func (s *service) resolveFolder(section enums.Section, category, subcategory string) string {
	if section == enums.SectionBannerSlider {
		return "banners/slider"
	}
	return s.taxonomy.FolderFor(category, subcategory)
}

// uploadAll streams every upload into the asset store. On the first failure
// it removes whatever already landed and reports a dependency error.
func (s *service) uploadAll(ctx context.Context, folder string, uploads []AssetUpload) (map[enums.AssetSlot]AssetRef, error) {
	refs := make(map[enums.AssetSlot]AssetRef, len(uploads))
	for _, up := range uploads {
		ref, err := s.assets.Upload(ctx, folder, up.FileName, up.ContentType, up.Body)
		if err != nil {
			err = multierr.Append(err, s.cleanupRefs(ctx, refs))
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err,
				fmt.Sprintf("storage: upload %s asset", up.Slot))
		}
		refs[up.Slot] = ref
	}
	return refs, nil
}

func (s *service) cleanupRefs(ctx context.Context, refs map[enums.AssetSlot]AssetRef) error {
	var errs error
	for _, ref := range refs {
		if err := s.assets.Delete(ctx, ref.FileID); err != nil {
			errs = multierr.Append(errs, err)
		}
	}
	if errs != nil && s.logg != nil {
		s.logg.Error(ctx, "cleaning up uploaded assets", errs)
	}
	return errs
}

func (s *service) deleteFileIDs(ctx context.Context, fileIDs []string) {
	var errs error
	for _, fileID := range fileIDs {
		if err := s.assets.Delete(ctx, fileID); err != nil {
			errs = multierr.Append(errs, err)
		}
	}
	if errs != nil && s.logg != nil {
		s.logg.Error(ctx, "deleting stored assets", errs)
	}
}

func (s *service) mirrorBanner(ctx context.Context, tx *gorm.DB, rec *models.ContentRecord) error {
	if rec.Section != enums.SectionBannerSlider || s.banners == nil {
		return nil
	}
	banner := &models.Banner{
		ID:       rec.ID,
		Title:    rec.Title,
		ImageURL: rec.ImageURL,
	}
	if err := s.banners.Upsert(ctx, tx, banner); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: upsert banner")
	}
	return nil
}

// afterWrite runs only after a successful store mutation: it refreshes the
// fallback snapshot from the store and announces the change. Both halves are
// best-effort; a failed mirror just invalidates so the next load refetches.
// Banner Slider writes additionally announce on the banner channel so the
// slider snapshot refreshes too.
func (s *service) afterWrite(ctx context.Context, recordID string, section enums.Section) {
	records, err := s.repo.List(ctx)
	if err != nil {
		if s.logg != nil {
			s.logg.Error(ctx, "reloading records after write", err)
		}
		s.syncer.Invalidate()
	} else if err := s.syncer.Mirror(ctx, records); err != nil && s.logg != nil {
		s.logg.Warn(s.logg.WithRecordID(ctx, recordID), "mirroring snapshot after write failed")
	}

	s.metrics.IncBroadcast(s.syncer.Kind())
	s.broadcaster.Publish(ctx, broadcast.Event{
		Kind:     s.syncer.Kind(),
		RecordID: recordID,
		Origin:   s.instanceID,
	})
	if section == enums.SectionBannerSlider {
		s.metrics.IncBroadcast(ChannelBanners)
		s.broadcaster.Publish(ctx, broadcast.Event{
			Kind:     ChannelBanners,
			RecordID: recordID,
			Origin:   s.instanceID,
		})
	}
}

func applyAssets(rec *models.ContentRecord, refs map[enums.AssetSlot]AssetRef) {
	if ref, ok := refs[enums.AssetSlotImage]; ok {
		rec.ImageURL, rec.ImageFileID = ref.URL, ref.FileID
	}
	if ref, ok := refs[enums.AssetSlotThumbnail]; ok {
		rec.ThumbnailURL, rec.ThumbnailFileID = ref.URL, ref.FileID
	}
	if ref, ok := refs[enums.AssetSlotZip]; ok {
		rec.ZipURL, rec.ZipFileID = ref.URL, ref.FileID
	}
	if ref, ok := refs[enums.AssetSlotVideo]; ok {
		rec.VideoURL, rec.VideoFileID = ref.URL, ref.FileID
	}
}

// replacedFileIDs collects the file IDs about to be shadowed by replacement
// uploads so they can be removed after the write commits.
func replacedFileIDs(rec *models.ContentRecord, refs map[enums.AssetSlot]AssetRef) []string {
	bySlot := map[enums.AssetSlot]string{
		enums.AssetSlotImage:     rec.ImageFileID,
		enums.AssetSlotThumbnail: rec.ThumbnailFileID,
		enums.AssetSlotZip:       rec.ZipFileID,
		enums.AssetSlotVideo:     rec.VideoFileID,
	}
	var out []string
	for slot := range refs {
		if fileID := bySlot[slot]; fileID != "" {
			out = append(out, fileID)
		}
	}
	return out
}

func allFileIDs(rec *models.ContentRecord) []string {
	var out []string
	for _, fileID := range []string{rec.ImageFileID, rec.ThumbnailFileID, rec.ZipFileID, rec.VideoFileID} {
		if fileID != "" {
			out = append(out, fileID)
		}
	}
	return out
}
