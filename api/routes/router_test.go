package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/mirelletran/fangallery-backend/internal/auth"
	"github.com/mirelletran/fangallery-backend/internal/banners"
	"github.com/mirelletran/fangallery-backend/internal/content"
	"github.com/mirelletran/fangallery-backend/internal/taxonomy"
	pkgAuth "github.com/mirelletran/fangallery-backend/pkg/auth"
	"github.com/mirelletran/fangallery-backend/pkg/broadcast"
	"github.com/mirelletran/fangallery-backend/pkg/config"
	"github.com/mirelletran/fangallery-backend/pkg/db/models"
	"github.com/mirelletran/fangallery-backend/pkg/enums"
)

type gormTxRunner struct {
	db *gorm.DB
}

func (r gormTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.WithContext(ctx).Transaction(fn)
}

type memorySnapshots struct {
	mu     sync.Mutex
	values map[string]string
}

func newMemorySnapshots() *memorySnapshots {
	return &memorySnapshots{values: map[string]string{}}
}

func (s *memorySnapshots) Get(_ context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	value, ok := s.values[key]
	if !ok {
		return "", fmt.Errorf("snapshot: key missing")
	}
	return value, nil
}

func (s *memorySnapshots) Set(_ context.Context, key string, value any, _ time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value.(string)
	return nil
}

func (s *memorySnapshots) Del(_ context.Context, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, key := range keys {
		delete(s.values, key)
	}
	return nil
}

type fakeAssets struct{}

func (fakeAssets) Upload(_ context.Context, folder, name, _ string, body io.Reader) (content.AssetRef, error) {
	io.Copy(io.Discard, body)
	object := folder + "/" + name
	return content.AssetRef{URL: "https://cdn.test/" + object, FileID: object}, nil
}

func (fakeAssets) Delete(context.Context, string) error { return nil }

type fakeCodes struct {
	mu     sync.Mutex
	values map[string]string
	counts map[string]int64
}

func newFakeCodes() *fakeCodes {
	return &fakeCodes{values: map[string]string{}, counts: map[string]int64{}}
}

func (s *fakeCodes) Set(_ context.Context, key string, value any, _ time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = fmt.Sprint(value)
	return nil
}

func (s *fakeCodes) Get(_ context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	value, ok := s.values[key]
	if !ok {
		return "", fmt.Errorf("codes: key missing")
	}
	return value, nil
}

func (s *fakeCodes) Del(_ context.Context, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, key := range keys {
		delete(s.values, key)
	}
	return nil
}

func (s *fakeCodes) IncrWithTTL(_ context.Context, key string, _ time.Duration) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counts[key]++
	return s.counts[key], nil
}

func (s *fakeCodes) VerificationCodeKey(email string) string { return "verify:" + email }

func (s *fakeCodes) VerificationAttemptsKey(email string) string { return "verify:attempts:" + email }

type fakeMailer struct {
	mu    sync.Mutex
	codes map[string]string
}

func newFakeMailer() *fakeMailer {
	return &fakeMailer{codes: map[string]string{}}
}

func (m *fakeMailer) SendVerificationCode(_ context.Context, to, code string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.codes[to] = code
	return nil
}

func (m *fakeMailer) waitForCode(t *testing.T, to string) string {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		m.mu.Lock()
		code, ok := m.codes[to]
		m.mu.Unlock()
		if ok {
			return code
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("no verification code delivered to %s", to)
	return ""
}

type fakeSessions struct {
	mu     sync.Mutex
	tokens map[string]string
}

func newFakeSessions() *fakeSessions {
	return &fakeSessions{tokens: map[string]string{}}
}

func (s *fakeSessions) Generate(_ context.Context, accessID string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	token := "refresh-" + accessID
	s.tokens[accessID] = token
	return token, nil
}

func (s *fakeSessions) Rotate(_ context.Context, oldAccessID, provided string) (string, string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.tokens[oldAccessID] != provided {
		return "", "", fmt.Errorf("invalid refresh token")
	}
	delete(s.tokens, oldAccessID)
	newID := uuid.NewString()
	token := "refresh-" + newID
	s.tokens[newID] = token
	return newID, token, nil
}

func (s *fakeSessions) Revoke(_ context.Context, accessID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.tokens, accessID)
	return nil
}

func (s *fakeSessions) HasSession(_ context.Context, accessID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.tokens[accessID]
	return ok, nil
}

type routerFixture struct {
	server      *httptest.Server
	cfg         *config.Config
	contentRepo *content.Repository
	bannerRepo  *banners.Repository
	mailer      *fakeMailer
	sessions    *fakeSessions
}

func newRouterFixture(t *testing.T) *routerFixture {
	t.Helper()

	conn, err := gorm.Open(sqlite.Open("file:"+uuid.NewString()+"?mode=memory&cache=shared"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	if err := conn.AutoMigrate(&models.ContentRecord{}, &models.Banner{}, &models.AdminUser{}); err != nil {
		t.Fatalf("failed to migrate sqlite: %v", err)
	}

	cfg := &config.Config{}
	cfg.App.Env = "test"
	cfg.App.CORSOrigins = "*"
	cfg.JWT = config.JWTConfig{Secret: "router-secret", Issuer: "fangallery", ExpirationMinutes: 5}
	cfg.Assets.MaxUploadMB = 5
	cfg.Verification = config.VerificationConfig{CodeTTL: time.Minute, MaxAttempts: 3}

	b := broadcast.New(nil)
	table := taxonomy.Default()
	snapshots := newMemorySnapshots()

	contentRepo := content.NewRepository(conn)
	bannerRepo := banners.NewRepository(conn)

	contentSyncer := content.NewSyncer(contentRepo, content.RecordSnapshotCodec(), snapshots, content.SyncerConfig{
		Kind:        content.ChannelContent,
		SnapshotKey: "fg:snapshot:siteContent",
		MemoryCache: true,
	}, nil, nil)
	t.Cleanup(contentSyncer.AttachTo(b))

	bannerSyncer := content.NewSyncer(bannerRepo, banners.SnapshotCodec(), snapshots, content.SyncerConfig{
		Kind:        content.ChannelBanners,
		SnapshotKey: "fg:snapshot:banners",
		MemoryCache: true,
	}, nil, nil)
	t.Cleanup(bannerSyncer.AttachTo(b))

	contentSvc, err := content.NewService(contentRepo, gormTxRunner{db: conn}, fakeAssets{}, contentSyncer,
		content.NewProjector(table), table, b, bannerRepo, nil, nil, "router-test")
	if err != nil {
		t.Fatalf("new content service: %v", err)
	}

	bannerSvc, err := banners.NewService(bannerRepo, gormTxRunner{db: conn}, bannerSyncer, b, nil, nil, "router-test")
	if err != nil {
		t.Fatalf("new banner service: %v", err)
	}

	mailer := newFakeMailer()
	sessions := newFakeSessions()
	authSvc, err := auth.NewService(auth.ServiceParams{
		AdminRepo:      auth.NewRepository(conn),
		SessionManager: sessions,
		Codes:          newFakeCodes(),
		Mailer:         mailer,
		JWTConfig:      cfg.JWT,
		PasswordConfig: config.PasswordConfig{},
		Verification:   cfg.Verification,
	})
	if err != nil {
		t.Fatalf("new auth service: %v", err)
	}

	handler := NewRouter(Deps{
		Config:         cfg,
		DBPinger:       nil,
		SessionChecker: sessions,
		AuthService:    authSvc,
		ContentService: contentSvc,
		BannerService:  bannerSvc,
	})

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	return &routerFixture{
		server:      server,
		cfg:         cfg,
		contentRepo: contentRepo,
		bannerRepo:  bannerRepo,
		mailer:      mailer,
		sessions:    sessions,
	}
}

func (fx *routerFixture) adminToken(t *testing.T) string {
	t.Helper()

	accessID := uuid.NewString()
	if _, err := fx.sessions.Generate(context.Background(), accessID); err != nil {
		t.Fatalf("seed session: %v", err)
	}
	token, err := pkgAuth.MintAccessToken(fx.cfg.JWT, time.Now(), pkgAuth.AccessTokenPayload{
		AdminID: uuid.New(),
		Email:   "ops@example.com",
		JTI:     accessID,
	})
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	return token
}

func decodeData(t *testing.T, res *http.Response, dest any) {
	t.Helper()
	defer res.Body.Close()

	var envelope struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.NewDecoder(res.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode envelope: %v", err)
	}
	if dest != nil {
		if err := json.Unmarshal(envelope.Data, dest); err != nil {
			t.Fatalf("decode data: %v", err)
		}
	}
}

func TestRouterPublicSurfaces(t *testing.T) {
	fx := newRouterFixture(t)
	ctx := context.Background()

	if err := fx.contentRepo.Insert(ctx, &models.ContentRecord{
		ID:       "art-1",
		Title:    "Spring Illustration",
		Section:  enums.SectionArtwork,
		Category: "Illustrations",
		ImageURL: "https://cdn.test/art-1.png",
	}); err != nil {
		t.Fatalf("seed record: %v", err)
	}
	if err := fx.bannerRepo.Upsert(ctx, nil, &models.Banner{ID: "b1", Title: "Event", ImageURL: "https://cdn.test/b1.png"}); err != nil {
		t.Fatalf("seed banner: %v", err)
	}

	res, err := http.Get(fx.server.URL + "/health/live")
	if err != nil || res.StatusCode != http.StatusOK {
		t.Fatalf("health live: %v status %d", err, res.StatusCode)
	}
	res.Body.Close()

	res, err = http.Get(fx.server.URL + "/api/v1/gallery?category=Illustrations")
	if err != nil {
		t.Fatalf("gallery: %v", err)
	}
	if res.StatusCode != http.StatusOK {
		t.Fatalf("gallery status %d", res.StatusCode)
	}
	var page struct {
		Items    []content.GalleryItem `json:"items"`
		Degraded bool                  `json:"degraded"`
	}
	decodeData(t, res, &page)
	if len(page.Items) != 1 || page.Items[0].ID != "art-1" || page.Degraded {
		t.Fatalf("unexpected gallery page: %+v", page)
	}

	res, err = http.Get(fx.server.URL + "/api/v1/banners")
	if err != nil {
		t.Fatalf("banners: %v", err)
	}
	var slides struct {
		Items []content.BannerSlide `json:"items"`
	}
	decodeData(t, res, &slides)
	if len(slides.Items) != 1 || slides.Items[0].ID != "b1" {
		t.Fatalf("unexpected slides: %+v", slides)
	}

	res, err = http.Get(fx.server.URL + "/api/v1/gallery?section=Nonsense")
	if err != nil {
		t.Fatalf("bad section: %v", err)
	}
	res.Body.Close()
	if res.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for invalid section, got %d", res.StatusCode)
	}
}

func TestRouterLeaksCategoryFilter(t *testing.T) {
	fx := newRouterFixture(t)
	ctx := context.Background()

	for id, category := range map[string]string{"l-main": "Main Leaks", "l-beta": "Beta Leaks"} {
		if err := fx.contentRepo.Insert(ctx, &models.ContentRecord{
			ID:       id,
			Title:    id,
			Section:  enums.SectionLeaks,
			Category: category,
			ImageURL: "https://cdn.test/" + id + ".png",
		}); err != nil {
			t.Fatalf("seed record: %v", err)
		}
	}

	// Padded values narrow the same way as clean ones.
	res, err := http.Get(fx.server.URL + "/api/v1/leaks?category=%20Main%20Leaks%20")
	if err != nil {
		t.Fatalf("leaks: %v", err)
	}
	if res.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.StatusCode)
	}
	var page struct {
		Items []content.LeakEntry `json:"items"`
	}
	decodeData(t, res, &page)
	if len(page.Items) != 1 || page.Items[0].ID != "l-main" {
		t.Fatalf("expected only the main leak, got %+v", page.Items)
	}
}

func TestRouterAdminRequiresAuth(t *testing.T) {
	fx := newRouterFixture(t)

	res, err := http.Post(fx.server.URL+"/api/admin/v1/content/", "application/json", strings.NewReader("{}"))
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	res.Body.Close()
	if res.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", res.StatusCode)
	}
}

func TestRouterAdminCreateContent(t *testing.T) {
	fx := newRouterFixture(t)
	token := fx.adminToken(t)

	var body bytes.Buffer
	form := multipart.NewWriter(&body)
	form.WriteField("title", "Summer Pack")
	form.WriteField("section", "Artwork")
	form.WriteField("category", "Illustrations")
	form.WriteField("tags", "summer, pack")
	part, err := form.CreateFormFile("image", "summer.png")
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	part.Write([]byte("png-bytes"))
	form.Close()

	req, err := http.NewRequest(http.MethodPost, fx.server.URL+"/api/admin/v1/content/", &body)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", form.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)

	res, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("create content: %v", err)
	}
	if res.StatusCode != http.StatusCreated {
		raw, _ := io.ReadAll(res.Body)
		res.Body.Close()
		t.Fatalf("expected 201, got %d: %s", res.StatusCode, raw)
	}
	var vm content.ViewModel
	decodeData(t, res, &vm)
	if vm.Title != "Summer Pack" || vm.ImageURL == "" {
		t.Fatalf("unexpected view model: %+v", vm)
	}

	res, err = http.Get(fx.server.URL + "/api/v1/gallery")
	if err != nil {
		t.Fatalf("gallery: %v", err)
	}
	var page struct {
		Items []content.GalleryItem `json:"items"`
	}
	decodeData(t, res, &page)
	if len(page.Items) != 1 || page.Items[0].ID != vm.ID {
		t.Fatalf("expected created item in gallery, got %+v", page.Items)
	}
}

func TestRouterAdminDeleteBannerSliderRemovesBannerRow(t *testing.T) {
	fx := newRouterFixture(t)
	ctx := context.Background()
	token := fx.adminToken(t)

	var body bytes.Buffer
	form := multipart.NewWriter(&body)
	form.WriteField("title", "Event Banner")
	form.WriteField("section", "Banner Slider")
	part, err := form.CreateFormFile("image", "event.png")
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	part.Write([]byte("png-bytes"))
	form.Close()

	req, err := http.NewRequest(http.MethodPost, fx.server.URL+"/api/admin/v1/content/", &body)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", form.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)

	res, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("create banner slide: %v", err)
	}
	if res.StatusCode != http.StatusCreated {
		raw, _ := io.ReadAll(res.Body)
		res.Body.Close()
		t.Fatalf("expected 201, got %d: %s", res.StatusCode, raw)
	}
	var vm content.ViewModel
	decodeData(t, res, &vm)

	banners, err := fx.bannerRepo.List(ctx)
	if err != nil || len(banners) != 1 {
		t.Fatalf("expected one shadow banner row, got %+v %v", banners, err)
	}

	req, err = http.NewRequest(http.MethodDelete, fx.server.URL+"/api/admin/v1/content/"+vm.ID, nil)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	res, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("delete content: %v", err)
	}
	res.Body.Close()
	if res.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.StatusCode)
	}

	banners, err = fx.bannerRepo.List(ctx)
	if err != nil {
		t.Fatalf("list banners: %v", err)
	}
	if len(banners) != 0 {
		t.Fatalf("expected shadow banner row removed with the record, got %+v", banners)
	}
}

func TestRouterAdminReorderBanners(t *testing.T) {
	fx := newRouterFixture(t)
	ctx := context.Background()
	token := fx.adminToken(t)

	for i, id := range []string{"b1", "b2"} {
		if err := fx.bannerRepo.Upsert(ctx, nil, &models.Banner{ID: id, Title: id, ImageURL: "i", Position: i}); err != nil {
			t.Fatalf("seed banner: %v", err)
		}
	}

	req, err := http.NewRequest(http.MethodPost, fx.server.URL+"/api/admin/v1/banners/", strings.NewReader(`{"ids":["b2","b1"]}`))
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	res, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("reorder: %v", err)
	}
	res.Body.Close()
	if res.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.StatusCode)
	}

	ordered, err := fx.bannerRepo.List(ctx)
	if err != nil {
		t.Fatalf("list banners: %v", err)
	}
	if ordered[0].ID != "b2" || ordered[1].ID != "b1" {
		t.Fatalf("unexpected order: %+v", ordered)
	}
}

func TestRouterAuthFlow(t *testing.T) {
	fx := newRouterFixture(t)

	register := `{"email":"ops@example.com","password":"correct horse battery","display_name":"Ops"}`
	res, err := http.Post(fx.server.URL+"/api/admin/v1/auth/register", "application/json", strings.NewReader(register))
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	res.Body.Close()
	if res.StatusCode != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", res.StatusCode)
	}

	code := fx.mailer.waitForCode(t, "ops@example.com")
	verify := fmt.Sprintf(`{"email":"ops@example.com","code":%q}`, code)
	res, err = http.Post(fx.server.URL+"/api/admin/v1/auth/verify", "application/json", strings.NewReader(verify))
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	res.Body.Close()
	if res.StatusCode != http.StatusOK {
		t.Fatalf("expected verify 200, got %d", res.StatusCode)
	}

	login := `{"email":"ops@example.com","password":"correct horse battery"}`
	res, err = http.Post(fx.server.URL+"/api/admin/v1/auth/login", "application/json", strings.NewReader(login))
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if res.StatusCode != http.StatusOK {
		t.Fatalf("expected login 200, got %d", res.StatusCode)
	}
	var tokens auth.LoginResponse
	decodeData(t, res, &tokens)
	if tokens.AccessToken == "" || tokens.RefreshToken == "" {
		t.Fatalf("expected token pair, got %+v", tokens)
	}

	// The minted pair passes the admin middleware.
	req, err := http.NewRequest(http.MethodPost, fx.server.URL+"/api/admin/v1/auth/logout", nil)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Authorization", "Bearer "+tokens.AccessToken)
	res, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("logout: %v", err)
	}
	res.Body.Close()
	if res.StatusCode != http.StatusOK {
		t.Fatalf("expected logout 200, got %d", res.StatusCode)
	}
}
