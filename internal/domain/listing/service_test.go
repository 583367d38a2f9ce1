package listing

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"gigmarket/internal/events"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) Create(ctx context.Context, l *Listing) error {
	args := m.Called(ctx, l)
	if l != nil && args.Error(0) == nil {
		l.ID = 999 // simulate DB insert
	}
	return args.Error(0)
}

func (m *MockRepository) GetByID(ctx context.Context, id int64) (*Listing, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Listing), args.Error(1)
}

func (m *MockRepository) GetByIDWithOwner(ctx context.Context, id int64) (*Listing, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Listing), args.Error(1)
}

func (m *MockRepository) Update(ctx context.Context, l *Listing) error {
	args := m.Called(ctx, l)
	return args.Error(0)
}

func (m *MockRepository) ListByOwner(ctx context.Context, ownerID int64) ([]Listing, error) {
	args := m.Called(ctx, ownerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]Listing), args.Error(1)
}

func (m *MockRepository) Search(ctx context.Context, term, category string) ([]Listing, error) {
	args := m.Called(ctx, term, category)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]Listing), args.Error(1)
}

func (m *MockRepository) ListAllImages(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

// fakeStorage fails every upload whose content is "boom".
type fakeStorage struct {
	mu   sync.Mutex
	keys []string
}

func (s *fakeStorage) Upload(_ context.Context, key string, data []byte, _ string) error {
	if string(data) == "boom" {
		return errors.New("connection reset")
	}
	s.mu.Lock()
	s.keys = append(s.keys, key)
	s.mu.Unlock()
	return nil
}

func (s *fakeStorage) PublicURL(key string) string {
	return "https://dzns-ecommerce.s3.amazonaws.com/" + key
}

type fakeCache struct {
	items   map[int64]*Listing
	deleted []int64
}

func (c *fakeCache) Get(_ context.Context, id int64) (*Listing, error) { return c.items[id], nil }

func (c *fakeCache) Set(_ context.Context, l *Listing) error {
	c.items[l.ID] = l
	return nil
}

func (c *fakeCache) Delete(_ context.Context, id int64) error {
	delete(c.items, id)
	c.deleted = append(c.deleted, id)
	return nil
}

type recordingPublisher struct {
	subjects  []string
	onPublish func()
}

func (p *recordingPublisher) Publish(_ context.Context, subject string, _ events.ListingEvent) error {
	p.subjects = append(p.subjects, subject)
	if p.onPublish != nil {
		p.onPublish()
	}
	return nil
}

var fixedNow = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func newTestService(repo Repository, opts Options) (*Service, *fakeStorage) {
	store := &fakeStorage{}
	if opts.Now == nil {
		opts.Now = func() time.Time { return fixedNow }
	}
	return NewService(repo, store, zap.NewNop(), opts), store
}

func validInput() *ListingInput {
	return &ListingInput{
		Title:        "Logo design",
		Description:  "Modern logo",
		Category:     "design",
		Features:     "vector",
		ShortDesc:    "logo",
		Price:        50,
		DeliveryTime: 3,
		Revisions:    2,
	}
}

func imageFile(field, name, content string) File {
	return File{FieldName: field, Name: name, Data: []byte(content), MimeType: "image/png"}
}

func TestSubmit_AllUploadsSucceed(t *testing.T) {
	repo := new(MockRepository)
	pub := &recordingPublisher{}
	svc, store := newTestService(repo, Options{Events: pub})

	repo.On("Create", mock.Anything, mock.MatchedBy(func(l *Listing) bool {
		return l.CreatedByID == 7 && len(l.Images) == 2 && l.Price == 50 && l.Title == "Logo design"
	})).Return(nil)

	files := []File{imageFile("image0", "a.png", "aaa"), imageFile("image1", "b.png", "bbb")}
	l, err := svc.Submit(context.Background(), files, validInput(), 7)

	require.NoError(t, err)
	assert.Equal(t, int64(999), l.ID)
	assert.Len(t, store.keys, 2)
	for _, img := range l.Images {
		assert.True(t, strings.HasPrefix(img, "https://dzns-ecommerce.s3.amazonaws.com/"))
	}
	assert.Equal(t, []string{events.SubjectListingCreated}, pub.subjects)
	repo.AssertExpectations(t)
}

func TestSubmit_DropPolicyKeepsSuccessfulUploads(t *testing.T) {
	repo := new(MockRepository)
	svc, _ := newTestService(repo, Options{FailurePolicy: PolicyDrop})

	repo.On("Create", mock.Anything, mock.MatchedBy(func(l *Listing) bool {
		return len(l.Images) == 2
	})).Return(nil)

	files := []File{
		imageFile("image0", "a.png", "aaa"),
		imageFile("image1", "b.png", "boom"),
		imageFile("image2", "c.png", "ccc"),
	}
	l, err := svc.Submit(context.Background(), files, validInput(), 7)

	require.NoError(t, err)
	assert.Len(t, l.Images, 2)
	repo.AssertExpectations(t)
}

func TestSubmit_RejectPolicyFailsWholeSubmission(t *testing.T) {
	repo := new(MockRepository)
	svc, _ := newTestService(repo, Options{FailurePolicy: PolicyReject})

	files := []File{imageFile("image0", "a.png", "aaa"), imageFile("image1", "b.png", "boom")}
	l, err := svc.Submit(context.Background(), files, validInput(), 7)

	assert.Nil(t, l)
	assert.ErrorIs(t, err, ErrStorage)
	repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestSubmit_ValidationErrors(t *testing.T) {
	repo := new(MockRepository)
	svc, store := newTestService(repo, Options{})

	_, err := svc.Submit(context.Background(), nil, validInput(), 7)
	assert.ErrorIs(t, err, ErrValidation)

	_, err = svc.Submit(context.Background(), []File{imageFile("image0", "a.png", "aaa")}, nil, 7)
	assert.ErrorIs(t, err, ErrValidation)

	assert.Empty(t, store.keys)
	repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestSubmit_PersistenceError(t *testing.T) {
	repo := new(MockRepository)
	svc, _ := newTestService(repo, Options{})

	repo.On("Create", mock.Anything, mock.Anything).Return(errors.New("disk full"))

	_, err := svc.Submit(context.Background(), []File{imageFile("image0", "a.png", "aaa")}, validInput(), 7)
	assert.ErrorIs(t, err, ErrPersistence)
}

func TestUploadBatch_UniqueKeysAndIndexes(t *testing.T) {
	svc, _ := newTestService(new(MockRepository), Options{UploadConcurrency: 2})

	files := []File{
		imageFile("image0", "same.png", "a"),
		imageFile("image1", "same.png", "b"),
		imageFile("image2", "same.png", "c"),
	}
	results := svc.UploadBatch(context.Background(), files)

	require.Len(t, results, 3)
	seenKeys := map[string]bool{}
	seenIdx := map[int]bool{}
	for _, r := range results {
		assert.True(t, r.OK())
		assert.Equal(t, files[r.Index].FieldName, r.FieldName)
		assert.True(t, strings.HasSuffix(r.Key, ".png"))
		assert.Equal(t, "https://dzns-ecommerce.s3.amazonaws.com/"+r.Key, r.URL)
		seenKeys[r.Key] = true
		seenIdx[r.Index] = true
	}
	assert.Len(t, seenKeys, 3)
	assert.Len(t, seenIdx, 3)
}

func TestUploadBatch_FailureDoesNotStopOthers(t *testing.T) {
	svc, store := newTestService(new(MockRepository), Options{})

	files := []File{imageFile("image0", "a.png", "boom"), imageFile("image1", "b.png", "ok")}
	results := svc.UploadBatch(context.Background(), files)

	require.Len(t, results, 2)
	failed := 0
	for _, r := range results {
		if !r.OK() {
			failed++
			assert.ErrorIs(t, r.Err, ErrStorage)
			assert.Empty(t, r.URL)
		}
	}
	assert.Equal(t, 1, failed)
	assert.Len(t, store.keys, 1)
}

func TestEdit_ReplacesFieldsAndRemovesCachedCopies(t *testing.T) {
	dir := t.TempDir()
	oldImage := "https://dzns-ecommerce.s3.amazonaws.com/1700000000000-0.png"
	cached := filepath.Join(dir, "1700000000000-0.png")
	require.NoError(t, os.WriteFile(cached, []byte("old"), 0o644))

	repo := new(MockRepository)
	cache := &fakeCache{items: map[int64]*Listing{}}
	pub := &recordingPublisher{}
	svc, _ := newTestService(repo, Options{CacheDir: dir, Cache: cache, Events: pub})

	repo.On("GetByID", mock.Anything, int64(5)).Return(&Listing{ID: 5, Title: "Old", Images: []string{oldImage}, CreatedByID: 7}, nil)
	repo.On("Update", mock.Anything, mock.MatchedBy(func(l *Listing) bool {
		return l.ID == 5 && l.Title == "Logo design" && len(l.Images) == 1 && l.Images[0] == "https://new/x.png"
	})).Return(nil)

	refs := []FileRef{{FieldName: "image0", Name: "x.png"}}
	links := map[string][]string{"image0": {"https://new/x.png"}}
	l, err := svc.Edit(context.Background(), 5, refs, links, validInput(), 7)

	require.NoError(t, err)
	assert.Equal(t, 50, l.Price)
	_, statErr := os.Stat(cached)
	assert.True(t, os.IsNotExist(statErr))
	assert.Equal(t, []int64{5, 5}, cache.deleted)
	assert.Equal(t, []string{events.SubjectListingUpdated}, pub.subjects)
	repo.AssertExpectations(t)
}

func TestEdit_UpdateFailureKeepsCachedCopies(t *testing.T) {
	dir := t.TempDir()
	oldImage := "https://dzns-ecommerce.s3.amazonaws.com/old.png"
	cached := filepath.Join(dir, "old.png")
	require.NoError(t, os.WriteFile(cached, []byte("old"), 0o644))

	repo := new(MockRepository)
	svc, _ := newTestService(repo, Options{CacheDir: dir})

	repo.On("GetByID", mock.Anything, int64(5)).Return(&Listing{ID: 5, Images: []string{oldImage}}, nil)
	repo.On("Update", mock.Anything, mock.Anything).Return(errors.New("deadlock"))

	_, err := svc.Edit(context.Background(), 5,
		[]FileRef{{FieldName: "image0", Name: "x.png"}},
		map[string][]string{"image0": {"https://new/x.png"}}, validInput(), 7)

	assert.ErrorIs(t, err, ErrPersistence)
	_, statErr := os.Stat(cached)
	assert.NoError(t, statErr)
}

func TestEdit_NotFound(t *testing.T) {
	repo := new(MockRepository)
	svc, _ := newTestService(repo, Options{})

	repo.On("GetByID", mock.Anything, int64(404)).Return(nil, ErrNotFound)

	_, err := svc.Edit(context.Background(), 404,
		[]FileRef{{FieldName: "image0", Name: "x.png"}},
		map[string][]string{"image0": {"https://new/x.png"}}, validInput(), 7)

	assert.ErrorIs(t, err, ErrNotFound)
	repo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
}

func TestEdit_MissingUploadLinks(t *testing.T) {
	repo := new(MockRepository)
	svc, _ := newTestService(repo, Options{})

	_, err := svc.Edit(context.Background(), 5, []FileRef{{FieldName: "image0", Name: "x.png"}}, nil, validInput(), 7)

	assert.ErrorIs(t, err, ErrUploadLinksMissing)
	repo.AssertNotCalled(t, "GetByID", mock.Anything, mock.Anything)
}

func TestEdit_SkipsFilesWithoutLink(t *testing.T) {
	repo := new(MockRepository)
	svc, _ := newTestService(repo, Options{})

	repo.On("GetByID", mock.Anything, int64(5)).Return(&Listing{ID: 5}, nil)
	repo.On("Update", mock.Anything, mock.MatchedBy(func(l *Listing) bool {
		return len(l.Images) == 1 && l.Images[0] == "https://new/a.png"
	})).Return(nil)

	refs := []FileRef{{FieldName: "image0", Name: "a.png"}, {FieldName: "image1", Name: "b.png"}}
	_, err := svc.Edit(context.Background(), 5, refs, map[string][]string{"image0": {"https://new/a.png"}}, validInput(), 7)

	require.NoError(t, err)
	repo.AssertExpectations(t)
}

func TestEdit_SeveralFilesUnderOneField(t *testing.T) {
	repo := new(MockRepository)
	svc, _ := newTestService(repo, Options{})

	repo.On("GetByID", mock.Anything, int64(5)).Return(&Listing{ID: 5}, nil)
	repo.On("Update", mock.Anything, mock.Anything).Return(nil)

	refs := []FileRef{
		{FieldName: "cover", Name: "c.png"},
		{FieldName: "images", Name: "x.gif"},
		{FieldName: "images", Name: "y.gif"},
	}
	links := map[string][]string{
		"cover":  {"https://new/c.png"},
		"images": {"https://new/x.gif", "https://new/y.gif"},
	}
	l, err := svc.Edit(context.Background(), 5, refs, links, validInput(), 7)

	require.NoError(t, err)
	assert.Equal(t, []string{"https://new/c.png", "https://new/x.gif", "https://new/y.gif"}, l.Images)
}

func TestEdit_DropsListingCachedByConcurrentRead(t *testing.T) {
	repo := new(MockRepository)
	cache := &fakeCache{items: map[int64]*Listing{}}
	stale := &Listing{ID: 5, Title: "Old"}
	// A read that loaded the old row lands in the cache after the update.
	pub := &recordingPublisher{onPublish: func() { cache.items[5] = stale }}
	svc, _ := newTestService(repo, Options{Cache: cache, Events: pub})

	repo.On("GetByID", mock.Anything, int64(5)).Return(&Listing{ID: 5, Title: "Old"}, nil)
	repo.On("Update", mock.Anything, mock.Anything).Return(nil)

	_, err := svc.Edit(context.Background(), 5,
		[]FileRef{{FieldName: "image0", Name: "x.png"}},
		map[string][]string{"image0": {"https://new/x.png"}}, validInput(), 7)

	require.NoError(t, err)
	assert.NotContains(t, cache.items, int64(5))
}

func TestGetByID_NotFoundReturnsNil(t *testing.T) {
	repo := new(MockRepository)
	svc, _ := newTestService(repo, Options{})

	repo.On("GetByIDWithOwner", mock.Anything, int64(12)).Return(nil, ErrNotFound)

	l, err := svc.GetByID(context.Background(), 12)
	assert.NoError(t, err)
	assert.Nil(t, l)
}

func TestGetByID_ReadsThroughCache(t *testing.T) {
	repo := new(MockRepository)
	cache := &fakeCache{items: map[int64]*Listing{}}
	svc, _ := newTestService(repo, Options{Cache: cache})

	repo.On("GetByIDWithOwner", mock.Anything, int64(3)).Return(&Listing{ID: 3, Title: "Logo"}, nil).Once()

	first, err := svc.GetByID(context.Background(), 3)
	require.NoError(t, err)
	second, err := svc.GetByID(context.Background(), 3)
	require.NoError(t, err)

	assert.Equal(t, "Logo", first.Title)
	assert.Equal(t, "Logo", second.Title)
	repo.AssertNumberOfCalls(t, "GetByIDWithOwner", 1)
}

func TestGetByOwner_EmptyIsNotNil(t *testing.T) {
	repo := new(MockRepository)
	svc, _ := newTestService(repo, Options{})

	repo.On("ListByOwner", mock.Anything, int64(8)).Return(nil, nil)

	listings, err := svc.GetByOwner(context.Background(), 8)
	require.NoError(t, err)
	assert.NotNil(t, listings)
	assert.Empty(t, listings)
}

func TestSearch_RequiresTermOrCategory(t *testing.T) {
	repo := new(MockRepository)
	svc, _ := newTestService(repo, Options{})

	_, err := svc.Search(context.Background(), "  ", "")
	assert.ErrorIs(t, err, ErrValidation)
	repo.AssertNotCalled(t, "Search", mock.Anything, mock.Anything, mock.Anything)
}

func TestSearch_TrimsInput(t *testing.T) {
	repo := new(MockRepository)
	svc, _ := newTestService(repo, Options{})

	repo.On("Search", mock.Anything, "", "design").Return([]Listing{{ID: 1, Category: "design"}}, nil)

	listings, err := svc.Search(context.Background(), "", " design ")
	require.NoError(t, err)
	assert.Len(t, listings, 1)
	repo.AssertExpectations(t)
}
