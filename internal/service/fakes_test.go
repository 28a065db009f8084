package service

import (
	"context"
	"io"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/sakif/weatherly/internal/apperror"
	"github.com/sakif/weatherly/internal/model"
	"github.com/sakif/weatherly/internal/repository"
	"github.com/sakif/weatherly/internal/weather"
)

// =========================================================================
// FAKES AND HELPERS
// =========================================================================

// fakeStore is an in-memory repository.Store. Using a fake (not a mock
// framework) keeps every test readable: you can see exactly what it does.
// Set one of the *Err fields to simulate a database failure.
type fakeStore struct {
	mu        sync.Mutex
	accounts  map[string]*model.Account
	nextID    int64
	favorites map[string]model.Favorite
	recents   []model.Recent
	logs      []model.SearchLog
	settings  model.Settings

	createErr   error
	getErr      error
	recentErr   error
	logErr      error
	settingsErr error
	favoriteErr error
}

var _ repository.Store = (*fakeStore)(nil)

func newFakeStore() *fakeStore {
	return &fakeStore{
		accounts:  make(map[string]*model.Account),
		favorites: make(map[string]model.Favorite),
		settings:  model.DefaultSettings(),
	}
}

func (f *fakeStore) CreateAccount(ctx context.Context, account *model.Account) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	if _, ok := f.accounts[account.Username]; ok {
		return apperror.UsernameTaken()
	}
	f.nextID++
	account.ID = f.nextID
	account.CreatedAt = time.Now().UTC()
	copied := *account
	f.accounts[account.Username] = &copied
	return nil
}

func (f *fakeStore) VerifyAccount(ctx context.Context, username, passwordHash string) (model.Role, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return "", f.getErr
	}
	a, ok := f.accounts[username]
	if !ok || a.PasswordHash != passwordHash {
		return "", apperror.NotFound("account", username)
	}
	return a.Role, nil
}

func (f *fakeStore) GetAccount(ctx context.Context, username string) (*model.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	a, ok := f.accounts[username]
	if !ok {
		return nil, apperror.NotFound("account", username)
	}
	copied := *a
	return &copied, nil
}

func (f *fakeStore) ListAccounts(ctx context.Context) ([]model.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]model.Account, 0, len(f.accounts))
	for _, a := range f.accounts {
		copied := *a
		copied.PasswordHash = ""
		out = append(out, copied)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeStore) CountAccounts(ctx context.Context) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.accounts), nil
}

func (f *fakeStore) DeleteAccount(ctx context.Context, username string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.accounts[username]; !ok {
		return apperror.NotFound("account", username)
	}
	delete(f.accounts, username)
	return nil
}

func (f *fakeStore) UpsertFavorite(ctx context.Context, city string, temp int, condition string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.favoriteErr != nil {
		return f.favoriteErr
	}
	f.favorites[city] = model.Favorite{City: city, LastTemp: temp, Condition: condition, DateAdded: time.Now().UTC()}
	return nil
}

func (f *fakeStore) RemoveFavorite(ctx context.Context, city string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.favorites[city]; !ok {
		return apperror.NotFound("favorite", city)
	}
	delete(f.favorites, city)
	return nil
}

func (f *fakeStore) IsFavorite(ctx context.Context, city string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.favoriteErr != nil {
		return false, f.favoriteErr
	}
	_, ok := f.favorites[city]
	return ok, nil
}

func (f *fakeStore) ListFavorites(ctx context.Context) ([]model.Favorite, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]model.Favorite, 0, len(f.favorites))
	for _, fav := range f.favorites {
		out = append(out, fav)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].City < out[j].City })
	return out, nil
}

func (f *fakeStore) ClearFavorites(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.favorites = make(map[string]model.Favorite)
	return nil
}

func (f *fakeStore) AddRecent(ctx context.Context, city string, temp int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.recentErr != nil {
		return f.recentErr
	}
	r := model.Recent{ID: int64(len(f.recents) + 1), City: city, LastTemp: temp, TimeSearched: time.Now().UTC()}
	f.recents = append([]model.Recent{r}, f.recents...)
	if len(f.recents) > repository.MaxRecents {
		f.recents = f.recents[:repository.MaxRecents]
	}
	return nil
}

func (f *fakeStore) ListRecents(ctx context.Context, limit int) ([]model.Recent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if limit < 1 || limit > repository.MaxRecents {
		limit = repository.MaxRecents
	}
	if limit > len(f.recents) {
		limit = len(f.recents)
	}
	return append([]model.Recent(nil), f.recents[:limit]...), nil
}

func (f *fakeStore) ClearRecents(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.recents = nil
	return nil
}

func (f *fakeStore) LogSearch(ctx context.Context, username, city string, temp int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.logErr != nil {
		return f.logErr
	}
	f.logs = append([]model.SearchLog{{
		ID:        int64(len(f.logs) + 1),
		Username:  username,
		City:      city,
		Temp:      temp,
		Timestamp: time.Now().UTC(),
	}}, f.logs...)
	return nil
}

func (f *fakeStore) ListLogs(ctx context.Context, username string) ([]model.SearchLog, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.SearchLog
	for _, l := range f.logs {
		if username == "" || l.Username == username {
			out = append(out, l)
		}
	}
	return out, nil
}

func (f *fakeStore) GetSettings(ctx context.Context) (model.Settings, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.settingsErr != nil {
		return model.Settings{}, f.settingsErr
	}
	return f.settings, nil
}

func (f *fakeStore) SaveSettings(ctx context.Context, settings model.Settings) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.settingsErr != nil {
		return f.settingsErr
	}
	f.settings = settings
	return nil
}

// fakeFetcher answers from a canned map of city → report. A city listed in
// block waits on its channel before answering, which lets a test hold one
// search in flight while another completes.
type fakeFetcher struct {
	mu      sync.Mutex
	reports map[string]*weather.Report
	err     error
	block   map[string]chan struct{}
	units   []string
}

func newFakeFetcher() *fakeFetcher {
	return &fakeFetcher{
		reports: make(map[string]*weather.Report),
		block:   make(map[string]chan struct{}),
	}
}

func (f *fakeFetcher) add(city string, temp float64, main string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reports[city] = &weather.Report{
		Current: weather.Current{
			City:      city,
			Temp:      temp,
			Main:      main,
			Condition: weather.ParseCondition(main),
		},
	}
}

func (f *fakeFetcher) FetchCurrentAndForecast(ctx context.Context, city, unitSystem string) (*weather.Report, error) {
	f.mu.Lock()
	f.units = append(f.units, unitSystem)
	wait := f.block[city]
	f.mu.Unlock()

	if wait != nil {
		select {
		case <-wait:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	r, ok := f.reports[city]
	if !ok {
		return nil, weather.ErrCityNotFound
	}
	copied := *r
	return &copied, nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
