package syncer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tg-clicker/internal/domain/dto"
	"tg-clicker/internal/domain/models"
	"tg-clicker/internal/gameclient"
)

type fakeAPI struct {
	mu sync.Mutex

	getResp   dto.PlayerPayload
	getErr    error
	createErr error
	updateErr error

	creates []models.PlayerProgress
	updates []models.PlayerProgress

	// overrides the echoed response
	respond func(models.PlayerProgress) dto.PlayerPayload
	// runs while a save request is in flight
	during func()
}

func (f *fakeAPI) GetPlayer(context.Context, string) (dto.PlayerPayload, error) {
	return f.getResp, f.getErr
}

func (f *fakeAPI) CreatePlayer(_ context.Context, p models.PlayerProgress) (dto.PlayerPayload, error) {
	f.mu.Lock()
	f.creates = append(f.creates, p)
	err := f.createErr
	f.mu.Unlock()

	if err != nil {
		return dto.PlayerPayload{}, err
	}
	return f.reply(p), nil
}

func (f *fakeAPI) UpdatePlayer(_ context.Context, _ string, p models.PlayerProgress) (dto.PlayerPayload, error) {
	f.mu.Lock()
	f.updates = append(f.updates, p)
	err := f.updateErr
	f.mu.Unlock()

	if err != nil {
		return dto.PlayerPayload{}, err
	}
	return f.reply(p), nil
}

func (f *fakeAPI) reply(p models.PlayerProgress) dto.PlayerPayload {
	if f.during != nil {
		f.during()
	}
	if f.respond != nil {
		return f.respond(p)
	}
	if p.ID == "" {
		p.ID = "rec-1"
	}
	return echo(p)
}

func (f *fakeAPI) saves() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.creates) + len(f.updates)
}

func echo(p models.PlayerProgress) dto.PlayerPayload {
	raw, _ := json.Marshal(p)
	var out dto.PlayerPayload
	_ = json.Unmarshal(raw, &out)
	return out
}

type recordingNotifier struct {
	mu     sync.Mutex
	infos  []string
	errors []string
}

func (n *recordingNotifier) Info(msg string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.infos = append(n.infos, msg)
}

func (n *recordingNotifier) Error(msg string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.errors = append(n.errors, msg)
}

func newController(api API, clock Clock, opts ...Option) *Controller {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	opts = append([]Option{WithClock(clock)}, opts...)
	return New(log, api, "42", "tester", opts...)
}

func TestController_DebounceCoalescesClicks(t *testing.T) {
	api := &fakeAPI{}
	clock := newFakeClock()
	c := newController(api, clock)

	c.Click()
	clock.Advance(100 * time.Millisecond)
	c.Click()
	clock.Advance(999 * time.Millisecond)

	assert.Equal(t, 0, api.saves())

	clock.Advance(time.Millisecond)

	require.Equal(t, 1, api.saves())
	assert.Equal(t, float64(2), api.creates[0].Score)
}

func TestController_ZeroRateTickNeverSaves(t *testing.T) {
	api := &fakeAPI{}
	clock := newFakeClock()
	c := newController(api, clock)

	for i := 0; i < 10; i++ {
		_, changed := c.Tick()
		assert.False(t, changed)
		clock.Advance(time.Second)
	}

	assert.Equal(t, 0, api.saves())
}

func TestController_RequestsInsideCooldownAreDropped(t *testing.T) {
	api := &fakeAPI{}
	clock := newFakeClock()
	c := newController(api, clock)

	c.Click()
	clock.Advance(time.Second)
	require.Equal(t, 1, api.saves())

	clock.Advance(time.Second)
	c.Click()
	clock.Advance(3 * time.Second)
	assert.Equal(t, 1, api.saves())

	clock.Advance(time.Second)
	c.Click()
	clock.Advance(time.Second)
	assert.Equal(t, 2, api.saves())
}

func TestController_UpdateFallsBackToCreate(t *testing.T) {
	api := &fakeAPI{}
	clock := newFakeClock()
	c := newController(api, clock, WithCooldown(0))

	c.Click()
	clock.Advance(time.Second)
	require.Equal(t, "rec-1", c.State().ID)

	api.updateErr = fmt.Errorf("put: %w", gameclient.ErrNotFound)
	c.Click()
	clock.Advance(time.Second)

	assert.Len(t, api.updates, 1)
	assert.Len(t, api.creates, 2)
	assert.Equal(t, "rec-1", api.updates[0].ID)
}

func TestController_SaveFailureIsNotified(t *testing.T) {
	api := &fakeAPI{createErr: gameclient.ErrUnavailable}
	notifier := &recordingNotifier{}
	clock := newFakeClock()
	c := newController(api, clock, WithNotifier(notifier))

	c.Click()
	clock.Advance(time.Second)

	assert.Equal(t, 1, api.saves())
	assert.Len(t, notifier.errors, 1)
	assert.Equal(t, float64(1), c.State().Score)
}

func TestController_StaleResponseKeepsLocalNumbers(t *testing.T) {
	api := &fakeAPI{}
	clock := newFakeClock()
	c := newController(api, clock)

	api.during = func() {
		api.during = nil
		c.Click()
	}
	api.respond = func(p models.PlayerProgress) dto.PlayerPayload {
		p.ID = "rec-9"
		p.Score = 999
		p.LastUpdated = time.Date(2024, 2, 2, 0, 0, 0, 0, time.UTC)
		return echo(p)
	}

	c.Click()
	clock.Advance(time.Second)

	state := c.State()
	assert.Equal(t, "rec-9", state.ID)
	assert.Equal(t, time.Date(2024, 2, 2, 0, 0, 0, 0, time.UTC), state.LastUpdated)
	assert.Equal(t, float64(2), state.Score)
}

func TestController_FreshResponseIsAdopted(t *testing.T) {
	api := &fakeAPI{}
	clock := newFakeClock()
	c := newController(api, clock)

	api.respond = func(p models.PlayerProgress) dto.PlayerPayload {
		p.ID = "rec-2"
		p.Score = 7
		return echo(p)
	}

	c.Click()
	clock.Advance(time.Second)

	state := c.State()
	assert.Equal(t, "rec-2", state.ID)
	assert.Equal(t, float64(7), state.Score)
}

func TestController_Load(t *testing.T) {
	t.Run("remote", func(t *testing.T) {
		api := &fakeAPI{getResp: echo(models.PlayerProgress{
			ID:         "rec-3",
			TelegramID: "42",
			Username:   "stored",
			GameState:  models.GameState{Score: 50},
		})}
		c := newController(api, newFakeClock())

		outcome := c.Load(context.Background())

		assert.Equal(t, LoadedRemote, outcome)
		state := c.State()
		assert.Equal(t, "rec-3", state.ID)
		assert.Equal(t, "stored", state.Username)
		assert.Equal(t, float64(50), state.Score)
		assert.Equal(t, float64(10), state.Upgrades.AutoClicker.Cost)
		assert.Equal(t, float64(1), state.Multiplier)
	})

	t.Run("not found", func(t *testing.T) {
		notifier := &recordingNotifier{}
		api := &fakeAPI{getErr: fmt.Errorf("get: %w", &gameclient.APIError{StatusCode: 404})}
		c := newController(api, newFakeClock(), WithNotifier(notifier))

		outcome := c.Load(context.Background())

		assert.Equal(t, LoadedFresh, outcome)
		assert.Len(t, notifier.infos, 1)
		assert.Empty(t, notifier.errors)
		assert.Equal(t, float64(0), c.State().Score)
		assert.Equal(t, "42", c.State().TelegramID)
	})

	t.Run("failure", func(t *testing.T) {
		notifier := &recordingNotifier{}
		api := &fakeAPI{getErr: fmt.Errorf("get: %w", gameclient.ErrMalformedResponse)}
		c := newController(api, newFakeClock(), WithNotifier(notifier))

		outcome := c.Load(context.Background())

		assert.Equal(t, LoadedFallback, outcome)
		assert.Len(t, notifier.errors, 1)
		assert.Equal(t, "tester", c.State().Username)
	})
}

func TestController_FlushBypassesCooldown(t *testing.T) {
	api := &fakeAPI{}
	clock := newFakeClock()
	c := newController(api, clock)

	c.Click()
	clock.Advance(time.Second)
	c.Click()

	require.NoError(t, c.Flush(context.Background()))

	assert.Equal(t, 2, api.saves())
	assert.Equal(t, float64(2), api.updates[0].Score)
}

func TestController_FlushReportsFailure(t *testing.T) {
	api := &fakeAPI{createErr: errors.New("boom")}
	c := newController(api, newFakeClock())

	err := c.Flush(context.Background())

	assert.Error(t, err)
}

func TestController_BuyWithoutScoreDoesNotSave(t *testing.T) {
	api := &fakeAPI{}
	clock := newFakeClock()
	c := newController(api, clock)

	_, ok := c.BuyAutoClicker()
	assert.False(t, ok)
	_, ok = c.BuyClickPower()
	assert.False(t, ok)
	clock.Advance(2 * time.Second)

	assert.Equal(t, 0, api.saves())
}

func TestController_RunTicksAutoClicker(t *testing.T) {
	api := &fakeAPI{getResp: echo(models.PlayerProgress{
		TelegramID: "42",
		GameState: models.GameState{
			Upgrades: models.Upgrades{
				AutoClicker: models.AutoClicker{Level: 2, ClicksPerSecond: 1},
			},
		},
	})}
	clock := newFakeClock()
	c := newController(api, clock)
	require.Equal(t, LoadedRemote, c.Load(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		c.Run(ctx)
		close(done)
	}()
	<-clock.tickerStarted

	clock.Advance(3 * time.Second)
	cancel()
	<-done

	assert.Equal(t, float64(3), c.State().Score)
}

func TestController_TimerFiringAfterFlushDoesNotResave(t *testing.T) {
	api := &fakeAPI{}
	clock := newFakeClock()
	c := newController(api, clock)

	c.Click()
	require.NoError(t, c.Flush(context.Background()))
	require.Equal(t, 1, api.saves())

	// the debounce callback was already running when Flush stopped the timer
	c.fire()

	assert.Equal(t, 1, api.saves())

	c.Click()
	c.fire()

	assert.Equal(t, 2, api.saves())
}
