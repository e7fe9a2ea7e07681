// Package syncer keeps the local game state and synchronizes it with the persistence service.
package syncer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"tg-clicker/internal/domain/dto"
	"tg-clicker/internal/domain/models"
	"tg-clicker/internal/game"
	"tg-clicker/internal/gameclient"
)

const (
	DefaultDebounce     = time.Second
	DefaultCooldown     = 5 * time.Second
	DefaultTickInterval = time.Second
	DefaultSaveTimeout  = 10 * time.Second

	DefaultUsername = "unknown"
)

type LoadOutcome int

const (
	// LoadedRemote means the stored record was found and adopted.
	LoadedRemote LoadOutcome = iota
	// LoadedFresh means no record exists yet and defaults are used.
	LoadedFresh
	// LoadedFallback means loading failed and defaults are used.
	LoadedFallback
)

func (o LoadOutcome) String() string {
	switch o {
	case LoadedRemote:
		return "remote"
	case LoadedFresh:
		return "fresh"
	default:
		return "fallback"
	}
}

type API interface {
	GetPlayer(ctx context.Context, telegramID string) (dto.PlayerPayload, error)
	CreatePlayer(ctx context.Context, player models.PlayerProgress) (dto.PlayerPayload, error)
	UpdatePlayer(ctx context.Context, id string, player models.PlayerProgress) (dto.PlayerPayload, error)
}

type Option func(*Controller)

func WithClock(clock Clock) Option {
	return func(c *Controller) { c.clock = clock }
}

func WithNotifier(n Notifier) Option {
	return func(c *Controller) { c.notifier = n }
}

func WithDebounce(d time.Duration) Option {
	return func(c *Controller) { c.debounce = d }
}

func WithCooldown(d time.Duration) Option {
	return func(c *Controller) { c.cooldown = d }
}

func WithTickInterval(d time.Duration) Option {
	return func(c *Controller) { c.tickInterval = d }
}

// Controller owns one player's session state. Every transition goes through mu,
// saves are serialized by saveMu and never hold mu while talking to the API.
type Controller struct {
	log      *slog.Logger
	api      API
	clock    Clock
	notifier Notifier

	debounce     time.Duration
	cooldown     time.Duration
	tickInterval time.Duration

	mu       sync.Mutex
	player   models.PlayerProgress
	revision uint64
	saved    uint64 // revision stored by the last successful save
	timer    Timer
	lastSave time.Time

	saveMu sync.Mutex
}

func New(log *slog.Logger, api API, telegramID, username string, opts ...Option) *Controller {
	if username == "" {
		username = DefaultUsername
	}

	c := &Controller{
		log:          log,
		api:          api,
		clock:        realClock{},
		notifier:     NopNotifier{},
		debounce:     DefaultDebounce,
		cooldown:     DefaultCooldown,
		tickInterval: DefaultTickInterval,
		player: models.PlayerProgress{
			TelegramID: telegramID,
			Username:   username,
			GameState:  game.DefaultState(),
		},
	}
	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Load fetches the stored record. It never fails: on any error the session starts from defaults.
func (c *Controller) Load(ctx context.Context) LoadOutcome {
	const op = "syncer.Controller.Load"

	c.mu.Lock()
	telegramID, username := c.player.TelegramID, c.player.Username
	c.mu.Unlock()

	log := c.log.With(
		slog.String("op", op),
		slog.String("telegram_id", telegramID),
	)

	payload, err := c.api.GetPlayer(ctx, telegramID)
	if err != nil {
		fresh := models.PlayerProgress{
			TelegramID: telegramID,
			Username:   username,
			GameState:  game.DefaultState(),
		}
		c.replace(fresh)

		if errors.Is(err, gameclient.ErrNotFound) {
			log.Info("no saved progress, starting fresh")
			c.notifier.Info("No saved progress found, starting a new game")
			return LoadedFresh
		}

		log.Error("failed to load progress", slog.String("error", err.Error()))
		c.notifier.Error("Could not load saved progress, playing with a fresh state")
		return LoadedFallback
	}

	player := game.NormalizePlayer(payload, username)
	if player.TelegramID == "" {
		player.TelegramID = telegramID
	}
	c.replace(player)

	log.Info("progress loaded", slog.String("id", player.ID), slog.Float64("score", player.Score))

	return LoadedRemote
}

func (c *Controller) replace(p models.PlayerProgress) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.player = p
	c.revision++
}

// State returns a copy of the current record.
func (c *Controller) State() models.PlayerProgress {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.player
}

func (c *Controller) Click() models.GameState {
	s, _ := c.mutate(func(s models.GameState) (models.GameState, bool) {
		return game.Click(s), true
	})
	return s
}

func (c *Controller) BuyAutoClicker() (models.GameState, bool) {
	return c.mutate(game.BuyAutoClicker)
}

func (c *Controller) BuyClickPower() (models.GameState, bool) {
	return c.mutate(game.BuyClickPower)
}

func (c *Controller) Tick() (models.GameState, bool) {
	return c.mutate(game.Tick)
}

func (c *Controller) mutate(f func(models.GameState) (models.GameState, bool)) (models.GameState, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	next, changed := f(c.player.GameState)
	if !changed {
		return c.player.GameState, false
	}

	c.player.GameState = next
	c.revision++
	c.requestSaveLocked()

	return next, true
}

func (c *Controller) requestSaveLocked() {
	if !c.lastSave.IsZero() && c.clock.Now().Sub(c.lastSave) < c.cooldown {
		return
	}

	if c.timer != nil {
		c.timer.Stop()
	}
	c.timer = c.clock.AfterFunc(c.debounce, c.fire)
}

func (c *Controller) fire() {
	ctx, cancel := context.WithTimeout(context.Background(), DefaultSaveTimeout)
	defer cancel()

	_ = c.save(ctx, false)
}

// Flush cancels a pending debounced save and saves right away, ignoring the cooldown.
func (c *Controller) Flush(ctx context.Context) error {
	c.mu.Lock()
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	c.mu.Unlock()

	return c.save(ctx, true)
}

// Run applies the auto clicker every tick interval until ctx is done.
func (c *Controller) Run(ctx context.Context) {
	ticker := c.clock.NewTicker(c.tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C():
			c.Tick()
		}
	}
}

// save sends the current record. Unless force is set it does nothing when the record
// was already stored, which happens when a Flush overtook a timer that had already fired.
func (c *Controller) save(ctx context.Context, force bool) error {
	const op = "syncer.Controller.save"

	c.saveMu.Lock()
	defer c.saveMu.Unlock()

	c.mu.Lock()
	snapshot := c.player
	dispatched := c.revision
	upToDate := dispatched == c.saved && !c.lastSave.IsZero()
	c.mu.Unlock()

	if upToDate && !force {
		return nil
	}

	log := c.log.With(
		slog.String("op", op),
		slog.String("telegram_id", snapshot.TelegramID),
	)

	var (
		resp dto.PlayerPayload
		err  error
	)
	if snapshot.ID != "" {
		resp, err = c.api.UpdatePlayer(ctx, snapshot.ID, snapshot)
		if err != nil {
			log.Warn("update failed, falling back to create", slog.String("error", err.Error()))
			resp, err = c.api.CreatePlayer(ctx, snapshot)
		}
	} else {
		resp, err = c.api.CreatePlayer(ctx, snapshot)
	}
	if err != nil {
		log.Error("failed to save progress", slog.String("error", err.Error()))
		c.notifier.Error("Failed to save progress")
		return fmt.Errorf("%s: %w", op, err)
	}

	c.mu.Lock()
	c.mergeLocked(resp, dispatched)
	c.saved = dispatched
	c.lastSave = c.clock.Now()
	c.mu.Unlock()

	log.Debug("progress saved", slog.Float64("score", snapshot.Score))

	return nil
}

// mergeLocked adopts identity and timestamps from a save response. Numbers are adopted only when
// nothing changed locally since the save was dispatched.
func (c *Controller) mergeLocked(resp dto.PlayerPayload, dispatched uint64) {
	remote := game.NormalizePlayer(resp, c.player.Username)

	if remote.ID != "" {
		c.player.ID = remote.ID
	}
	if !remote.CreatedAt.IsZero() {
		c.player.CreatedAt = remote.CreatedAt
	}
	if !remote.LastUpdated.IsZero() {
		c.player.LastUpdated = remote.LastUpdated
	}

	if c.revision != dispatched || !resp.HasState() {
		return
	}

	c.player.GameState = remote.GameState
	c.player.Username = remote.Username
}
