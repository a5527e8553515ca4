package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/sirupsen/logrus"

	"github.com/cosmoos/cosmo-go/pkg/cognitive"
	"github.com/cosmoos/cosmo-go/pkg/health"
	"github.com/cosmoos/cosmo-go/pkg/insights"
	"github.com/cosmoos/cosmo-go/pkg/logging"
	"github.com/cosmoos/cosmo-go/pkg/physiological"
	"github.com/cosmoos/cosmo-go/pkg/reflection"
	"github.com/cosmoos/cosmo-go/pkg/storage"
	mysqlStore "github.com/cosmoos/cosmo-go/pkg/storage/mysql"
	postgresStore "github.com/cosmoos/cosmo-go/pkg/storage/postgres"
	sqliteStore "github.com/cosmoos/cosmo-go/pkg/storage/sqlite"
)

// Dimension names one of the three dashboard dimensions.
type Dimension string

const (
	DimensionCognitive     Dimension = "cognitive"
	DimensionPhysiological Dimension = "physiological"
	DimensionReflection    Dimension = "reflection"
)

// Dimensions lists every dimension in display order.
var Dimensions = []Dimension{DimensionCognitive, DimensionPhysiological, DimensionReflection}

// ParseDimension maps a name to a Dimension.
func ParseDimension(s string) (Dimension, error) {
	d := Dimension(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Dimensions {
		if d == known {
			return d, nil
		}
	}
	return "", NewCosmoError("ParseDimension", fmt.Errorf("%w: %q", ErrUnknownDimension, s))
}

// Snapshot is the result of refreshing one dimension.
type Snapshot struct {
	Dimension Dimension `json:"dimension"`

	// Data is a *cognitive.DimensionData, *physiological.DimensionData or
	// *reflection.DimensionData depending on Dimension.
	Data interface{} `json:"data"`

	// Stale is true when the refresh failed and Data is the last good
	// snapshot.
	Stale bool `json:"stale"`

	RefreshedAt time.Time `json:"refreshed_at"`
}

// Client is the CosmoOS dashboard client.
//
// It wires the record store, the health source and the three dimension
// aggregators, and remembers the last good snapshot of each dimension so a
// failed refresh keeps showing the previous numbers.
//
// The client is safe for concurrent use.
//
// Example usage:
//
//	config, _ := core.LoadConfigFromEnv()
//	client, _ := core.NewClient(config)
//	defer client.Close()
//
//	snapshot, _ := client.Refresh(ctx, core.DimensionCognitive)
type Client struct {
	config *Config
	store  storage.RecordStore
	logger *logrus.Logger
	now    func() time.Time

	cognitive     *cognitive.Aggregator
	physiological *physiological.Aggregator
	reflection    *reflection.Aggregator

	repository *reflection.Repository
	engine     *insights.Engine
	source     health.Source

	// snapshots holds the last good snapshot per dimension.
	snapshots *cache.Cache

	ownsStore bool
	closeOnce sync.Once
}

// NewClient creates a new CosmoOS client.
//
// The client is initialized with:
//   - Record store (SQLite, PostgreSQL or MySQL, unless WithStore is given)
//   - Health source (record-backed, unless WithHealthSource is given)
//   - Cognitive, Physiological and Reflection aggregators
//   - Insight engine and reflection repository
func NewClient(cfg *Config, opts ...ClientOption) (*Client, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	options := &clientOptions{cacheTTL: DefaultSnapshotTTL}
	for _, opt := range opts {
		opt(options)
	}

	logger := options.logger
	if logger == nil {
		logger = logging.New(cfg.Log.Level, cfg.Log.Format)
	}
	now := options.now
	if now == nil {
		now = time.Now
	}

	store := options.store
	ownsStore := false
	if store == nil {
		ids, err := storage.NewIDGenerator(cfg.SnowflakeNode)
		if err != nil {
			return nil, NewCosmoError("NewClient", err)
		}
		store, err = initStorage(cfg.Store, ids)
		if err != nil {
			return nil, err
		}
		ownsStore = true
	}

	source := options.source
	if source == nil {
		source = health.NewRecordSource(store,
			health.WithAuthorization(cfg.Health.Authorized, health.ParseTier(cfg.Health.Tier)),
			health.WithSourceClock(now),
			health.WithSourceLogger(logger),
		)
	}

	cognitiveOpts := []cognitive.Option{
		cognitive.WithClock(now),
		cognitive.WithLogger(logger),
		cognitive.WithRecoveryFactor(cfg.Cognitive.RecoveryFactor),
		cognitive.WithDecayRate(cfg.Cognitive.DecayRate),
	}

	client := &Client{
		config:        cfg,
		store:         store,
		logger:        logger,
		now:           now,
		cognitive:     cognitive.NewAggregator(store, cognitiveOpts...),
		physiological: physiological.NewAggregator(source, physiological.WithClock(now), physiological.WithLogger(logger)),
		reflection:    reflection.NewAggregator(store, reflection.WithClock(now), reflection.WithLogger(logger)),
		repository:    reflection.NewRepository(store, reflection.WithRepositoryClock(now), reflection.WithRepositoryLogger(logger)),
		engine: insights.NewEngine(store,
			insights.WithEngineClock(now),
			insights.WithEngineLogger(logger),
			insights.WithWindowDays(cfg.Insights.WindowDays),
		),
		source:    source,
		snapshots: cache.New(options.cacheTTL, options.cacheTTL/2),
		ownsStore: ownsStore,
	}

	return client, nil
}

// Refresh recomputes one dimension.
//
// When the aggregator fails (it only fails on cancellation) the last good
// snapshot is returned with Stale set. If there is none, the error wraps
// ErrNoSnapshot.
func (c *Client) Refresh(ctx context.Context, dim Dimension) (*Snapshot, error) {
	data, err := c.refresh(ctx, dim)
	if errors.Is(err, ErrUnknownDimension) {
		return nil, NewCosmoError("Refresh", err)
	}
	if err != nil {
		c.logger.WithError(err).WithField("dimension", dim).Warn("refresh failed, keeping previous snapshot")
		if cached, ok := c.LastSnapshot(dim); ok {
			stale := *cached
			stale.Stale = true
			return &stale, nil
		}
		return nil, NewCosmoError("Refresh", errors.Join(ErrNoSnapshot, err))
	}

	snapshot := &Snapshot{
		Dimension:   dim,
		Data:        data,
		RefreshedAt: c.now(),
	}
	c.snapshots.Set(string(dim), snapshot, cache.DefaultExpiration)
	return snapshot, nil
}

func (c *Client) refresh(ctx context.Context, dim Dimension) (interface{}, error) {
	switch dim {
	case DimensionCognitive:
		return c.cognitive.Refresh(ctx)
	case DimensionPhysiological:
		return c.physiological.Refresh(ctx)
	case DimensionReflection:
		return c.reflection.Refresh(ctx)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDimension, dim)
	}
}

// LastSnapshot returns the last good snapshot of a dimension.
func (c *Client) LastSnapshot(dim Dimension) (*Snapshot, bool) {
	v, ok := c.snapshots.Get(string(dim))
	if !ok {
		return nil, false
	}
	snapshot, ok := v.(*Snapshot)
	return snapshot, ok
}

// Reflection returns the repository for conversations, moods and journal
// entries.
func (c *Client) Reflection() *reflection.Repository {
	return c.repository
}

// ComputeInsights recomputes and stores the correlation insights.
func (c *Client) ComputeInsights(ctx context.Context) ([]insights.Correlation, error) {
	correlations, err := c.engine.Compute(ctx)
	if err != nil {
		return nil, NewCosmoError("ComputeInsights", err)
	}
	return correlations, nil
}

// NewInsightScheduler creates the daily insight job at the configured hour.
func (c *Client) NewInsightScheduler(loc *time.Location) (*insights.Scheduler, error) {
	s, err := insights.NewScheduler(c.engine, uint(c.config.Insights.ScheduleHour), loc)
	if err != nil {
		return nil, NewCosmoError("NewInsightScheduler", err)
	}
	return s, nil
}

// ImportHealth stores an exported batch of health data.
func (c *Client) ImportHealth(ctx context.Context, export *health.Export) (*health.ImportResult, error) {
	if export == nil {
		return nil, NewCosmoError("ImportHealth", ErrInvalidInput)
	}
	result, err := health.Import(ctx, c.store, export)
	if err != nil {
		return result, NewCosmoError("ImportHealth", fmt.Errorf("%w: %v", ErrStorageOperation, err))
	}
	c.logger.WithFields(logrus.Fields{
		"samples":  result.Samples,
		"sleep":    result.Sleep,
		"workouts": result.Workouts,
	}).Info("health data imported")
	return result, nil
}

// Store returns the underlying record store.
func (c *Client) Store() storage.RecordStore {
	return c.store
}

// Logger returns the client's logger.
func (c *Client) Logger() *logrus.Logger {
	return c.logger
}

// Config returns the client's configuration.
func (c *Client) Config() *Config {
	return c.config
}

// Close releases the record store when the client opened it.
func (c *Client) Close() error {
	var err error
	c.closeOnce.Do(func() {
		if c.ownsStore && c.store != nil {
			err = c.store.Close()
		}
	})
	return err
}

// initStorage opens the configured record store.
func initStorage(cfg StoreConfig, ids *storage.IDGenerator) (storage.RecordStore, error) {
	switch cfg.Provider {
	case ProviderSQLite:
		store, err := sqliteStore.NewClient(&sqliteStore.Config{
			DBPath:    cfg.SQLite.Path,
			TableName: cfg.SQLite.Table,
			IDs:       ids,
		})
		if err != nil {
			return nil, NewCosmoError("initStorage", fmt.Errorf("%w: %v", ErrConnectionFailed, err))
		}
		return store, nil
	case ProviderPostgres:
		store, err := postgresStore.NewClient(&postgresStore.Config{
			Host:      cfg.Postgres.Host,
			Port:      cfg.Postgres.Port,
			User:      cfg.Postgres.User,
			Password:  cfg.Postgres.Password,
			DBName:    cfg.Postgres.Database,
			TableName: cfg.Postgres.Table,
			SSLMode:   cfg.Postgres.SSLMode,
			IDs:       ids,
		})
		if err != nil {
			return nil, NewCosmoError("initStorage", fmt.Errorf("%w: %v", ErrConnectionFailed, err))
		}
		return store, nil
	case ProviderMySQL:
		store, err := mysqlStore.NewClient(&mysqlStore.Config{
			Host:      cfg.MySQL.Host,
			Port:      cfg.MySQL.Port,
			User:      cfg.MySQL.User,
			Password:  cfg.MySQL.Password,
			DBName:    cfg.MySQL.Database,
			TableName: cfg.MySQL.Table,
			IDs:       ids,
		})
		if err != nil {
			return nil, NewCosmoError("initStorage", fmt.Errorf("%w: %v", ErrConnectionFailed, err))
		}
		return store, nil
	default:
		return nil, NewCosmoError("initStorage", ErrInvalidConfig)
	}
}
