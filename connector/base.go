package connector

import (
	"strings"
	"sync"

	"github.com/pkg/errors"
	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/cube2222/connplan/config"
	"github.com/cube2222/connplan/predicate"
)

// Common holds the fields shared by all backends.
// It's a snapshot, modifying it doesn't affect the configuration.
type Common struct {
	Hosts      []string
	Port       int
	Username   string
	Password   string
	Projection []string
	Predicates []predicate.Predicate
	Partitions int
	LowerBound int64
	UpperBound int64
	// BoundsSet is true if any of the bounds was overridden.
	BoundsSet bool
	// Options are pass-through overrides, merged last.
	Options map[string]string
}

// Base implements the lifecycle and the shared fluent setters of a backend configuration.
// S is the concrete configuration type returned by the setters, N is its native configuration.
//
// The configuration accumulates fields while Building, and Initialize validates them and
// builds the native configuration exactly once. Setters called after that don't mutate anything,
// they make the next Initialize fail instead.
type Base[S any, N NativeConfiguration] struct {
	self     S
	backend  Backend
	mode     Mode
	shape    EntityShape
	validate func(Common) error
	build    func(Common) (N, error)

	mu             sync.Mutex
	state          State
	native         N
	mutationErr    error
	autoInitialize bool
	common         Common
}

// NewBase creates the shared part of a configuration.
// validate checks the backend-specific fields, build creates the native configuration.
// Both are called with the lock held, so they may read the backend fields freely,
// but mustn't call back into the configuration.
func NewBase[S any, N NativeConfiguration](
	self S,
	backend Backend,
	mode Mode,
	shape EntityShape,
	validate func(Common) error,
	build func(Common) (N, error),
) *Base[S, N] {
	return &Base[S, N]{
		self:           self,
		backend:        backend,
		mode:           mode,
		shape:          shape,
		validate:       validate,
		build:          build,
		state:          Building,
		autoInitialize: true,
		common: Common{
			Partitions: 1,
			Options:    map[string]string{},
		},
	}
}

// Mutate applies f to the configuration if it's still Building.
// Backends use it to implement their own setters.
func (b *Base[S, N]) Mutate(field string, f func()) S {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state == Initialized {
		if b.mutationErr == nil {
			b.mutationErr = NewConfigurationError(b.backend, "state", "%s can't be changed after initialization", field)
		}
		return b.self
	}
	f()
	return b.self
}

// Host appends hosts, the first one is the primary.
func (b *Base[S, N]) Host(hosts ...string) S {
	return b.Mutate("host", func() {
		b.common.Hosts = append(b.common.Hosts, hosts...)
	})
}

func (b *Base[S, N]) Port(port int) S {
	return b.Mutate("port", func() {
		b.common.Port = port
	})
}

func (b *Base[S, N]) Username(username string) S {
	return b.Mutate("username", func() {
		b.common.Username = username
	})
}

func (b *Base[S, N]) Password(password string) S {
	return b.Mutate("password", func() {
		b.common.Password = password
	})
}

// Select appends fields to the projection. An empty projection selects all fields.
func (b *Base[S, N]) Select(fields ...string) S {
	return b.Mutate("inputColumns", func() {
		b.common.Projection = lo.Uniq(append(b.common.Projection, fields...))
	})
}

// Where appends predicates, all of which must hold.
func (b *Base[S, N]) Where(predicates ...predicate.Predicate) S {
	return b.Mutate("queryFilter", func() {
		b.common.Predicates = append(b.common.Predicates, predicates...)
	})
}

func (b *Base[S, N]) Partitions(count int) S {
	return b.Mutate("numPartitions", func() {
		b.common.Partitions = count
	})
}

func (b *Base[S, N]) Bounds(lower, upper int64) S {
	return b.Mutate("bounds", func() {
		b.common.LowerBound = lower
		b.common.UpperBound = upper
		b.common.BoundsSet = true
	})
}

func (b *Base[S, N]) LowerBound(lower int64) S {
	return b.Mutate("lowerBound", func() {
		b.common.LowerBound = lower
		b.common.BoundsSet = true
	})
}

func (b *Base[S, N]) UpperBound(upper int64) S {
	return b.Mutate("upperBound", func() {
		b.common.UpperBound = upper
		b.common.BoundsSet = true
	})
}

// Option sets a pass-through option. Options are merged last and take precedence.
func (b *Base[S, N]) Option(key, value string) S {
	return b.Mutate("customOptions", func() {
		b.common.Options[key] = value
	})
}

func (b *Base[S, N]) Options(options map[string]string) S {
	return b.Mutate("customOptions", func() {
		for k, v := range options {
			b.common.Options[k] = v
		}
	})
}

// DisableAutoInitialize makes NativeConfiguration fail until Initialize is called explicitly.
func (b *Base[S, N]) DisableAutoInitialize() S {
	return b.Mutate("autoInitialize", func() {
		b.autoInitialize = false
	})
}

// SetDefaultBounds sets the bounds used when none are configured. Meant for constructors.
func (b *Base[S, N]) SetDefaultBounds(lower, upper int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.common.LowerBound = lower
	b.common.UpperBound = upper
}

func (b *Base[S, N]) Backend() Backend {
	return b.backend
}

func (b *Base[S, N]) Mode() Mode {
	return b.mode
}

func (b *Base[S, N]) EntityShape() EntityShape {
	return b.shape
}

func (b *Base[S, N]) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Common returns a snapshot of the shared fields.
func (b *Base[S, N]) Common() Common {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.snapshotLocked()
}

func (b *Base[S, N]) snapshotLocked() Common {
	out := b.common
	out.Hosts = append([]string(nil), b.common.Hosts...)
	out.Projection = append([]string(nil), b.common.Projection...)
	out.Predicates = append([]predicate.Predicate(nil), b.common.Predicates...)
	out.Options = make(map[string]string, len(b.common.Options))
	for k, v := range b.common.Options {
		out.Options[k] = v
	}
	return out
}

// Initialize validates the configuration and builds the native configuration.
// Calling it again re-validates, but returns the already built native configuration.
// On failure the configuration stays Building and may be fixed and initialized again.
func (b *Base[S, N]) Initialize() (S, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, err := b.initializeLocked(); err != nil {
		return b.self, err
	}
	return b.self, nil
}

// Native returns the native configuration, initializing the configuration on first use.
func (b *Base[S, N]) Native() (N, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.mutationErr != nil {
		var zero N
		return zero, b.mutationErr
	}
	if b.state == Initialized {
		return b.native, nil
	}
	if !b.autoInitialize {
		var zero N
		return zero, &NotInitializedError{Backend: b.backend}
	}
	return b.initializeLocked()
}

func (b *Base[S, N]) NativeConfiguration() (NativeConfiguration, error) {
	native, err := b.Native()
	if err != nil {
		return nil, err
	}
	return native, nil
}

func (b *Base[S, N]) initializeLocked() (N, error) {
	var zero N
	if b.mutationErr != nil {
		return zero, b.mutationErr
	}

	common := b.snapshotLocked()
	if err := b.validateCommon(common); err != nil {
		return zero, b.failed(err)
	}
	if err := b.validate(common); err != nil {
		return zero, b.failed(err)
	}
	if b.state == Initialized {
		initializations.WithLabelValues(string(b.backend), resultCached).Inc()
		return b.native, nil
	}

	native, err := b.build(common)
	if err != nil {
		return zero, b.failed(err)
	}

	b.native = native
	b.state = Initialized
	initializations.WithLabelValues(string(b.backend), resultBuilt).Inc()
	zap.L().Debug("initialized connector configuration",
		zap.String("backend", string(b.backend)),
		zap.String("mode", string(b.mode)),
		zap.Strings("hosts", common.Hosts),
		zap.Int("predicates", len(common.Predicates)),
		zap.Int("splits", len(native.Splits())),
	)
	return native, nil
}

func (b *Base[S, N]) failed(err error) error {
	initializations.WithLabelValues(string(b.backend), resultFailed).Inc()
	zap.L().Debug("couldn't initialize connector configuration",
		zap.String("backend", string(b.backend)),
		zap.Error(err),
	)
	return err
}

func (b *Base[S, N]) validateCommon(common Common) error {
	if len(common.Hosts) == 0 {
		return NewConfigurationError(b.backend, "host", "at least one host must be specified")
	}
	for i := range common.Hosts {
		if strings.TrimSpace(common.Hosts[i]) == "" {
			return NewConfigurationError(b.backend, "host", "host with index %d is empty", i)
		}
	}
	if common.Port < 0 || common.Port > 65535 {
		return NewConfigurationError(b.backend, "port", "%d is not a valid port", common.Port)
	}
	if common.Password != "" && common.Username == "" {
		return NewConfigurationError(b.backend, "username", "must be specified together with a password")
	}
	for i := range common.Projection {
		if strings.TrimSpace(common.Projection[i]) == "" {
			return NewConfigurationError(b.backend, "inputColumns", "column with index %d is empty", i)
		}
	}
	if common.Partitions < 1 {
		return NewConfigurationError(b.backend, "numPartitions", "must be at least 1, got %d", common.Partitions)
	}
	if b.mode == Write {
		if len(common.Predicates) > 0 {
			return NewConfigurationError(b.backend, "queryFilter", "write configurations can't have filters")
		}
		if common.Partitions > 1 {
			return NewConfigurationError(b.backend, "numPartitions", "write configurations can't be partitioned")
		}
		if common.BoundsSet {
			return NewConfigurationError(b.backend, "bounds", "write configurations can't have partition bounds")
		}
	}
	return nil
}

var commonKeys = []string{
	"host", "port", "username", "user", "password", "inputColumns", "queryFilter",
	"numPartitions", "lowerBound", "upperBound", "customOptions",
}

// Decoder reads backend keys out of a generic key/value bag.
// It mustn't modify the configuration, the returned apply func does that once the whole bag decoded.
type Decoder func(bag map[string]interface{}) (apply func(), err error)

// Load copies the shared keys and, through decode, the backend keys out of a generic key/value bag.
// Keys which are neither shared nor listed in recognized are passed through as options.
// The bag is decoded completely before anything is applied, so on error the configuration is unchanged.
// Lists from the bag replace the configured ones, loading the same bag twice is idempotent.
func (b *Base[S, N]) Load(bag map[string]interface{}, decode Decoder, recognized ...string) error {
	var apply []func()

	if config.Has(bag, "host") {
		hosts, err := config.GetStringList(bag, "host")
		if err != nil {
			return b.bagError("host", err)
		}
		apply = append(apply, func() { b.common.Hosts = hosts })
	}
	if config.Has(bag, "port") {
		port, err := config.GetInt(bag, "port")
		if err != nil {
			return b.bagError("port", err)
		}
		apply = append(apply, func() { b.common.Port = port })
	}
	for _, key := range []string{"user", "username"} {
		if config.Has(bag, key) {
			username, err := config.GetString(bag, key)
			if err != nil {
				return b.bagError(key, err)
			}
			apply = append(apply, func() { b.common.Username = username })
		}
	}
	if config.Has(bag, "password") {
		password, err := config.GetString(bag, "password")
		if err != nil {
			return b.bagError("password", err)
		}
		apply = append(apply, func() { b.common.Password = password })
	}
	if config.Has(bag, "inputColumns") {
		columns, err := config.GetStringList(bag, "inputColumns")
		if err != nil {
			return b.bagError("inputColumns", err)
		}
		apply = append(apply, func() { b.common.Projection = lo.Uniq(columns) })
	}
	if config.Has(bag, "queryFilter") {
		items, err := config.GetInterfaceList(bag, "queryFilter")
		if err != nil {
			return b.bagError("queryFilter", err)
		}
		predicates, err := predicate.FromConfig(items)
		if err != nil {
			return b.bagError("queryFilter", err)
		}
		apply = append(apply, func() { b.common.Predicates = predicates })
	}
	if config.Has(bag, "numPartitions") {
		partitions, err := config.GetInt(bag, "numPartitions")
		if err != nil {
			return b.bagError("numPartitions", err)
		}
		apply = append(apply, func() { b.common.Partitions = partitions })
	}
	if config.Has(bag, "lowerBound") {
		lower, err := config.GetInt64(bag, "lowerBound")
		if err != nil {
			return b.bagError("lowerBound", err)
		}
		apply = append(apply, func() {
			b.common.LowerBound = lower
			b.common.BoundsSet = true
		})
	}
	if config.Has(bag, "upperBound") {
		upper, err := config.GetInt64(bag, "upperBound")
		if err != nil {
			return b.bagError("upperBound", err)
		}
		apply = append(apply, func() {
			b.common.UpperBound = upper
			b.common.BoundsSet = true
		})
	}

	options := map[string]string{}
	for key, value := range bag {
		if lo.Contains(commonKeys, key) || lo.Contains(recognized, key) {
			continue
		}
		text, err := config.Stringify(value)
		if err != nil {
			zap.L().Warn("ignoring non-scalar pass-through option",
				zap.String("backend", string(b.backend)),
				zap.String("key", key),
			)
			continue
		}
		options[key] = text
	}
	// Explicit custom options win over pass-through keys.
	if config.Has(bag, "customOptions") {
		custom, err := config.GetStringMap(bag, "customOptions")
		if err != nil {
			return b.bagError("customOptions", err)
		}
		for k, v := range custom {
			options[k] = v
		}
	}
	apply = append(apply, func() {
		for k, v := range options {
			b.common.Options[k] = v
		}
	})

	if decode != nil {
		applyBackend, err := decode(bag)
		if err != nil {
			return err
		}
		apply = append(apply, applyBackend)
	}

	b.Mutate("configuration", func() {
		for _, f := range apply {
			f()
		}
	})
	return nil
}

func (b *Base[S, N]) bagError(field string, err error) error {
	return errors.Wrap(NewConfigurationError(b.backend, field, "%s", err), "couldn't load configuration")
}
