package logmanagement

import (
	"github.com/rs/zerolog"

	base "github.com/jadavkeshav/log-management/pkg/logrelay"
)

// Re-exported errors for convenience.
var (
	ErrInvalidCredential  = base.ErrInvalidCredential
	ErrCredentialRevoked  = base.ErrCredentialRevoked
	ErrCredentialExpired  = base.ErrCredentialExpired
	ErrChannelStoreClosed = base.ErrChannelStoreClosed
)

// Type aliases so consumers can import github.com/jadavkeshav/log-management directly.
type (
	Config          = base.Config
	ServerConfig    = base.ServerConfig
	UpstreamConfig  = base.UpstreamConfig
	PostgresConfig  = base.PostgresConfig
	MetricsConfig   = base.MetricsConfig
	LogConfig       = base.LogConfig
	Flow            = base.Flow
	FlowOption      = base.FlowOption
	AcceptOption    = base.AcceptOption
	RelayOption     = base.RelayOption
	Runtime         = base.Runtime
	Option          = base.Option
	LogEvent        = base.LogEvent
	Annotation      = base.Annotation
	AnnotatedEvent  = base.AnnotatedEvent
	RawLog          = base.RawLog
	ValidationError = base.ValidationError
	LogStore        = base.LogStore
	AuthValidator   = base.AuthValidator
	Scorer          = base.Scorer
	Subscriber      = base.Subscriber
	Publisher       = base.Publisher
	Metrics         = base.Metrics
	EventFunc       = base.EventFunc
)

// Config helpers.
func LoadConfig(path string) (*Config, error) {
	return base.LoadConfig(path)
}

// Flow builder helpers.
func Conf(path string, opts ...FlowOption) (*Flow, error) {
	return base.Conf(path, opts...)
}

func ConfFromConfig(cfg *Config, opts ...FlowOption) (*Flow, error) {
	return base.ConfFromConfig(cfg, opts...)
}

func WithFlowOptions(opts ...Option) FlowOption {
	return base.WithFlowOptions(opts...)
}

func AcceptValidator(v AuthValidator) AcceptOption {
	return base.AcceptValidator(v)
}

func AcceptStore(s LogStore) AcceptOption {
	return base.AcceptStore(s)
}

func AcceptStoreCallback(name string, fn EventFunc) AcceptOption {
	return base.AcceptStoreCallback(name, fn)
}

func RelayScorer(s Scorer) RelayOption {
	return base.RelayScorer(s)
}

func RelayMetrics(m Metrics) RelayOption {
	return base.RelayMetrics(m)
}

// Runtime and options.
func New(cfg *Config, opts ...Option) (*Runtime, error) {
	return base.New(cfg, opts...)
}

func WithLogStore(s LogStore) Option {
	return base.WithLogStore(s)
}

func WithAuthValidator(v AuthValidator) Option {
	return base.WithAuthValidator(v)
}

func WithScorer(s Scorer) Option {
	return base.WithScorer(s)
}

func WithMetrics(m Metrics) Option {
	return base.WithMetrics(m)
}

func WithLogger(l zerolog.Logger) Option {
	return base.WithLogger(l)
}

// Store adapters.
func NewCallbackStore(name string, fn EventFunc) LogStore {
	return base.NewCallbackStore(name, fn)
}

func NewChannelStore(name string, buffer int) (LogStore, <-chan *LogEvent, func()) {
	return base.NewChannelStore(name, buffer)
}
