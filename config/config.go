package config

import (
	"flag"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	sc "github.com/sksmith/go-spring-config"
	"github.com/spf13/viper"
)

const (
	AppName  = "Inventory Allocation"
	Revision = "1"

	maxRetries = 5
	scrubbed   = "********"
)

var (
	// Build time arguments
	AppVersion  string
	Sha1Version string
	BuildTime   string

	// Runtime flags
	profile      *string
	configSource *string
	configUrl    *string
	configBranch *string
	configUser   *string
	configPass   *string
)

type Config struct {
	AppName         string          `json:"appName"         yaml:"appName"`
	AppNameDesc     string          `json:"appNameDesc"     yaml:"appNameDesc"`
	AppVersion      string          `json:"appVersion"      yaml:"appVersion"`
	AppVersionDesc  string          `json:"appVersionDesc"  yaml:"appVersionDesc"`
	Sha1Version     string          `json:"sha1Version"     yaml:"sha1Version"`
	Sha1VersionDesc string          `json:"sha1VersionDesc" yaml:"sha1VersionDesc"`
	BuildTime       string          `json:"buildTime"       yaml:"buildTime"`
	BuildTimeDesc   string          `json:"buildTimeDesc"   yaml:"buildTimeDesc"`
	Profile         string          `json:"profile"         yaml:"profile"`
	ProfileDesc     string          `json:"profileDesc"     yaml:"profileDesc"`
	Revision        string          `json:"revision"        yaml:"revision"`
	RevisionDesc    string          `json:"revisionDesc"    yaml:"revisionDesc"`
	Port            string          `json:"port"            yaml:"port"`
	PortDesc        string          `json:"portDesc"        yaml:"portDesc"`
	Config          ConfigSource    `json:"config"          yaml:"config"`
	ConfigDesc      string          `json:"configDesc"      yaml:"configDesc"`
	Log             LogConfig       `json:"log"             yaml:"log"`
	LogDesc         string          `json:"logDesc"         yaml:"logDesc"`
	Db              DbConfig        `json:"db"              yaml:"db"`
	DbDesc          string          `json:"dbDesc"          yaml:"dbDesc"`
	RabbitMQ        QueueConfig     `json:"rabbitmq"        yaml:"rabbitmq"`
	RabbitMQDesc    string          `json:"rabbitmqDesc"    yaml:"rabbitmqDesc"`
	Redis           RedisConfig     `json:"redis"           yaml:"redis"`
	RedisDesc       string          `json:"redisDesc"       yaml:"redisDesc"`
	Inventory       InventoryConfig `json:"inventory"       yaml:"inventory"`
	InventoryDesc   string          `json:"inventoryDesc"   yaml:"inventoryDesc"`
	Cache           CacheConfig     `json:"cache"           yaml:"cache"`
	CacheDesc       string          `json:"cacheDesc"       yaml:"cacheDesc"`
}

type ConfigSource struct {
	Print      bool         `json:"print"      yaml:"print"`
	PrintDesc  string       `json:"printDesc"  yaml:"printDesc"`
	Source     string       `json:"source"     yaml:"source"`
	SourceDesc string       `json:"sourceDesc" yaml:"sourceDesc"`
	Spring     SpringConfig `json:"spring"     yaml:"spring"`
	SpringDesc string       `json:"springDesc" yaml:"springDesc"`
}

type SpringConfig struct {
	Url        string `json:"url"        yaml:"url"`
	UrlDesc    string `json:"urlDesc"    yaml:"urlDesc"`
	Branch     string `json:"branch"     yaml:"branch"`
	BranchDesc string `json:"branchDesc" yaml:"branchDesc"`
	User       string `json:"user"       yaml:"user"`
	UserDesc   string `json:"userDesc"   yaml:"userDesc"`
	Pass       string `json:"pass"       yaml:"pass"`
	PassDesc   string `json:"passDesc"   yaml:"passDesc"`
}

type LogConfig struct {
	Level          string `json:"level"          yaml:"level"`
	LevelDesc      string `json:"levelDesc"      yaml:"levelDesc"`
	Structured     bool   `json:"structured"     yaml:"structured"`
	StructuredDesc string `json:"structuredDesc" yaml:"structuredDesc"`
}

type DbConfig struct {
	Name         string       `json:"name"         yaml:"name"`
	NameDesc     string       `json:"nameDesc"     yaml:"nameDesc"`
	Host         string       `json:"host"         yaml:"host"`
	HostDesc     string       `json:"hostDesc"     yaml:"hostDesc"`
	Port         string       `json:"port"         yaml:"port"`
	PortDesc     string       `json:"portDesc"     yaml:"portDesc"`
	Migrate      bool         `json:"migrate"      yaml:"migrate"`
	MigrateDesc  string       `json:"migrateDesc"  yaml:"migrateDesc"`
	Clean        bool         `json:"clean"        yaml:"clean"`
	CleanDesc    string       `json:"cleanDesc"    yaml:"cleanDesc"`
	InMemory     bool         `json:"inMemory"     yaml:"inMemory"`
	InMemoryDesc string       `json:"inMemoryDesc" yaml:"inMemoryDesc"`
	User         string       `json:"user"         yaml:"user"`
	UserDesc     string       `json:"userDesc"     yaml:"userDesc"`
	Pass         string       `json:"pass"         yaml:"pass"`
	PassDesc     string       `json:"passDesc"     yaml:"passDesc"`
	Pool         DbPoolConfig `json:"pool"         yaml:"pool"`
	PoolDesc     string       `json:"poolDesc"     yaml:"poolDesc"`
}

type DbPoolConfig struct {
	MinSize     int32  `json:"minSize"     yaml:"minSize"`
	MinSizeDesc string `json:"minSizeDesc" yaml:"minSizeDesc"`
	MaxSize     int32  `json:"maxSize"     yaml:"maxSize"`
	MaxSizeDesc string `json:"maxSizeDesc" yaml:"maxSizeDesc"`
}

type QueueConfig struct {
	Host           string                `json:"host"           yaml:"host"`
	HostDesc       string                `json:"hostDesc"       yaml:"hostDesc"`
	Port           string                `json:"port"           yaml:"port"`
	PortDesc       string                `json:"portDesc"       yaml:"portDesc"`
	User           string                `json:"user"           yaml:"user"`
	UserDesc       string                `json:"userDesc"       yaml:"userDesc"`
	Pass           string                `json:"pass"           yaml:"pass"`
	PassDesc       string                `json:"passDesc"       yaml:"passDesc"`
	Mock           bool                  `json:"mock"           yaml:"mock"`
	MockDesc       string                `json:"mockDesc"       yaml:"mockDesc"`
	Inventory      ExchangeConfig        `json:"inventory"      yaml:"inventory"`
	InventoryDesc  string                `json:"inventoryDesc"  yaml:"inventoryDesc"`
	Index          ExchangeConfig        `json:"index"          yaml:"index"`
	IndexDesc      string                `json:"indexDesc"      yaml:"indexDesc"`
	Allocation     AllocationQueueConfig `json:"allocation"     yaml:"allocation"`
	AllocationDesc string                `json:"allocationDesc" yaml:"allocationDesc"`
}

type ExchangeConfig struct {
	Exchange     string `json:"exchange"     yaml:"exchange"`
	ExchangeDesc string `json:"exchangeDesc" yaml:"exchangeDesc"`
}

type AllocationQueueConfig struct {
	Queue     string         `json:"queue"     yaml:"queue"`
	QueueDesc string         `json:"queueDesc" yaml:"queueDesc"`
	Dlt       ExchangeConfig `json:"dlt"       yaml:"dlt"`
	DltDesc   string         `json:"dltDesc"   yaml:"dltDesc"`
}

type RedisConfig struct {
	Enabled     bool          `json:"enabled"     yaml:"enabled"`
	EnabledDesc string        `json:"enabledDesc" yaml:"enabledDesc"`
	Addr        string        `json:"addr"        yaml:"addr"`
	AddrDesc    string        `json:"addrDesc"    yaml:"addrDesc"`
	Pass        string        `json:"pass"        yaml:"pass"`
	PassDesc    string        `json:"passDesc"    yaml:"passDesc"`
	TTL         time.Duration `json:"ttl"         yaml:"ttl"`
	TTLDesc     string        `json:"ttlDesc"     yaml:"ttlDesc"`
}

type InventoryConfig struct {
	Strategy               string        `json:"strategy"               yaml:"strategy"`
	StrategyDesc           string        `json:"strategyDesc"           yaml:"strategyDesc"`
	CompactionInterval     time.Duration `json:"compactionInterval"     yaml:"compactionInterval"`
	CompactionIntervalDesc string        `json:"compactionIntervalDesc" yaml:"compactionIntervalDesc"`
}

type CacheConfig struct {
	ProductSize         int    `json:"productSize"         yaml:"productSize"`
	ProductSizeDesc     string `json:"productSizeDesc"     yaml:"productSizeDesc"`
	IdempotencySize     int    `json:"idempotencySize"     yaml:"idempotencySize"`
	IdempotencySizeDesc string `json:"idempotencySizeDesc" yaml:"idempotencySizeDesc"`
}

func (c *Config) Print() {
	if c.Config.Print {
		log.Info().Interface("config", c.Scrub()).Msg("the following configurations have successfully loaded")
	}
}

// Scrub returns a copy of the configuration with credentials masked.
func (c *Config) Scrub() Config {
	cp := *c
	for _, secret := range []*string{&cp.Db.Pass, &cp.RabbitMQ.Pass, &cp.Redis.Pass, &cp.Config.Spring.Pass} {
		if *secret != "" {
			*secret = scrubbed
		}
	}
	return cp
}

func init() {
	profile = flag.String("p", "local", "profile for the application config")
	configSource = flag.String("s", "local", "where to get configurations from")
	configUrl = flag.String("cfgUrl", "", "url for application config server")
	configBranch = flag.String("cfgBranch", "", "branch to request from the configuration server (used for spring cloud config)")
	configUser = flag.String("cfgUser", "", "username to use when connecting to the application server")
	configPass = flag.String("cfgPass", "", "password to use when connecting to the application server")

	viper.SetDefault("port", "8080")
	viper.SetDefault("profile", "local")

	viper.SetDefault("config.print", false)

	viper.SetDefault("log.level", "trace")
	viper.SetDefault("log.structured", false)

	viper.SetDefault("db.name", "inventory-db")
	viper.SetDefault("db.host", "localhost")
	viper.SetDefault("db.port", "5432")
	viper.SetDefault("db.user", "postgres")
	viper.SetDefault("db.pass", "postgres")
	viper.SetDefault("db.migrate", true)
	viper.SetDefault("db.clean", false)
	viper.SetDefault("db.inMemory", false)
	viper.SetDefault("db.pool.minSize", 1)
	viper.SetDefault("db.pool.maxSize", 10)

	viper.SetDefault("rabbitmq.host", "localhost")
	viper.SetDefault("rabbitmq.port", "5672")
	viper.SetDefault("rabbitmq.user", "guest")
	viper.SetDefault("rabbitmq.pass", "guest")
	viper.SetDefault("rabbitmq.mock", false)
	viper.SetDefault("rabbitmq.inventory.exchange", "inventory.exchange")
	viper.SetDefault("rabbitmq.index.exchange", "index.exchange")
	viper.SetDefault("rabbitmq.allocation.queue", "allocation.queue")
	viper.SetDefault("rabbitmq.allocation.dlt.exchange", "allocation.dlt.exchange")

	viper.SetDefault("redis.enabled", false)
	viper.SetDefault("redis.addr", "localhost:6379")
	viper.SetDefault("redis.pass", "")
	viper.SetDefault("redis.ttl", "24h")

	viper.SetDefault("inventory.strategy", "journaling")
	viper.SetDefault("inventory.compactionInterval", "0s")

	viper.SetDefault("cache.productSize", 1024)
	viper.SetDefault("cache.idempotencySize", 65536)
}

// Load reads the configuration from the source selected on the command line. Flags must be parsed first.
func Load() *Config {
	config := createConfig()

	var err error
	switch *configSource {
	case "local":
		err = loadLocalConfigs(config)
	case "spring":
		err = loadRemoteConfigs(config)
	default:
		log.Warn().
			Str("configSource", *configSource).
			Msg("unrecognized configuration source, using local")

		err = loadLocalConfigs(config)
	}
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configurations")
	}

	return config
}

// LoadDefaults returns the configuration built from defaults only.
func LoadDefaults() *Config {
	config := createConfig()
	source := config.Config
	if err := viper.Unmarshal(config); err != nil {
		log.Fatal().Err(err).Msg("failed to load default configurations")
	}
	finish(config, source)
	return config
}

func createConfig() *Config {
	config := &Config{}
	setDescriptions(config)

	config.Config.Source = *configSource

	config.Config.Spring.Url = *configUrl
	config.Config.Spring.Branch = *configBranch
	config.Config.Spring.User = *configUser
	config.Config.Spring.Pass = *configPass

	viper.SetDefault("profile", *profile)

	return config
}

// finish restores the values that come from the build and the command line after viper has overwritten the
// struct.
func finish(config *Config, source ConfigSource) {
	config.AppName = AppName
	config.Revision = Revision
	config.AppVersion = AppVersion
	config.Sha1Version = Sha1Version
	config.BuildTime = BuildTime
	config.Config.Source = source.Source
	config.Config.Spring = source.Spring
	setDescriptions(config)
}

func loadLocalConfigs(config *Config) error {
	log.Info().Msg("loading local configurations...")
	source := config.Config

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return errors.WithStack(err)
		}
		log.Warn().Msg("no config file found, using defaults")
	}

	if err := viper.Unmarshal(config); err != nil {
		return errors.WithStack(err)
	}
	finish(config, source)
	return nil
}

func loadRemoteConfigs(config *Config) error {
	log.Info().Str("url", config.Config.Spring.Url).Msg("loading remote configurations...")
	source := config.Config

	var remote *sc.Config
	var err error
	for tryCount := 1; tryCount <= maxRetries; tryCount++ {
		remote, err = sc.LoadWithCreds(source.Spring.Url, AppName, source.Spring.Branch, source.Spring.User, source.Spring.Pass, *profile)
		if err == nil {
			break
		}
		log.Error().Err(err).Int("try", tryCount).Msg("failed to load configurations... retrying")
		time.Sleep(5 * time.Second)
	}
	if err != nil {
		return errors.WithMessage(err, "failed to load remote configurations")
	}

	for k, v := range remote.Values {
		viper.Set(k, v)
	}

	if err = viper.Unmarshal(config); err != nil {
		return errors.WithStack(err)
	}
	finish(config, source)
	return nil
}

func setDescriptions(config *Config) {
	config.AppNameDesc = "Name of the application in a human readable format. Example: Inventory Allocation"
	config.AppVersionDesc = "Semantic version of the application. Example: v1.2.3"
	config.Sha1VersionDesc = "Git sha1 hash of the application version."
	config.BuildTimeDesc = "When the application was compiled."
	config.ProfileDesc = "Running profile of the application, can assist with sensible defaults or change behavior. Examples: local, dev, prod"
	config.RevisionDesc = "A hard coded revision handy for quickly determining if local changes are running. Examples: 1, Two, 9999"
	config.PortDesc = "Port that the application will bind to on startup. Examples: 8080, 3000"
	config.ConfigDesc = "Settings for where and how the application should get its configurations."
	config.LogDesc = "Settings for applicaton logging."
	config.DbDesc = "Database configurations."
	config.RabbitMQDesc = "Rabbit MQ congfigurations."
	config.RedisDesc = "Redis configurations, used to remember processed allocation events."
	config.InventoryDesc = "Settings for how inventory commands are applied."
	config.CacheDesc = "Sizes of the in process caches."

	config.Config.PrintDesc = "Print configurations on startup."
	config.Config.SourceDesc = "Where the application should go for configurations. Examples: local, spring"
	config.Config.SpringDesc = "Configuration settings for Spring Cloud Config. These are only used if config.source is spring."

	config.Config.Spring.UrlDesc = "The url of the Spring Cloud Config server."
	config.Config.Spring.BranchDesc = "The git branch to use to pull configurations from. Examples: main, master, development"
	config.Config.Spring.UserDesc = "User to use when connecting to the Spring Cloud Config server."
	config.Config.Spring.PassDesc = "Password to use when connecting to the Spring Cloud Config server."

	config.Log.LevelDesc = "The lowest level that the application should log at. Examples: info, warn, error."
	config.Log.StructuredDesc = "Whether the application should output structured (json) logging, or human friendly plain text."

	config.Db.NameDesc = "The name of the database to connect to."
	config.Db.HostDesc = "Host of the database."
	config.Db.PortDesc = "Port of the database."
	config.Db.MigrateDesc = "Whether or not database migrations should be executed on startup."
	config.Db.CleanDesc = "WARNING: THIS WILL DELETE ALL DATA FROM THE DB. Used only during migration. If clean is true, all 'down' migrations are executed."
	config.Db.InMemoryDesc = "Whether or not the application should use an in memory database."
	config.Db.UserDesc = "User the application will use to connect to the database."
	config.Db.PassDesc = "Password the application will use for connecting to the database."
	config.Db.PoolDesc = "Connection pool settings."
	config.Db.Pool.MinSizeDesc = "Minimum number of connections kept open."
	config.Db.Pool.MaxSizeDesc = "Maximum number of open connections."

	config.RabbitMQ.HostDesc = "RabbitMQ's broker host."
	config.RabbitMQ.PortDesc = "RabbitMQ's broker host port."
	config.RabbitMQ.UserDesc = "User the application will use to connect to RabbitMQ."
	config.RabbitMQ.PassDesc = "Password the application will use to connect to RabbitMQ."
	config.RabbitMQ.MockDesc = "Whether or not the application should mock sending messages to RabbitMQ."
	config.RabbitMQ.InventoryDesc = "RabbitMQ settings for inventory level updates."
	config.RabbitMQ.Inventory.ExchangeDesc = "RabbitMQ exchange to use for posting inventory level updates."
	config.RabbitMQ.IndexDesc = "RabbitMQ settings for search index update requests."
	config.RabbitMQ.Index.ExchangeDesc = "RabbitMQ exchange to use for requesting that an entity be reindexed."
	config.RabbitMQ.AllocationDesc = "RabbitMQ settings for order allocation events."
	config.RabbitMQ.Allocation.QueueDesc = "Queue used for listening to allocation events coming from order management."
	config.RabbitMQ.Allocation.DltDesc = "Configurations for the allocation dead letter topic, where messages that fail to be processed are written."
	config.RabbitMQ.Allocation.Dlt.ExchangeDesc = "Exchange used for posting messages to the dead letter topic."

	config.Redis.EnabledDesc = "Whether processed allocation events are tracked in Redis. When false an in process cache is used."
	config.Redis.AddrDesc = "Address of the Redis server. Example: localhost:6379"
	config.Redis.PassDesc = "Password used to connect to Redis."
	config.Redis.TTLDesc = "How long a processed allocation event is remembered. Example: 24h"

	config.Inventory.StrategyDesc = "How inventory commands are applied. Examples: journaling, direct"
	config.Inventory.CompactionIntervalDesc = "How often journal entries are folded into snapshots. Zero disables scheduled compaction. Example: 5m"

	config.Cache.ProductSizeDesc = "Number of product skus cached in process."
	config.Cache.IdempotencySizeDesc = "Number of processed allocation events remembered in process when Redis is disabled."
}
