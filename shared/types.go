package shared

type ServerConfig struct {
	Phonebook PhonebookConfig `mapstructure:"phonebook" validate:"required"`
	Database  DatabaseConfig  `mapstructure:"database" validate:"required"`
	Sqlite    SqliteConfig    `mapstructure:"sqlite"`
	Mysql     MysqlConfig     `mapstructure:"mysql"`
	Session   SessionConfig   `mapstructure:"session" validate:"required"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Google    GoogleConfig    `mapstructure:"google"`
}

type PhonebookConfig struct {
	PrivateKeyPem string         `mapstructure:"privateKeyPem"`
	TokenTTLHours int            `mapstructure:"tokenTTLHours" validate:"required,min=1"`
	Cron          CronConfig     `mapstructure:"cron" validate:"required"`
	Listener      ListenerConfig `mapstructure:"listener" validate:"required"`
}

type DatabaseConfig struct {
	Driver string `mapstructure:"driver" validate:"required,oneof=sqlite mysql"`
}

type SqliteConfig struct {
	PassPhrase string `mapstructure:"passPhrase"`
}

type MysqlConfig struct {
	DSN string `mapstructure:"dsn"`
}

type SessionConfig struct {
	Backend    string `mapstructure:"backend" validate:"required,oneof=memory redis"`
	TTLMinutes int    `mapstructure:"ttlMinutes" validate:"required,min=1"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type GoogleConfig struct {
	ApplicationCredentials string        `mapstructure:"applicationCredentials"`
	Storage                StorageConfig `mapstructure:"storage"`
}

type CronConfig struct {
	TimeZone string `mapstructure:"timeZone" validate:"required"`
}

type ListenerConfig struct {
	Port int `mapstructure:"port" validate:"required"`
}

type StorageConfig struct {
	Bucket                    string `mapstructure:"bucket" validate:"required_with=EnableSqliteBackupAndSync"`
	Prefix                    string `mapstructure:"prefix"`
	SqliteBackupSchedule      string `mapstructure:"sqliteBackupSchedule" validate:"required_with=EnableSqliteBackupAndSync"`
	EnableSqliteBackupAndSync bool   `mapstructure:"enableSqliteBackupAndSync"`
}
