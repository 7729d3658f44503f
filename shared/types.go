package shared

type ServerConfig struct {
	Sqlite     SqliteConfig     `mapstructure:"sqlite" validate:"required"`
	SafeCircle SafeCircleConfig `mapstructure:"safecircle" validate:"required"`
	Google     GoogleConfig     `mapstructure:"google"`
	WhatsApp   WhatsAppConfig   `mapstructure:"whatsapp" validate:"required"`
	Twilio     TwilioConfig     `mapstructure:"twilio"`
}

type SqliteConfig struct {
	PassPhrase string `mapstructure:"passPhrase" validate:"required"`
}

type SafeCircleConfig struct {
	PrivateKeyPem string          `mapstructure:"privateKeyPem" validate:"required"`
	Cron          CronConfig      `mapstructure:"cron" validate:"required"`
	Listener      ListenerConfig  `mapstructure:"listener" validate:"required"`
	Auth          AuthConfig      `mapstructure:"auth"`
	Broadcast     BroadcastConfig `mapstructure:"broadcast"`
}

type AuthConfig struct {
	// Number of days an issued token stays valid. Defaults to 30.
	TokenValidityInDays int `mapstructure:"tokenValidityInDays" validate:"omitempty,min=1"`

	// Login/register attempts allowed per minute for a client IP. Defaults to 10.
	AttemptsPerMinute int `mapstructure:"attemptsPerMinute" validate:"omitempty,min=1"`
}

type BroadcastConfig struct {
	// Per-recipient delivery timeout in seconds. Defaults to 10.
	TimeoutInSeconds int `mapstructure:"timeoutInSeconds" validate:"omitempty,min=1"`
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
	Prefix                    string `mapstructure:"prefix" validate:"required_with=EnableSqliteBackupAndSync"`
	SqliteBackupSchedule      string `mapstructure:"sqliteBackupSchedule" validate:"required_with=EnableSqliteBackupAndSync"`
	EnableSqliteBackupAndSync bool   `mapstructure:"enableSqliteBackupAndSync"`
}

// WhatsAppConfig selects the provider used to relay alert messages.
// Provider is one of "cloud" (Meta WhatsApp Cloud API), "twilio" or "log".
type WhatsAppConfig struct {
	Provider      string `mapstructure:"provider" validate:"required,oneof=cloud twilio log"`
	ApiURL        string `mapstructure:"apiUrl"`
	PhoneNumberID string `mapstructure:"phoneNumberId"`
	AccessToken   string `mapstructure:"accessToken"`
}

type TwilioConfig struct {
	AccountSid     string `mapstructure:"accountSid"`
	AuthToken      string `mapstructure:"authToken"`
	WhatsAppNumber string `mapstructure:"whatsAppNumber"`
}

type ClientConfig struct {
	ApiURL string `mapstructure:"apiUrl" validate:"required,url"`
	Token  string `mapstructure:"token"`
}
