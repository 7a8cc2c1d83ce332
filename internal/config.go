package internal

import (
	"fmt"
	"strings"
	"time"

	"github.com/samber/lo"
)

type Config struct {
	LogLevel       string `env:"LOG_LEVEL,required=true"`
	BadgerFilepath string `env:"BADGER_FILEPATH,required=true"`
	// Empty keeps the user index in memory; it is rebuilt from badger at boot.
	BlugeFilepath string `env:"BLUGE_FILEPATH"`

	Host      string `env:"HOST,default=localhost"`
	GrpcPort  int    `env:"GRPC_PORT,default=9090"`
	HttpPort  int    `env:"HTTP_PORT,default=8080"`
	JWTSecret string `env:"JWT_SECRET,required=true"`
	JWTIssuer string `env:"JWT_ISSUER,default=chat-gate"`
	// Comma separated. Empty accepts every websocket origin.
	AllowedOrigins string `env:"ALLOWED_ORIGINS"`
	DebugEnabled   bool   `env:"DEBUG_ENABLED,default=false"`

	DeliveryBufferSize   int           `env:"DELIVERY_BUFFER_SIZE,default=1024"`
	ConnectionBufferSize int           `env:"CONNECTION_BUFFER_SIZE,default=64"`
	DeliveryTimeout      time.Duration `env:"DELIVERY_TIMEOUT,default=2s"`
	PresenceTimeout      time.Duration `env:"PRESENCE_TIMEOUT,default=1s"`
	RestartInterval      time.Duration `env:"RESTART_INTERVAL,default=1s"`
	MetricInterval       time.Duration `env:"METRIC_INTERVAL,default=30s"`
	LowCapacityThreshold int           `env:"LOW_CAPACITY_THRESHOLD,default=80"`
	WriteTimeout         time.Duration `env:"WS_WRITE_TIMEOUT,default=5s"`

	MaxContentLength int           `env:"MAX_CONTENT_LENGTH,default=4000"`
	HistoryLimit     int           `env:"HISTORY_LIMIT,default=0"`
	RequestTTL       time.Duration `env:"REQUEST_TTL,default=168h"`

	MediaDir string `env:"MEDIA_DIR,default=./media"`
	// Path prefix the HTTP server serves MediaDir under, also the prefix of stored URLs.
	MediaBaseURL  string `env:"MEDIA_BASE_URL,default=/media"`
	MaxMediaBytes int    `env:"MAX_MEDIA_BYTES,default=10485760"`

	ModerationEnabled bool `env:"MODERATION_ENABLED,default=false"`
	// Empty uses the embedded dictionaries.
	ModerationDir   string `env:"MODERATION_DIR"`
	CharReplacement string `env:"CHARACTER_REPLACEMENT,default=*"`
}

// Origins splits AllowedOrigins, dropping blanks.
func (c Config) Origins() []string {
	return lo.Compact(lo.Map(strings.Split(c.AllowedOrigins, ","), func(o string, _ int) string {
		return strings.TrimSpace(o)
	}))
}

func CharacterRune(str string) (rune, error) {
	r := []rune(str)
	if len(r) != 1 {
		return 0, fmt.Errorf(
			"CHARACTER_REPLACEMENT must be a single character, got %q",
			str,
		)
	}
	return r[0], nil
}
