package internal

import (
	"os"
	"testing"
	"time"

	"github.com/Netflix/go-env"
	"github.com/stretchr/testify/require"
)

func TestConfig_Defaults(t *testing.T) {
	req := require.New(t)
	t.Setenv("LOG_LEVEL", "DEBUG")
	t.Setenv("BADGER_FILEPATH", "/tmp/chat-gate")
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("ALLOWED_ORIGINS", " https://a.example , ,https://b.example")

	var config Config
	_, err := env.UnmarshalFromEnviron(&config)
	req.NoError(err)

	req.Equal(9090, config.GrpcPort)
	req.Equal(2*time.Second, config.DeliveryTimeout)
	req.Equal(7*24*time.Hour, config.RequestTTL)
	req.Equal("chat-gate", config.JWTIssuer)
	req.False(config.ModerationEnabled)
	req.Equal([]string{"https://a.example", "https://b.example"}, config.Origins())
}

func TestConfig_Requires_Secret(t *testing.T) {
	t.Setenv("LOG_LEVEL", "DEBUG")
	t.Setenv("BADGER_FILEPATH", "/tmp/chat-gate")
	t.Setenv("JWT_SECRET", "restored after the test")
	require.NoError(t, os.Unsetenv("JWT_SECRET"))

	var config Config
	_, err := env.UnmarshalFromEnviron(&config)
	require.Error(t, err)
}

func TestCharacterRune(t *testing.T) {
	req := require.New(t)

	r, err := CharacterRune("€")
	req.NoError(err)
	req.Equal('€', r)

	_, err = CharacterRune("**")
	req.Error(err)
}
