package e2e

import (
	"chat-gate/auth"
	"chat-gate/infrastructure/grpc/client"
	"chat-gate/infrastructure/wire"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gookit/color"
	"github.com/stretchr/testify/suite"
	"google.golang.org/grpc"
	"google.golang.org/grpc/status"
)

type BaseGrpcSuite struct {
	suite.Suite
	Config Config
}

// SetupSuite loads the environment configuration and skips the suite when no
// server is configured.
func (s *BaseGrpcSuite) SetupSuite() {
	var err error
	s.Config, err = LoadConfig()
	s.Require().NoError(err)
	if s.Config.ServerAddr == "" {
		s.T().Skip("E2E_SERVER_ADDR not set")
	}
}

// NewUser returns a fresh identity, unique per run so suites can be replayed
// against the same database.
func (s *BaseGrpcSuite) NewUser(name string) string {
	return fmt.Sprintf("%s-%s", name, uuid.NewString()[:8])
}

// Client dials the server as userID, logging every call, and registers the profile.
func (s *BaseGrpcSuite) Client(userID string) *client.ChatClient {
	t := s.T()
	header := fmt.Sprintf("  ====== %s ======", userID)
	if s.Config.Colours {
		header = color.New(color.BgBlack, color.FgGreen).Render(header)
	}
	t.Log(header)

	token, err := auth.NewTokenVerifier(s.Config.JWTSecret, s.Config.JWTIssuer).
		GenerateToken(userID, nil, time.Hour)
	s.Require().NoError(err)

	c, err := client.Dial(s.Config.ServerAddr, token,
		grpc.WithUnaryInterceptor(func(ctx context.Context, method string, req, reply any,
			cc *grpc.ClientConn, invoker grpc.UnaryInvoker, opts ...grpc.CallOption) error {
			start := time.Now()
			err := invoker(ctx, method, req, reply, cc, opts...)

			logBuilder := strings.Builder{}
			fmt.Fprintf(&logBuilder, "GRPC %s [%s] in %v", method, status.Code(err), time.Since(start))

			// Log full JSON request/response bodies if E2E_DEBUG_JSON is enabled
			if s.Config.DebugJSON {
				fmt.Fprintln(&logBuilder, "\nREQUEST:")
				fmt.Fprintln(&logBuilder, indent(req))
				if err != nil {
					fmt.Fprintln(&logBuilder, "ERROR:", err)
				} else {
					fmt.Fprintln(&logBuilder, "RESPONSE:")
					fmt.Fprintln(&logBuilder, indent(reply))
				}
			}
			t.Log(logBuilder.String())
			return err
		}),
	)
	s.Require().NoError(err, "Failed to connect to gRPC server at "+s.Config.ServerAddr)
	s.T().Cleanup(func() { _ = c.Close() })

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_, err = c.UpsertProfile(ctx, &wire.UpsertProfileRequest{Email: userID + "@e2e.test", FullName: userID})
	s.Require().NoError(err)
	return c
}

func indent(v any) string {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Sprintf("%+v", v)
	}
	return string(b)
}
