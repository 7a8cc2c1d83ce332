// Command client is a terminal front end for a chat-gate server: it opens the
// realtime stream, prints every event and turns typed commands into calls.
package main

import (
	"bufio"
	"chat-gate/auth"
	"chat-gate/errors"
	"chat-gate/infrastructure/grpc/client"
	"chat-gate/infrastructure/wire"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gookit/color"
	"github.com/kelseyhightower/envconfig"
	"github.com/mama165/sdk-go/logs"
	"github.com/samber/lo"
	"google.golang.org/grpc"
	"google.golang.org/grpc/status"
)

// Exit codes for the client application.
const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 2
)

const tokenTTL = 12 * time.Hour

type Config struct {
	ServerAddress string `envconfig:"CHAT_SERVER_ADDR" default:"localhost:9090"`
	UserID        string `envconfig:"CHAT_USER_ID" required:"true"`
	Email         string `envconfig:"CHAT_EMAIL"`
	JWTSecret     string `envconfig:"JWT_SECRET" required:"true"`
	JWTIssuer     string `envconfig:"JWT_ISSUER" default:"chat-gate"`
	LogLevel      string `envconfig:"LOG_LEVEL" default:"INFO"`
	Colours       bool   `envconfig:"CHAT_COLOURS" default:"true"`
}

func main() {
	code, err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Client error: %v\n", err)
	}
	os.Exit(code)
}

func run() (int, error) {
	// 1. Configuration
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		return exitConfig, fmt.Errorf("config error: %w", err)
	}
	log := logs.GetLoggerFromString(config.LogLevel)
	color.Enable = config.Colours

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 2. Identity: the client mints its own token from the shared secret
	token, err := auth.NewTokenVerifier(config.JWTSecret, config.JWTIssuer).
		GenerateToken(config.UserID, nil, tokenTTL)
	if err != nil {
		return exitConfig, fmt.Errorf("token: %w", err)
	}

	c, err := client.Dial(config.ServerAddress, token)
	if err != nil {
		return exitRuntime, fmt.Errorf("could not connect to server at %s: %w", config.ServerAddress, err)
	}
	defer func() {
		log.Info("Closing connection...")
		_ = c.Close()
	}()

	if config.Email != "" {
		if _, err := c.UpsertProfile(ctx, &wire.UpsertProfileRequest{Email: config.Email, FullName: config.UserID}); err != nil {
			return exitRuntime, fmt.Errorf("profile: %w", err)
		}
	}

	// 3. Realtime stream, subscribed to every group we belong to
	stream, err := c.Connect(ctx)
	if err != nil {
		return exitRuntime, fmt.Errorf("failed to open stream: %w", err)
	}
	groups, err := c.ListGroups(ctx)
	if err != nil {
		return exitRuntime, fmt.Errorf("list groups: %w", err)
	}
	if len(groups.Groups) > 0 {
		ids := lo.Map(groups.Groups, func(g wire.Group, _ int) string { return g.ID })
		if err := stream.Send(&wire.ClientFrame{Type: wire.JoinGroupChannels, GroupIDs: ids}); err != nil {
			return exitRuntime, fmt.Errorf("join channels: %w", err)
		}
	}

	color.Info.Printf(">>> Connected to %s as %s (Ctrl+C to quit)\n", config.ServerAddress, config.UserID)
	color.Comment.Println(usage)

	go readCommands(ctx, c, stream, os.Stdin, log)

	// 4. Event loop, until the context is cancelled or the server hangs up
	for {
		frame, err := stream.Recv()
		if err != nil {
			if ctx.Err() != nil || err == io.EOF {
				return exitOK, nil
			}
			return exitRuntime, fmt.Errorf("stream error: %w", err)
		}
		printFrame(frame)
	}
}

func readCommands(ctx context.Context, c *client.ChatClient,
	stream grpc.BidiStreamingClient[wire.ClientFrame, wire.EventFrame], in io.Reader, log *slog.Logger) {
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		cmd, err := parseCommand(scanner.Text())
		if err != nil {
			color.Warn.Println(err)
			continue
		}
		if err := execute(ctx, c, stream, cmd); err != nil {
			st := status.Convert(err)
			color.Error.Printf("%s: %s %v\n", st.Code(), st.Message(), errors.ConflictMeta(err))
			log.Debug("Command failed", "command", cmd.kind, "error", err)
		}
	}
}

func execute(ctx context.Context, c *client.ChatClient,
	stream grpc.BidiStreamingClient[wire.ClientFrame, wire.EventFrame], cmd command) error {
	switch cmd.kind {
	case cmdRequest:
		resp, err := c.SendRequest(ctx, cmd.target)
		if err != nil {
			return err
		}
		color.Info.Printf("request %s %s (%s)\n", resp.Request.ID, resp.Request.Status, resp.Outcome)
	case cmdAccept, cmdReject, cmdCancel:
		answer := map[commandKind]func(context.Context, string) (*wire.Request, error){
			cmdAccept: c.AcceptRequest,
			cmdReject: c.RejectRequest,
			cmdCancel: c.CancelRequest,
		}[cmd.kind]
		r, err := answer(ctx, cmd.target)
		if err != nil {
			return err
		}
		color.Info.Printf("request %s is now %s\n", r.ID, r.Status)
	case cmdDirect:
		_, err := c.SendDirectMessage(ctx, &wire.SendDirectRequest{ReceiverID: cmd.target, Text: cmd.text})
		return err
	case cmdGroup:
		_, err := c.SendGroupMessage(ctx, &wire.SendGroupRequest{GroupID: cmd.target, Text: cmd.text})
		return err
	case cmdJoin:
		return stream.Send(&wire.ClientFrame{Type: wire.JoinGroupChannels, GroupIDs: []string{cmd.target}})
	case cmdSearch:
		users, err := c.SearchUsers(ctx, cmd.target)
		if err != nil {
			return err
		}
		for _, u := range users.Users {
			fmt.Printf("  %s <%s>\n", u.ID, u.Email)
		}
	case cmdIncoming:
		requests, err := c.ListIncomingRequests(ctx)
		if err != nil {
			return err
		}
		for _, r := range requests.Requests {
			fmt.Printf("  %s from %s\n", r.ID, r.RequesterID)
		}
	}
	return nil
}

func printFrame(frame *wire.EventFrame) {
	switch {
	case frame.Message != nil:
		m := frame.Message
		where := "dm"
		if m.GroupID != "" {
			where = "#" + m.GroupID[:8]
		}
		fmt.Printf("[%s] %s %s: %s\n",
			m.CreatedAt.Local().Format(time.TimeOnly),
			color.Cyan.Render(where),
			color.Magenta.Render(m.SenderID),
			m.Text)
	case frame.Request != nil:
		color.Yellow.Printf("* %s: request %s %s -> %s (%s)\n",
			frame.Type, frame.Request.ID, frame.Request.RequesterID, frame.Request.RecipientID, frame.Request.Status)
	case frame.Group != nil:
		color.Yellow.Printf("* group %s updated: %s\n", frame.Group.ID, frame.Group.Name)
	case frame.Type == wire.TypeGroupChannelsJoined:
		color.Comment.Printf("* listening to %d group(s)\n", len(frame.GroupIDs))
	default:
		color.Comment.Printf("* online: %v\n", frame.OnlineUsers)
	}
}
