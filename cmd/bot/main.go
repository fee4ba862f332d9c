package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cbodonnell/buddybeacon/pkg/client"
	"github.com/cbodonnell/buddybeacon/pkg/log"
	"github.com/cbodonnell/buddybeacon/pkg/messages"
)

// bot is a headless player: it joins, shares a code, random-walks and
// reports what its buddy cache sees.
type bot struct {
	client     *client.Client
	acceptAll  bool
	x, y, z    float64
	health     float32
	saturation float32
}

func main() {
	url := flag.String("url", "ws://localhost:8080/", "Server WebSocket URL")
	token := flag.String("token", "", "Login token (the uid with the trusted auth provider)")
	name := flag.String("name", "", "Display name")
	code := flag.String("code", "", "Share code to join a beacon group")
	codecName := flag.String("codec", "json", "Payload codec, must match the server")
	accept := flag.Bool("accept", false, "Accept every teleport request and party invite")
	interval := flag.Duration("interval", time.Second, "How often to move and report position")
	logLevel := flag.String("log-level", "info", "Log level")
	flag.Parse()

	parsedLogLevel, err := log.ParseLogLevel(*logLevel)
	if err != nil {
		panic(fmt.Sprintf("Failed to parse log level: %v", err))
	}
	log.SetDefaultLogger(log.New(os.Stdout, "bot", log.FormatConsole, parsedLogLevel))

	if *token == "" {
		*token = fmt.Sprintf("bot-%04d", rand.Intn(10000))
	}
	codec, err := messages.NewCodec(*codecName)
	if err != nil {
		panic(fmt.Sprintf("Failed to create payload codec: %v", err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	b := &bot{
		acceptAll:  *accept,
		x:          rand.Float64()*200 - 100,
		y:          64,
		z:          rand.Float64()*200 - 100,
		health:     20,
		saturation: 1500,
	}
	dialCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	c, err := client.Dial(dialCtx, client.DialOptions{
		URL:       *url,
		Token:     *token,
		Name:      *name,
		Codec:     codec,
		OnMessage: func(msg *messages.Message) { b.handle(ctx, msg) },
	})
	cancel()
	if err != nil {
		panic(fmt.Sprintf("Failed to connect: %v", err))
	}
	defer c.Close()
	b.client = c

	if *code != "" {
		if err := c.Send(ctx, messages.MessageTypeClientBeaconCodeSet, &messages.ClientBeaconCodeSet{Code: *code}); err != nil {
			panic(fmt.Sprintf("Failed to set share code: %v", err))
		}
	}

	go b.walk(ctx, *interval)
	if err := c.Run(ctx); err != nil {
		log.Error("Connection lost: %v", err)
	}
}

func (b *bot) walk(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for tick := 0; ; tick++ {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		b.x += rand.Float64()*10 - 5
		b.z += rand.Float64()*10 - 5
		b.saturation = max(0, b.saturation-rand.Float32()*5)
		if err := b.client.Send(ctx, messages.MessageTypeClientPlayerUpdate, &messages.ClientPlayerUpdate{
			X:             b.x,
			Y:             b.y,
			Z:             b.z,
			Health:        b.health,
			MaxHealth:     20,
			Saturation:    b.saturation,
			MaxSaturation: 1500,
		}); err != nil {
			log.Error("Failed to send player update: %v", err)
			continue
		}

		if tick%5 == 0 {
			b.report()
		}
	}
}

func (b *bot) report() {
	now := time.Now()
	buddies := b.client.Cache().Buddies()
	log.Info("%d buddies in range", len(buddies))
	for _, buddy := range buddies {
		log.Info("  %s (%.0f, %.0f, %.0f) hp %.0f/%.0f [%s]", buddy.Name, buddy.X, buddy.Y, buddy.Z, buddy.Health, buddy.MaxHealth, buddy.Staleness(now))
	}
	for _, ping := range b.client.Cache().Pings() {
		log.Info("  ping from %s at (%.0f, %.0f)", ping.SenderName, ping.X, ping.Z)
	}
}

func (b *bot) handle(ctx context.Context, msg *messages.Message) {
	switch msg.Type {
	case messages.MessageTypeServerTeleportPrompt:
		prompt := &messages.ServerTeleportPrompt{}
		if err := b.client.Decode(msg, prompt); err != nil {
			log.Warn("%v", err)
			return
		}
		log.Info("Teleport request %d from %s", prompt.RequestID, prompt.RequesterName)
		b.respond(ctx, messages.MessageTypeClientTeleportResponse, &messages.ClientTeleportResponse{
			RequestID: prompt.RequestID,
			Accepted:  b.acceptAll,
		})
	case messages.MessageTypeServerPartyInvitePrompt:
		prompt := &messages.ServerPartyInvitePrompt{}
		if err := b.client.Decode(msg, prompt); err != nil {
			log.Warn("%v", err)
			return
		}
		log.Info("Party invite %d from %s", prompt.InviteID, prompt.InviterName)
		b.respond(ctx, messages.MessageTypeClientPartyInviteResponse, &messages.ClientPartyInviteResponse{
			InviteID: prompt.InviteID,
			Accepted: b.acceptAll,
		})
	case messages.MessageTypeServerTeleportExecute:
		exec := &messages.ServerTeleportExecute{}
		if err := b.client.Decode(msg, exec); err != nil {
			log.Warn("%v", err)
			return
		}
		b.x, b.y, b.z = exec.X, exec.Y, exec.Z
		log.Info("Teleported to (%.0f, %.0f, %.0f)", b.x, b.y, b.z)
	case messages.MessageTypeServerTeleportResult, messages.MessageTypeServerPartyInviteResult:
		result := &messages.ServerTeleportResult{}
		if err := b.client.Decode(msg, result); err != nil {
			log.Warn("%v", err)
			return
		}
		log.Info("%s", result.Message)
	case messages.MessageTypeServerBuddyChat:
		chat := &messages.ServerBuddyChat{}
		if err := b.client.Decode(msg, chat); err != nil {
			log.Warn("%v", err)
			return
		}
		log.Info("[%s] %s", chat.SenderName, chat.Message)
	default:
		log.Debug("Received %s", msg.Type)
	}
}

func (b *bot) respond(ctx context.Context, t messages.MessageType, payload interface{}) {
	if err := b.client.Send(ctx, t, payload); err != nil {
		log.Error("Failed to send %s: %v", t, err)
	}
}
