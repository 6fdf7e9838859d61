package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	twitch "github.com/gempir/go-twitch-irc/v4"

	"github.com/maxverstappen583/Tribute/counter"
	"github.com/maxverstappen583/Tribute/telemetry"
	"github.com/maxverstappen583/Tribute/tribute"
)

const platformTwitch = "twitch"

// twitchMessageLimit is the maximum length of one chat message in runes.
const twitchMessageLimit = 500

// TwitchClient is the subset of *twitch.Client used by TwitchRelay.
type TwitchClient interface {
	OnConnect(callback func())
	OnPrivateMessage(callback func(message twitch.PrivateMessage))
	Join(channels ...string)
	Say(channel, text string)
	Connect() error
	Disconnect() error
}

// NewTwitchClient creates an IRC client for the bot account.
func NewTwitchClient(username, oauthToken string) *twitch.Client {
	return twitch.NewClient(username, oauthToken)
}

// TwitchRelay answers the tribute and info commands in one Twitch channel.
type TwitchRelay struct {
	client  TwitchClient
	channel string
	info    Info
	texts   tribute.Texts
	store   counter.Store
	state   stateBox

	retryEvery time.Duration
}

// NewTwitchRelay wires a relay around client. store may be nil; it is only read.
func NewTwitchRelay(client TwitchClient, channel string, info Info, texts tribute.Texts, store counter.Store) *TwitchRelay {
	r := &TwitchRelay{
		client:  client,
		channel: strings.TrimPrefix(strings.ToLower(channel), "#"),
		info:    info,
		texts:   texts,
		store:   store,

		retryEvery: 200 * time.Millisecond,
	}
	r.state.platform = platformTwitch
	return r
}

// Platform implements server.StatusReporter.
func (r *TwitchRelay) Platform() string { return platformTwitch }

// Status implements server.StatusReporter.
func (r *TwitchRelay) Status() string { return r.state.get().String() }

// State returns the current connection state.
func (r *TwitchRelay) State() State { return r.state.get() }

// Run joins the channel and answers commands until ctx is cancelled.
func (r *TwitchRelay) Run(ctx context.Context) error {
	r.state.set(Connecting)
	r.client.OnConnect(func() {
		r.state.set(Ready)
		slog.Info("twitch relay connected", slog.String("channel", r.channel), slog.String("component", "twitch"))
	})
	r.client.OnPrivateMessage(func(msg twitch.PrivateMessage) {
		r.handle(ctx, msg)
	})

	if ctx.Err() != nil {
		r.state.set(Disconnected)
		return nil
	}

	// Disconnect fails while the client is still dialing, so keep trying
	// until it takes effect or Connect returns on its own.
	done := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
		case <-done:
			return
		}
		for r.client.Disconnect() != nil {
			select {
			case <-done:
				return
			case <-time.After(r.retryEvery):
			}
		}
	}()

	r.client.Join(r.channel)
	err := r.client.Connect()
	close(done)
	r.state.set(Disconnected)
	if err != nil && !errors.Is(err, twitch.ErrClientDisconnected) && ctx.Err() == nil {
		return fmt.Errorf("twitch chat connect: %w", err)
	}
	return nil
}

func (r *TwitchRelay) handle(ctx context.Context, msg twitch.PrivateMessage) {
	if !strings.EqualFold(strings.TrimPrefix(msg.Channel, "#"), r.channel) {
		return
	}
	reply, ok := r.Reply(ctx, msg.Message)
	if !ok {
		return
	}
	r.client.Say(r.channel, reply)
	telemetry.IncBotSend(platformTwitch, Delivered.String())
}

// Reply returns the response to a chat line and whether the line was a command.
func (r *TwitchRelay) Reply(ctx context.Context, line string) (string, bool) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return "", false
	}
	switch strings.ToLower(fields[0]) {
	case "!" + r.info.Command:
		telemetry.IncBotCommand(platformTwitch, r.info.Command)
		return r.TributeLine(currentCount(ctx, r.store, platformTwitch)), true
	case "!" + StartCommand:
		telemetry.IncBotCommand(platformTwitch, StartCommand)
		return r.StartLine(), true
	}
	return "", false
}

// TributeLine is the one-line tribute: title, visits, page link, then as much
// of the thank-you text as fits the message limit.
func (r *TwitchRelay) TributeLine(count *int64) string {
	parts := []string{TributeTitle(r.info)}
	if count != nil {
		parts = append(parts, "Visits: "+formatCount(count))
	}
	if r.info.BaseURL != "" {
		parts = append(parts, r.info.BaseURL)
	}
	line := strings.Join(parts, " | ")
	if r.texts.Thanks != "" {
		line += " | " + r.texts.Thanks
	}
	return truncateRunes(line, twitchMessageLimit)
}

// StartLine is the plaintext info reply.
func (r *TwitchRelay) StartLine() string {
	line := fmt.Sprintf("Tribute bot ready. Use !%s to post the tribute for %s.", r.info.Command, r.info.FriendName)
	if r.info.BaseURL != "" {
		line += " Open the tribute page: " + r.info.BaseURL
	}
	return truncateRunes(line, twitchMessageLimit)
}
