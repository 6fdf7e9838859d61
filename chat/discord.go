package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/maxverstappen583/Tribute/counter"
	"github.com/maxverstappen583/Tribute/telemetry"
	"github.com/maxverstappen583/Tribute/tribute"
)

const platformDiscord = "discord"

// StartCommand is the name of the info slash command.
const StartCommand = "start"

// Session is the subset of *discordgo.Session used by DiscordBot.
type Session interface {
	AddHandler(handler interface{}) func()
	Open() error
	Close() error
	ApplicationCommandBulkOverwrite(appID, guildID string, commands []*discordgo.ApplicationCommand, options ...discordgo.RequestOption) ([]*discordgo.ApplicationCommand, error)
	InteractionRespond(interaction *discordgo.Interaction, resp *discordgo.InteractionResponse, options ...discordgo.RequestOption) error
	FollowupMessageCreate(interaction *discordgo.Interaction, wait bool, data *discordgo.WebhookParams, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ChannelMessageSendEmbed(channelID string, embed *discordgo.MessageEmbed, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// NewDiscordSession creates a gateway session for a bot token. The message
// content intent is needed for the prefix command.
func NewDiscordSession(token string) (*discordgo.Session, error) {
	s, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("create discord session: %w", err)
	}
	s.Identify.Intents = discordgo.IntentsGuilds | discordgo.IntentsGuildMessages | discordgo.IntentsMessageContent
	return s, nil
}

// DiscordBot answers the tribute and info commands on Discord.
type DiscordBot struct {
	session Session
	info    Info
	texts   tribute.Texts
	store   counter.Store
	guildID string
	state   stateBox
	now     func() time.Time
}

// NewDiscordBot wires a bot around session. store may be nil; it is only read.
func NewDiscordBot(session Session, info Info, texts tribute.Texts, store counter.Store, guildID string) *DiscordBot {
	b := &DiscordBot{
		session: session,
		info:    info,
		texts:   texts,
		store:   store,
		guildID: guildID,
		now:     time.Now,
	}
	b.state.platform = platformDiscord
	return b
}

// Platform implements server.StatusReporter.
func (b *DiscordBot) Platform() string { return platformDiscord }

// Status implements server.StatusReporter.
func (b *DiscordBot) Status() string { return b.state.get().String() }

// State returns the current connection state.
func (b *DiscordBot) State() State { return b.state.get() }

// Run connects to the gateway and serves commands until ctx is cancelled.
func (b *DiscordBot) Run(ctx context.Context) error {
	b.state.set(Connecting)
	removers := []func(){
		b.session.AddHandler(func(_ *discordgo.Session, r *discordgo.Ready) { b.onReady(ctx, r) }),
		b.session.AddHandler(func(_ *discordgo.Session, i *discordgo.InteractionCreate) { b.onInteraction(ctx, i) }),
		b.session.AddHandler(func(_ *discordgo.Session, m *discordgo.MessageCreate) { b.onMessage(ctx, m) }),
		b.session.AddHandler(func(_ *discordgo.Session, _ *discordgo.Disconnect) { b.state.set(Connecting) }),
	}
	defer func() {
		for _, rm := range removers {
			rm()
		}
	}()

	if err := b.session.Open(); err != nil {
		b.state.set(Disconnected)
		return fmt.Errorf("open discord session: %w", err)
	}
	slog.Info("discord bot connected", slog.String("component", "discord"))

	<-ctx.Done()
	err := b.session.Close()
	b.state.set(Disconnected)
	slog.Info("discord bot disconnected", slog.String("component", "discord"))
	if err != nil {
		return fmt.Errorf("close discord session: %w", err)
	}
	return nil
}

func (b *DiscordBot) onReady(ctx context.Context, r *discordgo.Ready) {
	b.state.set(Ready)
	log := slog.Default().With(slog.String("component", "discord"))
	if r.User != nil {
		log.Info("discord bot ready", slog.String("user", r.User.Username), slog.String("id", r.User.ID))
	}

	appID := ""
	if r.Application != nil {
		appID = r.Application.ID
	}
	if appID == "" && r.User != nil {
		appID = r.User.ID
	}
	if err := b.RegisterCommands(appID); err != nil {
		log.Warn("slash command sync failed", slog.Any("err", err))
	}
}

// Commands returns the slash commands the bot registers.
func (b *DiscordBot) Commands() []*discordgo.ApplicationCommand {
	return []*discordgo.ApplicationCommand{
		{Name: b.info.Command, Description: truncateRunes("Tribute to "+b.info.FriendName, 100)},
		{Name: StartCommand, Description: "Show tribute bot info & link"},
	}
}

// RegisterCommands overwrites the application's commands. With a guild id
// they appear in that guild immediately; global commands may take up to an
// hour to propagate.
func (b *DiscordBot) RegisterCommands(appID string) error {
	if appID == "" {
		return errors.New("application id unknown")
	}
	cmds, err := b.session.ApplicationCommandBulkOverwrite(appID, b.guildID, b.Commands())
	if err != nil {
		return fmt.Errorf("bulk overwrite commands: %w", err)
	}
	if b.guildID != "" {
		slog.Info("synced slash commands to guild", slog.String("guild", b.guildID), slog.Int("count", len(cmds)), slog.String("component", "discord"))
	} else {
		slog.Info("synced global slash commands (may take up to 1 hour to appear globally)", slog.Int("count", len(cmds)), slog.String("component", "discord"))
	}
	return nil
}

func (b *DiscordBot) onInteraction(ctx context.Context, i *discordgo.InteractionCreate) {
	if i == nil || i.Interaction == nil || i.Type != discordgo.InteractionApplicationCommand {
		return
	}
	switch name := i.ApplicationCommandData().Name; name {
	case b.info.Command:
		b.HandleTributeInteraction(ctx, i.Interaction)
	case StartCommand:
		b.HandleStartInteraction(ctx, i.Interaction)
	}
}

func (b *DiscordBot) onMessage(ctx context.Context, m *discordgo.MessageCreate) {
	if m == nil || m.Message == nil || m.Author == nil || m.Author.Bot {
		return
	}
	fields := strings.Fields(m.Content)
	if len(fields) == 0 || fields[0] != b.info.Prefix+b.info.Command {
		return
	}
	b.HandleTributeMessage(ctx, m.ChannelID)
}

// TributeEmbed builds the tribute embed. count is shown when non-nil.
func (b *DiscordBot) TributeEmbed(count *int64) *discordgo.MessageEmbed {
	embed := &discordgo.MessageEmbed{
		Title:       TributeTitle(b.info),
		Description: TributeDescription(b.texts),
		Color:       TributeColor,
		Timestamp:   b.now().UTC().Format(time.RFC3339),
		Footer:      &discordgo.MessageEmbedFooter{Text: TributeFooter(b.info)},
	}
	if b.info.ImageURL != "" {
		embed.Image = &discordgo.MessageEmbedImage{URL: b.info.ImageURL}
	}
	if count != nil {
		embed.Fields = []*discordgo.MessageEmbedField{{Name: "Visits", Value: formatCount(count), Inline: true}}
	}
	return embed
}

// StartEmbed builds the info embed.
func (b *DiscordBot) StartEmbed() *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title:       StartTitle,
		Description: StartDescription(b.info),
		Color:       InfoColor,
		Timestamp:   b.now().UTC().Format(time.RFC3339),
		Footer:      &discordgo.MessageEmbedFooter{Text: StartFooter(b.info)},
	}
}

// HandleTributeInteraction answers the tribute slash command.
func (b *DiscordBot) HandleTributeInteraction(ctx context.Context, i *discordgo.Interaction) SendResult {
	telemetry.IncBotCommand(platformDiscord, b.info.Command)
	embed := b.TributeEmbed(currentCount(ctx, b.store, platformDiscord))
	return b.respond(ctx, i, &discordgo.InteractionResponseData{Embeds: []*discordgo.MessageEmbed{embed}})
}

// HandleStartInteraction answers /start with an ephemeral info embed and, when
// a page URL is configured, a link button.
func (b *DiscordBot) HandleStartInteraction(ctx context.Context, i *discordgo.Interaction) SendResult {
	telemetry.IncBotCommand(platformDiscord, StartCommand)
	data := &discordgo.InteractionResponseData{
		Embeds: []*discordgo.MessageEmbed{b.StartEmbed()},
		Flags:  discordgo.MessageFlagsEphemeral,
	}
	if b.info.BaseURL != "" {
		data.Components = []discordgo.MessageComponent{
			discordgo.ActionsRow{Components: []discordgo.MessageComponent{
				discordgo.Button{Label: "Open tribute page", Style: discordgo.LinkButton, URL: b.info.BaseURL},
			}},
		}
	}
	return b.respond(ctx, i, data)
}

// HandleTributeMessage answers the prefix form of the tribute command. There
// is no fallback path for channel messages.
func (b *DiscordBot) HandleTributeMessage(ctx context.Context, channelID string) SendResult {
	telemetry.IncBotCommand(platformDiscord, b.info.Prefix+b.info.Command)
	embed := b.TributeEmbed(currentCount(ctx, b.store, platformDiscord))
	res := SendResult{Outcome: Delivered}
	if _, err := b.session.ChannelMessageSendEmbed(channelID, embed); err != nil {
		res = SendResult{Outcome: Dropped, Err: err}
	}
	b.record(ctx, "prefix", res)
	return res
}

// respond sends the interaction response, falling back once to a follow-up message.
func (b *DiscordBot) respond(ctx context.Context, i *discordgo.Interaction, data *discordgo.InteractionResponseData) SendResult {
	err := b.session.InteractionRespond(i, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: data,
	})
	if err == nil {
		res := SendResult{Outcome: Delivered}
		b.record(ctx, "interaction", res)
		return res
	}

	_, ferr := b.session.FollowupMessageCreate(i, true, &discordgo.WebhookParams{
		Embeds:     data.Embeds,
		Components: data.Components,
		Flags:      data.Flags,
	})
	res := SendResult{Outcome: DeliveredViaFallback, Err: err}
	if ferr != nil {
		res = SendResult{Outcome: Dropped, Err: errors.Join(err, ferr)}
	}
	b.record(ctx, "interaction", res)
	return res
}

func (b *DiscordBot) record(ctx context.Context, kind string, res SendResult) {
	telemetry.IncBotSend(platformDiscord, res.Outcome.String())
	log := telemetry.LoggerWithCorr(ctx).With(slog.String("component", "discord"), slog.String("kind", kind))
	switch res.Outcome {
	case DeliveredViaFallback:
		log.Warn("initial response failed, sent follow-up", slog.Any("err", res.Err))
	case Dropped:
		log.Error("failed to send reply", slog.Any("err", res.Err))
	}
}
