package chat

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/maxverstappen583/Tribute/config"
	"github.com/maxverstappen583/Tribute/counter"
	"github.com/maxverstappen583/Tribute/telemetry"
	"github.com/maxverstappen583/Tribute/tribute"
)

// Embed colours.
const (
	TributeColor = 0xD4AF37
	InfoColor    = 0x8AB4F8
)

// Info is the configuration every chat message is built from.
type Info struct {
	FriendName string
	YourName   string
	StartYear  string
	EndYear    string
	ImageURL   string
	BaseURL    string
	Command    string
	Prefix     string
}

// InfoFromConfig copies the message-related settings out of cfg.
func InfoFromConfig(cfg *config.Config) Info {
	return Info{
		FriendName: cfg.FriendName,
		YourName:   cfg.YourName,
		StartYear:  cfg.StartYear,
		EndYear:    cfg.EndYear,
		ImageURL:   cfg.EmbedImageURL,
		BaseURL:    cfg.BaseURL,
		Command:    cfg.TributeCommand,
		Prefix:     cfg.CommandPrefix,
	}
}

// TributeTitle is the heading of the tribute message.
func TributeTitle(info Info) string {
	return fmt.Sprintf("🌹 Remembering %s (%s – %s)", info.FriendName, info.StartYear, info.EndYear)
}

// TributeDescription holds both texts under their headings.
func TributeDescription(texts tribute.Texts) string {
	return "**Thank you**\n\n" + texts.Thanks + "\n\n**Remembering & Glorifying**\n\n" + texts.Glory
}

// TributeFooter signs the tribute message.
func TributeFooter(info Info) string {
	return fmt.Sprintf("— %s • %s-%s", info.YourName, info.StartYear, info.EndYear)
}

// StartTitle is the heading of the info reply.
const StartTitle = "🌟 Tribute Bot Ready"

// StartDescription explains the bot and links the page when BaseURL is set.
func StartDescription(info Info) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Tribute bot ready. Use `/%s` or `%s%s` to post the tribute for **%s**.\n\n",
		info.Command, info.Prefix, info.Command, info.FriendName)
	if info.BaseURL != "" {
		fmt.Fprintf(&b, "Open the tribute page: %s\n\n", info.BaseURL)
	}
	b.WriteString("If you manage this bot, set environment variables (DISCORD_TOKEN, FRIEND_NAME, etc.) in your host.")
	return b.String()
}

// StartFooter signs the info reply.
func StartFooter(info Info) string { return "— " + info.YourName }

// currentCount reads the visit count without incrementing it. It returns nil
// when counting is disabled or the store fails.
func currentCount(ctx context.Context, store counter.Store, platform string) *int64 {
	if store == nil {
		return nil
	}
	n, err := store.Get(ctx)
	if err != nil {
		telemetry.IncCounterError("get")
		telemetry.LoggerWithCorr(ctx).Warn("visit count unavailable", slog.String("platform", platform), slog.Any("err", err))
		return nil
	}
	return &n
}

func formatCount(n *int64) string {
	if n == nil {
		return ""
	}
	return strconv.FormatInt(*n, 10)
}

// truncateRunes cuts s to at most limit runes, marking the cut with an ellipsis.
func truncateRunes(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	r := []rune(s)
	if limit <= 1 {
		return string(r[:limit])
	}
	return strings.TrimRight(string(r[:limit-1]), " ") + "…"
}
