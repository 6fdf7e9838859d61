// Package chat contains the chat-platform clients that post the tribute.
//
// It provides two clients that share the same message content:
//   - DiscordBot: registers the tribute and /start slash commands (guild-scoped
//     when GUILD_ID is set, global otherwise) and answers the prefix form of the
//     tribute command in text channels. Slash replies fall back to an
//     interaction follow-up once when the initial response fails.
//   - TwitchRelay: joins TWITCH_CHANNEL over IRC and answers !<command> and
//     !start with a single plaintext line.
//
// Both clients only read the visit count. Viewing the tribute in chat is not a
// page visit, so neither ever increments it.
//
// Credentials: the Discord bot needs DISCORD_TOKEN, and the prefix command
// needs the privileged message content intent enabled for the application. The
// IRC client requires a bot username and an OAuth token with chat:read and
// chat:edit scopes.
package chat
