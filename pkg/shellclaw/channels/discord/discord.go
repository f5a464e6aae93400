// Package discord implements the Discord channel for shellclaw using
// discordgo.
//
// Features:
//   - Per-conversation instruction handling with thread-aware session keys
//     (a thread shares its parent channel's working directory and mode)
//   - Mode dispatch: command mode runs messages verbatim, chat mode plans
//     through the oracle first
//   - Guild, channel, and user allowlists
//   - Slash commands (/run, /cwd, /mode, /file, /editfile) with modals for
//     file editing
//   - Reply chunking to the 2000-character Discord limit
//   - Automatic reconnection via discordgo's gateway
package discord

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/jholhewres/shellclaw/pkg/shellclaw/channels"
	"github.com/jholhewres/shellclaw/pkg/shellclaw/engine"
	"github.com/jholhewres/shellclaw/pkg/shellclaw/session"
)

// messageLimit is Discord's per-message character cap.
const messageLimit = 2000

// Config holds Discord channel configuration.
type Config struct {
	// Token is the Discord bot token. Required.
	Token string `yaml:"token"`

	// AllowedGuilds restricts which guild (server) IDs the bot responds
	// in. Empty means respond in all guilds.
	AllowedGuilds []string `yaml:"allowed_guilds"`

	// AllowedChannels restricts which channel IDs the bot responds in.
	// Empty means respond in all channels.
	AllowedChannels []string `yaml:"allowed_channels"`

	// AllowedUsers restricts which user IDs may issue instructions.
	// Empty means unrestricted. DMs bypass the guild and channel lists
	// but still honor this one.
	AllowedUsers []string `yaml:"allowed_users"`

	// SendTyping sends "typing..." indicators while a plan runs.
	SendTyping bool `yaml:"send_typing"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		SendTyping: true,
	}
}

// Discord implements channels.Channel over the Discord gateway. Inbound
// messages and interactions are handed to the execution engine; reports
// flow back as chunked channel messages.
type Discord struct {
	cfg     Config
	logger  *slog.Logger
	session *discordgo.Session

	engine *engine.Engine
	modes  *session.ModeStore
	files  *engine.FileOps

	// connected tracks gateway connection state.
	connected atomic.Bool

	// lastMsg tracks the last inbound message timestamp for health.
	lastMsg atomic.Value // time.Time

	// errorCount tracks consecutive send/handler errors.
	errorCount atomic.Int64

	// parents caches thread → parent channel resolution.
	parents sync.Map // channelID string → parentID string

	// sessionLocks serializes instruction handling per session key;
	// separate conversations overlap freely.
	sessionLocks sync.Map // session.Key → *sync.Mutex

	ctx    context.Context
	cancel context.CancelFunc
}

// New creates a Discord channel wired to the given engine and stores.
func New(cfg Config, eng *engine.Engine, modes *session.ModeStore, files *engine.FileOps, logger *slog.Logger) *Discord {
	if logger == nil {
		logger = slog.Default()
	}
	return &Discord{
		cfg:    cfg,
		logger: logger.With("component", "discord"),
		engine: eng,
		modes:  modes,
		files:  files,
	}
}

// ---------- Channel Interface ----------

// Name returns "discord".
func (d *Discord) Name() string { return "discord" }

// Connect opens the Discord gateway connection and registers the slash
// commands.
func (d *Discord) Connect(ctx context.Context) error {
	if d.cfg.Token == "" {
		return fmt.Errorf("discord: bot token is required")
	}

	d.ctx, d.cancel = context.WithCancel(ctx)

	s, err := discordgo.New("Bot " + d.cfg.Token)
	if err != nil {
		return fmt.Errorf("discord: creating session: %w", err)
	}

	s.Identify.Intents = discordgo.IntentsGuildMessages |
		discordgo.IntentsDirectMessages |
		discordgo.IntentsMessageContent

	s.AddHandler(d.onMessageCreate)
	s.AddHandler(d.onInteractionCreate)

	if err := s.Open(); err != nil {
		return fmt.Errorf("discord: opening gateway: %w", err)
	}

	d.session = s
	d.connected.Store(true)

	if err := d.registerCommands(); err != nil {
		d.logger.Warn("slash command registration failed", "error", err)
	}

	user := s.State.User
	d.logger.Info("connected", "bot", user.Username, "id", user.ID)
	return nil
}

// Disconnect closes the Discord gateway connection.
func (d *Discord) Disconnect() error {
	if d.cancel != nil {
		d.cancel()
	}
	if d.session != nil {
		d.session.Close()
	}
	d.connected.Store(false)
	d.logger.Info("disconnected")
	return nil
}

// Send delivers content to the given channel, split into chunks that fit
// Discord's message limit.
func (d *Discord) Send(ctx context.Context, to string, content string) error {
	if d.session == nil {
		return channels.ErrChannelDisconnected
	}
	for _, chunk := range splitMessage(content, messageLimit) {
		if _, err := d.session.ChannelMessageSend(to, chunk); err != nil {
			d.errorCount.Add(1)
			return fmt.Errorf("discord: sending to %s: %w", to, err)
		}
	}
	return nil
}

// IsConnected reports whether the bot is connected.
func (d *Discord) IsConnected() bool { return d.connected.Load() }

// Health returns the channel health status.
func (d *Discord) Health() channels.HealthStatus {
	var lastAt time.Time
	if v := d.lastMsg.Load(); v != nil {
		lastAt = v.(time.Time)
	}
	return channels.HealthStatus{
		Connected:     d.connected.Load(),
		LastMessageAt: lastAt,
		ErrorCount:    int(d.errorCount.Load()),
	}
}

// ---------- Event Handlers ----------

// onMessageCreate handles inbound Discord messages: allow-list filtering,
// session key derivation, and mode dispatch into the engine.
func (d *Discord) onMessageCreate(s *discordgo.Session, m *discordgo.MessageCreate) {
	if m.Author.ID == s.State.User.ID || m.Author.Bot {
		return
	}

	isDM := m.GuildID == ""
	if !d.allowed(m.GuildID, m.ChannelID, m.Author.ID, isDM) {
		return
	}

	text := strings.TrimSpace(m.Content)
	if text == "" {
		return
	}

	d.lastMsg.Store(time.Now())
	d.errorCount.Store(0)

	key := d.sessionKey(m.ChannelID)
	mode := d.modes.Get(key)

	// Running the plan in its own goroutine keeps a slow command from
	// stalling other conversations; the session lock keeps two quick
	// messages in the same conversation from interleaving their steps.
	go func() {
		mu := d.lockSession(key)
		mu.Lock()
		defer mu.Unlock()

		if d.cfg.SendTyping {
			_ = s.ChannelTyping(m.ChannelID)
		}
		d.engine.HandleInstruction(d.ctx, key, text, mode, func(report string) {
			if err := d.Send(d.ctx, m.ChannelID, report); err != nil {
				d.logger.Warn("reply failed", "channel", m.ChannelID, "error", err)
			}
		})
	}()
}

// ---------- Session keys ----------

// lockSession returns the serialization lock for a session key.
func (d *Discord) lockSession(key session.Key) *sync.Mutex {
	mu, _ := d.sessionLocks.LoadOrStore(key, &sync.Mutex{})
	return mu.(*sync.Mutex)
}

// sessionKey resolves a Discord channel ID to its session key. Thread
// channels normalize to their parent so a thread shares directory and
// mode state with the channel it was opened from.
func (d *Discord) sessionKey(channelID string) session.Key {
	if parent, ok := d.parents.Load(channelID); ok {
		return session.Key(parent.(string))
	}
	if d.session == nil {
		return session.Key(channelID)
	}

	ch, err := d.session.State.Channel(channelID)
	if err != nil {
		ch, err = d.session.Channel(channelID)
	}
	if err != nil || ch == nil {
		return session.Key(channelID)
	}

	key := channelID
	if ch.IsThread() && ch.ParentID != "" {
		key = ch.ParentID
	}
	d.parents.Store(channelID, key)
	return session.Key(key)
}

// allowed applies the configured allow-lists. DMs bypass the guild and
// channel lists but still honor the user list. The channel list is
// matched against the session key, so messages in a thread inherit
// their parent channel's allowance.
func (d *Discord) allowed(guildID, channelID, userID string, isDM bool) bool {
	if !isDM {
		if len(d.cfg.AllowedGuilds) > 0 && !contains(d.cfg.AllowedGuilds, guildID) {
			return false
		}
		if len(d.cfg.AllowedChannels) > 0 && !contains(d.cfg.AllowedChannels, string(d.sessionKey(channelID))) {
			return false
		}
	}
	if len(d.cfg.AllowedUsers) > 0 && !contains(d.cfg.AllowedUsers, userID) {
		return false
	}
	return true
}

// ---------- Helpers ----------

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}

// splitMessage splits text into chunks respecting maxLen, preferring to
// cut at a newline past the halfway point.
func splitMessage(text string, maxLen int) []string {
	if len(text) <= maxLen {
		return []string{text}
	}
	var chunks []string
	for len(text) > 0 {
		if len(text) <= maxLen {
			chunks = append(chunks, text)
			break
		}
		cutAt := maxLen
		if idx := strings.LastIndex(text[:maxLen], "\n"); idx > maxLen/2 {
			cutAt = idx + 1
		}
		chunks = append(chunks, text[:cutAt])
		text = text[cutAt:]
	}
	return chunks
}

// Compile-time interface verification.
var _ channels.Channel = (*Discord)(nil)
