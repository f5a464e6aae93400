// Package discord – commands.go registers and handles the slash command
// surface: /run, /cwd, /mode, /file, /editfile.
package discord

import (
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/jholhewres/shellclaw/pkg/shellclaw/session"
)

// registerCommands overwrites the bot's global slash commands.
func (d *Discord) registerCommands() error {
	cmds := []*discordgo.ApplicationCommand{
		{
			Name:        "run",
			Description: "Execute a shell instruction in your session's working directory",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "command",
					Description: "The instruction to execute",
					Required:    true,
				},
			},
		},
		{
			Name:        "cwd",
			Description: "Show or change the session working directory",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "path",
					Description: "New directory (relative to the current one)",
					Required:    false,
				},
			},
		},
		{
			Name:        "mode",
			Description: "Show or change the session instruction mode",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "get",
					Description: "Show the current mode",
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "set",
					Description: "Change the mode",
					Options: []*discordgo.ApplicationCommandOption{
						{
							Type:        discordgo.ApplicationCommandOptionString,
							Name:        "value",
							Description: "Instruction mode",
							Required:    true,
							Choices: []*discordgo.ApplicationCommandOptionChoice{
								{Name: "command", Value: string(session.ModeCommand)},
								{Name: "chat", Value: string(session.ModeChat)},
							},
						},
					},
				},
			},
		},
		{
			Name:        "file",
			Description: "Create a new file inside the sandbox",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "path",
					Description: "File path relative to the sandbox root",
					Required:    true,
				},
			},
		},
		{
			Name:        "editfile",
			Description: "Edit an existing file inside the sandbox",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "path",
					Description: "File path relative to the sandbox root",
					Required:    true,
				},
			},
		},
	}

	_, err := d.session.ApplicationCommandBulkOverwrite(d.session.State.User.ID, "", cmds)
	if err != nil {
		return fmt.Errorf("discord: registering commands: %w", err)
	}
	d.logger.Info("slash commands registered", "count", len(cmds))
	return nil
}

// onInteractionCreate dispatches slash commands and modal submissions.
// Every handler recovers failures into a user-visible reply; nothing here
// may take down the session loop.
func (d *Discord) onInteractionCreate(s *discordgo.Session, i *discordgo.InteractionCreate) {
	userID := interactionUserID(i)
	isDM := i.GuildID == ""
	if !d.allowed(i.GuildID, i.ChannelID, userID, isDM) {
		respondEphemeral(s, i, "You are not allowed to use this bot here.")
		return
	}

	d.lastMsg.Store(time.Now())

	switch i.Type {
	case discordgo.InteractionApplicationCommand:
		data := i.ApplicationCommandData()
		switch data.Name {
		case "run":
			d.handleRun(s, i, data)
		case "cwd":
			d.handleCwd(s, i, data)
		case "mode":
			d.handleMode(s, i, data)
		case "file":
			d.handleFile(s, i, data)
		case "editfile":
			d.handleEditFile(s, i, data)
		}
	case discordgo.InteractionModalSubmit:
		d.handleModalSubmit(s, i)
	}
}

// handleRun executes one instruction through the engine and streams the
// reports back as followup messages.
func (d *Discord) handleRun(s *discordgo.Session, i *discordgo.InteractionCreate, data discordgo.ApplicationCommandInteractionData) {
	command := strings.TrimSpace(optionString(data.Options, "command"))
	if command == "" {
		respondEphemeral(s, i, "Nothing to run.")
		return
	}

	// Acknowledge within Discord's 3s window; the command itself may run
	// for the full timeout.
	if err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
	}); err != nil {
		d.logger.Warn("interaction ack failed", "error", err)
		return
	}

	key := d.sessionKey(i.ChannelID)
	go func() {
		mu := d.lockSession(key)
		mu.Lock()
		defer mu.Unlock()

		first := true
		d.engine.HandleInstruction(d.ctx, key, command, session.ModeCommand, func(report string) {
			for _, chunk := range splitMessage(report, messageLimit) {
				var err error
				if first {
					_, err = s.InteractionResponseEdit(i.Interaction, &discordgo.WebhookEdit{Content: &chunk})
					first = false
				} else {
					_, err = s.FollowupMessageCreate(i.Interaction, true, &discordgo.WebhookParams{Content: chunk})
				}
				if err != nil {
					d.logger.Warn("followup failed", "error", err)
				}
			}
		})
	}()
}

// handleCwd shows or changes the session working directory.
func (d *Discord) handleCwd(s *discordgo.Session, i *discordgo.InteractionCreate, data discordgo.ApplicationCommandInteractionData) {
	key := d.sessionKey(i.ChannelID)

	path := strings.TrimSpace(optionString(data.Options, "path"))
	if path == "" {
		respondEphemeral(s, i, fmt.Sprintf("Current directory: `%s`", d.engine.Workdirs().Rel(d.engine.Workdirs().Get(key))))
		return
	}

	rel, err := d.engine.ChangeDir(key, path)
	if err != nil {
		respondEphemeral(s, i, fmt.Sprintf("Failed to change directory: %v", err))
		return
	}
	respondEphemeral(s, i, fmt.Sprintf("Changed directory to `%s`", rel))
}

// handleMode shows or changes the session instruction mode.
func (d *Discord) handleMode(s *discordgo.Session, i *discordgo.InteractionCreate, data discordgo.ApplicationCommandInteractionData) {
	key := d.sessionKey(i.ChannelID)

	if len(data.Options) == 0 {
		respondEphemeral(s, i, fmt.Sprintf("Mode: `%s`", d.modes.Get(key)))
		return
	}

	sub := data.Options[0]
	switch sub.Name {
	case "get":
		respondEphemeral(s, i, fmt.Sprintf("Mode: `%s`", d.modes.Get(key)))
	case "set":
		value := optionString(sub.Options, "value")
		mode, err := session.ParseMode(value)
		if err != nil {
			respondEphemeral(s, i, fmt.Sprintf("Unknown mode %q.", value))
			return
		}
		if err := d.modes.Set(key, mode); err != nil {
			respondEphemeral(s, i, fmt.Sprintf("Failed to set mode: %v", err))
			return
		}
		respondEphemeral(s, i, fmt.Sprintf("Mode set to `%s`", mode))
	}
}

// ---------- Shared interaction helpers ----------

// respondEphemeral sends a response visible only to the invoking user.
func respondEphemeral(s *discordgo.Session, i *discordgo.InteractionCreate, content string) {
	_ = s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: content,
			Flags:   discordgo.MessageFlagsEphemeral,
		},
	})
}

// interactionUserID extracts the user ID from a guild or DM interaction.
func interactionUserID(i *discordgo.InteractionCreate) string {
	if i.Member != nil && i.Member.User != nil {
		return i.Member.User.ID
	}
	if i.User != nil {
		return i.User.ID
	}
	return ""
}

// optionString finds a string option by name.
func optionString(opts []*discordgo.ApplicationCommandInteractionDataOption, name string) string {
	for _, opt := range opts {
		if opt.Name == name {
			return opt.StringValue()
		}
	}
	return ""
}
