// Package discord – modals.go implements the /file and /editfile modal
// flows for sandboxed file editing from chat.
package discord

import (
	"fmt"
	"os"
	"strings"

	"github.com/bwmarrin/discordgo"
)

const (
	// modalReadCap bounds how much of an existing file is loaded into an
	// edit modal.
	modalReadCap = 20 * 1024

	// modalInputLimit is Discord's hard cap on a text input value.
	modalInputLimit = 4000

	truncationMarker = "\n[truncated for modal]"

	modalPrefixCreate = "file:"
	modalPrefixEdit   = "editfile:"
)

// handleFile opens a creation modal for a new sandboxed file.
func (d *Discord) handleFile(s *discordgo.Session, i *discordgo.InteractionCreate, data discordgo.ApplicationCommandInteractionData) {
	path := strings.TrimSpace(optionString(data.Options, "path"))
	if path == "" {
		respondEphemeral(s, i, "A file path is required.")
		return
	}

	abs, err := d.files.Resolve(path)
	if err != nil {
		respondEphemeral(s, i, fmt.Sprintf("Rejected path %q: %v", path, err))
		return
	}
	if _, err := os.Stat(abs); err == nil {
		respondEphemeral(s, i, fmt.Sprintf("File `%s` already exists. Use /editfile instead.", path))
		return
	}

	d.openContentModal(s, i, modalPrefixCreate+path, "Create "+path, "")
}

// handleEditFile opens an edit modal pre-filled with the file's content.
func (d *Discord) handleEditFile(s *discordgo.Session, i *discordgo.InteractionCreate, data discordgo.ApplicationCommandInteractionData) {
	path := strings.TrimSpace(optionString(data.Options, "path"))
	if path == "" {
		respondEphemeral(s, i, "A file path is required.")
		return
	}

	content, truncated, err := d.files.ReadCapped(path, modalReadCap)
	if err != nil {
		respondEphemeral(s, i, fmt.Sprintf("Failed to read %q: %v", path, err))
		return
	}
	if truncated {
		content += truncationMarker
	}
	// Discord rejects text input values over its own limit regardless of
	// the read cap.
	if len(content) > modalInputLimit {
		content = content[:modalInputLimit-len(truncationMarker)] + truncationMarker
	}

	d.openContentModal(s, i, modalPrefixEdit+path, "Edit "+path, content)
}

// openContentModal shows a single-paragraph modal whose submission is
// routed back through handleModalSubmit via the custom ID.
func (d *Discord) openContentModal(s *discordgo.Session, i *discordgo.InteractionCreate, customID, title, prefill string) {
	if len(title) > 45 {
		// Discord caps modal titles at 45 characters.
		title = title[:42] + "..."
	}

	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseModal,
		Data: &discordgo.InteractionResponseData{
			CustomID: customID,
			Title:    title,
			Components: []discordgo.MessageComponent{
				discordgo.ActionsRow{
					Components: []discordgo.MessageComponent{
						discordgo.TextInput{
							CustomID:  "content",
							Label:     "File content",
							Style:     discordgo.TextInputParagraph,
							Value:     prefill,
							Required:  false,
							MaxLength: modalInputLimit,
						},
					},
				},
			},
		},
	})
	if err != nil {
		d.logger.Warn("modal open failed", "custom_id", customID, "error", err)
	}
}

// handleModalSubmit writes the submitted content back into the sandbox.
func (d *Discord) handleModalSubmit(s *discordgo.Session, i *discordgo.InteractionCreate) {
	data := i.ModalSubmitData()

	var path string
	switch {
	case strings.HasPrefix(data.CustomID, modalPrefixCreate):
		path = strings.TrimPrefix(data.CustomID, modalPrefixCreate)
	case strings.HasPrefix(data.CustomID, modalPrefixEdit):
		path = strings.TrimPrefix(data.CustomID, modalPrefixEdit)
	default:
		respondEphemeral(s, i, "Unknown modal submission.")
		return
	}

	content := modalInputValue(data, "content")
	n, err := d.files.Write(path, content)
	if err != nil {
		respondEphemeral(s, i, fmt.Sprintf("Failed to write %q: %v", path, err))
		return
	}
	respondEphemeral(s, i, fmt.Sprintf("Wrote %d bytes to `%s`", n, path))
}

// modalInputValue extracts a text input value from modal submit data.
func modalInputValue(data discordgo.ModalSubmitInteractionData, customID string) string {
	for _, row := range data.Components {
		ar, ok := row.(*discordgo.ActionsRow)
		if !ok {
			continue
		}
		for _, comp := range ar.Components {
			if ti, ok := comp.(*discordgo.TextInput); ok && ti.CustomID == customID {
				return ti.Value
			}
		}
	}
	return ""
}
