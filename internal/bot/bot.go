package bot

import (
	"context"
	"errors"
	"fmt"

	"bastion-panel/internal/config"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

var (
	ErrUnknownChannel = errors.New("unknown channel")
	ErrNotVoice       = errors.New("channel is not a voice channel")
	ErrNotText        = errors.New("channel is not a text channel")
)

// Bot owns the gateway session the panel drives Discord through. The panel
// never consumes gateway events itself; the connection exists for voice and
// for outbound channel messages.
type Bot struct {
	cfg     config.Config
	logger  *zap.Logger
	session *discordgo.Session
}

func New(cfg config.Config, logger *zap.Logger) (*Bot, error) {
	session, err := discordgo.New("Bot " + cfg.DiscordToken)
	if err != nil {
		return nil, err
	}

	session.Identify.Intents = discordgo.IntentsGuilds | discordgo.IntentsGuildVoiceStates

	return &Bot{cfg: cfg, logger: logger, session: session}, nil
}

func (b *Bot) Start() error {
	b.session.AddHandler(b.onReady)
	return b.session.Open()
}

func (b *Bot) Close(ctx context.Context) {
	_ = ctx
	if b.session != nil {
		_ = b.session.Close()
	}
}

func (b *Bot) Session() *discordgo.Session {
	return b.session
}

func (b *Bot) onReady(session *discordgo.Session, event *discordgo.Ready) {
	b.logger.Info("discord ready", zap.String("user", session.State.User.Username))
}

func (b *Bot) channel(channelID string) (*discordgo.Channel, error) {
	channel, err := b.session.State.Channel(channelID)
	if err == nil && channel != nil {
		return channel, nil
	}
	channel, err = b.session.Channel(channelID)
	if err != nil || channel == nil {
		return nil, ErrUnknownChannel
	}
	return channel, nil
}

// ValidateVoiceChannel confirms the channel exists in the guild and carries
// voice. Playback requests fail fast here instead of inside the voice join.
func (b *Bot) ValidateVoiceChannel(guildID, channelID string) error {
	channel, err := b.channel(channelID)
	if err != nil {
		return err
	}
	if channel.GuildID != guildID {
		return ErrUnknownChannel
	}
	if channel.Type != discordgo.ChannelTypeGuildVoice && channel.Type != discordgo.ChannelTypeGuildStageVoice {
		return ErrNotVoice
	}
	return nil
}

func (b *Bot) SendChannelMessage(channelID, content string) error {
	channel, err := b.channel(channelID)
	if err != nil {
		return err
	}
	if channel.Type != discordgo.ChannelTypeGuildText && channel.Type != discordgo.ChannelTypeGuildNews {
		return ErrNotText
	}
	if _, err := b.session.ChannelMessageSend(channelID, content); err != nil {
		return fmt.Errorf("send message: %w", err)
	}
	return nil
}
