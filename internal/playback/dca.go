package playback

import (
	"context"
	"errors"
	"io"

	"github.com/bwmarrin/discordgo"
	"github.com/jonas747/dca"
)

// DiscordConnector joins guild voice channels through a live discordgo
// session and streams clips with dca (ffmpeg under the hood).
type DiscordConnector struct {
	session *discordgo.Session
	bitrate int
}

func NewDiscordConnector(session *discordgo.Session, bitrate int) *DiscordConnector {
	if bitrate <= 0 {
		bitrate = 64
	}
	return &DiscordConnector{session: session, bitrate: bitrate}
}

func (c *DiscordConnector) Connect(guildID, channelID string) (Voice, error) {
	conn, err := c.session.ChannelVoiceJoin(guildID, channelID, false, true)
	if err != nil {
		return nil, err
	}
	return &discordVoice{conn: conn, bitrate: c.bitrate}, nil
}

type discordVoice struct {
	conn    *discordgo.VoiceConnection
	bitrate int
}

func (v *discordVoice) Speaking(speaking bool) error {
	return v.conn.Speaking(speaking)
}

func (v *discordVoice) Play(ctx context.Context, clipPath string) error {
	options := dca.StdEncodeOptions
	options.RawOutput = true
	options.Bitrate = v.bitrate

	encoder, err := dca.EncodeFile(clipPath, options)
	if err != nil {
		return err
	}
	defer encoder.Cleanup()

	done := make(chan error, 1)
	dca.NewStream(encoder, v.conn, done)

	select {
	case err := <-done:
		if errors.Is(err, io.EOF) {
			return nil
		}
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (v *discordVoice) Disconnect() error {
	return v.conn.Disconnect()
}
