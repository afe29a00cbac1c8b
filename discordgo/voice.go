// Package discordgo provides Discord API adapters using package github.com/bwmarrin/discordgo
package discordgo

import (
	"context"
	"sync"

	"github.com/bwmarrin/discordgo"
	"github.com/charmbracelet/log"
)

type voiceJoiner interface {
	ChannelVoiceJoin(gID, cID string, mute, deaf bool) (*discordgo.VoiceConnection, error)
}

// VoiceCue plays the completion gong into a voice channel. Opus packets
// cannot be rescaled without decoding, so any positive volume plays the
// prepared packets as they are and zero stays silent.
type VoiceCue struct {
	cl      voiceJoiner
	packets [][]byte
	gID     string
	cID     string
	l       *log.Logger

	mu   sync.Mutex
	conn *discordgo.VoiceConnection
}

func NewVoiceCue(cl *discordgo.Session, packets [][]byte, gID, cID string, l *log.Logger) *VoiceCue {
	return &VoiceCue{
		cl:      cl,
		packets: packets,
		gID:     gID,
		cID:     cID,
		l:       l,
	}
}

func (c *VoiceCue) Play(ctx context.Context, volume float64) error {
	if volume <= 0 || len(c.packets) == 0 {
		return nil
	}
	conn, err := c.join()
	if err != nil {
		return err
	}
	c.l.Debug("sending gong", "guildID", c.gID, "channelID", c.cID, "packets", len(c.packets))
	return sendOpusAudio(ctx, conn, c.packets)
}

// Close leaves the voice channel if the cue joined it.
func (c *VoiceCue) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return nil
	}
	err := c.conn.Disconnect()
	c.conn = nil
	return err
}

func (c *VoiceCue) join() (*discordgo.VoiceConnection, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn != nil {
		return c.conn, nil
	}
	conn, err := c.cl.ChannelVoiceJoin(c.gID, c.cID, false, true)
	if err != nil {
		return nil, err
	}
	c.conn = conn
	return conn, nil
}

func sendOpusAudio(ctx context.Context, conn *discordgo.VoiceConnection, packets [][]byte) error {
	if err := conn.Speaking(true); err != nil {
		return err
	}
	for _, p := range packets {
		select {
		case <-ctx.Done():
			_ = conn.Speaking(false)
			return ctx.Err()
		case conn.OpusSend <- p:
		}
	}
	return conn.Speaking(false)
}
