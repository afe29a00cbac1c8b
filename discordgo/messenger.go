package discordgo

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/bwmarrin/discordgo"

	"github.com/benjamonnguyen/chilltimer"
	"github.com/benjamonnguyen/chilltimer/notify"
)

type messageSender interface {
	ChannelMessageSendComplex(channelID string, data *discordgo.MessageSend, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// Messenger posts timer messages to a single text channel.
type Messenger struct {
	cl  messageSender
	cID string
}

func NewMessenger(cl *discordgo.Session, textChannelID string) *Messenger {
	return &Messenger{
		cl:  cl,
		cID: textChannelID,
	}
}

var _ notify.Deliverer = (*Messenger)(nil)

// Deliver posts the completion notification.
func (m *Messenger) Deliver(ctx context.Context, n notify.Notification) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := m.send(ctx, discordgo.Container{
		Components: []discordgo.MessageComponent{
			TextDisplay(fmt.Sprintf("### %s\n%s", n.Title, n.Body)),
		},
		AccentColor: ColorAqua.ToInt(),
	})
	return err
}

// PostSummary posts the record of a stopped session.
func (m *Messenger) PostSummary(ctx context.Context, rec chilltimer.SessionRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := m.send(ctx, SessionSummaryComponents(rec)...)
	return err
}

func (m *Messenger) send(ctx context.Context, components ...discordgo.MessageComponent) (*discordgo.Message, error) {
	return m.cl.ChannelMessageSendComplex(m.cID, &discordgo.MessageSend{
		Flags:      discordgo.MessageFlagsIsComponentsV2,
		Components: components,
	}, discordgo.WithContext(ctx))
}

type Color int

const (
	ColorAqua      Color = 0x1abc9c
	ColorGreen     Color = 0x57f287
	ColorGold      Color = 0xf1c40f
	ColorLightGrey Color = 0xbcc0c0
)

func (c Color) ToInt() *int {
	i := int(c)
	return &i
}

func TextDisplay(content string) discordgo.TextDisplay {
	return discordgo.TextDisplay{
		Content: content,
	}
}

const (
	timerBarFilledChar = "⣶"
	timerBarEmptyChar  = "⡀"
	timerBarLength     = 20
)

func SessionSummaryComponents(rec chilltimer.SessionRecord) []discordgo.MessageComponent {
	lines := []string{
		"### Session complete",
		fmt.Sprintf("Sat for %s", chilltimer.FormatDuration(rec.ActualDurationSeconds)),
		fmt.Sprintf("Target: %s", chilltimer.FormatDuration(rec.TargetSeconds)),
	}
	accentColor := ColorLightGrey
	if rec.TargetSeconds > 0 && rec.ActualDurationSeconds >= rec.TargetSeconds {
		accentColor = ColorGreen
		if over := rec.OvertimeSeconds(); over > 0 {
			lines = append(lines, fmt.Sprintf("Overtime: %s", chilltimer.FormatDuration(over)))
		}
	}
	lines = append(lines, timerBar(rec))

	return []discordgo.MessageComponent{
		discordgo.Container{
			Components: []discordgo.MessageComponent{
				TextDisplay(strings.Join(lines, "\n")),
			},
			AccentColor: accentColor.ToInt(),
		},
	}
}

func timerBar(rec chilltimer.SessionRecord) string {
	if rec.TargetSeconds <= 0 || rec.ActualDurationSeconds <= 0 {
		return strings.Repeat(timerBarEmptyChar, timerBarLength)
	}
	percentage := float64(rec.ActualDurationSeconds) / float64(rec.TargetSeconds)
	filled := min(int(math.Round(percentage*timerBarLength*10)/10), timerBarLength)
	return strings.Repeat(timerBarFilledChar, filled) + strings.Repeat(timerBarEmptyChar, timerBarLength-filled)
}
