// Package styles renders feed records for the terminal. This is the only
// place record text is displayed, and everything routes through
// notify.Sanitize.
package styles

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"

	"github.com/transitops/beacon/internal/core/notify"
)

var (
	styleLineDelay  = lipgloss.NewStyle().Foreground(lipgloss.Color("#e0af68"))
	styleLowBalance = lipgloss.NewStyle().Foreground(lipgloss.Color("#f7768e"))
	styleInfo       = lipgloss.NewStyle().Foreground(lipgloss.Color("#7aa2f7"))
	styleSuccess    = lipgloss.NewStyle().Foreground(lipgloss.Color("#9ece6a"))
	styleWarning    = lipgloss.NewStyle().Foreground(lipgloss.Color("#e0af68"))
	styleError      = lipgloss.NewStyle().Foreground(lipgloss.Color("#fb4934"))

	styleUnread = lipgloss.NewStyle().Bold(true)
	styleMuted  = lipgloss.NewStyle().Foreground(lipgloss.Color("#565f89"))
)

// KindIcon returns the glyph shown next to a record of the given kind.
func KindIcon(k notify.Kind) string {
	switch k {
	case notify.KindLineDelay:
		return "🚌"
	case notify.KindLowBalance:
		return "💳"
	case notify.KindInfo:
		return "ℹ"
	case notify.KindSuccess:
		return "✓"
	case notify.KindWarning:
		return "⚠"
	case notify.KindError:
		return "✕"
	default:
		// Unreachable for records built through the model; corrupt
		// persisted data degrades to the info glyph.
		return "ℹ"
	}
}

// KindStyle returns the lipgloss style for the given kind.
func KindStyle(k notify.Kind) lipgloss.Style {
	switch k {
	case notify.KindLineDelay:
		return styleLineDelay
	case notify.KindLowBalance:
		return styleLowBalance
	case notify.KindInfo:
		return styleInfo
	case notify.KindSuccess:
		return styleSuccess
	case notify.KindWarning:
		return styleWarning
	case notify.KindError:
		return styleError
	default:
		return styleInfo
	}
}

// RenderRecord formats one record as a two-line feed entry.
func RenderRecord(r notify.Record) string {
	title := notify.Sanitize(r.Title)
	if !r.Read {
		title = styleUnread.Render(title)
	}

	head := fmt.Sprintf("%s %s %s",
		KindStyle(r.Kind).Render(KindIcon(r.Kind)),
		title,
		styleMuted.Render(r.DisplayTime),
	)
	body := "  " + notify.Sanitize(r.Message)

	return head + "\n" + body
}
