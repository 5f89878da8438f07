package ui

import (
	"fmt"

	"cogchat/internal/models"

	"github.com/charmbracelet/bubbles/list"
	"github.com/dustin/go-humanize"
)

// conversationItem is one sidebar row
type conversationItem struct {
	conv   models.Conversation
	active bool
}

func (i conversationItem) Title() string {
	title := models.FormatTitle(i.conv.Title, i.conv.Messages)
	if i.active {
		return "● " + title
	}
	return title
}

func (i conversationItem) Description() string {
	date := models.FormatDate(i.conv.CreatedAt)
	if updated, ok := models.ParseTimestamp(i.conv.UpdatedAt); ok {
		return date + " · " + humanize.Time(updated)
	}
	return date
}

func (i conversationItem) FilterValue() string { return i.conv.Title }

// loadMoreItem is the trailing row shown while conversations are hidden
type loadMoreItem struct {
	hidden int
}

func (i loadMoreItem) Title() string       { return "Load more ▾" }
func (i loadMoreItem) Description() string { return fmt.Sprintf("%d more", i.hidden) }
func (i loadMoreItem) FilterValue() string { return "" }

// sidebarItems returns the first visible conversations, followed by a load
// more row if any are left out.
func sidebarItems(convs []models.Conversation, visible int, activeID *string) []list.Item {
	shown := min(visible, len(convs))
	items := make([]list.Item, 0, shown+1)
	for _, conv := range convs[:shown] {
		items = append(items, conversationItem{
			conv:   conv,
			active: activeID != nil && *activeID == conv.ID,
		})
	}
	if len(convs) > shown {
		items = append(items, loadMoreItem{hidden: len(convs) - shown})
	}
	return items
}

var (
	_ list.DefaultItem = conversationItem{}
	_ list.DefaultItem = loadMoreItem{}
)
