// ABOUTME: Renders bot output as markdown plus goldmark HTML for formatted message bodies
// ABOUTME: Shop signs, item listings, item tables, and the embedded help text

package render

import (
	"bytes"
	"embed"
	"fmt"
	"strings"
	"text/template"

	"github.com/shopspring/decimal"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"

	"github.com/2389/shopkeeper/internal/store"
)

//go:embed docs/*.md
var docsFS embed.FS

var md = goldmark.New(
	goldmark.WithExtensions(extension.Table, extension.Strikethrough),
	goldmark.WithRendererOptions(html.WithHardWraps()),
)

// Message is a chat message with a plain body and an HTML formatted body.
type Message struct {
	Plain string
	HTML  string
}

// Markdown converts markdown source into a Message. If conversion fails the
// HTML body is left empty and clients fall back to the plain body.
func Markdown(source string) Message {
	var buf bytes.Buffer
	if err := md.Convert([]byte(source), &buf); err != nil {
		return Message{Plain: source}
	}
	return Message{Plain: source, HTML: strings.TrimSpace(buf.String())}
}

// FormatPrice renders a price as dollars with thousands separators, eg. $1,234.50.
func FormatPrice(price decimal.Decimal) string {
	fixed := price.Abs().StringFixed(2)
	whole, frac, _ := strings.Cut(fixed, ".")

	var b strings.Builder
	if price.IsNegative() {
		b.WriteString("-")
	}
	b.WriteString("$")
	for i, r := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	b.WriteString(".")
	b.WriteString(frac)
	return b.String()
}

// FormatQuantity renders stock, INF for unlimited.
func FormatQuantity(q store.Quantity) string {
	return q.String()
}

// Escape neutralizes markdown control characters in user supplied text.
func Escape(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch r {
		case '\\', '`', '*', '_', '[', ']', '<', '>', '#', '|', '~':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}

// SignText is the line every shop sign ends with; it tells readers whether
// the shop is open.
func SignText(status store.ShopStatus) string {
	return fmt.Sprintf("**This shop is currently %s!**", status)
}

// ShopSign renders the sign posted at the bottom of a shop room.
func ShopSign(ownerName string, sh *store.Shop) Message {
	var b strings.Builder
	fmt.Fprintf(&b, "## %s\n\n", Escape(sh.Name))
	fmt.Fprintf(&b, "Owner: %s\n\n", Escape(ownerName))
	if sh.Description != "" {
		fmt.Fprintf(&b, "%s\n\n", Escape(sh.Description))
	}
	b.WriteString("Each listing above is an item for sale. Message the owner to buy.\n\n")
	b.WriteString(SignText(sh.Status))
	return Markdown(b.String())
}

// ItemListing renders the shop message that represents one item.
func ItemListing(item *store.Item) Message {
	var b strings.Builder
	fmt.Fprintf(&b, "**Item:** %s  \n", Escape(item.Name))
	fmt.Fprintf(&b, "**Type:** %s  \n", item.Type)
	fmt.Fprintf(&b, "**Price:** %s  \n", FormatPrice(item.Price))
	fmt.Fprintf(&b, "**Qty Avl:** %s\n\n", FormatQuantity(item.Quantity))
	if item.Description != "" {
		fmt.Fprintf(&b, "%s\n\n", Escape(item.Description))
	}
	if item.Image != nil {
		fmt.Fprintf(&b, "![%s](%s)\n\n", Escape(item.Name), *item.Image)
	}
	b.WriteString("**Purchase Info:** contact the owner for further information on the item listed.  \n")
	b.WriteString("**Middleman Info:** a trusted middleman can be used for extra buyer protection.")
	return Markdown(b.String())
}

// ItemDraft renders an unsaved item the same way ItemListing does.
func ItemDraft(name, description string, price decimal.Decimal, qty store.Quantity, itemType store.ItemType, image *string) Message {
	return ItemListing(&store.Item{
		Name:        name,
		Description: description,
		Price:       price,
		Quantity:    qty,
		Type:        itemType,
		Image:       image,
	})
}

// ItemTable renders a shop's items as a table for the owner's control panel.
func ItemTable(items []*store.Item) Message {
	if len(items) == 0 {
		return Markdown("Your shop has no items yet.")
	}

	var b strings.Builder
	b.WriteString("| ID | Item | Type | Price | Qty |\n")
	b.WriteString("|---|---|---|---|---|\n")
	for _, item := range items {
		fmt.Fprintf(&b, "| `%s` | %s | %s | %s | %s |\n",
			item.ID, Escape(item.Name), item.Type, FormatPrice(item.Price), FormatQuantity(item.Quantity))
	}
	return Markdown(b.String())
}

// Help renders the command reference with the configured command prefix.
func Help(prefix string) (Message, error) {
	return renderDoc("help.md", prefix)
}

// ControlPanelWelcome renders the first message posted in a new control panel.
func ControlPanelWelcome(prefix string) (Message, error) {
	return renderDoc("welcome.md", prefix)
}

func renderDoc(name, prefix string) (Message, error) {
	raw, err := docsFS.ReadFile("docs/" + name)
	if err != nil {
		return Message{}, fmt.Errorf("reading %s: %w", name, err)
	}
	tmpl, err := template.New(name).Parse(string(raw))
	if err != nil {
		return Message{}, fmt.Errorf("parsing %s: %w", name, err)
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, struct{ Prefix string }{prefix}); err != nil {
		return Message{}, fmt.Errorf("executing %s: %w", name, err)
	}
	return Markdown(buf.String()), nil
}

// MemberWelcome renders the direct message sent to new lobby members.
func MemberWelcome(prefix string) (Message, error) {
	return renderDoc("member.md", prefix)
}

// AuditLog renders audit entries, newest first, as a table.
func AuditLog(entries []store.AuditEntry) Message {
	if len(entries) == 0 {
		return Markdown("No audit entries recorded.")
	}

	var b strings.Builder
	b.WriteString("| When | Actor | Action | Target |\n")
	b.WriteString("|---|---|---|---|\n")
	for _, e := range entries {
		fmt.Fprintf(&b, "| %s | %s | %s | %s %s |\n",
			e.Timestamp.UTC().Format("2006-01-02 15:04"), Escape(e.ActorID), e.Action, e.TargetType, Escape(e.TargetID))
	}
	return Markdown(b.String())
}
