// Package catalog loads the restaurant menu from CSV and serves read-only lookups.
package catalog

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/m3rciful/restobot/core/logger"
)

// ErrNoDishes is returned when the menu has no usable rows.
var ErrNoDishes = errors.New("catalog: menu is empty")

// Dish is one menu position. Price is in whole rubles.
type Dish struct {
	ID            string
	Title         string
	Description   string
	Price         int64
	Category      string
	ChildCategory string
	Modifier      string
}

// DisplayTitle appends the modifier, when present, in parentheses.
func (d Dish) DisplayTitle() string {
	if d.Modifier == "" {
		return d.Title
	}
	return fmt.Sprintf("%s (%s)", d.Title, d.Modifier)
}

// Catalog is immutable after load and safe for concurrent readers.
type Catalog struct {
	dishes     []Dish
	byID       map[string]int
	categories []string
	children   map[string][]string
}

var required = []string{"title", "price", "category"}

// Load reads the CSV menu at path.
func Load(ctx context.Context, path string) (*Catalog, error) {
	start := time.Now()
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("catalog: open menu: %w", err)
	}
	defer f.Close()

	c, err := Parse(f)
	if err != nil {
		logger.Error(ctx, logger.ComponentCatalog, "menu.load",
			append(logger.ErrAttrs(err, "MENU_PARSE"), slog.String("path", path))...,
		)
		return nil, err
	}
	logger.Info(ctx, logger.ComponentCatalog, "menu.load",
		slog.String("status", "ok"),
		slog.String("path", path),
		slog.Int("dishes", len(c.dishes)),
		slog.Int("categories", len(c.categories)),
		slog.Duration("took", logger.Took(start)),
	)
	return c, nil
}

// Parse reads a menu with a header row. Columns are matched by name:
// title, description, price, category, child_category, modifier.
// Dishes get ids dish_<row> in file order, starting at zero.
func Parse(r io.Reader) (*Catalog, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, ErrNoDishes
		}
		return nil, fmt.Errorf("catalog: read header: %w", err)
	}
	cols := make(map[string]int, len(header))
	for i, h := range header {
		cols[strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\uFEFF")))] = i
	}
	for _, name := range required {
		if _, ok := cols[name]; !ok {
			return nil, fmt.Errorf("catalog: missing column %q", name)
		}
	}
	field := func(row []string, name string) string {
		i, ok := cols[name]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	c := &Catalog{
		byID:     make(map[string]int),
		children: make(map[string][]string),
	}
	seenCategory := make(map[string]bool)
	seenChild := make(map[string]bool)
	for line := 2; ; line++ {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("catalog: line %d: %w", line, err)
		}
		price, err := parsePrice(field(row, "price"))
		if err != nil {
			return nil, fmt.Errorf("catalog: line %d: %w", line, err)
		}
		d := Dish{
			ID:            fmt.Sprintf("dish_%d", line-2),
			Title:         field(row, "title"),
			Description:   field(row, "description"),
			Price:         price,
			Category:      field(row, "category"),
			ChildCategory: field(row, "child_category"),
			Modifier:      field(row, "modifier"),
		}
		if d.Title == "" || d.Category == "" {
			return nil, fmt.Errorf("catalog: line %d: title and category are required", line)
		}
		c.byID[d.ID] = len(c.dishes)
		c.dishes = append(c.dishes, d)
		if !seenCategory[d.Category] {
			seenCategory[d.Category] = true
			c.categories = append(c.categories, d.Category)
		}
		if key := d.Category + "\x00" + d.ChildCategory; d.ChildCategory != "" && !seenChild[key] {
			seenChild[key] = true
			c.children[d.Category] = append(c.children[d.Category], d.ChildCategory)
		}
	}
	if len(c.dishes) == 0 {
		return nil, ErrNoDishes
	}
	return c, nil
}

func parsePrice(raw string) (int64, error) {
	cleaned := strings.Map(func(r rune) rune {
		switch {
		case r >= '0' && r <= '9', r == '.':
			return r
		case r == ',':
			return '.'
		}
		return -1
	}, raw)
	if cleaned == "" {
		return 0, fmt.Errorf("price %q is not a number", raw)
	}
	v, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0, fmt.Errorf("price %q: %w", raw, err)
	}
	return int64(math.Round(v)), nil
}

// Len returns the number of dishes.
func (c *Catalog) Len() int { return len(c.dishes) }

// Dish looks a dish up by id.
func (c *Catalog) Dish(id string) (Dish, bool) {
	i, ok := c.byID[id]
	if !ok {
		return Dish{}, false
	}
	return c.dishes[i], true
}

// Categories lists categories in file order.
func (c *Catalog) Categories() []string {
	return append([]string(nil), c.categories...)
}

// Category returns the category at index i of Categories.
func (c *Catalog) Category(i int) (string, bool) {
	if i < 0 || i >= len(c.categories) {
		return "", false
	}
	return c.categories[i], true
}

// CategoryIndex returns the position of name in Categories, or -1.
func (c *Catalog) CategoryIndex(name string) int {
	for i, cat := range c.categories {
		if strings.EqualFold(cat, name) {
			return i
		}
	}
	return -1
}

// Children lists the child categories of category in file order.
func (c *Catalog) Children(category string) []string {
	return append([]string(nil), c.children[category]...)
}

// InCategory returns dishes of category; a non-empty child narrows the result.
func (c *Catalog) InCategory(category, child string) []Dish {
	var out []Dish
	for _, d := range c.dishes {
		if d.Category != category {
			continue
		}
		if child != "" && d.ChildCategory != child {
			continue
		}
		out = append(out, d)
	}
	return out
}

// Digest renders one line per dish, title and description, used as AI context.
func (c *Catalog) Digest() string {
	var b strings.Builder
	for i, d := range c.dishes {
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "%s — %s", d.Title, d.Description)
		if d.Price > 0 {
			fmt.Fprintf(&b, " (%d₽)", d.Price)
		}
	}
	return b.String()
}
