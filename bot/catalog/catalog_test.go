package catalog

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleMenu = `title,description,price,category,child_category,modifier
Филадельфия,"Лосось, сыр",450,Роллы,Европейские роллы,
Калифорния,Краб,390.50,Роллы,Европейские роллы,
Темпура Эби,Креветка,410,Роллы,Темпура роллы,
Наполеон,Слоёный,1200,Торты,,1 кг
Морс,Клюква,"120,00",Напитки,,
`

func TestParse(t *testing.T) {
	c, err := Parse(strings.NewReader(sampleMenu))
	require.NoError(t, err)

	assert.Equal(t, 5, c.Len())
	assert.Equal(t, []string{"Роллы", "Торты", "Напитки"}, c.Categories())
	assert.Equal(t, []string{"Европейские роллы", "Темпура роллы"}, c.Children("Роллы"))
	assert.Empty(t, c.Children("Напитки"))

	d, ok := c.Dish("dish_1")
	require.True(t, ok)
	assert.Equal(t, "Калифорния", d.Title)
	assert.EqualValues(t, 391, d.Price)

	cake, ok := c.Dish("dish_3")
	require.True(t, ok)
	assert.Equal(t, "Наполеон (1 кг)", cake.DisplayTitle())

	drink, _ := c.Dish("dish_4")
	assert.EqualValues(t, 120, drink.Price)

	assert.Len(t, c.InCategory("Роллы", ""), 3)
	assert.Len(t, c.InCategory("Роллы", "Темпура роллы"), 1)
	assert.Equal(t, 1, c.CategoryIndex("торты"))
	assert.Equal(t, -1, c.CategoryIndex("Пицца"))

	name, ok := c.Category(2)
	assert.True(t, ok)
	assert.Equal(t, "Напитки", name)
	_, ok = c.Category(3)
	assert.False(t, ok)

	assert.Contains(t, c.Digest(), "Филадельфия — Лосось, сыр (450₽)")
}

func TestParseStripsBOM(t *testing.T) {
	c, err := Parse(strings.NewReader("\uFEFFtitle,price,category\nМорс,120,Напитки\n"))
	require.NoError(t, err)
	require.Equal(t, 1, c.Len())
	d, ok := c.Dish("dish_0")
	require.True(t, ok)
	assert.Equal(t, "Морс", d.Title)
	assert.Equal(t, []string{"Напитки"}, c.Categories())
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		csv  string
	}{
		{name: "empty", csv: ""},
		{name: "header only", csv: "title,price,category\n"},
		{name: "missing column", csv: "title,price\nA,1\n"},
		{name: "bad price", csv: "title,price,category\nA,free,B\n"},
		{name: "missing title", csv: "title,price,category\n,10,B\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(strings.NewReader(tt.csv))
			assert.Error(t, err)
		})
	}
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "menu.csv")
	require.NoError(t, os.WriteFile(path, []byte(sampleMenu), 0o600))

	c, err := Load(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, 5, c.Len())

	_, err = Load(context.Background(), filepath.Join(t.TempDir(), "missing.csv"))
	assert.Error(t, err)
}
