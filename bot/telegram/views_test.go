package telegram

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m3rciful/restobot/bot/cart"
	"github.com/m3rciful/restobot/bot/catalog"
	"github.com/m3rciful/restobot/bot/conv"
)

const menuCSV = `title,description,price,category,child_category,modifier
Филадельфия,Лосось,450,Роллы,Европейские,
Калифорния,Краб,390,Роллы,Европейские,
Эби,Креветка,410,Роллы,Темпура,
Наполеон,Слоёный,1200,Торты,,1 кг
Морс,Клюква,120,Напитки,,
`

func newViews(t *testing.T) Views {
	t.Helper()
	menu, err := catalog.Parse(strings.NewReader(menuCSV))
	require.NoError(t, err)
	return Views{
		Menu:      menu,
		Carts:     cart.New(39),
		Name:      "Аями",
		PolicyURL: "https://example.com/policy",
		VideoURL:  "https://t.me/example/1",
	}
}

func actions(r conv.Reply) []conv.Action {
	var out []conv.Action
	for _, row := range r.Keyboard {
		for _, b := range row {
			if b.URL == "" {
				out = append(out, b.Action)
			}
		}
	}
	return out
}

func TestWelcome(t *testing.T) {
	v := newViews(t)
	r := v.Welcome()
	assert.Contains(t, r.Text, `"Аями"`)
	assert.Contains(t, r.Text, v.PolicyURL)
	assert.True(t, r.NoPreview)
	assert.Equal(t, []conv.Action{
		conv.Act(conv.ActionFoodMenu),
		conv.Act(conv.ActionOperatorStart),
		conv.Act(conv.ActionReserveTable),
		conv.Act(conv.ActionShowVideo),
	}, actions(r))
}

func TestSections(t *testing.T) {
	v := newViews(t)
	r := v.Sections()
	require.GreaterOrEqual(t, len(r.Keyboard), 3)
	assert.Len(t, r.Keyboard[0], 2)
	assert.Equal(t, conv.Act(conv.ActionCategory, "0"), r.Keyboard[0][0].Action)
	assert.Equal(t, "Напитки", r.Keyboard[1][0].Text)
	assert.Equal(t, conv.ActionCartShow, r.Keyboard[2][0].Action.Kind)
}

func TestCategoryWithChildren(t *testing.T) {
	v := newViews(t)
	r, ok := v.Category("0")
	require.True(t, ok)
	assert.Equal(t, []conv.Action{
		conv.Act(conv.ActionSubcategory, "0:0"),
		conv.Act(conv.ActionSubcategory, "0:1"),
		conv.Act(conv.ActionFoodMenu),
	}, actions(r))

	r, ok = v.Subcategory("0:1")
	require.True(t, ok)
	assert.Contains(t, r.Text, "Роллы / Темпура")
	assert.Contains(t, r.Text, "Эби — 410₽")
	assert.Equal(t, conv.Act(conv.ActionAddDish, "dish_2"), r.Keyboard[0][0].Action)
}

func TestCategoryWithoutChildren(t *testing.T) {
	v := newViews(t)
	r, ok := v.Category("1")
	require.True(t, ok)
	assert.Contains(t, r.Text, "Наполеон (1 кг) — 1200₽")
	assert.Equal(t, conv.Act(conv.ActionAddDish, "dish_3"), r.Keyboard[0][0].Action)
}

func TestCategoryRejectsBadArgs(t *testing.T) {
	v := newViews(t)
	for _, arg := range []string{"", "x", "9", "-1"} {
		_, ok := v.Category(arg)
		assert.False(t, ok, arg)
	}
	for _, arg := range []string{"", "0", "0:5", "2:0", "a:b"} {
		_, ok := v.Subcategory(arg)
		assert.False(t, ok, arg)
	}
}

func TestCartView(t *testing.T) {
	v := newViews(t)
	r := v.Cart(1)
	assert.Equal(t, "Корзина пуста.", r.Text)
	assert.Equal(t, []conv.Action{conv.Act(conv.ActionFoodMenu)}, actions(r))

	d, _ := v.Menu.Dish("dish_0")
	v.Carts.Add(1, d)
	v.Carts.Add(1, d)
	r = v.Cart(1)
	assert.Contains(t, r.Text, "Филадельфия — 2 шт. × 450 руб.")
	assert.Contains(t, r.Text, "Сервисный сбор: 39 руб.")
	assert.Contains(t, r.Text, "Сумма заказа: 939 руб.")
	assert.Equal(t, []conv.Action{
		conv.Act(conv.ActionCartDec, "dish_0"),
		conv.Act(conv.ActionCartQty, "dish_0"),
		conv.Act(conv.ActionCartInc, "dish_0"),
		conv.Act(conv.ActionCartClear),
		conv.Act(conv.ActionCartCheckout),
		conv.Act(conv.ActionFoodMenu),
	}, actions(r))
}

func TestPolicy(t *testing.T) {
	v := newViews(t)
	r := v.Policy()
	assert.Equal(t, conv.HTML, r.Format)
	assert.Contains(t, r.Text, `<a href="https://example.com/policy">`)
	require.Len(t, r.Keyboard, 1)
	assert.Equal(t, v.PolicyURL, r.Keyboard[0][0].URL)
}
