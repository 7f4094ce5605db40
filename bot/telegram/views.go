package telegram

import (
	"fmt"
	"html"
	"strconv"
	"strings"

	"github.com/m3rciful/restobot/bot/cart"
	"github.com/m3rciful/restobot/bot/catalog"
	"github.com/m3rciful/restobot/bot/conv"
)

const (
	textUseMenu     = "Пожалуйста, воспользуйтесь меню ниже."
	textUnavailable = "Действие недоступно"
	textPickSection = "Выберите раздел меню:"
	textEmptyCart   = "Корзина пуста."
)

// Views renders the menu, cart and static screens.
type Views struct {
	Menu      *catalog.Catalog
	Carts     *cart.Carts
	Name      string
	PolicyURL string
	VideoURL  string
}

// Welcome is the /start greeting.
func (v Views) Welcome() conv.Reply {
	text := strings.Join([]string{
		fmt.Sprintf("👋 Привет! Я — бот сети \"%s\". Чем могу помочь? 😊", v.Name),
		"",
		"👉 Перед первым заказом советуем короткое видео — так быстрее разобраться с корзиной и оформлением.",
		"🧾 Используя бота, ты соглашаешься с политикой обработки данных:",
		v.PolicyURL,
	}, "\n")
	return conv.Reply{Text: text, NoPreview: true, Keyboard: v.mainKeyboard()}
}

// UseMenu answers text nobody claimed.
func (v Views) UseMenu() conv.Reply {
	return v.WithMenu(textUseMenu)
}

// WithMenu attaches the main menu buttons to text.
func (v Views) WithMenu(text string) conv.Reply {
	return conv.Text(text, v.mainKeyboard())
}

func (v Views) mainKeyboard() conv.Keyboard {
	return conv.Column(
		conv.Btn("🍣 Хочу заказать еду", conv.ActionFoodMenu),
		conv.Btn("💬 Связаться с оператором", conv.ActionOperatorStart),
		conv.Btn("📅 Забронировать стол", conv.ActionReserveTable),
		conv.Btn("🎬 Смотреть инструкцию", conv.ActionShowVideo),
	)
}

// Sections lists the menu categories two per row.
func (v Views) Sections() conv.Reply {
	cats := v.Menu.Categories()
	buttons := make([]conv.Button, 0, len(cats))
	for i, c := range cats {
		buttons = append(buttons, conv.Btn(c, conv.ActionCategory, strconv.Itoa(i)))
	}
	kb := conv.Grid(2, buttons...)
	kb = append(kb,
		[]conv.Button{conv.Btn("🛒 Корзина", conv.ActionCartShow)},
		[]conv.Button{conv.Btn("💬 Связаться с оператором", conv.ActionOperatorStart)},
	)
	return conv.Text(textPickSection, kb)
}

// Category shows the subcategories of a category, or its dishes when it has none.
func (v Views) Category(arg string) (conv.Reply, bool) {
	i, err := strconv.Atoi(arg)
	if err != nil {
		return conv.Reply{}, false
	}
	name, ok := v.Menu.Category(i)
	if !ok {
		return conv.Reply{}, false
	}
	children := v.Menu.Children(name)
	if len(children) == 0 {
		return v.dishes(name, "", v.Menu.InCategory(name, "")), true
	}
	buttons := make([]conv.Button, 0, len(children)+1)
	for j, child := range children {
		buttons = append(buttons, conv.Btn(child, conv.ActionSubcategory, fmt.Sprintf("%d:%d", i, j)))
	}
	kb := conv.Grid(2, buttons...)
	kb = append(kb, []conv.Button{conv.Btn("← Назад", conv.ActionFoodMenu)})
	return conv.Text(name+":", kb), true
}

// Subcategory shows the dishes of "<category>:<child>".
func (v Views) Subcategory(arg string) (conv.Reply, bool) {
	ci, cj, ok := strings.Cut(arg, ":")
	if !ok {
		return conv.Reply{}, false
	}
	i, errI := strconv.Atoi(ci)
	j, errJ := strconv.Atoi(cj)
	if errI != nil || errJ != nil {
		return conv.Reply{}, false
	}
	name, ok := v.Menu.Category(i)
	if !ok {
		return conv.Reply{}, false
	}
	children := v.Menu.Children(name)
	if j < 0 || j >= len(children) {
		return conv.Reply{}, false
	}
	return v.dishes(name, children[j], v.Menu.InCategory(name, children[j])), true
}

func (v Views) dishes(category, child string, dishes []catalog.Dish) conv.Reply {
	title := category
	if child != "" {
		title += " / " + child
	}
	var b strings.Builder
	b.WriteString(title + "\n")
	buttons := make([]conv.Button, 0, len(dishes))
	for _, d := range dishes {
		fmt.Fprintf(&b, "\n• %s — %d₽", d.DisplayTitle(), d.Price)
		if d.Description != "" {
			fmt.Fprintf(&b, "\n  %s", d.Description)
		}
		buttons = append(buttons, conv.Btn(fmt.Sprintf("➕ %s — %d₽", d.DisplayTitle(), d.Price), conv.ActionAddDish, d.ID))
	}
	kb := conv.Column(buttons...)
	kb = append(kb, []conv.Button{
		conv.Btn("← Назад", conv.ActionFoodMenu),
		conv.Btn("🛒 Корзина", conv.ActionCartShow),
	})
	return conv.Text(b.String(), kb)
}

// Added confirms a dish added to the cart.
func (v Views) Added(d catalog.Dish, qty int) conv.Reply {
	return conv.Text(fmt.Sprintf("✅ %s добавлено в корзину (%d шт.)", d.DisplayTitle(), qty), conv.Keyboard{{
		conv.Btn("← К меню", conv.ActionFoodMenu),
		conv.Btn("🛒 Корзина", conv.ActionCartShow),
	}})
}

// Cart renders the cart with quantity controls.
func (v Views) Cart(userID int64) conv.Reply {
	lines := v.Carts.Lines(userID)
	back := []conv.Button{conv.Btn("← Вернуться к меню", conv.ActionFoodMenu)}
	if len(lines) == 0 {
		return conv.Text(textEmptyCart, conv.Keyboard{back})
	}

	var b strings.Builder
	b.WriteString("В вашей корзине:\n\n")
	kb := make(conv.Keyboard, 0, len(lines)+3)
	for _, l := range lines {
		fmt.Fprintf(&b, "%s — %d шт. × %d руб.\n", l.Dish.DisplayTitle(), l.Quantity, l.Dish.Price)
		kb = append(kb, []conv.Button{
			conv.Btn("-", conv.ActionCartDec, l.Dish.ID),
			conv.Btn(fmt.Sprintf("Кол-во: %d", l.Quantity), conv.ActionCartQty, l.Dish.ID),
			conv.Btn("+", conv.ActionCartInc, l.Dish.ID),
		})
	}
	fmt.Fprintf(&b, "\nСервисный сбор: %d руб.\n", v.Carts.Fee())
	fmt.Fprintf(&b, "Сумма заказа: %d руб.\n", v.Carts.Total(userID))
	b.WriteString("\nДождитесь подтверждения от оператора перед оплатой.")

	kb = append(kb,
		[]conv.Button{conv.Btn("Очистить корзину", conv.ActionCartClear)},
		[]conv.Button{conv.Btn("Перейти к оформлению", conv.ActionCartCheckout)},
		back,
	)
	return conv.Text(b.String(), kb)
}

// Video points to the instruction channel.
func (v Views) Video() conv.Reply {
	return conv.Text("👀 Вот короткое видео. Если останутся вопросы — жми на оператора!\n" + v.VideoURL)
}

// Policy is the personal data policy notice.
func (v Views) Policy() conv.Reply {
	u := html.EscapeString(v.PolicyURL)
	return conv.Reply{
		Text: "<b>Политика обработки персональных данных</b>\n\n" +
			"Мы бережно храним ваши контакты и используем их только для оформления заказов " +
			"(ничего лишнего и точно не передаем третьим лицам).\n\n" +
			`<a href="` + u + `">` + u + `</a>`,
		Format:   conv.HTML,
		Keyboard: conv.Keyboard{{{Text: "Открыть политику", URL: v.PolicyURL}}},
	}
}
