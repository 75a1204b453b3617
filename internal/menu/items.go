package menu

import "github.com/shopspring/decimal"

var defaultItems = []Item{
	{
		ID:          "1",
		Name:        "Шаурма классическая",
		Description: "Курица, свежие овощи, соус чесночный, лаваш",
		Price:       decimal.NewFromInt(250),
		Category:    CategoryShawarma,
		Photo:       "assets/shawarma-classic.jpg",
	},
	{
		ID:          "2",
		Name:        "Шаурма острая",
		Description: "Курица, халапеньо, овощи, острый соус",
		Price:       decimal.NewFromInt(270),
		Category:    CategoryShawarma,
		Photo:       "assets/shawarma-spicy.jpg",
	},
	{
		ID:          "3",
		Name:        "Шаурма с говядиной",
		Description: "Говядина, маринованный лук, томаты, соус тахини",
		Price:       decimal.NewFromInt(320),
		Category:    CategoryShawarma,
		Photo:       "assets/shawarma-beef.jpg",
	},
	{
		ID:          "4",
		Name:        "Шаурма вегетарианская",
		Description: "Фалафель, хумус, овощи, лаваш",
		Price:       decimal.NewFromInt(230),
		Category:    CategoryShawarma,
		Photo:       "assets/shawarma-veggie.jpg",
	},
	{
		ID:          "5",
		Name:        "Кока-кола",
		Description: "0.5 л",
		Price:       decimal.NewFromInt(100),
		Category:    CategoryDrinks,
		Photo:       "assets/cola.jpg",
	},
	{
		ID:          "6",
		Name:        "Айран",
		Description: "Кисломолочный напиток, 0.3 л",
		Price:       decimal.NewFromInt(80),
		Category:    CategoryDrinks,
		Photo:       "assets/ayran.jpg",
	},
	{
		ID:          "7",
		Name:        "Чай черный",
		Description: "Горячий, 0.3 л",
		Price:       decimal.NewFromInt(60),
		Category:    CategoryDrinks,
	},
}
