package categories

// DefaultCategories is the fixed seed set of system categories, already in
// canonical (lower-case) form. Seeded once at bootstrap by cmd/migrate.
var DefaultCategories = []string{
	"food & groceries",
	"dining out",
	"transport",
	"shopping",
	"rent / mortgage",
	"utilities",
	"health",
	"entertainment",
	"subscriptions",
	"savings",
	"income",
	"miscellaneous",
}
