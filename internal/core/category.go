package core

// Category identifies an expense category. Unknown identifiers are valid in
// storage and display as Other.
type Category int

const (
	// AllCategories is the "no filter" sentinel. It is never a stored category.
	AllCategories Category = 0

	FoodDining     Category = 1
	Transportation Category = 2
	Entertainment  Category = 3
	Bills          Category = 4
	Shopping       Category = 5
	Healthcare     Category = 6
	Education      Category = 7
	Other          Category = 8
)

// CategoryInfo is the display metadata for a category.
type CategoryInfo struct {
	ID   Category `json:"id"`
	Name string   `json:"name"`
	Icon string   `json:"icon"`
}

var categories = []CategoryInfo{
	{FoodDining, "Food & Dining", "🍔"},
	{Transportation, "Transportation", "🚗"},
	{Entertainment, "Entertainment", "🎬"},
	{Bills, "Bills & Utilities", "💡"},
	{Shopping, "Shopping", "🛍️"},
	{Healthcare, "Healthcare", "🏥"},
	{Education, "Education", "📚"},
	{Other, "Other", "📦"},
}

// Categories returns the known set in id order.
func Categories() []CategoryInfo {
	return append([]CategoryInfo(nil), categories...)
}

// Known reports whether c is in the known set.
func (c Category) Known() bool {
	return c >= FoodDining && c <= Other
}

// Info returns display metadata, falling back to Other for unknown ids.
func (c Category) Info() CategoryInfo {
	if !c.Known() {
		return categories[Other-1]
	}
	return categories[c-1]
}

func (c Category) Name() string {
	return c.Info().Name
}

func (c Category) Icon() string {
	return c.Info().Icon
}

// Label is the icon followed by the name, e.g. "🍔 Food & Dining".
func (c Category) Label() string {
	info := c.Info()
	return info.Icon + " " + info.Name
}
