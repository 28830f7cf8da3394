package model

// Category 邮件分类标签，取值为固定的六个之一
type Category string

const (
	CategoryImportant  Category = "Important"
	CategoryPromotions Category = "Promotions"
	CategorySocial     Category = "Social"
	CategoryMarketing  Category = "Marketing"
	CategorySpam       Category = "Spam"
	CategoryGeneral    Category = "General"
)

// MaxBodyLength is the maximum number of characters kept from a message body.
const MaxBodyLength = 500

var categories = []Category{
	CategoryImportant,
	CategoryPromotions,
	CategorySocial,
	CategoryMarketing,
	CategorySpam,
	CategoryGeneral,
}

// Categories returns the six labels in display order.
func Categories() []Category {
	out := make([]Category, len(categories))
	copy(out, categories)
	return out
}

// ParseCategory matches s exactly (case-sensitive) against the six labels.
func ParseCategory(s string) (Category, bool) {
	c := Category(s)
	return c, c.Valid()
}

func (c Category) Valid() bool {
	switch c {
	case CategoryImportant, CategoryPromotions, CategorySocial, CategoryMarketing, CategorySpam, CategoryGeneral:
		return true
	}
	return false
}

func (c Category) String() string {
	return string(c)
}

// Email is a normalized provider message. Category is empty until the
// message has been classified.
type Email struct {
	ID           string   `json:"id"`
	Subject      string   `json:"subject"`
	From         string   `json:"from"`
	Snippet      string   `json:"snippet"`
	Date         string   `json:"date"`
	Body         string   `json:"body"`
	Category     Category `json:"category,omitempty"`
	IsClassified bool     `json:"isClassified"`
}
