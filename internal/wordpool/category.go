package wordpool

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownCategory is returned by ParseCategory for unrecognised IDs
var ErrUnknownCategory = errors.New("unknown category")

// Category identifies an exam word list
type Category string

const (
	Gaokao             Category = "gaokao"
	HenanZhuanshengben Category = "henan-zsb"
	CET4               Category = "cet4"
	CET6               Category = "cet6"
)

var displayNames = map[Category]string{
	Gaokao:             "高考英语",
	HenanZhuanshengben: "河南专升本英语",
	CET4:               "大学英语四级",
	CET6:               "大学英语六级",
}

// Categories returns all known categories in menu order
func Categories() []Category {
	return []Category{HenanZhuanshengben, Gaokao, CET4, CET6}
}

// DisplayName returns the exam name used in prompts and menus
func (c Category) DisplayName() string {
	if name, ok := displayNames[c]; ok {
		return name
	}
	return string(c)
}

func (c Category) String() string {
	return string(c)
}

// ParseCategory resolves a category from its ID or display name
func ParseCategory(s string) (Category, error) {
	s = strings.TrimSpace(s)
	for _, c := range Categories() {
		if strings.EqualFold(s, string(c)) || s == c.DisplayName() {
			return c, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownCategory, s)
}
