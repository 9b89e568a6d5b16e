package model

import "strings"

// Category is the cost ledger a document is committed into
type Category string

const (
	CategoryMaterials  Category = "materials"
	CategorySubtrades  Category = "subtrades"
	CategoryOtherCosts Category = "other_costs"
	CategoryTipFees    Category = "tip_fees"
)

// Categories lists the closed set of cost categories
var Categories = []Category{CategoryMaterials, CategorySubtrades, CategoryOtherCosts, CategoryTipFees}

var categorySynonyms = map[string]Category{
	"materials":   CategoryMaterials,
	"material":    CategoryMaterials,
	"supplies":    CategoryMaterials,
	"hardware":    CategoryMaterials,
	"subtrades":   CategorySubtrades,
	"subtrade":    CategorySubtrades,
	"sub-trade":   CategorySubtrades,
	"sub-trades":  CategorySubtrades,
	"sub_trades":  CategorySubtrades,
	"sub trades":  CategorySubtrades,
	"contractor":  CategorySubtrades,
	"tip_fees":    CategoryTipFees,
	"tip fees":    CategoryTipFees,
	"tip fee":     CategoryTipFees,
	"tip":         CategoryTipFees,
	"dump":        CategoryTipFees,
	"cartage":     CategoryTipFees,
	"other_costs": CategoryOtherCosts,
	"other costs": CategoryOtherCosts,
	"other":       CategoryOtherCosts,
}

// ParseCategory maps a known category name or synonym onto the closed set.
func ParseCategory(s string) (Category, bool) {
	c, ok := categorySynonyms[strings.ToLower(strings.TrimSpace(s))]
	return c, ok
}

// NormalizeCategory is ParseCategory with an other_costs fallback
func NormalizeCategory(s string) Category {
	if c, ok := ParseCategory(s); ok {
		return c
	}
	return CategoryOtherCosts
}

// Valid reports whether c is one of the four ledger categories
func (c Category) Valid() bool {
	switch c {
	case CategoryMaterials, CategorySubtrades, CategoryOtherCosts, CategoryTipFees:
		return true
	}
	return false
}
