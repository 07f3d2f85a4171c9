package models

import (
	"fmt"
	"time"
)

// ProductType identifies a purchasable product. The set is closed; every
// boundary (HTTP, webhook, internal trigger) must go through ParseProductType.
type ProductType string

const (
	ProductWorkbook    ProductType = "workbook"
	ProductBundle      ProductType = "bundle"
	ProductMasterclass ProductType = "masterclass"
)

// accessDurations maps each product to how long a purchase grants access.
var accessDurations = map[ProductType]time.Duration{
	ProductWorkbook:    365 * 24 * time.Hour,
	ProductBundle:      365 * 24 * time.Hour,
	ProductMasterclass: 180 * 24 * time.Hour,
}

// ParseProductType validates a raw product code.
func ParseProductType(s string) (ProductType, error) {
	pt := ProductType(s)
	if _, ok := accessDurations[pt]; !ok {
		return "", fmt.Errorf("unknown product type: %q", s)
	}
	return pt, nil
}

// AccessDuration returns how long an entitlement for this product lasts.
func (p ProductType) AccessDuration() time.Duration {
	return accessDurations[p]
}

// String returns the product code.
func (p ProductType) String() string { return string(p) }
