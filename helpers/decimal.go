// Package helpers holds presentation helpers shared by the API handlers.
package helpers

import "github.com/shopspring/decimal"

// Round rounds v half away from zero to places decimal digits
func Round(v float64, places int32) float64 {
	r, _ := decimal.NewFromFloat(v).Round(places).Float64()
	return r
}

// RoundPtr rounds a nullable value; nil stays nil
func RoundPtr(v *float64, places int32) *float64 {
	if v == nil {
		return nil
	}
	r := Round(*v, places)
	return &r
}
