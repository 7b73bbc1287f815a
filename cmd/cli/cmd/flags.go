package cmd

import (
	"github.com/shopspring/decimal"
)

// decimalValue is a pflag.Value holding an amount
type decimalValue struct {
	value *decimal.Decimal
	set   bool
}

func newDecimalValue(p *decimal.Decimal) *decimalValue {
	return &decimalValue{value: p}
}

func (v *decimalValue) String() string {
	if v.value == nil {
		return "0"
	}
	return v.value.String()
}

func (v *decimalValue) Set(s string) error {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return err
	}
	*v.value = d
	v.set = true
	return nil
}

func (v *decimalValue) Type() string {
	return "decimal"
}

// ptr returns the value when the flag was given, nil otherwise
func (v *decimalValue) ptr() *decimal.Decimal {
	if !v.set {
		return nil
	}
	d := *v.value
	return &d
}
