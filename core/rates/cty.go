package rates

import (
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"
	"github.com/zclconf/go-cty/cty"
)

// CTY values are never passed through blindly: unknown and null values
// are rejected before conversion, and numbers keep their exact decimal text.

func checkKnown(val cty.Value) error {
	if !val.IsKnown() {
		return fmt.Errorf("value is not known")
	}
	if val.IsNull() {
		return fmt.Errorf("value is null")
	}
	return nil
}

// ctyToDecimal converts a cty number without a float64 round trip
func ctyToDecimal(val cty.Value) (decimal.Decimal, error) {
	if err := checkKnown(val); err != nil {
		return decimal.Zero, err
	}
	if val.Type() != cty.Number {
		return decimal.Zero, fmt.Errorf("expected number, got %s", val.Type().FriendlyName())
	}

	bf := val.AsBigFloat()
	if bf.IsInf() {
		return decimal.Zero, fmt.Errorf("infinite values are not allowed")
	}
	return decimal.NewFromString(bf.Text('f', -1))
}

// ctyToInt converts a cty number that must be a whole value
func ctyToInt(val cty.Value) (int, error) {
	d, err := ctyToDecimal(val)
	if err != nil {
		return 0, err
	}
	if !d.IsInteger() {
		return 0, fmt.Errorf("expected whole number, got %s", d)
	}
	i := d.BigInt()
	if !i.IsInt64() || i.Cmp(big.NewInt(1<<31-1)) > 0 {
		return 0, fmt.Errorf("number %s is out of range", d)
	}
	return int(i.Int64()), nil
}

func ctyToString(val cty.Value) (string, error) {
	if err := checkKnown(val); err != nil {
		return "", err
	}
	if val.Type() != cty.String {
		return "", fmt.Errorf("expected string, got %s", val.Type().FriendlyName())
	}
	return val.AsString(), nil
}

func ctyToBool(val cty.Value) (bool, error) {
	if err := checkKnown(val); err != nil {
		return false, err
	}
	if val.Type() != cty.Bool {
		return false, fmt.Errorf("expected bool, got %s", val.Type().FriendlyName())
	}
	return val.True(), nil
}
