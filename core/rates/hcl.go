package rates

import (
	"fmt"
	"os"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/shopspring/decimal"

	"sasu-tax/internal/errors"
)

var rateFileSchema = &hcl.BodySchema{
	Attributes: []hcl.AttributeSchema{
		{Name: "year", Required: true},
		{Name: "currency"},
	},
	Blocks: []hcl.BlockHeaderSchema{
		{Type: "salary_charges"},
		{Type: "dividend_charges"},
		{Type: "corporate_tax"},
		{Type: "income_tax"},
		{Type: "vat_rate", LabelNames: []string{"name"}},
		{Type: "constants"},
	},
}

var salaryChargesSchema = &hcl.BodySchema{
	Attributes: []hcl.AttributeSchema{
		{Name: "employer", Required: true},
		{Name: "employee", Required: true},
	},
}

var dividendChargesSchema = &hcl.BodySchema{
	Attributes: []hcl.AttributeSchema{
		{Name: "social", Required: true},
		{Name: "flat_tax", Required: true},
	},
}

var scaleSchema = &hcl.BodySchema{
	Blocks: []hcl.BlockHeaderSchema{
		{Type: "bracket"},
	},
}

var bracketSchema = &hcl.BodySchema{
	Attributes: []hcl.AttributeSchema{
		{Name: "upper"},
		{Name: "rate", Required: true},
	},
}

var vatRateSchema = &hcl.BodySchema{
	Attributes: []hcl.AttributeSchema{
		{Name: "rate", Required: true},
		{Name: "default"},
	},
}

var constantsSchema = &hcl.BodySchema{
	Attributes: []hcl.AttributeSchema{
		{Name: "smic_hourly", Required: true},
		{Name: "pass_annual", Required: true},
		{Name: "professional_deduction"},
	},
}

// LoadFile reads and parses a rate file from disk
func LoadFile(path string) (*Table, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Config(fmt.Sprintf("failed to read rate file %s", path), err)
	}
	return Parse(src, path)
}

// Parse decodes an HCL rate file into a sealed Table.
// A bracket without an upper bound is the unbounded top bracket.
func Parse(src []byte, filename string) (*Table, error) {
	// A fresh parser per call: hclparse caches files by name.
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, errors.Config(fmt.Sprintf("failed to parse rate file %s", filename), diags)
	}

	content, diags := file.Body.Content(rateFileSchema)
	if diags.HasErrors() {
		return nil, errors.Config(fmt.Sprintf("invalid rate file %s", filename), diags)
	}

	d := &rateFileDecoder{missing: file.Body.MissingItemRange()}

	year := d.intValue(content.Attributes["year"])
	b := NewBuilder(year)

	if attr, ok := content.Attributes["currency"]; ok {
		b.WithCurrency(d.stringValue(attr))
	}

	if block := d.single(content.Blocks, "salary_charges"); block != nil {
		if attrs := d.attributes(block.Body, salaryChargesSchema); attrs != nil {
			b.SalaryCharges(d.decimalValue(attrs["employer"]), d.decimalValue(attrs["employee"]))
		}
	}

	if block := d.single(content.Blocks, "dividend_charges"); block != nil {
		if attrs := d.attributes(block.Body, dividendChargesSchema); attrs != nil {
			b.DividendCharges(d.decimalValue(attrs["social"]), d.decimalValue(attrs["flat_tax"]))
		}
	}

	if block := d.single(content.Blocks, "corporate_tax"); block != nil {
		b.CorporateBrackets(d.brackets(block.Body)...)
	}

	if block := d.single(content.Blocks, "income_tax"); block != nil {
		b.IncomeBrackets(d.brackets(block.Body)...)
	}

	for _, block := range content.Blocks.OfType("vat_rate") {
		attrs := d.attributes(block.Body, vatRateSchema)
		if attrs == nil {
			continue
		}
		isDefault := false
		if attr, ok := attrs["default"]; ok {
			isDefault = d.boolValue(attr)
		}
		b.VATPreset(block.Labels[0], d.decimalValue(attrs["rate"]), isDefault)
	}

	if block := d.single(content.Blocks, "constants"); block != nil {
		if attrs := d.attributes(block.Body, constantsSchema); attrs != nil {
			b.SMIC(d.decimalValue(attrs["smic_hourly"]))
			b.PASS(d.decimalValue(attrs["pass_annual"]))
			if attr, ok := attrs["professional_deduction"]; ok {
				b.ProfessionalDeduction(d.decimalValue(attr))
			}
		}
	}

	if d.diags.HasErrors() {
		return nil, errors.Config(fmt.Sprintf("invalid rate file %s", filename), d.diags)
	}

	table, err := b.Build()
	if err != nil {
		return nil, errors.Config(fmt.Sprintf("invalid rate file %s", filename), err)
	}
	return table, nil
}

// rateFileDecoder accumulates diagnostics so a file reports every problem at once
type rateFileDecoder struct {
	diags   hcl.Diagnostics
	missing hcl.Range
}

func (d *rateFileDecoder) fail(subject hcl.Range, summary, detail string) {
	d.diags = append(d.diags, &hcl.Diagnostic{
		Severity: hcl.DiagError,
		Summary:  summary,
		Detail:   detail,
		Subject:  subject.Ptr(),
	})
}

func (d *rateFileDecoder) single(blocks hcl.Blocks, blockType string) *hcl.Block {
	found := blocks.OfType(blockType)
	switch len(found) {
	case 1:
		return found[0]
	case 0:
		d.fail(d.missing, "Missing block", fmt.Sprintf("a %q block is required", blockType))
	default:
		d.fail(found[1].DefRange, "Duplicate block", fmt.Sprintf("only one %q block is allowed", blockType))
	}
	return nil
}

func (d *rateFileDecoder) attributes(body hcl.Body, schema *hcl.BodySchema) map[string]*hcl.Attribute {
	content, diags := body.Content(schema)
	d.diags = append(d.diags, diags...)
	if diags.HasErrors() {
		return nil
	}
	return content.Attributes
}

func (d *rateFileDecoder) brackets(body hcl.Body) []Bracket {
	content, diags := body.Content(scaleSchema)
	d.diags = append(d.diags, diags...)
	if diags.HasErrors() {
		return nil
	}

	var out []Bracket
	for _, block := range content.Blocks.OfType("bracket") {
		attrs := d.attributes(block.Body, bracketSchema)
		if attrs == nil {
			continue
		}
		rate := d.decimalValue(attrs["rate"])

		upperAttr, ok := attrs["upper"]
		if !ok {
			out = append(out, Above(rate))
			continue
		}
		val, diags := upperAttr.Expr.Value(nil)
		d.diags = append(d.diags, diags...)
		if diags.HasErrors() {
			continue
		}
		if val.IsKnown() && val.IsNull() {
			out = append(out, Above(rate))
			continue
		}
		upper, err := ctyToDecimal(val)
		if err != nil {
			d.fail(upperAttr.Expr.Range(), "Invalid bracket bound", err.Error())
			continue
		}
		out = append(out, UpTo(upper, rate))
	}
	return out
}

func (d *rateFileDecoder) decimalValue(attr *hcl.Attribute) decimal.Decimal {
	val, diags := attr.Expr.Value(nil)
	d.diags = append(d.diags, diags...)
	if diags.HasErrors() {
		return decimal.Zero
	}
	out, err := ctyToDecimal(val)
	if err != nil {
		d.fail(attr.Expr.Range(), "Invalid number", fmt.Sprintf("%s: %s", attr.Name, err))
	}
	return out
}

func (d *rateFileDecoder) intValue(attr *hcl.Attribute) int {
	val, diags := attr.Expr.Value(nil)
	d.diags = append(d.diags, diags...)
	if diags.HasErrors() {
		return 0
	}
	out, err := ctyToInt(val)
	if err != nil {
		d.fail(attr.Expr.Range(), "Invalid number", fmt.Sprintf("%s: %s", attr.Name, err))
	}
	return out
}

func (d *rateFileDecoder) stringValue(attr *hcl.Attribute) string {
	val, diags := attr.Expr.Value(nil)
	d.diags = append(d.diags, diags...)
	if diags.HasErrors() {
		return ""
	}
	out, err := ctyToString(val)
	if err != nil {
		d.fail(attr.Expr.Range(), "Invalid string", fmt.Sprintf("%s: %s", attr.Name, err))
	}
	return out
}

func (d *rateFileDecoder) boolValue(attr *hcl.Attribute) bool {
	val, diags := attr.Expr.Value(nil)
	d.diags = append(d.diags, diags...)
	if diags.HasErrors() {
		return false
	}
	out, err := ctyToBool(val)
	if err != nil {
		d.fail(attr.Expr.Range(), "Invalid bool", fmt.Sprintf("%s: %s", attr.Name, err))
	}
	return out
}
