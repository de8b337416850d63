// Package schema holds the static registry of procurement_data fields and
// the MongoDB operators the pipeline accepts.
package schema

import (
	"strings"
	"unicode"
)

// FieldType is the declared primitive type of a collection field.
type FieldType int

const (
	// TypeUnknown - field is not in the registry.
	TypeUnknown FieldType = iota
	// TypeString - plain string value.
	TypeString
	// TypeNumber - integer or float value.
	TypeNumber
	// TypeDate - datetime value.
	TypeDate
	// TypeBool - boolean value.
	TypeBool
	// TypeStringArray - array of string values.
	TypeStringArray
)

// String returns the string representation of the type.
func (t FieldType) String() string {
	switch t {
	case TypeString:
		return "string"
	case TypeNumber:
		return "number"
	case TypeDate:
		return "date"
	case TypeBool:
		return "bool"
	case TypeStringArray:
		return "string[]"
	default:
		return "unknown"
	}
}

// Field describes one field of the procurement_data collection.
type Field struct {
	Name          string
	Type          FieldType
	AllowedValues []string // optional enumeration, empty means unconstrained
}

// fields is the schema of the single procurement_data collection, matching
// the snake_case document shape produced by the loader.
var fields = []Field{
	// Date fields
	{Name: "creation_date", Type: TypeDate},
	{Name: "purchase_date", Type: TypeDate},
	{Name: "fiscal_year", Type: TypeString, AllowedValues: []string{"2012-2013", "2013-2014", "2014-2015"}},

	// Reference numbers
	{Name: "lpa_number", Type: TypeString},
	{Name: "purchase_order_number", Type: TypeString},
	{Name: "requisition_number", Type: TypeString},

	// Acquisition info
	{Name: "acquisition_type", Type: TypeString, AllowedValues: []string{
		"NON-IT Goods", "NON-IT Services", "IT Goods", "IT Services", "IT Telecommunications",
	}},
	{Name: "sub_acquisition_type", Type: TypeString},
	{Name: "acquisition_method", Type: TypeString},
	{Name: "sub_acquisition_method", Type: TypeString},

	// Organization info
	{Name: "department_name", Type: TypeString},
	{Name: "location", Type: TypeString},

	// Supplier info
	{Name: "supplier_code", Type: TypeNumber},
	{Name: "supplier_name", Type: TypeString},
	{Name: "supplier_qualifications", Type: TypeString},
	{Name: "supplier_zip_code", Type: TypeString},
	{Name: "calcard", Type: TypeString},

	// Item details
	{Name: "item_name", Type: TypeString},
	{Name: "item_description", Type: TypeString},
	{Name: "quantity", Type: TypeNumber},
	{Name: "unit_price", Type: TypeNumber},
	{Name: "total_price", Type: TypeNumber},

	// Classification
	{Name: "classification_codes", Type: TypeStringArray},
	{Name: "normalized_unspsc", Type: TypeString},
	{Name: "class", Type: TypeString},
	{Name: "class_title", Type: TypeString},
	{Name: "commodity_title", Type: TypeString},
	{Name: "family", Type: TypeString},
	{Name: "family_title", Type: TypeString},
	{Name: "segment", Type: TypeString},
	{Name: "segment_title", Type: TypeString},
}

// aliases maps camelCase spellings the models tend to produce onto the
// canonical snake_case field names.
var aliases = map[string]string{
	"creationDate":  "creation_date",
	"purchaseDate":  "purchase_date",
	"fiscalYear":    "fiscal_year",
	"lpaNumber":     "lpa_number",
	"purchaseOrderNumber": "purchase_order_number",
	"requisitionNumber":   "requisition_number",
	"acquisitionType":     "acquisition_type",
	"subAcquisitionType":  "sub_acquisition_type",
	"acquisitionMethod":   "acquisition_method",
	"subAcquisitionMethod": "sub_acquisition_method",
	"departmentName":         "department_name",
	"supplierCode":           "supplier_code",
	"supplierName":           "supplier_name",
	"supplierQualifications": "supplier_qualifications",
	"supplierZipCode":        "supplier_zip_code",
	"itemName":               "item_name",
	"itemDescription":        "item_description",
	"unitPrice":              "unit_price",
	"totalPrice":             "total_price",
	"classificationCodes":    "classification_codes",
	"normalizedUnspsc":       "normalized_unspsc",
	"commodityTitle":         "commodity_title",
	"classTitle":             "class_title",
	"familyTitle":            "family_title",
	"segmentTitle":           "segment_title",
}

// operators is the whitelist of MongoDB operators the validator recurses
// into. Anything $-prefixed outside this set is rejected.
var operators = map[string]bool{
	// Comparison
	"$eq": true, "$ne": true, "$gt": true, "$gte": true, "$lt": true, "$lte": true,
	// Membership
	"$in": true, "$nin": true,
	// Boolean combinators
	"$and": true, "$or": true, "$nor": true, "$not": true,
	// Element
	"$exists": true, "$type": true,
	// Evaluation
	"$regex": true, "$options": true, "$expr": true,
	// Pipeline stages
	"$match": true, "$group": true, "$sort": true, "$limit": true, "$skip": true,
	"$project": true, "$count": true, "$unwind": true, "$lookup": true, "$addFields": true,
	// Accumulators and expression operators
	"$sum": true, "$avg": true, "$min": true, "$max": true,
	"$first": true, "$last": true, "$push": true, "$addToSet": true,
	"$multiply": true, "$divide": true, "$subtract": true, "$add": true,
	"$cond": true, "$year": true, "$month": true, "$dateToString": true,
	"$concat": true, "$toLower": true, "$toUpper": true, "$size": true,
}

// pipelineStages are the stage operators that may appear as the sole key of
// a pipeline stage document.
var pipelineStages = map[string]bool{
	"$match": true, "$group": true, "$sort": true, "$limit": true, "$skip": true,
	"$project": true, "$count": true, "$unwind": true, "$lookup": true, "$addFields": true,
}

// Registry resolves field names, aliases and operators against the
// procurement schema. Pure lookup, no mutation.
type Registry struct {
	byName  map[string]Field
	aliases map[string]string
}

// New builds a registry over the procurement_data schema.
func New() *Registry {
	byName := make(map[string]Field, len(fields))
	for _, f := range fields {
		byName[strings.ToLower(f.Name)] = f
	}
	lowerAliases := make(map[string]string, len(aliases))
	for from, to := range aliases {
		lowerAliases[strings.ToLower(from)] = to
	}
	return &Registry{byName: byName, aliases: lowerAliases}
}

// Lookup returns the field declared under name, or TypeUnknown when the name
// is not in the schema. Matching is case-insensitive.
func (r *Registry) Lookup(name string) (Field, bool) {
	f, ok := r.byName[strings.ToLower(name)]
	return f, ok
}

// Resolve maps an arbitrary spelling onto the canonical field name.
// Resolution order: exact name, known alias, camelCase converted to
// snake_case. The boolean reports whether the resolved name is a schema
// field; the returned name is always the best candidate, so callers can
// report what was rejected.
func (r *Registry) Resolve(name string) (Field, string, bool) {
	if f, ok := r.Lookup(name); ok {
		return f, f.Name, true
	}
	if canonical, ok := r.aliases[strings.ToLower(name)]; ok {
		f := r.byName[canonical]
		return f, f.Name, true
	}
	converted := ToSnakeCase(name)
	if f, ok := r.Lookup(converted); ok {
		return f, f.Name, true
	}
	return Field{}, converted, false
}

// IsOperator reports whether key is a whitelisted MongoDB operator.
func (r *Registry) IsOperator(key string) bool {
	return operators[key]
}

// IsPipelineStage reports whether key is an aggregation pipeline stage.
func (r *Registry) IsPipelineStage(key string) bool {
	return pipelineStages[key]
}

// FieldNames returns the canonical field names in declaration order.
func (r *Registry) FieldNames() []string {
	names := make([]string, 0, len(fields))
	for _, f := range fields {
		names = append(names, f.Name)
	}
	return names
}

// ToSnakeCase converts a camelCase identifier to snake_case. Names already
// in snake_case pass through unchanged.
func ToSnakeCase(name string) string {
	var b strings.Builder
	b.Grow(len(name) + 4)
	runes := []rune(name)
	for i, c := range runes {
		if unicode.IsUpper(c) {
			if i > 0 && (unicode.IsLower(runes[i-1]) || unicode.IsDigit(runes[i-1]) ||
				(i+1 < len(runes) && unicode.IsLower(runes[i+1]))) {
				b.WriteByte('_')
			}
			b.WriteRune(unicode.ToLower(c))
			continue
		}
		b.WriteRune(c)
	}
	return b.String()
}
