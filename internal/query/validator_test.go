package query

import (
	"testing"

	"procurement-query-pipeline/internal/schema"
)

func newValidator() *Validator {
	return NewValidator(schema.New())
}

func TestValidate_KnownFieldsPass(t *testing.T) {
	v := newValidator()

	doc := &Document{Filter: map[string]any{
		"department_name": "Water Resources",
		"fiscal_year":     "2014-2015",
	}}

	res := v.Validate(doc)

	if !res.Pass {
		t.Errorf("expected pass, got rejections: %+v", res.Rejections)
	}
	if len(res.Rejections) != 0 {
		t.Errorf("expected zero rejections, got %d", len(res.Rejections))
	}
	if res.Normalized.Filter["department_name"] != "Water Resources" {
		t.Error("expected department_name to survive normalization")
	}
}

func TestValidate_UnknownFieldRejected(t *testing.T) {
	v := newValidator()

	doc := &Document{Filter: map[string]any{"bogus_field": float64(5)}}

	res := v.Validate(doc)

	if res.Pass {
		t.Error("expected fail for unknown field")
	}
	if len(res.Rejections) != 1 {
		t.Fatalf("expected one rejection, got %d", len(res.Rejections))
	}
	if res.Rejections[0].Name != "bogus_field" {
		t.Errorf("expected rejection to name bogus_field, got %s", res.Rejections[0].Name)
	}
}

func TestValidate_AliasNormalized(t *testing.T) {
	v := newValidator()

	doc := &Document{Filter: map[string]any{"departmentName": "Corrections and Rehabilitation"}}

	res := v.Validate(doc)

	if !res.Pass {
		t.Fatalf("expected pass, got rejections: %+v", res.Rejections)
	}
	if len(res.Substitutions) != 1 {
		t.Fatalf("expected one substitution, got %d", len(res.Substitutions))
	}
	sub := res.Substitutions[0]
	if sub.From != "departmentName" || sub.To != "department_name" {
		t.Errorf("unexpected substitution %+v", sub)
	}
	if _, ok := res.Normalized.Filter["department_name"]; !ok {
		t.Error("expected normalized filter to use department_name")
	}
	if _, ok := res.Normalized.Filter["departmentName"]; ok {
		t.Error("expected camelCase key to be gone after normalization")
	}
}

func TestValidate_NumericStringCoerced(t *testing.T) {
	v := newValidator()

	doc := &Document{Filter: map[string]any{
		"total_price": map[string]any{"$gt": "10000"},
	}}

	res := v.Validate(doc)

	if !res.Pass {
		t.Fatalf("expected pass, got rejections: %+v", res.Rejections)
	}
	cond := res.Normalized.Filter["total_price"].(map[string]any)
	if got, ok := cond["$gt"].(float64); !ok || got != 10000 {
		t.Errorf("expected coerced float64 10000, got %v", cond["$gt"])
	}
}

func TestValidate_TypeMismatchRejected(t *testing.T) {
	v := newValidator()

	tests := []struct {
		name   string
		filter map[string]any
	}{
		{"number field gets bool", map[string]any{"total_price": true}},
		{"number field gets word", map[string]any{"quantity": "lots"}},
		{"string field gets number", map[string]any{"supplier_name": float64(7)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := v.Validate(&Document{Filter: tt.filter})
			if res.Pass {
				t.Error("expected type mismatch to fail validation")
			}
		})
	}
}

func TestValidate_UnknownOperatorRejected(t *testing.T) {
	v := newValidator()

	doc := &Document{Filter: map[string]any{
		"total_price": map[string]any{"$where": "this.total_price > 0"},
	}}

	res := v.Validate(doc)

	if res.Pass {
		t.Error("expected $where to be rejected")
	}
	if len(res.Rejections) != 1 || res.Rejections[0].Name != "$where" {
		t.Errorf("expected one rejection naming $where, got %+v", res.Rejections)
	}
}

func TestValidate_BooleanCombinatorsRecurse(t *testing.T) {
	v := newValidator()

	doc := &Document{Filter: map[string]any{
		"$or": []any{
			map[string]any{"fiscalYear": "2013-2014"},
			map[string]any{"bogus": "x"},
		},
	}}

	res := v.Validate(doc)

	if res.Pass {
		t.Error("expected nested unknown field to fail validation")
	}
	if len(res.Rejections) != 1 || res.Rejections[0].Name != "bogus" {
		t.Errorf("expected rejection naming bogus, got %+v", res.Rejections)
	}
	// The known branch still normalizes.
	if len(res.Substitutions) != 1 || res.Substitutions[0].To != "fiscal_year" {
		t.Errorf("expected fiscalYear substitution, got %+v", res.Substitutions)
	}
}

func TestValidate_ExprOperandsAreExpressions(t *testing.T) {
	v := newValidator()

	doc := &Document{
		Aggregate: true,
		Pipeline: []map[string]any{
			{"$match": map[string]any{
				"$expr": map[string]any{
					"$eq": []any{
						map[string]any{"$dateToString": map[string]any{
							"format": "%Y",
							"date":   "$creation_date",
						}},
						"2014",
					},
				},
			}},
		},
	}

	res := v.Validate(doc)

	if !res.Pass {
		t.Fatalf("expected $dateToString structural keys to pass, got %+v", res.Rejections)
	}
	match := res.Normalized.Pipeline[0]["$match"].(map[string]any)
	eq := match["$expr"].(map[string]any)["$eq"].([]any)
	dts := eq[0].(map[string]any)["$dateToString"].(map[string]any)
	if dts["format"] != "%Y" {
		t.Errorf("expected format key preserved, got %v", dts["format"])
	}
	if dts["date"] != "$creation_date" {
		t.Errorf("expected $creation_date reference preserved, got %v", dts["date"])
	}
}

func TestValidate_CondBranchKeysTolerated(t *testing.T) {
	v := newValidator()

	doc := &Document{Filter: map[string]any{
		"$expr": map[string]any{
			"$cond": map[string]any{
				"if":   map[string]any{"$gt": []any{"$totalPrice", float64(0)}},
				"then": true,
				"else": false,
			},
		},
	}}

	res := v.Validate(doc)

	if !res.Pass {
		t.Fatalf("expected $cond branch keys to pass, got %+v", res.Rejections)
	}
	cond := res.Normalized.Filter["$expr"].(map[string]any)["$cond"].(map[string]any)
	gt := cond["if"].(map[string]any)["$gt"].([]any)
	if gt[0] != "$total_price" {
		t.Errorf("expected field reference normalized inside $cond, got %v", gt[0])
	}
}

func TestValidate_MembershipElementsCoerced(t *testing.T) {
	v := newValidator()

	doc := &Document{Filter: map[string]any{
		"supplier_code": map[string]any{"$in": []any{"17", float64(23)}},
	}}

	res := v.Validate(doc)

	if !res.Pass {
		t.Fatalf("expected pass, got rejections: %+v", res.Rejections)
	}
	in := res.Normalized.Filter["supplier_code"].(map[string]any)["$in"].([]any)
	if in[0] != float64(17) || in[1] != float64(23) {
		t.Errorf("expected coerced [17 23], got %v", in)
	}
}

func TestValidate_AggregationPipeline(t *testing.T) {
	v := newValidator()

	doc := &Document{
		Aggregate: true,
		Pipeline: []map[string]any{
			{"$match": map[string]any{
				"fiscal_year": "2023",
				"total_price": map[string]any{"$gt": float64(10000)},
			}},
			{"$group": map[string]any{
				"_id":         "$departmentName",
				"total_spent": map[string]any{"$sum": "$totalPrice"},
			}},
			{"$sort": map[string]any{"total_spent": float64(-1)}},
			{"$limit": float64(5)},
		},
	}

	res := v.Validate(doc)

	// fiscal_year "2023" is not in the enumeration but enumeration
	// membership is not a structural failure; the stage walk itself passes.
	if !res.Pass {
		t.Fatalf("expected pass, got rejections: %+v", res.Rejections)
	}

	group := res.Normalized.Pipeline[1]["$group"].(map[string]any)
	if group["_id"] != "$department_name" {
		t.Errorf("expected $department_name group key, got %v", group["_id"])
	}
	sum := group["total_spent"].(map[string]any)
	if sum["$sum"] != "$total_price" {
		t.Errorf("expected $total_price reference, got %v", sum["$sum"])
	}
}

func TestValidate_GroupOutputNamesNotRejected(t *testing.T) {
	v := newValidator()

	doc := &Document{
		Aggregate: true,
		Pipeline: []map[string]any{
			{"$group": map[string]any{
				"_id":            "$supplier_name",
				"totalPurchases": map[string]any{"$sum": "$total_price"},
			}},
			{"$sort": map[string]any{"total_purchases": float64(-1)}},
		},
	}

	res := v.Validate(doc)

	if !res.Pass {
		t.Fatalf("expected computed output names to pass, got %+v", res.Rejections)
	}
	group := res.Normalized.Pipeline[0]["$group"].(map[string]any)
	if _, ok := group["total_purchases"]; !ok {
		t.Error("expected output name snake_cased to total_purchases")
	}
}

func TestValidate_UnknownStageRejected(t *testing.T) {
	v := newValidator()

	doc := &Document{
		Aggregate: true,
		Pipeline: []map[string]any{
			{"$merge": map[string]any{"into": "other"}},
		},
	}

	res := v.Validate(doc)

	if res.Pass {
		t.Error("expected $merge stage to be rejected")
	}
}

func TestValidate_NeverPanics(t *testing.T) {
	v := newValidator()

	docs := []*Document{
		nil,
		{Filter: map[string]any{}},
		{Filter: map[string]any{"department_name": nil}},
		{Aggregate: true, Pipeline: []map[string]any{{"$match": "not a document"}}},
		{Filter: map[string]any{"$and": "not an array"}},
	}

	for i, doc := range docs {
		res := v.Validate(doc)
		if doc == nil && res.Pass {
			t.Errorf("doc %d: expected nil document to fail", i)
		}
	}
}
