package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
)

func TestQuantityKeepsValueAsReceived(t *testing.T) {
	var ex Exercise
	require.NoError(t, json.Unmarshal([]byte(`{"name":"Squat","sets":3,"reps":12,"restTime":"60s","duration":null}`), &ex))

	assert.Equal(t, Quantity("3"), ex.Sets)
	assert.Equal(t, Quantity("12"), ex.Reps)
	assert.Equal(t, Quantity("60s"), ex.RestTime)
	assert.Empty(t, ex.Duration)

	out, err := json.Marshal(ex)
	require.NoError(t, err)
	assert.JSONEq(t, `{"name":"Squat","sets":3,"reps":12,"restTime":"60s"}`, string(out))
}

func TestQuantityFloat(t *testing.T) {
	tests := []struct {
		in      Quantity
		want    float64
		numeric bool
	}{
		{"200", 200, true},
		{"0.5", 0.5, true},
		{"-3", -3, true},
		{"8-12", 0, false},
		{"about 200", 0, false},
		{"Inf", 0, false},
		{"", 0, false},
	}
	for _, tt := range tests {
		got, ok := tt.in.Float()
		assert.Equal(t, tt.numeric, ok, string(tt.in))
		assert.Equal(t, tt.want, got, string(tt.in))
	}
}

func TestQuantityRejectsNonScalars(t *testing.T) {
	var meal Meal
	assert.Error(t, json.Unmarshal([]byte(`{"calories":{"kcal":200}}`), &meal))
	assert.Error(t, json.Unmarshal([]byte(`{"calories":true}`), &meal))
}

func TestQuantityBSON(t *testing.T) {
	in := Meal{Type: MealSnack, Name: "Nuts", Calories: "200", Protein: "7.5", Carbs: "a handful"}
	data, err := bson.Marshal(in)
	require.NoError(t, err)

	var raw bson.M
	require.NoError(t, bson.Unmarshal(data, &raw))
	assert.Equal(t, 200.0, raw["calories"])
	assert.Equal(t, "a handful", raw["carbs"])
	assert.NotContains(t, raw, "fats")

	var out Meal
	require.NoError(t, bson.Unmarshal(data, &out))
	assert.Equal(t, in, out)
}
