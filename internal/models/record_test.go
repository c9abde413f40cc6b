package models

import (
	"encoding/json"
	"testing"
)

func TestRecord_SetKeepsOrder(t *testing.T) {
	r := NewRecord(3)
	r.Set("Trip_ID", "T1")
	r.Set("Age", 30.0)
	r.Set("Trip_ID", "T2") // overwrite keeps position

	keys := r.Keys()
	if len(keys) != 2 || keys[0] != "Trip_ID" || keys[1] != "Age" {
		t.Fatalf("Keys() = %v", keys)
	}
	if v := r.Value("Trip_ID"); v != "T2" {
		t.Errorf("Trip_ID = %v, want T2", v)
	}
	if _, ok := r.Get("missing"); ok {
		t.Error("missing key should not be present")
	}
}

func TestRecord_ZeroValue(t *testing.T) {
	var r Record
	r.Set("a", 1.0)
	if r.Len() != 1 {
		t.Errorf("Len() = %d, want 1", r.Len())
	}
	var nilRec *Record
	if nilRec.Len() != 0 || nilRec.Value("a") != nil {
		t.Error("nil record should behave as empty")
	}
}

func TestRecord_MarshalJSONOrdered(t *testing.T) {
	r := NewRecord(3)
	r.Set("z", "last-name-first")
	r.Set("a", 1.5)
	r.Set("m", nil)
	data, err := json.Marshal(r)
	if err != nil {
		t.Fatal(err)
	}
	want := `{"z":"last-name-first","a":1.5,"m":null}`
	if string(data) != want {
		t.Errorf("MarshalJSON = %s, want %s", data, want)
	}
}

func TestRecord_CloneIsIndependent(t *testing.T) {
	r := NewRecord(1)
	r.Set("Trip_ID", "T1")
	c := r.Clone()
	c.Set("Age", 42.0)
	if r.Len() != 1 {
		t.Errorf("original mutated: %v", r.Keys())
	}
	if c.Value("Trip_ID") != "T1" {
		t.Error("clone lost field")
	}
}
