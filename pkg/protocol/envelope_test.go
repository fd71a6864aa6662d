package protocol

import (
	"errors"
	"reflect"
	"strings"
	"testing"
)

func TestResponseUnmarshal(t *testing.T) {
	tests := []struct {
		name      string
		in        string
		wantData  map[string]any
		wantError string
	}{
		{
			name:     "object data",
			in:       `{"id":"c1","data":{"n":1},"dom":"<div></div>"}`,
			wantData: map[string]any{"n": 1.0},
		},
		{
			name:     "string data",
			in:       `{"id":"c1","data":"{\"n\":1}","dom":"<div></div>"}`,
			wantData: map[string]any{"n": 1.0},
		},
		{
			name:      "error string",
			in:        `{"id":"c1","error":"boom"}`,
			wantError: "boom",
		},
		{
			name:      "error object",
			in:        `{"error":{"code":1}}`,
			wantError: `{"code":1}`,
		},
		{
			name: "error false",
			in:   `{"id":"c1","error":false}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := DecodeResponse(JSONCodec{}, []byte(tt.in), DefaultLimits())
			if err != nil {
				t.Fatalf("DecodeResponse: %v", err)
			}
			if !reflect.DeepEqual(resp.Data, tt.wantData) {
				t.Errorf("Data = %v, want %v", resp.Data, tt.wantData)
			}
			if resp.Error != tt.wantError {
				t.Errorf("Error = %q, want %q", resp.Error, tt.wantError)
			}
		})
	}
}

func TestDecodeResponseRejects(t *testing.T) {
	if _, err := DecodeResponse(JSONCodec{}, []byte(`{"dom":"x"}`), DefaultLimits()); !errors.Is(err, ErrMissingID) {
		t.Errorf("err = %v, want ErrMissingID", err)
	}

	big := []byte(`{"id":"c1","dom":"` + strings.Repeat("x", 100) + `"}`)
	if _, err := DecodeResponse(JSONCodec{}, big, Limits{MaxMessageSize: 50}); !errors.Is(err, ErrMessageTooLarge) {
		t.Errorf("err = %v, want ErrMessageTooLarge", err)
	}

	deep := `{"id":"c1","data":{"a":{"b":{"c":{}}}}}`
	if _, err := DecodeResponse(JSONCodec{}, []byte(deep), Limits{MaxDataDepth: 2}); !errors.Is(err, ErrMaxDepthExceeded) {
		t.Errorf("err = %v, want ErrMaxDepthExceeded", err)
	}

	if _, err := DecodeResponse(JSONCodec{}, []byte(`not json`), DefaultLimits()); err == nil {
		t.Error("expected a decode error")
	}
}

func TestMergeDataIdempotent(t *testing.T) {
	src := map[string]any{"a": 1, "b": "x"}
	once := MergeData(map[string]any{"a": 0, "c": true}, src)
	twice := MergeData(MergeData(map[string]any{"a": 0, "c": true}, src), src)
	if !reflect.DeepEqual(once, twice) {
		t.Errorf("merge not idempotent: %v vs %v", once, twice)
	}
	want := map[string]any{"a": 1, "b": "x", "c": true}
	if !reflect.DeepEqual(once, want) {
		t.Errorf("merged = %v, want %v", once, want)
	}

	if got := MergeData(nil, src); len(got) != 2 {
		t.Errorf("MergeData(nil) = %v", got)
	}

	orig := map[string]any{"k": 1}
	c := CloneData(orig)
	c["k"] = 2
	if orig["k"] != 1 {
		t.Error("CloneData should copy")
	}
}
