package kvproto_test

import (
	"testing"

	"distsys/pkg/distsys/codec"
	"distsys/pkg/distsys/counter/kvproto"
)

func TestDecode_AllVariants(t *testing.T) {
	cases := []struct {
		typ  string
		body string
	}{
		{"read", `{"type":"read","key":"n1"}`},
		{"read_ok", `{"type":"read_ok","value":3}`},
		{"cas", `{"type":"cas","key":"n1","from":3,"to":7}`},
		{"cas_ok", `{"type":"cas_ok"}`},
		{"write", `{"type":"write","key":"n1","value":7}`},
		{"write_ok", `{"type":"write_ok"}`},
		{"error", `{"type":"error","code":20,"text":"key n1 does not exist"}`},
	}

	for _, tc := range cases {
		line, err := codec.DecodeLine([]byte(`{"src":"n1","dest":"seq-kv","body":` + tc.body + `}`))
		if err != nil {
			t.Fatalf("%s: decode line: %v", tc.typ, err)
		}
		payload, err := kvproto.Decode(line.BodyHeader, line.Body)
		if err != nil {
			t.Fatalf("%s: decode payload: %v", tc.typ, err)
		}
		if payload.Type() != tc.typ {
			t.Fatalf("expected type %q, got %q", tc.typ, payload.Type())
		}
	}
}

func TestDecode_UnknownType(t *testing.T) {
	hdr := codec.BodyHeader{Type: "bogus"}
	if _, err := kvproto.Decode(hdr, []byte(`{}`)); err == nil {
		t.Fatal("expected an error for an unknown type tag")
	}
}
