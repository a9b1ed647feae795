package wire

import (
	"bytes"
	"testing"
)

func TestRequestRoundtrip(t *testing.T) {
	req := &Request{
		Operation: 5,
		Data:      []byte("hello"),
		Key:       []byte("Grape               "),
		KeyNumber: 1,
		FilePath:  "/data/customers.btr",
		LockBias:  0,
	}
	buf := bytes.NewReader(req.ToBytes())
	got, err := ReadFrom(buf)
	if err != nil {
		t.Fatalf("ReadFrom: %v", err)
	}
	if got.Operation != req.Operation || string(got.Data) != string(req.Data) {
		t.Fatalf("mismatch: %+v", got)
	}
	if got.FilePath != req.FilePath || got.KeyNumber != req.KeyNumber {
		t.Fatalf("mismatch: %+v", got)
	}
}

func TestResponseRoundtrip(t *testing.T) {
	resp := &Response{Status: 0, Data: []byte("record-bytes"), Key: []byte("Apple")}
	var buf bytes.Buffer
	if err := resp.WriteTo(&buf); err != nil {
		t.Fatalf("WriteTo: %v", err)
	}
	got, err := ReadResponseFrom(&buf)
	if err != nil {
		t.Fatalf("ReadResponseFrom: %v", err)
	}
	if got.Status != resp.Status || string(got.Data) != string(resp.Data) || string(got.Key) != string(resp.Key) {
		t.Fatalf("mismatch: %+v", got)
	}
}
