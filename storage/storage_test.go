package storage

import (
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"

	"github.com/Tayyab2344/Trello/domain"
)

func TestBoardEntityToDomain(t *testing.T) {
	data := []byte(`{"PartitionKey":"b1","RowKey":"b1","Title":"Launch","Image":"img","Organization":"org1","Owner":"u1","Members":"[\"u2\",\"u3\"]","Seq":4}`)
	var ent boardEntity
	if err := json.Unmarshal(data, &ent); err != nil {
		t.Fatalf("decode: %v", err)
	}
	b := ent.toDomain()
	if b.ID != "b1" || b.Title != "Launch" || b.Owner != "u1" {
		t.Fatalf("unexpected board: %+v", b)
	}
	if len(b.Members) != 2 || b.Members[0] != "u2" {
		t.Fatalf("unexpected members: %v", b.Members)
	}
}

func TestBoardEntityEmptyMembers(t *testing.T) {
	var ent boardEntity
	if err := json.Unmarshal([]byte(`{"PartitionKey":"b1","RowKey":"b1"}`), &ent); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if m := ent.toDomain().Members; m != nil {
		t.Fatalf("expected nil members, got %v", m)
	}
}

func TestMapTableError(t *testing.T) {
	cases := []struct {
		name   string
		status int
		want   error
	}{
		{"missing row", http.StatusNotFound, domain.ErrItemNotFound},
		{"insert collision", http.StatusConflict, domain.ErrConcurrencyConflict},
		{"failed if-match", http.StatusPreconditionFailed, domain.ErrConcurrencyConflict},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := &azcore.ResponseError{StatusCode: tc.status}
			if got := mapTableError(err, domain.ErrItemNotFound); !errors.Is(got, tc.want) {
				t.Fatalf("mapped %d to %v, want %v", tc.status, got, tc.want)
			}
		})
	}

	plain := errors.New("network down")
	if got := mapTableError(plain, domain.ErrItemNotFound); got != plain {
		t.Fatalf("unrelated error rewritten: %v", got)
	}
}
