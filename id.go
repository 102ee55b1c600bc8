package emberplus

import (
	"github.com/oklog/ulid/v2"
)

// ClientId identifies a client session for the lifetime of its connection.
// ulids sort by creation time, which is occasionally useful for log
// ordering even though this server does not otherwise rely on it.
type ClientId [16]byte

func NewClientId() ClientId {
	return ClientId(ulid.Make())
}

func (id ClientId) String() string {
	return ulid.ULID(id).String()
}
