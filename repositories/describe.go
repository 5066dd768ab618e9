package repositories

import (
	"encoding/binary"
	"fmt"
	"strings"
	"time"
)

// Record is a readable view of one stored key, used by the inspectors.
type Record struct {
	Key    string
	Kind   string
	ID     string
	At     time.Time
	Detail string
}

// Prefixes lists the key namespaces written by the store, in the order an
// inspector shows them.
var Prefixes = []string{"user:", "username:", "friend:", "freq:", "freqto:", "room:", "member:", "umember:", "msg:", "seq:"}

// Describe decodes the value stored under key. Values that fail to decode
// are reported with their size instead.
func Describe(key, val []byte) Record {
	k := string(key)
	kind, rest, _ := strings.Cut(k, ":")
	record := Record{Key: k, Kind: kind, ID: strings.TrimLeft(lastSegment(rest), "0")}

	var err error
	switch kind {
	case "user":
		u, e := decodeUser(val)
		err = e
		record.At = u.CreatedAt
		record.Detail = fmt.Sprintf("%s (%s)", u.Username, u.Nickname)
	case "username":
		id, e := decodeID(val)
		err = e
		record.ID = rest
		record.Detail = fmt.Sprintf("-> user %d", id)
	case "freq":
		r, e := decodeRequest(val)
		err = e
		record.Detail = fmt.Sprintf("%d -> %d %s", r.FromUserID, r.ToUserID, r.Status)
	case "room":
		r, e := decodeRoom(val)
		err = e
		record.Detail = fmt.Sprintf("%s [%s]", r.Name, r.Kind)
	case "msg":
		m, e := decodeMessage(val)
		err = e
		record.At = m.At
		record.Detail = fmt.Sprintf("%s: %s", m.SenderNickname, m.Content)
	case "friend", "freqto", "member", "umember":
		record.Detail = "index"
	case "seq":
		record.ID = rest
		if len(val) == 8 {
			record.Detail = fmt.Sprintf("lease %d", binary.BigEndian.Uint64(val))
		}
	default:
		record.Detail = fmt.Sprintf("Size: %d bytes", len(val))
	}
	if err != nil {
		record.Detail = fmt.Sprintf("undecodable (%v), %d bytes", err, len(val))
	}
	return record
}

func lastSegment(s string) string {
	if i := strings.LastIndexByte(s, ':'); i >= 0 {
		return s[i+1:]
	}
	return s
}
