package repositories

import (
	"chat-gate/domain"
	"fmt"
	"net/url"
	"time"

	"github.com/google/uuid"
)

// Key layout. Timestamps are 19-digit zero padded UnixNano so that
// lexicographical order is chronological; the message uuid breaks ties when
// two messages share a nanosecond. User ids are opaque and may contain the
// separator, so every user id segment is query-escaped.
//
//	user:{id}                              profile
//	email:{normalized email}               -> user id
//	req:{id}                               conversation request
//	reqpair:{low}:{high}                   -> request id, one per unordered pair
//	requser:{user}:{id}                    requests a user takes part in
//	dm:{low}:{high}:{ts}:{msg}             direct message
//	contact:{user}:{other}                 direct history exists
//	gm:{group}:{ts}:{msg}                  group message
//	group:{id}                             group
//	member:{user}:{group}                  membership index
const (
	prefixUser        = "user:"
	prefixEmail       = "email:"
	prefixRequest     = "req:"
	prefixRequestPair = "reqpair:"
	prefixRequestUser = "requser:"
	prefixDirect      = "dm:"
	prefixContact     = "contact:"
	prefixGroupMsg    = "gm:"
	prefixGroup       = "group:"
	prefixMember      = "member:"
)

// Prefixes lists every record family, for inspection tools.
var Prefixes = []string{
	prefixUser, prefixEmail, prefixRequest, prefixRequestPair, prefixRequestUser,
	prefixDirect, prefixContact, prefixGroupMsg, prefixGroup, prefixMember,
}

// segment escapes a user id so that ':' only ever separates key parts.
func segment(id string) string { return url.QueryEscape(id) }

// fromSegment reverses segment. Keys are only written through segment, so a
// malformed escape is kept as is.
func fromSegment(s string) string {
	id, err := url.QueryUnescape(s)
	if err != nil {
		return s
	}
	return id
}

// lastTimestamp sorts after every padded timestamp, for reverse seeks.
const lastTimestamp = "9999999999999999999"

func userKey(id string) []byte { return []byte(prefixUser + id) }

func emailKey(email string) []byte { return []byte(prefixEmail + email) }

func requestKey(id uuid.UUID) []byte { return []byte(prefixRequest + id.String()) }

func requestPairKey(p domain.Pair) []byte {
	return []byte(fmt.Sprintf("%s%s:%s", prefixRequestPair, segment(p.Low), segment(p.High)))
}

func requestUserPrefix(userID string) string { return prefixRequestUser + segment(userID) + ":" }

func requestUserKey(userID string, id uuid.UUID) []byte {
	return []byte(requestUserPrefix(userID) + id.String())
}

func directPrefix(p domain.Pair) string {
	return fmt.Sprintf("%s%s:%s:", prefixDirect, segment(p.Low), segment(p.High))
}

func directMessageKey(p domain.Pair, at time.Time, id uuid.UUID) []byte {
	return []byte(fmt.Sprintf("%s%019d:%s", directPrefix(p), at.UnixNano(), id))
}

func contactPrefix(userID string) string { return prefixContact + segment(userID) + ":" }

func contactKey(userID, otherID string) []byte { return []byte(contactPrefix(userID) + segment(otherID)) }

func groupMessagePrefix(groupID uuid.UUID) string {
	return prefixGroupMsg + groupID.String() + ":"
}

func groupMessageKey(groupID uuid.UUID, at time.Time, id uuid.UUID) []byte {
	return []byte(fmt.Sprintf("%s%019d:%s", groupMessagePrefix(groupID), at.UnixNano(), id))
}

func groupKey(id uuid.UUID) []byte { return []byte(prefixGroup + id.String()) }

func memberPrefix(userID string) string { return prefixMember + segment(userID) + ":" }

func memberKey(userID string, groupID uuid.UUID) []byte {
	return []byte(memberPrefix(userID) + groupID.String())
}
