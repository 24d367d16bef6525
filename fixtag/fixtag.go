// Package fixtag holds the numeric FIX tags and message-type codes the rest
// of the harness keys off of. It is generalized from the teacher's
// constants package, which hard-coded one counterparty's (Coinbase Prime)
// tag set; here the tags are the tags every FIX.4.x session shares, since
// the harness has to compare logs from whatever gateway is under test.
package fixtag

// Tag is a FIX field number. FIX tags are always positive.
type Tag int

// Standard header / trailer tags referenced throughout the codec, scanner,
// linker and comparator.
const (
	BeginString   Tag = 8
	BodyLength    Tag = 9
	MsgType       Tag = 35
	SenderCompID  Tag = 49
	TargetCompID  Tag = 56
	MsgSeqNum     Tag = 34
	SendingTime   Tag = 52
	CheckSum      Tag = 10
	PossDupFlag   Tag = 43
	OrigSendingTm Tag = 122
	TransactTime  Tag = 60
)

// HeaderTrailerTags is the fixed set of tags the Codec places in a specific
// order (or in the trailer) rather than sorting with the business fields.
var HeaderTrailerTags = map[Tag]bool{
	BeginString:  true,
	BodyLength:   true,
	CheckSum:     true,
	MsgSeqNum:    true,
	MsgType:      true,
	SenderCompID: true,
	SendingTime:  true,
	TargetCompID: true,
}

// Common admin (session-level) message types. AdminMsgTypes below lists
// the ones the simulator drops from business routing.
const (
	MsgTypeHeartbeat     = "0"
	MsgTypeTestRequest   = "1"
	MsgTypeResendRequest = "2"
	MsgTypeSessionReject = "3"
	MsgTypeSequenceReset = "4"
	MsgTypeLogout        = "5"
	MsgTypeLogon         = "A"
)

// AdminMsgTypes is the default set dropped when drop_admin_messages is set.
var AdminMsgTypes = map[string]bool{
	MsgTypeHeartbeat:     true,
	MsgTypeTestRequest:   true,
	MsgTypeResendRequest: true,
	MsgTypeSequenceReset: true,
	MsgTypeLogout:        true,
	MsgTypeLogon:         true,
}

// DefaultExcludeTags is the comparator's always-excluded tag set per
// spec §4.3: BeginString/BodyLength/Checksum/MsgSeqNum/SendingTime and
// OrigSendingTime.
var DefaultExcludeTags = []Tag{BeginString, BodyLength, CheckSum, MsgSeqNum, SendingTime, OrigSendingTm}
