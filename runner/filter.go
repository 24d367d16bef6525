package runner

// MsgTypeFilter restricts which message types a runner admits. An empty
// (or nil) filter allows every message type through.
type MsgTypeFilter map[string]bool

// Accepts reports whether msgType passes the filter.
func (f MsgTypeFilter) Accepts(msgType string) bool {
	if len(f) == 0 {
		return true
	}
	return f[msgType]
}

// NewMsgTypeFilter builds a filter accepting exactly the given message
// types. No arguments produces a filter that accepts everything.
func NewMsgTypeFilter(msgTypes ...string) MsgTypeFilter {
	f := make(MsgTypeFilter, len(msgTypes))
	for _, mt := range msgTypes {
		f[mt] = true
	}
	return f
}
